/*
 * xailyser - network capture & deep packet inspection
 * Copyright (c) 2020-2024 the xailyser authors
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES
 * WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF
 * MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR
 * ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES
 * WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN
 * ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF
 * OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

// Package broadcast implements the authenticated, framed TCP broadcast
// protocol of spec.md §6: a length-prefixed JSON wire format, a
// SHA-256 challenge-response handshake, and a bounded per-subscriber
// fan-out that drops data frames before control frames under load.
package broadcast

// ProtocolVersion is advertised in the Welcome frame; bump it on any
// wire-incompatible change to the frame kinds below.
const ProtocolVersion = 1

// Kind discriminates every frame that crosses the wire, both during the
// handshake and after.
type Kind string

const (
	// KindNonce is server -> client, sent immediately on connect: the
	// handshake nonce the client must fold into its digest. Not named
	// explicitly in spec.md's frame-kind table; the handshake otherwise
	// has no channel to deliver the nonce, so the server pushes it first.
	KindNonce Kind = "Nonce"

	// KindAuthenticate is client -> server: the SHA-256 digest proving
	// knowledge of the shared password.
	KindAuthenticate Kind = "Authenticate"

	// KindWelcome is server -> client on successful authentication: it
	// carries the negotiated protocol version, compression mode and
	// capture link-type.
	KindWelcome Kind = "Welcome"

	// KindUnauthorized is server -> client on a failed digest check. The
	// server closes the connection immediately afterward.
	KindUnauthorized Kind = "Unauthorized"

	// KindSubscribe is client -> server, optional: narrows the protocol
	// allow-list the client wants mirrored to it.
	KindSubscribe Kind = "Subscribe"

	// KindPacket is server -> client: one dissected frame.
	KindPacket Kind = "Packet"

	// KindStats is server -> client: one Aggregator snapshot.
	KindStats Kind = "Stats"

	// KindHeartbeat is bidirectional: server-sent on a timer, and
	// expected back from the client within two intervals or the
	// subscriber is closed for inactivity.
	KindHeartbeat Kind = "Heartbeat"

	// KindClose is bidirectional: a graceful end to the session, with a
	// human-readable reason.
	KindClose Kind = "Close"
)

type kindEnvelope struct {
	Kind Kind `json:"kind"`
}

type nonceFrame struct {
	Kind  Kind   `json:"kind"`
	Nonce string `json:"nonce"`
}

type authenticateFrame struct {
	Kind   Kind   `json:"kind"`
	Digest string `json:"digest"`
}

type welcomeFrame struct {
	Kind            Kind   `json:"kind"`
	ProtocolVersion int    `json:"protocol_version"`
	Compression     string `json:"compression"`
	LinkType        string `json:"link_type"`
}

type unauthorizedFrame struct {
	Kind   Kind   `json:"kind"`
	Reason string `json:"reason"`
}

type subscribeFrame struct {
	Kind      Kind     `json:"kind"`
	Protocols []string `json:"protocols,omitempty"`
}

type heartbeatFrame struct {
	Kind Kind   `json:"kind"`
	Seq  uint64 `json:"seq"`
}

type closeFrame struct {
	Kind   Kind   `json:"kind"`
	Reason string `json:"reason"`
}

type statsEnvelope struct {
	Kind                 Kind   `json:"kind"`
	DroppedForSlowConsumer uint64 `json:"dropped_for_slow_consumer"`
}
