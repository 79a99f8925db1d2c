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

// Package dissect implements the byte-precise protocol dissector family that
// backs the registry's lookup table: one dissector per supported protocol,
// each consuming a byte slice positioned at the start of its header and
// producing a LayerRecord plus a residual view for the next layer.
package dissect

import (
	"github.com/segmentio/encoding/json"
)

// Tag identifies a protocol layer, both as the produced LayerRecord's
// Proto field and as the "parent" half of a registry lookup key.
type Tag string

// Canonical layer tags. "Link" is not a protocol in its own right — it is
// the synthetic parent tag the capture source's link-type is looked up
// under to find the outermost dissector (Ethernet II today).
const (
	TagLink     Tag = "Link"
	TagEthernet Tag = "Ethernet"
	TagARP      Tag = "ARP"
	TagIPv4     Tag = "IPv4"
	TagIPv6     Tag = "IPv6"
	TagICMPv4   Tag = "ICMPv4"
	TagICMPv6   Tag = "ICMPv6"
	TagTCP      Tag = "TCP"
	TagUDP      Tag = "UDP"
	TagDNS      Tag = "DNS"
	TagDHCPv4   Tag = "DHCPv4"
	TagDHCPv6   Tag = "DHCPv6"
	TagHTTP     Tag = "HTTP"
	TagUnknown  Tag = "Unknown"
)

// Fields holds the decoded, protocol-specific key/value pairs of a
// LayerRecord. Kept as a loosely typed map (rather than one struct per
// protocol) so LayerRecord can serialize to the flat, per-kind JSON shape
// the wire protocol requires without a marshaler per protocol.
type Fields map[string]interface{}

// LayerRecord is one decoded protocol header within a PacketAnalysis.
//
// Invariant: for any two adjacent records produced while dissecting the
// same frame, the inner record's StartOffset equals the outer record's
// EndOffset — headers are contiguous, never overlapping, never gapped.
type LayerRecord struct {
	Proto       Tag
	StartOffset int
	EndOffset   int
	Partial     bool
	Fields      Fields
}

// MarshalJSON flattens Fields alongside the proto/offset/partial
// discriminants, matching the wire shape `{"proto": "Ethernet", ...}`.
func (r LayerRecord) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(r.Fields)+4)
	for k, v := range r.Fields {
		out[k] = v
	}

	out["proto"] = string(r.Proto)
	out["start_offset"] = r.StartOffset
	out["end_offset"] = r.EndOffset

	if r.Partial {
		out["partial"] = true
	}

	return json.Marshal(out)
}

// Selector is the value drawn from a parent layer that decides the next
// dissector: an EtherType, an IP protocol number, or a transport port.
type Selector uint32

// Result is what a Dissector produces on success.
type Result struct {
	Record LayerRecord

	// NextParent/Selector identify the next registry lookup. NextParent is
	// the zero Tag when this dissector is terminal (ARP, ICMP, DNS, DHCP,
	// HTTP never promote further).
	NextParent Tag
	Selector   Selector

	// AltSelector is consulted when Selector misses the registry, per the
	// destination-port-wins-src-port-falls-back policy (spec.md §9 Open
	// Question). Transport dissectors (TCP/UDP) set this to the source
	// port; all others leave it zero.
	AltSelector Selector

	// Residual is the sub-slice view of the input that belongs to the next
	// layer. Never a copy — dissectors never allocate the residual.
	Residual []byte
}

// Context carries dissection-wide options down into each Dissector call.
type Context struct {
	// ValidateChecksums enables IPv4 header checksum verification; the
	// ICMP, TCP and UDP checksums are reported but never verified.
	// Disabled by default: most captures are taken downstream of NIC
	// checksum offload, where the on-wire checksum is a placeholder.
	ValidateChecksums bool
}

// Func is the shape every protocol dissector implements.
type Func func(data []byte, ctx *Context) (Result, error)

// Dissector pairs a human-readable name with its Func, so the registry and
// startup diagnostics can report on bindings without reflecting on the
// closure.
type Dissector struct {
	Name  string
	Proto Tag
	Parse Func
}
