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

package broadcast

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"net"

	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
	"go.uber.org/zap"

	"github.com/xairaven/xailyser/internal/config"
)

var (
	ErrHandshakeFailed = errors.New("broadcast: handshake failed")
	ErrBadDigest        = errors.New("broadcast: digest mismatch")
)

// handshake runs the server side of the authentication exchange on a
// freshly accepted connection. The shared secret is always compared in
// its canonical SHA-256 hex form (passwordHash): the config layer
// accepts either a raw password or a precomputed hash and normalizes to
// this form, so the digest the client must produce is
// SHA-256(passwordHashHex || nonceHex), computable by the server without
// ever holding the raw password.
func handshake(conn net.Conn, passwordHash string, compression config.Compression, linkType string, log *zap.Logger) error {
	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		return errors.Wrap(err, "generate nonce")
	}

	nonceHex := hex.EncodeToString(nonce)

	if err := writeJSON(conn, nonceFrame{Kind: KindNonce, Nonce: nonceHex}); err != nil {
		return errors.Wrap(err, "send nonce")
	}

	payload, err := readFrame(conn)
	if err != nil {
		return errors.Wrap(err, "read authenticate frame")
	}

	kind, err := peekKind(payload)
	if err != nil {
		return err
	}

	if kind != KindAuthenticate {
		return errors.Wrapf(ErrHandshakeFailed, "expected Authenticate, got %q", kind)
	}

	var auth authenticateFrame
	if err := json.Unmarshal(payload, &auth); err != nil {
		return errors.Wrap(err, "decode authenticate frame")
	}

	sum := sha256.Sum256([]byte(passwordHash + nonceHex))
	expected := hex.EncodeToString(sum[:])

	if subtle.ConstantTimeCompare([]byte(expected), []byte(auth.Digest)) != 1 {
		_ = writeJSON(conn, unauthorizedFrame{Kind: KindUnauthorized, Reason: "digest mismatch"})

		if log != nil {
			log.Warn("subscriber failed authentication", zap.String("remote", conn.RemoteAddr().String()))
		}

		return ErrBadDigest
	}

	return writeJSON(conn, welcomeFrame{
		Kind:            KindWelcome,
		ProtocolVersion: ProtocolVersion,
		Compression:     string(compression),
		LinkType:        linkType,
	})
}

func writeJSON(conn net.Conn, v interface{}) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(err, "marshal frame")
	}

	return writeFrame(conn, payload)
}
