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
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
)

// maxFrameLen bounds a single inbound frame: generous enough for a
// Packet/Stats payload, small enough that a corrupt length prefix cannot
// be used to exhaust memory.
const maxFrameLen = 16 * 1024 * 1024

var ErrFrameTooLarge = errors.New("broadcast: frame exceeds maximum length")

// writeFrame writes a 4-byte big-endian length prefix followed by
// payload. Control frames (Nonce, Authenticate, Welcome, Unauthorized,
// Subscribe, Heartbeat, Close) are never compressed; Packet and Stats
// payloads may already be zlib-compressed by the caller.
func writeFrame(w io.Writer, payload []byte) error {
	var hdr [4]byte
	binary.BigEndian.PutUint32(hdr[:], uint32(len(payload)))

	if _, err := w.Write(hdr[:]); err != nil {
		return errors.Wrap(err, "write frame length")
	}

	if _, err := w.Write(payload); err != nil {
		return errors.Wrap(err, "write frame payload")
	}

	return nil
}

// readFrame reads one length-prefixed frame.
func readFrame(r io.Reader) ([]byte, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}

	n := binary.BigEndian.Uint32(hdr[:])
	if n > maxFrameLen {
		return nil, errors.Wrapf(ErrFrameTooLarge, "%d bytes", n)
	}

	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, errors.Wrap(err, "read frame payload")
	}

	return buf, nil
}

func peekKind(payload []byte) (Kind, error) {
	var env kindEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return "", errors.Wrap(err, "decode frame envelope")
	}

	return env.Kind, nil
}
