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

// Package capture implements the Capture Source (spec.md §4.1): it opens a
// device handle or replays a pcap file, applies a BPF filter, and yields a
// lazy, finite-only-on-error sequence of Frames with timestamps and
// link-layer type metadata.
package capture

import (
	"strings"
	"sync/atomic"
	"time"

	"github.com/dreadl0ck/gopacket/layers"
	"github.com/dreadl0ck/gopacket/pcap"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Frame is one raw link-layer frame lifted off the wire: a monotonic id, a
// wall timestamp, the link-layer type and the raw bytes. Owned by exactly
// one pipeline stage at a time — handoff between the capture goroutine and
// the dissection workers is a channel send, never a shared pointer.
type Frame struct {
	ID        uint64
	Timestamp time.Time
	LinkType  layers.LinkType
	Data      []byte
}

// Config configures a Source.
type Config struct {
	// Interface is the device name to open live. Ignored when ReplayFile
	// is set.
	Interface string

	// ReplayFile, when non-empty, opens a pcap file for offline replay
	// instead of a live device — used for deterministic tests (S1-S3).
	ReplayFile string

	Promiscuous bool
	SnapLen     int32
	BPFFilter   string
}

// Source is the Capture Source contract: Frames, lazily, until an error or
// clean end-of-stream.
type Source interface {
	// Next blocks until a frame is available, an error occurs, or the
	// source is closed. A zero Frame with a nil error never happens;
	// io.EOF-style termination is reported as ErrDeviceClosed.
	Next() (Frame, error)

	// LinkType reports the capture's outermost link-layer format.
	LinkType() layers.LinkType

	// Close releases the underlying device or file handle.
	Close()
}

var nextFrameID uint64

// source wraps a gopacket/pcap.Handle; the same implementation backs both
// live capture (pcap.OpenLive) and offline replay (pcap.OpenOffline) since
// both produce a *pcap.Handle with an identical read path.
type source struct {
	handle *pcap.Handle
	log    *zap.Logger
}

// Open opens a live device per cfg, or replays a file when cfg.ReplayFile
// is set. Failures map to ErrInterfaceUnavailable, ErrPermissionDenied or
// ErrFilterInvalid as specified.
func Open(cfg Config, log *zap.Logger) (Source, error) {
	if log == nil {
		log = zap.NewNop()
	}

	var (
		handle *pcap.Handle
		err    error
	)

	if cfg.ReplayFile != "" {
		handle, err = pcap.OpenOffline(cfg.ReplayFile)
		if err != nil {
			return nil, errors.Wrapf(ErrInterfaceUnavailable, "open replay file %q: %v", cfg.ReplayFile, err)
		}
	} else {
		snaplen := cfg.SnapLen
		if snaplen == 0 {
			snaplen = 262144
		}

		handle, err = pcap.OpenLive(cfg.Interface, snaplen, cfg.Promiscuous, pcap.BlockForever)
		if err != nil {
			return nil, classifyOpenError(cfg.Interface, err)
		}
	}

	if cfg.BPFFilter != "" {
		if err := handle.SetBPFFilter(cfg.BPFFilter); err != nil {
			handle.Close()

			return nil, errors.Wrapf(ErrFilterInvalid, "%q: %v", cfg.BPFFilter, err)
		}
	}

	log.Info("capture source opened",
		zap.String("interface", cfg.Interface),
		zap.String("replay_file", cfg.ReplayFile),
		zap.Bool("promiscuous", cfg.Promiscuous),
		zap.String("bpf_filter", cfg.BPFFilter),
	)

	return &source{handle: handle, log: log}, nil
}

func classifyOpenError(iface string, err error) error {
	if isPermissionError(err) {
		return errors.Wrapf(ErrPermissionDenied, "interface %q: %v", iface, err)
	}

	return errors.Wrapf(ErrInterfaceUnavailable, "interface %q: %v", iface, err)
}

// Next reads one frame. Transient read errors (pcap.NextErrorTimeoutExpired)
// are retried by the caller's loop via a logged empty read; a closed
// device surfaces ErrDeviceClosed so downstream can end the stream
// cleanly.
func (s *source) Next() (Frame, error) {
	data, ci, err := s.handle.ReadPacketData()
	if err != nil {
		if errors.Is(err, pcap.NextErrorTimeoutExpired) {
			s.log.Debug("capture read timeout, retrying")

			return Frame{}, errTimeout
		}

		return Frame{}, errors.Wrapf(ErrDeviceClosed, "%v", err)
	}

	ts := ci.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	return Frame{
		ID:        atomic.AddUint64(&nextFrameID, 1),
		Timestamp: ts,
		LinkType:  s.handle.LinkType(),
		Data:      data,
	}, nil
}

func (s *source) LinkType() layers.LinkType {
	return s.handle.LinkType()
}

func (s *source) Close() {
	s.handle.Close()
}

// errTimeout is a private, non-fatal sentinel: a read timeout is not a
// terminal condition, just an empty poll the caller retries.
var errTimeout = errors.New("capture: read timeout, retry")

// IsTimeout reports whether err is the transient read-timeout condition.
func IsTimeout(err error) bool {
	return errors.Is(err, errTimeout)
}

func isPermissionError(err error) bool {
	if err == nil {
		return false
	}

	msg := strings.ToLower(err.Error())

	return strings.Contains(msg, "permission") || strings.Contains(msg, "operation not permitted")
}
