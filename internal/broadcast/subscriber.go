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
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/encoding/json"
	"go.uber.org/zap"

	"github.com/xairaven/xailyser/internal/config"
)

// Subscriber is one authenticated client connection. IDs are random
// (google/uuid) rather than derived from the remote address: a client
// reconnecting from the same address/port pair after a NAT rebind must
// not collide with a still-draining previous session.
type Subscriber struct {
	ID           string
	conn         net.Conn
	compression  config.Compression
	out          *outboundQueue
	filter       map[string]bool // empty means "all protocols"
	filterMu     sync.RWMutex
	lastSeenNano int64
	closeOnce    sync.Once
	done         chan struct{}
	log          *zap.Logger
}

func newSubscriber(conn net.Conn, compression config.Compression, queueDepth int, log *zap.Logger) *Subscriber {
	s := &Subscriber{
		ID:          uuid.NewString(),
		conn:        conn,
		compression: compression,
		out:         newOutboundQueue(queueDepth),
		done:        make(chan struct{}),
		log:         log,
	}
	s.touch()

	return s
}

func (s *Subscriber) touch() {
	atomic.StoreInt64(&s.lastSeenNano, time.Now().UnixNano())
}

func (s *Subscriber) lastSeen() time.Time {
	return time.Unix(0, atomic.LoadInt64(&s.lastSeenNano))
}

func (s *Subscriber) wants(proto string) bool {
	s.filterMu.RLock()
	defer s.filterMu.RUnlock()

	if len(s.filter) == 0 {
		return true
	}

	return s.filter[proto]
}

func (s *Subscriber) setFilter(protocols []string) {
	s.filterMu.Lock()
	defer s.filterMu.Unlock()

	if len(protocols) == 0 {
		s.filter = nil

		return
	}

	s.filter = make(map[string]bool, len(protocols))
	for _, p := range protocols {
		s.filter[p] = true
	}
}

// enqueue queues a data frame (Packet or Stats), subject to the
// drop-oldest-data-frame policy.
func (s *Subscriber) enqueue(payload []byte) {
	s.out.push(outFrame{Payload: payload})
}

// enqueueControl queues a Heartbeat or Close frame, which the queue never
// drops.
func (s *Subscriber) enqueueControl(payload []byte) {
	s.out.push(outFrame{Payload: payload, Control: true})
}

// close shuts the subscriber down exactly once: stops its writer,
// attempts a graceful Close frame, and closes the socket.
func (s *Subscriber) close(reason string) {
	s.closeOnce.Do(func() {
		payload, err := json.Marshal(closeFrame{Kind: KindClose, Reason: reason})
		if err == nil {
			s.out.push(outFrame{Payload: payload, Control: true})
		}

		s.out.close()
		close(s.done)

		if s.log != nil {
			s.log.Info("subscriber closed", zap.String("id", s.ID), zap.String("reason", reason))
		}
	})
}

// writerLoop drains the outbound queue onto the socket until it is
// closed or a write fails.
func (s *Subscriber) writerLoop() {
	for {
		f, ok := s.out.pop()
		if !ok {
			_ = s.conn.Close()

			return
		}

		if err := writeFrame(s.conn, f.Payload); err != nil {
			s.close("write error")
			_ = s.conn.Close()

			return
		}
	}
}

// readerLoop consumes inbound control frames (Heartbeat, Subscribe,
// Close) and advances lastSeen on any inbound frame, per spec.md's
// invariant that last_seen is monotonic on data or heartbeat traffic.
func (s *Subscriber) readerLoop() {
	for {
		payload, err := readFrame(s.conn)
		if err != nil {
			s.close("read error")

			return
		}

		s.touch()

		kind, err := peekKind(payload)
		if err != nil {
			continue
		}

		switch kind {
		case KindSubscribe:
			var sub subscribeFrame
			if json.Unmarshal(payload, &sub) == nil {
				s.setFilter(sub.Protocols)
			}
		case KindClose:
			s.close("client closed")

			return
		case KindHeartbeat:
			// lastSeen already advanced above; nothing else to do.
		}
	}
}
