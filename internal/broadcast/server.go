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
	"bytes"
	"compress/zlib"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
	"go.uber.org/zap"

	"github.com/xairaven/xailyser/internal/aggregator"
	"github.com/xairaven/xailyser/internal/analysis"
	"github.com/xairaven/xailyser/internal/config"
)

// Config collects what a Server needs beyond an already-bound listener.
type Config struct {
	PasswordHash         string
	Compression          config.Compression
	LinkType             string
	SubscriberQueueDepth int
	HeartbeatInterval    time.Duration
}

// Server is the Broadcast Server: the TCP acceptor thread plus the
// per-subscriber fan-out described in spec.md §6.
type Server struct {
	cfg Config
	log *zap.Logger

	ln net.Listener

	mu          sync.Mutex
	subscribers map[string]*Subscriber

	heartbeatSeq uint64

	wg       sync.WaitGroup
	shutdown chan struct{}
	once     sync.Once
}

// Listen binds addr and returns an idle Server; call Serve to start
// accepting.
func Listen(addr string, cfg Config, log *zap.Logger) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "listen %q", addr)
	}

	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = 5 * time.Second
	}

	return &Server{
		cfg:         cfg,
		log:         log,
		ln:          ln,
		subscribers: make(map[string]*Subscriber),
		shutdown:    make(chan struct{}),
	}, nil
}

// Serve runs the accept loop and the heartbeat ticker until Shutdown is
// called.
func (s *Server) Serve() {
	s.wg.Add(1)
	go s.heartbeatLoop()

	for {
		conn, err := s.ln.Accept()
		if err != nil {
			select {
			case <-s.shutdown:
				return
			default:
				s.log.Warn("accept error", zap.Error(err))

				continue
			}
		}

		s.wg.Add(1)
		go s.handleConn(conn)
	}
}

func (s *Server) handleConn(conn net.Conn) {
	defer s.wg.Done()

	if err := handshake(conn, s.cfg.PasswordHash, s.cfg.Compression, s.cfg.LinkType, s.log); err != nil {
		_ = conn.Close()

		return
	}

	sub := newSubscriber(conn, s.cfg.Compression, s.cfg.SubscriberQueueDepth, s.log)

	s.mu.Lock()
	s.subscribers[sub.ID] = sub
	s.mu.Unlock()

	s.log.Info("subscriber connected", zap.String("id", sub.ID), zap.String("remote", conn.RemoteAddr().String()))

	var inner sync.WaitGroup
	inner.Add(2)

	go func() {
		defer inner.Done()
		sub.writerLoop()
	}()
	go func() {
		defer inner.Done()
		sub.readerLoop()
	}()

	inner.Wait()

	s.mu.Lock()
	delete(s.subscribers, sub.ID)
	s.mu.Unlock()
}

func (s *Server) heartbeatLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.cfg.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			seq := atomic.AddUint64(&s.heartbeatSeq, 1)
			payload, err := json.Marshal(heartbeatFrame{Kind: KindHeartbeat, Seq: seq})
			if err != nil {
				continue
			}

			deadline := time.Now().Add(-2 * s.cfg.HeartbeatInterval)

			for _, sub := range s.snapshotSubscribers() {
				if sub.lastSeen().Before(deadline) {
					sub.close("heartbeat timeout")

					continue
				}

				sub.enqueueControl(payload)
			}
		case <-s.shutdown:
			return
		}
	}
}

func (s *Server) snapshotSubscribers() []*Subscriber {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*Subscriber, 0, len(s.subscribers))
	for _, sub := range s.subscribers {
		out = append(out, sub)
	}

	return out
}

// PublishPacket serializes pa once per distinct compression mode in use
// (at most two: identity and zlib) and enqueues it on every subscriber
// whose protocol filter accepts the frame's outermost protocol.
func (s *Server) PublishPacket(pa *analysis.PacketAnalysis) {
	subs := s.snapshotSubscribers()
	if len(subs) == 0 {
		return
	}

	raw, err := json.Marshal(pa)
	if err != nil {
		s.log.Error("marshal packet frame", zap.Error(err))

		return
	}

	var compressed []byte

	for _, sub := range subs {
		if !sub.wants(string(pa.OuterProto())) {
			continue
		}

		if sub.compression == config.CompressionZlib {
			if compressed == nil {
				compressed = mustDeflate(raw)
			}

			sub.enqueue(compressed)
		} else {
			sub.enqueue(raw)
		}
	}
}

// PublishStats serializes a Stats frame once per subscriber: each
// subscriber's own dropped_for_slow_consumer count must be injected
// before the counter is reset, which rules out the single-marshal
// optimization PublishPacket uses. Stats frames are emitted only once
// per stats interval (default 1s), so this is not a hot path.
func (s *Server) PublishStats(snap *aggregator.StatsSnapshot) {
	for _, sub := range s.snapshotSubscribers() {
		dropped := sub.out.takeDropped()

		raw, err := json.Marshal(struct {
			statsEnvelope
			*aggregator.StatsSnapshot
		}{
			statsEnvelope: statsEnvelope{Kind: KindStats, DroppedForSlowConsumer: dropped},
			StatsSnapshot: snap,
		})
		if err != nil {
			s.log.Error("marshal stats frame", zap.Error(err))

			continue
		}

		if sub.compression == config.CompressionZlib {
			raw = mustDeflate(raw)
		}

		sub.enqueue(raw)
	}
}

func mustDeflate(raw []byte) []byte {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	_, _ = w.Write(raw)
	_ = w.Close()

	return buf.Bytes()
}

// Shutdown closes the listener and every subscriber connection.
func (s *Server) Shutdown() {
	s.once.Do(func() {
		close(s.shutdown)
		_ = s.ln.Close()

		for _, sub := range s.snapshotSubscribers() {
			sub.close("server shutting down")
		}
	})

	s.wg.Wait()
}
