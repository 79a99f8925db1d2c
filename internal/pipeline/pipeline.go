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

// Package pipeline wires the Capture Source, the Dissection Worker pool and
// the Aggregator into the multi-threaded topology from spec.md §5: a
// bounded cap_queue feeds N workers, which fan out into out_queue (to the
// Broadcast Server) and agg_queue (to the Aggregator, which must never
// drop an update).
package pipeline

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/xairaven/xailyser/internal/aggregator"
	"github.com/xairaven/xailyser/internal/analysis"
	"github.com/xairaven/xailyser/internal/broadcast"
	"github.com/xairaven/xailyser/internal/capture"
	"github.com/xairaven/xailyser/internal/dissect"
	"github.com/xairaven/xailyser/internal/registry"
)

const (
	capQueueDepth = 8192
	outQueueDepth = 8192
	aggQueueDepth = 16384
)

// Event is what flows over out_queue to the Broadcast Server's fan-out:
// either a per-frame analysis or a periodic stats snapshot, never both.
type Event struct {
	Packet *analysis.PacketAnalysis
	Stats  *aggregator.StatsSnapshot
}

// Pipeline owns every bounded channel and goroutine described in spec.md
// §5's thread roster.
type Pipeline struct {
	log *zap.Logger

	reg       *registry.Registry
	source    capture.Source
	workers   int
	validate  bool
	debugDump bool

	capQueue chan capture.Frame
	outQueue chan Event
	aggQueue chan *analysis.PacketAnalysis

	agg *aggregator.Aggregator
	bc  *broadcast.Server

	wg sync.WaitGroup

	// outSenders tracks every goroutine that may still send on outQueue
	// (the workers and the aggregator feed). outQueue is only closed once
	// all of them have returned, so runBroadcastFeed's receive never races
	// a send against the close.
	outSenders sync.WaitGroup
}

// Config collects what New needs beyond the already-open capture Source
// and sealed Registry.
type Config struct {
	Workers            int
	ValidateChecksums  bool
	Debug              bool
	StatsIntervalMS    int
}

// New builds an idle Pipeline; call Run to start it.
func New(cfg Config, src capture.Source, reg *registry.Registry, agg *aggregator.Aggregator, bc *broadcast.Server, log *zap.Logger) *Pipeline {
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}

	return &Pipeline{
		log:       log,
		reg:       reg,
		source:    src,
		workers:   workers,
		validate:  cfg.ValidateChecksums,
		debugDump: cfg.Debug,
		capQueue:  make(chan capture.Frame, capQueueDepth),
		outQueue:  make(chan Event, outQueueDepth),
		aggQueue:  make(chan *analysis.PacketAnalysis, aggQueueDepth),
		agg:       agg,
		bc:        bc,
	}
}

// Run starts every thread in the topology and blocks until ctx is
// canceled and every stage has drained. It never returns an error on a
// clean shutdown; capture/device errors are logged, not propagated,
// matching spec.md's "unrecoverable capture error" -> process exit 1
// being the caller's concern (see shutdown.go).
func (p *Pipeline) Run(ctx context.Context) {
	p.wg.Add(1)
	go p.runCapture(ctx)

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		p.outSenders.Add(1)
		go p.runWorker(ctx, i)
	}

	p.wg.Add(1)
	p.outSenders.Add(1)
	go p.runAggregatorFeed(ctx)

	p.wg.Add(1)
	go p.closeOutQueueAfterSenders()

	p.wg.Add(1)
	go p.runBroadcastFeed(ctx)

	<-ctx.Done()
	p.source.Close()
	p.wg.Wait()
}

func (p *Pipeline) runCapture(ctx context.Context) {
	defer p.wg.Done()
	defer close(p.capQueue)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		frame, err := p.source.Next()
		if err != nil {
			if capture.IsTimeout(err) {
				continue
			}

			p.log.Info("capture source ended", zap.Error(err))

			return
		}

		select {
		case p.capQueue <- frame:
		case <-ctx.Done():
			return
		}
	}
}

func (p *Pipeline) runWorker(ctx context.Context, id int) {
	defer p.wg.Done()
	defer p.outSenders.Done()

	dctx := &dissect.Context{ValidateChecksums: p.validate}
	workerLog := p.log.Named("worker").With(zap.Int("worker_id", id))

	for frame := range p.capQueue {
		pa := Dissect(p.reg, dctx, frame, p.debugDump, workerLog)
		recordDissected(len(frame.Data))

		select {
		case p.outQueue <- Event{Packet: pa}:
		case <-ctx.Done():
			return
		}

		// agg_queue is a blocking send by design: spec.md's data-model
		// invariant says counter updates in the Aggregator must never be
		// lost relative to frames that reached a worker. A large buffer
		// keeps this non-blocking in the common case; under sustained
		// overload this stage intentionally applies backpressure to the
		// worker rather than the Aggregator.
		select {
		case p.aggQueue <- pa:
		case <-ctx.Done():
			return
		}
	}
}

func (p *Pipeline) runAggregatorFeed(ctx context.Context) {
	defer p.wg.Done()
	defer p.outSenders.Done()

	p.agg.Run(ctx, p.aggQueue, func(snap *aggregator.StatsSnapshot) {
		select {
		case p.outQueue <- Event{Stats: snap}:
		case <-ctx.Done():
		}
	})
}

// closeOutQueueAfterSenders closes outQueue only once every goroutine that
// might still send on it (the workers and the aggregator feed) has
// returned, so runBroadcastFeed's receive can never race a send against
// the close.
func (p *Pipeline) closeOutQueueAfterSenders() {
	defer p.wg.Done()

	p.outSenders.Wait()
	close(p.outQueue)
}

func (p *Pipeline) runBroadcastFeed(ctx context.Context) {
	defer p.wg.Done()

	for {
		select {
		case ev, ok := <-p.outQueue:
			if !ok {
				p.bc.Shutdown()

				return
			}

			if ev.Packet != nil {
				p.bc.PublishPacket(ev.Packet)
			}

			if ev.Stats != nil {
				p.bc.PublishStats(ev.Stats)
			}
		case <-ctx.Done():
			p.bc.Shutdown()

			return
		}
	}
}
