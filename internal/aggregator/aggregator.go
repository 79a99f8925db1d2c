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

// Package aggregator implements the Aggregator thread (spec.md §4.4): it
// consumes every dissected PacketAnalysis off agg_queue, keeps running
// per-dimension counters, and emits a differential StatsSnapshot on a
// fixed timer.
package aggregator

import (
	"context"
	"sync"
	"time"

	"github.com/xairaven/xailyser/internal/analysis"
	"github.com/xairaven/xailyser/internal/dissect"
)

// counterSet is one (packets, bytes) pair, tracked both as a running
// cumulative total and as the delta accumulated since the last snapshot.
type counterSet struct {
	totalPackets uint64
	totalBytes   uint64
	deltaPackets uint64
	deltaBytes   uint64
}

func (c *counterSet) add(n int) {
	c.totalPackets++
	c.deltaPackets++
	c.totalBytes += uint64(n)
	c.deltaBytes += uint64(n)
}

func (c *counterSet) snapshotAndReset() (packets, bytes, totalPackets, totalBytes uint64) {
	packets, bytes = c.deltaPackets, c.deltaBytes
	totalPackets, totalBytes = c.totalPackets, c.totalBytes
	c.deltaPackets, c.deltaBytes = 0, 0

	return
}

// Aggregator holds every dimension's running counters behind a single
// mutex; spec.md does not call out the Aggregator as a hot path (it is
// fed at most once per dissected frame, off the fast path already taken
// by the worker's blocking send), so a coarse lock is adequate and keeps
// the snapshot logic simple.
type Aggregator struct {
	mu sync.Mutex

	byMAC        map[string]*counterSet
	byEtherType  map[uint16]*counterSet
	byIPProtocol map[uint8]*counterSet
	byTCPPort    map[uint16]*counterSet
	byUDPPort    map[uint16]*counterSet
	global       counterSet

	metrics *Metrics

	statsInterval time.Duration
}

// New builds an empty Aggregator. metrics may be nil to disable prometheus
// mirroring.
func New(statsInterval time.Duration, metrics *Metrics) *Aggregator {
	return &Aggregator{
		byMAC:         make(map[string]*counterSet),
		byEtherType:   make(map[uint16]*counterSet),
		byIPProtocol:  make(map[uint8]*counterSet),
		byTCPPort:     make(map[uint16]*counterSet),
		byUDPPort:     make(map[uint16]*counterSet),
		metrics:       metrics,
		statsInterval: statsInterval,
	}
}

// Run consumes agg_queue until it is closed or ctx is canceled, folding
// every PacketAnalysis into the running counters and invoking emit with a
// differential StatsSnapshot every statsInterval.
func (a *Aggregator) Run(ctx context.Context, aggQueue <-chan *analysis.PacketAnalysis, emit func(*StatsSnapshot)) {
	ticker := time.NewTicker(a.statsInterval)
	defer ticker.Stop()

	for {
		select {
		case pa, ok := <-aggQueue:
			if !ok {
				return
			}

			a.observe(pa)
		case <-ticker.C:
			emit(a.Snapshot())
		case <-ctx.Done():
			return
		}
	}
}

func (a *Aggregator) observe(pa *analysis.PacketAnalysis) {
	n := pa.TotalBytes()

	a.mu.Lock()
	defer a.mu.Unlock()

	a.global.add(n)
	if a.metrics != nil {
		a.metrics.ObserveGlobal(n)
	}

	if eth, ok := pa.FindLayer(dissect.TagEthernet); ok {
		if mac, ok := eth.Fields["src_mac"].(string); ok {
			counterFor(a.byMAC, mac).add(n)
			if a.metrics != nil {
				a.metrics.ObserveMAC(mac, n)
			}
		}

		if et, ok := eth.Fields["ether_type"].(uint16); ok {
			counterForU16(a.byEtherType, et).add(n)
			if a.metrics != nil {
				a.metrics.ObserveEtherType(et, n)
			}
		}
	}

	var proto uint8
	var haveProto bool

	if ip4, ok := pa.FindLayer(dissect.TagIPv4); ok {
		if p, ok := ip4.Fields["protocol"].(uint8); ok {
			proto, haveProto = p, true
		}
	} else if ip6, ok := pa.FindLayer(dissect.TagIPv6); ok {
		if p, ok := ip6.Fields["next_header"].(uint8); ok {
			proto, haveProto = p, true
		}
	}

	if haveProto {
		counterForU8(a.byIPProtocol, proto).add(n)
		if a.metrics != nil {
			a.metrics.ObserveIPProtocol(proto, n)
		}
	}

	if tcp, ok := pa.FindLayer(dissect.TagTCP); ok {
		if port, ok := tcp.Fields["dst_port"].(uint16); ok {
			counterForU16(a.byTCPPort, port).add(n)
			if a.metrics != nil {
				a.metrics.ObserveTCPPort(port, n)
			}
		}
	}

	if udp, ok := pa.FindLayer(dissect.TagUDP); ok {
		if port, ok := udp.Fields["dst_port"].(uint16); ok {
			counterForU16(a.byUDPPort, port).add(n)
			if a.metrics != nil {
				a.metrics.ObserveUDPPort(port, n)
			}
		}
	}
}

func counterFor(m map[string]*counterSet, key string) *counterSet {
	c, ok := m[key]
	if !ok {
		c = &counterSet{}
		m[key] = c
	}

	return c
}

func counterForU16(m map[uint16]*counterSet, key uint16) *counterSet {
	c, ok := m[key]
	if !ok {
		c = &counterSet{}
		m[key] = c
	}

	return c
}

func counterForU8(m map[uint8]*counterSet, key uint8) *counterSet {
	c, ok := m[key]
	if !ok {
		c = &counterSet{}
		m[key] = c
	}

	return c
}

// Snapshot drains every dimension's delta into a StatsSnapshot and resets
// the deltas, leaving the cumulative totals untouched.
func (a *Aggregator) Snapshot() *StatsSnapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	snap := &StatsSnapshot{
		ByMAC:        make(map[string]Counter, len(a.byMAC)),
		ByEtherType:  make(map[uint16]Counter, len(a.byEtherType)),
		ByIPProtocol: make(map[uint8]Counter, len(a.byIPProtocol)),
		ByTCPPort:    make(map[uint16]Counter, len(a.byTCPPort)),
		ByUDPPort:    make(map[uint16]Counter, len(a.byUDPPort)),
	}

	dp, db, tp, tb := a.global.snapshotAndReset()
	snap.Global = Counter{Packets: dp, Bytes: db, TotalPackets: tp, TotalBytes: tb}

	for k, c := range a.byMAC {
		dp, db, tp, tb := c.snapshotAndReset()
		snap.ByMAC[k] = Counter{Packets: dp, Bytes: db, TotalPackets: tp, TotalBytes: tb}
	}

	for k, c := range a.byEtherType {
		dp, db, tp, tb := c.snapshotAndReset()
		snap.ByEtherType[k] = Counter{Packets: dp, Bytes: db, TotalPackets: tp, TotalBytes: tb}
	}

	for k, c := range a.byIPProtocol {
		dp, db, tp, tb := c.snapshotAndReset()
		snap.ByIPProtocol[k] = Counter{Packets: dp, Bytes: db, TotalPackets: tp, TotalBytes: tb}
	}

	for k, c := range a.byTCPPort {
		dp, db, tp, tb := c.snapshotAndReset()
		snap.ByTCPPort[k] = Counter{Packets: dp, Bytes: db, TotalPackets: tp, TotalBytes: tb}
	}

	for k, c := range a.byUDPPort {
		dp, db, tp, tb := c.snapshotAndReset()
		snap.ByUDPPort[k] = Counter{Packets: dp, Bytes: db, TotalPackets: tp, TotalBytes: tb}
	}

	return snap
}
