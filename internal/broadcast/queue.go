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

import "sync"

// outFrame is one queued outbound write: Payload is the already-encoded
// (and, for Packet/Stats, possibly zlib-compressed) frame body. Control
// marks frames that the queue must never drop under backpressure.
type outFrame struct {
	Payload []byte
	Control bool
}

// outboundQueue is the bounded, mutex-guarded queue backing one
// subscriber's write side. Plain Go channels can't express spec.md's
// drop policy ("on overflow, the oldest data frame is dropped first;
// Heartbeat and Close are never dropped"), so this is a small ring
// modeled as a slice, the same way the teacher guards its connection
// maps with a single mutex rather than reaching for a third-party
// concurrent-map package.
type outboundQueue struct {
	mu       sync.Mutex
	cond     *sync.Cond
	items    []outFrame
	capacity int
	closed   bool
	dropped  uint64
}

func newOutboundQueue(capacity int) *outboundQueue {
	q := &outboundQueue{capacity: capacity}
	q.cond = sync.NewCond(&q.mu)

	return q
}

// push enqueues f. If the queue is at capacity and f is a data frame, the
// oldest data frame already queued is dropped to make room; if every
// queued frame is a control frame (heartbeats are rare enough that this
// is the pathological case, not the common one), the queue grows past
// capacity rather than drop a control frame.
func (q *outboundQueue) push(f outFrame) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	if len(q.items) >= q.capacity && !f.Control {
		if idx := firstDataFrame(q.items); idx >= 0 {
			q.items = append(q.items[:idx], q.items[idx+1:]...)
			q.dropped++
		}
	}

	q.items = append(q.items, f)
	q.cond.Signal()
}

func firstDataFrame(items []outFrame) int {
	for i, it := range items {
		if !it.Control {
			return i
		}
	}

	return -1
}

// pop blocks until a frame is available or the queue is closed.
func (q *outboundQueue) pop() (outFrame, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	for len(q.items) == 0 && !q.closed {
		q.cond.Wait()
	}

	if len(q.items) == 0 && q.closed {
		return outFrame{}, false
	}

	f := q.items[0]
	q.items = q.items[1:]

	return f, true
}

func (q *outboundQueue) close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.cond.Broadcast()
}

// takeDropped returns the drop count accumulated since the last call and
// resets it, for injection into the per-subscriber Stats frame.
func (q *outboundQueue) takeDropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()

	n := q.dropped
	q.dropped = 0

	return n
}
