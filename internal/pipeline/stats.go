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

package pipeline

import "sync"

// stats is the pipeline's own runtime counters, kept separate from the
// domain-level Aggregator counters the same way the teacher keeps a
// package-level stats struct alongside its per-connection bookkeeping.
var stats struct {
	mu              sync.Mutex
	framesDissected uint64
	bytesDissected  uint64
}

func recordDissected(n int) {
	stats.mu.Lock()
	stats.framesDissected++
	stats.bytesDissected += uint64(n)
	stats.mu.Unlock()
}

// NumFramesDissected returns the running count of frames that completed
// dissection, for diagnostics and tests.
func NumFramesDissected() uint64 {
	stats.mu.Lock()
	defer stats.mu.Unlock()

	return stats.framesDissected
}

// NumBytesDissected returns the running count of captured bytes handed to
// the dissector chain.
func NumBytesDissected() uint64 {
	stats.mu.Lock()
	defer stats.mu.Unlock()

	return stats.bytesDissected
}

// ResetStats zeroes the counters; used by tests that run multiple
// pipelines in the same process.
func ResetStats() {
	stats.mu.Lock()
	stats.framesDissected = 0
	stats.bytesDissected = 0
	stats.mu.Unlock()
}
