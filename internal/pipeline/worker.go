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

import (
	"github.com/davecgh/go-spew/spew"
	"go.uber.org/zap"

	"github.com/xairaven/xailyser/internal/analysis"
	"github.com/xairaven/xailyser/internal/capture"
	"github.com/xairaven/xailyser/internal/dissect"
	"github.com/xairaven/xailyser/internal/registry"
)

// Dissect drives the Parser Registry + Dissectors over a single captured
// frame, producing a PacketAnalysis. This is the Dissection Worker's core
// loop body (spec.md §4.3): walk the chain starting from the capture
// source's link type, stopping at a terminal dissector, an unknown
// selector, or a recovered ParseError.
func Dissect(r *registry.Registry, ctx *dissect.Context, frame capture.Frame, debug bool, log *zap.Logger) *analysis.PacketAnalysis {
	pa := &analysis.PacketAnalysis{
		FrameID:        frame.ID,
		TimestampNanos: frame.Timestamp.UnixNano(),
	}

	parent := dissect.TagLink
	selector := registry.LinkTypeEthernet
	altSelector := dissect.Selector(0)
	data := frame.Data
	base := 0

	for {
		if len(data) == 0 {
			break
		}

		d, ok := r.LookupPreferred(parent, selector, altSelector)
		if !ok {
			pa.Layers = append(pa.Layers, dissect.LayerRecord{
				Proto:       dissect.TagUnknown,
				StartOffset: base,
				EndOffset:   base,
				Fields:      dissect.Fields{"selector": uint32(selector)},
			})
			pa.ResidualBytes = len(data)

			return pa
		}

		result, err := d.Parse(data, ctx)
		if err != nil {
			rec := result.Record
			rec.Partial = true
			rebase(&rec, base)
			pa.Layers = append(pa.Layers, rec)

			if debug && log != nil {
				log.Debug("partial layer",
					zap.String("proto", string(rec.Proto)),
					zap.String("dump", spew.Sdump(rec)),
				)
			}

			// Truncated/MalformedField/UnsupportedVersion/LoopDetected are
			// all recovered locally: emit what we have, abandon the chain.
			pa.ResidualBytes = len(data) - rec.EndOffset + base
			if pa.ResidualBytes < 0 {
				pa.ResidualBytes = 0
			}

			return pa
		}

		rec := result.Record
		rebase(&rec, base)
		pa.Layers = append(pa.Layers, rec)

		if result.NextParent == "" {
			pa.ResidualBytes = len(result.Residual)

			return pa
		}

		base += result.Record.EndOffset
		parent = result.NextParent
		selector = result.Selector
		altSelector = result.AltSelector
		data = result.Residual
	}

	pa.ResidualBytes = 0

	return pa
}

// rebase converts a dissector's locally-scoped offsets (relative to the
// byte slice it was handed) into absolute offsets into the original frame,
// preserving the invariant that adjacent LayerRecords are contiguous:
// outer.EndOffset == inner.StartOffset.
func rebase(rec *dissect.LayerRecord, base int) {
	rec.StartOffset += base
	rec.EndOffset += base
}
