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

// Package analysis holds the fully-dissected-frame data model shared by the
// dissection worker, the aggregator tap and the broadcast server.
package analysis

import (
	"github.com/segmentio/encoding/json"

	"github.com/xairaven/xailyser/internal/dissect"
)

// PacketAnalysis is a fully dissected frame: produced once per frame by a
// dissection worker, published onto out_queue and agg_queue, then
// discarded. It owns its LayerRecords; nothing else.
type PacketAnalysis struct {
	FrameID        uint64
	TimestampNanos int64
	Layers         []dissect.LayerRecord
	ResidualBytes  int
}

// wireShape mirrors the wire protocol's JSON object (spec.md §6):
//
//	{ "kind": "Packet", "frame_id": u64, "ts_ns": u64,
//	  "layers": [...], "residual_bytes": u32 }
type wireShape struct {
	Kind          string                `json:"kind"`
	FrameID       uint64                `json:"frame_id"`
	TimestampNanos int64                `json:"ts_ns"`
	Layers        []dissect.LayerRecord `json:"layers"`
	ResidualBytes int                   `json:"residual_bytes"`
}

// MarshalJSON renders the wire-protocol "Packet" frame payload.
func (a *PacketAnalysis) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireShape{
		Kind:           "Packet",
		FrameID:        a.FrameID,
		TimestampNanos: a.TimestampNanos,
		Layers:         a.Layers,
		ResidualBytes:  a.ResidualBytes,
	})
}

// OuterProto returns the outermost layer's protocol tag, or TagUnknown if
// the frame has no layers (should not happen: the link layer always
// produces at least one record).
func (a *PacketAnalysis) OuterProto() dissect.Tag {
	if len(a.Layers) == 0 {
		return dissect.TagUnknown
	}

	return a.Layers[0].Proto
}

// FindLayer returns the first LayerRecord matching proto, if any.
func (a *PacketAnalysis) FindLayer(proto dissect.Tag) (dissect.LayerRecord, bool) {
	for _, l := range a.Layers {
		if l.Proto == proto {
			return l, true
		}
	}

	return dissect.LayerRecord{}, false
}

// TotalBytes returns the length of the original frame, reconstructed from
// the final layer's end offset plus the residual length — used by
// round-trip tests (spec.md invariant 3) rather than stored directly.
func (a *PacketAnalysis) TotalBytes() int {
	if len(a.Layers) == 0 {
		return a.ResidualBytes
	}

	return a.Layers[len(a.Layers)-1].EndOffset + a.ResidualBytes
}
