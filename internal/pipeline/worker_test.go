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
	"testing"
	"time"

	"github.com/xairaven/xailyser/internal/capture"
	"github.com/xairaven/xailyser/internal/dissect"
	"github.com/xairaven/xailyser/internal/registry"
)

func ethernetHeader(etherType uint16) []byte {
	return []byte{
		0xff, 0xff, 0xff, 0xff, 0xff, 0xff,
		0x00, 0x11, 0x22, 0x33, 0x44, 0x55,
		byte(etherType >> 8), byte(etherType),
	}
}

// TestDissect_ARPRequest covers spec scenario S1: an Ethernet+ARP request
// produces exactly two contiguous layers and no residual.
func TestDissect_ARPRequest(t *testing.T) {
	arp := []byte{
		0x00, 0x01, // hardware type: ethernet
		0x08, 0x00, // protocol type: IPv4
		0x06,       // hw len
		0x04,       // proto len
		0x00, 0x01, // operation: request
		0x00, 0x11, 0x22, 0x33, 0x44, 0x55, // sender hw
		10, 0, 0, 1, // sender proto
		0x00, 0x00, 0x00, 0x00, 0x00, 0x00, // target hw
		10, 0, 0, 2, // target proto
	}

	frame := capture.Frame{
		ID:        1,
		Timestamp: time.Unix(0, 1000),
		Data:      append(ethernetHeader(0x0806), arp...),
	}

	reg, err := registry.Bootstrap()
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}

	pa := Dissect(reg, &dissect.Context{}, frame, false, nil)

	if len(pa.Layers) != 2 {
		t.Fatalf("expected 2 layers, got %d: %#v", len(pa.Layers), pa.Layers)
	}

	if pa.Layers[0].Proto != dissect.TagEthernet || pa.Layers[1].Proto != dissect.TagARP {
		t.Fatalf("unexpected layer order: %v, %v", pa.Layers[0].Proto, pa.Layers[1].Proto)
	}

	if pa.Layers[0].EndOffset != pa.Layers[1].StartOffset {
		t.Errorf("layers not contiguous: ethernet ends at %d, arp starts at %d",
			pa.Layers[0].EndOffset, pa.Layers[1].StartOffset)
	}

	if pa.ResidualBytes != 0 {
		t.Errorf("ResidualBytes = %d, want 0", pa.ResidualBytes)
	}

	if got := pa.TotalBytes(); got != len(frame.Data) {
		t.Errorf("TotalBytes() = %d, want %d", got, len(frame.Data))
	}
}

// TestDissect_IPv4UDPDNS covers spec scenario S2: Ethernet -> IPv4 -> UDP
// -> DNS, four contiguous layers with absolute offsets rebased correctly
// at every hop.
func TestDissect_IPv4UDPDNS(t *testing.T) {
	dnsQuery := buildTestDNSQuery()
	udp := buildTestUDP(53000, 53, dnsQuery)
	ipv4 := buildTestIPv4(17, udp)
	frame := capture.Frame{
		ID:        2,
		Timestamp: time.Unix(0, 2000),
		Data:      append(ethernetHeader(0x0800), ipv4...),
	}

	reg, err := registry.Bootstrap()
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}

	pa := Dissect(reg, &dissect.Context{}, frame, false, nil)

	wantProtos := []dissect.Tag{dissect.TagEthernet, dissect.TagIPv4, dissect.TagUDP, dissect.TagDNS}
	if len(pa.Layers) != len(wantProtos) {
		t.Fatalf("expected %d layers, got %d: %#v", len(wantProtos), len(pa.Layers), pa.Layers)
	}

	for i, want := range wantProtos {
		if pa.Layers[i].Proto != want {
			t.Errorf("layer %d = %v, want %v", i, pa.Layers[i].Proto, want)
		}
	}

	for i := 1; i < len(pa.Layers); i++ {
		if pa.Layers[i-1].EndOffset != pa.Layers[i].StartOffset {
			t.Errorf("layer %d/%d not contiguous: %d != %d",
				i-1, i, pa.Layers[i-1].EndOffset, pa.Layers[i].StartOffset)
		}
	}

	if got := pa.TotalBytes(); got != len(frame.Data) {
		t.Errorf("TotalBytes() = %d, want %d", got, len(frame.Data))
	}
}

func buildTestIPv4(protocol byte, payload []byte) []byte {
	totalLength := 20 + len(payload)
	hdr := make([]byte, 20)
	hdr[0] = 0x45
	hdr[2] = byte(totalLength >> 8)
	hdr[3] = byte(totalLength)
	hdr[8] = 64
	hdr[9] = protocol
	copy(hdr[12:16], []byte{10, 0, 0, 1})
	copy(hdr[16:20], []byte{10, 0, 0, 2})

	return append(hdr, payload...)
}

func buildTestUDP(srcPort, dstPort uint16, payload []byte) []byte {
	length := 8 + len(payload)
	hdr := []byte{
		byte(srcPort >> 8), byte(srcPort),
		byte(dstPort >> 8), byte(dstPort),
		byte(length >> 8), byte(length),
		0x00, 0x00,
	}

	return append(hdr, payload...)
}

func buildTestDNSQuery() []byte {
	hdr := []byte{
		0x00, 0x01,
		0x01, 0x00,
		0x00, 0x01,
		0x00, 0x00,
		0x00, 0x00,
		0x00, 0x00,
	}

	name := append(append([]byte{7}, "example"...), append([]byte{3}, "com"...)...)
	name = append(name, 0x00)
	tail := []byte{0x00, 0x01, 0x00, 0x01}

	return append(append(hdr, name...), tail...)
}
