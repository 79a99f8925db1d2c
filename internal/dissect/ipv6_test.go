package dissect

import "testing"

func ipv6FixedHeader(nextHeader uint8, payloadLength uint16) []byte {
	hdr := make([]byte, ipv6HeaderLen)
	hdr[0] = 0x60 // version 6, traffic class high nibble 0
	hdr[4] = byte(payloadLength >> 8)
	hdr[5] = byte(payloadLength)
	hdr[6] = nextHeader
	hdr[7] = 64 // hop limit
	copy(hdr[8:24], []byte{0xfe, 0x80, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 1})
	copy(hdr[24:40], []byte{0xfe, 0x80, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 2})
	return hdr
}

func TestParseIPv6_PromotesDirectlyToTCP(t *testing.T) {
	data := append(ipv6FixedHeader(6, 4), []byte{0xde, 0xad, 0xbe, 0xef}...)

	result, err := parseIPv6(data, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.NextParent != TagIPv6 || result.Selector != Selector(6) {
		t.Errorf("expected promotion to selector 6 (TCP), got parent=%v selector=%v", result.NextParent, result.Selector)
	}

	if result.Record.EndOffset != ipv6HeaderLen {
		t.Errorf("EndOffset = %d, want %d", result.Record.EndOffset, ipv6HeaderLen)
	}
}

func TestParseIPv6_WalksHopByHopExtensionHeader(t *testing.T) {
	extHeader := []byte{6, 0, 0, 0, 0, 0, 0, 0} // next_header=TCP, hdrExtLen=0 -> 8 bytes
	upperLayer := []byte{0xde, 0xad, 0xbe, 0xef}

	data := ipv6FixedHeader(nextHeaderHopByHop, uint16(len(extHeader)+len(upperLayer)))
	data = append(data, extHeader...)
	data = append(data, upperLayer...)

	result, err := parseIPv6(data, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	wantEnd := ipv6HeaderLen + len(extHeader)
	if result.Record.EndOffset != wantEnd {
		t.Errorf("EndOffset = %d, want %d", result.Record.EndOffset, wantEnd)
	}

	if result.Selector != Selector(6) {
		t.Errorf("Selector = %v, want 6 (TCP) after unwinding the hop-by-hop header", result.Selector)
	}

	if len(result.Residual) != len(upperLayer) {
		t.Errorf("Residual length = %d, want %d", len(result.Residual), len(upperLayer))
	}
}

// TestParseIPv6_ExtensionHeaderLoopIsBounded covers a chain of hop-by-hop
// headers that each point back to another hop-by-hop header, verifying the
// walk gives up after maxExtHeaderHops instead of looping forever.
func TestParseIPv6_ExtensionHeaderLoopIsBounded(t *testing.T) {
	extHeader := []byte{nextHeaderHopByHop, 0, 0, 0, 0, 0, 0, 0}

	data := ipv6FixedHeader(nextHeaderHopByHop, 0)
	for i := 0; i < maxExtHeaderHops; i++ {
		data = append(data, extHeader...)
	}

	_, err := parseIPv6(data, nil)

	pe, ok := err.(*ParseError)
	if !ok || pe.Kind != LoopDetected {
		t.Fatalf("expected LoopDetected ParseError, got %#v", err)
	}
}
