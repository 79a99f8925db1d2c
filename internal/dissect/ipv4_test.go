package dissect

import "testing"

func buildIPv4(t *testing.T, totalLength uint16, protocol byte, payload []byte) []byte {
	t.Helper()

	hdr := make([]byte, 20)
	hdr[0] = 0x45 // version 4, IHL 5
	hdr[1] = 0x00
	hdr[2] = byte(totalLength >> 8)
	hdr[3] = byte(totalLength)
	hdr[8] = 64 // ttl
	hdr[9] = protocol
	copy(hdr[12:16], []byte{10, 0, 0, 1})
	copy(hdr[16:20], []byte{10, 0, 0, 2})

	return append(hdr, payload...)
}

func TestParseIPv4_PromotesToUDP(t *testing.T) {
	payload := []byte{0xde, 0xad, 0xbe, 0xef}
	data := buildIPv4(t, uint16(20+len(payload)), 17, payload)

	result, err := parseIPv4(data, &Context{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Selector != Selector(17) {
		t.Errorf("Selector = %v, want 17 (UDP)", result.Selector)
	}

	if result.Record.EndOffset != 20 {
		t.Errorf("EndOffset = %d, want 20", result.Record.EndOffset)
	}

	if len(result.Residual) != len(payload) {
		t.Errorf("Residual len = %d, want %d", len(result.Residual), len(payload))
	}
}

// TestParseIPv4_TruncatedTotalLength covers spec scenario S3: total_length
// claims more bytes than are actually present, so the layer must be
// emitted partial with no inner layer attempted.
func TestParseIPv4_TruncatedTotalLength(t *testing.T) {
	data := buildIPv4(t, 100, 17, []byte{0x01, 0x02})

	result, err := parseIPv4(data, &Context{})
	if err == nil {
		t.Fatal("expected truncation error")
	}

	pe, ok := err.(*ParseError)
	if !ok || pe.Kind != Truncated {
		t.Fatalf("expected Truncated ParseError, got %#v", err)
	}

	if !result.Record.Partial {
		t.Error("expected record to be marked Partial")
	}

	if result.NextParent != "" {
		t.Error("truncated IPv4 must not promote to an inner layer")
	}
}

func TestParseIPv4_RejectsWrongVersion(t *testing.T) {
	data := buildIPv4(t, 20, 6, nil)
	data[0] = 0x65 // version 6 packed into an IPv4 call

	_, err := parseIPv4(data, &Context{})

	pe, ok := err.(*ParseError)
	if !ok || pe.Kind != UnsupportedVersion {
		t.Fatalf("expected UnsupportedVersion ParseError, got %#v", err)
	}
}
