package dissect

import "testing"

func buildDNSQuery(name []byte) []byte {
	hdr := []byte{
		0x00, 0x01, // id
		0x01, 0x00, // flags: rd=1
		0x00, 0x01, // qdcount
		0x00, 0x00, // ancount
		0x00, 0x00, // nscount
		0x00, 0x00, // arcount
	}

	tail := []byte{0x00, 0x01, 0x00, 0x01} // qtype A, qclass IN

	return append(append(hdr, name...), tail...)
}

func encodeName(labels ...string) []byte {
	var out []byte
	for _, l := range labels {
		out = append(out, byte(len(l)))
		out = append(out, l...)
	}

	return append(out, 0x00)
}

func TestParseDNS_SimpleQuery(t *testing.T) {
	data := buildDNSQuery(encodeName("example", "com"))

	result, err := parseDNS(data, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	questions, ok := result.Record.Fields["questions"].([]Fields)
	if !ok || len(questions) != 1 {
		t.Fatalf("expected 1 question, got %#v", result.Record.Fields["questions"])
	}

	if questions[0]["qname"] != "example.com" {
		t.Errorf("qname = %v, want example.com", questions[0]["qname"])
	}
}

// TestParseDNS_PointerLoopDetected covers invariant 4: a pointer chain that
// never terminates must be rejected once it exceeds the hop bound, rather
// than looping forever.
func TestParseDNS_PointerLoopDetected(t *testing.T) {
	hdr := []byte{
		0x00, 0x01,
		0x01, 0x00,
		0x00, 0x01,
		0x00, 0x00,
		0x00, 0x00,
		0x00, 0x00,
	}

	// Two pointers that point at each other, forming a 2-hop cycle that
	// never reaches a zero-length terminator.
	pointerA := []byte{0xc0, 0x0e} // points at offset 14 (pointerB)
	pointerB := []byte{0xc0, 0x0c} // points at offset 12 (pointerA)

	data := append(append(hdr, pointerA...), pointerB...)

	_, err := parseDNS(data, nil)
	if err == nil {
		t.Fatal("expected loop-detection error")
	}

	pe, ok := err.(*ParseError)
	if !ok || pe.Kind != LoopDetected {
		t.Fatalf("expected LoopDetected ParseError, got %#v", err)
	}
}
