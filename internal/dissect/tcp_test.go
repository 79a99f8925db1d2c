package dissect

import "testing"

func buildTCP(srcPort, dstPort uint16, options []byte) []byte {
	dataOffset := (20 + len(options)) / 4
	hdr := []byte{
		byte(srcPort >> 8), byte(srcPort),
		byte(dstPort >> 8), byte(dstPort),
		0x00, 0x00, 0x00, 0x01, // seq
		0x00, 0x00, 0x00, 0x00, // ack
		byte(dataOffset << 4), 0x02, // data offset | reserved, flags: SYN
		0xff, 0xff, // window
		0x00, 0x00, // checksum
		0x00, 0x00, // urgent ptr
	}

	return append(hdr, options...)
}

func TestParseTCP_PromotesToHTTPByDestinationPort(t *testing.T) {
	data := buildTCP(51000, 80, nil)

	result, err := parseTCP(data, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Selector != Selector(80) {
		t.Errorf("Selector = %v, want 80", result.Selector)
	}

	if result.AltSelector != Selector(51000) {
		t.Errorf("AltSelector = %v, want 51000", result.AltSelector)
	}

	flags, ok := result.Record.Fields["flags"].([]string)
	if !ok || len(flags) != 1 || flags[0] != "SYN" {
		t.Errorf("flags = %#v, want [SYN]", result.Record.Fields["flags"])
	}
}

func TestParseTCP_DecodesMSSOption(t *testing.T) {
	options := []byte{optMSS, 4, 0x05, 0xb4} // MSS=1460, exactly 4 bytes
	data := buildTCP(1234, 443, options)

	result, err := parseTCP(data, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	opts, ok := result.Record.Fields["options"].([]Fields)
	if !ok || len(opts) != 1 {
		t.Fatalf("expected 1 decoded option, got %#v", result.Record.Fields["options"])
	}

	if opts[0]["kind"] != "mss" || opts[0]["value"] != uint16(1460) {
		t.Errorf("option = %#v, want mss/1460", opts[0])
	}
}

func TestParseTCP_RejectsDataOffsetBelowMinimum(t *testing.T) {
	data := buildTCP(1234, 443, nil)
	data[12] = 0x30 // data offset = 3 * 4 = 12, below the 20-byte minimum

	_, err := parseTCP(data, nil)

	pe, ok := err.(*ParseError)
	if !ok || pe.Kind != MalformedField {
		t.Fatalf("expected MalformedField ParseError, got %#v", err)
	}
}
