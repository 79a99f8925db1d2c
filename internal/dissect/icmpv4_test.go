package dissect

import "testing"

func TestParseICMPv4_EchoRequest(t *testing.T) {
	data := []byte{
		8, 0, // type: echo request, code 0
		0x00, 0x00, // checksum
		0x12, 0x34, // identifier
		0x00, 0x01, // sequence
	}

	result, err := parseICMPv4(data, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Record.Fields["type_name"] != "echo_request" {
		t.Errorf("type_name = %v, want echo_request", result.Record.Fields["type_name"])
	}

	if result.Record.Fields["identifier"] != uint16(0x1234) {
		t.Errorf("identifier = %v, want 0x1234", result.Record.Fields["identifier"])
	}

	if result.NextParent != "" {
		t.Errorf("expected ICMPv4 to be a terminal layer, got NextParent = %q", result.NextParent)
	}
}

func TestParseICMPv4_DestinationUnreachableCarriesPayloadLen(t *testing.T) {
	data := []byte{
		3, 1, // type: destination unreachable, code: host unreachable
		0x00, 0x00, // checksum
		0x00, 0x00, 0x00, 0x00, // unused
		0xde, 0xad, 0xbe, 0xef, // offending payload fragment
	}

	result, err := parseICMPv4(data, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Record.Fields["payload_len"] != 4 {
		t.Errorf("payload_len = %v, want 4", result.Record.Fields["payload_len"])
	}
}

func TestParseICMPv4_RejectsTruncatedHeader(t *testing.T) {
	_, err := parseICMPv4([]byte{8, 0, 0x00}, nil)

	pe, ok := err.(*ParseError)
	if !ok || pe.Kind != Truncated {
		t.Fatalf("expected Truncated ParseError, got %#v", err)
	}
}
