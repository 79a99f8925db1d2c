package dissect

import "testing"

func TestParseICMPv6_EchoReply(t *testing.T) {
	data := []byte{
		129, 0, // type: echo reply, code 0
		0x00, 0x00, // checksum
		0x00, 0x2a, // identifier
		0x00, 0x07, // sequence
	}

	result, err := parseICMPv6(data, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Record.Fields["type_name"] != "echo_reply" {
		t.Errorf("type_name = %v, want echo_reply", result.Record.Fields["type_name"])
	}

	if result.Record.Fields["sequence"] != uint16(7) {
		t.Errorf("sequence = %v, want 7", result.Record.Fields["sequence"])
	}
}

func TestParseICMPv6_NeighborSolicitationIsOpaque(t *testing.T) {
	data := []byte{
		135, 0, // type: neighbor solicitation
		0x00, 0x00, // checksum
		0x00, 0x00, 0x00, 0x00, // reserved
		0x01, 0x02, 0x03, 0x04, // target address fragment
	}

	result, err := parseICMPv6(data, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Record.Fields["type_name"] != "neighbor_solicitation" {
		t.Errorf("type_name = %v, want neighbor_solicitation", result.Record.Fields["type_name"])
	}

	if result.Record.Fields["payload_len"] != 4 {
		t.Errorf("payload_len = %v, want 4", result.Record.Fields["payload_len"])
	}
}

func TestParseICMPv6_UnknownTypeFallsBackToOther(t *testing.T) {
	data := []byte{200, 0, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}

	result, err := parseICMPv6(data, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Record.Fields["type_name"] != "other" {
		t.Errorf("type_name = %v, want other", result.Record.Fields["type_name"])
	}
}
