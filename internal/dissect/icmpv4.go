package dissect

import "encoding/binary"

const icmpv4HeaderLen = 8

var icmpv4Types = map[uint8]string{
	0:  "echo_reply",
	3:  "destination_unreachable",
	5:  "redirect",
	8:  "echo_request",
	11: "time_exceeded",
	12: "parameter_problem",
	13: "timestamp_request",
	14: "timestamp_reply",
}

// ICMPv4 dissects an ICMPv4 header. Terminal layer: echo request/reply,
// destination-unreachable and time-exceeded bodies are decoded; every
// other type is retained as an opaque payload.
var ICMPv4 = Dissector{
	Name:  "ICMPv4",
	Proto: TagICMPv4,
	Parse: parseICMPv4,
}

func parseICMPv4(data []byte, _ *Context) (Result, error) {
	if len(data) < icmpv4HeaderLen {
		return Result{}, errTruncated(TagICMPv4, "shorter than 8-byte header")
	}

	icmpType := data[0]
	code := data[1]
	checksum := binary.BigEndian.Uint16(data[2:4])

	fields := Fields{
		"type":      icmpType,
		"type_name": icmpTypeName(icmpType),
		"code":      code,
		"checksum":  checksum,
	}

	switch icmpType {
	case 0, 8: // echo reply / echo request
		fields["identifier"] = binary.BigEndian.Uint16(data[4:6])
		fields["sequence"] = binary.BigEndian.Uint16(data[6:8])
	case 3, 11: // destination unreachable / time exceeded
		fields["unused"] = binary.BigEndian.Uint32(data[4:8])
		fields["payload_len"] = len(data) - icmpv4HeaderLen
	default:
		fields["payload_len"] = len(data) - icmpv4HeaderLen
	}

	return Result{
		Record: LayerRecord{
			Proto:       TagICMPv4,
			StartOffset: 0,
			EndOffset:   len(data),
			Fields:      fields,
		},
	}, nil
}

func icmpTypeName(t uint8) string {
	if name, ok := icmpv4Types[t]; ok {
		return name
	}

	return "other"
}
