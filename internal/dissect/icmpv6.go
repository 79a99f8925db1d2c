package dissect

import "encoding/binary"

const icmpv6HeaderLen = 8

var icmpv6Types = map[uint8]string{
	1:   "destination_unreachable",
	2:   "packet_too_big",
	3:   "time_exceeded",
	4:   "parameter_problem",
	128: "echo_request",
	129: "echo_reply",
	133: "router_solicitation",
	134: "router_advertisement",
	135: "neighbor_solicitation",
	136: "neighbor_advertisement",
}

// ICMPv6 dissects an ICMPv6 header. Terminal layer, same body-decoding
// policy as ICMPv4: echo, destination-unreachable and time-exceeded get
// structured fields, everything else is retained as opaque payload.
var ICMPv6 = Dissector{
	Name:  "ICMPv6",
	Proto: TagICMPv6,
	Parse: parseICMPv6,
}

func parseICMPv6(data []byte, _ *Context) (Result, error) {
	if len(data) < icmpv6HeaderLen {
		return Result{}, errTruncated(TagICMPv6, "shorter than 8-byte header")
	}

	icmpType := data[0]
	code := data[1]
	checksum := binary.BigEndian.Uint16(data[2:4])

	fields := Fields{
		"type":      icmpType,
		"type_name": icmpv6TypeName(icmpType),
		"code":      code,
		"checksum":  checksum,
	}

	switch icmpType {
	case 128, 129: // echo request/reply
		fields["identifier"] = binary.BigEndian.Uint16(data[4:6])
		fields["sequence"] = binary.BigEndian.Uint16(data[6:8])
	case 1, 3: // destination unreachable / time exceeded
		fields["unused"] = binary.BigEndian.Uint32(data[4:8])
		fields["payload_len"] = len(data) - icmpv6HeaderLen
	default:
		fields["payload_len"] = len(data) - icmpv6HeaderLen
	}

	return Result{
		Record: LayerRecord{
			Proto:       TagICMPv6,
			StartOffset: 0,
			EndOffset:   len(data),
			Fields:      fields,
		},
	}, nil
}

func icmpv6TypeName(t uint8) string {
	if name, ok := icmpv6Types[t]; ok {
		return name
	}

	return "other"
}
