package dissect

import (
	"encoding/binary"
	"net"
)

const arpHeaderLen = 8 // fixed portion before the variable-length addresses

var arpOperations = map[uint16]string{
	1: "request",
	2: "reply",
	3: "rarp_request",
	4: "rarp_reply",
}

func arpOpString(op uint16) string {
	if s, ok := arpOperations[op]; ok {
		return s
	}

	return "unknown"
}

// ARP dissects an ARP packet. Terminal layer — ARP never promotes further.
var ARP = Dissector{
	Name:  "ARP",
	Proto: TagARP,
	Parse: parseARP,
}

func parseARP(data []byte, _ *Context) (Result, error) {
	if len(data) < arpHeaderLen {
		return Result{}, errTruncated(TagARP, "shorter than fixed 8-byte header")
	}

	hwType := binary.BigEndian.Uint16(data[0:2])
	protoType := binary.BigEndian.Uint16(data[2:4])
	hwLen := data[4]
	protoLen := data[5]
	operation := binary.BigEndian.Uint16(data[6:8])

	end := int(arpHeaderLen) + 2*int(hwLen) + 2*int(protoLen)
	if len(data) < end {
		return Result{
			Record: LayerRecord{
				Proto:       TagARP,
				StartOffset: 0,
				EndOffset:   len(data),
				Partial:     true,
				Fields: Fields{
					"hardware_type": hwType,
					"protocol_type": protoType,
					"operation":     arpOpString(operation),
				},
			},
		}, errTruncated(TagARP, "address fields exceed buffer")
	}

	o := arpHeaderLen
	senderHW := macString(data[o : o+int(hwLen)])
	o += int(hwLen)
	senderProto := formatProtoAddr(data[o:o+int(protoLen)], protoType)
	o += int(protoLen)
	targetHW := macString(data[o : o+int(hwLen)])
	o += int(hwLen)
	targetProto := formatProtoAddr(data[o:o+int(protoLen)], protoType)
	o += int(protoLen)

	return Result{
		Record: LayerRecord{
			Proto:       TagARP,
			StartOffset: 0,
			EndOffset:   o,
			Fields: Fields{
				"hardware_type":     hwType,
				"protocol_type":     protoType,
				"hardware_len":      hwLen,
				"protocol_len":      protoLen,
				"operation":         arpOpString(operation),
				"sender_hw_addr":    senderHW,
				"sender_proto_addr": senderProto,
				"target_hw_addr":    targetHW,
				"target_proto_addr": targetProto,
			},
		},
		Residual: data[o:],
	}, nil
}

func formatProtoAddr(b []byte, protoType uint16) string {
	if protoType == 0x0800 && len(b) == 4 {
		return net.IP(b).String()
	}

	if len(b) == 16 {
		return net.IP(b).String()
	}

	return macString(b)
}
