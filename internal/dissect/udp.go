package dissect

import "encoding/binary"

const udpHeaderLen = 8

// UDP dissects a UDP header. Length must equal the remaining buffer plus
// the 8-byte header; a mismatch yields a partial layer. Promotes to
// DNS/DHCP by port, destination-port-wins with source-port fallback.
var UDP = Dissector{
	Name:  "UDP",
	Proto: TagUDP,
	Parse: parseUDP,
}

func parseUDP(data []byte, _ *Context) (Result, error) {
	if len(data) < udpHeaderLen {
		return Result{}, errTruncated(TagUDP, "shorter than 8-byte header")
	}

	srcPort := binary.BigEndian.Uint16(data[0:2])
	dstPort := binary.BigEndian.Uint16(data[2:4])
	length := binary.BigEndian.Uint16(data[4:6])
	checksum := binary.BigEndian.Uint16(data[6:8])

	fields := Fields{
		"src_port": srcPort,
		"dst_port": dstPort,
		"length":   length,
		"checksum": checksum,
	}

	if int(length) != len(data) {
		return Result{
			Record: LayerRecord{
				Proto:       TagUDP,
				StartOffset: 0,
				EndOffset:   len(data),
				Partial:     true,
				Fields:      fields,
			},
		}, errMalformed(TagUDP, "length does not match remaining buffer")
	}

	return Result{
		Record: LayerRecord{
			Proto:       TagUDP,
			StartOffset: 0,
			EndOffset:   udpHeaderLen,
			Fields:      fields,
		},
		NextParent:  TagUDP,
		Selector:    Selector(dstPort),
		AltSelector: Selector(srcPort),
		Residual:    data[udpHeaderLen:],
	}, nil
}
