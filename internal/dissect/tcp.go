package dissect

import "encoding/binary"

const tcpMinHeaderLen = 20

// tcpOption kinds relevant to the spec's option decode list.
const (
	optEnd         = 0
	optNop         = 1
	optMSS         = 2
	optWindowScale = 3
	optSACKPerm    = 4
	optSACK        = 5
	optTimestamps  = 8
)

// TCP dissects a TCP header, including options (MSS, SACK, window scale,
// timestamps). NextParent/Selector is the destination port for
// application-layer promotion; AltSelector is the source port, consulted
// when the destination port has no registered dissector (spec.md §9).
var TCP = Dissector{
	Name:  "TCP",
	Proto: TagTCP,
	Parse: parseTCP,
}

func parseTCP(data []byte, _ *Context) (Result, error) {
	if len(data) < tcpMinHeaderLen {
		return Result{}, errTruncated(TagTCP, "shorter than 20-byte minimum header")
	}

	srcPort := binary.BigEndian.Uint16(data[0:2])
	dstPort := binary.BigEndian.Uint16(data[2:4])
	seq := binary.BigEndian.Uint32(data[4:8])
	ack := binary.BigEndian.Uint32(data[8:12])
	dataOffset := int(data[12]>>4) * 4
	flags := data[13]
	window := binary.BigEndian.Uint16(data[14:16])
	checksum := binary.BigEndian.Uint16(data[16:18])
	urgentPtr := binary.BigEndian.Uint16(data[18:20])

	if dataOffset < tcpMinHeaderLen {
		return Result{}, errMalformed(TagTCP, "data offset smaller than minimum header length")
	}

	if len(data) < dataOffset {
		return Result{
			Record: LayerRecord{
				Proto:       TagTCP,
				StartOffset: 0,
				EndOffset:   len(data),
				Partial:     true,
				Fields: Fields{
					"src_port": srcPort,
					"dst_port": dstPort,
				},
			},
		}, errTruncated(TagTCP, "data offset exceeds available bytes")
	}

	options, err := parseTCPOptions(data[tcpMinHeaderLen:dataOffset])

	fields := Fields{
		"src_port":    srcPort,
		"dst_port":    dstPort,
		"seq":         seq,
		"ack":         ack,
		"data_offset": dataOffset,
		"flags":       tcpFlagNames(flags),
		"window":      window,
		"checksum":    checksum,
		"urgent_ptr":  urgentPtr,
	}

	if len(options) > 0 {
		fields["options"] = options
	}

	if err != nil {
		return Result{
			Record: LayerRecord{
				Proto:       TagTCP,
				StartOffset: 0,
				EndOffset:   dataOffset,
				Partial:     true,
				Fields:      fields,
			},
		}, err
	}

	return Result{
		Record: LayerRecord{
			Proto:       TagTCP,
			StartOffset: 0,
			EndOffset:   dataOffset,
			Fields:      fields,
		},
		NextParent:  TagTCP,
		Selector:    Selector(dstPort),
		AltSelector: Selector(srcPort),
		Residual:    data[dataOffset:],
	}, nil
}

func tcpFlagNames(flags uint8) []string {
	names := []string{"FIN", "SYN", "RST", "PSH", "ACK", "URG", "ECE", "CWR"}

	var set []string

	for i, name := range names {
		if flags&(1<<uint(i)) != 0 {
			set = append(set, name)
		}
	}

	return set
}

func parseTCPOptions(data []byte) ([]Fields, error) {
	var options []Fields

	i := 0
	for i < len(data) {
		kind := data[i]

		if kind == optEnd {
			break
		}

		if kind == optNop {
			i++

			continue
		}

		if i+1 >= len(data) {
			return options, errTruncated(TagTCP, "option header truncated")
		}

		length := int(data[i+1])
		if length < 2 || i+length > len(data) {
			return options, errMalformed(TagTCP, "option length out of range")
		}

		value := data[i+2 : i+length]

		switch kind {
		case optMSS:
			if len(value) == 2 {
				options = append(options, Fields{"kind": "mss", "value": binary.BigEndian.Uint16(value)})
			}
		case optWindowScale:
			if len(value) == 1 {
				options = append(options, Fields{"kind": "window_scale", "value": value[0]})
			}
		case optSACKPerm:
			options = append(options, Fields{"kind": "sack_permitted"})
		case optSACK:
			options = append(options, Fields{"kind": "sack", "blocks": len(value) / 8})
		case optTimestamps:
			if len(value) == 8 {
				options = append(options, Fields{
					"kind":  "timestamps",
					"tsval": binary.BigEndian.Uint32(value[0:4]),
					"tsecr": binary.BigEndian.Uint32(value[4:8]),
				})
			}
		default:
			options = append(options, Fields{"kind": "unknown", "raw_kind": kind})
		}

		i += length
	}

	return options, nil
}
