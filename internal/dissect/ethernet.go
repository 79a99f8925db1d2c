package dissect

import "encoding/binary"

const (
	ethernetHeaderLen = 14
	dot1QHeaderLen    = 4
	etherTypeDot1Q    = 0x8100
	etherTypeQinQ     = 0x88a8
	maxDot1QTags      = 2
)

func macString(b []byte) string {
	const hextable = "0123456789abcdef"

	out := make([]byte, 0, 17)

	for i, c := range b {
		if i > 0 {
			out = append(out, ':')
		}

		out = append(out, hextable[c>>4], hextable[c&0x0f])
	}

	return string(out)
}

// Ethernet dissects an Ethernet II header, including a bounded chain of
// 802.1Q/QinQ tags (spec.md §4.3.1): each tag consumes 4 extra bytes and
// re-reads the EtherType, retaining PCP/VID in the layer's fields.
var Ethernet = Dissector{
	Name:  "Ethernet",
	Proto: TagEthernet,
	Parse: parseEthernet,
}

func parseEthernet(data []byte, _ *Context) (Result, error) {
	if len(data) < ethernetHeaderLen {
		return Result{}, errTruncated(TagEthernet, "frame shorter than 14 bytes")
	}

	dst := macString(data[0:6])
	src := macString(data[6:12])
	etherType := binary.BigEndian.Uint16(data[12:14])

	offset := ethernetHeaderLen

	var tags []Fields

	for (etherType == etherTypeDot1Q || etherType == etherTypeQinQ) && len(tags) < maxDot1QTags {
		if len(data) < offset+dot1QHeaderLen {
			// Truncated mid-tag: emit what we have as a partial layer.
			return Result{
				Record: LayerRecord{
					Proto:       TagEthernet,
					StartOffset: 0,
					EndOffset:   len(data),
					Partial:     true,
					Fields: Fields{
						"dst_mac":    dst,
						"src_mac":    src,
						"ether_type": etherType,
						"dot1q":      tags,
					},
				},
			}, errTruncated(TagEthernet, "truncated 802.1Q tag")
		}

		tci := binary.BigEndian.Uint16(data[offset : offset+2])
		tags = append(tags, Fields{
			"pcp": uint8(tci >> 13),
			"dei": (tci >> 12) & 0x1,
			"vid": tci & 0x0fff,
		})

		offset += dot1QHeaderLen
		etherType = binary.BigEndian.Uint16(data[offset-2 : offset])
	}

	fields := Fields{
		"dst_mac":    dst,
		"src_mac":    src,
		"ether_type": etherType,
	}

	if len(tags) > 0 {
		fields["dot1q"] = tags
	}

	return Result{
		Record: LayerRecord{
			Proto:       TagEthernet,
			StartOffset: 0,
			EndOffset:   offset,
			Fields:      fields,
		},
		NextParent: TagEthernet,
		Selector:   Selector(etherType),
		Residual:   data[offset:],
	}, nil
}
