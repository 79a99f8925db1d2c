package dissect

import (
	"encoding/binary"
	"net"
)

const (
	dhcpv4FixedLen    = 236
	dhcpv4MagicCookie = 0x63825363
	dhcpOptionEnd     = 255
	dhcpOptionPad     = 0
)

var dhcpv4MessageTypes = map[byte]string{
	1: "DISCOVER",
	2: "OFFER",
	3: "REQUEST",
	4: "DECLINE",
	5: "ACK",
	6: "NAK",
	7: "RELEASE",
	8: "INFORM",
}

// DHCPv4 dissects a DHCPv4 message: op, htype, xid, the four IP address
// fields, and an options TLV list parsed until END (255) or buffer
// exhaustion. The magic cookie (0x63825363) is required. Terminal layer.
var DHCPv4 = Dissector{
	Name:  "DHCPv4",
	Proto: TagDHCPv4,
	Parse: parseDHCPv4,
}

func parseDHCPv4(data []byte, _ *Context) (Result, error) {
	if len(data) < dhcpv4FixedLen+4 {
		return Result{}, errTruncated(TagDHCPv4, "shorter than fixed header plus magic cookie")
	}

	cookie := binary.BigEndian.Uint32(data[dhcpv4FixedLen : dhcpv4FixedLen+4])
	if cookie != dhcpv4MagicCookie {
		return Result{}, errUnsupportedVersion(TagDHCPv4, "missing DHCP magic cookie")
	}

	hlen := int(data[2])
	if hlen > 16 {
		hlen = 16
	}

	fields := Fields{
		"op":     data[0],
		"htype":  data[1],
		"hlen":   data[2],
		"hops":   data[3],
		"xid":    binary.BigEndian.Uint32(data[4:8]),
		"secs":   binary.BigEndian.Uint16(data[8:10]),
		"flags":  binary.BigEndian.Uint16(data[10:12]),
		"ciaddr": net.IP(data[12:16]).String(),
		"yiaddr": net.IP(data[16:20]).String(),
		"siaddr": net.IP(data[20:24]).String(),
		"giaddr": net.IP(data[24:28]).String(),
		"chaddr": macString(data[28 : 28+hlen]),
	}

	options, msgType, end, err := parseDHCPv4Options(data[dhcpv4FixedLen+4:])
	if len(options) > 0 {
		fields["options"] = options
	}

	if msgType != "" {
		fields["message_type"] = msgType
	}

	if err != nil {
		return Result{
			Record: LayerRecord{
				Proto:       TagDHCPv4,
				StartOffset: 0,
				EndOffset:   dhcpv4FixedLen + 4 + end,
				Partial:     true,
				Fields:      fields,
			},
		}, err
	}

	return Result{
		Record: LayerRecord{
			Proto:       TagDHCPv4,
			StartOffset: 0,
			EndOffset:   dhcpv4FixedLen + 4 + end,
			Fields:      fields,
		},
	}, nil
}

func parseDHCPv4Options(data []byte) (options []Fields, msgType string, end int, err error) {
	i := 0

	for i < len(data) {
		code := data[i]

		if code == dhcpOptionEnd {
			i++

			break
		}

		if code == dhcpOptionPad {
			i++

			continue
		}

		if i+1 >= len(data) {
			return options, msgType, i, errTruncated(TagDHCPv4, "option header truncated")
		}

		length := int(data[i+1])
		if i+2+length > len(data) {
			return options, msgType, i, errTruncated(TagDHCPv4, "option value truncated")
		}

		value := data[i+2 : i+2+length]

		if code == 53 && length == 1 {
			if name, ok := dhcpv4MessageTypes[value[0]]; ok {
				msgType = name
			}
		}

		options = append(options, Fields{"code": code, "length": length})

		i += 2 + length
	}

	return options, msgType, i, nil
}
