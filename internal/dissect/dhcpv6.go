package dissect

import "encoding/binary"

const dhcpv6FixedLen = 4

var dhcpv6MessageTypes = map[byte]string{
	1:  "SOLICIT",
	2:  "ADVERTISE",
	3:  "REQUEST",
	4:  "CONFIRM",
	5:  "RENEW",
	6:  "REBIND",
	7:  "REPLY",
	8:  "RELEASE",
	9:  "DECLINE",
	11: "INFORMATION-REQUEST",
	12: "RELAY-FORW",
	13: "RELAY-REPL",
}

// DHCPv6 dissects a DHCPv6 message: msg-type, transaction-id, and an
// options TLV list parsed until buffer exhaustion (DHCPv6 has no END
// sentinel option, unlike v4). Terminal layer.
var DHCPv6 = Dissector{
	Name:  "DHCPv6",
	Proto: TagDHCPv6,
	Parse: parseDHCPv6,
}

func parseDHCPv6(data []byte, _ *Context) (Result, error) {
	if len(data) < dhcpv6FixedLen {
		return Result{}, errTruncated(TagDHCPv6, "shorter than 4-byte fixed header")
	}

	msgType := data[0]
	transactionID := (uint32(data[1]) << 16) | (uint32(data[2]) << 8) | uint32(data[3])

	fields := Fields{
		"msg_type":      msgTypeName(msgType),
		"transaction_id": transactionID,
	}

	options, end, err := parseDHCPv6Options(data[dhcpv6FixedLen:])
	if len(options) > 0 {
		fields["options"] = options
	}

	rec := LayerRecord{
		Proto:       TagDHCPv6,
		StartOffset: 0,
		EndOffset:   dhcpv6FixedLen + end,
		Fields:      fields,
	}

	if err != nil {
		rec.Partial = true

		return Result{Record: rec}, err
	}

	return Result{Record: rec}, nil
}

func msgTypeName(t byte) string {
	if name, ok := dhcpv6MessageTypes[t]; ok {
		return name
	}

	return "OTHER"
}

func parseDHCPv6Options(data []byte) ([]Fields, int, error) {
	var options []Fields

	i := 0
	for i < len(data) {
		if i+4 > len(data) {
			return options, i, errTruncated(TagDHCPv6, "option header truncated")
		}

		code := binary.BigEndian.Uint16(data[i : i+2])
		length := int(binary.BigEndian.Uint16(data[i+2 : i+4]))

		if i+4+length > len(data) {
			return options, i, errTruncated(TagDHCPv6, "option value truncated")
		}

		options = append(options, Fields{"code": code, "length": length})

		i += 4 + length
	}

	return options, i, nil
}
