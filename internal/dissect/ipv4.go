package dissect

import (
	"encoding/binary"
	"net"
)

const ipv4MinHeaderLen = 20

// IPv4 dissects an IPv4 header. The residual begins exactly at IHL*4 and is
// clamped to totalLength so trailing link-layer padding never leaks into
// the next dissector. Next selector is the IP protocol number.
var IPv4 = Dissector{
	Name:  "IPv4",
	Proto: TagIPv4,
	Parse: parseIPv4,
}

func parseIPv4(data []byte, ctx *Context) (Result, error) {
	if len(data) < ipv4MinHeaderLen {
		return Result{}, errTruncated(TagIPv4, "shorter than 20-byte minimum header")
	}

	version := data[0] >> 4
	if version != 4 {
		return Result{}, errUnsupportedVersion(TagIPv4, "version field is not 4")
	}

	ihl := int(data[0] & 0x0f)
	if ihl < 5 || ihl > 15 {
		return Result{}, errMalformed(TagIPv4, "IHL out of [5,15] range")
	}

	headerLen := ihl * 4
	if len(data) < headerLen {
		return Result{
			Record: LayerRecord{
				Proto:       TagIPv4,
				StartOffset: 0,
				EndOffset:   len(data),
				Partial:     true,
				Fields:      Fields{"ihl": ihl},
			},
		}, errTruncated(TagIPv4, "buffer shorter than declared IHL")
	}

	totalLength := int(binary.BigEndian.Uint16(data[2:4]))
	protocol := data[9]
	srcIP := net.IP(data[12:16]).String()
	dstIP := net.IP(data[16:20]).String()
	ttl := data[8]
	flagsFrag := binary.BigEndian.Uint16(data[6:8])
	flags := flagsFrag >> 13
	fragOffset := flagsFrag & 0x1fff
	checksum := binary.BigEndian.Uint16(data[10:12])

	fields := Fields{
		"version":         version,
		"ihl":             ihl,
		"dscp":            data[1] >> 2,
		"ecn":             data[1] & 0x3,
		"total_length":    totalLength,
		"identification":  binary.BigEndian.Uint16(data[4:6]),
		"flags":           flags,
		"fragment_offset": fragOffset,
		"ttl":             ttl,
		"protocol":        protocol,
		"checksum":        checksum,
		"src_ip":          srcIP,
		"dst_ip":          dstIP,
	}

	if ctx != nil && ctx.ValidateChecksums {
		fields["checksum_valid"] = ipv4ChecksumValid(data[:headerLen])
	}

	if totalLength > len(data) || totalLength < headerLen {
		// Truncated (spec S3): total_length claims more than is present,
		// or claims less than the header itself — either way this layer
		// is emitted partial and no inner layer is attempted.
		return Result{
			Record: LayerRecord{
				Proto:       TagIPv4,
				StartOffset: 0,
				EndOffset:   headerLen,
				Partial:     true,
				Fields:      fields,
			},
		}, errTruncated(TagIPv4, "total_length exceeds available bytes")
	}

	residualEnd := totalLength
	if residualEnd > len(data) {
		residualEnd = len(data)
	}

	return Result{
		Record: LayerRecord{
			Proto:       TagIPv4,
			StartOffset: 0,
			EndOffset:   headerLen,
			Fields:      fields,
		},
		NextParent: TagIPv4,
		Selector:   Selector(protocol),
		Residual:   data[headerLen:residualEnd],
	}, nil
}

func ipv4ChecksumValid(header []byte) bool {
	var sum uint32

	for i := 0; i+1 < len(header); i += 2 {
		sum += uint32(binary.BigEndian.Uint16(header[i : i+2]))
	}

	if len(header)%2 == 1 {
		sum += uint32(header[len(header)-1]) << 8
	}

	for sum>>16 != 0 {
		sum = (sum & 0xffff) + (sum >> 16)
	}

	return sum^0xffff == 0
}
