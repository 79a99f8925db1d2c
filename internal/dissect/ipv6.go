package dissect

import (
	"encoding/binary"
	"net"
)

const (
	ipv6HeaderLen    = 40
	maxExtHeaderHops = 8

	nextHeaderHopByHop  = 0
	nextHeaderRouting   = 43
	nextHeaderFragment  = 44
	nextHeaderDestOpts  = 60
)

// IPv6 dissects a fixed IPv6 header and walks its extension-header chain
// (hop-by-hop, routing, fragment, destination options), updating the next
// header selector as it goes. The final next-header value is the selector
// handed to the transport-layer lookup.
var IPv6 = Dissector{
	Name:  "IPv6",
	Proto: TagIPv6,
	Parse: parseIPv6,
}

func parseIPv6(data []byte, _ *Context) (Result, error) {
	if len(data) < ipv6HeaderLen {
		return Result{}, errTruncated(TagIPv6, "shorter than 40-byte fixed header")
	}

	version := data[0] >> 4
	if version != 6 {
		return Result{}, errUnsupportedVersion(TagIPv6, "version field is not 6")
	}

	trafficClass := (uint16(data[0]&0x0f) << 4) | uint16(data[1]>>4)
	flowLabel := (uint32(data[1]&0x0f) << 16) | uint32(data[2])<<8 | uint32(data[3])
	payloadLength := binary.BigEndian.Uint16(data[4:6])
	nextHeader := data[6]
	hopLimit := data[7]
	srcIP := net.IP(data[8:24]).String()
	dstIP := net.IP(data[24:40]).String()

	offset := ipv6HeaderLen
	var extHeaders []Fields

	hops := 0
	for isIPv6ExtHeader(nextHeader) {
		hops++
		if hops > maxExtHeaderHops {
			return Result{}, errLoopDetected(TagIPv6, "extension header chain exceeded hop bound")
		}

		if len(data) < offset+2 {
			return Result{
				Record: LayerRecord{
					Proto:       TagIPv6,
					StartOffset: 0,
					EndOffset:   len(data),
					Partial:     true,
					Fields: Fields{
						"src_ip":      srcIP,
						"dst_ip":      dstIP,
						"ext_headers": extHeaders,
					},
				},
			}, errTruncated(TagIPv6, "truncated extension header")
		}

		thisNextHeader := data[offset]
		hdrExtLen := data[offset+1]
		hdrLen := (int(hdrExtLen) + 1) * 8

		if nextHeader == nextHeaderFragment {
			hdrLen = 8
		}

		if len(data) < offset+hdrLen {
			return Result{}, errTruncated(TagIPv6, "extension header exceeds buffer")
		}

		extHeaders = append(extHeaders, Fields{
			"type":   extHeaderName(nextHeader),
			"length": hdrLen,
		})

		offset += hdrLen
		nextHeader = thisNextHeader
	}

	fields := Fields{
		"version":        version,
		"traffic_class":  trafficClass,
		"flow_label":     flowLabel,
		"payload_length": payloadLength,
		"next_header":    nextHeader,
		"hop_limit":      hopLimit,
		"src_ip":         srcIP,
		"dst_ip":         dstIP,
	}

	if len(extHeaders) > 0 {
		fields["ext_headers"] = extHeaders
	}

	residualEnd := len(data)
	if want := ipv6HeaderLen + int(payloadLength); want < residualEnd {
		residualEnd = want
	}

	partial := false
	if ipv6HeaderLen+int(payloadLength) > len(data) {
		partial = true
	}

	rec := LayerRecord{
		Proto:       TagIPv6,
		StartOffset: 0,
		EndOffset:   offset,
		Partial:     partial,
		Fields:      fields,
	}

	if partial {
		return Result{Record: rec}, errTruncated(TagIPv6, "payload_length exceeds available bytes")
	}

	return Result{
		Record:     rec,
		NextParent: TagIPv6,
		Selector:   Selector(nextHeader),
		Residual:   data[offset:residualEnd],
	}, nil
}

func isIPv6ExtHeader(nextHeader uint8) bool {
	switch nextHeader {
	case nextHeaderHopByHop, nextHeaderRouting, nextHeaderFragment, nextHeaderDestOpts:
		return true
	default:
		return false
	}
}

func extHeaderName(nextHeader uint8) string {
	switch nextHeader {
	case nextHeaderHopByHop:
		return "HopByHop"
	case nextHeaderRouting:
		return "Routing"
	case nextHeaderFragment:
		return "Fragment"
	case nextHeaderDestOpts:
		return "DestinationOptions"
	default:
		return "Unknown"
	}
}
