package dissect

import "encoding/binary"

const (
	dnsHeaderLen      = 12
	dnsMaxPointerHops = 128
)

var dnsQTypes = map[uint16]string{
	1:  "A",
	2:  "NS",
	5:  "CNAME",
	6:  "SOA",
	12: "PTR",
	15: "MX",
	16: "TXT",
	28: "AAAA",
	33: "SRV",
}

func dnsQTypeName(t uint16) string {
	if s, ok := dnsQTypes[t]; ok {
		return s
	}

	return "OTHER"
}

// DNS dissects a DNS message: 12-byte header, decomposed flags, and the
// question/answer/authority/additional sections. Name decompression
// honours pointer chains with a loop-bound guard rejecting after more than
// 128 hops (spec.md invariant 4). Terminal layer.
var DNS = Dissector{
	Name:  "DNS",
	Proto: TagDNS,
	Parse: parseDNS,
}

type dnsRR struct {
	Name  string
	Type  uint16
	Class uint16
	TTL   uint32
	RDLen uint16
}

func parseDNS(data []byte, _ *Context) (Result, error) {
	if len(data) < dnsHeaderLen {
		return Result{}, errTruncated(TagDNS, "shorter than 12-byte header")
	}

	id := binary.BigEndian.Uint16(data[0:2])
	flags := binary.BigEndian.Uint16(data[2:4])
	qdCount := binary.BigEndian.Uint16(data[4:6])
	anCount := binary.BigEndian.Uint16(data[6:8])
	nsCount := binary.BigEndian.Uint16(data[8:10])
	arCount := binary.BigEndian.Uint16(data[10:12])

	fields := Fields{
		"id":      id,
		"qr":      flags>>15&0x1 == 1,
		"opcode":  (flags >> 11) & 0xf,
		"aa":      flags>>10&0x1 == 1,
		"tc":      flags>>9&0x1 == 1,
		"rd":      flags>>8&0x1 == 1,
		"ra":      flags>>7&0x1 == 1,
		"rcode":   flags & 0xf,
		"qdcount": qdCount,
		"ancount": anCount,
		"nscount": nsCount,
		"arcount": arCount,
	}

	offset := dnsHeaderLen

	var questions []Fields

	for i := 0; i < int(qdCount); i++ {
		name, next, err := decodeDNSName(data, offset)
		if err != nil {
			return partialDNS(fields, questions, err)
		}

		if next+4 > len(data) {
			return partialDNS(fields, questions, errTruncated(TagDNS, "question record truncated"))
		}

		qtype := binary.BigEndian.Uint16(data[next : next+2])
		qclass := binary.BigEndian.Uint16(data[next+2 : next+4])

		questions = append(questions, Fields{
			"qname":  name,
			"qtype":  dnsQTypeName(qtype),
			"qclass": qclass,
		})

		offset = next + 4
	}

	if len(questions) > 0 {
		fields["questions"] = questions
	}

	var records []Fields

	total := int(anCount) + int(nsCount) + int(arCount)
	for i := 0; i < total; i++ {
		rr, next, err := decodeDNSRR(data, offset)
		if err != nil {
			return partialDNSWithRR(fields, questions, records, err)
		}

		records = append(records, Fields{
			"name":  rr.Name,
			"type":  dnsQTypeName(rr.Type),
			"class": rr.Class,
			"ttl":   rr.TTL,
		})

		offset = next
	}

	if len(records) > 0 {
		fields["records"] = records
	}

	return Result{
		Record: LayerRecord{
			Proto:       TagDNS,
			StartOffset: 0,
			EndOffset:   offset,
			Fields:      fields,
		},
	}, nil
}

func partialDNS(fields Fields, questions []Fields, err error) (Result, error) {
	if len(questions) > 0 {
		fields["questions"] = questions
	}

	return Result{
		Record: LayerRecord{
			Proto:   TagDNS,
			Partial: true,
			Fields:  fields,
		},
	}, err
}

func partialDNSWithRR(fields Fields, questions, records []Fields, err error) (Result, error) {
	if len(questions) > 0 {
		fields["questions"] = questions
	}

	if len(records) > 0 {
		fields["records"] = records
	}

	return Result{
		Record: LayerRecord{
			Proto:   TagDNS,
			Partial: true,
			Fields:  fields,
		},
	}, err
}

// decodeDNSRR decodes a single resource record's name plus the fixed
// type/class/ttl/rdlength fields, returning the offset just past its
// rdata.
func decodeDNSRR(data []byte, offset int) (dnsRR, int, error) {
	name, next, err := decodeDNSName(data, offset)
	if err != nil {
		return dnsRR{}, 0, err
	}

	if next+10 > len(data) {
		return dnsRR{}, 0, errTruncated(TagDNS, "resource record fixed fields truncated")
	}

	rr := dnsRR{
		Name:  name,
		Type:  binary.BigEndian.Uint16(data[next : next+2]),
		Class: binary.BigEndian.Uint16(data[next+2 : next+4]),
		TTL:   binary.BigEndian.Uint32(data[next+4 : next+8]),
		RDLen: binary.BigEndian.Uint16(data[next+8 : next+10]),
	}

	end := next + 10 + int(rr.RDLen)
	if end > len(data) {
		return dnsRR{}, 0, errTruncated(TagDNS, "resource record rdata truncated")
	}

	return rr, end, nil
}

// decodeDNSName decodes a (possibly compressed) domain name starting at
// offset, returning the name and the offset immediately following the
// name as it appears in-line (i.e. after a pointer, not after its target).
func decodeDNSName(data []byte, offset int) (string, int, error) {
	var labels []byte

	pos := offset
	hops := 0
	endOfInline := -1

	for {
		if pos >= len(data) {
			return "", 0, errTruncated(TagDNS, "name extends past buffer")
		}

		length := data[pos]

		if length == 0 {
			pos++

			if endOfInline == -1 {
				endOfInline = pos
			}

			break
		}

		if length&0xc0 == 0xc0 {
			hops++
			if hops > dnsMaxPointerHops {
				return "", 0, errLoopDetected(TagDNS, "pointer chain exceeded 128 hops")
			}

			if pos+1 >= len(data) {
				return "", 0, errTruncated(TagDNS, "pointer truncated")
			}

			if endOfInline == -1 {
				endOfInline = pos + 2
			}

			pos = int(length&0x3f)<<8 | int(data[pos+1])

			continue
		}

		pos++

		if pos+int(length) > len(data) {
			return "", 0, errTruncated(TagDNS, "label extends past buffer")
		}

		if len(labels) > 0 {
			labels = append(labels, '.')
		}

		labels = append(labels, data[pos:pos+int(length)]...)
		pos += int(length)
	}

	return string(labels), endOfInline, nil
}
