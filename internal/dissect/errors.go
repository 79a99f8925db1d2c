package dissect

import "fmt"

// Kind enumerates the ways a dissector can fail without aborting the
// pipeline. Every ParseError is recovered locally: the offending
// LayerRecord is still emitted, marked Partial, and no inner layer is
// attempted.
type Kind int

const (
	// Truncated means fewer bytes were available than the header requires.
	Truncated Kind = iota
	// MalformedField means a field's value falls outside its valid range.
	MalformedField
	// UnsupportedVersion means a version discriminant (IP version, DHCP
	// magic cookie) did not match what this dissector understands.
	UnsupportedVersion
	// LoopDetected means a bounded traversal (DNS name decompression,
	// IPv6 extension header chain) exceeded its hop limit.
	LoopDetected
)

func (k Kind) String() string {
	switch k {
	case Truncated:
		return "Truncated"
	case MalformedField:
		return "MalformedField"
	case UnsupportedVersion:
		return "UnsupportedVersion"
	case LoopDetected:
		return "LoopDetected"
	default:
		return "Unknown"
	}
}

// ParseError is the error type every Dissector.Parse returns on failure.
type ParseError struct {
	Kind  Kind
	Proto Tag
	Msg   string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Proto, e.Kind, e.Msg)
}

func errTruncated(proto Tag, msg string) error {
	return &ParseError{Kind: Truncated, Proto: proto, Msg: msg}
}

func errMalformed(proto Tag, msg string) error {
	return &ParseError{Kind: MalformedField, Proto: proto, Msg: msg}
}

func errUnsupportedVersion(proto Tag, msg string) error {
	return &ParseError{Kind: UnsupportedVersion, Proto: proto, Msg: msg}
}

func errLoopDetected(proto Tag, msg string) error {
	return &ParseError{Kind: LoopDetected, Proto: proto, Msg: msg}
}
