package capture

import "github.com/pkg/errors"

// Sentinel errors per spec.md §7's CaptureError taxonomy. InterfaceUnavailable,
// PermissionDenied and FilterInvalid are fatal at startup; DeviceClosed is
// terminal for the pipeline (clean end-of-stream, not a crash).
var (
	ErrInterfaceUnavailable = errors.New("capture: interface unavailable")
	ErrPermissionDenied     = errors.New("capture: permission denied")
	ErrFilterInvalid        = errors.New("capture: BPF filter invalid")
	ErrDeviceClosed         = errors.New("capture: device closed")
)
