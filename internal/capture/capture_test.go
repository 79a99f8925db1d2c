package capture

import (
	"testing"

	"github.com/pkg/errors"
)

func TestIsTimeout_MatchesSentinelAndWraps(t *testing.T) {
	if !IsTimeout(errTimeout) {
		t.Error("expected errTimeout to be reported as a timeout")
	}

	wrapped := errors.Wrap(errTimeout, "extra context")
	if !IsTimeout(wrapped) {
		t.Error("expected a wrapped errTimeout to still be reported as a timeout")
	}

	if IsTimeout(ErrDeviceClosed) {
		t.Error("ErrDeviceClosed must not be reported as a timeout")
	}
}

func TestIsPermissionError(t *testing.T) {
	cases := []struct {
		err  error
		want bool
	}{
		{errors.New("You don't have permission to capture on that device"), true},
		{errors.New("operation not permitted"), true},
		{errors.New("no such device"), false},
		{nil, false},
	}

	for _, c := range cases {
		if got := isPermissionError(c.err); got != c.want {
			t.Errorf("isPermissionError(%v) = %v, want %v", c.err, got, c.want)
		}
	}
}

func TestClassifyOpenError(t *testing.T) {
	permErr := classifyOpenError("eth0", errors.New("permission denied"))
	if !errors.Is(permErr, ErrPermissionDenied) {
		t.Errorf("expected ErrPermissionDenied, got %v", permErr)
	}

	otherErr := classifyOpenError("eth0", errors.New("no such device"))
	if !errors.Is(otherErr, ErrInterfaceUnavailable) {
		t.Errorf("expected ErrInterfaceUnavailable, got %v", otherErr)
	}
}
