package ads

import (
	"errors"
	"fmt"
)

// Kind classifies SDK failures.
type Kind int

const (
	// SetupFailure means the SDK rejected initialization.
	SetupFailure Kind = iota + 1
	// DisplayFailure means show, hide, resume or remove was rejected.
	DisplayFailure
)

func (k Kind) String() string {
	switch k {
	case SetupFailure:
		return "setup_failure"
	case DisplayFailure:
		return "display_failure"
	default:
		return "unknown"
	}
}

var (
	ErrSetupFailure   = errors.New("ad setup failed")
	ErrDisplayFailure = errors.New("ad display failed")
)

// OpError wraps an SDK failure with the operation and kind. It has already
// been logged by the coordinator when a caller sees it.
type OpError struct {
	Op   Op
	Kind Kind
	Err  error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }

// Is lets errors.Is match the kind sentinels.
func (e *OpError) Is(target error) bool {
	switch target {
	case ErrSetupFailure:
		return e.Kind == SetupFailure
	case ErrDisplayFailure:
		return e.Kind == DisplayFailure
	}
	return false
}

// KindOf extracts the failure kind from err.
func KindOf(err error) (Kind, bool) {
	var oe *OpError
	if errors.As(err, &oe) {
		return oe.Kind, true
	}
	return 0, false
}
