package framework

import (
	"errors"
	"syscall"
)

// Exit statuses used by the helpers. A wrapped tool's own status is forwarded
// unchanged and is not listed here.
const (
	ExitSuccess = 0
	ExitFailure = 1
	// ExitUsage reports bad command-line arguments.
	ExitUsage = 2
	// ExitNotSupported is errno ENOTSUP, returned when pkg-config emits a
	// compiler flag that cannot be represented in the build description.
	ExitNotSupported = int(syscall.ENOTSUP)
)

// ExitError carries a process exit status up to main.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface.
func (e *ExitError) Error() string {
	return e.Message
}

// ExitCodeFor maps an error returned by a helper onto the process exit status.
func ExitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	if errors.Is(err, ErrUnsupportedFlag) {
		return ExitNotSupported
	}
	return ExitFailure
}
