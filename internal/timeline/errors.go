package timeline

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes scheduling errors.
type ErrorCode string

const (
	// ErrCodeConfiguration indicates an invalid construction parameter
	// (frame rate, dimensions, missing handler registration).
	ErrCodeConfiguration ErrorCode = "CONFIGURATION"

	// ErrCodeOutOfScope indicates a frame position or render window outside
	// [0, frameCount).
	ErrCodeOutOfScope ErrorCode = "OUT_OF_SCOPE"

	// ErrCodeAlreadyRendering indicates a structural mutation attempted
	// while a render is in flight.
	ErrCodeAlreadyRendering ErrorCode = "ALREADY_RENDERING"

	// ErrCodeUnsupported indicates an explicitly documented limitation,
	// e.g. reverse playback.
	ErrCodeUnsupported ErrorCode = "UNSUPPORTED"
)

// Error is a scheduling error with a machine-readable code.
//
// Scheduling errors are fatal to the requested operation but never corrupt
// existing state: the scene list, frame-count cache and stage cursor are
// left untouched by the failing call.
type Error struct {
	Code    ErrorCode
	Message string

	// Frame is the offending frame position for out-of-scope errors.
	Frame int

	// Op names the rejected operation for mutation-guard and
	// unsupported-operation errors.
	Op string
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s (op=%s)", e.Code, e.Message, e.Op)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewConfigurationError creates a construction-time configuration error.
func NewConfigurationError(format string, args ...any) *Error {
	return &Error{Code: ErrCodeConfiguration, Message: fmt.Sprintf(format, args...)}
}

// NewOutOfScopeError creates an error for a frame position outside the
// valid window.
func NewOutOfScopeError(frame, frameCount int) *Error {
	return &Error{
		Code:    ErrCodeOutOfScope,
		Message: fmt.Sprintf("frame %d outside [0, %d)", frame, frameCount),
		Frame:   frame,
	}
}

// NewAlreadyRenderingError creates a mutation-guard error for op.
func NewAlreadyRenderingError(op string) *Error {
	return &Error{
		Code:    ErrCodeAlreadyRendering,
		Message: "structural mutation rejected while rendering",
		Op:      op,
	}
}

// NewUnsupportedError creates an explicit-limitation error for op.
func NewUnsupportedError(op, reason string) *Error {
	return &Error{Code: ErrCodeUnsupported, Message: reason, Op: op}
}

func isCode(err error, code ErrorCode) bool {
	var te *Error
	if errors.As(err, &te) {
		return te.Code == code
	}
	return false
}

// IsConfigurationError returns true if err is a configuration error.
func IsConfigurationError(err error) bool { return isCode(err, ErrCodeConfiguration) }

// IsOutOfScopeError returns true if err is an out-of-scope error.
func IsOutOfScopeError(err error) bool { return isCode(err, ErrCodeOutOfScope) }

// IsAlreadyRenderingError returns true if err is a mutation-guard error.
func IsAlreadyRenderingError(err error) bool { return isCode(err, ErrCodeAlreadyRendering) }

// IsUnsupportedError returns true if err is an unsupported-operation error.
func IsUnsupportedError(err error) bool { return isCode(err, ErrCodeUnsupported) }
