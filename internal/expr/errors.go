package expr

import (
	"errors"
	"fmt"
)

// Error reports a malformed or unresolvable expression.
//
// Expression failures are recoverable by design: the render loop marks the
// property unresolved for the frame, logs a warning and keeps going. The
// dedicated type (rather than a generic error) lets callers distinguish
// content errors from scheduling errors with errors.As.
type Error struct {
	// Expr is the source expression that failed.
	Expr string

	// Pos is the byte offset where the failure was detected.
	Pos int

	// Message is a human-readable description.
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("expression %q: %s (at offset %d)", e.Expr, e.Message, e.Pos)
}

// IsExpressionError returns true if err is (or wraps) an expression Error.
func IsExpressionError(err error) bool {
	var ee *Error
	return errors.As(err, &ee)
}

func errAt(src string, pos int, format string, args ...any) *Error {
	return &Error{Expr: src, Pos: pos, Message: fmt.Sprintf(format, args...)}
}
