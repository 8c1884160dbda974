// README: Tagged application errors shared by services and the HTTP surface.
package apperr

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Error is a failure with a kind the caller can act on. Kinds reuse the gRPC
// code space so Firestore errors and our own errors map the same way.
type Error struct {
	Code codes.Code
	Msg  string
}

func (e *Error) Error() string {
	return e.Msg
}

// GRPCStatus lets status.Code and status.FromError read the kind.
func (e *Error) GRPCStatus() *status.Status {
	return status.New(e.Code, e.Msg)
}

func New(code codes.Code, format string, args ...any) *Error {
	return &Error{Code: code, Msg: fmt.Sprintf(format, args...)}
}

func InvalidArgument(format string, args ...any) *Error {
	return New(codes.InvalidArgument, format, args...)
}

func Unauthenticated(format string, args ...any) *Error {
	return New(codes.Unauthenticated, format, args...)
}

func PermissionDenied(format string, args ...any) *Error {
	return New(codes.PermissionDenied, format, args...)
}

func NotFound(format string, args ...any) *Error {
	return New(codes.NotFound, format, args...)
}

func FailedPrecondition(format string, args ...any) *Error {
	return New(codes.FailedPrecondition, format, args...)
}

func AlreadyExists(format string, args ...any) *Error {
	return New(codes.AlreadyExists, format, args...)
}

func ResourceExhausted(format string, args ...any) *Error {
	return New(codes.ResourceExhausted, format, args...)
}

func Unavailable(format string, args ...any) *Error {
	return New(codes.Unavailable, format, args...)
}

// CodeOf returns the kind of err. Wrapped *Error values win; anything else
// carrying a gRPC status (Firestore, Firebase) reports its own code, and
// plain errors are Internal.
func CodeOf(err error) codes.Code {
	if err == nil {
		return codes.OK
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code
	}
	if s, ok := status.FromError(err); ok {
		return s.Code()
	}
	return codes.Internal
}

// Message returns the caller-facing text for err. Internal failures never leak
// their cause.
func Message(err error) string {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Msg
	}
	return "internal error"
}
