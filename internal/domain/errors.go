package domain

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindUnauthenticated    ErrorKind = "UNAUTHENTICATED"
	KindInvalidArgument    ErrorKind = "INVALID_ARGUMENT"
	KindFailedPrecondition ErrorKind = "FAILED_PRECONDITION"
	KindNotFound           ErrorKind = "NOT_FOUND"
	KindInternal           ErrorKind = "INTERNAL"
)

var (
	ErrInsufficientCash  = errors.New("insufficient cash in wallet")
	ErrAmountOverflow    = errors.New("amount exceeds the ledger range")
	ErrWalletNotFound    = errors.New("wallet does not exist")
	ErrNoEligiblePickers = errors.New("no eligible pickers to pay")
	ErrIdempotencyMisuse = errors.New("idempotency key reused for a different operation")
	ErrMissingCaller     = errors.New("the function must be called while authenticated")
)

// Error carries a client-facing kind next to the message. Transports map the
// kind onto their own status codes.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message == "" {
		return e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Rejected reports whether the error refuses the request rather than
// signalling a fault.
func (e *Error) Rejected() bool {
	return e.Kind != KindInternal
}

func Unauthenticated(err error) *Error {
	return &Error{Kind: KindUnauthenticated, Message: err.Error(), Err: err}
}

func InvalidArgument(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidArgument, Message: fmt.Sprintf(format, args...)}
}

func FailedPrecondition(cause error, format string, args ...any) *Error {
	return &Error{Kind: KindFailedPrecondition, Message: fmt.Sprintf(format, args...), Err: cause}
}

func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Message: "internal error", Err: err}
}

// KindOf returns the kind of err. Errors that carry no kind are internal.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindInternal
}
