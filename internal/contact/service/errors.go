package service

import (
	"errors"
	"fmt"
	"time"
)

// Public messages. Callers never see more detail than these; the reason is
// recorded in the audit trail only.
const (
	MessageSubmitted = "Thank you for your message. We will get back to you soon."
	MessageInvalid   = "Invalid form data. Please check your input and try again."
	MessageInternal  = "An error occurred. Please try again later."
	MessageExport    = "Data export will be available for download within 24 hours."
	MessageErasure   = "Your data has been scheduled for deletion."
)

type Kind string

const (
	KindValidation  Kind = "validation"
	KindRateLimited Kind = "rate_limited"
	KindInternal    Kind = "internal"
)

// Error is the typed failure of a pipeline operation.
type Error struct {
	Kind Kind
	// Reason is the audit reason, e.g. "csrf_format" or "storage".
	Reason string
	// RetryAfter is set for KindRateLimited.
	RetryAfter time.Duration
	Err        error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s (%s): %v", e.Kind, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s (%s)", e.Kind, e.Reason)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// PublicMessage is the only text a transport may return for e. Rate limiting
// shares the validation message.
func (e *Error) PublicMessage() string {
	if e.Kind == KindInternal {
		return MessageInternal
	}
	return MessageInvalid
}

// KindOf returns the Kind of err, treating foreign errors as internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func validationError(reason string) *Error {
	return &Error{Kind: KindValidation, Reason: reason}
}

func internalError(reason string, err error) *Error {
	return &Error{Kind: KindInternal, Reason: reason, Err: err}
}
