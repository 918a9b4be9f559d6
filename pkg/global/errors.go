package global

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so the HTTP layer can map it without string matching.
type Kind string

const (
	KindValidation   Kind = "validation"
	KindConflict     Kind = "conflict"
	KindUnauthorized Kind = "unauthorized"
	KindForbidden    Kind = "forbidden"
	KindNotFound     Kind = "not_found"
	KindInvalidState Kind = "invalid_state"
	KindUnavailable  Kind = "unavailable"
	KindInternal     Kind = "internal"
)

// Sentinels for errors.Is. They match any AppError of the same kind.
var (
	ErrValidation   = &AppError{Kind: KindValidation}
	ErrConflict     = &AppError{Kind: KindConflict}
	ErrUnauthorized = &AppError{Kind: KindUnauthorized}
	ErrForbidden    = &AppError{Kind: KindForbidden}
	ErrNotFound     = &AppError{Kind: KindNotFound}
	ErrInvalidState = &AppError{Kind: KindInvalidState}
	ErrUnavailable  = &AppError{Kind: KindUnavailable}
)

type AppError struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *AppError) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return e.Message + ": " + e.Err.Error()
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return e.Err.Error()
	}
	return string(e.Kind)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return t.Message == "" && t.Err == nil && t.Kind == e.Kind
}

func NewError(kind Kind, message string, err error) *AppError {
	return &AppError{Kind: kind, Message: message, Err: err}
}

func Validation(message string) error {
	return NewError(KindValidation, message, nil)
}

func Conflict(message string) error {
	return NewError(KindConflict, message, nil)
}

func Unauthorized(message string) error {
	return NewError(KindUnauthorized, message, nil)
}

func Forbidden(message string) error {
	return NewError(KindForbidden, message, nil)
}

func NotFound(format string, args ...any) error {
	return NewError(KindNotFound, fmt.Sprintf(format, args...), nil)
}

func InvalidState(format string, args ...any) error {
	return NewError(KindInvalidState, fmt.Sprintf(format, args...), nil)
}

func Unavailable(message string, err error) error {
	return NewError(KindUnavailable, message, err)
}

// KindOf reports the kind of the first AppError in err's chain.
func KindOf(err error) Kind {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// MessageOf returns the human-readable part of err. Wrapped causes of
// AppErrors stay out of the message so driver details never reach clients.
func MessageOf(err error) string {
	if err == nil {
		return ""
	}
	var appErr *AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return err.Error()
}
