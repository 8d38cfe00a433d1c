package domain

import (
	"errors"
	"fmt"
)

type ErrorKind string

const (
	KindValidation         ErrorKind = "VALIDATION_ERROR"
	KindProductNotFound    ErrorKind = "PRODUCT_NOT_FOUND"
	KindOrderNotFound      ErrorKind = "ORDER_NOT_FOUND"
	KindProductUnavailable ErrorKind = "PRODUCT_NOT_AVAILABLE"
	KindOutOfStock         ErrorKind = "OUT_OF_STOCK"
	KindInvalidSize        ErrorKind = "INVALID_SIZE"
	KindInvalidColor       ErrorKind = "INVALID_COLOR"
	KindUnauthorized       ErrorKind = "UNAUTHORIZED"
	KindAlreadyCancelled   ErrorKind = "ORDER_ALREADY_CANCELLED"
	KindCannotCancel       ErrorKind = "ORDER_CANNOT_BE_CANCELLED"
)

// Error is a business-rule failure. Ref names the offending entity (a SKU
// or an order reference) when there is one.
type Error struct {
	Kind    ErrorKind
	Message string
	Ref     string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return e.Message
}

// Is matches any *Error of the same kind, so the sentinels below work with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

func NewError(kind ErrorKind, ref, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Ref: ref}
}

var (
	ErrValidation         = &Error{Kind: KindValidation}
	ErrProductNotFound    = &Error{Kind: KindProductNotFound}
	ErrOrderNotFound      = &Error{Kind: KindOrderNotFound}
	ErrProductUnavailable = &Error{Kind: KindProductUnavailable}
	ErrOutOfStock         = &Error{Kind: KindOutOfStock}
	ErrInvalidSize        = &Error{Kind: KindInvalidSize}
	ErrInvalidColor       = &Error{Kind: KindInvalidColor}
	ErrUnauthorized       = &Error{Kind: KindUnauthorized}
	ErrAlreadyCancelled   = &Error{Kind: KindAlreadyCancelled}
	ErrCannotCancel       = &Error{Kind: KindCannotCancel}
)

// KindOf returns the kind of a business error anywhere in err's chain.
func KindOf(err error) (ErrorKind, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind, true
	}
	return "", false
}
