package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Kind classifies ledger errors for the transport layer.
type Kind string

const (
	KindValidation        Kind = "validation"
	KindNotFound          Kind = "not_found"
	KindConflict          Kind = "conflict"
	KindInsufficientFunds Kind = "insufficient_funds"
	KindUnauthorized      Kind = "unauthorized"
	KindInternal          Kind = "internal"
)

type kinded interface {
	error
	Kind() Kind
}

// KindOf returns the kind of the first typed error in err's chain, or "" for untyped errors.
func KindOf(err error) Kind {
	var k kinded
	if errors.As(err, &k) {
		return k.Kind()
	}
	return ""
}

// ValidationError rejects a request before anything is read or written.
type ValidationError struct {
	Field string
	Msg   string
	Err   error
}

func (e ValidationError) Kind() Kind    { return KindValidation }
func (e ValidationError) Unwrap() error { return e.Err }

func (e ValidationError) Error() string {
	switch {
	case e.Field != "" && e.Msg != "":
		return e.Field + ": " + e.Msg
	case e.Msg != "":
		return e.Msg
	case e.Field != "":
		return "invalid " + e.Field
	}
	return "validation error"
}

type NotFoundError struct {
	Resource string
	Err      error
}

func (e NotFoundError) Kind() Kind    { return KindNotFound }
func (e NotFoundError) Unwrap() error { return e.Err }

func (e NotFoundError) Error() string {
	if e.Resource == "" {
		return "not found"
	}
	return e.Resource + " not found"
}

// ConflictError means the current state forbids the request, e.g. an occupied spot.
type ConflictError struct {
	Resource string
	Msg      string
	Err      error
}

func (e ConflictError) Kind() Kind    { return KindConflict }
func (e ConflictError) Unwrap() error { return e.Err }

func (e ConflictError) Error() string {
	switch {
	case e.Resource != "" && e.Msg != "":
		return fmt.Sprintf("%s conflict: %s", e.Resource, e.Msg)
	case e.Msg != "":
		return e.Msg
	case e.Resource != "":
		return e.Resource + " conflict"
	}
	return "conflict"
}

// InsufficientFundsError is returned by settlement when the balance cannot cover the price.
type InsufficientFundsError struct {
	Balance decimal.Decimal
	Price   decimal.Decimal
}

func (e InsufficientFundsError) Kind() Kind { return KindInsufficientFunds }

func (e InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: balance %s, required %s", e.Balance.StringFixed(2), e.Price.StringFixed(2))
}

// UnauthorizedError covers bad credentials and missing or invalid tokens.
type UnauthorizedError struct {
	Msg string
	Err error
}

func (e UnauthorizedError) Kind() Kind    { return KindUnauthorized }
func (e UnauthorizedError) Unwrap() error { return e.Err }

func (e UnauthorizedError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return "unauthorized"
}

// InternalError hides the cause from clients; Err is only logged.
type InternalError struct {
	Msg string
	Err error
}

func (e InternalError) Kind() Kind    { return KindInternal }
func (e InternalError) Unwrap() error { return e.Err }

func (e InternalError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return "internal error"
}

func IsValidation(err error) bool        { return KindOf(err) == KindValidation }
func IsNotFound(err error) bool          { return KindOf(err) == KindNotFound }
func IsConflict(err error) bool          { return KindOf(err) == KindConflict }
func IsInsufficientFunds(err error) bool { return KindOf(err) == KindInsufficientFunds }
func IsUnauthorized(err error) bool      { return KindOf(err) == KindUnauthorized }
