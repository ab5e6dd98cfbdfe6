package errors

import (
	"errors"
	"fmt"
)

// Kind classifies a domain error so the transport layer can map it to a
// status code without string matching.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindNotFound
	KindStateConflict
	KindInvalidOperation
	KindInsufficientInventory
	KindKYCRequired
	KindBelowMinimumBalance
	KindWindowClosed
	KindCooldownActive
	KindSponsorInvalid
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindStateConflict:
		return "state_conflict"
	case KindInvalidOperation:
		return "invalid_operation"
	case KindInsufficientInventory:
		return "insufficient_inventory"
	case KindKYCRequired:
		return "kyc_required"
	case KindBelowMinimumBalance:
		return "below_minimum_balance"
	case KindWindowClosed:
		return "window_closed"
	case KindCooldownActive:
		return "cooldown_active"
	case KindSponsorInvalid:
		return "sponsor_invalid"
	default:
		return "unknown"
	}
}

// Error is a kind-tagged domain error.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string {
	return e.Msg
}

// Is matches on kind, so errors.Is works across wrapping.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func newf(k Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: k, Msg: fmt.Sprintf(format, args...)}
}

func Validation(format string, args ...interface{}) *Error {
	return newf(KindValidation, format, args...)
}

func NotFound(format string, args ...interface{}) *Error {
	return newf(KindNotFound, format, args...)
}

func StateConflict(format string, args ...interface{}) *Error {
	return newf(KindStateConflict, format, args...)
}

func InvalidOperation(format string, args ...interface{}) *Error {
	return newf(KindInvalidOperation, format, args...)
}

func InsufficientInventory(format string, args ...interface{}) *Error {
	return newf(KindInsufficientInventory, format, args...)
}

func KYCRequired(format string, args ...interface{}) *Error {
	return newf(KindKYCRequired, format, args...)
}

func BelowMinimumBalance(format string, args ...interface{}) *Error {
	return newf(KindBelowMinimumBalance, format, args...)
}

func WindowClosed(format string, args ...interface{}) *Error {
	return newf(KindWindowClosed, format, args...)
}

func CooldownActive(format string, args ...interface{}) *Error {
	return newf(KindCooldownActive, format, args...)
}

func SponsorInvalid(format string, args ...interface{}) *Error {
	return newf(KindSponsorInvalid, format, args...)
}

// KindOf extracts the kind from err, unwrapping as needed. Non-domain errors
// report KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, k Kind) bool {
	return KindOf(err) == k
}
