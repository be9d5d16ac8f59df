package domain

import (
	"errors"
	"fmt"
)

// ──────────────────────────────────────────────────────────────────────────────
// Coded errors — compare with errors.Is(), inspect with CodeOf()
// ──────────────────────────────────────────────────────────────────────────────

// ErrorCode is the stable machine-readable code surfaced to API callers.
type ErrorCode string

const (
	CodeNotFound          ErrorCode = "NOT_FOUND"
	CodeInvalidState      ErrorCode = "INVALID_STATE"
	CodeInvalidArgument   ErrorCode = "INVALID_ARGUMENT"
	CodeInsufficientFunds ErrorCode = "INSUFFICIENT_FUNDS"
	CodeRateLimit         ErrorCode = "RATE_LIMIT"
	CodeConflict          ErrorCode = "CONFLICT"
	CodeInternal          ErrorCode = "INTERNAL"
)

// Error is a coded domain error. Sentinels below are the canonical instances;
// wrap them with fmt.Errorf("...: %w", err) to add call-site context without
// losing the code.
type Error struct {
	Code    ErrorCode
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches any *Error carrying the same code, so wrapped sentinels compare
// equal to their canonical instance.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

func newError(code ErrorCode, msg string) *Error {
	return &Error{Code: code, Message: msg}
}

// Sentinel errors.
var (
	// ErrEventNotFound is returned when no event matches the given id.
	ErrEventNotFound = newError(CodeNotFound, "event not found")

	// ErrBetNotFound is returned when no bet matches the given id.
	ErrBetNotFound = newError(CodeNotFound, "bet not found")

	// ErrOptionNotFound is returned when the option does not belong to the event.
	ErrOptionNotFound = newError(CodeNotFound, "option not found on event")

	// ErrBalanceNotFound is returned when no balance row exists for the user.
	ErrBalanceNotFound = newError(CodeNotFound, "balance not found")

	// ErrEventNotAcceptable is returned when an order is placed on an event
	// that is not live, is frozen, or has completed.
	ErrEventNotAcceptable = newError(CodeInvalidState, "event is not accepting orders")

	// ErrEventAlreadyResolved is returned when resolving an already-resolved event.
	ErrEventAlreadyResolved = newError(CodeInvalidState, "event is already resolved")

	// ErrPriceAboveWin is returned when an order's price exceeds the event's
	// win price.
	ErrPriceAboveWin = newError(CodeInvalidArgument, "price exceeds the event win price")

	// ErrSellWithoutBuy is returned for a sell order with no parent buy id.
	ErrSellWithoutBuy = newError(CodeInvalidArgument, "sell order requires a buy bet reference")

	// ErrParentMismatch is returned when a sell's parent buy belongs to a
	// different user, event or option.
	ErrParentMismatch = newError(CodeInvalidArgument, "referenced buy does not match the sell order")

	// ErrOverSell is returned when a sell exceeds the parent buy's matched,
	// not-yet-sold quantity.
	ErrOverSell = newError(CodeInvalidArgument, "sell quantity exceeds the matched quantity available")

	// ErrQuantityOverUnmatched is returned when a cancellation asks for more
	// than the bet's unmatched quantity.
	ErrQuantityOverUnmatched = newError(CodeInvalidArgument, "quantity exceeds the unmatched quantity")

	// ErrInvalidOrder is returned for malformed order parameters.
	ErrInvalidOrder = newError(CodeInvalidArgument, "invalid order parameters")

	// ErrInsufficientFunds is returned when the user's combined main and
	// reward balance cannot cover an order.
	ErrInsufficientFunds = newError(CodeInsufficientFunds, "insufficient balance")

	// ErrRateLimited is returned when the per-user single-flight lock is
	// already held: only one bet order at a time per user.
	ErrRateLimited = newError(CodeRateLimit, "only one bet order at a time per user")

	// ErrConflict is returned on an optimistic state mismatch.
	ErrConflict = newError(CodeConflict, "state changed concurrently")

	// ErrInternal wraps unexpected store failures.
	ErrInternal = newError(CodeInternal, "internal error")
)

// ──────────────────────────────────────────────────────────────────────────────
// Helper predicates
// ──────────────────────────────────────────────────────────────────────────────

// CodeOf extracts the stable code from an error chain. Unrecognised errors
// report CodeInternal: store failures are never surfaced verbatim.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// IsNotFound returns true when err (or any error in its chain) carries the
// NOT_FOUND code.
func IsNotFound(err error) bool {
	return CodeOf(err) == CodeNotFound
}

// IsRateLimited returns true for per-user lock contention.
func IsRateLimited(err error) bool {
	return CodeOf(err) == CodeRateLimit
}
