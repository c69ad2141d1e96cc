// Package errors holds the error taxonomy shared by the service layer and
// the HTTP boundary. Specific failures wrap one of the base sentinels so
// callers classify them with errors.Is.
package errors

import (
	"errors"
	"fmt"
)

var (
	ErrUnauthenticated = errors.New("user is not authenticated")
	ErrForbidden       = errors.New("operation is forbidden for user")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("conflict")
	ErrInvalid         = errors.New("invalid input")

	// ErrCapacityExceeded is an internal signal: the standard booking path
	// routes it to the waitlist instead of failing the request.
	ErrCapacityExceeded = errors.New("event is at capacity")
)

var (
	ErrDuplicateEntry   = fmt.Errorf("%w: requester is already on the waitlist", ErrConflict)
	ErrTicketExists     = fmt.Errorf("%w: ticket already issued for booking", ErrConflict)
	ErrAlreadyCheckedIn = fmt.Errorf("%w: ticket already checked in", ErrConflict)
	ErrAlreadyConverted = fmt.Errorf("%w: waitlist entry already converted", ErrConflict)
)

// Invalidf returns an ErrInvalid carrying a human readable reason.
func Invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

// NotFoundf returns an ErrNotFound naming the missing entity.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrNotFound, fmt.Sprintf(format, args...))
}

func IsNotFound(err error) bool  { return errors.Is(err, ErrNotFound) }
func IsConflict(err error) bool  { return errors.Is(err, ErrConflict) }
func IsForbidden(err error) bool { return errors.Is(err, ErrForbidden) }
func IsInvalid(err error) bool   { return errors.Is(err, ErrInvalid) }
