package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound        = errors.New("entity not found")
	ErrInvalidArgument = errors.New("invalid argument")

	// Booking orchestration
	ErrNoAvailability  = errors.New("no apartments available for the requested dates")
	ErrLinkUnavailable = errors.New("offer link could not be created")
	ErrBookingRejected = errors.New("booking was rejected by the calendar")
	ErrCancelFailed    = errors.New("booking cancellation failed")
	ErrInvalidDates    = errors.New("check-out must be after check-in")

	// Oracle / payment portal
	ErrMalformedOracleOutput = errors.New("oracle output could not be parsed")
	ErrAuthExpired           = errors.New("portal session is no longer authorized")
	ErrConversationLocked    = errors.New("conversation is being handled by another worker")
)
