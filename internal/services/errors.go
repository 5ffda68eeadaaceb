package services

import "errors"

// Domain error taxonomy. Handlers translate these to HTTP statuses; the
// services themselves never swallow them.
var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrForbidden          = errors.New("forbidden")
	ErrAccountDisabled    = errors.New("account disabled")
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionCancelled   = errors.New("session cancelled")
	ErrSessionStarted     = errors.New("session already started")
	ErrSessionNotFinished = errors.New("session not finished")
	ErrOverlap            = errors.New("overlapping session")
	ErrSessionFull        = errors.New("session is full")
	ErrAlreadyRegistered  = errors.New("already registered")
	ErrNoParticipation    = errors.New("no active participation")
	ErrDuplicateIntent    = errors.New("payment intent already exists")
	ErrCreditNegative     = errors.New("credit balance would go negative")
	ErrAlreadyPaidOut     = errors.New("session already paid out")
	ErrPayoutAccount      = errors.New("payout account missing or not enabled")
	ErrProviderFailure    = errors.New("payment provider failure")
)
