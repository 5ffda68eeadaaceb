package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	SessionStatusScheduled = "scheduled"
	SessionStatusCancelled = "cancelled"
)

type Session struct {
	ID          uuid.UUID  `json:"id"`
	CoachID     uuid.UUID  `json:"coach_id"`
	Title       string     `json:"title"`
	StartsAt    time.Time  `json:"starts_at"`
	EndsAt      time.Time  `json:"ends_at"`
	Status      string     `json:"status"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
	PriceCents  int64      `json:"price_cents"`
	Currency    string     `json:"currency"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (s *Session) IsCancelled() bool {
	return s.Status == SessionStatusCancelled
}

func (s *Session) IsStarted(now time.Time) bool {
	return !now.Before(s.StartsAt)
}

func (s *Session) IsFinished(now time.Time) bool {
	return !now.Before(s.EndsAt)
}

// SessionDetail is the read shape returned by catalog queries.
type SessionDetail struct {
	Session
	ActiveParticipants int `json:"active_participants"`
}
