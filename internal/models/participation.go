package models

import (
	"time"

	"github.com/google/uuid"
)

// Participation tracks one user's registration for one session.
// Lifecycle: registered -> paid, or registered -> cancelled. Paid and
// cancelled are terminal. An unpaid row past ExpiresAt no longer counts
// against capacity.
type Participation struct {
	ID           uuid.UUID  `json:"id"`
	SessionID    uuid.UUID  `json:"session_id"`
	UserID       uuid.UUID  `json:"user_id"`
	RegisteredAt time.Time  `json:"registered_at"`
	PaidAt       *time.Time `json:"paid_at,omitempty"`
	CancelledAt  *time.Time `json:"cancelled_at,omitempty"`
	ExpiresAt    time.Time  `json:"expires_at"`
}

func (p *Participation) IsPaid() bool {
	return p.PaidAt != nil
}

func (p *Participation) IsCancelled() bool {
	return p.CancelledAt != nil
}

func (p *Participation) IsActive(now time.Time) bool {
	if p.CancelledAt != nil {
		return false
	}
	if p.PaidAt != nil {
		return true
	}
	return now.Before(p.ExpiresAt)
}
