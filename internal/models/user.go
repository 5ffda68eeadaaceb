package models

import (
	"time"

	"github.com/google/uuid"
)

// User is read-only in this service: it exists for ownership and
// disabled-account checks. Account management lives elsewhere.
type User struct {
	ID          uuid.UUID  `json:"id"`
	Email       string     `json:"email"`
	DisplayName string     `json:"display_name"`
	DisabledAt  *time.Time `json:"disabled_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func (u *User) IsDisabled() bool {
	return u.DisabledAt != nil
}
