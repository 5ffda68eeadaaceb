package models

import (
	"time"

	"github.com/google/uuid"
)

// Credit ledger causes. The ledger is append-only; the current balance for
// a (user, currency) pair is the BalanceAfterCents of the latest entry.
const (
	CreditCausePayment          = "payment"
	CreditCauseRefund           = "refund"
	CreditCauseSessionUsage     = "session_usage"
	CreditCauseSessionCancelled = "session_cancelled"
	CreditCauseAdminAdjustment  = "admin_adjustment"
)

type CreditEntry struct {
	ID                uuid.UUID  `json:"id"`
	UserID            uuid.UUID  `json:"user_id"`
	AmountCents       int64      `json:"amount_cents"`
	Currency          string     `json:"currency"`
	Cause             string     `json:"cause"`
	BalanceAfterCents int64      `json:"balance_after_cents"`
	PaymentID         *uuid.UUID `json:"payment_id,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
}
