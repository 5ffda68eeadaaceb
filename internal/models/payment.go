package models

import (
	"time"

	"github.com/google/uuid"
)

const PaymentProviderStripe = "stripe"

// Provider intent statuses we assign locally. Everything else is stored as
// reported by the provider.
const (
	IntentStatusCreated       = "created"
	IntentStatusSucceeded     = "succeeded"
	IntentStatusCanceled      = "canceled"
	IntentStatusPaymentFailed = "payment_failed"
)

// PaymentIntent records one attempt to charge a user for the uncredited
// portion of a session price. CreditAppliedCents is a reservation: it is
// posted to the credit ledger only when the provider confirms the charge.
type PaymentIntent struct {
	ID                 uuid.UUID `json:"id"`
	UserID             uuid.UUID `json:"user_id"`
	SessionID          uuid.UUID `json:"session_id"`
	Provider           string    `json:"provider"`
	ProviderIntentID   *string   `json:"provider_intent_id,omitempty"`
	Status             string    `json:"status"`
	CreditAppliedCents int64     `json:"credit_applied_cents"`
	AmountCents        int64     `json:"amount_cents"`
	Currency           string    `json:"currency"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// Payment is an immutable record of money that actually moved: a capture
// from a user, or a payout transfer to a coach.
type Payment struct {
	ID                uuid.UUID `json:"id"`
	SessionID         uuid.UUID `json:"session_id"`
	UserID            uuid.UUID `json:"user_id"`
	Provider          string    `json:"provider"`
	ProviderPaymentID string    `json:"provider_payment_id"`
	GrossAmountCents  int64     `json:"gross_amount_cents"`
	ProviderFeeCents  int64     `json:"provider_fee_cents"`
	NetAmountCents    int64     `json:"net_amount_cents"`
	Currency          string    `json:"currency"`
	CreatedAt         time.Time `json:"created_at"`
}

// PayoutAccount links a coach to their provider-side payout destination.
type PayoutAccount struct {
	CoachID           uuid.UUID `json:"coach_id"`
	ProviderAccountID string    `json:"provider_account_id"`
	PayoutsEnabled    bool      `json:"payouts_enabled"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}
