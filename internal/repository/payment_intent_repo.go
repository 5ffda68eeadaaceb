package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/saeid-a/CoachMarketBack/internal/models"
)

const paymentIntentColumns = `id, user_id, session_id, provider, provider_intent_id, status, credit_applied_cents, amount_cents, currency, created_at, updated_at`

type CreatePaymentIntentInput struct {
	UserID             uuid.UUID
	SessionID          uuid.UUID
	Provider           string
	Status             string
	CreditAppliedCents int64
	AmountCents        int64
	Currency           string
}

type PaymentIntentRepository struct {
	db DBTX
}

func NewPaymentIntentRepository(db DBTX) *PaymentIntentRepository {
	return &PaymentIntentRepository{db: db}
}

func scanPaymentIntent(row interface{ Scan(dest ...any) error }) (*models.PaymentIntent, error) {
	var intent models.PaymentIntent
	err := row.Scan(
		&intent.ID,
		&intent.UserID,
		&intent.SessionID,
		&intent.Provider,
		&intent.ProviderIntentID,
		&intent.Status,
		&intent.CreditAppliedCents,
		&intent.AmountCents,
		&intent.Currency,
		&intent.CreatedAt,
		&intent.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &intent, nil
}

// Create inserts a new intent with no provider id yet. The partial unique
// index on open intents rejects a second attempt for the same
// (user, session, provider) identity.
func (r *PaymentIntentRepository) Create(ctx context.Context, input CreatePaymentIntentInput) (*models.PaymentIntent, error) {
	query := `
		INSERT INTO payment_intents (user_id, session_id, provider, status, credit_applied_cents, amount_cents, currency)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + paymentIntentColumns
	return scanPaymentIntent(r.db.QueryRow(
		ctx,
		query,
		input.UserID,
		input.SessionID,
		input.Provider,
		input.Status,
		input.CreditAppliedCents,
		input.AmountCents,
		input.Currency,
	))
}

// AttachProviderIntent fills in the provider-assigned id once the provider
// call has succeeded.
func (r *PaymentIntentRepository) AttachProviderIntent(
	ctx context.Context,
	intentID uuid.UUID,
	providerIntentID string,
	status string,
) (*models.PaymentIntent, error) {
	query := `
		UPDATE payment_intents
		SET provider_intent_id = $2, status = $3, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + paymentIntentColumns
	return scanPaymentIntent(r.db.QueryRow(ctx, query, intentID, providerIntentID, status))
}

// MarkStatus records the provider-reported status. Pure status write; the
// reconciliation processor drives every side effect.
func (r *PaymentIntentRepository) MarkStatus(ctx context.Context, providerIntentID, status string) error {
	query := `
		UPDATE payment_intents
		SET status = $2, updated_at = NOW()
		WHERE provider_intent_id = $1
	`
	_, err := r.db.Exec(ctx, query, providerIntentID, status)
	return err
}

func (r *PaymentIntentRepository) GetByProviderID(ctx context.Context, providerIntentID string) (*models.PaymentIntent, error) {
	query := `SELECT ` + paymentIntentColumns + ` FROM payment_intents WHERE provider_intent_id = $1`
	return scanPaymentIntent(r.db.QueryRow(ctx, query, providerIntentID))
}

func (r *PaymentIntentRepository) GetByProviderIDForUpdate(ctx context.Context, providerIntentID string) (*models.PaymentIntent, error) {
	query := `SELECT ` + paymentIntentColumns + ` FROM payment_intents WHERE provider_intent_id = $1 FOR UPDATE`
	return scanPaymentIntent(r.db.QueryRow(ctx, query, providerIntentID))
}

func (r *PaymentIntentRepository) IntentExists(ctx context.Context, providerIntentID string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM payment_intents WHERE provider_intent_id = $1
		)
	`
	var exists bool
	if err := r.db.QueryRow(ctx, query, providerIntentID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// GetSucceededForSessionUser resolves how much credit a paid participation
// consumed through a provider charge, used when a cancelled session
// restores credit.
func (r *PaymentIntentRepository) GetSucceededForSessionUser(
	ctx context.Context,
	sessionID uuid.UUID,
	userID uuid.UUID,
) (*models.PaymentIntent, error) {
	query := `
		SELECT ` + paymentIntentColumns + `
		FROM payment_intents
		WHERE session_id = $1 AND user_id = $2 AND status = 'succeeded'
		ORDER BY updated_at DESC
		LIMIT 1
	`
	return scanPaymentIntent(r.db.QueryRow(ctx, query, sessionID, userID))
}
