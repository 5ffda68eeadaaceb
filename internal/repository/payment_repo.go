package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/saeid-a/CoachMarketBack/internal/models"
)

const paymentColumns = `id, session_id, user_id, provider, provider_payment_id, gross_amount_cents, provider_fee_cents, net_amount_cents, currency, created_at`

type CreatePaymentInput struct {
	SessionID         uuid.UUID
	UserID            uuid.UUID
	Provider          string
	ProviderPaymentID string
	GrossAmountCents  int64
	ProviderFeeCents  int64
	NetAmountCents    int64
	Currency          string
}

type PaymentRepository struct {
	db DBTX
}

func NewPaymentRepository(db DBTX) *PaymentRepository {
	return &PaymentRepository{db: db}
}

func scanPayment(row interface{ Scan(dest ...any) error }) (*models.Payment, error) {
	var payment models.Payment
	err := row.Scan(
		&payment.ID,
		&payment.SessionID,
		&payment.UserID,
		&payment.Provider,
		&payment.ProviderPaymentID,
		&payment.GrossAmountCents,
		&payment.ProviderFeeCents,
		&payment.NetAmountCents,
		&payment.Currency,
		&payment.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// Create appends an immutable payment row. The unique
// (provider, provider_payment_id) constraint rejects replayed captures.
func (r *PaymentRepository) Create(ctx context.Context, input CreatePaymentInput) (*models.Payment, error) {
	query := `
		INSERT INTO payments (session_id, user_id, provider, provider_payment_id, gross_amount_cents, provider_fee_cents, net_amount_cents, currency)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + paymentColumns
	return scanPayment(r.db.QueryRow(
		ctx,
		query,
		input.SessionID,
		input.UserID,
		input.Provider,
		input.ProviderPaymentID,
		input.GrossAmountCents,
		input.ProviderFeeCents,
		input.NetAmountCents,
		input.Currency,
	))
}

func (r *PaymentRepository) ExistsByProviderPaymentID(ctx context.Context, provider, providerPaymentID string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM payments
			WHERE provider = $1 AND provider_payment_id = $2
		)
	`
	var exists bool
	if err := r.db.QueryRow(ctx, query, provider, providerPaymentID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// SumCapturedNet aggregates the net amount captured from participants of a
// session. Payout rows carry the coach as user_id and are excluded.
func (r *PaymentRepository) SumCapturedNet(ctx context.Context, sessionID, coachID uuid.UUID) (int64, string, error) {
	query := `
		SELECT COALESCE(SUM(net_amount_cents), 0),
		       COALESCE(MAX(currency), '')
		FROM payments
		WHERE session_id = $1 AND user_id <> $2
	`
	var total int64
	var currency string
	if err := r.db.QueryRow(ctx, query, sessionID, coachID).Scan(&total, &currency); err != nil {
		return 0, "", err
	}
	return total, currency, nil
}

// PayoutExists reports whether a transfer to the coach was already recorded
// for the session.
func (r *PaymentRepository) PayoutExists(ctx context.Context, sessionID, coachID uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM payments
			WHERE session_id = $1 AND user_id = $2
		)
	`
	var exists bool
	if err := r.db.QueryRow(ctx, query, sessionID, coachID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// ListByUser returns the user's payment history newest first, with the
// usual limit+1 look-ahead.
func (r *PaymentRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]models.Payment, bool, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, userID, limit+1, offset)
	if err != nil {
		return nil, false, err
	}
	defer rows.Close()

	payments := make([]models.Payment, 0)
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, false, err
		}
		payments = append(payments, *payment)
	}
	if err := rows.Err(); err != nil {
		return nil, false, err
	}

	hasMore := len(payments) > limit
	if hasMore {
		payments = payments[:limit]
	}
	return payments, hasMore, nil
}

func (r *PaymentRepository) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]models.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE session_id = $1
		ORDER BY created_at ASC, id ASC
	`
	rows, err := r.db.Query(ctx, query, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payments := make([]models.Payment, 0)
	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, *payment)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return payments, nil
}
