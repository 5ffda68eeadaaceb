package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/saeid-a/CoachMarketBack/internal/models"
)

const creditColumns = `id, user_id, amount_cents, currency, cause, balance_after_cents, payment_id, created_at`

type AppendCreditInput struct {
	UserID      uuid.UUID
	AmountCents int64
	Currency    string
	Cause       string
	PaymentID   *uuid.UUID
}

type CreditListFilter struct {
	UserID uuid.UUID
	From   *time.Time
	To     *time.Time
	Limit  int
	Offset int
}

type CreditRepository struct {
	db DBTX
}

func NewCreditRepository(db DBTX) *CreditRepository {
	return &CreditRepository{db: db}
}

func creditLockKey(userID uuid.UUID, currency string) string {
	return fmt.Sprintf("credit:%s:%s", userID, currency)
}

// Lock serializes ledger appends and reservation reads for one
// (user, currency) balance within the current transaction.
func (r *CreditRepository) Lock(ctx context.Context, userID uuid.UUID, currency string) error {
	return AcquireTxLock(ctx, r.db, creditLockKey(userID, currency))
}

func (r *CreditRepository) Balance(ctx context.Context, userID uuid.UUID, currency string) (int64, error) {
	query := `
		SELECT COALESCE((
			SELECT balance_after_cents
			FROM credit_ledger
			WHERE user_id = $1 AND currency = $2
			ORDER BY seq DESC
			LIMIT 1
		), 0)
	`
	var balance int64
	if err := r.db.QueryRow(ctx, query, userID, currency).Scan(&balance); err != nil {
		return 0, err
	}
	return balance, nil
}

// HeldCredit sums the credit reserved by the user's open payment intents.
// Reserved credit is not yet in the ledger but must not be spendable twice.
func (r *CreditRepository) HeldCredit(ctx context.Context, userID uuid.UUID, currency string) (int64, error) {
	query := `
		SELECT COALESCE(SUM(credit_applied_cents), 0)
		FROM payment_intents
		WHERE user_id = $1
		  AND currency = $2
		  AND status NOT IN ('succeeded', 'canceled', 'payment_failed')
	`
	var held int64
	if err := r.db.QueryRow(ctx, query, userID, currency).Scan(&held); err != nil {
		return 0, err
	}
	return held, nil
}

// Append inserts an immutable ledger row whose balance_after is computed
// from the latest row in the same statement. Callers hold Lock for the
// (user, currency) pair; the CHECK (balance_after_cents >= 0) constraint is
// the backstop against a negative result.
func (r *CreditRepository) Append(ctx context.Context, input AppendCreditInput) (*models.CreditEntry, error) {
	query := `
		INSERT INTO credit_ledger (user_id, amount_cents, currency, cause, balance_after_cents, payment_id)
		SELECT $1, $2, $3, $4,
		       COALESCE((
		           SELECT balance_after_cents
		           FROM credit_ledger
		           WHERE user_id = $1 AND currency = $3
		           ORDER BY seq DESC
		           LIMIT 1
		       ), 0) + $2,
		       $5
		RETURNING ` + creditColumns

	var entry models.CreditEntry
	err := r.db.QueryRow(
		ctx,
		query,
		input.UserID,
		input.AmountCents,
		input.Currency,
		input.Cause,
		input.PaymentID,
	).Scan(
		&entry.ID,
		&entry.UserID,
		&entry.AmountCents,
		&entry.Currency,
		&entry.Cause,
		&entry.BalanceAfterCents,
		&entry.PaymentID,
		&entry.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *CreditRepository) List(ctx context.Context, filter CreditListFilter) ([]models.CreditEntry, bool, error) {
	query := `
		SELECT ` + creditColumns + `
		FROM credit_ledger
		WHERE user_id = $1
		  AND ($2::timestamptz IS NULL OR created_at >= $2)
		  AND ($3::timestamptz IS NULL OR created_at <= $3)
		ORDER BY seq DESC
		LIMIT $4 OFFSET $5
	`
	rows, err := r.db.Query(ctx, query, filter.UserID, filter.From, filter.To, filter.Limit+1, filter.Offset)
	if err != nil {
		return nil, false, err
	}
	defer rows.Close()

	entries := make([]models.CreditEntry, 0)
	for rows.Next() {
		var entry models.CreditEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.UserID,
			&entry.AmountCents,
			&entry.Currency,
			&entry.Cause,
			&entry.BalanceAfterCents,
			&entry.PaymentID,
			&entry.CreatedAt,
		); err != nil {
			return nil, false, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, false, err
	}

	hasMore := len(entries) > filter.Limit
	if hasMore {
		entries = entries[:filter.Limit]
	}
	return entries, hasMore, nil
}
