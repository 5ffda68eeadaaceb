package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/saeid-a/CoachMarketBack/internal/models"
)

type PayoutAccountRepository struct {
	db DBTX
}

func NewPayoutAccountRepository(db DBTX) *PayoutAccountRepository {
	return &PayoutAccountRepository{db: db}
}

func (r *PayoutAccountRepository) GetByCoachID(ctx context.Context, coachID uuid.UUID) (*models.PayoutAccount, error) {
	query := `
		SELECT coach_id, provider_account_id, payouts_enabled, created_at, updated_at
		FROM coach_payout_accounts
		WHERE coach_id = $1
	`
	var account models.PayoutAccount
	err := r.db.QueryRow(ctx, query, coachID).Scan(
		&account.CoachID,
		&account.ProviderAccountID,
		&account.PayoutsEnabled,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// Upsert records the provider account created for a coach. Re-running
// onboarding replaces the provider account id and drops payouts_enabled
// until the provider confirms the new account.
func (r *PayoutAccountRepository) Upsert(
	ctx context.Context,
	coachID uuid.UUID,
	providerAccountID string,
) (*models.PayoutAccount, error) {
	query := `
		INSERT INTO coach_payout_accounts (coach_id, provider_account_id)
		VALUES ($1, $2)
		ON CONFLICT (coach_id) DO UPDATE
		SET provider_account_id = EXCLUDED.provider_account_id,
		    payouts_enabled = FALSE,
		    updated_at = NOW()
		RETURNING coach_id, provider_account_id, payouts_enabled, created_at, updated_at
	`
	var account models.PayoutAccount
	err := r.db.QueryRow(ctx, query, coachID, providerAccountID).Scan(
		&account.CoachID,
		&account.ProviderAccountID,
		&account.PayoutsEnabled,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// UpdateCapabilities mirrors the provider's account.updated callback into
// local state.
func (r *PayoutAccountRepository) UpdateCapabilities(
	ctx context.Context,
	providerAccountID string,
	payoutsEnabled bool,
) error {
	query := `
		UPDATE coach_payout_accounts
		SET payouts_enabled = $2, updated_at = NOW()
		WHERE provider_account_id = $1
	`
	_, err := r.db.Exec(ctx, query, providerAccountID, payoutsEnabled)
	return err
}
