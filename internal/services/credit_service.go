package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/saeid-a/CoachMarketBack/internal/models"
	"github.com/saeid-a/CoachMarketBack/internal/repository"
)

type CreditService struct {
	db       *pgxpool.Pool
	userRepo accountReader
}

func NewCreditService(db *pgxpool.Pool, userRepo *repository.UserRepository) *CreditService {
	return &CreditService{db: db, userRepo: userRepo}
}

func (s *CreditService) Balance(ctx context.Context, actor models.Actor, currency string) (int64, error) {
	if err := guardActor(ctx, s.userRepo, actor, models.PermissionCreditRead); err != nil {
		return 0, err
	}
	return repository.NewCreditRepository(s.db).Balance(ctx, actor.ID, strings.ToLower(currency))
}

func (s *CreditService) ListEntries(
	ctx context.Context,
	actor models.Actor,
	filter repository.CreditListFilter,
) ([]models.CreditEntry, bool, error) {
	if err := guardActor(ctx, s.userRepo, actor, models.PermissionCreditRead); err != nil {
		return nil, false, err
	}
	filter.UserID = actor.ID
	return repository.NewCreditRepository(s.db).List(ctx, filter)
}

// AdminAdjust appends a signed admin_adjustment entry to another user's
// ledger. A negative adjustment larger than the spendable balance is
// rejected, not clamped. Spendable means ledger balance minus credit
// reserved on open intents: that reservation will be posted by the
// reconciler and must still fit.
func (s *CreditService) AdminAdjust(
	ctx context.Context,
	actor models.Actor,
	userID uuid.UUID,
	amountCents int64,
	currency string,
) (*models.CreditEntry, error) {
	if err := guardActor(ctx, s.userRepo, actor, models.PermissionCreditAdjust); err != nil {
		return nil, err
	}
	if amountCents == 0 {
		return nil, fmt.Errorf("%w: amount must not be zero", ErrInvalidInput)
	}
	if err := validateCurrency(currency); err != nil {
		return nil, err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txCreditRepo := repository.NewCreditRepository(tx)
	if err := txCreditRepo.Lock(ctx, userID, strings.ToLower(currency)); err != nil {
		return nil, err
	}

	if amountCents < 0 {
		balance, err := txCreditRepo.Balance(ctx, userID, strings.ToLower(currency))
		if err != nil {
			return nil, err
		}
		held, err := txCreditRepo.HeldCredit(ctx, userID, strings.ToLower(currency))
		if err != nil {
			return nil, err
		}
		if -amountCents > balance-held {
			return nil, ErrCreditNegative
		}
	}

	entry, err := txCreditRepo.Append(ctx, repository.AppendCreditInput{
		UserID:      userID,
		AmountCents: amountCents,
		Currency:    strings.ToLower(currency),
		Cause:       models.CreditCauseAdminAdjustment,
	})
	if err != nil {
		if repository.IsCheckViolation(err) {
			return nil, ErrCreditNegative
		}
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return entry, nil
}
