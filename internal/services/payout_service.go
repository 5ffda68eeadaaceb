package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/saeid-a/CoachMarketBack/internal/common/clock"
	"github.com/saeid-a/CoachMarketBack/internal/models"
	"github.com/saeid-a/CoachMarketBack/internal/repository"
)

// PayoutService owns the coach money side: provider account onboarding and
// transferring a finished session's captured revenue, exactly once per
// session.
type PayoutService struct {
	db              *pgxpool.Pool
	clock           clock.Clock
	provider        PaymentProvider
	userRepo        *repository.UserRepository
	providerTimeout time.Duration
	refreshURL      string
	returnURL       string
}

func NewPayoutService(
	db *pgxpool.Pool,
	clk clock.Clock,
	provider PaymentProvider,
	userRepo *repository.UserRepository,
	providerTimeout time.Duration,
	refreshURL string,
	returnURL string,
) *PayoutService {
	return &PayoutService{
		db:              db,
		clock:           clk,
		provider:        provider,
		userRepo:        userRepo,
		providerTimeout: providerTimeout,
		refreshURL:      refreshURL,
		returnURL:       returnURL,
	}
}

// OnboardingLink points the coach at the provider's hosted onboarding flow
// for the account payouts will be transferred to.
type OnboardingLink struct {
	URL               string
	ProviderAccountID string
	PayoutsEnabled    bool
}

// CreateOnboardingLink provisions the coach's provider account on first
// call and returns a fresh onboarding URL either way. Payouts stay disabled
// until the provider's account.updated callback confirms them.
func (s *PayoutService) CreateOnboardingLink(ctx context.Context, actor models.Actor) (*OnboardingLink, error) {
	if err := guardActor(ctx, s.userRepo, actor, models.PermissionPayoutCreate); err != nil {
		return nil, err
	}

	accountRepo := repository.NewPayoutAccountRepository(s.db)
	account, err := accountRepo.GetByCoachID(ctx, actor.ID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	if account == nil {
		user, err := s.userRepo.GetByID(ctx, actor.ID)
		if err != nil {
			return nil, err
		}

		providerCtx, cancel := context.WithTimeout(ctx, s.providerTimeout)
		accountID, err := s.provider.CreateAccount(providerCtx, user.Email)
		cancel()
		if err != nil {
			if errors.Is(err, ErrProviderFailure) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: %v", ErrProviderFailure, err)
		}

		account, err = accountRepo.Upsert(ctx, actor.ID, accountID)
		if err != nil {
			return nil, err
		}
	}

	linkCtx, cancel := context.WithTimeout(ctx, s.providerTimeout)
	defer cancel()
	linkURL, err := s.provider.CreateAccountLink(linkCtx, account.ProviderAccountID, s.refreshURL, s.returnURL)
	if err != nil {
		if errors.Is(err, ErrProviderFailure) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrProviderFailure, err)
	}

	return &OnboardingLink{
		URL:               linkURL,
		ProviderAccountID: account.ProviderAccountID,
		PayoutsEnabled:    account.PayoutsEnabled,
	}, nil
}

// PayoutResult reports what was transferred. A session with nothing
// captured yields a zero result and no provider call.
type PayoutResult struct {
	Payment          *models.Payment
	TransferredCents int64
	Currency         string
}

func (s *PayoutService) Payout(ctx context.Context, actor models.Actor, sessionID uuid.UUID) (*PayoutResult, error) {
	if err := guardActor(ctx, s.userRepo, actor, models.PermissionPayoutCreate); err != nil {
		return nil, err
	}

	account, err := repository.NewPayoutAccountRepository(s.db).GetByCoachID(ctx, actor.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPayoutAccount
		}
		return nil, err
	}
	if !account.PayoutsEnabled {
		return nil, ErrPayoutAccount
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txSessionRepo := repository.NewSessionRepository(tx)
	txPaymentRepo := repository.NewPaymentRepository(tx)

	// One payout per session: serialize on the session and re-check the
	// payout record inside the lock.
	if err := repository.AcquireTxLock(ctx, tx, "payout:"+sessionID.String()); err != nil {
		return nil, err
	}

	session, err := txSessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	if session.CoachID != actor.ID {
		return nil, ErrForbidden
	}
	if session.IsCancelled() {
		return nil, ErrSessionCancelled
	}
	if !session.IsFinished(s.clock.Now()) {
		return nil, ErrSessionNotFinished
	}

	alreadyPaid, err := txPaymentRepo.PayoutExists(ctx, sessionID, actor.ID)
	if err != nil {
		return nil, err
	}
	if alreadyPaid {
		return nil, ErrAlreadyPaidOut
	}

	total, currency, err := txPaymentRepo.SumCapturedNet(ctx, sessionID, actor.ID)
	if err != nil {
		return nil, err
	}
	if total == 0 {
		// Nothing captured, nothing to transfer. Still a success.
		if err := tx.Commit(ctx); err != nil {
			return nil, err
		}
		return &PayoutResult{TransferredCents: 0, Currency: session.Currency}, nil
	}

	providerCtx, cancel := context.WithTimeout(ctx, s.providerTimeout)
	defer cancel()
	transferID, err := s.provider.CreateTransfer(providerCtx, total, currency, account.ProviderAccountID, map[string]string{
		"session_id": sessionID.String(),
		"coach_id":   actor.ID.String(),
	})
	if err != nil {
		if errors.Is(err, ErrProviderFailure) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrProviderFailure, err)
	}

	payment, err := txPaymentRepo.Create(ctx, repository.CreatePaymentInput{
		SessionID:         sessionID,
		UserID:            actor.ID,
		Provider:          models.PaymentProviderStripe,
		ProviderPaymentID: transferID,
		GrossAmountCents:  total,
		ProviderFeeCents:  0,
		NetAmountCents:    total,
		Currency:          currency,
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return &PayoutResult{
		Payment:          payment,
		TransferredCents: total,
		Currency:         currency,
	}, nil
}
