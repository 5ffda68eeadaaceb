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

// RegistrationService books users onto sessions. Capacity, the duplicate
// check and the insert run as one guarded statement under a per-session
// advisory lock, so two concurrent registrations for the last slot cannot
// both succeed.
type RegistrationService struct {
	db              *pgxpool.Pool
	clock           clock.Clock
	provider        PaymentProvider
	userRepo        accountReader
	capacity        int
	ttl             time.Duration
	providerTimeout time.Duration
}

func NewRegistrationService(
	db *pgxpool.Pool,
	clk clock.Clock,
	provider PaymentProvider,
	userRepo *repository.UserRepository,
	capacity int,
	ttl time.Duration,
	providerTimeout time.Duration,
) *RegistrationService {
	return &RegistrationService{
		db:              db,
		clock:           clk,
		provider:        provider,
		userRepo:        userRepo,
		capacity:        capacity,
		ttl:             ttl,
		providerTimeout: providerTimeout,
	}
}

// RegistrationResult tells the caller whether a provider confirmation round
// is still needed and, if so, which client secret to confirm with.
type RegistrationResult struct {
	Participation      *models.Participation
	RequiresPayment    bool
	ClientSecret       string
	CreditAppliedCents int64
	ChargeCents        int64
}

// splitCharge computes how much of the price available credit covers and
// how much must go through the provider.
func splitCharge(availableCredit, priceCents int64) (creditApplied, chargeCents int64) {
	if availableCredit < 0 {
		availableCredit = 0
	}
	creditApplied = availableCredit
	if creditApplied > priceCents {
		creditApplied = priceCents
	}
	return creditApplied, priceCents - creditApplied
}

func sessionLockKey(sessionID uuid.UUID) string {
	return "session-registration:" + sessionID.String()
}

func (s *RegistrationService) Register(
	ctx context.Context,
	actor models.Actor,
	sessionID uuid.UUID,
) (*RegistrationResult, error) {
	if err := guardActor(ctx, s.userRepo, actor, models.PermissionSessionRegister); err != nil {
		return nil, err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txSessionRepo := repository.NewSessionRepository(tx)
	txParticipationRepo := repository.NewParticipationRepository(tx)
	txCreditRepo := repository.NewCreditRepository(tx)
	txIntentRepo := repository.NewPaymentIntentRepository(tx)

	if err := repository.AcquireTxLock(ctx, tx, sessionLockKey(sessionID)); err != nil {
		return nil, err
	}

	session, err := txSessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	if session.IsCancelled() {
		return nil, ErrSessionCancelled
	}
	now := s.clock.Now()
	if session.IsStarted(now) {
		return nil, ErrSessionStarted
	}
	if session.CoachID == actor.ID {
		// A coach cannot take a slot in their own session.
		return nil, ErrForbidden
	}

	// Expired unpaid registrations stop counting against capacity here, at
	// the only moment capacity matters again.
	if err := txParticipationRepo.ReapExpired(ctx, sessionID, now); err != nil {
		return nil, err
	}

	participation, err := txParticipationRepo.CreateIfCapacityLeft(
		ctx,
		sessionID,
		actor.ID,
		now.Add(s.ttl),
		s.capacity,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) || repository.IsUniqueViolation(err) {
			active, activeErr := txParticipationRepo.HasActive(ctx, sessionID, actor.ID)
			if activeErr != nil {
				return nil, activeErr
			}
			if active {
				return nil, ErrAlreadyRegistered
			}
			return nil, ErrSessionFull
		}
		return nil, err
	}

	result := &RegistrationResult{Participation: participation}

	if session.PriceCents == 0 {
		if err := txParticipationRepo.MarkPaid(ctx, sessionID, actor.ID, now); err != nil {
			return nil, err
		}
		if err := tx.Commit(ctx); err != nil {
			return nil, err
		}
		return result, nil
	}

	// Credit reads and the later append serialize on the same advisory
	// lock, and credit already promised to open intents is subtracted so
	// it cannot be promised twice.
	if err := txCreditRepo.Lock(ctx, actor.ID, session.Currency); err != nil {
		return nil, err
	}
	balance, err := txCreditRepo.Balance(ctx, actor.ID, session.Currency)
	if err != nil {
		return nil, err
	}
	held, err := txCreditRepo.HeldCredit(ctx, actor.ID, session.Currency)
	if err != nil {
		return nil, err
	}
	creditApplied, chargeCents := splitCharge(balance-held, session.PriceCents)
	result.CreditAppliedCents = creditApplied
	result.ChargeCents = chargeCents

	if chargeCents == 0 {
		// Credit alone covers the price: consume it now and skip the
		// provider entirely.
		if _, err := txCreditRepo.Append(ctx, repository.AppendCreditInput{
			UserID:      actor.ID,
			AmountCents: -creditApplied,
			Currency:    session.Currency,
			Cause:       models.CreditCauseSessionUsage,
		}); err != nil {
			if repository.IsCheckViolation(err) {
				return nil, ErrCreditNegative
			}
			return nil, err
		}
		if err := txParticipationRepo.MarkPaid(ctx, sessionID, actor.ID, now); err != nil {
			return nil, err
		}
		if err := tx.Commit(ctx); err != nil {
			return nil, err
		}
		return result, nil
	}

	// The remainder goes through the provider. Credit is only reserved on
	// the intent here; the ledger entry is posted when the provider
	// confirms, so a declined card never costs credit.
	intent, err := txIntentRepo.Create(ctx, repository.CreatePaymentIntentInput{
		UserID:             actor.ID,
		SessionID:          sessionID,
		Provider:           models.PaymentProviderStripe,
		Status:             models.IntentStatusCreated,
		CreditAppliedCents: creditApplied,
		AmountCents:        chargeCents,
		Currency:           session.Currency,
	})
	if err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, ErrDuplicateIntent
		}
		return nil, err
	}

	providerCtx, cancel := context.WithTimeout(ctx, s.providerTimeout)
	defer cancel()
	providerIntent, err := s.provider.CreateIntent(providerCtx, chargeCents, session.Currency, map[string]string{
		"session_id": sessionID.String(),
		"user_id":    actor.ID.String(),
	})
	if err != nil {
		if errors.Is(err, ErrProviderFailure) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrProviderFailure, err)
	}

	if _, err := txIntentRepo.AttachProviderIntent(ctx, intent.ID, providerIntent.ID, providerIntent.Status); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	result.RequiresPayment = true
	result.ClientSecret = providerIntent.ClientSecret
	return result, nil
}

// CancelRegistration cancels the actor's active participation.
func (s *RegistrationService) CancelRegistration(
	ctx context.Context,
	actor models.Actor,
	sessionID uuid.UUID,
) error {
	if err := guardActor(ctx, s.userRepo, actor, models.PermissionSessionRegister); err != nil {
		return err
	}

	sessionRepo := repository.NewSessionRepository(s.db)
	participationRepo := repository.NewParticipationRepository(s.db)

	if _, err := sessionRepo.GetByID(ctx, sessionID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrSessionNotFound
		}
		return err
	}

	if _, err := participationRepo.CancelActive(ctx, sessionID, actor.ID, s.clock.Now()); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNoParticipation
		}
		return err
	}
	return nil
}
