package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/saeid-a/CoachMarketBack/internal/common/clock"
	"github.com/saeid-a/CoachMarketBack/internal/models"
	"github.com/saeid-a/CoachMarketBack/internal/repository"
)

// Provider callback event types this processor reacts to. Anything else is
// a forward-compatible no-op.
const (
	EventIntentSucceeded = "payment_intent.succeeded"
	EventIntentFailed    = "payment_intent.payment_failed"
	EventIntentCanceled  = "payment_intent.canceled"
	EventAccountUpdated  = "account.updated"
)

// ProviderEvent is the provider-agnostic shape of an asynchronous callback.
type ProviderEvent struct {
	Type              string
	ProviderIntentID  string
	Status            string
	GrossAmountCents  int64
	ProviderFeeCents  int64
	NetAmountCents    int64
	ProviderAccountID string
	PayoutsEnabled    bool
}

// reconcileStore is the slice of persistence the processor needs inside one
// transaction. The production implementation bundles tx-bound repositories;
// tests substitute a stub.
type reconcileStore interface {
	IntentExists(ctx context.Context, providerIntentID string) (bool, error)
	IntentByProviderID(ctx context.Context, providerIntentID string) (*models.PaymentIntent, error)
	MarkIntentStatus(ctx context.Context, providerIntentID, status string) error
	PaymentExists(ctx context.Context, provider, providerPaymentID string) (bool, error)
	CreatePayment(ctx context.Context, input repository.CreatePaymentInput) (*models.Payment, error)
	LockCredit(ctx context.Context, userID uuid.UUID, currency string) error
	AppendCredit(ctx context.Context, input repository.AppendCreditInput) (*models.CreditEntry, error)
	MarkParticipationPaid(ctx context.Context, sessionID, userID uuid.UUID, paidAt time.Time) error
	CancelUnpaidParticipation(ctx context.Context, sessionID, userID uuid.UUID, cancelledAt time.Time) error
	UpdatePayoutAccount(ctx context.Context, providerAccountID string, payoutsEnabled bool) error
}

type txReconcileStore struct {
	intents        *repository.PaymentIntentRepository
	payments       *repository.PaymentRepository
	credits        *repository.CreditRepository
	participations *repository.ParticipationRepository
	payoutAccounts *repository.PayoutAccountRepository
}

func newTxReconcileStore(db repository.DBTX) *txReconcileStore {
	return &txReconcileStore{
		intents:        repository.NewPaymentIntentRepository(db),
		payments:       repository.NewPaymentRepository(db),
		credits:        repository.NewCreditRepository(db),
		participations: repository.NewParticipationRepository(db),
		payoutAccounts: repository.NewPayoutAccountRepository(db),
	}
}

func (s *txReconcileStore) IntentExists(ctx context.Context, providerIntentID string) (bool, error) {
	return s.intents.IntentExists(ctx, providerIntentID)
}

func (s *txReconcileStore) IntentByProviderID(ctx context.Context, providerIntentID string) (*models.PaymentIntent, error) {
	return s.intents.GetByProviderIDForUpdate(ctx, providerIntentID)
}

func (s *txReconcileStore) MarkIntentStatus(ctx context.Context, providerIntentID, status string) error {
	return s.intents.MarkStatus(ctx, providerIntentID, status)
}

func (s *txReconcileStore) PaymentExists(ctx context.Context, provider, providerPaymentID string) (bool, error) {
	return s.payments.ExistsByProviderPaymentID(ctx, provider, providerPaymentID)
}

func (s *txReconcileStore) CreatePayment(ctx context.Context, input repository.CreatePaymentInput) (*models.Payment, error) {
	return s.payments.Create(ctx, input)
}

func (s *txReconcileStore) LockCredit(ctx context.Context, userID uuid.UUID, currency string) error {
	return s.credits.Lock(ctx, userID, currency)
}

func (s *txReconcileStore) AppendCredit(ctx context.Context, input repository.AppendCreditInput) (*models.CreditEntry, error) {
	return s.credits.Append(ctx, input)
}

func (s *txReconcileStore) MarkParticipationPaid(ctx context.Context, sessionID, userID uuid.UUID, paidAt time.Time) error {
	return s.participations.MarkPaid(ctx, sessionID, userID, paidAt)
}

func (s *txReconcileStore) CancelUnpaidParticipation(ctx context.Context, sessionID, userID uuid.UUID, cancelledAt time.Time) error {
	return s.participations.CancelUnpaid(ctx, sessionID, userID, cancelledAt)
}

func (s *txReconcileStore) UpdatePayoutAccount(ctx context.Context, providerAccountID string, payoutsEnabled bool) error {
	return s.payoutAccounts.UpdateCapabilities(ctx, providerAccountID, payoutsEnabled)
}

// ReconcileService applies asynchronous provider callbacks to internal
// state exactly once per outcome. Deliveries are at-least-once and can be
// out of order; every branch below is a no-op when its outcome has already
// been applied, and a late failure never un-pays a paid participation.
type ReconcileService struct {
	db    *pgxpool.Pool
	clock clock.Clock
}

func NewReconcileService(db *pgxpool.Pool, clk clock.Clock) *ReconcileService {
	return &ReconcileService{db: db, clock: clk}
}

func (s *ReconcileService) HandleEvent(ctx context.Context, event ProviderEvent) error {
	switch event.Type {
	case EventIntentSucceeded, EventIntentFailed, EventIntentCanceled:
		if event.ProviderIntentID == "" {
			return nil
		}
	case EventAccountUpdated:
		if event.ProviderAccountID == "" {
			return nil
		}
	default:
		return nil
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	store := newTxReconcileStore(tx)

	switch event.Type {
	case EventIntentSucceeded:
		// Concurrent deliveries of the same callback serialize here; the
		// second sees the payment row and bails out.
		if err := repository.AcquireTxLock(ctx, tx, "intent:"+event.ProviderIntentID); err != nil {
			return err
		}
		err = s.applySucceeded(ctx, store, event)
	case EventIntentFailed, EventIntentCanceled:
		if err := repository.AcquireTxLock(ctx, tx, "intent:"+event.ProviderIntentID); err != nil {
			return err
		}
		err = s.applyFailure(ctx, store, event)
	case EventAccountUpdated:
		err = store.UpdatePayoutAccount(ctx, event.ProviderAccountID, event.PayoutsEnabled)
	}
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (s *ReconcileService) applySucceeded(ctx context.Context, store reconcileStore, event ProviderEvent) error {
	exists, err := store.IntentExists(ctx, event.ProviderIntentID)
	if err != nil {
		return err
	}
	if !exists {
		// Not our intent: cross-environment noise, deliberately ignored.
		return nil
	}

	applied, err := store.PaymentExists(ctx, models.PaymentProviderStripe, event.ProviderIntentID)
	if err != nil {
		return err
	}
	if applied {
		return nil
	}

	intent, err := store.IntentByProviderID(ctx, event.ProviderIntentID)
	if err != nil {
		return err
	}

	status := event.Status
	if status == "" {
		status = models.IntentStatusSucceeded
	}
	if err := store.MarkIntentStatus(ctx, event.ProviderIntentID, status); err != nil {
		return err
	}

	payment, err := store.CreatePayment(ctx, repository.CreatePaymentInput{
		SessionID:         intent.SessionID,
		UserID:            intent.UserID,
		Provider:          intent.Provider,
		ProviderPaymentID: event.ProviderIntentID,
		GrossAmountCents:  event.GrossAmountCents,
		ProviderFeeCents:  event.ProviderFeeCents,
		NetAmountCents:    event.NetAmountCents,
		Currency:          intent.Currency,
	})
	if err != nil {
		return err
	}

	// The deferred deduction: credit reserved at registration is posted to
	// the ledger only now that the charge is confirmed.
	if intent.CreditAppliedCents > 0 {
		if err := store.LockCredit(ctx, intent.UserID, intent.Currency); err != nil {
			return err
		}
		if _, err := store.AppendCredit(ctx, repository.AppendCreditInput{
			UserID:      intent.UserID,
			AmountCents: -intent.CreditAppliedCents,
			Currency:    intent.Currency,
			Cause:       models.CreditCauseSessionUsage,
			PaymentID:   &payment.ID,
		}); err != nil {
			return err
		}
	}

	return store.MarkParticipationPaid(ctx, intent.SessionID, intent.UserID, s.clock.Now())
}

func (s *ReconcileService) applyFailure(ctx context.Context, store reconcileStore, event ProviderEvent) error {
	exists, err := store.IntentExists(ctx, event.ProviderIntentID)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}

	intent, err := store.IntentByProviderID(ctx, event.ProviderIntentID)
	if err != nil {
		return err
	}
	if intent.Status == models.IntentStatusSucceeded {
		// The charge was already confirmed; a straggling failure callback
		// must not touch anything.
		return nil
	}

	status := event.Status
	if status == "" {
		if event.Type == EventIntentCanceled {
			status = models.IntentStatusCanceled
		} else {
			status = models.IntentStatusPaymentFailed
		}
	}
	if err := store.MarkIntentStatus(ctx, event.ProviderIntentID, status); err != nil {
		return err
	}

	return store.CancelUnpaidParticipation(ctx, intent.SessionID, intent.UserID, s.clock.Now())
}
