package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/saeid-a/CoachMarketBack/internal/models"
	"github.com/saeid-a/CoachMarketBack/internal/repository"
)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time {
	return c.now
}

type stubReconcileStore struct {
	intent        *models.PaymentIntent
	paymentExists bool

	markedStatus      string
	createdPayment    *repository.CreatePaymentInput
	lockedCreditUser  *uuid.UUID
	appendedCredit    *repository.AppendCreditInput
	markedPaidSession *uuid.UUID
	cancelledSession  *uuid.UUID
	accountID         string
	payoutsEnabled    bool
}

func (s *stubReconcileStore) IntentExists(_ context.Context, _ string) (bool, error) {
	return s.intent != nil, nil
}

func (s *stubReconcileStore) IntentByProviderID(_ context.Context, _ string) (*models.PaymentIntent, error) {
	return s.intent, nil
}

func (s *stubReconcileStore) MarkIntentStatus(_ context.Context, _ string, status string) error {
	s.markedStatus = status
	return nil
}

func (s *stubReconcileStore) PaymentExists(_ context.Context, _, _ string) (bool, error) {
	return s.paymentExists, nil
}

func (s *stubReconcileStore) CreatePayment(_ context.Context, input repository.CreatePaymentInput) (*models.Payment, error) {
	s.createdPayment = &input
	return &models.Payment{
		ID:                uuid.New(),
		SessionID:         input.SessionID,
		UserID:            input.UserID,
		Provider:          input.Provider,
		ProviderPaymentID: input.ProviderPaymentID,
		GrossAmountCents:  input.GrossAmountCents,
		ProviderFeeCents:  input.ProviderFeeCents,
		NetAmountCents:    input.NetAmountCents,
		Currency:          input.Currency,
	}, nil
}

func (s *stubReconcileStore) LockCredit(_ context.Context, userID uuid.UUID, _ string) error {
	s.lockedCreditUser = &userID
	return nil
}

func (s *stubReconcileStore) AppendCredit(_ context.Context, input repository.AppendCreditInput) (*models.CreditEntry, error) {
	s.appendedCredit = &input
	return &models.CreditEntry{}, nil
}

func (s *stubReconcileStore) MarkParticipationPaid(_ context.Context, sessionID, _ uuid.UUID, _ time.Time) error {
	s.markedPaidSession = &sessionID
	return nil
}

func (s *stubReconcileStore) CancelUnpaidParticipation(_ context.Context, sessionID, _ uuid.UUID, _ time.Time) error {
	s.cancelledSession = &sessionID
	return nil
}

func (s *stubReconcileStore) UpdatePayoutAccount(_ context.Context, providerAccountID string, payoutsEnabled bool) error {
	s.accountID = providerAccountID
	s.payoutsEnabled = payoutsEnabled
	return nil
}

func newReconcileFixture() (*ReconcileService, *stubReconcileStore, *models.PaymentIntent) {
	providerID := "pi_test_123"
	intent := &models.PaymentIntent{
		ID:                 uuid.New(),
		UserID:             uuid.New(),
		SessionID:          uuid.New(),
		Provider:           models.PaymentProviderStripe,
		ProviderIntentID:   &providerID,
		Status:             models.IntentStatusCreated,
		CreditAppliedCents: 0,
		AmountCents:        5000,
		Currency:           "usd",
	}
	service := &ReconcileService{clock: fixedClock{now: time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)}}
	return service, &stubReconcileStore{intent: intent}, intent
}

func TestApplySucceededRecordsPaymentAndMarksPaid(t *testing.T) {
	service, store, intent := newReconcileFixture()

	err := service.applySucceeded(context.Background(), store, ProviderEvent{
		Type:             EventIntentSucceeded,
		ProviderIntentID: *intent.ProviderIntentID,
		Status:           models.IntentStatusSucceeded,
		GrossAmountCents: 5000,
		ProviderFeeCents: 175,
		NetAmountCents:   4825,
	})
	require.NoError(t, err)

	require.Equal(t, models.IntentStatusSucceeded, store.markedStatus)
	require.NotNil(t, store.createdPayment)
	require.Equal(t, *intent.ProviderIntentID, store.createdPayment.ProviderPaymentID)
	require.Equal(t, int64(4825), store.createdPayment.NetAmountCents)
	require.NotNil(t, store.markedPaidSession)
	require.Equal(t, intent.SessionID, *store.markedPaidSession)
	require.Nil(t, store.appendedCredit, "no credit was reserved, nothing to post")
}

func TestApplySucceededPostsReservedCredit(t *testing.T) {
	service, store, intent := newReconcileFixture()
	intent.CreditAppliedCents = 1500

	err := service.applySucceeded(context.Background(), store, ProviderEvent{
		Type:             EventIntentSucceeded,
		ProviderIntentID: *intent.ProviderIntentID,
		GrossAmountCents: 3500,
		NetAmountCents:   3400,
	})
	require.NoError(t, err)

	require.NotNil(t, store.lockedCreditUser)
	require.NotNil(t, store.appendedCredit)
	require.Equal(t, int64(-1500), store.appendedCredit.AmountCents)
	require.Equal(t, models.CreditCauseSessionUsage, store.appendedCredit.Cause)
	require.NotNil(t, store.appendedCredit.PaymentID)
}

func TestApplySucceededReplayIsNoOp(t *testing.T) {
	service, store, intent := newReconcileFixture()
	store.paymentExists = true

	err := service.applySucceeded(context.Background(), store, ProviderEvent{
		Type:             EventIntentSucceeded,
		ProviderIntentID: *intent.ProviderIntentID,
		GrossAmountCents: 5000,
	})
	require.NoError(t, err)

	require.Empty(t, store.markedStatus)
	require.Nil(t, store.createdPayment)
	require.Nil(t, store.markedPaidSession)
}

func TestApplySucceededIgnoresUnknownIntent(t *testing.T) {
	service, store, _ := newReconcileFixture()
	store.intent = nil

	err := service.applySucceeded(context.Background(), store, ProviderEvent{
		Type:             EventIntentSucceeded,
		ProviderIntentID: "pi_from_some_other_system",
	})
	require.NoError(t, err)
	require.Nil(t, store.createdPayment)
}

func TestApplyFailureCancelsUnpaidParticipation(t *testing.T) {
	service, store, intent := newReconcileFixture()

	err := service.applyFailure(context.Background(), store, ProviderEvent{
		Type:             EventIntentFailed,
		ProviderIntentID: *intent.ProviderIntentID,
	})
	require.NoError(t, err)

	require.Equal(t, models.IntentStatusPaymentFailed, store.markedStatus)
	require.NotNil(t, store.cancelledSession)
	require.Equal(t, intent.SessionID, *store.cancelledSession)
}

func TestApplyFailureDefaultsCanceledStatus(t *testing.T) {
	service, store, intent := newReconcileFixture()

	err := service.applyFailure(context.Background(), store, ProviderEvent{
		Type:             EventIntentCanceled,
		ProviderIntentID: *intent.ProviderIntentID,
	})
	require.NoError(t, err)
	require.Equal(t, models.IntentStatusCanceled, store.markedStatus)
}

func TestLateFailureAfterSuccessDoesNotUnpay(t *testing.T) {
	service, store, intent := newReconcileFixture()
	intent.Status = models.IntentStatusSucceeded

	err := service.applyFailure(context.Background(), store, ProviderEvent{
		Type:             EventIntentFailed,
		ProviderIntentID: *intent.ProviderIntentID,
	})
	require.NoError(t, err)

	require.Empty(t, store.markedStatus)
	require.Nil(t, store.cancelledSession)
}

func TestHandleEventIgnoresUnknownTypes(t *testing.T) {
	service := &ReconcileService{clock: fixedClock{now: time.Now()}}

	require.NoError(t, service.HandleEvent(context.Background(), ProviderEvent{Type: "charge.refunded"}))
	require.NoError(t, service.HandleEvent(context.Background(), ProviderEvent{Type: EventIntentSucceeded}))
	require.NoError(t, service.HandleEvent(context.Background(), ProviderEvent{Type: EventAccountUpdated}))
}
