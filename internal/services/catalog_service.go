package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/saeid-a/CoachMarketBack/internal/common/clock"
	"github.com/saeid-a/CoachMarketBack/internal/models"
	"github.com/saeid-a/CoachMarketBack/internal/repository"
)

const (
	minTitleLength = 3
	maxTitleLength = 120
)

// CatalogService owns session scheduling: creation, rescheduling,
// cancellation and listing. The per-coach overlap invariant is enforced
// under an advisory lock so two concurrent writes for the same coach cannot
// both pass the overlap check.
type CatalogService struct {
	db       *pgxpool.Pool
	clock    clock.Clock
	userRepo accountReader
}

func NewCatalogService(db *pgxpool.Pool, clk clock.Clock, userRepo *repository.UserRepository) *CatalogService {
	return &CatalogService{db: db, clock: clk, userRepo: userRepo}
}

type CreateSessionInput struct {
	Title      string
	StartsAt   time.Time
	EndsAt     time.Time
	PriceCents int64
	Currency   string
}

type UpdateSessionInput struct {
	Title    string
	StartsAt time.Time
	EndsAt   time.Time
}

func validateTitle(title string) error {
	trimmed := strings.TrimSpace(title)
	if len(trimmed) < minTitleLength || len(trimmed) > maxTitleLength {
		return fmt.Errorf("%w: title must be %d to %d characters", ErrInvalidInput, minTitleLength, maxTitleLength)
	}
	return nil
}

func validateWindow(startsAt, endsAt time.Time) error {
	if !startsAt.Before(endsAt) {
		return fmt.Errorf("%w: session must end after it starts", ErrInvalidInput)
	}
	return nil
}

func validateCurrency(currency string) error {
	if len(currency) != 3 {
		return fmt.Errorf("%w: currency must be a 3-letter code", ErrInvalidInput)
	}
	return nil
}

func coachLockKey(coachID uuid.UUID) string {
	return "coach-schedule:" + coachID.String()
}

func (s *CatalogService) CreateSession(
	ctx context.Context,
	actor models.Actor,
	input CreateSessionInput,
) (*models.Session, error) {
	if err := guardActor(ctx, s.userRepo, actor, models.PermissionSessionCreate); err != nil {
		return nil, err
	}
	if err := validateTitle(input.Title); err != nil {
		return nil, err
	}
	if err := validateWindow(input.StartsAt, input.EndsAt); err != nil {
		return nil, err
	}
	if input.PriceCents < 0 {
		return nil, fmt.Errorf("%w: price must not be negative", ErrInvalidInput)
	}
	if err := validateCurrency(input.Currency); err != nil {
		return nil, err
	}
	if input.StartsAt.Before(s.clock.Now()) {
		return nil, fmt.Errorf("%w: session must start in the future", ErrInvalidInput)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txSessionRepo := repository.NewSessionRepository(tx)

	if err := repository.AcquireTxLock(ctx, tx, coachLockKey(actor.ID)); err != nil {
		return nil, err
	}

	overlaps, err := txSessionRepo.HasOverlap(ctx, actor.ID, input.StartsAt.UTC(), input.EndsAt.UTC())
	if err != nil {
		return nil, err
	}
	if overlaps {
		return nil, ErrOverlap
	}

	session, err := txSessionRepo.Create(ctx, repository.CreateSessionInput{
		CoachID:    actor.ID,
		Title:      strings.TrimSpace(input.Title),
		StartsAt:   input.StartsAt.UTC(),
		EndsAt:     input.EndsAt.UTC(),
		PriceCents: input.PriceCents,
		Currency:   strings.ToLower(input.Currency),
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *CatalogService) UpdateSession(
	ctx context.Context,
	actor models.Actor,
	sessionID uuid.UUID,
	input UpdateSessionInput,
) (*models.Session, error) {
	if err := guardActor(ctx, s.userRepo, actor, models.PermissionSessionManage); err != nil {
		return nil, err
	}
	if err := validateTitle(input.Title); err != nil {
		return nil, err
	}
	if err := validateWindow(input.StartsAt, input.EndsAt); err != nil {
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

	if err := repository.AcquireTxLock(ctx, tx, coachLockKey(actor.ID)); err != nil {
		return nil, err
	}

	session, err := txSessionRepo.GetByIDForUpdate(ctx, sessionID)
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
	if session.IsStarted(s.clock.Now()) {
		return nil, ErrSessionStarted
	}

	overlaps, err := txSessionRepo.HasOverlapExcludingSession(
		ctx,
		actor.ID,
		input.StartsAt.UTC(),
		input.EndsAt.UTC(),
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	if overlaps {
		return nil, ErrOverlap
	}

	updated, err := txSessionRepo.UpdateDetails(
		ctx,
		sessionID,
		strings.TrimSpace(input.Title),
		input.StartsAt.UTC(),
		input.EndsAt.UTC(),
	)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return updated, nil
}

// CancelSession cancels an unstarted session and restores the credit its
// paid participants had consumed. Cancelling an already-cancelled session
// is a no-op returning success.
func (s *CatalogService) CancelSession(ctx context.Context, actor models.Actor, sessionID uuid.UUID) error {
	if err := guardActor(ctx, s.userRepo, actor, models.PermissionSessionManage); err != nil {
		return err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txSessionRepo := repository.NewSessionRepository(tx)
	txParticipationRepo := repository.NewParticipationRepository(tx)
	txIntentRepo := repository.NewPaymentIntentRepository(tx)
	txCreditRepo := repository.NewCreditRepository(tx)

	// Registrations serialize on this lock, so an in-flight Register either
	// commits before the cancel reads the participations or sees the
	// cancelled status and aborts.
	if err := repository.AcquireTxLock(ctx, tx, sessionLockKey(sessionID)); err != nil {
		return err
	}

	session, err := txSessionRepo.GetByIDForUpdate(ctx, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrSessionNotFound
		}
		return err
	}
	if session.CoachID != actor.ID {
		return ErrForbidden
	}
	if session.IsCancelled() {
		return nil
	}
	now := s.clock.Now()
	if session.IsStarted(now) {
		return ErrSessionStarted
	}

	if _, err := txSessionRepo.CancelIfScheduled(ctx, sessionID, now); err != nil {
		return err
	}

	// Paid participants got their slot through credit, a card charge, or a
	// mix. The credit part is returned as a session_cancelled entry; card
	// refunds are the provider dispute/refund flow, not ours.
	paid, err := txParticipationRepo.ListPaid(ctx, sessionID)
	if err != nil {
		return err
	}
	for _, participation := range paid {
		consumed := session.PriceCents
		intent, err := txIntentRepo.GetSucceededForSessionUser(ctx, sessionID, participation.UserID)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return err
		}
		if intent != nil {
			consumed = intent.CreditAppliedCents
		}
		if consumed == 0 {
			continue
		}
		if err := txCreditRepo.Lock(ctx, participation.UserID, session.Currency); err != nil {
			return err
		}
		if _, err := txCreditRepo.Append(ctx, repository.AppendCreditInput{
			UserID:      participation.UserID,
			AmountCents: consumed,
			Currency:    session.Currency,
			Cause:       models.CreditCauseSessionCancelled,
		}); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (s *CatalogService) GetSession(ctx context.Context, sessionID uuid.UUID) (*models.SessionDetail, error) {
	sessionRepo := repository.NewSessionRepository(s.db)
	participationRepo := repository.NewParticipationRepository(s.db)

	session, err := sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	count, err := participationRepo.CountActive(ctx, sessionID, s.clock.Now())
	if err != nil {
		return nil, err
	}
	return &models.SessionDetail{Session: *session, ActiveParticipants: count}, nil
}

func (s *CatalogService) ListSessions(
	ctx context.Context,
	filter repository.SessionListFilter,
) ([]models.SessionDetail, bool, error) {
	return repository.NewSessionRepository(s.db).List(ctx, filter)
}
