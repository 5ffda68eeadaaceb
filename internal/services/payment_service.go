package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/saeid-a/CoachMarketBack/internal/models"
	"github.com/saeid-a/CoachMarketBack/internal/repository"
)

// PaymentService exposes read views over the immutable payments table: a
// user's own capture history and a coach's per-session money view.
type PaymentService struct {
	db       *pgxpool.Pool
	userRepo accountReader
}

func NewPaymentService(db *pgxpool.Pool, userRepo *repository.UserRepository) *PaymentService {
	return &PaymentService{db: db, userRepo: userRepo}
}

// ListUserPayments returns the actor's payment history, newest first.
func (s *PaymentService) ListUserPayments(
	ctx context.Context,
	actor models.Actor,
	limit, offset int,
) ([]models.Payment, bool, error) {
	if err := guardActor(ctx, s.userRepo, actor, models.PermissionCreditRead); err != nil {
		return nil, false, err
	}
	return repository.NewPaymentRepository(s.db).ListByUser(ctx, actor.ID, limit, offset)
}

// ListSessionPayments returns every capture and payout recorded for a
// session the actor coaches.
func (s *PaymentService) ListSessionPayments(
	ctx context.Context,
	actor models.Actor,
	sessionID uuid.UUID,
) ([]models.Payment, error) {
	if err := guardActor(ctx, s.userRepo, actor, models.PermissionPayoutCreate); err != nil {
		return nil, err
	}

	session, err := repository.NewSessionRepository(s.db).GetByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	if session.CoachID != actor.ID {
		return nil, ErrForbidden
	}

	return repository.NewPaymentRepository(s.db).ListBySession(ctx, sessionID)
}
