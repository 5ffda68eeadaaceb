package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/saeid-a/CoachMarketBack/internal/models"
)

const sessionColumns = `id, coach_id, title, starts_at, ends_at, status, cancelled_at, price_cents, currency, created_at, updated_at`

type CreateSessionInput struct {
	CoachID    uuid.UUID
	Title      string
	StartsAt   time.Time
	EndsAt     time.Time
	PriceCents int64
	Currency   string
}

type SessionListFilter struct {
	CoachID *uuid.UUID
	From    *time.Time
	To      *time.Time
	Limit   int
	Offset  int
}

type SessionRepository struct {
	db DBTX
}

func NewSessionRepository(db DBTX) *SessionRepository {
	return &SessionRepository{db: db}
}

func scanSession(row interface{ Scan(dest ...any) error }) (*models.Session, error) {
	var session models.Session
	err := row.Scan(
		&session.ID,
		&session.CoachID,
		&session.Title,
		&session.StartsAt,
		&session.EndsAt,
		&session.Status,
		&session.CancelledAt,
		&session.PriceCents,
		&session.Currency,
		&session.CreatedAt,
		&session.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *SessionRepository) Create(ctx context.Context, input CreateSessionInput) (*models.Session, error) {
	query := `
		INSERT INTO sessions (coach_id, title, starts_at, ends_at, price_cents, currency)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + sessionColumns
	return scanSession(r.db.QueryRow(
		ctx,
		query,
		input.CoachID,
		input.Title,
		input.StartsAt,
		input.EndsAt,
		input.PriceCents,
		input.Currency,
	))
}

func (r *SessionRepository) GetByID(ctx context.Context, sessionID uuid.UUID) (*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1`
	return scanSession(r.db.QueryRow(ctx, query, sessionID))
}

func (r *SessionRepository) GetByIDForUpdate(ctx context.Context, sessionID uuid.UUID) (*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM sessions WHERE id = $1 FOR UPDATE`
	return scanSession(r.db.QueryRow(ctx, query, sessionID))
}

func (r *SessionRepository) UpdateDetails(
	ctx context.Context,
	sessionID uuid.UUID,
	title string,
	startsAt time.Time,
	endsAt time.Time,
) (*models.Session, error) {
	query := `
		UPDATE sessions
		SET title = $2, starts_at = $3, ends_at = $4, updated_at = NOW()
		WHERE id = $1 AND status = 'scheduled'
		RETURNING ` + sessionColumns
	return scanSession(r.db.QueryRow(ctx, query, sessionID, title, startsAt, endsAt))
}

// CancelIfScheduled flips a scheduled session to cancelled. Returns
// pgx.ErrNoRows when the session is already cancelled, which callers treat
// as the idempotent no-op case.
func (r *SessionRepository) CancelIfScheduled(ctx context.Context, sessionID uuid.UUID, cancelledAt time.Time) (*models.Session, error) {
	query := `
		UPDATE sessions
		SET status = 'cancelled', cancelled_at = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'scheduled'
		RETURNING ` + sessionColumns
	return scanSession(r.db.QueryRow(ctx, query, sessionID, cancelledAt))
}

// HasOverlap checks [startsAt, endsAt) against every non-cancelled session
// of the coach: two windows overlap iff s1 < e2 AND s2 < e1.
func (r *SessionRepository) HasOverlap(
	ctx context.Context,
	coachID uuid.UUID,
	startsAt time.Time,
	endsAt time.Time,
) (bool, error) {
	return r.hasOverlap(ctx, coachID, startsAt, endsAt, uuid.Nil)
}

func (r *SessionRepository) HasOverlapExcludingSession(
	ctx context.Context,
	coachID uuid.UUID,
	startsAt time.Time,
	endsAt time.Time,
	excludedSessionID uuid.UUID,
) (bool, error) {
	return r.hasOverlap(ctx, coachID, startsAt, endsAt, excludedSessionID)
}

func (r *SessionRepository) hasOverlap(
	ctx context.Context,
	coachID uuid.UUID,
	startsAt time.Time,
	endsAt time.Time,
	excludedSessionID uuid.UUID,
) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM sessions
			WHERE coach_id = $1
			  AND id <> $4
			  AND status <> 'cancelled'
			  AND starts_at < $3
			  AND ends_at > $2
		)
	`
	var overlaps bool
	if err := r.db.QueryRow(ctx, query, coachID, startsAt, endsAt, excludedSessionID).Scan(&overlaps); err != nil {
		return false, err
	}
	return overlaps, nil
}

// List returns up to filter.Limit sessions plus a has-more flag obtained by
// fetching one extra row.
func (r *SessionRepository) List(ctx context.Context, filter SessionListFilter) ([]models.SessionDetail, bool, error) {
	query := `
		SELECT s.id, s.coach_id, s.title, s.starts_at, s.ends_at, s.status,
		       s.cancelled_at, s.price_cents, s.currency, s.created_at, s.updated_at,
		       (
		           SELECT COUNT(*) FROM participations p
		           WHERE p.session_id = s.id
		             AND p.cancelled_at IS NULL
		             AND (p.paid_at IS NOT NULL OR p.expires_at > NOW())
		       ) AS active_participants
		FROM sessions s
		WHERE ($1::uuid IS NULL OR s.coach_id = $1)
		  AND ($2::timestamptz IS NULL OR s.starts_at >= $2)
		  AND ($3::timestamptz IS NULL OR s.starts_at <= $3)
		ORDER BY s.starts_at ASC, s.id ASC
		LIMIT $4 OFFSET $5
	`

	rows, err := r.db.Query(ctx, query, filter.CoachID, filter.From, filter.To, filter.Limit+1, filter.Offset)
	if err != nil {
		return nil, false, err
	}
	defer rows.Close()

	sessions := make([]models.SessionDetail, 0)
	for rows.Next() {
		var detail models.SessionDetail
		if err := rows.Scan(
			&detail.ID,
			&detail.CoachID,
			&detail.Title,
			&detail.StartsAt,
			&detail.EndsAt,
			&detail.Status,
			&detail.CancelledAt,
			&detail.PriceCents,
			&detail.Currency,
			&detail.CreatedAt,
			&detail.UpdatedAt,
			&detail.ActiveParticipants,
		); err != nil {
			return nil, false, err
		}
		sessions = append(sessions, detail)
	}
	if err := rows.Err(); err != nil {
		return nil, false, err
	}

	hasMore := len(sessions) > filter.Limit
	if hasMore {
		sessions = sessions[:filter.Limit]
	}
	return sessions, hasMore, nil
}
