package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/saeid-a/CoachMarketBack/internal/models"
)

const participationColumns = `id, session_id, user_id, registered_at, paid_at, cancelled_at, expires_at`

type ParticipationRepository struct {
	db DBTX
}

func NewParticipationRepository(db DBTX) *ParticipationRepository {
	return &ParticipationRepository{db: db}
}

func scanParticipation(row interface{ Scan(dest ...any) error }) (*models.Participation, error) {
	var p models.Participation
	err := row.Scan(
		&p.ID,
		&p.SessionID,
		&p.UserID,
		&p.RegisteredAt,
		&p.PaidAt,
		&p.CancelledAt,
		&p.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateIfCapacityLeft inserts a registration only when the user has no
// other non-cancelled row for the session and the active count is below
// capacity. The checks and the insert are one statement; callers serialize
// per session with an advisory lock and the partial unique index backstops
// the duplicate check. Returns pgx.ErrNoRows when a guard failed.
func (r *ParticipationRepository) CreateIfCapacityLeft(
	ctx context.Context,
	sessionID uuid.UUID,
	userID uuid.UUID,
	expiresAt time.Time,
	capacity int,
) (*models.Participation, error) {
	query := `
		INSERT INTO participations (session_id, user_id, expires_at)
		SELECT $1, $2, $3
		WHERE NOT EXISTS (
			SELECT 1 FROM participations
			WHERE session_id = $1 AND user_id = $2 AND cancelled_at IS NULL
		)
		AND (
			SELECT COUNT(*) FROM participations
			WHERE session_id = $1 AND cancelled_at IS NULL
		) < $4
		RETURNING ` + participationColumns
	return scanParticipation(r.db.QueryRow(ctx, query, sessionID, userID, expiresAt, capacity))
}

// ReapExpired cancels unpaid registrations of the session whose expiry has
// passed, freeing their capacity before the next guarded insert.
func (r *ParticipationRepository) ReapExpired(ctx context.Context, sessionID uuid.UUID, now time.Time) error {
	query := `
		UPDATE participations
		SET cancelled_at = $2
		WHERE session_id = $1
		  AND cancelled_at IS NULL
		  AND paid_at IS NULL
		  AND expires_at <= $2
	`
	_, err := r.db.Exec(ctx, query, sessionID, now)
	return err
}

func (r *ParticipationRepository) GetActive(ctx context.Context, sessionID, userID uuid.UUID) (*models.Participation, error) {
	query := `
		SELECT ` + participationColumns + `
		FROM participations
		WHERE session_id = $1 AND user_id = $2 AND cancelled_at IS NULL
	`
	return scanParticipation(r.db.QueryRow(ctx, query, sessionID, userID))
}

func (r *ParticipationRepository) HasActive(ctx context.Context, sessionID, userID uuid.UUID) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM participations
			WHERE session_id = $1 AND user_id = $2 AND cancelled_at IS NULL
		)
	`
	var active bool
	if err := r.db.QueryRow(ctx, query, sessionID, userID).Scan(&active); err != nil {
		return false, err
	}
	return active, nil
}

func (r *ParticipationRepository) CountActive(ctx context.Context, sessionID uuid.UUID, now time.Time) (int, error) {
	query := `
		SELECT COUNT(*) FROM participations
		WHERE session_id = $1
		  AND cancelled_at IS NULL
		  AND (paid_at IS NOT NULL OR expires_at > $2)
	`
	var count int
	if err := r.db.QueryRow(ctx, query, sessionID, now).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}

// CancelActive cancels the caller's own registration. Returns pgx.ErrNoRows
// when there is nothing active to cancel.
func (r *ParticipationRepository) CancelActive(
	ctx context.Context,
	sessionID uuid.UUID,
	userID uuid.UUID,
	cancelledAt time.Time,
) (*models.Participation, error) {
	query := `
		UPDATE participations
		SET cancelled_at = $3
		WHERE session_id = $1 AND user_id = $2 AND cancelled_at IS NULL
		RETURNING ` + participationColumns
	return scanParticipation(r.db.QueryRow(ctx, query, sessionID, userID, cancelledAt))
}

// MarkPaid transitions registered -> paid. A row that is already paid or
// cancelled is left untouched, making replayed callbacks no-ops.
func (r *ParticipationRepository) MarkPaid(ctx context.Context, sessionID, userID uuid.UUID, paidAt time.Time) error {
	query := `
		UPDATE participations
		SET paid_at = $3
		WHERE session_id = $1 AND user_id = $2
		  AND cancelled_at IS NULL
		  AND paid_at IS NULL
	`
	_, err := r.db.Exec(ctx, query, sessionID, userID, paidAt)
	return err
}

// CancelUnpaid cancels a still-registered row after a failed or abandoned
// charge. A paid participation is never touched: a late failure callback
// must not un-pay it.
func (r *ParticipationRepository) CancelUnpaid(ctx context.Context, sessionID, userID uuid.UUID, cancelledAt time.Time) error {
	query := `
		UPDATE participations
		SET cancelled_at = $3
		WHERE session_id = $1 AND user_id = $2
		  AND cancelled_at IS NULL
		  AND paid_at IS NULL
	`
	_, err := r.db.Exec(ctx, query, sessionID, userID, cancelledAt)
	return err
}

// ListPaid returns the paid participations of a session, used when a
// cancelled session restores consumed credit.
func (r *ParticipationRepository) ListPaid(ctx context.Context, sessionID uuid.UUID) ([]models.Participation, error) {
	query := `
		SELECT ` + participationColumns + `
		FROM participations
		WHERE session_id = $1 AND cancelled_at IS NULL AND paid_at IS NOT NULL
		ORDER BY registered_at ASC
	`
	rows, err := r.db.Query(ctx, query, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	participations := make([]models.Participation, 0)
	for rows.Next() {
		p, err := scanParticipation(rows)
		if err != nil {
			return nil, err
		}
		participations = append(participations, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return participations, nil
}
