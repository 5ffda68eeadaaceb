package services

import (
	"context"

	"github.com/google/uuid"
	"github.com/saeid-a/CoachMarketBack/internal/models"
)

type accountReader interface {
	IsDisabled(ctx context.Context, id uuid.UUID) (bool, error)
}

// requirePermission is the pure half of the per-operation guard: no I/O, so
// it is trivially testable.
func requirePermission(actor models.Actor, permission string) error {
	if !actor.HasPermission(permission) {
		return ErrForbidden
	}
	return nil
}

// guardActor runs the standard precondition pair every mutating operation
// starts with: the actor holds the permission and the account is not
// disabled.
func guardActor(ctx context.Context, accounts accountReader, actor models.Actor, permission string) error {
	if err := requirePermission(actor, permission); err != nil {
		return err
	}
	disabled, err := accounts.IsDisabled(ctx, actor.ID)
	if err != nil {
		return err
	}
	if disabled {
		return ErrAccountDisabled
	}
	return nil
}
