package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/saeid-a/CoachMarketBack/internal/models"
)

type stubAccountReader struct {
	disabled bool
	err      error
}

func (r *stubAccountReader) IsDisabled(_ context.Context, _ uuid.UUID) (bool, error) {
	return r.disabled, r.err
}

func TestValidateTitle(t *testing.T) {
	cases := []struct {
		name    string
		title   string
		wantErr bool
	}{
		{"valid", "Morning strength basics", false},
		{"minimum length", "Abs", false},
		{"too short", "Ab", true},
		{"whitespace only", "   ", true},
		{"too long", strings.Repeat("x", 121), true},
		{"trimmed to valid", "  Mobility hour  ", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := validateTitle(tc.title)
			if tc.wantErr && !errors.Is(err, ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
			if !tc.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestValidateWindow(t *testing.T) {
	start := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

	if err := validateWindow(start, start.Add(time.Hour)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := validateWindow(start, start); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for zero-length window, got %v", err)
	}
	if err := validateWindow(start, start.Add(-time.Minute)); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for inverted window, got %v", err)
	}
}

func TestValidateCurrency(t *testing.T) {
	if err := validateCurrency("usd"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := validateCurrency("dollars"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if err := validateCurrency(""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestRequirePermission(t *testing.T) {
	actor := models.Actor{
		ID:          uuid.New(),
		Permissions: []string{models.PermissionSessionRegister},
	}

	if err := requirePermission(actor, models.PermissionSessionRegister); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := requirePermission(actor, models.PermissionSessionCreate); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestGuardActorRejectsDisabledAccount(t *testing.T) {
	ctx := context.Background()
	actor := models.Actor{
		ID:          uuid.New(),
		Permissions: []string{models.PermissionSessionCreate},
	}

	if err := guardActor(ctx, &stubAccountReader{}, actor, models.PermissionSessionCreate); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := guardActor(ctx, &stubAccountReader{disabled: true}, actor, models.PermissionSessionCreate); !errors.Is(err, ErrAccountDisabled) {
		t.Fatalf("expected ErrAccountDisabled, got %v", err)
	}

	// Permission check runs first, so a disabled lookup is never reached
	// for a forbidden actor.
	if err := guardActor(ctx, &stubAccountReader{err: errors.New("boom")}, actor, models.PermissionPayoutCreate); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestSplitCharge(t *testing.T) {
	cases := []struct {
		name            string
		availableCredit int64
		priceCents      int64
		wantCredit      int64
		wantCharge      int64
	}{
		{"no credit", 0, 5000, 0, 5000},
		{"partial credit", 1500, 5000, 1500, 3500},
		{"exact credit", 5000, 5000, 5000, 0},
		{"surplus credit", 9000, 5000, 5000, 0},
		{"negative available treated as zero", -200, 5000, 0, 5000},
		{"free session", 4000, 0, 0, 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			credit, charge := splitCharge(tc.availableCredit, tc.priceCents)
			if credit != tc.wantCredit || charge != tc.wantCharge {
				t.Fatalf("splitCharge(%d, %d) = (%d, %d), want (%d, %d)",
					tc.availableCredit, tc.priceCents, credit, charge, tc.wantCredit, tc.wantCharge)
			}
			if credit+charge != tc.priceCents {
				t.Fatalf("split does not cover the price: %d + %d != %d", credit, charge, tc.priceCents)
			}
		})
	}
}
