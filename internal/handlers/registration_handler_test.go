package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/saeid-a/CoachMarketBack/internal/models"
	"github.com/saeid-a/CoachMarketBack/internal/services"
)

type stubRegistrationService struct {
	registerResult *services.RegistrationResult
	registerErr    error
	cancelErr      error

	lastActor     models.Actor
	lastSessionID uuid.UUID
}

func (s *stubRegistrationService) Register(_ context.Context, actor models.Actor, sessionID uuid.UUID) (*services.RegistrationResult, error) {
	s.lastActor = actor
	s.lastSessionID = sessionID
	return s.registerResult, s.registerErr
}

func (s *stubRegistrationService) CancelRegistration(_ context.Context, actor models.Actor, sessionID uuid.UUID) error {
	s.lastActor = actor
	s.lastSessionID = sessionID
	return s.cancelErr
}

func newRegistrationTestApp(service *stubRegistrationService, actor models.Actor) *fiber.App {
	handler := &RegistrationHandler{service: service}

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("actor", actor)
		return c.Next()
	})
	app.Post("/api/v1/sessions/:id/register", handler.Register)
	app.Delete("/api/v1/sessions/:id/register", handler.CancelRegistration)
	return app
}

func TestRegisterReturnsPaymentDetails(t *testing.T) {
	service := &stubRegistrationService{
		registerResult: &services.RegistrationResult{
			Participation:      &models.Participation{ID: uuid.New()},
			RequiresPayment:    true,
			ClientSecret:       "pi_123_secret_abc",
			CreditAppliedCents: 1500,
			ChargeCents:        3500,
		},
	}
	actor := testActor(models.PermissionSessionRegister)
	app := newRegistrationTestApp(service, actor)
	sessionID := uuid.New()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/"+sessionID.String()+"/register", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	if service.lastSessionID != sessionID {
		t.Fatalf("expected session %s, got %s", sessionID, service.lastSessionID)
	}

	var body struct {
		RequirePayment     bool   `json:"require_payment"`
		ClientSecret       string `json:"payment_intent_client_secret"`
		CreditAppliedCents int64  `json:"credit_applied_cents"`
		ChargeCents        int64  `json:"charge_cents"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if !body.RequirePayment || body.ClientSecret != "pi_123_secret_abc" {
		t.Fatalf("unexpected payment details: %+v", body)
	}
	if body.CreditAppliedCents != 1500 || body.ChargeCents != 3500 {
		t.Fatalf("unexpected split: %+v", body)
	}
}

func TestRegisterMapsFullSessionToConflict(t *testing.T) {
	service := &stubRegistrationService{registerErr: services.ErrSessionFull}
	app := newRegistrationTestApp(service, testActor(models.PermissionSessionRegister))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/"+uuid.NewString()+"/register", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
}

func TestRegisterMapsProviderFailureToBadGateway(t *testing.T) {
	service := &stubRegistrationService{registerErr: services.ErrProviderFailure}
	app := newRegistrationTestApp(service, testActor(models.PermissionSessionRegister))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/"+uuid.NewString()+"/register", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", resp.StatusCode)
	}
}

func TestCancelRegistrationMapsMissingParticipation(t *testing.T) {
	service := &stubRegistrationService{cancelErr: services.ErrNoParticipation}
	app := newRegistrationTestApp(service, testActor(models.PermissionSessionRegister))

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/sessions/"+uuid.NewString()+"/register", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}
