package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/saeid-a/CoachMarketBack/internal/middleware"
	"github.com/saeid-a/CoachMarketBack/internal/models"
	"github.com/saeid-a/CoachMarketBack/internal/services"
)

type registrationService interface {
	Register(ctx context.Context, actor models.Actor, sessionID uuid.UUID) (*services.RegistrationResult, error)
	CancelRegistration(ctx context.Context, actor models.Actor, sessionID uuid.UUID) error
}

type RegistrationHandler struct {
	service registrationService
}

func NewRegistrationHandler(service *services.RegistrationService) *RegistrationHandler {
	return &RegistrationHandler{service: service}
}

func (h *RegistrationHandler) Register(c *fiber.Ctx) error {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	sessionID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "id must be a valid uuid"})
	}

	result, err := h.service.Register(c.Context(), actor, sessionID)
	if err != nil {
		return mapDomainError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"require_payment":              result.RequiresPayment,
		"payment_intent_client_secret": result.ClientSecret,
		"credit_applied_cents":         result.CreditAppliedCents,
		"charge_cents":                 result.ChargeCents,
	})
}

func (h *RegistrationHandler) CancelRegistration(c *fiber.Ctx) error {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	sessionID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "id must be a valid uuid"})
	}

	if err := h.service.CancelRegistration(c.Context(), actor, sessionID); err != nil {
		return mapDomainError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
