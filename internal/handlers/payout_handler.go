package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/saeid-a/CoachMarketBack/internal/middleware"
	"github.com/saeid-a/CoachMarketBack/internal/models"
	"github.com/saeid-a/CoachMarketBack/internal/services"
)

type payoutService interface {
	Payout(ctx context.Context, actor models.Actor, sessionID uuid.UUID) (*services.PayoutResult, error)
	CreateOnboardingLink(ctx context.Context, actor models.Actor) (*services.OnboardingLink, error)
}

type PayoutHandler struct {
	service payoutService
}

func NewPayoutHandler(service *services.PayoutService) *PayoutHandler {
	return &PayoutHandler{service: service}
}

func (h *PayoutHandler) CreatePayout(c *fiber.Ctx) error {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	sessionID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid session ID"})
	}

	result, err := h.service.Payout(c.Context(), actor, sessionID)
	if err != nil {
		return mapDomainError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"transferred_cents": result.TransferredCents,
		"currency":          result.Currency,
		"payment":           result.Payment,
	})
}

func (h *PayoutHandler) CreateOnboardingLink(c *fiber.Ctx) error {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	link, err := h.service.CreateOnboardingLink(c.Context(), actor)
	if err != nil {
		return mapDomainError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"onboarding_url":      link.URL,
		"provider_account_id": link.ProviderAccountID,
		"payouts_enabled":     link.PayoutsEnabled,
	})
}
