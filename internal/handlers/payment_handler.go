package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/saeid-a/CoachMarketBack/internal/middleware"
	"github.com/saeid-a/CoachMarketBack/internal/models"
	"github.com/saeid-a/CoachMarketBack/internal/services"
)

type paymentService interface {
	ListUserPayments(ctx context.Context, actor models.Actor, limit, offset int) ([]models.Payment, bool, error)
	ListSessionPayments(ctx context.Context, actor models.Actor, sessionID uuid.UUID) ([]models.Payment, error)
}

type PaymentHandler struct {
	service paymentService
}

func NewPaymentHandler(service *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{service: service}
}

func (h *PaymentHandler) ListUserPayments(c *fiber.Ctx) error {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	params, validationErr := parsePageParams(c)
	if validationErr != "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": validationErr})
	}

	payments, hasMore, err := h.service.ListUserPayments(c.Context(), actor, params.Limit, params.Offset)
	if err != nil {
		return mapDomainError(c, err)
	}

	return c.JSON(fiber.Map{
		"items":    payments,
		"limit":    params.Limit,
		"offset":   params.Offset,
		"has_more": hasMore,
	})
}

func (h *PaymentHandler) ListSessionPayments(c *fiber.Ctx) error {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	sessionID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "id must be a valid uuid"})
	}

	payments, err := h.service.ListSessionPayments(c.Context(), actor, sessionID)
	if err != nil {
		return mapDomainError(c, err)
	}

	return c.JSON(fiber.Map{"items": payments})
}
