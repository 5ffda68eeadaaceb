package handlers

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/saeid-a/CoachMarketBack/internal/middleware"
	"github.com/saeid-a/CoachMarketBack/internal/models"
	"github.com/saeid-a/CoachMarketBack/internal/repository"
	"github.com/saeid-a/CoachMarketBack/internal/services"
)

type creditService interface {
	Balance(ctx context.Context, actor models.Actor, currency string) (int64, error)
	ListEntries(ctx context.Context, actor models.Actor, filter repository.CreditListFilter) ([]models.CreditEntry, bool, error)
	AdminAdjust(ctx context.Context, actor models.Actor, userID uuid.UUID, amountCents int64, currency string) (*models.CreditEntry, error)
}

type CreditHandler struct {
	service creditService
}

func NewCreditHandler(service *services.CreditService) *CreditHandler {
	return &CreditHandler{service: service}
}

func (h *CreditHandler) GetBalance(c *fiber.Ctx) error {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	currency := strings.TrimSpace(c.Query("currency"))
	if currency == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "currency is required"})
	}

	balance, err := h.service.Balance(c.Context(), actor, currency)
	if err != nil {
		return mapDomainError(c, err)
	}

	return c.JSON(fiber.Map{
		"balance_cents": balance,
		"currency":      strings.ToLower(currency),
	})
}

func (h *CreditHandler) ListEntries(c *fiber.Ctx) error {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	params, validationErr := parsePageParams(c)
	if validationErr != "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": validationErr})
	}

	entries, hasMore, err := h.service.ListEntries(c.Context(), actor, repository.CreditListFilter{
		From:   params.From,
		To:     params.To,
		Limit:  params.Limit,
		Offset: params.Offset,
	})
	if err != nil {
		return mapDomainError(c, err)
	}

	return c.JSON(fiber.Map{
		"items":    entries,
		"limit":    params.Limit,
		"offset":   params.Offset,
		"has_more": hasMore,
	})
}

type adminAdjustRequest struct {
	UserID      string `json:"user_id"`
	AmountCents int64  `json:"amount_cents"`
	Currency    string `json:"currency"`
}

func (h *CreditHandler) AdminAdjust(c *fiber.Ctx) error {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req adminAdjustRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	userID, err := uuid.Parse(strings.TrimSpace(req.UserID))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "user_id must be a valid uuid"})
	}

	entry, err := h.service.AdminAdjust(c.Context(), actor, userID, req.AmountCents, req.Currency)
	if err != nil {
		return mapDomainError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"entry": entry})
}
