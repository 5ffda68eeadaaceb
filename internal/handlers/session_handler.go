package handlers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/saeid-a/CoachMarketBack/internal/middleware"
	"github.com/saeid-a/CoachMarketBack/internal/models"
	"github.com/saeid-a/CoachMarketBack/internal/repository"
	"github.com/saeid-a/CoachMarketBack/internal/services"
)

type sessionCatalogService interface {
	CreateSession(ctx context.Context, actor models.Actor, input services.CreateSessionInput) (*models.Session, error)
	UpdateSession(ctx context.Context, actor models.Actor, sessionID uuid.UUID, input services.UpdateSessionInput) (*models.Session, error)
	CancelSession(ctx context.Context, actor models.Actor, sessionID uuid.UUID) error
	GetSession(ctx context.Context, sessionID uuid.UUID) (*models.SessionDetail, error)
	ListSessions(ctx context.Context, filter repository.SessionListFilter) ([]models.SessionDetail, bool, error)
}

type SessionHandler struct {
	service sessionCatalogService
}

func NewSessionHandler(service *services.CatalogService) *SessionHandler {
	return &SessionHandler{service: service}
}

type createSessionRequest struct {
	Title      string `json:"title"`
	StartsAt   string `json:"starts_at"`
	EndsAt     string `json:"ends_at"`
	PriceCents int64  `json:"price_cents"`
	Currency   string `json:"currency"`
}

type updateSessionRequest struct {
	Title    string `json:"title"`
	StartsAt string `json:"starts_at"`
	EndsAt   string `json:"ends_at"`
}

func parseWindow(startsAtRaw, endsAtRaw string) (time.Time, time.Time, string) {
	startsAt, err := time.Parse(time.RFC3339, strings.TrimSpace(startsAtRaw))
	if err != nil {
		return time.Time{}, time.Time{}, "starts_at must be a valid RFC3339 timestamp"
	}
	endsAt, err := time.Parse(time.RFC3339, strings.TrimSpace(endsAtRaw))
	if err != nil {
		return time.Time{}, time.Time{}, "ends_at must be a valid RFC3339 timestamp"
	}
	return startsAt, endsAt, ""
}

func (h *SessionHandler) CreateSession(c *fiber.Ctx) error {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	var req createSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	startsAt, endsAt, validationErr := parseWindow(req.StartsAt, req.EndsAt)
	if validationErr != "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": validationErr})
	}

	session, err := h.service.CreateSession(c.Context(), actor, services.CreateSessionInput{
		Title:      req.Title,
		StartsAt:   startsAt,
		EndsAt:     endsAt,
		PriceCents: req.PriceCents,
		Currency:   req.Currency,
	})
	if err != nil {
		return mapDomainError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"session": session})
}

func (h *SessionHandler) UpdateSession(c *fiber.Ctx) error {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	sessionID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "id must be a valid uuid"})
	}

	var req updateSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	startsAt, endsAt, validationErr := parseWindow(req.StartsAt, req.EndsAt)
	if validationErr != "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": validationErr})
	}

	session, err := h.service.UpdateSession(c.Context(), actor, sessionID, services.UpdateSessionInput{
		Title:    req.Title,
		StartsAt: startsAt,
		EndsAt:   endsAt,
	})
	if err != nil {
		return mapDomainError(c, err)
	}

	return c.JSON(fiber.Map{"session": session})
}

func (h *SessionHandler) CancelSession(c *fiber.Ctx) error {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid token"})
	}

	sessionID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "id must be a valid uuid"})
	}

	if err := h.service.CancelSession(c.Context(), actor, sessionID); err != nil {
		return mapDomainError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *SessionHandler) GetSession(c *fiber.Ctx) error {
	sessionID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "id must be a valid uuid"})
	}

	session, err := h.service.GetSession(c.Context(), sessionID)
	if err != nil {
		return mapDomainError(c, err)
	}
	return c.JSON(fiber.Map{"session": session})
}

func (h *SessionHandler) ListSessions(c *fiber.Ctx) error {
	params, validationErr := parsePageParams(c)
	if validationErr != "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": validationErr})
	}

	filter := repository.SessionListFilter{
		From:   params.From,
		To:     params.To,
		Limit:  params.Limit,
		Offset: params.Offset,
	}
	if raw := strings.TrimSpace(c.Query("coach_id")); raw != "" {
		coachID, err := uuid.Parse(raw)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "coach_id must be a valid uuid"})
		}
		filter.CoachID = &coachID
	}

	sessions, hasMore, err := h.service.ListSessions(c.Context(), filter)
	if err != nil {
		return mapDomainError(c, err)
	}

	return c.JSON(fiber.Map{
		"items":    sessions,
		"limit":    params.Limit,
		"offset":   params.Offset,
		"has_more": hasMore,
	})
}

// mapDomainError translates service sentinel errors into transport
// responses. Anything unrecognized is a bug-class failure and stays opaque.
func mapDomainError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, services.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrForbidden), errors.Is(err, services.ErrAccountDisabled):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "Forbidden"})
	case errors.Is(err, services.ErrSessionNotFound), errors.Is(err, services.ErrNoParticipation):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrOverlap),
		errors.Is(err, services.ErrSessionFull),
		errors.Is(err, services.ErrAlreadyRegistered),
		errors.Is(err, services.ErrDuplicateIntent),
		errors.Is(err, services.ErrSessionCancelled),
		errors.Is(err, services.ErrSessionStarted),
		errors.Is(err, services.ErrSessionNotFinished),
		errors.Is(err, services.ErrAlreadyPaidOut),
		errors.Is(err, services.ErrCreditNegative),
		errors.Is(err, services.ErrPayoutAccount):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, services.ErrProviderFailure):
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "Payment provider unavailable"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process request"})
	}
}
