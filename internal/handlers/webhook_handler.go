package handlers

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/saeid-a/CoachMarketBack/internal/services"
)

type reconcileService interface {
	HandleEvent(ctx context.Context, event services.ProviderEvent) error
}

type WebhookHandler struct {
	service       reconcileService
	signingSecret string
}

func NewWebhookHandler(service *services.ReconcileService, signingSecret string) *WebhookHandler {
	return &WebhookHandler{service: service, signingSecret: signingSecret}
}

// stripeEvent is the subset of the provider's webhook envelope the
// reconciler consumes. Unknown fields are ignored.
type stripeEvent struct {
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID       string `json:"id"`
			Status   string `json:"status"`
			Amount   int64  `json:"amount"`
			Currency string `json:"currency"`
			Charges  struct {
				Data []struct {
					BalanceTransaction struct {
						Fee int64 `json:"fee"`
						Net int64 `json:"net"`
					} `json:"balance_transaction"`
				} `json:"data"`
			} `json:"charges"`
			PayoutsEnabled bool `json:"payouts_enabled"`
		} `json:"object"`
	} `json:"data"`
}

func (h *WebhookHandler) HandleWebhook(c *fiber.Ctx) error {
	body := c.Body()

	if h.signingSecret != "" {
		if !verifySignature(body, c.Get("Stripe-Signature"), h.signingSecret) {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid signature"})
		}
	}

	var raw stripeEvent
	if err := json.Unmarshal(body, &raw); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid payload"})
	}

	event := services.ProviderEvent{
		Type:             raw.Type,
		Status:           raw.Data.Object.Status,
		GrossAmountCents: raw.Data.Object.Amount,
		PayoutsEnabled:   raw.Data.Object.PayoutsEnabled,
	}
	if raw.Type == services.EventAccountUpdated {
		event.ProviderAccountID = raw.Data.Object.ID
	} else {
		event.ProviderIntentID = raw.Data.Object.ID
	}
	if len(raw.Data.Object.Charges.Data) > 0 {
		bt := raw.Data.Object.Charges.Data[0].BalanceTransaction
		event.ProviderFeeCents = bt.Fee
		event.NetAmountCents = bt.Net
	}
	if event.NetAmountCents == 0 && event.GrossAmountCents > 0 {
		event.NetAmountCents = event.GrossAmountCents - event.ProviderFeeCents
	}

	if err := h.service.HandleEvent(c.Context(), event); err != nil {
		// The provider retries on non-2xx, so transient failures surface
		// as 500 and replays are absorbed by the idempotent processor.
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Event processing failed"})
	}

	return c.JSON(fiber.Map{"received": true})
}

// verifySignature checks the provider's signature header, formatted as
// "t=<timestamp>,v1=<hex hmac>" over "<timestamp>.<body>".
func verifySignature(body []byte, header, secret string) bool {
	var timestamp, signature string
	for _, part := range strings.Split(header, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch key {
		case "t":
			timestamp = value
		case "v1":
			signature = value
		}
	}
	if timestamp == "" || signature == "" {
		return false
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}
