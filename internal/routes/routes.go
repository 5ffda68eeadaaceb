package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/saeid-a/CoachMarketBack/internal/common/clock"
	"github.com/saeid-a/CoachMarketBack/internal/config"
	"github.com/saeid-a/CoachMarketBack/internal/handlers"
	"github.com/saeid-a/CoachMarketBack/internal/middleware"
	"github.com/saeid-a/CoachMarketBack/internal/repository"
	"github.com/saeid-a/CoachMarketBack/internal/services"
)

func RegisterRoutes(app *fiber.App, cfg *config.Config, db *pgxpool.Pool) {
	clk := &clock.DefaultClock{}
	userRepo := repository.NewUserRepository(db)
	provider := services.NewStripeProvider(cfg.StripeBaseURL, cfg.StripeSecretKey, cfg.ProviderTimeout)

	catalogService := services.NewCatalogService(db, clk, userRepo)
	registrationService := services.NewRegistrationService(
		db,
		clk,
		provider,
		userRepo,
		cfg.SessionCapacity,
		cfg.ParticipationTTL,
		cfg.ProviderTimeout,
	)
	creditService := services.NewCreditService(db, userRepo)
	reconcileService := services.NewReconcileService(db, clk)
	payoutService := services.NewPayoutService(
		db,
		clk,
		provider,
		userRepo,
		cfg.ProviderTimeout,
		cfg.PayoutRefreshURL,
		cfg.PayoutReturnURL,
	)
	paymentService := services.NewPaymentService(db, userRepo)

	sessionHandler := handlers.NewSessionHandler(catalogService)
	registrationHandler := handlers.NewRegistrationHandler(registrationService)
	creditHandler := handlers.NewCreditHandler(creditService)
	payoutHandler := handlers.NewPayoutHandler(payoutService)
	paymentHandler := handlers.NewPaymentHandler(paymentService)
	webhookHandler := handlers.NewWebhookHandler(reconcileService, cfg.StripeWebhookSecret)

	api := app.Group("/api")

	// The provider authenticates with its signature header, not a JWT.
	api.Post("/webhooks/stripe", webhookHandler.HandleWebhook)

	v1 := api.Group("/v1", middleware.AuthRequired(cfg.JWTSecret))

	sessions := v1.Group("/sessions")
	sessions.Post("", sessionHandler.CreateSession)
	sessions.Get("", sessionHandler.ListSessions)
	sessions.Get("/:id", sessionHandler.GetSession)
	sessions.Put("/:id", sessionHandler.UpdateSession)
	sessions.Delete("/:id", sessionHandler.CancelSession)
	sessions.Post("/:id/register", registrationHandler.Register)
	sessions.Delete("/:id/register", registrationHandler.CancelRegistration)
	sessions.Post("/:id/payout", payoutHandler.CreatePayout)
	sessions.Get("/:id/payments", paymentHandler.ListSessionPayments)

	credit := v1.Group("/credit")
	credit.Get("/balance", creditHandler.GetBalance)
	credit.Get("/entries", creditHandler.ListEntries)
	credit.Post("/adjustments", creditHandler.AdminAdjust)

	payouts := v1.Group("/payouts")
	payouts.Post("/onboarding", payoutHandler.CreateOnboardingLink)

	v1.Get("/payments", paymentHandler.ListUserPayments)
}
