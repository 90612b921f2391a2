package routes

import (
	"log/slog"
	"time"

	"github.com/ahmetcoskunkizilkaya/smartshop-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/smartshop-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/smartshop-backend/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/smartshop-backend/internal/metrics"
	"github.com/ahmetcoskunkizilkaya/smartshop-backend/internal/middleware"
	"github.com/ahmetcoskunkizilkaya/smartshop-backend/internal/services"
	sentryfiber "github.com/getsentry/sentry-go/fiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Deps is everything the HTTP layer needs from the rest of the server.
type Deps struct {
	Config          *config.Config
	Auth            *services.AuthService
	Catalog         *services.CatalogService
	Lists           *services.ListService
	Orders          *services.OrderService
	Payments        *services.PaymentService
	Messages        *services.MessageService
	Recommendations *services.RecommendationService
	Ping            func() error
	Metrics         *metrics.Collector
	Registry        *prometheus.Registry
}

// NewApp builds the Fiber app with global middleware and every route.
func NewApp(deps Deps) *fiber.App {
	cfg := deps.Config
	app := fiber.New(fiber.Config{
		BodyLimit:    4 * 1024 * 1024,
		ErrorHandler: customErrorHandler,
	})

	if cfg.SentryDSN != "" {
		app.Use(sentryfiber.New(sentryfiber.Options{
			Repanic:         true,
			WaitForDelivery: false,
		}))
	}

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.RequestContext())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path} | ${locals:requestid}\n",
	}))
	app.Use(middleware.Metrics(deps.Metrics))
	app.Use(middleware.CORS(cfg))
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-XSS-Protection", "1; mode=block")
		return c.Next()
	})

	if deps.Registry != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{})))
	}

	Setup(app, deps)
	return app
}

func Setup(app *fiber.App, deps Deps) {
	cfg := deps.Config
	session := middleware.SessionRequired(cfg, deps.Auth)

	authHandler := handlers.NewAuthHandler(deps.Auth, cfg)
	productHandler := handlers.NewProductHandler(deps.Catalog, deps.Recommendations)
	listHandler := handlers.NewListHandler(deps.Lists)
	orderHandler := handlers.NewOrderHandler(deps.Orders, deps.Payments)
	contentHandler := handlers.NewContentHandler(deps.Catalog, deps.Messages)
	webhookHandler := handlers.NewWebhookHandler(deps.Payments)
	healthHandler := handlers.NewHealthHandler(deps.Ping)

	// Webhooks are called by Stripe, not browsers, so they sit outside the
	// per-IP limiter.
	app.Post("/api/webhooks/stripe", webhookHandler.HandleStripe)

	api := app.Group("/api")
	api.Use(rateLimiter(cfg.APIRateLimit))

	api.Get("/health", healthHandler.Check)

	// Auth: public, with a stricter limit that also throttles code guessing
	auth := api.Group("/auth")
	auth.Use(rateLimiter(cfg.AuthRateLimit))
	auth.Post("/register", authHandler.Register)
	auth.Post("/verify-email", authHandler.VerifyEmail)
	auth.Post("/login", authHandler.Login)
	auth.Post("/forgot-password", authHandler.ForgotPassword)
	auth.Post("/reset-password", authHandler.ResetPassword)

	auth.Post("/logout", session, authHandler.Logout)
	auth.Get("/me", session, authHandler.Me)
	auth.Patch("/me", session, authHandler.UpdateMe)
	auth.Delete("/account", session, authHandler.DeleteAccount)

	// Catalog: trending and recommended must precede :id
	api.Get("/products", productHandler.List)
	api.Get("/products/trending", productHandler.Trending)
	api.Get("/products/recommended", session, productHandler.Recommended)
	api.Get("/products/:id", productHandler.Get)
	api.Get("/faqs", contentHandler.ListFAQs)

	// Lists
	api.Get("/lists", session, listHandler.List)
	api.Post("/lists", session, listHandler.Create)
	api.Patch("/lists/items/:itemId", session, listHandler.UpdateItem)
	api.Delete("/lists/items/:itemId", session, listHandler.DeleteItem)
	api.Get("/lists/:id", session, listHandler.Get)
	api.Patch("/lists/:id", session, listHandler.Update)
	api.Delete("/lists/:id", session, listHandler.Delete)
	api.Post("/lists/:id/items", session, listHandler.AddItem)

	// Orders and payments
	api.Get("/orders", session, orderHandler.List)
	api.Post("/orders", session, orderHandler.Create)
	api.Get("/orders/:id", session, orderHandler.Get)
	api.Post("/create-payment-intent", session, orderHandler.CreatePaymentIntent)
	api.Post("/payments/confirm", session, orderHandler.ConfirmPayment)

	// Messages
	api.Get("/messages", session, contentHandler.ListMessages)
	api.Post("/messages", session, contentHandler.CreateMessage)

	// Admin catalog management (admin token or admin session)
	admin := api.Group("/admin", middleware.AdminToken(cfg, session), middleware.AdminRequired(cfg))
	admin.Post("/products", productHandler.Create)
	admin.Patch("/products/:id", productHandler.Update)
	admin.Delete("/products/:id", productHandler.Delete)
	admin.Post("/faqs", contentHandler.CreateFAQ)
}

// rateLimiter allows max requests per minute per client IP.
func rateLimiter(max int) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:               max,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(dto.ErrorResponse{
				Error: "Too many requests",
			})
		},
	})
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	// Only expose error details for client errors (4xx), not server errors (5xx)
	if code >= 500 {
		slog.ErrorContext(c.UserContext(), "unhandled server error",
			"method", c.Method(), "path", c.Path(), "error", err.Error())
		message = "Internal server error"
	}

	return c.Status(code).JSON(dto.ErrorResponse{Error: message})
}
