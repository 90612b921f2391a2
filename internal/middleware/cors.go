package middleware

import (
	"github.com/ahmetcoskunkizilkaya/smartshop-backend/internal/config"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

// CORS allows credentials only for an explicit origin list; Fiber rejects
// credentials combined with "*".
func CORS(cfg *config.Config) fiber.Handler {
	return cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowHeaders:     "Origin, Content-Type, Authorization, Accept, Stripe-Signature, X-Admin-Token",
		AllowMethods:     "GET, POST, PUT, DELETE, PATCH, OPTIONS",
		AllowCredentials: cfg.CORSOrigins != "*",
	})
}
