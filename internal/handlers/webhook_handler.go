package handlers

import (
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/smartshop-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

type WebhookHandler struct {
	payments *services.PaymentService
}

func NewWebhookHandler(payments *services.PaymentService) *WebhookHandler {
	return &WebhookHandler{payments: payments}
}

// HandleStripe verifies the Stripe-Signature header against the raw body
// before anything in the event is trusted.
func (h *WebhookHandler) HandleStripe(c *fiber.Ctx) error {
	payload := append([]byte(nil), c.Body()...)

	ack, err := h.payments.HandleWebhook(c.UserContext(), payload, c.Get("Stripe-Signature"))
	if err != nil {
		return respondError(c, err, "Failed to process webhook event")
	}

	slog.InfoContext(c.UserContext(), "webhook processed", "event_type", ack.Type, "applied", ack.Applied)
	return c.JSON(ack)
}
