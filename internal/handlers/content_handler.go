package handlers

import (
	"github.com/ahmetcoskunkizilkaya/smartshop-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/smartshop-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

// ContentHandler serves FAQs and the user's free-text messages.
type ContentHandler struct {
	catalog  *services.CatalogService
	messages *services.MessageService
}

func NewContentHandler(catalog *services.CatalogService, messages *services.MessageService) *ContentHandler {
	return &ContentHandler{catalog: catalog, messages: messages}
}

func (h *ContentHandler) ListFAQs(c *fiber.Ctx) error {
	faqs, err := h.catalog.ListFAQs()
	if err != nil {
		return respondError(c, err, "Failed to get FAQs")
	}
	return c.JSON(faqs)
}

func (h *ContentHandler) CreateFAQ(c *fiber.Ctx) error {
	var req dto.CreateFAQRequest
	if err := bind(c, &req, "Invalid FAQ data"); err != nil {
		return respondError(c, err, "")
	}

	faq, err := h.catalog.CreateFAQ(&req)
	if err != nil {
		return respondError(c, err, "Failed to create FAQ")
	}
	return c.Status(fiber.StatusCreated).JSON(faq)
}

func (h *ContentHandler) ListMessages(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return respondError(c, err, "")
	}

	messages, err := h.messages.ListMessages(userID)
	if err != nil {
		return respondError(c, err, "Failed to get messages")
	}
	return c.JSON(messages)
}

func (h *ContentHandler) CreateMessage(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return respondError(c, err, "")
	}

	var req dto.CreateMessageRequest
	if err := bind(c, &req, "Invalid message data"); err != nil {
		return respondError(c, err, "")
	}

	message, err := h.messages.CreateMessage(userID, &req)
	if err != nil {
		return respondError(c, err, "Failed to create message")
	}
	return c.Status(fiber.StatusCreated).JSON(message)
}
