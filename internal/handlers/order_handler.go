package handlers

import (
	"errors"

	"github.com/ahmetcoskunkizilkaya/smartshop-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/smartshop-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

type OrderHandler struct {
	orders   *services.OrderService
	payments *services.PaymentService
}

func NewOrderHandler(orders *services.OrderService, payments *services.PaymentService) *OrderHandler {
	return &OrderHandler{orders: orders, payments: payments}
}

func (h *OrderHandler) List(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return respondError(c, err, "")
	}

	orders, err := h.orders.ListOrders(userID)
	if err != nil {
		return respondError(c, err, "Failed to get orders")
	}
	return c.JSON(orders)
}

func (h *OrderHandler) Get(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return respondError(c, err, "")
	}
	orderID, err := paramID(c, "id", "Order not found")
	if err != nil {
		return respondError(c, err, "")
	}

	order, err := h.orders.GetOrder(userID, orderID)
	if err != nil {
		return respondError(c, err, "Failed to get order")
	}
	return c.JSON(order)
}

func (h *OrderHandler) Create(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return respondError(c, err, "")
	}

	var req dto.CreateOrderRequest
	if err := bind(c, &req, "Invalid order data"); err != nil {
		return respondError(c, err, "")
	}

	order, err := h.orders.CreateOrder(userID, &req)
	if err != nil {
		// A missing product here is a bad line in the request body.
		if errors.Is(err, services.ErrProductNotFound) {
			return fail(c, fiber.StatusBadRequest, capitalize(err.Error()))
		}
		return respondError(c, err, "Failed to create order")
	}
	return c.Status(fiber.StatusCreated).JSON(order)
}

func (h *OrderHandler) CreatePaymentIntent(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return respondError(c, err, "")
	}

	var req dto.PaymentRequest
	if err := bind(c, &req, "Order ID is required"); err != nil {
		return respondError(c, err, "")
	}

	resp, err := h.payments.CreatePaymentIntent(c.UserContext(), userID, req.OrderID)
	if err != nil {
		return respondError(c, err, "Failed to create payment intent")
	}
	return c.JSON(resp)
}

func (h *OrderHandler) ConfirmPayment(c *fiber.Ctx) error {
	userID, err := currentUser(c)
	if err != nil {
		return respondError(c, err, "")
	}

	var req dto.PaymentRequest
	if err := bind(c, &req, "Order ID is required"); err != nil {
		return respondError(c, err, "")
	}

	payment, err := h.payments.ConfirmPayment(c.UserContext(), userID, req.OrderID)
	if err != nil {
		return respondError(c, err, "Failed to process payment")
	}
	return c.JSON(dto.ConfirmPaymentResponse{
		Message: "Payment successful",
		Payment: *payment,
	})
}
