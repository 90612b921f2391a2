package dto

import (
	"github.com/ahmetcoskunkizilkaya/smartshop-backend/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Catalog

type CreateProductRequest struct {
	Name        string          `json:"name" validate:"required,max=255"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock" validate:"gte=0"`
	Image       string          `json:"image"`
	Description string          `json:"description"`
}

type UpdateProductRequest struct {
	Name        *string          `json:"name" validate:"omitempty,min=1,max=255"`
	Price       *decimal.Decimal `json:"price"`
	Stock       *int             `json:"stock" validate:"omitempty,gte=0"`
	Image       *string          `json:"image"`
	Description *string          `json:"description"`
}

type CreateFAQRequest struct {
	Question string `json:"question" validate:"required"`
	Answer   string `json:"answer" validate:"required"`
}

// Lists

type CreateListRequest struct {
	Title string `json:"title" validate:"required,max=255"`
}

type UpdateListRequest struct {
	Title string `json:"title" validate:"required,max=255"`
}

type CreateListItemRequest struct {
	ProductID *uuid.UUID      `json:"product_id"`
	Name      string          `json:"name" validate:"required,max=255"`
	Quantity  decimal.Decimal `json:"quantity"`
	Unit      string          `json:"unit" validate:"required,max=50"`
	Status    string          `json:"status" validate:"omitempty,oneof=pending completed"`
}

type UpdateListItemRequest struct {
	Name     *string          `json:"name" validate:"omitempty,min=1,max=255"`
	Quantity *decimal.Decimal `json:"quantity"`
	Unit     *string          `json:"unit" validate:"omitempty,min=1,max=50"`
	Status   *string          `json:"status" validate:"omitempty,oneof=pending completed"`
}

// Orders

type OrderLineRequest struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"gt=0"`
}

type CreateOrderRequest struct {
	Items []OrderLineRequest `json:"items" validate:"dive"`
}

// OrderResponse is an order with its snapshot lines, payment and total.
type OrderResponse struct {
	models.Order
	Total decimal.Decimal `json:"total"`
}

// Payments

type PaymentRequest struct {
	OrderID uuid.UUID `json:"order_id" validate:"required"`
}

type PaymentIntentResponse struct {
	ClientSecret    string    `json:"client_secret"`
	PaymentIntentID string    `json:"payment_intent_id"`
	OrderID         uuid.UUID `json:"order_id"`
}

type ConfirmPaymentResponse struct {
	Message string         `json:"message"`
	Payment models.Payment `json:"payment"`
}

// Messages

type CreateMessageRequest struct {
	Content string `json:"content" validate:"required,max=5000"`
}
