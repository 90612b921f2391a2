package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Order and Payment share the same three states and move together.
const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

type Order struct {
	ID          uuid.UUID   `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      uuid.UUID   `gorm:"type:uuid;not null;index" json:"user_id"`
	OrderNumber string      `gorm:"not null;size:64;uniqueIndex" json:"order_number"`
	Status      string      `gorm:"not null;size:20;default:'pending'" json:"status"`
	CreatedAt   time.Time   `gorm:"index" json:"created_at"`
	Items       []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`
	Payment     *Payment    `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"payment"`
	User        User        `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// OrderItem is a point-in-time copy of the product it was ordered from.
type OrderItem struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	OrderID      uuid.UUID       `gorm:"type:uuid;not null;index" json:"order_id"`
	ProductID    uuid.UUID       `gorm:"type:uuid;not null;index" json:"product_id"`
	ProductName  string          `gorm:"not null;size:255" json:"product_name"`
	ProductPrice decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"product_price"`
	Quantity     int             `gorm:"not null" json:"quantity"`
	Product      *Product        `gorm:"foreignKey:ProductID;constraint:OnDelete:RESTRICT" json:"-"`
}

func (i *OrderItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// Subtotal is the snapshot price times quantity.
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.ProductPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

type Payment struct {
	ID                    uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	OrderID               uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex" json:"order_id"`
	Amount                decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"amount"`
	Status                string          `gorm:"not null;size:20;default:'pending'" json:"status"`
	StripePaymentIntentID *string         `gorm:"size:255;index" json:"stripe_payment_intent_id"`
	CreatedAt             time.Time       `json:"created_at"`
}

func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// Message is a free-form note left by a user.
type Message struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	Timestamp time.Time `gorm:"not null;index" json:"timestamp"`
	User      User      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = time.Now().UTC()
	}
	return nil
}
