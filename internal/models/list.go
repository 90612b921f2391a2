package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const (
	ListItemPending   = "pending"
	ListItemCompleted = "completed"
)

// List is a user's shopping list.
type List struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	Title     string     `gorm:"not null;size:255" json:"title"`
	CreatedAt time.Time  `gorm:"index" json:"created_at"`
	Items     []ListItem `gorm:"foreignKey:ListID;constraint:OnDelete:CASCADE" json:"items"`
	User      User       `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

func (l *List) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// ListItem optionally points at a catalog product; the link is cleared, not
// cascaded, when the product goes away.
type ListItem struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	ListID    uuid.UUID       `gorm:"type:uuid;not null;index" json:"list_id"`
	ProductID *uuid.UUID      `gorm:"type:uuid;index" json:"product_id"`
	Name      string          `gorm:"not null;size:255" json:"name"`
	Quantity  decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"quantity"`
	Unit      string          `gorm:"not null;size:50" json:"unit"`
	Status    string          `gorm:"not null;size:20;default:'pending'" json:"status"`
	Product   *Product        `gorm:"foreignKey:ProductID;constraint:OnDelete:SET NULL" json:"-"`
}

func (i *ListItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	if i.Status == "" {
		i.Status = ListItemPending
	}
	return nil
}

func ValidListItemStatus(status string) bool {
	return status == ListItemPending || status == ListItemCompleted
}
