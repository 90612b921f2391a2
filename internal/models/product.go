package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CatalogOrder is the stable enumeration order of the catalog. Trending and
// recommendation padding rely on it.
const CatalogOrder = "name ASC, id ASC"

type Product struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Name        string          `gorm:"not null;size:255" json:"name"`
	Price       decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"price"`
	Stock       int             `gorm:"not null;default:0" json:"stock"`
	Image       string          `gorm:"type:text" json:"image"`
	Description string          `gorm:"type:text" json:"description"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

type FAQ struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Question string    `gorm:"type:text;not null" json:"question"`
	Answer   string    `gorm:"type:text;not null" json:"answer"`
}

func (f *FAQ) BeforeCreate(tx *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}

func (FAQ) TableName() string {
	return "faqs"
}
