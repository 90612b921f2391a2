// Package seed loads the starter catalog into an empty database.
package seed

import (
	_ "embed"
	"fmt"
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/smartshop-backend/internal/models"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

//go:embed catalog.yaml
var defaultCatalog []byte

type Product struct {
	Name        string `yaml:"name"`
	Price       string `yaml:"price"`
	Stock       int    `yaml:"stock"`
	Image       string `yaml:"image"`
	Description string `yaml:"description"`
}

type FAQ struct {
	Question string `yaml:"question"`
	Answer   string `yaml:"answer"`
}

type Catalog struct {
	Products []Product `yaml:"products"`
	FAQs     []FAQ     `yaml:"faqs"`
}

// Default returns the embedded starter catalog.
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	for _, p := range c.Products {
		if _, err := decimal.NewFromString(p.Price); err != nil {
			return nil, fmt.Errorf("product %q: invalid price %q", p.Name, p.Price)
		}
	}
	return &c, nil
}

// Apply inserts the catalog's products and FAQs, each only when its table is
// empty, so running it on every start is safe.
func Apply(db *gorm.DB, c *Catalog) error {
	return db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Product{}).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to count products: %w", err)
		}
		if count == 0 && len(c.Products) > 0 {
			products := make([]models.Product, 0, len(c.Products))
			for _, p := range c.Products {
				products = append(products, models.Product{
					Name:        p.Name,
					Price:       decimal.RequireFromString(p.Price),
					Stock:       p.Stock,
					Image:       p.Image,
					Description: p.Description,
				})
			}
			if err := tx.Create(&products).Error; err != nil {
				return fmt.Errorf("failed to seed products: %w", err)
			}
			slog.Info("catalog seeded", "products", len(products))
		}

		if err := tx.Model(&models.FAQ{}).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to count faqs: %w", err)
		}
		if count == 0 && len(c.FAQs) > 0 {
			faqs := make([]models.FAQ, 0, len(c.FAQs))
			for _, f := range c.FAQs {
				faqs = append(faqs, models.FAQ{Question: f.Question, Answer: f.Answer})
			}
			if err := tx.Create(&faqs).Error; err != nil {
				return fmt.Errorf("failed to seed faqs: %w", err)
			}
			slog.Info("faqs seeded", "faqs", len(faqs))
		}
		return nil
	})
}
