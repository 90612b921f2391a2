package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ahmetcoskunkizilkaya/smartshop-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/smartshop-backend/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CatalogService serves products and FAQs, plus the admin writes on both.
type CatalogService struct {
	db *gorm.DB
}

func NewCatalogService(db *gorm.DB) *CatalogService {
	return &CatalogService{db: db}
}

func (s *CatalogService) ListProducts() ([]models.Product, error) {
	var products []models.Product
	if err := s.db.Order(models.CatalogOrder).Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

func (s *CatalogService) GetProduct(id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := s.db.First(&product, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to load product: %w", err)
	}
	return &product, nil
}

func validPrice(p decimal.Decimal) bool {
	return !p.IsNegative() && p.Equal(p.Round(2))
}

func (s *CatalogService) CreateProduct(req *dto.CreateProductRequest) (*models.Product, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" || !validPrice(req.Price) || req.Stock < 0 {
		return nil, ErrValidation
	}

	product := models.Product{
		Name:        name,
		Price:       req.Price,
		Stock:       req.Stock,
		Image:       req.Image,
		Description: req.Description,
	}
	if err := s.db.Create(&product).Error; err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	return &product, nil
}

func (s *CatalogService) UpdateProduct(id uuid.UUID, req *dto.UpdateProductRequest) (*models.Product, error) {
	product, err := s.GetProduct(id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, ErrValidation
		}
		updates["name"] = name
	}
	if req.Price != nil {
		if !validPrice(*req.Price) {
			return nil, ErrValidation
		}
		updates["price"] = *req.Price
	}
	if req.Stock != nil {
		if *req.Stock < 0 {
			return nil, ErrValidation
		}
		updates["stock"] = *req.Stock
	}
	if req.Image != nil {
		updates["image"] = *req.Image
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}

	if len(updates) > 0 {
		if err := s.db.Model(product).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("failed to update product: %w", err)
		}
	}
	return s.GetProduct(id)
}

// DeleteProduct removes a product that no order has ever referenced. List
// items pointing at it keep their text and lose the link.
func (s *CatalogService) DeleteProduct(id uuid.UUID) error {
	if _, err := s.GetProduct(id); err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		var used int64
		if err := tx.Model(&models.OrderItem{}).Where("product_id = ?", id).Count(&used).Error; err != nil {
			return err
		}
		if used > 0 {
			return ErrProductInUse
		}

		err := tx.Model(&models.ListItem{}).
			Where("product_id = ?", id).
			Update("product_id", nil).Error
		if err != nil {
			return fmt.Errorf("failed to unlink list items: %w", err)
		}
		return tx.Delete(&models.Product{}, "id = ?", id).Error
	})
}

func (s *CatalogService) ListFAQs() ([]models.FAQ, error) {
	var faqs []models.FAQ
	if err := s.db.Order("question ASC").Find(&faqs).Error; err != nil {
		return nil, fmt.Errorf("failed to list faqs: %w", err)
	}
	return faqs, nil
}

func (s *CatalogService) CreateFAQ(req *dto.CreateFAQRequest) (*models.FAQ, error) {
	question := strings.TrimSpace(req.Question)
	answer := strings.TrimSpace(req.Answer)
	if question == "" || answer == "" {
		return nil, ErrValidation
	}

	faq := models.FAQ{Question: question, Answer: answer}
	if err := s.db.Create(&faq).Error; err != nil {
		return nil, fmt.Errorf("failed to create faq: %w", err)
	}
	return &faq, nil
}
