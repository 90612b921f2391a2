package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/smartshop-backend/internal/metrics"
	"github.com/ahmetcoskunkizilkaya/smartshop-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/smartshop-backend/internal/principal"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ShowcaseSize is how many products trending and recommended return.
const ShowcaseSize = 4

// RecommendationService answers the trending and recommended showcases.
// Neither fails because a recommender did; only storage errors surface.
type RecommendationService struct {
	db       *gorm.DB
	primary  Recommender
	fallback Recommender
	metrics  *metrics.Collector
}

func NewRecommendationService(db *gorm.DB, primary, fallback Recommender, m *metrics.Collector) *RecommendationService {
	return &RecommendationService{
		db:       db,
		primary:  primary,
		fallback: fallback,
		metrics:  m,
	}
}

func (s *RecommendationService) catalog() ([]models.Product, error) {
	var products []models.Product
	if err := s.db.Order(models.CatalogOrder).Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	return products, nil
}

// Trending ranks products by how many order items reference them. Products
// never ordered fill the remaining places in catalog order.
func (s *RecommendationService) Trending() ([]models.Product, error) {
	catalog, err := s.catalog()
	if err != nil {
		return nil, err
	}
	counts, err := orderCounts(s.db)
	if err != nil {
		return nil, err
	}
	return head(rankByCount(catalog, counts), ShowcaseSize), nil
}

// Recommended picks products for userID. A user with no orders, or whose
// order history cannot be read, gets the head of the catalog.
func (s *RecommendationService) Recommended(ctx context.Context, userID uuid.UUID) ([]models.Product, error) {
	catalog, err := s.catalog()
	if err != nil {
		return nil, err
	}

	var orders int64
	if err := s.db.Model(&models.Order{}).Scopes(principal.OwnedBy(userID)).Count(&orders).Error; err != nil {
		slog.WarnContext(ctx, "failed to count orders", "user_id", userID.String(), "error", err)
		return s.showcase(catalog), nil
	}
	if orders == 0 {
		return s.showcase(catalog), nil
	}

	var history []string
	err = s.db.Model(&models.OrderItem{}).
		Distinct("order_items.product_name").
		Joins("JOIN orders ON orders.id = order_items.order_id").
		Where("orders.user_id = ?", userID).
		Order("order_items.product_name ASC").
		Pluck("order_items.product_name", &history).Error
	if err != nil {
		slog.WarnContext(ctx, "failed to load purchase history", "user_id", userID.String(), "error", err)
		return s.showcase(catalog), nil
	}

	for _, r := range []Recommender{s.primary, s.fallback} {
		if r == nil {
			continue
		}
		ids, err := r.Recommend(ctx, history, catalog)
		if err != nil {
			if !errors.Is(err, errRecommenderNotConfigured) {
				slog.WarnContext(ctx, "recommender failed", "recommender", r.Name(), "error", err)
			}
			continue
		}
		if len(ids) == 0 {
			continue
		}
		s.metrics.Recommended(r.Name())
		return fill(catalog, ids, ShowcaseSize), nil
	}

	return s.showcase(catalog), nil
}

func (s *RecommendationService) showcase(catalog []models.Product) []models.Product {
	s.metrics.Recommended("catalog")
	return head(catalog, ShowcaseSize)
}

func head(products []models.Product, n int) []models.Product {
	if len(products) > n {
		products = products[:n]
	}
	out := make([]models.Product, len(products))
	copy(out, products)
	return out
}

// fill resolves ranked ids against catalog, dropping unknown and repeated
// ids, then pads with the remaining catalog in order up to n products.
func fill(catalog []models.Product, ranked []uuid.UUID, n int) []models.Product {
	byID := make(map[uuid.UUID]models.Product, len(catalog))
	for _, p := range catalog {
		byID[p.ID] = p
	}

	out := make([]models.Product, 0, n)
	used := make(map[uuid.UUID]bool, n)
	for _, id := range ranked {
		if len(out) == n {
			return out
		}
		p, ok := byID[id]
		if !ok || used[id] {
			continue
		}
		used[id] = true
		out = append(out, p)
	}
	for _, p := range catalog {
		if len(out) == n {
			break
		}
		if !used[p.ID] {
			used[p.ID] = true
			out = append(out, p)
		}
	}
	return out
}
