package services

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/smartshop-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/smartshop-backend/internal/metrics"
	"github.com/ahmetcoskunkizilkaya/smartshop-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/smartshop-backend/internal/principal"
	"github.com/google/uuid"
	"github.com/juju/clock"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type OrderService struct {
	db      *gorm.DB
	clock   clock.Clock
	metrics *metrics.Collector
}

func NewOrderService(db *gorm.DB, clk clock.Clock, m *metrics.Collector) *OrderService {
	return &OrderService{db: db, clock: clk, metrics: m}
}

// CreateOrder places a pending order for userID. The order, its item
// snapshots and its pending payment are written in one transaction; any
// failing line leaves nothing behind.
func (s *OrderService) CreateOrder(userID uuid.UUID, req *dto.CreateOrderRequest) (*dto.OrderResponse, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyOrder
	}
	requested := make(map[uuid.UUID]int, len(req.Items))
	for _, line := range req.Items {
		if line.Quantity <= 0 || line.ProductID == uuid.Nil {
			return nil, ErrValidation
		}
		requested[line.ProductID] += line.Quantity
	}

	orderNumber, err := generateOrderNumber(s.clock.Now())
	if err != nil {
		return nil, err
	}

	var order models.Order
	err = s.db.Transaction(func(tx *gorm.DB) error {
		products := make(map[uuid.UUID]models.Product, len(requested))
		for productID, qty := range requested {
			var product models.Product
			if err := tx.First(&product, "id = ?", productID).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return fmt.Errorf("%w: %s", ErrProductNotFound, productID)
				}
				return fmt.Errorf("failed to load product: %w", err)
			}
			if product.Stock < qty {
				return fmt.Errorf("%w for %s", ErrInsufficientStock, product.Name)
			}
			products[productID] = product
		}

		order = models.Order{
			UserID:      userID,
			OrderNumber: orderNumber,
			Status:      models.StatusPending,
		}
		if err := tx.Create(&order).Error; err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}

		total := decimal.Zero
		items := make([]models.OrderItem, 0, len(req.Items))
		for _, line := range req.Items {
			product := products[line.ProductID]
			item := models.OrderItem{
				OrderID:      order.ID,
				ProductID:    product.ID,
				ProductName:  product.Name,
				ProductPrice: product.Price,
				Quantity:     line.Quantity,
			}
			total = total.Add(item.Subtotal())
			items = append(items, item)
		}
		if err := tx.Create(&items).Error; err != nil {
			return fmt.Errorf("failed to create order items: %w", err)
		}

		payment := models.Payment{
			OrderID: order.ID,
			Amount:  total.Round(2),
			Status:  models.StatusPending,
		}
		if err := tx.Create(&payment).Error; err != nil {
			return fmt.Errorf("failed to create payment: %w", err)
		}

		order.Items = items
		order.Payment = &payment
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.OrderCreated()
	slog.Info("order created", "order_id", order.ID.String(), "user_id", userID.String(),
		"order_number", order.OrderNumber, "amount", order.Payment.Amount.StringFixed(2))
	return toOrderResponse(&order), nil
}

func preloadOrder(db *gorm.DB) *gorm.DB {
	return db.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("product_name ASC, id ASC")
	}).Preload("Payment")
}

// ListOrders returns the user's orders, newest first.
func (s *OrderService) ListOrders(userID uuid.UUID) ([]dto.OrderResponse, error) {
	var orders []models.Order
	err := s.db.Scopes(principal.OwnedBy(userID), preloadOrder).
		Order("created_at DESC").
		Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	result := make([]dto.OrderResponse, 0, len(orders))
	for i := range orders {
		result = append(result, *toOrderResponse(&orders[i]))
	}
	return result, nil
}

func (s *OrderService) GetOrder(userID, orderID uuid.UUID) (*dto.OrderResponse, error) {
	order, err := loadOwnedOrder(s.db, userID, orderID)
	if err != nil {
		return nil, err
	}
	return toOrderResponse(order), nil
}

func loadOwnedOrder(db *gorm.DB, userID, orderID uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := db.Scopes(principal.OwnedBy(userID), preloadOrder).
		First(&order, "id = ?", orderID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	return &order, nil
}

func orderTotal(items []models.OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.Subtotal())
	}
	return total.Round(2)
}

func toOrderResponse(order *models.Order) *dto.OrderResponse {
	if order.Items == nil {
		order.Items = []models.OrderItem{}
	}
	return &dto.OrderResponse{Order: *order, Total: orderTotal(order.Items)}
}
