package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/ahmetcoskunkizilkaya/smartshop-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/smartshop-backend/internal/dto"
	"github.com/ahmetcoskunkizilkaya/smartshop-backend/internal/mail"
	"github.com/ahmetcoskunkizilkaya/smartshop-backend/internal/metrics"
	"github.com/ahmetcoskunkizilkaya/smartshop-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/smartshop-backend/internal/payments"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PaymentService struct {
	db      *gorm.DB
	cfg     *config.Config
	gateway payments.Gateway
	mailer  mail.Mailer
	metrics *metrics.Collector
}

func NewPaymentService(db *gorm.DB, cfg *config.Config, gateway payments.Gateway, mailer mail.Mailer, m *metrics.Collector) *PaymentService {
	return &PaymentService{
		db:      db,
		cfg:     cfg,
		gateway: gateway,
		mailer:  mailer,
		metrics: m,
	}
}

func (s *PaymentService) ownedPayment(userID, orderID uuid.UUID) (*models.Order, *models.Payment, error) {
	order, err := loadOwnedOrder(s.db, userID, orderID)
	if err != nil {
		return nil, nil, err
	}
	if order.Payment == nil {
		return nil, nil, ErrPaymentNotFound
	}
	return order, order.Payment, nil
}

// CreatePaymentIntent opens a gateway intent for the order's pending payment
// and returns its client secret. An intent already recorded on the payment
// is reused.
func (s *PaymentService) CreatePaymentIntent(ctx context.Context, userID, orderID uuid.UUID) (*dto.PaymentIntentResponse, error) {
	order, payment, err := s.ownedPayment(userID, orderID)
	if err != nil {
		return nil, err
	}
	if payment.Status != models.StatusPending {
		return nil, ErrPaymentNotPending
	}

	if payment.StripePaymentIntentID != nil {
		intent, err := s.gateway.GetIntent(ctx, *payment.StripePaymentIntentID)
		if err != nil {
			return nil, err
		}
		return &dto.PaymentIntentResponse{
			ClientSecret:    intent.ClientSecret,
			PaymentIntentID: intent.ID,
			OrderID:         order.ID,
		}, nil
	}

	intent, err := s.gateway.CreateIntent(ctx, payments.ToMinorUnits(payment.Amount), s.cfg.PaymentCurrency,
		map[string]string{
			"order_id":     order.ID.String(),
			"order_number": order.OrderNumber,
			"user_id":      userID.String(),
		})
	if err != nil {
		return nil, err
	}

	if err := s.db.Model(payment).Update("stripe_payment_intent_id", intent.ID).Error; err != nil {
		return nil, fmt.Errorf("failed to record payment intent: %w", err)
	}

	return &dto.PaymentIntentResponse{
		ClientSecret:    intent.ClientSecret,
		PaymentIntentID: intent.ID,
		OrderID:         order.ID,
	}, nil
}

// ConfirmPayment asks the gateway for the intent's status and finalizes the
// payment accordingly. Confirming an already completed payment is a no-op.
func (s *PaymentService) ConfirmPayment(ctx context.Context, userID, orderID uuid.UUID) (*models.Payment, error) {
	_, payment, err := s.ownedPayment(userID, orderID)
	if err != nil {
		return nil, err
	}
	if payment.StripePaymentIntentID == nil {
		return nil, ErrPaymentNotFound
	}
	switch payment.Status {
	case models.StatusCompleted:
		return payment, nil
	case models.StatusFailed:
		return nil, ErrPaymentNotPending
	}

	intent, err := s.gateway.GetIntent(ctx, *payment.StripePaymentIntentID)
	if err != nil {
		return nil, err
	}

	succeeded := intent.Status == payments.StatusSucceeded
	if _, err := s.finalize(ctx, payment.ID, succeeded); err != nil {
		return nil, err
	}

	updated, err := s.reloadPayment(payment.ID)
	if err != nil {
		return nil, err
	}
	if !succeeded || updated.Status == models.StatusFailed {
		return nil, ErrPaymentUnsuccessful
	}
	return updated, nil
}

// HandleWebhook verifies a gateway event and applies the same finalization
// as ConfirmPayment to the payment holding the event's intent.
func (s *PaymentService) HandleWebhook(ctx context.Context, payload []byte, signature string) (*dto.WebhookAck, error) {
	event, err := s.gateway.ParseWebhook(payload, signature)
	if err != nil {
		return nil, err
	}

	ack := &dto.WebhookAck{Received: true, Type: event.Type}
	if event.Type != payments.EventSucceeded && event.Type != payments.EventFailed {
		return ack, nil
	}

	var payment models.Payment
	if err := s.db.Where("stripe_payment_intent_id = ?", event.Intent.ID).First(&payment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			slog.Warn("webhook for unknown payment intent", "intent_id", event.Intent.ID, "type", event.Type)
			return ack, nil
		}
		return nil, fmt.Errorf("failed to load payment: %w", err)
	}

	succeeded := event.Type == payments.EventSucceeded && event.Intent.Status == payments.StatusSucceeded
	applied, err := s.finalize(ctx, payment.ID, succeeded)
	if err != nil {
		return nil, err
	}
	ack.Applied = applied
	return ack, nil
}

// finalize moves a pending payment and its order to completed or failed.
// On success the order's products are decremented by the ordered quantities
// in the same transaction; a product without enough stock rolls everything
// back. Only the call that wins the pending transition has any effect, so
// stock is decremented at most once per order. applied reports whether this
// call made the transition.
func (s *PaymentService) finalize(ctx context.Context, paymentID uuid.UUID, succeeded bool) (applied bool, err error) {
	target := models.StatusFailed
	if succeeded {
		target = models.StatusCompleted
	}

	var payment models.Payment
	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&payment, "id = ?", paymentID).Error; err != nil {
			return fmt.Errorf("failed to load payment: %w", err)
		}

		res := tx.Model(&models.Payment{}).
			Where("id = ? AND status = ?", paymentID, models.StatusPending).
			Update("status", target)
		if res.Error != nil {
			return fmt.Errorf("failed to update payment: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return nil
		}
		applied = true

		if err := tx.Model(&models.Order{}).Where("id = ?", payment.OrderID).Update("status", target).Error; err != nil {
			return fmt.Errorf("failed to update order: %w", err)
		}
		if !succeeded {
			return nil
		}

		var items []models.OrderItem
		if err := tx.Where("order_id = ?", payment.OrderID).Find(&items).Error; err != nil {
			return fmt.Errorf("failed to load order items: %w", err)
		}
		for _, item := range items {
			res := tx.Model(&models.Product{}).
				Where("id = ? AND stock >= ?", item.ProductID, item.Quantity).
				Update("stock", gorm.Expr("stock - ?", item.Quantity))
			if res.Error != nil {
				return fmt.Errorf("failed to decrement stock: %w", res.Error)
			}
			if res.RowsAffected == 0 {
				return fmt.Errorf("%w for %s", ErrInsufficientStock, item.ProductName)
			}
		}
		return nil
	})
	if err != nil {
		applied = false
		slog.ErrorContext(ctx, "payment finalization failed",
			"action", "finalize_payment", "order_id", payment.OrderID.String(), "error", err)
		return false, err
	}
	if !applied {
		return false, nil
	}

	s.metrics.PaymentFinalized(target)
	slog.Info("payment finalized", "order_id", payment.OrderID.String(), "status", target)
	if succeeded {
		s.sendConfirmation(ctx, payment.OrderID)
	}
	return true, nil
}

func (s *PaymentService) reloadPayment(id uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	if err := s.db.First(&payment, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("failed to load payment: %w", err)
	}
	return &payment, nil
}

func (s *PaymentService) sendConfirmation(ctx context.Context, orderID uuid.UUID) {
	var order models.Order
	err := s.db.Scopes(preloadOrder).Preload("User").First(&order, "id = ?", orderID).Error
	if err != nil {
		slog.ErrorContext(ctx, "failed to load order for confirmation email",
			"action", "send_email", "order_id", orderID.String(), "error", err)
		return
	}

	summary := mail.OrderSummary{
		Name:          order.User.Name,
		OrderNumber:   order.OrderNumber,
		PaymentStatus: order.Payment.Status,
		Total:         orderTotal(order.Items),
	}
	for _, item := range order.Items {
		summary.Lines = append(summary.Lines, mail.OrderLine{
			Name:     item.ProductName,
			Quantity: item.Quantity,
			Price:    item.ProductPrice,
			Subtotal: item.Subtotal(),
		})
	}

	msg, err := mail.OrderConfirmationEmail(order.User.Email, summary)
	deliver(ctx, s.mailer, s.metrics, msg, err, "order_id", orderID.String())
}
