package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/simplepos/pos-service/internal/catalog"
	"github.com/simplepos/pos-service/internal/payment"
)

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidTransition = errors.New("invalid order status transition")
)

type CartItem struct {
	ProductID uuid.UUID
	Quantity  int
}

// Checkout is what the dashboard needs to take an order through payment:
// the persisted pending order plus the gateway handle to open for the
// customer.
type Checkout struct {
	Order   *Order                  `json:"order"`
	Payment *payment.PaymentRequest `json:"payment"`
}

// ProductDirectory is the slice of the catalog the checkout needs to
// snapshot prices. catalog.Repository satisfies it.
type ProductDirectory interface {
	GetProductByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error)
}

type PaymentGateway interface {
	CreatePaymentRequest(ctx context.Context, referenceID string, amount int64) (*payment.PaymentRequest, error)
}

type Service interface {
	Checkout(ctx context.Context, items []CartItem) (*Checkout, error)
	GetOrderByID(ctx context.Context, id uuid.UUID) (*Order, error)
	GetRecentOrders(ctx context.Context, limit int) ([]Order, error)
	ReconcilePayment(ctx context.Context, orderID uuid.UUID, status payment.WebhookStatus, at time.Time) error
	CompleteOrder(ctx context.Context, orderID uuid.UUID) error
}

type service struct {
	repo     Repository
	products ProductDirectory
	gateway  PaymentGateway
}

func NewService(repo Repository, products ProductDirectory, gateway PaymentGateway) Service {
	return &service{
		repo:     repo,
		products: products,
		gateway:  gateway,
	}
}

func (s *service) Checkout(ctx context.Context, items []CartItem) (*Checkout, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: order must contain at least one item", ErrInvalidInput)
	}

	var total int64
	orderItems := make([]OrderItem, 0, len(items))

	for _, item := range items {
		if item.ProductID == uuid.Nil {
			return nil, fmt.Errorf("%w: product id is required", ErrInvalidInput)
		}
		if item.Quantity < 1 {
			return nil, fmt.Errorf("%w: quantity for product %s must be at least 1", ErrInvalidInput, item.ProductID)
		}

		product, err := s.products.GetProductByID(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, catalog.ErrProductNotFound) {
				return nil, fmt.Errorf("%w: %s", catalog.ErrProductNotFound, item.ProductID)
			}
			log.Error().Err(err).Stringer("product_id", item.ProductID).Msg("service: failed to resolve cart product")
			return nil, fmt.Errorf("service: failed to resolve cart product: %w", err)
		}

		orderItems = append(orderItems, OrderItem{
			ProductID:   product.ID,
			ProductName: product.Name,
			Price:       product.Price,
			Quantity:    item.Quantity,
		})
		total += product.Price * int64(item.Quantity)
	}

	orderID, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("service: failed to generate order ID: %w", err)
	}

	newOrder := &Order{
		ID:     orderID,
		Status: StatusPending,
		Total:  total,
		Items:  orderItems,
	}

	if err := s.repo.CreateOrder(ctx, newOrder); err != nil {
		log.Error().Err(err).Msg("service: failed to create order in repository")
		return nil, fmt.Errorf("service: failed to create order: %w", err)
	}

	pr, err := s.gateway.CreatePaymentRequest(ctx, orderID.String(), total)
	if err != nil {
		// A pending order nobody can pay for is worse than no order: roll the
		// record back before surfacing the gateway failure.
		if delErr := s.repo.DeleteOrder(ctx, orderID); delErr != nil {
			log.Error().Err(delErr).Stringer("order_id", orderID).
				Msg("service: failed to roll back order after gateway failure")
		}
		return nil, fmt.Errorf("service: failed to create payment request: %w", err)
	}

	newOrder.ExternalPaymentID = pr.ID
	if err := s.repo.SetPaymentReference(ctx, orderID, pr.ID); err != nil {
		log.Warn().Err(err).Stringer("order_id", orderID).Str("payment_request_id", pr.ID).
			Msg("service: failed to store payment reference")
	}

	log.Info().Stringer("order_id", orderID).Int64("total", total).Msg("service: order created")

	return &Checkout{Order: newOrder, Payment: pr}, nil
}

func (s *service) GetOrderByID(ctx context.Context, id uuid.UUID) (*Order, error) {
	o, err := s.repo.GetOrderByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		log.Error().Err(err).Stringer("order_id", id).Msg("service: failed to fetch order by id")
		return nil, fmt.Errorf("service: failed to fetch order by id: %w", err)
	}

	return o, nil
}

func (s *service) GetRecentOrders(ctx context.Context, limit int) ([]Order, error) {
	if limit <= 0 {
		limit = 50
	}

	orders, err := s.repo.GetRecentOrders(ctx, limit)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to fetch recent orders")
		return nil, fmt.Errorf("service: failed to fetch recent orders: %w", err)
	}

	return orders, nil
}

// ReconcilePayment applies a gateway payment outcome to a pending order.
// Delivery is at-least-once, so the transition is a conditional update and a
// redelivered event that finds the order already in the reported terminal
// state is a successful no-op.
func (s *service) ReconcilePayment(ctx context.Context, orderID uuid.UUID, status payment.WebhookStatus, at time.Time) error {
	target := StatusFailed
	var paidAt *time.Time
	if status == payment.WebhookStatusSucceeded {
		target = StatusProcessing
		paidAt = &at
	}

	moved, err := s.repo.TransitionStatus(ctx, orderID, StatusPending, target, paidAt)
	if err != nil {
		return fmt.Errorf("service: failed to reconcile payment for order %s: %w", orderID, err)
	}
	if moved {
		if target == StatusFailed {
			log.Warn().Stringer("order_id", orderID).Msg("service: payment failed, order marked FAILED")
		} else {
			log.Info().Stringer("order_id", orderID).Time("paid_at", at).Msg("service: payment confirmed, order moved to PROCESSING")
		}
		return nil
	}

	// Nothing matched the conditional update: the order is gone or no longer
	// pending. Re-read to tell those apart.
	current, err := s.repo.GetOrderByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return ErrOrderNotFound
		}
		return fmt.Errorf("service: failed to re-read order %s during reconciliation: %w", orderID, err)
	}

	if current.Status == target {
		log.Info().Stringer("order_id", orderID).Str("status", string(target)).
			Msg("service: duplicate webhook delivery, order already reconciled")
		return nil
	}

	// Terminal state disagrees with the reported outcome. Retrying the
	// delivery cannot fix that, so acknowledge it and leave a trace.
	log.Warn().Stringer("order_id", orderID).
		Str("current_status", string(current.Status)).
		Str("reported_target", string(target)).
		Msg("service: webhook outcome conflicts with terminal order state")
	return nil
}

func (s *service) CompleteOrder(ctx context.Context, orderID uuid.UUID) error {
	moved, err := s.repo.TransitionStatus(ctx, orderID, StatusProcessing, StatusCompleted, nil)
	if err != nil {
		return fmt.Errorf("service: failed to complete order %s: %w", orderID, err)
	}
	if moved {
		log.Info().Stringer("order_id", orderID).Msg("service: order completed")
		return nil
	}

	current, err := s.repo.GetOrderByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return ErrOrderNotFound
		}
		return fmt.Errorf("service: failed to re-read order %s: %w", orderID, err)
	}
	if current.Status == StatusCompleted {
		return nil
	}

	return fmt.Errorf("%w: cannot complete order in status %s", ErrInvalidTransition, current.Status)
}
