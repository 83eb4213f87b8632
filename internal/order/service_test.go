package order_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simplepos/pos-service/internal/catalog"
	"github.com/simplepos/pos-service/internal/order"
	"github.com/simplepos/pos-service/internal/payment"
)

type mockOrderRepository struct {
	createFunc     func(ctx context.Context, o *order.Order) error
	getByIDFunc    func(ctx context.Context, id uuid.UUID) (*order.Order, error)
	getRecentFunc  func(ctx context.Context, limit int) ([]order.Order, error)
	deleteFunc     func(ctx context.Context, id uuid.UUID) error
	setRefFunc     func(ctx context.Context, id uuid.UUID, externalPaymentID string) error
	transitionFunc func(ctx context.Context, id uuid.UUID, from, to order.Status, paidAt *time.Time) (bool, error)
}

func (m *mockOrderRepository) CreateOrder(ctx context.Context, o *order.Order) error {
	return m.createFunc(ctx, o)
}

func (m *mockOrderRepository) GetOrderByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	return m.getByIDFunc(ctx, id)
}

func (m *mockOrderRepository) GetRecentOrders(ctx context.Context, limit int) ([]order.Order, error) {
	return m.getRecentFunc(ctx, limit)
}

func (m *mockOrderRepository) DeleteOrder(ctx context.Context, id uuid.UUID) error {
	return m.deleteFunc(ctx, id)
}

func (m *mockOrderRepository) SetPaymentReference(ctx context.Context, id uuid.UUID, externalPaymentID string) error {
	return m.setRefFunc(ctx, id, externalPaymentID)
}

func (m *mockOrderRepository) TransitionStatus(ctx context.Context, id uuid.UUID, from, to order.Status, paidAt *time.Time) (bool, error) {
	return m.transitionFunc(ctx, id, from, to, paidAt)
}

type mockProductDirectory struct {
	products map[uuid.UUID]*catalog.Product
}

func (m *mockProductDirectory) GetProductByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	if p, ok := m.products[id]; ok {
		return p, nil
	}
	return nil, catalog.ErrProductNotFound
}

type mockGateway struct {
	createFunc func(ctx context.Context, referenceID string, amount int64) (*payment.PaymentRequest, error)
	calls      int
}

func (m *mockGateway) CreatePaymentRequest(ctx context.Context, referenceID string, amount int64) (*payment.PaymentRequest, error) {
	m.calls++
	return m.createFunc(ctx, referenceID, amount)
}

func mustUUID(t *testing.T, s string) uuid.UUID {
	t.Helper()
	id, err := uuid.FromString(s)
	require.NoError(t, err)
	return id
}

func TestService_Checkout(t *testing.T) {
	p1 := mustUUID(t, "550e8400-e29b-41d4-a716-446655440001")
	p2 := mustUUID(t, "550e8400-e29b-41d4-a716-446655440002")

	directory := &mockProductDirectory{products: map[uuid.UUID]*catalog.Product{
		p1: {ID: p1, Name: "Kopi Susu", Price: 15000},
		p2: {ID: p2, Name: "Nasi Goreng", Price: 25000},
	}}

	tests := []struct {
		name      string
		items     []order.CartItem
		wantErrIs error
		wantTotal int64
	}{
		{
			name:      "empty_cart",
			items:     nil,
			wantErrIs: order.ErrInvalidInput,
		},
		{
			name:      "zero_quantity",
			items:     []order.CartItem{{ProductID: p1, Quantity: 0}},
			wantErrIs: order.ErrInvalidInput,
		},
		{
			name:      "nil_product_id",
			items:     []order.CartItem{{ProductID: uuid.Nil, Quantity: 1}},
			wantErrIs: order.ErrInvalidInput,
		},
		{
			name:      "unknown_product",
			items:     []order.CartItem{{ProductID: mustUUID(t, "550e8400-e29b-41d4-a716-446655440099"), Quantity: 1}},
			wantErrIs: catalog.ErrProductNotFound,
		},
		{
			name: "snapshots_prices_and_sums_total",
			items: []order.CartItem{
				{ProductID: p1, Quantity: 2},
				{ProductID: p2, Quantity: 1},
			},
			wantTotal: 55000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var created *order.Order
			repo := &mockOrderRepository{
				createFunc: func(ctx context.Context, o *order.Order) error {
					created = o
					return nil
				},
				setRefFunc: func(ctx context.Context, id uuid.UUID, externalPaymentID string) error {
					return nil
				},
			}
			gateway := &mockGateway{createFunc: func(ctx context.Context, referenceID string, amount int64) (*payment.PaymentRequest, error) {
				return &payment.PaymentRequest{ID: "pr-123", ReferenceID: referenceID, CheckoutURL: "https://pay.example/pr-123"}, nil
			}}

			svc := order.NewService(repo, directory, gateway)
			checkout, err := svc.Checkout(context.Background(), tt.items)

			if tt.wantErrIs != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErrIs))
				assert.Nil(t, checkout)
				assert.Nil(t, created)
				assert.Zero(t, gateway.calls)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, checkout)
			assert.Equal(t, tt.wantTotal, checkout.Order.Total)
			assert.Equal(t, order.StatusPending, created.Status)
			assert.Equal(t, "pr-123", checkout.Payment.ID)
			assert.Equal(t, "pr-123", checkout.Order.ExternalPaymentID)

			require.Len(t, created.Items, 2)
			assert.Equal(t, int64(15000), created.Items[0].Price)
			assert.Equal(t, "Kopi Susu", created.Items[0].ProductName)
			assert.Equal(t, 2, created.Items[0].Quantity)
			assert.Equal(t, int64(25000), created.Items[1].Price)
		})
	}
}

func TestService_Checkout_GatewayFailureRollsBackOrder(t *testing.T) {
	p1 := mustUUID(t, "550e8400-e29b-41d4-a716-446655440001")
	directory := &mockProductDirectory{products: map[uuid.UUID]*catalog.Product{
		p1: {ID: p1, Name: "Kopi Susu", Price: 15000},
	}}

	var deletedID uuid.UUID
	repo := &mockOrderRepository{
		createFunc: func(ctx context.Context, o *order.Order) error { return nil },
		deleteFunc: func(ctx context.Context, id uuid.UUID) error {
			deletedID = id
			return nil
		},
	}
	gateway := &mockGateway{createFunc: func(ctx context.Context, referenceID string, amount int64) (*payment.PaymentRequest, error) {
		return nil, payment.ErrGateway
	}}

	svc := order.NewService(repo, directory, gateway)
	checkout, err := svc.Checkout(context.Background(), []order.CartItem{{ProductID: p1, Quantity: 1}})

	require.Error(t, err)
	assert.True(t, errors.Is(err, payment.ErrGateway))
	assert.Nil(t, checkout)
	assert.NotEqual(t, uuid.Nil, deletedID, "pending order must be rolled back when the gateway call fails")
}

func TestService_ReconcilePayment(t *testing.T) {
	orderID := mustUUID(t, "550e8400-e29b-41d4-a716-446655440010")
	now := time.Now().UTC()

	tests := []struct {
		name           string
		status         payment.WebhookStatus
		transitionFunc func(t *testing.T) func(ctx context.Context, id uuid.UUID, from, to order.Status, paidAt *time.Time) (bool, error)
		getByIDFunc    func(ctx context.Context, id uuid.UUID) (*order.Order, error)
		wantErrIs      error
		wantErr        bool
	}{
		{
			name:   "succeeded_moves_pending_to_processing_with_paid_at",
			status: payment.WebhookStatusSucceeded,
			transitionFunc: func(t *testing.T) func(ctx context.Context, id uuid.UUID, from, to order.Status, paidAt *time.Time) (bool, error) {
				return func(ctx context.Context, id uuid.UUID, from, to order.Status, paidAt *time.Time) (bool, error) {
					assert.Equal(t, order.StatusPending, from)
					assert.Equal(t, order.StatusProcessing, to)
					require.NotNil(t, paidAt)
					assert.Equal(t, now, *paidAt)
					return true, nil
				}
			},
		},
		{
			name:   "failed_moves_pending_to_failed_without_paid_at",
			status: payment.WebhookStatusFailed,
			transitionFunc: func(t *testing.T) func(ctx context.Context, id uuid.UUID, from, to order.Status, paidAt *time.Time) (bool, error) {
				return func(ctx context.Context, id uuid.UUID, from, to order.Status, paidAt *time.Time) (bool, error) {
					assert.Equal(t, order.StatusFailed, to)
					assert.Nil(t, paidAt)
					return true, nil
				}
			},
		},
		{
			name:   "duplicate_delivery_is_a_no_op",
			status: payment.WebhookStatusSucceeded,
			transitionFunc: func(t *testing.T) func(ctx context.Context, id uuid.UUID, from, to order.Status, paidAt *time.Time) (bool, error) {
				return func(ctx context.Context, id uuid.UUID, from, to order.Status, paidAt *time.Time) (bool, error) {
					return false, nil
				}
			},
			getByIDFunc: func(ctx context.Context, id uuid.UUID) (*order.Order, error) {
				paidAt := now.Add(-time.Minute)
				return &order.Order{ID: orderID, Status: order.StatusProcessing, PaidAt: &paidAt}, nil
			},
		},
		{
			name:   "conflicting_terminal_state_is_acknowledged",
			status: payment.WebhookStatusSucceeded,
			transitionFunc: func(t *testing.T) func(ctx context.Context, id uuid.UUID, from, to order.Status, paidAt *time.Time) (bool, error) {
				return func(ctx context.Context, id uuid.UUID, from, to order.Status, paidAt *time.Time) (bool, error) {
					return false, nil
				}
			},
			getByIDFunc: func(ctx context.Context, id uuid.UUID) (*order.Order, error) {
				return &order.Order{ID: orderID, Status: order.StatusFailed}, nil
			},
		},
		{
			name:   "unknown_order",
			status: payment.WebhookStatusSucceeded,
			transitionFunc: func(t *testing.T) func(ctx context.Context, id uuid.UUID, from, to order.Status, paidAt *time.Time) (bool, error) {
				return func(ctx context.Context, id uuid.UUID, from, to order.Status, paidAt *time.Time) (bool, error) {
					return false, nil
				}
			},
			getByIDFunc: func(ctx context.Context, id uuid.UUID) (*order.Order, error) {
				return nil, order.ErrOrderNotFound
			},
			wantErr:   true,
			wantErrIs: order.ErrOrderNotFound,
		},
		{
			name:   "repository_failure_propagates",
			status: payment.WebhookStatusSucceeded,
			transitionFunc: func(t *testing.T) func(ctx context.Context, id uuid.UUID, from, to order.Status, paidAt *time.Time) (bool, error) {
				return func(ctx context.Context, id uuid.UUID, from, to order.Status, paidAt *time.Time) (bool, error) {
					return false, errors.New("connection reset")
				}
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockOrderRepository{
				transitionFunc: tt.transitionFunc(t),
				getByIDFunc:    tt.getByIDFunc,
			}
			svc := order.NewService(repo, &mockProductDirectory{}, &mockGateway{})

			err := svc.ReconcilePayment(context.Background(), orderID, tt.status, now)
			if tt.wantErr {
				require.Error(t, err)
				if tt.wantErrIs != nil {
					assert.True(t, errors.Is(err, tt.wantErrIs))
				}
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestService_CompleteOrder(t *testing.T) {
	orderID := mustUUID(t, "550e8400-e29b-41d4-a716-446655440010")

	t.Run("processing_order_completes", func(t *testing.T) {
		repo := &mockOrderRepository{
			transitionFunc: func(ctx context.Context, id uuid.UUID, from, to order.Status, paidAt *time.Time) (bool, error) {
				assert.Equal(t, order.StatusProcessing, from)
				assert.Equal(t, order.StatusCompleted, to)
				return true, nil
			},
		}
		svc := order.NewService(repo, &mockProductDirectory{}, &mockGateway{})
		assert.NoError(t, svc.CompleteOrder(context.Background(), orderID))
	})

	t.Run("already_completed_is_a_no_op", func(t *testing.T) {
		repo := &mockOrderRepository{
			transitionFunc: func(ctx context.Context, id uuid.UUID, from, to order.Status, paidAt *time.Time) (bool, error) {
				return false, nil
			},
			getByIDFunc: func(ctx context.Context, id uuid.UUID) (*order.Order, error) {
				return &order.Order{ID: orderID, Status: order.StatusCompleted}, nil
			},
		}
		svc := order.NewService(repo, &mockProductDirectory{}, &mockGateway{})
		assert.NoError(t, svc.CompleteOrder(context.Background(), orderID))
	})

	t.Run("pending_order_cannot_complete", func(t *testing.T) {
		repo := &mockOrderRepository{
			transitionFunc: func(ctx context.Context, id uuid.UUID, from, to order.Status, paidAt *time.Time) (bool, error) {
				return false, nil
			},
			getByIDFunc: func(ctx context.Context, id uuid.UUID) (*order.Order, error) {
				return &order.Order{ID: orderID, Status: order.StatusPending}, nil
			},
		}
		svc := order.NewService(repo, &mockProductDirectory{}, &mockGateway{})
		err := svc.CompleteOrder(context.Background(), orderID)
		require.Error(t, err)
		assert.True(t, errors.Is(err, order.ErrInvalidTransition))
	})
}
