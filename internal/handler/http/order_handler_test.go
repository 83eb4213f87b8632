package http_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/simplepos/pos-service/internal/catalog"
	handler "github.com/simplepos/pos-service/internal/handler/http"
	"github.com/simplepos/pos-service/internal/order"
	"github.com/simplepos/pos-service/internal/payment"
)

func newOrderRouter(svc order.Service) *chi.Mux {
	r := chi.NewRouter()
	handler.NewOrderHandler(svc).RegisterRoutes(r)
	return r
}

func TestOrderHandler_CreateOrder(t *testing.T) {
	productID := uuid.Must(uuid.NewV4())
	orderID := uuid.Must(uuid.NewV4())

	t.Run("returns_order_and_payment_handle", func(t *testing.T) {
		svc := new(MockOrderService)
		svc.On("Checkout", mock.Anything, []order.CartItem{{ProductID: productID, Quantity: 2}}).
			Return(&order.Checkout{
				Order: &order.Order{ID: orderID, Status: order.StatusPending, Total: 30000},
				Payment: &payment.PaymentRequest{
					ID:          "pr-1",
					ReferenceID: orderID.String(),
					CheckoutURL: "https://pay.example/pr-1",
				},
			}, nil)
		router := newOrderRouter(svc)

		body := `{"items":[{"product_id":"` + productID.String() + `","quantity":2}]}`
		req := httptest.NewRequest(http.MethodPost, "/orders", bytes.NewBufferString(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code)

		var got order.Checkout
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, orderID, got.Order.ID)
		assert.Equal(t, "https://pay.example/pr-1", got.Payment.CheckoutURL)
		svc.AssertExpectations(t)
	})

	t.Run("empty_cart_rejected_by_validation", func(t *testing.T) {
		svc := new(MockOrderService)
		router := newOrderRouter(svc)

		req := httptest.NewRequest(http.MethodPost, "/orders", bytes.NewBufferString(`{"items":[]}`))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		svc.AssertNotCalled(t, "Checkout", mock.Anything, mock.Anything)
	})

	t.Run("zero_quantity_rejected_by_validation", func(t *testing.T) {
		svc := new(MockOrderService)
		router := newOrderRouter(svc)

		body := `{"items":[{"product_id":"` + productID.String() + `","quantity":0}]}`
		req := httptest.NewRequest(http.MethodPost, "/orders", bytes.NewBufferString(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		svc.AssertNotCalled(t, "Checkout", mock.Anything, mock.Anything)
	})

	t.Run("unknown_product_maps_to_not_found", func(t *testing.T) {
		svc := new(MockOrderService)
		svc.On("Checkout", mock.Anything, mock.Anything).Return(nil, catalog.ErrProductNotFound)
		router := newOrderRouter(svc)

		body := `{"items":[{"product_id":"` + productID.String() + `","quantity":1}]}`
		req := httptest.NewRequest(http.MethodPost, "/orders", bytes.NewBufferString(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("gateway_failure_maps_to_bad_gateway", func(t *testing.T) {
		svc := new(MockOrderService)
		svc.On("Checkout", mock.Anything, mock.Anything).Return(nil, payment.ErrGateway)
		router := newOrderRouter(svc)

		body := `{"items":[{"product_id":"` + productID.String() + `","quantity":1}]}`
		req := httptest.NewRequest(http.MethodPost, "/orders", bytes.NewBufferString(body))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadGateway, rec.Code)
	})
}

func TestOrderHandler_GetOrderByID(t *testing.T) {
	orderID := uuid.Must(uuid.NewV4())

	t.Run("found", func(t *testing.T) {
		svc := new(MockOrderService)
		svc.On("GetOrderByID", mock.Anything, orderID).
			Return(&order.Order{ID: orderID, Status: order.StatusProcessing, Total: 55000}, nil)
		router := newOrderRouter(svc)

		req := httptest.NewRequest(http.MethodGet, "/orders/"+orderID.String(), nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)

		var got order.Order
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, order.StatusProcessing, got.Status)
	})

	t.Run("not_found", func(t *testing.T) {
		svc := new(MockOrderService)
		svc.On("GetOrderByID", mock.Anything, orderID).Return(nil, order.ErrOrderNotFound)
		router := newOrderRouter(svc)

		req := httptest.NewRequest(http.MethodGet, "/orders/"+orderID.String(), nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("bad_id", func(t *testing.T) {
		svc := new(MockOrderService)
		router := newOrderRouter(svc)

		req := httptest.NewRequest(http.MethodGet, "/orders/not-a-uuid", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestOrderHandler_CompleteOrder(t *testing.T) {
	orderID := uuid.Must(uuid.NewV4())

	t.Run("completes", func(t *testing.T) {
		svc := new(MockOrderService)
		svc.On("CompleteOrder", mock.Anything, orderID).Return(nil)
		router := newOrderRouter(svc)

		req := httptest.NewRequest(http.MethodPatch, "/orders/"+orderID.String()+"/complete", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("invalid_transition_conflicts", func(t *testing.T) {
		svc := new(MockOrderService)
		svc.On("CompleteOrder", mock.Anything, orderID).Return(order.ErrInvalidTransition)
		router := newOrderRouter(svc)

		req := httptest.NewRequest(http.MethodPatch, "/orders/"+orderID.String()+"/complete", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusConflict, rec.Code)
	})
}
