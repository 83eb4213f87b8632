package http

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/simplepos/pos-service/internal/order"
	"github.com/simplepos/pos-service/internal/payment"
)

// WebhookHandler receives asynchronous payment outcomes from the gateway.
// Deliveries are at-least-once, so everything behind it has to be
// idempotent, and a non-2xx response is the signal for the gateway to try
// again.
type WebhookHandler struct {
	service      order.Service
	webhookToken string
}

func NewWebhookHandler(service order.Service, webhookToken string) *WebhookHandler {
	return &WebhookHandler{
		service:      service,
		webhookToken: webhookToken,
	}
}

func (h *WebhookHandler) RegisterRoutes(router chi.Router) {
	router.Post("/payments/webhook", h.handlePaymentWebhook)
}

func (h *WebhookHandler) handlePaymentWebhook(w http.ResponseWriter, r *http.Request) {
	// Token check runs before the body is even parsed: an unauthenticated
	// caller learns nothing about orders, valid payload or not.
	token := r.Header.Get("x-callback-token")
	if subtle.ConstantTimeCompare([]byte(token), []byte(h.webhookToken)) != 1 {
		respondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	event, err := payment.ParseWebhookEvent(r.Body)
	if err != nil {
		log.Warn().Err(err).Msg("Rejected malformed webhook payload")
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	orderID, err := uuid.FromString(event.Data.ReferenceID)
	if err != nil {
		respondWithError(w, http.StatusNotFound, "Order not found")
		return
	}

	err = h.service.ReconcilePayment(r.Context(), orderID, event.Data.Status, time.Now().UTC())
	if err != nil {
		if errors.Is(err, order.ErrOrderNotFound) {
			respondWithError(w, http.StatusNotFound, "Order not found")
			return
		}
		log.Error().Err(err).Str("reference_id", event.Data.ReferenceID).
			Msg("Failed to reconcile payment webhook")
		respondWithError(w, http.StatusInternalServerError, "failed to process webhook")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
