package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/simplepos/pos-service/internal/catalog"
	"github.com/simplepos/pos-service/internal/order"
)

func NewRouter(catalogSvc catalog.Service, orderSvc order.Service, webhookToken string) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	r.Route("/api", func(api chi.Router) {
		NewCatalogHandler(catalogSvc).RegisterRoutes(api)
		NewOrderHandler(orderSvc).RegisterRoutes(api)
		NewWebhookHandler(orderSvc, webhookToken).RegisterRoutes(api)
	})

	return r
}
