package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mackyshop/shop-backend/internal/audit"
	"github.com/mackyshop/shop-backend/internal/inventory"
	"github.com/mackyshop/shop-backend/internal/order"
)

func NewRouter(svc order.Service, ledger inventory.Ledger, recorder audit.Recorder) *chi.Mux {
	router := chi.NewRouter()

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	NewCartHandler(svc).RegisterRoutes(router)
	NewOrderHandler(svc).RegisterRoutes(router)
	NewStockHandler(ledger).RegisterRoutes(router)
	NewAuditHandler(recorder).RegisterRoutes(router)

	return router
}
