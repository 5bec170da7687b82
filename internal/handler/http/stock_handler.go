package http

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mackyshop/shop-backend/internal/inventory"
)

// StockHandler exposes the inventory ledger's quantity read.
type StockHandler struct {
	ledger inventory.Ledger
}

func NewStockHandler(ledger inventory.Ledger) *StockHandler {
	return &StockHandler{ledger: ledger}
}

func (h *StockHandler) RegisterRoutes(router chi.Router) {
	router.Get("/api/stock/{id}", h.handleGetStock)
}

func (h *StockHandler) handleGetStock(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "id")

	record, err := h.ledger.Find(r.Context(), productID)
	if err != nil {
		if errors.Is(err, inventory.ErrStockNotFound) {
			respondWithError(w, http.StatusNotFound, "Product not found.")
			return
		}
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]int{"quantity": record.Quantity})
}
