package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mackyshop/shop-backend/internal/audit"
)

// AuditHandler exposes the audit trail, filterable by actor role.
type AuditHandler struct {
	recorder audit.Recorder
}

func NewAuditHandler(recorder audit.Recorder) *AuditHandler {
	return &AuditHandler{recorder: recorder}
}

func (h *AuditHandler) RegisterRoutes(router chi.Router) {
	router.Get("/api/audit-logs", h.handleListAuditLogs)
}

func (h *AuditHandler) handleListAuditLogs(w http.ResponseWriter, r *http.Request) {
	role := r.URL.Query().Get("role")

	entries, err := h.recorder.ListByRole(r.Context(), role)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "Error fetching audit logs.")
		return
	}

	respondWithJSON(w, http.StatusOK, entries)
}
