package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"

	"github.com/mackyshop/shop-backend/internal/order"
)

type PlaceOrderRequest struct {
	Username        string            `json:"username" validate:"required"`
	SelectedItems   []string          `json:"selectedItems" validate:"required,min=1,dive,uuid4"`
	PaymentMethod   string            `json:"paymentMethod" validate:"required"`
	ShippingOptions map[string]string `json:"shippingOptions"`
	ShippingPrice   float64           `json:"shippingPrice" validate:"gte=0"`
	TotalPrice      float64           `json:"totalPrice" validate:"gte=0"`
}

type CustomerCancelRequest struct {
	CanceledReason string `json:"canceledReason" validate:"required"`
}

type StaffCancelRequest struct {
	CanceledReason string `json:"canceledReason" validate:"required"`
	StaffUsername  string `json:"staffUsername" validate:"required"`
}

type MarkReceivedRequest struct {
	OrderID           string `json:"orderId" validate:"required,uuid4"`
	OrderReceivedDate string `json:"orderReceivedDate" validate:"omitempty,datetime=2006-01-02"`
	StaffUsername     string `json:"staffUsername" validate:"required"`
}

// OrderHandler handles HTTP requests for the order lifecycle.
type OrderHandler struct {
	svc      order.Service
	validate *validator.Validate
}

func NewOrderHandler(svc order.Service) *OrderHandler {
	return &OrderHandler{svc: svc, validate: validator.New()}
}

func (h *OrderHandler) RegisterRoutes(router chi.Router) {
	router.Post("/api/place-order", h.handlePlaceOrder)
	router.Get("/api/user-orders/{username}", h.handleUserOrders)
	router.Get("/api/to-receive/{username}", h.handleToReceive)
	router.Get("/api/order-received/{username}", h.handleOrderReceived)
	router.Get("/api/all-order-received", h.handleAllOrderReceived)
	router.Get("/api/canceled-orders/{username}", h.handleCanceledOrders)
	router.Get("/api/all-canceled-orders", h.handleAllCanceledOrders)
	router.Post("/api/user-cancel-order/{orderId}", h.handleCustomerCancel)
	router.Post("/api/cancel-order/{orderId}", h.handleStaffCancel)
	router.Post("/api/mark-received", h.handleMarkReceived)
}

func (h *OrderHandler) handlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req PlaceOrderRequest
	if err := decodeAndValidate(r, h.validate, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid order request.")
		return
	}

	itemIDs := make([]uuid.UUID, 0, len(req.SelectedItems))
	for _, raw := range req.SelectedItems {
		id, err := uuid.FromString(raw)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid order request.")
			return
		}
		itemIDs = append(itemIDs, id)
	}

	groupID, err := h.svc.PlaceOrder(r.Context(), order.PlaceOrderInput{
		Username:        req.Username,
		SelectedItemIDs: itemIDs,
		PaymentMethod:   req.PaymentMethod,
		ShippingOptions: req.ShippingOptions,
		ShippingPrice:   req.ShippingPrice,
		TotalPrice:      req.TotalPrice,
	})
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{
		"message":      "Order placed successfully, audit logged, and confirmation email sent.",
		"orderGroupId": groupID,
	})
}

func (h *OrderHandler) handleUserOrders(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	if username == "" {
		respondWithError(w, http.StatusBadRequest, "Username is required.")
		return
	}

	lines, err := h.svc.UserOrders(r.Context(), username)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	if len(lines) == 0 {
		respondWithError(w, http.StatusNotFound, "No orders found for this user.")
		return
	}

	respondWithJSON(w, http.StatusOK, lines)
}

func (h *OrderHandler) handleToReceive(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	if username == "" {
		respondWithError(w, http.StatusBadRequest, "Username is required.")
		return
	}

	lines, err := h.svc.ToReceiveOrders(r.Context(), username)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	if len(lines) == 0 {
		respondWithError(w, http.StatusNotFound, "No orders to receive for this user.")
		return
	}

	respondWithJSON(w, http.StatusOK, lines)
}

func (h *OrderHandler) handleOrderReceived(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	if username == "" {
		respondWithError(w, http.StatusBadRequest, "Username is required.")
		return
	}

	lines, err := h.svc.ReceivedOrders(r.Context(), username)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	if len(lines) == 0 {
		respondWithError(w, http.StatusNotFound, "No received orders found for this user.")
		return
	}

	respondWithJSON(w, http.StatusOK, lines)
}

func (h *OrderHandler) handleAllOrderReceived(w http.ResponseWriter, r *http.Request) {
	lines, err := h.svc.AllReceivedOrders(r.Context())
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	if len(lines) == 0 {
		respondWithError(w, http.StatusNotFound, "No received orders found.")
		return
	}

	respondWithJSON(w, http.StatusOK, lines)
}

func (h *OrderHandler) handleCanceledOrders(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	if username == "" {
		respondWithError(w, http.StatusBadRequest, "Username is required.")
		return
	}

	lines, err := h.svc.CanceledOrders(r.Context(), username)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	if len(lines) == 0 {
		respondWithError(w, http.StatusNotFound, "No canceled orders found for this user.")
		return
	}

	respondWithJSON(w, http.StatusOK, lines)
}

func (h *OrderHandler) handleAllCanceledOrders(w http.ResponseWriter, r *http.Request) {
	lines, err := h.svc.AllCanceledOrders(r.Context())
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	if len(lines) == 0 {
		respondWithError(w, http.StatusNotFound, "No canceled orders found.")
		return
	}

	respondWithJSON(w, http.StatusOK, lines)
}

func (h *OrderHandler) handleCustomerCancel(w http.ResponseWriter, r *http.Request) {
	lineID, err := uuid.FromString(chi.URLParam(r, "orderId"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Order ID and reason are required.")
		return
	}

	var req CustomerCancelRequest
	if err := decodeAndValidate(r, h.validate, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Order ID and reason are required.")
		return
	}

	if err := h.svc.CancelByCustomer(r.Context(), lineID, req.CanceledReason); err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Order cancelled and stock restored successfully."})
}

func (h *OrderHandler) handleStaffCancel(w http.ResponseWriter, r *http.Request) {
	lineID, err := uuid.FromString(chi.URLParam(r, "orderId"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Order ID, reason, and staff username are required.")
		return
	}

	var req StaffCancelRequest
	if err := decodeAndValidate(r, h.validate, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Order ID, reason, and staff username are required.")
		return
	}

	if err := h.svc.CancelByStaff(r.Context(), lineID, req.CanceledReason, req.StaffUsername); err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Order canceled successfully."})
}

func (h *OrderHandler) handleMarkReceived(w http.ResponseWriter, r *http.Request) {
	var req MarkReceivedRequest
	if err := decodeAndValidate(r, h.validate, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Order ID and staffUsername are required.")
		return
	}

	lineID, err := uuid.FromString(req.OrderID)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Order ID and staffUsername are required.")
		return
	}

	input := order.MarkReceivedInput{
		LineID:        lineID,
		StaffUsername: req.StaffUsername,
	}
	if req.OrderReceivedDate != "" {
		receivedDate, err := time.Parse("2006-01-02", req.OrderReceivedDate)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, "Invalid received date.")
			return
		}
		input.ReceivedDate = &receivedDate
	}

	if err := h.svc.MarkReceived(r.Context(), input); err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Order group marked as received."})
}
