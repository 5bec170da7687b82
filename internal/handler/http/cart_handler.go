package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/gofrs/uuid"

	"github.com/mackyshop/shop-backend/internal/order"
)

type AddToCartRequest struct {
	Username      string             `json:"username" validate:"required"`
	StaffUsername string             `json:"staffUsername"`
	ProductID     string             `json:"productID" validate:"required"`
	Price         float64            `json:"price" validate:"gte=0"`
	Product       CartProductPayload `json:"product" validate:"required"`
}

type CartProductPayload struct {
	ProductName string `json:"productName" validate:"required"`
	Color       string `json:"color"`
	Size        string `json:"size"`
	ImageURL    string `json:"imageUrl"`
}

type UpdateCartRequest struct {
	Username string `json:"username" validate:"required"`
	Quantity int    `json:"quantity" validate:"required,min=1"`
}

type DeleteCartRequest struct {
	Username string `json:"username" validate:"required"`
}

// CartHandler handles HTTP requests for the cart partition.
type CartHandler struct {
	svc      order.Service
	validate *validator.Validate
}

func NewCartHandler(svc order.Service) *CartHandler {
	return &CartHandler{svc: svc, validate: validator.New()}
}

func (h *CartHandler) RegisterRoutes(router chi.Router) {
	router.Get("/api/user-cart/{username}", h.handleGetCart)
	router.Post("/api/add-to-cart", h.handleAddToCart)
	router.Put("/api/update-cart/{id}", h.handleUpdateCart)
	router.Delete("/api/delete-cart/{id}", h.handleDeleteCart)
}

func (h *CartHandler) handleGetCart(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	if username == "" {
		respondWithError(w, http.StatusBadRequest, "Username is required.")
		return
	}

	views, err := h.svc.Cart(r.Context(), username)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, views)
}

func (h *CartHandler) handleAddToCart(w http.ResponseWriter, r *http.Request) {
	var req AddToCartRequest
	if err := decodeAndValidate(r, h.validate, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	err := h.svc.AddToCart(r.Context(), order.AddToCartInput{
		Username:      req.Username,
		StaffUsername: req.StaffUsername,
		UnitPrice:     req.Price,
		Product: order.ProductSnapshot{
			ProductID: req.ProductID,
			Name:      req.Product.ProductName,
			Color:     req.Product.Color,
			Size:      req.Product.Size,
			ImageURL:  req.Product.ImageURL,
		},
	})
	if err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Product added to cart successfully."})
}

func (h *CartHandler) handleUpdateCart(w http.ResponseWriter, r *http.Request) {
	itemID, err := uuid.FromString(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid cart item id.")
		return
	}

	var req UpdateCartRequest
	if err := decodeAndValidate(r, h.validate, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.svc.UpdateCartQuantity(r.Context(), req.Username, itemID, req.Quantity); err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Cart updated and audit logged successfully."})
}

func (h *CartHandler) handleDeleteCart(w http.ResponseWriter, r *http.Request) {
	itemID, err := uuid.FromString(chi.URLParam(r, "id"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid cart item id.")
		return
	}

	var req DeleteCartRequest
	if err := decodeAndValidate(r, h.validate, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.svc.RemoveFromCart(r.Context(), req.Username, itemID); err != nil {
		respondWithServiceError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]string{"message": "Product removed from cart and audit logged."})
}
