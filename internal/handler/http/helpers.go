package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/mackyshop/shop-backend/internal/catalog"
	"github.com/mackyshop/shop-backend/internal/inventory"
	"github.com/mackyshop/shop-backend/internal/order"
)

// respondWithError sends a JSON error body. Every error the API exposes
// is a human-readable message, no structured codes.
func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"message": message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Msg("handler: failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"message":"Internal server error."}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := w.Write(response); err != nil {
		log.Error().Err(err).Msg("handler: failed to write JSON response")
	}
}

func mapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, order.ErrLineNotFound),
		errors.Is(err, order.ErrCartItemNotFound),
		errors.Is(err, inventory.ErrStockNotFound),
		errors.Is(err, catalog.ErrProductNotFound):
		return http.StatusNotFound
	case errors.Is(err, order.ErrInvalidOrderRequest),
		errors.Is(err, order.ErrInvalidCartRequest),
		errors.Is(err, order.ErrInvalidQuantity),
		errors.Is(err, order.ErrCancelReasonRequired),
		errors.Is(err, inventory.ErrInsufficientStock):
		return http.StatusBadRequest
	case errors.Is(err, order.ErrDuplicateLine):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// respondWithServiceError maps a service error to its status code.
// Unexpected errors are logged server-side and surface as a generic
// message only.
func respondWithServiceError(w http.ResponseWriter, err error) {
	code := mapErrorToStatusCode(err)
	if code == http.StatusInternalServerError {
		log.Error().Err(err).Msg("handler: internal error")
		respondWithError(w, code, "Internal server error.")
		return
	}
	respondWithError(w, code, err.Error())
}

func formatValidationErrors(errs validator.ValidationErrors) string {
	fields := make([]string, 0, len(errs))
	for _, fieldErr := range errs {
		fields = append(fields, fieldErr.Field())
	}
	return "Invalid or missing fields: " + strings.Join(fields, ", ")
}

func decodeAndValidate(r *http.Request, validate *validator.Validate, dst interface{}) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return errors.New("Invalid request payload.")
	}
	if err := validate.Struct(dst); err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return errors.New(formatValidationErrors(validationErrors))
		}
		return errors.New("Invalid request payload.")
	}
	return nil
}
