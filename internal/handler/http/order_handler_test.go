package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gofrs/uuid"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	orderHandler "github.com/mackyshop/shop-backend/internal/handler/http"
	"github.com/mackyshop/shop-backend/internal/order"
)

type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) Cart(ctx context.Context, username string) ([]order.CartView, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]order.CartView), args.Error(1)
}

func (m *MockOrderService) AddToCart(ctx context.Context, in order.AddToCartInput) error {
	args := m.Called(ctx, in)
	return args.Error(0)
}

func (m *MockOrderService) UpdateCartQuantity(ctx context.Context, username string, itemID uuid.UUID, quantity int) error {
	args := m.Called(ctx, username, itemID, quantity)
	return args.Error(0)
}

func (m *MockOrderService) RemoveFromCart(ctx context.Context, username string, itemID uuid.UUID) error {
	args := m.Called(ctx, username, itemID)
	return args.Error(0)
}

func (m *MockOrderService) PlaceOrder(ctx context.Context, in order.PlaceOrderInput) (string, error) {
	args := m.Called(ctx, in)
	return args.String(0), args.Error(1)
}

func (m *MockOrderService) UserOrders(ctx context.Context, username string) ([]order.Line, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]order.Line), args.Error(1)
}

func (m *MockOrderService) AdvanceToReceivable(ctx context.Context, username string, now time.Time) (int, error) {
	args := m.Called(ctx, username, now)
	return args.Int(0), args.Error(1)
}

func (m *MockOrderService) ToReceiveOrders(ctx context.Context, username string) ([]order.Line, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]order.Line), args.Error(1)
}

func (m *MockOrderService) ReceivedOrders(ctx context.Context, username string) ([]order.Line, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]order.Line), args.Error(1)
}

func (m *MockOrderService) CanceledOrders(ctx context.Context, username string) ([]order.Line, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]order.Line), args.Error(1)
}

func (m *MockOrderService) AllReceivedOrders(ctx context.Context) ([]order.Line, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]order.Line), args.Error(1)
}

func (m *MockOrderService) AllCanceledOrders(ctx context.Context) ([]order.Line, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]order.Line), args.Error(1)
}

func (m *MockOrderService) MarkReceived(ctx context.Context, in order.MarkReceivedInput) error {
	args := m.Called(ctx, in)
	return args.Error(0)
}

func (m *MockOrderService) CancelByCustomer(ctx context.Context, lineID uuid.UUID, reason string) error {
	args := m.Called(ctx, lineID, reason)
	return args.Error(0)
}

func (m *MockOrderService) CancelByStaff(ctx context.Context, lineID uuid.UUID, reason, staffUsername string) error {
	args := m.Called(ctx, lineID, reason, staffUsername)
	return args.Error(0)
}

func newOrderRouter(mockService *MockOrderService) *chi.Mux {
	router := chi.NewRouter()
	orderHandler.NewOrderHandler(mockService).RegisterRoutes(router)
	return router
}

func postJSON(t *testing.T, router http.Handler, path string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decodeMessage(t *testing.T, rr *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&body))
	return body
}

func TestOrderHandler_handlePlaceOrder_Success(t *testing.T) {
	mockService := new(MockOrderService)
	router := newOrderRouter(mockService)

	itemID := uuid.Must(uuid.NewV4())
	requestDTO := orderHandler.PlaceOrderRequest{
		Username:      "macky",
		SelectedItems: []string{itemID.String()},
		PaymentMethod: "COD",
		ShippingOptions: map[string]string{
			itemID.String(): "2024-06-10",
		},
		TotalPrice: 500,
	}

	mockService.On("PlaceOrder", mock.Anything, mock.MatchedBy(func(in order.PlaceOrderInput) bool {
		return in.Username == "macky" &&
			len(in.SelectedItemIDs) == 1 &&
			in.SelectedItemIDs[0] == itemID &&
			in.PaymentMethod == "COD" &&
			in.ShippingOptions[itemID.String()] == "2024-06-10"
	})).Return("AbC123xYz9", nil).Once()

	rr := postJSON(t, router, "/api/place-order", requestDTO)
	require.Equal(t, http.StatusOK, rr.Code)

	body := decodeMessage(t, rr)
	assert.Equal(t, "Order placed successfully, audit logged, and confirmation email sent.", body["message"])
	assert.Equal(t, "AbC123xYz9", body["orderGroupId"])
	mockService.AssertExpectations(t)
}

func TestOrderHandler_handlePlaceOrder_MissingPaymentMethod(t *testing.T) {
	mockService := new(MockOrderService)
	router := newOrderRouter(mockService)

	rr := postJSON(t, router, "/api/place-order", orderHandler.PlaceOrderRequest{
		Username:      "macky",
		SelectedItems: []string{uuid.Must(uuid.NewV4()).String()},
	})

	require.Equal(t, http.StatusBadRequest, rr.Code)
	mockService.AssertNotCalled(t, "PlaceOrder", mock.Anything, mock.Anything)
}

func TestOrderHandler_handlePlaceOrder_EmptyCart(t *testing.T) {
	mockService := new(MockOrderService)
	router := newOrderRouter(mockService)

	mockService.On("PlaceOrder", mock.Anything, mock.Anything).
		Return("", order.ErrCartItemNotFound).
		Once()

	rr := postJSON(t, router, "/api/place-order", orderHandler.PlaceOrderRequest{
		Username:      "macky",
		SelectedItems: []string{uuid.Must(uuid.NewV4()).String()},
		PaymentMethod: "COD",
	})

	require.Equal(t, http.StatusNotFound, rr.Code)
	mockService.AssertExpectations(t)
}

func TestOrderHandler_handleUserOrders(t *testing.T) {
	mockService := new(MockOrderService)
	router := newOrderRouter(mockService)

	placedAt := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	lines := []order.Line{
		{
			ID:            uuid.Must(uuid.NewV4()),
			OrderGroupID:  "AbC123xYz9",
			Username:      "macky",
			Product:       order.ProductSnapshot{ProductID: "P1", Name: "Shirt"},
			UnitPrice:     250,
			Quantity:      2,
			PaymentMethod: "COD",
			ShippingDate:  "2024-06-10",
			PlacedAt:      placedAt,
		},
	}
	mockService.On("UserOrders", mock.Anything, "macky").Return(lines, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/api/user-orders/macky", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	var actual []order.Line
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&actual))
	if diff := cmp.Diff(lines, actual); diff != "" {
		t.Errorf("unexpected response body (-want +got):\n%s", diff)
	}
	mockService.AssertExpectations(t)
}

func TestOrderHandler_handleUserOrders_Empty(t *testing.T) {
	mockService := new(MockOrderService)
	router := newOrderRouter(mockService)

	mockService.On("UserOrders", mock.Anything, "macky").Return([]order.Line{}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/api/user-orders/macky", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "No orders found for this user.", decodeMessage(t, rr)["message"])
}

func TestOrderHandler_handleToReceive_Empty(t *testing.T) {
	mockService := new(MockOrderService)
	router := newOrderRouter(mockService)

	mockService.On("ToReceiveOrders", mock.Anything, "macky").Return([]order.Line{}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/api/to-receive/macky", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "No orders to receive for this user.", decodeMessage(t, rr)["message"])
}

func TestOrderHandler_handleCustomerCancel(t *testing.T) {
	lineID := uuid.Must(uuid.NewV4())

	tests := []struct {
		name       string
		path       string
		payload    interface{}
		setupMock  func(m *MockOrderService)
		wantStatus int
	}{
		{
			name:    "success",
			path:    "/api/user-cancel-order/" + lineID.String(),
			payload: orderHandler.CustomerCancelRequest{CanceledReason: "changed mind"},
			setupMock: func(m *MockOrderService) {
				m.On("CancelByCustomer", mock.Anything, lineID, "changed mind").Return(nil).Once()
			},
			wantStatus: http.StatusOK,
		},
		{
			name:       "missing_reason",
			path:       "/api/user-cancel-order/" + lineID.String(),
			payload:    orderHandler.CustomerCancelRequest{},
			setupMock:  func(m *MockOrderService) {},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "invalid_order_id",
			path:       "/api/user-cancel-order/not-a-uuid",
			payload:    orderHandler.CustomerCancelRequest{CanceledReason: "changed mind"},
			setupMock:  func(m *MockOrderService) {},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:    "unknown_order",
			path:    "/api/user-cancel-order/" + lineID.String(),
			payload: orderHandler.CustomerCancelRequest{CanceledReason: "changed mind"},
			setupMock: func(m *MockOrderService) {
				m.On("CancelByCustomer", mock.Anything, lineID, "changed mind").Return(order.ErrLineNotFound).Once()
			},
			wantStatus: http.StatusNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockOrderService)
			tt.setupMock(mockService)
			router := newOrderRouter(mockService)

			rr := postJSON(t, router, tt.path, tt.payload)
			require.Equal(t, tt.wantStatus, rr.Code)
			mockService.AssertExpectations(t)
		})
	}
}

func TestOrderHandler_handleStaffCancel(t *testing.T) {
	mockService := new(MockOrderService)
	router := newOrderRouter(mockService)

	lineID := uuid.Must(uuid.NewV4())
	mockService.On("CancelByStaff", mock.Anything, lineID, "damaged in transit", "staff1").
		Return(nil).
		Once()

	rr := postJSON(t, router, "/api/cancel-order/"+lineID.String(), orderHandler.StaffCancelRequest{
		CanceledReason: "damaged in transit",
		StaffUsername:  "staff1",
	})

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Order canceled successfully.", decodeMessage(t, rr)["message"])
	mockService.AssertExpectations(t)
}

func TestOrderHandler_handleMarkReceived(t *testing.T) {
	mockService := new(MockOrderService)
	router := newOrderRouter(mockService)

	lineID := uuid.Must(uuid.NewV4())
	wantDate := time.Date(2024, 6, 3, 0, 0, 0, 0, time.UTC)

	mockService.On("MarkReceived", mock.Anything, mock.MatchedBy(func(in order.MarkReceivedInput) bool {
		return in.LineID == lineID &&
			in.StaffUsername == "staff1" &&
			in.ReceivedDate != nil &&
			in.ReceivedDate.Equal(wantDate)
	})).Return(nil).Once()

	rr := postJSON(t, router, "/api/mark-received", orderHandler.MarkReceivedRequest{
		OrderID:           lineID.String(),
		OrderReceivedDate: "2024-06-03",
		StaffUsername:     "staff1",
	})

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Order group marked as received.", decodeMessage(t, rr)["message"])
	mockService.AssertExpectations(t)
}

func TestOrderHandler_handleMarkReceived_MissingStaff(t *testing.T) {
	mockService := new(MockOrderService)
	router := newOrderRouter(mockService)

	rr := postJSON(t, router, "/api/mark-received", orderHandler.MarkReceivedRequest{
		OrderID: uuid.Must(uuid.NewV4()).String(),
	})

	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Order ID and staffUsername are required.", decodeMessage(t, rr)["message"])
	mockService.AssertNotCalled(t, "MarkReceived", mock.Anything, mock.Anything)
}
