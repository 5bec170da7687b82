package order

import (
	"time"

	"github.com/gofrs/uuid"
)

// State identifies which lifecycle partition an order line lives in.
// A line belongs to exactly one partition at any time.
type State string

const (
	StateCart      State = "CART"
	StatePlaced    State = "PLACED"
	StateToReceive State = "TO_RECEIVE"
	StateReceived  State = "RECEIVED"
	StateCanceled  State = "CANCELED"
)

func (s State) String() string {
	return string(s)
}

// ProductSnapshot is the point-in-time copy of product details embedded
// into cart items and order lines. It never changes after capture, even
// if the catalog entry is edited or removed later.
type ProductSnapshot struct {
	ProductID string `json:"productID"`
	Name      string `json:"productName"`
	Color     string `json:"color,omitempty"`
	Size      string `json:"size,omitempty"`
	ImageURL  string `json:"imageUrl,omitempty"`
}

// CartItem is one product-quantity entry in a customer's cart, the
// entry partition of the order lifecycle.
type CartItem struct {
	ID            uuid.UUID       `json:"id"`
	Username      string          `json:"username"`
	StaffUsername string          `json:"staffUsername,omitempty"`
	Product       ProductSnapshot `json:"product"`
	UnitPrice     float64         `json:"price"`
	Quantity      int             `json:"quantity"`
	AddedAt       time.Time       `json:"addedAt"`
}

// CartView is a cart item decorated with the current stock level of its
// product, as shown on the cart page.
type CartView struct {
	CartItem
	AvailableQuantity int `json:"availableQuantity"`
}

// Line is one purchased unit-line within a customer's order. Lines
// created in the same checkout share an OrderGroupID and move together
// on group operations.
type Line struct {
	ID             uuid.UUID       `json:"id"`
	OrderGroupID   string          `json:"orderGroupId"`
	Username       string          `json:"username"`
	StaffUsername  string          `json:"staffUsername,omitempty"`
	Product        ProductSnapshot `json:"product"`
	UnitPrice      float64         `json:"price"`
	Quantity       int             `json:"quantity"`
	ShippingPrice  float64         `json:"shippingPrice"`
	PaymentMethod  string          `json:"paymentMethod"`
	ShippingDate   string          `json:"shippingDate"`
	PlacedAt       time.Time       `json:"orderedAt"`
	ReceivedAt     *time.Time      `json:"orderReceivedDate,omitempty"`
	CanceledAt     *time.Time      `json:"canceledDate,omitempty"`
	CanceledReason *string         `json:"canceledReason,omitempty"`
}
