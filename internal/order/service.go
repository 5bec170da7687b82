package order

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mackyshop/shop-backend/internal/account"
	"github.com/mackyshop/shop-backend/internal/audit"
	"github.com/mackyshop/shop-backend/internal/catalog"
	"github.com/mackyshop/shop-backend/internal/inventory"
	"github.com/mackyshop/shop-backend/internal/notification"
)

var allowedTransitions = map[State]map[State]bool{
	StatePlaced: {
		StateToReceive: true,
		StateCanceled:  true,
	},
	StateToReceive: {
		StateReceived: true,
		StateCanceled: true,
	},
	StateReceived: {},
	StateCanceled: {},
}

var (
	ErrInvalidOrderRequest  = errors.New("invalid order request")
	ErrInvalidCartRequest   = errors.New("invalid cart request")
	ErrInvalidQuantity      = errors.New("quantity must be at least 1")
	ErrCancelReasonRequired = errors.New("cancellation reason is required")
	ErrInvalidTransition    = errors.New("invalid order state transition")
)

const orderGroupIDChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
const orderGroupIDLength = 10

// newOrderGroupID generates the shared identifier for all lines of one
// checkout. Uniqueness is probabilistic, not checked against existing
// groups.
func newOrderGroupID() string {
	b := make([]byte, orderGroupIDLength)
	for i := range b {
		b[i] = orderGroupIDChars[rand.Intn(len(orderGroupIDChars))]
	}
	return string(b)
}

type AddToCartInput struct {
	Username      string
	StaffUsername string
	UnitPrice     float64
	Product       ProductSnapshot
}

type PlaceOrderInput struct {
	Username        string
	SelectedItemIDs []uuid.UUID
	PaymentMethod   string
	// ShippingOptions maps a selected cart item id to its requested
	// shipping date; absent entries default to "Standard".
	ShippingOptions map[string]string
	ShippingPrice   float64
	TotalPrice      float64
}

type MarkReceivedInput struct {
	LineID        uuid.UUID
	ReceivedDate  *time.Time
	StaffUsername string
}

// Service is the order lifecycle coordinator. Every state transition it
// drives keeps the inventory ledger and the audit trail consistent with
// the move: placing decrements stock, canceling restores it, and each
// mutating action appends an audit entry.
//
// A transition is not one database transaction: the partition move
// itself is atomic, but the ledger and audit writes around it are
// separate best-effort statements. Once the mutation sequence has begun
// there is no rollback of earlier steps.
type Service interface {
	Cart(ctx context.Context, username string) ([]CartView, error)
	AddToCart(ctx context.Context, in AddToCartInput) error
	UpdateCartQuantity(ctx context.Context, username string, itemID uuid.UUID, quantity int) error
	RemoveFromCart(ctx context.Context, username string, itemID uuid.UUID) error

	PlaceOrder(ctx context.Context, in PlaceOrderInput) (string, error)
	UserOrders(ctx context.Context, username string) ([]Line, error)
	AdvanceToReceivable(ctx context.Context, username string, now time.Time) (int, error)
	ToReceiveOrders(ctx context.Context, username string) ([]Line, error)
	ReceivedOrders(ctx context.Context, username string) ([]Line, error)
	CanceledOrders(ctx context.Context, username string) ([]Line, error)
	AllReceivedOrders(ctx context.Context) ([]Line, error)
	AllCanceledOrders(ctx context.Context) ([]Line, error)
	MarkReceived(ctx context.Context, in MarkReceivedInput) error
	CancelByCustomer(ctx context.Context, lineID uuid.UUID, reason string) error
	CancelByStaff(ctx context.Context, lineID uuid.UUID, reason, staffUsername string) error
}

type service struct {
	repo      Repository
	ledger    inventory.Ledger
	auditor   audit.Recorder
	directory account.Directory
	catalog   catalog.Catalog
	notifier  notification.Sender
}

func NewService(repo Repository, ledger inventory.Ledger, auditor audit.Recorder, directory account.Directory, cat catalog.Catalog, notifier notification.Sender) Service {
	return &service{
		repo:      repo,
		ledger:    ledger,
		auditor:   auditor,
		directory: directory,
		catalog:   cat,
		notifier:  notifier,
	}
}

func (s *service) Cart(ctx context.Context, username string) ([]CartView, error) {
	if username == "" {
		return nil, ErrInvalidCartRequest
	}

	items, err := s.repo.CartItemsByUser(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("service: failed to fetch cart: %w", err)
	}

	views := make([]CartView, 0, len(items))
	for _, item := range items {
		available, err := s.ledger.Get(ctx, item.Product.ProductID)
		if err != nil {
			log.Warn().Err(err).Str("product_id", item.Product.ProductID).Msg("service: failed to read stock for cart item")
			available = 0
		}
		views = append(views, CartView{CartItem: item, AvailableQuantity: available})
	}

	return views, nil
}

func (s *service) AddToCart(ctx context.Context, in AddToCartInput) error {
	if in.Username == "" || in.Product.Name == "" {
		return ErrInvalidCartRequest
	}

	existing, err := s.repo.FindMergeableCartItem(ctx, in.Username, in.Product, in.UnitPrice)
	if err != nil {
		return fmt.Errorf("service: failed to look up cart item: %w", err)
	}

	if existing != nil {
		if err := s.repo.AddCartQuantity(ctx, existing.ID, 1); err != nil {
			return fmt.Errorf("service: failed to bump cart quantity: %w", err)
		}
	} else {
		id, err := uuid.NewV4()
		if err != nil {
			return fmt.Errorf("service: failed to generate cart item id: %w", err)
		}
		item := &CartItem{
			ID:            id,
			Username:      in.Username,
			StaffUsername: in.StaffUsername,
			Product:       in.Product,
			UnitPrice:     in.UnitPrice,
			Quantity:      1,
			AddedAt:       time.Now().UTC(),
		}
		if err := s.repo.InsertCartItem(ctx, item); err != nil {
			return fmt.Errorf("service: failed to insert cart item: %w", err)
		}
	}

	s.recordCustomerAudit(ctx, in.Username, "Add to Cart", in.Product.ProductID)
	return nil
}

func (s *service) UpdateCartQuantity(ctx context.Context, username string, itemID uuid.UUID, quantity int) error {
	if username == "" || itemID == uuid.Nil {
		return ErrInvalidCartRequest
	}
	if quantity < 1 {
		return ErrInvalidQuantity
	}

	item, err := s.repo.CartItemByID(ctx, username, itemID)
	if err != nil {
		return err
	}

	if err := s.repo.SetCartQuantity(ctx, username, itemID, quantity); err != nil {
		return err
	}

	s.recordCustomerAudit(ctx, username, "Update Cart Product", item.Product.ProductID)
	return nil
}

func (s *service) RemoveFromCart(ctx context.Context, username string, itemID uuid.UUID) error {
	if username == "" || itemID == uuid.Nil {
		return ErrInvalidCartRequest
	}

	item, err := s.repo.CartItemByID(ctx, username, itemID)
	if err != nil {
		return err
	}

	if err := s.repo.DeleteCartItem(ctx, username, itemID); err != nil {
		return err
	}

	s.recordCustomerAudit(ctx, username, "Delete Cart Product", item.Product.ProductID)
	return nil
}

// PlaceOrder moves the selected cart items into the placed partition
// under a fresh order group id. Lines are processed one at a time:
// reserve stock, insert the placed line, append the audit entry. A
// failure partway leaves earlier lines committed (no rollback); the
// caller sees the error without knowing which lines went through.
func (s *service) PlaceOrder(ctx context.Context, in PlaceOrderInput) (string, error) {
	if in.Username == "" || len(in.SelectedItemIDs) == 0 || in.PaymentMethod == "" {
		return "", ErrInvalidOrderRequest
	}

	items, err := s.repo.CartItemsByIDs(ctx, in.Username, in.SelectedItemIDs)
	if err != nil {
		return "", fmt.Errorf("service: failed to fetch selected cart items: %w", err)
	}
	if len(items) == 0 {
		return "", ErrCartItemNotFound
	}

	groupID := newOrderGroupID()

	accountInfo, err := s.directory.FindAccountInfo(ctx, in.Username)
	if err != nil {
		log.Warn().Err(err).Str("username", in.Username).Msg("service: failed to fetch account info for order")
		accountInfo = nil
	}

	placedAt := time.Now().UTC()
	receipt := make([]notification.ReceiptItem, 0, len(items))
	processed := make([]uuid.UUID, 0, len(items))

	for i := range items {
		item := &items[i]
		snapshot := s.resolveSnapshot(ctx, item)

		if err := s.ledger.Decrement(ctx, snapshot.ProductID, item.Quantity); err != nil {
			return "", fmt.Errorf("service: failed to reserve stock for product %s: %w", snapshot.ProductID, err)
		}

		shippingDate := in.ShippingOptions[item.ID.String()]
		if shippingDate == "" {
			shippingDate = "Standard"
		}

		line := &Line{
			ID:            item.ID,
			OrderGroupID:  groupID,
			Username:      in.Username,
			StaffUsername: item.StaffUsername,
			Product:       snapshot,
			UnitPrice:     item.UnitPrice,
			Quantity:      item.Quantity,
			ShippingPrice: in.ShippingPrice,
			PaymentMethod: in.PaymentMethod,
			ShippingDate:  shippingDate,
			PlacedAt:      placedAt,
		}
		if err := s.repo.InsertLine(ctx, StatePlaced, line); err != nil {
			return "", fmt.Errorf("service: failed to place order line %s: %w", line.ID, err)
		}

		s.appendAudit(ctx, &audit.Entry{
			Username:    in.Username,
			Role:        audit.RoleCustomer,
			Action:      "Place an Order",
			AffectedID:  snapshot.ProductID,
			AccountInfo: accountInfo.Snapshot(),
		})

		receipt = append(receipt, notification.ReceiptItem{
			Name:          snapshot.Name,
			UnitPrice:     item.UnitPrice,
			Quantity:      item.Quantity,
			PaymentMethod: in.PaymentMethod,
			ShippingDate:  shippingDate,
		})
		processed = append(processed, item.ID)
	}

	if err := s.repo.DeleteCartItems(ctx, in.Username, processed); err != nil {
		return "", fmt.Errorf("service: failed to clear cart after placing order %s: %w", groupID, err)
	}

	go func() {
		if err := s.notifier.SendOrderConfirmation(context.Background(), accountInfo, receipt, in.TotalPrice); err != nil {
			log.Warn().Err(err).Str("username", in.Username).Msg("service: failed to send order confirmation")
		}
	}()

	log.Info().Str("order_group_id", groupID).Str("username", in.Username).Int("lines", len(processed)).Msg("service: order placed")
	return groupID, nil
}

// resolveSnapshot consults the catalog for a fresh point-in-time copy
// of the product, falling back to the copy captured in the cart when
// the catalog entry is gone. The unit price stays the carted price.
func (s *service) resolveSnapshot(ctx context.Context, item *CartItem) ProductSnapshot {
	product, err := s.catalog.GetProduct(ctx, item.Product.ProductID)
	if err != nil {
		if !errors.Is(err, catalog.ErrProductNotFound) {
			log.Warn().Err(err).Str("product_id", item.Product.ProductID).Msg("service: catalog lookup failed, using cart snapshot")
		}
		return item.Product
	}
	return ProductSnapshot{
		ProductID: product.ProductID,
		Name:      product.Name,
		Color:     product.Color,
		Size:      product.Size,
		ImageURL:  product.ImageURL,
	}
}

// UserOrders advances any placed lines whose shipping threshold has
// been reached, then returns what is still placed.
func (s *service) UserOrders(ctx context.Context, username string) ([]Line, error) {
	if username == "" {
		return nil, ErrInvalidOrderRequest
	}

	if _, err := s.AdvanceToReceivable(ctx, username, time.Now()); err != nil {
		return nil, err
	}

	lines, err := s.repo.LinesByUser(ctx, StatePlaced, username)
	if err != nil {
		return nil, fmt.Errorf("service: failed to fetch user orders: %w", err)
	}
	return lines, nil
}

// AdvanceToReceivable moves every placed line of the user whose
// calendar date has reached one day before its shipping date into the
// to-receive partition, as one bulk move. Lines without a parseable
// shipping date are skipped and logged, never fail the batch.
func (s *service) AdvanceToReceivable(ctx context.Context, username string, now time.Time) (int, error) {
	lines, err := s.repo.LinesByUser(ctx, StatePlaced, username)
	if err != nil {
		return 0, fmt.Errorf("service: failed to fetch placed lines: %w", err)
	}

	eligible := make([]Line, 0, len(lines))
	for _, line := range lines {
		reached, valid := shippingThresholdReached(line.ShippingDate, now)
		if !valid {
			log.Warn().Stringer("line_id", line.ID).Str("shipping_date", line.ShippingDate).Msg("service: line has no parseable shipping date, leaving in placed")
			continue
		}
		if reached {
			eligible = append(eligible, line)
		}
	}

	if len(eligible) == 0 {
		return 0, nil
	}

	if err := s.move(ctx, StatePlaced, StateToReceive, eligible); err != nil {
		return 0, err
	}

	log.Info().Str("username", username).Int("moved", len(eligible)).Msg("service: placed lines advanced to receivable")
	return len(eligible), nil
}

func (s *service) ToReceiveOrders(ctx context.Context, username string) ([]Line, error) {
	return s.linesByUser(ctx, StateToReceive, username)
}

func (s *service) ReceivedOrders(ctx context.Context, username string) ([]Line, error) {
	return s.linesByUser(ctx, StateReceived, username)
}

func (s *service) CanceledOrders(ctx context.Context, username string) ([]Line, error) {
	return s.linesByUser(ctx, StateCanceled, username)
}

func (s *service) AllReceivedOrders(ctx context.Context) ([]Line, error) {
	lines, err := s.repo.AllLines(ctx, StateReceived)
	if err != nil {
		return nil, fmt.Errorf("service: failed to fetch received orders: %w", err)
	}
	return lines, nil
}

func (s *service) AllCanceledOrders(ctx context.Context) ([]Line, error) {
	lines, err := s.repo.AllLines(ctx, StateCanceled)
	if err != nil {
		return nil, fmt.Errorf("service: failed to fetch canceled orders: %w", err)
	}
	return lines, nil
}

func (s *service) linesByUser(ctx context.Context, state State, username string) ([]Line, error) {
	if username == "" {
		return nil, ErrInvalidOrderRequest
	}
	lines, err := s.repo.LinesByUser(ctx, state, username)
	if err != nil {
		return nil, fmt.Errorf("service: failed to fetch %s lines: %w", state, err)
	}
	return lines, nil
}

// MarkReceived moves every to-receive line sharing the named line's
// order group into received, all stamped with the same received date,
// and appends exactly one audit entry for the whole group.
func (s *service) MarkReceived(ctx context.Context, in MarkReceivedInput) error {
	if in.LineID == uuid.Nil || in.StaffUsername == "" {
		return ErrInvalidOrderRequest
	}

	line, err := s.repo.LineByID(ctx, StateToReceive, in.LineID)
	if err != nil {
		return err
	}

	related, err := s.repo.LinesByGroup(ctx, StateToReceive, line.OrderGroupID)
	if err != nil {
		return fmt.Errorf("service: failed to resolve order group %s: %w", line.OrderGroupID, err)
	}

	stamp := dateOnly(time.Now())
	if in.ReceivedDate != nil {
		stamp = dateOnly(*in.ReceivedDate)
	}
	for i := range related {
		related[i].ReceivedAt = &stamp
	}

	if err := s.move(ctx, StateToReceive, StateReceived, related); err != nil {
		return err
	}

	staffInfo, err := s.directory.FindStaffInfo(ctx, in.StaffUsername)
	if err != nil {
		log.Warn().Err(err).Str("staff_username", in.StaffUsername).Msg("service: failed to fetch staff info for audit")
		staffInfo = nil
	}
	s.appendAudit(ctx, &audit.Entry{
		Username:    in.StaffUsername,
		Role:        audit.RoleStaff,
		Action:      fmt.Sprintf("Staff marked all orders for order group %s as received", line.OrderGroupID),
		AffectedID:  line.OrderGroupID,
		AccountInfo: staffInfo.Snapshot(),
	})

	log.Info().Str("order_group_id", line.OrderGroupID).Int("lines", len(related)).Msg("service: order group marked as received")
	return nil
}

// CancelByCustomer cancels a single placed line: stock is restored by
// the line quantity, the line moves to canceled, and the customer gets
// a cancellation notice.
func (s *service) CancelByCustomer(ctx context.Context, lineID uuid.UUID, reason string) error {
	if lineID == uuid.Nil {
		return ErrInvalidOrderRequest
	}
	if reason == "" {
		return ErrCancelReasonRequired
	}

	line, err := s.cancelLine(ctx, StatePlaced, lineID, reason)
	if err != nil {
		return err
	}

	accountInfo, err := s.directory.FindAccountInfo(ctx, line.Username)
	if err != nil {
		log.Warn().Err(err).Str("username", line.Username).Msg("service: failed to fetch account info for audit")
		accountInfo = nil
	}
	s.appendAudit(ctx, &audit.Entry{
		Username:    line.Username,
		Role:        audit.RoleCustomer,
		Action:      "Customer canceled the order",
		AffectedID:  line.Product.ProductID,
		AccountInfo: accountInfo.Snapshot(),
	})

	go func() {
		if err := s.notifier.SendCancellationNotice(context.Background(), accountInfo, lineID.String(), reason); err != nil {
			log.Warn().Err(err).Str("username", line.Username).Msg("service: failed to send cancellation notice")
		}
	}()

	return nil
}

// CancelByStaff cancels a single to-receive line on behalf of staff,
// with the same restore-and-move semantics as a customer cancellation.
func (s *service) CancelByStaff(ctx context.Context, lineID uuid.UUID, reason, staffUsername string) error {
	if lineID == uuid.Nil || staffUsername == "" {
		return ErrInvalidOrderRequest
	}
	if reason == "" {
		return ErrCancelReasonRequired
	}

	line, err := s.cancelLine(ctx, StateToReceive, lineID, reason)
	if err != nil {
		return err
	}

	staffInfo, err := s.directory.FindStaffInfo(ctx, staffUsername)
	if err != nil {
		log.Warn().Err(err).Str("staff_username", staffUsername).Msg("service: failed to fetch staff info for audit")
		staffInfo = nil
	}
	s.appendAudit(ctx, &audit.Entry{
		Username:    staffUsername,
		Role:        audit.RoleStaff,
		Action:      "Staff Canceled Order",
		AffectedID:  line.Product.ProductID,
		AccountInfo: staffInfo.Snapshot(),
	})

	return nil
}

// cancelLine restores the line's stock, stamps the cancellation, and
// moves the line from its source partition into canceled.
func (s *service) cancelLine(ctx context.Context, from State, lineID uuid.UUID, reason string) (*Line, error) {
	line, err := s.repo.LineByID(ctx, from, lineID)
	if err != nil {
		return nil, err
	}

	if err := s.ledger.Increment(ctx, line.Product.ProductID, line.Quantity); err != nil {
		return nil, fmt.Errorf("service: failed to restore stock for product %s: %w", line.Product.ProductID, err)
	}

	stamp := dateOnly(time.Now())
	line.CanceledAt = &stamp
	line.CanceledReason = &reason

	if err := s.move(ctx, from, StateCanceled, []Line{*line}); err != nil {
		return nil, err
	}

	log.Info().Stringer("line_id", lineID).Str("from", from.String()).Msg("service: order line canceled")
	return line, nil
}

func (s *service) move(ctx context.Context, from, to State, lines []Line) error {
	transitions, ok := allowedTransitions[from]
	if !ok || !transitions[to] {
		log.Warn().Str("from", from.String()).Str("to", to.String()).Msg("service: invalid state transition attempt")
		return fmt.Errorf("service: transition %s -> %s: %w", from, to, ErrInvalidTransition)
	}

	if err := s.repo.MoveLines(ctx, from, to, lines); err != nil {
		if errors.Is(err, ErrLineNotFound) {
			return err
		}
		return fmt.Errorf("service: failed to move lines %s -> %s: %w", from, to, err)
	}

	return nil
}

// appendAudit is best effort: the state transition that triggered the
// entry stays committed even if the append fails.
func (s *service) appendAudit(ctx context.Context, entry *audit.Entry) {
	entry.Timestamp = time.Now().UTC()
	if err := s.auditor.Append(ctx, entry); err != nil {
		log.Error().Err(err).Str("action", entry.Action).Str("username", entry.Username).Msg("service: failed to append audit entry")
	}
}

func (s *service) recordCustomerAudit(ctx context.Context, username, action, affectedID string) {
	accountInfo, err := s.directory.FindAccountInfo(ctx, username)
	if err != nil {
		log.Warn().Err(err).Str("username", username).Msg("service: failed to fetch account info for audit")
		accountInfo = nil
	}
	s.appendAudit(ctx, &audit.Entry{
		Username:    username,
		Role:        audit.RoleCustomer,
		Action:      action,
		AffectedID:  affectedID,
		AccountInfo: accountInfo.Snapshot(),
	})
}
