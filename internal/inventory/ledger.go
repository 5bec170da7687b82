package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

var (
	ErrStockNotFound = errors.New("stock record not found")
	// ErrInsufficientStock is returned by Decrement when the available
	// quantity is below the requested amount and negative stock is not
	// allowed by policy.
	ErrInsufficientStock = errors.New("insufficient stock")
)

// Record is the stock level for one product.
type Record struct {
	ProductID string `json:"productID"`
	Quantity  int    `json:"quantity"`
}

// Ledger is the single source of truth for available quantity per
// product. Increment and Decrement are expressed as relative deltas, so
// concurrent adjustments to the same product interleave safely.
type Ledger interface {
	// Get returns the available quantity, or 0 for an unknown product.
	Get(ctx context.Context, productID string) (int, error)
	// Find returns the stock record, or ErrStockNotFound.
	Find(ctx context.Context, productID string) (*Record, error)
	Decrement(ctx context.Context, productID string, amount int) error
	Increment(ctx context.Context, productID string, amount int) error
}

type postgresLedger struct {
	db *pgxpool.Pool
	// allowNegative disables the floor check on Decrement, preserving
	// the historical behavior where stock could go below zero.
	allowNegative bool
}

func NewLedger(db *pgxpool.Pool, allowNegative bool) Ledger {
	return &postgresLedger{db: db, allowNegative: allowNegative}
}

func (l *postgresLedger) Get(ctx context.Context, productID string) (int, error) {
	record, err := l.Find(ctx, productID)
	if err != nil {
		if errors.Is(err, ErrStockNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return record.Quantity, nil
}

func (l *postgresLedger) Find(ctx context.Context, productID string) (*Record, error) {
	query := `SELECT product_id, quantity FROM stocks WHERE product_id = $1`

	var record Record
	err := l.db.QueryRow(ctx, query, productID).Scan(&record.ProductID, &record.Quantity)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStockNotFound
		}
		return nil, fmt.Errorf("ledger: failed to select stock for product %s: %w", productID, err)
	}

	return &record, nil
}

func (l *postgresLedger) Decrement(ctx context.Context, productID string, amount int) error {
	if l.allowNegative {
		query := `UPDATE stocks SET quantity = quantity - $1 WHERE product_id = $2`
		cmdTag, err := l.db.Exec(ctx, query, amount, productID)
		if err != nil {
			return fmt.Errorf("ledger: failed to decrement stock for product %s: %w", productID, err)
		}
		if cmdTag.RowsAffected() == 0 {
			log.Warn().Str("product_id", productID).Msg("ledger: decrement of unknown product ignored")
		}
		return nil
	}

	query := `UPDATE stocks SET quantity = quantity - $1 WHERE product_id = $2 AND quantity >= $1`
	cmdTag, err := l.db.Exec(ctx, query, amount, productID)
	if err != nil {
		return fmt.Errorf("ledger: failed to decrement stock for product %s: %w", productID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		if _, findErr := l.Find(ctx, productID); errors.Is(findErr, ErrStockNotFound) {
			log.Warn().Str("product_id", productID).Msg("ledger: decrement of unknown product ignored")
			return nil
		}
		return fmt.Errorf("ledger: product %s: %w", productID, ErrInsufficientStock)
	}

	return nil
}

func (l *postgresLedger) Increment(ctx context.Context, productID string, amount int) error {
	query := `UPDATE stocks SET quantity = quantity + $1 WHERE product_id = $2`

	cmdTag, err := l.db.Exec(ctx, query, amount, productID)
	if err != nil {
		return fmt.Errorf("ledger: failed to increment stock for product %s: %w", productID, err)
	}
	if cmdTag.RowsAffected() == 0 {
		log.Warn().Str("product_id", productID).Msg("ledger: increment of unknown product ignored")
	}

	return nil
}
