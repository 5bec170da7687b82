package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrProductNotFound = errors.New("product not found")

// Product is the catalog record consulted when placing an order to
// embed a point-in-time snapshot into the order line.
type Product struct {
	ProductID string  `json:"productID"`
	Name      string  `json:"productName"`
	Color     string  `json:"color,omitempty"`
	Size      string  `json:"size,omitempty"`
	ImageURL  string  `json:"imageUrl,omitempty"`
	Price     float64 `json:"price"`
}

// Catalog is read-only access to the product catalog maintained
// elsewhere.
type Catalog interface {
	GetProduct(ctx context.Context, productID string) (*Product, error)
}

type postgresCatalog struct {
	db *pgxpool.Pool
}

func NewCatalog(db *pgxpool.Pool) Catalog {
	return &postgresCatalog{db: db}
}

func (c *postgresCatalog) GetProduct(ctx context.Context, productID string) (*Product, error) {
	query := `
		SELECT product_id, product_name, color, size, image_url, price
		FROM products
		WHERE product_id = $1
	`

	var product Product
	err := c.db.QueryRow(ctx, query, productID).Scan(
		&product.ProductID,
		&product.Name,
		&product.Color,
		&product.Size,
		&product.ImageURL,
		&product.Price,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("catalog: failed to select product %s: %w", productID, err)
	}

	return &product, nil
}
