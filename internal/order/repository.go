package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

var (
	ErrLineNotFound     = errors.New("order line not found")
	ErrCartItemNotFound = errors.New("cart item not found")
	ErrDuplicateLine    = errors.New("order line already exists")
)

// Repository is the order set store: the cart plus the four lifecycle
// partitions, each a disjoint table keyed by line id. Moves between
// partitions are transactional (insert destination, delete source).
type Repository interface {
	CartItemsByUser(ctx context.Context, username string) ([]CartItem, error)
	CartItemByID(ctx context.Context, username string, id uuid.UUID) (*CartItem, error)
	CartItemsByIDs(ctx context.Context, username string, ids []uuid.UUID) ([]CartItem, error)
	FindMergeableCartItem(ctx context.Context, username string, p ProductSnapshot, unitPrice float64) (*CartItem, error)
	InsertCartItem(ctx context.Context, item *CartItem) error
	AddCartQuantity(ctx context.Context, id uuid.UUID, delta int) error
	SetCartQuantity(ctx context.Context, username string, id uuid.UUID, quantity int) error
	DeleteCartItem(ctx context.Context, username string, id uuid.UUID) error
	DeleteCartItems(ctx context.Context, username string, ids []uuid.UUID) error

	InsertLine(ctx context.Context, state State, line *Line) error
	LineByID(ctx context.Context, state State, id uuid.UUID) (*Line, error)
	LinesByUser(ctx context.Context, state State, username string) ([]Line, error)
	LinesByGroup(ctx context.Context, state State, groupID string) ([]Line, error)
	AllLines(ctx context.Context, state State) ([]Line, error)
	MoveLine(ctx context.Context, from, to State, line *Line) error
	MoveLines(ctx context.Context, from, to State, lines []Line) error
}

var partitionTables = map[State]string{
	StatePlaced:    "placed_orders",
	StateToReceive: "to_receive_orders",
	StateReceived:  "received_orders",
	StateCanceled:  "canceled_orders",
}

func tableFor(state State) (string, error) {
	table, ok := partitionTables[state]
	if !ok {
		return "", fmt.Errorf("no partition table for state %s", state)
	}
	return table, nil
}

const lineColumns = `id, order_group_id, username, staff_username, product_id, product_name, color, size, image_url,
		unit_price, quantity, shipping_price, payment_method, shipping_date, placed_at, received_at, canceled_at, canceled_reason`

type postgresRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) CartItemsByUser(ctx context.Context, username string) ([]CartItem, error) {
	query := `
		SELECT id, username, staff_username, product_id, product_name, color, size, image_url, unit_price, quantity, added_at
		FROM cart_items
		WHERE username = $1
		ORDER BY added_at
	`

	rows, err := r.db.Query(ctx, query, username)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query cart items for user %s: %w", username, err)
	}
	defer rows.Close()

	return scanCartItems(rows)
}

func (r *postgresRepository) CartItemByID(ctx context.Context, username string, id uuid.UUID) (*CartItem, error) {
	query := `
		SELECT id, username, staff_username, product_id, product_name, color, size, image_url, unit_price, quantity, added_at
		FROM cart_items
		WHERE username = $1 AND id = $2
	`

	item, err := scanCartItem(r.db.QueryRow(ctx, query, username, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCartItemNotFound
		}
		return nil, fmt.Errorf("repository: failed to select cart item %s: %w", id, err)
	}

	return item, nil
}

func (r *postgresRepository) CartItemsByIDs(ctx context.Context, username string, ids []uuid.UUID) ([]CartItem, error) {
	query := `
		SELECT id, username, staff_username, product_id, product_name, color, size, image_url, unit_price, quantity, added_at
		FROM cart_items
		WHERE username = $1 AND id = ANY($2)
	`

	rows, err := r.db.Query(ctx, query, username, ids)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query selected cart items for user %s: %w", username, err)
	}
	defer rows.Close()

	return scanCartItems(rows)
}

func (r *postgresRepository) FindMergeableCartItem(ctx context.Context, username string, p ProductSnapshot, unitPrice float64) (*CartItem, error) {
	query := `
		SELECT id, username, staff_username, product_id, product_name, color, size, image_url, unit_price, quantity, added_at
		FROM cart_items
		WHERE username = $1 AND product_name = $2 AND color = $3 AND size = $4 AND unit_price = $5
	`

	item, err := scanCartItem(r.db.QueryRow(ctx, query, username, p.Name, p.Color, p.Size, unitPrice))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("repository: failed to look up mergeable cart item for user %s: %w", username, err)
	}

	return item, nil
}

func (r *postgresRepository) InsertCartItem(ctx context.Context, item *CartItem) error {
	query := `
		INSERT INTO cart_items (id, username, staff_username, product_id, product_name, color, size, image_url, unit_price, quantity, added_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.Exec(ctx, query,
		item.ID,
		item.Username,
		item.StaffUsername,
		item.Product.ProductID,
		item.Product.Name,
		item.Product.Color,
		item.Product.Size,
		item.Product.ImageURL,
		item.UnitPrice,
		item.Quantity,
		item.AddedAt,
	)
	if err != nil {
		return fmt.Errorf("repository: failed to insert cart item %s: %w", item.ID, err)
	}

	return nil
}

func (r *postgresRepository) AddCartQuantity(ctx context.Context, id uuid.UUID, delta int) error {
	query := `UPDATE cart_items SET quantity = quantity + $1 WHERE id = $2`

	cmdTag, err := r.db.Exec(ctx, query, delta, id)
	if err != nil {
		return fmt.Errorf("repository: failed to add cart quantity for item %s: %w", id, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrCartItemNotFound
	}

	return nil
}

func (r *postgresRepository) SetCartQuantity(ctx context.Context, username string, id uuid.UUID, quantity int) error {
	query := `UPDATE cart_items SET quantity = $1 WHERE username = $2 AND id = $3`

	cmdTag, err := r.db.Exec(ctx, query, quantity, username, id)
	if err != nil {
		return fmt.Errorf("repository: failed to set cart quantity for item %s: %w", id, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrCartItemNotFound
	}

	return nil
}

func (r *postgresRepository) DeleteCartItem(ctx context.Context, username string, id uuid.UUID) error {
	query := `DELETE FROM cart_items WHERE username = $1 AND id = $2`

	cmdTag, err := r.db.Exec(ctx, query, username, id)
	if err != nil {
		return fmt.Errorf("repository: failed to delete cart item %s: %w", id, err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrCartItemNotFound
	}

	return nil
}

func (r *postgresRepository) DeleteCartItems(ctx context.Context, username string, ids []uuid.UUID) error {
	query := `DELETE FROM cart_items WHERE username = $1 AND id = ANY($2)`

	if _, err := r.db.Exec(ctx, query, username, ids); err != nil {
		return fmt.Errorf("repository: failed to delete cart items for user %s: %w", username, err)
	}

	return nil
}

func (r *postgresRepository) InsertLine(ctx context.Context, state State, line *Line) error {
	table, err := tableFor(state)
	if err != nil {
		return fmt.Errorf("repository: %w", err)
	}

	if err := insertLine(ctx, r.db, table, line); err != nil {
		return err
	}

	return nil
}

func (r *postgresRepository) LineByID(ctx context.Context, state State, id uuid.UUID) (*Line, error) {
	table, err := tableFor(state)
	if err != nil {
		return nil, fmt.Errorf("repository: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1`, lineColumns, table)

	line, err := scanLine(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLineNotFound
		}
		return nil, fmt.Errorf("repository: failed to select line %s from %s: %w", id, table, err)
	}

	return line, nil
}

func (r *postgresRepository) LinesByUser(ctx context.Context, state State, username string) ([]Line, error) {
	table, err := tableFor(state)
	if err != nil {
		return nil, fmt.Errorf("repository: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE username = $1 ORDER BY placed_at DESC`, lineColumns, table)

	rows, err := r.db.Query(ctx, query, username)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query %s for user %s: %w", table, username, err)
	}
	defer rows.Close()

	return scanLines(rows)
}

func (r *postgresRepository) LinesByGroup(ctx context.Context, state State, groupID string) ([]Line, error) {
	table, err := tableFor(state)
	if err != nil {
		return nil, fmt.Errorf("repository: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM %s WHERE order_group_id = $1`, lineColumns, table)

	rows, err := r.db.Query(ctx, query, groupID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query %s for group %s: %w", table, groupID, err)
	}
	defer rows.Close()

	return scanLines(rows)
}

func (r *postgresRepository) AllLines(ctx context.Context, state State) ([]Line, error) {
	table, err := tableFor(state)
	if err != nil {
		return nil, fmt.Errorf("repository: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM %s ORDER BY placed_at DESC`, lineColumns, table)

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query all lines from %s: %w", table, err)
	}
	defer rows.Close()

	return scanLines(rows)
}

func (r *postgresRepository) MoveLine(ctx context.Context, from, to State, line *Line) error {
	return r.MoveLines(ctx, from, to, []Line{*line})
}

// MoveLines moves the given lines between partitions in one transaction:
// every line is inserted into the destination table and deleted from the
// source table, or nothing happens at all. The delete count is checked so
// a line that vanished from the source partition mid-flight fails the
// whole move instead of being silently duplicated.
func (r *postgresRepository) MoveLines(ctx context.Context, from, to State, lines []Line) (err error) {
	if len(lines) == 0 {
		return nil
	}

	fromTable, err := tableFor(from)
	if err != nil {
		return fmt.Errorf("repository: %w", err)
	}
	toTable, err := tableFor(to)
	if err != nil {
		return fmt.Errorf("repository: %w", err)
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("repository: failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				log.Error().Err(rbErr).Str("from", fromTable).Str("to", toTable).Msg("repository: failed to rollback move transaction")
			}
			return
		}
		if commitErr := tx.Commit(ctx); commitErr != nil {
			err = fmt.Errorf("repository: failed to commit move transaction: %w", commitErr)
		}
	}()

	ids := make([]uuid.UUID, 0, len(lines))
	for i := range lines {
		if err = insertLine(ctx, tx, toTable, &lines[i]); err != nil {
			return err
		}
		ids = append(ids, lines[i].ID)
	}

	deleteQuery := fmt.Sprintf(`DELETE FROM %s WHERE id = ANY($1)`, fromTable)
	cmdTag, execErr := tx.Exec(ctx, deleteQuery, ids)
	if execErr != nil {
		err = fmt.Errorf("repository: failed to delete moved lines from %s: %w", fromTable, execErr)
		return err
	}
	if int(cmdTag.RowsAffected()) != len(ids) {
		err = ErrLineNotFound
		return err
	}

	return nil
}

type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func insertLine(ctx context.Context, db execer, table string, line *Line) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`, table, lineColumns)

	_, err := db.Exec(ctx, query,
		line.ID,
		line.OrderGroupID,
		line.Username,
		line.StaffUsername,
		line.Product.ProductID,
		line.Product.Name,
		line.Product.Color,
		line.Product.Size,
		line.Product.ImageURL,
		line.UnitPrice,
		line.Quantity,
		line.ShippingPrice,
		line.PaymentMethod,
		line.ShippingDate,
		line.PlacedAt,
		line.ReceivedAt,
		line.CanceledAt,
		line.CanceledReason,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return ErrDuplicateLine
		}
		return fmt.Errorf("repository: failed to insert line %s into %s: %w", line.ID, table, err)
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLine(row rowScanner) (*Line, error) {
	var line Line
	err := row.Scan(
		&line.ID,
		&line.OrderGroupID,
		&line.Username,
		&line.StaffUsername,
		&line.Product.ProductID,
		&line.Product.Name,
		&line.Product.Color,
		&line.Product.Size,
		&line.Product.ImageURL,
		&line.UnitPrice,
		&line.Quantity,
		&line.ShippingPrice,
		&line.PaymentMethod,
		&line.ShippingDate,
		&line.PlacedAt,
		&line.ReceivedAt,
		&line.CanceledAt,
		&line.CanceledReason,
	)
	if err != nil {
		return nil, err
	}
	return &line, nil
}

func scanLines(rows pgx.Rows) ([]Line, error) {
	lines := make([]Line, 0)
	for rows.Next() {
		line, err := scanLine(rows)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan line: %w", err)
		}
		lines = append(lines, *line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating lines: %w", err)
	}
	return lines, nil
}

func scanCartItem(row rowScanner) (*CartItem, error) {
	var item CartItem
	err := row.Scan(
		&item.ID,
		&item.Username,
		&item.StaffUsername,
		&item.Product.ProductID,
		&item.Product.Name,
		&item.Product.Color,
		&item.Product.Size,
		&item.Product.ImageURL,
		&item.UnitPrice,
		&item.Quantity,
		&item.AddedAt,
	)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func scanCartItems(rows pgx.Rows) ([]CartItem, error) {
	items := make([]CartItem, 0)
	for rows.Next() {
		item, err := scanCartItem(rows)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan cart item: %w", err)
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating cart items: %w", err)
	}
	return items, nil
}
