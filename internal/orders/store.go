package orders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strconv"

	"github.com/dhawalhost/storefront/internal/ability"
	"github.com/dhawalhost/storefront/internal/guard"
	"github.com/dhawalhost/storefront/pkg/database"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// Store defines database operations for orders.
type Store interface {
	Create(ctx context.Context, userID int64, items []OrderItem, total float64) (Order, error)
	List(ctx context.Context) ([]Order, error)
	Get(ctx context.Context, id int64) (Order, error)
	ListByUser(ctx context.Context, userID int64) ([]Order, error)
	ListByProduct(ctx context.Context, productID int64) ([]Order, error)
	ItemsByStatus(ctx context.Context, orderID int64, status Status) ([]OrderItem, error)
	ReplaceItems(ctx context.Context, id int64, items []OrderItem, total float64, expect Status) (Order, error)
	UpdateItemStatus(ctx context.Context, orderID, productID int64, status Status) (OrderItem, error)
	Delete(ctx context.Context, id int64, expect Status) error
}

const orderSelect = `SELECT o.id, o.user_id, o.status, o.total, o.created_at, o.updated_at, u.nick_name, u.email
	FROM orders o JOIN users u ON u.id = o.user_id`

const itemColumns = `order_id, product_id, quantity, status, created_at, updated_at`

type sqlStore struct {
	db *sqlx.DB
}

// NewStore creates a new order store.
func NewStore(db *sqlx.DB) Store {
	return &sqlStore{db: db}
}

func (s *sqlStore) Create(ctx context.Context, userID int64, items []OrderItem, total float64) (Order, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return Order{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRowxContext(ctx,
		`INSERT INTO orders (user_id, status, total) VALUES ($1, $2, $3) RETURNING id`,
		userID, StatusNotProcessed, total).Scan(&id)
	if err != nil {
		if database.IsForeignKeyViolation(err) {
			return Order{}, validationError("user does not exist")
		}
		return Order{}, fmt.Errorf("failed to create order: %w", err)
	}

	if err := insertItems(ctx, tx, id, items); err != nil {
		return Order{}, err
	}

	order, err := getOrder(ctx, tx, id)
	if err != nil {
		return Order{}, err
	}
	if err := tx.Commit(); err != nil {
		return Order{}, fmt.Errorf("failed to commit order: %w", err)
	}
	return order, nil
}

func insertItems(ctx context.Context, tx *sqlx.Tx, orderID int64, items []OrderItem) error {
	for _, item := range items {
		status := item.Status
		if status == "" {
			status = StatusNotProcessed
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO order_items (order_id, product_id, quantity, status) VALUES ($1, $2, $3, $4)`,
			orderID, item.ProductID, item.Quantity, status)
		if err != nil {
			if database.IsForeignKeyViolation(err) {
				return ErrProductNotFound
			}
			return fmt.Errorf("failed to insert order item: %w", err)
		}
	}
	return nil
}

func (s *sqlStore) List(ctx context.Context) ([]Order, error) {
	return listOrders(ctx, s.db, orderSelect+` ORDER BY o.id`)
}

func (s *sqlStore) ListByUser(ctx context.Context, userID int64) ([]Order, error) {
	return listOrders(ctx, s.db, orderSelect+` WHERE o.user_id = $1 ORDER BY o.id`, userID)
}

func (s *sqlStore) ListByProduct(ctx context.Context, productID int64) ([]Order, error) {
	return listOrders(ctx, s.db, orderSelect+`
		WHERE EXISTS (SELECT 1 FROM order_items oi WHERE oi.order_id = o.id AND oi.product_id = $1)
		ORDER BY o.id`, productID)
}

func listOrders(ctx context.Context, q sqlx.QueryerContext, query string, args ...any) ([]Order, error) {
	var out []Order
	if err := sqlx.SelectContext(ctx, q, &out, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	if len(out) == 0 {
		return out, nil
	}

	ids := make(pq.Int64Array, len(out))
	for i, o := range out {
		ids[i] = o.ID
	}
	var items []OrderItem
	if err := sqlx.SelectContext(ctx, q, &items,
		`SELECT `+itemColumns+` FROM order_items WHERE order_id = ANY($1) ORDER BY order_id, product_id`, ids); err != nil {
		return nil, fmt.Errorf("failed to list order items: %w", err)
	}

	byOrder := make(map[int64][]OrderItem, len(out))
	for _, item := range items {
		byOrder[item.OrderID] = append(byOrder[item.OrderID], item)
	}
	for i := range out {
		out[i].Items = byOrder[out[i].ID]
		if out[i].Items == nil {
			out[i].Items = []OrderItem{}
		}
	}
	return out, nil
}

func (s *sqlStore) Get(ctx context.Context, id int64) (Order, error) {
	return getOrder(ctx, s.db, id)
}

func getOrder(ctx context.Context, q sqlx.QueryerContext, id int64) (Order, error) {
	out, err := listOrders(ctx, q, orderSelect+` WHERE o.id = $1`, id)
	if err != nil {
		return Order{}, err
	}
	if len(out) == 0 {
		return Order{}, ErrNotFound
	}
	return out[0], nil
}

func (s *sqlStore) ItemsByStatus(ctx context.Context, orderID int64, status Status) ([]OrderItem, error) {
	var out []OrderItem
	err := s.db.SelectContext(ctx, &out,
		`SELECT `+itemColumns+` FROM order_items WHERE order_id = $1 AND status = $2 ORDER BY product_id`,
		orderID, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list order items: %w", err)
	}
	return out, nil
}

// lockOrder takes a row lock on the order for the rest of tx and checks that
// its status is expect. An empty expect accepts any status.
func lockOrder(ctx context.Context, tx *sqlx.Tx, id int64, expect Status) error {
	var current Status
	err := tx.QueryRowxContext(ctx, `SELECT status FROM orders WHERE id = $1 FOR UPDATE`, id).Scan(&current)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to lock order: %w", err)
	}
	if expect != "" && current != expect {
		return ErrForbidden
	}
	return nil
}

// ReplaceItems swaps the order's items. Products that stay in the order keep
// their fulfilment state and the order status is rolled up from the result.
func (s *sqlStore) ReplaceItems(ctx context.Context, id int64, items []OrderItem, total float64, expect Status) (Order, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return Order{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := lockOrder(ctx, tx, id, expect); err != nil {
		return Order{}, err
	}
	var existing []OrderItem
	if err := tx.SelectContext(ctx, &existing, `SELECT `+itemColumns+` FROM order_items WHERE order_id = $1`, id); err != nil {
		return Order{}, fmt.Errorf("failed to read order items: %w", err)
	}
	items = CarryItemStates(existing, items)

	if _, err := tx.ExecContext(ctx, `DELETE FROM order_items WHERE order_id = $1`, id); err != nil {
		return Order{}, fmt.Errorf("failed to clear order items: %w", err)
	}
	if err := insertItems(ctx, tx, id, items); err != nil {
		return Order{}, err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE orders SET total = $2, status = $3, updated_at = NOW() WHERE id = $1`,
		id, total, RollUp(ItemStates(items))); err != nil {
		return Order{}, fmt.Errorf("failed to update order: %w", err)
	}

	order, err := getOrder(ctx, tx, id)
	if err != nil {
		return Order{}, err
	}
	if err := tx.Commit(); err != nil {
		return Order{}, fmt.Errorf("failed to commit order: %w", err)
	}
	return order, nil
}

// UpdateItemStatus moves one item and rolls the order status up: the shared
// item state when all items agree, pending otherwise.
func (s *sqlStore) UpdateItemStatus(ctx context.Context, orderID, productID int64, status Status) (OrderItem, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return OrderItem{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := lockOrder(ctx, tx, orderID, ""); err != nil {
		return OrderItem{}, err
	}
	var item OrderItem
	err = tx.QueryRowxContext(ctx,
		`UPDATE order_items SET status = $3, updated_at = NOW()
		 WHERE order_id = $1 AND product_id = $2 RETURNING `+itemColumns,
		orderID, productID, status).StructScan(&item)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return OrderItem{}, ErrNotFound
		}
		return OrderItem{}, fmt.Errorf("failed to update order item: %w", err)
	}

	var statuses []Status
	if err := tx.SelectContext(ctx, &statuses, `SELECT DISTINCT status FROM order_items WHERE order_id = $1`, orderID); err != nil {
		return OrderItem{}, fmt.Errorf("failed to read order item states: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE orders SET status = $2, updated_at = NOW() WHERE id = $1`,
		orderID, RollUp(statuses)); err != nil {
		return OrderItem{}, fmt.Errorf("failed to update order status: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return OrderItem{}, fmt.Errorf("failed to commit order item: %w", err)
	}
	return item, nil
}

// CarryItemStates returns next with each item's status taken from the
// matching product in existing. New products start as not processed.
func CarryItemStates(existing, next []OrderItem) []OrderItem {
	prev := make(map[int64]Status, len(existing))
	for _, item := range existing {
		prev[item.ProductID] = item.Status
	}
	out := make([]OrderItem, len(next))
	for i, item := range next {
		item.Status = StatusNotProcessed
		if st, ok := prev[item.ProductID]; ok && st != "" {
			item.Status = st
		}
		out[i] = item
	}
	return out
}

// ItemStates lists the distinct item states in order of first appearance.
func ItemStates(items []OrderItem) []Status {
	var out []Status
	for _, item := range items {
		if !slices.Contains(out, item.Status) {
			out = append(out, item.Status)
		}
	}
	return out
}

// RollUp derives an order status from the distinct states of its items.
func RollUp(itemStates []Status) Status {
	switch len(itemStates) {
	case 0:
		return StatusNotProcessed
	case 1:
		return itemStates[0]
	default:
		return StatusPending
	}
}

func (s *sqlStore) Delete(ctx context.Context, id int64, expect Status) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := lockOrder(ctx, tx, id, expect); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM orders WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete order: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit order deletion: %w", err)
	}
	return nil
}

// SnapshotLoader exposes the fields of an order that order rules look at.
func SnapshotLoader(store Store) guard.SnapshotLoader {
	return guard.SnapshotLoaderFunc(func(ctx context.Context, raw string) (ability.Snapshot, error) {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, guard.ErrEntityNotFound
		}
		o, err := store.Get(ctx, id)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil, guard.ErrEntityNotFound
			}
			return nil, err
		}
		return ability.Snapshot{"id": o.ID, "user_id": o.UserID, "status": string(o.Status)}, nil
	})
}
