package orders

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/joao-fontenele/reefmart/internal/domain"
)

var (
	ErrCartItemNotFound = errors.New("cart item not found")
	ErrOrderClosed      = errors.New("order is already completed or cancelled")
)

const orderColumns = `id, user_key, order_number, status, total_amount, created_at, completed_at`

type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func scanOrder(scan func(dest ...any) error) (*domain.Order, error) {
	order := &domain.Order{}
	var completedAt sql.NullTime
	if err := scan(&order.ID, &order.UserKey, &order.OrderNumber, &order.Status, &order.TotalAmount, &order.CreatedAt, &completedAt); err != nil {
		return nil, err
	}
	if completedAt.Valid {
		order.CompletedAt = &completedAt.Time
	}
	order.Items = []domain.OrderItem{}
	return order, nil
}

// PlaceOrder turns the user's selected cart lines into a pending order and
// removes those lines, in one transaction. Every id must name one of the
// user's lines.
func (r *OrderRepository) PlaceOrder(ctx context.Context, userKey string, itemIDs []string, now time.Time) (*domain.Order, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	rows, err := tx.QueryContext(ctx, `
		SELECT id, product_id, name, price, category, image, quantity, total_price
		FROM cart_items
		WHERE user_key = $1 AND id = ANY($2)
		ORDER BY added_at, id
		FOR UPDATE
	`, userKey, pq.Array(itemIDs))
	if err != nil {
		return nil, err
	}

	var lines []domain.CartItem
	for rows.Next() {
		line := domain.CartItem{UserKey: userKey}
		if err := rows.Scan(&line.ID, &line.ProductID, &line.Name, &line.Price, &line.Category, &line.Image, &line.Quantity, &line.TotalPrice); err != nil {
			_ = rows.Close()
			return nil, err
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	_ = rows.Close()

	if len(lines) != len(itemIDs) {
		return nil, ErrCartItemNotFound
	}

	order := domain.NewOrder(userKey, lines, now)
	order.ID = uuid.New().String()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (id, user_key, order_number, status, total_amount, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
	`, order.ID, order.UserKey, order.OrderNumber, order.Status, order.TotalAmount, order.CreatedAt)
	if err != nil {
		return nil, err
	}

	for i, item := range order.Items {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_items (id, order_id, position, product_id, name, price, quantity, total_price, image, category)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`, uuid.New().String(), order.ID, i, item.ProductID, item.Name, item.Price, item.Quantity, item.TotalPrice, item.Image, item.Category)
		if err != nil {
			return nil, err
		}
	}

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM cart_items WHERE user_key = $1 AND id = ANY($2)
	`, userKey, pq.Array(itemIDs)); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return order, nil
}

func (r *OrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	order, err := scanOrder(r.db.QueryRowContext(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE id = $1
	`, id).Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	if err := r.loadItems(ctx, map[string]*domain.Order{order.ID: order}, []string{order.ID}); err != nil {
		return nil, err
	}
	return order, nil
}

// ListByUser returns the user's orders, newest first.
func (r *OrderRepository) ListByUser(ctx context.Context, userKey string) ([]domain.Order, error) {
	return r.list(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE user_key = $1
		ORDER BY created_at DESC, id
	`, userKey)
}

// ListAll returns every order, oldest first.
func (r *OrderRepository) ListAll(ctx context.Context) ([]domain.Order, error) {
	return r.list(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		ORDER BY created_at, id
	`)
}

func (r *OrderRepository) list(ctx context.Context, query string, args ...any) ([]domain.Order, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	orderMap := make(map[string]*domain.Order)
	var orderIDs []string

	for rows.Next() {
		order, err := scanOrder(rows.Scan)
		if err != nil {
			return nil, err
		}
		orderMap[order.ID] = order
		orderIDs = append(orderIDs, order.ID)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(orderIDs) == 0 {
		return []domain.Order{}, nil
	}

	if err := r.loadItems(ctx, orderMap, orderIDs); err != nil {
		return nil, err
	}

	orders := make([]domain.Order, 0, len(orderIDs))
	for _, id := range orderIDs {
		orders = append(orders, *orderMap[id])
	}
	return orders, nil
}

func (r *OrderRepository) loadItems(ctx context.Context, orderMap map[string]*domain.Order, orderIDs []string) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT order_id, product_id, name, price, quantity, total_price, image, category
		FROM order_items
		WHERE order_id = ANY($1)
		ORDER BY order_id, position
	`, pq.Array(orderIDs))
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var orderID string
		var item domain.OrderItem
		if err := rows.Scan(&orderID, &item.ProductID, &item.Name, &item.Price, &item.Quantity, &item.TotalPrice, &item.Image, &item.Category); err != nil {
			return err
		}
		order := orderMap[orderID]
		order.Items = append(order.Items, item)
	}

	return rows.Err()
}

// MarkReceived completes one of the user's open orders. It returns nil, nil
// when the user has no such order and ErrOrderClosed when the order is
// already completed or cancelled.
func (r *OrderRepository) MarkReceived(ctx context.Context, userKey, id string) (*domain.Order, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET status = $3, completed_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND user_key = $2 AND status NOT IN ($3, $4)
	`, id, userKey, domain.OrderStatusCompleted, domain.OrderStatusCancelled)
	if err != nil {
		return nil, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}

	order, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if order == nil || order.UserKey != userKey {
		return nil, nil
	}
	if rowsAffected == 0 {
		return nil, ErrOrderClosed
	}
	return order, nil
}

func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, status domain.OrderStatus) (*domain.Order, error) {
	result, err := r.db.ExecContext(ctx, `
		UPDATE orders
		SET status = $1,
			completed_at = CASE WHEN $1 = 'Completed' THEN COALESCE(completed_at, NOW()) ELSE completed_at END,
			updated_at = NOW()
		WHERE id = $2
	`, status, id)
	if err != nil {
		return nil, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, err
	}

	if rowsAffected == 0 {
		return nil, nil
	}

	return r.GetByID(ctx, id)
}
