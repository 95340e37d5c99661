package cart

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/joao-fontenele/reefmart/internal/domain"
)

const itemColumns = `id, user_key, product_id, name, price, category, image, quantity, total_price, added_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*domain.CartItem, error) {
	item := &domain.CartItem{}
	err := row.Scan(&item.ID, &item.UserKey, &item.ProductID, &item.Name, &item.Price,
		&item.Category, &item.Image, &item.Quantity, &item.TotalPrice, &item.AddedAt)
	if err != nil {
		return nil, err
	}
	return item, nil
}

func collectItems(rows *sql.Rows) ([]domain.CartItem, error) {
	defer func() { _ = rows.Close() }()

	items := []domain.CartItem{}
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

type CartRepository struct {
	db *sql.DB
}

func NewCartRepository(db *sql.DB) *CartRepository {
	return &CartRepository{db: db}
}

func (r *CartRepository) Add(ctx context.Context, item *domain.CartItem) error {
	item.ID = uuid.New().String()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO cart_items (`+itemColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, item.ID, item.UserKey, item.ProductID, item.Name, item.Price,
		item.Category, item.Image, item.Quantity, item.TotalPrice, item.AddedAt)
	return err
}

func (r *CartRepository) List(ctx context.Context, userKey string) ([]domain.CartItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+itemColumns+`
		FROM cart_items
		WHERE user_key = $1
		ORDER BY added_at, id
	`, userKey)
	if err != nil {
		return nil, err
	}
	return collectItems(rows)
}

func (r *CartRepository) Get(ctx context.Context, userKey, id string) (*domain.CartItem, error) {
	item, err := scanItem(r.db.QueryRowContext(ctx, `
		SELECT `+itemColumns+`
		FROM cart_items
		WHERE user_key = $1 AND id = $2
	`, userKey, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return item, nil
}

// UpdateQuantity changes the quantity from one value to another and
// recomputes the line total from the price snapshot. It returns nil when the
// line is gone or no longer holds the from quantity.
func (r *CartRepository) UpdateQuantity(ctx context.Context, userKey, id string, from, to int) (*domain.CartItem, error) {
	item, err := scanItem(r.db.QueryRowContext(ctx, `
		UPDATE cart_items
		SET quantity = $4, total_price = price * $4
		WHERE user_key = $1 AND id = $2 AND quantity = $3
		RETURNING `+itemColumns+`
	`, userKey, id, from, to))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return item, nil
}

// Delete removes the user's lines with the given ids and returns the rows
// that were removed. Unknown ids are ignored.
func (r *CartRepository) Delete(ctx context.Context, userKey string, ids []string) ([]domain.CartItem, error) {
	rows, err := r.db.QueryContext(ctx, `
		DELETE FROM cart_items
		WHERE user_key = $1 AND id = ANY($2)
		RETURNING `+itemColumns+`
	`, userKey, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	return collectItems(rows)
}
