package catalog

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/joao-fontenele/reefmart/internal/domain"
)

var (
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrDuplicateName     = errors.New("product name already exists")
	ErrProductNotFound   = errors.New("product not found")
)

const productColumns = `id, name, category, price, stock, image, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	p := &domain.Product{}
	if err := row.Scan(&p.ID, &p.Name, &p.Category, &p.Price, &p.Stock, &p.Image, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return p, nil
}

type ProductRepository struct {
	db *sql.DB
}

func NewProductRepository(db *sql.DB) *ProductRepository {
	return &ProductRepository{db: db}
}

func (r *ProductRepository) ListAll(ctx context.Context) ([]domain.Product, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		ORDER BY created_at, id
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	products := []domain.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return products, nil
}

func (r *ProductRepository) Get(ctx context.Context, id string) (*domain.Product, error) {
	p, err := scanProduct(r.db.QueryRowContext(ctx, `
		SELECT `+productColumns+`
		FROM products
		WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return p, nil
}

// Create inserts a product unless another product already uses the same
// name, compared trimmed and case-insensitively.
func (r *ProductRepository) Create(ctx context.Context, p *domain.Product) error {
	p.ID = uuid.New().String()
	p.Name = strings.TrimSpace(p.Name)
	now := time.Now().UTC()
	p.CreatedAt, p.UpdatedAt = now, now

	result, err := r.db.ExecContext(ctx, `
		INSERT INTO products (id, name, category, price, stock, image, created_at, updated_at)
		SELECT $1, $2, $3, $4, $5, $6, $7, $7
		WHERE NOT EXISTS (SELECT 1 FROM products WHERE lower(name) = lower($2))
	`, p.ID, p.Name, p.Category, p.Price, p.Stock, p.Image, now)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateName
		}
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrDuplicateName
	}

	return nil
}

// Update overwrites the editable fields of p. Stock is left as stored unless
// setStock is true. It returns nil, nil when the product does not exist.
func (r *ProductRepository) Update(ctx context.Context, p *domain.Product, setStock bool) (*domain.Product, error) {
	var taken bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM products WHERE lower(name) = lower($1) AND id <> $2)
	`, strings.TrimSpace(p.Name), p.ID).Scan(&taken)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrDuplicateName
	}

	stock := sql.NullInt64{Int64: int64(p.Stock), Valid: setStock}
	updated, err := scanProduct(r.db.QueryRowContext(ctx, `
		UPDATE products
		SET name = $2, category = $3, price = $4, stock = COALESCE($5, stock), image = $6, updated_at = NOW()
		WHERE id = $1
		RETURNING `+productColumns+`
	`, p.ID, strings.TrimSpace(p.Name), p.Category, p.Price, stock, p.Image))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		if isUniqueViolation(err) {
			return nil, ErrDuplicateName
		}
		return nil, err
	}
	return updated, nil
}

// isUniqueViolation reports a products_name_lower_idx conflict. Two
// concurrent writes can both pass the existence check.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// Delete reports whether a row was removed.
func (r *ProductRepository) Delete(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}

	return rowsAffected > 0, nil
}

// AdjustStock adds delta to the product's stock. A change that would take
// stock below zero is rejected with ErrInsufficientStock, an unknown product
// with ErrProductNotFound. The check and write are one statement.
func (r *ProductRepository) AdjustStock(ctx context.Context, id string, delta int) (*domain.Product, error) {
	p, err := scanProduct(r.db.QueryRowContext(ctx, `
		UPDATE products
		SET stock = stock + $2, updated_at = NOW()
		WHERE id = $1 AND stock + $2 >= 0
		RETURNING `+productColumns+`
	`, id, delta))
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}

	existing, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, ErrProductNotFound
	}
	return nil, ErrInsufficientStock
}
