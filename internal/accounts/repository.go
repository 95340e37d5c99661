package accounts

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/joao-fontenele/reefmart/internal/domain"
)

var (
	ErrEmailTaken   = errors.New("email already registered")
	ErrUserNotFound = errors.New("user not found")
)

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new account keyed by its sanitized email. A second signup
// with an address that sanitizes to the same key returns ErrEmailTaken.
func (r *UserRepository) Create(ctx context.Context, u *domain.User) error {
	now := time.Now().UTC()
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO users (key, username, email, password_hash, role, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		ON CONFLICT (key) DO NOTHING
		RETURNING created_at
	`, u.Key, u.Username, u.Email, u.PasswordHash, u.Role, now).Scan(&u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrEmailTaken
	}
	return err
}

func (r *UserRepository) GetByKey(ctx context.Context, key string) (*domain.User, error) {
	u := &domain.User{}
	err := r.db.QueryRowContext(ctx, `
		SELECT key, username, email, password_hash, role,
		       street, city, state, postal_code, country, created_at
		FROM users
		WHERE key = $1
	`, key).Scan(
		&u.Key, &u.Username, &u.Email, &u.PasswordHash, &u.Role,
		&u.Address.Street, &u.Address.City, &u.Address.State, &u.Address.PostalCode, &u.Address.Country,
		&u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return u, nil
}

func (r *UserRepository) UpdateAddress(ctx context.Context, key string, addr domain.Address) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users
		SET street = $2, city = $3, state = $4, postal_code = $5, country = $6, updated_at = $7
		WHERE key = $1
	`, key, addr.Street, addr.City, addr.State, addr.PostalCode, addr.Country, time.Now().UTC())
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

func (r *UserRepository) UpdatePassword(ctx context.Context, key, passwordHash string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET password_hash = $2, updated_at = $3 WHERE key = $1
	`, key, passwordHash, time.Now().UTC())
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}
