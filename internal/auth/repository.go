package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-sales/internal/platform/db"
	"github.com/odyssey-erp/odyssey-sales/internal/shared"
)

const (
	constraintEmail = "accounts_email_key"
	constraintPhone = "accounts_phone_number_key"
)

// Repository defines persistence operations for auth module.
type Repository interface {
	FindByEmail(ctx context.Context, email string) (*Account, error)
	Create(ctx context.Context, account Account) (*Account, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// FindByEmail fetches an account by email.
func (r *PGRepository) FindByEmail(ctx context.Context, email string) (*Account, error) {
	const query = `SELECT id, email, password_hash, name, phone_number, created_at, updated_at FROM accounts WHERE email = $1`
	var acc Account
	err := r.pool.QueryRow(ctx, query, email).Scan(&acc.ID, &acc.Email, &acc.PasswordHash, &acc.Name, &acc.PhoneNumber, &acc.CreatedAt, &acc.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &acc, nil
}

// Create inserts a new account. Unique violations surface as ErrDuplicateEmail or ErrDuplicatePhone.
func (r *PGRepository) Create(ctx context.Context, account Account) (*Account, error) {
	const query = `INSERT INTO accounts (email, password_hash, name, phone_number, created_at, updated_at)
		VALUES ($1, $2, $3, $4, NOW(), NOW())
		RETURNING id, created_at, updated_at`
	err := r.pool.QueryRow(ctx, query, account.Email, account.PasswordHash, account.Name, account.PhoneNumber).
		Scan(&account.ID, &account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		switch {
		case db.IsUniqueViolation(err, constraintEmail):
			return nil, ErrDuplicateEmail
		case db.IsUniqueViolation(err, constraintPhone):
			return nil, ErrDuplicatePhone
		}
		return nil, fmt.Errorf("auth: insert account: %w", err)
	}
	return &account, nil
}

var _ Repository = (*PGRepository)(nil)
