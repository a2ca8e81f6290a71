package catalog

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/odyssey-sales/internal/platform/db"
)

const constraintProductCode = "products_product_code_key"

// Repository defines persistence operations for products.
type Repository interface {
	ListByOwner(ctx context.Context, ownerID int64) ([]Product, error)
	Create(ctx context.Context, product Product) (Product, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository returns a PostgreSQL backed Repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool}
}

func (r *repository) ListByOwner(ctx context.Context, ownerID int64) ([]Product, error) {
	rows, err := r.db.Query(ctx, `SELECT id, product_code, name, price, stock, account_id, created_at
		FROM products WHERE account_id = $1 ORDER BY id`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.ProductCode, &p.Name, &p.Price, &p.Stock, &p.AccountID, &p.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

func (r *repository) Create(ctx context.Context, product Product) (Product, error) {
	err := r.db.QueryRow(ctx, `INSERT INTO products (product_code, name, price, stock, account_id, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING id, created_at`,
		product.ProductCode, product.Name, product.Price, product.Stock, product.AccountID,
	).Scan(&product.ID, &product.CreatedAt)
	if err != nil {
		if db.IsUniqueViolation(err, constraintProductCode) {
			return Product{}, ErrDuplicateProductCode
		}
		return Product{}, fmt.Errorf("catalog: insert product: %w", err)
	}
	return product, nil
}
