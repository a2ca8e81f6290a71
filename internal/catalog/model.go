package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a sellable item owned by an account.
type Product struct {
	ID          int64
	ProductCode string
	Name        string
	Price       decimal.Decimal
	Stock       int
	AccountID   int64
	CreatedAt   time.Time
}

// CreateProductInput carries the fields accepted when adding a product.
type CreateProductInput struct {
	ProductCode string
	Name        string
	Price       decimal.Decimal
	Stock       int
}
