package catalog

import (
	"strings"

	"github.com/odyssey-erp/odyssey-sales/internal/shared"
)

var (
	errFieldsRequired = shared.NewDomainError(shared.ErrValidation, "All fields are required")
	errNegativePrice  = shared.NewDomainError(shared.ErrValidation, "Price must not be negative")
	errNegativeStock  = shared.NewDomainError(shared.ErrValidation, "Stock must not be negative")
)

// A zero price or stock counts as missing, the same as an absent field.
func validate(in CreateProductInput) error {
	if strings.TrimSpace(in.ProductCode) == "" || strings.TrimSpace(in.Name) == "" {
		return errFieldsRequired
	}
	if in.Price.IsNegative() {
		return errNegativePrice
	}
	if in.Stock < 0 {
		return errNegativeStock
	}
	if in.Price.IsZero() || in.Stock == 0 {
		return errFieldsRequired
	}
	return nil
}
