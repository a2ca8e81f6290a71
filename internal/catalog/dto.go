package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

type createProductRequest struct {
	ProductCode string          `json:"productCode"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
}

type productResponse struct {
	ID          int64     `json:"id"`
	ProductCode string    `json:"productCode"`
	Name        string    `json:"name"`
	Price       float64   `json:"price"`
	Stock       int       `json:"stock"`
	AccountID   int64     `json:"accountId"`
	CreatedAt   time.Time `json:"createdAt"`
}

func newProductResponse(p Product) productResponse {
	return productResponse{
		ID:          p.ID,
		ProductCode: p.ProductCode,
		Name:        p.Name,
		Price:       p.Price.InexactFloat64(),
		Stock:       p.Stock,
		AccountID:   p.AccountID,
		CreatedAt:   p.CreatedAt,
	}
}

func newProductList(items []Product) []productResponse {
	out := make([]productResponse, 0, len(items))
	for _, p := range items {
		out = append(out, newProductResponse(p))
	}
	return out
}
