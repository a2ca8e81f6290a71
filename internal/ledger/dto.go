package ledger

import (
	"strings"
	"time"
)

type lineRequest struct {
	ProductCode string `json:"productCode"`
	Quantity    int    `json:"quantity"`
}

type createTransactionRequest struct {
	Customer string        `json:"customer"`
	Date     string        `json:"date"`
	Products []lineRequest `json:"products"`
}

// acceptedDateLayouts lists the formats allowed for the optional date field.
var acceptedDateLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"}

// parseDate returns nil for an empty value.
func parseDate(raw string) (*time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, true
	}
	for _, layout := range acceptedDateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, true
		}
	}
	return nil, false
}

func (r createTransactionRequest) lines() []LineInput {
	out := make([]LineInput, 0, len(r.Products))
	for _, p := range r.Products {
		out = append(out, LineInput{ProductCode: p.ProductCode, Quantity: p.Quantity})
	}
	return out
}

type lineResponse struct {
	ID          int64   `json:"id"`
	ProductCode string  `json:"productCode"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Quantity    int     `json:"quantity"`
}

type transactionResponse struct {
	ID         int64          `json:"id"`
	InvoiceNo  string         `json:"invoiceNo"`
	Date       time.Time      `json:"date"`
	Customer   string         `json:"customer"`
	TotalPrice float64        `json:"totalPrice"`
	AccountID  int64          `json:"accountId"`
	CreatedAt  time.Time      `json:"createdAt"`
	UpdatedAt  time.Time      `json:"updatedAt"`
	DeletedAt  *time.Time     `json:"deletedAt"`
	Products   []lineResponse `json:"products"`
}

type summaryProductResponse struct {
	ProductID int64   `json:"productId"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
}

type summaryResponse struct {
	InvoiceNo  string                   `json:"invoiceNo"`
	Date       time.Time                `json:"date"`
	Customer   string                   `json:"customer"`
	TotalPrice float64                  `json:"totalPrice"`
	Products   []summaryProductResponse `json:"products"`
}

func newTransactionResponse(t Transaction) transactionResponse {
	lines := make([]lineResponse, 0, len(t.Lines))
	for _, l := range t.Lines {
		lines = append(lines, lineResponse{
			ID:          l.ProductID,
			ProductCode: l.ProductCode,
			Name:        l.Name,
			Price:       l.Price.InexactFloat64(),
			Quantity:    l.Quantity,
		})
	}
	return transactionResponse{
		ID:         t.ID,
		InvoiceNo:  t.InvoiceNo,
		Date:       t.Date,
		Customer:   t.Customer,
		TotalPrice: t.TotalPrice.InexactFloat64(),
		AccountID:  t.AccountID,
		CreatedAt:  t.CreatedAt,
		UpdatedAt:  t.UpdatedAt,
		DeletedAt:  t.DeletedAt,
		Products:   lines,
	}
}

func newTransactionList(items []Transaction) []transactionResponse {
	out := make([]transactionResponse, 0, len(items))
	for _, t := range items {
		out = append(out, newTransactionResponse(t))
	}
	return out
}

func newSummaryList(entries []SummaryEntry) []summaryResponse {
	out := make([]summaryResponse, 0, len(entries))
	for _, e := range entries {
		products := make([]summaryProductResponse, 0, len(e.Products))
		for _, p := range e.Products {
			products = append(products, summaryProductResponse{
				ProductID: p.ProductID,
				Name:      p.Name,
				Price:     p.Price.InexactFloat64(),
				Quantity:  p.Quantity,
			})
		}
		out = append(out, summaryResponse{
			InvoiceNo:  e.InvoiceNo,
			Date:       e.Date,
			Customer:   e.Customer,
			TotalPrice: e.TotalPrice.InexactFloat64(),
			Products:   products,
		})
	}
	return out
}
