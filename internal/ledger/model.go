package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is a recorded sale with its product lines.
type Transaction struct {
	ID         int64
	InvoiceNo  string
	Date       time.Time
	Customer   string
	TotalPrice decimal.Decimal
	AccountID  int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
	DeletedAt  *time.Time
	Lines      []Line
}

// Line is one product sold within a transaction.
type Line struct {
	ProductID   int64
	ProductCode string
	Name        string
	Price       decimal.Decimal
	Quantity    int
}

// LineInput requests quantity units of the product identified by ProductCode.
type LineInput struct {
	ProductCode string
	Quantity    int
}

// CreateTransactionInput carries a sale request. A nil Date means now.
type CreateTransactionInput struct {
	Customer       string
	Date           *time.Time
	Lines          []LineInput
	IdempotencyKey string
}

// LockedProduct is a product row held under a row lock for the current unit of work.
type LockedProduct struct {
	ID          int64
	ProductCode string
	Name        string
	Price       decimal.Decimal
	Stock       int
	AccountID   int64
}

// SummaryEntry is one row of the transaction summary report.
type SummaryEntry struct {
	InvoiceNo  string           `json:"invoiceNo"`
	Date       time.Time        `json:"date"`
	Customer   string           `json:"customer"`
	TotalPrice decimal.Decimal  `json:"totalPrice"`
	Products   []SummaryProduct `json:"products"`
}

// SummaryProduct is a product line inside a SummaryEntry.
type SummaryProduct struct {
	ProductID int64           `json:"productId"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

// LowStockAlert reports a product whose stock fell below the alert threshold after a sale.
type LowStockAlert struct {
	ProductID   int64  `json:"product_id"`
	ProductCode string `json:"product_code"`
	Name        string `json:"name"`
	AccountID   int64  `json:"account_id"`
	Remaining   int    `json:"remaining"`
	Threshold   int    `json:"threshold"`
	InvoiceNo   string `json:"invoice_no"`
}

// DailyTotal aggregates one account's sales over a reporting window.
type DailyTotal struct {
	AccountID    int64
	Transactions int
	Revenue      decimal.Decimal
}
