package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-sales/internal/platform/db"
	"github.com/odyssey-erp/odyssey-sales/internal/shared"
)

const idempotencyModule = "ledger.transaction"

var (
	// ErrTransactionNotFound is returned when no live transaction matches the owner and id.
	ErrTransactionNotFound = shared.NewDomainError(shared.ErrNotFound, "Transaction not found")
	// errStockChanged reports a conditional decrement that matched no row.
	errStockChanged = errors.New("ledger: stock below requested quantity")
)

// TxRepository exposes the operations available inside a unit of work.
type TxRepository interface {
	ClaimIdempotencyKey(ctx context.Context, key string) error
	LockProductsByCode(ctx context.Context, codes []string) (map[string]LockedProduct, error)
	InsertTransaction(ctx context.Context, tx Transaction) (Transaction, error)
	InsertSummary(ctx context.Context, transactionID, productID int64, quantity int) error
	DecrementStock(ctx context.Context, productID int64, quantity int) (int, error)
	GetForUpdate(ctx context.Context, ownerID, id int64) (Transaction, error)
	SoftDelete(ctx context.Context, id int64, at time.Time) error
}

// Repository persists transactions in PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepo struct {
	tx pgx.Tx
}

// WithTx executes fn inside a read-committed transaction. Product rows are
// locked explicitly, so concurrent sales queue on the lock and then re-check
// stock instead of aborting with serialization failures.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTxLevel(ctx, r.pool, pgx.ReadCommitted, func(tx pgx.Tx) error {
		return fn(ctx, &txRepo{tx: tx})
	})
}

const listQuery = `SELECT t.id, t.invoice_no, t.date, t.customer, t.total_price, t.account_id, t.created_at, t.updated_at,
	p.id, p.product_code, p.name, p.price, s.quantity
FROM transactions t
LEFT JOIN summaries s ON s.transaction_id = t.id
LEFT JOIN products p ON p.id = s.product_id
WHERE t.account_id = $1 AND t.deleted_at IS NULL
ORDER BY t.id, s.id`

// ListByOwner returns live transactions of ownerID with their lines.
func (r *Repository) ListByOwner(ctx context.Context, ownerID int64) ([]Transaction, error) {
	rows, err := r.pool.Query(ctx, listQuery, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var (
		out   []Transaction
		index = make(map[int64]int)
	)
	for rows.Next() {
		var (
			t         Transaction
			productID *int64
			code      *string
			name      *string
			price     decimal.NullDecimal
			quantity  *int
		)
		if err := rows.Scan(&t.ID, &t.InvoiceNo, &t.Date, &t.Customer, &t.TotalPrice, &t.AccountID, &t.CreatedAt, &t.UpdatedAt,
			&productID, &code, &name, &price, &quantity); err != nil {
			return nil, err
		}
		pos, ok := index[t.ID]
		if !ok {
			t.Lines = []Line{}
			out = append(out, t)
			pos = len(out) - 1
			index[t.ID] = pos
		}
		if productID == nil || quantity == nil {
			continue
		}
		out[pos].Lines = append(out[pos].Lines, Line{
			ProductID:   *productID,
			ProductCode: deref(code),
			Name:        deref(name),
			Price:       price.Decimal,
			Quantity:    *quantity,
		})
	}
	return out, rows.Err()
}

// DailyTotals aggregates live transactions dated within [from, to) per account.
func (r *Repository) DailyTotals(ctx context.Context, from, to time.Time) ([]DailyTotal, error) {
	rows, err := r.pool.Query(ctx, `SELECT account_id, COUNT(*), COALESCE(SUM(total_price), 0)
		FROM transactions
		WHERE deleted_at IS NULL AND date >= $1 AND date < $2
		GROUP BY account_id
		ORDER BY account_id`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DailyTotal
	for rows.Next() {
		var d DailyTotal
		if err := rows.Scan(&d.AccountID, &d.Transactions, &d.Revenue); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (t *txRepo) ClaimIdempotencyKey(ctx context.Context, key string) error {
	return shared.ClaimIdempotencyKey(ctx, t.tx, key, idempotencyModule)
}

func (t *txRepo) LockProductsByCode(ctx context.Context, codes []string) (map[string]LockedProduct, error) {
	rows, err := t.tx.Query(ctx, `SELECT id, product_code, name, price, stock, account_id
		FROM products
		WHERE product_code = ANY($1)
		ORDER BY product_code
		FOR UPDATE`, codes)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]LockedProduct, len(codes))
	for rows.Next() {
		var p LockedProduct
		if err := rows.Scan(&p.ID, &p.ProductCode, &p.Name, &p.Price, &p.Stock, &p.AccountID); err != nil {
			return nil, err
		}
		out[p.ProductCode] = p
	}
	return out, rows.Err()
}

func (t *txRepo) InsertTransaction(ctx context.Context, rec Transaction) (Transaction, error) {
	err := t.tx.QueryRow(ctx, `INSERT INTO transactions (invoice_no, date, customer, total_price, account_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING id, created_at, updated_at`,
		rec.InvoiceNo, rec.Date, rec.Customer, rec.TotalPrice, rec.AccountID,
	).Scan(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return Transaction{}, fmt.Errorf("ledger: insert transaction: %w", err)
	}
	return rec, nil
}

func (t *txRepo) InsertSummary(ctx context.Context, transactionID, productID int64, quantity int) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO summaries (transaction_id, product_id, quantity, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())`, transactionID, productID, quantity)
	if err != nil {
		return fmt.Errorf("ledger: insert summary: %w", err)
	}
	return nil
}

// DecrementStock subtracts quantity only while enough stock remains and
// returns the new level.
func (t *txRepo) DecrementStock(ctx context.Context, productID int64, quantity int) (int, error) {
	var remaining int
	err := t.tx.QueryRow(ctx, `UPDATE products SET stock = stock - $2
		WHERE id = $1 AND stock >= $2
		RETURNING stock`, productID, quantity).Scan(&remaining)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, errStockChanged
		}
		return 0, fmt.Errorf("ledger: decrement stock: %w", err)
	}
	return remaining, nil
}

func (t *txRepo) GetForUpdate(ctx context.Context, ownerID, id int64) (Transaction, error) {
	var rec Transaction
	err := t.tx.QueryRow(ctx, `SELECT id, invoice_no, date, customer, total_price, account_id, created_at, updated_at
		FROM transactions
		WHERE id = $1 AND account_id = $2 AND deleted_at IS NULL
		FOR UPDATE`, id, ownerID,
	).Scan(&rec.ID, &rec.InvoiceNo, &rec.Date, &rec.Customer, &rec.TotalPrice, &rec.AccountID, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Transaction{}, ErrTransactionNotFound
		}
		return Transaction{}, err
	}

	rows, err := t.tx.Query(ctx, `SELECT p.id, p.product_code, p.name, p.price, s.quantity
		FROM summaries s
		JOIN products p ON p.id = s.product_id
		WHERE s.transaction_id = $1
		ORDER BY s.id`, id)
	if err != nil {
		return Transaction{}, err
	}
	defer rows.Close()
	rec.Lines = []Line{}
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.ProductID, &l.ProductCode, &l.Name, &l.Price, &l.Quantity); err != nil {
			return Transaction{}, err
		}
		rec.Lines = append(rec.Lines, l)
	}
	return rec, rows.Err()
}

func (t *txRepo) SoftDelete(ctx context.Context, id int64, at time.Time) error {
	_, err := t.tx.Exec(ctx, `UPDATE transactions SET deleted_at = $2, updated_at = $2 WHERE id = $1`, id, at)
	return err
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
