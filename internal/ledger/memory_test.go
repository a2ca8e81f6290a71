package ledger

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-sales/internal/shared"
)

type summaryRow struct {
	transactionID int64
	productID     int64
	quantity      int
}

type memoryState struct {
	products     map[int64]LockedProduct
	transactions []Transaction
	summaries    []summaryRow
	keys         map[string]struct{}
	nextID       int64
}

func (s memoryState) clone() memoryState {
	out := memoryState{
		products:     make(map[int64]LockedProduct, len(s.products)),
		transactions: append([]Transaction(nil), s.transactions...),
		summaries:    append([]summaryRow(nil), s.summaries...),
		keys:         make(map[string]struct{}, len(s.keys)),
		nextID:       s.nextID,
	}
	for k, v := range s.products {
		out.products[k] = v
	}
	for k := range s.keys {
		out.keys[k] = struct{}{}
	}
	return out
}

// memoryRepo serialises units of work and commits a copy of the state only
// when the callback succeeds.
type memoryRepo struct {
	mu        sync.Mutex
	state     memoryState
	listCalls int
}

type memoryTx struct {
	state *memoryState
}

func newMemoryRepo(products ...LockedProduct) *memoryRepo {
	repo := &memoryRepo{state: memoryState{
		products: make(map[int64]LockedProduct),
		keys:     make(map[string]struct{}),
	}}
	for _, p := range products {
		repo.state.products[p.ID] = p
	}
	return repo
}

func product(id int64, code, name string, price int64, stock int) LockedProduct {
	return LockedProduct{ID: id, ProductCode: code, Name: name, Price: decimal.NewFromInt(price), Stock: stock, AccountID: 1}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	working := r.state.clone()
	if err := fn(ctx, &memoryTx{state: &working}); err != nil {
		return err
	}
	r.state = working
	return nil
}

func (r *memoryRepo) ListByOwner(ctx context.Context, ownerID int64) ([]Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listCalls++
	var out []Transaction
	for _, t := range r.state.transactions {
		if t.AccountID != ownerID || t.DeletedAt != nil {
			continue
		}
		t.Lines = r.state.linesOf(t.ID)
		out = append(out, t)
	}
	return out, nil
}

func (r *memoryRepo) stock(id int64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.products[id].Stock
}

func (r *memoryRepo) transactionCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.state.transactions)
}

func (s *memoryState) linesOf(txID int64) []Line {
	lines := []Line{}
	for _, row := range s.summaries {
		if row.transactionID != txID {
			continue
		}
		p := s.products[row.productID]
		lines = append(lines, Line{ProductID: p.ID, ProductCode: p.ProductCode, Name: p.Name, Price: p.Price, Quantity: row.quantity})
	}
	return lines
}

func (tx *memoryTx) ClaimIdempotencyKey(ctx context.Context, key string) error {
	if _, ok := tx.state.keys[key]; ok {
		return shared.ErrIdempotencyConflict
	}
	tx.state.keys[key] = struct{}{}
	return nil
}

func (tx *memoryTx) LockProductsByCode(ctx context.Context, codes []string) (map[string]LockedProduct, error) {
	if !sort.StringsAreSorted(codes) {
		panic("product codes must be locked in sorted order")
	}
	out := make(map[string]LockedProduct)
	for _, p := range tx.state.products {
		for _, code := range codes {
			if p.ProductCode == code {
				out[code] = p
			}
		}
	}
	return out, nil
}

func (tx *memoryTx) InsertTransaction(ctx context.Context, rec Transaction) (Transaction, error) {
	tx.state.nextID++
	rec.ID = tx.state.nextID
	rec.CreatedAt = time.Now()
	rec.UpdatedAt = rec.CreatedAt
	tx.state.transactions = append(tx.state.transactions, rec)
	return rec, nil
}

func (tx *memoryTx) InsertSummary(ctx context.Context, transactionID, productID int64, quantity int) error {
	tx.state.summaries = append(tx.state.summaries, summaryRow{transactionID: transactionID, productID: productID, quantity: quantity})
	return nil
}

func (tx *memoryTx) DecrementStock(ctx context.Context, productID int64, quantity int) (int, error) {
	p := tx.state.products[productID]
	if p.Stock < quantity {
		return 0, errStockChanged
	}
	p.Stock -= quantity
	tx.state.products[productID] = p
	return p.Stock, nil
}

func (tx *memoryTx) GetForUpdate(ctx context.Context, ownerID, id int64) (Transaction, error) {
	for _, t := range tx.state.transactions {
		if t.ID == id && t.AccountID == ownerID && t.DeletedAt == nil {
			t.Lines = tx.state.linesOf(t.ID)
			return t, nil
		}
	}
	return Transaction{}, ErrTransactionNotFound
}

func (tx *memoryTx) SoftDelete(ctx context.Context, id int64, at time.Time) error {
	for i := range tx.state.transactions {
		if tx.state.transactions[i].ID == id {
			deletedAt := at
			tx.state.transactions[i].DeletedAt = &deletedAt
		}
	}
	return nil
}

type auditStub struct {
	mu   sync.Mutex
	logs []shared.AuditLog
}

func (a *auditStub) Record(ctx context.Context, log shared.AuditLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.logs = append(a.logs, log)
	return nil
}

type alertStub struct {
	mu     sync.Mutex
	alerts []LowStockAlert
}

func (a *alertStub) EnqueueLowStock(ctx context.Context, alert LowStockAlert) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.alerts = append(a.alerts, alert)
	return nil
}

type metricsStub struct {
	mu       sync.Mutex
	created  int
	deleted  int
	rejected map[string]int
}

func (m *metricsStub) TransactionCreated(lines int, total float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.created++
}

func (m *metricsStub) TransactionRejected(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rejected == nil {
		m.rejected = make(map[string]int)
	}
	m.rejected[reason]++
}

func (m *metricsStub) TransactionDeleted() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted++
}

// insertCountingRepo counts how often the service reaches InsertTransaction.
type insertCountingRepo struct {
	*memoryRepo
	inserts int
}

type insertCountingTx struct {
	TxRepository
	repo *insertCountingRepo
}

func (r *insertCountingRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return r.memoryRepo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		return fn(ctx, &insertCountingTx{TxRepository: tx, repo: r})
	})
}

func (tx *insertCountingTx) InsertTransaction(ctx context.Context, rec Transaction) (Transaction, error) {
	tx.repo.inserts++
	return tx.TxRepository.InsertTransaction(ctx, rec)
}
