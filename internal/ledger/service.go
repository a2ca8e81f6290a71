// Package ledger records sales transactions against product stock and
// reports on them.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/odyssey-sales/internal/shared"
)

var (
	errInvalidTransaction = shared.NewDomainError(shared.ErrValidation, "Invalid transaction data")
	errProductCodeMissing = shared.NewDomainError(shared.ErrValidation, "Product code is required")
	errInvalidQuantity    = shared.NewDomainError(shared.ErrValidation, "Quantity must be greater than zero")
)

// RepositoryPort abstracts repository usage for service.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	ListByOwner(ctx context.Context, ownerID int64) ([]Transaction, error)
}

// AuditPort abstracts audit logging functionality.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// CachePort stores summary reports per account.
type CachePort interface {
	Fetch(ctx context.Context, ownerID int64, loader func(context.Context) ([]SummaryEntry, error)) ([]SummaryEntry, error)
	Invalidate(ctx context.Context, ownerID int64) error
}

// StockAlerter receives products that dropped below the low stock threshold.
type StockAlerter interface {
	EnqueueLowStock(ctx context.Context, alert LowStockAlert) error
}

// MetricsPort records ledger outcomes.
type MetricsPort interface {
	TransactionCreated(lines int, total float64)
	TransactionRejected(reason string)
	TransactionDeleted()
}

// ServiceConfig groups optional settings.
type ServiceConfig struct {
	LowStockThreshold int
}

// Deps bundles the optional collaborators of Service. Nil members are skipped.
type Deps struct {
	Audit   AuditPort
	Cache   CachePort
	Alerts  StockAlerter
	Metrics MetricsPort
	Logger  *slog.Logger
}

// Service coordinates transaction recording and reporting.
type Service struct {
	repo      RepositoryPort
	audit     AuditPort
	cache     CachePort
	alerts    StockAlerter
	metrics   MetricsPort
	logger    *slog.Logger
	threshold int
	now       func() time.Time
}

// NewService builds Service.
func NewService(repo RepositoryPort, deps Deps, cfg ServiceConfig) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:      repo,
		audit:     deps.Audit,
		cache:     deps.Cache,
		alerts:    deps.Alerts,
		metrics:   deps.Metrics,
		logger:    logger,
		threshold: cfg.LowStockThreshold,
		now:       time.Now,
	}
}

// List returns the live transactions of ownerID with their product lines.
func (s *Service) List(ctx context.Context, ownerID int64) ([]Transaction, error) {
	items, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []Transaction{}
	}
	return items, nil
}

// Create records a sale and decrements stock for every line. Either the whole
// sale is stored or nothing is.
func (s *Service) Create(ctx context.Context, ownerID int64, input CreateTransactionInput) (Transaction, error) {
	if err := validateCreate(input); err != nil {
		s.rejected("validation")
		return Transaction{}, err
	}

	codes := distinctCodes(input.Lines)
	date := s.now().UTC()
	if input.Date != nil && !input.Date.IsZero() {
		date = input.Date.UTC()
	}

	var (
		created   Transaction
		remaining = make(map[int64]int)
		touched   = make(map[int64]LockedProduct)
	)
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if input.IdempotencyKey != "" {
			if err := tx.ClaimIdempotencyKey(ctx, input.IdempotencyKey); err != nil {
				return err
			}
		}

		products, err := tx.LockProductsByCode(ctx, codes)
		if err != nil {
			return fmt.Errorf("ledger: lock products: %w", err)
		}

		requested := make(map[string]int, len(codes))
		total := decimal.Zero
		lines := make([]Line, 0, len(input.Lines))
		for _, in := range input.Lines {
			code := strings.TrimSpace(in.ProductCode)
			p, ok := products[code]
			if !ok {
				return shared.NewDomainError(shared.ErrProductNotFound, "Product not found for code: "+code)
			}
			// requested never exceeds stock, so the subtraction cannot wrap.
			if in.Quantity > p.Stock-requested[code] {
				return insufficientStock(p.Name)
			}
			requested[code] += in.Quantity
			total = total.Add(p.Price.Mul(decimal.NewFromInt(int64(in.Quantity))))
			lines = append(lines, Line{
				ProductID:   p.ID,
				ProductCode: p.ProductCode,
				Name:        p.Name,
				Price:       p.Price,
				Quantity:    in.Quantity,
			})
			touched[p.ID] = p
		}

		created, err = tx.InsertTransaction(ctx, Transaction{
			InvoiceNo:  "INV-" + uuid.NewString(),
			Date:       date,
			Customer:   strings.TrimSpace(input.Customer),
			TotalPrice: total,
			AccountID:  ownerID,
		})
		if err != nil {
			return err
		}

		for _, line := range lines {
			if err := tx.InsertSummary(ctx, created.ID, line.ProductID, line.Quantity); err != nil {
				return err
			}
			left, err := tx.DecrementStock(ctx, line.ProductID, line.Quantity)
			if err != nil {
				if errors.Is(err, errStockChanged) {
					return insufficientStock(line.Name)
				}
				return err
			}
			remaining[line.ProductID] = left
		}
		created.Lines = lines
		return nil
	})
	if err != nil {
		s.rejected(rejectReason(err))
		return Transaction{}, err
	}

	s.afterCreate(ctx, ownerID, created, touched, remaining)
	return created, nil
}

func (s *Service) afterCreate(ctx context.Context, ownerID int64, created Transaction, touched map[int64]LockedProduct, remaining map[int64]int) {
	s.recordAudit(ctx, ownerID, "transaction.create", created)
	s.invalidate(ctx, ownerID)
	if s.metrics != nil {
		s.metrics.TransactionCreated(len(created.Lines), created.TotalPrice.InexactFloat64())
	}
	if s.alerts == nil || s.threshold <= 0 {
		return
	}
	ids := make([]int64, 0, len(remaining))
	for id := range remaining {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		left := remaining[id]
		if left >= s.threshold {
			continue
		}
		p := touched[id]
		alert := LowStockAlert{
			ProductID:   p.ID,
			ProductCode: p.ProductCode,
			Name:        p.Name,
			AccountID:   p.AccountID,
			Remaining:   left,
			Threshold:   s.threshold,
			InvoiceNo:   created.InvoiceNo,
		}
		if err := s.alerts.EnqueueLowStock(ctx, alert); err != nil {
			s.logger.Warn("enqueue low stock alert", slog.Any("error", err), slog.Int64("product_id", id))
		}
	}
}

// Delete soft deletes a transaction and returns it as it was before removal.
// Stock sold by the transaction is not returned to the products.
func (s *Service) Delete(ctx context.Context, ownerID, id int64) (Transaction, error) {
	if id <= 0 {
		return Transaction{}, ErrTransactionNotFound
	}
	var rec Transaction
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		var err error
		rec, err = tx.GetForUpdate(ctx, ownerID, id)
		if err != nil {
			return err
		}
		at := s.now().UTC()
		if err := tx.SoftDelete(ctx, rec.ID, at); err != nil {
			return fmt.Errorf("ledger: soft delete: %w", err)
		}
		rec.DeletedAt = &at
		return nil
	})
	if err != nil {
		return Transaction{}, err
	}

	s.recordAudit(ctx, ownerID, "transaction.delete", rec)
	s.invalidate(ctx, ownerID)
	if s.metrics != nil {
		s.metrics.TransactionDeleted()
	}
	return rec, nil
}

// Summarize returns the summary report of ownerID's live transactions.
func (s *Service) Summarize(ctx context.Context, ownerID int64) ([]SummaryEntry, error) {
	loader := func(ctx context.Context) ([]SummaryEntry, error) {
		items, err := s.repo.ListByOwner(ctx, ownerID)
		if err != nil {
			return nil, err
		}
		return buildSummary(items), nil
	}
	if s.cache == nil {
		return loader(ctx)
	}
	entries, err := s.cache.Fetch(ctx, ownerID, loader)
	if errors.Is(err, ErrCacheUnavailable) {
		s.logger.Warn("summary cache bypassed", slog.Any("error", err))
		return loader(ctx)
	}
	return entries, err
}

func buildSummary(items []Transaction) []SummaryEntry {
	out := make([]SummaryEntry, 0, len(items))
	for _, t := range items {
		products := make([]SummaryProduct, 0, len(t.Lines))
		for _, l := range t.Lines {
			products = append(products, SummaryProduct{
				ProductID: l.ProductID,
				Name:      l.Name,
				Price:     l.Price,
				Quantity:  l.Quantity,
			})
		}
		out = append(out, SummaryEntry{
			InvoiceNo:  t.InvoiceNo,
			Date:       t.Date,
			Customer:   t.Customer,
			TotalPrice: t.TotalPrice,
			Products:   products,
		})
	}
	return out
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, rec Transaction) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "transaction",
		EntityID: strconv.FormatInt(rec.ID, 10),
		Meta: map[string]any{
			"invoice_no":  rec.InvoiceNo,
			"customer":    rec.Customer,
			"total_price": rec.TotalPrice.String(),
			"lines":       len(rec.Lines),
		},
	})
	if err != nil {
		s.logger.Warn("audit "+action, slog.Any("error", err), slog.Int64("transaction_id", rec.ID))
	}
}

func (s *Service) invalidate(ctx context.Context, ownerID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, ownerID); err != nil {
		s.logger.Warn("invalidate summary cache", slog.Any("error", err), slog.Int64("account_id", ownerID))
	}
}

func (s *Service) rejected(reason string) {
	if s.metrics != nil {
		s.metrics.TransactionRejected(reason)
	}
}

func validateCreate(input CreateTransactionInput) error {
	if strings.TrimSpace(input.Customer) == "" || len(input.Lines) == 0 {
		return errInvalidTransaction
	}
	for _, line := range input.Lines {
		if strings.TrimSpace(line.ProductCode) == "" {
			return errProductCodeMissing
		}
		if line.Quantity <= 0 {
			return errInvalidQuantity
		}
	}
	return nil
}

// distinctCodes returns the requested product codes sorted, which is also the
// order rows are locked in.
func distinctCodes(lines []LineInput) []string {
	seen := make(map[string]struct{}, len(lines))
	out := make([]string, 0, len(lines))
	for _, l := range lines {
		code := strings.TrimSpace(l.ProductCode)
		if _, ok := seen[code]; ok {
			continue
		}
		seen[code] = struct{}{}
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}

func insufficientStock(name string) error {
	return shared.NewDomainError(shared.ErrInsufficientStock, "Insufficient stock for "+name)
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, shared.ErrProductNotFound):
		return "product_not_found"
	case errors.Is(err, shared.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, shared.ErrIdempotencyConflict):
		return "idempotency_conflict"
	default:
		return "error"
	}
}
