// Package catalog manages the products each account sells.
package catalog

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/odyssey-erp/odyssey-sales/internal/shared"
)

// ErrDuplicateProductCode is returned when a product code is already taken by any account.
var ErrDuplicateProductCode = shared.NewDomainError(shared.ErrDuplicate, "Product code already exists")

// AuditRecorder persists audit entries.
type AuditRecorder interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service validates and stores products for their owning account.
type Service struct {
	repo   Repository
	audit  AuditRecorder
	logger *slog.Logger
}

// NewService constructs a Service. A nil logger falls back to slog.Default.
func NewService(repo Repository, audit AuditRecorder, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, logger: logger}
}

// List returns the products owned by ownerID ordered by id.
func (s *Service) List(ctx context.Context, ownerID int64) ([]Product, error) {
	items, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []Product{}
	}
	return items, nil
}

// Create validates in and stores a product owned by ownerID.
func (s *Service) Create(ctx context.Context, ownerID int64, in CreateProductInput) (Product, error) {
	if err := validate(in); err != nil {
		return Product{}, err
	}
	created, err := s.repo.Create(ctx, Product{
		ProductCode: strings.TrimSpace(in.ProductCode),
		Name:        strings.TrimSpace(in.Name),
		Price:       in.Price,
		Stock:       in.Stock,
		AccountID:   ownerID,
	})
	if err != nil {
		return Product{}, err
	}
	s.recordAudit(ctx, ownerID, created)
	return created, nil
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, p Product) {
	if s.audit == nil {
		return
	}
	err := s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   "product.create",
		Entity:   "product",
		EntityID: strconv.FormatInt(p.ID, 10),
		Meta: map[string]any{
			"product_code": p.ProductCode,
			"price":        p.Price.String(),
			"stock":        p.Stock,
		},
	})
	if err != nil {
		s.logger.Warn("audit product create", slog.Any("error", err), slog.Int64("product_id", p.ID))
	}
}
