package catalog

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-sales/internal/shared"
	_ "github.com/odyssey-erp/odyssey-sales/testing"
)

type memoryRepo struct {
	mu     sync.Mutex
	items  []Product
	nextID int64
	err    error
}

func (m *memoryRepo) ListByOwner(ctx context.Context, ownerID int64) ([]Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var out []Product
	for _, p := range m.items {
		if p.AccountID == ownerID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memoryRepo) Create(ctx context.Context, product Product) (Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return Product{}, m.err
	}
	for _, p := range m.items {
		if p.ProductCode == product.ProductCode {
			return Product{}, ErrDuplicateProductCode
		}
	}
	m.nextID++
	product.ID = m.nextID
	product.CreatedAt = time.Now()
	m.items = append(m.items, product)
	return product, nil
}

type auditStub struct {
	logs []shared.AuditLog
}

func (a *auditStub) Record(ctx context.Context, log shared.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

func TestCreateProduct(t *testing.T) {
	repo := &memoryRepo{}
	audit := &auditStub{}
	svc := NewService(repo, audit, nil)

	p, err := svc.Create(context.Background(), 1, CreateProductInput{ProductCode: " P1 ", Name: "Pen", Price: decimal.NewFromInt(100), Stock: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), p.ID)
	assert.Equal(t, "P1", p.ProductCode)
	assert.Equal(t, int64(1), p.AccountID)

	require.Len(t, audit.logs, 1)
	assert.Equal(t, "product.create", audit.logs[0].Action)
	assert.Equal(t, "1", audit.logs[0].EntityID)
}

func TestCreateProductValidation(t *testing.T) {
	svc := NewService(&memoryRepo{}, nil, nil)
	ctx := context.Background()

	cases := map[string]struct {
		in      CreateProductInput
		message string
	}{
		"missing code":   {CreateProductInput{Name: "Pen", Price: decimal.NewFromInt(1), Stock: 1}, "All fields are required"},
		"missing name":   {CreateProductInput{ProductCode: "P", Price: decimal.NewFromInt(1), Stock: 1}, "All fields are required"},
		"zero price":     {CreateProductInput{ProductCode: "P", Name: "Pen", Stock: 1}, "All fields are required"},
		"zero stock":     {CreateProductInput{ProductCode: "P", Name: "Pen", Price: decimal.NewFromInt(1)}, "All fields are required"},
		"negative price": {CreateProductInput{ProductCode: "P", Name: "Pen", Price: decimal.NewFromInt(-1), Stock: 1}, "Price must not be negative"},
		"negative stock": {CreateProductInput{ProductCode: "P", Name: "Pen", Price: decimal.NewFromInt(1), Stock: -1}, "Stock must not be negative"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Create(ctx, 1, tc.in)
			require.ErrorIs(t, err, shared.ErrValidation)
			assert.Equal(t, tc.message, shared.UserSafeMessage(err))
		})
	}
}

func TestCreateProductDuplicateCodeAcrossOwners(t *testing.T) {
	svc := NewService(&memoryRepo{}, nil, nil)
	ctx := context.Background()
	in := CreateProductInput{ProductCode: "P1", Name: "Pen", Price: decimal.NewFromInt(100), Stock: 10}

	_, err := svc.Create(ctx, 1, in)
	require.NoError(t, err)
	_, err = svc.Create(ctx, 2, in)
	require.ErrorIs(t, err, shared.ErrDuplicate)
}

func TestListScopedToOwner(t *testing.T) {
	repo := &memoryRepo{}
	svc := NewService(repo, nil, nil)
	ctx := context.Background()
	_, err := svc.Create(ctx, 1, CreateProductInput{ProductCode: "A", Name: "A", Price: decimal.NewFromInt(1), Stock: 1})
	require.NoError(t, err)
	_, err = svc.Create(ctx, 2, CreateProductInput{ProductCode: "B", Name: "B", Price: decimal.NewFromInt(1), Stock: 1})
	require.NoError(t, err)

	items, err := svc.List(ctx, 1)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "A", items[0].ProductCode)

	empty, err := svc.List(ctx, 3)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestListPropagatesStoreErrors(t *testing.T) {
	boom := errors.New("connection reset")
	svc := NewService(&memoryRepo{err: boom}, nil, nil)

	_, err := svc.List(context.Background(), 1)
	require.ErrorIs(t, err, boom)
}
