package ledger

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/suite"

	"github.com/odyssey-erp/odyssey-sales/internal/platform/db"
	"github.com/odyssey-erp/odyssey-sales/internal/shared"
)

// pgDSNEnv points the suite at a disposable PostgreSQL database.
const pgDSNEnv = "ODYSSEY_TEST_PG_DSN"

// RepositoryIntegrationSuite runs Service.Create against real row locks and
// the conditional stock decrement.
type RepositoryIntegrationSuite struct {
	suite.Suite
	ctx       context.Context
	pool      *pgxpool.Pool
	service   *Service
	accountID int64
}

func (s *RepositoryIntegrationSuite) SetupSuite() {
	dsn := os.Getenv(pgDSNEnv)
	if dsn == "" {
		s.T().Skipf("%s not set", pgDSNEnv)
	}
	s.ctx = context.Background()
	s.Require().NoError(db.Migrate(dsn))
	pool, err := db.New(s.ctx, dsn, db.PoolConfig{MaxConns: 16})
	s.Require().NoError(err)
	s.pool = pool
	s.service = NewService(NewRepository(pool), Deps{}, ServiceConfig{})
}

func (s *RepositoryIntegrationSuite) TearDownSuite() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *RepositoryIntegrationSuite) SetupTest() {
	email := "ledger-it-" + uuid.NewString() + "@example.com"
	err := s.pool.QueryRow(s.ctx,
		`INSERT INTO accounts (email, password_hash, name) VALUES ($1, 'x', 'Ledger IT') RETURNING id`,
		email).Scan(&s.accountID)
	s.Require().NoError(err)
}

func (s *RepositoryIntegrationSuite) TearDownTest() {
	// Products, transactions and summaries cascade from the account.
	_, err := s.pool.Exec(s.ctx, `DELETE FROM accounts WHERE id = $1`, s.accountID)
	s.Require().NoError(err)
}

func (s *RepositoryIntegrationSuite) insertProduct(stock int) string {
	code := "IT-" + uuid.NewString()[:8]
	_, err := s.pool.Exec(s.ctx,
		`INSERT INTO products (product_code, name, price, stock, account_id) VALUES ($1, $2, 1000, $3, $4)`,
		code, "Item "+code, stock, s.accountID)
	s.Require().NoError(err)
	return code
}

func (s *RepositoryIntegrationSuite) stockOf(code string) int {
	var stock int
	s.Require().NoError(s.pool.QueryRow(s.ctx, `SELECT stock FROM products WHERE product_code = $1`, code).Scan(&stock))
	return stock
}

func (s *RepositoryIntegrationSuite) TestConcurrentSalesOfLastUnit() {
	code := s.insertProduct(1)

	const buyers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  int
		other     []error
	)
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.service.Create(s.ctx, s.accountID, CreateTransactionInput{
				Customer: "Race",
				Lines:    []LineInput{{ProductCode: code, Quantity: 1}},
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, shared.ErrInsufficientStock):
				rejected++
			default:
				other = append(other, err)
			}
		}()
	}
	wg.Wait()

	s.Empty(other)
	s.Equal(1, succeeded)
	s.Equal(buyers-1, rejected)
	s.Equal(0, s.stockOf(code))

	var summaries int
	s.Require().NoError(s.pool.QueryRow(s.ctx,
		`SELECT COUNT(*) FROM summaries s JOIN transactions t ON t.id = s.transaction_id WHERE t.account_id = $1`,
		s.accountID).Scan(&summaries))
	s.Equal(1, summaries)
}

func (s *RepositoryIntegrationSuite) TestOpposingLineOrderDoesNotDeadlock() {
	first := s.insertProduct(50)
	second := s.insertProduct(50)

	const rounds = 10
	var wg sync.WaitGroup
	errs := make(chan error, 2*rounds)
	for i := 0; i < rounds; i++ {
		for _, lines := range [][]LineInput{
			{{ProductCode: first, Quantity: 1}, {ProductCode: second, Quantity: 1}},
			{{ProductCode: second, Quantity: 1}, {ProductCode: first, Quantity: 1}},
		} {
			wg.Add(1)
			go func(lines []LineInput) {
				defer wg.Done()
				_, err := s.service.Create(s.ctx, s.accountID, CreateTransactionInput{Customer: "Order", Lines: lines})
				errs <- err
			}(lines)
		}
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		s.NoError(err)
	}
	s.Equal(50-2*rounds, s.stockOf(first))
	s.Equal(50-2*rounds, s.stockOf(second))
}

func TestRepositoryIntegrationSuite(t *testing.T) {
	suite.Run(t, new(RepositoryIntegrationSuite))
}
