package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"construction-pos/internal/database"
	"construction-pos/internal/events"
	"construction-pos/internal/logger"
	"construction-pos/internal/model"
	"construction-pos/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var errInjected = errors.New("injected failure")

// testEnv wires the real repositories over a private in-memory database.
type testEnv struct {
	db        *gorm.DB
	products  repository.ProductRepository
	sales     repository.SaleRepository
	movements repository.StockMovementRepository
	customers repository.CustomerRepository
	tx        repository.TransactionManager
	settings  SettingsService
	recorder  *eventRecorder

	Stock    StockService
	Sales    SaleService
	Catalog  CatalogService
	Ledger   LedgerService
	Customer CustomerService
}

type envConfig struct {
	movements repository.StockMovementRepository
	sales     repository.SaleRepository
	numbering []NumberingOption
}

type envOption func(*envConfig)

func withMovementRepo(r repository.StockMovementRepository) envOption {
	return func(c *envConfig) { c.movements = r }
}

func withSaleRepo(r repository.SaleRepository) envOption {
	return func(c *envConfig) { c.sales = r }
}

func withNumbering(opts ...NumberingOption) envOption {
	return func(c *envConfig) { c.numbering = opts }
}

func newTestEnv(t *testing.T, opts ...envOption) *testEnv {
	t.Helper()
	db, err := database.NewConnection(database.Options{
		Driver: database.DriverSQLite,
		DSN:    database.MemoryDSN(uuid.NewString()),
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	env := &testEnv{
		db:        db,
		products:  repository.NewProductRepository(db),
		sales:     repository.NewSaleRepository(db),
		movements: repository.NewStockMovementRepository(db),
		customers: repository.NewCustomerRepository(db),
		tx:        repository.NewTransactionManager(db),
		recorder:  &eventRecorder{},
	}
	cfg := envConfig{movements: env.movements, sales: env.sales}
	for _, opt := range opts {
		opt(&cfg)
	}

	log := logger.Discard()
	bus := events.NewBus()
	bus.Subscribe(env.recorder.record)

	env.settings = NewSettingsService(repository.NewSettingRepository(db))
	require.NoError(t, env.settings.Seed(context.Background()))

	numbering := NewNumberingService(cfg.sales, log, cfg.numbering...)
	env.Stock = NewStockService(env.products, cfg.movements, env.tx, bus, log)
	env.Sales = NewSaleService(env.products, cfg.sales, cfg.movements, env.customers, env.tx, numbering, env.settings, bus, log)
	env.Catalog = NewCatalogService(env.products, repository.NewCategoryRepository(db), env.Stock, env.tx, log)
	env.Ledger = NewLedgerService(env.products, env.movements)
	env.Customer = NewCustomerService(env.customers, "CM", log)
	return env
}

// product creates an active product whose opening stock is on the ledger.
func (e *testEnv) product(t *testing.T, name string, stock, minLevel int64) *ProductResponse {
	t.Helper()
	p, err := e.Catalog.CreateProduct(context.Background(), Actor{Username: "admin"}, CreateProductRequest{
		ProductRequest: ProductRequest{
			Name:          name,
			Unit:          model.UnitBag,
			CostPrice:     decimal.NewFromInt(700),
			SellingPrice:  decimal.NewFromInt(1000),
			MinStockLevel: decimal.NewFromInt(minLevel),
		},
		InitialStock: decimal.NewFromInt(stock),
	})
	require.NoError(t, err)
	return p
}

func (e *testEnv) stockOf(t *testing.T, id uint) decimal.Decimal {
	t.Helper()
	p, err := e.products.FindByID(context.Background(), id)
	require.NoError(t, err)
	return p.StockQuantity
}

func (e *testEnv) count(t *testing.T, table any, where string, args ...any) int64 {
	t.Helper()
	var n int64
	q := e.db.Model(table)
	if where != "" {
		q = q.Where(where, args...)
	}
	require.NoError(t, q.Count(&n).Error)
	return n
}

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func decPtr(v string) *decimal.Decimal {
	d := dec(v)
	return &d
}

func fixedClock(ts string) func() time.Time {
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		panic(err)
	}
	return func() time.Time { return t }
}

type eventRecorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *eventRecorder) record(e events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *eventRecorder) ofType(typ events.Type) []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []events.Event
	for _, e := range r.events {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

// failingMovementRepo fails the Nth Create call and delegates everything else.
type failingMovementRepo struct {
	repository.StockMovementRepository
	failOn int
	calls  int
}

func (r *failingMovementRepo) Create(ctx context.Context, m *model.StockMovement) error {
	r.calls++
	if r.calls == r.failOn {
		return errInjected
	}
	return r.StockMovementRepository.Create(ctx, m)
}

// brokenSequenceRepo makes the sale number lookup fail.
type brokenSequenceRepo struct {
	repository.SaleRepository
}

func (r *brokenSequenceRepo) LastNumberWithPrefix(ctx context.Context, prefix string) (string, error) {
	return "", errInjected
}
