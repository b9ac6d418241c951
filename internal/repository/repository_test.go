package repository

import (
	"context"
	"errors"
	"testing"

	"construction-pos/internal/database"
	"construction-pos/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
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
	return db
}

func seedProduct(t *testing.T, db *gorm.DB, name string, stock int64) *model.Product {
	t.Helper()
	p := &model.Product{
		Name:          name,
		Unit:          model.UnitPiece,
		SellingPrice:  decimal.NewFromInt(1000),
		StockQuantity: decimal.NewFromInt(stock),
		MinStockLevel: decimal.NewFromInt(5),
		IsActive:      true,
	}
	require.NoError(t, db.Create(p).Error)
	return p
}

func TestDecimalColumnsKeepExactValues(t *testing.T) {
	db := newTestDB(t)
	products := NewProductRepository(db)
	customers := NewCustomerRepository(db)
	ctx := context.Background()
	p := seedProduct(t, db, "Wire", 0)

	stock := decimal.Zero
	for _, step := range []string{"0.1", "0.2"} {
		stock = stock.Add(decimal.RequireFromString(step))
		require.NoError(t, products.SetStock(ctx, p.ID, stock))
	}
	got, err := products.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "0.3", got.StockQuantity.String())

	c := &model.Customer{Name: "Site office", IsActive: true}
	require.NoError(t, customers.Create(ctx, c))
	require.NoError(t, customers.SetCredit(ctx, c.ID, decimal.RequireFromString("1234567.10000001")))
	gotCustomer, err := customers.FindByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "1234567.10000001", gotCustomer.CurrentCredit.String())
}

func TestListLowStockComparesDecimals(t *testing.T) {
	db := newTestDB(t)
	repo := NewProductRepository(db)
	ctx := context.Background()
	p := seedProduct(t, db, "Tape", 0)
	seedProduct(t, db, "Bolts", 50)
	empty := seedProduct(t, db, "Glue", 0)

	// 5.0001 is above the minimum of 5 and must not be reported.
	require.NoError(t, repo.SetStock(ctx, p.ID, decimal.RequireFromString("5.0001")))
	rows, err := repo.ListLowStock(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, empty.ID, rows[0].ID)

	require.NoError(t, repo.SetStock(ctx, p.ID, decimal.RequireFromString("4.9999")))
	rows, err = repo.ListLowStock(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, empty.ID, rows[0].ID, "emptiest first")
	assert.Equal(t, p.ID, rows[1].ID)

	n, err := repo.CountLowStock(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}

func TestLockByIDs(t *testing.T) {
	db := newTestDB(t)
	repo := NewProductRepository(db)
	tm := NewTransactionManager(db)
	a := seedProduct(t, db, "Sand", 10)
	b := seedProduct(t, db, "Gravel", 4)

	err := tm.RunInTx(context.Background(), func(txCtx context.Context) error {
		locked, err := repo.LockByIDs(txCtx, []uint{b.ID, a.ID, 9999})
		require.NoError(t, err)
		assert.Len(t, locked, 2)
		assert.Equal(t, "Gravel", locked[b.ID].Name)
		return nil
	})
	require.NoError(t, err)
}

func TestRunInTxRollsBackAndSkipsHooks(t *testing.T) {
	db := newTestDB(t)
	repo := NewProductRepository(db)
	tm := NewTransactionManager(db)
	p := seedProduct(t, db, "Tiles", 10)
	hookRan := false

	err := tm.RunInTx(context.Background(), func(txCtx context.Context) error {
		require.NoError(t, repo.SetStock(txCtx, p.ID, decimal.NewFromInt(1)))
		AfterCommit(txCtx, func() { hookRan = true })
		return errors.New("abort")
	})
	require.Error(t, err)
	assert.False(t, hookRan)

	got, err := repo.FindByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, "10", got.StockQuantity.String())
}

func TestRunInTxJoinsOuterTransaction(t *testing.T) {
	db := newTestDB(t)
	repo := NewProductRepository(db)
	tm := NewTransactionManager(db)
	p := seedProduct(t, db, "Paint", 10)
	var order []string

	err := tm.RunInTx(context.Background(), func(outer context.Context) error {
		err := tm.RunInTx(outer, func(inner context.Context) error {
			AfterCommit(inner, func() { order = append(order, "inner") })
			return repo.SetStock(inner, p.ID, decimal.NewFromInt(4))
		})
		require.NoError(t, err)
		assert.Empty(t, order, "hooks wait for the outermost commit")
		AfterCommit(outer, func() { order = append(order, "outer") })
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"inner", "outer"}, order)

	got, err := repo.FindByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, "4", got.StockQuantity.String())
}

func TestAfterCommitWithoutTxRunsImmediately(t *testing.T) {
	ran := false
	AfterCommit(context.Background(), func() { ran = true })
	assert.True(t, ran)
	assert.False(t, InTx(context.Background()))
}

func TestBarcodeUniqueness(t *testing.T) {
	db := newTestDB(t)
	repo := NewProductRepository(db)
	ctx := context.Background()
	code := "6001234567890"

	require.NoError(t, repo.Create(ctx, &model.Product{Name: "A", Unit: model.UnitBox, Barcode: &code, IsActive: true}))
	err := repo.Create(ctx, &model.Product{Name: "B", Unit: model.UnitBox, Barcode: &code, IsActive: true})
	require.Error(t, err)
	assert.True(t, IsDuplicateKey(err))

	// several products without a barcode are fine
	require.NoError(t, repo.Create(ctx, &model.Product{Name: "C", Unit: model.UnitBox, IsActive: true}))
	require.NoError(t, repo.Create(ctx, &model.Product{Name: "D", Unit: model.UnitBox, IsActive: true}))
}

func TestLastNumberWithPrefix(t *testing.T) {
	db := newTestDB(t)
	repo := NewSaleRepository(db)
	ctx := context.Background()

	last, err := repo.LastNumberWithPrefix(ctx, "POS20240501")
	require.NoError(t, err)
	assert.Empty(t, last)

	for _, n := range []string{"POS202405010002", "POS202405019999", "POS2024050110000", "POS202405020001"} {
		require.NoError(t, repo.Create(ctx, &model.Sale{
			SaleNumber:    n,
			CreatedBy:     "System",
			PaymentMethod: model.PaymentCash,
			PaymentStatus: model.PaymentStatusPaid,
		}))
	}

	last, err = repo.LastNumberWithPrefix(ctx, "POS20240501")
	require.NoError(t, err)
	assert.Equal(t, "POS2024050110000", last)
}

func TestSavepointUndoesOnlyItsOwnWrites(t *testing.T) {
	db := newTestDB(t)
	repo := NewProductRepository(db)
	tm := NewTransactionManager(db)
	p := seedProduct(t, db, "Sheets", 10)

	err := tm.RunInTx(context.Background(), func(txCtx context.Context) error {
		require.NoError(t, repo.SetStock(txCtx, p.ID, decimal.NewFromInt(4)))

		err := Savepoint(txCtx, db, func(sp *gorm.DB) error {
			require.NoError(t, sp.Model(&model.Product{}).Where("id = ?", p.ID).
				Update("stock_quantity", decimal.NewFromInt(1)).Error)
			return sp.Exec("SELECT * FROM no_such_table").Error
		})
		require.Error(t, err)

		got, err := repo.FindByID(txCtx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, "4", got.StockQuantity.String())
		return nil
	})
	require.NoError(t, err)

	got, err := repo.FindByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, "4", got.StockQuantity.String())
}

func TestFailedNumberLookupKeepsTransactionUsable(t *testing.T) {
	db := newTestDB(t)
	repo := NewSaleRepository(db)
	tm := NewTransactionManager(db)
	ctx := context.Background()

	failing := true
	require.NoError(t, db.Callback().Query().Before("gorm:query").Register("test:fail_number_lookup", func(tx *gorm.DB) {
		if failing && tx.Statement.Table == "sales" {
			_ = tx.AddError(errors.New("lookup failed"))
		}
	}))

	err := tm.RunInTx(ctx, func(txCtx context.Context) error {
		_, err := repo.LastNumberWithPrefix(txCtx, "POS20240501")
		require.Error(t, err)
		failing = false

		return repo.Create(txCtx, &model.Sale{
			SaleNumber:    "POS202405014242",
			CreatedBy:     "System",
			PaymentMethod: model.PaymentCash,
			PaymentStatus: model.PaymentStatusPaid,
		})
	})
	require.NoError(t, err)

	sale, err := repo.FindByNumber(ctx, "POS202405014242")
	require.NoError(t, err)
	assert.Equal(t, "System", sale.CreatedBy)
}

func TestLastNumberQueryLocksOnMySQL(t *testing.T) {
	mysqlDB, err := gorm.Open(mysql.New(mysql.Config{
		DSN:                       "pos:pos@tcp(127.0.0.1:3306)/pos?parseTime=true",
		SkipInitializeWithVersion: true,
	}), &gorm.Config{DisableAutomaticPing: true, Logger: logger.Discard})
	require.NoError(t, err)

	lookup := func(tx *gorm.DB) *gorm.DB {
		var numbers []string
		return lastNumberQuery(tx, "POS20240501").Pluck("sale_number", &numbers)
	}

	stmt := mysqlDB.ToSQL(lookup)
	assert.Contains(t, stmt, "POS20240501%")
	assert.Contains(t, stmt, "FOR UPDATE")

	assert.NotContains(t, newTestDB(t).ToSQL(lookup), "FOR UPDATE")
}

func TestLedgerBalances(t *testing.T) {
	db := newTestDB(t)
	movements := NewStockMovementRepository(db)
	ctx := context.Background()
	p := seedProduct(t, db, "Cement", 7)
	q := seedProduct(t, db, "Lime", 0)

	for _, m := range []model.StockMovement{
		{ProductID: p.ID, MovementType: model.MovementIn, Quantity: decimal.NewFromInt(10), StockBefore: decimal.Zero, StockAfter: decimal.NewFromInt(10), ReferenceType: model.ReferencePurchase, CreatedBy: "t"},
		{ProductID: p.ID, MovementType: model.MovementOut, Quantity: decimal.NewFromInt(2), StockBefore: decimal.NewFromInt(10), StockAfter: decimal.NewFromInt(8), ReferenceType: model.ReferenceSale, CreatedBy: "t"},
		{ProductID: p.ID, MovementType: model.MovementAdjustment, Quantity: decimal.NewFromInt(1), StockBefore: decimal.NewFromInt(8), StockAfter: decimal.NewFromInt(7), ReferenceType: model.ReferenceAdjustment, CreatedBy: "t"},
	} {
		require.NoError(t, movements.Create(ctx, &m))
	}

	net, err := movements.NetByProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "7", net.String())

	balances, err := movements.Balances(ctx)
	require.NoError(t, err)
	require.Len(t, balances, 2)
	assert.Equal(t, p.ID, balances[0].ProductID)
	assert.True(t, balances[0].LedgerNet.Equal(balances[0].StockQuantity))
	assert.Equal(t, q.ID, balances[1].ProductID)
	assert.True(t, balances[1].LedgerNet.IsZero())

	rows, total, err := movements.List(ctx, MovementFilter{ProductID: &p.ID, MovementType: model.MovementOut, Limit: 10})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, rows, 1)
	assert.Equal(t, "Cement", rows[0].ProductName)
}

func TestSettingSeedKeepsExistingValues(t *testing.T) {
	db := newTestDB(t)
	repo := NewSettingRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Upsert(ctx, &model.Setting{Key: model.SettingTaxRate, Value: "5"}))
	require.NoError(t, repo.SeedDefaults(ctx, model.DefaultSettings))

	got, err := repo.Get(ctx, model.SettingTaxRate)
	require.NoError(t, err)
	assert.Equal(t, "5", got.Value)

	all, err := repo.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, len(model.DefaultSettings))
}
