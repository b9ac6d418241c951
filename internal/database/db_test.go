package database

import (
	"strings"
	"testing"

	"construction-pos/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConnectionMigratesSchema(t *testing.T) {
	db, err := NewConnection(Options{Driver: DriverSQLite, DSN: MemoryDSN(uuid.NewString())})
	require.NoError(t, err)

	for _, table := range []any{
		&model.Product{}, &model.Category{}, &model.Sale{}, &model.SaleItem{},
		&model.StockMovement{}, &model.Customer{}, &model.Setting{}, &model.User{},
	} {
		assert.True(t, db.Migrator().HasTable(table))
	}
}

func TestDecimalRoundTrip(t *testing.T) {
	db, err := NewConnection(Options{Driver: DriverSQLite, DSN: MemoryDSN(uuid.NewString())})
	require.NoError(t, err)

	p := model.Product{
		Name:          "Cement 50kg",
		Unit:          model.UnitBag,
		SellingPrice:  decimal.RequireFromString("5250.5"),
		StockQuantity: decimal.NewFromInt(12),
		IsActive:      true,
	}
	require.NoError(t, db.Create(&p).Error)

	var got model.Product
	require.NoError(t, db.First(&got, p.ID).Error)
	assert.Equal(t, "5250.5", got.SellingPrice.String())
	assert.Equal(t, "12", got.StockQuantity.String())
}

func TestSQLiteStoresDecimalsAsText(t *testing.T) {
	db, err := NewConnection(Options{Driver: DriverSQLite, DSN: MemoryDSN(uuid.NewString())})
	require.NoError(t, err)
	assert.Equal(t, "sqlite", db.Dialector.Name())

	columns, err := db.Migrator().ColumnTypes(&model.Product{})
	require.NoError(t, err)
	types := make(map[string]string, len(columns))
	for _, c := range columns {
		types[c.Name()] = strings.ToLower(c.DatabaseTypeName())
	}
	assert.Equal(t, "text", types["stock_quantity"])
	assert.Equal(t, "text", types["selling_price"])

	p := model.Product{Name: "Wire", Unit: model.UnitMeter, StockQuantity: decimal.RequireFromString("0.1"), IsActive: true}
	require.NoError(t, db.Create(&p).Error)
	next := p.StockQuantity.Add(decimal.RequireFromString("0.2"))
	require.NoError(t, db.Model(&p).Update("stock_quantity", next).Error)

	var got model.Product
	require.NoError(t, db.First(&got, p.ID).Error)
	assert.Equal(t, "0.3", got.StockQuantity.String())
}

func TestUnsupportedDriver(t *testing.T) {
	_, err := NewConnection(Options{Driver: "oracle", DSN: "x"})
	assert.Error(t, err)
}
