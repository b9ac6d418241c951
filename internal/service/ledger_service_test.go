package service

import (
	"context"
	"testing"
	"time"

	"construction-pos/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLedgerExplainsStockAfterMixedActivity(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	a := env.product(t, "Cement", 20, 5)
	b := env.product(t, "Sand", 8, 2)

	_, err := env.Sales.ProcessSale(ctx, cashier, SaleRequest{
		PaymentMethod: model.PaymentCard,
		Items: []SaleItemRequest{
			{ProductID: a.ID, Quantity: dec("4")},
			{ProductID: b.ID, Quantity: dec("1.5")},
			{ProductID: a.ID, Quantity: dec("1")},
		},
	})
	require.NoError(t, err)
	_, err = env.Stock.ApplyMovement(ctx, storekeeper, MovementRequest{ProductID: a.ID, MovementType: model.MovementIn, Quantity: dec("10")})
	require.NoError(t, err)
	_, err = env.Stock.ApplyMovement(ctx, storekeeper, MovementRequest{ProductID: b.ID, MovementType: model.MovementAdjustment, TargetQuantity: decPtr("3"), Reason: "spillage"})
	require.NoError(t, err)
	_, err = env.Stock.ApplyMovement(ctx, storekeeper, MovementRequest{ProductID: b.ID, MovementType: model.MovementAdjustment, TargetQuantity: decPtr("9.25"), Reason: "recount"})
	require.NoError(t, err)

	drifted, err := env.Ledger.ReconcileAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, drifted)

	rec, err := env.Ledger.Reconcile(ctx, a.ID)
	require.NoError(t, err)
	assert.True(t, rec.InSync)
	assert.True(t, rec.StockQuantity.Equal(dec("25")), "stock %s", rec.StockQuantity)
	assert.True(t, rec.LedgerNet.Equal(dec("25")), "net %s", rec.LedgerNet)

	rec, err = env.Ledger.Reconcile(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, rec.InSync)
	assert.True(t, rec.StockQuantity.Equal(dec("9.25")))
}

func TestReconcileReportsDrift(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.product(t, "Rebar", 10, 2)

	// A write that bypassed the engines.
	require.NoError(t, env.db.Exec("UPDATE products SET stock_quantity = 13 WHERE id = ?", p.ID).Error)

	drifted, err := env.Ledger.ReconcileAll(ctx)
	require.NoError(t, err)
	require.Len(t, drifted, 1)
	assert.Equal(t, p.ID, drifted[0].ProductID)
	assert.True(t, drifted[0].Drift.Equal(dec("3")))
	assert.False(t, drifted[0].InSync)

	_, err = env.Ledger.Reconcile(ctx, 999)
	var nf *ReferenceNotFoundError
	require.ErrorAs(t, err, &nf)
}

func TestLowStockReport(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.product(t, "Plenty", 50, 5)
	low := env.product(t, "Low", 4, 5)
	critical := env.product(t, "Critical", 2, 5)
	out := env.product(t, "Out", 0, 5)

	items, err := env.Ledger.LowStockReport(ctx)
	require.NoError(t, err)
	require.Len(t, items, 3)

	byID := map[uint]LowStockItem{}
	for _, it := range items {
		byID[it.ProductID] = it
	}
	assert.Equal(t, model.StockLow, byID[low.ID].Status)
	assert.Equal(t, model.StockCritical, byID[critical.ID].Status)
	assert.Equal(t, model.StockOut, byID[out.ID].Status)
	assert.True(t, byID[critical.ID].Shortage.Equal(dec("3")))
	assert.Equal(t, out.ID, items[0].ProductID, "lowest stock first")
}

func TestListMovementsFilters(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.product(t, "Tiles", 30, 5)
	_, err := env.Sales.ProcessSale(ctx, cashier, cashSale(p.ID, "2", "5000"))
	require.NoError(t, err)

	rows, total, err := env.Ledger.ListMovements(ctx, MovementQuery{ReferenceType: model.ReferenceSale})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, "Tiles", rows[0].ProductName)
	assert.Contains(t, rows[0].Notes, "Sale #POS")

	from := time.Now().Add(time.Hour)
	to := from.Add(-2 * time.Hour)
	_, _, err = env.Ledger.ListMovements(ctx, MovementQuery{From: &from, To: &to})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
}

func TestReconcileDriftIsExact(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.product(t, "Nails (kg)", 10, 2)

	// Below the fourth decimal place, still a drift.
	require.NoError(t, env.db.Exec("UPDATE products SET stock_quantity = ? WHERE id = ?", "10.00001", p.ID).Error)

	rec, err := env.Ledger.Reconcile(ctx, p.ID)
	require.NoError(t, err)
	assert.False(t, rec.InSync)
	assert.True(t, rec.Drift.Equal(dec("0.00001")), "drift %s", rec.Drift)
}
