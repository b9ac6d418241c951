package service

import (
	"context"
	"testing"

	"construction-pos/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettings(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	rate, err := env.settings.TaxRate(ctx)
	require.NoError(t, err)
	assert.True(t, rate.Equal(dec("18")))

	err = env.settings.Set(ctx, model.SettingTaxRate, UpdateSettingRequest{Value: "120"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	require.NoError(t, env.settings.Set(ctx, model.SettingTaxRate, UpdateSettingRequest{Value: "19.25"}))
	rate, err = env.settings.TaxRate(ctx)
	require.NoError(t, err)
	assert.True(t, rate.Equal(dec("19.25")))

	require.NoError(t, env.settings.Set(ctx, model.SettingCurrencyMinorUnits, UpdateSettingRequest{Value: "2"}))
	symbol, units, err := env.settings.Currency(ctx)
	require.NoError(t, err)
	assert.Equal(t, "FCFA", symbol)
	assert.EqualValues(t, 2, units)

	// Reseeding keeps what the shop configured.
	require.NoError(t, env.settings.Seed(ctx))
	all, err := env.settings.GetAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, "19.25", all[model.SettingTaxRate])

	_, err = env.settings.Get(ctx, "no_such_key")
	var nf *ReferenceNotFoundError
	require.ErrorAs(t, err, &nf)
}

func TestSaleUsesConfiguredTaxRate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.product(t, "Glass pane", 5, 1)
	require.NoError(t, env.settings.Set(ctx, model.SettingTaxRate, UpdateSettingRequest{Value: "0"}))

	res, err := env.Sales.ProcessSale(ctx, cashier, cashSale(p.ID, "2", "2000"))
	require.NoError(t, err)
	assert.True(t, res.Sale.TaxAmount.IsZero())
	assert.True(t, res.Sale.TotalAmount.Equal(dec("2000")))

	req := cashSale(p.ID, "1", "2000")
	req.TaxRate = decPtr("10")
	res, err = env.Sales.ProcessSale(ctx, cashier, req)
	require.NoError(t, err)
	assert.True(t, res.Sale.TotalAmount.Equal(dec("1100")))
}
