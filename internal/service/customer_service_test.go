package service

import (
	"context"
	"testing"

	"construction-pos/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizePhone(t *testing.T) {
	cases := []struct {
		raw, region, want string
		ok                bool
	}{
		{"", "CM", "", true},
		{"+33 6 12 34 56 78", "CM", "+33612345678", true},
		{"06 12 34 56 78", "FR", "+33612345678", true},
		{"12", "FR", "", false},
		{"not a phone", "CM", "", false},
	}
	for _, tc := range cases {
		got, err := normalizePhone(tc.raw, tc.region)
		if !tc.ok {
			var verr *ValidationError
			assert.ErrorAs(t, err, &verr, tc.raw)
			continue
		}
		require.NoError(t, err, tc.raw)
		assert.Equal(t, tc.want, got)
	}
}

func TestCustomerLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := NewCustomerService(env.customers, "fr", logger.Discard())

	c, err := svc.Create(ctx, CustomerRequest{Name: " Atlas Builders ", Phone: "06 12 34 56 78", Email: "ops@atlas.example", CreditLimit: dec("50000")})
	require.NoError(t, err)
	assert.Equal(t, "Atlas Builders", c.Name)
	assert.Equal(t, "+33612345678", c.Phone)
	assert.True(t, c.IsActive)

	_, err = svc.Create(ctx, CustomerRequest{Name: "Bad mail", Email: "nope"})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "email", verr.Field)

	updated, err := svc.Update(ctx, c.ID, CustomerRequest{Name: "Atlas Builders SARL", CreditLimit: dec("75000")})
	require.NoError(t, err)
	assert.True(t, updated.CreditLimit.Equal(dec("75000")))
	assert.Empty(t, updated.Phone)

	list, total, err := svc.List(ctx, "atlas", 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, "Atlas Builders SARL", list[0].Name)

	require.NoError(t, svc.Deactivate(ctx, c.ID))
	got, err := svc.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	var nf *ReferenceNotFoundError
	_, err = svc.Get(ctx, 9999)
	require.ErrorAs(t, err, &nf)
}

func TestInactiveCustomerCannotBuy(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.product(t, "Lime", 10, 1)
	c, err := env.Customer.Create(ctx, CustomerRequest{Name: "Gone Ltd"})
	require.NoError(t, err)
	require.NoError(t, env.Customer.Deactivate(ctx, c.ID))

	req := cashSale(p.ID, "1", "5000")
	req.CustomerID = &c.ID
	_, err = env.Sales.ProcessSale(ctx, cashier, req)
	var nf *ReferenceNotFoundError
	require.ErrorAs(t, err, &nf)
	assert.True(t, nf.Inactive)
	assert.Equal(t, "customer", nf.Entity)
}
