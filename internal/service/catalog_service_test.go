package service

import (
	"context"
	"testing"

	"construction-pos/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateProductWithOpeningStock(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	cat, err := env.Catalog.CreateCategory(ctx, CategoryRequest{Name: "Cement"})
	require.NoError(t, err)

	p, err := env.Catalog.CreateProduct(ctx, Actor{Username: "admin"}, CreateProductRequest{
		ProductRequest: ProductRequest{
			Name:          "Portland 42.5",
			Barcode:       "6001234567890",
			CategoryID:    &cat.ID,
			Unit:          model.UnitBag,
			SellingPrice:  dec("5500"),
			MinStockLevel: dec("20"),
		},
		InitialStock: dec("40"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Cement", p.CategoryName)
	assert.True(t, p.StockQuantity.Equal(dec("40")))
	assert.Equal(t, model.StockOK, p.StockStatus)

	rows, total, err := env.Ledger.ListMovements(ctx, MovementQuery{ProductID: &p.ID})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	assert.Equal(t, model.MovementIn, rows[0].MovementType)
	assert.Equal(t, model.ReferencePurchase, rows[0].ReferenceType)
	assert.Equal(t, "Opening stock", rows[0].Notes)

	byCode, err := env.Catalog.FindByBarcode(ctx, " 6001234567890 ")
	require.NoError(t, err)
	assert.Equal(t, p.ID, byCode.ID)
}

func TestCreateProductRejectsDuplicateBarcode(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	req := CreateProductRequest{ProductRequest: ProductRequest{Name: "Nail 2in", Barcode: "111", Unit: model.UnitKg}}

	_, err := env.Catalog.CreateProduct(ctx, Actor{}, req)
	require.NoError(t, err)

	req.Name = "Nail 3in"
	req.InitialStock = dec("5")
	_, err = env.Catalog.CreateProduct(ctx, Actor{}, req)
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "barcode", conflict.Field)
	assert.EqualValues(t, 1, env.count(t, &model.Product{}, ""))
	assert.EqualValues(t, 0, env.count(t, &model.StockMovement{}, ""))
}

func TestCreateProductValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.Catalog.CreateProduct(ctx, Actor{}, CreateProductRequest{ProductRequest: ProductRequest{Name: "Thing", Unit: "crate"}})
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "unit", verr.Field)

	missing := uint(77)
	_, err = env.Catalog.CreateProduct(ctx, Actor{}, CreateProductRequest{ProductRequest: ProductRequest{Name: "Thing", Unit: model.UnitBox, CategoryID: &missing}})
	var nf *ReferenceNotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "category", nf.Entity)

	_, err = env.Catalog.CreateProduct(ctx, Actor{}, CreateProductRequest{ProductRequest: ProductRequest{Name: " ", Unit: model.UnitBox}})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "name", verr.Field)
}

func TestUpdateProductLeavesStockAlone(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	p := env.product(t, "Brick", 100, 10)

	inactive := false
	updated, err := env.Catalog.UpdateProduct(ctx, p.ID, UpdateProductRequest{
		ProductRequest: ProductRequest{Name: "Red brick", Unit: model.UnitPiece, SellingPrice: dec("150")},
		IsActive:       &inactive,
	})
	require.NoError(t, err)
	assert.Equal(t, "Red brick", updated.Name)
	assert.False(t, updated.IsActive)
	assert.True(t, updated.SellingPrice.Equal(dec("150")))
	assert.True(t, updated.StockQuantity.Equal(dec("100")))
}

func TestDeleteCategoryInUse(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	cat, err := env.Catalog.CreateCategory(ctx, CategoryRequest{Name: "Paint"})
	require.NoError(t, err)
	_, err = env.Catalog.CreateProduct(ctx, Actor{}, CreateProductRequest{ProductRequest: ProductRequest{Name: "Gloss", Unit: model.UnitLiter, CategoryID: &cat.ID}})
	require.NoError(t, err)

	err = env.Catalog.DeleteCategory(ctx, cat.ID)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)

	_, err = env.Catalog.CreateCategory(ctx, CategoryRequest{Name: "Paint"})
	var conflict *ConflictError
	require.ErrorAs(t, err, &conflict)

	empty, err := env.Catalog.CreateCategory(ctx, CategoryRequest{Name: "Tools"})
	require.NoError(t, err)
	require.NoError(t, env.Catalog.DeleteCategory(ctx, empty.ID))

	rows, err := env.Catalog.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.EqualValues(t, 1, rows[0].ProductCount)
}

func TestListProducts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.product(t, "Cement grey", 1, 1)
	env.product(t, "Cement white", 1, 1)
	hidden := env.product(t, "Cement old", 1, 1)
	env.product(t, "Sand", 1, 1)
	require.NoError(t, env.Catalog.DeactivateProduct(ctx, hidden.ID))

	rows, total, err := env.Catalog.ListProducts(ctx, ProductQuery{Search: "cement", ActiveOnly: true})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, rows, 2)

	_, total, err = env.Catalog.ListProducts(ctx, ProductQuery{Search: "cement"})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
}
