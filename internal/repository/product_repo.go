package repository

import (
	"context"
	"fmt"
	"sort"

	"construction-pos/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProductRow is a product flattened with its category name.
type ProductRow struct {
	model.Product
	CategoryName string `json:"category_name"`
}

type ProductFilter struct {
	Search     string
	CategoryID *uint
	ActiveOnly bool
	Offset     int
	Limit      int
}

type ProductRepository interface {
	Create(ctx context.Context, product *model.Product) error
	Update(ctx context.Context, product *model.Product) error
	FindByID(ctx context.Context, id uint) (*model.Product, error)
	FindByBarcode(ctx context.Context, barcode string) (*model.Product, error)
	FindRowByID(ctx context.Context, id uint) (*ProductRow, error)
	List(ctx context.Context, filter ProductFilter) ([]ProductRow, int64, error)
	FindByIDForUpdate(ctx context.Context, id uint) (*model.Product, error)
	LockByIDs(ctx context.Context, ids []uint) (map[uint]*model.Product, error)
	SetStock(ctx context.Context, id uint, qty decimal.Decimal) error
	SetActive(ctx context.Context, id uint, active bool) error
	CountByCategory(ctx context.Context, categoryID uint) (int64, error)
	CountActive(ctx context.Context) (int64, error)
	ListActive(ctx context.Context, categoryID *uint) ([]ProductRow, error)
	ListLowStock(ctx context.Context) ([]ProductRow, error)
	CountLowStock(ctx context.Context) (int64, error)
}

type productRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) Create(ctx context.Context, product *model.Product) error {
	return GetDB(ctx, r.db).Create(product).Error
}

// Update writes catalog fields only. Stock changes go through the movement paths.
func (r *productRepository) Update(ctx context.Context, product *model.Product) error {
	return GetDB(ctx, r.db).Model(product).
		Select("name", "barcode", "category_id", "unit", "cost_price", "selling_price", "min_stock_level", "is_active").
		Updates(product).Error
}

func (r *productRepository) FindByID(ctx context.Context, id uint) (*model.Product, error) {
	var product model.Product
	if err := GetDB(ctx, r.db).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepository) FindByBarcode(ctx context.Context, barcode string) (*model.Product, error) {
	var product model.Product
	if err := GetDB(ctx, r.db).Where("barcode = ?", barcode).First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *productRepository) rows(ctx context.Context) *gorm.DB {
	return GetDB(ctx, r.db).Model(&model.Product{}).
		Select("products.*, COALESCE(categories.name, '') AS category_name").
		Joins("LEFT JOIN categories ON categories.id = products.category_id")
}

func (r *productRepository) FindRowByID(ctx context.Context, id uint) (*ProductRow, error) {
	var rows []ProductRow
	if err := r.rows(ctx).Where("products.id = ?", id).Limit(1).Scan(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &rows[0], nil
}

func (r *productRepository) List(ctx context.Context, filter ProductFilter) ([]ProductRow, int64, error) {
	var rows []ProductRow
	var total int64

	db := GetDB(ctx, r.db).Model(&model.Product{})
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		db = db.Where("LOWER(products.name) LIKE LOWER(?) OR products.barcode = ?", like, filter.Search)
	}
	if filter.CategoryID != nil {
		db = db.Where("products.category_id = ?", *filter.CategoryID)
	}
	if filter.ActiveOnly {
		db = db.Where("products.is_active = ?", true)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Select("products.*, COALESCE(categories.name, '') AS category_name").
		Joins("LEFT JOIN categories ON categories.id = products.category_id").
		Order("products.name asc").Offset(filter.Offset).Limit(filter.Limit).
		Scan(&rows).Error; err != nil {
		return nil, 0, err
	}

	return rows, total, nil
}

func (r *productRepository) FindByIDForUpdate(ctx context.Context, id uint) (*model.Product, error) {
	var product model.Product
	if err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// LockByIDs row-locks the given products in ascending id order so two carts
// touching the same products always queue instead of deadlocking.
func (r *productRepository) LockByIDs(ctx context.Context, ids []uint) (map[uint]*model.Product, error) {
	sorted := append([]uint(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var products []model.Product
	if err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", sorted).Order("id asc").Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to lock products: %w", err)
	}

	out := make(map[uint]*model.Product, len(products))
	for i := range products {
		out[products[i].ID] = &products[i]
	}
	return out, nil
}

// SetStock writes a quantity the caller computed on a locked row. Stock
// arithmetic stays in Go so no store ever rounds a fractional quantity.
func (r *productRepository) SetStock(ctx context.Context, id uint, qty decimal.Decimal) error {
	return GetDB(ctx, r.db).Model(&model.Product{}).Where("id = ?", id).Update("stock_quantity", qty).Error
}

func (r *productRepository) SetActive(ctx context.Context, id uint, active bool) error {
	return GetDB(ctx, r.db).Model(&model.Product{}).Where("id = ?", id).Update("is_active", active).Error
}

func (r *productRepository) CountByCategory(ctx context.Context, categoryID uint) (int64, error) {
	var n int64
	err := GetDB(ctx, r.db).Model(&model.Product{}).Where("category_id = ?", categoryID).Count(&n).Error
	return n, err
}

func (r *productRepository) CountActive(ctx context.Context) (int64, error) {
	var n int64
	err := GetDB(ctx, r.db).Model(&model.Product{}).Where("is_active = ?", true).Count(&n).Error
	return n, err
}

func (r *productRepository) ListActive(ctx context.Context, categoryID *uint) ([]ProductRow, error) {
	var rows []ProductRow
	db := r.rows(ctx).Where("products.is_active = ?", true)
	if categoryID != nil {
		db = db.Where("products.category_id = ?", *categoryID)
	}
	if err := db.Order("products.name asc").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to query active products: %w", err)
	}
	return rows, nil
}

// ListLowStock returns active products at or below their minimum level,
// emptiest first. Quantities are compared as decimals, not in SQL.
func (r *productRepository) ListLowStock(ctx context.Context) ([]ProductRow, error) {
	rows, err := r.ListActive(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query low stock products: %w", err)
	}

	low := rows[:0]
	for _, row := range rows {
		if row.StockQuantity.LessThanOrEqual(row.MinStockLevel) {
			low = append(low, row)
		}
	}
	sort.SliceStable(low, func(i, j int) bool {
		return low[i].StockQuantity.LessThan(low[j].StockQuantity)
	})
	return low, nil
}

func (r *productRepository) CountLowStock(ctx context.Context) (int64, error) {
	rows, err := r.ListLowStock(ctx)
	if err != nil {
		return 0, err
	}
	return int64(len(rows)), nil
}
