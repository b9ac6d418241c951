package repository

import (
	"context"
	"fmt"
	"time"

	"construction-pos/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// MovementRow is a stock card line with the product name resolved.
type MovementRow struct {
	model.StockMovement
	ProductName string `json:"product_name"`
}

type MovementFilter struct {
	ProductID     *uint
	MovementType  model.MovementType
	ReferenceType model.ReferenceType
	ReferenceID   *uint
	From          *time.Time
	To            *time.Time
	Offset        int
	Limit         int
}

// LedgerBalance compares a product's cached stock with the net of its movements.
type LedgerBalance struct {
	ProductID     uint
	ProductName   string
	StockQuantity decimal.Decimal
	LedgerNet     decimal.Decimal
}

type StockMovementRepository interface {
	Create(ctx context.Context, movement *model.StockMovement) error
	List(ctx context.Context, filter MovementFilter) ([]MovementRow, int64, error)
	NetByProduct(ctx context.Context, productID uint) (decimal.Decimal, error)
	Balances(ctx context.Context) ([]LedgerBalance, error)
}

type stockMovementRepository struct {
	db *gorm.DB
}

func NewStockMovementRepository(db *gorm.DB) StockMovementRepository {
	return &stockMovementRepository{db: db}
}

func (r *stockMovementRepository) Create(ctx context.Context, movement *model.StockMovement) error {
	return GetDB(ctx, r.db).Create(movement).Error
}

func (r *stockMovementRepository) List(ctx context.Context, filter MovementFilter) ([]MovementRow, int64, error) {
	var rows []MovementRow
	var total int64

	db := GetDB(ctx, r.db).Model(&model.StockMovement{})
	if filter.ProductID != nil {
		db = db.Where("stock_movements.product_id = ?", *filter.ProductID)
	}
	if filter.MovementType != "" {
		db = db.Where("stock_movements.movement_type = ?", filter.MovementType)
	}
	if filter.ReferenceType != "" {
		db = db.Where("stock_movements.reference_type = ?", filter.ReferenceType)
	}
	if filter.ReferenceID != nil {
		db = db.Where("stock_movements.reference_id = ?", *filter.ReferenceID)
	}
	if filter.From != nil {
		db = db.Where("stock_movements.created_at >= ?", filter.From.UTC())
	}
	if filter.To != nil {
		db = db.Where("stock_movements.created_at < ?", filter.To.UTC())
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Select("stock_movements.*, products.name AS product_name").
		Joins("JOIN products ON products.id = stock_movements.product_id").
		Order("stock_movements.created_at desc, stock_movements.id desc").
		Offset(filter.Offset).Limit(filter.Limit).
		Scan(&rows).Error; err != nil {
		return nil, 0, err
	}

	return rows, total, nil
}

// ledgerColumns are the fields SignedDelta needs.
var ledgerColumns = []string{"product_id", "movement_type", "quantity", "stock_before", "stock_after"}

func (r *stockMovementRepository) NetByProduct(ctx context.Context, productID uint) (decimal.Decimal, error) {
	var movements []model.StockMovement
	if err := GetDB(ctx, r.db).Select(ledgerColumns).
		Where("product_id = ?", productID).
		Find(&movements).Error; err != nil {
		return decimal.Zero, fmt.Errorf("failed to load movements: %w", err)
	}

	net := decimal.Zero
	for _, m := range movements {
		net = net.Add(m.SignedDelta())
	}
	return net, nil
}

// Balances nets every movement per product. Sums run on decimals in Go so the
// comparison with the cached quantity is exact on every store.
func (r *stockMovementRepository) Balances(ctx context.Context) ([]LedgerBalance, error) {
	var products []model.Product
	if err := GetDB(ctx, r.db).Select("id", "name", "stock_quantity").
		Order("id asc").Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to load products: %w", err)
	}

	var movements []model.StockMovement
	if err := GetDB(ctx, r.db).Select(ledgerColumns).Find(&movements).Error; err != nil {
		return nil, fmt.Errorf("failed to load movements: %w", err)
	}

	net := make(map[uint]decimal.Decimal, len(products))
	for _, m := range movements {
		net[m.ProductID] = net[m.ProductID].Add(m.SignedDelta())
	}

	balances := make([]LedgerBalance, 0, len(products))
	for _, p := range products {
		balances = append(balances, LedgerBalance{
			ProductID:     p.ID,
			ProductName:   p.Name,
			StockQuantity: p.StockQuantity,
			LedgerNet:     net[p.ID],
		})
	}
	return balances, nil
}
