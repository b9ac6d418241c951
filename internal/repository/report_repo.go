package repository

import (
	"context"
	"fmt"
	"sort"
	"time"

	"construction-pos/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SaleTotals sums committed sales in a half-open time range.
type SaleTotals struct {
	SaleCount   int64
	Subtotal    decimal.Decimal
	TaxAmount   decimal.Decimal
	Discount    decimal.Decimal
	TotalAmount decimal.Decimal
}

type ReportRepository interface {
	SaleTotals(ctx context.Context, from, to *time.Time) (SaleTotals, error)
	TotalsByPaymentMethod(ctx context.Context, from, to time.Time) ([]model.PaymentBreakdown, error)
	TopProducts(ctx context.Context, from, to time.Time, limit int) ([]model.ProductRanking, error)
	InventoryValuation(ctx context.Context, categoryID *uint) (*model.InventoryValuation, error)
}

type reportRepository struct {
	db *gorm.DB
}

func NewReportRepository(db *gorm.DB) ReportRepository {
	return &reportRepository{db: db}
}

// Money columns are loaded and summed as decimals in Go; SQL aggregates would
// go through floating point on SQLite.

func (r *reportRepository) salesIn(ctx context.Context, from, to *time.Time) ([]model.Sale, error) {
	var sales []model.Sale
	db := GetDB(ctx, r.db).Model(&model.Sale{}).
		Select("id", "subtotal", "tax_amount", "discount_amount", "total_amount", "payment_method")
	if from != nil {
		db = db.Where("created_at >= ?", from.UTC())
	}
	if to != nil {
		db = db.Where("created_at < ?", to.UTC())
	}
	if err := db.Find(&sales).Error; err != nil {
		return nil, err
	}
	return sales, nil
}

func (r *reportRepository) SaleTotals(ctx context.Context, from, to *time.Time) (SaleTotals, error) {
	sales, err := r.salesIn(ctx, from, to)
	if err != nil {
		return SaleTotals{}, fmt.Errorf("failed to sum sales: %w", err)
	}

	result := SaleTotals{
		Subtotal:    decimal.Zero,
		TaxAmount:   decimal.Zero,
		Discount:    decimal.Zero,
		TotalAmount: decimal.Zero,
	}
	for _, sale := range sales {
		result.SaleCount++
		result.Subtotal = result.Subtotal.Add(sale.Subtotal)
		result.TaxAmount = result.TaxAmount.Add(sale.TaxAmount)
		result.Discount = result.Discount.Add(sale.DiscountAmount)
		result.TotalAmount = result.TotalAmount.Add(sale.TotalAmount)
	}
	return result, nil
}

func (r *reportRepository) TotalsByPaymentMethod(ctx context.Context, from, to time.Time) ([]model.PaymentBreakdown, error) {
	sales, err := r.salesIn(ctx, &from, &to)
	if err != nil {
		return nil, fmt.Errorf("failed to group sales by payment method: %w", err)
	}

	byMethod := make(map[string]*model.PaymentBreakdown)
	for _, sale := range sales {
		method := string(sale.PaymentMethod)
		row, ok := byMethod[method]
		if !ok {
			row = &model.PaymentBreakdown{PaymentMethod: method, TotalAmount: decimal.Zero}
			byMethod[method] = row
		}
		row.SaleCount++
		row.TotalAmount = row.TotalAmount.Add(sale.TotalAmount)
	}

	rows := make([]model.PaymentBreakdown, 0, len(byMethod))
	for _, row := range byMethod {
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].PaymentMethod < rows[j].PaymentMethod })
	return rows, nil
}

type soldLine struct {
	ProductID   uint
	ProductName string
	Quantity    decimal.Decimal
	TotalPrice  decimal.Decimal
}

// TopProducts ranks by quantity sold, then by value, then by id.
func (r *reportRepository) TopProducts(ctx context.Context, from, to time.Time, limit int) ([]model.ProductRanking, error) {
	var lines []soldLine
	if err := GetDB(ctx, r.db).Table("sale_items").
		Select("sale_items.product_id AS product_id, products.name AS product_name, sale_items.quantity AS quantity, sale_items.total_price AS total_price").
		Joins("JOIN products ON products.id = sale_items.product_id").
		Joins("JOIN sales ON sales.id = sale_items.sale_id").
		Where("sales.created_at >= ? AND sales.created_at < ?", from.UTC(), to.UTC()).
		Scan(&lines).Error; err != nil {
		return nil, fmt.Errorf("failed to query top products: %w", err)
	}

	byProduct := make(map[uint]*model.ProductRanking)
	for _, line := range lines {
		rank, ok := byProduct[line.ProductID]
		if !ok {
			rank = &model.ProductRanking{
				ProductID:     line.ProductID,
				ProductName:   line.ProductName,
				TotalQuantity: decimal.Zero,
				TotalValue:    decimal.Zero,
			}
			byProduct[line.ProductID] = rank
		}
		rank.TotalQuantity = rank.TotalQuantity.Add(line.Quantity)
		rank.TotalValue = rank.TotalValue.Add(line.TotalPrice)
	}

	rankings := make([]model.ProductRanking, 0, len(byProduct))
	for _, rank := range byProduct {
		rankings = append(rankings, *rank)
	}
	sort.Slice(rankings, func(i, j int) bool {
		a, b := rankings[i], rankings[j]
		if c := a.TotalQuantity.Cmp(b.TotalQuantity); c != 0 {
			return c > 0
		}
		if c := a.TotalValue.Cmp(b.TotalValue); c != 0 {
			return c > 0
		}
		return a.ProductID < b.ProductID
	})
	if limit > 0 && len(rankings) > limit {
		rankings = rankings[:limit]
	}
	return rankings, nil
}

// InventoryValuation values active products, optionally within one category.
func (r *reportRepository) InventoryValuation(ctx context.Context, categoryID *uint) (*model.InventoryValuation, error) {
	var rows []ProductRow
	db := GetDB(ctx, r.db).Model(&model.Product{}).
		Select("products.*, COALESCE(categories.name, '') AS category_name").
		Joins("LEFT JOIN categories ON categories.id = products.category_id").
		Where("products.is_active = ?", true)
	if categoryID != nil {
		db = db.Where("products.category_id = ?", *categoryID)
	}
	if err := db.Order("products.name asc").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to query inventory: %w", err)
	}

	report := &model.InventoryValuation{
		CategoryID:       categoryID,
		ProductCount:     len(rows),
		StockValueCost:   decimal.Zero,
		StockValueRetail: decimal.Zero,
		Lines:            make([]model.InventoryLine, 0, len(rows)),
	}
	for _, row := range rows {
		low := row.StockQuantity.LessThanOrEqual(row.MinStockLevel)
		if low {
			report.LowStockCount++
		}
		retail := row.StockQuantity.Mul(row.SellingPrice)
		report.StockValueCost = report.StockValueCost.Add(row.StockQuantity.Mul(row.CostPrice))
		report.StockValueRetail = report.StockValueRetail.Add(retail)
		report.Lines = append(report.Lines, model.InventoryLine{
			ProductID:     row.ID,
			Name:          row.Name,
			CategoryName:  row.CategoryName,
			Unit:          row.Unit,
			StockQuantity: row.StockQuantity,
			MinStockLevel: row.MinStockLevel,
			CostPrice:     row.CostPrice,
			SellingPrice:  row.SellingPrice,
			Value:         retail,
			Status:        model.ClassifyStock(row.StockQuantity, row.MinStockLevel),
			LowStock:      low,
		})
	}
	return report, nil
}
