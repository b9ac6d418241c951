package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// DashboardStats is the headline block shown on the home screen
type DashboardStats struct {
	Day              time.Time       `json:"day"`
	TodaySales       int64           `json:"today_sales"`
	TodayRevenue     decimal.Decimal `json:"today_revenue"`
	TotalSales       int64           `json:"total_sales"`
	TotalRevenue     decimal.Decimal `json:"total_revenue"`
	ActiveProducts   int64           `json:"active_products"`
	LowStockProducts int64           `json:"low_stock_products"`
}

// SalesSummary aggregates committed sales in a time range
type SalesSummary struct {
	From        time.Time          `json:"from"`
	To          time.Time          `json:"to"`
	SaleCount   int64              `json:"sale_count"`
	Subtotal    decimal.Decimal    `json:"subtotal"`
	TaxAmount   decimal.Decimal    `json:"tax_amount"`
	Discount    decimal.Decimal    `json:"discount_amount"`
	TotalAmount decimal.Decimal    `json:"total_amount"`
	ByPayment   []PaymentBreakdown `json:"by_payment_method"`
}

type PaymentBreakdown struct {
	PaymentMethod string          `json:"payment_method"`
	SaleCount     int64           `json:"sale_count"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
}

// ProductRanking represents a ranked product based on accumulated quantities
type ProductRanking struct {
	ProductID     uint            `json:"product_id"`
	ProductName   string          `json:"product_name"`
	TotalQuantity decimal.Decimal `json:"total_quantity"`
	TotalValue    decimal.Decimal `json:"total_value"`
}

// InventoryValuation values the active catalogue at cost and at retail.
type InventoryValuation struct {
	CategoryID       *uint           `json:"category_id,omitempty"`
	ProductCount     int             `json:"product_count"`
	LowStockCount    int             `json:"low_stock_count"`
	StockValueCost   decimal.Decimal `json:"stock_value_cost"`
	StockValueRetail decimal.Decimal `json:"stock_value_retail"`
	Lines            []InventoryLine `json:"lines"`
}

// InventoryLine is one product's stock position; Value is priced at retail.
type InventoryLine struct {
	ProductID     uint            `json:"product_id"`
	Name          string          `json:"name"`
	CategoryName  string          `json:"category_name"`
	Unit          Unit            `json:"unit"`
	StockQuantity decimal.Decimal `json:"stock_quantity"`
	MinStockLevel decimal.Decimal `json:"min_stock_level"`
	CostPrice     decimal.Decimal `json:"cost_price"`
	SellingPrice  decimal.Decimal `json:"selling_price"`
	Value         decimal.Decimal `json:"value"`
	Status        StockStatus     `json:"status"`
	LowStock      bool            `json:"low_stock"`
}
