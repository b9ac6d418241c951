package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type MovementType string

const (
	MovementIn         MovementType = "in"
	MovementOut        MovementType = "out"
	MovementAdjustment MovementType = "adjustment"
)

type ReferenceType string

const (
	ReferenceSale       ReferenceType = "sale"
	ReferencePurchase   ReferenceType = "purchase"
	ReferenceAdjustment ReferenceType = "adjustment"
	ReferenceManual     ReferenceType = "manual"
)

// StockMovement is one append-only stock card line. Quantity is always a
// non-negative magnitude; the direction comes from MovementType, or for
// adjustments from StockBefore/StockAfter.
type StockMovement struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	ProductID     uint            `gorm:"not null;index" json:"product_id"`
	Product       *Product        `gorm:"foreignKey:ProductID;constraint:OnDelete:RESTRICT" json:"-"`
	MovementType  MovementType    `gorm:"type:varchar(20);not null;index" json:"movement_type"`
	Quantity      decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"quantity"`
	StockBefore   decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"stock_before"`
	StockAfter    decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"stock_after"`
	ReferenceType ReferenceType   `gorm:"type:varchar(20);not null;index" json:"reference_type"`
	ReferenceID   *uint           `gorm:"index" json:"reference_id,omitempty"`
	Notes         string          `gorm:"type:text" json:"notes"`
	CreatedBy     string          `gorm:"type:varchar(100);not null" json:"created_by"`
	CreatedAt     time.Time       `gorm:"index" json:"created_at"`
}

// SignedDelta is the change this movement applied to the product's stock.
func (m StockMovement) SignedDelta() decimal.Decimal {
	switch m.MovementType {
	case MovementIn:
		return m.Quantity
	case MovementOut:
		return m.Quantity.Neg()
	default:
		if m.StockAfter.LessThan(m.StockBefore) {
			return m.Quantity.Neg()
		}
		return m.Quantity
	}
}

type StockStatus string

const (
	StockOut      StockStatus = "Out of Stock"
	StockCritical StockStatus = "Critical"
	StockLow      StockStatus = "Low Stock"
	StockOK       StockStatus = "In Stock"
)

var half = decimal.NewFromFloat(0.5)

// ClassifyStock buckets a stock level against its reorder threshold.
func ClassifyStock(quantity, minLevel decimal.Decimal) StockStatus {
	switch {
	case quantity.LessThanOrEqual(decimal.Zero):
		return StockOut
	case quantity.GreaterThan(minLevel):
		return StockOK
	case quantity.LessThanOrEqual(minLevel.Mul(half)):
		return StockCritical
	default:
		return StockLow
	}
}
