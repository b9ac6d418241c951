package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Unit is the unit of measure a product is sold in.
type Unit string

const (
	UnitPiece Unit = "piece"
	UnitBag   Unit = "bag"
	UnitMeter Unit = "meter"
	UnitKg    Unit = "kg"
	UnitTon   Unit = "ton"
	UnitLiter Unit = "liter"
	UnitBox   Unit = "box"
	UnitSet   Unit = "set"
	UnitM3    Unit = "m3"
	UnitSheet Unit = "sheet"
	UnitRoll  Unit = "roll"
)

var Units = []Unit{
	UnitPiece, UnitBag, UnitMeter, UnitKg, UnitTon, UnitLiter,
	UnitBox, UnitSet, UnitM3, UnitSheet, UnitRoll,
}

func (u Unit) Valid() bool {
	for _, known := range Units {
		if u == known {
			return true
		}
	}
	return false
}

// Category groups products for browsing and reporting
type Category struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Product is a catalog entry. StockQuantity is a cached value maintained
// incrementally; the stock_movements table explains every change to it.
type Product struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	Name          string          `gorm:"type:varchar(200);not null;index" json:"name"`
	Barcode       *string         `gorm:"type:varchar(100);uniqueIndex" json:"barcode,omitempty"`
	CategoryID    *uint           `gorm:"index" json:"category_id,omitempty"`
	Category      *Category       `gorm:"foreignKey:CategoryID;constraint:OnUpdate:CASCADE,OnDelete:RESTRICT" json:"-"`
	Unit          Unit            `gorm:"type:varchar(20);not null" json:"unit"`
	CostPrice     decimal.Decimal `gorm:"type:decimal(24,8);not null;default:0" json:"cost_price"`
	SellingPrice  decimal.Decimal `gorm:"type:decimal(24,8);not null;default:0" json:"selling_price"`
	StockQuantity decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"stock_quantity"`
	MinStockLevel decimal.Decimal `gorm:"type:decimal(20,4);not null;default:0" json:"min_stock_level"`
	IsActive      bool            `gorm:"not null" json:"is_active"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}
