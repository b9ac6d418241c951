package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type PaymentMethod string

const (
	PaymentCash   PaymentMethod = "cash"
	PaymentCard   PaymentMethod = "card"
	PaymentCredit PaymentMethod = "credit"
)

type PaymentStatus string

const (
	PaymentStatusPaid    PaymentStatus = "paid"
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPartial PaymentStatus = "partial"
)

// Sale is a committed checkout. It is never updated after the transaction
// that created it commits.
type Sale struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	SaleNumber     string          `gorm:"type:varchar(32);uniqueIndex;not null" json:"sale_number"`
	CustomerID     *uint           `gorm:"index" json:"customer_id,omitempty"`
	Customer       *Customer       `gorm:"foreignKey:CustomerID" json:"-"`
	UserID         *uint           `gorm:"index" json:"user_id,omitempty"`
	CreatedBy      string          `gorm:"type:varchar(100);not null" json:"created_by"`
	Subtotal       decimal.Decimal `gorm:"type:decimal(24,8);not null" json:"subtotal"`
	TaxRate        decimal.Decimal `gorm:"type:decimal(10,4);not null" json:"tax_rate"`
	TaxAmount      decimal.Decimal `gorm:"type:decimal(24,8);not null" json:"tax_amount"`
	DiscountAmount decimal.Decimal `gorm:"type:decimal(24,8);not null" json:"discount_amount"`
	TotalAmount    decimal.Decimal `gorm:"type:decimal(24,8);not null" json:"total_amount"`
	PaymentMethod  PaymentMethod   `gorm:"type:varchar(20);not null" json:"payment_method"`
	PaymentStatus  PaymentStatus   `gorm:"type:varchar(20);not null" json:"payment_status"`
	AmountPaid     decimal.Decimal `gorm:"type:decimal(24,8);not null" json:"amount_paid"`
	ChangeAmount   decimal.Decimal `gorm:"type:decimal(24,8);not null" json:"change_amount"`
	Notes          string          `gorm:"type:text" json:"notes,omitempty"`
	Items          []SaleItem      `gorm:"foreignKey:SaleID;constraint:OnDelete:CASCADE" json:"items"`
	CreatedAt      time.Time       `gorm:"index" json:"created_at"`
}

// SaleItem is one cart line frozen at sale time. UnitPrice and ProductName
// are snapshots, not live references to the catalog.
type SaleItem struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	SaleID         uint            `gorm:"not null;index" json:"sale_id"`
	ProductID      uint            `gorm:"not null;index" json:"product_id"`
	Product        *Product        `gorm:"foreignKey:ProductID;constraint:OnDelete:RESTRICT" json:"-"`
	ProductName    string          `gorm:"type:varchar(200);not null" json:"product_name"`
	Quantity       decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"quantity"`
	UnitPrice      decimal.Decimal `gorm:"type:decimal(24,8);not null" json:"unit_price"`
	DiscountAmount decimal.Decimal `gorm:"type:decimal(24,8);not null" json:"discount_amount"`
	TotalPrice     decimal.Decimal `gorm:"type:decimal(24,8);not null" json:"total_price"`
}
