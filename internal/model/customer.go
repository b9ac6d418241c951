package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Customer is a registered buyer, or a placeholder created for a walk-in sale.
type Customer struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	Name          string          `gorm:"type:varchar(200);not null;index" json:"name"`
	Phone         string          `gorm:"type:varchar(32)" json:"phone"`
	Email         string          `gorm:"type:varchar(200)" json:"email"`
	Address       string          `gorm:"type:text" json:"address"`
	CreditLimit   decimal.Decimal `gorm:"type:decimal(24,8);not null;default:0" json:"credit_limit"`
	CurrentCredit decimal.Decimal `gorm:"type:decimal(24,8);not null;default:0" json:"current_credit"`
	IsWalkIn      bool            `gorm:"not null" json:"is_walk_in"`
	IsActive      bool            `gorm:"not null" json:"is_active"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}
