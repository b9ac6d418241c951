package service

import (
	"construction-pos/internal/model"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// LineAmount is the priced input of one cart line.
type LineAmount struct {
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
	Discount  decimal.Decimal
}

// Total is quantity × unit price less the line discount.
func (l LineAmount) Total() decimal.Decimal {
	return l.Quantity.Mul(l.UnitPrice).Sub(l.Discount)
}

// Totals is the full-precision money breakdown of a cart. Nothing here is
// rounded; rounding happens only when amounts are formatted for display.
type Totals struct {
	Subtotal       decimal.Decimal
	TaxRate        decimal.Decimal
	TaxAmount      decimal.Decimal
	DiscountAmount decimal.Decimal
	TotalAmount    decimal.Decimal
	AmountPaid     decimal.Decimal
	ChangeAmount   decimal.Decimal
	LineTotals     []decimal.Decimal
}

// ComputeTotals prices a cart:
//
//	subtotal = Σ(quantity × unit_price) − Σ(line discount)
//	tax      = subtotal × rate / 100
//	total    = subtotal + tax − discount
//	change   = max(0, paid − total)
func ComputeTotals(lines []LineAmount, taxRate, discount, paid decimal.Decimal) Totals {
	t := Totals{
		TaxRate:        taxRate,
		DiscountAmount: discount,
		AmountPaid:     paid,
		LineTotals:     make([]decimal.Decimal, len(lines)),
	}

	gross := decimal.Zero
	lineDiscounts := decimal.Zero
	for i, l := range lines {
		gross = gross.Add(l.Quantity.Mul(l.UnitPrice))
		lineDiscounts = lineDiscounts.Add(l.Discount)
		t.LineTotals[i] = l.Total()
	}

	t.Subtotal = gross.Sub(lineDiscounts)
	t.TaxAmount = t.Subtotal.Mul(taxRate).Div(hundred)
	t.TotalAmount = t.Subtotal.Add(t.TaxAmount).Sub(discount)
	t.ChangeAmount = decimal.Max(decimal.Zero, paid.Sub(t.TotalAmount))
	return t
}

// PaymentStatusFor derives how much of the total has been settled.
func PaymentStatusFor(total, paid decimal.Decimal) model.PaymentStatus {
	switch {
	case paid.GreaterThanOrEqual(total):
		return model.PaymentStatusPaid
	case paid.IsPositive():
		return model.PaymentStatusPartial
	default:
		return model.PaymentStatusPending
	}
}

// Outstanding is the part of total the payment did not cover.
func Outstanding(total, paid decimal.Decimal) decimal.Decimal {
	return decimal.Max(decimal.Zero, total.Sub(paid))
}
