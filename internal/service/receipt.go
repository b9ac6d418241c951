package service

import (
	"context"

	"construction-pos/internal/model"

	"github.com/shopspring/decimal"
)

// Receipt is a sale rendered for printing. Amounts are rounded here, and only here.
type Receipt struct {
	ShopName      string        `json:"shop_name"`
	ShopAddress   string        `json:"shop_address"`
	ShopPhone     string        `json:"shop_phone"`
	SaleNumber    string        `json:"sale_number"`
	Date          string        `json:"date"`
	Cashier       string        `json:"cashier"`
	CustomerName  string        `json:"customer_name,omitempty"`
	PaymentMethod string        `json:"payment_method"`
	Lines         []ReceiptLine `json:"lines"`
	Subtotal      string        `json:"subtotal"`
	Tax           string        `json:"tax"`
	TaxRate       string        `json:"tax_rate"`
	Discount      string        `json:"discount"`
	Total         string        `json:"total"`
	Paid          string        `json:"paid"`
	Change        string        `json:"change"`
	Footer        string        `json:"footer"`
}

type ReceiptLine struct {
	Name      string `json:"name"`
	Quantity  string `json:"quantity"`
	UnitPrice string `json:"unit_price"`
	Discount  string `json:"discount,omitempty"`
	Total     string `json:"total"`
}

// FormatMoney rounds to the currency's minor unit and appends its symbol.
func FormatMoney(amount decimal.Decimal, minorUnits int32, symbol string) string {
	s := amount.StringFixed(minorUnits)
	if symbol == "" {
		return s
	}
	return s + " " + symbol
}

func (s *saleService) Receipt(ctx context.Context, id uint) (*Receipt, error) {
	sale, err := s.GetSale(ctx, id)
	if err != nil {
		return nil, err
	}
	settings, err := s.settings.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	symbol, units, err := s.settings.Currency(ctx)
	if err != nil {
		return nil, err
	}

	var customerName string
	if sale.CustomerID != nil {
		customer, err := s.customerRepo.FindByID(ctx, *sale.CustomerID)
		if err == nil {
			customerName = customer.Name
		}
	}

	return buildReceipt(sale, settings, customerName, symbol, units), nil
}

func buildReceipt(sale *model.Sale, settings map[string]string, customerName, symbol string, units int32) *Receipt {
	money := func(d decimal.Decimal) string { return FormatMoney(d, units, symbol) }

	r := &Receipt{
		ShopName:      settings[model.SettingShopName],
		ShopAddress:   settings[model.SettingShopAddress],
		ShopPhone:     settings[model.SettingShopPhone],
		SaleNumber:    sale.SaleNumber,
		Date:          sale.CreatedAt.Local().Format("2006-01-02 15:04"),
		Cashier:       sale.CreatedBy,
		CustomerName:  customerName,
		PaymentMethod: string(sale.PaymentMethod),
		Subtotal:      money(sale.Subtotal),
		Tax:           money(sale.TaxAmount),
		TaxRate:       sale.TaxRate.String() + "%",
		Discount:      money(sale.DiscountAmount),
		Total:         money(sale.TotalAmount),
		Paid:          money(sale.AmountPaid),
		Change:        money(sale.ChangeAmount),
		Footer:        settings[model.SettingReceiptFooter],
	}
	for _, item := range sale.Items {
		line := ReceiptLine{
			Name:      item.ProductName,
			Quantity:  item.Quantity.String(),
			UnitPrice: money(item.UnitPrice),
			Total:     money(item.TotalPrice),
		}
		if item.DiscountAmount.IsPositive() {
			line.Discount = money(item.DiscountAmount)
		}
		r.Lines = append(r.Lines, line)
	}
	return r
}
