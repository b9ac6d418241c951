package model

import "time"

const (
	SettingShopName           = "shop_name"
	SettingShopAddress        = "shop_address"
	SettingShopPhone          = "shop_phone"
	SettingTaxRate            = "tax_rate"
	SettingCurrency           = "currency"
	SettingReceiptFooter      = "receipt_footer"
	SettingCurrencyMinorUnits = "currency_minor_units"
)

// DefaultSettings are seeded on first start and never overwrite existing values.
var DefaultSettings = map[string]string{
	SettingShopName:           "Construction Materials Shop",
	SettingShopAddress:        "",
	SettingShopPhone:          "",
	SettingTaxRate:            "18.0",
	SettingCurrency:           "FCFA",
	SettingReceiptFooter:      "Thank you for your business!",
	SettingCurrencyMinorUnits: "0",
}

// Setting is a key/value entry of shop configuration
type Setting struct {
	Key       string    `gorm:"column:setting_key;type:varchar(100);primaryKey" json:"key"`
	Value     string    `gorm:"type:text;not null" json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}
