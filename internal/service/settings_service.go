package service

import (
	"context"
	"strconv"
	"strings"

	"construction-pos/internal/model"
	"construction-pos/internal/repository"

	"github.com/shopspring/decimal"
)

type UpdateSettingRequest struct {
	Value string `json:"value" validate:"max=1000"`
}

// SettingsService is the key/value shop configuration. The sale engine only
// reads from it.
type SettingsService interface {
	Seed(ctx context.Context) error
	GetAll(ctx context.Context) (map[string]string, error)
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, req UpdateSettingRequest) error
	TaxRate(ctx context.Context) (decimal.Decimal, error)
	Currency(ctx context.Context) (symbol string, minorUnits int32, err error)
}

type settingsService struct {
	repo repository.SettingRepository
}

func NewSettingsService(repo repository.SettingRepository) SettingsService {
	return &settingsService{repo: repo}
}

func (s *settingsService) Seed(ctx context.Context) error {
	if err := s.repo.SeedDefaults(ctx, model.DefaultSettings); err != nil {
		return &PersistenceError{Op: "seed settings", Err: err}
	}
	return nil
}

func (s *settingsService) GetAll(ctx context.Context) (map[string]string, error) {
	rows, err := s.repo.All(ctx)
	if err != nil {
		return nil, &PersistenceError{Op: "load settings", Err: err}
	}
	out := make(map[string]string, len(rows))
	for _, r := range rows {
		out[r.Key] = r.Value
	}
	return out, nil
}

func (s *settingsService) Get(ctx context.Context, key string) (string, error) {
	setting, err := s.repo.Get(ctx, key)
	if err != nil {
		if repository.IsNotFound(err) {
			if def, ok := model.DefaultSettings[key]; ok {
				return def, nil
			}
		}
		return "", lookupError("setting", key, "load setting", err)
	}
	return setting.Value, nil
}

func (s *settingsService) Set(ctx context.Context, key string, req UpdateSettingRequest) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return invalid("key", "is required")
	}
	if err := validateStruct(req); err != nil {
		return err
	}

	value := strings.TrimSpace(req.Value)
	switch key {
	case model.SettingTaxRate:
		rate, err := decimal.NewFromString(value)
		if err != nil || rate.IsNegative() || rate.GreaterThan(hundred) {
			return invalid("value", "tax rate must be a number between 0 and 100")
		}
	case model.SettingCurrencyMinorUnits:
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 || n > 4 {
			return invalid("value", "minor units must be an integer between 0 and 4")
		}
	}

	if err := s.repo.Upsert(ctx, &model.Setting{Key: key, Value: value}); err != nil {
		return &PersistenceError{Op: "save setting", Err: err}
	}
	return nil
}

// TaxRate returns the configured percentage, falling back to the seeded default
// when the stored value is not a number.
func (s *settingsService) TaxRate(ctx context.Context) (decimal.Decimal, error) {
	raw, err := s.Get(ctx, model.SettingTaxRate)
	if err != nil {
		return decimal.Zero, err
	}
	rate, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.RequireFromString(model.DefaultSettings[model.SettingTaxRate]), nil
	}
	return rate, nil
}

func (s *settingsService) Currency(ctx context.Context) (string, int32, error) {
	symbol, err := s.Get(ctx, model.SettingCurrency)
	if err != nil {
		return "", 0, err
	}
	raw, err := s.Get(ctx, model.SettingCurrencyMinorUnits)
	if err != nil {
		return "", 0, err
	}
	units, convErr := strconv.Atoi(strings.TrimSpace(raw))
	if convErr != nil || units < 0 {
		units = 0
	}
	return symbol, int32(units), nil
}
