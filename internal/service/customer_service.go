package service

import (
	"context"
	"strings"

	"construction-pos/internal/model"
	"construction-pos/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/ttacon/libphonenumber"
)

type CustomerRequest struct {
	Name        string          `json:"name" validate:"notblank,max=200"`
	Phone       string          `json:"phone" validate:"max=32"`
	Email       string          `json:"email" validate:"omitempty,email,max=200"`
	Address     string          `json:"address" validate:"max=1000"`
	CreditLimit decimal.Decimal `json:"credit_limit" validate:"gte=0"`
	IsActive    *bool           `json:"is_active,omitempty"`
}

type CustomerService interface {
	Create(ctx context.Context, req CustomerRequest) (*model.Customer, error)
	Update(ctx context.Context, id uint, req CustomerRequest) (*model.Customer, error)
	Get(ctx context.Context, id uint) (*model.Customer, error)
	List(ctx context.Context, search string, page, limit int) ([]model.Customer, int64, error)
	Deactivate(ctx context.Context, id uint) error
}

type customerService struct {
	customerRepo repository.CustomerRepository
	region       string
	log          *logrus.Logger
}

// NewCustomerService builds the customer directory. region is the ISO country
// used for phone numbers typed without an international prefix.
func NewCustomerService(customerRepo repository.CustomerRepository, region string, log *logrus.Logger) CustomerService {
	return &customerService{customerRepo: customerRepo, region: strings.ToUpper(region), log: log}
}

// normalizePhone stores phone numbers in E.164 so lookups and receipts agree.
func normalizePhone(raw, region string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	num, err := libphonenumber.Parse(raw, region)
	if err != nil || !libphonenumber.IsValidNumber(num) {
		return "", invalid("phone", "is not a valid phone number")
	}
	return libphonenumber.Format(num, libphonenumber.E164), nil
}

func (s *customerService) apply(c *model.Customer, req CustomerRequest) error {
	phone, err := normalizePhone(req.Phone, s.region)
	if err != nil {
		return err
	}
	c.Name = strings.TrimSpace(req.Name)
	c.Phone = phone
	c.Email = strings.TrimSpace(req.Email)
	c.Address = strings.TrimSpace(req.Address)
	c.CreditLimit = req.CreditLimit
	if req.IsActive != nil {
		c.IsActive = *req.IsActive
	}
	return nil
}

func (s *customerService) Create(ctx context.Context, req CustomerRequest) (*model.Customer, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	customer := &model.Customer{IsActive: true}
	if err := s.apply(customer, req); err != nil {
		return nil, err
	}
	if err := s.customerRepo.Create(ctx, customer); err != nil {
		return nil, &PersistenceError{Op: "create customer", Err: err}
	}
	return customer, nil
}

func (s *customerService) Update(ctx context.Context, id uint, req CustomerRequest) (*model.Customer, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	customer, err := s.customerRepo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError("customer", id, "load customer", err)
	}
	if err := s.apply(customer, req); err != nil {
		return nil, err
	}
	// Registering details on a walk-in placeholder promotes it.
	customer.IsWalkIn = false
	if err := s.customerRepo.Update(ctx, customer); err != nil {
		return nil, &PersistenceError{Op: "update customer", Err: err}
	}
	return customer, nil
}

func (s *customerService) Get(ctx context.Context, id uint) (*model.Customer, error) {
	customer, err := s.customerRepo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError("customer", id, "load customer", err)
	}
	return customer, nil
}

func (s *customerService) List(ctx context.Context, search string, page, limit int) ([]model.Customer, int64, error) {
	page, limit = normalizePage(page, limit)
	customers, total, err := s.customerRepo.List(ctx, strings.TrimSpace(search), (page-1)*limit, limit)
	if err != nil {
		return nil, 0, &PersistenceError{Op: "list customers", Err: err}
	}
	return customers, total, nil
}

func (s *customerService) Deactivate(ctx context.Context, id uint) error {
	if _, err := s.customerRepo.FindByID(ctx, id); err != nil {
		return lookupError("customer", id, "load customer", err)
	}
	if err := s.customerRepo.SetActive(ctx, id, false); err != nil {
		return &PersistenceError{Op: "deactivate customer", Err: err}
	}
	return nil
}
