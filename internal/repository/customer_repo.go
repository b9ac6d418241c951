package repository

import (
	"context"

	"construction-pos/internal/model"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CustomerRepository interface {
	Create(ctx context.Context, customer *model.Customer) error
	Update(ctx context.Context, customer *model.Customer) error
	FindByID(ctx context.Context, id uint) (*model.Customer, error)
	FindByIDForUpdate(ctx context.Context, id uint) (*model.Customer, error)
	List(ctx context.Context, search string, offset, limit int) ([]model.Customer, int64, error)
	Count(ctx context.Context) (int64, error)
	SetCredit(ctx context.Context, id uint, balance decimal.Decimal) error
	SetActive(ctx context.Context, id uint, active bool) error
}

type customerRepository struct {
	db *gorm.DB
}

func NewCustomerRepository(db *gorm.DB) CustomerRepository {
	return &customerRepository{db: db}
}

func (r *customerRepository) Create(ctx context.Context, customer *model.Customer) error {
	return GetDB(ctx, r.db).Create(customer).Error
}

// Update leaves current_credit alone; only sales move it.
func (r *customerRepository) Update(ctx context.Context, customer *model.Customer) error {
	return GetDB(ctx, r.db).Model(customer).
		Select("name", "phone", "email", "address", "credit_limit", "is_walk_in", "is_active").
		Updates(customer).Error
}

func (r *customerRepository) FindByID(ctx context.Context, id uint) (*model.Customer, error) {
	var customer model.Customer
	if err := GetDB(ctx, r.db).First(&customer, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *customerRepository) FindByIDForUpdate(ctx context.Context, id uint) (*model.Customer, error) {
	var customer model.Customer
	if err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).First(&customer).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *customerRepository) List(ctx context.Context, search string, offset, limit int) ([]model.Customer, int64, error) {
	var customers []model.Customer
	var total int64

	db := GetDB(ctx, r.db).Model(&model.Customer{})
	if search != "" {
		like := "%" + search + "%"
		db = db.Where("LOWER(name) LIKE LOWER(?) OR phone LIKE ? OR LOWER(email) LIKE LOWER(?)", like, like, like)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Order("name asc").Offset(offset).Limit(limit).Find(&customers).Error; err != nil {
		return nil, 0, err
	}

	return customers, total, nil
}

func (r *customerRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := GetDB(ctx, r.db).Model(&model.Customer{}).Count(&n).Error
	return n, err
}

// SetCredit stores a balance computed on a customer row locked with FindByIDForUpdate.
func (r *customerRepository) SetCredit(ctx context.Context, id uint, balance decimal.Decimal) error {
	return GetDB(ctx, r.db).Model(&model.Customer{}).Where("id = ?", id).Update("current_credit", balance).Error
}

func (r *customerRepository) SetActive(ctx context.Context, id uint, active bool) error {
	return GetDB(ctx, r.db).Model(&model.Customer{}).Where("id = ?", id).Update("is_active", active).Error
}
