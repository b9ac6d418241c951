package repository

import (
	"context"
	"fmt"
	"time"

	"construction-pos/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SaleFilter struct {
	From       *time.Time
	To         *time.Time
	CustomerID *uint
	Offset     int
	Limit      int
}

type SaleRepository interface {
	Create(ctx context.Context, sale *model.Sale) error
	CreateItems(ctx context.Context, items []model.SaleItem) error
	FindByID(ctx context.Context, id uint) (*model.Sale, error)
	FindByNumber(ctx context.Context, number string) (*model.Sale, error)
	List(ctx context.Context, filter SaleFilter) ([]model.Sale, int64, error)
	LastNumberWithPrefix(ctx context.Context, prefix string) (string, error)
}

type saleRepository struct {
	db *gorm.DB
}

func NewSaleRepository(db *gorm.DB) SaleRepository {
	return &saleRepository{db: db}
}

// Create inserts the sale header only; items are written by CreateItems.
func (r *saleRepository) Create(ctx context.Context, sale *model.Sale) error {
	return GetDB(ctx, r.db).Omit(clause.Associations).Create(sale).Error
}

func (r *saleRepository) CreateItems(ctx context.Context, items []model.SaleItem) error {
	if len(items) == 0 {
		return nil
	}
	return GetDB(ctx, r.db).Omit(clause.Associations).Create(&items).Error
}

func (r *saleRepository) FindByID(ctx context.Context, id uint) (*model.Sale, error) {
	var sale model.Sale
	if err := GetDB(ctx, r.db).Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("sale_items.id asc")
	}).First(&sale, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &sale, nil
}

func (r *saleRepository) FindByNumber(ctx context.Context, number string) (*model.Sale, error) {
	var sale model.Sale
	if err := GetDB(ctx, r.db).Preload("Items").Where("sale_number = ?", number).First(&sale).Error; err != nil {
		return nil, err
	}
	return &sale, nil
}

func (r *saleRepository) List(ctx context.Context, filter SaleFilter) ([]model.Sale, int64, error) {
	var sales []model.Sale
	var total int64

	db := GetDB(ctx, r.db).Model(&model.Sale{})
	if filter.From != nil {
		db = db.Where("created_at >= ?", filter.From.UTC())
	}
	if filter.To != nil {
		db = db.Where("created_at < ?", filter.To.UTC())
	}
	if filter.CustomerID != nil {
		db = db.Where("customer_id = ?", *filter.CustomerID)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Order("created_at desc, id desc").Offset(filter.Offset).Limit(filter.Limit).Find(&sales).Error; err != nil {
		return nil, 0, err
	}

	return sales, total, nil
}

// LastNumberWithPrefix returns the highest sale number sharing prefix, or ""
// when there is none. Longer numbers sort first so a sequence that grew past
// four digits still wins.
//
// Inside a transaction the lookup runs under a savepoint: a failed query is
// rolled back to it and the caller's transaction stays usable for the
// fallback number. Postgres serializes the read with a transaction-scoped
// advisory lock and MySQL with a locking read. SQLite already runs one
// writer at a time.
func (r *saleRepository) LastNumberWithPrefix(ctx context.Context, prefix string) (string, error) {
	var numbers []string
	err := Savepoint(ctx, r.db, func(db *gorm.DB) error {
		if db.Dialector.Name() == "postgres" && InTx(ctx) {
			if err := db.Exec("SELECT pg_advisory_xact_lock(hashtext(?))", prefix).Error; err != nil {
				return fmt.Errorf("failed to acquire numbering lock: %w", err)
			}
		}
		if err := lastNumberQuery(db, prefix).Pluck("sale_number", &numbers).Error; err != nil {
			return fmt.Errorf("failed to query last sale number: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	if len(numbers) == 0 {
		return "", nil
	}
	return numbers[0], nil
}

func lastNumberQuery(db *gorm.DB, prefix string) *gorm.DB {
	q := db.Model(&model.Sale{}).
		Where("sale_number LIKE ?", prefix+"%").
		Order("LENGTH(sale_number) DESC, sale_number DESC").
		Limit(1)
	if db.Dialector.Name() == "mysql" {
		// Next-key locks on the prefix range hold off a concurrent insert
		// until this transaction commits.
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return q
}
