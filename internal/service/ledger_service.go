package service

import (
	"context"
	"time"

	"construction-pos/internal/model"
	"construction-pos/internal/repository"

	"github.com/shopspring/decimal"
)

type MovementQuery struct {
	ProductID     *uint
	MovementType  model.MovementType
	ReferenceType model.ReferenceType
	ReferenceID   *uint
	From          *time.Time
	To            *time.Time
	Page          int
	Limit         int
}

type LowStockItem struct {
	ProductID     uint              `json:"product_id"`
	Name          string            `json:"name"`
	CategoryName  string            `json:"category_name"`
	Unit          model.Unit        `json:"unit"`
	StockQuantity decimal.Decimal   `json:"stock_quantity"`
	MinStockLevel decimal.Decimal   `json:"min_stock_level"`
	Shortage      decimal.Decimal   `json:"shortage"`
	Status        model.StockStatus `json:"status"`
}

// Reconciliation compares the cached stock of a product with its ledger.
type Reconciliation struct {
	ProductID     uint            `json:"product_id"`
	ProductName   string          `json:"product_name"`
	StockQuantity decimal.Decimal `json:"stock_quantity"`
	LedgerNet     decimal.Decimal `json:"ledger_net"`
	Drift         decimal.Decimal `json:"drift"`
	InSync        bool            `json:"in_sync"`
}

// LedgerService is the read side of the stock card. It never writes.
type LedgerService interface {
	ListMovements(ctx context.Context, q MovementQuery) ([]repository.MovementRow, int64, error)
	LowStockReport(ctx context.Context) ([]LowStockItem, error)
	Reconcile(ctx context.Context, productID uint) (*Reconciliation, error)
	ReconcileAll(ctx context.Context) ([]Reconciliation, error)
}

type ledgerService struct {
	productRepo  repository.ProductRepository
	movementRepo repository.StockMovementRepository
}

func NewLedgerService(productRepo repository.ProductRepository, movementRepo repository.StockMovementRepository) LedgerService {
	return &ledgerService{productRepo: productRepo, movementRepo: movementRepo}
}

func (s *ledgerService) ListMovements(ctx context.Context, q MovementQuery) ([]repository.MovementRow, int64, error) {
	if q.From != nil && q.To != nil && q.To.Before(*q.From) {
		return nil, 0, invalid("to", "must not be before from")
	}
	page, limit := normalizePage(q.Page, q.Limit)
	rows, total, err := s.movementRepo.List(ctx, repository.MovementFilter{
		ProductID:     q.ProductID,
		MovementType:  q.MovementType,
		ReferenceType: q.ReferenceType,
		ReferenceID:   q.ReferenceID,
		From:          q.From,
		To:            q.To,
		Offset:        (page - 1) * limit,
		Limit:         limit,
	})
	if err != nil {
		return nil, 0, &PersistenceError{Op: "list stock movements", Err: err}
	}
	return rows, total, nil
}

// LowStockReport lists active products at or under their reorder level,
// lowest stock first. Status is recomputed on every call.
func (s *ledgerService) LowStockReport(ctx context.Context) ([]LowStockItem, error) {
	rows, err := s.productRepo.ListLowStock(ctx)
	if err != nil {
		return nil, &PersistenceError{Op: "list low stock", Err: err}
	}
	items := make([]LowStockItem, 0, len(rows))
	for _, r := range rows {
		items = append(items, LowStockItem{
			ProductID:     r.ID,
			Name:          r.Name,
			CategoryName:  r.CategoryName,
			Unit:          r.Unit,
			StockQuantity: r.StockQuantity,
			MinStockLevel: r.MinStockLevel,
			Shortage:      r.MinStockLevel.Sub(r.StockQuantity),
			Status:        model.ClassifyStock(r.StockQuantity, r.MinStockLevel),
		})
	}
	return items, nil
}

func (s *ledgerService) Reconcile(ctx context.Context, productID uint) (*Reconciliation, error) {
	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		return nil, lookupError("product", productID, "load product", err)
	}
	net, err := s.movementRepo.NetByProduct(ctx, productID)
	if err != nil {
		return nil, &PersistenceError{Op: "sum stock movements", Err: err}
	}
	r := reconciliation(product.ID, product.Name, product.StockQuantity, net)
	return &r, nil
}

// ReconcileAll returns only the products whose cached stock drifted from the ledger.
func (s *ledgerService) ReconcileAll(ctx context.Context) ([]Reconciliation, error) {
	balances, err := s.movementRepo.Balances(ctx)
	if err != nil {
		return nil, &PersistenceError{Op: "compute ledger balances", Err: err}
	}
	drifted := make([]Reconciliation, 0)
	for _, b := range balances {
		r := reconciliation(b.ProductID, b.ProductName, b.StockQuantity, b.LedgerNet)
		if !r.InSync {
			drifted = append(drifted, r)
		}
	}
	return drifted, nil
}

func reconciliation(id uint, name string, cached, net decimal.Decimal) Reconciliation {
	drift := cached.Sub(net)
	return Reconciliation{
		ProductID:     id,
		ProductName:   name,
		StockQuantity: cached,
		LedgerNet:     net,
		Drift:         drift,
		InSync:        drift.IsZero(),
	}
}
