package service

import (
	"context"
	"strings"

	"construction-pos/internal/model"
	"construction-pos/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// DTOs
type CategoryRequest struct {
	Name        string `json:"name" validate:"notblank,max=100"`
	Description string `json:"description" validate:"max=1000"`
}

type ProductRequest struct {
	Name          string          `json:"name" validate:"notblank,max=200"`
	Barcode       string          `json:"barcode" validate:"max=100"`
	CategoryID    *uint           `json:"category_id,omitempty"`
	Unit          model.Unit      `json:"unit" validate:"required"`
	CostPrice     decimal.Decimal `json:"cost_price" validate:"gte=0"`
	SellingPrice  decimal.Decimal `json:"selling_price" validate:"gte=0"`
	MinStockLevel decimal.Decimal `json:"min_stock_level" validate:"gte=0"`
}

type CreateProductRequest struct {
	ProductRequest
	InitialStock decimal.Decimal `json:"initial_stock" validate:"gte=0"`
}

type UpdateProductRequest struct {
	ProductRequest
	IsActive *bool `json:"is_active,omitempty"`
}

type ProductQuery struct {
	Search     string
	CategoryID *uint
	ActiveOnly bool
	Page       int
	Limit      int
}

// ProductResponse is a flat product view with the category resolved.
type ProductResponse struct {
	ID            uint              `json:"id"`
	Name          string            `json:"name"`
	Barcode       string            `json:"barcode,omitempty"`
	CategoryID    *uint             `json:"category_id,omitempty"`
	CategoryName  string            `json:"category_name,omitempty"`
	Unit          model.Unit        `json:"unit"`
	CostPrice     decimal.Decimal   `json:"cost_price"`
	SellingPrice  decimal.Decimal   `json:"selling_price"`
	StockQuantity decimal.Decimal   `json:"stock_quantity"`
	MinStockLevel decimal.Decimal   `json:"min_stock_level"`
	StockStatus   model.StockStatus `json:"stock_status"`
	IsActive      bool              `json:"is_active"`
}

// CatalogService manages categories and products. Stock quantity is never
// written here directly; opening stock goes through the adjustment engine.
type CatalogService interface {
	CreateCategory(ctx context.Context, req CategoryRequest) (*model.Category, error)
	UpdateCategory(ctx context.Context, id uint, req CategoryRequest) (*model.Category, error)
	DeleteCategory(ctx context.Context, id uint) error
	ListCategories(ctx context.Context) ([]repository.CategoryRow, error)

	CreateProduct(ctx context.Context, actor Actor, req CreateProductRequest) (*ProductResponse, error)
	UpdateProduct(ctx context.Context, id uint, req UpdateProductRequest) (*ProductResponse, error)
	DeactivateProduct(ctx context.Context, id uint) error
	GetProduct(ctx context.Context, id uint) (*ProductResponse, error)
	FindByBarcode(ctx context.Context, barcode string) (*ProductResponse, error)
	ListProducts(ctx context.Context, q ProductQuery) ([]ProductResponse, int64, error)
}

type catalogService struct {
	productRepo  repository.ProductRepository
	categoryRepo repository.CategoryRepository
	stock        StockService
	txManager    repository.TransactionManager
	log          *logrus.Logger
}

func NewCatalogService(
	productRepo repository.ProductRepository,
	categoryRepo repository.CategoryRepository,
	stock StockService,
	txManager repository.TransactionManager,
	log *logrus.Logger,
) CatalogService {
	return &catalogService{
		productRepo:  productRepo,
		categoryRepo: categoryRepo,
		stock:        stock,
		txManager:    txManager,
		log:          log,
	}
}

func (s *catalogService) CreateCategory(ctx context.Context, req CategoryRequest) (*model.Category, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	category := &model.Category{Name: strings.TrimSpace(req.Name), Description: strings.TrimSpace(req.Description)}
	if err := s.categoryRepo.Create(ctx, category); err != nil {
		if repository.IsDuplicateKey(err) {
			return nil, &ConflictError{Entity: "category", Field: "name", Value: category.Name}
		}
		return nil, &PersistenceError{Op: "create category", Err: err}
	}
	return category, nil
}

func (s *catalogService) UpdateCategory(ctx context.Context, id uint, req CategoryRequest) (*model.Category, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	category, err := s.categoryRepo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError("category", id, "load category", err)
	}
	category.Name = strings.TrimSpace(req.Name)
	category.Description = strings.TrimSpace(req.Description)
	if err := s.categoryRepo.Update(ctx, category); err != nil {
		if repository.IsDuplicateKey(err) {
			return nil, &ConflictError{Entity: "category", Field: "name", Value: category.Name}
		}
		return nil, &PersistenceError{Op: "update category", Err: err}
	}
	return category, nil
}

// DeleteCategory only removes categories no product points at.
func (s *catalogService) DeleteCategory(ctx context.Context, id uint) error {
	return classify("delete category", s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if _, err := s.categoryRepo.FindByID(txCtx, id); err != nil {
			return lookupError("category", id, "load category", err)
		}
		n, err := s.productRepo.CountByCategory(txCtx, id)
		if err != nil {
			return err
		}
		if n > 0 {
			return invalid("category", "still has products assigned")
		}
		return s.categoryRepo.Delete(txCtx, id)
	}))
}

func (s *catalogService) ListCategories(ctx context.Context) ([]repository.CategoryRow, error) {
	rows, err := s.categoryRepo.List(ctx)
	if err != nil {
		return nil, &PersistenceError{Op: "list categories", Err: err}
	}
	return rows, nil
}

func (s *catalogService) checkProduct(ctx context.Context, req ProductRequest) error {
	if !req.Unit.Valid() {
		return invalid("unit", "is not a known unit of measure")
	}
	if req.CategoryID != nil {
		if _, err := s.categoryRepo.FindByID(ctx, *req.CategoryID); err != nil {
			return lookupError("category", *req.CategoryID, "load category", err)
		}
	}
	return nil
}

func applyProductFields(p *model.Product, req ProductRequest) {
	p.Name = strings.TrimSpace(req.Name)
	p.Barcode = nil
	if code := strings.TrimSpace(req.Barcode); code != "" {
		p.Barcode = &code
	}
	p.CategoryID = req.CategoryID
	p.Unit = req.Unit
	p.CostPrice = req.CostPrice
	p.SellingPrice = req.SellingPrice
	p.MinStockLevel = req.MinStockLevel
}

func (s *catalogService) CreateProduct(ctx context.Context, actor Actor, req CreateProductRequest) (*ProductResponse, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	product := &model.Product{IsActive: true}
	applyProductFields(product, req.ProductRequest)

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.checkProduct(txCtx, req.ProductRequest); err != nil {
			return err
		}
		if err := s.productRepo.Create(txCtx, product); err != nil {
			if repository.IsDuplicateKey(err) {
				return &ConflictError{Entity: "product", Field: "barcode", Value: req.Barcode}
			}
			return &PersistenceError{Op: "create product", Err: err}
		}
		if !req.InitialStock.IsPositive() {
			return nil
		}
		// Opening stock is a ledger entry like any other so the stock card
		// explains the product's first quantity.
		_, err := s.stock.ApplyMovement(txCtx, actor, MovementRequest{
			ProductID:     product.ID,
			MovementType:  model.MovementIn,
			Quantity:      req.InitialStock,
			ReferenceType: model.ReferencePurchase,
			Notes:         "Opening stock",
		})
		return err
	})
	if err != nil {
		return nil, classify("create product", err)
	}

	s.log.WithFields(logrus.Fields{"module": "catalog", "product_id": product.ID, "actor": actor.Name()}).Info("product created")
	return s.GetProduct(ctx, product.ID)
}

func (s *catalogService) UpdateProduct(ctx context.Context, id uint, req UpdateProductRequest) (*ProductResponse, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError("product", id, "load product", err)
	}
	if err := s.checkProduct(ctx, req.ProductRequest); err != nil {
		return nil, err
	}

	applyProductFields(product, req.ProductRequest)
	if req.IsActive != nil {
		product.IsActive = *req.IsActive
	}
	if err := s.productRepo.Update(ctx, product); err != nil {
		if repository.IsDuplicateKey(err) {
			return nil, &ConflictError{Entity: "product", Field: "barcode", Value: req.Barcode}
		}
		return nil, &PersistenceError{Op: "update product", Err: err}
	}
	return s.GetProduct(ctx, id)
}

// DeactivateProduct hides a product from sale. Products are never deleted
// because sale items and movements keep pointing at them.
func (s *catalogService) DeactivateProduct(ctx context.Context, id uint) error {
	if _, err := s.productRepo.FindByID(ctx, id); err != nil {
		return lookupError("product", id, "load product", err)
	}
	if err := s.productRepo.SetActive(ctx, id, false); err != nil {
		return &PersistenceError{Op: "deactivate product", Err: err}
	}
	return nil
}

func (s *catalogService) GetProduct(ctx context.Context, id uint) (*ProductResponse, error) {
	row, err := s.productRepo.FindRowByID(ctx, id)
	if err != nil {
		return nil, lookupError("product", id, "load product", err)
	}
	res := toProductResponse(*row)
	return &res, nil
}

func (s *catalogService) FindByBarcode(ctx context.Context, barcode string) (*ProductResponse, error) {
	barcode = strings.TrimSpace(barcode)
	product, err := s.productRepo.FindByBarcode(ctx, barcode)
	if err != nil {
		return nil, lookupError("product", barcode, "load product", err)
	}
	return s.GetProduct(ctx, product.ID)
}

func (s *catalogService) ListProducts(ctx context.Context, q ProductQuery) ([]ProductResponse, int64, error) {
	page, limit := normalizePage(q.Page, q.Limit)
	rows, total, err := s.productRepo.List(ctx, repository.ProductFilter{
		Search:     strings.TrimSpace(q.Search),
		CategoryID: q.CategoryID,
		ActiveOnly: q.ActiveOnly,
		Offset:     (page - 1) * limit,
		Limit:      limit,
	})
	if err != nil {
		return nil, 0, &PersistenceError{Op: "list products", Err: err}
	}

	res := make([]ProductResponse, 0, len(rows))
	for _, r := range rows {
		res = append(res, toProductResponse(r))
	}
	return res, total, nil
}

func toProductResponse(r repository.ProductRow) ProductResponse {
	res := ProductResponse{
		ID:            r.ID,
		Name:          r.Name,
		CategoryID:    r.CategoryID,
		CategoryName:  r.CategoryName,
		Unit:          r.Unit,
		CostPrice:     r.CostPrice,
		SellingPrice:  r.SellingPrice,
		StockQuantity: r.StockQuantity,
		MinStockLevel: r.MinStockLevel,
		StockStatus:   model.ClassifyStock(r.StockQuantity, r.MinStockLevel),
		IsActive:      r.IsActive,
	}
	if r.Barcode != nil {
		res.Barcode = *r.Barcode
	}
	return res
}
