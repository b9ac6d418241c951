package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"construction-pos/internal/events"
	"construction-pos/internal/logger"
	"construction-pos/internal/model"
	"construction-pos/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DTOs
type SaleItemRequest struct {
	ProductID      uint             `json:"product_id" validate:"required"`
	Quantity       decimal.Decimal  `json:"quantity" validate:"gt=0"`
	UnitPrice      *decimal.Decimal `json:"unit_price,omitempty" validate:"omitempty,gte=0"`
	DiscountAmount decimal.Decimal  `json:"discount_amount" validate:"gte=0"`
}

// SaleRequest is a cart plus payment. UnitPrice and TaxRate are optional:
// when omitted the product's selling price and the tax_rate setting apply.
type SaleRequest struct {
	CustomerID     *uint               `json:"customer_id,omitempty"`
	CustomerName   string              `json:"customer_name" validate:"max=200"`
	WalkIn         bool                `json:"walk_in"`
	PaymentMethod  model.PaymentMethod `json:"payment_method" validate:"required,oneof=cash card credit"`
	AmountPaid     decimal.Decimal     `json:"amount_paid" validate:"gte=0"`
	DiscountAmount decimal.Decimal     `json:"discount_amount" validate:"gte=0"`
	TaxRate        *decimal.Decimal    `json:"tax_rate,omitempty" validate:"omitempty,gte=0,lte=100"`
	AllowOverdraw  bool                `json:"allow_overdraw"`
	Notes          string              `json:"notes" validate:"max=500"`
	Items          []SaleItemRequest   `json:"items" validate:"required,min=1,dive"`
}

type SaleResult struct {
	Sale              model.Sale `json:"sale"`
	NumberingFallback bool       `json:"numbering_fallback"`
}

type SaleListQuery struct {
	From       *time.Time
	To         *time.Time
	CustomerID *uint
	Page       int
	Limit      int
}

// SaleService is the sale engine plus the read side receipts and history need.
type SaleService interface {
	ProcessSale(ctx context.Context, actor Actor, req SaleRequest) (*SaleResult, error)
	GetSale(ctx context.Context, id uint) (*model.Sale, error)
	GetSaleByNumber(ctx context.Context, number string) (*model.Sale, error)
	ListSales(ctx context.Context, q SaleListQuery) ([]model.Sale, int64, error)
	Receipt(ctx context.Context, id uint) (*Receipt, error)
}

type saleService struct {
	productRepo  repository.ProductRepository
	saleRepo     repository.SaleRepository
	movementRepo repository.StockMovementRepository
	customerRepo repository.CustomerRepository
	txManager    repository.TransactionManager
	numbering    NumberingService
	settings     SettingsService
	publisher    events.Publisher
	log          *logrus.Logger
}

func NewSaleService(
	productRepo repository.ProductRepository,
	saleRepo repository.SaleRepository,
	movementRepo repository.StockMovementRepository,
	customerRepo repository.CustomerRepository,
	txManager repository.TransactionManager,
	numbering NumberingService,
	settings SettingsService,
	publisher events.Publisher,
	log *logrus.Logger,
) SaleService {
	return &saleService{
		productRepo:  productRepo,
		saleRepo:     saleRepo,
		movementRepo: movementRepo,
		customerRepo: customerRepo,
		txManager:    txManager,
		numbering:    numbering,
		settings:     settings,
		publisher:    publisher,
		log:          log,
	}
}

// pricedLine is a cart line after the product was locked and priced.
type pricedLine struct {
	product *model.Product
	amount  LineAmount
}

func checkSaleRequest(req SaleRequest) error {
	if err := validateStruct(req); err != nil {
		return err
	}
	if req.PaymentMethod == model.PaymentCredit && req.CustomerID == nil {
		return invalid("customer_id", "is required for credit sales")
	}
	for i, item := range req.Items {
		if item.UnitPrice == nil {
			continue
		}
		if item.DiscountAmount.GreaterThan(item.Quantity.Mul(*item.UnitPrice)) {
			return invalid(fmt.Sprintf("items[%d].discount_amount", i), "exceeds the line amount")
		}
	}
	return nil
}

func (s *saleService) ProcessSale(ctx context.Context, actor Actor, req SaleRequest) (*SaleResult, error) {
	ctx, span := tracer.Start(ctx, "SaleService.ProcessSale", trace.WithAttributes(
		attribute.Int("sale.lines", len(req.Items)),
		attribute.String("sale.payment_method", string(req.PaymentMethod)),
	))
	defer span.End()

	if err := checkSaleRequest(req); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	taxRate, err := s.taxRate(ctx, req)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	var result *SaleResult
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		res, err := s.process(txCtx, actor, req, taxRate)
		if err != nil {
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		err = classify("process sale", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		var perr *PersistenceError
		if errors.As(err, &perr) {
			logger.LogError(s.log, "sale", "ProcessSale", "transaction", map[string]any{"lines": len(req.Items), "actor": actor.Name()}, err)
		}
		return nil, err
	}

	span.SetAttributes(attribute.String("sale.number", result.Sale.SaleNumber))
	s.log.WithFields(logrus.Fields{
		"module":      "sale",
		"sale_id":     result.Sale.ID,
		"sale_number": result.Sale.SaleNumber,
		"total":       result.Sale.TotalAmount.String(),
		"lines":       len(result.Sale.Items),
		"actor":       actor.Name(),
		"fallback":    result.NumberingFallback,
	}).Info("sale committed")
	return result, nil
}

func (s *saleService) taxRate(ctx context.Context, req SaleRequest) (decimal.Decimal, error) {
	if req.TaxRate != nil {
		return *req.TaxRate, nil
	}
	return s.settings.TaxRate(ctx)
}

// process runs the whole sale inside one transaction: lock, check, number,
// insert, decrement, record. Any error rolls every write back.
func (s *saleService) process(txCtx context.Context, actor Actor, req SaleRequest, taxRate decimal.Decimal) (*SaleResult, error) {
	customer, err := s.registeredCustomer(txCtx, req)
	if err != nil {
		return nil, err
	}

	ids := make([]uint, 0, len(req.Items))
	seen := make(map[uint]bool, len(req.Items))
	for _, item := range req.Items {
		if !seen[item.ProductID] {
			seen[item.ProductID] = true
			ids = append(ids, item.ProductID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	products, err := s.productRepo.LockByIDs(txCtx, ids)
	if err != nil {
		return nil, &PersistenceError{Op: "lock products", Err: err}
	}

	lines, err := priceLines(req, products)
	if err != nil {
		return nil, err
	}

	// The availability check reads the locked rows, so no other writer can
	// change stock between this check and the decrement below.
	requested := make(map[uint]decimal.Decimal, len(ids))
	for _, l := range lines {
		requested[l.product.ID] = requested[l.product.ID].Add(l.amount.Quantity)
	}
	if !req.AllowOverdraw {
		for _, id := range ids {
			p := products[id]
			if requested[id].GreaterThan(p.StockQuantity) {
				return nil, &InsufficientStockError{
					ProductID:   p.ID,
					ProductName: p.Name,
					Requested:   requested[id],
					Available:   p.StockQuantity,
				}
			}
		}
	}

	amounts := make([]LineAmount, len(lines))
	for i, l := range lines {
		amounts[i] = l.amount
	}
	totals := ComputeTotals(amounts, taxRate, req.DiscountAmount, req.AmountPaid)
	if req.DiscountAmount.GreaterThan(totals.Subtotal.Add(totals.TaxAmount)) {
		return nil, invalid("discount_amount", "exceeds the sale amount")
	}

	switch req.PaymentMethod {
	case model.PaymentCash:
		if totals.AmountPaid.LessThan(totals.TotalAmount) {
			return nil, invalid("amount_paid", fmt.Sprintf("cash received %s is less than the total %s", totals.AmountPaid, totals.TotalAmount))
		}
	case model.PaymentCard:
		if totals.AmountPaid.IsZero() {
			totals.AmountPaid = totals.TotalAmount
			totals.ChangeAmount = decimal.Zero
		}
	case model.PaymentCredit:
		outstanding := Outstanding(totals.TotalAmount, totals.AmountPaid)
		balance := customer.CurrentCredit.Add(outstanding)
		if customer.CreditLimit.IsPositive() && balance.GreaterThan(customer.CreditLimit) {
			return nil, &CreditLimitError{CustomerID: customer.ID, Limit: customer.CreditLimit, Requested: balance}
		}
	}

	if customer == nil && (req.WalkIn || strings.TrimSpace(req.CustomerName) != "") {
		customer, err = s.createWalkIn(txCtx, req.CustomerName)
		if err != nil {
			return nil, err
		}
	}

	number := s.numbering.Next(txCtx)

	sale := &model.Sale{
		SaleNumber:     number.Value,
		UserID:         actor.UserID,
		CreatedBy:      actor.Name(),
		Subtotal:       totals.Subtotal,
		TaxRate:        totals.TaxRate,
		TaxAmount:      totals.TaxAmount,
		DiscountAmount: totals.DiscountAmount,
		TotalAmount:    totals.TotalAmount,
		PaymentMethod:  req.PaymentMethod,
		PaymentStatus:  PaymentStatusFor(totals.TotalAmount, totals.AmountPaid),
		AmountPaid:     totals.AmountPaid,
		ChangeAmount:   totals.ChangeAmount,
		Notes:          strings.TrimSpace(req.Notes),
	}
	if customer != nil {
		sale.CustomerID = &customer.ID
	}
	if err := s.saleRepo.Create(txCtx, sale); err != nil {
		if repository.IsDuplicateKey(err) {
			return nil, &ConflictError{Entity: "sale", Field: "sale_number", Value: number.Value}
		}
		return nil, &PersistenceError{Op: "insert sale", Err: err}
	}

	items := make([]model.SaleItem, len(lines))
	for i, l := range lines {
		items[i] = model.SaleItem{
			SaleID:         sale.ID,
			ProductID:      l.product.ID,
			ProductName:    l.product.Name,
			Quantity:       l.amount.Quantity,
			UnitPrice:      l.amount.UnitPrice,
			DiscountAmount: l.amount.Discount,
			TotalPrice:     totals.LineTotals[i],
		}
	}
	if err := s.saleRepo.CreateItems(txCtx, items); err != nil {
		return nil, &PersistenceError{Op: "insert sale items", Err: err}
	}

	changes, err := s.decrementStock(txCtx, actor, sale, lines, req.AllowOverdraw)
	if err != nil {
		return nil, err
	}

	if req.PaymentMethod == model.PaymentCredit {
		if outstanding := Outstanding(totals.TotalAmount, totals.AmountPaid); outstanding.IsPositive() {
			if err := s.customerRepo.SetCredit(txCtx, customer.ID, customer.CurrentCredit.Add(outstanding)); err != nil {
				return nil, &PersistenceError{Op: "update customer credit", Err: err}
			}
		}
	}

	sale.Items = items
	summary := events.SaleSummary{
		SaleID:      sale.ID,
		SaleNumber:  sale.SaleNumber,
		TotalAmount: sale.TotalAmount,
		Lines:       len(items),
		CreatedBy:   sale.CreatedBy,
	}
	repository.AfterCommit(txCtx, func() {
		s.publisher.Publish(events.Event{Type: events.SaleCompleted, Data: summary})
		for _, c := range changes {
			s.publisher.Publish(events.Event{Type: events.StockChanged, Data: c})
		}
	})

	return &SaleResult{Sale: *sale, NumberingFallback: number.Fallback}, nil
}

func priceLines(req SaleRequest, products map[uint]*model.Product) ([]pricedLine, error) {
	lines := make([]pricedLine, len(req.Items))
	for i, item := range req.Items {
		p, ok := products[item.ProductID]
		if !ok {
			return nil, notFound("product", item.ProductID)
		}
		if !p.IsActive {
			return nil, &ReferenceNotFoundError{Entity: "product", ID: item.ProductID, Inactive: true}
		}

		price := p.SellingPrice
		if item.UnitPrice != nil {
			price = *item.UnitPrice
		}
		amount := LineAmount{Quantity: item.Quantity, UnitPrice: price, Discount: item.DiscountAmount}
		if amount.Discount.GreaterThan(amount.Quantity.Mul(price)) {
			return nil, invalid(fmt.Sprintf("items[%d].discount_amount", i), "exceeds the line amount")
		}
		lines[i] = pricedLine{product: p, amount: amount}
	}
	return lines, nil
}

// decrementStock takes each line off stock and writes its "out" movement.
// It returns one aggregated change per product for notification.
func (s *saleService) decrementStock(txCtx context.Context, actor Actor, sale *model.Sale, lines []pricedLine, allowOverdraw bool) ([]events.StockChange, error) {
	running := make(map[uint]decimal.Decimal, len(lines))
	changes := make(map[uint]*events.StockChange, len(lines))
	var order []uint

	for _, l := range lines {
		p := l.product
		before, ok := running[p.ID]
		if !ok {
			before = p.StockQuantity
		}
		qty := l.amount.Quantity

		after := before.Sub(qty)
		if !allowOverdraw && after.IsNegative() {
			return nil, &InsufficientStockError{ProductID: p.ID, ProductName: p.Name, Requested: qty, Available: before}
		}
		if err := s.productRepo.SetStock(txCtx, p.ID, after); err != nil {
			return nil, &PersistenceError{Op: "decrement stock", Err: err}
		}
		running[p.ID] = after

		movement := &model.StockMovement{
			ProductID:     p.ID,
			MovementType:  model.MovementOut,
			Quantity:      qty,
			StockBefore:   before,
			StockAfter:    after,
			ReferenceType: model.ReferenceSale,
			ReferenceID:   &sale.ID,
			Notes:         "Sale #" + sale.SaleNumber,
			CreatedBy:     actor.Name(),
		}
		if err := s.movementRepo.Create(txCtx, movement); err != nil {
			return nil, &PersistenceError{Op: "record sale movement", Err: err}
		}

		if c, ok := changes[p.ID]; ok {
			c.Quantity = c.Quantity.Add(qty)
			c.StockAfter = after
			continue
		}
		changes[p.ID] = &events.StockChange{
			ProductID:     p.ID,
			ProductName:   p.Name,
			MovementType:  string(model.MovementOut),
			ReferenceType: string(model.ReferenceSale),
			ReferenceID:   &sale.ID,
			Quantity:      qty,
			StockBefore:   before,
			StockAfter:    after,
		}
		order = append(order, p.ID)
	}

	out := make([]events.StockChange, 0, len(order))
	for _, id := range order {
		out = append(out, *changes[id])
	}
	return out, nil
}

// registeredCustomer loads the customer named by id. Credit sales lock the row
// because they move its balance.
func (s *saleService) registeredCustomer(txCtx context.Context, req SaleRequest) (*model.Customer, error) {
	if req.CustomerID == nil {
		return nil, nil
	}
	id := *req.CustomerID

	var (
		customer *model.Customer
		err      error
	)
	if req.PaymentMethod == model.PaymentCredit {
		customer, err = s.customerRepo.FindByIDForUpdate(txCtx, id)
	} else {
		customer, err = s.customerRepo.FindByID(txCtx, id)
	}
	if err != nil {
		return nil, lookupError("customer", id, "load customer", err)
	}
	if !customer.IsActive {
		return nil, &ReferenceNotFoundError{Entity: "customer", ID: id, Inactive: true}
	}
	return customer, nil
}

// createWalkIn records a placeholder customer for an unregistered buyer.
func (s *saleService) createWalkIn(txCtx context.Context, name string) (*model.Customer, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		count, err := s.customerRepo.Count(txCtx)
		if err != nil {
			return nil, &PersistenceError{Op: "count customers", Err: err}
		}
		name = fmt.Sprintf("Customer %d", count+1)
	}
	customer := &model.Customer{Name: name, IsWalkIn: true, IsActive: true}
	if err := s.customerRepo.Create(txCtx, customer); err != nil {
		return nil, &PersistenceError{Op: "create walk-in customer", Err: err}
	}
	return customer, nil
}

func (s *saleService) GetSale(ctx context.Context, id uint) (*model.Sale, error) {
	sale, err := s.saleRepo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError("sale", id, "load sale", err)
	}
	return sale, nil
}

func (s *saleService) GetSaleByNumber(ctx context.Context, number string) (*model.Sale, error) {
	sale, err := s.saleRepo.FindByNumber(ctx, number)
	if err != nil {
		return nil, lookupError("sale", number, "load sale", err)
	}
	return sale, nil
}

func (s *saleService) ListSales(ctx context.Context, q SaleListQuery) ([]model.Sale, int64, error) {
	page, limit := normalizePage(q.Page, q.Limit)
	sales, total, err := s.saleRepo.List(ctx, repository.SaleFilter{
		From:       q.From,
		To:         q.To,
		CustomerID: q.CustomerID,
		Offset:     (page - 1) * limit,
		Limit:      limit,
	})
	if err != nil {
		return nil, 0, &PersistenceError{Op: "list sales", Err: err}
	}
	return sales, total, nil
}

func normalizePage(page, limit int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	return page, limit
}
