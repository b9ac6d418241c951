package service

import (
	"context"
	"time"

	"construction-pos/internal/model"
	"construction-pos/internal/repository"

	"github.com/sirupsen/logrus"
)

const defaultTopProducts = 10

type ReportService interface {
	Dashboard(ctx context.Context) (*model.DashboardStats, error)
	SalesSummary(ctx context.Context, from, to time.Time) (*model.SalesSummary, error)
	TopProducts(ctx context.Context, from, to time.Time, limit int) ([]model.ProductRanking, error)
	InventoryValuation(ctx context.Context, categoryID *uint) (*model.InventoryValuation, error)
}

type reportService struct {
	reportRepo  repository.ReportRepository
	productRepo repository.ProductRepository
	now         func() time.Time
	log         *logrus.Logger
}

// NewReportService builds the reporting read model. A nil clock means time.Now.
func NewReportService(reportRepo repository.ReportRepository, productRepo repository.ProductRepository, clock func() time.Time, log *logrus.Logger) ReportService {
	if clock == nil {
		clock = time.Now
	}
	return &reportService{reportRepo: reportRepo, productRepo: productRepo, now: clock, log: log}
}

// Dashboard reports today's takings against the shop's local calendar day.
func (s *reportService) Dashboard(ctx context.Context) (*model.DashboardStats, error) {
	now := s.now()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	end := start.AddDate(0, 0, 1)

	today, err := s.reportRepo.SaleTotals(ctx, &start, &end)
	if err != nil {
		return nil, &PersistenceError{Op: "sum today's sales", Err: err}
	}
	all, err := s.reportRepo.SaleTotals(ctx, nil, nil)
	if err != nil {
		return nil, &PersistenceError{Op: "sum sales", Err: err}
	}
	active, err := s.productRepo.CountActive(ctx)
	if err != nil {
		return nil, &PersistenceError{Op: "count products", Err: err}
	}
	low, err := s.productRepo.CountLowStock(ctx)
	if err != nil {
		return nil, &PersistenceError{Op: "count low stock", Err: err}
	}

	return &model.DashboardStats{
		Day:              start,
		TodaySales:       today.SaleCount,
		TodayRevenue:     today.TotalAmount,
		TotalSales:       all.SaleCount,
		TotalRevenue:     all.TotalAmount,
		ActiveProducts:   active,
		LowStockProducts: low,
	}, nil
}

func checkRange(from, to time.Time) error {
	if from.IsZero() || to.IsZero() {
		return invalid("range", "from and to are required")
	}
	if !to.After(from) {
		return invalid("to", "must be after from")
	}
	return nil
}

func (s *reportService) SalesSummary(ctx context.Context, from, to time.Time) (*model.SalesSummary, error) {
	if err := checkRange(from, to); err != nil {
		return nil, err
	}
	totals, err := s.reportRepo.SaleTotals(ctx, &from, &to)
	if err != nil {
		return nil, &PersistenceError{Op: "sum sales", Err: err}
	}
	byPayment, err := s.reportRepo.TotalsByPaymentMethod(ctx, from, to)
	if err != nil {
		return nil, &PersistenceError{Op: "group sales", Err: err}
	}
	return &model.SalesSummary{
		From:        from,
		To:          to,
		SaleCount:   totals.SaleCount,
		Subtotal:    totals.Subtotal,
		TaxAmount:   totals.TaxAmount,
		Discount:    totals.Discount,
		TotalAmount: totals.TotalAmount,
		ByPayment:   byPayment,
	}, nil
}

func (s *reportService) TopProducts(ctx context.Context, from, to time.Time, limit int) ([]model.ProductRanking, error) {
	if err := checkRange(from, to); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultTopProducts
	}
	rankings, err := s.reportRepo.TopProducts(ctx, from, to, limit)
	if err != nil {
		return nil, &PersistenceError{Op: "rank products", Err: err}
	}
	return rankings, nil
}

// InventoryValuation values stock on hand for active products, optionally
// narrowed to one category.
func (s *reportService) InventoryValuation(ctx context.Context, categoryID *uint) (*model.InventoryValuation, error) {
	report, err := s.reportRepo.InventoryValuation(ctx, categoryID)
	if err != nil {
		return nil, &PersistenceError{Op: "value inventory", Err: err}
	}
	return report, nil
}
