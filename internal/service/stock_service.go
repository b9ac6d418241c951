package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

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

// MovementRequest is a manual stock change. For in/out Quantity is the
// magnitude; for adjustment TargetQuantity is the counted stock and Reason is
// mandatory.
type MovementRequest struct {
	ProductID      uint                `json:"product_id" validate:"required"`
	MovementType   model.MovementType  `json:"movement_type" validate:"required,oneof=in out adjustment"`
	Quantity       decimal.Decimal     `json:"quantity"`
	TargetQuantity *decimal.Decimal    `json:"target_quantity,omitempty"`
	Reason         string              `json:"reason" validate:"max=255"`
	Notes          string              `json:"notes" validate:"max=500"`
	ReferenceType  model.ReferenceType `json:"reference_type" validate:"omitempty,oneof=purchase manual"`
	ReferenceID    *uint               `json:"reference_id,omitempty"`
	AllowOverdraw  bool                `json:"allow_overdraw"`
}

// MovementResult is the recorded stock card line and the product's new stock.
type MovementResult struct {
	Movement    model.StockMovement `json:"movement"`
	ProductName string              `json:"product_name"`
	StockStatus model.StockStatus   `json:"stock_status"`
}

// StockService is the adjustment engine: non-sale stock changes, each one a
// product update plus a ledger row in a single transaction.
type StockService interface {
	ApplyMovement(ctx context.Context, actor Actor, req MovementRequest) (*MovementResult, error)
}

type stockService struct {
	productRepo  repository.ProductRepository
	movementRepo repository.StockMovementRepository
	txManager    repository.TransactionManager
	publisher    events.Publisher
	log          *logrus.Logger
}

func NewStockService(
	productRepo repository.ProductRepository,
	movementRepo repository.StockMovementRepository,
	txManager repository.TransactionManager,
	publisher events.Publisher,
	log *logrus.Logger,
) StockService {
	return &stockService{
		productRepo:  productRepo,
		movementRepo: movementRepo,
		txManager:    txManager,
		publisher:    publisher,
		log:          log,
	}
}

func checkMovement(req MovementRequest) error {
	if err := validateStruct(req); err != nil {
		return err
	}
	switch req.MovementType {
	case model.MovementAdjustment:
		if req.TargetQuantity == nil {
			return invalid("target_quantity", "is required for an adjustment")
		}
		if req.TargetQuantity.IsNegative() {
			return invalid("target_quantity", "must be at least 0")
		}
		if strings.TrimSpace(req.Reason) == "" {
			return invalid("reason", "is required for an adjustment")
		}
	default:
		if !req.Quantity.IsPositive() {
			return invalid("quantity", "must be greater than 0")
		}
		if req.MovementType == model.MovementOut && req.ReferenceType == model.ReferencePurchase {
			return invalid("reference_type", "purchase applies to stock in only")
		}
	}
	return nil
}

func (s *stockService) ApplyMovement(ctx context.Context, actor Actor, req MovementRequest) (*MovementResult, error) {
	ctx, span := tracer.Start(ctx, "StockService.ApplyMovement", trace.WithAttributes(
		attribute.Int64("product.id", int64(req.ProductID)),
		attribute.String("movement.type", string(req.MovementType)),
	))
	defer span.End()

	if err := checkMovement(req); err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	var result *MovementResult
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		res, err := s.apply(txCtx, actor, req)
		if err != nil {
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		err = classify("apply stock movement", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		var perr *PersistenceError
		if errors.As(err, &perr) {
			logger.LogError(s.log, "stock", "ApplyMovement", "transaction", req, err)
		}
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"module":        "stock",
		"product_id":    req.ProductID,
		"movement_type": result.Movement.MovementType,
		"quantity":      result.Movement.Quantity.String(),
		"stock_after":   result.Movement.StockAfter.String(),
		"actor":         actor.Name(),
	}).Info("stock movement recorded")
	return result, nil
}

// apply runs inside a transaction. Event publication is deferred to commit.
func (s *stockService) apply(txCtx context.Context, actor Actor, req MovementRequest) (*MovementResult, error) {
	product, err := s.productRepo.FindByIDForUpdate(txCtx, req.ProductID)
	if err != nil {
		return nil, lookupError("product", req.ProductID, "lock product", err)
	}

	before := product.StockQuantity
	movement := model.StockMovement{
		ProductID:    product.ID,
		MovementType: req.MovementType,
		StockBefore:  before,
		ReferenceID:  req.ReferenceID,
		Notes:        strings.TrimSpace(req.Notes),
		CreatedBy:    actor.Name(),
	}

	switch req.MovementType {
	case model.MovementIn:
		movement.Quantity = req.Quantity
		movement.StockAfter = before.Add(req.Quantity)
		movement.ReferenceType = referenceOrManual(req.ReferenceType)
		if err := s.productRepo.SetStock(txCtx, product.ID, movement.StockAfter); err != nil {
			return nil, &PersistenceError{Op: "increase stock", Err: err}
		}

	case model.MovementOut:
		if req.Quantity.GreaterThan(before) && !req.AllowOverdraw {
			return nil, &InsufficientStockError{
				ProductID:   product.ID,
				ProductName: product.Name,
				Requested:   req.Quantity,
				Available:   before,
			}
		}
		movement.Quantity = req.Quantity
		movement.StockAfter = before.Sub(req.Quantity)
		movement.ReferenceType = model.ReferenceManual
		if err := s.productRepo.SetStock(txCtx, product.ID, movement.StockAfter); err != nil {
			return nil, &PersistenceError{Op: "decrease stock", Err: err}
		}

	case model.MovementAdjustment:
		target := *req.TargetQuantity
		movement.Quantity = target.Sub(before).Abs()
		movement.StockAfter = target
		movement.ReferenceType = model.ReferenceAdjustment
		movement.Notes = adjustmentNote(before, target, req.Reason, movement.Notes)
		if err := s.productRepo.SetStock(txCtx, product.ID, target); err != nil {
			return nil, &PersistenceError{Op: "set stock", Err: err}
		}
	}

	if err := s.movementRepo.Create(txCtx, &movement); err != nil {
		return nil, &PersistenceError{Op: "record stock movement", Err: err}
	}

	change := events.StockChange{
		ProductID:     product.ID,
		ProductName:   product.Name,
		MovementType:  string(movement.MovementType),
		ReferenceType: string(movement.ReferenceType),
		ReferenceID:   movement.ReferenceID,
		Quantity:      movement.Quantity,
		StockBefore:   movement.StockBefore,
		StockAfter:    movement.StockAfter,
	}
	repository.AfterCommit(txCtx, func() {
		s.publisher.Publish(events.Event{Type: events.StockChanged, Data: change})
	})

	return &MovementResult{
		Movement:    movement,
		ProductName: product.Name,
		StockStatus: model.ClassifyStock(movement.StockAfter, product.MinStockLevel),
	}, nil
}

func referenceOrManual(ref model.ReferenceType) model.ReferenceType {
	if ref == "" {
		return model.ReferenceManual
	}
	return ref
}

func adjustmentNote(before, after decimal.Decimal, reason, extra string) string {
	note := fmt.Sprintf("Stock adjustment: %s → %s. Reason: %s", before, after, strings.TrimSpace(reason))
	if extra != "" {
		note += ". " + extra
	}
	return note
}
