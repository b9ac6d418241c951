package service

import (
	"errors"
	"fmt"

	"construction-pos/internal/repository"

	"github.com/shopspring/decimal"
)

// ErrorKind is the stable classification callers switch on.
type ErrorKind string

const (
	KindValidation        ErrorKind = "validation"
	KindInsufficientStock ErrorKind = "insufficient_stock"
	KindReferenceNotFound ErrorKind = "reference_not_found"
	KindConflict          ErrorKind = "conflict"
	KindCreditLimit       ErrorKind = "credit_limit"
	KindPersistence       ErrorKind = "persistence"
	KindUnauthorized      ErrorKind = "unauthorized"
)

// KindedError is implemented by every typed error the services return.
type KindedError interface {
	error
	Kind() ErrorKind
	Details() map[string]any
}

// ValidationError rejects input before anything is written.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "invalid request: " + e.Reason
	}
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Kind() ErrorKind { return KindValidation }

func (e *ValidationError) Details() map[string]any {
	return map[string]any{"field": e.Field, "reason": e.Reason}
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// InsufficientStockError names the product that could not cover the request.
type InsufficientStockError struct {
	ProductID   uint
	ProductName string
	Requested   decimal.Decimal
	Available   decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %q (id %d): requested %s, available %s",
		e.ProductName, e.ProductID, e.Requested, e.Available)
}

func (e *InsufficientStockError) Kind() ErrorKind { return KindInsufficientStock }

func (e *InsufficientStockError) Details() map[string]any {
	return map[string]any{
		"product_id":   e.ProductID,
		"product_name": e.ProductName,
		"requested":    e.Requested,
		"available":    e.Available,
	}
}

// ReferenceNotFoundError reports a missing or inactive referenced entity.
type ReferenceNotFoundError struct {
	Entity   string
	ID       any
	Inactive bool
}

func (e *ReferenceNotFoundError) Error() string {
	if e.Inactive {
		return fmt.Sprintf("%s %v is inactive", e.Entity, e.ID)
	}
	return fmt.Sprintf("%s %v not found", e.Entity, e.ID)
}

func (e *ReferenceNotFoundError) Kind() ErrorKind { return KindReferenceNotFound }

func (e *ReferenceNotFoundError) Details() map[string]any {
	return map[string]any{"entity": e.Entity, "id": e.ID, "inactive": e.Inactive}
}

func notFound(entity string, id any) error {
	return &ReferenceNotFoundError{Entity: entity, ID: id}
}

// ConflictError is a uniqueness violation caught by the store.
type ConflictError struct {
	Entity string
	Field  string
	Value  any
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s with %s %v already exists", e.Entity, e.Field, e.Value)
}

func (e *ConflictError) Kind() ErrorKind { return KindConflict }

func (e *ConflictError) Details() map[string]any {
	return map[string]any{"entity": e.Entity, "field": e.Field, "value": e.Value}
}

// CreditLimitError rejects a credit sale that would push a customer past their limit.
type CreditLimitError struct {
	CustomerID uint
	Limit      decimal.Decimal
	Requested  decimal.Decimal
}

func (e *CreditLimitError) Error() string {
	return fmt.Sprintf("customer %d credit limit %s exceeded: balance would be %s", e.CustomerID, e.Limit, e.Requested)
}

func (e *CreditLimitError) Kind() ErrorKind { return KindCreditLimit }

func (e *CreditLimitError) Details() map[string]any {
	return map[string]any{"customer_id": e.CustomerID, "limit": e.Limit, "requested": e.Requested}
}

// PersistenceError wraps a storage failure. The operation was rolled back.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("failed to %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func (e *PersistenceError) Kind() ErrorKind { return KindPersistence }

func (e *PersistenceError) Details() map[string]any {
	return map[string]any{"op": e.Op}
}

// UnauthorizedError is returned for bad credentials or disabled accounts.
type UnauthorizedError struct {
	Reason string
}

func (e *UnauthorizedError) Error() string { return e.Reason }

func (e *UnauthorizedError) Kind() ErrorKind { return KindUnauthorized }

func (e *UnauthorizedError) Details() map[string]any { return nil }

// classify passes typed errors through and turns everything else into a PersistenceError.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var kinded KindedError
	if errors.As(err, &kinded) {
		return kinded
	}
	return &PersistenceError{Op: op, Err: err}
}

// lookupError maps a repository lookup failure.
func lookupError(entity string, id any, op string, err error) error {
	if repository.IsNotFound(err) {
		return notFound(entity, id)
	}
	return &PersistenceError{Op: op, Err: err}
}
