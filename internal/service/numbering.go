package service

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	"construction-pos/internal/repository"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

const saleNumberPrefix = "POS"

// SaleNumber is a generated identifier. Fallback marks a number built from a
// random suffix after the sequence lookup failed; it is unique in practice but
// does not sort by sequence.
type SaleNumber struct {
	Value    string
	Fallback bool
}

// NumberingService hands out POS+YYYYMMDD+NNNN sale numbers. Call Next inside
// the sale transaction so the lookup and the insert share isolation.
type NumberingService interface {
	Next(ctx context.Context) SaleNumber
}

type NumberingOption func(*numberingService)

// WithClock replaces time.Now, mostly for tests.
func WithClock(clock func() time.Time) NumberingOption {
	return func(s *numberingService) { s.clock = clock }
}

// WithRandom replaces the fallback suffix source. fn returns a value in [0, n).
func WithRandom(fn func(n int) int) NumberingOption {
	return func(s *numberingService) { s.randN = fn }
}

type numberingService struct {
	saleRepo repository.SaleRepository
	log      *logrus.Logger
	clock    func() time.Time
	randN    func(n int) int
}

func NewNumberingService(saleRepo repository.SaleRepository, log *logrus.Logger, opts ...NumberingOption) NumberingService {
	s := &numberingService{
		saleRepo: saleRepo,
		log:      log,
		clock:    time.Now,
		randN:    rand.IntN,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *numberingService) Next(ctx context.Context) SaleNumber {
	ctx, span := tracer.Start(ctx, "NumberingService.Next")
	defer span.End()

	prefix := saleNumberPrefix + s.clock().Format("20060102")

	last, err := s.saleRepo.LastNumberWithPrefix(ctx, prefix)
	if err != nil {
		return s.fallback(prefix, err)
	}

	seq := 0
	if last != "" {
		seq, err = strconv.Atoi(last[len(prefix):])
		if err != nil {
			return s.fallback(prefix, fmt.Errorf("unparseable sale number %q: %w", last, err))
		}
	}

	number := fmt.Sprintf("%s%04d", prefix, seq+1)
	span.SetAttributes(attribute.String("sale.number", number))
	return SaleNumber{Value: number}
}

func (s *numberingService) fallback(prefix string, cause error) SaleNumber {
	number := fmt.Sprintf("%s%04d", prefix, s.randN(9999)+1)
	s.log.WithFields(logrus.Fields{
		"module":      "numbering",
		"prefix":      prefix,
		"sale_number": number,
		"error":       cause.Error(),
	}).Warn("sale number lookup failed, using random suffix")
	return SaleNumber{Value: number, Fallback: true}
}
