package events

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

type Type string

const (
	StockChanged  Type = "stock.changed"
	SaleCompleted Type = "sale.completed"
)

// Event is what subscribers receive. Data holds a StockChange or SaleSummary.
type Event struct {
	Type Type      `json:"event"`
	At   time.Time `json:"at"`
	Data any       `json:"data"`
}

type StockChange struct {
	ProductID     uint            `json:"product_id"`
	ProductName   string          `json:"product_name"`
	MovementType  string          `json:"movement_type"`
	ReferenceType string          `json:"reference_type"`
	ReferenceID   *uint           `json:"reference_id,omitempty"`
	Quantity      decimal.Decimal `json:"quantity"`
	StockBefore   decimal.Decimal `json:"stock_before"`
	StockAfter    decimal.Decimal `json:"stock_after"`
}

type SaleSummary struct {
	SaleID      uint            `json:"sale_id"`
	SaleNumber  string          `json:"sale_number"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	Lines       int             `json:"lines"`
	CreatedBy   string          `json:"created_by"`
}

// Publisher is what the engines depend on.
type Publisher interface {
	Publish(e Event)
}

// Bus is an in-process observer list. Publish calls subscribers synchronously
// in subscription order; a slow subscriber should hand off to its own goroutine.
type Bus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[int]func(Event)
	order  []int
}

func NewBus() *Bus {
	return &Bus{subs: make(map[int]func(Event))}
}

// Subscribe registers fn and returns a function that removes it.
func (b *Bus) Subscribe(fn func(Event)) (unsubscribe func()) {
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = fn
	b.order = append(b.order, id)
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs, id)
		for i, v := range b.order {
			if v == id {
				b.order = append(b.order[:i], b.order[i+1:]...)
				break
			}
		}
	}
}

func (b *Bus) Publish(e Event) {
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}

	b.mu.RLock()
	fns := make([]func(Event), 0, len(b.order))
	for _, id := range b.order {
		fns = append(fns, b.subs[id])
	}
	b.mu.RUnlock()

	for _, fn := range fns {
		fn(e)
	}
}

// Nop discards events.
type Nop struct{}

func (Nop) Publish(Event) {}
