package admission

import (
	"context"
	"errors"

	"github.com/fairyhunter13/order-admission-simulator/internal/model"
)

var (
	// ErrProductNotFound is returned by an Inventory when the product id is unknown.
	ErrProductNotFound = errors.New("product not found")
	// ErrInsufficientStock is returned by an Inventory when the product is
	// unavailable, its count is unknown, or the count is below the quantity.
	ErrInsufficientStock = errors.New("insufficient stock")
)

// CustomerStore persists customers together with their order.
type CustomerStore interface {
	Save(ctx context.Context, c model.Customer) error
	FindByID(ctx context.Context, id int64) (model.Customer, bool, error)
	FindByName(ctx context.Context, name string) ([]model.Customer, error)
}

// Inventory looks up products and applies stock decrements.
//
// ApplyDecrement must check and decrement as one atomic step per product:
// it returns ErrProductNotFound or ErrInsufficientStock without changing
// anything, or the product as it is after the decrement. A decrement that
// reaches exactly zero marks the product unavailable.
type Inventory interface {
	Get(ctx context.Context, id int64) (model.Product, bool, error)
	ApplyDecrement(ctx context.Context, id int64, qty int64) (model.Product, error)
}

// CanFulfill reports whether p covers qty for admission purposes. Unknown
// availability or an unknown count never qualifies.
//
// Inventories use it inside their critical section.
func CanFulfill(p model.Product, qty int64) bool {
	if p.Available == nil || !*p.Available {
		return false
	}
	if p.Count == nil {
		return false
	}
	return qty <= *p.Count
}

// Decrement applies qty to p in place. Callers must have checked CanFulfill.
func Decrement(p *model.Product, qty int64) {
	left := *p.Count - qty
	p.Count = &left
	if left == 0 {
		p.Available = model.Bool(false)
	}
}
