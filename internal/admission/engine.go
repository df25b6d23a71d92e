// Package admission decides whether an incoming order is fulfilled now or
// deferred, and keeps the backorder table for deferred orders.
package admission

import (
	"context"
	"errors"
	"fmt"

	"github.com/fairyhunter13/order-admission-simulator/internal/backorder"
	"github.com/fairyhunter13/order-admission-simulator/internal/model"
	"github.com/fairyhunter13/order-admission-simulator/internal/obs"
)

// Result describes what Submit did with one order.
type Result struct {
	Outcome    model.Outcome `json:"outcome"`
	CustomerID int64         `json:"customer_id"`
	ProductID  int64         `json:"product_id"`
	Quantity   int64         `json:"quantity"`
	// Product is the inventory state after a fulfilled decrement.
	Product *model.Product `json:"product,omitempty"`
	// QueueLen is the backorder queue length for the product after an append.
	QueueLen int `json:"queue_len,omitempty"`
}

// Engine admits orders against an Inventory and records backorders.
type Engine struct {
	customers  CustomerStore
	inventory  Inventory
	backorders *backorder.Index
}

// NewEngine wires an Engine. A nil index gets a fresh empty one.
func NewEngine(customers CustomerStore, inventory Inventory, idx *backorder.Index) *Engine {
	if idx == nil {
		idx = backorder.New()
	}
	return &Engine{customers: customers, inventory: inventory, backorders: idx}
}

// Submit admits the customer's order.
//
// A missing product and a short product both append the customer to the
// backorder queue for the product id; neither is reported as an error.
// The returned error is only set when a collaborator fails. A failed Save
// after a successful decrement leaves the decrement in place.
func (e *Engine) Submit(ctx context.Context, c model.Customer) (Result, error) {
	productID := c.Order.ProductID
	qty := c.Order.Quantity
	res := Result{CustomerID: c.ID, ProductID: productID, Quantity: qty}

	p, err := e.inventory.ApplyDecrement(ctx, productID, qty)
	switch {
	case errors.Is(err, ErrProductNotFound):
		res.Outcome = model.ProductMissing
		res.QueueLen = e.backorders.Append(productID, c)
		obs.Logger.Errorw("product_not_found",
			"customer_id", c.ID,
			"product_id", productID,
			"queue_len", res.QueueLen,
		)
		return res, nil
	case errors.Is(err, ErrInsufficientStock):
		res.Outcome = model.Backordered
		res.QueueLen = e.backorders.Append(productID, c)
		obs.Logger.Infow("order_backordered",
			"customer_id", c.ID,
			"product_id", productID,
			"quantity", qty,
			"queue_len", res.QueueLen,
		)
		return res, nil
	case err != nil:
		return res, fmt.Errorf("apply decrement for product %d: %w", productID, err)
	}

	res.Outcome = model.Fulfilled
	res.Product = &p
	if err := e.customers.Save(ctx, c); err != nil {
		obs.Logger.Errorw("customer_save_failed",
			"customer_id", c.ID,
			"product_id", productID,
			"error", err,
		)
		return res, fmt.Errorf("save customer %d: %w", c.ID, err)
	}
	obs.Logger.Infow("order_fulfilled",
		"customer_id", c.ID,
		"product_id", productID,
		"quantity", qty,
	)
	return res, nil
}

// Backorders returns a copy of the full product to waiting-customers table.
func (e *Engine) Backorders() map[int64][]model.Customer {
	return e.backorders.Snapshot()
}

// Waiting returns a copy of the backorder queue for one product.
func (e *Engine) Waiting(productID int64) []model.Customer {
	return e.backorders.Waiting(productID)
}

// FindCustomersByName returns the records of every stored customer named
// name, in store order. It never returns nil and never fails: an empty match
// or a store error is logged and yields an empty slice.
func (e *Engine) FindCustomersByName(ctx context.Context, name string) []model.CustomerRecord {
	out := []model.CustomerRecord{}
	customers, err := e.customers.FindByName(ctx, name)
	if err != nil {
		obs.Logger.Errorw("customer_lookup_failed", "customer_name", name, "error", err)
		return out
	}
	if len(customers) == 0 {
		obs.Logger.Errorw("customer_not_found", "customer_name", name)
		return out
	}
	for _, c := range customers {
		out = append(out, c.Record())
	}
	return out
}

// CustomerByID looks up a stored customer.
func (e *Engine) CustomerByID(ctx context.Context, id int64) (model.Customer, bool, error) {
	c, ok, err := e.customers.FindByID(ctx, id)
	if err != nil {
		return model.Customer{}, false, fmt.Errorf("find customer %d: %w", id, err)
	}
	return c, ok, nil
}

// Product returns the current inventory state of a product.
func (e *Engine) Product(ctx context.Context, id int64) (model.Product, bool, error) {
	p, ok, err := e.inventory.Get(ctx, id)
	if err != nil {
		return model.Product{}, false, fmt.Errorf("get product %d: %w", id, err)
	}
	return p, ok, nil
}
