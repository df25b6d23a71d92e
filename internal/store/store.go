// Package store holds the in-memory customer store and inventory.
package store

import (
	"context"
	"sync"

	"github.com/fairyhunter13/order-admission-simulator/internal/admission"
	"github.com/fairyhunter13/order-admission-simulator/internal/model"
)

// Inventory is an in-memory product table. Reads hand out copies; the only
// way to change stock is ApplyDecrement or Upsert.
type Inventory struct {
	mu sync.RWMutex
	m  map[int64]model.Product
}

var _ admission.Inventory = (*Inventory)(nil)

// NewInventory returns an empty Inventory.
func NewInventory() *Inventory {
	return &Inventory{m: make(map[int64]model.Product)}
}

// Get returns a copy of the product.
func (s *Inventory) Get(_ context.Context, id int64) (model.Product, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.m[id]
	if !ok {
		return model.Product{}, false, nil
	}
	return clone(p), true, nil
}

// Upsert replaces the product with the given id.
func (s *Inventory) Upsert(_ context.Context, p model.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[p.ID] = clone(p)
	return nil
}

// ApplyDecrement checks and decrements under the write lock.
func (s *Inventory) ApplyDecrement(_ context.Context, id int64, qty int64) (model.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.m[id]
	if !ok {
		return model.Product{}, admission.ErrProductNotFound
	}
	p = clone(p)
	if !admission.CanFulfill(p, qty) {
		return p, admission.ErrInsufficientStock
	}
	admission.Decrement(&p, qty)
	s.m[id] = p
	return clone(p), nil
}

func clone(p model.Product) model.Product {
	if p.Available != nil {
		p.Available = model.Bool(*p.Available)
	}
	if p.Count != nil {
		p.Count = model.Int64(*p.Count)
	}
	return p
}

// Customers is an in-memory customer store keyed by customer id. FindByName
// returns matches in insertion order.
type Customers struct {
	mu    sync.RWMutex
	m     map[int64]model.Customer
	order []int64
}

var _ admission.CustomerStore = (*Customers)(nil)

// NewCustomers returns an empty Customers store.
func NewCustomers() *Customers {
	return &Customers{m: make(map[int64]model.Customer)}
}

// Save inserts or replaces the customer.
func (s *Customers) Save(_ context.Context, c model.Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.m[c.ID]; !ok {
		s.order = append(s.order, c.ID)
	}
	s.m[c.ID] = c
	return nil
}

// FindByID returns the customer with id.
func (s *Customers) FindByID(_ context.Context, id int64) (model.Customer, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.m[id]
	return c, ok, nil
}

// FindByName returns every customer whose name equals name exactly.
func (s *Customers) FindByName(_ context.Context, name string) ([]model.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Customer
	for _, id := range s.order {
		if c := s.m[id]; c.Name == name {
			out = append(out, c)
		}
	}
	return out, nil
}

// Len returns the number of stored customers.
func (s *Customers) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.m)
}
