// Package backorder keeps the in-memory table of customers waiting on a product.
package backorder

import (
	"sync"

	"github.com/fairyhunter13/order-admission-simulator/internal/model"
)

// Index maps a product id to the customers waiting on it, in arrival order.
//
// Entries are only ever appended. The table lives for the life of the process.
type Index struct {
	mu sync.Mutex
	m  map[int64][]model.Customer
}

// New returns an empty Index.
func New() *Index {
	return &Index{m: make(map[int64][]model.Customer)}
}

// Append adds c to the end of the queue for productID, creating the queue if needed.
// It returns the queue length after the append.
func (x *Index) Append(productID int64, c model.Customer) int {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.m[productID] = append(x.m[productID], c)
	return len(x.m[productID])
}

// Waiting returns a copy of the queue for productID.
func (x *Index) Waiting(productID int64) []model.Customer {
	x.mu.Lock()
	defer x.mu.Unlock()
	q, ok := x.m[productID]
	if !ok {
		return nil
	}
	out := make([]model.Customer, len(q))
	copy(out, q)
	return out
}

// Snapshot returns a copy of the whole table.
func (x *Index) Snapshot() map[int64][]model.Customer {
	x.mu.Lock()
	defer x.mu.Unlock()
	out := make(map[int64][]model.Customer, len(x.m))
	for id, q := range x.m {
		cp := make([]model.Customer, len(q))
		copy(cp, q)
		out[id] = cp
	}
	return out
}

// Len returns the total number of waiting entries across all products.
func (x *Index) Len() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	n := 0
	for _, q := range x.m {
		n += len(q)
	}
	return n
}
