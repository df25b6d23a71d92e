// Package model defines domain types used by the service.
package model

import "time"

// Product represents the current inventory state of a product.
//
// Available and Count are nil when the inventory does not know them.
type Product struct {
	ID        int64  `json:"id" yaml:"id"`
	Available *bool  `json:"available,omitempty" yaml:"available,omitempty"`
	Count     *int64 `json:"count,omitempty" yaml:"count,omitempty"`
	Price     int64  `json:"price" yaml:"price"`
}

// Order is the single order a customer submits.
type Order struct {
	ID        string    `json:"order_id" yaml:"order_id"`
	ProductID int64     `json:"product_id" yaml:"product_id"`
	Quantity  int64     `json:"quantity" yaml:"quantity"`
	CreatedAt time.Time `json:"order_timestamp" yaml:"order_timestamp"`
}

// Customer carries exactly one order.
type Customer struct {
	ID            int64  `json:"customer_id" yaml:"customer_id"`
	Name          string `json:"customer_name" yaml:"customer_name"`
	Address       string `json:"customer_address" yaml:"customer_address"`
	ContactNumber string `json:"contact_number" yaml:"contact_number"`
	Order         Order  `json:"order" yaml:"order"`
}

// CustomerRecord is the flat projection returned by name lookups.
type CustomerRecord struct {
	Name           string    `json:"customer_name"`
	ID             int64     `json:"customer_id"`
	Address        string    `json:"customer_address"`
	ContactNumber  string    `json:"contact_number"`
	OrderID        string    `json:"order_id"`
	ProductID      int64     `json:"product_id"`
	OrderTimestamp time.Time `json:"order_timestamp"`
	Quantity       int64     `json:"quantity"`
}

// Record projects the customer and its order into a CustomerRecord.
func (c Customer) Record() CustomerRecord {
	return CustomerRecord{
		Name:           c.Name,
		ID:             c.ID,
		Address:        c.Address,
		ContactNumber:  c.ContactNumber,
		OrderID:        c.Order.ID,
		ProductID:      c.Order.ProductID,
		OrderTimestamp: c.Order.CreatedAt,
		Quantity:       c.Order.Quantity,
	}
}

// Outcome is the result of admitting one order.
type Outcome int

const (
	// Fulfilled means stock was decremented and the customer persisted.
	Fulfilled Outcome = iota + 1
	// Backordered means the product exists but could not cover the order.
	Backordered
	// ProductMissing means the product id is unknown to the inventory.
	ProductMissing
)

func (o Outcome) String() string {
	switch o {
	case Fulfilled:
		return "fulfilled"
	case Backordered:
		return "backordered"
	case ProductMissing:
		return "product_missing"
	default:
		return "unknown"
	}
}

// MarshalText renders the outcome by name.
func (o Outcome) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

// Bool returns a pointer to b, for tri-state fields.
func Bool(b bool) *bool { return &b }

// Int64 returns a pointer to n, for nullable counts.
func Int64(n int64) *int64 { return &n }
