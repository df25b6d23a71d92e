// Package scenario loads simulation inputs: an inventory seed, the orders to
// submit and the quotes to price.
package scenario

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/fairyhunter13/order-admission-simulator/internal/model"
)

// QuoteRequest asks for a price quote for one customer order.
type QuoteRequest struct {
	CustomerID int64 `yaml:"customer_id"`
	ProductID  int64 `yaml:"product_id"`
	Quantity   int64 `yaml:"quantity"`
}

// Scenario is the decoded scenario file.
type Scenario struct {
	Products []model.Product  `yaml:"products"`
	Orders   []model.Customer `yaml:"orders"`
	Quotes   []QuoteRequest   `yaml:"quotes"`
	// Lookups lists customer names to resolve after the orders ran.
	Lookups []string `yaml:"lookups"`
}

// Load reads a scenario from path.
func Load(path string) (Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return Scenario{}, fmt.Errorf("open scenario: %w", err)
	}
	defer f.Close()
	return Decode(f, time.Now)
}

// Decode parses a scenario. Orders without an id get a random one, and orders
// without a timestamp get now().
func Decode(r io.Reader, now func() time.Time) (Scenario, error) {
	var s Scenario
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil && err != io.EOF {
		return Scenario{}, fmt.Errorf("decode scenario: %w", err)
	}
	seen := make(map[int64]bool, len(s.Products))
	for _, p := range s.Products {
		if seen[p.ID] {
			return Scenario{}, fmt.Errorf("duplicate product id %d", p.ID)
		}
		seen[p.ID] = true
	}
	for i := range s.Orders {
		o := &s.Orders[i].Order
		if o.ID == "" {
			o.ID = uuid.NewString()
		}
		if o.CreatedAt.IsZero() {
			o.CreatedAt = now().UTC()
		}
	}
	return s, nil
}
