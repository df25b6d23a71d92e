// Package pricing computes price quotes with tiered discounts.
package pricing

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/fairyhunter13/order-admission-simulator/internal/model"
	"github.com/fairyhunter13/order-admission-simulator/internal/obs"
)

// OutOfStockMessage is returned whenever the product cannot cover the order.
const OutOfStockMessage = "The product is out of stock for now.\nWe'll notify you once the product is restocked"

// tier is a price band: prices at or above floor get rate.
type tier struct {
	floor int64
	rate  float64
}

// tiers is ordered from the highest floor down.
var tiers = []tier{
	{floor: 8000, rate: 0.20},
	{floor: 4000, rate: 0.10},
	{floor: 2000, rate: 0.05},
}

// Quote is the priced result for one customer order.
type Quote struct {
	InStock  bool    `json:"in_stock"`
	Price    int64   `json:"price"`
	Rate     float64 `json:"discount_rate"`
	Discount float64 `json:"discount"`
	Payable  float64 `json:"payable"`
}

// DiscountRate returns the discount rate for a total price.
func DiscountRate(price int64) float64 {
	for _, t := range tiers {
		if price >= t.floor {
			return t.rate
		}
	}
	return 0
}

// QuoteFor prices the customer's order against product. It does not mutate
// anything.
//
// Only an explicit false availability blocks the quote; an unknown
// availability passes as long as the count covers the quantity.
func QuoteFor(product *model.Product, customer model.Customer) Quote {
	if product == nil {
		obs.Logger.Warnw("quote_product_not_found", "customer_id", customer.ID)
		return Quote{}
	}
	qty := customer.Order.Quantity
	if (product.Available != nil && !*product.Available) || product.Count == nil || qty > *product.Count {
		obs.Logger.Warnw("quote_out_of_stock", "customer_id", customer.ID, "product_id", product.ID)
		return Quote{}
	}

	price := product.Price * qty
	rate := DiscountRate(price)
	discount := float64(price) * rate
	q := Quote{
		InStock:  true,
		Price:    price,
		Rate:     rate,
		Discount: discount,
		Payable:  float64(price) - discount,
	}
	if rate == 0 {
		obs.Logger.Infow("quote_priced", "customer_id", customer.ID, "price", price)
	} else {
		obs.Logger.Infow("quote_priced",
			"customer_id", customer.ID,
			"price", price,
			"discount", discount,
			"payable", q.Payable,
		)
	}
	return q
}

// Message renders the quote for a customer.
func (q Quote) Message() string {
	if !q.InStock {
		return OutOfStockMessage
	}
	if q.Rate == 0 {
		return fmt.Sprintf("The customer details are added.\n\nThe price is %d. Please Pay.", q.Price)
	}
	return fmt.Sprintf("The customer details are added.\n\nThe price is %d.\n\nDiscounted Price is %s.\n\nPlease Pay. %s",
		q.Price, formatAmount(q.Discount), formatAmount(q.Payable))
}

func formatAmount(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if strings.Contains(s, ".") {
		return s
	}
	return s + ".0"
}
