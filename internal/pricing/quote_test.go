package pricing

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fairyhunter13/order-admission-simulator/internal/model"
)

func customer(qty int64) model.Customer {
	return model.Customer{ID: 1, Order: model.Order{ProductID: 1, Quantity: qty}}
}

func product(available *bool, count *int64, price int64) *model.Product {
	return &model.Product{ID: 1, Available: available, Count: count, Price: price}
}

func TestQuoteBoundaries(t *testing.T) {
	cases := []struct {
		unit, qty int64
		price     int64
		rate      float64
		discount  float64
	}{
		{1999, 1, 1999, 0, 0},
		{1000, 2, 2000, 0.05, 100},
		{3999, 1, 3999, 0.05, 199.95},
		{1000, 4, 4000, 0.10, 400},
		{7999, 1, 7999, 0.10, 799.9},
		{1000, 8, 8000, 0.20, 1600},
		{5000, 3, 15000, 0.20, 3000},
	}
	for _, tc := range cases {
		q := QuoteFor(product(model.Bool(true), model.Int64(100), tc.unit), customer(tc.qty))
		assert.True(t, q.InStock)
		assert.Equal(t, tc.price, q.Price)
		assert.Equal(t, tc.rate, q.Rate, "price %d", tc.price)
		assert.InDelta(t, tc.discount, q.Discount, 1e-9, "price %d", tc.price)
		assert.InDelta(t, float64(tc.price)-tc.discount, q.Payable, 1e-9, "price %d", tc.price)
	}
}

func TestQuoteMessages(t *testing.T) {
	plain := QuoteFor(product(model.Bool(true), model.Int64(5), 500), customer(2))
	assert.Equal(t, "The customer details are added.\n\nThe price is 1000. Please Pay.", plain.Message())

	discounted := QuoteFor(product(model.Bool(true), model.Int64(5), 1000), customer(2))
	msg := discounted.Message()
	assert.True(t, strings.Contains(msg, "The price is 2000."), msg)
	assert.True(t, strings.Contains(msg, "Discounted Price is 100.0."), msg)
	assert.True(t, strings.HasSuffix(msg, "Please Pay. 1900.0"), msg)
}

func TestQuoteOutOfStock(t *testing.T) {
	cases := map[string]*model.Product{
		"missing":         nil,
		"unavailable":     product(model.Bool(false), model.Int64(10), 100),
		"quantity_exceed": product(model.Bool(true), model.Int64(1), 100),
		"unknown_count":   product(model.Bool(true), nil, 100),
	}
	for name, p := range cases {
		q := QuoteFor(p, customer(2))
		assert.False(t, q.InStock, name)
		assert.Equal(t, OutOfStockMessage, q.Message(), name)
	}
}

func TestQuoteUnknownAvailabilityIsPriced(t *testing.T) {
	q := QuoteFor(product(nil, model.Int64(10), 1000), customer(2))
	assert.True(t, q.InStock)
	assert.Equal(t, int64(2000), q.Price)
}

func TestQuoteDoesNotMutateProduct(t *testing.T) {
	p := product(model.Bool(true), model.Int64(3), 100)
	_ = QuoteFor(p, customer(3))
	assert.Equal(t, int64(3), *p.Count)
	assert.True(t, *p.Available)
}
