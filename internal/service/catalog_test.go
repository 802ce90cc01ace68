package service

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"wholesale/internal/domain"
)

func TestAvailabilityOf(t *testing.T) {
	tests := []struct {
		name    string
		product domain.Product
		mode    OrderMode
		minQty  int64
		inStock int64
		status  domain.OrderStatus
	}{
		{"in stock", domain.Product{Quantity: 5, MinOrderQty: 2}, ModeNormal, 2, 5, domain.OrderStatusPending},
		{"empty", domain.Product{Quantity: 0, MinOrderQty: 1}, ModePreorder, 1, 0, domain.OrderStatusPreorder},
		{"legacy negative", domain.Product{Quantity: -3}, ModePreorder, 1, 0, domain.OrderStatusPreorder},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := AvailabilityOf(tt.product)
			assert.Equal(t, tt.mode, a.Mode)
			assert.Equal(t, tt.minQty, a.MinOrderQty)
			assert.Equal(t, tt.inStock, a.InStock)
			assert.Equal(t, tt.status, a.Status())
		})
	}
}

func TestAvailability_Check(t *testing.T) {
	a := AvailabilityOf(domain.Product{Quantity: 5, MinOrderQty: 3})
	assert.ErrorIs(t, a.Check(0), ErrInvalidInput)
	assert.ErrorIs(t, a.Check(2), ErrInvalidInput)
	assert.NoError(t, a.Check(3))
	// no upper bound, above-stock quantities are accepted
	assert.NoError(t, a.Check(500))
}

func TestRecomputeAggregates(t *testing.T) {
	assert.Equal(t, Aggregates{TotalSales: decimal.Zero, TotalProfit: decimal.Zero}, RecomputeAggregates(nil))

	orders := []domain.Order{
		{Quantity: 3, TotalPrice: decimal.NewFromInt(300), BuyPriceAtTime: decimal.NewFromInt(60), Status: domain.OrderStatusDelivered},
		{Quantity: 2, TotalPrice: decimal.RequireFromString("50.50"), BuyPriceAtTime: decimal.RequireFromString("20.25"), Status: domain.OrderStatusDelivered},
		{Quantity: 1, TotalPrice: decimal.NewFromInt(1000), BuyPriceAtTime: decimal.NewFromInt(1), Status: domain.OrderStatusPending},
		{Quantity: 1, TotalPrice: decimal.NewFromInt(1000), BuyPriceAtTime: decimal.NewFromInt(1), Status: domain.OrderStatusCancelled},
	}
	got := RecomputeAggregates(orders)
	assert.True(t, got.TotalSales.Equal(decimal.RequireFromString("350.50")), got.TotalSales.String())
	assert.True(t, got.TotalProfit.Equal(decimal.RequireFromString("130")), got.TotalProfit.String())
	assert.Equal(t, 4, got.OrderCount)

	again := RecomputeAggregates(orders)
	assert.True(t, again.TotalSales.Equal(got.TotalSales))
	assert.True(t, again.TotalProfit.Equal(got.TotalProfit))
}
