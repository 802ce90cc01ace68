package service

import (
	"github.com/shopspring/decimal"

	"wholesale/internal/domain"
)

// Aggregates сводка продаж для панели администратора
type Aggregates struct {
	TotalSales  decimal.Decimal `json:"total_sales"`
	TotalProfit decimal.Decimal `json:"total_profit"`
	OrderCount  int             `json:"order_count"`
}

// RecomputeAggregates считает выручку и прибыль только по доставленным заказам,
// а количество — по всем. Чистая функция.
func RecomputeAggregates(orders []domain.Order) Aggregates {
	agg := Aggregates{TotalSales: decimal.Zero, TotalProfit: decimal.Zero, OrderCount: len(orders)}
	for _, o := range orders {
		if o.Status != domain.OrderStatusDelivered {
			continue
		}
		cost := o.BuyPriceAtTime.Mul(decimal.NewFromInt(o.Quantity))
		agg.TotalSales = agg.TotalSales.Add(o.TotalPrice)
		agg.TotalProfit = agg.TotalProfit.Add(o.TotalPrice.Sub(cost))
	}
	return agg
}
