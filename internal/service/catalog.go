package service

import (
	"fmt"

	"wholesale/internal/domain"
)

// OrderMode режим оформления заказа для товара
type OrderMode string

const (
	ModeNormal   OrderMode = "normal"
	ModePreorder OrderMode = "preorder"
)

// Availability проекция «можно ли заказать и в каком режиме».
// Верхней границы количества нет ни в одном режиме.
type Availability struct {
	Mode        OrderMode `json:"mode"`
	MinOrderQty int64     `json:"min_order_qty"`
	InStock     int64     `json:"in_stock"`
}

func AvailabilityOf(p domain.Product) Availability {
	a := Availability{Mode: ModeNormal, MinOrderQty: p.MinOrderQty, InStock: p.Quantity}
	if p.Quantity <= 0 {
		a.Mode = ModePreorder
		a.InStock = 0
	}
	if a.MinOrderQty < 1 {
		a.MinOrderQty = 1
	}
	return a
}

// Check проверяет запрошенное количество
func (a Availability) Check(qty int64) error {
	if qty <= 0 {
		return invalid("quantity must be a positive integer")
	}
	if qty < a.MinOrderQty {
		return invalid(fmt.Sprintf("minimum order quantity is %d", a.MinOrderQty))
	}
	return nil
}

// Status начальный статус заказа в этом режиме
func (a Availability) Status() domain.OrderStatus {
	if a.Mode == ModePreorder {
		return domain.OrderStatusPreorder
	}
	return domain.OrderStatusPending
}

// CatalogItem товар вместе с его доступностью
type CatalogItem struct {
	domain.Product
	Availability Availability `json:"availability"`
}
