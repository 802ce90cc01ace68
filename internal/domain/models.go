package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product товар оптового каталога
type Product struct {
	ID          uuid.UUID       `json:"id"`
	Name        string          `json:"name"`
	Price       decimal.Decimal `json:"price"`
	BuyPrice    decimal.Decimal `json:"buy_price"`
	Quantity    int64           `json:"quantity"`
	MinOrderQty int64           `json:"min_order_qty"`
	ImageURL    string          `json:"image_url,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

// OrderStatus тип статуса заказа
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPreorder  OrderStatus = "preorder"
	OrderStatusShipped   OrderStatus = "shipped"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusRejected  OrderStatus = "rejected"
)

// Terminal reports whether no further transition is possible.
func (s OrderStatus) Terminal() bool {
	switch s {
	case OrderStatusDelivered, OrderStatusCancelled, OrderStatusRejected:
		return true
	}
	return false
}

// Valid reports whether s is a known status.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusPreorder, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled, OrderStatusRejected:
		return true
	}
	return false
}

// Order сущность заказа. ProductName и BuyPriceAtTime фиксируются при создании.
type Order struct {
	ID               uuid.UUID       `json:"id"`
	ProductID        uuid.UUID       `json:"product_id"`
	ProductName      string          `json:"product_name"`
	Quantity         int64           `json:"quantity"`
	TotalPrice       decimal.Decimal `json:"total_price"`
	BuyPriceAtTime   decimal.Decimal `json:"buy_price_at_time"`
	Status           OrderStatus     `json:"status"`
	UserID           uuid.UUID       `json:"user_id"`
	DeliveryPersonID *uuid.UUID      `json:"delivery_person_id,omitempty"`
	Address          string          `json:"address"`
	Phone            string          `json:"phone"`
	CreatedAt        time.Time       `json:"created_at"`
	DeliveryDate     *time.Time      `json:"delivery_date,omitempty"`
}

// UnitPrice цена за единицу, восстановленная из итоговой суммы
func (o Order) UnitPrice() decimal.Decimal {
	if o.Quantity == 0 {
		return decimal.Zero
	}
	return o.TotalPrice.Div(decimal.NewFromInt(o.Quantity))
}

// AssignedTo reports whether the order is assigned to the given rider.
func (o Order) AssignedTo(rider uuid.UUID) bool {
	return o.DeliveryPersonID != nil && *o.DeliveryPersonID == rider
}

// ProfileStatus статус доступа профиля
type ProfileStatus string

const (
	ProfileStatusPending  ProfileStatus = "pending"
	ProfileStatusApproved ProfileStatus = "approved"
	ProfileStatusRejected ProfileStatus = "rejected"
	ProfileStatusBlocked  ProfileStatus = "blocked"
)

func (s ProfileStatus) Valid() bool {
	switch s {
	case ProfileStatusPending, ProfileStatusApproved, ProfileStatusRejected, ProfileStatusBlocked:
		return true
	}
	return false
}

// Role роль пользователя
type Role string

const (
	RoleCustomer Role = "customer"
	RoleDelivery Role = "delivery"
	RoleAdmin    Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleDelivery, RoleAdmin:
		return true
	}
	return false
}

// Profile профиль пользователя
type Profile struct {
	ID           uuid.UUID     `json:"id"`
	Email        string        `json:"email"`
	FullName     string        `json:"full_name"`
	Phone        string        `json:"phone"`
	Address      string        `json:"address"`
	Role         Role          `json:"role"`
	Status       ProfileStatus `json:"status"`
	RegisteredAt time.Time     `json:"registered_at"`
}

// StockLog запись о пополнении склада, только добавление
type StockLog struct {
	ID           uuid.UUID `json:"id"`
	ProductID    uuid.UUID `json:"product_id"`
	AddedQty     int64     `json:"added_qty"`
	ResultingQty int64     `json:"resulting_qty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Account учётные данные для входа
type Account struct {
	ID           uuid.UUID
	Email        string
	PasswordHash []byte
	CreatedAt    time.Time
}

// Session активная сессия пользователя
type Session struct {
	Token     string
	AccountID uuid.UUID
	CreatedAt time.Time
	ExpiresAt time.Time
}

func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
