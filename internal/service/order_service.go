package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"wholesale/internal/domain"
	"wholesale/internal/events"
	"wholesale/internal/metrics"
	"wholesale/internal/repository"
)

// OrdersTable имя таблицы заказов в ленте изменений
const OrdersTable = "orders"

// OrderService реализует жизненный цикл заказа: оформление, назначение курьера,
// доставку со списанием склада, отмену и отклонение
type OrderService struct {
	products repository.ProductRepository
	orders   repository.OrderRepository
	profiles repository.ProfileRepository
	tx       repository.TxManager
	events   events.Publisher
	metrics  *metrics.Metrics
	now      func() time.Time
}

func NewOrderService(store repository.Store, pub events.Publisher, m *metrics.Metrics) *OrderService {
	return &OrderService{
		products: store.Products,
		orders:   store.Orders,
		profiles: store.Profiles,
		tx:       store.Tx,
		events:   pub,
		metrics:  m,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// PlaceOrder проверяет количество и оформляет заказ. Склад не списывается:
// остаток уменьшается только при доставке.
func (s *OrderService) PlaceOrder(ctx context.Context, customerID, productID uuid.UUID, qty int64) (*domain.Order, error) {
	if customerID == uuid.Nil || productID == uuid.Nil {
		return nil, ErrInvalidInput
	}
	p, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	avail := AvailabilityOf(*p)
	if err := avail.Check(qty); err != nil {
		return nil, err
	}
	customer, err := s.profiles.GetByID(ctx, customerID)
	if err != nil {
		return nil, errors.Wrap(err, "load customer profile")
	}

	o := domain.Order{
		ProductID:      p.ID,
		ProductName:    p.Name,
		Quantity:       qty,
		TotalPrice:     p.Price.Mul(decimal.NewFromInt(qty)),
		BuyPriceAtTime: p.BuyPrice,
		Status:         avail.Status(),
		UserID:         customerID,
		Address:        customer.Address,
		Phone:          customer.Phone,
	}
	if err := s.orders.Create(ctx, &o); err != nil {
		return nil, err
	}
	s.metrics.OrderPlaced(string(o.Status))
	s.publish(ctx, events.Insert, o)
	log.WithFields(log.Fields{"order_id": o.ID, "product_id": p.ID, "quantity": qty, "status": o.Status}).Info("order placed")
	return &o, nil
}

// AssignRider передаёт заказ курьеру: pending/preorder -> shipped
func (s *OrderService) AssignRider(ctx context.Context, orderID, riderID uuid.UUID) (*domain.Order, error) {
	if orderID == uuid.Nil || riderID == uuid.Nil {
		return nil, ErrInvalidInput
	}
	var updated *domain.Order
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		o, err := s.orders.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if o.Status != domain.OrderStatusPending && o.Status != domain.OrderStatusPreorder {
			return errors.Wrapf(ErrInvalidTransition, "cannot assign rider to %s order", o.Status)
		}
		rider, err := s.profiles.GetByID(ctx, riderID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return invalid("rider not found")
			}
			return err
		}
		if rider.Role != domain.RoleDelivery || rider.Status != domain.ProfileStatusApproved {
			return invalid("profile is not an approved rider")
		}
		o.DeliveryPersonID = &rider.ID
		o.Status = domain.OrderStatusShipped
		if err := s.orders.Update(ctx, o); err != nil {
			return err
		}
		updated = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.Transition(string(updated.Status))
	s.publish(ctx, events.Update, *updated)
	log.WithFields(log.Fields{"order_id": orderID, "rider_id": riderID}).Info("rider assigned")
	return updated, nil
}

// CompleteDelivery отмечает доставку и в той же транзакции списывает остаток
// условным обновлением. Курьер может закрыть только свой заказ в статусе shipped,
// администратор — любой незавершённый. Если остатка не хватает, транзакция
// откатывается и возвращается repository.ErrInsufficientStock.
func (s *OrderService) CompleteDelivery(ctx context.Context, orderID uuid.UUID, actor domain.Profile) (*domain.Order, error) {
	if orderID == uuid.Nil {
		return nil, ErrInvalidInput
	}
	var updated *domain.Order
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		o, err := s.orders.GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		switch actor.Role {
		case domain.RoleAdmin:
			if o.Status.Terminal() {
				return errors.Wrapf(ErrInvalidTransition, "cannot deliver %s order", o.Status)
			}
		case domain.RoleDelivery:
			if !o.AssignedTo(actor.ID) {
				return errors.Wrap(ErrForbidden, "order is not assigned to this rider")
			}
			if o.Status != domain.OrderStatusShipped {
				return errors.Wrapf(ErrInvalidTransition, "cannot deliver %s order", o.Status)
			}
		default:
			return ErrForbidden
		}

		// stock first: on the memory store a failed guard leaves nothing to undo
		if _, err := s.products.AdjustQuantity(ctx, o.ProductID, -o.Quantity); err != nil {
			if errors.Is(err, repository.ErrInsufficientStock) {
				s.metrics.StockRejected()
			}
			return errors.Wrapf(err, "decrement stock of product %s", o.ProductID)
		}
		deliveredAt := s.now()
		o.Status = domain.OrderStatusDelivered
		o.DeliveryDate = &deliveredAt
		if err := s.orders.Update(ctx, o); err != nil {
			return err
		}
		updated = o
		return nil
	})
	if err != nil {
		log.WithError(err).WithField("order_id", orderID).Warn("delivery not completed")
		return nil, err
	}
	s.metrics.Transition(string(updated.Status))
	s.metrics.Delivered(updated.Quantity)
	s.publish(ctx, events.Update, *updated)
	log.WithFields(log.Fields{"order_id": orderID, "product_id": updated.ProductID, "quantity": updated.Quantity}).Info("order delivered")
	return updated, nil
}

// CancelOrder административная отмена без движения склада
func (s *OrderService) CancelOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return s.close(ctx, id, domain.OrderStatusCancelled)
}

// RejectOrder административное отклонение без движения склада
func (s *OrderService) RejectOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return s.close(ctx, id, domain.OrderStatusRejected)
}

func (s *OrderService) close(ctx context.Context, id uuid.UUID, to domain.OrderStatus) (*domain.Order, error) {
	if id == uuid.Nil {
		return nil, ErrInvalidInput
	}
	var updated *domain.Order
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		o, err := s.orders.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if o.Status.Terminal() {
			return errors.Wrapf(ErrInvalidTransition, "cannot move %s order to %s", o.Status, to)
		}
		o.Status = to
		if err := s.orders.Update(ctx, o); err != nil {
			return err
		}
		updated = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.metrics.Transition(string(to))
	s.publish(ctx, events.Update, *updated)
	log.WithFields(log.Fields{"order_id": id, "status": to}).Info("order closed")
	return updated, nil
}

// GetOrder возвращает заказ по id
func (s *OrderService) GetOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	if id == uuid.Nil {
		return nil, ErrInvalidInput
	}
	return s.orders.GetByID(ctx, id)
}

func (s *OrderService) ListOrders(ctx context.Context, f repository.OrderFilter) ([]domain.Order, error) {
	return s.orders.List(ctx, f)
}

// Dashboard сводка считается по всем заказам, поиск по названию влияет только на список
type Dashboard struct {
	Stats  Aggregates     `json:"stats"`
	Orders []domain.Order `json:"orders"`
}

func (s *OrderService) Dashboard(ctx context.Context, search string) (*Dashboard, error) {
	all, err := s.orders.List(ctx, repository.OrderFilter{})
	if err != nil {
		return nil, err
	}
	d := &Dashboard{Stats: RecomputeAggregates(all), Orders: all}
	if search != "" {
		d.Orders, err = s.orders.List(ctx, repository.OrderFilter{ProductNameSubstring: search})
		if err != nil {
			return nil, err
		}
	}
	return d, nil
}

// publish: durable state is already committed, so a lost notification is only logged
func (s *OrderService) publish(ctx context.Context, typ events.ChangeType, o domain.Order) {
	if s.events == nil {
		return
	}
	cols := map[string]string{
		"id":         o.ID.String(),
		"status":     string(o.Status),
		"user_id":    o.UserID.String(),
		"product_id": o.ProductID.String(),
	}
	if o.DeliveryPersonID != nil {
		cols["delivery_person_id"] = o.DeliveryPersonID.String()
	}
	c, err := events.NewChange(OrdersTable, typ, cols, o)
	if err == nil {
		err = s.events.Publish(ctx, c)
	}
	if err != nil {
		log.WithError(err).WithField("order_id", o.ID).Warn("order change not published")
	}
}
