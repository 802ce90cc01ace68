// Package notify raises assignment alerts to riders from the order change feed.
package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"wholesale/internal/domain"
	"wholesale/internal/events"
	"wholesale/internal/metrics"
	"wholesale/internal/repository"
)

const (
	ordersTable   = "orders"
	defaultBuffer = 16
)

// Alert is raised when an order assigned to the rider becomes shipped.
// Orders is a fresh read of everything assigned to the rider, not the event payload.
type Alert struct {
	OrderID uuid.UUID      `json:"order_id"`
	Orders  []domain.Order `json:"orders"`
	At      time.Time      `json:"at"`
}

// OrderLister re-reads the rider's orders after an event.
type OrderLister interface {
	ListOrders(ctx context.Context, f repository.OrderFilter) ([]domain.Order, error)
}

type Subscriber interface {
	Subscribe(f events.Filter, h events.Handler) (events.Subscription, error)
}

type RiderChannel struct {
	bus     Subscriber
	orders  OrderLister
	metrics *metrics.Metrics
	buffer  int
}

func NewRiderChannel(bus Subscriber, orders OrderLister, m *metrics.Metrics) *RiderChannel {
	return &RiderChannel{bus: bus, orders: orders, metrics: m, buffer: defaultBuffer}
}

// Listen subscribes to updates of orders assigned to rider. The returned channel is
// closed after ctx is done. Alerts that do not fit the buffer are dropped.
func (c *RiderChannel) Listen(ctx context.Context, rider uuid.UUID) (<-chan Alert, error) {
	if rider == uuid.Nil {
		return nil, errors.New("rider id is required")
	}
	shipped := make(chan uuid.UUID, c.buffer)
	filter := events.Filter{
		Table:  ordersTable,
		Type:   events.Update,
		Column: "delivery_person_id",
		Value:  rider.String(),
	}
	sub, err := c.bus.Subscribe(filter, func(ch events.Change) {
		if ch.Columns["status"] != string(domain.OrderStatusShipped) {
			return
		}
		id, err := uuid.Parse(ch.Columns["id"])
		if err != nil {
			log.WithError(err).Warn("order change without id")
			return
		}
		// bus handlers must not block
		select {
		case shipped <- id:
		default:
			log.WithFields(log.Fields{"rider_id": rider, "order_id": id}).Warn("rider alert dropped")
		}
	})
	if err != nil {
		return nil, errors.Wrap(err, "subscribe to rider orders")
	}

	out := make(chan Alert, c.buffer)
	go func() {
		defer close(out)
		defer func() {
			if err := sub.Unsubscribe(); err != nil {
				log.WithError(err).Warn("unsubscribe rider channel")
			}
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case id := <-shipped:
				orders, err := c.orders.ListOrders(ctx, repository.OrderFilter{DeliveryPersonID: &rider})
				if err != nil {
					log.WithError(err).WithField("rider_id", rider).Warn("reload rider orders")
					continue
				}
				c.metrics.RiderAlert()
				select {
				case out <- Alert{OrderID: id, Orders: orders, At: time.Now().UTC()}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
