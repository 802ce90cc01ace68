package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wholesale/internal/domain"
	"wholesale/internal/events"
	"wholesale/internal/metrics"
	"wholesale/internal/repository"
)

type fixture struct {
	store    repository.Store
	bus      *events.MemoryBus
	products *ProductService
	orders   *OrderService
	admin    domain.Profile
	customer domain.Profile
	rider    domain.Profile
}

func setup(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := repository.NewMemory()
	bus := events.NewMemoryBus()
	m := metrics.New()
	f := &fixture{
		store:    store,
		bus:      bus,
		products: NewProductService(store, m),
		orders:   NewOrderService(store, bus, m),
		admin:    domain.Profile{ID: uuid.New(), Email: "admin@shop.test", FullName: "Admin", Role: domain.RoleAdmin, Status: domain.ProfileStatusApproved},
		customer: domain.Profile{ID: uuid.New(), Email: "c@shop.test", FullName: "Karim", Phone: "017", Address: "Mirpur 10", Role: domain.RoleCustomer, Status: domain.ProfileStatusApproved},
		rider:    domain.Profile{ID: uuid.New(), Email: "r@shop.test", FullName: "Rafi", Role: domain.RoleDelivery, Status: domain.ProfileStatusApproved},
	}
	for _, p := range []*domain.Profile{&f.admin, &f.customer, &f.rider} {
		require.NoError(t, store.Profiles.Create(ctx, p))
	}
	return f
}

func (f *fixture) product(t *testing.T, price, buy int64, qty, minQty int64) *domain.Product {
	t.Helper()
	p, err := f.products.Create(context.Background(), domain.Product{
		Name: "Miniket rice", Price: decimal.NewFromInt(price), BuyPrice: decimal.NewFromInt(buy),
		Quantity: qty, MinOrderQty: minQty,
	})
	require.NoError(t, err)
	return p
}

func TestOrderLifecycle_Scenario(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	p := f.product(t, 100, 60, 5, 2)

	o, err := f.orders.PlaceOrder(ctx, f.customer.ID, p.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPending, o.Status)
	assert.True(t, o.TotalPrice.Equal(decimal.NewFromInt(300)))
	assert.True(t, o.BuyPriceAtTime.Equal(decimal.NewFromInt(60)))
	assert.Equal(t, "Mirpur 10", o.Address)
	assert.Equal(t, p.Name, o.ProductName)

	// placing does not touch stock
	pp, _ := f.products.GetByID(ctx, p.ID)
	assert.Equal(t, int64(5), pp.Quantity)

	o, err = f.orders.AssignRider(ctx, o.ID, f.rider.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusShipped, o.Status)
	require.NotNil(t, o.DeliveryPersonID)

	o, err = f.orders.CompleteDelivery(ctx, o.ID, f.rider)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusDelivered, o.Status)
	require.NotNil(t, o.DeliveryDate)

	pp, _ = f.products.GetByID(ctx, p.ID)
	assert.Equal(t, int64(2), pp.Quantity)

	all, err := f.orders.ListOrders(ctx, repository.OrderFilter{})
	require.NoError(t, err)
	agg := RecomputeAggregates(all)
	assert.True(t, agg.TotalSales.Equal(decimal.NewFromInt(300)))
	assert.True(t, agg.TotalProfit.Equal(decimal.NewFromInt(120)))
	assert.Equal(t, 1, agg.OrderCount)
}

func TestPlaceOrder_BelowMinimum(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	p := f.product(t, 100, 60, 5, 4)

	for _, qty := range []int64{-1, 0, 1, 3} {
		_, err := f.orders.PlaceOrder(ctx, f.customer.ID, p.ID, qty)
		assert.ErrorIs(t, err, ErrInvalidInput, "qty=%d", qty)
	}
	_, err := f.orders.PlaceOrder(ctx, f.customer.ID, p.ID, 4)
	assert.NoError(t, err)
}

func TestPlaceOrder_PreorderWhenOutOfStock(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	p := f.product(t, 50, 30, 0, 1)

	o, err := f.orders.PlaceOrder(ctx, f.customer.ID, p.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPreorder, o.Status)
}

func TestPlaceOrder_UnknownProduct(t *testing.T) {
	f := setup(t)
	_, err := f.orders.PlaceOrder(context.Background(), f.customer.ID, uuid.New(), 1)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestAssignRider_Transitions(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	p := f.product(t, 10, 5, 10, 1)

	t.Run("delivered order cannot be assigned", func(t *testing.T) {
		o, err := f.orders.PlaceOrder(ctx, f.customer.ID, p.ID, 1)
		require.NoError(t, err)
		_, err = f.orders.CompleteDelivery(ctx, o.ID, f.admin)
		require.NoError(t, err)

		_, err = f.orders.AssignRider(ctx, o.ID, f.rider.ID)
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("preorder can be assigned", func(t *testing.T) {
		empty := f.product(t, 10, 5, 0, 1)
		o, err := f.orders.PlaceOrder(ctx, f.customer.ID, empty.ID, 1)
		require.NoError(t, err)
		o, err = f.orders.AssignRider(ctx, o.ID, f.rider.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.OrderStatusShipped, o.Status)
	})

	t.Run("only approved riders", func(t *testing.T) {
		o, err := f.orders.PlaceOrder(ctx, f.customer.ID, p.ID, 1)
		require.NoError(t, err)
		_, err = f.orders.AssignRider(ctx, o.ID, f.customer.ID)
		assert.ErrorIs(t, err, ErrInvalidInput)
		_, err = f.orders.AssignRider(ctx, o.ID, uuid.New())
		assert.ErrorIs(t, err, ErrInvalidInput)
	})
}

func TestCompleteDelivery_RiderRules(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	p := f.product(t, 10, 5, 10, 1)

	o, err := f.orders.PlaceOrder(ctx, f.customer.ID, p.ID, 2)
	require.NoError(t, err)

	// rider cannot complete an order that was never shipped to them
	_, err = f.orders.CompleteDelivery(ctx, o.ID, f.rider)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.orders.AssignRider(ctx, o.ID, f.rider.ID)
	require.NoError(t, err)

	other := domain.Profile{ID: uuid.New(), Role: domain.RoleDelivery, Status: domain.ProfileStatusApproved}
	_, err = f.orders.CompleteDelivery(ctx, o.ID, other)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.orders.CompleteDelivery(ctx, o.ID, f.customer)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = f.orders.CompleteDelivery(ctx, o.ID, f.rider)
	require.NoError(t, err)

	_, err = f.orders.CompleteDelivery(ctx, o.ID, f.admin)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	pp, _ := f.products.GetByID(ctx, p.ID)
	assert.Equal(t, int64(8), pp.Quantity, "stock decremented exactly once")
}

func TestCompleteDelivery_InsufficientStockRollsBack(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	p := f.product(t, 10, 5, 0, 1)

	o, err := f.orders.PlaceOrder(ctx, f.customer.ID, p.ID, 2)
	require.NoError(t, err)
	_, err = f.orders.AssignRider(ctx, o.ID, f.rider.ID)
	require.NoError(t, err)

	_, err = f.orders.CompleteDelivery(ctx, o.ID, f.rider)
	assert.ErrorIs(t, err, repository.ErrInsufficientStock)

	got, _ := f.orders.GetOrder(ctx, o.ID)
	assert.Equal(t, domain.OrderStatusShipped, got.Status)
	assert.Nil(t, got.DeliveryDate)

	// preorder is fulfilled once stock is replenished
	_, err = f.products.Restock(ctx, p.ID, 5)
	require.NoError(t, err)
	_, err = f.orders.CompleteDelivery(ctx, o.ID, f.rider)
	require.NoError(t, err)
	pp, _ := f.products.GetByID(ctx, p.ID)
	assert.Equal(t, int64(3), pp.Quantity)
}

func TestCompleteDelivery_ConcurrentRace(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	p := f.product(t, 10, 5, 5, 1)

	var ids []uuid.UUID
	for i := 0; i < 2; i++ {
		o, err := f.orders.PlaceOrder(ctx, f.customer.ID, p.ID, 3)
		require.NoError(t, err)
		_, err = f.orders.AssignRider(ctx, o.ID, f.rider.ID)
		require.NoError(t, err)
		ids = append(ids, o.ID)
	}

	var (
		wg   sync.WaitGroup
		errs = make([]error, len(ids))
	)
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id uuid.UUID) {
			defer wg.Done()
			_, errs[i] = f.orders.CompleteDelivery(ctx, id, f.rider)
		}(i, id)
	}
	wg.Wait()

	failed := 0
	for _, err := range errs {
		if err != nil {
			assert.ErrorIs(t, err, repository.ErrInsufficientStock)
			failed++
		}
	}
	assert.Equal(t, 1, failed)
	pp, _ := f.products.GetByID(ctx, p.ID)
	assert.Equal(t, int64(2), pp.Quantity)
}

func TestCancelAndReject(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	p := f.product(t, 10, 5, 5, 1)

	o1, _ := f.orders.PlaceOrder(ctx, f.customer.ID, p.ID, 1)
	o2, _ := f.orders.PlaceOrder(ctx, f.customer.ID, p.ID, 1)

	c, err := f.orders.CancelOrder(ctx, o1.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCancelled, c.Status)
	_, err = f.orders.CancelOrder(ctx, o1.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = f.orders.AssignRider(ctx, o2.ID, f.rider.ID)
	require.NoError(t, err)
	r, err := f.orders.RejectOrder(ctx, o2.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusRejected, r.Status)

	_, err = f.orders.AssignRider(ctx, o1.ID, f.rider.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	pp, _ := f.products.GetByID(ctx, p.ID)
	assert.Equal(t, int64(5), pp.Quantity, "no inventory side effect")
}

func TestOrderEvents_Published(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	p := f.product(t, 10, 5, 5, 1)

	var got []events.Change
	_, err := f.bus.Subscribe(events.Filter{Table: OrdersTable}, func(c events.Change) { got = append(got, c) })
	require.NoError(t, err)

	o, err := f.orders.PlaceOrder(ctx, f.customer.ID, p.ID, 1)
	require.NoError(t, err)
	_, err = f.orders.AssignRider(ctx, o.ID, f.rider.ID)
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, events.Insert, got[0].Type)
	assert.Equal(t, events.Update, got[1].Type)
	assert.Equal(t, "shipped", got[1].Columns["status"])
	assert.Equal(t, f.rider.ID.String(), got[1].Columns["delivery_person_id"])
}

func TestDashboard_SearchKeepsStats(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	rice := f.product(t, 100, 60, 10, 1)
	oil, err := f.products.Create(ctx, domain.Product{Name: "Soybean oil", Price: decimal.NewFromInt(200), BuyPrice: decimal.NewFromInt(150), Quantity: 10, MinOrderQty: 1})
	require.NoError(t, err)

	o1, _ := f.orders.PlaceOrder(ctx, f.customer.ID, rice.ID, 1)
	_, _ = f.orders.PlaceOrder(ctx, f.customer.ID, oil.ID, 1)
	_, err = f.orders.CompleteDelivery(ctx, o1.ID, f.admin)
	require.NoError(t, err)

	d, err := f.orders.Dashboard(ctx, "oil")
	require.NoError(t, err)
	assert.Len(t, d.Orders, 1)
	assert.Equal(t, 2, d.Stats.OrderCount)
	assert.True(t, d.Stats.TotalSales.Equal(decimal.NewFromInt(100)))
}

func TestCompleteDelivery_SetsDeliveryDate(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	fixed := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	f.orders.now = func() time.Time { return fixed }
	p := f.product(t, 10, 5, 5, 1)

	o, _ := f.orders.PlaceOrder(ctx, f.customer.ID, p.ID, 1)
	o, err := f.orders.CompleteDelivery(ctx, o.ID, f.admin)
	require.NoError(t, err)
	assert.Equal(t, fixed, *o.DeliveryDate)
}
