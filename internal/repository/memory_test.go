package repository

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wholesale/internal/domain"
)

func TestMemoryStore_ProductCRUD(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	p := domain.Product{Name: "Rice", Price: decimal.NewFromInt(10), BuyPrice: decimal.NewFromInt(7), Quantity: 5, MinOrderQty: 1}
	require.NoError(t, store.Create(ctx, &p))
	require.NotEqual(t, uuid.Nil, p.ID)

	got, err := store.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)

	p.Price = decimal.NewFromInt(12)
	p.Quantity = 100
	require.NoError(t, store.Update(ctx, &p))
	got, _ = store.GetByID(ctx, p.ID)
	assert.True(t, got.Price.Equal(decimal.NewFromInt(12)))
	assert.Equal(t, int64(5), got.Quantity, "update must not touch quantity")

	require.NoError(t, store.Delete(ctx, p.ID))
	_, err = store.GetByID(ctx, p.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_AdjustQuantity(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	p := domain.Product{Name: "Oil", Quantity: 5, MinOrderQty: 1}
	require.NoError(t, store.Create(ctx, &p))

	qty, err := store.AdjustQuantity(ctx, p.ID, -3)
	require.NoError(t, err)
	assert.Equal(t, int64(2), qty)

	qty, err = store.AdjustQuantity(ctx, p.ID, -3)
	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.Equal(t, int64(2), qty)

	qty, err = store.AdjustQuantity(ctx, p.ID, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(12), qty)

	_, err = store.AdjustQuantity(ctx, uuid.New(), 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_AdjustQuantityConcurrent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	p := domain.Product{Name: "Sugar", Quantity: 5, MinOrderQty: 1}
	require.NoError(t, store.Create(ctx, &p))

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		rejected int
	)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := store.AdjustQuantity(ctx, p.ID, -3); err != nil {
				mu.Lock()
				rejected++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	got, _ := store.GetByID(ctx, p.ID)
	assert.Equal(t, int64(2), got.Quantity)
	assert.Equal(t, 1, rejected)
}

func TestMemoryTx_TransactionalUpdate(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	p := domain.Product{Name: "Flour", Quantity: 5, MinOrderQty: 1}
	require.NoError(t, s.Products.Create(ctx, &p))

	err := s.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.Products.AdjustQuantity(ctx, p.ID, -3); err != nil {
			return err
		}
		o := domain.Order{ProductID: p.ID, ProductName: p.Name, Quantity: 3, Status: domain.OrderStatusDelivered}
		return s.Orders.Create(ctx, &o)
	})
	require.NoError(t, err)

	pp, _ := s.Products.GetByID(ctx, p.ID)
	assert.Equal(t, int64(2), pp.Quantity)
}

func TestList_Filtering(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	add := func(n string, qty int64) {
		p := domain.Product{Name: n, Quantity: qty, MinOrderQty: 1}
		require.NoError(t, store.Create(ctx, &p))
	}
	add("Basmati rice", 10)
	add("Brown rice", 0)
	add("Lentils", 3)

	list, err := store.List(ctx, ProductFilter{NameSubstring: "RICE"})
	require.NoError(t, err)
	assert.Len(t, list, 2)

	list, err = store.List(ctx, ProductFilter{InStockOnly: true})
	require.NoError(t, err)
	assert.Len(t, list, 2)
	for _, p := range list {
		assert.Positive(t, p.Quantity)
	}
}

func TestMemoryOrders_ListFilter(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	customer, rider := uuid.New(), uuid.New()

	o1 := domain.Order{ProductName: "Rice", Quantity: 1, Status: domain.OrderStatusPending, UserID: customer}
	o2 := domain.Order{ProductName: "Oil", Quantity: 1, Status: domain.OrderStatusShipped, UserID: customer, DeliveryPersonID: &rider}
	o3 := domain.Order{ProductName: "Rice", Quantity: 1, Status: domain.OrderStatusPending, UserID: uuid.New()}
	for _, o := range []*domain.Order{&o1, &o2, &o3} {
		require.NoError(t, s.Orders.Create(ctx, o))
	}

	list, err := s.Orders.List(ctx, OrderFilter{UserID: &customer})
	require.NoError(t, err)
	assert.Len(t, list, 2)

	list, err = s.Orders.List(ctx, OrderFilter{DeliveryPersonID: &rider})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, o2.ID, list[0].ID)

	list, err = s.Orders.List(ctx, OrderFilter{ProductNameSubstring: "ric", Status: domain.OrderStatusPending})
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestMemoryAccounts_Sessions(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	a := domain.Account{Email: " Shop@Example.com ", PasswordHash: []byte("x")}
	require.NoError(t, s.Accounts.CreateAccount(ctx, &a))
	assert.ErrorIs(t, s.Accounts.CreateAccount(ctx, &domain.Account{Email: "shop@example.com"}), ErrDuplicate)

	got, err := s.Accounts.GetAccountByEmail(ctx, "SHOP@example.com")
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)

	require.NoError(t, s.Accounts.CreateSession(ctx, &domain.Session{Token: "t1", AccountID: a.ID}))
	require.NoError(t, s.Accounts.CreateSession(ctx, &domain.Session{Token: "t2", AccountID: a.ID}))
	require.NoError(t, s.Accounts.DeleteSessionsByAccount(ctx, a.ID))
	_, err = s.Accounts.GetSession(ctx, "t1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStockLogs_NewestFirst(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()
	pid := uuid.New()
	require.NoError(t, s.StockLogs.Append(ctx, &domain.StockLog{ProductID: pid, AddedQty: 5, ResultingQty: 5}))
	require.NoError(t, s.StockLogs.Append(ctx, &domain.StockLog{ProductID: uuid.New(), AddedQty: 1, ResultingQty: 1}))
	require.NoError(t, s.StockLogs.Append(ctx, &domain.StockLog{ProductID: pid, AddedQty: 2, ResultingQty: 7}))

	logs, err := s.StockLogs.ListByProduct(ctx, pid)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, int64(7), logs[0].ResultingQty)
}
