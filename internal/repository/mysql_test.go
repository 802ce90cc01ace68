package repository

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wholesale/internal/domain"
)

// Runs only against a real server: WHOLESALE_TEST_MYSQL_DSN=user:pass@tcp(127.0.0.1:3306)/wholesale_test
func setupMySQL(t *testing.T) Store {
	t.Helper()
	dsn := os.Getenv("WHOLESALE_TEST_MYSQL_DSN")
	if dsn == "" {
		t.Skip("WHOLESALE_TEST_MYSQL_DSN not set")
	}
	db, err := OpenMySQL(context.Background(), dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, Migrate(db))
	return NewMySQL(db)
}

func TestMySQL_ConcurrentDecrement(t *testing.T) {
	ctx := context.Background()
	s := setupMySQL(t)

	p := domain.Product{Name: "Lentils", Price: decimal.NewFromInt(100), BuyPrice: decimal.NewFromInt(60), Quantity: 5, MinOrderQty: 1}
	require.NoError(t, s.Products.Create(ctx, &p))
	t.Cleanup(func() { _ = s.Products.Delete(ctx, p.ID) })

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		rejected int
	)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.Tx.WithTransaction(ctx, func(ctx context.Context) error {
				_, err := s.Products.AdjustQuantity(ctx, p.ID, -3)
				return err
			})
			if err != nil {
				mu.Lock()
				rejected++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	got, err := s.Products.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.Quantity)
	assert.Equal(t, 1, rejected)
}

func TestMySQL_OrderRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := setupMySQL(t)

	p := domain.Product{Name: "Salt", Price: decimal.NewFromInt(20), BuyPrice: decimal.NewFromInt(12), Quantity: 1, MinOrderQty: 1}
	require.NoError(t, s.Products.Create(ctx, &p))
	t.Cleanup(func() { _ = s.Products.Delete(ctx, p.ID) })

	o := domain.Order{
		ProductID: p.ID, ProductName: p.Name, Quantity: 2,
		TotalPrice: decimal.NewFromInt(40), BuyPriceAtTime: p.BuyPrice,
		Status: domain.OrderStatusPending, UserID: p.ID,
	}
	require.NoError(t, s.Orders.Create(ctx, &o))

	got, err := s.Orders.GetByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusPending, got.Status)
	assert.Nil(t, got.DeliveryPersonID)
	assert.True(t, got.TotalPrice.Equal(decimal.NewFromInt(40)))
}
