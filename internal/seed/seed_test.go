package seed

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wholesale/internal/repository"
	"wholesale/internal/service"
)

const catalog = `
admin:
  email: root@shop.test
  password: secret1
  full_name: Root
products:
  - name: Miniket rice
    price: "100"
    buy_price: "60"
    quantity: 50
    min_order_qty: 5
  - name: Soybean oil
    price: "185.50"
    quantity: 0
`

func TestParseAndApply(t *testing.T) {
	ctx := context.Background()
	f, err := Parse(strings.NewReader(catalog))
	require.NoError(t, err)
	require.Len(t, f.Products, 2)

	store := repository.NewMemory()
	products := service.NewProductService(store, nil)
	auth := service.NewAuthService(store, time.Hour, time.Hour)

	res, err := Apply(ctx, f, products, auth)
	require.NoError(t, err)
	assert.Equal(t, Result{Created: 2}, res)

	res, err = Apply(ctx, f, products, auth)
	require.NoError(t, err)
	assert.Equal(t, Result{Skipped: 2}, res)

	list, err := products.List(ctx, repository.ProductFilter{NameSubstring: "oil"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].Price.Equal(decimal.RequireFromString("185.5")))
	assert.Equal(t, int64(1), list[0].MinOrderQty)

	_, _, err = auth.SignIn(ctx, "root@shop.test", "secret1")
	assert.NoError(t, err)
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse(strings.NewReader("products:\n  - name: X\n    colour: red\n"))
	assert.Error(t, err, "unknown fields are rejected")

	f, err := Parse(strings.NewReader("products:\n  - name: X\n    price: cheap\n"))
	require.NoError(t, err)
	store := repository.NewMemory()
	_, err = Apply(context.Background(), f, service.NewProductService(store, nil), service.NewAuthService(store, time.Hour, time.Hour))
	assert.Error(t, err)
}

func TestParse_Empty(t *testing.T) {
	f, err := Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, f.Products)
}
