package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wholesale/internal/domain"
	"wholesale/internal/repository"
)

func TestProduct_Create_Valid(t *testing.T) {
	f := setup(t)
	p, err := f.products.Create(context.Background(), domain.Product{Name: " Aspirin ", Price: decimal.NewFromInt(100), BuyPrice: decimal.NewFromInt(80), Quantity: 10})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, p.ID)
	assert.Equal(t, "Aspirin", p.Name)
	assert.Equal(t, int64(1), p.MinOrderQty, "minimum defaults to 1")
}

func TestProduct_Create_Invalid(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	cases := map[string]domain.Product{
		"empty name":     {Name: "", Price: decimal.NewFromInt(1)},
		"negative price": {Name: "N", Price: decimal.NewFromInt(-1)},
		"negative buy":   {Name: "N", Price: decimal.NewFromInt(1), BuyPrice: decimal.NewFromInt(-1)},
		"negative stock": {Name: "N", Price: decimal.NewFromInt(1), Quantity: -1},
		"negative min":   {Name: "N", Price: decimal.NewFromInt(1), MinOrderQty: -2},
	}
	for name, p := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.products.Create(ctx, p)
			assert.ErrorIs(t, err, ErrInvalidInput)
		})
	}
}

func TestProduct_Update_Get_Delete(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	p := f.product(t, 10, 5, 5, 1)
	_, err := f.products.SetImage(ctx, p.ID, "http://localhost/media/a.png")
	require.NoError(t, err)

	upd := *p
	upd.Name = "B"
	upd.Price = decimal.NewFromInt(20)
	upd.Quantity = 999
	upd.ImageURL = ""
	got, err := f.products.Update(ctx, upd)
	require.NoError(t, err)
	assert.Equal(t, "B", got.Name)

	stored, err := f.products.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5), stored.Quantity, "update does not touch stock")
	assert.Equal(t, "http://localhost/media/a.png", stored.ImageURL)
	assert.True(t, stored.Price.Equal(decimal.NewFromInt(20)))

	require.NoError(t, f.products.Delete(ctx, p.ID))
	_, err = f.products.GetByID(ctx, p.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.ErrorIs(t, f.products.Delete(ctx, p.ID), repository.ErrNotFound)
}

func TestProduct_Restock(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	p := f.product(t, 10, 5, 2, 1)

	entry, err := f.products.Restock(ctx, p.ID, 8)
	require.NoError(t, err)
	assert.Equal(t, int64(8), entry.AddedQty)
	assert.Equal(t, int64(10), entry.ResultingQty)

	_, err = f.products.Restock(ctx, p.ID, 0)
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.products.Restock(ctx, uuid.New(), 3)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	logs, err := f.products.StockLogs(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, entry.ID, logs[0].ID)

	stored, _ := f.products.GetByID(ctx, p.ID)
	assert.Equal(t, int64(10), stored.Quantity)
}

func TestProduct_Catalog(t *testing.T) {
	ctx := context.Background()
	f := setup(t)
	f.product(t, 10, 5, 3, 2)
	f.product(t, 10, 5, 0, 1)

	items, err := f.products.Catalog(ctx, repository.ProductFilter{})
	require.NoError(t, err)
	require.Len(t, items, 2)
	modes := map[OrderMode]int{}
	for _, it := range items {
		modes[it.Availability.Mode]++
	}
	assert.Equal(t, 1, modes[ModeNormal])
	assert.Equal(t, 1, modes[ModePreorder])

	inStock, err := f.products.Catalog(ctx, repository.ProductFilter{InStockOnly: true})
	require.NoError(t, err)
	assert.Len(t, inStock, 1)
}
