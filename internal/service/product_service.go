package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"wholesale/internal/domain"
	"wholesale/internal/metrics"
	"wholesale/internal/repository"
)

// ProductService инкапсулирует бизнес-логику вокруг товаров и склада
type ProductService struct {
	repo    repository.ProductRepository
	logs    repository.StockLogRepository
	tx      repository.TxManager
	metrics *metrics.Metrics
}

func NewProductService(store repository.Store, m *metrics.Metrics) *ProductService {
	return &ProductService{repo: store.Products, logs: store.StockLogs, tx: store.Tx, metrics: m}
}

func validateProduct(p domain.Product) error {
	switch {
	case strings.TrimSpace(p.Name) == "":
		return invalid("name is required")
	case p.Price.IsNegative():
		return invalid("price must not be negative")
	case p.BuyPrice.IsNegative():
		return invalid("buy price must not be negative")
	case p.MinOrderQty < 1:
		return invalid("minimum order quantity must be at least 1")
	}
	return nil
}

func (s *ProductService) Create(ctx context.Context, p domain.Product) (*domain.Product, error) {
	if p.MinOrderQty == 0 {
		p.MinOrderQty = 1
	}
	if err := validateProduct(p); err != nil {
		return nil, err
	}
	if p.Quantity < 0 {
		return nil, invalid("quantity must not be negative")
	}
	p.Name = strings.TrimSpace(p.Name)
	cp := p
	if err := s.repo.Create(ctx, &cp); err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{"product_id": cp.ID, "name": cp.Name, "quantity": cp.Quantity}).Info("product created")
	return &cp, nil
}

func (s *ProductService) GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	if id == uuid.Nil {
		return nil, ErrInvalidInput
	}
	return s.repo.GetByID(ctx, id)
}

// Update меняет карточку товара; остаток меняется только через Restock и доставку
func (s *ProductService) Update(ctx context.Context, p domain.Product) (*domain.Product, error) {
	if p.ID == uuid.Nil {
		return nil, ErrInvalidInput
	}
	if err := validateProduct(p); err != nil {
		return nil, err
	}
	cur, err := s.repo.GetByID(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	if p.ImageURL == "" {
		p.ImageURL = cur.ImageURL
	}
	p.Name = strings.TrimSpace(p.Name)
	cp := p
	if err := s.repo.Update(ctx, &cp); err != nil {
		return nil, err
	}
	return &cp, nil
}

// SetImage привязывает загруженный файл к товару
func (s *ProductService) SetImage(ctx context.Context, id uuid.UUID, url string) (*domain.Product, error) {
	p, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	p.ImageURL = url
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *ProductService) Delete(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return ErrInvalidInput
	}
	return s.repo.Delete(ctx, id)
}

func (s *ProductService) List(ctx context.Context, f repository.ProductFilter) ([]domain.Product, error) {
	return s.repo.List(ctx, f)
}

// Catalog каталог для покупателя: товар и режим заказа
func (s *ProductService) Catalog(ctx context.Context, f repository.ProductFilter) ([]CatalogItem, error) {
	list, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, err
	}
	out := make([]CatalogItem, 0, len(list))
	for _, p := range list {
		out = append(out, CatalogItem{Product: p, Availability: AvailabilityOf(p)})
	}
	return out, nil
}

// Restock атомарно пополняет склад и пишет ровно одну запись в журнал
func (s *ProductService) Restock(ctx context.Context, id uuid.UUID, qty int64) (*domain.StockLog, error) {
	if id == uuid.Nil || qty <= 0 {
		return nil, invalid("restock quantity must be a positive integer")
	}
	var entry domain.StockLog
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		total, err := s.repo.AdjustQuantity(ctx, id, qty)
		if err != nil {
			return err
		}
		entry = domain.StockLog{ProductID: id, AddedQty: qty, ResultingQty: total}
		return s.logs.Append(ctx, &entry)
	})
	if err != nil {
		return nil, errors.Wrap(err, "restock")
	}
	s.metrics.Restocked(qty)
	log.WithFields(log.Fields{"product_id": id, "added": qty, "total": entry.ResultingQty}).Info("stock added")
	return &entry, nil
}

func (s *ProductService) StockLogs(ctx context.Context, id uuid.UUID) ([]domain.StockLog, error) {
	if _, err := s.GetByID(ctx, id); err != nil {
		return nil, err
	}
	return s.logs.ListByProduct(ctx, id)
}
