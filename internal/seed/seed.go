// Package seed imports a starting catalog and admin account from YAML.
package seed

import (
	"context"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"wholesale/internal/domain"
	"wholesale/internal/repository"
	"wholesale/internal/service"
)

type File struct {
	Admin    *Admin    `yaml:"admin"`
	Products []Product `yaml:"products"`
}

type Admin struct {
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
	FullName string `yaml:"full_name"`
}

// Product цены строками, чтобы не терять точность при разборе
type Product struct {
	Name        string `yaml:"name"`
	Price       string `yaml:"price"`
	BuyPrice    string `yaml:"buy_price"`
	Quantity    int64  `yaml:"quantity"`
	MinOrderQty int64  `yaml:"min_order_qty"`
}

func Parse(r io.Reader) (*File, error) {
	var f File
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Wrap(err, "parse seed file")
	}
	return &f, nil
}

func (p Product) toDomain() (domain.Product, error) {
	price, err := decimal.NewFromString(p.Price)
	if err != nil {
		return domain.Product{}, errors.Wrapf(err, "product %q: price", p.Name)
	}
	buy := decimal.Zero
	if p.BuyPrice != "" {
		if buy, err = decimal.NewFromString(p.BuyPrice); err != nil {
			return domain.Product{}, errors.Wrapf(err, "product %q: buy price", p.Name)
		}
	}
	return domain.Product{
		Name:        p.Name,
		Price:       price,
		BuyPrice:    buy,
		Quantity:    p.Quantity,
		MinOrderQty: p.MinOrderQty,
	}, nil
}

type Result struct {
	Created int
	Skipped int
}

// Apply создаёт администратора и товары. Товар с уже существующим именем пропускается,
// поэтому повторный запуск безопасен.
func Apply(ctx context.Context, f *File, products *service.ProductService, auth *service.AuthService) (Result, error) {
	var res Result
	if f.Admin != nil && f.Admin.Email != "" {
		if _, err := auth.EnsureAdmin(ctx, f.Admin.Email, f.Admin.Password, f.Admin.FullName); err != nil {
			return res, errors.Wrap(err, "seed admin")
		}
	}
	for _, sp := range f.Products {
		p, err := sp.toDomain()
		if err != nil {
			return res, err
		}
		exists, err := hasProduct(ctx, products, p.Name)
		if err != nil {
			return res, err
		}
		if exists {
			res.Skipped++
			continue
		}
		if _, err := products.Create(ctx, p); err != nil {
			return res, errors.Wrapf(err, "seed product %q", p.Name)
		}
		res.Created++
	}
	log.WithFields(log.Fields{"created": res.Created, "skipped": res.Skipped}).Info("catalog seeded")
	return res, nil
}

func hasProduct(ctx context.Context, products *service.ProductService, name string) (bool, error) {
	list, err := products.List(ctx, repository.ProductFilter{NameSubstring: name})
	if err != nil {
		return false, err
	}
	for _, p := range list {
		if strings.EqualFold(p.Name, strings.TrimSpace(name)) {
			return true, nil
		}
	}
	return false, nil
}
