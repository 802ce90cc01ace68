package repository

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"wholesale/internal/domain"
)

var (
	// ErrNotFound возвращается, когда сущность не найдена
	ErrNotFound = errors.New("not found")
	// ErrInsufficientStock условное списание не прошло: на складе меньше, чем требуется
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrDuplicate нарушение уникальности (например, email)
	ErrDuplicate = errors.New("duplicate")
)

// ProductFilter параметры фильтрации списка товаров
type ProductFilter struct {
	NameSubstring string
	InStockOnly   bool
}

// OrderFilter параметры фильтрации списка заказов. Результат отсортирован от новых к старым.
type OrderFilter struct {
	UserID               *uuid.UUID
	DeliveryPersonID     *uuid.UUID
	Status               domain.OrderStatus
	ProductNameSubstring string
}

// ProductRepository интерфейс репозитория товаров
type ProductRepository interface {
	Create(ctx context.Context, p *domain.Product) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	Update(ctx context.Context, p *domain.Product) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, f ProductFilter) ([]domain.Product, error)
	// AdjustQuantity атомарно прибавляет delta к остатку и возвращает новое значение.
	// Если результат стал бы отрицательным, ничего не меняет и возвращает ErrInsufficientStock.
	AdjustQuantity(ctx context.Context, id uuid.UUID, delta int64) (int64, error)
}

// OrderRepository интерфейс репозитория заказов
type OrderRepository interface {
	Create(ctx context.Context, o *domain.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	// GetForUpdate читает заказ с блокировкой строки до конца транзакции
	GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	Update(ctx context.Context, o *domain.Order) error
	List(ctx context.Context, f OrderFilter) ([]domain.Order, error)
}

// ProfileRepository интерфейс репозитория профилей
type ProfileRepository interface {
	Create(ctx context.Context, p *domain.Profile) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Profile, error)
	Update(ctx context.Context, p *domain.Profile) error
	List(ctx context.Context) ([]domain.Profile, error)
}

// StockLogRepository журнал пополнений, только добавление
type StockLogRepository interface {
	Append(ctx context.Context, l *domain.StockLog) error
	ListByProduct(ctx context.Context, productID uuid.UUID) ([]domain.StockLog, error)
}

// AccountRepository учётные записи и сессии
type AccountRepository interface {
	CreateAccount(ctx context.Context, a *domain.Account) error
	GetAccountByEmail(ctx context.Context, email string) (*domain.Account, error)
	CreateSession(ctx context.Context, s *domain.Session) error
	GetSession(ctx context.Context, token string) (*domain.Session, error)
	DeleteSession(ctx context.Context, token string) error
	DeleteSessionsByAccount(ctx context.Context, accountID uuid.UUID) error
}

// TxManager абстракция транзакции. Для in-memory — глобальная блокировка записи.
type TxManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Store набор репозиториев одного хранилища
type Store struct {
	Products  ProductRepository
	Orders    OrderRepository
	Profiles  ProfileRepository
	StockLogs StockLogRepository
	Accounts  AccountRepository
	Tx        TxManager
}

// helper: case-insensitive contains
func containsIgnoreCase(s, substr string) bool {
	if substr == "" {
		return true
	}
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
