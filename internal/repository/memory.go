package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"wholesale/internal/domain"
)

// MemoryStore объединённое in-memory хранилище всех таблиц
type MemoryStore struct {
	mu        sync.RWMutex
	products  map[uuid.UUID]domain.Product
	orders    map[uuid.UUID]domain.Order
	profiles  map[uuid.UUID]domain.Profile
	stockLogs []domain.StockLog
	accounts  map[string]domain.Account // by normalized email
	sessions  map[string]domain.Session
	now       func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		products: make(map[uuid.UUID]domain.Product),
		orders:   make(map[uuid.UUID]domain.Order),
		profiles: make(map[uuid.UUID]domain.Profile),
		accounts: make(map[string]domain.Account),
		sessions: make(map[string]domain.Session),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// NewMemory собирает Store поверх одного MemoryStore
func NewMemory() Store {
	m := NewMemoryStore()
	return Store{
		Products:  m,
		Orders:    &MemoryOrders{store: m},
		Profiles:  &MemoryProfiles{store: m},
		StockLogs: &MemoryStockLogs{store: m},
		Accounts:  &MemoryAccounts{store: m},
		Tx:        NewMemoryTx(m),
	}
}

// transaction-aware locking helpers
type txKey struct{}

func isTx(ctx context.Context) bool {
	v := ctx.Value(txKey{})
	if v == nil {
		return false
	}
	b, ok := v.(bool)
	return ok && b
}

func (m *MemoryStore) rlock(ctx context.Context) {
	if !isTx(ctx) {
		m.mu.RLock()
	}
}
func (m *MemoryStore) runlock(ctx context.Context) {
	if !isTx(ctx) {
		m.mu.RUnlock()
	}
}
func (m *MemoryStore) wlock(ctx context.Context) {
	if !isTx(ctx) {
		m.mu.Lock()
	}
}
func (m *MemoryStore) wunlock(ctx context.Context) {
	if !isTx(ctx) {
		m.mu.Unlock()
	}
}

// Ensure interfaces
var _ ProductRepository = (*MemoryStore)(nil)

// ProductRepository implementation
func (m *MemoryStore) Create(ctx context.Context, p *domain.Product) error {
	m.wlock(ctx)
	defer m.wunlock(ctx)
	p.ID = uuid.New()
	p.CreatedAt = m.now()
	m.products[p.ID] = *p
	return nil
}

func (m *MemoryStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	m.rlock(ctx)
	defer m.runlock(ctx)
	p, ok := m.products[id]
	if !ok {
		return nil, ErrNotFound
	}
	// return copy
	cp := p
	return &cp, nil
}

// Update не трогает остаток: он меняется только через AdjustQuantity
func (m *MemoryStore) Update(ctx context.Context, p *domain.Product) error {
	m.wlock(ctx)
	defer m.wunlock(ctx)
	cur, ok := m.products[p.ID]
	if !ok {
		return ErrNotFound
	}
	p.Quantity = cur.Quantity
	p.CreatedAt = cur.CreatedAt
	m.products[p.ID] = *p
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, id uuid.UUID) error {
	m.wlock(ctx)
	defer m.wunlock(ctx)
	if _, ok := m.products[id]; !ok {
		return ErrNotFound
	}
	delete(m.products, id)
	return nil
}

func (m *MemoryStore) List(ctx context.Context, f ProductFilter) ([]domain.Product, error) {
	m.rlock(ctx)
	defer m.runlock(ctx)
	out := make([]domain.Product, 0)
	for _, p := range m.products {
		if !containsIgnoreCase(p.Name, f.NameSubstring) {
			continue
		}
		if f.InStockOnly && p.Quantity <= 0 {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MemoryStore) AdjustQuantity(ctx context.Context, id uuid.UUID, delta int64) (int64, error) {
	m.wlock(ctx)
	defer m.wunlock(ctx)
	p, ok := m.products[id]
	if !ok {
		return 0, ErrNotFound
	}
	if p.Quantity+delta < 0 {
		return p.Quantity, ErrInsufficientStock
	}
	p.Quantity += delta
	m.products[id] = p
	return p.Quantity, nil
}

// OrderRepository implementation on wrapper type
type MemoryOrders struct{ store *MemoryStore }

func NewMemoryOrders(store *MemoryStore) *MemoryOrders { return &MemoryOrders{store: store} }

var _ OrderRepository = (*MemoryOrders)(nil)

func (mo *MemoryOrders) Create(ctx context.Context, o *domain.Order) error {
	mo.store.wlock(ctx)
	defer mo.store.wunlock(ctx)
	o.ID = uuid.New()
	o.CreatedAt = mo.store.now()
	mo.store.orders[o.ID] = *o
	return nil
}

func (mo *MemoryOrders) GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	mo.store.rlock(ctx)
	defer mo.store.runlock(ctx)
	o, ok := mo.store.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := o
	return &cp, nil
}

// GetForUpdate внутри транзакции уже держит глобальный write-lock
func (mo *MemoryOrders) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return mo.GetByID(ctx, id)
}

func (mo *MemoryOrders) Update(ctx context.Context, o *domain.Order) error {
	mo.store.wlock(ctx)
	defer mo.store.wunlock(ctx)
	if _, ok := mo.store.orders[o.ID]; !ok {
		return ErrNotFound
	}
	mo.store.orders[o.ID] = *o
	return nil
}

func (mo *MemoryOrders) List(ctx context.Context, f OrderFilter) ([]domain.Order, error) {
	mo.store.rlock(ctx)
	defer mo.store.runlock(ctx)
	out := make([]domain.Order, 0)
	for _, o := range mo.store.orders {
		if f.UserID != nil && o.UserID != *f.UserID {
			continue
		}
		if f.DeliveryPersonID != nil && !o.AssignedTo(*f.DeliveryPersonID) {
			continue
		}
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		if !containsIgnoreCase(o.ProductName, f.ProductNameSubstring) {
			continue
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

type MemoryProfiles struct{ store *MemoryStore }

var _ ProfileRepository = (*MemoryProfiles)(nil)

func (mp *MemoryProfiles) Create(ctx context.Context, p *domain.Profile) error {
	mp.store.wlock(ctx)
	defer mp.store.wunlock(ctx)
	if _, ok := mp.store.profiles[p.ID]; ok {
		return ErrDuplicate
	}
	mp.store.profiles[p.ID] = *p
	return nil
}

func (mp *MemoryProfiles) GetByID(ctx context.Context, id uuid.UUID) (*domain.Profile, error) {
	mp.store.rlock(ctx)
	defer mp.store.runlock(ctx)
	p, ok := mp.store.profiles[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := p
	return &cp, nil
}

func (mp *MemoryProfiles) Update(ctx context.Context, p *domain.Profile) error {
	mp.store.wlock(ctx)
	defer mp.store.wunlock(ctx)
	if _, ok := mp.store.profiles[p.ID]; !ok {
		return ErrNotFound
	}
	mp.store.profiles[p.ID] = *p
	return nil
}

func (mp *MemoryProfiles) List(ctx context.Context) ([]domain.Profile, error) {
	mp.store.rlock(ctx)
	defer mp.store.runlock(ctx)
	out := make([]domain.Profile, 0, len(mp.store.profiles))
	for _, p := range mp.store.profiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RegisteredAt.After(out[j].RegisteredAt) })
	return out, nil
}

type MemoryStockLogs struct{ store *MemoryStore }

var _ StockLogRepository = (*MemoryStockLogs)(nil)

func (ml *MemoryStockLogs) Append(ctx context.Context, l *domain.StockLog) error {
	ml.store.wlock(ctx)
	defer ml.store.wunlock(ctx)
	l.ID = uuid.New()
	l.CreatedAt = ml.store.now()
	ml.store.stockLogs = append(ml.store.stockLogs, *l)
	return nil
}

func (ml *MemoryStockLogs) ListByProduct(ctx context.Context, productID uuid.UUID) ([]domain.StockLog, error) {
	ml.store.rlock(ctx)
	defer ml.store.runlock(ctx)
	out := make([]domain.StockLog, 0)
	for i := len(ml.store.stockLogs) - 1; i >= 0; i-- {
		if l := ml.store.stockLogs[i]; l.ProductID == productID {
			out = append(out, l)
		}
	}
	return out, nil
}

type MemoryAccounts struct{ store *MemoryStore }

var _ AccountRepository = (*MemoryAccounts)(nil)

func (ma *MemoryAccounts) CreateAccount(ctx context.Context, a *domain.Account) error {
	ma.store.wlock(ctx)
	defer ma.store.wunlock(ctx)
	key := normalizeEmail(a.Email)
	if _, ok := ma.store.accounts[key]; ok {
		return ErrDuplicate
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.Email = key
	a.CreatedAt = ma.store.now()
	ma.store.accounts[key] = *a
	return nil
}

func (ma *MemoryAccounts) GetAccountByEmail(ctx context.Context, email string) (*domain.Account, error) {
	ma.store.rlock(ctx)
	defer ma.store.runlock(ctx)
	a, ok := ma.store.accounts[normalizeEmail(email)]
	if !ok {
		return nil, ErrNotFound
	}
	return &a, nil
}

func (ma *MemoryAccounts) CreateSession(ctx context.Context, s *domain.Session) error {
	ma.store.wlock(ctx)
	defer ma.store.wunlock(ctx)
	ma.store.sessions[s.Token] = *s
	return nil
}

func (ma *MemoryAccounts) GetSession(ctx context.Context, token string) (*domain.Session, error) {
	ma.store.rlock(ctx)
	defer ma.store.runlock(ctx)
	s, ok := ma.store.sessions[token]
	if !ok {
		return nil, ErrNotFound
	}
	return &s, nil
}

func (ma *MemoryAccounts) DeleteSession(ctx context.Context, token string) error {
	ma.store.wlock(ctx)
	defer ma.store.wunlock(ctx)
	delete(ma.store.sessions, token)
	return nil
}

func (ma *MemoryAccounts) DeleteSessionsByAccount(ctx context.Context, accountID uuid.UUID) error {
	ma.store.wlock(ctx)
	defer ma.store.wunlock(ctx)
	for token, s := range ma.store.sessions {
		if s.AccountID == accountID {
			delete(ma.store.sessions, token)
		}
	}
	return nil
}

// Tx manager using write lock to emulate transaction boundary
type MemoryTx struct{ store *MemoryStore }

func NewMemoryTx(store *MemoryStore) *MemoryTx { return &MemoryTx{store: store} }

// WithTransaction не откатывает изменения при ошибке: все операции сервиса проверяют
// условия до записи, а AdjustQuantity ничего не меняет при отказе.
func (tx *MemoryTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if isTx(ctx) {
		return fn(ctx)
	}
	// Для in-memory используем блокировку записи и помечаем контекст, чтобы репозитории пропускали внутренние локи
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()
	ctx = context.WithValue(ctx, txKey{}, true)
	return fn(ctx)
}
