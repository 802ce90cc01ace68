package repository

import (
	"context"
	"database/sql"
	"embed"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-sql-driver/mysql"
	"github.com/golang-migrate/migrate/v4"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"wholesale/internal/domain"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// OpenMySQL подключается к MySQL; parseTime и UTC обязательны для строк с DATETIME
func OpenMySQL(ctx context.Context, dsn string) (*sqlx.DB, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, errors.Wrap(err, "parse mysql dsn")
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	cfg.MultiStatements = true
	db, err := sqlx.ConnectContext(ctx, "mysql", cfg.FormatDSN())
	if err != nil {
		return nil, errors.Wrap(err, "connect mysql")
	}
	return db, nil
}

// Migrate применяет встроенные миграции схемы
func Migrate(db *sqlx.DB) error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return errors.Wrap(err, "open migrations")
	}
	drv, err := migratemysql.WithInstance(db.DB, &migratemysql.Config{})
	if err != nil {
		return errors.Wrap(err, "migrate driver")
	}
	m, err := migrate.NewWithInstance("iofs", src, "mysql", drv)
	if err != nil {
		return errors.Wrap(err, "migrate init")
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return errors.Wrap(err, "migrate up")
	}
	return nil
}

// NewMySQL собирает Store поверх sqlx
func NewMySQL(db *sqlx.DB) Store {
	b := &mysqlBase{db: db, validate: validator.New()}
	return Store{
		Products:  &MySQLProducts{b},
		Orders:    &MySQLOrders{b},
		Profiles:  &MySQLProfiles{b},
		StockLogs: &MySQLStockLogs{b},
		Accounts:  &MySQLAccounts{b},
		Tx:        &MySQLTx{db: db},
	}
}

type queryer interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type sqlTxKey struct{}

type mysqlBase struct {
	db       *sqlx.DB
	validate *validator.Validate
}

// q возвращает активную транзакцию из контекста или пул соединений
func (b *mysqlBase) q(ctx context.Context) queryer {
	if tx, ok := ctx.Value(sqlTxKey{}).(*sqlx.Tx); ok {
		return tx
	}
	return b.db
}

func (b *mysqlBase) get(ctx context.Context, dest any, query string, args ...any) error {
	err := b.q(ctx).GetContext(ctx, dest, query, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return errors.Wrap(err, "select")
	}
	return b.check(dest)
}

func (b *mysqlBase) exec(ctx context.Context, query string, args ...any) (int64, error) {
	res, err := b.q(ctx).ExecContext(ctx, query, args...)
	if err != nil {
		var me *mysql.MySQLError
		if errors.As(err, &me) && me.Number == 1062 {
			return 0, ErrDuplicate
		}
		return 0, errors.Wrap(err, "exec")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "rows affected")
	}
	return n, nil
}

// check валидирует строку, прочитанную из базы
func (b *mysqlBase) check(row any) error {
	if err := b.validate.Struct(row); err != nil {
		return errors.Wrap(err, "invalid row")
	}
	return nil
}

func now() time.Time { return time.Now().UTC().Truncate(time.Microsecond) }

func parseID(s string) uuid.UUID {
	id, _ := uuid.Parse(s) // формат уже проверен валидатором
	return id
}

type productRow struct {
	ID          string          `db:"id" validate:"required,uuid"`
	Name        string          `db:"name" validate:"required"`
	Price       decimal.Decimal `db:"price"`
	BuyPrice    decimal.Decimal `db:"buy_price"`
	Quantity    int64           `db:"quantity" validate:"gte=0"`
	MinOrderQty int64           `db:"min_order_qty" validate:"gte=1"`
	ImageURL    string          `db:"image_url"`
	CreatedAt   time.Time       `db:"created_at"`
}

func (r productRow) toDomain() domain.Product {
	return domain.Product{
		ID: parseID(r.ID), Name: r.Name, Price: r.Price, BuyPrice: r.BuyPrice,
		Quantity: r.Quantity, MinOrderQty: r.MinOrderQty, ImageURL: r.ImageURL, CreatedAt: r.CreatedAt,
	}
}

const productColumns = "id, name, price, buy_price, quantity, min_order_qty, image_url, created_at"

type MySQLProducts struct{ *mysqlBase }

var _ ProductRepository = (*MySQLProducts)(nil)

func (r *MySQLProducts) Create(ctx context.Context, p *domain.Product) error {
	p.ID = uuid.New()
	p.CreatedAt = now()
	_, err := r.exec(ctx, "INSERT INTO products ("+productColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		p.ID.String(), p.Name, p.Price, p.BuyPrice, p.Quantity, p.MinOrderQty, p.ImageURL, p.CreatedAt)
	return err
}

func (r *MySQLProducts) GetByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	var row productRow
	if err := r.get(ctx, &row, "SELECT "+productColumns+" FROM products WHERE id = ?", id.String()); err != nil {
		return nil, err
	}
	p := row.toDomain()
	return &p, nil
}

func (r *MySQLProducts) Update(ctx context.Context, p *domain.Product) error {
	_, err := r.exec(ctx, "UPDATE products SET name = ?, price = ?, buy_price = ?, min_order_qty = ?, image_url = ? WHERE id = ?",
		p.Name, p.Price, p.BuyPrice, p.MinOrderQty, p.ImageURL, p.ID.String())
	if err != nil {
		return err
	}
	// MySQL reports 0 affected rows when nothing changed, so existence is checked by re-reading.
	cur, err := r.GetByID(ctx, p.ID)
	if err != nil {
		return err
	}
	p.Quantity = cur.Quantity
	p.CreatedAt = cur.CreatedAt
	return nil
}

func (r *MySQLProducts) Delete(ctx context.Context, id uuid.UUID) error {
	n, err := r.exec(ctx, "DELETE FROM products WHERE id = ?", id.String())
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MySQLProducts) List(ctx context.Context, f ProductFilter) ([]domain.Product, error) {
	var (
		where []string
		args  []any
	)
	if f.NameSubstring != "" {
		where = append(where, "LOWER(name) LIKE CONCAT('%', LOWER(?), '%')")
		args = append(args, f.NameSubstring)
	}
	if f.InStockOnly {
		where = append(where, "quantity > 0")
	}
	query := "SELECT " + productColumns + " FROM products" + whereClause(where) + " ORDER BY name"
	var rows []productRow
	if err := r.q(ctx).SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "select products")
	}
	out := make([]domain.Product, 0, len(rows))
	for _, row := range rows {
		if err := r.check(row); err != nil {
			return nil, err
		}
		out = append(out, row.toDomain())
	}
	return out, nil
}

// AdjustQuantity выполняет условное обновление одним запросом, без read-modify-write
func (r *MySQLProducts) AdjustQuantity(ctx context.Context, id uuid.UUID, delta int64) (int64, error) {
	n, err := r.exec(ctx, "UPDATE products SET quantity = quantity + ? WHERE id = ? AND quantity + ? >= 0",
		delta, id.String(), delta)
	if err != nil {
		return 0, err
	}
	var qty int64
	if err := r.q(ctx).GetContext(ctx, &qty, "SELECT quantity FROM products WHERE id = ?", id.String()); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, errors.Wrap(err, "select quantity")
	}
	if n == 0 {
		return qty, ErrInsufficientStock
	}
	return qty, nil
}

type orderRow struct {
	ID               string          `db:"id" validate:"required,uuid"`
	ProductID        string          `db:"product_id" validate:"required,uuid"`
	ProductName      string          `db:"product_name"`
	Quantity         int64           `db:"quantity" validate:"gt=0"`
	TotalPrice       decimal.Decimal `db:"total_price"`
	BuyPriceAtTime   decimal.Decimal `db:"buy_price_at_time"`
	Status           string          `db:"status" validate:"oneof=pending preorder shipped delivered cancelled rejected"`
	UserID           string          `db:"user_id" validate:"required,uuid"`
	DeliveryPersonID sql.NullString  `db:"delivery_person_id"`
	Address          string          `db:"address"`
	Phone            string          `db:"phone"`
	CreatedAt        time.Time       `db:"created_at"`
	DeliveryDate     sql.NullTime    `db:"delivery_date"`
}

func (r orderRow) toDomain() domain.Order {
	o := domain.Order{
		ID: parseID(r.ID), ProductID: parseID(r.ProductID), ProductName: r.ProductName,
		Quantity: r.Quantity, TotalPrice: r.TotalPrice, BuyPriceAtTime: r.BuyPriceAtTime,
		Status: domain.OrderStatus(r.Status), UserID: parseID(r.UserID),
		Address: r.Address, Phone: r.Phone, CreatedAt: r.CreatedAt,
	}
	if r.DeliveryPersonID.Valid {
		if id, err := uuid.Parse(r.DeliveryPersonID.String); err == nil {
			o.DeliveryPersonID = &id
		}
	}
	if r.DeliveryDate.Valid {
		t := r.DeliveryDate.Time
		o.DeliveryDate = &t
	}
	return o
}

const orderColumns = "id, product_id, product_name, quantity, total_price, buy_price_at_time, status, user_id, delivery_person_id, address, phone, created_at, delivery_date"

type MySQLOrders struct{ *mysqlBase }

var _ OrderRepository = (*MySQLOrders)(nil)

func nullID(id *uuid.UUID) sql.NullString {
	if id == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: id.String(), Valid: true}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func (r *MySQLOrders) Create(ctx context.Context, o *domain.Order) error {
	o.ID = uuid.New()
	o.CreatedAt = now()
	_, err := r.exec(ctx, "INSERT INTO orders ("+orderColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		o.ID.String(), o.ProductID.String(), o.ProductName, o.Quantity, o.TotalPrice, o.BuyPriceAtTime,
		string(o.Status), o.UserID.String(), nullID(o.DeliveryPersonID), o.Address, o.Phone, o.CreatedAt, nullTime(o.DeliveryDate))
	return err
}

func (r *MySQLOrders) GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	var row orderRow
	if err := r.get(ctx, &row, "SELECT "+orderColumns+" FROM orders WHERE id = ?", id.String()); err != nil {
		return nil, err
	}
	o := row.toDomain()
	return &o, nil
}

func (r *MySQLOrders) GetForUpdate(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	var row orderRow
	if err := r.get(ctx, &row, "SELECT "+orderColumns+" FROM orders WHERE id = ? FOR UPDATE", id.String()); err != nil {
		return nil, err
	}
	o := row.toDomain()
	return &o, nil
}

// Update меняет только изменяемые поля; снимки цен и товара не перезаписываются
func (r *MySQLOrders) Update(ctx context.Context, o *domain.Order) error {
	_, err := r.exec(ctx, "UPDATE orders SET status = ?, delivery_person_id = ?, delivery_date = ? WHERE id = ?",
		string(o.Status), nullID(o.DeliveryPersonID), nullTime(o.DeliveryDate), o.ID.String())
	if err != nil {
		return err
	}
	_, err = r.GetByID(ctx, o.ID)
	return err
}

func (r *MySQLOrders) List(ctx context.Context, f OrderFilter) ([]domain.Order, error) {
	var (
		where []string
		args  []any
	)
	if f.UserID != nil {
		where = append(where, "user_id = ?")
		args = append(args, f.UserID.String())
	}
	if f.DeliveryPersonID != nil {
		where = append(where, "delivery_person_id = ?")
		args = append(args, f.DeliveryPersonID.String())
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}
	if f.ProductNameSubstring != "" {
		where = append(where, "LOWER(product_name) LIKE CONCAT('%', LOWER(?), '%')")
		args = append(args, f.ProductNameSubstring)
	}
	query := "SELECT " + orderColumns + " FROM orders" + whereClause(where) + " ORDER BY created_at DESC"
	var rows []orderRow
	if err := r.q(ctx).SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, errors.Wrap(err, "select orders")
	}
	out := make([]domain.Order, 0, len(rows))
	for _, row := range rows {
		if err := r.check(row); err != nil {
			return nil, err
		}
		out = append(out, row.toDomain())
	}
	return out, nil
}

type profileRow struct {
	ID           string    `db:"id" validate:"required,uuid"`
	Email        string    `db:"email" validate:"required,email"`
	FullName     string    `db:"full_name"`
	Phone        string    `db:"phone"`
	Address      string    `db:"address"`
	Role         string    `db:"role" validate:"oneof=customer delivery admin"`
	Status       string    `db:"status" validate:"oneof=pending approved rejected blocked"`
	RegisteredAt time.Time `db:"registered_at"`
}

func (r profileRow) toDomain() domain.Profile {
	return domain.Profile{
		ID: parseID(r.ID), Email: r.Email, FullName: r.FullName, Phone: r.Phone, Address: r.Address,
		Role: domain.Role(r.Role), Status: domain.ProfileStatus(r.Status), RegisteredAt: r.RegisteredAt,
	}
}

const profileColumns = "id, email, full_name, phone, address, role, status, registered_at"

type MySQLProfiles struct{ *mysqlBase }

var _ ProfileRepository = (*MySQLProfiles)(nil)

func (r *MySQLProfiles) Create(ctx context.Context, p *domain.Profile) error {
	if p.RegisteredAt.IsZero() {
		p.RegisteredAt = now()
	}
	_, err := r.exec(ctx, "INSERT INTO profiles ("+profileColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
		p.ID.String(), p.Email, p.FullName, p.Phone, p.Address, string(p.Role), string(p.Status), p.RegisteredAt)
	return err
}

func (r *MySQLProfiles) GetByID(ctx context.Context, id uuid.UUID) (*domain.Profile, error) {
	var row profileRow
	if err := r.get(ctx, &row, "SELECT "+profileColumns+" FROM profiles WHERE id = ?", id.String()); err != nil {
		return nil, err
	}
	p := row.toDomain()
	return &p, nil
}

func (r *MySQLProfiles) Update(ctx context.Context, p *domain.Profile) error {
	_, err := r.exec(ctx, "UPDATE profiles SET full_name = ?, phone = ?, address = ?, role = ?, status = ? WHERE id = ?",
		p.FullName, p.Phone, p.Address, string(p.Role), string(p.Status), p.ID.String())
	if err != nil {
		return err
	}
	_, err = r.GetByID(ctx, p.ID)
	return err
}

func (r *MySQLProfiles) List(ctx context.Context) ([]domain.Profile, error) {
	var rows []profileRow
	if err := r.q(ctx).SelectContext(ctx, &rows, "SELECT "+profileColumns+" FROM profiles ORDER BY registered_at DESC"); err != nil {
		return nil, errors.Wrap(err, "select profiles")
	}
	out := make([]domain.Profile, 0, len(rows))
	for _, row := range rows {
		if err := r.check(row); err != nil {
			return nil, err
		}
		out = append(out, row.toDomain())
	}
	return out, nil
}

type stockLogRow struct {
	ID           string    `db:"id" validate:"required,uuid"`
	ProductID    string    `db:"product_id" validate:"required,uuid"`
	AddedQty     int64     `db:"added_qty" validate:"gt=0"`
	ResultingQty int64     `db:"resulting_qty"`
	CreatedAt    time.Time `db:"created_at"`
}

type MySQLStockLogs struct{ *mysqlBase }

var _ StockLogRepository = (*MySQLStockLogs)(nil)

func (r *MySQLStockLogs) Append(ctx context.Context, l *domain.StockLog) error {
	l.ID = uuid.New()
	l.CreatedAt = now()
	_, err := r.exec(ctx, "INSERT INTO stock_logs (id, product_id, added_qty, resulting_qty, created_at) VALUES (?, ?, ?, ?, ?)",
		l.ID.String(), l.ProductID.String(), l.AddedQty, l.ResultingQty, l.CreatedAt)
	return err
}

func (r *MySQLStockLogs) ListByProduct(ctx context.Context, productID uuid.UUID) ([]domain.StockLog, error) {
	var rows []stockLogRow
	err := r.q(ctx).SelectContext(ctx, &rows,
		"SELECT id, product_id, added_qty, resulting_qty, created_at FROM stock_logs WHERE product_id = ? ORDER BY created_at DESC",
		productID.String())
	if err != nil {
		return nil, errors.Wrap(err, "select stock logs")
	}
	out := make([]domain.StockLog, 0, len(rows))
	for _, row := range rows {
		if err := r.check(row); err != nil {
			return nil, err
		}
		out = append(out, domain.StockLog{
			ID: parseID(row.ID), ProductID: parseID(row.ProductID),
			AddedQty: row.AddedQty, ResultingQty: row.ResultingQty, CreatedAt: row.CreatedAt,
		})
	}
	return out, nil
}

type accountRow struct {
	ID           string    `db:"id" validate:"required,uuid"`
	Email        string    `db:"email" validate:"required,email"`
	PasswordHash []byte    `db:"password_hash" validate:"required"`
	CreatedAt    time.Time `db:"created_at"`
}

type sessionRow struct {
	Token     string    `db:"token" validate:"required"`
	AccountID string    `db:"account_id" validate:"required,uuid"`
	CreatedAt time.Time `db:"created_at"`
	ExpiresAt time.Time `db:"expires_at"`
}

type MySQLAccounts struct{ *mysqlBase }

var _ AccountRepository = (*MySQLAccounts)(nil)

func (r *MySQLAccounts) CreateAccount(ctx context.Context, a *domain.Account) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.Email = normalizeEmail(a.Email)
	a.CreatedAt = now()
	_, err := r.exec(ctx, "INSERT INTO accounts (id, email, password_hash, created_at) VALUES (?, ?, ?, ?)",
		a.ID.String(), a.Email, a.PasswordHash, a.CreatedAt)
	return err
}

func (r *MySQLAccounts) GetAccountByEmail(ctx context.Context, email string) (*domain.Account, error) {
	var row accountRow
	if err := r.get(ctx, &row, "SELECT id, email, password_hash, created_at FROM accounts WHERE email = ?", normalizeEmail(email)); err != nil {
		return nil, err
	}
	return &domain.Account{ID: parseID(row.ID), Email: row.Email, PasswordHash: row.PasswordHash, CreatedAt: row.CreatedAt}, nil
}

func (r *MySQLAccounts) CreateSession(ctx context.Context, s *domain.Session) error {
	_, err := r.exec(ctx, "INSERT INTO sessions (token, account_id, created_at, expires_at) VALUES (?, ?, ?, ?)",
		s.Token, s.AccountID.String(), s.CreatedAt.UTC(), s.ExpiresAt.UTC())
	return err
}

func (r *MySQLAccounts) GetSession(ctx context.Context, token string) (*domain.Session, error) {
	var row sessionRow
	if err := r.get(ctx, &row, "SELECT token, account_id, created_at, expires_at FROM sessions WHERE token = ?", token); err != nil {
		return nil, err
	}
	return &domain.Session{Token: row.Token, AccountID: parseID(row.AccountID), CreatedAt: row.CreatedAt, ExpiresAt: row.ExpiresAt}, nil
}

func (r *MySQLAccounts) DeleteSession(ctx context.Context, token string) error {
	_, err := r.exec(ctx, "DELETE FROM sessions WHERE token = ?", token)
	return err
}

func (r *MySQLAccounts) DeleteSessionsByAccount(ctx context.Context, accountID uuid.UUID) error {
	_, err := r.exec(ctx, "DELETE FROM sessions WHERE account_id = ?", accountID.String())
	return err
}

// MySQLTx кладёт *sqlx.Tx в контекст; вложенные вызовы переиспользуют внешнюю транзакцию
type MySQLTx struct{ db *sqlx.DB }

func (m *MySQLTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(sqlTxKey{}).(*sqlx.Tx); ok {
		return fn(ctx)
	}
	tx, err := m.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin tx")
	}
	if err := fn(context.WithValue(ctx, sqlTxKey{}, tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	return errors.Wrap(tx.Commit(), "commit tx")
}

func whereClause(conds []string) string {
	if len(conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conds, " AND ")
}
