// Package storage persists the domain in SQLite. Every query is scoped to an
// owner; lookups by id distinguish a missing row from a row held by another
// owner.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"moneta/internal/core"

	_ "modernc.org/sqlite"
)

const dateLayout = "2006-01-02"

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Amounts live in the domain as 2-place decimals and in SQLite as integer
// cents; the round trip is exact.

func centsOf(d decimal.Decimal) int64 {
	return core.NormalizeAmount(d).Shift(2).IntPart()
}

func amountOf(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

// --- accounts ---

func (r *SQLiteRepository) CreateAccount(ctx context.Context, a core.Account) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (id, owner, name, currency, created_at) VALUES (?, ?, ?, ?, ?)`,
		a.ID.String(), a.Owner, a.Name, string(a.Currency), a.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}

	slog.InfoContext(ctx, "Account saved",
		"account_id", a.ID,
		"owner", a.Owner,
		"currency", a.Currency)
	return nil
}

func (r *SQLiteRepository) GetAccount(ctx context.Context, owner string, id uuid.UUID) (core.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, owner, name, currency, created_at FROM accounts WHERE id = ?`, id.String())

	a, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Account{}, fmt.Errorf("account %s: %w", id, core.ErrNotFound)
		}
		return core.Account{}, fmt.Errorf("get account: %w", err)
	}
	if a.Owner != owner {
		return core.Account{}, fmt.Errorf("account %s: %w", id, core.ErrOwnership)
	}
	return a, nil
}

func (r *SQLiteRepository) ListAccounts(ctx context.Context, owner string) ([]core.Account, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, owner, name, currency, created_at FROM accounts WHERE owner = ? ORDER BY created_at, id`, owner)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []core.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanAccount(s scanner) (core.Account, error) {
	var (
		a            core.Account
		id, currency string
		createdAt    time.Time
	)
	if err := s.Scan(&id, &a.Owner, &a.Name, &currency, &createdAt); err != nil {
		return core.Account{}, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return core.Account{}, fmt.Errorf("parse account id: %w", err)
	}
	a.ID = parsed
	a.Currency = core.Currency(currency)
	a.CreatedAt = createdAt
	return a, nil
}

// --- categories ---

func (r *SQLiteRepository) CreateCategory(ctx context.Context, c core.Category) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO categories (id, owner, name) VALUES (?, ?, ?)`,
		c.ID.String(), c.Owner, c.Name)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("category %q: %w", c.Name, core.ErrDuplicateName)
		}
		return fmt.Errorf("insert category: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetCategory(ctx context.Context, owner string, id uuid.UUID) (core.Category, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, owner, name FROM categories WHERE id = ?`, id.String())

	c, err := scanCategory(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Category{}, fmt.Errorf("category %s: %w", id, core.ErrNotFound)
		}
		return core.Category{}, fmt.Errorf("get category: %w", err)
	}
	if c.Owner != owner {
		return core.Category{}, fmt.Errorf("category %s: %w", id, core.ErrOwnership)
	}
	return c, nil
}

func (r *SQLiteRepository) FindCategoryByName(ctx context.Context, owner, name string) (core.Category, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, owner, name FROM categories WHERE owner = ? AND name = ?`, owner, name)

	c, err := scanCategory(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Category{}, fmt.Errorf("category %q: %w", name, core.ErrNotFound)
		}
		return core.Category{}, fmt.Errorf("find category: %w", err)
	}
	return c, nil
}

func (r *SQLiteRepository) ListCategories(ctx context.Context, owner string) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, owner, name FROM categories WHERE owner = ? ORDER BY name`, owner)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []core.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (r *SQLiteRepository) DeleteCategory(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return nil
}

// CountTransactionsByCategory reports how many transactions still reference
// the category. A category with references cannot be deleted.
func (r *SQLiteRepository) CountTransactionsByCategory(ctx context.Context, id uuid.UUID) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM transactions WHERE category_id = ?`, id.String()).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count transactions by category: %w", err)
	}
	return n, nil
}

func scanCategory(s scanner) (core.Category, error) {
	var (
		c  core.Category
		id string
	)
	if err := s.Scan(&id, &c.Owner, &c.Name); err != nil {
		return core.Category{}, err
	}
	parsed, err := uuid.Parse(id)
	if err != nil {
		return core.Category{}, fmt.Errorf("parse category id: %w", err)
	}
	c.ID = parsed
	return c, nil
}

// --- transactions ---

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, t core.Transaction) error {
	var categoryID any
	if t.CategoryID != uuid.Nil {
		categoryID = t.CategoryID.String()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (id, owner, account_id, category_id, amount_cents, tx_date, method, details, image_key, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID.String(), t.Owner, t.AccountID.String(), categoryID,
		centsOf(t.Amount), core.DateOnly(t.Date).Format(dateLayout),
		string(t.Method), t.Details, t.ImageKey, t.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved",
		"transaction_id", t.ID,
		"owner", t.Owner,
		"account_id", t.AccountID,
		"amount", core.FormatAmount(t.Amount))
	return nil
}

func (r *SQLiteRepository) GetTransaction(ctx context.Context, owner string, id uuid.UUID) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx, selectTransaction+` WHERE id = ?`, id.String())

	t, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, core.ErrNotFound)
		}
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	if t.Owner != owner {
		return core.Transaction{}, fmt.Errorf("transaction %s: %w", id, core.ErrOwnership)
	}
	return t, nil
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return nil
}

// ListTransactions applies the aggregation filter as a dynamic WHERE clause.
// The clause set mirrors core's predicate clauses one for one.
func (r *SQLiteRepository) ListTransactions(ctx context.Context, owner string, f core.AggregationFilter) ([]core.Transaction, error) {
	where, args := buildTransactionWhere(owner, f)

	rows, err := r.db.QueryContext(ctx, selectTransaction+where+` ORDER BY tx_date, created_at, id`, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txs []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

const selectTransaction = `SELECT id, owner, account_id, category_id, amount_cents, tx_date, method, details, image_key, exported, created_at FROM transactions`

func buildTransactionWhere(owner string, f core.AggregationFilter) (string, []any) {
	clauses := []string{"owner = ?"}
	args := []any{owner}

	if f.AccountID != nil {
		clauses = append(clauses, "account_id = ?")
		args = append(args, f.AccountID.String())
	}
	if f.CategoryID != nil {
		clauses = append(clauses, "category_id = ?")
		args = append(args, f.CategoryID.String())
	}
	if f.DateFrom != nil {
		clauses = append(clauses, "tx_date >= ?")
		args = append(args, core.DateOnly(*f.DateFrom).Format(dateLayout))
	}
	if f.DateTo != nil {
		clauses = append(clauses, "tx_date <= ?")
		args = append(args, core.DateOnly(*f.DateTo).Format(dateLayout))
	}
	switch f.AmountType {
	case core.AmountPositive:
		clauses = append(clauses, "amount_cents > 0")
	case core.AmountNegative:
		clauses = append(clauses, "amount_cents < 0")
	}

	return " WHERE " + strings.Join(clauses, " AND "), args
}

func scanTransaction(s scanner) (core.Transaction, error) {
	var (
		t          core.Transaction
		id, acct   string
		categoryID sql.NullString
		cents      int64
		txDate     string
		method     string
		exported   int64
		createdAt  time.Time
	)
	if err := s.Scan(&id, &t.Owner, &acct, &categoryID, &cents, &txDate, &method, &t.Details, &t.ImageKey, &exported, &createdAt); err != nil {
		return core.Transaction{}, err
	}

	parsed, err := uuid.Parse(id)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse transaction id: %w", err)
	}
	t.ID = parsed

	account, err := uuid.Parse(acct)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse account id: %w", err)
	}
	t.AccountID = account

	if categoryID.Valid {
		category, err := uuid.Parse(categoryID.String)
		if err != nil {
			return core.Transaction{}, fmt.Errorf("parse category id: %w", err)
		}
		t.CategoryID = category
	}

	date, err := time.Parse(dateLayout, txDate)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse transaction date: %w", err)
	}
	t.Date = date

	t.Amount = amountOf(cents)
	t.Method = core.PaymentMethod(method)
	t.Exported = exported != 0
	t.CreatedAt = createdAt
	return t, nil
}

// --- export bookkeeping (ledger export worker) ---

func (r *SQLiteRepository) ListUnexportedTransactions(ctx context.Context, limit int) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		selectTransaction+` WHERE exported = 0 ORDER BY created_at, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list unexported transactions: %w", err)
	}
	defer rows.Close()

	var txs []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txs = append(txs, t)
	}
	return txs, rows.Err()
}

func (r *SQLiteRepository) MarkTransactionExported(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET exported = 1 WHERE id = ?`, id.String())
	if err != nil {
		return fmt.Errorf("mark transaction exported: %w", err)
	}
	return nil
}

// --- user settings ---

func (r *SQLiteRepository) GetUserSettings(ctx context.Context, owner string) (core.UserSettings, error) {
	var (
		s        core.UserSettings
		currency string
		premium  int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT owner, default_currency, premium FROM user_settings WHERE owner = ?`, owner).
		Scan(&s.Owner, &currency, &premium)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.UserSettings{}, fmt.Errorf("settings for %s: %w", owner, core.ErrNotFound)
		}
		return core.UserSettings{}, fmt.Errorf("get user settings: %w", err)
	}
	s.DefaultCurrency = core.Currency(currency)
	s.Premium = premium != 0
	return s, nil
}

func (r *SQLiteRepository) PutUserSettings(ctx context.Context, s core.UserSettings) error {
	premium := 0
	if s.Premium {
		premium = 1
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO user_settings (owner, default_currency, premium) VALUES (?, ?, ?)
		 ON CONFLICT(owner) DO UPDATE SET default_currency = excluded.default_currency, premium = excluded.premium`,
		s.Owner, string(s.DefaultCurrency), premium)
	if err != nil {
		return fmt.Errorf("put user settings: %w", err)
	}
	return nil
}
