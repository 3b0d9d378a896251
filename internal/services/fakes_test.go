package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"moneta/internal/core"
	"moneta/internal/rates"
)

// memStore is an in-memory stand-in for the SQLite repository.
type memStore struct {
	accounts     map[uuid.UUID]core.Account
	categories   map[uuid.UUID]core.Category
	transactions map[uuid.UUID]core.Transaction
	settings     map[string]core.UserSettings
}

func newMemStore() *memStore {
	return &memStore{
		accounts:     make(map[uuid.UUID]core.Account),
		categories:   make(map[uuid.UUID]core.Category),
		transactions: make(map[uuid.UUID]core.Transaction),
		settings:     make(map[string]core.UserSettings),
	}
}

func (m *memStore) CreateAccount(_ context.Context, a core.Account) error {
	m.accounts[a.ID] = a
	return nil
}

func (m *memStore) GetAccount(_ context.Context, owner string, id uuid.UUID) (core.Account, error) {
	a, ok := m.accounts[id]
	if !ok {
		return core.Account{}, core.ErrNotFound
	}
	if a.Owner != owner {
		return core.Account{}, core.ErrOwnership
	}
	return a, nil
}

func (m *memStore) ListAccounts(_ context.Context, owner string) ([]core.Account, error) {
	var out []core.Account
	for _, a := range m.accounts {
		if a.Owner == owner {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memStore) CreateCategory(_ context.Context, c core.Category) error {
	for _, other := range m.categories {
		if other.Owner == c.Owner && other.Name == c.Name {
			return core.ErrDuplicateName
		}
	}
	m.categories[c.ID] = c
	return nil
}

func (m *memStore) GetCategory(_ context.Context, owner string, id uuid.UUID) (core.Category, error) {
	c, ok := m.categories[id]
	if !ok {
		return core.Category{}, core.ErrNotFound
	}
	if c.Owner != owner {
		return core.Category{}, core.ErrOwnership
	}
	return c, nil
}

func (m *memStore) FindCategoryByName(_ context.Context, owner, name string) (core.Category, error) {
	for _, c := range m.categories {
		if c.Owner == owner && c.Name == name {
			return c, nil
		}
	}
	return core.Category{}, core.ErrNotFound
}

func (m *memStore) ListCategories(_ context.Context, owner string) ([]core.Category, error) {
	var out []core.Category
	for _, c := range m.categories {
		if c.Owner == owner {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *memStore) DeleteCategory(_ context.Context, id uuid.UUID) error {
	delete(m.categories, id)
	return nil
}

func (m *memStore) CountTransactionsByCategory(_ context.Context, id uuid.UUID) (int64, error) {
	var n int64
	for _, t := range m.transactions {
		if t.CategoryID == id {
			n++
		}
	}
	return n, nil
}

func (m *memStore) CreateTransaction(_ context.Context, t core.Transaction) error {
	m.transactions[t.ID] = t
	return nil
}

func (m *memStore) GetTransaction(_ context.Context, owner string, id uuid.UUID) (core.Transaction, error) {
	t, ok := m.transactions[id]
	if !ok {
		return core.Transaction{}, core.ErrNotFound
	}
	if t.Owner != owner {
		return core.Transaction{}, core.ErrOwnership
	}
	return t, nil
}

func (m *memStore) DeleteTransaction(_ context.Context, id uuid.UUID) error {
	delete(m.transactions, id)
	return nil
}

func (m *memStore) ListTransactions(_ context.Context, owner string, f core.AggregationFilter) ([]core.Transaction, error) {
	match := f.Predicate(owner)
	var out []core.Transaction
	for _, t := range m.transactions {
		if match(t) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *memStore) GetUserSettings(_ context.Context, owner string) (core.UserSettings, error) {
	s, ok := m.settings[owner]
	if !ok {
		return core.UserSettings{}, core.ErrNotFound
	}
	return s, nil
}

func (m *memStore) PutUserSettings(_ context.Context, s core.UserSettings) error {
	m.settings[s.Owner] = s
	return nil
}

// fakeRates answers rate lookups from a fixed table and counts provider
// calls. Same-currency lookups resolve at 1 without counting, mirroring the
// real resolver.
type fakeRates struct {
	table map[string]decimal.Decimal // keyed "FROM->TO"
	calls int
	err   error
}

func pairKey(from, to core.Currency) string {
	return string(from) + "->" + string(to)
}

func (f *fakeRates) Rate(_ context.Context, from, to core.Currency, _ time.Time) (decimal.Decimal, error) {
	if from == to {
		return decimal.NewFromInt(1), nil
	}
	f.calls++
	if f.err != nil {
		return decimal.Zero, f.err
	}
	rate, ok := f.table[pairKey(from, to)]
	if !ok {
		return decimal.Zero, rates.ErrUnknownPair
	}
	return rate, nil
}

func (f *fakeRates) ResolveAll(ctx context.Context, queries []rates.Query) map[rates.Query]decimal.Decimal {
	resolved := make(map[rates.Query]decimal.Decimal, len(queries))
	for _, q := range queries {
		if q.From == q.To {
			continue
		}
		if _, ok := resolved[q]; ok {
			continue
		}
		rate, err := f.Rate(ctx, q.From, q.To, time.Time{})
		if err != nil {
			continue
		}
		resolved[q] = rate
	}
	return resolved
}

// fakePublisher records published events.
type fakePublisher struct {
	created []uuid.UUID
	deleted []uuid.UUID
	err     error
}

func (f *fakePublisher) PublishTransactionCreated(_ context.Context, id uuid.UUID, _ string) error {
	if f.err != nil {
		return f.err
	}
	f.created = append(f.created, id)
	return nil
}

func (f *fakePublisher) PublishTransactionDeleted(_ context.Context, id uuid.UUID, _ string) error {
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, id)
	return nil
}
