// Package services orchestrates the domain: transaction creation with
// currency conversion, aggregation with batched rate resolution, and the
// account/category/settings surfaces.
package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"moneta/internal/core"
	"moneta/internal/rates"
)

// TransactionRepository is the persistence surface the services need for
// transactions. *storage.SQLiteRepository implements it.
type TransactionRepository interface {
	CreateTransaction(ctx context.Context, t core.Transaction) error
	GetTransaction(ctx context.Context, owner string, id uuid.UUID) (core.Transaction, error)
	DeleteTransaction(ctx context.Context, id uuid.UUID) error
	ListTransactions(ctx context.Context, owner string, f core.AggregationFilter) ([]core.Transaction, error)
}

type AccountRepository interface {
	CreateAccount(ctx context.Context, a core.Account) error
	GetAccount(ctx context.Context, owner string, id uuid.UUID) (core.Account, error)
	ListAccounts(ctx context.Context, owner string) ([]core.Account, error)
}

type CategoryRepository interface {
	CreateCategory(ctx context.Context, c core.Category) error
	GetCategory(ctx context.Context, owner string, id uuid.UUID) (core.Category, error)
	FindCategoryByName(ctx context.Context, owner, name string) (core.Category, error)
	ListCategories(ctx context.Context, owner string) ([]core.Category, error)
	DeleteCategory(ctx context.Context, id uuid.UUID) error
	CountTransactionsByCategory(ctx context.Context, id uuid.UUID) (int64, error)
}

type SettingsRepository interface {
	GetUserSettings(ctx context.Context, owner string) (core.UserSettings, error)
	PutUserSettings(ctx context.Context, s core.UserSettings) error
}

// RateResolver is the request-scoped rate surface. *rates.Resolver
// implements it.
type RateResolver interface {
	Rate(ctx context.Context, from, to core.Currency, date time.Time) (decimal.Decimal, error)
	ResolveAll(ctx context.Context, queries []rates.Query) map[rates.Query]decimal.Decimal
}

// EventPublisher announces transaction lifecycle events. A nil publisher
// disables events; publish failures never fail the request.
type EventPublisher interface {
	PublishTransactionCreated(ctx context.Context, id uuid.UUID, owner string) error
	PublishTransactionDeleted(ctx context.Context, id uuid.UUID, owner string) error
}
