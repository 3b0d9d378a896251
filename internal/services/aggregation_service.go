package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"moneta/internal/core"
	"moneta/internal/log"
	"moneta/internal/rates"
)

// topCategoryLimit caps the income/expense rankings.
const topCategoryLimit = 5

// fallbackCurrency is used for owners who never saved settings.
const fallbackCurrency = core.PLN

// AggregationService computes sums and category rankings over an owner's
// transactions, optionally converting everything into the owner's default
// currency with a request-scoped batch of rate lookups.
type AggregationService struct {
	transactions TransactionRepository
	accounts     AccountRepository
	categories   CategoryRepository
	settings     SettingsRepository
	resolver     RateResolver
	logger       *log.Logger
	now          func() time.Time
}

func NewAggregationService(
	transactions TransactionRepository,
	accounts AccountRepository,
	categories CategoryRepository,
	settings SettingsRepository,
	resolver RateResolver,
	logger *log.Logger,
) *AggregationService {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &AggregationService{
		transactions: transactions,
		accounts:     accounts,
		categories:   categories,
		settings:     settings,
		resolver:     resolver,
		logger:       logger.WithComponent(log.ComponentAggregation),
		now:          time.Now,
	}
}

// GetSum totals the matching transactions. With ToDefaultCurrency set, each
// amount is converted into the owner's default currency first; transactions
// whose rate could not be resolved are excluded (the resolver logs each
// miss). The result is always normalized to 2 decimal places, an empty match
// summing to exactly zero.
func (s *AggregationService) GetSum(ctx context.Context, owner string, f core.AggregationFilter) (decimal.Decimal, error) {
	txs, err := s.transactions.ListTransactions(ctx, owner, f)
	if err != nil {
		return decimal.Zero, fmt.Errorf("list transactions: %w", err)
	}

	if !f.ToDefaultCurrency {
		sum := decimal.Zero
		for _, tx := range txs {
			sum = sum.Add(tx.Amount)
		}
		return core.NormalizeAmount(sum), nil
	}

	convert, err := s.converter(ctx, owner, txs, f)
	if err != nil {
		return decimal.Zero, err
	}

	sum := decimal.Zero
	for _, tx := range txs {
		amount, ok := convert(tx)
		if !ok {
			continue
		}
		sum = sum.Add(amount)
	}
	return core.NormalizeAmount(sum), nil
}

// GetTopFiveIncomes ranks the owner's top earning categories, largest sum
// first.
func (s *AggregationService) GetTopFiveIncomes(ctx context.Context, owner string, f core.AggregationFilter) ([]core.CategorySum, error) {
	f.AmountType = core.AmountPositive
	return s.topCategories(ctx, owner, f, false)
}

// GetTopFiveExpenses ranks the owner's top spending categories, most
// negative sum first.
func (s *AggregationService) GetTopFiveExpenses(ctx context.Context, owner string, f core.AggregationFilter) ([]core.CategorySum, error) {
	f.AmountType = core.AmountNegative
	return s.topCategories(ctx, owner, f, true)
}

func (s *AggregationService) topCategories(ctx context.Context, owner string, f core.AggregationFilter, ascending bool) ([]core.CategorySum, error) {
	txs, err := s.transactions.ListTransactions(ctx, owner, f)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}

	categories, err := s.categories.ListCategories(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	byID := make(map[uuid.UUID]core.Category, len(categories))
	for _, c := range categories {
		byID[c.ID] = c
	}

	convert := func(tx core.Transaction) (decimal.Decimal, bool) { return tx.Amount, true }
	if f.ToDefaultCurrency {
		convert, err = s.converter(ctx, owner, txs, f)
		if err != nil {
			return nil, err
		}
	}

	totals := make(map[uuid.UUID]decimal.Decimal)
	for _, tx := range txs {
		// uncategorized transactions don't participate in the ranking
		if tx.CategoryID == uuid.Nil {
			continue
		}
		amount, ok := convert(tx)
		if !ok {
			continue
		}
		totals[tx.CategoryID] = totals[tx.CategoryID].Add(amount)
	}

	sums := make([]core.CategorySum, 0, len(totals))
	for id, total := range totals {
		category, ok := byID[id]
		if !ok {
			s.logger.WarnContext(ctx, "Transaction references unknown category, skipping",
				log.FieldCategoryID, id, log.FieldOwner, owner)
			continue
		}
		sums = append(sums, core.CategorySum{Category: category, Total: core.NormalizeAmount(total)})
	}

	// Ties sort by category id ascending so rankings stay reproducible.
	sort.Slice(sums, func(i, j int) bool {
		cmp := sums[i].Total.Cmp(sums[j].Total)
		if cmp == 0 {
			return sums[i].Category.ID.String() < sums[j].Category.ID.String()
		}
		if ascending {
			return cmp < 0
		}
		return cmp > 0
	})

	if len(sums) > topCategoryLimit {
		sums = sums[:topCategoryLimit]
	}
	return sums, nil
}

// converter resolves every rate the transaction set needs in one batch and
// returns a lookup closure. Transactions already in the default currency
// pass through untouched; those whose rate is missing report !ok and are
// excluded by the caller. Rounding happens only when the caller normalizes
// the final sum.
func (s *AggregationService) converter(ctx context.Context, owner string, txs []core.Transaction, f core.AggregationFilter) (func(core.Transaction) (decimal.Decimal, bool), error) {
	target, err := s.defaultCurrency(ctx, owner)
	if err != nil {
		return nil, err
	}

	currencies, err := s.accountCurrencies(ctx, owner)
	if err != nil {
		return nil, err
	}

	var queries []rates.Query
	for _, tx := range txs {
		currency, ok := currencies[tx.AccountID]
		if !ok || currency == target {
			continue
		}
		queries = append(queries, rates.NewQuery(s.rateDate(tx, f), currency, target))
	}
	resolved := s.resolver.ResolveAll(ctx, queries)

	return func(tx core.Transaction) (decimal.Decimal, bool) {
		currency, ok := currencies[tx.AccountID]
		if !ok {
			s.logger.WarnContext(ctx, "Transaction references unknown account, excluding",
				log.FieldTransactionID, tx.ID, log.FieldAccountID, tx.AccountID)
			return decimal.Zero, false
		}
		if currency == target {
			return tx.Amount, true
		}
		rate, ok := resolved[rates.NewQuery(s.rateDate(tx, f), currency, target)]
		if !ok {
			return decimal.Zero, false
		}
		return tx.Amount.Mul(rate), true
	}, nil
}

// rateDate picks the lookup date: the transaction's own date under
// historical semantics, today under current-rate semantics.
func (s *AggregationService) rateDate(tx core.Transaction, f core.AggregationFilter) time.Time {
	if f.Historical {
		return tx.Date
	}
	return s.now()
}

func (s *AggregationService) defaultCurrency(ctx context.Context, owner string) (core.Currency, error) {
	settings, err := s.settings.GetUserSettings(ctx, owner)
	if errors.Is(err, core.ErrNotFound) {
		return fallbackCurrency, nil
	}
	if err != nil {
		return "", fmt.Errorf("get user settings: %w", err)
	}
	return settings.DefaultCurrency, nil
}

func (s *AggregationService) accountCurrencies(ctx context.Context, owner string) (map[uuid.UUID]core.Currency, error) {
	accounts, err := s.accounts.ListAccounts(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	currencies := make(map[uuid.UUID]core.Currency, len(accounts))
	for _, a := range accounts {
		currencies[a.ID] = a.Currency
	}
	return currencies, nil
}
