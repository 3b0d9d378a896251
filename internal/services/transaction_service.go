package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"moneta/internal/core"
	"moneta/internal/log"
)

const dateLayout = "2006-01-02"

// TransactionService creates and deletes transactions, converting amounts
// into the target account's currency when they arrive in another one.
type TransactionService struct {
	transactions TransactionRepository
	accounts     AccountRepository
	categories   CategoryRepository
	resolver     RateResolver
	events       EventPublisher
	logger       *log.Logger
	now          func() time.Time
}

func NewTransactionService(
	transactions TransactionRepository,
	accounts AccountRepository,
	categories CategoryRepository,
	resolver RateResolver,
	events EventPublisher,
	logger *log.Logger,
) *TransactionService {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &TransactionService{
		transactions: transactions,
		accounts:     accounts,
		categories:   categories,
		resolver:     resolver,
		events:       events,
		logger:       logger.WithComponent(log.ComponentTransaction),
		now:          time.Now,
	}
}

// CreateTransactionRequest carries caller input for a new transaction.
// Currency may differ from the account's; ExchangeRate, when set and
// positive, overrides the provider lookup.
type CreateTransactionRequest struct {
	Amount       decimal.Decimal
	Currency     core.Currency
	CategoryName string
	Date         time.Time
	Method       core.PaymentMethod
	Details      string
	ExchangeRate *decimal.Decimal
	ImageKey     string
}

// CreateTransaction persists a transaction under the target account's
// currency. A foreign-currency amount is converted first: with the caller's
// rate when one is supplied, otherwise with a live rate from the provider,
// and the details field records the conversion provenance either way.
func (s *TransactionService) CreateTransaction(ctx context.Context, owner string, accountID uuid.UUID, req CreateTransactionRequest) (core.Transaction, error) {
	account, err := s.accounts.GetAccount(ctx, owner, accountID)
	if err != nil {
		return core.Transaction{}, err
	}

	amount := core.NormalizeAmount(req.Amount)
	details := req.Details
	if req.Currency != "" && req.Currency != account.Currency {
		amount, details, err = s.convert(ctx, req, account.Currency)
		if err != nil {
			return core.Transaction{}, fmt.Errorf("convert %s to %s: %w", req.Currency, account.Currency, err)
		}
	}

	var categoryID uuid.UUID
	if req.CategoryName != "" {
		category, err := s.categories.FindCategoryByName(ctx, owner, req.CategoryName)
		if err != nil {
			return core.Transaction{}, err
		}
		categoryID = category.ID
	}

	t := core.Transaction{
		ID:         uuid.New(),
		Owner:      owner,
		AccountID:  account.ID,
		CategoryID: categoryID,
		Amount:     amount,
		Date:       core.DateOnly(req.Date),
		Method:     req.Method,
		Details:    details,
		ImageKey:   req.ImageKey,
		CreatedAt:  s.now(),
	}
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}

	if err := s.transactions.CreateTransaction(ctx, t); err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}

	s.publish(ctx, "created", t.ID, owner, func(c context.Context) error {
		return s.events.PublishTransactionCreated(c, t.ID, owner)
	})

	return t, nil
}

// convert applies the conversion path: explicit caller rate or live provider
// rate, both materialized at 4 decimal places; the converted amount at 2.
func (s *TransactionService) convert(ctx context.Context, req CreateTransactionRequest, target core.Currency) (decimal.Decimal, string, error) {
	if req.ExchangeRate != nil && req.ExchangeRate.IsPositive() {
		rate := core.NormalizeRate(*req.ExchangeRate)
		details := fmt.Sprintf("%s->%s: %s | %s", req.Currency, target, core.FormatRate(rate), req.Details)
		return core.NormalizeAmount(req.Amount.Mul(rate)), details, nil
	}

	fetched, err := s.resolver.Rate(ctx, req.Currency, target, s.now())
	if err != nil {
		return decimal.Zero, "", err
	}
	rate := core.NormalizeRate(fetched)
	today := core.DateOnly(s.now()).Format(dateLayout)
	details := fmt.Sprintf("%s->%s: %s - %s | %s", req.Currency, target, core.FormatRate(rate), today, req.Details)
	return core.NormalizeAmount(req.Amount.Mul(rate)), details, nil
}

// DeleteTransaction removes an owner's transaction. Another owner's
// transaction yields an ownership error, not a not-found one.
func (s *TransactionService) DeleteTransaction(ctx context.Context, owner string, id uuid.UUID) error {
	t, err := s.transactions.GetTransaction(ctx, owner, id)
	if err != nil {
		return err
	}

	if err := s.transactions.DeleteTransaction(ctx, t.ID); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}

	s.publish(ctx, "deleted", t.ID, owner, func(c context.Context) error {
		return s.events.PublishTransactionDeleted(c, t.ID, owner)
	})

	return nil
}

// GetTransaction returns an owner's transaction by id.
func (s *TransactionService) GetTransaction(ctx context.Context, owner string, id uuid.UUID) (core.Transaction, error) {
	return s.transactions.GetTransaction(ctx, owner, id)
}

// ListTransactions returns the owner's transactions matching the filter.
func (s *TransactionService) ListTransactions(ctx context.Context, owner string, f core.TransactionFilter) ([]core.Transaction, error) {
	return s.transactions.ListTransactions(ctx, owner, core.AggregationFilter{TransactionFilter: f})
}

// publish fires an event best-effort. The transaction is already saved, so a
// broker hiccup only costs the export, never the request.
func (s *TransactionService) publish(ctx context.Context, kind string, id uuid.UUID, owner string, fn func(context.Context) error) {
	if s.events == nil {
		s.logger.DebugContext(ctx, "Event publisher not configured, skipping event",
			"kind", kind, log.FieldTransactionID, id)
		return
	}
	if err := fn(ctx); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish transaction event",
			"kind", kind,
			log.FieldTransactionID, id,
			log.FieldOwner, owner,
			log.FieldError, err)
	}
}
