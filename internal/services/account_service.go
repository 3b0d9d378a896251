package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"moneta/internal/core"
	"moneta/internal/log"
)

// AccountService manages the owner's accounts, one per currency in typical
// usage.
type AccountService struct {
	accounts AccountRepository
	logger   *log.Logger
	now      func() time.Time
}

func NewAccountService(accounts AccountRepository, logger *log.Logger) *AccountService {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &AccountService{
		accounts: accounts,
		logger:   logger.WithComponent(log.ComponentApp),
		now:      time.Now,
	}
}

// CreateAccount creates an account for the owner. A second account in the
// same currency is unusual but allowed; it is logged, not rejected.
func (s *AccountService) CreateAccount(ctx context.Context, owner, name string, currency core.Currency) (core.Account, error) {
	a := core.Account{
		ID:        uuid.New(),
		Owner:     owner,
		Name:      name,
		Currency:  currency,
		CreatedAt: s.now(),
	}
	if err := a.Validate(); err != nil {
		return core.Account{}, err
	}

	existing, err := s.accounts.ListAccounts(ctx, owner)
	if err != nil {
		return core.Account{}, fmt.Errorf("list accounts: %w", err)
	}
	for _, other := range existing {
		if other.Currency == currency {
			s.logger.WarnContext(ctx, "Owner already has an account in this currency",
				log.FieldOwner, owner,
				log.FieldCurrency, currency,
				log.FieldAccountID, other.ID)
			break
		}
	}

	if err := s.accounts.CreateAccount(ctx, a); err != nil {
		return core.Account{}, fmt.Errorf("save account: %w", err)
	}
	return a, nil
}

func (s *AccountService) GetAccount(ctx context.Context, owner string, id uuid.UUID) (core.Account, error) {
	return s.accounts.GetAccount(ctx, owner, id)
}

func (s *AccountService) ListAccounts(ctx context.Context, owner string) ([]core.Account, error) {
	return s.accounts.ListAccounts(ctx, owner)
}
