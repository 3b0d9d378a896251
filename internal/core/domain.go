package core

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	PLN Currency = "PLN"
	EUR Currency = "EUR"
	USD Currency = "USD"
	GBP Currency = "GBP"
	CHF Currency = "CHF"
)

const (
	MethodCard     PaymentMethod = "card"
	MethodCash     PaymentMethod = "cash"
	MethodTransfer PaymentMethod = "transfer"
	MethodOther    PaymentMethod = "other"
)

type (
	// Currency is an ISO 4217 code from the supported set.
	Currency string

	// PaymentMethod describes how a transaction was paid.
	PaymentMethod string

	Account struct {
		ID        uuid.UUID
		Owner     string
		Name      string
		Currency  Currency
		CreatedAt time.Time
	}

	Category struct {
		ID    uuid.UUID
		Owner string
		Name  string
	}

	// Transaction belongs to exactly one account and at most one category.
	// Amount is stored at 2 decimal places, in the account's currency.
	Transaction struct {
		ID         uuid.UUID
		Owner      string
		AccountID  uuid.UUID
		CategoryID uuid.UUID // uuid.Nil when uncategorized
		Amount     decimal.Decimal
		Date       time.Time
		Method     PaymentMethod
		Details    string
		ImageKey   string
		Exported   bool // set once the ledger export worker has written the row
		CreatedAt  time.Time
	}

	// UserSettings holds per-owner preferences used by aggregation and the
	// surrounding feature set.
	UserSettings struct {
		Owner           string
		DefaultCurrency Currency
		Premium         bool
	}
)

var (
	ErrNotFound        = errors.New("not found")
	ErrOwnership       = errors.New("owned by another user")
	ErrCategoryInUse   = errors.New("category has transactions")
	ErrDuplicateName   = errors.New("name already in use")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidCurrency = errors.New("invalid currency")
	ErrInvalidMethod   = errors.New("invalid payment method")
	ErrEmptyOwner      = errors.New("empty owner")
	ErrEmptyName       = errors.New("empty name")
	ErrInvalidDate     = errors.New("invalid date")
)

func (c Currency) Valid() bool {
	switch c {
	case PLN, EUR, USD, GBP, CHF:
		return true
	}
	return false
}

// ParseCurrency normalizes and validates a currency code.
func ParseCurrency(s string) (Currency, error) {
	c := Currency(strings.ToUpper(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", ErrInvalidCurrency
	}
	return c, nil
}

func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCard, MethodCash, MethodTransfer, MethodOther:
		return true
	}
	return false
}

func ParsePaymentMethod(s string) (PaymentMethod, error) {
	m := PaymentMethod(strings.ToLower(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", ErrInvalidMethod
	}
	return m, nil
}

// DateOnly truncates a timestamp to its calendar day in UTC. Transaction
// dates and rate-lookup dates are always day-granular.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (a Account) Validate() error {
	if strings.TrimSpace(a.Owner) == "" {
		return ErrEmptyOwner
	}
	if strings.TrimSpace(a.Name) == "" {
		return ErrEmptyName
	}
	if len(a.Name) > 100 {
		return errors.New("account name too long (max 100 characters)")
	}
	if !a.Currency.Valid() {
		return ErrInvalidCurrency
	}
	return nil
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Owner) == "" {
		return ErrEmptyOwner
	}
	if strings.TrimSpace(c.Name) == "" {
		return ErrEmptyName
	}
	if len(c.Name) > 100 {
		return errors.New("category name too long (max 100 characters)")
	}
	return nil
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.Owner) == "" {
		return ErrEmptyOwner
	}
	if t.AccountID == uuid.Nil {
		return errors.New("transaction requires an account")
	}
	if t.Date.IsZero() {
		return ErrInvalidDate
	}
	if !t.Method.Valid() {
		return ErrInvalidMethod
	}
	if len(t.Details) > 500 {
		return errors.New("details too long (max 500 characters)")
	}
	return nil
}

func (s UserSettings) Validate() error {
	if strings.TrimSpace(s.Owner) == "" {
		return ErrEmptyOwner
	}
	if !s.DefaultCurrency.Valid() {
		return ErrInvalidCurrency
	}
	return nil
}
