package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"moneta/internal/core"
)

var testDay = time.Date(2025, 3, 14, 10, 30, 0, 0, time.UTC)

func newTestTransactionService(store *memStore, resolver *fakeRates, events *fakePublisher) *TransactionService {
	var pub EventPublisher
	if events != nil {
		pub = events
	}
	s := NewTransactionService(store, store, store, resolver, pub, nil)
	s.now = func() time.Time { return testDay }
	return s
}

func seedAccount(store *memStore, owner string, currency core.Currency) core.Account {
	a := core.Account{ID: uuid.New(), Owner: owner, Name: string(currency) + " account", Currency: currency, CreatedAt: testDay}
	store.accounts[a.ID] = a
	return a
}

func seedCategory(store *memStore, owner, name string) core.Category {
	c := core.Category{ID: uuid.New(), Owner: owner, Name: name}
	store.categories[c.ID] = c
	return c
}

func TestCreateTransactionSameCurrency(t *testing.T) {
	store := newMemStore()
	resolver := &fakeRates{}
	events := &fakePublisher{}
	svc := newTestTransactionService(store, resolver, events)
	account := seedAccount(store, "alice", core.PLN)

	tx, err := svc.CreateTransaction(context.Background(), "alice", account.ID, CreateTransactionRequest{
		Amount:   decimal.RequireFromString("-42.5"),
		Currency: core.PLN,
		Date:     testDay,
		Method:   core.MethodCard,
		Details:  "groceries",
	})
	if err != nil {
		t.Fatalf("CreateTransaction() error = %v", err)
	}

	if got := tx.Amount.StringFixed(2); got != "-42.50" {
		t.Errorf("amount = %s, want -42.50", got)
	}
	if tx.Details != "groceries" {
		t.Errorf("details = %q, want unchanged", tx.Details)
	}
	if resolver.calls != 0 {
		t.Errorf("rate provider calls = %d, want 0", resolver.calls)
	}
	if len(events.created) != 1 || events.created[0] != tx.ID {
		t.Errorf("created events = %v, want [%s]", events.created, tx.ID)
	}
	if _, ok := store.transactions[tx.ID]; !ok {
		t.Error("transaction not persisted")
	}
}

func TestCreateTransactionExplicitRate(t *testing.T) {
	store := newMemStore()
	resolver := &fakeRates{}
	svc := newTestTransactionService(store, resolver, nil)
	account := seedAccount(store, "alice", core.PLN)

	rate := decimal.RequireFromString("4.21")
	tx, err := svc.CreateTransaction(context.Background(), "alice", account.ID, CreateTransactionRequest{
		Amount:       decimal.RequireFromString("100.00"),
		Currency:     core.EUR,
		Date:         testDay,
		Method:       core.MethodTransfer,
		Details:      "invoice",
		ExchangeRate: &rate,
	})
	if err != nil {
		t.Fatalf("CreateTransaction() error = %v", err)
	}

	if got := tx.Amount.StringFixed(2); got != "421.00" {
		t.Errorf("converted amount = %s, want 421.00", got)
	}
	if resolver.calls != 0 {
		t.Errorf("rate provider calls = %d, want 0 with an explicit rate", resolver.calls)
	}
	want := "EUR->PLN: 4.2100 | invoice"
	if tx.Details != want {
		t.Errorf("details = %q, want %q", tx.Details, want)
	}
}

func TestCreateTransactionLiveRate(t *testing.T) {
	store := newMemStore()
	resolver := &fakeRates{table: map[string]decimal.Decimal{
		"EUR->PLN": decimal.RequireFromString("4.3312"),
	}}
	svc := newTestTransactionService(store, resolver, nil)
	account := seedAccount(store, "alice", core.PLN)

	tx, err := svc.CreateTransaction(context.Background(), "alice", account.ID, CreateTransactionRequest{
		Amount:   decimal.RequireFromString("10.00"),
		Currency: core.EUR,
		Date:     testDay,
		Method:   core.MethodCash,
		Details:  "lunch",
	})
	if err != nil {
		t.Fatalf("CreateTransaction() error = %v", err)
	}

	if got := tx.Amount.StringFixed(2); got != "43.31" {
		t.Errorf("converted amount = %s, want 43.31", got)
	}
	if resolver.calls != 1 {
		t.Errorf("rate provider calls = %d, want 1", resolver.calls)
	}
	if want := "EUR->PLN: 4.3312 - 2025-03-14 | lunch"; tx.Details != want {
		t.Errorf("details = %q, want %q", tx.Details, want)
	}
}

func TestCreateTransactionRateFailure(t *testing.T) {
	store := newMemStore()
	resolver := &fakeRates{}
	svc := newTestTransactionService(store, resolver, nil)
	account := seedAccount(store, "alice", core.PLN)

	_, err := svc.CreateTransaction(context.Background(), "alice", account.ID, CreateTransactionRequest{
		Amount:   decimal.RequireFromString("10.00"),
		Currency: core.CHF,
		Date:     testDay,
		Method:   core.MethodCard,
	})
	if err == nil {
		t.Fatal("CreateTransaction() expected error when rate lookup fails")
	}
	if len(store.transactions) != 0 {
		t.Error("transaction persisted despite conversion failure")
	}
}

func TestCreateTransactionResolvesCategoryByName(t *testing.T) {
	store := newMemStore()
	svc := newTestTransactionService(store, &fakeRates{}, nil)
	account := seedAccount(store, "alice", core.PLN)
	food := seedCategory(store, "alice", "food")

	tx, err := svc.CreateTransaction(context.Background(), "alice", account.ID, CreateTransactionRequest{
		Amount:       decimal.RequireFromString("-12.00"),
		CategoryName: "food",
		Date:         testDay,
		Method:       core.MethodCard,
	})
	if err != nil {
		t.Fatalf("CreateTransaction() error = %v", err)
	}
	if tx.CategoryID != food.ID {
		t.Errorf("category id = %s, want %s", tx.CategoryID, food.ID)
	}

	_, err = svc.CreateTransaction(context.Background(), "alice", account.ID, CreateTransactionRequest{
		Amount:       decimal.RequireFromString("-12.00"),
		CategoryName: "no-such-category",
		Date:         testDay,
		Method:       core.MethodCard,
	})
	if !errors.Is(err, core.ErrNotFound) {
		t.Errorf("unknown category error = %v, want ErrNotFound", err)
	}
}

func TestCreateTransactionAccountOwnership(t *testing.T) {
	store := newMemStore()
	svc := newTestTransactionService(store, &fakeRates{}, nil)
	account := seedAccount(store, "alice", core.PLN)

	_, err := svc.CreateTransaction(context.Background(), "bob", account.ID, CreateTransactionRequest{
		Amount: decimal.RequireFromString("5.00"),
		Date:   testDay,
		Method: core.MethodCard,
	})
	if !errors.Is(err, core.ErrOwnership) {
		t.Errorf("error = %v, want ErrOwnership", err)
	}
}

func TestCreateTransactionPublishFailureDoesNotFail(t *testing.T) {
	store := newMemStore()
	events := &fakePublisher{err: errors.New("broker down")}
	svc := newTestTransactionService(store, &fakeRates{}, events)
	account := seedAccount(store, "alice", core.PLN)

	tx, err := svc.CreateTransaction(context.Background(), "alice", account.ID, CreateTransactionRequest{
		Amount: decimal.RequireFromString("5.00"),
		Date:   testDay,
		Method: core.MethodCard,
	})
	if err != nil {
		t.Fatalf("CreateTransaction() error = %v, want saved despite publish failure", err)
	}
	if _, ok := store.transactions[tx.ID]; !ok {
		t.Error("transaction not persisted")
	}
}

func TestDeleteTransaction(t *testing.T) {
	store := newMemStore()
	events := &fakePublisher{}
	svc := newTestTransactionService(store, &fakeRates{}, events)
	account := seedAccount(store, "alice", core.PLN)

	tx := core.Transaction{
		ID: uuid.New(), Owner: "alice", AccountID: account.ID,
		Amount: decimal.RequireFromString("5.00"), Date: testDay, Method: core.MethodCard,
	}
	store.transactions[tx.ID] = tx

	t.Run("other owner gets ownership error", func(t *testing.T) {
		err := svc.DeleteTransaction(context.Background(), "bob", tx.ID)
		if !errors.Is(err, core.ErrOwnership) {
			t.Errorf("error = %v, want ErrOwnership", err)
		}
		if _, ok := store.transactions[tx.ID]; !ok {
			t.Error("transaction removed by wrong owner")
		}
	})

	t.Run("owner deletes and event fires", func(t *testing.T) {
		if err := svc.DeleteTransaction(context.Background(), "alice", tx.ID); err != nil {
			t.Fatalf("DeleteTransaction() error = %v", err)
		}
		if _, ok := store.transactions[tx.ID]; ok {
			t.Error("transaction still present")
		}
		if len(events.deleted) != 1 || events.deleted[0] != tx.ID {
			t.Errorf("deleted events = %v, want [%s]", events.deleted, tx.ID)
		}
	})

	t.Run("missing id is not found", func(t *testing.T) {
		err := svc.DeleteTransaction(context.Background(), "alice", uuid.New())
		if !errors.Is(err, core.ErrNotFound) {
			t.Errorf("error = %v, want ErrNotFound", err)
		}
	})
}

func TestCreateTransactionValidation(t *testing.T) {
	store := newMemStore()
	svc := newTestTransactionService(store, &fakeRates{}, nil)
	account := seedAccount(store, "alice", core.PLN)

	_, err := svc.CreateTransaction(context.Background(), "alice", account.ID, CreateTransactionRequest{
		Amount: decimal.RequireFromString("5.00"),
		Date:   testDay,
		Method: "bitcoin",
	})
	if !errors.Is(err, core.ErrInvalidMethod) {
		t.Errorf("error = %v, want ErrInvalidMethod", err)
	}

	_, err = svc.CreateTransaction(context.Background(), "alice", account.ID, CreateTransactionRequest{
		Amount:  decimal.RequireFromString("5.00"),
		Date:    testDay,
		Method:  core.MethodCard,
		Details: strings.Repeat("x", 501),
	})
	if err == nil {
		t.Error("expected error for oversized details")
	}
}
