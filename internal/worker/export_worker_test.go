package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"moneta/internal/amqp"
	"moneta/internal/core"
	"moneta/internal/sheets"
)

type fakeStore struct {
	accounts     map[uuid.UUID]core.Account
	categories   map[uuid.UUID]core.Category
	transactions map[uuid.UUID]core.Transaction
	exported     map[uuid.UUID]bool
	markErr      error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		accounts:     make(map[uuid.UUID]core.Account),
		categories:   make(map[uuid.UUID]core.Category),
		transactions: make(map[uuid.UUID]core.Transaction),
		exported:     make(map[uuid.UUID]bool),
	}
}

func (f *fakeStore) GetTransaction(_ context.Context, owner string, id uuid.UUID) (core.Transaction, error) {
	t, ok := f.transactions[id]
	if !ok {
		return core.Transaction{}, core.ErrNotFound
	}
	if t.Owner != owner {
		return core.Transaction{}, core.ErrOwnership
	}
	t.Exported = f.exported[id]
	return t, nil
}

func (f *fakeStore) GetAccount(_ context.Context, owner string, id uuid.UUID) (core.Account, error) {
	a, ok := f.accounts[id]
	if !ok {
		return core.Account{}, core.ErrNotFound
	}
	return a, nil
}

func (f *fakeStore) GetCategory(_ context.Context, owner string, id uuid.UUID) (core.Category, error) {
	c, ok := f.categories[id]
	if !ok {
		return core.Category{}, core.ErrNotFound
	}
	return c, nil
}

func (f *fakeStore) ListUnexportedTransactions(_ context.Context, limit int) ([]core.Transaction, error) {
	var out []core.Transaction
	for _, t := range f.transactions {
		if f.exported[t.ID] {
			continue
		}
		out = append(out, t)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeStore) MarkTransactionExported(_ context.Context, id uuid.UUID) error {
	if f.markErr != nil {
		return f.markErr
	}
	f.exported[id] = true
	return nil
}

type fakeLedger struct {
	rows []sheets.LedgerRow
	err  error
}

func (f *fakeLedger) AppendRow(_ context.Context, row sheets.LedgerRow) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.rows = append(f.rows, row)
	return "Ledger!A2:I2", nil
}

func seedExportable(store *fakeStore) core.Transaction {
	account := core.Account{ID: uuid.New(), Owner: "alice", Name: "Main", Currency: core.PLN}
	category := core.Category{ID: uuid.New(), Owner: "alice", Name: "food"}
	store.accounts[account.ID] = account
	store.categories[category.ID] = category

	tx := core.Transaction{
		ID:         uuid.New(),
		Owner:      "alice",
		AccountID:  account.ID,
		CategoryID: category.ID,
		Amount:     decimal.RequireFromString("-42.50"),
		Date:       time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC),
		Method:     core.MethodCard,
		Details:    "groceries",
	}
	store.transactions[tx.ID] = tx
	return tx
}

func TestHandleEventCreated(t *testing.T) {
	store := newFakeStore()
	ledger := &fakeLedger{}
	w := NewExportWorker(store, ledger, 10, nil)
	tx := seedExportable(store)

	msg := &amqp.TransactionEventMessage{Kind: amqp.EventTransactionCreated, ID: tx.ID, Owner: "alice"}
	if err := w.HandleEvent(context.Background(), msg); err != nil {
		t.Fatalf("HandleEvent() error = %v", err)
	}

	if len(ledger.rows) != 1 {
		t.Fatalf("appended rows = %d, want 1", len(ledger.rows))
	}
	row := ledger.rows[0]
	if row.Date != "2025-03-14" {
		t.Errorf("row date = %q, want 2025-03-14", row.Date)
	}
	if row.Amount != "-42.50" {
		t.Errorf("row amount = %q, want -42.50", row.Amount)
	}
	if row.AccountName != "Main" || row.Currency != "PLN" {
		t.Errorf("row account = %q/%q, want Main/PLN", row.AccountName, row.Currency)
	}
	if row.Category != "food" {
		t.Errorf("row category = %q, want food", row.Category)
	}
	if !store.exported[tx.ID] {
		t.Error("transaction not marked exported")
	}
}

func TestHandleEventCreatedIdempotent(t *testing.T) {
	store := newFakeStore()
	ledger := &fakeLedger{}
	w := NewExportWorker(store, ledger, 10, nil)
	tx := seedExportable(store)
	store.exported[tx.ID] = true

	msg := &amqp.TransactionEventMessage{Kind: amqp.EventTransactionCreated, ID: tx.ID, Owner: "alice"}
	if err := w.HandleEvent(context.Background(), msg); err != nil {
		t.Fatalf("HandleEvent() error = %v", err)
	}
	if len(ledger.rows) != 0 {
		t.Errorf("appended rows = %d, want 0 for an already exported transaction", len(ledger.rows))
	}
}

func TestHandleEventDeleted(t *testing.T) {
	store := newFakeStore()
	ledger := &fakeLedger{}
	w := NewExportWorker(store, ledger, 10, nil)

	msg := &amqp.TransactionEventMessage{Kind: amqp.EventTransactionDeleted, ID: uuid.New(), Owner: "alice"}
	if err := w.HandleEvent(context.Background(), msg); err != nil {
		t.Fatalf("HandleEvent() error = %v", err)
	}
	if len(ledger.rows) != 0 {
		t.Error("deletion event must not touch the ledger")
	}
}

func TestHandleEventMissingTransaction(t *testing.T) {
	store := newFakeStore()
	w := NewExportWorker(store, &fakeLedger{}, 10, nil)

	msg := &amqp.TransactionEventMessage{Kind: amqp.EventTransactionCreated, ID: uuid.New(), Owner: "alice"}
	if err := w.HandleEvent(context.Background(), msg); err != nil {
		t.Errorf("HandleEvent() error = %v, want nil for a vanished transaction", err)
	}
}

func TestHandleEventUnknownKind(t *testing.T) {
	w := NewExportWorker(newFakeStore(), &fakeLedger{}, 10, nil)

	msg := &amqp.TransactionEventMessage{Kind: "transaction.updated", ID: uuid.New()}
	if err := w.HandleEvent(context.Background(), msg); err == nil {
		t.Error("expected error for unknown event kind")
	}
}

func TestExportAppendFailureKeepsPending(t *testing.T) {
	store := newFakeStore()
	ledger := &fakeLedger{err: errors.New("sheet unavailable")}
	w := NewExportWorker(store, ledger, 10, nil)
	tx := seedExportable(store)

	msg := &amqp.TransactionEventMessage{Kind: amqp.EventTransactionCreated, ID: tx.ID, Owner: "alice"}
	if err := w.HandleEvent(context.Background(), msg); err == nil {
		t.Fatal("expected error when append fails")
	}
	if store.exported[tx.ID] {
		t.Error("transaction marked exported despite append failure")
	}
}

func TestProcessPending(t *testing.T) {
	store := newFakeStore()
	ledger := &fakeLedger{}
	w := NewExportWorker(store, ledger, 10, nil)
	seedExportable(store)
	seedExportable(store)

	if err := w.ProcessPending(context.Background()); err != nil {
		t.Fatalf("ProcessPending() error = %v", err)
	}
	if len(ledger.rows) != 2 {
		t.Errorf("appended rows = %d, want 2", len(ledger.rows))
	}

	// a second sweep finds nothing left
	if err := w.ProcessPending(context.Background()); err != nil {
		t.Fatalf("ProcessPending() error = %v", err)
	}
	if len(ledger.rows) != 2 {
		t.Errorf("appended rows after second sweep = %d, want 2", len(ledger.rows))
	}
}

func TestProcessPendingUncategorized(t *testing.T) {
	store := newFakeStore()
	ledger := &fakeLedger{}
	w := NewExportWorker(store, ledger, 10, nil)

	account := core.Account{ID: uuid.New(), Owner: "alice", Name: "Main", Currency: core.EUR}
	store.accounts[account.ID] = account
	tx := core.Transaction{
		ID:        uuid.New(),
		Owner:     "alice",
		AccountID: account.ID,
		Amount:    decimal.RequireFromString("10.00"),
		Date:      time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC),
		Method:    core.MethodCash,
	}
	store.transactions[tx.ID] = tx

	if err := w.ProcessPending(context.Background()); err != nil {
		t.Fatalf("ProcessPending() error = %v", err)
	}
	if len(ledger.rows) != 1 {
		t.Fatalf("appended rows = %d, want 1", len(ledger.rows))
	}
	if ledger.rows[0].Category != "" {
		t.Errorf("category = %q, want empty for uncategorized", ledger.rows[0].Category)
	}
}
