// Package worker exports saved transactions to the spreadsheet ledger. It
// consumes transaction events from AMQP and sweeps the database for rows a
// lost message left behind.
package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"moneta/internal/amqp"
	"moneta/internal/core"
	"moneta/internal/log"
	"moneta/internal/sheets"
)

// Store is the slice of the repository the export worker needs.
type Store interface {
	GetTransaction(ctx context.Context, owner string, id uuid.UUID) (core.Transaction, error)
	GetAccount(ctx context.Context, owner string, id uuid.UUID) (core.Account, error)
	GetCategory(ctx context.Context, owner string, id uuid.UUID) (core.Category, error)
	ListUnexportedTransactions(ctx context.Context, limit int) ([]core.Transaction, error)
	MarkTransactionExported(ctx context.Context, id uuid.UUID) error
}

type ExportWorker struct {
	store     Store
	ledger    sheets.LedgerAppender
	logger    *log.Logger
	batchSize int
}

func NewExportWorker(store Store, ledger sheets.LedgerAppender, batchSize int, logger *log.Logger) *ExportWorker {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	if batchSize <= 0 {
		batchSize = 10
	}
	return &ExportWorker{
		store:     store,
		ledger:    ledger,
		logger:    logger.WithComponent(log.ComponentWorker),
		batchSize: batchSize,
	}
}

// HandleEvent processes one transaction event from the queue. Deletion
// events are acknowledged without ledger work; the ledger is append-only.
func (w *ExportWorker) HandleEvent(ctx context.Context, msg *amqp.TransactionEventMessage) error {
	switch msg.Kind {
	case amqp.EventTransactionDeleted:
		w.logger.InfoContext(ctx, "Transaction deleted, ledger row kept",
			log.FieldTransactionID, msg.ID)
		return nil
	case amqp.EventTransactionCreated:
		return w.export(ctx, msg.Owner, msg.ID)
	default:
		return fmt.Errorf("unhandled event kind %q", msg.Kind)
	}
}

func (w *ExportWorker) export(ctx context.Context, owner string, id uuid.UUID) error {
	tx, err := w.store.GetTransaction(ctx, owner, id)
	if errors.Is(err, core.ErrNotFound) {
		// deleted before the event was processed
		w.logger.WarnContext(ctx, "Transaction gone before export, skipping",
			log.FieldTransactionID, id)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get transaction: %w", err)
	}
	if tx.Exported {
		w.logger.DebugContext(ctx, "Transaction already exported",
			log.FieldTransactionID, id)
		return nil
	}

	row, err := w.buildRow(ctx, tx)
	if err != nil {
		return err
	}

	ref, err := w.ledger.AppendRow(ctx, row)
	if err != nil {
		return fmt.Errorf("append ledger row: %w", err)
	}

	if err := w.store.MarkTransactionExported(ctx, tx.ID); err != nil {
		// the row is on the sheet; the sweep will retry the flag
		w.logger.ErrorContext(ctx, "Failed to mark transaction exported",
			log.FieldTransactionID, tx.ID, log.FieldError, err)
	}

	w.logger.InfoContext(ctx, "Exported transaction",
		log.FieldTransactionID, tx.ID,
		log.FieldOwner, tx.Owner,
		"sheets_ref", ref)
	return nil
}

func (w *ExportWorker) buildRow(ctx context.Context, tx core.Transaction) (sheets.LedgerRow, error) {
	account, err := w.store.GetAccount(ctx, tx.Owner, tx.AccountID)
	if err != nil {
		return sheets.LedgerRow{}, fmt.Errorf("get account: %w", err)
	}

	categoryName := ""
	if tx.CategoryID != uuid.Nil {
		category, err := w.store.GetCategory(ctx, tx.Owner, tx.CategoryID)
		if err != nil {
			return sheets.LedgerRow{}, fmt.Errorf("get category: %w", err)
		}
		categoryName = category.Name
	}

	return sheets.LedgerRow{
		TransactionID: tx.ID,
		Owner:         tx.Owner,
		Date:          tx.Date.Format("2006-01-02"),
		AccountName:   account.Name,
		Currency:      string(account.Currency),
		Amount:        core.FormatAmount(tx.Amount),
		Category:      categoryName,
		Method:        string(tx.Method),
		Details:       tx.Details,
	}, nil
}

// ProcessPending sweeps one batch of unexported transactions. It is the
// backup path for events lost while the worker or broker was down.
func (w *ExportWorker) ProcessPending(ctx context.Context) error {
	return w.sweep(ctx, w.batchSize)
}

// StartupCheck runs a larger sweep once at worker startup.
func (w *ExportWorker) StartupCheck(ctx context.Context) error {
	return w.sweep(ctx, w.batchSize*5)
}

func (w *ExportWorker) sweep(ctx context.Context, limit int) error {
	pending, err := w.store.ListUnexportedTransactions(ctx, limit)
	if err != nil {
		return fmt.Errorf("list unexported transactions: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	w.logger.InfoContext(ctx, "Processing unexported transactions", "count", len(pending))

	exported := 0
	for _, tx := range pending {
		if err := w.export(ctx, tx.Owner, tx.ID); err != nil {
			w.logger.ErrorContext(ctx, "Failed to export transaction",
				log.FieldTransactionID, tx.ID, log.FieldError, err)
			continue
		}
		exported++
	}

	w.logger.InfoContext(ctx, "Sweep completed",
		"total", len(pending),
		"exported", exported)
	return nil
}
