// Package sheets defines the outbound port for exporting transactions to a
// spreadsheet ledger.
package sheets

import (
	"context"

	"github.com/google/uuid"
)

// LedgerRow is one exported transaction, flattened for a spreadsheet.
type LedgerRow struct {
	TransactionID uuid.UUID
	Owner         string
	Date          string // "2006-01-02"
	AccountName   string
	Currency      string
	Amount        string // canonical 2-decimal string
	Category      string
	Method        string
	Details       string
}

type LedgerAppender interface {
	AppendRow(ctx context.Context, row LedgerRow) (rowRef string, err error)
}
