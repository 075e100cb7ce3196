package backup

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"

	"github.com/dvloznov/financas-voz/internal/domain"
)

// TransactionsTable is the BigQuery table the export appends to.
const TransactionsTable = "transactions"

// TransactionRow is one exported transaction.
type TransactionRow struct {
	TransactionID   string              `bigquery:"transaction_id"`
	TransactionDate civil.Date          `bigquery:"transaction_date"`
	RecordedAt      time.Time           `bigquery:"recorded_at"`
	Description     string              `bigquery:"description"`
	CategoryName    bigquery.NullString `bigquery:"category_name"`
	Amount          *big.Rat            `bigquery:"amount"` // NUMERIC
	Direction       string              `bigquery:"direction"`
	IsDeleted       bool                `bigquery:"is_deleted"`
	IsChargeback    bool                `bigquery:"is_chargeback"`
	ExportID        string              `bigquery:"export_id"`
	ExportedTS      time.Time           `bigquery:"exported_ts"`
}

// ToRow converts a transaction for export.
func ToRow(tx domain.Transaction, exportID string, exportedAt time.Time) (*TransactionRow, error) {
	date, err := civil.ParseDate(tx.Day())
	if err != nil {
		return nil, fmt.Errorf("ToRow: transaction %s: parsing date %q: %w", tx.ID, tx.Date, err)
	}
	return &TransactionRow{
		TransactionID:   tx.ID,
		TransactionDate: date,
		RecordedAt:      time.UnixMilli(tx.Timestamp).UTC(),
		Description:     tx.Description,
		CategoryName:    bigquery.NullString{StringVal: tx.Category, Valid: tx.Category != ""},
		Amount:          tx.Amount.Rat(),
		Direction:       string(tx.Type),
		IsDeleted:       tx.IsDeleted,
		IsChargeback:    tx.IsChargeback,
		ExportID:        exportID,
		ExportedTS:      exportedAt.UTC(),
	}, nil
}

// RowInserter streams rows into a table.
type RowInserter interface {
	Put(ctx context.Context, src interface{}) error
}

// Exporter appends transactions to BigQuery. Every export carries its own
// export_id so runs can be told apart in the table.
type Exporter struct {
	inserter RowInserter
	client   *bigquery.Client
}

// NewExporter connects to project and targets dataset.transactions.
func NewExporter(ctx context.Context, projectID, datasetID string) (*Exporter, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewExporter: bigquery client: %w", err)
	}
	table := client.DatasetInProject(projectID, datasetID).Table(TransactionsTable)
	return &Exporter{inserter: table.Inserter(), client: client}, nil
}

// NewExporterWithInserter creates an Exporter over an existing inserter.
func NewExporterWithInserter(inserter RowInserter) *Exporter {
	return &Exporter{inserter: inserter}
}

// Export inserts every transaction, including deleted and reversed ones, and
// returns the number of rows written. Transactions with unreadable dates are
// skipped.
func (e *Exporter) Export(ctx context.Context, txs []domain.Transaction, exportID string, now time.Time) (int, error) {
	if e == nil || e.inserter == nil {
		return 0, ErrNotConfigured
	}

	rows := make([]*TransactionRow, 0, len(txs))
	for _, tx := range txs {
		row, err := ToRow(tx, exportID, now)
		if err != nil {
			continue
		}
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return 0, nil
	}

	if err := e.inserter.Put(ctx, rows); err != nil {
		return 0, fmt.Errorf("Export: inserting rows: %w", err)
	}
	return len(rows), nil
}

// Close closes the BigQuery client, if the Exporter owns one.
func (e *Exporter) Close() error {
	if e.client != nil {
		return e.client.Close()
	}
	return nil
}
