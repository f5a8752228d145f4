package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// txRepository implements TxRepository over a pgx transaction. Constructed
// per unit of work by the document services.
type txRepository struct {
	tx pgx.Tx
}

// NewTxRepository binds ledger operations to an open transaction.
func NewTxRepository(tx pgx.Tx) TxRepository {
	return &txRepository{tx: tx}
}

func (r *txRepository) InsertTransaction(ctx context.Context, in PostingInput, sourceID uuid.UUID) (Transaction, error) {
	txn := Transaction{
		OrgID:        in.OrgID,
		Date:         in.Date,
		DocumentType: in.DocumentType,
		DocumentID:   in.DocumentID,
		Reference:    in.Reference,
		Description:  in.Description,
		SourceID:     sourceID,
		CreatedBy:    in.CreatedBy,
	}
	row := r.tx.QueryRow(ctx, `INSERT INTO transactions (org_id, date, document_type, document_id, reference, description, source_id, created_by)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING id, created_at`,
		in.OrgID, in.Date, in.DocumentType, in.DocumentID, in.Reference, in.Description, sourceID, in.CreatedBy)
	if err := row.Scan(&txn.ID, &txn.CreatedAt); err != nil {
		return Transaction{}, err
	}
	return txn, nil
}

func (r *txRepository) InsertEntries(ctx context.Context, txn Transaction, entries []EntryInput) error {
	for _, entry := range entries {
		if _, err := r.tx.Exec(ctx, `INSERT INTO entries (org_id, account_id, transaction_id, side, amount, date, created_by)
VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			txn.OrgID, entry.AccountID, txn.ID, entry.Side, entry.Amount.StringFixed(2), entry.Date, entry.CreatedBy); err != nil {
			return err
		}
	}
	return nil
}

func (r *txRepository) ListTransactionsByDocument(ctx context.Context, orgID int64, docType DocumentType, docID int64) ([]Transaction, error) {
	rows, err := r.tx.Query(ctx, `SELECT id, org_id, date, document_type, document_id, reference, description, source_id, created_by, created_at
FROM transactions WHERE org_id=$1 AND document_type=$2 AND document_id=$3 ORDER BY id`, orgID, docType, docID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var txns []Transaction
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(&t.ID, &t.OrgID, &t.Date, &t.DocumentType, &t.DocumentID, &t.Reference, &t.Description, &t.SourceID, &t.CreatedBy, &t.CreatedAt); err != nil {
			return nil, err
		}
		txns = append(txns, t)
	}
	return txns, rows.Err()
}

func (r *txRepository) ListEntriesByTransaction(ctx context.Context, orgID, transactionID int64) ([]Entry, error) {
	rows, err := r.tx.Query(ctx, `SELECT id, org_id, account_id, transaction_id, side, amount::text, date, created_by, created_at
FROM entries WHERE org_id=$1 AND transaction_id=$2 ORDER BY id`, orgID, transactionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func scanEntry(rows pgx.Rows) (Entry, error) {
	var (
		e      Entry
		amount string
		date   time.Time
	)
	if err := rows.Scan(&e.ID, &e.OrgID, &e.AccountID, &e.TransactionID, &e.Side, &amount, &date, &e.CreatedBy, &e.CreatedAt); err != nil {
		return Entry{}, err
	}
	parsed, err := decimal.NewFromString(amount)
	if err != nil {
		return Entry{}, err
	}
	e.Amount = parsed
	e.Date = date
	return e, nil
}
