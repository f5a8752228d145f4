package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// TxRepository exposes the ledger operations available inside one atomic unit
// of work. Document services obtain an implementation bound to their own
// transaction so a document row and its postings commit or roll back together.
type TxRepository interface {
	InsertTransaction(ctx context.Context, in PostingInput, sourceID uuid.UUID) (Transaction, error)
	InsertEntries(ctx context.Context, txn Transaction, entries []EntryInput) error
	ListTransactionsByDocument(ctx context.Context, orgID int64, docType DocumentType, docID int64) ([]Transaction, error)
	ListEntriesByTransaction(ctx context.Context, orgID, transactionID int64) ([]Entry, error)
}

// Engine posts balanced transactions and derives reversals. It carries no
// storage of its own; callers hand it the TxRepository of their current unit.
type Engine struct {
	now func() time.Time
}

// NewEngine constructs the posting engine.
func NewEngine() *Engine {
	return &Engine{now: time.Now}
}

// WithNow overrides the clock for testing.
func (e *Engine) WithNow(now func() time.Time) {
	if now != nil {
		e.now = now
	}
}

// Post validates the candidate entries, aggregates them, and inserts the
// transaction header with its lines. The balance check runs before any write.
func (e *Engine) Post(ctx context.Context, tx TxRepository, in PostingInput) (Transaction, error) {
	if tx == nil {
		return Transaction{}, ErrRepositoryRequired
	}
	if err := in.Validate(); err != nil {
		return Transaction{}, err
	}
	in.Entries = Aggregate(in.Entries)
	txn, err := tx.InsertTransaction(ctx, in, uuid.New())
	if err != nil {
		return Transaction{}, fmt.Errorf("ledger: insert transaction: %w", err)
	}
	if err := tx.InsertEntries(ctx, txn, in.Entries); err != nil {
		return Transaction{}, fmt.Errorf("ledger: insert entries: %w", err)
	}
	return txn, nil
}

// ReverseDocument creates one mirror transaction per original transaction
// tagged with the document, swapping DEBIT and CREDIT on every entry. The
// swap preserves the balance invariant by construction and keeps a 1:1 audit
// trail between originals and reversals.
func (e *Engine) ReverseDocument(ctx context.Context, tx TxRepository, orgID int64, docType DocumentType, docID int64, actorID int64) ([]Transaction, error) {
	if tx == nil {
		return nil, ErrRepositoryRequired
	}
	originals, err := tx.ListTransactionsByDocument(ctx, orgID, docType, docID)
	if err != nil {
		return nil, fmt.Errorf("ledger: load transactions: %w", err)
	}
	if len(originals) == 0 {
		return nil, ErrNoTransactions
	}
	date := e.now()
	reversals := make([]Transaction, 0, len(originals))
	for _, original := range originals {
		entries, err := tx.ListEntriesByTransaction(ctx, orgID, original.ID)
		if err != nil {
			return nil, fmt.Errorf("ledger: load entries: %w", err)
		}
		posting := PostingInput{
			OrgID:        orgID,
			Date:         date,
			DocumentType: docType,
			DocumentID:   docID,
			Reference:    original.Reference,
			Description:  reversalDescription(original),
			CreatedBy:    actorID,
			Entries:      mirrorEntries(entries, date, actorID),
		}
		reversal, err := e.Post(ctx, tx, posting)
		if err != nil {
			return nil, err
		}
		reversals = append(reversals, reversal)
	}
	return reversals, nil
}

func mirrorEntries(entries []Entry, date time.Time, actorID int64) []EntryInput {
	out := make([]EntryInput, 0, len(entries))
	for _, entry := range entries {
		side := SideDebit
		if entry.Side == SideDebit {
			side = SideCredit
		}
		out = append(out, EntryInput{
			AccountID: entry.AccountID,
			Side:      side,
			Amount:    entry.Amount,
			Date:      date,
			CreatedBy: actorID,
		})
	}
	return out
}

func reversalDescription(original Transaction) string {
	if original.Description != "" {
		return "Reversal of " + original.Description
	}
	return fmt.Sprintf("Reversal of transaction %d", original.ID)
}
