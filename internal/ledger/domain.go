package ledger

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian/internal/shared"
)

// Side distinguishes the two halves of a double-entry posting.
type Side string

const (
	SideDebit  Side = "DEBIT"
	SideCredit Side = "CREDIT"
)

// DocumentType tags a transaction with the document that produced it.
type DocumentType string

const (
	DocumentInvoice    DocumentType = "INVOICE"
	DocumentReceipt    DocumentType = "RECEIPT"
	DocumentPrepayment DocumentType = "CUSTOMER_PREPAYMENT"
	DocumentPayment    DocumentType = "PAYMENT"
)

// Transaction is a journal header. Immutable once created; corrections are
// always additive reversals, never updates.
type Transaction struct {
	ID           int64
	OrgID        int64
	Date         time.Time
	DocumentType DocumentType
	DocumentID   int64
	Reference    string
	Description  string
	SourceID     uuid.UUID
	CreatedBy    int64
	CreatedAt    time.Time
}

// Entry is one ledger line belonging to a transaction. Append-only.
type Entry struct {
	ID            int64
	OrgID         int64
	AccountID     int64
	TransactionID int64
	Side          Side
	Amount        decimal.Decimal
	Date          time.Time
	CreatedBy     int64
	CreatedAt     time.Time
}

// EntryInput describes a candidate ledger line for posting.
type EntryInput struct {
	AccountID int64
	Side      Side
	Amount    decimal.Decimal
	Date      time.Time
	CreatedBy int64
}

// PostingInput groups the fields required to post one transaction.
type PostingInput struct {
	OrgID        int64
	Date         time.Time
	DocumentType DocumentType
	DocumentID   int64
	Reference    string
	Description  string
	CreatedBy    int64
	Entries      []EntryInput
}

var (
	// ErrUnbalanced indicates the debit and credit totals differ.
	ErrUnbalanced = fmt.Errorf("ledger: %w: debits and credits must balance", shared.ErrValidation)
	// ErrTooFewEntries indicates fewer than two candidate lines.
	ErrTooFewEntries = fmt.Errorf("ledger: %w: posting requires at least two entries", shared.ErrValidation)
	// ErrNoTransactions indicates a reversal target with nothing to reverse.
	ErrNoTransactions = fmt.Errorf("ledger: %w: no transactions for document", shared.ErrNotFound)
)

// ValidAmount reports whether d is a positive amount with at most two
// decimal places.
func ValidAmount(d decimal.Decimal) bool {
	return d.IsPositive() && d.Equal(d.Round(2))
}

// Validate ensures the posting is balanced and every line is well formed.
func (in PostingInput) Validate() error {
	if in.OrgID == 0 {
		return fmt.Errorf("ledger: %w: organization required", shared.ErrValidation)
	}
	if in.DocumentType == "" {
		return fmt.Errorf("ledger: %w: document type required", shared.ErrValidation)
	}
	if len(in.Entries) < 2 {
		return ErrTooFewEntries
	}
	debit, credit := decimal.Zero, decimal.Zero
	for idx, entry := range in.Entries {
		if entry.AccountID == 0 {
			return fmt.Errorf("ledger: %w: entry %d missing account", shared.ErrValidation, idx)
		}
		switch entry.Side {
		case SideDebit:
			debit = debit.Add(entry.Amount)
		case SideCredit:
			credit = credit.Add(entry.Amount)
		default:
			return fmt.Errorf("ledger: %w: entry %d has unknown side %q", shared.ErrValidation, idx, entry.Side)
		}
		if !ValidAmount(entry.Amount) {
			return fmt.Errorf("ledger: %w: entry %d amount %s", shared.ErrArithmetic, idx, entry.Amount)
		}
	}
	if !debit.Equal(credit) {
		return ErrUnbalanced
	}
	return nil
}

// ErrRepositoryRequired guards engine calls made without a transactional repository.
var ErrRepositoryRequired = errors.New("ledger: transactional repository required")
