package billing

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian/internal/ledger"
)

// RepositoryPort opens one atomic unit of work covering document rows,
// sequence counters, and ledger postings together.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error

	GetInvoiceByNumber(ctx context.Context, orgID int64, number string) (Invoice, error)
	ListInvoices(ctx context.Context, orgID int64) ([]Invoice, error)
	GetPrepayment(ctx context.Context, orgID, prepaymentID int64) (Prepayment, error)
	ListPrepayments(ctx context.Context, orgID int64) ([]Prepayment, error)
	ListDocumentTransactions(ctx context.Context, orgID int64, docType ledger.DocumentType, docID int64) ([]ledger.Transaction, error)
	ListTransactionEntries(ctx context.Context, orgID, transactionID int64) ([]ledger.Entry, error)
}

// TxRepository is the write surface available inside one unit of work. It
// embeds the ledger operations so a document and its postings share the
// transaction, and the sequence increment so numbers allocate atomically
// with the insert they number.
type TxRepository interface {
	ledger.TxRepository

	IncrementSequence(ctx context.Context, orgID int64, prefix string) (int64, error)

	InsertInvoice(ctx context.Context, invoice Invoice) (Invoice, error)
	InsertInvoiceLines(ctx context.Context, invoiceID int64, lines []InvoiceLine) error
	GetInvoiceByNumberForUpdate(ctx context.Context, orgID int64, number string) (Invoice, error)
	GetInvoiceForUpdate(ctx context.Context, orgID, invoiceID int64) (Invoice, error)
	UpdateInvoicePayment(ctx context.Context, orgID, invoiceID int64, dueBalance decimal.Decimal, status InvoiceStatus) error
	MarkInvoiceVoided(ctx context.Context, orgID, invoiceID int64, voidedBy int64, voidedAt time.Time) error

	InsertReceipt(ctx context.Context, receipt Receipt) (Receipt, error)

	InsertPrepayment(ctx context.Context, prepayment Prepayment) (Prepayment, error)
	GetPrepaymentForUpdate(ctx context.Context, orgID, prepaymentID int64) (Prepayment, error)
	UpdatePrepayment(ctx context.Context, orgID, prepaymentID int64, remaining decimal.Decimal, status PrepaymentStatus) error
	InsertPrepaymentApplication(ctx context.Context, application PrepaymentApplication) (PrepaymentApplication, error)

	InsertPayment(ctx context.Context, payment Payment) (Payment, error)
}
