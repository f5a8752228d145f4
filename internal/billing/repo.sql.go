package billing

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian/internal/ledger"
	"github.com/meridian-erp/meridian/internal/platform/db"
)

// Repository persists billing documents.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepository struct {
	ledger.TxRepository
	tx pgx.Tx
}

// WithTx executes fn within one repeatable-read transaction covering billing
// rows, sequence counters, and ledger postings.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("billing repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{TxRepository: ledger.NewTxRepository(tx), tx: tx})
	})
}

// IncrementSequence atomically advances the per-(org, prefix) counter. The
// upsert makes concurrent callers serialize on the counter row, so two
// documents can never draw the same number.
func (r *txRepository) IncrementSequence(ctx context.Context, orgID int64, prefix string) (int64, error) {
	var value int64
	err := r.tx.QueryRow(ctx, `INSERT INTO document_sequences (org_id, prefix, value) VALUES ($1, $2, 1)
ON CONFLICT (org_id, prefix) DO UPDATE SET value = document_sequences.value + 1, updated_at = NOW()
RETURNING value`, orgID, prefix).Scan(&value)
	return value, err
}

const invoiceColumns = `id, org_id, customer_id, number, invoice_date, due_date, total::text, due_balance::text, status, is_active, voided_at, voided_by, created_by, created_at, updated_at`

func scanInvoice(row pgx.Row) (Invoice, error) {
	var (
		inv        Invoice
		total      string
		dueBalance string
	)
	err := row.Scan(&inv.ID, &inv.OrgID, &inv.CustomerID, &inv.Number, &inv.InvoiceDate, &inv.DueDate,
		&total, &dueBalance, &inv.Status, &inv.IsActive, &inv.VoidedAt, &inv.VoidedBy, &inv.CreatedBy, &inv.CreatedAt, &inv.UpdatedAt)
	if err != nil {
		return Invoice{}, err
	}
	if inv.Total, err = decimal.NewFromString(total); err != nil {
		return Invoice{}, err
	}
	if inv.DueBalance, err = decimal.NewFromString(dueBalance); err != nil {
		return Invoice{}, err
	}
	return inv, nil
}

func (r *txRepository) InsertInvoice(ctx context.Context, invoice Invoice) (Invoice, error) {
	row := r.tx.QueryRow(ctx, `INSERT INTO invoices (org_id, customer_id, number, invoice_date, due_date, total, due_balance, status, is_active, created_by)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10) RETURNING id, created_at, updated_at`,
		invoice.OrgID, invoice.CustomerID, invoice.Number, invoice.InvoiceDate, invoice.DueDate,
		invoice.Total.StringFixed(2), invoice.DueBalance.StringFixed(2), invoice.Status, invoice.IsActive, invoice.CreatedBy)
	if err := row.Scan(&invoice.ID, &invoice.CreatedAt, &invoice.UpdatedAt); err != nil {
		return Invoice{}, err
	}
	return invoice, nil
}

func (r *txRepository) InsertInvoiceLines(ctx context.Context, invoiceID int64, lines []InvoiceLine) error {
	for _, line := range lines {
		if _, err := r.tx.Exec(ctx, `INSERT INTO invoice_lines (org_id, invoice_id, product_id, quantity, unit_price, amount)
VALUES ($1,$2,$3,$4,$5,$6)`,
			line.OrgID, invoiceID, line.ProductID, line.Quantity, line.UnitPrice.StringFixed(2), line.Amount.StringFixed(2)); err != nil {
			return err
		}
	}
	return nil
}

func (r *txRepository) GetInvoiceByNumberForUpdate(ctx context.Context, orgID int64, number string) (Invoice, error) {
	invoice, err := scanInvoice(r.tx.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE org_id=$1 AND number=$2 FOR UPDATE`, orgID, number))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Invoice{}, ErrInvoiceNotFound
		}
		return Invoice{}, err
	}
	return invoice, nil
}

func (r *txRepository) GetInvoiceForUpdate(ctx context.Context, orgID, invoiceID int64) (Invoice, error) {
	invoice, err := scanInvoice(r.tx.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE org_id=$1 AND id=$2 FOR UPDATE`, orgID, invoiceID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Invoice{}, ErrInvoiceNotFound
		}
		return Invoice{}, err
	}
	return invoice, nil
}

func (r *txRepository) UpdateInvoicePayment(ctx context.Context, orgID, invoiceID int64, dueBalance decimal.Decimal, status InvoiceStatus) error {
	_, err := r.tx.Exec(ctx, `UPDATE invoices SET due_balance=$3, status=$4, updated_at=NOW() WHERE org_id=$1 AND id=$2`,
		orgID, invoiceID, dueBalance.StringFixed(2), status)
	return err
}

func (r *txRepository) MarkInvoiceVoided(ctx context.Context, orgID, invoiceID int64, voidedBy int64, voidedAt time.Time) error {
	_, err := r.tx.Exec(ctx, `UPDATE invoices SET status=$3, is_active=FALSE, due_balance=0, voided_at=$4, voided_by=$5, updated_at=NOW()
WHERE org_id=$1 AND id=$2`, orgID, invoiceID, InvoiceVoided, voidedAt, voidedBy)
	return err
}

func (r *txRepository) InsertReceipt(ctx context.Context, receipt Receipt) (Receipt, error) {
	row := r.tx.QueryRow(ctx, `INSERT INTO receipts (org_id, customer_id, number, receipt_date, total, status, created_by)
VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING id, created_at`,
		receipt.OrgID, receipt.CustomerID, receipt.Number, receipt.ReceiptDate, receipt.Total.StringFixed(2), receipt.Status, receipt.CreatedBy)
	if err := row.Scan(&receipt.ID, &receipt.CreatedAt); err != nil {
		return Receipt{}, err
	}
	return receipt, nil
}

const prepaymentColumns = `id, org_id, customer_id, number, payment_account_id, payment_method, payment_date, amount::text, remaining_balance::text, status, created_by, created_at, updated_at`

func scanPrepayment(row pgx.Row) (Prepayment, error) {
	var (
		p         Prepayment
		amount    string
		remaining string
	)
	err := row.Scan(&p.ID, &p.OrgID, &p.CustomerID, &p.Number, &p.PaymentAccountID, &p.PaymentMethod, &p.PaymentDate,
		&amount, &remaining, &p.Status, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Prepayment{}, err
	}
	if p.Amount, err = decimal.NewFromString(amount); err != nil {
		return Prepayment{}, err
	}
	if p.RemainingBalance, err = decimal.NewFromString(remaining); err != nil {
		return Prepayment{}, err
	}
	return p, nil
}

func (r *txRepository) InsertPrepayment(ctx context.Context, prepayment Prepayment) (Prepayment, error) {
	row := r.tx.QueryRow(ctx, `INSERT INTO customer_prepayments (org_id, customer_id, number, payment_account_id, payment_method, payment_date, amount, remaining_balance, status, created_by)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10) RETURNING id, created_at, updated_at`,
		prepayment.OrgID, prepayment.CustomerID, prepayment.Number, prepayment.PaymentAccountID, prepayment.PaymentMethod,
		prepayment.PaymentDate, prepayment.Amount.StringFixed(2), prepayment.RemainingBalance.StringFixed(2), prepayment.Status, prepayment.CreatedBy)
	if err := row.Scan(&prepayment.ID, &prepayment.CreatedAt, &prepayment.UpdatedAt); err != nil {
		return Prepayment{}, err
	}
	return prepayment, nil
}

func (r *txRepository) GetPrepaymentForUpdate(ctx context.Context, orgID, prepaymentID int64) (Prepayment, error) {
	prepayment, err := scanPrepayment(r.tx.QueryRow(ctx, `SELECT `+prepaymentColumns+` FROM customer_prepayments WHERE org_id=$1 AND id=$2 FOR UPDATE`, orgID, prepaymentID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Prepayment{}, ErrPrepaymentNotFound
		}
		return Prepayment{}, err
	}
	return prepayment, nil
}

func (r *txRepository) UpdatePrepayment(ctx context.Context, orgID, prepaymentID int64, remaining decimal.Decimal, status PrepaymentStatus) error {
	_, err := r.tx.Exec(ctx, `UPDATE customer_prepayments SET remaining_balance=$3, status=$4, updated_at=NOW() WHERE org_id=$1 AND id=$2`,
		orgID, prepaymentID, remaining.StringFixed(2), status)
	return err
}

func (r *txRepository) InsertPrepaymentApplication(ctx context.Context, application PrepaymentApplication) (PrepaymentApplication, error) {
	row := r.tx.QueryRow(ctx, `INSERT INTO customer_prepayment_applications (org_id, prepayment_id, invoice_id, applied_amount, date, created_by)
VALUES ($1,$2,$3,$4,$5,$6) RETURNING id, created_at`,
		application.OrgID, application.PrepaymentID, application.InvoiceID, application.AppliedAmount.StringFixed(2), application.Date, application.CreatedBy)
	if err := row.Scan(&application.ID, &application.CreatedAt); err != nil {
		return PrepaymentApplication{}, err
	}
	return application, nil
}

func (r *txRepository) InsertPayment(ctx context.Context, payment Payment) (Payment, error) {
	row := r.tx.QueryRow(ctx, `INSERT INTO payments (org_id, invoice_id, payment_account_id, amount, method, date, created_by)
VALUES ($1,$2,$3,$4,$5,$6,$7) RETURNING id, created_at`,
		payment.OrgID, payment.InvoiceID, payment.PaymentAccountID, payment.Amount.StringFixed(2), payment.Method, payment.Date, payment.CreatedBy)
	if err := row.Scan(&payment.ID, &payment.CreatedAt); err != nil {
		return Payment{}, err
	}
	return payment, nil
}

// GetInvoiceByNumber loads one invoice outside a unit of work.
func (r *Repository) GetInvoiceByNumber(ctx context.Context, orgID int64, number string) (Invoice, error) {
	invoice, err := scanInvoice(r.pool.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE org_id=$1 AND number=$2`, orgID, number))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Invoice{}, ErrInvoiceNotFound
		}
		return Invoice{}, err
	}
	return invoice, nil
}

// ListInvoices returns the organization's invoices, newest first.
func (r *Repository) ListInvoices(ctx context.Context, orgID int64) ([]Invoice, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE org_id=$1 ORDER BY id DESC`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var invoices []Invoice
	for rows.Next() {
		invoice, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, invoice)
	}
	return invoices, rows.Err()
}

// ListDocumentTransactions returns the ledger transactions a document
// produced, originals and reversals alike, in posting order.
func (r *Repository) ListDocumentTransactions(ctx context.Context, orgID int64, docType ledger.DocumentType, docID int64) ([]ledger.Transaction, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, org_id, date, document_type, document_id, reference, description, source_id, created_by, created_at
FROM transactions WHERE org_id=$1 AND document_type=$2 AND document_id=$3 ORDER BY id`, orgID, docType, docID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var txns []ledger.Transaction
	for rows.Next() {
		var t ledger.Transaction
		if err := rows.Scan(&t.ID, &t.OrgID, &t.Date, &t.DocumentType, &t.DocumentID, &t.Reference, &t.Description, &t.SourceID, &t.CreatedBy, &t.CreatedAt); err != nil {
			return nil, err
		}
		txns = append(txns, t)
	}
	return txns, rows.Err()
}

// ListTransactionEntries returns one transaction's entry lines.
func (r *Repository) ListTransactionEntries(ctx context.Context, orgID, transactionID int64) ([]ledger.Entry, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, org_id, account_id, transaction_id, side, amount::text, date, created_by, created_at
FROM entries WHERE org_id=$1 AND transaction_id=$2 ORDER BY id`, orgID, transactionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []ledger.Entry
	for rows.Next() {
		var (
			e      ledger.Entry
			amount string
		)
		if err := rows.Scan(&e.ID, &e.OrgID, &e.AccountID, &e.TransactionID, &e.Side, &amount, &e.Date, &e.CreatedBy, &e.CreatedAt); err != nil {
			return nil, err
		}
		if e.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// GetPrepayment loads one prepayment outside a unit of work.
func (r *Repository) GetPrepayment(ctx context.Context, orgID, prepaymentID int64) (Prepayment, error) {
	prepayment, err := scanPrepayment(r.pool.QueryRow(ctx, `SELECT `+prepaymentColumns+` FROM customer_prepayments WHERE org_id=$1 AND id=$2`, orgID, prepaymentID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Prepayment{}, ErrPrepaymentNotFound
		}
		return Prepayment{}, err
	}
	return prepayment, nil
}

// ListPrepayments returns the organization's prepayments, newest first.
func (r *Repository) ListPrepayments(ctx context.Context, orgID int64) ([]Prepayment, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+prepaymentColumns+` FROM customer_prepayments WHERE org_id=$1 ORDER BY id DESC`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var prepayments []Prepayment
	for rows.Next() {
		prepayment, err := scanPrepayment(rows)
		if err != nil {
			return nil, err
		}
		prepayments = append(prepayments, prepayment)
	}
	return prepayments, rows.Err()
}
