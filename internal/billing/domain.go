package billing

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian/internal/shared"
)

// InvoiceStatus enumerates invoice lifecycle values.
type InvoiceStatus string

const (
	InvoicePending InvoiceStatus = "pending"
	InvoicePartial InvoiceStatus = "partial"
	InvoicePaid    InvoiceStatus = "paid"
	InvoiceVoided  InvoiceStatus = "voided"
)

// invoiceTransitions is the closed transition table. paid and voided are
// terminal; partial may repeat while payments accumulate.
var invoiceTransitions = map[InvoiceStatus]map[InvoiceStatus]bool{
	InvoicePending: {InvoicePartial: true, InvoicePaid: true, InvoiceVoided: true},
	InvoicePartial: {InvoicePartial: true, InvoicePaid: true},
}

// CanTransition reports whether moving from s to next is legal.
func (s InvoiceStatus) CanTransition(next InvoiceStatus) bool {
	return invoiceTransitions[s][next]
}

// PrepaymentStatus enumerates customer prepayment states.
type PrepaymentStatus string

const (
	PrepaymentAvailable        PrepaymentStatus = "AVAILABLE"
	PrepaymentPartiallyApplied PrepaymentStatus = "PARTIALLY_APPLIED"
	PrepaymentFullyApplied     PrepaymentStatus = "FULLY_APPLIED"
)

// prepaymentStatusFor derives the status from the remaining balance.
func prepaymentStatusFor(remaining, amount decimal.Decimal) PrepaymentStatus {
	switch {
	case remaining.IsZero():
		return PrepaymentFullyApplied
	case remaining.LessThan(amount):
		return PrepaymentPartiallyApplied
	default:
		return PrepaymentAvailable
	}
}

// ReceiptStatus is fixed at creation: a receipt is a cash sale with no due
// balance, settled immediately.
type ReceiptStatus string

const ReceiptPaid ReceiptStatus = "paid"

// Invoice is a customer invoice carrying a running due balance.
type Invoice struct {
	ID          int64
	OrgID       int64
	CustomerID  int64
	Number      string
	InvoiceDate time.Time
	DueDate     time.Time
	Total       decimal.Decimal
	DueBalance  decimal.Decimal
	Status      InvoiceStatus
	IsActive    bool
	VoidedAt    *time.Time
	VoidedBy    *int64
	CreatedBy   int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// InvoiceLine is one billed product line.
type InvoiceLine struct {
	ID        int64
	OrgID     int64
	InvoiceID int64
	ProductID int64
	Quantity  int64
	UnitPrice decimal.Decimal
	Amount    decimal.Decimal
}

// Receipt records an immediately settled cash sale.
type Receipt struct {
	ID          int64
	OrgID       int64
	CustomerID  int64
	Number      string
	ReceiptDate time.Time
	Total       decimal.Decimal
	Status      ReceiptStatus
	CreatedBy   int64
	CreatedAt   time.Time
}

// Prepayment is customer money held on deposit until applied to invoices.
type Prepayment struct {
	ID               int64
	OrgID            int64
	CustomerID       int64
	Number           string
	PaymentAccountID int64
	PaymentMethod    string
	PaymentDate      time.Time
	Amount           decimal.Decimal
	RemainingBalance decimal.Decimal
	Status           PrepaymentStatus
	CreatedBy        int64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// PrepaymentApplication is the append-only audit of one allocation of a
// prepayment against an invoice.
type PrepaymentApplication struct {
	ID            int64
	OrgID         int64
	PrepaymentID  int64
	InvoiceID     int64
	AppliedAmount decimal.Decimal
	Date          time.Time
	CreatedBy     int64
	CreatedAt     time.Time
}

// Payment is the audit row for the cash portion of one payment event.
type Payment struct {
	ID               int64
	OrgID            int64
	InvoiceID        int64
	PaymentAccountID int64
	Amount           decimal.Decimal
	Method           string
	Date             time.Time
	CreatedBy        int64
	CreatedAt        time.Time
}

// LineItemInput names a catalog product and quantity on a command.
type LineItemInput struct {
	ProductID int64
	Quantity  int64
}

// CreateInvoiceInput is the validated command for invoice creation.
type CreateInvoiceInput struct {
	CustomerID  int64
	InvoiceDate time.Time
	DueDate     time.Time
	LineItems   []LineItemInput
	Total       decimal.Decimal
}

// CreateReceiptInput is the validated command for receipt creation.
type CreateReceiptInput struct {
	CustomerID  int64
	ReceiptDate time.Time
	LineItems   []LineItemInput
	Total       decimal.Decimal
}

// CreatePrepaymentInput is the validated command for taking a customer
// prepayment on deposit.
type CreatePrepaymentInput struct {
	CustomerID       int64
	PaymentAccountID int64
	PaymentDate      time.Time
	PaymentMethod    string
	Amount           decimal.Decimal
}

// ReceivePaymentInput is the validated command for applying cash and
// optionally prepayment funds against an invoice.
type ReceivePaymentInput struct {
	InvoiceReference string
	Amount           decimal.Decimal
	PaymentAccountID int64
	PaymentMethod    string
	PrepaymentID     *int64
	PrepaymentAmount decimal.Decimal
}

// InvoiceResult reports a created invoice and its posting.
type InvoiceResult struct {
	Invoice       Invoice
	TransactionID int64
}

// ReceiptResult reports a created receipt and its posting.
type ReceiptResult struct {
	Receipt       Receipt
	TransactionID int64
}

// PrepaymentResult reports a created prepayment and its posting.
type PrepaymentResult struct {
	Prepayment    Prepayment
	TransactionID int64
}

// PaymentResult reports the invoice position after a payment.
type PaymentResult struct {
	InvoiceID     int64
	Number        string
	NewDueBalance decimal.Decimal
	Status        InvoiceStatus
	TransactionID int64
	PaymentID     int64
}

// VoidResult reports a voided invoice and its reversal transactions.
type VoidResult struct {
	InvoiceID   int64
	Number      string
	Status      InvoiceStatus
	ReversalIDs []int64
}

// MaxBatchSize caps batch document ingestion per call.
const MaxBatchSize = 100

var (
	// ErrInvoiceNotFound indicates an unknown invoice reference.
	ErrInvoiceNotFound = fmt.Errorf("billing: %w: invoice", shared.ErrNotFound)
	// ErrPrepaymentNotFound indicates an unknown prepayment.
	ErrPrepaymentNotFound = fmt.Errorf("billing: %w: prepayment", shared.ErrNotFound)
	// ErrInvoiceAlreadyPaid rejects payments against a settled invoice.
	ErrInvoiceAlreadyPaid = fmt.Errorf("billing: %w: invoice already paid", shared.ErrStateConflict)
	// ErrInvoiceNotVoidable rejects voiding anything but a pending invoice.
	ErrInvoiceNotVoidable = fmt.Errorf("billing: %w: only pending invoices can be voided", shared.ErrStateConflict)
	// ErrAmountExceedsDue rejects payments above the invoice due balance.
	ErrAmountExceedsDue = fmt.Errorf("billing: %w: payment exceeds invoice due balance", shared.ErrLimitExceeded)
	// ErrPrepaymentCustomerMismatch rejects applying another customer's funds.
	ErrPrepaymentCustomerMismatch = fmt.Errorf("billing: %w: prepayment belongs to a different customer", shared.ErrValidation)
	// ErrPrepaymentInsufficient rejects applications above the remaining balance.
	ErrPrepaymentInsufficient = fmt.Errorf("billing: %w: prepayment balance insufficient", shared.ErrValidation)
	// ErrBatchTooLarge rejects batches above MaxBatchSize with no partial processing.
	ErrBatchTooLarge = fmt.Errorf("billing: %w: batch exceeds %d documents", shared.ErrLimitExceeded, MaxBatchSize)
)

// Document number prefixes per document type.
const (
	PrefixInvoice    = "INV"
	PrefixReceipt    = "RCT"
	PrefixPrepayment = "CP"
)
