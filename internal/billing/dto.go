package billing

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian/internal/shared"
)

const dateLayout = "2006-01-02"

type lineItemRequest struct {
	ProductID int64 `json:"product_id" validate:"required,gt=0"`
	Quantity  int64 `json:"quantity" validate:"required,gt=0"`
}

type createInvoiceRequest struct {
	CustomerID  int64             `json:"customer_id" validate:"required,gt=0"`
	InvoiceDate string            `json:"invoice_date" validate:"required,datetime=2006-01-02"`
	DueDate     string            `json:"due_date" validate:"required,datetime=2006-01-02"`
	LineItems   []lineItemRequest `json:"line_items" validate:"required,min=1,dive"`
	Total       string            `json:"total" validate:"required"`
}

type createInvoiceBatchRequest struct {
	Invoices []createInvoiceRequest `json:"invoices" validate:"required,min=1,dive"`
}

type createReceiptRequest struct {
	CustomerID  int64             `json:"customer_id" validate:"required,gt=0"`
	ReceiptDate string            `json:"receipt_date" validate:"required,datetime=2006-01-02"`
	LineItems   []lineItemRequest `json:"line_items" validate:"required,min=1,dive"`
	Total       string            `json:"total" validate:"required"`
}

type createPrepaymentRequest struct {
	CustomerID       int64  `json:"customer_id" validate:"required,gt=0"`
	PaymentAccountID int64  `json:"payment_account_id" validate:"required,gt=0"`
	PaymentDate      string `json:"payment_date" validate:"required,datetime=2006-01-02"`
	PaymentMethod    string `json:"payment_method" validate:"required"`
	Amount           string `json:"amount" validate:"required"`
}

type receivePaymentRequest struct {
	InvoiceReference string `json:"invoice_reference" validate:"required"`
	Amount           string `json:"amount" validate:"required"`
	PaymentAccountID int64  `json:"payment_account_id"`
	PaymentMethod    string `json:"payment_method"`
	PrepaymentID     *int64 `json:"prepayment_id,omitempty"`
	PrepaymentAmount string `json:"prepayment_amount,omitempty"`
}

func parseAmount(field, raw string) (decimal.Decimal, error) {
	if raw == "" {
		return decimal.Zero, nil
	}
	amount, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("billing: %w: %s %q is not numeric", shared.ErrArithmetic, field, raw)
	}
	return amount, nil
}

func parseDate(field, raw string) (time.Time, error) {
	date, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("billing: %w: %s %q", shared.ErrValidation, field, raw)
	}
	return date, nil
}

func lineItems(reqs []lineItemRequest) []LineItemInput {
	items := make([]LineItemInput, 0, len(reqs))
	for _, req := range reqs {
		items = append(items, LineItemInput{ProductID: req.ProductID, Quantity: req.Quantity})
	}
	return items
}

func (r createInvoiceRequest) toInput() (CreateInvoiceInput, error) {
	invoiceDate, err := parseDate("invoice_date", r.InvoiceDate)
	if err != nil {
		return CreateInvoiceInput{}, err
	}
	dueDate, err := parseDate("due_date", r.DueDate)
	if err != nil {
		return CreateInvoiceInput{}, err
	}
	total, err := parseAmount("total", r.Total)
	if err != nil {
		return CreateInvoiceInput{}, err
	}
	return CreateInvoiceInput{
		CustomerID:  r.CustomerID,
		InvoiceDate: invoiceDate,
		DueDate:     dueDate,
		LineItems:   lineItems(r.LineItems),
		Total:       total,
	}, nil
}

func (r createReceiptRequest) toInput() (CreateReceiptInput, error) {
	receiptDate, err := parseDate("receipt_date", r.ReceiptDate)
	if err != nil {
		return CreateReceiptInput{}, err
	}
	total, err := parseAmount("total", r.Total)
	if err != nil {
		return CreateReceiptInput{}, err
	}
	return CreateReceiptInput{
		CustomerID:  r.CustomerID,
		ReceiptDate: receiptDate,
		LineItems:   lineItems(r.LineItems),
		Total:       total,
	}, nil
}

func (r createPrepaymentRequest) toInput() (CreatePrepaymentInput, error) {
	paymentDate, err := parseDate("payment_date", r.PaymentDate)
	if err != nil {
		return CreatePrepaymentInput{}, err
	}
	amount, err := parseAmount("amount", r.Amount)
	if err != nil {
		return CreatePrepaymentInput{}, err
	}
	return CreatePrepaymentInput{
		CustomerID:       r.CustomerID,
		PaymentAccountID: r.PaymentAccountID,
		PaymentDate:      paymentDate,
		PaymentMethod:    r.PaymentMethod,
		Amount:           amount,
	}, nil
}

func (r receivePaymentRequest) toInput() (ReceivePaymentInput, error) {
	amount, err := parseAmount("amount", r.Amount)
	if err != nil {
		return ReceivePaymentInput{}, err
	}
	prepaymentAmount, err := parseAmount("prepayment_amount", r.PrepaymentAmount)
	if err != nil {
		return ReceivePaymentInput{}, err
	}
	return ReceivePaymentInput{
		InvoiceReference: r.InvoiceReference,
		Amount:           amount,
		PaymentAccountID: r.PaymentAccountID,
		PaymentMethod:    r.PaymentMethod,
		PrepaymentID:     r.PrepaymentID,
		PrepaymentAmount: prepaymentAmount,
	}, nil
}

type invoiceResponse struct {
	ID          int64  `json:"id"`
	Number      string `json:"number"`
	CustomerID  int64  `json:"customer_id"`
	InvoiceDate string `json:"invoice_date"`
	DueDate     string `json:"due_date"`
	Total       string `json:"total"`
	DueBalance  string `json:"due_balance"`
	Status      string `json:"status"`
	IsActive    bool   `json:"is_active"`
}

func toInvoiceResponse(invoice Invoice) invoiceResponse {
	return invoiceResponse{
		ID:          invoice.ID,
		Number:      invoice.Number,
		CustomerID:  invoice.CustomerID,
		InvoiceDate: invoice.InvoiceDate.Format(dateLayout),
		DueDate:     invoice.DueDate.Format(dateLayout),
		Total:       invoice.Total.StringFixed(2),
		DueBalance:  invoice.DueBalance.StringFixed(2),
		Status:      string(invoice.Status),
		IsActive:    invoice.IsActive,
	}
}

type createInvoiceResponse struct {
	Invoice       invoiceResponse `json:"invoice"`
	TransactionID int64           `json:"transaction_id"`
}

type receiptResponse struct {
	ID            int64  `json:"id"`
	Number        string `json:"number"`
	CustomerID    int64  `json:"customer_id"`
	ReceiptDate   string `json:"receipt_date"`
	Total         string `json:"total"`
	Status        string `json:"status"`
	TransactionID int64  `json:"transaction_id"`
}

type prepaymentResponse struct {
	ID               int64  `json:"id"`
	Number           string `json:"number"`
	CustomerID       int64  `json:"customer_id"`
	Amount           string `json:"amount"`
	RemainingBalance string `json:"remaining_balance"`
	Status           string `json:"status"`
	TransactionID    int64  `json:"transaction_id,omitempty"`
}

func toPrepaymentResponse(prepayment Prepayment, transactionID int64) prepaymentResponse {
	return prepaymentResponse{
		ID:               prepayment.ID,
		Number:           prepayment.Number,
		CustomerID:       prepayment.CustomerID,
		Amount:           prepayment.Amount.StringFixed(2),
		RemainingBalance: prepayment.RemainingBalance.StringFixed(2),
		Status:           string(prepayment.Status),
		TransactionID:    transactionID,
	}
}

type entryResponse struct {
	ID        int64  `json:"id"`
	AccountID int64  `json:"account_id"`
	Side      string `json:"side"`
	Amount    string `json:"amount"`
	Date      string `json:"date"`
}

type transactionResponse struct {
	ID           int64           `json:"id"`
	Date         string          `json:"date"`
	DocumentType string          `json:"document_type"`
	DocumentID   int64           `json:"document_id"`
	Reference    string          `json:"reference"`
	Description  string          `json:"description"`
	Entries      []entryResponse `json:"entries"`
}

func toTransactionResponse(view TransactionView) transactionResponse {
	entries := make([]entryResponse, 0, len(view.Entries))
	for _, entry := range view.Entries {
		entries = append(entries, entryResponse{
			ID:        entry.ID,
			AccountID: entry.AccountID,
			Side:      string(entry.Side),
			Amount:    entry.Amount.StringFixed(2),
			Date:      entry.Date.Format(dateLayout),
		})
	}
	return transactionResponse{
		ID:           view.Transaction.ID,
		Date:         view.Transaction.Date.Format(dateLayout),
		DocumentType: string(view.Transaction.DocumentType),
		DocumentID:   view.Transaction.DocumentID,
		Reference:    view.Transaction.Reference,
		Description:  view.Transaction.Description,
		Entries:      entries,
	}
}

type paymentResponse struct {
	InvoiceID     int64  `json:"invoice_id"`
	Number        string `json:"number"`
	NewDueBalance string `json:"new_due_balance"`
	Status        string `json:"status"`
	TransactionID int64  `json:"transaction_id"`
	PaymentID     int64  `json:"payment_id,omitempty"`
}

type voidResponse struct {
	InvoiceID   int64   `json:"invoice_id"`
	Number      string  `json:"number"`
	Status      string  `json:"status"`
	ReversalIDs []int64 `json:"reversal_transaction_ids"`
}
