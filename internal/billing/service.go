package billing

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian/internal/accounts"
	"github.com/meridian-erp/meridian/internal/catalog"
	"github.com/meridian-erp/meridian/internal/ledger"
	"github.com/meridian-erp/meridian/internal/numbering"
	"github.com/meridian-erp/meridian/internal/shared"
)

// ResolverPort supplies the organization's default account map.
type ResolverPort interface {
	ResolveDefaults(ctx context.Context, orgID int64) (accounts.DefaultAccounts, error)
}

// AuditPort records document events for compliance.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service owns the invoice, receipt, and prepayment lifecycles. Posting is
// delegated to the ledger engine and numbering to the numbering service;
// every public operation runs inside one atomic unit of work.
type Service struct {
	repo     RepositoryPort
	catalog  catalog.RepositoryPort
	resolver ResolverPort
	numbers  *numbering.Service
	ledger   *ledger.Engine
	audit    AuditPort
	now      func() time.Time
}

// NewService constructs the billing service.
func NewService(repo RepositoryPort, cat catalog.RepositoryPort, resolver ResolverPort, numbers *numbering.Service, engine *ledger.Engine, audit AuditPort) *Service {
	return &Service{
		repo:     repo,
		catalog:  cat,
		resolver: resolver,
		numbers:  numbers,
		ledger:   engine,
		audit:    audit,
		now:      time.Now,
	}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// pricedLine is a catalog-validated line ready for posting.
type pricedLine struct {
	item    LineItemInput
	product catalog.Product
	amount  decimal.Decimal
}

// priceLines validates line items against the catalog and checks that the
// priced sum matches the command total.
func (s *Service) priceLines(ctx context.Context, orgID int64, items []LineItemInput, total decimal.Decimal) ([]pricedLine, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("billing: %w: at least one line item required", shared.ErrValidation)
	}
	if !ledger.ValidAmount(total) {
		return nil, fmt.Errorf("billing: %w: total %s", shared.ErrArithmetic, total)
	}
	productIDs := make([]int64, 0, len(items))
	for idx, item := range items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("billing: %w: line %d quantity must be positive", shared.ErrValidation, idx)
		}
		productIDs = append(productIDs, item.ProductID)
	}
	products, err := catalog.Require(ctx, s.catalog, orgID, productIDs)
	if err != nil {
		return nil, err
	}
	lines := make([]pricedLine, 0, len(items))
	sum := decimal.Zero
	for _, item := range items {
		product := products[item.ProductID]
		amount := product.Price.Mul(decimal.NewFromInt(item.Quantity))
		if !ledger.ValidAmount(amount) {
			return nil, fmt.Errorf("billing: %w: line amount %s for product %d", shared.ErrArithmetic, amount, product.ID)
		}
		lines = append(lines, pricedLine{item: item, product: product, amount: amount})
		sum = sum.Add(amount)
	}
	if !sum.Equal(total) {
		return nil, fmt.Errorf("billing: %w: line amounts sum to %s, command total is %s", shared.ErrValidation, sum, total)
	}
	return lines, nil
}

// CreateInvoice creates a pending invoice, its line items, and its opening
// posting (accounts receivable debit against each line's income account) in
// one atomic unit.
func (s *Service) CreateInvoice(ctx context.Context, identity shared.Identity, in CreateInvoiceInput) (InvoiceResult, error) {
	if err := validateIdentity(identity); err != nil {
		return InvoiceResult{}, err
	}
	if in.CustomerID == 0 {
		return InvoiceResult{}, fmt.Errorf("billing: %w: customer required", shared.ErrValidation)
	}
	if in.InvoiceDate.IsZero() || in.DueDate.IsZero() || in.DueDate.Before(in.InvoiceDate) {
		return InvoiceResult{}, fmt.Errorf("billing: %w: invalid invoice dates", shared.ErrValidation)
	}
	lines, err := s.priceLines(ctx, identity.OrgID, in.LineItems, in.Total)
	if err != nil {
		return InvoiceResult{}, err
	}
	defaults, err := s.resolver.ResolveDefaults(ctx, identity.OrgID)
	if err != nil {
		return InvoiceResult{}, err
	}

	var result InvoiceResult
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		created, err := s.createInvoiceTx(ctx, tx, identity, in, lines, defaults)
		if err != nil {
			return err
		}
		result = created
		return nil
	})
	if err != nil {
		return InvoiceResult{}, err
	}
	s.recordAudit(ctx, identity, "invoice.create", "invoice", result.Invoice.ID, map[string]any{
		"number":         result.Invoice.Number,
		"total":          result.Invoice.Total.StringFixed(2),
		"transaction_id": result.TransactionID,
	})
	return result, nil
}

// CreateInvoiceBatch creates up to MaxBatchSize invoices in one atomic unit;
// any failure rolls the whole batch back.
func (s *Service) CreateInvoiceBatch(ctx context.Context, identity shared.Identity, batch []CreateInvoiceInput) ([]InvoiceResult, error) {
	if err := validateIdentity(identity); err != nil {
		return nil, err
	}
	if len(batch) == 0 {
		return nil, fmt.Errorf("billing: %w: empty batch", shared.ErrValidation)
	}
	if len(batch) > MaxBatchSize {
		return nil, ErrBatchTooLarge
	}
	pricedBatch := make([][]pricedLine, len(batch))
	for i, in := range batch {
		if in.CustomerID == 0 {
			return nil, fmt.Errorf("billing: %w: batch item %d missing customer", shared.ErrValidation, i)
		}
		if in.InvoiceDate.IsZero() || in.DueDate.IsZero() || in.DueDate.Before(in.InvoiceDate) {
			return nil, fmt.Errorf("billing: %w: batch item %d has invalid dates", shared.ErrValidation, i)
		}
		lines, err := s.priceLines(ctx, identity.OrgID, in.LineItems, in.Total)
		if err != nil {
			return nil, fmt.Errorf("billing: batch item %d: %w", i, err)
		}
		pricedBatch[i] = lines
	}
	defaults, err := s.resolver.ResolveDefaults(ctx, identity.OrgID)
	if err != nil {
		return nil, err
	}

	results := make([]InvoiceResult, 0, len(batch))
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		for i, in := range batch {
			created, err := s.createInvoiceTx(ctx, tx, identity, in, pricedBatch[i], defaults)
			if err != nil {
				return fmt.Errorf("billing: batch item %d: %w", i, err)
			}
			results = append(results, created)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, identity, "invoice.batch_create", "invoice_batch", int64(len(results)), map[string]any{
		"count": len(results),
	})
	return results, nil
}

func (s *Service) createInvoiceTx(ctx context.Context, tx TxRepository, identity shared.Identity, in CreateInvoiceInput, lines []pricedLine, defaults accounts.DefaultAccounts) (InvoiceResult, error) {
	number, err := s.numbers.Next(ctx, tx, identity.OrgID, PrefixInvoice)
	if err != nil {
		return InvoiceResult{}, err
	}
	invoice, err := tx.InsertInvoice(ctx, Invoice{
		OrgID:       identity.OrgID,
		CustomerID:  in.CustomerID,
		Number:      number,
		InvoiceDate: in.InvoiceDate,
		DueDate:     in.DueDate,
		Total:       in.Total,
		DueBalance:  in.Total,
		Status:      InvoicePending,
		IsActive:    true,
		CreatedBy:   identity.UserID,
	})
	if err != nil {
		return InvoiceResult{}, fmt.Errorf("billing: insert invoice: %w", err)
	}
	invoiceLines := make([]InvoiceLine, 0, len(lines))
	entries := make([]ledger.EntryInput, 0, len(lines)+1)
	entries = append(entries, ledger.EntryInput{
		AccountID: defaults.Account(accounts.ConfigAccountsReceivable),
		Side:      ledger.SideDebit,
		Amount:    in.Total,
		Date:      in.InvoiceDate,
		CreatedBy: identity.UserID,
	})
	for _, line := range lines {
		invoiceLines = append(invoiceLines, InvoiceLine{
			OrgID:     identity.OrgID,
			InvoiceID: invoice.ID,
			ProductID: line.product.ID,
			Quantity:  line.item.Quantity,
			UnitPrice: line.product.Price,
			Amount:    line.amount,
		})
		entries = append(entries, ledger.EntryInput{
			AccountID: line.product.IncomeAccountID,
			Side:      ledger.SideCredit,
			Amount:    line.amount,
			Date:      in.InvoiceDate,
			CreatedBy: identity.UserID,
		})
	}
	if err := tx.InsertInvoiceLines(ctx, invoice.ID, invoiceLines); err != nil {
		return InvoiceResult{}, fmt.Errorf("billing: insert invoice lines: %w", err)
	}
	txn, err := s.ledger.Post(ctx, tx, ledger.PostingInput{
		OrgID:        identity.OrgID,
		Date:         in.InvoiceDate,
		DocumentType: ledger.DocumentInvoice,
		DocumentID:   invoice.ID,
		Reference:    number,
		Description:  "Invoice " + number,
		CreatedBy:    identity.UserID,
		Entries:      entries,
	})
	if err != nil {
		return InvoiceResult{}, err
	}
	return InvoiceResult{Invoice: invoice, TransactionID: txn.ID}, nil
}

// CreateReceipt records an immediately settled cash sale: cash debit against
// each line's income account, posted with the receipt in one atomic unit.
func (s *Service) CreateReceipt(ctx context.Context, identity shared.Identity, in CreateReceiptInput) (ReceiptResult, error) {
	if err := validateIdentity(identity); err != nil {
		return ReceiptResult{}, err
	}
	if in.CustomerID == 0 {
		return ReceiptResult{}, fmt.Errorf("billing: %w: customer required", shared.ErrValidation)
	}
	if in.ReceiptDate.IsZero() {
		return ReceiptResult{}, fmt.Errorf("billing: %w: receipt date required", shared.ErrValidation)
	}
	lines, err := s.priceLines(ctx, identity.OrgID, in.LineItems, in.Total)
	if err != nil {
		return ReceiptResult{}, err
	}
	defaults, err := s.resolver.ResolveDefaults(ctx, identity.OrgID)
	if err != nil {
		return ReceiptResult{}, err
	}

	var result ReceiptResult
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		number, err := s.numbers.Next(ctx, tx, identity.OrgID, PrefixReceipt)
		if err != nil {
			return err
		}
		receipt, err := tx.InsertReceipt(ctx, Receipt{
			OrgID:       identity.OrgID,
			CustomerID:  in.CustomerID,
			Number:      number,
			ReceiptDate: in.ReceiptDate,
			Total:       in.Total,
			Status:      ReceiptPaid,
			CreatedBy:   identity.UserID,
		})
		if err != nil {
			return fmt.Errorf("billing: insert receipt: %w", err)
		}
		entries := make([]ledger.EntryInput, 0, len(lines)+1)
		entries = append(entries, ledger.EntryInput{
			AccountID: defaults.Account(accounts.ConfigCash),
			Side:      ledger.SideDebit,
			Amount:    in.Total,
			Date:      in.ReceiptDate,
			CreatedBy: identity.UserID,
		})
		for _, line := range lines {
			entries = append(entries, ledger.EntryInput{
				AccountID: line.product.IncomeAccountID,
				Side:      ledger.SideCredit,
				Amount:    line.amount,
				Date:      in.ReceiptDate,
				CreatedBy: identity.UserID,
			})
		}
		txn, err := s.ledger.Post(ctx, tx, ledger.PostingInput{
			OrgID:        identity.OrgID,
			Date:         in.ReceiptDate,
			DocumentType: ledger.DocumentReceipt,
			DocumentID:   receipt.ID,
			Reference:    number,
			Description:  "Receipt " + number,
			CreatedBy:    identity.UserID,
			Entries:      entries,
		})
		if err != nil {
			return err
		}
		result = ReceiptResult{Receipt: receipt, TransactionID: txn.ID}
		return nil
	})
	if err != nil {
		return ReceiptResult{}, err
	}
	s.recordAudit(ctx, identity, "receipt.create", "receipt", result.Receipt.ID, map[string]any{
		"number":         result.Receipt.Number,
		"total":          result.Receipt.Total.StringFixed(2),
		"transaction_id": result.TransactionID,
	})
	return result, nil
}

// CreatePrepayment takes customer money on deposit: payment account debit
// against customer deposits, posted with the prepayment in one atomic unit.
func (s *Service) CreatePrepayment(ctx context.Context, identity shared.Identity, in CreatePrepaymentInput) (PrepaymentResult, error) {
	if err := validateIdentity(identity); err != nil {
		return PrepaymentResult{}, err
	}
	if in.CustomerID == 0 {
		return PrepaymentResult{}, fmt.Errorf("billing: %w: customer required", shared.ErrValidation)
	}
	if in.PaymentAccountID == 0 {
		return PrepaymentResult{}, fmt.Errorf("billing: %w: payment account required", shared.ErrValidation)
	}
	if in.PaymentDate.IsZero() {
		return PrepaymentResult{}, fmt.Errorf("billing: %w: payment date required", shared.ErrValidation)
	}
	if !ledger.ValidAmount(in.Amount) {
		return PrepaymentResult{}, fmt.Errorf("billing: %w: amount %s", shared.ErrArithmetic, in.Amount)
	}
	defaults, err := s.resolver.ResolveDefaults(ctx, identity.OrgID)
	if err != nil {
		return PrepaymentResult{}, err
	}

	var result PrepaymentResult
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		number, err := s.numbers.Next(ctx, tx, identity.OrgID, PrefixPrepayment)
		if err != nil {
			return err
		}
		prepayment, err := tx.InsertPrepayment(ctx, Prepayment{
			OrgID:            identity.OrgID,
			CustomerID:       in.CustomerID,
			Number:           number,
			PaymentAccountID: in.PaymentAccountID,
			PaymentMethod:    in.PaymentMethod,
			PaymentDate:      in.PaymentDate,
			Amount:           in.Amount,
			RemainingBalance: in.Amount,
			Status:           PrepaymentAvailable,
			CreatedBy:        identity.UserID,
		})
		if err != nil {
			return fmt.Errorf("billing: insert prepayment: %w", err)
		}
		txn, err := s.ledger.Post(ctx, tx, ledger.PostingInput{
			OrgID:        identity.OrgID,
			Date:         in.PaymentDate,
			DocumentType: ledger.DocumentPrepayment,
			DocumentID:   prepayment.ID,
			Reference:    number,
			Description:  "Customer prepayment " + number,
			CreatedBy:    identity.UserID,
			Entries: []ledger.EntryInput{
				{AccountID: in.PaymentAccountID, Side: ledger.SideDebit, Amount: in.Amount, Date: in.PaymentDate, CreatedBy: identity.UserID},
				{AccountID: defaults.Account(accounts.ConfigCustomerDeposits), Side: ledger.SideCredit, Amount: in.Amount, Date: in.PaymentDate, CreatedBy: identity.UserID},
			},
		})
		if err != nil {
			return err
		}
		result = PrepaymentResult{Prepayment: prepayment, TransactionID: txn.ID}
		return nil
	})
	if err != nil {
		return PrepaymentResult{}, err
	}
	s.recordAudit(ctx, identity, "prepayment.create", "customer_prepayment", result.Prepayment.ID, map[string]any{
		"number":         result.Prepayment.Number,
		"amount":         result.Prepayment.Amount.StringFixed(2),
		"transaction_id": result.TransactionID,
	})
	return result, nil
}

// ReceivePayment allocates cash and optionally prepayment funds against an
// invoice's due balance. The invoice row is read for update so concurrent
// payments cannot jointly overdraw the balance; everything commits or rolls
// back as one unit.
func (s *Service) ReceivePayment(ctx context.Context, identity shared.Identity, in ReceivePaymentInput) (PaymentResult, error) {
	if err := validateIdentity(identity); err != nil {
		return PaymentResult{}, err
	}
	if in.InvoiceReference == "" {
		return PaymentResult{}, fmt.Errorf("billing: %w: invoice reference required", shared.ErrValidation)
	}
	if in.Amount.IsNegative() || !in.Amount.Equal(in.Amount.Round(2)) {
		return PaymentResult{}, fmt.Errorf("billing: %w: cash amount %s", shared.ErrArithmetic, in.Amount)
	}
	if in.PrepaymentID == nil && in.PrepaymentAmount.Sign() != 0 {
		return PaymentResult{}, fmt.Errorf("billing: %w: prepayment amount without prepayment", shared.ErrValidation)
	}
	if in.PrepaymentID != nil && !ledger.ValidAmount(in.PrepaymentAmount) {
		return PaymentResult{}, fmt.Errorf("billing: %w: prepayment amount %s", shared.ErrArithmetic, in.PrepaymentAmount)
	}
	total := in.Amount.Add(in.PrepaymentAmount)
	if !ledger.ValidAmount(total) {
		return PaymentResult{}, fmt.Errorf("billing: %w: payment total %s", shared.ErrArithmetic, total)
	}
	if in.Amount.IsPositive() && in.PaymentAccountID == 0 {
		return PaymentResult{}, fmt.Errorf("billing: %w: payment account required for cash portion", shared.ErrValidation)
	}
	defaults, err := s.resolver.ResolveDefaults(ctx, identity.OrgID)
	if err != nil {
		return PaymentResult{}, err
	}

	var result PaymentResult
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		invoice, err := tx.GetInvoiceByNumberForUpdate(ctx, identity.OrgID, in.InvoiceReference)
		if err != nil {
			return err
		}
		if invoice.Status == InvoicePaid {
			return ErrInvoiceAlreadyPaid
		}
		if total.GreaterThan(invoice.DueBalance) {
			return ErrAmountExceedsDue
		}

		paymentDate := s.now()
		receivable := defaults.Account(accounts.ConfigAccountsReceivable)
		entries := make([]ledger.EntryInput, 0, 4)
		if in.Amount.IsPositive() {
			entries = append(entries,
				ledger.EntryInput{AccountID: in.PaymentAccountID, Side: ledger.SideDebit, Amount: in.Amount, Date: paymentDate, CreatedBy: identity.UserID},
				ledger.EntryInput{AccountID: receivable, Side: ledger.SideCredit, Amount: in.Amount, Date: paymentDate, CreatedBy: identity.UserID},
			)
		}

		if in.PrepaymentID != nil {
			prepayment, err := tx.GetPrepaymentForUpdate(ctx, identity.OrgID, *in.PrepaymentID)
			if err != nil {
				return err
			}
			if prepayment.CustomerID != invoice.CustomerID {
				return ErrPrepaymentCustomerMismatch
			}
			if in.PrepaymentAmount.GreaterThan(prepayment.RemainingBalance) {
				return ErrPrepaymentInsufficient
			}
			entries = append(entries,
				ledger.EntryInput{AccountID: defaults.Account(accounts.ConfigCustomerDeposits), Side: ledger.SideDebit, Amount: in.PrepaymentAmount, Date: paymentDate, CreatedBy: identity.UserID},
				ledger.EntryInput{AccountID: receivable, Side: ledger.SideCredit, Amount: in.PrepaymentAmount, Date: paymentDate, CreatedBy: identity.UserID},
			)
			remaining := prepayment.RemainingBalance.Sub(in.PrepaymentAmount)
			if err := tx.UpdatePrepayment(ctx, identity.OrgID, prepayment.ID, remaining, prepaymentStatusFor(remaining, prepayment.Amount)); err != nil {
				return fmt.Errorf("billing: update prepayment: %w", err)
			}
			if _, err := tx.InsertPrepaymentApplication(ctx, PrepaymentApplication{
				OrgID:         identity.OrgID,
				PrepaymentID:  prepayment.ID,
				InvoiceID:     invoice.ID,
				AppliedAmount: in.PrepaymentAmount,
				Date:          paymentDate,
				CreatedBy:     identity.UserID,
			}); err != nil {
				return fmt.Errorf("billing: insert prepayment application: %w", err)
			}
		}

		txn, err := s.ledger.Post(ctx, tx, ledger.PostingInput{
			OrgID:        identity.OrgID,
			Date:         paymentDate,
			DocumentType: ledger.DocumentPayment,
			DocumentID:   invoice.ID,
			Reference:    invoice.Number,
			Description:  "Payment against invoice " + invoice.Number,
			CreatedBy:    identity.UserID,
			Entries:      entries,
		})
		if err != nil {
			return err
		}

		newDue := invoice.DueBalance.Sub(total)
		status := InvoicePartial
		if newDue.IsZero() {
			status = InvoicePaid
		}
		if !invoice.Status.CanTransition(status) {
			return fmt.Errorf("billing: %w: invoice %s cannot move from %s to %s", shared.ErrStateConflict, invoice.Number, invoice.Status, status)
		}
		if err := tx.UpdateInvoicePayment(ctx, identity.OrgID, invoice.ID, newDue, status); err != nil {
			return fmt.Errorf("billing: update invoice: %w", err)
		}

		var paymentID int64
		if in.Amount.IsPositive() {
			payment, err := tx.InsertPayment(ctx, Payment{
				OrgID:            identity.OrgID,
				InvoiceID:        invoice.ID,
				PaymentAccountID: in.PaymentAccountID,
				Amount:           in.Amount,
				Method:           in.PaymentMethod,
				Date:             paymentDate,
				CreatedBy:        identity.UserID,
			})
			if err != nil {
				return fmt.Errorf("billing: insert payment: %w", err)
			}
			paymentID = payment.ID
		}

		result = PaymentResult{
			InvoiceID:     invoice.ID,
			Number:        invoice.Number,
			NewDueBalance: newDue,
			Status:        status,
			TransactionID: txn.ID,
			PaymentID:     paymentID,
		}
		return nil
	})
	if err != nil {
		return PaymentResult{}, err
	}
	s.recordAudit(ctx, identity, "invoice.receive_payment", "invoice", result.InvoiceID, map[string]any{
		"number":         result.Number,
		"cash":           in.Amount.StringFixed(2),
		"prepayment":     in.PrepaymentAmount.StringFixed(2),
		"due_balance":    result.NewDueBalance.StringFixed(2),
		"status":         string(result.Status),
		"transaction_id": result.TransactionID,
	})
	return result, nil
}

// VoidInvoice reverses every transaction posted for a pending invoice and
// stamps the void metadata. Paid, partial, and already-voided invoices are
// rejected.
func (s *Service) VoidInvoice(ctx context.Context, identity shared.Identity, invoiceID int64) (VoidResult, error) {
	if err := validateIdentity(identity); err != nil {
		return VoidResult{}, err
	}
	if invoiceID == 0 {
		return VoidResult{}, fmt.Errorf("billing: %w: invoice id required", shared.ErrValidation)
	}

	var result VoidResult
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		invoice, err := tx.GetInvoiceForUpdate(ctx, identity.OrgID, invoiceID)
		if err != nil {
			return err
		}
		if !invoice.Status.CanTransition(InvoiceVoided) {
			return ErrInvoiceNotVoidable
		}
		reversals, err := s.ledger.ReverseDocument(ctx, tx, identity.OrgID, ledger.DocumentInvoice, invoice.ID, identity.UserID)
		if err != nil {
			return err
		}
		voidedAt := s.now()
		if err := tx.MarkInvoiceVoided(ctx, identity.OrgID, invoice.ID, identity.UserID, voidedAt); err != nil {
			return fmt.Errorf("billing: mark invoice voided: %w", err)
		}
		reversalIDs := make([]int64, 0, len(reversals))
		for _, reversal := range reversals {
			reversalIDs = append(reversalIDs, reversal.ID)
		}
		result = VoidResult{
			InvoiceID:   invoice.ID,
			Number:      invoice.Number,
			Status:      InvoiceVoided,
			ReversalIDs: reversalIDs,
		}
		return nil
	})
	if err != nil {
		return VoidResult{}, err
	}
	s.recordAudit(ctx, identity, "invoice.void", "invoice", result.InvoiceID, map[string]any{
		"number":       result.Number,
		"reversal_ids": result.ReversalIDs,
	})
	return result, nil
}

// GetInvoice returns one invoice by number.
func (s *Service) GetInvoice(ctx context.Context, identity shared.Identity, number string) (Invoice, error) {
	if err := validateIdentity(identity); err != nil {
		return Invoice{}, err
	}
	return s.repo.GetInvoiceByNumber(ctx, identity.OrgID, number)
}

// ListInvoices returns the organization's invoices.
func (s *Service) ListInvoices(ctx context.Context, identity shared.Identity) ([]Invoice, error) {
	if err := validateIdentity(identity); err != nil {
		return nil, err
	}
	return s.repo.ListInvoices(ctx, identity.OrgID)
}

// TransactionView pairs a ledger transaction with its entry lines for the
// read surface.
type TransactionView struct {
	Transaction ledger.Transaction
	Entries     []ledger.Entry
}

// ListInvoiceTransactions returns the ledger trail of one invoice, the
// original posting plus any payment and reversal transactions.
func (s *Service) ListInvoiceTransactions(ctx context.Context, identity shared.Identity, number string) ([]TransactionView, error) {
	if err := validateIdentity(identity); err != nil {
		return nil, err
	}
	invoice, err := s.repo.GetInvoiceByNumber(ctx, identity.OrgID, number)
	if err != nil {
		return nil, err
	}
	var txns []ledger.Transaction
	for _, docType := range []ledger.DocumentType{ledger.DocumentInvoice, ledger.DocumentPayment} {
		batch, err := s.repo.ListDocumentTransactions(ctx, identity.OrgID, docType, invoice.ID)
		if err != nil {
			return nil, err
		}
		txns = append(txns, batch...)
	}
	sort.Slice(txns, func(i, j int) bool { return txns[i].ID < txns[j].ID })
	views := make([]TransactionView, 0, len(txns))
	for _, txn := range txns {
		entries, err := s.repo.ListTransactionEntries(ctx, identity.OrgID, txn.ID)
		if err != nil {
			return nil, err
		}
		views = append(views, TransactionView{Transaction: txn, Entries: entries})
	}
	return views, nil
}

// GetPrepayment returns one prepayment by id.
func (s *Service) GetPrepayment(ctx context.Context, identity shared.Identity, prepaymentID int64) (Prepayment, error) {
	if err := validateIdentity(identity); err != nil {
		return Prepayment{}, err
	}
	return s.repo.GetPrepayment(ctx, identity.OrgID, prepaymentID)
}

// ListPrepayments returns the organization's prepayments.
func (s *Service) ListPrepayments(ctx context.Context, identity shared.Identity) ([]Prepayment, error) {
	if err := validateIdentity(identity); err != nil {
		return nil, err
	}
	return s.repo.ListPrepayments(ctx, identity.OrgID)
}

func (s *Service) recordAudit(ctx context.Context, identity shared.Identity, action, entity string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		OrgID:    identity.OrgID,
		ActorID:  identity.UserID,
		Action:   action,
		Entity:   entity,
		EntityID: fmt.Sprintf("%d", entityID),
		Meta:     meta,
		At:       s.now(),
	})
}

func validateIdentity(identity shared.Identity) error {
	if !identity.Valid() {
		return fmt.Errorf("billing: %w: organization and user identity required", shared.ErrValidation)
	}
	return nil
}
