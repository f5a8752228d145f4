package billing

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian/internal/accounts"
	"github.com/meridian-erp/meridian/internal/catalog"
	"github.com/meridian-erp/meridian/internal/ledger"
	"github.com/meridian-erp/meridian/internal/numbering"
	"github.com/meridian-erp/meridian/internal/shared"
)

// Role account ids used across the tests.
const (
	accountCash       = 101
	accountAR         = 102
	accountDeposits   = 103
	accountRevenueOne = 201
	accountRevenueTwo = 202
	accountBank       = 301
)

func d(value string) decimal.Decimal {
	out, err := decimal.NewFromString(value)
	if err != nil {
		panic(err)
	}
	return out
}

// memoryState is the whole persisted world of the fake repository. WithTx
// runs against a clone and swaps it in on success, so a failing operation
// leaves no trace, matching the atomic unit the real store provides.
type memoryState struct {
	sequences        map[string]int64
	invoices         map[int64]Invoice
	invoiceLines     map[int64][]InvoiceLine
	receipts         map[int64]Receipt
	prepayments      map[int64]Prepayment
	applications     []PrepaymentApplication
	payments         []Payment
	transactions     []ledger.Transaction
	entries          map[int64][]ledger.Entry
	nextInvoiceID    int64
	nextReceiptID    int64
	nextPrepaymentID int64
	nextAppID        int64
	nextPaymentID    int64
	nextTxnID        int64
	nextEntryID      int64
}

func newMemoryState() *memoryState {
	return &memoryState{
		sequences:    make(map[string]int64),
		invoices:     make(map[int64]Invoice),
		invoiceLines: make(map[int64][]InvoiceLine),
		receipts:     make(map[int64]Receipt),
		prepayments:  make(map[int64]Prepayment),
		entries:      make(map[int64][]ledger.Entry),
	}
}

func (s *memoryState) clone() *memoryState {
	out := newMemoryState()
	for k, v := range s.sequences {
		out.sequences[k] = v
	}
	for k, v := range s.invoices {
		out.invoices[k] = v
	}
	for k, v := range s.invoiceLines {
		out.invoiceLines[k] = append([]InvoiceLine(nil), v...)
	}
	for k, v := range s.receipts {
		out.receipts[k] = v
	}
	for k, v := range s.prepayments {
		out.prepayments[k] = v
	}
	out.applications = append([]PrepaymentApplication(nil), s.applications...)
	out.payments = append([]Payment(nil), s.payments...)
	out.transactions = append([]ledger.Transaction(nil), s.transactions...)
	for k, v := range s.entries {
		out.entries[k] = append([]ledger.Entry(nil), v...)
	}
	out.nextInvoiceID = s.nextInvoiceID
	out.nextReceiptID = s.nextReceiptID
	out.nextPrepaymentID = s.nextPrepaymentID
	out.nextAppID = s.nextAppID
	out.nextPaymentID = s.nextPaymentID
	out.nextTxnID = s.nextTxnID
	out.nextEntryID = s.nextEntryID
	return out
}

type memoryRepo struct {
	state *memoryState
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{state: newMemoryState()}
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	trial := r.state.clone()
	if err := fn(ctx, &memoryTx{state: trial}); err != nil {
		return err
	}
	r.state = trial
	return nil
}

func (r *memoryRepo) GetInvoiceByNumber(ctx context.Context, orgID int64, number string) (Invoice, error) {
	for _, invoice := range r.state.invoices {
		if invoice.OrgID == orgID && invoice.Number == number {
			return invoice, nil
		}
	}
	return Invoice{}, ErrInvoiceNotFound
}

func (r *memoryRepo) ListInvoices(ctx context.Context, orgID int64) ([]Invoice, error) {
	var out []Invoice
	for _, invoice := range r.state.invoices {
		if invoice.OrgID == orgID {
			out = append(out, invoice)
		}
	}
	return out, nil
}

func (r *memoryRepo) GetPrepayment(ctx context.Context, orgID, prepaymentID int64) (Prepayment, error) {
	prepayment, ok := r.state.prepayments[prepaymentID]
	if !ok || prepayment.OrgID != orgID {
		return Prepayment{}, ErrPrepaymentNotFound
	}
	return prepayment, nil
}

func (r *memoryRepo) ListPrepayments(ctx context.Context, orgID int64) ([]Prepayment, error) {
	var out []Prepayment
	for _, prepayment := range r.state.prepayments {
		if prepayment.OrgID == orgID {
			out = append(out, prepayment)
		}
	}
	return out, nil
}

func (r *memoryRepo) ListDocumentTransactions(ctx context.Context, orgID int64, docType ledger.DocumentType, docID int64) ([]ledger.Transaction, error) {
	var out []ledger.Transaction
	for _, txn := range r.state.transactions {
		if txn.OrgID == orgID && txn.DocumentType == docType && txn.DocumentID == docID {
			out = append(out, txn)
		}
	}
	return out, nil
}

func (r *memoryRepo) ListTransactionEntries(ctx context.Context, orgID, transactionID int64) ([]ledger.Entry, error) {
	return r.state.entries[transactionID], nil
}

type memoryTx struct {
	state *memoryState
}

func (t *memoryTx) IncrementSequence(ctx context.Context, orgID int64, prefix string) (int64, error) {
	key := fmt.Sprintf("%d/%s", orgID, prefix)
	t.state.sequences[key]++
	return t.state.sequences[key], nil
}

func (t *memoryTx) InsertTransaction(ctx context.Context, in ledger.PostingInput, sourceID uuid.UUID) (ledger.Transaction, error) {
	t.state.nextTxnID++
	txn := ledger.Transaction{
		ID:           t.state.nextTxnID,
		OrgID:        in.OrgID,
		Date:         in.Date,
		DocumentType: in.DocumentType,
		DocumentID:   in.DocumentID,
		Reference:    in.Reference,
		Description:  in.Description,
		SourceID:     sourceID,
		CreatedBy:    in.CreatedBy,
		CreatedAt:    time.Now(),
	}
	t.state.transactions = append(t.state.transactions, txn)
	return txn, nil
}

func (t *memoryTx) InsertEntries(ctx context.Context, txn ledger.Transaction, entries []ledger.EntryInput) error {
	for _, in := range entries {
		t.state.nextEntryID++
		t.state.entries[txn.ID] = append(t.state.entries[txn.ID], ledger.Entry{
			ID:            t.state.nextEntryID,
			OrgID:         txn.OrgID,
			AccountID:     in.AccountID,
			TransactionID: txn.ID,
			Side:          in.Side,
			Amount:        in.Amount,
			Date:          in.Date,
			CreatedBy:     in.CreatedBy,
		})
	}
	return nil
}

func (t *memoryTx) ListTransactionsByDocument(ctx context.Context, orgID int64, docType ledger.DocumentType, docID int64) ([]ledger.Transaction, error) {
	var out []ledger.Transaction
	for _, txn := range t.state.transactions {
		if txn.OrgID == orgID && txn.DocumentType == docType && txn.DocumentID == docID {
			out = append(out, txn)
		}
	}
	return out, nil
}

func (t *memoryTx) ListEntriesByTransaction(ctx context.Context, orgID, transactionID int64) ([]ledger.Entry, error) {
	return t.state.entries[transactionID], nil
}

func (t *memoryTx) InsertInvoice(ctx context.Context, invoice Invoice) (Invoice, error) {
	t.state.nextInvoiceID++
	invoice.ID = t.state.nextInvoiceID
	invoice.CreatedAt = time.Now()
	invoice.UpdatedAt = invoice.CreatedAt
	t.state.invoices[invoice.ID] = invoice
	return invoice, nil
}

func (t *memoryTx) InsertInvoiceLines(ctx context.Context, invoiceID int64, lines []InvoiceLine) error {
	t.state.invoiceLines[invoiceID] = append(t.state.invoiceLines[invoiceID], lines...)
	return nil
}

func (t *memoryTx) GetInvoiceByNumberForUpdate(ctx context.Context, orgID int64, number string) (Invoice, error) {
	for _, invoice := range t.state.invoices {
		if invoice.OrgID == orgID && invoice.Number == number {
			return invoice, nil
		}
	}
	return Invoice{}, ErrInvoiceNotFound
}

func (t *memoryTx) GetInvoiceForUpdate(ctx context.Context, orgID, invoiceID int64) (Invoice, error) {
	invoice, ok := t.state.invoices[invoiceID]
	if !ok || invoice.OrgID != orgID {
		return Invoice{}, ErrInvoiceNotFound
	}
	return invoice, nil
}

func (t *memoryTx) UpdateInvoicePayment(ctx context.Context, orgID, invoiceID int64, dueBalance decimal.Decimal, status InvoiceStatus) error {
	invoice := t.state.invoices[invoiceID]
	invoice.DueBalance = dueBalance
	invoice.Status = status
	invoice.UpdatedAt = time.Now()
	t.state.invoices[invoiceID] = invoice
	return nil
}

func (t *memoryTx) MarkInvoiceVoided(ctx context.Context, orgID, invoiceID int64, voidedBy int64, voidedAt time.Time) error {
	invoice := t.state.invoices[invoiceID]
	invoice.Status = InvoiceVoided
	invoice.IsActive = false
	invoice.DueBalance = decimal.Zero
	invoice.VoidedAt = &voidedAt
	invoice.VoidedBy = &voidedBy
	t.state.invoices[invoiceID] = invoice
	return nil
}

func (t *memoryTx) InsertReceipt(ctx context.Context, receipt Receipt) (Receipt, error) {
	t.state.nextReceiptID++
	receipt.ID = t.state.nextReceiptID
	receipt.CreatedAt = time.Now()
	t.state.receipts[receipt.ID] = receipt
	return receipt, nil
}

func (t *memoryTx) InsertPrepayment(ctx context.Context, prepayment Prepayment) (Prepayment, error) {
	t.state.nextPrepaymentID++
	prepayment.ID = t.state.nextPrepaymentID
	prepayment.CreatedAt = time.Now()
	prepayment.UpdatedAt = prepayment.CreatedAt
	t.state.prepayments[prepayment.ID] = prepayment
	return prepayment, nil
}

func (t *memoryTx) GetPrepaymentForUpdate(ctx context.Context, orgID, prepaymentID int64) (Prepayment, error) {
	prepayment, ok := t.state.prepayments[prepaymentID]
	if !ok || prepayment.OrgID != orgID {
		return Prepayment{}, ErrPrepaymentNotFound
	}
	return prepayment, nil
}

func (t *memoryTx) UpdatePrepayment(ctx context.Context, orgID, prepaymentID int64, remaining decimal.Decimal, status PrepaymentStatus) error {
	prepayment := t.state.prepayments[prepaymentID]
	prepayment.RemainingBalance = remaining
	prepayment.Status = status
	prepayment.UpdatedAt = time.Now()
	t.state.prepayments[prepaymentID] = prepayment
	return nil
}

func (t *memoryTx) InsertPrepaymentApplication(ctx context.Context, application PrepaymentApplication) (PrepaymentApplication, error) {
	t.state.nextAppID++
	application.ID = t.state.nextAppID
	application.CreatedAt = time.Now()
	t.state.applications = append(t.state.applications, application)
	return application, nil
}

func (t *memoryTx) InsertPayment(ctx context.Context, payment Payment) (Payment, error) {
	t.state.nextPaymentID++
	payment.ID = t.state.nextPaymentID
	payment.CreatedAt = time.Now()
	t.state.payments = append(t.state.payments, payment)
	return payment, nil
}

type memoryCatalog struct {
	products map[int64]catalog.Product
}

func (c *memoryCatalog) GetProducts(ctx context.Context, orgID int64, productIDs []int64) (map[int64]catalog.Product, error) {
	out := make(map[int64]catalog.Product)
	for _, id := range productIDs {
		if product, ok := c.products[id]; ok && product.OrgID == orgID {
			out[id] = product
		}
	}
	return out, nil
}

type stubResolver struct {
	defaults accounts.DefaultAccounts
	err      error
}

func (r *stubResolver) ResolveDefaults(ctx context.Context, orgID int64) (accounts.DefaultAccounts, error) {
	if r.err != nil {
		return accounts.DefaultAccounts{}, r.err
	}
	return r.defaults, nil
}

type recordingAudit struct {
	logs []shared.AuditLog
}

func (a *recordingAudit) Record(ctx context.Context, log shared.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

type fixture struct {
	service *Service
	repo    *memoryRepo
	audit   *recordingAudit
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	repo := newMemoryRepo()
	cat := &memoryCatalog{products: map[int64]catalog.Product{
		1: {ID: 1, OrgID: 1, Code: "WIDGET", Name: "Widget", Price: d("50.00"), IncomeAccountID: accountRevenueOne, IsActive: true},
		2: {ID: 2, OrgID: 1, Code: "GADGET", Name: "Gadget", Price: d("25.00"), IncomeAccountID: accountRevenueTwo, IsActive: true},
	}}
	resolver := &stubResolver{defaults: accounts.NewDefaultAccounts(map[accounts.ConfigType]int64{
		accounts.ConfigCash:               accountCash,
		accounts.ConfigCOGS:               104,
		accounts.ConfigInventory:          105,
		accounts.ConfigInventoryOffset:    106,
		accounts.ConfigAccountsPayable:    107,
		accounts.ConfigAccountsReceivable: accountAR,
		accounts.ConfigRetainedEarnings:   108,
		accounts.ConfigCustomerDeposits:   accountDeposits,
		accounts.ConfigVendorDeposits:     109,
	})}
	audit := &recordingAudit{}
	service := NewService(repo, cat, resolver, numbering.NewService(), ledger.NewEngine(), audit)
	return &fixture{service: service, repo: repo, audit: audit}
}

var identity = shared.Identity{OrgID: 1, UserID: 7}

// invoiceInputQty builds a command whose single line bills product 1 (50.00
// per unit) qty times against the stated total.
func invoiceInputQty(total string, qty int64) CreateInvoiceInput {
	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	return CreateInvoiceInput{
		CustomerID:  11,
		InvoiceDate: day,
		DueDate:     day.AddDate(0, 1, 0),
		LineItems:   []LineItemInput{{ProductID: 1, Quantity: qty}},
		Total:       d(total),
	}
}

func invoiceInput(total string) CreateInvoiceInput {
	return invoiceInputQty(total, 2)
}

func (f *fixture) mustCreateInvoice(t *testing.T, in CreateInvoiceInput) InvoiceResult {
	t.Helper()
	result, err := f.service.CreateInvoice(context.Background(), identity, in)
	require.NoError(t, err)
	return result
}

func (f *fixture) entriesFor(transactionID int64) []ledger.Entry {
	return f.repo.state.entries[transactionID]
}

func requireBalanced(t *testing.T, entries []ledger.Entry) {
	t.Helper()
	debit, credit := decimal.Zero, decimal.Zero
	for _, entry := range entries {
		switch entry.Side {
		case ledger.SideDebit:
			debit = debit.Add(entry.Amount)
		case ledger.SideCredit:
			credit = credit.Add(entry.Amount)
		}
	}
	require.True(t, debit.Equal(credit), "debits %s != credits %s", debit, credit)
}

func TestCreateInvoice(t *testing.T) {
	f := newFixture(t)

	result := f.mustCreateInvoice(t, invoiceInput("100.00"))

	invoice := result.Invoice
	require.Equal(t, "INV-00000001", invoice.Number)
	require.Equal(t, InvoicePending, invoice.Status)
	require.True(t, invoice.DueBalance.Equal(d("100.00")))
	require.True(t, invoice.IsActive)

	entries := f.entriesFor(result.TransactionID)
	require.Len(t, entries, 2)
	requireBalanced(t, entries)
	require.Equal(t, int64(accountAR), entries[0].AccountID)
	require.Equal(t, ledger.SideDebit, entries[0].Side)
	require.Equal(t, int64(accountRevenueOne), entries[1].AccountID)
	require.Equal(t, ledger.SideCredit, entries[1].Side)
}

func TestCreateInvoiceMergesSameIncomeAccount(t *testing.T) {
	f := newFixture(t)

	in := invoiceInput("150.00")
	in.LineItems = []LineItemInput{
		{ProductID: 1, Quantity: 2}, // 100.00 to revenue one
		{ProductID: 1, Quantity: 1}, // 50.00 to revenue one, same day
	}

	result := f.mustCreateInvoice(t, in)
	entries := f.entriesFor(result.TransactionID)
	require.Len(t, entries, 2, "same income account on the same day posts once")
	requireBalanced(t, entries)
}

func TestCreateInvoiceTotalMismatch(t *testing.T) {
	f := newFixture(t)

	in := invoiceInput("99.00") // lines price to 100.00
	_, err := f.service.CreateInvoice(context.Background(), identity, in)
	require.ErrorIs(t, err, shared.ErrValidation)
	require.Empty(t, f.repo.state.invoices)
}

func TestCreateInvoiceUnknownProduct(t *testing.T) {
	f := newFixture(t)

	in := invoiceInput("100.00")
	in.LineItems = []LineItemInput{{ProductID: 99, Quantity: 1}}
	_, err := f.service.CreateInvoice(context.Background(), identity, in)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestCreateInvoiceConfigurationFailure(t *testing.T) {
	f := newFixture(t)
	f.service.resolver = &stubResolver{err: &accounts.ConfigurationError{OrgID: 1, Missing: []accounts.ConfigType{accounts.ConfigCustomerDeposits}}}

	_, err := f.service.CreateInvoice(context.Background(), identity, invoiceInput("100.00"))
	require.ErrorIs(t, err, shared.ErrConfiguration)
	require.Empty(t, f.repo.state.invoices)
}

func TestInvoiceNumbersAreMonotonic(t *testing.T) {
	f := newFixture(t)

	first := f.mustCreateInvoice(t, invoiceInput("100.00"))
	second := f.mustCreateInvoice(t, invoiceInput("100.00"))
	require.Equal(t, "INV-00000001", first.Invoice.Number)
	require.Equal(t, "INV-00000002", second.Invoice.Number)
}

func TestReceivePaymentPartialThenPaid(t *testing.T) {
	f := newFixture(t)
	created := f.mustCreateInvoice(t, invoiceInput("100.00"))

	partial, err := f.service.ReceivePayment(context.Background(), identity, ReceivePaymentInput{
		InvoiceReference: created.Invoice.Number,
		Amount:           d("60.00"),
		PaymentAccountID: accountBank,
		PaymentMethod:    "bank_transfer",
	})
	require.NoError(t, err)
	require.True(t, partial.NewDueBalance.Equal(d("40.00")))
	require.Equal(t, InvoicePartial, partial.Status)
	requireBalanced(t, f.entriesFor(partial.TransactionID))

	final, err := f.service.ReceivePayment(context.Background(), identity, ReceivePaymentInput{
		InvoiceReference: created.Invoice.Number,
		Amount:           d("40.00"),
		PaymentAccountID: accountBank,
		PaymentMethod:    "bank_transfer",
	})
	require.NoError(t, err)
	require.True(t, final.NewDueBalance.IsZero())
	require.Equal(t, InvoicePaid, final.Status)

	require.Len(t, f.repo.state.payments, 2)
	stored := f.repo.state.invoices[created.Invoice.ID]
	require.Equal(t, InvoicePaid, stored.Status)
	require.True(t, stored.DueBalance.IsZero())
}

func TestReceivePaymentExceedsDue(t *testing.T) {
	f := newFixture(t)
	created := f.mustCreateInvoice(t, invoiceInput("100.00"))
	transactionsBefore := len(f.repo.state.transactions)

	_, err := f.service.ReceivePayment(context.Background(), identity, ReceivePaymentInput{
		InvoiceReference: created.Invoice.Number,
		Amount:           d("150.00"),
		PaymentAccountID: accountBank,
	})
	require.ErrorIs(t, err, ErrAmountExceedsDue)
	require.ErrorIs(t, err, shared.ErrLimitExceeded)

	stored := f.repo.state.invoices[created.Invoice.ID]
	require.True(t, stored.DueBalance.Equal(d("100.00")), "invoice unchanged")
	require.Equal(t, InvoicePending, stored.Status)
	require.Len(t, f.repo.state.transactions, transactionsBefore, "ledger unchanged")
}

func TestReceivePaymentOnPaidInvoice(t *testing.T) {
	f := newFixture(t)
	created := f.mustCreateInvoice(t, invoiceInput("100.00"))

	_, err := f.service.ReceivePayment(context.Background(), identity, ReceivePaymentInput{
		InvoiceReference: created.Invoice.Number,
		Amount:           d("100.00"),
		PaymentAccountID: accountBank,
	})
	require.NoError(t, err)

	_, err = f.service.ReceivePayment(context.Background(), identity, ReceivePaymentInput{
		InvoiceReference: created.Invoice.Number,
		Amount:           d("10.00"),
		PaymentAccountID: accountBank,
	})
	require.ErrorIs(t, err, ErrInvoiceAlreadyPaid)
	require.ErrorIs(t, err, shared.ErrStateConflict)
}

func TestReceivePaymentUnknownInvoice(t *testing.T) {
	f := newFixture(t)

	_, err := f.service.ReceivePayment(context.Background(), identity, ReceivePaymentInput{
		InvoiceReference: "INV-00009999",
		Amount:           d("10.00"),
		PaymentAccountID: accountBank,
	})
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func prepaymentInput(amount string) CreatePrepaymentInput {
	return CreatePrepaymentInput{
		CustomerID:       11,
		PaymentAccountID: accountBank,
		PaymentDate:      time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC),
		PaymentMethod:    "bank_transfer",
		Amount:           d(amount),
	}
}

func TestCreatePrepayment(t *testing.T) {
	f := newFixture(t)

	result, err := f.service.CreatePrepayment(context.Background(), identity, prepaymentInput("200.00"))
	require.NoError(t, err)
	require.Equal(t, "CP-00000001", result.Prepayment.Number)
	require.Equal(t, PrepaymentAvailable, result.Prepayment.Status)
	require.True(t, result.Prepayment.RemainingBalance.Equal(d("200.00")))

	entries := f.entriesFor(result.TransactionID)
	require.Len(t, entries, 2)
	requireBalanced(t, entries)
	require.Equal(t, int64(accountBank), entries[0].AccountID)
	require.Equal(t, ledger.SideDebit, entries[0].Side)
	require.Equal(t, int64(accountDeposits), entries[1].AccountID)
	require.Equal(t, ledger.SideCredit, entries[1].Side)
}

func TestApplyPrepaymentFully(t *testing.T) {
	f := newFixture(t)
	created := f.mustCreateInvoice(t, invoiceInputQty("200.00", 4))
	prepayment, err := f.service.CreatePrepayment(context.Background(), identity, prepaymentInput("200.00"))
	require.NoError(t, err)

	result, err := f.service.ReceivePayment(context.Background(), identity, ReceivePaymentInput{
		InvoiceReference: created.Invoice.Number,
		Amount:           decimal.Zero,
		PrepaymentID:     &prepayment.Prepayment.ID,
		PrepaymentAmount: d("200.00"),
	})
	require.NoError(t, err)
	require.True(t, result.NewDueBalance.IsZero())
	require.Equal(t, InvoicePaid, result.Status)

	stored := f.repo.state.prepayments[prepayment.Prepayment.ID]
	require.True(t, stored.RemainingBalance.IsZero())
	require.Equal(t, PrepaymentFullyApplied, stored.Status)

	require.Len(t, f.repo.state.applications, 1)
	require.True(t, f.repo.state.applications[0].AppliedAmount.Equal(d("200.00")))
	require.Empty(t, f.repo.state.payments, "no payment row without a cash portion")

	entries := f.entriesFor(result.TransactionID)
	require.Len(t, entries, 2)
	requireBalanced(t, entries)
	require.Equal(t, int64(accountDeposits), entries[0].AccountID)
	require.Equal(t, ledger.SideDebit, entries[0].Side)
	require.Equal(t, int64(accountAR), entries[1].AccountID)
	require.Equal(t, ledger.SideCredit, entries[1].Side)
}

func TestApplyPrepaymentPartially(t *testing.T) {
	f := newFixture(t)
	created := f.mustCreateInvoice(t, invoiceInputQty("200.00", 4))
	prepayment, err := f.service.CreatePrepayment(context.Background(), identity, prepaymentInput("200.00"))
	require.NoError(t, err)

	result, err := f.service.ReceivePayment(context.Background(), identity, ReceivePaymentInput{
		InvoiceReference: created.Invoice.Number,
		Amount:           d("50.00"),
		PaymentAccountID: accountBank,
		PrepaymentID:     &prepayment.Prepayment.ID,
		PrepaymentAmount: d("50.00"),
	})
	require.NoError(t, err)
	require.True(t, result.NewDueBalance.Equal(d("100.00")))
	require.Equal(t, InvoicePartial, result.Status)

	stored := f.repo.state.prepayments[prepayment.Prepayment.ID]
	require.True(t, stored.RemainingBalance.Equal(d("150.00")))
	require.Equal(t, PrepaymentPartiallyApplied, stored.Status)

	// Both credits hit accounts receivable on the same day; they aggregate
	// into one line alongside the two distinct debits.
	entries := f.entriesFor(result.TransactionID)
	require.Len(t, entries, 3)
	requireBalanced(t, entries)
}

func TestApplyPrepaymentCustomerMismatch(t *testing.T) {
	f := newFixture(t)
	created := f.mustCreateInvoice(t, invoiceInput("100.00"))
	in := prepaymentInput("200.00")
	in.CustomerID = 99
	prepayment, err := f.service.CreatePrepayment(context.Background(), identity, in)
	require.NoError(t, err)

	_, err = f.service.ReceivePayment(context.Background(), identity, ReceivePaymentInput{
		InvoiceReference: created.Invoice.Number,
		PrepaymentID:     &prepayment.Prepayment.ID,
		PrepaymentAmount: d("50.00"),
	})
	require.ErrorIs(t, err, ErrPrepaymentCustomerMismatch)
}

func TestApplyPrepaymentInsufficientBalance(t *testing.T) {
	f := newFixture(t)
	created := f.mustCreateInvoice(t, invoiceInputQty("300.00", 6))
	prepayment, err := f.service.CreatePrepayment(context.Background(), identity, prepaymentInput("40.00"))
	require.NoError(t, err)

	_, err = f.service.ReceivePayment(context.Background(), identity, ReceivePaymentInput{
		InvoiceReference: created.Invoice.Number,
		PrepaymentID:     &prepayment.Prepayment.ID,
		PrepaymentAmount: d("50.00"),
	})
	require.ErrorIs(t, err, ErrPrepaymentInsufficient)

	stored := f.repo.state.prepayments[prepayment.Prepayment.ID]
	require.True(t, stored.RemainingBalance.Equal(d("40.00")), "prepayment untouched")
}

func TestReceivePaymentRejectsPrepaymentAmountWithoutID(t *testing.T) {
	f := newFixture(t)
	created := f.mustCreateInvoice(t, invoiceInput("100.00"))

	_, err := f.service.ReceivePayment(context.Background(), identity, ReceivePaymentInput{
		InvoiceReference: created.Invoice.Number,
		Amount:           d("10.00"),
		PaymentAccountID: accountBank,
		PrepaymentAmount: d("10.00"),
	})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestVoidPendingInvoice(t *testing.T) {
	f := newFixture(t)
	created := f.mustCreateInvoice(t, invoiceInput("100.00"))

	result, err := f.service.VoidInvoice(context.Background(), identity, created.Invoice.ID)
	require.NoError(t, err)
	require.Equal(t, InvoiceVoided, result.Status)
	require.Len(t, result.ReversalIDs, 1)

	stored := f.repo.state.invoices[created.Invoice.ID]
	require.Equal(t, InvoiceVoided, stored.Status)
	require.False(t, stored.IsActive)
	require.True(t, stored.DueBalance.IsZero())
	require.NotNil(t, stored.VoidedAt)
	require.NotNil(t, stored.VoidedBy)
	require.Equal(t, identity.UserID, *stored.VoidedBy)

	// The reversal mirrors the original: AR credited, revenue debited, and
	// the signed sum per account across both transactions is zero.
	reversal := f.entriesFor(result.ReversalIDs[0])
	require.Len(t, reversal, 2)
	requireBalanced(t, reversal)
	net := make(map[int64]decimal.Decimal)
	for _, entry := range append(f.entriesFor(created.TransactionID), reversal...) {
		signed := entry.Amount
		if entry.Side == ledger.SideCredit {
			signed = signed.Neg()
		}
		net[entry.AccountID] = net[entry.AccountID].Add(signed)
	}
	for account, total := range net {
		require.True(t, total.IsZero(), "account %d nets to %s", account, total)
	}
}

func TestVoidRejectsNonPendingStatuses(t *testing.T) {
	f := newFixture(t)

	// partial
	partial := f.mustCreateInvoice(t, invoiceInput("100.00"))
	_, err := f.service.ReceivePayment(context.Background(), identity, ReceivePaymentInput{
		InvoiceReference: partial.Invoice.Number,
		Amount:           d("60.00"),
		PaymentAccountID: accountBank,
	})
	require.NoError(t, err)
	_, err = f.service.VoidInvoice(context.Background(), identity, partial.Invoice.ID)
	require.ErrorIs(t, err, ErrInvoiceNotVoidable)

	// paid
	paid := f.mustCreateInvoice(t, invoiceInput("100.00"))
	_, err = f.service.ReceivePayment(context.Background(), identity, ReceivePaymentInput{
		InvoiceReference: paid.Invoice.Number,
		Amount:           d("100.00"),
		PaymentAccountID: accountBank,
	})
	require.NoError(t, err)
	_, err = f.service.VoidInvoice(context.Background(), identity, paid.Invoice.ID)
	require.ErrorIs(t, err, ErrInvoiceNotVoidable)

	// already voided
	voided := f.mustCreateInvoice(t, invoiceInput("100.00"))
	_, err = f.service.VoidInvoice(context.Background(), identity, voided.Invoice.ID)
	require.NoError(t, err)
	_, err = f.service.VoidInvoice(context.Background(), identity, voided.Invoice.ID)
	require.ErrorIs(t, err, ErrInvoiceNotVoidable)
}

func TestCreateReceipt(t *testing.T) {
	f := newFixture(t)

	result, err := f.service.CreateReceipt(context.Background(), identity, CreateReceiptInput{
		CustomerID:  11,
		ReceiptDate: time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		LineItems:   []LineItemInput{{ProductID: 1, Quantity: 1}, {ProductID: 2, Quantity: 2}},
		Total:       d("100.00"),
	})
	require.NoError(t, err)
	require.Equal(t, "RCT-00000001", result.Receipt.Number)
	require.Equal(t, ReceiptPaid, result.Receipt.Status)

	entries := f.entriesFor(result.TransactionID)
	require.Len(t, entries, 3, "cash debit plus one credit per income account")
	requireBalanced(t, entries)
	require.Equal(t, int64(accountCash), entries[0].AccountID)
	require.Equal(t, ledger.SideDebit, entries[0].Side)
}

func TestCreateInvoiceBatchCap(t *testing.T) {
	f := newFixture(t)

	batch := make([]CreateInvoiceInput, MaxBatchSize+1)
	for i := range batch {
		batch[i] = invoiceInput("100.00")
	}
	_, err := f.service.CreateInvoiceBatch(context.Background(), identity, batch)
	require.ErrorIs(t, err, ErrBatchTooLarge)
	require.ErrorIs(t, err, shared.ErrLimitExceeded)
	require.Empty(t, f.repo.state.invoices)
}

func TestCreateInvoiceBatchAllOrNothing(t *testing.T) {
	f := newFixture(t)

	good := invoiceInput("100.00")
	bad := invoiceInput("100.00")
	bad.LineItems = []LineItemInput{{ProductID: 99, Quantity: 1}}

	_, err := f.service.CreateInvoiceBatch(context.Background(), identity, []CreateInvoiceInput{good, bad})
	require.ErrorIs(t, err, shared.ErrNotFound)
	require.Empty(t, f.repo.state.invoices, "no partial processing")
}

func TestCreateInvoiceBatch(t *testing.T) {
	f := newFixture(t)

	results, err := f.service.CreateInvoiceBatch(context.Background(), identity, []CreateInvoiceInput{
		invoiceInput("100.00"), invoiceInput("100.00"), invoiceInput("100.00"),
	})
	require.NoError(t, err)
	require.Len(t, results, 3)
	require.Equal(t, "INV-00000003", results[2].Invoice.Number)
	require.Len(t, f.repo.state.invoices, 3)
}

func TestListInvoiceTransactions(t *testing.T) {
	f := newFixture(t)
	created := f.mustCreateInvoice(t, invoiceInput("100.00"))
	_, err := f.service.ReceivePayment(context.Background(), identity, ReceivePaymentInput{
		InvoiceReference: created.Invoice.Number,
		Amount:           d("60.00"),
		PaymentAccountID: accountBank,
	})
	require.NoError(t, err)

	views, err := f.service.ListInvoiceTransactions(context.Background(), identity, created.Invoice.Number)
	require.NoError(t, err)
	require.Len(t, views, 2, "original posting plus the payment")
	require.Equal(t, ledger.DocumentInvoice, views[0].Transaction.DocumentType)
	require.Equal(t, ledger.DocumentPayment, views[1].Transaction.DocumentType)
	for _, view := range views {
		require.NotEmpty(t, view.Entries)
		requireBalanced(t, view.Entries)
	}

	_, err = f.service.ListInvoiceTransactions(context.Background(), identity, "INV-00009999")
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestAuditTrailRecorded(t *testing.T) {
	f := newFixture(t)
	created := f.mustCreateInvoice(t, invoiceInput("100.00"))
	_, err := f.service.ReceivePayment(context.Background(), identity, ReceivePaymentInput{
		InvoiceReference: created.Invoice.Number,
		Amount:           d("100.00"),
		PaymentAccountID: accountBank,
	})
	require.NoError(t, err)

	var actions []string
	for _, log := range f.audit.logs {
		actions = append(actions, log.Action)
	}
	require.Equal(t, []string{"invoice.create", "invoice.receive_payment"}, actions)
}
