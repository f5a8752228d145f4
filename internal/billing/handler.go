package billing

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-erp/meridian/internal/observability"
	"github.com/meridian-erp/meridian/internal/platform/httpx"
	"github.com/meridian-erp/meridian/internal/shared"
)

// Handler exposes the billing operations over the internal JSON API. It is
// the shim between the external request layer and the core: decode,
// validate, delegate.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
	metrics  *observability.Metrics
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, metrics *observability.Metrics) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		metrics:  metrics,
	}
}

// MountRoutes registers billing routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/invoices", h.createInvoice)
	r.Post("/invoices/batch", h.createInvoiceBatch)
	r.Get("/invoices", h.listInvoices)
	r.Get("/invoices/{number}", h.getInvoice)
	r.Get("/invoices/{number}/transactions", h.listInvoiceTransactions)
	r.Post("/invoices/{id}/void", h.voidInvoice)
	r.Post("/receipts", h.createReceipt)
	r.Post("/prepayments", h.createPrepayment)
	r.Get("/prepayments", h.listPrepayments)
	r.Get("/prepayments/{id}", h.getPrepayment)
	r.Post("/payments", h.receivePayment)
}

func (h *Handler) identity(w http.ResponseWriter, r *http.Request) (shared.Identity, bool) {
	identity, ok := shared.IdentityFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "missing organization identity")
		return shared.Identity{}, false
	}
	return identity, true
}

func (h *Handler) createInvoice(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	var req createInvoiceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Malformed Request", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	input, err := req.toInput()
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	result, err := h.service.CreateInvoice(r.Context(), identity, input)
	if err != nil {
		h.logger.Error("create invoice", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	h.metrics.RecordPosting("invoice")
	httpx.JSON(w, http.StatusCreated, createInvoiceResponse{
		Invoice:       toInvoiceResponse(result.Invoice),
		TransactionID: result.TransactionID,
	})
}

func (h *Handler) createInvoiceBatch(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	var req createInvoiceBatchRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Malformed Request", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	batch := make([]CreateInvoiceInput, 0, len(req.Invoices))
	for _, invoiceReq := range req.Invoices {
		input, err := invoiceReq.toInput()
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		batch = append(batch, input)
	}
	results, err := h.service.CreateInvoiceBatch(r.Context(), identity, batch)
	if err != nil {
		h.logger.Error("create invoice batch", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	responses := make([]createInvoiceResponse, 0, len(results))
	for _, result := range results {
		h.metrics.RecordPosting("invoice")
		responses = append(responses, createInvoiceResponse{
			Invoice:       toInvoiceResponse(result.Invoice),
			TransactionID: result.TransactionID,
		})
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"invoices": responses})
}

func (h *Handler) listInvoices(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	invoices, err := h.service.ListInvoices(r.Context(), identity)
	if err != nil {
		h.logger.Error("list invoices", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	responses := make([]invoiceResponse, 0, len(invoices))
	for _, invoice := range invoices {
		responses = append(responses, toInvoiceResponse(invoice))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"invoices": responses})
}

func (h *Handler) getInvoice(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	invoice, err := h.service.GetInvoice(r.Context(), identity, chi.URLParam(r, "number"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toInvoiceResponse(invoice))
}

func (h *Handler) listInvoiceTransactions(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	views, err := h.service.ListInvoiceTransactions(r.Context(), identity, chi.URLParam(r, "number"))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	responses := make([]transactionResponse, 0, len(views))
	for _, view := range views {
		responses = append(responses, toTransactionResponse(view))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"transactions": responses})
}

func (h *Handler) voidInvoice(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	invoiceID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid invoice id")
		return
	}
	result, err := h.service.VoidInvoice(r.Context(), identity, invoiceID)
	if err != nil {
		h.logger.Error("void invoice", slog.Any("error", err), slog.Int64("invoice_id", invoiceID))
		httpx.RespondError(w, err)
		return
	}
	h.metrics.RecordPosting("reversal")
	httpx.JSON(w, http.StatusOK, voidResponse{
		InvoiceID:   result.InvoiceID,
		Number:      result.Number,
		Status:      string(result.Status),
		ReversalIDs: result.ReversalIDs,
	})
}

func (h *Handler) createReceipt(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	var req createReceiptRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Malformed Request", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	input, err := req.toInput()
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	result, err := h.service.CreateReceipt(r.Context(), identity, input)
	if err != nil {
		h.logger.Error("create receipt", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	h.metrics.RecordPosting("receipt")
	httpx.JSON(w, http.StatusCreated, receiptResponse{
		ID:            result.Receipt.ID,
		Number:        result.Receipt.Number,
		CustomerID:    result.Receipt.CustomerID,
		ReceiptDate:   result.Receipt.ReceiptDate.Format(dateLayout),
		Total:         result.Receipt.Total.StringFixed(2),
		Status:        string(result.Receipt.Status),
		TransactionID: result.TransactionID,
	})
}

func (h *Handler) createPrepayment(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	var req createPrepaymentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Malformed Request", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	input, err := req.toInput()
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	result, err := h.service.CreatePrepayment(r.Context(), identity, input)
	if err != nil {
		h.logger.Error("create prepayment", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	h.metrics.RecordPosting("prepayment")
	httpx.JSON(w, http.StatusCreated, toPrepaymentResponse(result.Prepayment, result.TransactionID))
}

func (h *Handler) listPrepayments(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	prepayments, err := h.service.ListPrepayments(r.Context(), identity)
	if err != nil {
		h.logger.Error("list prepayments", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	responses := make([]prepaymentResponse, 0, len(prepayments))
	for _, prepayment := range prepayments {
		responses = append(responses, toPrepaymentResponse(prepayment, 0))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"prepayments": responses})
}

func (h *Handler) getPrepayment(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	prepaymentID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid prepayment id")
		return
	}
	prepayment, err := h.service.GetPrepayment(r.Context(), identity, prepaymentID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toPrepaymentResponse(prepayment, 0))
}

func (h *Handler) receivePayment(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	var req receivePaymentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Malformed Request", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	input, err := req.toInput()
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	result, err := h.service.ReceivePayment(r.Context(), identity, input)
	if err != nil {
		h.logger.Error("receive payment", slog.Any("error", err), slog.String("invoice", input.InvoiceReference))
		httpx.RespondError(w, err)
		return
	}
	h.metrics.RecordPosting("payment")
	httpx.JSON(w, http.StatusOK, paymentResponse{
		InvoiceID:     result.InvoiceID,
		Number:        result.Number,
		NewDueBalance: result.NewDueBalance.StringFixed(2),
		Status:        string(result.Status),
		TransactionID: result.TransactionID,
		PaymentID:     result.PaymentID,
	})
}
