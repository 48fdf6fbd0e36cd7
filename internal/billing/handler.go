package billing

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/locafrota/locafrota/internal/platform/httpx"
)

// PaymentForm is the request body for recording a payment.
type PaymentForm struct {
	PaymentDate   time.Time `json:"payment_date" validate:"required"`
	PaymentMethod string    `json:"payment_method" validate:"required"`
	LateFee       *float64  `json:"late_fee" validate:"omitempty,gte=0"`
	Observations  string    `json:"observations"`
}

// CancelForm carries the optional reason for voiding an invoice.
type CancelForm struct {
	Reason string `json:"reason"`
}

// Handler wires HTTP endpoints for billing.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountBillingRoutes registers the batch operation endpoints.
func (h *Handler) MountBillingRoutes(r chi.Router) {
	r.Post("/run", h.run)
	r.Post("/sweep", h.sweep)
}

// MountInvoiceRoutes registers the invoice endpoints.
func (h *Handler) MountInvoiceRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/export", h.export)
	r.Get("/{id}", h.get)
	r.Post("/{id}/payment", h.payment)
	r.Post("/{id}/cancel", h.cancel)
}

func (h *Handler) run(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.GenerateMonthlyInvoices(r.Context())
	if err != nil {
		h.logger.Error("billing run", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) sweep(w http.ResponseWriter, r *http.Request) {
	n, err := h.service.MarkOverdueInvoices(r.Context())
	if err != nil {
		h.logger.Error("overdue sweep", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"marked_overdue": n})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filters, ok := parseFilters(w, r)
	if !ok {
		return
	}
	items, total, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.logger.Error("list invoices", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"invoices": items, "total": total})
}

func parseFilters(w http.ResponseWriter, r *http.Request) (ListFilters, bool) {
	q := r.URL.Query()
	filters := ListFilters{
		Status:         InvoiceStatus(q.Get("status")),
		ReferenceMonth: q.Get("reference_month"),
	}
	filters.ContractID, _ = strconv.ParseInt(q.Get("contract_id"), 10, 64)
	filters.Limit, _ = strconv.Atoi(q.Get("limit"))
	filters.Offset, _ = strconv.Atoi(q.Get("offset"))
	if filters.ReferenceMonth != "" {
		if _, err := time.Parse("2006-01", filters.ReferenceMonth); err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "reference_month must be YYYY-MM")
			return ListFilters{}, false
		}
	}
	return filters, true
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid invoice id")
		return
	}
	inv, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) payment(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid invoice id")
		return
	}
	var form PaymentForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", err.Error())
		return
	}
	inv, err := h.service.RecordPayment(r.Context(), id, PaymentInput{
		PaymentDate:   form.PaymentDate,
		PaymentMethod: form.PaymentMethod,
		LateFee:       form.LateFee,
		Observations:  form.Observations,
	}, r.Header.Get("Idempotency-Key"))
	if err != nil {
		h.logger.Error("record payment", slog.Any("error", err), slog.Int64("id", id))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid invoice id")
		return
	}
	var form CancelForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	inv, err := h.service.CancelInvoice(r.Context(), id, form.Reason)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request) {
	filters, ok := parseFilters(w, r)
	if !ok {
		return
	}
	if filters.Limit <= 0 {
		filters.Limit = 10000
	}
	items, _, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.logger.Error("export invoices", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="cobrancas.csv"`)
	if err := WriteCSV(w, items); err != nil {
		h.logger.Error("write invoice csv", slog.Any("error", err))
	}
}
