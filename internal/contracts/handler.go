package contracts

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/locafrota/locafrota/internal/platform/httpx"
)

// Handler wires HTTP endpoints for the contract lifecycle.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers contract routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.delete)
	r.Post("/{id}/activate", h.activate)
	r.Post("/{id}/suspend", h.suspend)
	r.Post("/{id}/reactivate", h.reactivate)
	r.Post("/{id}/cancel", h.cancel)
	r.Post("/{id}/complete", h.complete)
	r.Post("/{id}/change-vehicle", h.changeVehicle)
}

func (h *Handler) contractID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid contract id")
		return 0, false
	}
	return id, true
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters := ListFilters{Status: Status(q.Get("status"))}
	filters.DriverID, _ = strconv.ParseInt(q.Get("driver_id"), 10, 64)
	filters.VehicleID, _ = strconv.ParseInt(q.Get("vehicle_id"), 10, 64)
	filters.BranchID, _ = strconv.ParseInt(q.Get("branch_id"), 10, 64)
	filters.Limit, _ = strconv.Atoi(q.Get("limit"))
	filters.Offset, _ = strconv.Atoi(q.Get("offset"))

	items, total, err := h.service.List(r.Context(), filters)
	if err != nil {
		h.logger.Error("list contracts", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"contracts": items, "total": total})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.contractID(w, r)
	if !ok {
		return
	}
	c, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var form ContractForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", err.Error())
		return
	}
	created, err := h.service.Create(r.Context(), CreateInput{
		ContractNumber: form.ContractNumber,
		DriverID:       form.DriverID,
		VehicleID:      form.VehicleID,
		PlanID:         form.PlanID,
		BranchID:       form.BranchID,
		StartDate:      form.StartDate,
		EndDate:        form.EndDate,
		BillingDay:     form.BillingDay,
		MonthlyAmount:  form.MonthlyAmount,
		Deposit:        form.Deposit,
		OdometerStart:  form.OdometerStart,
	})
	if err != nil {
		h.logger.Error("create contract", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.contractID(w, r)
	if !ok {
		return
	}
	var form ContractForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", err.Error())
		return
	}
	updated, err := h.service.Update(r.Context(), id, UpdateInput{
		ContractNumber:  form.ContractNumber,
		VehicleID:       form.VehicleID,
		PlanID:          form.PlanID,
		StartDate:       form.StartDate,
		EndDate:         form.EndDate,
		BillingDay:      form.BillingDay,
		MonthlyAmount:   form.MonthlyAmount,
		Deposit:         form.Deposit,
		OdometerCurrent: form.OdometerCurrent,
	})
	if err != nil {
		h.logger.Error("update contract", slog.Any("error", err), slog.Int64("id", id))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.contractID(w, r)
	if !ok {
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) activate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.contractID(w, r)
	if !ok {
		return
	}
	c, err := h.service.Activate(r.Context(), id)
	if err != nil {
		h.logger.Error("activate contract", slog.Any("error", err), slog.Int64("id", id))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

func (h *Handler) suspend(w http.ResponseWriter, r *http.Request) {
	id, ok := h.contractID(w, r)
	if !ok {
		return
	}
	var form ReasonForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", err.Error())
		return
	}
	c, err := h.service.Suspend(r.Context(), id, form.Reason)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

func (h *Handler) reactivate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.contractID(w, r)
	if !ok {
		return
	}
	c, err := h.service.Reactivate(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := h.contractID(w, r)
	if !ok {
		return
	}
	var form ReasonForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", err.Error())
		return
	}
	c, err := h.service.Cancel(r.Context(), id, form.Reason)
	if err != nil {
		h.logger.Error("cancel contract", slog.Any("error", err), slog.Int64("id", id))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

func (h *Handler) complete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.contractID(w, r)
	if !ok {
		return
	}
	c, err := h.service.Complete(r.Context(), id)
	if err != nil {
		h.logger.Error("complete contract", slog.Any("error", err), slog.Int64("id", id))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}

func (h *Handler) changeVehicle(w http.ResponseWriter, r *http.Request) {
	id, ok := h.contractID(w, r)
	if !ok {
		return
	}
	var form ChangeVehicleForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", err.Error())
		return
	}
	c, err := h.service.ChangeVehicle(r.Context(), id, form.VehicleID, form.Note)
	if err != nil {
		h.logger.Error("change contract vehicle", slog.Any("error", err), slog.Int64("id", id))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, c)
}
