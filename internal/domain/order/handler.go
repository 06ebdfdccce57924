package order

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/noaigpt/noaigpt-api/internal/domain/catalog"
	"github.com/noaigpt/noaigpt-api/internal/middleware"
	"github.com/noaigpt/noaigpt-api/internal/pkg/response"
	"github.com/noaigpt/noaigpt-api/internal/pkg/validator"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Initiate(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req InitiateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if fields := validator.Validate(req); fields != nil {
		response.ValidationError(w, fields)
		return
	}

	result, err := h.service.Initiate(r.Context(), userID, req.ItemID)
	if err != nil {
		switch {
		case errors.Is(err, catalog.ErrNotFound):
			response.NotFound(w, "item not found or not purchasable")
		case errors.Is(err, ErrInvalidState):
			response.Conflict(w, "METHOD_DISABLED", "manual payments are currently disabled")
		default:
			response.InternalError(w)
		}
		return
	}
	response.Created(w, result)
}

func (h *Handler) SubmitProof(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid order id")
		return
	}

	var req SubmitProofRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if fields := validator.Validate(req); fields != nil {
		response.ValidationError(w, fields)
		return
	}

	o, err := h.service.SubmitProof(r.Context(), userID, id, req.TransactionProof)
	if err != nil {
		h.writeTransitionError(w, err)
		return
	}
	response.OK(w, o)
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid order id")
		return
	}

	o, err := h.service.Cancel(r.Context(), userID, id)
	if err != nil {
		h.writeTransitionError(w, err)
		return
	}
	response.OK(w, o)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid order id")
		return
	}

	o, err := h.service.Get(r.Context(), userID, id)
	if err != nil {
		h.writeTransitionError(w, err)
		return
	}
	response.OK(w, o)
}

func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	limit, offset := pagination(r)
	f := ListFilter{
		Status: statusFilter(r),
		Search: r.URL.Query().Get("search"),
		SortBy: r.URL.Query().Get("sort"),
		Desc:   r.URL.Query().Get("dir") != "asc",
		Limit:  limit,
		Offset: offset,
	}

	orders, err := h.service.ListMine(r.Context(), userID, f)
	if err != nil {
		response.InternalError(w)
		return
	}
	response.OK(w, orders)
}

func (h *Handler) ListPurchases(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	purchases, err := h.service.Purchases(r.Context(), userID)
	if err != nil {
		response.InternalError(w)
		return
	}
	response.OK(w, purchases)
}

func (h *Handler) GetInvoice(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	purchaseID, err := uuid.Parse(chi.URLParam(r, "purchase_id"))
	if err != nil {
		response.BadRequest(w, "invalid purchase id")
		return
	}

	role := middleware.GetRole(r.Context())
	inv, err := h.service.Invoice(r.Context(), userID, role == "admin", purchaseID)
	if err != nil {
		if errors.Is(err, ErrPurchaseNotFound) {
			response.NotFound(w, "purchase not found")
			return
		}
		response.InternalError(w)
		return
	}
	response.OK(w, inv)
}

// Admin handlers.

func (h *Handler) ListAll(w http.ResponseWriter, r *http.Request) {
	limit, offset := pagination(r)
	f := ListFilter{
		Status: statusFilter(r),
		Search: r.URL.Query().Get("search"),
		SortBy: r.URL.Query().Get("sort"),
		Desc:   r.URL.Query().Get("dir") != "asc",
		Limit:  limit,
		Offset: offset,
	}
	orders, err := h.service.ListAll(r.Context(), f)
	if err != nil {
		response.InternalError(w)
		return
	}
	response.OK(w, orders)
}

func (h *Handler) Approve(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid order id")
		return
	}

	o, err := h.service.Approve(r.Context(), id)
	if err != nil {
		h.writeTransitionError(w, err)
		return
	}
	response.OK(w, o)
}

func (h *Handler) Reject(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid order id")
		return
	}

	o, err := h.service.Reject(r.Context(), id)
	if err != nil {
		h.writeTransitionError(w, err)
		return
	}
	response.OK(w, o)
}

func (h *Handler) MarkPending(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid order id")
		return
	}

	o, err := h.service.MarkPending(r.Context(), id)
	if err != nil {
		h.writeTransitionError(w, err)
		return
	}
	response.OK(w, o)
}

func (h *Handler) writeTransitionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		response.NotFound(w, "order not found")
	case errors.Is(err, ErrInvalidState):
		response.Conflict(w, "INVALID_STATE", "order state does not allow this transition")
	case errors.Is(err, ErrDuplicateCallback):
		response.Conflict(w, "DUPLICATE_CALLBACK", "transaction already settled")
	default:
		response.InternalError(w)
	}
}

func statusFilter(r *http.Request) Status {
	s := Status(r.URL.Query().Get("status"))
	if !s.Valid() {
		return ""
	}
	return s
}

func pagination(r *http.Request) (limit, offset int) {
	limit = 50
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 && v <= 100 {
		limit = v
	}
	if v, err := strconv.Atoi(r.URL.Query().Get("offset")); err == nil && v >= 0 {
		offset = v
	}
	return limit, offset
}

func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)

	r.Post("/", h.Initiate)
	r.Get("/", h.ListMine)
	r.Get("/purchases", h.ListPurchases)
	r.Get("/purchases/{purchase_id}/invoice", h.GetInvoice)
	r.Get("/{id}", h.Get)
	r.Post("/{id}/proof", h.SubmitProof)
	r.Post("/{id}/cancel", h.Cancel)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAdmin())

		r.Get("/admin/all", h.ListAll)
		r.Post("/{id}/approve", h.Approve)
		r.Post("/{id}/reject", h.Reject)
		r.Post("/{id}/pending", h.MarkPending)
	})

	return r
}
