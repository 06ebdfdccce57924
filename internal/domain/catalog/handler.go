package catalog

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

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

// Storefront is public: enabled items plus payment-method availability.
func (h *Handler) Storefront(w http.ResponseWriter, r *http.Request) {
	store, err := h.service.Storefront(r.Context())
	if err != nil {
		response.InternalError(w)
		return
	}
	response.OK(w, store)
}

func (h *Handler) ListAll(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.ListAll(r.Context())
	if err != nil {
		response.InternalError(w)
		return
	}
	response.OK(w, items)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid item id")
		return
	}

	item, err := h.service.Get(r.Context(), id)
	if err != nil {
		if err == ErrNotFound {
			response.NotFound(w, "item not found")
			return
		}
		response.InternalError(w)
		return
	}
	response.OK(w, item)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if fields := validator.Validate(req); fields != nil {
		response.ValidationError(w, fields)
		return
	}

	item, err := h.service.Create(r.Context(), req)
	if err != nil {
		response.InternalError(w)
		return
	}
	response.Created(w, item)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid item id")
		return
	}

	var req UpdateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if fields := validator.Validate(req); fields != nil {
		response.ValidationError(w, fields)
		return
	}

	item, err := h.service.Update(r.Context(), id, req)
	if err != nil {
		if err == ErrNotFound {
			response.NotFound(w, "item not found")
			return
		}
		response.InternalError(w)
		return
	}
	response.OK(w, item)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.BadRequest(w, "invalid item id")
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		if err == ErrNotFound {
			response.NotFound(w, "item not found")
			return
		}
		response.InternalError(w)
		return
	}
	response.OK(w, map[string]string{"status": "deleted"})
}

func (h *Handler) ListMethods(w http.ResponseWriter, r *http.Request) {
	methods, err := h.service.PaymentMethods(r.Context())
	if err != nil {
		response.InternalError(w)
		return
	}
	response.OK(w, methods)
}

func (h *Handler) SetMethod(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name != MethodManual && name != MethodIMEPay {
		response.NotFound(w, "unknown payment method")
		return
	}

	var req SetMethodRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}

	if err := h.service.SetMethod(r.Context(), name, req.Enabled); err != nil {
		response.InternalError(w)
		return
	}
	response.OK(w, map[string]interface{}{"name": name, "enabled": req.Enabled})
}

func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.Storefront)
	r.Get("/{id}", h.Get)

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Use(middleware.RequireAdmin())

		r.Get("/admin/all", h.ListAll)
		r.Post("/", h.Create)
		r.Put("/{id}", h.Update)
		r.Delete("/{id}", h.Delete)

		r.Get("/payment-methods/all", h.ListMethods)
		r.Put("/payment-methods/{name}", h.SetMethod)
	})

	return r
}
