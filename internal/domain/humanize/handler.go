package humanize

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noaigpt/noaigpt-api/internal/domain/credit"
	"github.com/noaigpt/noaigpt-api/internal/middleware"
	"github.com/noaigpt/noaigpt-api/internal/pkg/humanizer"
	"github.com/noaigpt/noaigpt-api/internal/pkg/response"
	"github.com/noaigpt/noaigpt-api/internal/pkg/validator"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Rewrite(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req RewriteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.BadRequest(w, "invalid request body")
		return
	}
	if fields := validator.Validate(req); fields != nil {
		response.ValidationError(w, fields)
		return
	}

	result, err := h.service.Rewrite(r.Context(), userID, req)
	if err != nil {
		switch {
		case errors.Is(err, ErrTextTooShort):
			response.BadRequest(w, "text must contain at least 50 words")
		case errors.Is(err, ErrRateLimited):
			response.TooManyRequests(w)
		case errors.Is(err, credit.ErrInsufficientCredits):
			response.PaymentRequired(w, "not enough credits for this rewrite")
		case errors.Is(err, humanizer.ErrUpstream):
			response.BadGateway(w, "rewrite service is unavailable")
		default:
			response.InternalError(w)
		}
		return
	}
	response.OK(w, result)
}

// Credits returns the caller's current balance, provisioning the free grant
// on first read.
func (h *Handler) Credits(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	balance, err := h.service.Balance(r.Context(), userID)
	if err != nil {
		response.InternalError(w)
		return
	}
	response.OK(w, balance)
}

func (h *Handler) Expiration(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	balance, err := h.service.Balance(r.Context(), userID)
	if err != nil {
		response.InternalError(w)
		return
	}
	response.OK(w, map[string]interface{}{"expiration_date": balance.ExpirationDate})
}

func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(authMiddleware)
	r.Post("/rewrite", h.Rewrite)
	r.Get("/credits", h.Credits)
	r.Get("/expiration", h.Expiration)
	return r
}
