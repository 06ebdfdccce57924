package gateway

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/noaigpt/noaigpt-api/internal/domain/catalog"
	"github.com/noaigpt/noaigpt-api/internal/middleware"
	"github.com/noaigpt/noaigpt-api/internal/pkg/imepay"
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

	res, err := h.service.Initiate(r.Context(), userID, req.ItemID)
	if err != nil {
		switch {
		case errors.Is(err, catalog.ErrNotFound):
			response.NotFound(w, "item not found or not purchasable")
		case errors.Is(err, ErrMethodDisabled):
			response.Conflict(w, "METHOD_DISABLED", "imepay payments are currently disabled")
		case errors.Is(err, imepay.ErrUpstream):
			response.BadGateway(w, "payment gateway is unavailable")
		default:
			response.InternalError(w)
		}
		return
	}
	response.Created(w, res)
}

// Callback receives the gateway's browser redirect carrying the base64
// payload, settles or closes the transaction and sends the user to the
// matching frontend page.
func (h *Handler) Callback(w http.ResponseWriter, r *http.Request) {
	data := r.URL.Query().Get("data")

	result, err := h.service.HandleCallback(r.Context(), data)
	if err != nil {
		switch {
		case errors.Is(err, ErrDuplicateCallback):
			// Already settled; the user landed here twice. Their credits
			// are fine, send them to the success page.
			h.redirect(w, r, "/payment/success")
		case errors.Is(err, ErrTxnNotFound), errors.Is(err, ErrAmountMismatch):
			log.Warn().Err(err).Msg("rejected imepay callback")
			h.redirect(w, r, "/payment/failure")
		case errors.Is(err, imepay.ErrUpstream):
			response.BadGateway(w, "payment gateway is unavailable")
		default:
			log.Error().Err(err).Msg("imepay callback processing failed")
			h.redirect(w, r, "/payment/failure")
		}
		return
	}

	switch result.Outcome {
	case "confirmed":
		h.redirect(w, r, "/payment/success")
	case "cancelled":
		h.redirect(w, r, "/payment/cancelled")
	default:
		h.redirect(w, r, "/payment/failure")
	}
}

func (h *Handler) redirect(w http.ResponseWriter, r *http.Request, path string) {
	http.Redirect(w, r, h.service.FrontendURL()+path, http.StatusFound)
}

func (h *Handler) Routes(authMiddleware func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()

	// The callback is unauthenticated: it arrives as a gateway-driven
	// browser redirect, not an API call from our client.
	r.Get("/imepay/callback", h.Callback)

	r.Group(func(r chi.Router) {
		r.Use(authMiddleware)
		r.Post("/imepay/initiate", h.Initiate)
	})

	return r
}
