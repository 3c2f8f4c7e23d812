// AngelaMos | 2026
// handler.go

package subscription

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/streampix/subscription-backend/internal/core"
)

type Handler struct {
	service   *Service
	validator *validator.Validate
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/subscriptions", func(r chi.Router) {
		r.Post("/", h.Create)
		r.Delete("/{subscriptionID}", h.Cancel)
		r.Put("/status", h.UpdateStatus)
		r.Post("/renewal", h.Renew)
	})
	r.Get("/active-subscriptions/{userID}", h.GetActive)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateSubscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	plan, err := ParsePlan(req.Plan)
	if err != nil {
		core.BadRequest(w, err.Error())
		return
	}

	sub, err := h.service.Create(r.Context(), req.UserID, plan)
	if err != nil {
		writeSubscriptionError(w, err)
		return
	}

	core.Created(w, ToSubscriptionResponse(sub))
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	subscriptionID := chi.URLParam(r, "subscriptionID")

	if err := h.service.Cancel(r.Context(), subscriptionID); err != nil {
		writeSubscriptionError(w, err)
		return
	}

	core.NoContent(w)
}

func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		core.BadRequest(w, "invalid request body")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		core.BadRequest(w, core.FormatValidationError(err))
		return
	}

	err := h.service.UpdateStatus(r.Context(), req.SubscriptionID, req.Status)
	if err != nil {
		writeSubscriptionError(w, err)
		return
	}

	core.NoContent(w)
}

func (h *Handler) Renew(w http.ResponseWriter, r *http.Request) {
	renewed, processed, err := h.service.RenewDue(r.Context())
	if err != nil {
		core.InternalServerError(w, err)
		return
	}

	core.OK(w, RenewalResponse{
		Processed:    processed,
		RenewedCount: len(renewed),
		Renewed:      ToSubscriptionResponseList(renewed),
	})
}

func (h *Handler) GetActive(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	sub, err := h.service.GetActive(r.Context(), userID)
	if err != nil {
		writeSubscriptionError(w, err)
		return
	}

	core.OK(w, ToSubscriptionResponse(sub))
}

func writeSubscriptionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrUserNotFound):
		core.NotFound(w, "user")
	case errors.Is(err, core.ErrSubscriptionNotFound):
		core.NotFound(w, "subscription")
	case errors.Is(err, core.ErrActiveSubscriptionExists):
		core.Conflict(w, "user already has an active subscription")
	case errors.Is(err, core.ErrSubscriptionCanceled):
		core.Conflict(w, "subscription is already canceled")
	case errors.Is(err, core.ErrWalletNotFound):
		core.UnprocessableEntity(w, "user has no wallet registered")
	case errors.Is(err, core.ErrInsufficientBalance):
		core.UnprocessableEntity(w, "insufficient wallet balance")
	case errors.Is(err, core.ErrWalletTransaction):
		core.BadGateway(w, "wallet service unavailable")
	case errors.Is(err, core.ErrInvalidInput):
		core.BadRequest(w, err.Error())
	default:
		core.InternalServerError(w, err)
	}
}
