package subscription

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-langganan/internal/common"
	"github.com/noah-isme/backend-langganan/internal/payment"
)

// Handler exposes subscription and billing endpoints. All routes require an
// authenticated user.
type Handler struct {
	service *Service
}

// HandlerConfig configures the Handler dependencies.
type HandlerConfig struct {
	Service *Service
}

// NewHandler constructs a Handler.
func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{service: cfg.Service}
}

// Checkout handles POST /api/v1/subscriptions/checkout.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var in CheckoutInput
	if err := common.DecodeJSON(r, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	res, err := h.service.Checkout(r.Context(), userID, in)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusCreated, res)
}

// Confirm handles POST /api/v1/subscriptions/{id}/confirm.
func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var in payment.Confirmation
	if err := common.DecodeJSON(r, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	sub, err := h.service.Confirm(r.Context(), userID, chi.URLParam(r, "id"), in)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, sub)
}

// Cancel handles POST /api/v1/subscriptions/{id}/cancel.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	sub, err := h.service.Cancel(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, sub)
}

// Get handles GET /api/v1/subscriptions/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	sub, err := h.service.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, sub)
}

// List handles GET /api/v1/subscriptions.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	page, limit := common.ParsePagination(r, 20, 100)
	items, total, err := h.service.List(r.Context(), userID, page, limit)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	w.Header().Set("X-Total-Count", strconv.FormatInt(total, 10))
	common.JSON(w, http.StatusOK, map[string]any{
		"data":       items,
		"pagination": common.NewPagination(page, limit, total),
	})
}

// BillingHistory handles GET /api/v1/billing/history.
func (h *Handler) BillingHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	page, limit := common.ParsePagination(r, 20, 100)
	items, total, err := h.service.BillingHistory(r.Context(), userID, page, limit)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	w.Header().Set("X-Total-Count", strconv.FormatInt(total, 10))
	common.JSON(w, http.StatusOK, map[string]any{
		"data":       items,
		"pagination": common.NewPagination(page, limit, total),
	})
}

func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := common.UserID(r.Context())
	if !ok || strings.TrimSpace(userID) == "" {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "login required", nil)
		return "", false
	}
	return userID, true
}
