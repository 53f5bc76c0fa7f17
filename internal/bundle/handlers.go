package bundle

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-langganan/internal/common"
)

// Handler exposes bundle endpoints.
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

// List handles GET /api/v1/bundles.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, limit := common.ParsePagination(r, 20, 100)
	items, total, err := h.service.List(r.Context(), page, limit)
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

// Get handles GET /api/v1/bundles/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	b, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, b)
}

// Customize handles POST /api/v1/bundles/{id}/customize.
func (h *Handler) Customize(w http.ResponseWriter, r *http.Request) {
	var in CustomizeInput
	if err := common.DecodeJSON(r, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	q, err := h.service.Customize(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, q)
}

type builderRequest struct {
	ProductIDs []string `json:"productIds" validate:"required,min=1,dive,uuid"`
}

// BuilderQuote handles POST /api/v1/bundles/builder/quote.
func (h *Handler) BuilderQuote(w http.ResponseWriter, r *http.Request) {
	var in builderRequest
	if err := common.DecodeJSON(r, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	q, err := h.service.BuilderQuote(r.Context(), in.ProductIDs)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, q)
}

// Create handles POST /api/v1/admin/bundles.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in CreateInput
	if err := common.DecodeJSON(r, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	b, err := h.service.Create(r.Context(), in)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusCreated, b)
}

type setProductsRequest struct {
	Products []MemberInput `json:"products" validate:"required,min=1,dive"`
}

// SetProducts handles PUT /api/v1/admin/bundles/{id}/products.
func (h *Handler) SetProducts(w http.ResponseWriter, r *http.Request) {
	var in setProductsRequest
	if err := common.DecodeJSON(r, &in); err != nil {
		common.WriteError(w, err)
		return
	}
	b, err := h.service.SetProducts(r.Context(), chi.URLParam(r, "id"), in.Products)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	common.Data(w, http.StatusOK, b)
}
