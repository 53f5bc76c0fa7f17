package plans

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-langganan/internal/common"
)

// ProductResolver maps a product id from the URL to a vendor reference.
type ProductResolver interface {
	PlanRef(ctx context.Context, productID string) (ProductRef, error)
}

// Handler exposes plan endpoints.
type Handler struct {
	service  *Service
	products ProductResolver
}

// HandlerConfig configures the Handler dependencies.
type HandlerConfig struct {
	Service  *Service
	Products ProductResolver
}

// NewHandler constructs a Handler.
func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{service: cfg.Service, products: cfg.Products}
}

// List handles GET /api/v1/products/{id}/plans.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ref, ok := h.resolve(w, r)
	if !ok {
		return
	}
	listing, err := h.service.Plans(r.Context(), ref)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	h.render(w, listing)
}

// Refresh handles POST /api/v1/admin/plans/{productId}/refresh.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	ref, ok := h.resolve(w, r)
	if !ok {
		return
	}
	listing, err := h.service.Refresh(r.Context(), ref)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	h.render(w, listing)
}

func (h *Handler) resolve(w http.ResponseWriter, r *http.Request) (ProductRef, bool) {
	if h.service == nil || h.products == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "plans service not configured", nil)
		return ProductRef{}, false
	}
	var id string
	for _, key := range []string{"id", "slug", "productId"} {
		if id = chi.URLParam(r, key); id != "" {
			break
		}
	}
	ref, err := h.products.PlanRef(r.Context(), id)
	if err != nil {
		common.WriteError(w, err)
		return ProductRef{}, false
	}
	return ref, true
}

func (h *Handler) render(w http.ResponseWriter, listing Listing) {
	currencies := h.service.Currencies()
	symbols := make(map[string]string, 1)
	for _, p := range listing.Plans {
		symbols[p.Currency] = currencies.Symbol(p.Currency)
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data": listing,
		"meta": map[string]any{"currencySymbols": symbols},
	})
}

var errUnknownProduct = errors.New("plans: unknown product")

// StaticResolver resolves products from a fixed map. Used by the CLI and tests.
type StaticResolver map[string]ProductRef

// PlanRef implements ProductResolver.
func (s StaticResolver) PlanRef(_ context.Context, productID string) (ProductRef, error) {
	ref, ok := s[productID]
	if !ok {
		return ProductRef{}, &common.AppError{Code: "NOT_FOUND", Message: "product not found", HTTPStatus: http.StatusNotFound, Err: errUnknownProduct}
	}
	if ref.ID == "" {
		ref.ID = productID
	}
	return ref, nil
}
