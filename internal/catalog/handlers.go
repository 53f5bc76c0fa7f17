package catalog

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/noah-isme/backend-langganan/internal/common"
)

// Handler serves the public product catalog.
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

// Products handles GET /api/v1/products?category=&page=&limit=.
func (h *Handler) Products(w http.ResponseWriter, r *http.Request) {
	defaultLimit, maxLimit := h.service.Limits()
	page, limit := common.ParsePagination(r, defaultLimit, maxLimit)
	result, err := h.service.ListProducts(r.Context(), ListParams{
		Category: strings.ToLower(strings.TrimSpace(r.URL.Query().Get("category"))),
		Page:     page,
		Limit:    limit,
	})
	if err != nil {
		common.WriteError(w, err)
		return
	}
	w.Header().Set("X-Total-Count", strconv.FormatInt(result.Total, 10))
	writeCacheable(w, r, map[string]any{
		"data":       result.Items,
		"pagination": common.NewPagination(page, limit, result.Total),
	})
}

// ProductDetail handles GET /api/v1/products/{slug}. The slug may also be the
// product id.
func (h *Handler) ProductDetail(w http.ResponseWriter, r *http.Request) {
	product, err := h.service.GetProduct(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		common.WriteError(w, err)
		return
	}
	writeCacheable(w, r, map[string]any{"data": product})
}

// writeCacheable writes a public JSON body tagged with a content hash and
// answers 304 when the client already holds it.
func writeCacheable(w http.ResponseWriter, r *http.Request, body any) {
	encoded, err := json.Marshal(body)
	if err != nil {
		common.WriteError(w, err)
		return
	}
	sum := sha256.Sum256(encoded)
	etag := `W/"` + hex.EncodeToString(sum[:8]) + `"`
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "public, max-age=60")
	if match := r.Header.Get("If-None-Match"); match != "" && strings.Contains(match, etag) {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(encoded)
}
