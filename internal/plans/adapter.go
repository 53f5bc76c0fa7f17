package plans

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"

	limiter "github.com/ulule/limiter/v3"

	"github.com/noah-isme/backend-langganan/internal/resilience"
)

var (
	// ErrNoAdapter is returned when no adapter serves a product.
	ErrNoAdapter = errors.New("plans: no adapter for product")
	// ErrThrottled is returned when the outbound vendor quota is exhausted.
	ErrThrottled = errors.New("plans: vendor rate limit reached")
	// ErrNoEndpoint is returned when an HTTP adapter has no URL for a product.
	ErrNoEndpoint = errors.New("plans: vendor endpoint not configured")
)

// ProductRef carries what an adapter needs to locate a product's vendor plans.
type ProductRef struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Category string `json:"category,omitempty"`
	Endpoint string `json:"endpoint,omitempty"`
}

// Hint returns the normalizer hint for the product.
func (r ProductRef) Hint() ProductHint {
	return ProductHint{ID: r.ID, Name: r.Name}
}

// Adapter fetches the raw plan payload for one product.
type Adapter interface {
	FetchPlans(ctx context.Context, ref ProductRef) (any, error)
}

// AdapterFunc adapts a function to the Adapter interface.
type AdapterFunc func(ctx context.Context, ref ProductRef) (any, error)

// FetchPlans implements Adapter.
func (f AdapterFunc) FetchPlans(ctx context.Context, ref ProductRef) (any, error) {
	return f(ctx, ref)
}

// Registry resolves the adapter for a product: by product id first, then by
// category, then the default adapter.
type Registry struct {
	mu         sync.RWMutex
	byProduct  map[string]Adapter
	byCategory map[string]Adapter
	fallback   Adapter
}

// NewRegistry creates a registry with an optional default adapter.
func NewRegistry(def Adapter) *Registry {
	return &Registry{
		byProduct:  make(map[string]Adapter),
		byCategory: make(map[string]Adapter),
		fallback:   def,
	}
}

// Register binds an adapter to a product id. Panics on duplicate.
func (r *Registry) Register(productID string, a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := strings.ToLower(strings.TrimSpace(productID))
	if _, exists := r.byProduct[key]; exists {
		panic(fmt.Sprintf("plans adapter already registered for product: %s", productID))
	}
	r.byProduct[key] = a
}

// RegisterCategory binds an adapter to every product of a category.
func (r *Registry) RegisterCategory(category string, a Adapter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byCategory[strings.ToLower(strings.TrimSpace(category))] = a
}

// Resolve returns the adapter serving ref.
func (r *Registry) Resolve(ref ProductRef) (Adapter, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if a, ok := r.byProduct[strings.ToLower(ref.ID)]; ok {
		return a, nil
	}
	if a, ok := r.byCategory[strings.ToLower(ref.Category)]; ok && ref.Category != "" {
		return a, nil
	}
	if r.fallback != nil {
		return r.fallback, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNoAdapter, ref.ID)
}

// Products returns the product ids with a dedicated adapter, sorted.
func (r *Registry) Products() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.byProduct))
	for id := range r.byProduct {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// StaticAdapter serves canned payloads keyed by product id.
type StaticAdapter struct {
	Payloads map[string]any
}

// FetchPlans implements Adapter.
func (s StaticAdapter) FetchPlans(_ context.Context, ref ProductRef) (any, error) {
	raw, ok := s.Payloads[ref.ID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoEndpoint, ref.ID)
	}
	return raw, nil
}

const maxVendorBody = 1 << 20

// HTTPAdapter fetches plan JSON from a vendor endpoint through the resilient
// client. Outbound calls are throttled per vendor host when Limiter is set.
type HTTPAdapter struct {
	Client    resilience.HTTPClient
	Endpoints map[string]string
	Headers   map[string]string
	Limiter   *limiter.Limiter
}

// FetchPlans implements Adapter.
func (h HTTPAdapter) FetchPlans(ctx context.Context, ref ProductRef) (any, error) {
	endpoint := ref.Endpoint
	if endpoint == "" {
		endpoint = h.Endpoints[ref.ID]
	}
	if endpoint == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoEndpoint, ref.ID)
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("plans: parse endpoint: %w", err)
	}
	if h.Limiter != nil {
		lctx, err := h.Limiter.Get(ctx, "vendor:"+u.Host)
		if err != nil {
			return nil, fmt.Errorf("plans: vendor limiter: %w", err)
		}
		if lctx.Reached {
			return nil, fmt.Errorf("%w: %s", ErrThrottled, u.Host)
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range h.Headers {
		req.Header.Set(k, v)
	}
	resp, err := h.Client.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("plans: fetch %s: %w", ref.ID, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxVendorBody))
		return nil, fmt.Errorf("plans: vendor %s responded %d", ref.ID, resp.StatusCode)
	}
	dec := json.NewDecoder(io.LimitReader(resp.Body, maxVendorBody))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("plans: decode %s: %w", ref.ID, err)
	}
	return raw, nil
}
