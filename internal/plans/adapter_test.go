package plans

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	limiter "github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"

	"github.com/noah-isme/backend-langganan/internal/resilience"
)

type namedAdapter string

func (n namedAdapter) FetchPlans(context.Context, ProductRef) (any, error) {
	return string(n), nil
}

func TestRegistryResolveOrder(t *testing.T) {
	r := NewRegistry(namedAdapter("default"))
	r.Register("Zee5", namedAdapter("zee5"))
	r.RegisterCategory("streaming", namedAdapter("streaming"))

	resolve := func(ref ProductRef) string {
		a, err := r.Resolve(ref)
		require.NoError(t, err)
		raw, _ := a.FetchPlans(context.Background(), ref)
		return raw.(string)
	}
	require.Equal(t, "zee5", resolve(ProductRef{ID: "zee5", Category: "streaming"}))
	require.Equal(t, "streaming", resolve(ProductRef{ID: "sonyliv", Category: "Streaming"}))
	require.Equal(t, "default", resolve(ProductRef{ID: "slack", Category: "productivity"}))
	require.Equal(t, []string{"zee5"}, r.Products())
}

func TestRegistryWithoutDefault(t *testing.T) {
	r := NewRegistry(nil)
	_, err := r.Resolve(ProductRef{ID: "slack"})
	require.ErrorIs(t, err, ErrNoAdapter)
}

func TestRegistryDuplicatePanics(t *testing.T) {
	r := NewRegistry(nil)
	r.Register("a", namedAdapter("a"))
	require.Panics(t, func() { r.Register("A", namedAdapter("b")) })
}

func TestStaticAdapter(t *testing.T) {
	a := StaticAdapter{Payloads: map[string]any{"x": []any{}}}
	raw, err := a.FetchPlans(context.Background(), ProductRef{ID: "x"})
	require.NoError(t, err)
	require.Equal(t, []any{}, raw)
	_, err = a.FetchPlans(context.Background(), ProductRef{ID: "y"})
	require.ErrorIs(t, err, ErrNoEndpoint)
}

func TestHTTPAdapterDecodesVendorPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "secret", r.Header.Get("X-Api-Key"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode([]map[string]any{{"plan_id": "plan_A0qs3dlK", "plan_cost": 60}})
	}))
	defer srv.Close()

	a := HTTPAdapter{
		Client:    resilience.HTTPClient{Client: srv.Client(), Timeout: time.Second},
		Endpoints: map[string]string{"zee5": srv.URL + "/plans"},
		Headers:   map[string]string{"X-Api-Key": "secret"},
	}
	raw, err := a.FetchPlans(context.Background(), ProductRef{ID: "zee5"})
	require.NoError(t, err)
	res := Normalize(raw, ProductHint{ID: "zee5"})
	require.Len(t, res.Plans, 1)
	require.Equal(t, "60", res.Plans[0].Price.String())
}

func TestHTTPAdapterErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	a := HTTPAdapter{Client: resilience.HTTPClient{Client: srv.Client()}}
	_, err := a.FetchPlans(context.Background(), ProductRef{ID: "nope"})
	require.ErrorIs(t, err, ErrNoEndpoint)

	_, err = a.FetchPlans(context.Background(), ProductRef{ID: "nope", Endpoint: srv.URL})
	require.Error(t, err)
	require.Contains(t, err.Error(), "404")
}

func TestHTTPAdapterThrottlesPerHost(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	a := HTTPAdapter{
		Client:  resilience.HTTPClient{Client: srv.Client()},
		Limiter: limiter.New(memory.NewStore(), limiter.Rate{Period: time.Minute, Limit: 1}),
	}
	ref := ProductRef{ID: "p", Endpoint: srv.URL}
	_, err := a.FetchPlans(context.Background(), ref)
	require.NoError(t, err)
	_, err = a.FetchPlans(context.Background(), ref)
	require.True(t, errors.Is(err, ErrThrottled), "got %v", err)
}
