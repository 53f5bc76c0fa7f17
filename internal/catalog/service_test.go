package catalog_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-langganan/internal/cache"
	"github.com/noah-isme/backend-langganan/internal/catalog"
	"github.com/noah-isme/backend-langganan/internal/common"
	"github.com/noah-isme/backend-langganan/internal/db"
	dbgen "github.com/noah-isme/backend-langganan/internal/db/gen"
)

type fakeQueries struct {
	products   []dbgen.Product
	listCalls  int
	countCalls int
}

func (f *fakeQueries) ListProducts(_ context.Context, arg dbgen.ListProductsParams) ([]dbgen.Product, error) {
	f.listCalls++
	var out []dbgen.Product
	for _, p := range f.products {
		if arg.Category == "" || p.Category == arg.Category {
			out = append(out, p)
		}
	}
	start := int(arg.OffsetCount)
	if start > len(out) {
		return []dbgen.Product{}, nil
	}
	out = out[start:]
	if int(arg.LimitCount) < len(out) {
		out = out[:arg.LimitCount]
	}
	return out, nil
}

func (f *fakeQueries) CountProducts(_ context.Context, category string) (int64, error) {
	f.countCalls++
	var n int64
	for _, p := range f.products {
		if category == "" || p.Category == category {
			n++
		}
	}
	return n, nil
}

func (f *fakeQueries) GetProductBySlug(_ context.Context, slug string) (dbgen.Product, error) {
	for _, p := range f.products {
		if p.Slug == slug {
			return p, nil
		}
	}
	return dbgen.Product{}, pgx.ErrNoRows
}

func (f *fakeQueries) GetProductByID(_ context.Context, id pgtype.UUID) (dbgen.Product, error) {
	for _, p := range f.products {
		if p.ID == id {
			return p, nil
		}
	}
	return dbgen.Product{}, pgx.ErrNoRows
}

func (f *fakeQueries) GetProductsByIDs(_ context.Context, ids []pgtype.UUID) ([]dbgen.Product, error) {
	var out []dbgen.Product
	for _, id := range ids {
		for _, p := range f.products {
			if p.ID == id {
				out = append(out, p)
			}
		}
	}
	return out, nil
}

func product(slug, category, individual, bundle string) dbgen.Product {
	return dbgen.Product{
		ID:              pgtype.UUID{Bytes: uuid.New(), Valid: true},
		Slug:            slug,
		Name:            slug,
		Category:        category,
		IndividualPrice: db.Numeric(decimal.RequireFromString(individual)),
		BundlePrice:     db.Numeric(decimal.RequireFromString(bundle)),
		Currency:        "inr",
		IsActive:        true,
	}
}

func newCatalog(t *testing.T, products ...dbgen.Product) (*catalog.Service, *fakeQueries) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	queries := &fakeQueries{products: products}
	svc, err := catalog.NewService(catalog.ServiceConfig{
		Queries:      queries,
		Cache:        cache.NewJSON(client, time.Minute),
		DefaultLimit: 2,
		MaxLimit:     10,
	})
	require.NoError(t, err)
	return svc, queries
}

func TestListProductsCachesFirstPage(t *testing.T) {
	svc, queries := newCatalog(t,
		product("slack", "productivity", "10", "8"),
		product("zee5", "streaming", "20", "15"),
		product("canva", "design", "12", "9"),
	)
	ctx := context.Background()

	first, err := svc.ListProducts(ctx, catalog.ListParams{})
	require.NoError(t, err)
	require.Len(t, first.Items, 2)
	require.Equal(t, int64(3), first.Total)
	require.Equal(t, "INR", first.Items[0].Currency)
	require.Equal(t, 20, first.Items[0].SavingsPercentage)

	_, err = svc.ListProducts(ctx, catalog.ListParams{})
	require.NoError(t, err)
	require.Equal(t, 1, queries.listCalls)

	filtered, err := svc.ListProducts(ctx, catalog.ListParams{Category: "streaming"})
	require.NoError(t, err)
	require.Len(t, filtered.Items, 1)
	require.Equal(t, 2, queries.listCalls)
}

func TestGetProductBySlugOrID(t *testing.T) {
	p := product("zee5", "streaming", "100", "90")
	svc, _ := newCatalog(t, p)
	ctx := context.Background()

	bySlug, err := svc.GetProduct(ctx, "zee5")
	require.NoError(t, err)
	require.True(t, bySlug.AnnualPrice.Equal(decimal.RequireFromString("972")))

	byID, err := svc.GetProduct(ctx, db.UUIDString(p.ID))
	require.NoError(t, err)
	require.Equal(t, bySlug.ID, byID.ID)

	_, err = svc.GetProduct(ctx, "missing")
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, http.StatusNotFound, appErr.HTTPStatus)
}

func TestInvalidStoredPriceIsRejected(t *testing.T) {
	bad := product("broken", "misc", "10", "5")
	bad.BundlePrice = db.Numeric(decimal.RequireFromString("-1"))
	svc, _ := newCatalog(t, bad, product("ok", "misc", "10", "5"))

	_, err := svc.GetProduct(context.Background(), "broken")
	require.ErrorIs(t, err, catalog.ErrInvalidStoredPrice)

	list, err := svc.ListProducts(context.Background(), catalog.ListParams{})
	require.NoError(t, err)
	require.Len(t, list.Items, 1)
	require.Equal(t, "ok", list.Items[0].Slug)
}

func TestProductsByIDsPreservesOrder(t *testing.T) {
	a := product("a", "x", "10", "9")
	b := product("b", "x", "20", "18")
	svc, _ := newCatalog(t, a, b)
	ids := []string{db.UUIDString(b.ID), db.UUIDString(a.ID)}

	got, err := svc.ProductsByIDs(context.Background(), ids)
	require.NoError(t, err)
	require.Equal(t, "b", got[0].Slug)
	require.Equal(t, "a", got[1].Slug)

	_, err = svc.ProductsByIDs(context.Background(), []string{uuid.NewString()})
	require.True(t, common.IsAppError(err))
	_, err = svc.ProductsByIDs(context.Background(), []string{"not-a-uuid"})
	require.True(t, common.IsAppError(err))
}

func TestPlanRefUsesVendorKey(t *testing.T) {
	p := product("zee5-premium", "streaming", "10", "9")
	p.VendorKey = "zee5"
	p.PlansEndpoint = "https://vendor.example/plans"
	svc, _ := newCatalog(t, p, product("canva", "design", "1", "1"))

	ref, err := svc.PlanRef(context.Background(), "zee5-premium")
	require.NoError(t, err)
	require.Equal(t, "zee5", ref.ID)
	require.Equal(t, "https://vendor.example/plans", ref.Endpoint)

	ref, err = svc.PlanRef(context.Background(), "canva")
	require.NoError(t, err)
	require.Equal(t, "canva", ref.ID)
}

func TestHandlers(t *testing.T) {
	svc, _ := newCatalog(t, product("slack", "productivity", "10", "8"))
	h := catalog.NewHandler(catalog.HandlerConfig{Service: svc})
	r := chi.NewRouter()
	r.Get("/products", h.Products)
	r.Get("/products/{slug}", h.ProductDetail)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/products?limit=50", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "1", rr.Header().Get("X-Total-Count"))
	var body struct {
		Data       []catalog.Product `json:"data"`
		Pagination common.Pagination `json:"pagination"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Len(t, body.Data, 1)
	require.Equal(t, 10, body.Pagination.PerPage)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/products/nope", nil))
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestProductDetailConditionalGet(t *testing.T) {
	svc, _ := newCatalog(t, product("notion", "productivity", "8", "6"))
	h := catalog.NewHandler(catalog.HandlerConfig{Service: svc})
	r := chi.NewRouter()
	r.Get("/products/{slug}", h.ProductDetail)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/products/notion", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	etag := rr.Header().Get("ETag")
	require.NotEmpty(t, etag)
	require.Equal(t, "public, max-age=60", rr.Header().Get("Cache-Control"))

	req := httptest.NewRequest(http.MethodGet, "/products/notion", nil)
	req.Header.Set("If-None-Match", etag)
	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	require.Equal(t, http.StatusNotModified, rr.Code)
	require.Empty(t, rr.Body.Bytes())
}
