package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-langganan/internal/cache"
	"github.com/noah-isme/backend-langganan/internal/common"
	"github.com/noah-isme/backend-langganan/internal/db"
	dbgen "github.com/noah-isme/backend-langganan/internal/db/gen"
	"github.com/noah-isme/backend-langganan/internal/plans"
	"github.com/noah-isme/backend-langganan/internal/pricing"
)

type queryProvider interface {
	ListProducts(ctx context.Context, arg dbgen.ListProductsParams) ([]dbgen.Product, error)
	CountProducts(ctx context.Context, category string) (int64, error)
	GetProductBySlug(ctx context.Context, slug string) (dbgen.Product, error)
	GetProductByID(ctx context.Context, id pgtype.UUID) (dbgen.Product, error)
	GetProductsByIDs(ctx context.Context, ids []pgtype.UUID) ([]dbgen.Product, error)
}

// ErrInvalidStoredPrice marks product rows whose prices cannot be used.
var ErrInvalidStoredPrice = errors.New("catalog: invalid stored price")

// Service serves the product catalog with a read-through redis cache.
type Service struct {
	queries      queryProvider
	cache        *cache.JSON
	logger       zerolog.Logger
	defaultLimit int
	maxLimit     int
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Queries      queryProvider
	Cache        *cache.JSON
	Logger       zerolog.Logger
	DefaultLimit int
	MaxLimit     int
}

// Product is the public product payload.
type Product struct {
	ID                string          `json:"id"`
	Slug              string          `json:"slug"`
	Name              string          `json:"name"`
	Description       string          `json:"description"`
	Category          string          `json:"category"`
	LogoURL           string          `json:"logoUrl,omitempty"`
	IndividualPrice   decimal.Decimal `json:"individualPrice"`
	BundlePrice       decimal.Decimal `json:"bundlePrice"`
	AnnualPrice       decimal.Decimal `json:"annualPrice"`
	SavingsPercentage int             `json:"savingsPercentage"`
	Currency          string          `json:"currency"`
}

// Membership returns the product's pricing entry.
func (p Product) Membership() pricing.Membership {
	return pricing.Membership{ProductID: p.ID, IndividualPrice: p.IndividualPrice, BundlePrice: p.BundlePrice}
}

// ListParams captures filters for product listing.
type ListParams struct {
	Category string
	Page     int
	Limit    int
}

// ProductList contains list data and pagination metadata.
type ProductList struct {
	Items []Product `json:"items"`
	Total int64     `json:"total"`
}

// NewService constructs a Service instance.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Queries == nil {
		return nil, errors.New("catalog: queries provider is required")
	}
	maxLimit := cfg.MaxLimit
	if maxLimit < 1 {
		maxLimit = 100
	}
	defaultLimit := cfg.DefaultLimit
	if defaultLimit < 1 {
		defaultLimit = 20
	}
	if defaultLimit > maxLimit {
		defaultLimit = maxLimit
	}
	return &Service{
		queries:      cfg.Queries,
		cache:        cfg.Cache,
		logger:       cfg.Logger,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
	}, nil
}

// Limits exposes the default and maximum page sizes.
func (s *Service) Limits() (defaultLimit, maxLimit int) {
	return s.defaultLimit, s.maxLimit
}

// ListProducts returns active products. Only the unfiltered first page is cached.
func (s *Service) ListProducts(ctx context.Context, params ListParams) (ProductList, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.Limit < 1 {
		params.Limit = s.defaultLimit
	}
	if params.Limit > s.maxLimit {
		params.Limit = s.maxLimit
	}
	params.Category = strings.TrimSpace(params.Category)
	cacheable := params.Page == 1 && params.Limit == s.defaultLimit && params.Category == ""
	if cacheable {
		var cached ProductList
		if ok, err := s.cache.Get(ctx, cache.KeyProductList(), &cached); err == nil && ok {
			return cached, nil
		}
	}

	total, err := s.queries.CountProducts(ctx, params.Category)
	if err != nil {
		return ProductList{}, fmt.Errorf("count products: %w", err)
	}
	rows, err := s.queries.ListProducts(ctx, dbgen.ListProductsParams{
		Category:    params.Category,
		LimitCount:  int32(params.Limit),
		OffsetCount: common.Offset(params.Page, params.Limit),
	})
	if err != nil {
		return ProductList{}, fmt.Errorf("list products: %w", err)
	}
	items := make([]Product, 0, len(rows))
	for _, row := range rows {
		p, err := toProduct(row)
		if err != nil {
			s.logger.Error().Err(err).Str("product", row.Slug).Msg("catalog_skip_invalid_product")
			continue
		}
		items = append(items, p)
	}
	result := ProductList{Items: items, Total: total}
	if cacheable {
		if err := s.cache.Set(ctx, cache.KeyProductList(), result); err != nil {
			s.logger.Warn().Err(err).Msg("catalog_cache_write_failed")
		}
	}
	return result, nil
}

// GetProduct looks a product up by slug, or by id when key is a UUID.
func (s *Service) GetProduct(ctx context.Context, key string) (Product, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return Product{}, common.BadRequest("slug", "slug is required", nil)
	}
	cacheKey := cache.KeyProduct(key)
	var cached Product
	if ok, err := s.cache.Get(ctx, cacheKey, &cached); err == nil && ok {
		return cached, nil
	}
	var (
		row dbgen.Product
		err error
	)
	if id, idErr := db.UUID(key); idErr == nil {
		row, err = s.queries.GetProductByID(ctx, id)
		if err == nil && !row.IsActive {
			err = pgx.ErrNoRows
		}
	} else {
		row, err = s.queries.GetProductBySlug(ctx, key)
	}
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Product{}, common.NotFound("product", err)
		}
		return Product{}, fmt.Errorf("get product: %w", err)
	}
	product, err := toProduct(row)
	if err != nil {
		return Product{}, invalidStoredPrice(err)
	}
	if err := s.cache.Set(ctx, cacheKey, product); err != nil {
		s.logger.Warn().Err(err).Str("product", key).Msg("catalog_cache_write_failed")
	}
	return product, nil
}

// ProductsByIDs loads the given products preserving the order of ids. Unknown
// or inactive ids yield a NOT_FOUND error naming the first missing id.
func (s *Service) ProductsByIDs(ctx context.Context, ids []string) ([]Product, error) {
	if len(ids) == 0 {
		return []Product{}, nil
	}
	keys := make([]pgtype.UUID, 0, len(ids))
	for _, id := range ids {
		key, err := db.UUID(id)
		if err != nil {
			return nil, common.BadRequest("productIds", fmt.Sprintf("invalid product id %q", id), err)
		}
		keys = append(keys, key)
	}
	rows, err := s.queries.GetProductsByIDs(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("get products: %w", err)
	}
	byID := make(map[string]Product, len(rows))
	for _, row := range rows {
		p, err := toProduct(row)
		if err != nil {
			return nil, invalidStoredPrice(err)
		}
		byID[p.ID] = p
	}
	out := make([]Product, 0, len(ids))
	for _, key := range keys {
		id := db.UUIDString(key)
		p, ok := byID[id]
		if !ok {
			e := common.NotFound("product", pgx.ErrNoRows)
			e.Details = map[string]any{"productId": id}
			return nil, e
		}
		out = append(out, p)
	}
	return out, nil
}

// PlanRef implements plans.ProductResolver. The vendor key, falling back to
// the slug, identifies the product towards plan adapters.
func (s *Service) PlanRef(ctx context.Context, key string) (plans.ProductRef, error) {
	key = strings.TrimSpace(key)
	var row dbgen.Product
	var err error
	if id, idErr := db.UUID(key); idErr == nil {
		row, err = s.queries.GetProductByID(ctx, id)
	} else {
		row, err = s.queries.GetProductBySlug(ctx, key)
	}
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return plans.ProductRef{}, common.NotFound("product", err)
		}
		return plans.ProductRef{}, fmt.Errorf("get product: %w", err)
	}
	ref := plans.ProductRef{
		ID:       row.VendorKey,
		Name:     row.Name,
		Category: row.Category,
		Endpoint: row.PlansEndpoint,
	}
	if strings.TrimSpace(ref.ID) == "" {
		ref.ID = row.Slug
	}
	return ref, nil
}

// Invalidate drops cached catalog entries for the given slugs and the list page.
func (s *Service) Invalidate(ctx context.Context, slugs ...string) error {
	keys := []string{cache.KeyProductList()}
	for _, slug := range slugs {
		keys = append(keys, cache.KeyProduct(slug))
	}
	return s.cache.Delete(ctx, keys...)
}

func toProduct(row dbgen.Product) (Product, error) {
	individual, ok := db.Decimal(row.IndividualPrice)
	if !ok {
		return Product{}, fmt.Errorf("%s individual price: %w", row.Slug, pricing.ErrInvalidPrice)
	}
	bundle, ok := db.Decimal(row.BundlePrice)
	if !ok {
		return Product{}, fmt.Errorf("%s bundle price: %w", row.Slug, pricing.ErrInvalidPrice)
	}
	id := db.UUIDString(row.ID)
	m, err := pricing.NewMembership(id, individual, bundle)
	if err != nil {
		return Product{}, err
	}
	return Product{
		ID:                id,
		Slug:              row.Slug,
		Name:              row.Name,
		Description:       row.Description,
		Category:          row.Category,
		LogoURL:           row.LogoUrl,
		IndividualPrice:   m.IndividualPrice,
		BundlePrice:       m.BundlePrice,
		AnnualPrice:       pricing.AnnualPrice(m.BundlePrice).Round(2),
		SavingsPercentage: pricing.SavingsPercentage(m.IndividualPrice, m.BundlePrice),
		Currency:          strings.ToUpper(strings.TrimSpace(row.Currency)),
	}, nil
}

func invalidStoredPrice(err error) *common.AppError {
	return common.NewAppError("INVALID_PRICE", "product has an invalid price", http.StatusInternalServerError, errors.Join(ErrInvalidStoredPrice, err))
}
