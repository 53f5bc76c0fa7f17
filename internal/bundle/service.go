package bundle

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-langganan/internal/cache"
	"github.com/noah-isme/backend-langganan/internal/catalog"
	"github.com/noah-isme/backend-langganan/internal/common"
	"github.com/noah-isme/backend-langganan/internal/db"
	dbgen "github.com/noah-isme/backend-langganan/internal/db/gen"
	"github.com/noah-isme/backend-langganan/internal/events"
	"github.com/noah-isme/backend-langganan/internal/obs"
	"github.com/noah-isme/backend-langganan/internal/pricing"
)

// Store is the persistence surface used by the bundle service.
type Store interface {
	ListBundles(ctx context.Context, arg dbgen.ListBundlesParams) ([]dbgen.Bundle, error)
	CountBundles(ctx context.Context) (int64, error)
	GetBundle(ctx context.Context, id pgtype.UUID) (dbgen.Bundle, error)
	ListBundleProducts(ctx context.Context, bundleID pgtype.UUID) ([]dbgen.ListBundleProductsRow, error)
	CreateBundle(ctx context.Context, arg dbgen.CreateBundleParams) (dbgen.Bundle, error)
	DeleteBundleProducts(ctx context.Context, bundleID pgtype.UUID) error
	InsertBundleProduct(ctx context.Context, arg dbgen.InsertBundleProductParams) error
	TouchBundle(ctx context.Context, id pgtype.UUID) error
}

// TxFunc runs fn against a transactional Store.
type TxFunc func(ctx context.Context, fn func(Store) error) error

// ProductSource loads catalog products for builder quotes and admin edits.
type ProductSource interface {
	ProductsByIDs(ctx context.Context, ids []string) ([]catalog.Product, error)
}

// Service prices curated bundles and ad-hoc builder selections.
type Service struct {
	store      Store
	inTx       TxFunc
	products   ProductSource
	cache      *cache.JSON
	events     *events.Bus
	logger     zerolog.Logger
	defaults   pricing.Constraints
	builderMax int
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Store    Store
	InTx     TxFunc
	Products ProductSource
	Cache    *cache.JSON
	Events   *events.Bus
	Logger   zerolog.Logger
	// Defaults fills bundle bounds the catalog leaves unset.
	Defaults pricing.Constraints
	// BuilderMax caps the size of a builder selection.
	BuilderMax int
}

// NewService constructs a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Store == nil {
		return nil, errors.New("bundle: store is required")
	}
	if cfg.Products == nil {
		return nil, errors.New("bundle: product source is required")
	}
	inTx := cfg.InTx
	if inTx == nil {
		store := cfg.Store
		inTx = func(_ context.Context, fn func(Store) error) error { return fn(store) }
	}
	builderMax := cfg.BuilderMax
	if builderMax <= 0 {
		builderMax = 20
	}
	return &Service{
		store:      cfg.Store,
		inTx:       inTx,
		products:   cfg.Products,
		cache:      cfg.Cache,
		events:     cfg.Events,
		logger:     cfg.Logger,
		defaults:   cfg.Defaults.Effective(),
		builderMax: builderMax,
	}, nil
}

// List returns active bundles with their full-selection metrics.
func (s *Service) List(ctx context.Context, page, limit int) ([]Bundle, int64, error) {
	cacheable := page <= 1
	type cachedList struct {
		Items []Bundle `json:"items"`
		Total int64    `json:"total"`
		Limit int      `json:"limit"`
	}
	if cacheable {
		var cached cachedList
		if ok, err := s.cache.Get(ctx, cache.KeyBundleList(), &cached); err == nil && ok && cached.Limit == limit {
			return cached.Items, cached.Total, nil
		}
	}
	total, err := s.store.CountBundles(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("count bundles: %w", err)
	}
	rows, err := s.store.ListBundles(ctx, dbgen.ListBundlesParams{LimitCount: int32(limit), OffsetCount: common.Offset(page, limit)})
	if err != nil {
		return nil, 0, fmt.Errorf("list bundles: %w", err)
	}
	items := make([]Bundle, 0, len(rows))
	for _, row := range rows {
		b, err := s.assemble(ctx, s.store, row)
		if err != nil {
			s.logger.Error().Err(err).Str("bundle", db.UUIDString(row.ID)).Msg("bundle_skip_invalid")
			continue
		}
		items = append(items, b)
	}
	if cacheable {
		if err := s.cache.Set(ctx, cache.KeyBundleList(), cachedList{Items: items, Total: total, Limit: limit}); err != nil {
			s.logger.Warn().Err(err).Msg("bundle_cache_write_failed")
		}
	}
	return items, total, nil
}

// Get loads one bundle.
func (s *Service) Get(ctx context.Context, id string) (Bundle, error) {
	key, err := db.UUID(id)
	if err != nil {
		return Bundle{}, common.NotFound("bundle", err)
	}
	var cached Bundle
	if ok, err := s.cache.Get(ctx, cache.KeyBundle(id), &cached); err == nil && ok {
		return cached, nil
	}
	row, err := s.store.GetBundle(ctx, key)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Bundle{}, common.NotFound("bundle", err)
		}
		return Bundle{}, fmt.Errorf("get bundle: %w", err)
	}
	if !row.IsActive {
		return Bundle{}, common.NotFound("bundle", pgx.ErrNoRows)
	}
	b, err := s.assemble(ctx, s.store, row)
	if err != nil {
		return Bundle{}, err
	}
	if err := s.cache.Set(ctx, cache.KeyBundle(b.ID), b); err != nil {
		s.logger.Warn().Err(err).Str("bundle", b.ID).Msg("bundle_cache_write_failed")
	}
	return b, nil
}

// CustomizeInput describes a requested selection change. When Toggle is set it
// is applied to Selection (or to the full membership when Selection is empty);
// otherwise Selection is validated as a whole.
type CustomizeInput struct {
	Selection []string `json:"selection" validate:"omitempty,dive,required"`
	Toggle    string   `json:"toggle"`
}

// Customize prices a selection of a curated bundle. The declared savings
// percentage is kept while amounts reflect only the active members.
func (s *Service) Customize(ctx context.Context, id string, in CustomizeInput) (Quote, error) {
	b, err := s.Get(ctx, id)
	if err != nil {
		return Quote{}, err
	}
	full := b.Selection()
	selection := pricing.NewSelection(in.Selection...)
	if len(selection) == 0 {
		selection = full
	}
	for _, pid := range selection {
		if !full.Contains(pid) {
			return Quote{}, violationError(unknownProduct(pid))
		}
	}
	toggle := strings.TrimSpace(in.Toggle)
	if toggle != "" && !full.Contains(toggle) {
		return Quote{}, violationError(unknownProduct(toggle))
	}
	if !b.IsCustomizable {
		if toggle != "" || len(selection) != len(full) {
			obs.IncCounter(obs.ConstraintViolationsTotal, "NOT_CUSTOMIZABLE")
			return Quote{}, violationError(ErrNotCustomizable)
		}
	} else {
		if toggle != "" {
			selection, err = pricing.ToggleMembership(selection, toggle, b.Constraints)
		}
		// The result must satisfy every constraint, not only the toggled change.
		if err == nil {
			err = b.Constraints.Validate(selection)
		}
	}
	if err != nil {
		var v *pricing.ConstraintViolation
		if errors.As(err, &v) {
			obs.IncCounter(obs.ConstraintViolationsTotal, string(v.Kind))
		}
		return Quote{}, violationError(err)
	}
	names := make(map[string]string, len(b.Members))
	for _, m := range b.Members {
		names[m.ProductID] = m.Name
	}
	q := buildQuote(pricing.KindCurated, b.Savings, pricing.ActiveMembers(b.memberships(), selection), names)
	q.BundleID = b.ID
	q.Currency = b.Currency
	return q, nil
}

// BuilderQuote prices an ad-hoc selection with the size-based discount tier.
func (s *Service) BuilderQuote(ctx context.Context, productIDs []string) (Quote, error) {
	selection := pricing.NewSelection(productIDs...)
	if len(selection) == 0 {
		return Quote{}, common.BadRequest("productIds", "at least one product is required", nil)
	}
	if len(selection) > s.builderMax {
		obs.IncCounter(obs.ConstraintViolationsTotal, string(pricing.MaxExceeded))
		return Quote{}, violationError(&pricing.ConstraintViolation{Kind: pricing.MaxExceeded, Limit: s.builderMax})
	}
	products, err := s.products.ProductsByIDs(ctx, selection)
	if err != nil {
		return Quote{}, err
	}
	currency, err := sharedCurrency(products)
	if err != nil {
		return Quote{}, violationError(err)
	}
	base := make([]pricing.Membership, 0, len(products))
	names := make(map[string]string, len(products))
	for _, p := range products {
		base = append(base, p.Membership())
		names[p.ID] = p.Name
	}
	q := buildQuote(pricing.KindBuilder, 0, pricing.BuilderMembers(base), names)
	q.Currency = currency
	return q, nil
}

// MemberInput assigns a product to a bundle.
type MemberInput struct {
	ProductID string `json:"productId" validate:"required,uuid"`
	Required  bool   `json:"required"`
}

// CreateInput describes a new curated bundle.
type CreateInput struct {
	Name           string        `json:"name" validate:"required,max=120"`
	Description    string        `json:"description" validate:"max=2000"`
	Category       string        `json:"category" validate:"max=60"`
	Savings        int           `json:"savings" validate:"min=0,max=100"`
	IsCustomizable bool          `json:"isCustomizable"`
	MinProducts    *int          `json:"minProducts" validate:"omitempty,min=1"`
	MaxProducts    *int          `json:"maxProducts" validate:"omitempty,min=1"`
	Products       []MemberInput `json:"products" validate:"required,min=1,dive"`
}

// Create stores a new bundle and its members in one transaction.
func (s *Service) Create(ctx context.Context, in CreateInput) (Bundle, error) {
	constraints := s.constraintsFor(in.MinProducts, in.MaxProducts, in.Products)
	if err := s.checkMembership(ctx, constraints, in.IsCustomizable, in.Products); err != nil {
		return Bundle{}, err
	}
	var created dbgen.Bundle
	err := s.inTx(ctx, func(q Store) error {
		var err error
		created, err = q.CreateBundle(ctx, dbgen.CreateBundleParams{
			Name:           strings.TrimSpace(in.Name),
			Description:    strings.TrimSpace(in.Description),
			Category:       strings.TrimSpace(in.Category),
			Savings:        int32(in.Savings),
			IsCustomizable: in.IsCustomizable,
			MinProducts:    db.Int4(in.MinProducts),
			MaxProducts:    db.Int4(in.MaxProducts),
		})
		if err != nil {
			return fmt.Errorf("create bundle: %w", err)
		}
		return insertMembers(ctx, q, created.ID, in.Products)
	})
	if err != nil {
		return Bundle{}, err
	}
	return s.afterWrite(ctx, created.ID)
}

// SetProducts replaces the membership of an existing bundle.
func (s *Service) SetProducts(ctx context.Context, id string, products []MemberInput) (Bundle, error) {
	key, err := db.UUID(id)
	if err != nil {
		return Bundle{}, common.NotFound("bundle", err)
	}
	row, err := s.store.GetBundle(ctx, key)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Bundle{}, common.NotFound("bundle", err)
		}
		return Bundle{}, fmt.Errorf("get bundle: %w", err)
	}
	constraints := s.constraintsFor(db.IntPtr(row.MinProducts), db.IntPtr(row.MaxProducts), products)
	if err := s.checkMembership(ctx, constraints, row.IsCustomizable, products); err != nil {
		return Bundle{}, err
	}
	err = s.inTx(ctx, func(q Store) error {
		if err := q.DeleteBundleProducts(ctx, key); err != nil {
			return fmt.Errorf("clear bundle products: %w", err)
		}
		if err := insertMembers(ctx, q, key, products); err != nil {
			return err
		}
		return q.TouchBundle(ctx, key)
	})
	if err != nil {
		return Bundle{}, err
	}
	return s.afterWrite(ctx, key)
}

func (s *Service) afterWrite(ctx context.Context, id pgtype.UUID) (Bundle, error) {
	bundleID := db.UUIDString(id)
	if err := s.cache.Delete(ctx, cache.KeyBundle(bundleID), cache.KeyBundleList()); err != nil {
		s.logger.Warn().Err(err).Str("bundle", bundleID).Msg("bundle_cache_evict_failed")
	}
	b, err := s.Get(ctx, bundleID)
	if err != nil {
		return Bundle{}, err
	}
	if s.events != nil {
		payload := map[string]any{"bundleId": b.ID, "products": b.Selection()}
		if _, err := s.events.Emit(ctx, events.TopicBundleUpdated, id, payload); err != nil {
			s.logger.Warn().Err(err).Str("bundle", b.ID).Msg("bundle_event_failed")
		}
	}
	return b, nil
}

func (s *Service) constraintsFor(minProducts, maxProducts *int, members []MemberInput) pricing.Constraints {
	c := s.defaults
	if minProducts != nil {
		c.MinProducts = *minProducts
	}
	if maxProducts != nil {
		c.MaxProducts = *maxProducts
	}
	c.RequiredProductIDs = nil
	for _, m := range members {
		if m.Required {
			c.RequiredProductIDs = append(c.RequiredProductIDs, m.ProductID)
		}
	}
	return c
}

func (s *Service) checkMembership(ctx context.Context, c pricing.Constraints, customizable bool, members []MemberInput) error {
	if c.MinProducts > c.MaxProducts {
		return common.BadRequest("minProducts", "minProducts cannot exceed maxProducts", nil)
	}
	ids := make([]string, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.ProductID)
	}
	selection := pricing.NewSelection(ids...)
	if len(selection) != len(ids) {
		return common.BadRequest("products", "products must be unique", nil)
	}
	if customizable {
		if err := c.Validate(selection); err != nil {
			return violationError(err)
		}
	}
	products, err := s.products.ProductsByIDs(ctx, selection)
	if err != nil {
		return err
	}
	if _, err := sharedCurrency(products); err != nil {
		return violationError(err)
	}
	return nil
}

func (s *Service) assemble(ctx context.Context, q Store, row dbgen.Bundle) (Bundle, error) {
	rows, err := q.ListBundleProducts(ctx, row.ID)
	if err != nil {
		return Bundle{}, fmt.Errorf("list bundle products: %w", err)
	}
	b := Bundle{
		ID:             db.UUIDString(row.ID),
		Name:           row.Name,
		Description:    row.Description,
		Category:       row.Category,
		Savings:        int(row.Savings),
		IsCustomizable: row.IsCustomizable,
		Members:        make([]Member, 0, len(rows)),
	}
	constraints := s.defaults
	if v := db.IntPtr(row.MinProducts); v != nil {
		constraints.MinProducts = *v
	}
	if v := db.IntPtr(row.MaxProducts); v != nil {
		constraints.MaxProducts = *v
	}
	for _, r := range rows {
		individual, ok := db.Decimal(r.IndividualPrice)
		if !ok {
			return Bundle{}, fmt.Errorf("%s: %w", r.Slug, pricing.ErrInvalidPrice)
		}
		price, ok := db.Decimal(r.BundlePrice)
		if !ok {
			return Bundle{}, fmt.Errorf("%s: %w", r.Slug, pricing.ErrInvalidPrice)
		}
		m, err := pricing.NewMembership(db.UUIDString(r.ProductID), individual, price)
		if err != nil {
			return Bundle{}, err
		}
		if b.Currency == "" {
			b.Currency = strings.ToUpper(strings.TrimSpace(r.Currency))
		}
		if r.IsRequired {
			constraints.RequiredProductIDs = append(constraints.RequiredProductIDs, m.ProductID)
		}
		b.Members = append(b.Members, Member{
			ProductID:       m.ProductID,
			Slug:            r.Slug,
			Name:            r.Name,
			Required:        r.IsRequired,
			IndividualPrice: m.IndividualPrice,
			BundlePrice:     m.BundlePrice,
		})
	}
	b.Constraints = constraints
	b.Metrics = pricing.ComputeMetrics(b.memberships(), pricing.KindCurated, b.Savings)
	b.AnnualPrice = pricing.AnnualPrice(b.Metrics.BundlePrice).Round(2)
	return b, nil
}

func insertMembers(ctx context.Context, q Store, bundleID pgtype.UUID, members []MemberInput) error {
	for i, m := range members {
		pid, err := db.UUID(m.ProductID)
		if err != nil {
			return common.BadRequest("products", "invalid product id", err)
		}
		if err := q.InsertBundleProduct(ctx, dbgen.InsertBundleProductParams{
			BundleID:   bundleID,
			ProductID:  pid,
			IsRequired: m.Required,
			Position:   int32(i),
		}); err != nil {
			return fmt.Errorf("insert bundle product: %w", err)
		}
	}
	return nil
}

func sharedCurrency(products []catalog.Product) (string, error) {
	currency := ""
	for _, p := range products {
		switch {
		case currency == "":
			currency = p.Currency
		case p.Currency != currency:
			return "", ErrMixedCurrency
		}
	}
	return currency, nil
}
