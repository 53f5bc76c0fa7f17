package plans

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-langganan/internal/cache"
	"github.com/noah-isme/backend-langganan/internal/obs"
)

// Locker serialises vendor fetches for the same product across instances.
type Locker interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error
}

// FallbackNotifier is told whenever static plans replace a vendor response.
type FallbackNotifier interface {
	PlansFallback(ctx context.Context, ref ProductRef, reason string)
}

// Source reports where a plan list came from.
type Source string

const (
	SourceCache    Source = "cache"
	SourceVendor   Source = "vendor"
	SourceFallback Source = "fallback"
)

// Listing is the result of a plan lookup.
type Listing struct {
	ProductID             string    `json:"productId"`
	Plans                 []Plan    `json:"plans"`
	MultipleBillingCycles bool      `json:"multipleBillingCycles"`
	Source                Source    `json:"source"`
	FetchedAt             time.Time `json:"fetchedAt"`
}

// Service resolves normalized plans for products.
type Service struct {
	registry   *Registry
	normalizer Normalizer
	fallback   FallbackCatalog
	cache      *cache.JSON
	locker     Locker
	lockTTL    time.Duration
	timeout    time.Duration
	notifier   FallbackNotifier
	meter      *obs.VendorMeter
	logger     zerolog.Logger
	now        func() time.Time
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Registry   *Registry
	Normalizer NormalizerConfig
	Fallback   *FallbackCatalog
	Cache      *cache.JSON
	Locker     Locker
	LockTTL    time.Duration
	Timeout    time.Duration
	Notifier   FallbackNotifier
	Meter      *obs.VendorMeter
	Logger     zerolog.Logger
	Now        func() time.Time
}

// NewService constructs a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Registry == nil {
		return nil, errors.New("plans: adapter registry is required")
	}
	normalizer := NewNormalizer(cfg.Normalizer)
	fallback := DefaultFallbackCatalog(normalizer.currencies.Fallback())
	if cfg.Fallback != nil {
		fallback = *cfg.Fallback
	}
	lockTTL := cfg.LockTTL
	if lockTTL <= 0 {
		lockTTL = 15 * time.Second
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		registry:   cfg.Registry,
		normalizer: normalizer,
		fallback:   fallback,
		cache:      cfg.Cache,
		locker:     cfg.Locker,
		lockTTL:    lockTTL,
		timeout:    timeout,
		notifier:   cfg.Notifier,
		meter:      cfg.Meter,
		logger:     cfg.Logger,
		now:        now,
	}, nil
}

// Plans returns the normalized plans for ref, consulting the cache first.
// Vendor failures degrade to the static fallback catalog and never surface
// as errors.
func (s *Service) Plans(ctx context.Context, ref ProductRef) (Listing, error) {
	ref.ID = strings.TrimSpace(ref.ID)
	if ref.ID == "" {
		return Listing{}, errors.New("plans: product id is required")
	}
	if listing, ok := s.cached(ctx, ref); ok {
		return listing, nil
	}
	if s.locker == nil {
		return s.load(ctx, ref)
	}
	var listing Listing
	err := s.locker.WithLock(ctx, cache.KeyPlansLock(ref.ID), s.lockTTL, func(lockCtx context.Context) error {
		if cached, ok := s.cached(lockCtx, ref); ok {
			listing = cached
			return nil
		}
		var err error
		listing, err = s.load(lockCtx, ref)
		return err
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return Listing{}, err
		}
		s.logger.Warn().Err(err).Str("product", ref.ID).Msg("plans_lock_unavailable")
		return s.load(ctx, ref)
	}
	return listing, nil
}

// Refresh bypasses the cache and stores a fresh vendor result.
func (s *Service) Refresh(ctx context.Context, ref ProductRef) (Listing, error) {
	if err := s.cache.Delete(ctx, cache.KeyPlans(ref.ID)); err != nil {
		s.logger.Warn().Err(err).Str("product", ref.ID).Msg("plans_cache_evict_failed")
	}
	return s.load(ctx, ref)
}

func (s *Service) cached(ctx context.Context, ref ProductRef) (Listing, bool) {
	var listing Listing
	ok, err := s.cache.Get(ctx, cache.KeyPlans(ref.ID), &listing)
	if err != nil {
		s.logger.Warn().Err(err).Str("product", ref.ID).Msg("plans_cache_read_failed")
		return Listing{}, false
	}
	if !ok {
		return Listing{}, false
	}
	listing.Source = SourceCache
	obs.IncCounter(obs.PlansFetchTotal, ref.ID, string(SourceCache))
	return listing, true
}

func (s *Service) load(ctx context.Context, ref ProductRef) (Listing, error) {
	raw, reason := s.fetch(ctx, ref)
	var listing Listing
	if reason == "" {
		res := s.normalizer.Normalize(raw, ref.Hint())
		obs.IncCounter(obs.PlansShapeTotal, string(res.Shape))
		if len(res.Plans) > 0 {
			listing = Listing{
				ProductID:             ref.ID,
				Plans:                 res.Plans,
				MultipleBillingCycles: res.MultipleBillingCycles,
				Source:                SourceVendor,
			}
		} else {
			reason = "empty_payload"
		}
	}
	if reason != "" {
		listing = s.fallbackListing(ctx, ref, reason)
	}
	listing.FetchedAt = s.now().UTC()
	obs.IncCounter(obs.PlansFetchTotal, ref.ID, string(listing.Source))
	if err := s.cache.Set(ctx, cache.KeyPlans(ref.ID), listing); err != nil {
		s.logger.Warn().Err(err).Str("product", ref.ID).Msg("plans_cache_write_failed")
	}
	return listing, nil
}

// fetch returns the raw payload, or a non-empty reason when the vendor
// response cannot be used.
func (s *Service) fetch(ctx context.Context, ref ProductRef) (any, string) {
	adapter, err := s.registry.Resolve(ref)
	if err != nil {
		return nil, "no_adapter"
	}
	fetchCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	start := time.Now()
	raw, err := adapter.FetchPlans(fetchCtx, ref)
	elapsed := time.Since(start)
	result := "ok"
	switch {
	case err != nil:
		result = "error"
	case IsErrorShape(raw):
		result = "error_shape"
	}
	obs.ObserveMillis(obs.VendorFetchLatency, obs.DurationMillis(elapsed), ref.ID, result)
	s.meter.Record(ctx, ref.ID, result, elapsed)
	if err != nil {
		reason := "fetch_error"
		if errors.Is(err, ErrThrottled) {
			reason = "throttled"
		}
		s.logger.Warn().Err(err).Str("product", ref.ID).Dur("elapsed", elapsed).Msg("vendor_plans_fetch_failed")
		return nil, reason
	}
	if result == "error_shape" {
		s.logger.Warn().Str("product", ref.ID).Interface("payload", raw).Msg("vendor_plans_error_payload")
		return nil, "error_payload"
	}
	return raw, ""
}

func (s *Service) fallbackListing(ctx context.Context, ref ProductRef, reason string) Listing {
	obs.IncCounter(obs.PlansFallbackTotal, ref.ID, reason)
	s.logger.Info().Str("product", ref.ID).Str("reason", reason).Msg("plans_fallback")
	if s.notifier != nil {
		s.notifier.PlansFallback(ctx, ref, reason)
	}
	return Listing{
		ProductID:             ref.ID,
		Plans:                 s.fallback.Plans(ref.Hint()),
		MultipleBillingCycles: true,
		Source:                SourceFallback,
	}
}

// Currencies exposes the currency table used by the normalizer.
func (s *Service) Currencies() CurrencyTable {
	return s.normalizer.currencies
}
