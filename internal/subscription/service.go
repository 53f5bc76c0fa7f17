package subscription

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-langganan/internal/bundle"
	"github.com/noah-isme/backend-langganan/internal/catalog"
	"github.com/noah-isme/backend-langganan/internal/common"
	"github.com/noah-isme/backend-langganan/internal/db"
	dbgen "github.com/noah-isme/backend-langganan/internal/db/gen"
	"github.com/noah-isme/backend-langganan/internal/events"
	"github.com/noah-isme/backend-langganan/internal/obs"
	"github.com/noah-isme/backend-langganan/internal/payment"
	"github.com/noah-isme/backend-langganan/internal/plans"
	"github.com/noah-isme/backend-langganan/internal/pricing"
)

// Store is the persistence surface used by the subscription service.
type Store interface {
	CreateSubscription(ctx context.Context, arg dbgen.CreateSubscriptionParams) (dbgen.Subscription, error)
	GetSubscription(ctx context.Context, id pgtype.UUID) (dbgen.Subscription, error)
	GetSubscriptionByProviderOrder(ctx context.Context, arg dbgen.GetSubscriptionByProviderOrderParams) (dbgen.Subscription, error)
	UpdateSubscriptionStatus(ctx context.Context, arg dbgen.UpdateSubscriptionStatusParams) (dbgen.Subscription, error)
	ListSubscriptionsByUser(ctx context.Context, arg dbgen.ListSubscriptionsByUserParams) ([]dbgen.Subscription, error)
	CountSubscriptionsByUser(ctx context.Context, userID string) (int64, error)
	ListStalePendingSubscriptions(ctx context.Context, arg dbgen.ListStalePendingSubscriptionsParams) ([]dbgen.Subscription, error)
	InsertBillingRecord(ctx context.Context, arg dbgen.InsertBillingRecordParams) (dbgen.BillingRecord, error)
	ListBillingRecordsByUser(ctx context.Context, arg dbgen.ListBillingRecordsByUserParams) ([]dbgen.BillingRecord, error)
	CountBillingRecordsByUser(ctx context.Context, userID string) (int64, error)
}

// TxFunc runs fn against a transactional Store.
type TxFunc func(ctx context.Context, fn func(Store) error) error

// ProductCatalog resolves catalog products and their plan adapter reference.
type ProductCatalog interface {
	GetProduct(ctx context.Context, key string) (catalog.Product, error)
	PlanRef(ctx context.Context, key string) (plans.ProductRef, error)
}

// PlanLister returns normalized vendor plans.
type PlanLister interface {
	Plans(ctx context.Context, ref plans.ProductRef) (plans.Listing, error)
}

// BundlePricer quotes curated and builder bundles.
type BundlePricer interface {
	Customize(ctx context.Context, id string, in bundle.CustomizeInput) (bundle.Quote, error)
	BuilderQuote(ctx context.Context, productIDs []string) (bundle.Quote, error)
}

// Locker serialises state changes of one subscription.
type Locker interface {
	WithLock(ctx context.Context, key string, ttl time.Duration, fn func(context.Context) error) error
}

// Service runs checkout and the subscription lifecycle.
type Service struct {
	store           Store
	inTx            TxFunc
	products        ProductCatalog
	plans           PlanLister
	bundles         BundlePricer
	payments        *payment.Registry
	locker          Locker
	events          *events.Bus
	logger          zerolog.Logger
	defaultCurrency string
	orderTTL        time.Duration
	now             func() time.Time
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Store           Store
	InTx            TxFunc
	Products        ProductCatalog
	Plans           PlanLister
	Bundles         BundlePricer
	Payments        *payment.Registry
	Locker          Locker
	Events          *events.Bus
	Logger          zerolog.Logger
	DefaultCurrency string
	// OrderTTL is how long a checkout may stay unpaid before it expires.
	OrderTTL time.Duration
	Now      func() time.Time
}

// NewService constructs a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	switch {
	case cfg.Store == nil:
		return nil, errors.New("subscription: store is required")
	case cfg.Payments == nil:
		return nil, errors.New("subscription: payment registry is required")
	}
	inTx := cfg.InTx
	if inTx == nil {
		store := cfg.Store
		inTx = func(_ context.Context, fn func(Store) error) error { return fn(store) }
	}
	currency := strings.ToUpper(strings.TrimSpace(cfg.DefaultCurrency))
	if currency == "" {
		currency = "INR"
	}
	ttl := cfg.OrderTTL
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		store:           cfg.Store,
		inTx:            inTx,
		products:        cfg.Products,
		plans:           cfg.Plans,
		bundles:         cfg.Bundles,
		payments:        cfg.Payments,
		locker:          cfg.Locker,
		events:          cfg.Events,
		logger:          cfg.Logger,
		defaultCurrency: currency,
		orderTTL:        ttl,
		now:             now,
	}, nil
}

// OrderTTL returns how long an unpaid checkout stays open.
func (s *Service) OrderTTL() time.Duration { return s.orderTTL }

// CheckoutInput selects what to buy. ProductID and PlanID are used for plan
// targets, BundleID and Selection for curated bundles, ProductIDs for builder.
type CheckoutInput struct {
	TargetType   string   `json:"targetType" validate:"required,oneof=plan bundle builder"`
	ProductID    string   `json:"productId" validate:"max=120"`
	PlanID       string   `json:"planId" validate:"max=120"`
	BundleID     string   `json:"bundleId" validate:"omitempty,uuid"`
	Selection    []string `json:"selection" validate:"omitempty,dive,uuid"`
	ProductIDs   []string `json:"productIds" validate:"omitempty,dive,uuid"`
	BillingCycle string   `json:"billingCycle" validate:"required"`
}

type priced struct {
	targetType string
	productID  pgtype.UUID
	planID     string
	bundleID   pgtype.UUID
	productIDs []pgtype.UUID
	amount     decimal.Decimal
	currency   string
	lines      []LineItem
}

// Checkout prices the target, opens a gateway order and records a PENDING
// subscription. Free targets are activated immediately.
func (s *Service) Checkout(ctx context.Context, userID string, in CheckoutInput) (CheckoutResult, error) {
	cycle, err := ParseCycle(in.BillingCycle)
	if err != nil {
		return CheckoutResult{}, common.BadRequest("billingCycle", "billingCycle must be monthly or annual", err)
	}
	p, err := s.price(ctx, in, cycle)
	if err != nil {
		obs.IncCounter(obs.CheckoutTotal, "none", string(cycle), "rejected")
		return CheckoutResult{}, err
	}
	provider, err := s.payments.Default()
	if err != nil {
		return CheckoutResult{}, err
	}
	receipt := "sub_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:20]
	order := payment.Order{Provider: "none", ID: receipt, Currency: p.currency, Status: "free"}
	free := p.amount.IsZero()
	if !free {
		order, err = provider.CreateOrder(ctx, payment.OrderRequest{
			Receipt:  receipt,
			Amount:   p.amount,
			Currency: p.currency,
			Notes:    map[string]string{"userId": userID, "targetType": p.targetType, "cycle": string(cycle)},
		})
		if err != nil {
			obs.IncCounter(obs.CheckoutTotal, provider.Name(), string(cycle), "gateway_error")
			s.logger.Error().Err(err).Str("provider", provider.Name()).Msg("checkout_order_failed")
			return CheckoutResult{}, common.NewAppError("PAYMENT_GATEWAY_ERROR", "unable to open payment order", http.StatusBadGateway, err)
		}
	}
	lines, err := json.Marshal(p.lines)
	if err != nil {
		return CheckoutResult{}, fmt.Errorf("encode line items: %w", err)
	}

	var row dbgen.Subscription
	err = s.inTx(ctx, func(q Store) error {
		var err error
		row, err = q.CreateSubscription(ctx, dbgen.CreateSubscriptionParams{
			UserID:          userID,
			TargetType:      p.targetType,
			ProductID:       p.productID,
			PlanID:          p.planID,
			BundleID:        p.bundleID,
			ProductIds:      p.productIDs,
			BillingCycle:    string(cycle),
			Amount:          db.Numeric(p.amount),
			Currency:        p.currency,
			Status:          string(StatusPending),
			Provider:        order.Provider,
			ProviderOrderID: order.ID,
			LineItems:       lines,
		})
		if err != nil {
			return fmt.Errorf("create subscription: %w", err)
		}
		if free {
			row, err = s.activate(ctx, q, row, "")
		}
		return err
	})
	if err != nil {
		return CheckoutResult{}, err
	}
	obs.IncCounter(obs.CheckoutTotal, order.Provider, string(cycle), "created")
	s.emit(ctx, events.TopicSubscriptionCreated, row, nil)
	if free {
		s.emit(ctx, events.TopicSubscriptionActivated, row, nil)
	}
	return CheckoutResult{Subscription: toSubscription(row), Order: order}, nil
}

func (s *Service) price(ctx context.Context, in CheckoutInput, cycle Cycle) (priced, error) {
	switch strings.ToLower(strings.TrimSpace(in.TargetType)) {
	case TargetPlan:
		return s.pricePlan(ctx, in, cycle)
	case TargetBundle:
		if s.bundles == nil {
			return priced{}, errors.New("subscription: bundle pricing not configured")
		}
		if strings.TrimSpace(in.BundleID) == "" {
			return priced{}, common.BadRequest("bundleId", "bundleId is required", nil)
		}
		q, err := s.bundles.Customize(ctx, in.BundleID, bundle.CustomizeInput{Selection: in.Selection})
		if err != nil {
			return priced{}, err
		}
		p, err := s.priceQuote(TargetBundle, q, cycle)
		if err != nil {
			return priced{}, err
		}
		p.bundleID, err = db.UUID(q.BundleID)
		if err != nil {
			return priced{}, common.BadRequest("bundleId", "invalid bundle id", err)
		}
		return p, nil
	case TargetBuilder:
		if s.bundles == nil {
			return priced{}, errors.New("subscription: bundle pricing not configured")
		}
		if len(in.ProductIDs) == 0 {
			return priced{}, common.BadRequest("productIds", "productIds is required", nil)
		}
		q, err := s.bundles.BuilderQuote(ctx, in.ProductIDs)
		if err != nil {
			return priced{}, err
		}
		return s.priceQuote(TargetBuilder, q, cycle)
	default:
		return priced{}, common.BadRequest("targetType", "targetType must be plan, bundle or builder", nil)
	}
}

func (s *Service) pricePlan(ctx context.Context, in CheckoutInput, cycle Cycle) (priced, error) {
	if s.products == nil || s.plans == nil {
		return priced{}, errors.New("subscription: plan pricing not configured")
	}
	if strings.TrimSpace(in.ProductID) == "" || strings.TrimSpace(in.PlanID) == "" {
		return priced{}, common.BadRequest("planId", "productId and planId are required", nil)
	}
	product, err := s.products.GetProduct(ctx, in.ProductID)
	if err != nil {
		return priced{}, err
	}
	ref, err := s.products.PlanRef(ctx, in.ProductID)
	if err != nil {
		return priced{}, err
	}
	listing, err := s.plans.Plans(ctx, ref)
	if err != nil {
		return priced{}, err
	}
	var plan *plans.Plan
	for i := range listing.Plans {
		if strings.EqualFold(listing.Plans[i].ID, strings.TrimSpace(in.PlanID)) {
			plan = &listing.Plans[i]
			break
		}
	}
	if plan == nil {
		return priced{}, common.NewAppError("UNKNOWN_PLAN", "plan not offered for this product", http.StatusUnprocessableEntity, nil)
	}
	if !offersCycle(*plan, cycle) {
		appErr := common.NewAppError("CYCLE_NOT_OFFERED", "billing cycle not offered for this plan", http.StatusUnprocessableEntity, nil)
		appErr.Details = map[string]any{"billingOptions": plan.BillingOptions}
		return priced{}, appErr
	}
	amount := plan.Price
	if cycle == CycleAnnual {
		amount = pricing.AnnualPrice(plan.Price).Round(2)
	}
	currency := plan.Currency
	if currency == "" {
		currency = product.Currency
	}
	productID, err := db.UUID(product.ID)
	if err != nil {
		return priced{}, fmt.Errorf("product id: %w", err)
	}
	return priced{
		targetType: TargetPlan,
		productID:  productID,
		planID:     plan.ID,
		productIDs: []pgtype.UUID{productID},
		amount:     amount,
		currency:   s.currencyOr(currency),
		lines:      []LineItem{{ProductID: product.ID, PlanID: plan.ID, Name: product.Name + " " + plan.Name, Amount: amount}},
	}, nil
}

// offersCycle reports whether the plan can be bought on cycle. A "standard"
// plan has one flat rate and is billed monthly. Plans without options accept both.
func offersCycle(p plans.Plan, cycle Cycle) bool {
	if len(p.BillingOptions) == 0 {
		return true
	}
	for _, opt := range p.BillingOptions {
		c, err := ParseCycle(opt)
		if err != nil && strings.EqualFold(strings.TrimSpace(opt), "standard") {
			c, err = CycleMonthly, nil
		}
		if err == nil && c == cycle {
			return true
		}
	}
	return false
}

func (s *Service) priceQuote(target string, q bundle.Quote, cycle Cycle) (priced, error) {
	amount := q.Metrics.BundlePrice
	if cycle == CycleAnnual {
		amount = q.AnnualPrice
	}
	names := make(map[string]string, len(q.Lines))
	for _, l := range q.Lines {
		names[l.ProductID] = l.Name
	}
	p := priced{
		targetType: target,
		amount:     amount,
		currency:   s.currencyOr(q.Currency),
	}
	for _, a := range pricing.Allocate(q.Members(), amount) {
		id, err := db.UUID(a.ProductID)
		if err != nil {
			return priced{}, fmt.Errorf("product id: %w", err)
		}
		p.productIDs = append(p.productIDs, id)
		p.lines = append(p.lines, LineItem{ProductID: a.ProductID, Name: names[a.ProductID], Amount: a.Amount})
	}
	return p, nil
}

func (s *Service) currencyOr(c string) string {
	c = strings.ToUpper(strings.TrimSpace(c))
	if c == "" {
		return s.defaultCurrency
	}
	return c
}

// Confirm verifies the client's payment signature and activates the subscription.
func (s *Service) Confirm(ctx context.Context, userID, id string, c payment.Confirmation) (Subscription, error) {
	var out dbgen.Subscription
	activated := false
	err := s.withLock(ctx, id, func(ctx context.Context) error {
		row, err := s.owned(ctx, userID, id)
		if err != nil {
			return err
		}
		if c.OrderID != row.ProviderOrderID {
			return common.NewAppError("ORDER_MISMATCH", "payment does not belong to this subscription", http.StatusUnprocessableEntity, nil)
		}
		if Status(row.Status) == StatusActive && row.ProviderPaymentID == c.PaymentID {
			out = row
			return nil
		}
		if !CanTransition(Status(row.Status), StatusActive) {
			return conflict(Status(row.Status), StatusActive)
		}
		provider, err := s.payments.Get(row.Provider)
		if err != nil {
			return err
		}
		if err := provider.VerifyPayment(c); err != nil {
			obs.IncCounter(obs.CheckoutTotal, row.Provider, row.BillingCycle, "invalid_signature")
			return common.NewAppError("INVALID_SIGNATURE", "payment signature verification failed", http.StatusBadRequest, err)
		}
		err = s.inTx(ctx, func(q Store) error {
			var err error
			out, err = s.activate(ctx, q, row, c.PaymentID)
			return err
		})
		activated = err == nil
		return err
	})
	if err != nil {
		return Subscription{}, err
	}
	if activated {
		obs.IncCounter(obs.CheckoutTotal, out.Provider, out.BillingCycle, "paid")
		s.emit(ctx, events.TopicSubscriptionActivated, out, nil)
	}
	return toSubscription(out), nil
}

// Cancel moves an ACTIVE or PENDING subscription to CANCELLED. Cancelling an
// already cancelled subscription is a no-op.
func (s *Service) Cancel(ctx context.Context, userID, id string) (Subscription, error) {
	var out dbgen.Subscription
	changed := false
	err := s.withLock(ctx, id, func(ctx context.Context) error {
		row, err := s.owned(ctx, userID, id)
		if err != nil {
			return err
		}
		if Status(row.Status) == StatusCancelled {
			out = row
			return nil
		}
		out, err = s.transition(ctx, s.store, row, StatusCancelled, dbgen.UpdateSubscriptionStatusParams{
			CancelledAt: db.Timestamptz(s.now()),
		})
		changed = err == nil
		return err
	})
	if err != nil {
		return Subscription{}, err
	}
	if changed {
		s.emit(ctx, events.TopicSubscriptionCancelled, out, nil)
	}
	return toSubscription(out), nil
}

// ApplyWebhook implements payment.WebhookSettler. Callbacks for unknown
// orders or subscriptions already past PENDING are acknowledged and ignored.
func (s *Service) ApplyWebhook(ctx context.Context, provider string, res payment.WebhookResult) error {
	row, err := s.store.GetSubscriptionByProviderOrder(ctx, dbgen.GetSubscriptionByProviderOrderParams{
		Provider:        provider,
		ProviderOrderID: res.OrderID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.logger.Warn().Str("provider", provider).Str("order", res.OrderID).Msg("webhook_unknown_order")
			return nil
		}
		return fmt.Errorf("find subscription: %w", err)
	}
	id := db.UUIDString(row.ID)
	return s.withLock(ctx, id, func(ctx context.Context) error {
		row, err := s.store.GetSubscription(ctx, row.ID)
		if err != nil {
			return fmt.Errorf("reload subscription: %w", err)
		}
		if Status(row.Status) != StatusPending {
			if res.Status == payment.WebhookPaid && Status(row.Status) != StatusActive {
				s.logger.Warn().Str("subscription", id).Str("status", row.Status).Msg("payment_captured_for_closed_subscription")
			}
			return nil
		}
		switch res.Status {
		case payment.WebhookPaid:
			var out dbgen.Subscription
			if err := s.inTx(ctx, func(q Store) error {
				var err error
				out, err = s.activate(ctx, q, row, res.PaymentID)
				return err
			}); err != nil {
				return err
			}
			obs.IncCounter(obs.CheckoutTotal, out.Provider, out.BillingCycle, "paid")
			s.emit(ctx, events.TopicSubscriptionActivated, out, nil)
		case payment.WebhookFailed:
			reason := res.Reason
			if reason == "" {
				reason = "payment_failed"
			}
			out, err := s.fail(ctx, row, res.PaymentID, reason)
			if err != nil {
				return err
			}
			obs.IncCounter(obs.CheckoutTotal, out.Provider, out.BillingCycle, "failed")
		}
		return nil
	})
}

// Expire fails one subscription that is still PENDING. It is used by the
// delayed expiry task scheduled at checkout.
func (s *Service) Expire(ctx context.Context, id string) (bool, error) {
	expired := false
	err := s.withLock(ctx, id, func(ctx context.Context) error {
		key, err := db.UUID(id)
		if err != nil {
			return common.NotFound("subscription", err)
		}
		row, err := s.store.GetSubscription(ctx, key)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil
			}
			return fmt.Errorf("get subscription: %w", err)
		}
		if Status(row.Status) != StatusPending {
			return nil
		}
		if _, err := s.fail(ctx, row, "", "expired"); err != nil {
			return err
		}
		expired = true
		return nil
	})
	return expired, err
}

// ExpireStale fails PENDING subscriptions older than the order TTL and returns
// how many were expired.
func (s *Service) ExpireStale(ctx context.Context, limit int) (int, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.store.ListStalePendingSubscriptions(ctx, dbgen.ListStalePendingSubscriptionsParams{
		CreatedAt: db.Timestamptz(s.now().Add(-s.orderTTL)),
		Limit:     int32(limit),
	})
	if err != nil {
		return 0, fmt.Errorf("list stale subscriptions: %w", err)
	}
	count := 0
	for _, row := range rows {
		ok, err := s.Expire(ctx, db.UUIDString(row.ID))
		if err != nil {
			s.logger.Warn().Err(err).Str("subscription", db.UUIDString(row.ID)).Msg("subscription_expire_failed")
			continue
		}
		if ok {
			count++
		}
	}
	return count, nil
}

// Get returns one subscription owned by userID.
func (s *Service) Get(ctx context.Context, userID, id string) (Subscription, error) {
	row, err := s.owned(ctx, userID, id)
	if err != nil {
		return Subscription{}, err
	}
	return toSubscription(row), nil
}

// List returns the user's subscriptions, newest first.
func (s *Service) List(ctx context.Context, userID string, page, limit int) ([]Subscription, int64, error) {
	total, err := s.store.CountSubscriptionsByUser(ctx, userID)
	if err != nil {
		return nil, 0, fmt.Errorf("count subscriptions: %w", err)
	}
	rows, err := s.store.ListSubscriptionsByUser(ctx, dbgen.ListSubscriptionsByUserParams{
		UserID: userID,
		Limit:  int32(limit),
		Offset: common.Offset(page, limit),
	})
	if err != nil {
		return nil, 0, fmt.Errorf("list subscriptions: %w", err)
	}
	out := make([]Subscription, 0, len(rows))
	for _, row := range rows {
		out = append(out, toSubscription(row))
	}
	return out, total, nil
}

// BillingHistory returns the user's billing records, newest first.
func (s *Service) BillingHistory(ctx context.Context, userID string, page, limit int) ([]BillingRecord, int64, error) {
	total, err := s.store.CountBillingRecordsByUser(ctx, userID)
	if err != nil {
		return nil, 0, fmt.Errorf("count billing records: %w", err)
	}
	rows, err := s.store.ListBillingRecordsByUser(ctx, dbgen.ListBillingRecordsByUserParams{
		UserID: userID,
		Limit:  int32(limit),
		Offset: common.Offset(page, limit),
	})
	if err != nil {
		return nil, 0, fmt.Errorf("list billing records: %w", err)
	}
	out := make([]BillingRecord, 0, len(rows))
	for _, row := range rows {
		out = append(out, toBillingRecord(row))
	}
	return out, total, nil
}

func (s *Service) owned(ctx context.Context, userID, id string) (dbgen.Subscription, error) {
	key, err := db.UUID(id)
	if err != nil {
		return dbgen.Subscription{}, common.NotFound("subscription", err)
	}
	row, err := s.store.GetSubscription(ctx, key)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return dbgen.Subscription{}, common.NotFound("subscription", err)
		}
		return dbgen.Subscription{}, fmt.Errorf("get subscription: %w", err)
	}
	if row.UserID != userID {
		return dbgen.Subscription{}, common.NotFound("subscription", pgx.ErrNoRows)
	}
	return row, nil
}

// activate moves row to ACTIVE and books the paid billing record.
func (s *Service) activate(ctx context.Context, q Store, row dbgen.Subscription, paymentID string) (dbgen.Subscription, error) {
	updated, err := s.transition(ctx, q, row, StatusActive, dbgen.UpdateSubscriptionStatusParams{
		ProviderPaymentID: paymentID,
		CurrentPeriodEnd:  db.Timestamptz(Cycle(row.BillingCycle).PeriodEnd(s.now())),
	})
	if err != nil {
		return dbgen.Subscription{}, err
	}
	if _, err := q.InsertBillingRecord(ctx, dbgen.InsertBillingRecordParams{
		SubscriptionID:    updated.ID,
		UserID:            updated.UserID,
		Amount:            updated.Amount,
		Currency:          updated.Currency,
		Status:            "paid",
		Provider:          updated.Provider,
		ProviderPaymentID: paymentID,
		LineItems:         linesOrEmpty(updated.LineItems),
	}); err != nil {
		return dbgen.Subscription{}, fmt.Errorf("insert billing record: %w", err)
	}
	return updated, nil
}

// fail moves a PENDING row to FAILED, recording the failed charge when the
// gateway reported a payment attempt.
func (s *Service) fail(ctx context.Context, row dbgen.Subscription, paymentID, reason string) (dbgen.Subscription, error) {
	var out dbgen.Subscription
	err := s.inTx(ctx, func(q Store) error {
		var err error
		out, err = s.transition(ctx, q, row, StatusFailed, dbgen.UpdateSubscriptionStatusParams{ProviderPaymentID: paymentID})
		if err != nil {
			return err
		}
		if paymentID == "" {
			return nil
		}
		if _, err := q.InsertBillingRecord(ctx, dbgen.InsertBillingRecordParams{
			SubscriptionID:    out.ID,
			UserID:            out.UserID,
			Amount:            out.Amount,
			Currency:          out.Currency,
			Status:            "failed",
			Provider:          out.Provider,
			ProviderPaymentID: paymentID,
			LineItems:         linesOrEmpty(out.LineItems),
		}); err != nil {
			return fmt.Errorf("insert billing record: %w", err)
		}
		return nil
	})
	if err != nil {
		return dbgen.Subscription{}, err
	}
	s.emit(ctx, events.TopicSubscriptionFailed, out, map[string]any{"reason": reason})
	return out, nil
}

// transition applies a guarded status update; a concurrent change surfaces as
// a conflict.
func (s *Service) transition(ctx context.Context, q Store, row dbgen.Subscription, to Status, arg dbgen.UpdateSubscriptionStatusParams) (dbgen.Subscription, error) {
	from := Status(row.Status)
	if !CanTransition(from, to) {
		return dbgen.Subscription{}, conflict(from, to)
	}
	arg.ID = row.ID
	arg.Status = string(to)
	arg.ExpectedStatus = string(from)
	updated, err := q.UpdateSubscriptionStatus(ctx, arg)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return dbgen.Subscription{}, conflict(from, to)
		}
		return dbgen.Subscription{}, fmt.Errorf("update subscription: %w", err)
	}
	return updated, nil
}

func (s *Service) withLock(ctx context.Context, id string, fn func(context.Context) error) error {
	if s.locker == nil {
		return fn(ctx)
	}
	return s.locker.WithLock(ctx, "langganan:lock:subscription:"+id, 15*time.Second, fn)
}

func (s *Service) emit(ctx context.Context, topic string, row dbgen.Subscription, extra map[string]any) {
	if s.events == nil {
		return
	}
	payload := map[string]any{
		"subscriptionId": db.UUIDString(row.ID),
		"userId":         row.UserID,
		"status":         row.Status,
		"targetType":     row.TargetType,
		"billingCycle":   row.BillingCycle,
		"currency":       row.Currency,
		"provider":       row.Provider,
		"orderId":        row.ProviderOrderID,
	}
	if amount, ok := db.Decimal(row.Amount); ok {
		payload["amount"] = amount.StringFixed(2)
	}
	for k, v := range extra {
		payload[k] = v
	}
	if _, err := s.events.Emit(ctx, topic, row.ID, payload); err != nil {
		s.logger.Warn().Err(err).Str("topic", topic).Str("subscription", db.UUIDString(row.ID)).Msg("subscription_event_failed")
	}
}

func conflict(from, to Status) error {
	return common.NewAppError("INVALID_TRANSITION", fmt.Sprintf("subscription cannot move from %s to %s", from, to), http.StatusConflict, transitionError(from, to))
}

func linesOrEmpty(raw []byte) []byte {
	if len(raw) == 0 {
		return []byte("[]")
	}
	return raw
}
