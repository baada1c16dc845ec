package recommend

import (
	"context"
	"errors"
	"fmt"
	"novaReco/business/similarity"
	"novaReco/domain"
	"novaReco/pkg/logger"
	"novaReco/pkg/metrics"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	DefaultLimit  = 5
	MaxLimit      = 50
	SessionWindow = 10

	PersonalizedScore = 0.9
	SessionScore      = 0.8
	PopularScore      = 0.4

	PersonalizedReason = "Based on your preferences"
	SessionReason      = "Based on your browsing"
	PopularReason      = "Popular in this store"
)

type (
	EdgeReader interface {
		EdgesFor(ctx context.Context, shopDomain, sourceProductID string) ([]domain.RecommendationEdge, error)
	}

	ProductReader interface {
		FindByProductID(ctx context.Context, shopDomain, productID string) (domain.Product, error)
		FindByProductIDs(ctx context.Context, shopDomain string, productIDs []string) ([]domain.Product, error)
		ListProducts(ctx context.Context, shopDomain string) ([]domain.Product, error)
		// ListPopular orders by popularity desc, ties in insertion order;
		// limit <= 0 returns every product.
		ListPopular(ctx context.Context, shopDomain string, limit int) ([]domain.Product, error)
	}

	ProfileReader interface {
		FindProfile(ctx context.Context, shopDomain, userID string) (domain.UserProfile, error)
	}

	SessionReader interface {
		RecentSessionViews(ctx context.Context, shopDomain, sessionID string, limit int) ([]string, error)
	}

	// AnalyticsSink records served requests. Failures are logged and dropped.
	AnalyticsSink interface {
		Record(ctx context.Context, entry domain.RecommendationRequestLog) error
	}
)

type Config struct {
	DefaultLimit     int
	AnalyticsTimeout time.Duration
}

type RecommendService struct {
	edges    EdgeReader
	products ProductReader
	profiles ProfileReader
	sessions SessionReader
	sink     AnalyticsSink
	cfg      Config

	wg  sync.WaitGroup
	now func() time.Time
}

func NewRecommendService(edges EdgeReader, products ProductReader, profiles ProfileReader, sessions SessionReader, sink AnalyticsSink, cfg Config) *RecommendService {
	if cfg.DefaultLimit <= 0 || cfg.DefaultLimit > MaxLimit {
		cfg.DefaultLimit = DefaultLimit
	}
	if cfg.AnalyticsTimeout <= 0 {
		cfg.AnalyticsTimeout = 2 * time.Second
	}

	return &RecommendService{
		edges:    edges,
		products: products,
		profiles: profiles,
		sessions: sessions,
		sink:     sink,
		cfg:      cfg,
		now:      time.Now,
	}
}

type tier struct {
	strategy domain.Strategy
	resolve  func(ctx context.Context, q domain.RecommendationQuery) ([]domain.ScoredProduct, error)
}

// Recommend walks the tiers in order and returns the first non-empty one.
// Store failures in the first four tiers only skip that tier; the popularity
// fallback is the one read allowed to fail the call.
func (s *RecommendService) Recommend(ctx context.Context, q domain.RecommendationQuery) ([]domain.ScoredProduct, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	q.ProductID = strings.TrimSpace(q.ProductID)
	if q.ProductID == "" {
		return nil, domain.NewValidationError("product_id", "is required")
	}
	if q.ShopDomain == "" {
		return nil, domain.NewValidationError("shop_domain", "is required")
	}
	q.Limit = s.normalizeLimit(q.Limit)

	start := s.now()
	defer func() {
		metrics.RecommendLatency.Observe(time.Since(start).Seconds())
	}()

	tiers := []tier{
		{domain.StrategyPrecomputed, s.precomputed},
		{domain.StrategyPersonalized, s.personalized},
		{domain.StrategySession, s.session},
		{domain.StrategyLiveSimilarity, s.liveSimilarity},
	}

	for _, t := range tiers {
		results, err := t.resolve(ctx, q)
		if err != nil {
			metrics.TierErrors.WithLabelValues(string(t.strategy)).Inc()
			logger.Warn("recommendation tier failed, falling through",
				"strategy", t.strategy,
				"shop", q.ShopDomain,
				"product_id", q.ProductID,
				"error", err,
			)
			continue
		}
		if len(results) > 0 {
			return s.finish(ctx, q, t.strategy, results), nil
		}
	}

	results, err := s.popular(ctx, q)
	if err != nil {
		metrics.TierErrors.WithLabelValues(string(domain.StrategyPopular)).Inc()
		logger.Error("popularity fallback failed", "shop", q.ShopDomain, "product_id", q.ProductID, "error", err)
		return nil, err
	}
	if len(results) == 0 {
		return s.finish(ctx, q, domain.StrategyNone, []domain.ScoredProduct{}), nil
	}

	return s.finish(ctx, q, domain.StrategyPopular, results), nil
}

// Wait blocks until every pending analytics write has returned.
func (s *RecommendService) Wait() {
	s.wg.Wait()
}

func (s *RecommendService) normalizeLimit(limit int) int {
	switch {
	case limit <= 0:
		return s.cfg.DefaultLimit
	case limit > MaxLimit:
		return MaxLimit
	default:
		return limit
	}
}

func (s *RecommendService) finish(ctx context.Context, q domain.RecommendationQuery, strategy domain.Strategy, results []domain.ScoredProduct) []domain.ScoredProduct {
	metrics.RecommendRequests.WithLabelValues(string(strategy)).Inc()
	logger.Debug("recommendations resolved",
		"strategy", strategy,
		"shop", q.ShopDomain,
		"product_id", q.ProductID,
		"count", len(results),
	)
	s.emit(ctx, q, strategy, len(results))
	return results
}

// emit hands the request log to the sink on its own goroutine; it never
// blocks or fails the caller.
func (s *RecommendService) emit(ctx context.Context, q domain.RecommendationQuery, strategy domain.Strategy, count int) {
	if s.sink == nil {
		return
	}

	entry := domain.RecommendationRequestLog{
		ID:          uuid.NewString(),
		ShopDomain:  q.ShopDomain,
		ProductID:   q.ProductID,
		UserID:      q.UserID,
		SessionID:   q.SessionID,
		Strategy:    strategy,
		ResultCount: count,
		Context:     datatypes.JSONMap{"limit": q.Limit},
		RequestedAt: s.now().UTC(),
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				metrics.AnalyticsDropped.Inc()
				logger.Error("analytics sink panicked", "panic", r)
			}
		}()

		actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.AnalyticsTimeout)
		defer cancel()

		if err := s.sink.Record(actx, entry); err != nil {
			metrics.AnalyticsDropped.Inc()
			logger.Warn("failed to record recommendation request", "shop", entry.ShopDomain, "error", err)
		}
	}()
}

func (s *RecommendService) precomputed(ctx context.Context, q domain.RecommendationQuery) ([]domain.ScoredProduct, error) {
	edges, err := s.edges.EdgesFor(ctx, q.ShopDomain, q.ProductID)
	if err != nil {
		return nil, err
	}
	if len(edges) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(edges))
	for _, e := range edges {
		ids = append(ids, e.RecommendedProductID)
	}
	byID, err := s.productsByID(ctx, q.ShopDomain, ids)
	if err != nil {
		return nil, err
	}

	// edges arrive score desc, so the first edge per product is its best
	results := make([]domain.ScoredProduct, 0, min(q.Limit, len(edges)))
	seen := make(map[string]struct{}, len(edges))
	for _, e := range edges {
		if _, dup := seen[e.RecommendedProductID]; dup {
			continue
		}
		p, ok := byID[e.RecommendedProductID]
		if !ok {
			continue
		}
		seen[e.RecommendedProductID] = struct{}{}
		results = append(results, domain.NewScoredProduct(p, e.RecommendationType.Label(), e.Score, domain.StrategyPrecomputed))
		if len(results) == q.Limit {
			break
		}
	}

	return results, nil
}

func (s *RecommendService) personalized(ctx context.Context, q domain.RecommendationQuery) ([]domain.ScoredProduct, error) {
	if q.UserID == "" {
		return nil, nil
	}

	profile, err := s.profiles.FindProfile(ctx, q.ShopDomain, q.UserID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !profile.HasSignals() {
		return nil, nil
	}

	set := similarity.NewAttributeSet()
	set.AddTypes(profile.PreferredCategories...)
	set.AddVendors(profile.PreferredBrands...)
	if len(profile.ViewedProducts) > 0 {
		viewed, err := s.products.FindByProductIDs(ctx, q.ShopDomain, profile.ViewedProducts)
		if err != nil {
			return nil, err
		}
		for _, p := range viewed {
			set.AddTags(p.Tags...)
		}
	}

	return s.matching(ctx, q, set, map[string]struct{}{q.ProductID: {}}, PersonalizedReason, PersonalizedScore, domain.StrategyPersonalized)
}

func (s *RecommendService) session(ctx context.Context, q domain.RecommendationQuery) ([]domain.ScoredProduct, error) {
	if q.SessionID == "" {
		return nil, nil
	}

	recent, err := s.sessions.RecentSessionViews(ctx, q.ShopDomain, q.SessionID, SessionWindow+1)
	if err != nil {
		return nil, err
	}

	exclude := map[string]struct{}{q.ProductID: {}}
	viewedIDs := make([]string, 0, SessionWindow)
	for _, id := range recent {
		if id == q.ProductID {
			continue
		}
		viewedIDs = append(viewedIDs, id)
		exclude[id] = struct{}{}
		if len(viewedIDs) == SessionWindow {
			break
		}
	}
	if len(viewedIDs) == 0 {
		return nil, nil
	}

	viewed, err := s.products.FindByProductIDs(ctx, q.ShopDomain, viewedIDs)
	if err != nil {
		return nil, err
	}

	set := similarity.NewAttributeSet()
	for _, p := range viewed {
		set.AddProduct(p)
	}

	return s.matching(ctx, q, set, exclude, SessionReason, SessionScore, domain.StrategySession)
}

// matching returns the shop's products that match set, by popularity.
func (s *RecommendService) matching(ctx context.Context, q domain.RecommendationQuery, set *similarity.AttributeSet, exclude map[string]struct{}, reason string, score float64, strategy domain.Strategy) ([]domain.ScoredProduct, error) {
	if set.Empty() {
		return nil, nil
	}

	candidates, err := s.products.ListPopular(ctx, q.ShopDomain, 0)
	if err != nil {
		return nil, err
	}

	var results []domain.ScoredProduct
	for _, p := range candidates {
		if _, skip := exclude[p.ProductID]; skip {
			continue
		}
		if !set.Matches(p) {
			continue
		}
		results = append(results, domain.NewScoredProduct(p, reason, score, strategy))
		if len(results) == q.Limit {
			break
		}
	}

	return results, nil
}

func (s *RecommendService) liveSimilarity(ctx context.Context, q domain.RecommendationQuery) ([]domain.ScoredProduct, error) {
	source, err := s.products.FindByProductID(ctx, q.ShopDomain, q.ProductID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	catalog, err := s.products.ListProducts(ctx, q.ShopDomain)
	if err != nil {
		return nil, err
	}

	matches := similarity.Rank(source, catalog, q.Limit)
	results := make([]domain.ScoredProduct, 0, len(matches))
	for _, m := range matches {
		results = append(results, domain.NewScoredProduct(m.Product, m.Reason(), m.Score, domain.StrategyLiveSimilarity))
	}

	return results, nil
}

func (s *RecommendService) popular(ctx context.Context, q domain.RecommendationQuery) ([]domain.ScoredProduct, error) {
	products, err := s.products.ListPopular(ctx, q.ShopDomain, q.Limit+1)
	if err != nil {
		return nil, err
	}

	results := make([]domain.ScoredProduct, 0, q.Limit)
	for _, p := range products {
		if p.ProductID == q.ProductID {
			continue
		}
		results = append(results, domain.NewScoredProduct(p, PopularReason, PopularScore, domain.StrategyPopular))
		if len(results) == q.Limit {
			break
		}
	}

	return results, nil
}

func (s *RecommendService) productsByID(ctx context.Context, shopDomain string, ids []string) (map[string]domain.Product, error) {
	products, err := s.products.FindByProductIDs(ctx, shopDomain, ids)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]domain.Product, len(products))
	for _, p := range products {
		byID[p.ProductID] = p
	}
	return byID, nil
}
