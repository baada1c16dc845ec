package precompute

import (
	"context"
	"errors"
	"fmt"
	"novaReco/business/similarity"
	"novaReco/domain"
	"novaReco/pkg/keylock"
	"novaReco/pkg/logger"
	"novaReco/pkg/metrics"
	"sort"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

const (
	MaxFrequentlyBoughtTogether = 10
	MaxSimilar                  = 20
	MaxAlsoViewed               = 15

	FrequentlyBoughtTogetherBoost = 0.3
	AlsoViewedBoost               = 0.1
	AlsoViewedCeiling             = 0.8
)

// ProductReader contract interface
type ProductReader interface {
	ListProducts(ctx context.Context, shopDomain string) ([]domain.Product, error)
}

type InteractionReader interface {
	OrdersContaining(ctx context.Context, shopDomain, productID string) ([]string, error)
	ItemsInOrders(ctx context.Context, shopDomain string, orderIDs []string) ([]domain.OrderItem, error)
	ViewersOf(ctx context.Context, shopDomain, productID string) ([]domain.Viewer, error)
	ViewsBy(ctx context.Context, shopDomain string, sessionIDs, userIDs []string) ([]domain.ProductView, error)
}

type EdgeWriter interface {
	ReplaceEdges(ctx context.Context, shopDomain, sourceProductID string, edges []domain.RecommendationEdge) error
}

// Summary reports one shop pass.
type Summary struct {
	ShopDomain string        `json:"shop_domain"`
	Products   int           `json:"products"`
	Succeeded  int           `json:"succeeded"`
	Failed     int           `json:"failed"`
	Edges      int           `json:"edges"`
	Duration   time.Duration `json:"duration"`
}

type Engine struct {
	products     ProductReader
	interactions InteractionReader
	edges        EdgeWriter
	workers      int
	locks        *keylock.Locker
	now          func() time.Time
}

func NewEngine(products ProductReader, interactions InteractionReader, edges EdgeWriter, workers int) *Engine {
	if workers <= 0 {
		workers = 1
	}
	return &Engine{
		products:     products,
		interactions: interactions,
		edges:        edges,
		workers:      workers,
		locks:        keylock.New(),
		now:          time.Now,
	}
}

// RecomputeShop recomputes every product of the shop. A failing product is
// logged and counted; only listing the catalog or cancellation fails the pass.
func (e *Engine) RecomputeShop(ctx context.Context, shopDomain string) (Summary, error) {
	summary := Summary{ShopDomain: shopDomain}
	if err := ctx.Err(); err != nil {
		return summary, fmt.Errorf("context error: %w", err)
	}
	if shopDomain == "" {
		return summary, domain.NewValidationError("shop_domain", "is required")
	}

	start := e.now()
	catalog, err := e.products.ListProducts(ctx, shopDomain)
	if err != nil {
		return summary, fmt.Errorf("failed to list products: %w", err)
	}
	summary.Products = len(catalog)

	var succeeded, failed, edges atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)

	for _, source := range catalog {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			n, err := e.recompute(gctx, source, catalog)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				failed.Add(1)
				metrics.PrecomputeProducts.WithLabelValues("failed").Inc()
				logger.Error("failed to recompute product",
					"shop", shopDomain,
					"product_id", source.ProductID,
					"error", err,
				)
				return nil
			}

			succeeded.Add(1)
			edges.Add(int64(n))
			metrics.PrecomputeProducts.WithLabelValues("ok").Inc()
			return nil
		})
	}

	err = g.Wait()

	summary.Succeeded = int(succeeded.Load())
	summary.Failed = int(failed.Load())
	summary.Edges = int(edges.Load())
	summary.Duration = e.now().Sub(start)
	metrics.PrecomputeDuration.Observe(summary.Duration.Seconds())

	if err != nil {
		logger.Warn("shop recompute interrupted", "shop", shopDomain, "succeeded", summary.Succeeded, "error", err)
		return summary, fmt.Errorf("context error: %w", err)
	}

	logger.Info("shop recompute finished",
		"shop", shopDomain,
		"products", summary.Products,
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
		"edges", summary.Edges,
		"duration", summary.Duration.String(),
	)

	return summary, nil
}

// RecomputeProduct rebuilds and atomically replaces the edge set of one
// product and returns the number of edges written.
func (e *Engine) RecomputeProduct(ctx context.Context, productID, shopDomain string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("context error: %w", err)
	}
	if productID == "" || shopDomain == "" {
		return 0, domain.NewValidationError("product_id", "product id and shop are required")
	}

	catalog, err := e.products.ListProducts(ctx, shopDomain)
	if err != nil {
		return 0, fmt.Errorf("failed to list products: %w", err)
	}

	for _, p := range catalog {
		if p.ProductID == productID {
			return e.recompute(ctx, p, catalog)
		}
	}

	return 0, fmt.Errorf("product %s: %w", productID, domain.ErrNotFound)
}

func (e *Engine) recompute(ctx context.Context, source domain.Product, catalog []domain.Product) (int, error) {
	unlock := e.locks.Lock(source.ShopDomain + "\x00" + source.ProductID)
	defer unlock()

	fbt, err := e.frequentlyBoughtTogether(ctx, source)
	if err != nil {
		return 0, err
	}

	viewed, err := e.alsoViewed(ctx, source)
	if err != nil {
		return 0, err
	}

	similar := similarity.Rank(source, catalog, MaxSimilar)

	now := e.now()
	edges := make([]domain.RecommendationEdge, 0, len(fbt)+len(similar)+len(viewed))
	for _, c := range fbt {
		edges = append(edges, newEdge(source, c.productID, domain.FrequentlyBoughtTogether, min(1, c.score+FrequentlyBoughtTogetherBoost), now))
	}
	for _, m := range similar {
		edges = append(edges, newEdge(source, m.Product.ProductID, domain.SimilarProducts, m.Score, now))
	}
	for _, c := range viewed {
		edges = append(edges, newEdge(source, c.productID, domain.AlsoViewed, min(1, c.score+AlsoViewedBoost), now))
	}

	if err := e.edges.ReplaceEdges(ctx, source.ShopDomain, source.ProductID, edges); err != nil {
		return 0, fmt.Errorf("failed to replace edges: %w", err)
	}

	metrics.EdgesWritten.WithLabelValues(string(domain.FrequentlyBoughtTogether)).Add(float64(len(fbt)))
	metrics.EdgesWritten.WithLabelValues(string(domain.SimilarProducts)).Add(float64(len(similar)))
	metrics.EdgesWritten.WithLabelValues(string(domain.AlsoViewed)).Add(float64(len(viewed)))

	logger.Debug("product recomputed",
		"shop", source.ShopDomain,
		"product_id", source.ProductID,
		"bought_together", len(fbt),
		"similar", len(similar),
		"also_viewed", len(viewed),
	)

	return len(edges), nil
}

func newEdge(source domain.Product, target string, kind domain.RecommendationType, score float64, at time.Time) domain.RecommendationEdge {
	return domain.RecommendationEdge{
		ShopDomain:           source.ShopDomain,
		SourceProductID:      source.ProductID,
		RecommendedProductID: target,
		RecommendationType:   kind,
		Score:                score,
		LastCalculated:       at,
	}
}

type candidate struct {
	productID string
	score     float64
}

// topK orders by score desc then product id asc and keeps k.
func topK(counts map[string]int, denominator int, ceiling float64, k int) []candidate {
	if denominator == 0 {
		return nil
	}

	out := make([]candidate, 0, len(counts))
	for id, n := range counts {
		out = append(out, candidate{productID: id, score: min(ceiling, float64(n)/float64(denominator))})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].score != out[j].score {
			return out[i].score > out[j].score
		}
		return out[i].productID < out[j].productID
	})

	if len(out) > k {
		out = out[:k]
	}
	return out
}

// frequentlyBoughtTogether scores each co-purchased product by the share of
// the source's orders that also contain it.
func (e *Engine) frequentlyBoughtTogether(ctx context.Context, source domain.Product) ([]candidate, error) {
	orderIDs, err := e.interactions.OrdersContaining(ctx, source.ShopDomain, source.ProductID)
	if err != nil {
		return nil, fmt.Errorf("failed to find orders: %w", err)
	}
	if len(orderIDs) == 0 {
		return nil, nil
	}

	items, err := e.interactions.ItemsInOrders(ctx, source.ShopDomain, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load order items: %w", err)
	}

	orders := make(map[string]map[string]struct{})
	for _, item := range items {
		if item.ProductID == source.ProductID {
			continue
		}
		if orders[item.ProductID] == nil {
			orders[item.ProductID] = make(map[string]struct{})
		}
		orders[item.ProductID][item.OrderID] = struct{}{}
	}

	counts := make(map[string]int, len(orders))
	for id, set := range orders {
		counts[id] = len(set)
	}

	return topK(counts, len(orderIDs), 1, MaxFrequentlyBoughtTogether), nil
}

// alsoViewed scores each product seen by the source's viewers by the share of
// those viewers who saw it. A user's views count for every session of theirs.
func (e *Engine) alsoViewed(ctx context.Context, source domain.Product) ([]candidate, error) {
	viewers, err := e.interactions.ViewersOf(ctx, source.ShopDomain, source.ProductID)
	if err != nil {
		return nil, fmt.Errorf("failed to find viewers: %w", err)
	}
	if len(viewers) == 0 {
		return nil, nil
	}

	byUser := make(map[string]string)
	bySession := make(map[string]string)
	distinct := make(map[string]struct{})
	for _, v := range viewers {
		if v.UserID == "" {
			continue
		}
		key := "u:" + v.UserID
		byUser[v.UserID] = key
		if v.SessionID != "" {
			bySession[v.SessionID] = key
		}
		distinct[key] = struct{}{}
	}
	for _, v := range viewers {
		if v.UserID != "" || v.SessionID == "" {
			continue
		}
		if _, ok := bySession[v.SessionID]; ok {
			continue
		}
		key := "s:" + v.SessionID
		bySession[v.SessionID] = key
		distinct[key] = struct{}{}
	}

	sessionIDs := make([]string, 0, len(bySession))
	for id := range bySession {
		sessionIDs = append(sessionIDs, id)
	}
	userIDs := make([]string, 0, len(byUser))
	for id := range byUser {
		userIDs = append(userIDs, id)
	}
	sort.Strings(sessionIDs)
	sort.Strings(userIDs)

	views, err := e.interactions.ViewsBy(ctx, source.ShopDomain, sessionIDs, userIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load co-views: %w", err)
	}

	seenBy := make(map[string]map[string]struct{})
	for _, v := range views {
		if v.ProductID == source.ProductID {
			continue
		}
		key, ok := byUser[v.UserID]
		if !ok {
			key, ok = bySession[v.SessionID]
		}
		if !ok {
			continue
		}
		if seenBy[v.ProductID] == nil {
			seenBy[v.ProductID] = make(map[string]struct{})
		}
		seenBy[v.ProductID][key] = struct{}{}
	}

	counts := make(map[string]int, len(seenBy))
	for id, set := range seenBy {
		counts[id] = len(set)
	}

	return topK(counts, len(distinct), AlsoViewedCeiling, MaxAlsoViewed), nil
}
