package popularity

import (
	"context"
	"fmt"
	"novaReco/domain"
	"novaReco/pkg/logger"
	"novaReco/pkg/metrics"
	"time"
)

const (
	ViewWeight        = 0.3
	PurchaseWeight    = 0.7
	DefaultWindowDays = 30
)

// EventCounter aggregates the interaction log per product.
type EventCounter interface {
	CountViewsSince(ctx context.Context, shopDomain string, since time.Time) (map[string]int64, error)
	SumPurchasedQuantitySince(ctx context.Context, shopDomain string, since time.Time) (map[string]int64, error)
}

type ScoreWriter interface {
	UpdatePopularity(ctx context.Context, shopDomain string, scores map[string]float64) (int, error)
}

type Calculator struct {
	events   EventCounter
	products ScoreWriter
	now      func() time.Time
}

// NewCalculator builds a calculator reading interactions from events and
// writing scores through products. Both may be the same store.
func NewCalculator(events EventCounter, products ScoreWriter) *Calculator {
	return &Calculator{
		events:   events,
		products: products,
		now:      time.Now,
	}
}

// Recompute rescores every product of the shop that had interactions in the
// trailing window and returns how many products were updated.
func (c *Calculator) Recompute(ctx context.Context, shopDomain string, windowDays int) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("context error: %w", err)
	}
	if shopDomain == "" {
		return 0, domain.NewValidationError("shop_domain", "is required")
	}
	if windowDays <= 0 {
		windowDays = DefaultWindowDays
	}

	start := c.now()
	since := start.AddDate(0, 0, -windowDays)

	views, err := c.events.CountViewsSince(ctx, shopDomain, since)
	if err != nil {
		metrics.PopularityRuns.WithLabelValues("error").Inc()
		return 0, fmt.Errorf("failed to count views: %w", err)
	}
	purchases, err := c.events.SumPurchasedQuantitySince(ctx, shopDomain, since)
	if err != nil {
		metrics.PopularityRuns.WithLabelValues("error").Inc()
		return 0, fmt.Errorf("failed to sum purchases: %w", err)
	}

	scores := Scores(views, purchases)
	if len(scores) == 0 {
		metrics.PopularityRuns.WithLabelValues("empty").Inc()
		logger.Debug("no interactions in popularity window", "shop", shopDomain, "window_days", windowDays)
		return 0, nil
	}

	updated, err := c.products.UpdatePopularity(ctx, shopDomain, scores)
	if err != nil {
		metrics.PopularityRuns.WithLabelValues("error").Inc()
		return 0, fmt.Errorf("failed to update popularity: %w", err)
	}

	metrics.PopularityRuns.WithLabelValues("ok").Inc()
	logger.Info("popularity recomputed",
		"shop", shopDomain,
		"window_days", windowDays,
		"products", updated,
		"duration", time.Since(start).String(),
	)

	return updated, nil
}

// Scores combines view counts and purchased quantities, each normalized by its
// own maximum, into 0.3*views + 0.7*purchases. Products without interactions
// are absent from the result.
func Scores(views, purchases map[string]int64) map[string]float64 {
	maxViews := maxValue(views)
	maxPurchases := maxValue(purchases)

	scores := make(map[string]float64, len(views)+len(purchases))
	for id := range views {
		scores[id] = 0
	}
	for id := range purchases {
		scores[id] = 0
	}

	for id := range scores {
		var viewNorm, purchaseNorm float64
		if maxViews > 0 {
			viewNorm = float64(views[id]) / float64(maxViews)
		}
		if maxPurchases > 0 {
			purchaseNorm = float64(purchases[id]) / float64(maxPurchases)
		}
		scores[id] = min(1, ViewWeight*viewNorm+PurchaseWeight*purchaseNorm)
	}

	return scores
}

func maxValue(m map[string]int64) int64 {
	var out int64
	for _, v := range m {
		if v > out {
			out = v
		}
	}
	return out
}
