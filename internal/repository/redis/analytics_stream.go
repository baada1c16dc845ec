package redis

import (
	"context"
	"errors"
	"fmt"
	"novaReco/domain"
	"novaReco/pkg/logger"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	gobreaker "github.com/sony/gobreaker/v2"
)

// streamAdder is the slice of the redis client the sink uses.
type streamAdder interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

type StreamConfig struct {
	StreamKey string
	// MaxLen caps the stream approximately; 0 leaves it unbounded.
	MaxLen int64
	// BreakerFailures consecutive failures open the breaker for BreakerTimeout.
	BreakerFailures uint32
	BreakerTimeout  time.Duration
}

// AnalyticsStream appends recommendation request logs to a Redis stream.
type AnalyticsStream struct {
	client  streamAdder
	cfg     StreamConfig
	breaker *gobreaker.CircuitBreaker[any]
}

func NewAnalyticsStream(client *redis.Client, cfg StreamConfig) *AnalyticsStream {
	return newAnalyticsStream(client, cfg)
}

func newAnalyticsStream(client streamAdder, cfg StreamConfig) *AnalyticsStream {
	if cfg.StreamKey == "" {
		cfg.StreamKey = "reco:requests"
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = 5
	}
	if cfg.BreakerTimeout <= 0 {
		cfg.BreakerTimeout = 30 * time.Second
	}

	settings := gobreaker.Settings{
		Name:        "analytics-stream",
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.BreakerFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("analytics circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	}

	return &AnalyticsStream{
		client:  client,
		cfg:     cfg,
		breaker: gobreaker.NewCircuitBreaker[any](settings),
	}
}

// ErrSinkUnavailable is returned while the breaker is open.
var ErrSinkUnavailable = errors.New("analytics sink unavailable")

func (s *AnalyticsStream) Record(ctx context.Context, entry domain.RecommendationRequestLog) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	values := map[string]interface{}{
		"id":           entry.ID,
		"shop_domain":  entry.ShopDomain,
		"product_id":   entry.ProductID,
		"user_id":      entry.UserID,
		"session_id":   entry.SessionID,
		"strategy":     string(entry.Strategy),
		"result_count": strconv.Itoa(entry.ResultCount),
		"requested_at": entry.RequestedAt.UTC().Format(time.RFC3339Nano),
	}

	args := &redis.XAddArgs{
		Stream: s.cfg.StreamKey,
		Values: values,
	}
	if s.cfg.MaxLen > 0 {
		args.MaxLen = s.cfg.MaxLen
		args.Approx = true
	}

	_, err := s.breaker.Execute(func() (any, error) {
		return nil, s.client.XAdd(ctx, args).Err()
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ErrSinkUnavailable
	}
	if err != nil {
		return fmt.Errorf("failed to append analytics entry: %w", err)
	}

	return nil
}

// State reports the breaker state for health checks.
func (s *AnalyticsStream) State() string {
	return s.breaker.State().String()
}
