// Package services wraps the engine's batch jobs and the HTTP server as
// supervised services.
package services

import (
	"context"
	"errors"
	"fmt"
	"novaReco/pkg/logger"
	"time"
)

// ShopLister yields every shop the store knows about.
type ShopLister interface {
	ListShops(ctx context.Context) ([]string, error)
}

// ShopJob runs one pass for one shop.
type ShopJob func(ctx context.Context, shopDomain string) error

type PeriodicConfig struct {
	Interval     time.Duration
	RunOnStartup bool
	// Shops pins the shops to process; empty asks the ShopLister every tick.
	Shops []string
	// RunTimeout bounds one full tick over all shops.
	RunTimeout time.Duration
}

// PeriodicService runs a ShopJob for every shop on a fixed interval.
type PeriodicService struct {
	name   string
	job    ShopJob
	lister ShopLister
	config PeriodicConfig
}

func NewPeriodicService(name string, job ShopJob, lister ShopLister, cfg PeriodicConfig) *PeriodicService {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = 30 * time.Minute
	}
	return &PeriodicService{
		name:   name,
		job:    job,
		lister: lister,
		config: cfg,
	}
}

// Serve implements suture.Service.
func (s *PeriodicService) Serve(ctx context.Context) error {
	logger.Info("periodic service starting",
		"service", s.name,
		"interval", s.config.Interval.String(),
		"run_on_startup", s.config.RunOnStartup,
	)

	if s.config.RunOnStartup {
		s.tick(ctx)
	}

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("periodic service stopping", "service", s.name)
			return ctx.Err()
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

// tick processes every shop once; a failing shop never stops the others.
func (s *PeriodicService) tick(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, s.config.RunTimeout)
	defer cancel()

	shops, err := s.shops(runCtx)
	if err != nil {
		logger.Error("failed to list shops", "service", s.name, "error", err)
		return
	}

	start := time.Now()
	failed := 0
	for _, shop := range shops {
		if runCtx.Err() != nil {
			break
		}
		if err := s.job(runCtx, shop); err != nil {
			failed++
			if errors.Is(err, context.Canceled) {
				break
			}
			logger.Error("shop job failed", "service", s.name, "shop", shop, "error", err)
		}
	}

	logger.Info("periodic run finished",
		"service", s.name,
		"shops", len(shops),
		"failed", failed,
		"duration", time.Since(start).String(),
	)
}

func (s *PeriodicService) shops(ctx context.Context) ([]string, error) {
	if len(s.config.Shops) > 0 {
		return s.config.Shops, nil
	}
	if s.lister == nil {
		return nil, fmt.Errorf("no shops configured for %s", s.name)
	}
	return s.lister.ListShops(ctx)
}

// String returns the service name for supervisor logs.
func (s *PeriodicService) String() string {
	return s.name
}
