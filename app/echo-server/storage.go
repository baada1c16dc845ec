package main

import (
	"context"
	"novaReco/business/interaction"
	"novaReco/business/popularity"
	"novaReco/business/precompute"
	"novaReco/business/product"
	"novaReco/business/recommend"
	"novaReco/internal/repository/memory"
	psqlRepo "novaReco/internal/repository/postgres"
	"novaReco/internal/rest"
	"novaReco/internal/supervisor/services"
	"novaReco/pkg/config"
	"novaReco/pkg/database"
	"novaReco/pkg/logger"
)

type (
	productStore interface {
		product.ProductRepository
		recommend.ProductReader
		precompute.ProductReader
		popularity.ScoreWriter
		services.ShopLister
	}

	eventStore interface {
		interaction.EventRepository
		popularity.EventCounter
		precompute.InteractionReader
		recommend.SessionReader
	}

	profileStore interface {
		interaction.ProfileRepository
		recommend.ProfileReader
	}

	edgeStore interface {
		recommend.EdgeReader
		precompute.EdgeWriter
	}

	// storage bundles the repositories of the configured driver.
	storage struct {
		products  productStore
		events    eventStore
		profiles  profileStore
		edges     edgeStore
		analytics recommend.AnalyticsSink
		checks    map[string]rest.Pinger
		closers   []func()
	}
)

func openStorage(cfg *config.Config) (*storage, error) {
	if cfg.Store.Driver == "memory" {
		logger.Warn("Using in-memory store, data is lost on restart")
		store := memory.NewStore()
		return &storage{
			products:  store,
			events:    store,
			profiles:  store,
			edges:     store,
			analytics: store,
			checks:    map[string]rest.Pinger{},
		}, nil
	}

	db, err := database.InitPostgres(cfg)
	if err != nil {
		return nil, err
	}
	logger.Info("Database connected successfully")

	s := &storage{
		products: psqlRepo.NewProductRepository(db),
		events:   psqlRepo.NewInteractionRepository(db),
		profiles: psqlRepo.NewUserProfileRepository(db),
		edges:    psqlRepo.NewRecommendationRepository(db),
		checks: map[string]rest.Pinger{
			"postgres": func(ctx context.Context) error {
				sqlDB, err := db.DB()
				if err != nil {
					return err
				}
				return sqlDB.PingContext(ctx)
			},
		},
		closers: []func(){
			func() {
				if err := database.ClosePostgres(db); err != nil {
					logger.Error("Failed to close database", "error", err)
				}
			},
		},
	}

	if cfg.Analytics.Sink == "postgres" {
		s.analytics = psqlRepo.NewAnalyticsRepository(db)
	}

	return s, nil
}

func (s *storage) close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}
