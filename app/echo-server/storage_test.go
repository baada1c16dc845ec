package main

import (
	"context"
	"testing"

	"novaReco/domain"
	"novaReco/internal/repository/memory"
	"novaReco/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenStorage_MemoryDriverRecordsAnalytics(t *testing.T) {
	cfg := &config.Config{Store: config.StoreConfig{Driver: "memory"}}

	store, err := openStorage(cfg)
	require.NoError(t, err)
	require.NotNil(t, store.analytics)

	require.NoError(t, store.analytics.Record(context.Background(), domain.RecommendationRequestLog{
		ID:         "r1",
		ShopDomain: "acme.myshopify.com",
		ProductID:  "p1",
		Strategy:   domain.StrategyPopular,
	}))

	mem, ok := store.products.(*memory.Store)
	require.True(t, ok)
	requests := mem.Requests()
	require.Len(t, requests, 1)
	assert.Equal(t, "p1", requests[0].ProductID)
	assert.Empty(t, store.checks)
}
