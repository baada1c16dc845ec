package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"novaReco/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

const shop = "acme.myshopify.com"

func TestStore_CreateAndDuplicate(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	p := &domain.Product{ProductID: "A", ShopDomain: shop, Title: "Hat", Tags: []string{"wool"}}
	require.NoError(t, s.Create(ctx, p))
	assert.NotZero(t, p.ID)

	err := s.Create(ctx, &domain.Product{ProductID: "A", ShopDomain: shop})
	assert.ErrorIs(t, err, domain.ErrDuplicate)

	// same id in another shop is a different product
	require.NoError(t, s.Create(ctx, &domain.Product{ProductID: "A", ShopDomain: "other.myshopify.com"}))

	// stored copies do not alias the caller's slices
	p.Tags[0] = "mutated"
	got, err := s.FindByProductID(ctx, shop, "A")
	require.NoError(t, err)
	assert.Equal(t, []string{"wool"}, []string(got.Tags))

	shops, err := s.ListShops(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{shop, "other.myshopify.com"}, shops)
}

func TestStore_UpdateAttributesTouchesGivenColumnsOnly(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	require.NoError(t, s.Create(ctx, &domain.Product{ProductID: "p1", ShopDomain: shop, Title: "Hat", Vendor: "Acme", Price: 10}))

	require.NoError(t, s.UpdateAttributes(ctx, shop, "p1", map[string]interface{}{
		"title": "Cap",
		"tags":  datatypes.JSONSlice[string]{"summer"},
	}))

	p, err := s.FindByProductID(ctx, shop, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Cap", p.Title)
	assert.Equal(t, "Acme", p.Vendor)
	assert.Equal(t, 10.0, p.Price)
	assert.Equal(t, []string{"summer"}, []string(p.Tags))

	err = s.UpdateAttributes(ctx, shop, "p1", map[string]interface{}{"popularity": 1.0})
	assert.ErrorIs(t, err, domain.ErrValidation)

	err = s.UpdateAttributes(ctx, shop, "missing", map[string]interface{}{"title": "x"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStore_ListPopularAndUpdatePopularity(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	for _, id := range []string{"A", "B", "C"} {
		require.NoError(t, s.Create(ctx, &domain.Product{ProductID: id, ShopDomain: shop}))
	}

	n, err := s.UpdatePopularity(ctx, shop, map[string]float64{"C": 0.9, "B": 0.2, "ghost": 1})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	popular, err := s.ListPopular(ctx, shop, 0)
	require.NoError(t, err)
	require.Len(t, popular, 3)
	assert.Equal(t, "C", popular[0].ProductID)
	assert.Equal(t, "B", popular[1].ProductID)
	assert.Equal(t, "A", popular[2].ProductID)

	top, err := s.ListPopular(ctx, shop, 1)
	require.NoError(t, err)
	assert.Len(t, top, 1)
}

func TestStore_SaveOrderIsIdempotent(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	order := &domain.Order{
		OrderID: "1", ShopDomain: shop, CompletedAt: time.Now(),
		Items: []domain.OrderItem{{ProductID: "A", Quantity: 2}, {ProductID: "B", Quantity: 1}},
	}

	created, err := s.SaveOrder(ctx, order)
	require.NoError(t, err)
	assert.True(t, created)

	created, err = s.SaveOrder(ctx, order)
	require.NoError(t, err)
	assert.False(t, created)

	sums, err := s.SumPurchasedQuantitySince(ctx, shop, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"A": 2, "B": 1}, sums)
}

func TestStore_RecentSessionViews(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"A", "B", "A", "C"} {
		require.NoError(t, s.SaveView(ctx, &domain.ProductView{
			ProductID: id, ShopDomain: shop, SessionID: "s1", ViewedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	ids, err := s.RecentSessionViews(ctx, shop, "s1", 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "A", "B"}, ids)

	ids, err = s.RecentSessionViews(ctx, shop, "s1", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"C", "A"}, ids)
}

func TestStore_ReplaceEdges(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	require.NoError(t, s.ReplaceEdges(ctx, shop, "A", []domain.RecommendationEdge{
		{RecommendedProductID: "B", RecommendationType: domain.SimilarProducts, Score: 0.2},
		{RecommendedProductID: "C", RecommendationType: domain.AlsoViewed, Score: 0.7},
	}))

	edges, err := s.EdgesFor(ctx, shop, "A")
	require.NoError(t, err)
	require.Len(t, edges, 2)
	assert.Equal(t, "C", edges[0].RecommendedProductID)
	assert.Equal(t, shop, edges[0].ShopDomain)

	require.NoError(t, s.ReplaceEdges(ctx, shop, "A", nil))
	edges, err = s.EdgesFor(ctx, shop, "A")
	require.NoError(t, err)
	assert.Empty(t, edges)
}

func TestStore_FaultInjection(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	s.Fail("EdgesFor", errors.New("connection reset"))
	_, err := s.EdgesFor(ctx, shop, "A")
	require.Error(t, err)
	assert.True(t, domain.IsStoreError(err))

	s.Fail("EdgesFor", nil)
	_, err = s.EdgesFor(ctx, shop, "A")
	assert.NoError(t, err)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = s.ListProducts(cancelled, shop)
	assert.ErrorIs(t, err, context.Canceled)
}
