package precompute

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"novaReco/domain"
	"novaReco/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const shop = "acme.myshopify.com"

var fixedNow = time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)

func newEngine(store *memory.Store, workers int) *Engine {
	e := NewEngine(store, store, store, workers)
	e.now = func() time.Time { return fixedNow }
	return e
}

func addProduct(t *testing.T, store *memory.Store, p domain.Product) {
	t.Helper()
	p.ShopDomain = shop
	if p.Title == "" {
		p.Title = p.ProductID
	}
	require.NoError(t, store.Create(context.Background(), &p))
}

func addOrder(t *testing.T, store *memory.Store, id string, productIDs ...string) {
	t.Helper()
	items := make([]domain.OrderItem, len(productIDs))
	for i, pid := range productIDs {
		items[i] = domain.OrderItem{ProductID: pid, Quantity: 1}
	}
	_, err := store.SaveOrder(context.Background(), &domain.Order{
		OrderID: id, ShopDomain: shop, CompletedAt: fixedNow, Items: items,
	})
	require.NoError(t, err)
}

func addView(t *testing.T, store *memory.Store, productID, sessionID, userID string) {
	t.Helper()
	require.NoError(t, store.SaveView(context.Background(), &domain.ProductView{
		ProductID: productID, ShopDomain: shop, SessionID: sessionID, UserID: userID, ViewedAt: fixedNow,
	}))
}

func edgesOfType(edges []domain.RecommendationEdge, kind domain.RecommendationType) []domain.RecommendationEdge {
	var out []domain.RecommendationEdge
	for _, e := range edges {
		if e.RecommendationType == kind {
			out = append(out, e)
		}
	}
	return out
}

func TestRecomputeProduct_FrequentlyBoughtTogetherExample(t *testing.T) {
	store := memory.NewStore()
	// distinct prices so similarity never ties with the bought-together scores
	addProduct(t, store, domain.Product{ProductID: "X", Price: 1})
	addProduct(t, store, domain.Product{ProductID: "Y", Price: 1000})
	addProduct(t, store, domain.Product{ProductID: "Z", Price: 5000})
	addOrder(t, store, "o1", "X", "Y")
	addOrder(t, store, "o2", "X", "Y")
	addOrder(t, store, "o3", "X", "Y")
	addOrder(t, store, "o4", "X", "Z")

	n, err := newEngine(store, 1).RecomputeProduct(context.Background(), "X", shop)
	require.NoError(t, err)

	edges, err := store.EdgesFor(context.Background(), shop, "X")
	require.NoError(t, err)
	assert.Len(t, edges, n)

	fbt := edgesOfType(edges, domain.FrequentlyBoughtTogether)
	require.Len(t, fbt, 2)
	assert.Equal(t, "Y", fbt[0].RecommendedProductID)
	assert.InDelta(t, 1.0, fbt[0].Score, 1e-9)
	assert.Equal(t, "Z", fbt[1].RecommendedProductID)
	assert.InDelta(t, 0.55, fbt[1].Score, 1e-9)
	assert.True(t, fbt[0].LastCalculated.Equal(fixedNow))
}

func TestRecomputeProduct_AlsoViewed(t *testing.T) {
	store := memory.NewStore()
	for _, id := range []string{"A", "B", "C"} {
		addProduct(t, store, domain.Product{ProductID: id})
	}
	// viewers of A: session s1, user u1 (sessions s2 and s3), anonymous s4
	addView(t, store, "A", "s1", "")
	addView(t, store, "A", "s2", "u1")
	addView(t, store, "A", "s4", "")
	addView(t, store, "B", "s1", "")
	addView(t, store, "B", "s3", "u1")
	addView(t, store, "B", "s4", "")
	addView(t, store, "C", "s1", "")
	addView(t, store, "C", "s9", "")

	_, err := newEngine(store, 1).RecomputeProduct(context.Background(), "A", shop)
	require.NoError(t, err)

	edges, err := store.EdgesFor(context.Background(), shop, "A")
	require.NoError(t, err)

	viewed := edgesOfType(edges, domain.AlsoViewed)
	require.Len(t, viewed, 2)
	// B seen by all three viewers: min(0.8, 1) + 0.1
	assert.Equal(t, "B", viewed[0].RecommendedProductID)
	assert.InDelta(t, 0.9, viewed[0].Score, 1e-9)
	// C seen by one of three
	assert.Equal(t, "C", viewed[1].RecommendedProductID)
	assert.InDelta(t, 1.0/3.0+0.1, viewed[1].Score, 1e-9)
}

func TestRecomputeProduct_SimilarAndBounds(t *testing.T) {
	store := memory.NewStore()
	addProduct(t, store, domain.Product{ProductID: "A", Price: 50, Tags: []string{"shoes", "running"}})
	addProduct(t, store, domain.Product{ProductID: "B", Price: 55, Tags: []string{"shoes", "running"}})
	addProduct(t, store, domain.Product{ProductID: "C", Price: 0})

	_, err := newEngine(store, 1).RecomputeProduct(context.Background(), "A", shop)
	require.NoError(t, err)

	edges, err := store.EdgesFor(context.Background(), shop, "A")
	require.NoError(t, err)

	similar := edgesOfType(edges, domain.SimilarProducts)
	require.Len(t, similar, 1)
	assert.Equal(t, "B", similar[0].RecommendedProductID)
	assert.InDelta(t, 0.391, similar[0].Score, 0.001)

	for _, e := range edges {
		assert.NotEqual(t, "A", e.RecommendedProductID)
		assert.GreaterOrEqual(t, e.Score, 0.0)
		assert.LessOrEqual(t, e.Score, 1.0)
	}
}

func TestRecomputeProduct_Idempotent(t *testing.T) {
	store := memory.NewStore()
	addProduct(t, store, domain.Product{ProductID: "X", Type: "Hat", Price: 10})
	addProduct(t, store, domain.Product{ProductID: "Y", Type: "Hat", Price: 12})
	addProduct(t, store, domain.Product{ProductID: "Z", Price: 30})
	addOrder(t, store, "o1", "X", "Y")
	addView(t, store, "X", "s1", "")
	addView(t, store, "Z", "s1", "")

	engine := newEngine(store, 1)
	ctx := context.Background()

	_, err := engine.RecomputeProduct(ctx, "X", shop)
	require.NoError(t, err)
	first, err := store.EdgesFor(ctx, shop, "X")
	require.NoError(t, err)

	_, err = engine.RecomputeProduct(ctx, "X", shop)
	require.NoError(t, err)
	second, err := store.EdgesFor(ctx, shop, "X")
	require.NoError(t, err)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].RecommendedProductID, second[i].RecommendedProductID)
		assert.Equal(t, first[i].RecommendationType, second[i].RecommendationType)
		assert.Equal(t, first[i].Score, second[i].Score)
	}
}

func TestRecomputeProduct_UnknownSource(t *testing.T) {
	store := memory.NewStore()
	addProduct(t, store, domain.Product{ProductID: "A"})

	_, err := newEngine(store, 1).RecomputeProduct(context.Background(), "missing", shop)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	edges, err := store.EdgesFor(context.Background(), shop, "missing")
	require.NoError(t, err)
	assert.Empty(t, edges)
}

func TestRecomputeShop_Summary(t *testing.T) {
	store := memory.NewStore()
	for _, id := range []string{"A", "B", "C", "D"} {
		addProduct(t, store, domain.Product{ProductID: id, Price: 10})
	}

	summary, err := newEngine(store, 3).RecomputeShop(context.Background(), shop)
	require.NoError(t, err)

	assert.Equal(t, shop, summary.ShopDomain)
	assert.Equal(t, 4, summary.Products)
	assert.Equal(t, 4, summary.Succeeded)
	assert.Equal(t, 0, summary.Failed)
	// each product is price-similar to the three others
	assert.Equal(t, 12, summary.Edges)
}

// flakyEdges fails ReplaceEdges for one source product.
type flakyEdges struct {
	*memory.Store
	failFor string
}

func (f flakyEdges) ReplaceEdges(ctx context.Context, shopDomain, sourceProductID string, edges []domain.RecommendationEdge) error {
	if sourceProductID == f.failFor {
		return domain.NewStoreError("replace edges", errors.New("deadlock detected"))
	}
	return f.Store.ReplaceEdges(ctx, shopDomain, sourceProductID, edges)
}

func TestRecomputeShop_SkipsFailingProduct(t *testing.T) {
	store := memory.NewStore()
	for _, id := range []string{"A", "B", "C"} {
		addProduct(t, store, domain.Product{ProductID: id, Price: 10})
	}

	engine := NewEngine(store, store, flakyEdges{Store: store, failFor: "B"}, 2)
	summary, err := engine.RecomputeShop(context.Background(), shop)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Succeeded)
	assert.Equal(t, 1, summary.Failed)

	edges, err := store.EdgesFor(context.Background(), shop, "C")
	require.NoError(t, err)
	assert.NotEmpty(t, edges)
}

func TestRecomputeShop_ListFailure(t *testing.T) {
	store := memory.NewStore()
	store.Fail("ListProducts", errors.New("connection reset"))

	_, err := newEngine(store, 1).RecomputeShop(context.Background(), shop)
	require.Error(t, err)
	assert.True(t, domain.IsStoreError(err))
}

func TestRecomputeShop_Cancelled(t *testing.T) {
	store := memory.NewStore()
	addProduct(t, store, domain.Product{ProductID: "A"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newEngine(store, 1).RecomputeShop(ctx, shop)
	assert.ErrorIs(t, err, context.Canceled)
}

// countingEdges records how many writers touch a source product at once.
type countingEdges struct {
	*memory.Store
	mu      sync.Mutex
	active  map[string]int
	overlap atomic.Bool
}

func (c *countingEdges) ReplaceEdges(ctx context.Context, shopDomain, sourceProductID string, edges []domain.RecommendationEdge) error {
	c.mu.Lock()
	c.active[sourceProductID]++
	if c.active[sourceProductID] > 1 {
		c.overlap.Store(true)
	}
	c.mu.Unlock()

	time.Sleep(time.Millisecond)

	c.mu.Lock()
	c.active[sourceProductID]--
	c.mu.Unlock()

	return c.Store.ReplaceEdges(ctx, shopDomain, sourceProductID, edges)
}

func TestRecompute_SameProductNeverConcurrent(t *testing.T) {
	store := memory.NewStore()
	addProduct(t, store, domain.Product{ProductID: "A", Price: 1})
	addProduct(t, store, domain.Product{ProductID: "B", Price: 1})

	writer := &countingEdges{Store: store, active: map[string]int{}}
	engine := NewEngine(store, store, writer, 4)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := engine.RecomputeProduct(context.Background(), "A", shop)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.False(t, writer.overlap.Load())
}
