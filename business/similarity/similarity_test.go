package similarity

import (
	"testing"

	"novaReco/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func product(id string, price float64, tags ...string) domain.Product {
	return domain.Product{ProductID: id, ShopDomain: "s.myshopify.com", Price: price, Tags: tags}
}

func TestOverlap(t *testing.T) {
	assert.Equal(t, 0.0, Overlap(nil, []string{"a"}))
	assert.Equal(t, 0.0, Overlap([]string{"a"}, nil))
	assert.Equal(t, 1.0, Overlap([]string{"a", "b"}, []string{"b", "a"}))
	assert.InDelta(t, 1.0/3.0, Overlap([]string{"a"}, []string{"a", "b", "c"}), 1e-9)
	// duplicates count once
	assert.Equal(t, 1.0, Overlap([]string{"a", "a"}, []string{"a"}))
}

func TestPriceDistance(t *testing.T) {
	assert.Equal(t, 0.0, PriceDistance(0, 0))
	assert.Equal(t, 1.0, PriceDistance(0, 10))
	assert.InDelta(t, 5.0/55.0, PriceDistance(50, 55), 1e-9)
}

func TestScore_TagTwinsExample(t *testing.T) {
	a := product("A", 50, "shoes", "running")
	b := product("B", 55, "shoes", "running")

	m := Score(a, b)

	assert.InDelta(t, 0.3+0.1*(1-5.0/55.0), m.Score, 1e-9)
	assert.InDelta(t, 0.391, m.Score, 0.001)
	assert.Equal(t, DimensionTags, m.Strongest)
	assert.Equal(t, "Similar product", m.Reason())
}

func TestScore_TypeAndVendorNeedBothSides(t *testing.T) {
	a := domain.Product{ProductID: "A", Price: 10}
	b := domain.Product{ProductID: "B", Price: 10}

	m := Score(a, b)

	assert.InDelta(t, WeightPrice, m.Score, 1e-9)
	assert.Equal(t, DimensionNone, m.Strongest)
	assert.Equal(t, "You might also like", m.Reason())
}

func TestScore_Caps(t *testing.T) {
	a := domain.Product{ProductID: "A", Type: "Shoe", Vendor: "Acme", Price: 20,
		Tags: []string{"x"}, Collections: []string{"c"}}
	b := a
	b.ProductID = "B"

	m := Score(a, b)

	assert.InDelta(t, 1.0, m.Score, 1e-9)
	assert.Equal(t, DimensionTags, m.Strongest)
}

func TestScore_ReasonFollowsDimensionPriority(t *testing.T) {
	a := domain.Product{ProductID: "A", Type: "Shoe", Vendor: "Acme", Price: 10}
	b := domain.Product{ProductID: "B", Type: "Shoe", Vendor: "Acme", Price: 1000}
	// vendor outranks type even though type weighs more
	assert.Equal(t, "More from Acme", Score(a, b).Reason())

	c := domain.Product{ProductID: "C", Type: "Shoe", Vendor: "Other", Price: 1000}
	assert.Equal(t, "Similar Shoe", Score(a, c).Reason())

	tagged := domain.Product{ProductID: "T", Type: "Shoe", Vendor: "Acme", Tags: []string{"a", "b", "c", "d"}}
	partial := domain.Product{ProductID: "U", Type: "Shoe", Vendor: "Acme", Tags: []string{"a"}}
	m := Score(tagged, partial)
	assert.Equal(t, DimensionTags, m.Strongest)
	assert.Equal(t, "Similar product", m.Reason())

	d := domain.Product{ProductID: "D", Vendor: "Acme", Collections: []string{"summer"}}
	e := domain.Product{ProductID: "E", Vendor: "Acme", Collections: []string{"summer", "x", "y", "z", "w"}}
	assert.Equal(t, "From the same collection", Score(d, e).Reason())

	assert.Equal(t, "You might also like", Score(domain.Product{ProductID: "F"}, domain.Product{ProductID: "G"}).Reason())
}

func TestRank(t *testing.T) {
	src := product("A", 50, "shoes")
	candidates := []domain.Product{
		src,
		product("C", 50),            // price only: 0.1
		product("B", 50, "shoes"),   // 0.4
		product("D", 5000),          // ~0.001
		product("E", 0),             // distance 1 -> 0, dropped
		product("F", 50, "running"), // 0.1, ties with C
	}

	got := Rank(src, candidates, 0)
	require.Len(t, got, 4)
	assert.Equal(t, "B", got[0].Product.ProductID)
	assert.Equal(t, "C", got[1].Product.ProductID)
	assert.Equal(t, "F", got[2].Product.ProductID)
	assert.Equal(t, "D", got[3].Product.ProductID)

	for _, m := range got {
		assert.GreaterOrEqual(t, m.Score, 0.0)
		assert.LessOrEqual(t, m.Score, 1.0)
	}

	assert.Len(t, Rank(src, candidates, 2), 2)
}

func TestAttributeSet(t *testing.T) {
	set := NewAttributeSet()
	assert.True(t, set.Empty())

	set.AddTypes("Shoe", "")
	set.AddVendors("Acme")
	set.AddTags("summer")
	assert.False(t, set.Empty())

	assert.True(t, set.Matches(domain.Product{Type: "Shoe"}))
	assert.True(t, set.Matches(domain.Product{Vendor: "Acme"}))
	assert.True(t, set.Matches(domain.Product{Tags: []string{"winter", "summer"}}))
	assert.False(t, set.Matches(domain.Product{Type: "Hat", Vendor: "Other"}))
	assert.False(t, set.Matches(domain.Product{}))
}
