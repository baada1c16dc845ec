package similarity

import (
	"math"
	"sort"

	"novaReco/domain"
)

const (
	WeightTags        = 0.3
	WeightCollections = 0.25
	WeightType        = 0.2
	WeightVendor      = 0.15
	WeightPrice       = 0.1
)

// Dimension is the highest-priority attribute two products share.
type Dimension int

const (
	DimensionNone Dimension = iota
	DimensionTags
	DimensionCollections
	DimensionVendor
	DimensionType
)

// Match is one scored candidate for a source product.
type Match struct {
	Product   domain.Product
	Score     float64
	Strongest Dimension
}

// Reason renders the shared dimension for shoppers.
func (m Match) Reason() string {
	switch m.Strongest {
	case DimensionTags:
		return "Similar product"
	case DimensionCollections:
		return "From the same collection"
	case DimensionVendor:
		return "More from " + m.Product.Vendor
	case DimensionType:
		return "Similar " + m.Product.Type
	default:
		return "You might also like"
	}
}

// Overlap returns |A∩B| / max(|A|,|B|) over the distinct values of a and b,
// or 0 when either side is empty.
func Overlap(a, b []string) float64 {
	setA := toSet(a)
	setB := toSet(b)
	if len(setA) == 0 || len(setB) == 0 {
		return 0
	}

	common := 0
	for v := range setA {
		if _, ok := setB[v]; ok {
			common++
		}
	}

	return float64(common) / float64(max(len(setA), len(setB)))
}

// PriceDistance returns |a-b| / max(a,b) clamped to [0,1]; two zero prices
// are at distance 0.
func PriceDistance(a, b float64) float64 {
	a = math.Max(a, 0)
	b = math.Max(b, 0)
	hi := math.Max(a, b)
	if hi == 0 {
		return 0
	}
	return math.Min(1, math.Abs(a-b)/hi)
}

// Score computes the weighted attribute similarity of candidate to source.
func Score(source, candidate domain.Product) Match {
	tagPart := WeightTags * Overlap(source.Tags, candidate.Tags)
	collectionPart := WeightCollections * Overlap(source.Collections, candidate.Collections)

	var typePart, vendorPart float64
	if source.Type != "" && source.Type == candidate.Type {
		typePart = WeightType
	}
	if source.Vendor != "" && source.Vendor == candidate.Vendor {
		vendorPart = WeightVendor
	}

	pricePart := WeightPrice * (1 - PriceDistance(source.Price, candidate.Price))

	score := tagPart + collectionPart + typePart + vendorPart + pricePart

	// the reason follows the first present dimension in priority order,
	// regardless of weight
	strongest := DimensionNone
	switch {
	case tagPart > 0:
		strongest = DimensionTags
	case collectionPart > 0:
		strongest = DimensionCollections
	case vendorPart > 0:
		strongest = DimensionVendor
	case typePart > 0:
		strongest = DimensionType
	}

	return Match{
		Product:   candidate,
		Score:     clamp01(score),
		Strongest: strongest,
	}
}

// Rank scores every candidate other than source and returns the k best
// positive matches by score desc, product id asc. k <= 0 keeps all.
func Rank(source domain.Product, candidates []domain.Product, k int) []Match {
	matches := make([]Match, 0, len(candidates))
	for _, c := range candidates {
		if c.ProductID == source.ProductID {
			continue
		}
		m := Score(source, c)
		if m.Score <= 0 {
			continue
		}
		matches = append(matches, m)
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].Product.ProductID < matches[j].Product.ProductID
	})

	if k > 0 && len(matches) > k {
		matches = matches[:k]
	}
	return matches
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		set[v] = struct{}{}
	}
	return set
}
