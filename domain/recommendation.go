package domain

import "time"

type RecommendationType string

const (
	FrequentlyBoughtTogether RecommendationType = "FREQUENTLY_BOUGHT_TOGETHER"
	SimilarProducts          RecommendationType = "SIMILAR_PRODUCTS"
	AlsoViewed               RecommendationType = "ALSO_VIEWED"
)

// Label renders the edge type for shoppers.
func (t RecommendationType) Label() string {
	switch t {
	case FrequentlyBoughtTogether:
		return "Frequently bought together"
	case SimilarProducts:
		return "Similar products"
	case AlsoViewed:
		return "Customers also viewed"
	default:
		return "Similar product"
	}
}

// CREATE TABLE public.recommendation_edges (
//     id                      BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
//     shop_domain             TEXT NOT NULL,
//     source_product_id       TEXT NOT NULL,
//     recommended_product_id  TEXT NOT NULL,
//     recommendation_type     TEXT NOT NULL,
//     score                   DOUBLE PRECISION NOT NULL,
//     last_calculated         TIMESTAMPTZ NOT NULL
// );

type RecommendationEdge struct {
	ID                   uint64             `gorm:"primaryKey;autoIncrement" json:"-"`
	ShopDomain           string             `gorm:"column:shop_domain;type:text;not null;index:idx_edges_shop_source" json:"shop_domain"`
	SourceProductID      string             `gorm:"column:source_product_id;type:text;not null;index:idx_edges_shop_source" json:"source_product_id"`
	RecommendedProductID string             `gorm:"column:recommended_product_id;type:text;not null" json:"recommended_product_id"`
	RecommendationType   RecommendationType `gorm:"column:recommendation_type;type:text;not null" json:"recommendation_type"`
	Score                float64            `gorm:"column:score;not null" json:"score"`
	LastCalculated       time.Time          `gorm:"column:last_calculated;not null" json:"last_calculated"`
}

func (RecommendationEdge) TableName() string {
	return "recommendation_edges"
}

// Strategy names the tier that produced a recommendation list.
type Strategy string

const (
	StrategyPrecomputed    Strategy = "precomputed"
	StrategyPersonalized   Strategy = "personalized"
	StrategySession        Strategy = "session"
	StrategyLiveSimilarity Strategy = "live_similarity"
	StrategyPopular        Strategy = "popular"
	StrategyNone           Strategy = "none"
)

type ScoredProduct struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Price    float64  `json:"price"`
	Type     *string  `json:"type"`
	Vendor   *string  `json:"vendor"`
	Reason   string   `json:"recommended_because"`
	Score    float64  `json:"score"`
	Strategy Strategy `json:"strategy"`
}

// NewScoredProduct maps product metadata to the response shape; empty type and
// vendor are reported as null.
func NewScoredProduct(p Product, reason string, score float64, strategy Strategy) ScoredProduct {
	sp := ScoredProduct{
		ID:       p.ProductID,
		Title:    p.Title,
		Price:    p.Price,
		Reason:   reason,
		Score:    score,
		Strategy: strategy,
	}
	if p.Type != "" {
		t := p.Type
		sp.Type = &t
	}
	if p.Vendor != "" {
		v := p.Vendor
		sp.Vendor = &v
	}
	return sp
}

type RecommendationQuery struct {
	ProductID  string
	ShopDomain string
	UserID     string
	SessionID  string
	Limit      int
}
