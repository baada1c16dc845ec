package rest

import (
	"context"
	"net/http"
	"novaReco/domain"
	"novaReco/pkg/logger"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type (
	Recommender interface {
		Recommend(ctx context.Context, q domain.RecommendationQuery) ([]domain.ScoredProduct, error)
	}

	ProductEnsurer interface {
		EnsureProduct(ctx context.Context, attrs domain.ProductAttributes, shopDomain string) (*domain.Product, error)
	}

	RecommendationHandler struct {
		recommender Recommender
		products    ProductEnsurer
		validate    *validator.Validate
		timeout     time.Duration
	}

	// RecommendationParams accepts both the camelCase names storefront
	// widgets send and the snake_case names used by server integrations.
	RecommendationParams struct {
		ProductID       string `query:"productId"`
		ProductIDSnake  string `query:"product_id"`
		Shop            string `query:"shop"`
		ShopDomainSnake string `query:"shop_domain"`
		UserID          string `query:"userId"`
		UserIDSnake     string `query:"user_id"`
		SessionID       string `query:"sessionId"`
		SessionIDSnake  string `query:"session_id"`
		Limit           int    `query:"limit"`
	}

	recommendationInput struct {
		ProductID  string `validate:"required,max=255"`
		ShopDomain string `validate:"required,max=255"`
		UserID     string `validate:"max=255"`
		SessionID  string `validate:"max=255"`
		Limit      int    `validate:"gte=0"`
	}

	RecommendationResponse struct {
		Recommendations []domain.ScoredProduct `json:"recommendations"`
		Metadata        RecommendationMetadata `json:"metadata"`
	}

	RecommendationMetadata struct {
		ProductID   string          `json:"product_id"`
		ShopDomain  string          `json:"shop_domain"`
		Strategy    domain.Strategy `json:"strategy"`
		Count       int             `json:"count"`
		GeneratedAt time.Time       `json:"generated_at"`
	}
)

func NewRecommendationHandler(recommender Recommender, products ProductEnsurer, timeout time.Duration) *RecommendationHandler {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &RecommendationHandler{
		recommender: recommender,
		products:    products,
		validate:    validator.New(),
		timeout:     timeout,
	}
}

func (p RecommendationParams) normalize() recommendationInput {
	return recommendationInput{
		ProductID:  firstNonEmpty(p.ProductID, p.ProductIDSnake),
		ShopDomain: firstNonEmpty(p.Shop, p.ShopDomainSnake),
		UserID:     firstNonEmpty(p.UserID, p.UserIDSnake),
		SessionID:  firstNonEmpty(p.SessionID, p.SessionIDSnake),
		Limit:      p.Limit,
	}
}

// GET /api/v1/recommendations?productId=123&shop=acme.myshopify.com&limit=5
func (h *RecommendationHandler) Get(c echo.Context) error {
	var params RecommendationParams
	if err := c.Bind(&params); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	in := params.normalize()
	if err := h.validate.Struct(&in); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	recs, err := h.recommender.Recommend(ctx, domain.RecommendationQuery{
		ProductID:  in.ProductID,
		ShopDomain: in.ShopDomain,
		UserID:     in.UserID,
		SessionID:  in.SessionID,
		Limit:      in.Limit,
	})
	if err != nil {
		logger.Error("failed to resolve recommendations", "shop", in.ShopDomain, "product_id", in.ProductID, "error", err)
		return writeError(c, err)
	}

	strategy := domain.StrategyNone
	if len(recs) > 0 {
		strategy = recs[0].Strategy
	}

	if err := c.JSON(http.StatusOK, RecommendationResponse{
		Recommendations: recs,
		Metadata: RecommendationMetadata{
			ProductID:   in.ProductID,
			ShopDomain:  in.ShopDomain,
			Strategy:    strategy,
			Count:       len(recs),
			GeneratedAt: time.Now().UTC(),
		},
	}); err != nil {
		return err
	}

	if strategy == domain.StrategyPopular || strategy == domain.StrategyNone {
		h.ensurePlaceholder(c.Request().Context(), in)
	}

	return nil
}

// ensurePlaceholder registers a product the store has not seen yet so the
// next precompute pass includes it. The response has already been written.
func (h *RecommendationHandler) ensurePlaceholder(parent context.Context, in recommendationInput) {
	if h.products == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(parent), h.timeout)
	defer cancel()

	if _, err := h.products.EnsureProduct(ctx, domain.ProductAttributes{ProductID: in.ProductID}, in.ShopDomain); err != nil {
		logger.Warn("failed to register placeholder product", "shop", in.ShopDomain, "product_id", in.ProductID, "error", err)
	}
}
