package postgres

import (
	"context"
	"fmt"
	"novaReco/domain"

	"gorm.io/gorm"
)

type RecommendationRepository struct {
	DB *gorm.DB
}

func NewRecommendationRepository(db *gorm.DB) *RecommendationRepository {
	return &RecommendationRepository{
		DB: db,
	}
}

func (r *RecommendationRepository) EdgesFor(ctx context.Context, shopDomain, sourceProductID string) ([]domain.RecommendationEdge, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var edges []domain.RecommendationEdge
	err := r.DB.WithContext(ctx).
		Where("shop_domain = ? AND source_product_id = ?", shopDomain, sourceProductID).
		Order("score DESC").
		Order("id ASC").
		Find(&edges).Error
	if err != nil {
		return nil, domain.NewStoreError("find edges", err)
	}

	return edges, nil
}

// ReplaceEdges deletes the source product's edges and inserts the new set in a
// single transaction.
func (r *RecommendationRepository) ReplaceEdges(ctx context.Context, shopDomain, sourceProductID string, edges []domain.RecommendationEdge) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	for i := range edges {
		edges[i].ID = 0
		edges[i].ShopDomain = shopDomain
		edges[i].SourceProductID = sourceProductID
	}

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Where("shop_domain = ? AND source_product_id = ?", shopDomain, sourceProductID).
			Delete(&domain.RecommendationEdge{}).Error; err != nil {
			return err
		}
		if len(edges) == 0 {
			return nil
		}
		return tx.CreateInBatches(edges, 100).Error
	})
	if err != nil {
		return domain.NewStoreError("replace edges", err)
	}

	return nil
}
