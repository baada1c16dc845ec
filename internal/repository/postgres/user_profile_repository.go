package postgres

import (
	"context"
	"errors"
	"fmt"
	"novaReco/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UserProfileRepository struct {
	DB *gorm.DB
}

func NewUserProfileRepository(db *gorm.DB) *UserProfileRepository {
	return &UserProfileRepository{
		DB: db,
	}
}

func (r *UserProfileRepository) FindProfile(ctx context.Context, shopDomain, userID string) (domain.UserProfile, error) {
	if err := ctx.Err(); err != nil {
		return domain.UserProfile{}, fmt.Errorf("context error: %w", err)
	}

	var profile domain.UserProfile
	err := r.DB.WithContext(ctx).
		Where("shop_domain = ? AND user_id = ?", shopDomain, userID).
		First(&profile).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.UserProfile{}, domain.ErrNotFound
		}
		return domain.UserProfile{}, domain.NewStoreError("find profile", err)
	}

	return profile, nil
}

func (r *UserProfileRepository) SaveProfile(ctx context.Context, profile *domain.UserProfile) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	err := r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "shop_domain"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"preferred_categories",
			"preferred_brands",
			"viewed_products",
			"purchased_products",
			"last_active",
		}),
	}).Create(profile).Error
	if err != nil {
		return domain.NewStoreError("save profile", err)
	}

	return nil
}
