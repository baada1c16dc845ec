package postgres

import (
	"context"
	"errors"
	"fmt"
	"novaReco/business/product"
	"novaReco/domain"

	"gorm.io/gorm"
)

type ProductRepository struct {
	DB *gorm.DB
}

var _ product.ProductRepository = (*ProductRepository)(nil)

func NewProductRepository(db *gorm.DB) *ProductRepository {
	return &ProductRepository{
		DB: db,
	}
}

func (r *ProductRepository) Create(ctx context.Context, p *domain.Product) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	if err := r.DB.WithContext(ctx).Create(p).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.ErrDuplicate
		}
		return domain.NewStoreError("create product", err)
	}

	return nil
}

func (r *ProductRepository) FindByProductID(ctx context.Context, shopDomain, productID string) (domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return domain.Product{}, fmt.Errorf("context error: %w", err)
	}

	var p domain.Product

	err := r.DB.WithContext(ctx).
		Where("shop_domain = ? AND product_id = ?", shopDomain, productID).
		First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Product{}, domain.ErrNotFound
		}
		return domain.Product{}, domain.NewStoreError("find product", err)
	}

	return p, nil
}

func (r *ProductRepository) FindByProductIDs(ctx context.Context, shopDomain string, productIDs []string) ([]domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}
	if len(productIDs) == 0 {
		return nil, nil
	}

	var products []domain.Product
	err := r.DB.WithContext(ctx).
		Where("shop_domain = ? AND product_id IN ?", shopDomain, productIDs).
		Order("id ASC").
		Find(&products).Error
	if err != nil {
		return nil, domain.NewStoreError("find products", err)
	}

	return products, nil
}

// UpdateAttributes writes the given descriptive columns only; popularity
// belongs to the popularity calculator.
func (r *ProductRepository) UpdateAttributes(ctx context.Context, shopDomain, productID string, changes map[string]interface{}) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	updateData := make(map[string]interface{}, len(changes))
	for column, value := range changes {
		if _, ok := attributeColumns[column]; !ok {
			return domain.NewValidationError(column, "is not an updatable product attribute")
		}
		updateData[column] = value
	}
	if len(updateData) == 0 {
		return nil
	}

	result := r.DB.WithContext(ctx).
		Model(&domain.Product{}).
		Where("shop_domain = ? AND product_id = ?", shopDomain, productID).
		Updates(updateData)
	if result.Error != nil {
		return domain.NewStoreError("update product", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}

	return nil
}

var attributeColumns = map[string]struct{}{
	"title":       {},
	"type":        {},
	"vendor":      {},
	"price":       {},
	"tags":        {},
	"collections": {},
}

func (r *ProductRepository) ListProducts(ctx context.Context, shopDomain string) ([]domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var products []domain.Product
	err := r.DB.WithContext(ctx).
		Where("shop_domain = ?", shopDomain).
		Order("id ASC").
		Find(&products).Error
	if err != nil {
		return nil, domain.NewStoreError("list products", err)
	}

	return products, nil
}

func (r *ProductRepository) ListPopular(ctx context.Context, shopDomain string, limit int) ([]domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	q := r.DB.WithContext(ctx).
		Where("shop_domain = ?", shopDomain).
		Order("popularity DESC").
		Order("id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var products []domain.Product
	if err := q.Find(&products).Error; err != nil {
		return nil, domain.NewStoreError("list popular products", err)
	}

	return products, nil
}

func (r *ProductRepository) ListShops(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var shops []string
	err := r.DB.WithContext(ctx).
		Model(&domain.Product{}).
		Distinct("shop_domain").
		Order("shop_domain ASC").
		Pluck("shop_domain", &shops).Error
	if err != nil {
		return nil, domain.NewStoreError("list shops", err)
	}

	return shops, nil
}

// UpdatePopularity writes every score in one transaction so a reader never
// sees a half-applied run.
func (r *ProductRepository) UpdatePopularity(ctx context.Context, shopDomain string, scores map[string]float64) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("context error: %w", err)
	}

	updated := 0
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for productID, score := range scores {
			result := tx.Model(&domain.Product{}).
				Where("shop_domain = ? AND product_id = ?", shopDomain, productID).
				Update("popularity", score)
			if result.Error != nil {
				return result.Error
			}
			updated += int(result.RowsAffected)
		}
		return nil
	})
	if err != nil {
		return 0, domain.NewStoreError("update popularity", err)
	}

	return updated, nil
}
