package postgres

import (
	"context"
	"fmt"
	"novaReco/domain"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type InteractionRepository struct {
	DB *gorm.DB
}

func NewInteractionRepository(db *gorm.DB) *InteractionRepository {
	return &InteractionRepository{
		DB: db,
	}
}

func (r *InteractionRepository) SaveView(ctx context.Context, view *domain.ProductView) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	if err := r.DB.WithContext(ctx).Create(view).Error; err != nil {
		return domain.NewStoreError("save view", err)
	}

	return nil
}

func (r *InteractionRepository) SaveCartEvent(ctx context.Context, event *domain.CartEvent) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	if err := r.DB.WithContext(ctx).Create(event).Error; err != nil {
		return domain.NewStoreError("save cart event", err)
	}

	return nil
}

// SaveOrder inserts the order and its items atomically. A redelivered order id
// is skipped and reported as false.
func (r *InteractionRepository) SaveOrder(ctx context.Context, order *domain.Order) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, fmt.Errorf("context error: %w", err)
	}

	created := false
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "order_id"}, {Name: "shop_domain"}},
			DoNothing: true,
		}).Create(order)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}

		for i := range order.Items {
			order.Items[i].OrderID = order.OrderID
			order.Items[i].ShopDomain = order.ShopDomain
		}
		if len(order.Items) > 0 {
			if err := tx.Create(&order.Items).Error; err != nil {
				return err
			}
		}

		created = true
		return nil
	})
	if err != nil {
		return false, domain.NewStoreError("save order", err)
	}

	return created, nil
}

type productCount struct {
	ProductID string
	Total     int64
}

func countsToMap(rows []productCount) map[string]int64 {
	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.ProductID] = row.Total
	}
	return out
}

func (r *InteractionRepository) CountViewsSince(ctx context.Context, shopDomain string, since time.Time) (map[string]int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var rows []productCount
	err := r.DB.WithContext(ctx).
		Model(&domain.ProductView{}).
		Select("product_id, COUNT(*) AS total").
		Where("shop_domain = ? AND viewed_at >= ?", shopDomain, since).
		Group("product_id").
		Scan(&rows).Error
	if err != nil {
		return nil, domain.NewStoreError("count views", err)
	}

	return countsToMap(rows), nil
}

func (r *InteractionRepository) SumPurchasedQuantitySince(ctx context.Context, shopDomain string, since time.Time) (map[string]int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var rows []productCount
	err := r.DB.WithContext(ctx).
		Table("order_items AS oi").
		Select("oi.product_id, COALESCE(SUM(oi.quantity), 0) AS total").
		Joins("JOIN orders o ON o.order_id = oi.order_id AND o.shop_domain = oi.shop_domain").
		Where("oi.shop_domain = ? AND o.completed_at >= ?", shopDomain, since).
		Group("oi.product_id").
		Scan(&rows).Error
	if err != nil {
		return nil, domain.NewStoreError("sum purchases", err)
	}

	return countsToMap(rows), nil
}

func (r *InteractionRepository) OrdersContaining(ctx context.Context, shopDomain, productID string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var orderIDs []string
	err := r.DB.WithContext(ctx).
		Model(&domain.OrderItem{}).
		Distinct("order_id").
		Where("shop_domain = ? AND product_id = ?", shopDomain, productID).
		Pluck("order_id", &orderIDs).Error
	if err != nil {
		return nil, domain.NewStoreError("find orders containing product", err)
	}

	return orderIDs, nil
}

func (r *InteractionRepository) ItemsInOrders(ctx context.Context, shopDomain string, orderIDs []string) ([]domain.OrderItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}
	if len(orderIDs) == 0 {
		return nil, nil
	}

	var items []domain.OrderItem
	err := r.DB.WithContext(ctx).
		Where("shop_domain = ? AND order_id IN ?", shopDomain, orderIDs).
		Find(&items).Error
	if err != nil {
		return nil, domain.NewStoreError("find order items", err)
	}

	return items, nil
}

func (r *InteractionRepository) ViewersOf(ctx context.Context, shopDomain, productID string) ([]domain.Viewer, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var viewers []domain.Viewer
	err := r.DB.WithContext(ctx).
		Model(&domain.ProductView{}).
		Select("DISTINCT session_id, COALESCE(user_id, '') AS user_id").
		Where("shop_domain = ? AND product_id = ?", shopDomain, productID).
		Scan(&viewers).Error
	if err != nil {
		return nil, domain.NewStoreError("find viewers", err)
	}

	return viewers, nil
}

func (r *InteractionRepository) ViewsBy(ctx context.Context, shopDomain string, sessionIDs, userIDs []string) ([]domain.ProductView, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}
	if len(sessionIDs) == 0 && len(userIDs) == 0 {
		return nil, nil
	}

	q := r.DB.WithContext(ctx).Where("shop_domain = ?", shopDomain)
	switch {
	case len(sessionIDs) > 0 && len(userIDs) > 0:
		q = q.Where(r.DB.Where("session_id IN ?", sessionIDs).Or("user_id IN ?", userIDs))
	case len(sessionIDs) > 0:
		q = q.Where("session_id IN ?", sessionIDs)
	default:
		q = q.Where("user_id IN ?", userIDs)
	}

	var views []domain.ProductView
	if err := q.Find(&views).Error; err != nil {
		return nil, domain.NewStoreError("find views", err)
	}

	return views, nil
}

func (r *InteractionRepository) RecentSessionViews(ctx context.Context, shopDomain, sessionID string, limit int) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var productIDs []string
	err := r.DB.WithContext(ctx).
		Model(&domain.ProductView{}).
		Select("product_id").
		Where("shop_domain = ? AND session_id = ?", shopDomain, sessionID).
		Group("product_id").
		Order("MAX(viewed_at) DESC").
		Order("MAX(id) DESC").
		Limit(limit).
		Pluck("product_id", &productIDs).Error
	if err != nil {
		return nil, domain.NewStoreError("find session views", err)
	}

	return productIDs, nil
}
