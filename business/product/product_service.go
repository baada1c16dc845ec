package product

import (
	"context"
	"errors"
	"fmt"
	"novaReco/domain"
	"novaReco/pkg/logger"
	"strings"

	"gorm.io/datatypes"
)

// ProductRepository contract interface
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	FindByProductID(ctx context.Context, shopDomain, productID string) (domain.Product, error)
	UpdateAttributes(ctx context.Context, shopDomain, productID string, changes map[string]interface{}) error
	ListPopular(ctx context.Context, shopDomain string, limit int) ([]domain.Product, error)
}

type ProductService struct {
	productRepo ProductRepository
}

func NewProductService(productRepo ProductRepository) *ProductService {
	return &ProductService{
		productRepo: productRepo,
	}
}

// EnsureProduct upserts product metadata. Present, non-empty attributes
// overwrite stored values; popularity is never written here.
func (s *ProductService) EnsureProduct(ctx context.Context, attrs domain.ProductAttributes, shopDomain string) (*domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	attrs.ProductID = strings.TrimSpace(attrs.ProductID)
	if attrs.ProductID == "" {
		return nil, domain.NewValidationError("product_id", "is required")
	}
	if shopDomain == "" {
		return nil, domain.NewValidationError("shop_domain", "is required")
	}
	if attrs.Price != nil && *attrs.Price < 0 {
		return nil, domain.NewValidationError("price", "cannot be negative")
	}

	existing, err := s.productRepo.FindByProductID(ctx, shopDomain, attrs.ProductID)
	switch {
	case err == nil:
		return s.update(ctx, existing, attrs)
	case !errors.Is(err, domain.ErrNotFound):
		logger.Error("failed to look up product", "shop", shopDomain, "product_id", attrs.ProductID, "error", err)
		return nil, err
	}

	product := newProduct(attrs, shopDomain)
	err = s.productRepo.Create(ctx, product)
	if errors.Is(err, domain.ErrDuplicate) {
		// lost the race against a concurrent creator; merge into its row
		existing, err = s.productRepo.FindByProductID(ctx, shopDomain, attrs.ProductID)
		if err != nil {
			return nil, err
		}
		return s.update(ctx, existing, attrs)
	}
	if err != nil {
		logger.Error("failed to create product", "shop", shopDomain, "product_id", attrs.ProductID, "error", err)
		return nil, err
	}

	logger.Debug("product created", "shop", shopDomain, "product_id", product.ProductID)

	return product, nil
}

func (s *ProductService) update(ctx context.Context, existing domain.Product, attrs domain.ProductAttributes) (*domain.Product, error) {
	changes := mergeAttributes(&existing, attrs)
	if len(changes) == 0 {
		return &existing, nil
	}

	// changed columns only; unchanged ones keep whatever a concurrent ensure wrote
	if err := s.productRepo.UpdateAttributes(ctx, existing.ShopDomain, existing.ProductID, changes); err != nil {
		logger.Error("failed to update product", "shop", existing.ShopDomain, "product_id", existing.ProductID, "error", err)
		return nil, err
	}

	return &existing, nil
}

func (s *ProductService) GetProduct(ctx context.Context, productID, shopDomain string) (*domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	if productID == "" || shopDomain == "" {
		return nil, domain.NewValidationError("product_id", "product id and shop are required")
	}

	product, err := s.productRepo.FindByProductID(ctx, shopDomain, productID)
	if err != nil {
		return nil, err
	}

	return &product, nil
}

// ListPopular returns the shop's products by popularity desc, ties in
// insertion order.
func (s *ProductService) ListPopular(ctx context.Context, shopDomain string, limit int) ([]domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	if shopDomain == "" {
		return nil, domain.NewValidationError("shop_domain", "is required")
	}
	if limit <= 0 {
		limit = 10
	}

	return s.productRepo.ListPopular(ctx, shopDomain, limit)
}

func newProduct(attrs domain.ProductAttributes, shopDomain string) *domain.Product {
	p := &domain.Product{
		ProductID:   attrs.ProductID,
		ShopDomain:  shopDomain,
		Title:       attrs.Title,
		Type:        attrs.Type,
		Vendor:      attrs.Vendor,
		Tags:        normalizeSet(attrs.Tags),
		Collections: normalizeSet(attrs.Collections),
	}
	if p.Title == "" {
		p.Title = domain.UnknownProductTitle
	}
	if attrs.Price != nil {
		p.Price = *attrs.Price
	}
	return p
}

// mergeAttributes applies present attributes to p and returns the changed
// columns keyed by column name.
func mergeAttributes(p *domain.Product, attrs domain.ProductAttributes) map[string]interface{} {
	changes := make(map[string]interface{})

	setString := func(column string, dst *string, v string) {
		if v != "" && *dst != v {
			*dst = v
			changes[column] = v
		}
	}
	setString("title", &p.Title, attrs.Title)
	setString("type", &p.Type, attrs.Type)
	setString("vendor", &p.Vendor, attrs.Vendor)

	if attrs.Price != nil && p.Price != *attrs.Price {
		p.Price = *attrs.Price
		changes["price"] = p.Price
	}
	if tags := normalizeSet(attrs.Tags); len(tags) > 0 && !equalStrings(p.Tags, tags) {
		p.Tags = tags
		changes["tags"] = datatypes.JSONSlice[string](tags)
	}
	if cols := normalizeSet(attrs.Collections); len(cols) > 0 && !equalStrings(p.Collections, cols) {
		p.Collections = cols
		changes["collections"] = datatypes.JSONSlice[string](cols)
	}

	return changes
}

// normalizeSet trims and de-duplicates values while keeping first-seen order.
func normalizeSet(values []string) []string {
	out := make([]string, 0, len(values))
	seen := make(map[string]struct{}, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
