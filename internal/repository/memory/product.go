package memory

import (
	"context"
	"sort"

	"novaReco/domain"

	"gorm.io/datatypes"
)

func cloneProduct(p *domain.Product) domain.Product {
	out := *p
	out.Tags = cloneStrings(p.Tags)
	out.Collections = cloneStrings(p.Collections)
	return out
}

func (s *Store) Create(ctx context.Context, product *domain.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fault(ctx, "Create"); err != nil {
		return err
	}

	key := productKey{product.ShopDomain, product.ProductID}
	if _, ok := s.products[key]; ok {
		return domain.ErrDuplicate
	}

	s.nextID++
	now := s.now()
	product.ID = s.nextID
	product.CreatedAt = now
	product.UpdatedAt = now

	stored := cloneProduct(product)
	s.products[key] = &stored

	return nil
}

func (s *Store) FindByProductID(ctx context.Context, shopDomain, productID string) (domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.fault(ctx, "FindByProductID"); err != nil {
		return domain.Product{}, err
	}

	p, ok := s.products[productKey{shopDomain, productID}]
	if !ok {
		return domain.Product{}, domain.ErrNotFound
	}

	return cloneProduct(p), nil
}

func (s *Store) FindByProductIDs(ctx context.Context, shopDomain string, productIDs []string) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.fault(ctx, "FindByProductIDs"); err != nil {
		return nil, err
	}

	out := make([]domain.Product, 0, len(productIDs))
	seen := make(map[string]struct{}, len(productIDs))
	for _, id := range productIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if p, ok := s.products[productKey{shopDomain, id}]; ok {
			out = append(out, cloneProduct(p))
		}
	}

	return out, nil
}

// UpdateAttributes writes the changed descriptive columns of one product,
// leaving every other column alone.
func (s *Store) UpdateAttributes(ctx context.Context, shopDomain, productID string, changes map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fault(ctx, "UpdateAttributes"); err != nil {
		return err
	}

	p, ok := s.products[productKey{shopDomain, productID}]
	if !ok {
		return domain.ErrNotFound
	}

	updated := cloneProduct(p)
	for column, value := range changes {
		if !applyColumn(&updated, column, value) {
			return domain.NewValidationError(column, "is not an updatable product attribute")
		}
	}
	updated.UpdatedAt = s.now()
	*p = updated

	return nil
}

func applyColumn(p *domain.Product, column string, value interface{}) bool {
	switch column {
	case "title":
		v, ok := value.(string)
		p.Title = v
		return ok
	case "type":
		v, ok := value.(string)
		p.Type = v
		return ok
	case "vendor":
		v, ok := value.(string)
		p.Vendor = v
		return ok
	case "price":
		v, ok := value.(float64)
		p.Price = v
		return ok
	case "tags":
		v, ok := value.(datatypes.JSONSlice[string])
		p.Tags = cloneStrings(v)
		return ok
	case "collections":
		v, ok := value.(datatypes.JSONSlice[string])
		p.Collections = cloneStrings(v)
		return ok
	}
	return false
}

// ListProducts returns every product of the shop in insertion order.
func (s *Store) ListProducts(ctx context.Context, shopDomain string) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.fault(ctx, "ListProducts"); err != nil {
		return nil, err
	}

	return s.shopProducts(shopDomain), nil
}

func (s *Store) ListPopular(ctx context.Context, shopDomain string, limit int) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.fault(ctx, "ListPopular"); err != nil {
		return nil, err
	}

	products := s.shopProducts(shopDomain)
	sort.SliceStable(products, func(i, j int) bool {
		return products[i].Popularity > products[j].Popularity
	})

	if limit > 0 && len(products) > limit {
		products = products[:limit]
	}

	return products, nil
}

// ListShops returns every shop that has at least one product.
func (s *Store) ListShops(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.fault(ctx, "ListShops"); err != nil {
		return nil, err
	}

	set := make(map[string]struct{})
	for key := range s.products {
		set[key.shop] = struct{}{}
	}

	shops := make([]string, 0, len(set))
	for shop := range set {
		shops = append(shops, shop)
	}
	sort.Strings(shops)

	return shops, nil
}

// UpdatePopularity sets popularity for the listed products of the shop and
// returns how many existed.
func (s *Store) UpdatePopularity(ctx context.Context, shopDomain string, scores map[string]float64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fault(ctx, "UpdatePopularity"); err != nil {
		return 0, err
	}

	updated := 0
	for id, score := range scores {
		if p, ok := s.products[productKey{shopDomain, id}]; ok {
			p.Popularity = score
			updated++
		}
	}

	return updated, nil
}

// shopProducts must be called with s.mu held.
func (s *Store) shopProducts(shopDomain string) []domain.Product {
	out := make([]domain.Product, 0)
	for key, p := range s.products {
		if key.shop == shopDomain {
			out = append(out, cloneProduct(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
