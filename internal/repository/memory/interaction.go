package memory

import (
	"context"
	"sort"
	"time"

	"novaReco/domain"
)

func (s *Store) SaveView(ctx context.Context, view *domain.ProductView) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fault(ctx, "SaveView"); err != nil {
		return err
	}

	s.nextID++
	view.ID = s.nextID
	s.views = append(s.views, *view)

	return nil
}

func (s *Store) SaveCartEvent(ctx context.Context, event *domain.CartEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fault(ctx, "SaveCartEvent"); err != nil {
		return err
	}

	s.nextID++
	event.ID = s.nextID
	s.cartEvents = append(s.cartEvents, *event)

	return nil
}

// SaveOrder stores the order with its items and reports false when the order
// id was already known for the shop.
func (s *Store) SaveOrder(ctx context.Context, order *domain.Order) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fault(ctx, "SaveOrder"); err != nil {
		return false, err
	}

	key := productKey{order.ShopDomain, order.OrderID}
	if _, ok := s.orders[key]; ok {
		return false, nil
	}

	s.nextID++
	order.ID = s.nextID
	for i := range order.Items {
		s.nextID++
		order.Items[i].ID = s.nextID
		order.Items[i].OrderID = order.OrderID
		order.Items[i].ShopDomain = order.ShopDomain
		s.orderItems = append(s.orderItems, order.Items[i])
	}

	stored := *order
	stored.Items = nil
	s.orders[key] = stored

	return true, nil
}

func (s *Store) CountViewsSince(ctx context.Context, shopDomain string, since time.Time) (map[string]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.fault(ctx, "CountViewsSince"); err != nil {
		return nil, err
	}

	counts := make(map[string]int64)
	for _, v := range s.views {
		if v.ShopDomain == shopDomain && !v.ViewedAt.Before(since) {
			counts[v.ProductID]++
		}
	}

	return counts, nil
}

func (s *Store) SumPurchasedQuantitySince(ctx context.Context, shopDomain string, since time.Time) (map[string]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.fault(ctx, "SumPurchasedQuantitySince"); err != nil {
		return nil, err
	}

	sums := make(map[string]int64)
	for _, item := range s.orderItems {
		if item.ShopDomain != shopDomain {
			continue
		}
		order := s.orders[productKey{shopDomain, item.OrderID}]
		if order.CompletedAt.Before(since) {
			continue
		}
		sums[item.ProductID] += int64(item.Quantity)
	}

	return sums, nil
}

// OrdersContaining returns the distinct ids of the shop's orders that hold
// productID.
func (s *Store) OrdersContaining(ctx context.Context, shopDomain, productID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.fault(ctx, "OrdersContaining"); err != nil {
		return nil, err
	}

	var ids []string
	seen := make(map[string]struct{})
	for _, item := range s.orderItems {
		if item.ShopDomain != shopDomain || item.ProductID != productID {
			continue
		}
		if _, ok := seen[item.OrderID]; ok {
			continue
		}
		seen[item.OrderID] = struct{}{}
		ids = append(ids, item.OrderID)
	}

	return ids, nil
}

func (s *Store) ItemsInOrders(ctx context.Context, shopDomain string, orderIDs []string) ([]domain.OrderItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.fault(ctx, "ItemsInOrders"); err != nil {
		return nil, err
	}

	want := toSet(orderIDs)
	var items []domain.OrderItem
	for _, item := range s.orderItems {
		if item.ShopDomain != shopDomain {
			continue
		}
		if _, ok := want[item.OrderID]; ok {
			items = append(items, item)
		}
	}

	return items, nil
}

// ViewersOf returns the distinct (session, user) pairs that viewed productID.
func (s *Store) ViewersOf(ctx context.Context, shopDomain, productID string) ([]domain.Viewer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.fault(ctx, "ViewersOf"); err != nil {
		return nil, err
	}

	var viewers []domain.Viewer
	seen := make(map[domain.Viewer]struct{})
	for _, v := range s.views {
		if v.ShopDomain != shopDomain || v.ProductID != productID {
			continue
		}
		viewer := domain.Viewer{SessionID: v.SessionID, UserID: v.UserID}
		if _, ok := seen[viewer]; ok {
			continue
		}
		seen[viewer] = struct{}{}
		viewers = append(viewers, viewer)
	}

	return viewers, nil
}

// ViewsBy returns the shop's views made in any of sessionIDs or by any of
// userIDs.
func (s *Store) ViewsBy(ctx context.Context, shopDomain string, sessionIDs, userIDs []string) ([]domain.ProductView, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.fault(ctx, "ViewsBy"); err != nil {
		return nil, err
	}

	sessions := toSet(sessionIDs)
	users := toSet(userIDs)

	var views []domain.ProductView
	for _, v := range s.views {
		if v.ShopDomain != shopDomain {
			continue
		}
		_, bySession := sessions[v.SessionID]
		_, byUser := users[v.UserID]
		if bySession || (v.UserID != "" && byUser) {
			views = append(views, v)
		}
	}

	return views, nil
}

// RecentSessionViews returns up to limit distinct product ids viewed in the
// session, most recent first.
func (s *Store) RecentSessionViews(ctx context.Context, shopDomain, sessionID string, limit int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.fault(ctx, "RecentSessionViews"); err != nil {
		return nil, err
	}

	var session []domain.ProductView
	for _, v := range s.views {
		if v.ShopDomain == shopDomain && v.SessionID == sessionID {
			session = append(session, v)
		}
	}
	sort.SliceStable(session, func(i, j int) bool {
		if !session[i].ViewedAt.Equal(session[j].ViewedAt) {
			return session[i].ViewedAt.After(session[j].ViewedAt)
		}
		return session[i].ID > session[j].ID
	})

	var ids []string
	seen := make(map[string]struct{})
	for _, v := range session {
		if _, ok := seen[v.ProductID]; ok {
			continue
		}
		seen[v.ProductID] = struct{}{}
		ids = append(ids, v.ProductID)
		if limit > 0 && len(ids) == limit {
			break
		}
	}

	return ids, nil
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		if v != "" {
			set[v] = struct{}{}
		}
	}
	return set
}
