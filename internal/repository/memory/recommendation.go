package memory

import (
	"context"
	"sort"

	"novaReco/domain"
)

func cloneProfile(p domain.UserProfile) domain.UserProfile {
	p.PreferredCategories = cloneStrings(p.PreferredCategories)
	p.PreferredBrands = cloneStrings(p.PreferredBrands)
	p.ViewedProducts = cloneStrings(p.ViewedProducts)
	p.PurchasedProducts = cloneStrings(p.PurchasedProducts)
	return p
}

func (s *Store) FindProfile(ctx context.Context, shopDomain, userID string) (domain.UserProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.fault(ctx, "FindProfile"); err != nil {
		return domain.UserProfile{}, err
	}

	p, ok := s.profiles[productKey{shopDomain, userID}]
	if !ok {
		return domain.UserProfile{}, domain.ErrNotFound
	}

	return cloneProfile(p), nil
}

// SaveProfile inserts or replaces the profile keyed by (shop, user).
func (s *Store) SaveProfile(ctx context.Context, profile *domain.UserProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fault(ctx, "SaveProfile"); err != nil {
		return err
	}

	key := productKey{profile.ShopDomain, profile.UserID}
	if existing, ok := s.profiles[key]; ok {
		profile.ID = existing.ID
	} else {
		s.nextID++
		profile.ID = s.nextID
	}
	s.profiles[key] = cloneProfile(*profile)

	return nil
}

// EdgesFor returns the stored edges of the source product by score desc.
func (s *Store) EdgesFor(ctx context.Context, shopDomain, sourceProductID string) ([]domain.RecommendationEdge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.fault(ctx, "EdgesFor"); err != nil {
		return nil, err
	}

	stored := s.edges[productKey{shopDomain, sourceProductID}]
	edges := make([]domain.RecommendationEdge, len(stored))
	copy(edges, stored)
	sort.SliceStable(edges, func(i, j int) bool {
		return edges[i].Score > edges[j].Score
	})

	return edges, nil
}

// ReplaceEdges swaps the whole edge set of the source product in one step.
func (s *Store) ReplaceEdges(ctx context.Context, shopDomain, sourceProductID string, edges []domain.RecommendationEdge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fault(ctx, "ReplaceEdges"); err != nil {
		return err
	}

	key := productKey{shopDomain, sourceProductID}
	if len(edges) == 0 {
		delete(s.edges, key)
		return nil
	}

	stored := make([]domain.RecommendationEdge, len(edges))
	for i, e := range edges {
		s.nextID++
		e.ID = s.nextID
		e.ShopDomain = shopDomain
		e.SourceProductID = sourceProductID
		stored[i] = e
	}
	s.edges[key] = stored

	return nil
}

// Record appends one recommendation request to the analytics log.
func (s *Store) Record(ctx context.Context, entry domain.RecommendationRequestLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fault(ctx, "Record"); err != nil {
		return err
	}

	s.requests = append(s.requests, entry)

	return nil
}

// Requests returns the recorded recommendation requests.
func (s *Store) Requests() []domain.RecommendationRequestLog {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.RecommendationRequestLog, len(s.requests))
	copy(out, s.requests)
	return out
}
