// Package memory is a process-local store used by STORE_DRIVER=memory and as
// the test double for the business packages.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"novaReco/domain"
)

type Store struct {
	mu sync.RWMutex

	nextID   uint64
	products map[productKey]*domain.Product

	views      []domain.ProductView
	cartEvents []domain.CartEvent
	orders     map[productKey]domain.Order
	orderItems []domain.OrderItem

	profiles map[productKey]domain.UserProfile
	edges    map[productKey][]domain.RecommendationEdge
	requests []domain.RecommendationRequestLog

	faults map[string]error
	now    func() time.Time
}

// productKey is (shop, id) for every per-shop keyed table.
type productKey struct {
	shop string
	id   string
}

func NewStore() *Store {
	return &Store{
		products: make(map[productKey]*domain.Product),
		orders:   make(map[productKey]domain.Order),
		profiles: make(map[productKey]domain.UserProfile),
		edges:    make(map[productKey][]domain.RecommendationEdge),
		faults:   make(map[string]error),
		now:      time.Now,
	}
}

// Fail makes every later call of the named method return err wrapped as a
// store error. A nil err clears the fault.
func (s *Store) Fail(method string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.faults, method)
		return
	}
	s.faults[method] = err
}

// fault must be called with s.mu held.
func (s *Store) fault(ctx context.Context, method string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}
	if err, ok := s.faults[method]; ok {
		return domain.NewStoreError(method, err)
	}
	return nil
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
