package interaction

import (
	"context"
	"errors"
	"fmt"
	"novaReco/domain"
	"novaReco/pkg/keylock"
	"novaReco/pkg/logger"
	"strings"
	"time"
)

// EventRepository contract interface
type EventRepository interface {
	SaveView(ctx context.Context, view *domain.ProductView) error
	SaveCartEvent(ctx context.Context, event *domain.CartEvent) error
	SaveOrder(ctx context.Context, order *domain.Order) (bool, error)
}

type ProfileRepository interface {
	FindProfile(ctx context.Context, shopDomain, userID string) (domain.UserProfile, error)
	SaveProfile(ctx context.Context, profile *domain.UserProfile) error
}

// ProductEnsurer upserts product metadata on first reference.
type ProductEnsurer interface {
	EnsureProduct(ctx context.Context, attrs domain.ProductAttributes, shopDomain string) (*domain.Product, error)
}

type InteractionService struct {
	events   EventRepository
	profiles ProfileRepository
	products ProductEnsurer
	locks    *keylock.Locker
	now      func() time.Time
}

func NewInteractionService(events EventRepository, profiles ProfileRepository, products ProductEnsurer) *InteractionService {
	return &InteractionService{
		events:   events,
		profiles: profiles,
		products: products,
		locks:    keylock.New(),
		now:      time.Now,
	}
}

// RecordView appends a product view. attrs may carry richer product data from
// the storefront; its ProductID is taken from the view.
func (s *InteractionService) RecordView(ctx context.Context, view domain.ProductView, attrs domain.ProductAttributes) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	view.ProductID = strings.TrimSpace(view.ProductID)
	switch {
	case view.ProductID == "":
		return domain.NewValidationError("product_id", "is required")
	case view.ShopDomain == "":
		return domain.NewValidationError("shop_domain", "is required")
	case view.SessionID == "":
		return domain.NewValidationError("session_id", "is required")
	}
	if view.ViewedAt.IsZero() {
		view.ViewedAt = s.now()
	}

	attrs.ProductID = view.ProductID
	product, err := s.products.EnsureProduct(ctx, attrs, view.ShopDomain)
	if err != nil {
		return err
	}

	if err := s.events.SaveView(ctx, &view); err != nil {
		logger.Error("failed to save product view", "shop", view.ShopDomain, "product_id", view.ProductID, "error", err)
		return err
	}

	if view.UserID != "" {
		s.touchAfterEvent(ctx, view.UserID, view.ShopDomain, domain.ProfileSignals{
			ViewedProduct: view.ProductID,
			Category:      product.Type,
			Brand:         product.Vendor,
			At:            view.ViewedAt,
		})
	}

	return nil
}

func (s *InteractionService) RecordCartEvent(ctx context.Context, event domain.CartEvent) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	event.ProductID = strings.TrimSpace(event.ProductID)
	event.EventType = domain.CartEventType(strings.ToUpper(string(event.EventType)))
	switch {
	case event.ProductID == "":
		return domain.NewValidationError("product_id", "is required")
	case event.ShopDomain == "":
		return domain.NewValidationError("shop_domain", "is required")
	case event.SessionID == "":
		return domain.NewValidationError("session_id", "is required")
	case event.EventType != domain.CartEventAdd && event.EventType != domain.CartEventRemove:
		return domain.NewValidationError("event_type", "must be ADD or REMOVE")
	case event.Quantity <= 0:
		return domain.NewValidationError("quantity", "must be positive")
	case event.Price < 0:
		return domain.NewValidationError("price", "cannot be negative")
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}

	attrs := domain.ProductAttributes{ProductID: event.ProductID}
	if event.Price > 0 {
		attrs.Price = domain.Float64(event.Price)
	}
	product, err := s.products.EnsureProduct(ctx, attrs, event.ShopDomain)
	if err != nil {
		return err
	}

	if err := s.events.SaveCartEvent(ctx, &event); err != nil {
		logger.Error("failed to save cart event", "shop", event.ShopDomain, "product_id", event.ProductID, "error", err)
		return err
	}

	if event.UserID != "" {
		s.touchAfterEvent(ctx, event.UserID, event.ShopDomain, domain.ProfileSignals{
			Category: product.Type,
			Brand:    product.Vendor,
			At:       event.Timestamp,
		})
	}

	return nil
}

// RecordOrder stores a completed order. Redelivering a known order id is a
// no-op.
func (s *InteractionService) RecordOrder(ctx context.Context, order domain.Order) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	order.OrderID = strings.TrimSpace(order.OrderID)
	switch {
	case order.OrderID == "":
		return domain.NewValidationError("order_id", "is required")
	case order.ShopDomain == "":
		return domain.NewValidationError("shop_domain", "is required")
	case len(order.Items) == 0:
		return domain.NewValidationError("items", "at least one item is required")
	case order.TotalPrice < 0:
		return domain.NewValidationError("total_price", "cannot be negative")
	}
	for i := range order.Items {
		item := &order.Items[i]
		item.ProductID = strings.TrimSpace(item.ProductID)
		if item.ProductID == "" {
			return domain.NewValidationError(fmt.Sprintf("items[%d].product_id", i), "is required")
		}
		if item.Quantity <= 0 {
			return domain.NewValidationError(fmt.Sprintf("items[%d].quantity", i), "must be positive")
		}
		if item.Price < 0 {
			return domain.NewValidationError(fmt.Sprintf("items[%d].price", i), "cannot be negative")
		}
	}
	if order.CompletedAt.IsZero() {
		order.CompletedAt = s.now()
	}

	purchased := make([]string, 0, len(order.Items))
	for _, item := range order.Items {
		if _, err := s.products.EnsureProduct(ctx, domain.ProductAttributes{ProductID: item.ProductID}, order.ShopDomain); err != nil {
			return err
		}
		purchased = append(purchased, item.ProductID)
	}

	created, err := s.events.SaveOrder(ctx, &order)
	if err != nil {
		logger.Error("failed to save order", "shop", order.ShopDomain, "order_id", order.OrderID, "error", err)
		return err
	}
	if !created {
		logger.Debug("order already recorded", "shop", order.ShopDomain, "order_id", order.OrderID)
		return nil
	}

	if order.UserID != "" {
		s.touchAfterEvent(ctx, order.UserID, order.ShopDomain, domain.ProfileSignals{
			PurchasedProducts: purchased,
			At:                order.CompletedAt,
		})
	}

	return nil
}

// touchAfterEvent folds signals into the profile once the event itself is
// stored. A failure here is logged, not returned: the event is already
// persisted and a client retry would record it twice.
func (s *InteractionService) touchAfterEvent(ctx context.Context, userID, shopDomain string, signals domain.ProfileSignals) {
	if err := s.TouchUserProfile(ctx, userID, shopDomain, signals); err != nil {
		logger.Warn("event stored but profile update failed", "shop", shopDomain, "user_id", userID, "error", err)
	}
}

// TouchUserProfile creates the profile on first sight and folds signals into
// it. Writes for the same (shop, user) are serialized in-process.
func (s *InteractionService) TouchUserProfile(ctx context.Context, userID, shopDomain string, signals domain.ProfileSignals) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	userID = strings.TrimSpace(userID)
	if userID == "" {
		return domain.NewValidationError("user_id", "is required")
	}
	if shopDomain == "" {
		return domain.NewValidationError("shop_domain", "is required")
	}

	unlock := s.locks.Lock(shopDomain + "\x00" + userID)
	defer unlock()

	profile, err := s.profiles.FindProfile(ctx, shopDomain, userID)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			logger.Error("failed to load user profile", "shop", shopDomain, "user_id", userID, "error", err)
			return err
		}
		profile = domain.UserProfile{UserID: userID, ShopDomain: shopDomain}
	}

	applySignals(&profile, signals, s.now())

	if err := s.profiles.SaveProfile(ctx, &profile); err != nil {
		logger.Error("failed to save user profile", "shop", shopDomain, "user_id", userID, "error", err)
		return err
	}

	return nil
}

func applySignals(profile *domain.UserProfile, signals domain.ProfileSignals, now time.Time) {
	if signals.ViewedProduct != "" {
		profile.ViewedProducts = pushRecent(profile.ViewedProducts, signals.ViewedProduct)
	}
	for _, id := range signals.PurchasedProducts {
		if id != "" {
			profile.PurchasedProducts = pushRecent(profile.PurchasedProducts, id)
		}
	}
	if signals.Category != "" {
		profile.PreferredCategories = addToSet(profile.PreferredCategories, signals.Category)
	}
	if signals.Brand != "" {
		profile.PreferredBrands = addToSet(profile.PreferredBrands, signals.Brand)
	}

	at := signals.At
	if at.IsZero() {
		at = now
	}
	if at.After(profile.LastActive) {
		profile.LastActive = at
	}
}

// pushRecent moves id to the end of history and keeps the newest
// domain.MaxProfileHistory entries.
func pushRecent(history []string, id string) []string {
	out := make([]string, 0, len(history)+1)
	for _, h := range history {
		if h != id {
			out = append(out, h)
		}
	}
	out = append(out, id)
	if len(out) > domain.MaxProfileHistory {
		out = out[len(out)-domain.MaxProfileHistory:]
	}
	return out
}

func addToSet(set []string, v string) []string {
	for _, s := range set {
		if s == v {
			return set
		}
	}
	return append(set, v)
}
