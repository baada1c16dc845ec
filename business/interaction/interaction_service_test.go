package interaction

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"novaReco/business/product"
	"novaReco/domain"
	"novaReco/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const shop = "acme.myshopify.com"

func newService(t *testing.T) (*InteractionService, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	svc := NewInteractionService(store, store, product.NewProductService(store))
	return svc, store
}

func TestRecordView_EnsuresProductAndTouchesProfile(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	err := svc.RecordView(ctx, domain.ProductView{
		ProductID:  "p1",
		ShopDomain: shop,
		SessionID:  "s1",
		UserID:     "u1",
		ViewedAt:   at,
	}, domain.ProductAttributes{Title: "Trail Runner", Type: "Shoes", Vendor: "Acme"})
	require.NoError(t, err)

	p, err := store.FindByProductID(ctx, shop, "p1")
	require.NoError(t, err)
	assert.Equal(t, "Trail Runner", p.Title)

	viewers, err := store.ViewersOf(ctx, shop, "p1")
	require.NoError(t, err)
	assert.Equal(t, []domain.Viewer{{SessionID: "s1", UserID: "u1"}}, viewers)

	profile, err := store.FindProfile(ctx, shop, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"p1"}, []string(profile.ViewedProducts))
	assert.Equal(t, []string{"Shoes"}, []string(profile.PreferredCategories))
	assert.Equal(t, []string{"Acme"}, []string(profile.PreferredBrands))
	assert.True(t, profile.LastActive.Equal(at))
}

func TestRecordView_AnonymousSkipsProfile(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	require.NoError(t, svc.RecordView(ctx, domain.ProductView{ProductID: "p1", ShopDomain: shop, SessionID: "s1"}, domain.ProductAttributes{}))

	p, err := store.FindByProductID(ctx, shop, "p1")
	require.NoError(t, err)
	assert.Equal(t, domain.UnknownProductTitle, p.Title)

	_, err = store.FindProfile(ctx, shop, "")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRecordView_Validation(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	cases := []domain.ProductView{
		{ShopDomain: shop, SessionID: "s1"},
		{ProductID: "p1", SessionID: "s1"},
		{ProductID: "p1", ShopDomain: shop},
	}
	for i, view := range cases {
		t.Run(fmt.Sprint(i), func(t *testing.T) {
			err := svc.RecordView(ctx, view, domain.ProductAttributes{})
			assert.ErrorIs(t, err, domain.ErrValidation)
		})
	}
}

func TestRecordCartEvent(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	err := svc.RecordCartEvent(ctx, domain.CartEvent{
		ProductID:  "p1",
		ShopDomain: shop,
		SessionID:  "s1",
		Quantity:   2,
		Price:      19.5,
		EventType:  "add",
	})
	require.NoError(t, err)

	p, err := store.FindByProductID(ctx, shop, "p1")
	require.NoError(t, err)
	assert.Equal(t, 19.5, p.Price)

	err = svc.RecordCartEvent(ctx, domain.CartEvent{ProductID: "p1", ShopDomain: shop, SessionID: "s1", Quantity: 1, EventType: "UPDATE"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	err = svc.RecordCartEvent(ctx, domain.CartEvent{ProductID: "p1", ShopDomain: shop, SessionID: "s1", Quantity: 0, EventType: domain.CartEventRemove})
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestRecordOrder_IdempotentAndProfile(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	order := domain.Order{
		OrderID:    "1001",
		ShopDomain: shop,
		UserID:     "u1",
		SessionID:  "s1",
		TotalPrice: 30,
		Items: []domain.OrderItem{
			{ProductID: "x", Quantity: 1, Price: 10},
			{ProductID: "y", Quantity: 2, Price: 10},
		},
	}

	require.NoError(t, svc.RecordOrder(ctx, order))
	require.NoError(t, svc.RecordOrder(ctx, order))

	orders, err := store.OrdersContaining(ctx, shop, "x")
	require.NoError(t, err)
	assert.Equal(t, []string{"1001"}, orders)

	sums, err := store.SumPurchasedQuantitySince(ctx, shop, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), sums["y"])

	profile, err := store.FindProfile(ctx, shop, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, []string(profile.PurchasedProducts))

	_, err = store.FindByProductID(ctx, shop, "y")
	assert.NoError(t, err)
}

func TestRecordOrder_Validation(t *testing.T) {
	svc, _ := newService(t)
	ctx := context.Background()

	err := svc.RecordOrder(ctx, domain.Order{OrderID: "1", ShopDomain: shop})
	assert.ErrorIs(t, err, domain.ErrValidation)

	err = svc.RecordOrder(ctx, domain.Order{OrderID: "1", ShopDomain: shop, Items: []domain.OrderItem{{ProductID: "x"}}})
	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "items[0].quantity", verr.Field)
}

func TestTouchUserProfile_HistoryRules(t *testing.T) {
	svc, store := newService(t)
	ctx := context.Background()

	for i := 0; i < domain.MaxProfileHistory+5; i++ {
		require.NoError(t, svc.TouchUserProfile(ctx, "u1", shop, domain.ProfileSignals{ViewedProduct: fmt.Sprintf("p%d", i)}))
	}
	require.NoError(t, svc.TouchUserProfile(ctx, "u1", shop, domain.ProfileSignals{ViewedProduct: "p50", Brand: "Acme"}))
	require.NoError(t, svc.TouchUserProfile(ctx, "u1", shop, domain.ProfileSignals{Brand: "Acme"}))

	profile, err := store.FindProfile(ctx, shop, "u1")
	require.NoError(t, err)

	require.Len(t, profile.ViewedProducts, domain.MaxProfileHistory)
	assert.Equal(t, "p50", profile.ViewedProducts[len(profile.ViewedProducts)-1])
	assert.NotContains(t, []string(profile.ViewedProducts), "p0")
	assert.Equal(t, []string{"Acme"}, []string(profile.PreferredBrands))
}

func TestTouchUserProfile_StoreError(t *testing.T) {
	svc, store := newService(t)
	store.Fail("SaveProfile", errors.New("disk full"))

	err := svc.TouchUserProfile(context.Background(), "u1", shop, domain.ProfileSignals{Brand: "Acme"})
	require.Error(t, err)
	assert.True(t, domain.IsStoreError(err))
}

func TestRecordView_ProfileFailureKeepsStoredView(t *testing.T) {
	svc, store := newService(t)
	store.Fail("SaveProfile", errors.New("disk full"))
	ctx := context.Background()

	err := svc.RecordView(ctx, domain.ProductView{ProductID: "p1", ShopDomain: shop, SessionID: "s1", UserID: "u1"}, domain.ProductAttributes{})
	require.NoError(t, err)

	viewers, err := store.ViewersOf(ctx, shop, "p1")
	require.NoError(t, err)
	assert.Len(t, viewers, 1)

	_, err = store.FindProfile(ctx, shop, "u1")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestRecordOrder_ProfileFailureKeepsStoredOrder(t *testing.T) {
	svc, store := newService(t)
	store.Fail("SaveProfile", errors.New("disk full"))
	ctx := context.Background()

	order := domain.Order{
		OrderID:    "1002",
		ShopDomain: shop,
		UserID:     "u1",
		Items:      []domain.OrderItem{{ProductID: "x", Quantity: 1, Price: 10}},
	}
	require.NoError(t, svc.RecordOrder(ctx, order))
	require.NoError(t, svc.RecordCartEvent(ctx, domain.CartEvent{
		ProductID: "x", ShopDomain: shop, SessionID: "s1", UserID: "u1", Quantity: 1, EventType: domain.CartEventAdd,
	}))

	orders, err := store.OrdersContaining(ctx, shop, "x")
	require.NoError(t, err)
	assert.Equal(t, []string{"1002"}, orders)
}
