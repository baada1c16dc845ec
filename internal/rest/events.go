package rest

import (
	"context"
	"net/http"
	"novaReco/domain"
	"novaReco/pkg/logger"
	"time"

	"github.com/AMFarhan21/fres"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type InteractionService interface {
	RecordView(ctx context.Context, view domain.ProductView, attrs domain.ProductAttributes) error
	RecordCartEvent(ctx context.Context, event domain.CartEvent) error
	RecordOrder(ctx context.Context, order domain.Order) error
	TouchUserProfile(ctx context.Context, userID, shopDomain string, signals domain.ProfileSignals) error
}

type EventHandler struct {
	interactions InteractionService
	validate     *validator.Validate
	timeout      time.Duration
}

func NewEventHandler(interactions InteractionService, timeout time.Duration) *EventHandler {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &EventHandler{
		interactions: interactions,
		validate:     validator.New(),
		timeout:      timeout,
	}
}

// identity carries the shop and shopper keys shared by every event payload.
type identity struct {
	ShopDomain      string `json:"shop_domain"`
	ShopDomainCamel string `json:"shopDomain"`
	Shop            string `json:"shop"`
	SessionID       string `json:"session_id"`
	SessionIDCamel  string `json:"sessionId"`
	UserID          string `json:"user_id"`
	UserIDCamel     string `json:"userId"`
}

func (i identity) shop() string    { return firstNonEmpty(i.ShopDomain, i.ShopDomainCamel, i.Shop) }
func (i identity) session() string { return firstNonEmpty(i.SessionID, i.SessionIDCamel) }
func (i identity) user() string    { return firstNonEmpty(i.UserID, i.UserIDCamel) }

type (
	ViewEventRequest struct {
		identity
		ProductID        string    `json:"product_id"`
		ProductIDCamel   string    `json:"productId"`
		VariantID        string    `json:"variant_id"`
		VariantIDCamel   string    `json:"variantId"`
		ViewedAt         time.Time `json:"viewed_at"`
		Timestamp        time.Time `json:"timestamp"`
		Title            string    `json:"title"`
		ProductType      string    `json:"product_type"`
		ProductTypeCamel string    `json:"productType"`
		Vendor           string    `json:"vendor"`
		Price            *float64  `json:"price"`
		Tags             []string  `json:"tags"`
		Collections      []string  `json:"collections"`
	}

	CartEventRequest struct {
		identity
		ProductID      string    `json:"product_id"`
		ProductIDCamel string    `json:"productId"`
		VariantID      string    `json:"variant_id"`
		VariantIDCamel string    `json:"variantId"`
		Quantity       int       `json:"quantity"`
		Price          float64   `json:"price"`
		EventType      string    `json:"event_type"`
		EventTypeCamel string    `json:"eventType"`
		Type           string    `json:"type"`
		Timestamp      time.Time `json:"timestamp"`
	}

	OrderItemRequest struct {
		ProductID      string  `json:"product_id"`
		ProductIDCamel string  `json:"productId"`
		VariantID      string  `json:"variant_id"`
		VariantIDCamel string  `json:"variantId"`
		Quantity       int     `json:"quantity"`
		Price          float64 `json:"price"`
	}

	OrderEventRequest struct {
		identity
		OrderID          string             `json:"order_id"`
		OrderIDCamel     string             `json:"orderId"`
		TotalPrice       float64            `json:"total_price"`
		TotalPriceCamel  float64            `json:"totalPrice"`
		CompletedAt      time.Time          `json:"completed_at"`
		CompletedAtCamel time.Time          `json:"completedAt"`
		Items            []OrderItemRequest `json:"items"`
	}

	ProfileTouchRequest struct {
		identity
		ViewedProductID      string   `json:"viewed_product_id"`
		ViewedProductIDCamel string   `json:"viewedProductId"`
		PurchasedProducts    []string `json:"purchased_products"`
		Category             string   `json:"category"`
		Brand                string   `json:"brand"`
	}

	eventInput struct {
		ProductID  string `validate:"required,max=255"`
		ShopDomain string `validate:"required,max=255"`
		SessionID  string `validate:"required,max=255"`
	}
)

func firstTime(values ...time.Time) time.Time {
	for _, v := range values {
		if !v.IsZero() {
			return v
		}
	}
	return time.Time{}
}

// POST /api/v1/events/views
func (h *EventHandler) RecordView(c echo.Context) error {
	var req ViewEventRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	view := domain.ProductView{
		ProductID:  firstNonEmpty(req.ProductID, req.ProductIDCamel),
		VariantID:  firstNonEmpty(req.VariantID, req.VariantIDCamel),
		ShopDomain: req.shop(),
		SessionID:  req.session(),
		UserID:     req.user(),
		ViewedAt:   firstTime(req.ViewedAt, req.Timestamp),
	}
	if err := h.validate.Struct(&eventInput{ProductID: view.ProductID, ShopDomain: view.ShopDomain, SessionID: view.SessionID}); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	attrs := domain.ProductAttributes{
		Title:       req.Title,
		Type:        firstNonEmpty(req.ProductType, req.ProductTypeCamel),
		Vendor:      req.Vendor,
		Price:       req.Price,
		Tags:        req.Tags,
		Collections: req.Collections,
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	if err := h.interactions.RecordView(ctx, view, attrs); err != nil {
		logger.Error("Failed to record product view", "shop", view.ShopDomain, "product_id", view.ProductID, "error", err)
		return writeError(c, err)
	}

	return c.JSON(http.StatusCreated, fres.Response.StatusCreated("view recorded"))
}

// POST /api/v1/events/cart
func (h *EventHandler) RecordCartEvent(c echo.Context) error {
	var req CartEventRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	event := domain.CartEvent{
		ProductID:  firstNonEmpty(req.ProductID, req.ProductIDCamel),
		VariantID:  firstNonEmpty(req.VariantID, req.VariantIDCamel),
		Quantity:   req.Quantity,
		Price:      req.Price,
		ShopDomain: req.shop(),
		SessionID:  req.session(),
		UserID:     req.user(),
		EventType:  domain.CartEventType(firstNonEmpty(req.EventType, req.EventTypeCamel, req.Type)),
		Timestamp:  req.Timestamp,
	}
	if event.Quantity == 0 {
		event.Quantity = 1
	}
	if err := h.validate.Struct(&eventInput{ProductID: event.ProductID, ShopDomain: event.ShopDomain, SessionID: event.SessionID}); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	if err := h.interactions.RecordCartEvent(ctx, event); err != nil {
		logger.Error("Failed to record cart event", "shop", event.ShopDomain, "product_id", event.ProductID, "error", err)
		return writeError(c, err)
	}

	return c.JSON(http.StatusCreated, fres.Response.StatusCreated("cart event recorded"))
}

// POST /api/v1/events/orders
func (h *EventHandler) RecordOrder(c echo.Context) error {
	var req OrderEventRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	order := domain.Order{
		OrderID:     firstNonEmpty(req.OrderID, req.OrderIDCamel),
		ShopDomain:  req.shop(),
		UserID:      req.user(),
		SessionID:   req.session(),
		TotalPrice:  firstPositive(req.TotalPrice, req.TotalPriceCamel),
		CompletedAt: firstTime(req.CompletedAt, req.CompletedAtCamel),
		Items:       make([]domain.OrderItem, 0, len(req.Items)),
	}
	for _, item := range req.Items {
		quantity := item.Quantity
		if quantity == 0 {
			quantity = 1
		}
		order.Items = append(order.Items, domain.OrderItem{
			ProductID: firstNonEmpty(item.ProductID, item.ProductIDCamel),
			VariantID: firstNonEmpty(item.VariantID, item.VariantIDCamel),
			Quantity:  quantity,
			Price:     item.Price,
		})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	if err := h.interactions.RecordOrder(ctx, order); err != nil {
		logger.Error("Failed to record order", "shop", order.ShopDomain, "order_id", order.OrderID, "error", err)
		return writeError(c, err)
	}

	return c.JSON(http.StatusCreated, fres.Response.StatusCreated("order recorded"))
}

// POST /api/v1/users/profile
func (h *EventHandler) TouchUserProfile(c echo.Context) error {
	var req ProfileTouchRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	userID, shop := req.user(), req.shop()
	if userID == "" || shop == "" {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: "user_id and shop_domain are required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	err := h.interactions.TouchUserProfile(ctx, userID, shop, domain.ProfileSignals{
		ViewedProduct:     firstNonEmpty(req.ViewedProductID, req.ViewedProductIDCamel),
		PurchasedProducts: req.PurchasedProducts,
		Category:          req.Category,
		Brand:             req.Brand,
	})
	if err != nil {
		logger.Error("Failed to touch user profile", "shop", shop, "user_id", userID, "error", err)
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK("profile updated"))
}
