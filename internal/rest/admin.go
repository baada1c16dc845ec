package rest

import (
	"context"
	"net/http"
	"novaReco/business/precompute"
	"novaReco/pkg/logger"
	"time"

	"github.com/AMFarhan21/fres"
	"github.com/labstack/echo/v4"
)

type (
	RecomputeTrigger interface {
		Trigger(shopDomain string) (precompute.Ack, error)
	}

	ProductRecomputer interface {
		RecomputeProduct(ctx context.Context, productID, shopDomain string) (int, error)
	}

	PopularityRecomputer interface {
		Recompute(ctx context.Context, shopDomain string, windowDays int) (int, error)
	}

	AdminHandler struct {
		trigger    RecomputeTrigger
		products   ProductRecomputer
		popularity PopularityRecomputer
		windowDays int
		timeout    time.Duration
	}

	RecomputeRequest struct {
		ShopDomain      string `json:"shop_domain" query:"shop_domain"`
		ShopDomainCamel string `json:"shopDomain" query:"shopDomain"`
		Shop            string `json:"shop" query:"shop"`
		ProductID       string `json:"product_id" query:"product_id"`
		ProductIDCamel  string `json:"productId" query:"productId"`
	}

	PopularityRequest struct {
		ShopDomain      string `json:"shop_domain" query:"shop_domain"`
		ShopDomainCamel string `json:"shopDomain" query:"shopDomain"`
		Shop            string `json:"shop" query:"shop"`
		WindowDays      int    `json:"window_days" query:"window_days"`
	}
)

func NewAdminHandler(trigger RecomputeTrigger, products ProductRecomputer, popularity PopularityRecomputer, windowDays int, timeout time.Duration) *AdminHandler {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &AdminHandler{
		trigger:    trigger,
		products:   products,
		popularity: popularity,
		windowDays: windowDays,
		timeout:    timeout,
	}
}

// POST /api/v1/admin/recommendations/recompute
//
// Without a product id the whole shop is recomputed in the background and the
// call answers 202 with the job acknowledgement. With one, that product's
// edges are rebuilt before answering.
func (h *AdminHandler) Recompute(c echo.Context) error {
	var req RecomputeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	shop := firstNonEmpty(req.ShopDomain, req.ShopDomainCamel, req.Shop)
	if shop == "" {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: "shop_domain is required"})
	}

	if productID := firstNonEmpty(req.ProductID, req.ProductIDCamel); productID != "" {
		ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
		defer cancel()

		edges, err := h.products.RecomputeProduct(ctx, productID, shop)
		if err != nil {
			logger.Error("Failed to recompute product", "shop", shop, "product_id", productID, "error", err)
			return writeError(c, err)
		}

		return c.JSON(http.StatusOK, fres.Response.StatusOK(map[string]interface{}{
			"shop_domain": shop,
			"product_id":  productID,
			"edges":       edges,
		}))
	}

	ack, err := h.trigger.Trigger(shop)
	if err != nil {
		logger.Error("Failed to trigger recompute", "shop", shop, "error", err)
		return writeError(c, err)
	}

	return c.JSON(http.StatusAccepted, map[string]interface{}{
		"message": "recompute accepted",
		"job":     ack,
	})
}

// POST /api/v1/admin/popularity/recompute
func (h *AdminHandler) RecomputePopularity(c echo.Context) error {
	var req PopularityRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	shop := firstNonEmpty(req.ShopDomain, req.ShopDomainCamel, req.Shop)
	if shop == "" {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: "shop_domain is required"})
	}
	window := req.WindowDays
	if window <= 0 {
		window = h.windowDays
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	updated, err := h.popularity.Recompute(ctx, shop, window)
	if err != nil {
		logger.Error("Failed to recompute popularity", "shop", shop, "error", err)
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(map[string]interface{}{
		"shop_domain": shop,
		"window_days": window,
		"updated":     updated,
	}))
}
