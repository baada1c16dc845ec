package rest

import (
	"context"
	"net/http"
	"novaReco/domain"
	"novaReco/pkg/logger"
	"strconv"
	"time"

	"github.com/AMFarhan21/fres"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type ProductService interface {
	EnsureProduct(ctx context.Context, attrs domain.ProductAttributes, shopDomain string) (*domain.Product, error)
	GetProduct(ctx context.Context, productID, shopDomain string) (*domain.Product, error)
	ListPopular(ctx context.Context, shopDomain string, limit int) ([]domain.Product, error)
}

type ProductHandler struct {
	productService ProductService
	validator      *validator.Validate
	timeout        time.Duration
}

func NewProductHandler(productService ProductService, timeout time.Duration) *ProductHandler {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &ProductHandler{
		productService: productService,
		validator:      validator.New(),
		timeout:        timeout,
	}
}

type EnsureProductRequest struct {
	ProductID        string   `json:"product_id"`
	ProductIDCamel   string   `json:"productId"`
	ShopDomain       string   `json:"shop_domain"`
	ShopDomainCamel  string   `json:"shopDomain"`
	Shop             string   `json:"shop"`
	Title            string   `json:"title"`
	ProductType      string   `json:"product_type"`
	ProductTypeCamel string   `json:"productType"`
	Type             string   `json:"type"`
	Vendor           string   `json:"vendor"`
	Price            *float64 `json:"price"`
	Tags             []string `json:"tags"`
	Collections      []string `json:"collections"`
}

type ensureProductInput struct {
	ProductID  string   `validate:"required,max=255"`
	ShopDomain string   `validate:"required,max=255"`
	Price      *float64 `validate:"omitempty,gte=0"`
}

func (r EnsureProductRequest) attributes() (domain.ProductAttributes, string) {
	return domain.ProductAttributes{
		ProductID:   firstNonEmpty(r.ProductID, r.ProductIDCamel),
		Title:       r.Title,
		Type:        firstNonEmpty(r.ProductType, r.ProductTypeCamel, r.Type),
		Vendor:      r.Vendor,
		Price:       r.Price,
		Tags:        r.Tags,
		Collections: r.Collections,
	}, firstNonEmpty(r.ShopDomain, r.ShopDomainCamel, r.Shop)
}

// POST /api/v1/products
func (h *ProductHandler) EnsureProduct(c echo.Context) error {
	var req EnsureProductRequest
	if err := c.Bind(&req); err != nil {
		logger.Error("Invalid request body", "error", err)
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	attrs, shop := req.attributes()
	if err := h.validator.Struct(&ensureProductInput{ProductID: attrs.ProductID, ShopDomain: shop, Price: attrs.Price}); err != nil {
		return c.JSON(http.StatusBadRequest, ResponseError{Message: err.Error()})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	product, err := h.productService.EnsureProduct(ctx, attrs, shop)
	if err != nil {
		logger.Error("Failed to ensure product", "shop", shop, "product_id", attrs.ProductID, "error", err)
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(product))
}

// GET /api/v1/products/:shop/:productId
func (h *ProductHandler) GetProduct(c echo.Context) error {
	shop := c.Param("shop")
	productID := c.Param("productId")

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	product, err := h.productService.GetProduct(ctx, productID, shop)
	if err != nil {
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(product))
}

// GET /api/v1/products/:shop/popular?limit=10
func (h *ProductHandler) ListPopular(c echo.Context) error {
	shop := c.Param("shop")

	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return c.JSON(http.StatusBadRequest, ResponseError{Message: "Invalid limit"})
		}
		limit = n
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	products, err := h.productService.ListPopular(ctx, shop, limit)
	if err != nil {
		logger.Error("Failed to list popular products", "shop", shop, "error", err)
		return writeError(c, err)
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(products))
}
