package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/agroshop-api/internal/apperr"
	"github.com/iliyamo/agroshop-api/internal/model"
	"github.com/iliyamo/agroshop-api/internal/repository"
)

// ProductHandler exposes the product catalogue and stock operations.
type ProductHandler struct {
	Products *repository.ProductRepo
}

func NewProductHandler(p *repository.ProductRepo) *ProductHandler {
	return &ProductHandler{Products: p}
}

type createProductReq struct {
	Name          string  `json:"name"`
	Type          string  `json:"type"`
	Brand         string  `json:"brand"`
	Unit          string  `json:"unit"`
	PricePerUnit  float64 `json:"price_per_unit"`
	StockQuantity float64 `json:"stock_quantity"`
	MinimumStock  float64 `json:"minimum_stock"`
	Description   *string `json:"description"`
}

type stockAdjustReq struct {
	Quantity  float64 `json:"quantity"`
	Operation string  `json:"operation"` // add or subtract
}

// List returns products filtered by type and a name/brand search term.
func (h *ProductHandler) List(c echo.Context) error {
	limit, offset := queryPage(c)
	f := repository.ProductFilter{
		Type:   c.QueryParam("type"),
		Search: c.QueryParam("search"),
		Limit:  limit,
		Offset: offset,
	}
	if f.Type != "" && !model.ValidProductType(f.Type) {
		return apperr.Validation("invalid product type")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	products, err := h.Products.List(ctx, f)
	if err != nil {
		return apperr.Database("list products failed", err)
	}
	return c.JSON(http.StatusOK, products)
}

func (h *ProductHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	p, err := h.Products.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrProductNotFound {
			return apperr.NotFound("product not found")
		}
		return apperr.Database("get product failed", err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *ProductHandler) Create(c echo.Context) error {
	var req createProductReq
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid body")
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return apperr.Validation("name is required")
	}
	if !model.ValidProductType(req.Type) {
		return apperr.Validation("invalid product type")
	}
	if req.PricePerUnit < 0 {
		return apperr.Validation("price_per_unit must not be negative")
	}
	if req.StockQuantity < 0 {
		req.StockQuantity = 0
	}
	if req.MinimumStock < 0 {
		req.MinimumStock = 0
	}

	p := model.Product{
		Name:          req.Name,
		Type:          model.ProductType(req.Type),
		Brand:         req.Brand,
		Unit:          req.Unit,
		PricePerUnit:  req.PricePerUnit,
		StockQuantity: req.StockQuantity,
		MinimumStock:  req.MinimumStock,
		Description:   req.Description,
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Products.Create(ctx, &p); err != nil {
		return apperr.Database("create product failed", err)
	}
	return c.JSON(http.StatusCreated, p)
}

// Update applies a partial patch.  Unknown or absent fields are left as-is.
func (h *ProductHandler) Update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var patch model.ProductPatch
	if err := c.Bind(&patch); err != nil {
		return apperr.Validation("invalid body")
	}
	if patch.Empty() {
		return apperr.Validation("no fields to update")
	}
	if patch.Type != nil && !model.ValidProductType(*patch.Type) {
		return apperr.Validation("invalid product type")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	p, err := h.Products.Update(ctx, id, patch)
	if err != nil {
		if err == repository.ErrProductNotFound {
			return apperr.NotFound("product not found")
		}
		return apperr.Database("update product failed", err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *ProductHandler) Delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Products.Delete(ctx, id); err != nil {
		if err == repository.ErrProductNotFound {
			return apperr.NotFound("product not found")
		}
		return apperr.Database("delete product failed", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// LowStock lists products whose stock fell below their minimum level.
func (h *ProductHandler) LowStock(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	products, err := h.Products.LowStock(ctx)
	if err != nil {
		return apperr.Database("low stock query failed", err)
	}
	return c.JSON(http.StatusOK, products)
}

// UpdateStock adds to or subtracts from a product's stock.  The arithmetic
// runs inside the database so concurrent adjustments never lose an update,
// and subtraction clamps at zero.
func (h *ProductHandler) UpdateStock(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req stockAdjustReq
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid body")
	}
	if req.Quantity <= 0 {
		return apperr.Validation("quantity must be positive")
	}

	var delta float64
	switch req.Operation {
	case "add":
		delta = req.Quantity
	case "subtract":
		delta = -req.Quantity
	default:
		return apperr.Validation("operation must be add or subtract")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	tx, err := h.Products.DB().BeginTx(ctx, nil)
	if err != nil {
		return apperr.Database("stock update failed", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := h.Products.AdjustStockTx(ctx, tx, id, delta); err != nil {
		if err == repository.ErrProductNotFound {
			return apperr.NotFound("product not found")
		}
		return apperr.Database("stock update failed", err)
	}
	stock, err := h.Products.StockTx(ctx, tx, id)
	if err != nil {
		return apperr.Database("stock update failed", err)
	}
	if err := tx.Commit(); err != nil {
		return apperr.Database("stock update failed", err)
	}
	committed = true

	return c.JSON(http.StatusOK, echo.Map{"id": id, "stock_quantity": stock})
}
