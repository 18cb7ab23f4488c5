package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/agroshop-api/internal/apperr"
	"github.com/iliyamo/agroshop-api/internal/model"
	"github.com/iliyamo/agroshop-api/internal/repository"
)

// PurchaseHandler is the mirror image of SaleHandler for supplier orders.
// Creating a purchase adds each line's quantity to stock; deleting one
// subtracts it again (clamped at zero in case the goods were already sold).
type PurchaseHandler struct {
	Purchases *repository.PurchaseRepo
	Products  *repository.ProductRepo
}

func NewPurchaseHandler(p *repository.PurchaseRepo, pr *repository.ProductRepo) *PurchaseHandler {
	return &PurchaseHandler{Purchases: p, Products: pr}
}

type createPurchaseReq struct {
	SupplierName    string           `json:"supplier_name"`
	SupplierPhone   *string          `json:"supplier_phone"`
	SupplierAddress *string          `json:"supplier_address"`
	Notes           *string          `json:"notes"`
	PurchaseDate    *time.Time       `json:"purchase_date"`
	Items           []model.LineItem `json:"items"`
}

func (h *PurchaseHandler) List(c echo.Context) error {
	f, err := orderFilterFrom(c)
	if err != nil {
		return err
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	purchases, err := h.Purchases.List(ctx, f)
	if err != nil {
		return apperr.Database("list purchases failed", err)
	}
	return c.JSON(http.StatusOK, purchases)
}

func (h *PurchaseHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	p, err := h.Purchases.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrPurchaseNotFound {
			return apperr.NotFound("purchase not found")
		}
		return apperr.Database("get purchase failed", err)
	}
	return c.JSON(http.StatusOK, p)
}

// Create records a purchase.  Header, items, and the stock addition for
// every item commit or roll back together.
func (h *PurchaseHandler) Create(c echo.Context) error {
	var req createPurchaseReq
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid body")
	}
	req.SupplierName = strings.TrimSpace(req.SupplierName)
	if req.SupplierName == "" {
		return apperr.Validation("supplier_name is required")
	}
	total, err := validateLineItems(req.Items)
	if err != nil {
		return err
	}

	purchaseDate := time.Now().UTC()
	if req.PurchaseDate != nil {
		purchaseDate = *req.PurchaseDate
	}
	// Purchases start unpaid like sales; the payment endpoint is the only
	// way to raise the paid amount.
	p := model.Purchase{
		SupplierName:    req.SupplierName,
		SupplierPhone:   req.SupplierPhone,
		SupplierAddress: req.SupplierAddress,
		TotalAmount:     total,
		PaidAmount:      0,
		PaymentStatus:   model.PaymentPending,
		Notes:           req.Notes,
		PurchaseDate:    purchaseDate,
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	tx, err := h.Purchases.DB().BeginTx(ctx, nil)
	if err != nil {
		return apperr.Database("create purchase failed", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := h.Purchases.CreateTx(ctx, tx, &p); err != nil {
		return apperr.Database("create purchase failed", err)
	}
	if err := h.Purchases.InsertItemsTx(ctx, tx, p.ID, req.Items); err != nil {
		return apperr.Database("create purchase failed", err)
	}
	for _, it := range req.Items {
		if err := h.Products.AdjustStockTx(ctx, tx, it.ProductID, it.Quantity); err != nil {
			if err == repository.ErrProductNotFound {
				return apperr.Validation("unknown product").
					WithExtra(map[string]any{"product_id": it.ProductID})
			}
			return apperr.Database("create purchase failed", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return apperr.Database("create purchase failed", err)
	}
	committed = true

	created, err := h.Purchases.GetByID(ctx, p.ID)
	if err != nil {
		return apperr.Database("create purchase failed", err)
	}
	return c.JSON(http.StatusCreated, created)
}

// Payment records an additional payment against a purchase, under the same
// lock-and-cap rules as sale payments.
func (h *PurchaseHandler) Payment(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req paymentReq
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid body")
	}
	if req.Amount <= 0 {
		return apperr.Validation("amount must be positive")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	tx, err := h.Purchases.DB().BeginTx(ctx, nil)
	if err != nil {
		return apperr.Database("record payment failed", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	total, paid, err := h.Purchases.PaymentForUpdateTx(ctx, tx, id)
	if err != nil {
		if err == repository.ErrPurchaseNotFound {
			return apperr.NotFound("purchase not found")
		}
		return apperr.Database("record payment failed", err)
	}
	newPaid, status := model.ApplyPayment(total, paid, req.Amount)
	if err := h.Purchases.SetPaymentTx(ctx, tx, id, newPaid, status); err != nil {
		return apperr.Database("record payment failed", err)
	}
	if err := tx.Commit(); err != nil {
		return apperr.Database("record payment failed", err)
	}
	committed = true

	return c.JSON(http.StatusOK, echo.Map{
		"id":             id,
		"total_amount":   total,
		"paid_amount":    newPaid,
		"payment_status": status,
	})
}

// Delete removes a purchase and subtracts its items' quantities from stock.
// If the goods were already partially sold the subtraction clamps at zero
// rather than going negative.
func (h *PurchaseHandler) Delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	tx, err := h.Purchases.DB().BeginTx(ctx, nil)
	if err != nil {
		return apperr.Database("delete purchase failed", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	items, err := h.Purchases.ItemsTx(ctx, tx, id)
	if err != nil {
		return apperr.Database("delete purchase failed", err)
	}
	for _, it := range items {
		if err := h.Products.AdjustStockTx(ctx, tx, it.ProductID, -it.Quantity); err != nil {
			if err != repository.ErrProductNotFound {
				return apperr.Database("delete purchase failed", err)
			}
		}
	}
	if err := h.Purchases.DeleteItemsTx(ctx, tx, id); err != nil {
		return apperr.Database("delete purchase failed", err)
	}
	if err := h.Purchases.DeleteHeaderTx(ctx, tx, id); err != nil {
		if err == repository.ErrPurchaseNotFound {
			return apperr.NotFound("purchase not found")
		}
		return apperr.Database("delete purchase failed", err)
	}
	if err := tx.Commit(); err != nil {
		return apperr.Database("delete purchase failed", err)
	}
	committed = true

	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// DailyStats summarizes a single day's purchases.  Defaults to today.
func (h *PurchaseHandler) DailyStats(c echo.Context) error {
	day := time.Now().UTC()
	if d, err := queryDate(c, "date"); err != nil {
		return err
	} else if d != nil {
		day = *d
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	stats, err := h.Purchases.DailyStats(ctx, day)
	if err != nil {
		return apperr.Database("daily stats failed", err)
	}
	return c.JSON(http.StatusOK, stats)
}
