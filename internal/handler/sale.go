package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/agroshop-api/internal/apperr"
	"github.com/iliyamo/agroshop-api/internal/model"
	"github.com/iliyamo/agroshop-api/internal/queue"
	"github.com/iliyamo/agroshop-api/internal/repository"
	queue_publisher "github.com/iliyamo/agroshop-api/internal/service"
)

// SaleHandler records sales and keeps product stock in lockstep with them.
// Creating a sale subtracts each line's quantity from stock inside the same
// transaction as the sale rows; deleting a sale adds the quantities back.
type SaleHandler struct {
	Sales    *repository.SaleRepo
	Products *repository.ProductRepo
}

func NewSaleHandler(s *repository.SaleRepo, p *repository.ProductRepo) *SaleHandler {
	return &SaleHandler{Sales: s, Products: p}
}

type createSaleReq struct {
	CustomerName    string           `json:"customer_name"`
	CustomerPhone   *string          `json:"customer_phone"`
	CustomerAddress *string          `json:"customer_address"`
	Notes           *string          `json:"notes"`
	SaleDate        *time.Time       `json:"sale_date"`
	Items           []model.LineItem `json:"items"`
}

type paymentReq struct {
	Amount float64 `json:"amount"`
}

func orderFilterFrom(c echo.Context) (repository.OrderFilter, error) {
	start, err := queryDate(c, "start_date")
	if err != nil {
		return repository.OrderFilter{}, err
	}
	end, err := queryDate(c, "end_date")
	if err != nil {
		return repository.OrderFilter{}, err
	}
	status := c.QueryParam("payment_status")
	if status != "" && !model.ValidPaymentStatus(status) {
		return repository.OrderFilter{}, apperr.Validation("invalid payment status")
	}
	limit, offset := queryPage(c)
	return repository.OrderFilter{
		StartDate: start,
		EndDate:   end,
		Status:    status,
		Name:      c.QueryParam("search"),
		Limit:     limit,
		Offset:    offset,
	}, nil
}

func (h *SaleHandler) List(c echo.Context) error {
	f, err := orderFilterFrom(c)
	if err != nil {
		return err
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	sales, err := h.Sales.List(ctx, f)
	if err != nil {
		return apperr.Database("list sales failed", err)
	}
	return c.JSON(http.StatusOK, sales)
}

func (h *SaleHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	s, err := h.Sales.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrSaleNotFound {
			return apperr.NotFound("sale not found")
		}
		return apperr.Database("get sale failed", err)
	}
	return c.JSON(http.StatusOK, s)
}

// Create records a sale.  The header, its items, and the stock subtraction
// for every item commit or roll back together.  After a successful commit
// the handler checks which of the touched products fell to or below their
// minimum and publishes a low-stock event for each, off the request path.
func (h *SaleHandler) Create(c echo.Context) error {
	var req createSaleReq
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid body")
	}
	req.CustomerName = strings.TrimSpace(req.CustomerName)
	if req.CustomerName == "" {
		return apperr.Validation("customer_name is required")
	}
	total, err := validateLineItems(req.Items)
	if err != nil {
		return err
	}

	saleDate := time.Now().UTC()
	if req.SaleDate != nil {
		saleDate = *req.SaleDate
	}
	// Every sale starts unpaid; payments arrive only through the payment
	// endpoint so the paid amount can never skip the lock-and-cap path.
	s := model.Sale{
		CustomerName:    req.CustomerName,
		CustomerPhone:   req.CustomerPhone,
		CustomerAddress: req.CustomerAddress,
		TotalAmount:     total,
		PaidAmount:      0,
		PaymentStatus:   model.PaymentPending,
		Notes:           req.Notes,
		SaleDate:        saleDate,
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	tx, err := h.Sales.DB().BeginTx(ctx, nil)
	if err != nil {
		return apperr.Database("create sale failed", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := h.Sales.CreateTx(ctx, tx, &s); err != nil {
		return apperr.Database("create sale failed", err)
	}
	if err := h.Sales.InsertItemsTx(ctx, tx, s.ID, req.Items); err != nil {
		return apperr.Database("create sale failed", err)
	}
	for _, it := range req.Items {
		if err := h.Products.AdjustStockTx(ctx, tx, it.ProductID, -it.Quantity); err != nil {
			if err == repository.ErrProductNotFound {
				return apperr.Validation("unknown product").
					WithExtra(map[string]any{"product_id": it.ProductID})
			}
			return apperr.Database("create sale failed", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return apperr.Database("create sale failed", err)
	}
	committed = true

	h.alertLowStock(ctx, s.ID, req.Items)

	created, err := h.Sales.GetByID(ctx, s.ID)
	if err != nil {
		return apperr.Database("create sale failed", err)
	}
	return c.JSON(http.StatusCreated, created)
}

// alertLowStock publishes a stock.low event for every product of the sale
// that now sits at or below its minimum.  Broker failures are ignored; the
// sale is already committed.
func (h *SaleHandler) alertLowStock(ctx context.Context, saleID uint64, items []model.LineItem) {
	ids := make([]uint64, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ProductID)
	}
	low, err := h.Products.BelowMinimum(ctx, ids)
	if err != nil || len(low) == 0 {
		return
	}
	occurredAt := time.Now().UTC().Format(time.RFC3339)
	for _, p := range low {
		ev := queue.StockLowEvent{
			ProductID:     p.ID,
			ProductName:   p.Name,
			ProductType:   string(p.Type),
			Unit:          p.Unit,
			StockQuantity: p.StockQuantity,
			MinimumStock:  p.MinimumStock,
			SaleID:        saleID,
			OccurredAt:    occurredAt,
		}
		go func(ev queue.StockLowEvent) {
			pubCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = queue_publisher.PublishStockLow(pubCtx, ev)
		}(ev)
	}
}

// Payment records an additional payment against a sale.  The row is locked
// for the duration so concurrent payments serialize; the paid amount never
// decreases and never exceeds the total.
func (h *SaleHandler) Payment(c echo.Context) error {
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

	tx, err := h.Sales.DB().BeginTx(ctx, nil)
	if err != nil {
		return apperr.Database("record payment failed", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	total, paid, err := h.Sales.PaymentForUpdateTx(ctx, tx, id)
	if err != nil {
		if err == repository.ErrSaleNotFound {
			return apperr.NotFound("sale not found")
		}
		return apperr.Database("record payment failed", err)
	}
	newPaid, status := model.ApplyPayment(total, paid, req.Amount)
	if err := h.Sales.SetPaymentTx(ctx, tx, id, newPaid, status); err != nil {
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

// Delete removes a sale and returns its items' quantities to stock, all in
// one transaction.
func (h *SaleHandler) Delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	tx, err := h.Sales.DB().BeginTx(ctx, nil)
	if err != nil {
		return apperr.Database("delete sale failed", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	items, err := h.Sales.ItemsTx(ctx, tx, id)
	if err != nil {
		return apperr.Database("delete sale failed", err)
	}
	for _, it := range items {
		if err := h.Products.AdjustStockTx(ctx, tx, it.ProductID, it.Quantity); err != nil {
			// The product may have been deleted since the sale was made;
			// the sale itself must still be removable.
			if err != repository.ErrProductNotFound {
				return apperr.Database("delete sale failed", err)
			}
		}
	}
	if err := h.Sales.DeleteItemsTx(ctx, tx, id); err != nil {
		return apperr.Database("delete sale failed", err)
	}
	if err := h.Sales.DeleteHeaderTx(ctx, tx, id); err != nil {
		if err == repository.ErrSaleNotFound {
			return apperr.NotFound("sale not found")
		}
		return apperr.Database("delete sale failed", err)
	}
	if err := tx.Commit(); err != nil {
		return apperr.Database("delete sale failed", err)
	}
	committed = true

	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// DailyStats summarizes a single day's sales.  Defaults to today.
func (h *SaleHandler) DailyStats(c echo.Context) error {
	day := time.Now().UTC()
	if d, err := queryDate(c, "date"); err != nil {
		return err
	} else if d != nil {
		day = *d
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	stats, err := h.Sales.DailyStats(ctx, day)
	if err != nil {
		return apperr.Database("daily stats failed", err)
	}
	return c.JSON(http.StatusOK, stats)
}
