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

// DebtHandler manages customer debts.  A debt's outstanding amount only
// moves through Pay, which locks the row, subtracts the payment, and floors
// the result at zero.
type DebtHandler struct {
	Debts *repository.DebtRepo
}

func NewDebtHandler(d *repository.DebtRepo) *DebtHandler {
	return &DebtHandler{Debts: d}
}

type createDebtReq struct {
	CustomerName  string     `json:"customer_name"`
	CustomerPhone *string    `json:"customer_phone"`
	Amount        float64    `json:"amount"`
	Description   string     `json:"description"`
	DueDate       *time.Time `json:"due_date"`
	Status        string     `json:"status"`
}

type debtPayReq struct {
	Amount float64 `json:"amount"`
}

func (h *DebtHandler) List(c echo.Context) error {
	status := c.QueryParam("status")
	if status != "" && !model.ValidPaymentStatus(status) {
		return apperr.Validation("invalid status")
	}
	limit, offset := queryPage(c)
	f := repository.DebtFilter{
		Status:      status,
		Name:        c.QueryParam("search"),
		OverdueOnly: c.QueryParam("overdue_only") == "true",
		Limit:       limit,
		Offset:      offset,
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	debts, err := h.Debts.List(ctx, f)
	if err != nil {
		return apperr.Database("list debts failed", err)
	}
	return c.JSON(http.StatusOK, debts)
}

func (h *DebtHandler) Get(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	d, err := h.Debts.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrDebtNotFound {
			return apperr.NotFound("debt not found")
		}
		return apperr.Database("get debt failed", err)
	}
	return c.JSON(http.StatusOK, d)
}

func (h *DebtHandler) Create(c echo.Context) error {
	var req createDebtReq
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid body")
	}
	req.CustomerName = strings.TrimSpace(req.CustomerName)
	if req.CustomerName == "" {
		return apperr.Validation("customer_name is required")
	}
	if req.Amount < 0 {
		return apperr.Validation("amount must not be negative")
	}
	if req.Status == "" {
		req.Status = string(model.PaymentPending)
	}
	if !model.ValidPaymentStatus(req.Status) {
		return apperr.Validation("invalid status")
	}

	d := model.Debt{
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		Amount:        req.Amount,
		Description:   req.Description,
		DueDate:       req.DueDate,
		Status:        model.PaymentStatus(req.Status),
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Debts.Create(ctx, &d); err != nil {
		return apperr.Database("create debt failed", err)
	}
	return c.JSON(http.StatusCreated, d)
}

func (h *DebtHandler) Update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var patch model.DebtPatch
	if err := c.Bind(&patch); err != nil {
		return apperr.Validation("invalid body")
	}
	if patch.Empty() {
		return apperr.Validation("no fields to update")
	}
	if patch.Status != nil && !model.ValidPaymentStatus(*patch.Status) {
		return apperr.Validation("invalid status")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	d, err := h.Debts.Update(ctx, id, patch)
	if err != nil {
		if err == repository.ErrDebtNotFound {
			return apperr.NotFound("debt not found")
		}
		return apperr.Database("update debt failed", err)
	}
	return c.JSON(http.StatusOK, d)
}

// Pay applies a payment to a debt.  The row is locked so concurrent
// payments serialize; the amount never drops below zero.
func (h *DebtHandler) Pay(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req debtPayReq
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid body")
	}
	if req.Amount <= 0 {
		return apperr.Validation("amount must be positive")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	tx, err := h.Debts.DB().BeginTx(ctx, nil)
	if err != nil {
		return apperr.Database("debt payment failed", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	amount, status, err := h.Debts.ForUpdateTx(ctx, tx, id)
	if err != nil {
		if err == repository.ErrDebtNotFound {
			return apperr.NotFound("debt not found")
		}
		return apperr.Database("debt payment failed", err)
	}
	newAmount, newStatus := model.ApplyDebtPayment(amount, req.Amount, status)
	if err := h.Debts.SetAmountTx(ctx, tx, id, newAmount, newStatus); err != nil {
		return apperr.Database("debt payment failed", err)
	}
	if err := tx.Commit(); err != nil {
		return apperr.Database("debt payment failed", err)
	}
	committed = true

	return c.JSON(http.StatusOK, echo.Map{
		"id":     id,
		"amount": newAmount,
		"status": newStatus,
	})
}

func (h *DebtHandler) Delete(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Debts.Delete(ctx, id); err != nil {
		if err == repository.ErrDebtNotFound {
			return apperr.NotFound("debt not found")
		}
		return apperr.Database("delete debt failed", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// Summary returns outstanding totals bucketed by status.
func (h *DebtHandler) Summary(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	s, err := h.Debts.Summary(ctx)
	if err != nil {
		return apperr.Database("debt summary failed", err)
	}
	return c.JSON(http.StatusOK, s)
}

// MarkOverdue flips every pending or partial debt whose due date has passed
// to overdue.  Running it twice in a row is a no-op the second time.
func (h *DebtHandler) MarkOverdue(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	n, err := h.Debts.MarkOverdue(ctx, time.Now().UTC())
	if err != nil {
		return apperr.Database("mark overdue failed", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"updated": n})
}
