package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/agroshop-api/internal/apperr"
	"github.com/iliyamo/agroshop-api/internal/repository"
)

// DashboardHandler serves the read-only aggregate views.  These endpoints
// are the natural fit for the Redis response cache wired in the router.
type DashboardHandler struct {
	Dashboard *repository.DashboardRepo
}

func NewDashboardHandler(d *repository.DashboardRepo) *DashboardHandler {
	return &DashboardHandler{Dashboard: d}
}

func (h *DashboardHandler) Stats(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	s, err := h.Dashboard.Stats(ctx)
	if err != nil {
		return apperr.Database("dashboard stats failed", err)
	}
	return c.JSON(http.StatusOK, s)
}

// SalesTrend returns per-day revenue buckets for the last N days (default 30,
// capped at 365).
func (h *DashboardHandler) SalesTrend(c echo.Context) error {
	days := queryInt(c, "days", 30)
	if days < 1 {
		days = 1
	}
	if days > 365 {
		days = 365
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	trend, err := h.Dashboard.SalesTrend(ctx, days)
	if err != nil {
		return apperr.Database("sales trend failed", err)
	}
	return c.JSON(http.StatusOK, trend)
}

// TopProducts returns the best sellers by quantity sold (default 10).
func (h *DashboardHandler) TopProducts(c echo.Context) error {
	limit := queryInt(c, "limit", 10)
	if limit < 1 {
		limit = 1
	}
	if limit > 100 {
		limit = 100
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	top, err := h.Dashboard.TopProducts(ctx, limit)
	if err != nil {
		return apperr.Database("top products failed", err)
	}
	return c.JSON(http.StatusOK, top)
}

// Monthly returns the income/expense/profit summary for a month, defaulting
// to the current one.
func (h *DashboardHandler) Monthly(c echo.Context) error {
	now := time.Now().UTC()
	year := queryInt(c, "year", now.Year())
	month := queryInt(c, "month", int(now.Month()))
	if month < 1 || month > 12 {
		return apperr.Validation("month must be between 1 and 12")
	}
	if year < 2000 || year > 2200 {
		return apperr.Validation("invalid year")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	summary, err := h.Dashboard.Monthly(ctx, year, month)
	if err != nil {
		return apperr.Database("monthly summary failed", err)
	}
	return c.JSON(http.StatusOK, summary)
}
