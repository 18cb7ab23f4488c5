package handler

import (
	"context"
	"math"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/agroshop-api/internal/apperr"
	"github.com/iliyamo/agroshop-api/internal/middleware"
	"github.com/iliyamo/agroshop-api/internal/model"
)

// dbTimeout bounds every database round-trip made on behalf of a request.
const dbTimeout = 5 * time.Second

// reqCtx derives a bounded context from the request.
func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), dbTimeout)
}

// currentUserID returns the authenticated user's ID stored by the
// authorization middleware.
func currentUserID(c echo.Context) (uint64, error) {
	uid, ok := c.Get(middleware.CtxUserID).(uint64)
	if !ok || uid == 0 {
		return 0, apperr.InvalidToken("unauthorized")
	}
	return uid, nil
}

// pathID parses the :id path parameter.
func pathID(c echo.Context) (uint64, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.Validation("invalid id")
	}
	return id, nil
}

// queryInt parses an integer query parameter with a default.
func queryInt(c echo.Context, name string, def int) int {
	v := c.QueryParam(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

// queryPage parses the limit/offset pagination parameters.  Negative values
// are clamped before they can reach a LIMIT/OFFSET clause, where MySQL would
// reject them.
func queryPage(c echo.Context) (limit, offset int) {
	limit = queryInt(c, "limit", 100)
	if limit < 1 {
		limit = 100
	}
	offset = queryInt(c, "offset", 0)
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// queryDate parses an optional YYYY-MM-DD query parameter.
func queryDate(c echo.Context, name string) (*time.Time, error) {
	v := c.QueryParam(name)
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return nil, apperr.Validation("invalid date for " + name + ", want YYYY-MM-DD")
	}
	return &t, nil
}

// lineItemEpsilon tolerates float rounding when checking client-supplied
// line totals against quantity × unit price.
const lineItemEpsilon = 0.01

// validateLineItems enforces the order-creation rules shared by sales and
// purchases: at least one item, positive quantities, non-negative prices,
// and a per-line total that matches quantity × unit price.  Client-supplied
// totals are never trusted blindly.  It returns the recomputed order total.
func validateLineItems(items []model.LineItem) (float64, error) {
	if len(items) == 0 {
		return 0, apperr.Validation("items is required")
	}
	var total float64
	for i, it := range items {
		if it.ProductID == 0 {
			return 0, apperr.Validation("items: product_id is required").
				WithExtra(map[string]any{"index": i})
		}
		if it.Quantity <= 0 {
			return 0, apperr.Validation("items: quantity must be positive").
				WithExtra(map[string]any{"index": i})
		}
		if it.UnitPrice < 0 || it.TotalPrice < 0 {
			return 0, apperr.Validation("items: prices must be non-negative").
				WithExtra(map[string]any{"index": i})
		}
		if math.Abs(it.TotalPrice-it.Quantity*it.UnitPrice) > lineItemEpsilon {
			return 0, apperr.Validation("items: total_price does not match quantity * unit_price").
				WithExtra(map[string]any{"index": i})
		}
		total += it.TotalPrice
	}
	return total, nil
}
