package router // dashboard routes with response caching

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/agroshop-api/internal/handler"
)

// RegisterDashboard registers the read-only aggregate endpoints under
// /api/dashboard.  The cache middleware short-circuits repeated GETs so the
// heavier aggregate queries do not hit the database on every page load;
// pass nil to disable caching (e.g. when Redis is not configured).
func RegisterDashboard(e *echo.Echo, authorize echo.MiddlewareFunc, cache echo.MiddlewareFunc, d *handler.DashboardHandler) {
	mws := []echo.MiddlewareFunc{authorize}
	if cache != nil {
		mws = append(mws, cache)
	}
	g := e.Group("/api/dashboard", mws...)

	g.GET("/stats", d.Stats)
	g.GET("/sales-trend", d.SalesTrend)
	g.GET("/top-products", d.TopProducts)
	g.GET("/monthly-summary", d.Monthly)
}
