package router // route registration for the business resources

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/agroshop-api/internal/handler"
	"github.com/iliyamo/agroshop-api/internal/middleware"
	"github.com/iliyamo/agroshop-api/internal/model"
)

// RegisterAPI registers the product, sale, purchase and debt endpoints under
// /api.  Every route requires a valid session; routes that mutate data
// additionally require the admin role.
func RegisterAPI(
	e *echo.Echo,
	authorize echo.MiddlewareFunc,
	products *handler.ProductHandler,
	sales *handler.SaleHandler,
	purchases *handler.PurchaseHandler,
	debts *handler.DebtHandler,
) {
	g := e.Group("/api", authorize)
	adminOnly := middleware.RequireRole(model.RoleAdmin)

	// ---- Products ----
	g.GET("/products", products.List)
	g.GET("/products/low-stock", products.LowStock)
	g.GET("/products/:id", products.Get)
	g.POST("/products", products.Create, adminOnly)
	g.PUT("/products/:id", products.Update, adminOnly)
	g.PATCH("/products/:id", products.Update, adminOnly) // partial updates via PATCH as well
	g.PATCH("/products/:id/stock", products.UpdateStock, adminOnly)
	g.DELETE("/products/:id", products.Delete, adminOnly)

	// ---- Sales ----
	g.GET("/sales", sales.List)
	g.GET("/sales/daily-stats", sales.DailyStats)
	g.GET("/sales/:id", sales.Get)
	g.POST("/sales", sales.Create, adminOnly)
	g.PATCH("/sales/:id/payment", sales.Payment, adminOnly)
	g.DELETE("/sales/:id", sales.Delete, adminOnly)

	// ---- Purchases ----
	g.GET("/purchases", purchases.List)
	g.GET("/purchases/daily-stats", purchases.DailyStats)
	g.GET("/purchases/:id", purchases.Get)
	g.POST("/purchases", purchases.Create, adminOnly)
	g.PATCH("/purchases/:id/payment", purchases.Payment, adminOnly)
	g.DELETE("/purchases/:id", purchases.Delete, adminOnly)

	// ---- Debts ----
	g.GET("/debts", debts.List)
	g.GET("/debts/summary", debts.Summary)
	g.GET("/debts/:id", debts.Get)
	g.POST("/debts", debts.Create, adminOnly)
	g.PUT("/debts/:id", debts.Update, adminOnly)
	g.PATCH("/debts/:id", debts.Update, adminOnly)
	g.POST("/debts/:id/pay", debts.Pay, adminOnly)
	g.POST("/debts/mark-overdue", debts.MarkOverdue, adminOnly)
	g.DELETE("/debts/:id", debts.Delete, adminOnly)
}
