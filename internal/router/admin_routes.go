package router // user administration routes

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/agroshop-api/internal/handler"
	"github.com/iliyamo/agroshop-api/internal/middleware"
	"github.com/iliyamo/agroshop-api/internal/model"
)

// RegisterAdmin registers user management endpoints under /api/admin/users.
// All routes require a valid session and the admin role.
func RegisterAdmin(e *echo.Echo, authorize echo.MiddlewareFunc, admin *handler.AdminHandler) {
	g := e.Group(
		"/api/admin/users",
		authorize,
		middleware.RequireRole(model.RoleAdmin),
	)

	g.GET("", admin.ListUsers)
	g.PATCH("/:id/role", admin.UpdateRole)
	g.PATCH("/:id/active", admin.UpdateActive)
	g.DELETE("/:id", admin.DeleteUser)
}
