package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/agroshop-api/internal/apperr"
	"github.com/iliyamo/agroshop-api/internal/model"
	"github.com/iliyamo/agroshop-api/internal/repository"
)

// AdminHandler implements user administration.  All routes are behind the
// admin role gate.
type AdminHandler struct {
	Users  *repository.UserRepo
	Tokens *repository.TokenRepo
}

func NewAdminHandler(u *repository.UserRepo, t *repository.TokenRepo) *AdminHandler {
	return &AdminHandler{Users: u, Tokens: t}
}

type updateRoleReq struct {
	Role string `json:"role"`
}

type updateActiveReq struct {
	IsActive *bool `json:"is_active"`
}

// ListUsers returns all accounts ordered by id.
func (h *AdminHandler) ListUsers(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()

	users, err := h.Users.List(ctx)
	if err != nil {
		return apperr.Database("list users failed", err)
	}
	out := make([]userResp, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResp(u))
	}
	return c.JSON(http.StatusOK, out)
}

// UpdateRole switches a user between admin and user.
func (h *AdminHandler) UpdateRole(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req updateRoleReq
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid body")
	}
	if req.Role != model.RoleAdmin && req.Role != model.RoleUser {
		return apperr.Validation("invalid role")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Users.UpdateRole(ctx, id, req.Role); err != nil {
		if err == repository.ErrUserNotFound {
			return apperr.NotFound("user not found")
		}
		return apperr.Database("update role failed", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// UpdateActive toggles a user's active flag.  Deactivation takes effect on
// the user's next request: the authorization chokepoint re-checks the flag
// every time.
func (h *AdminHandler) UpdateActive(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req updateActiveReq
	if err := c.Bind(&req); err != nil || req.IsActive == nil {
		return apperr.Validation("is_active is required")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if err := h.Users.UpdateActive(ctx, id, *req.IsActive); err != nil {
		if err == repository.ErrUserNotFound {
			return apperr.NotFound("user not found")
		}
		return apperr.Database("update active failed", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// DeleteUser removes an account.  Its refresh sessions are revoked in the
// same transaction so no orphaned session can authenticate afterwards.
func (h *AdminHandler) DeleteUser(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	tx, err := h.Users.DB().BeginTx(ctx, nil)
	if err != nil {
		return apperr.Database("delete user failed", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	if err := h.Tokens.RevokeAllForUserTx(ctx, tx, id); err != nil {
		return apperr.Database("delete user failed", err)
	}
	if err := h.Users.DeleteTx(ctx, tx, id); err != nil {
		if err == repository.ErrUserNotFound {
			return apperr.NotFound("user not found")
		}
		return apperr.Database("delete user failed", err)
	}
	if err := tx.Commit(); err != nil {
		return apperr.Database("delete user failed", err)
	}
	committed = true

	return c.JSON(http.StatusOK, echo.Map{"success": true})
}
