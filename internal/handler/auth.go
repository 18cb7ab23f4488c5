package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/agroshop-api/internal/apperr"
	"github.com/iliyamo/agroshop-api/internal/config"
	"github.com/iliyamo/agroshop-api/internal/model"
	"github.com/iliyamo/agroshop-api/internal/repository"
	"github.com/iliyamo/agroshop-api/internal/utils"
)

// AuthHandler bundles dependencies for the auth endpoints.
type AuthHandler struct {
	Cfg    config.Config
	Users  *repository.UserRepo
	Tokens *repository.TokenRepo
}

func NewAuthHandler(cfg config.Config, u *repository.UserRepo, t *repository.TokenRepo) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u, Tokens: t}
}

// ----- DTOs -----

type registerReq struct {
	Email    string  `json:"email"`
	Password string  `json:"password"`
	FullName *string `json:"full_name"`
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type logoutReq struct {
	Token string `json:"token"`
}

type tokenResp struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"` // access token lifetime in seconds
}

type userResp struct {
	ID       uint64  `json:"id"`
	Email    string  `json:"email"`
	FullName *string `json:"full_name"`
	Role     string  `json:"role"`
	IsActive bool    `json:"is_active"`
}

func toUserResp(u model.User) userResp {
	return userResp{ID: u.ID, Email: u.Email, FullName: u.FullName, Role: u.Role, IsActive: u.IsActive}
}

// Register creates a user account.  The very first account becomes admin;
// every later one is a regular user.  The count check and the insert share
// one transaction so two concurrent first registrations cannot both win the
// admin role.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		return apperr.Validation("valid email is required")
	}
	if len(req.Password) < 6 {
		return apperr.Validation("password must be at least 6 characters")
	}

	hash, err := utils.HashPassword(req.Password, h.Cfg.BcryptCost)
	if err != nil {
		return apperr.Database("create user failed", err)
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	tx, err := h.Users.DB().BeginTx(ctx, nil)
	if err != nil {
		return apperr.Database("create user failed", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	total, err := h.Users.CountTx(ctx, tx)
	if err != nil {
		return apperr.Database("create user failed", err)
	}
	role := model.RoleUser
	if total == 0 {
		role = model.RoleAdmin
	}

	uid, err := h.Users.CreateTx(ctx, tx, req.Email, hash, req.FullName, role)
	if err != nil {
		if err == repository.ErrEmailExists {
			return apperr.Validation("email already exists")
		}
		return apperr.Database("create user failed", err)
	}
	if err := tx.Commit(); err != nil {
		return apperr.Database("create user failed", err)
	}
	committed = true

	return c.JSON(http.StatusCreated, userResp{
		ID: uid, Email: req.Email, FullName: req.FullName, Role: role, IsActive: true,
	})
}

// Login verifies credentials and issues a fresh token pair.  Both "no such
// user" and "wrong password" produce the same error so the endpoint cannot
// be used to enumerate accounts.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("invalid body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return apperr.Validation("email and password are required")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if err == repository.ErrUserNotFound {
			return apperr.InvalidCredentials("incorrect email or password")
		}
		return apperr.Database("login failed", err)
	}
	if !u.IsActive {
		return apperr.Blocked("user is blocked")
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return apperr.InvalidCredentials("incorrect email or password")
	}

	pair, err := h.issueSession(c, u)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, tokenResp{
		AccessToken:  pair.Access.Token,
		TokenType:    "bearer",
		RefreshToken: pair.Refresh.Token,
		ExpiresIn:    h.Cfg.AccessTTLMin * 60,
	})
}

// issueSession mints a token pair under a new jti and persists the refresh
// session row.
func (h *AuthHandler) issueSession(c echo.Context, u model.User) (utils.TokenPair, error) {
	jti, err := utils.NewJTI()
	if err != nil {
		return utils.TokenPair{}, apperr.Database("issue token failed", err)
	}
	pair, err := utils.NewTokenPair(h.Cfg.JWTSecret, u.ID, u.Role, jti, h.Cfg.AccessTTLMin, h.Cfg.RefreshTTLDays)
	if err != nil {
		return utils.TokenPair{}, apperr.Database("issue token failed", err)
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Tokens.Store(ctx, u.ID, jti, pair.Refresh.Exp); err != nil {
		return utils.TokenPair{}, apperr.Database("save session failed", err)
	}
	return pair, nil
}

// Refresh rotates a refresh token: the presented token's session is revoked
// and a new session row is inserted under a fresh jti in the same
// transaction, so the old token is single-use.  Replaying it afterwards
// fails the revocation check.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return apperr.Validation("refresh_token is required")
	}

	claims, err := utils.ParseToken(h.Cfg.JWTSecret, strings.TrimSpace(req.RefreshToken))
	if err != nil {
		return apperr.InvalidToken("invalid refresh token")
	}
	if !claims.IsRefresh || claims.JTI == "" {
		return apperr.InvalidToken("not a refresh token")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if _, err := h.Tokens.Validate(ctx, claims.JTI); err != nil {
		switch err {
		case repository.ErrSessionNotFound:
			return apperr.SessionNotFound("refresh session not found")
		case repository.ErrSessionExpired:
			return apperr.SessionExpired("refresh token expired or revoked")
		default:
			return apperr.Database("refresh failed", err)
		}
	}

	u, err := h.Users.GetByID(ctx, claims.UserID)
	if err != nil {
		if err == repository.ErrUserNotFound {
			return apperr.InvalidToken("unknown user")
		}
		return apperr.Database("refresh failed", err)
	}
	if !u.IsActive {
		return apperr.Blocked("user is blocked")
	}

	newJTI, err := utils.NewJTI()
	if err != nil {
		return apperr.Database("refresh failed", err)
	}
	pair, err := utils.NewTokenPair(h.Cfg.JWTSecret, u.ID, u.Role, newJTI, h.Cfg.AccessTTLMin, h.Cfg.RefreshTTLDays)
	if err != nil {
		return apperr.Database("refresh failed", err)
	}

	tx, err := h.Tokens.DB().BeginTx(ctx, nil)
	if err != nil {
		return apperr.Database("refresh failed", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	revoked, err := h.Tokens.RevokeByJTITx(ctx, tx, claims.JTI)
	if err != nil {
		return apperr.Database("refresh failed", err)
	}
	if revoked == 0 {
		// Someone rotated this jti between our check and now.
		return apperr.SessionExpired("refresh token expired or revoked")
	}
	if err := h.Tokens.StoreTx(ctx, tx, u.ID, newJTI, pair.Refresh.Exp); err != nil {
		return apperr.Database("refresh failed", err)
	}
	if err := tx.Commit(); err != nil {
		return apperr.Database("refresh failed", err)
	}
	committed = true

	return c.JSON(http.StatusOK, tokenResp{
		AccessToken:  pair.Access.Token,
		TokenType:    "bearer",
		RefreshToken: pair.Refresh.Token,
		ExpiresIn:    h.Cfg.AccessTTLMin * 60,
	})
}

// Logout revokes the session of the presented token.  The token may arrive
// in the body or as the bearer header.  Revoking twice is not an error.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req logoutReq
	_ = c.Bind(&req)
	raw := strings.TrimSpace(req.Token)
	if raw == "" {
		if auth := c.Request().Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
			raw = strings.TrimPrefix(auth, "Bearer ")
		}
	}
	if raw == "" {
		return apperr.Validation("token is required")
	}

	claims, err := utils.ParseToken(h.Cfg.JWTSecret, raw)
	if err != nil {
		return apperr.InvalidToken("invalid token")
	}

	if claims.JTI != "" {
		ctx, cancel := reqCtx(c)
		defer cancel()
		if err := h.Tokens.RevokeByJTI(ctx, claims.JTI); err != nil {
			return apperr.Database("logout failed", err)
		}
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true})
}

// Me returns the authenticated user's profile.
func (h *AuthHandler) Me(c echo.Context) error {
	uid, err := currentUserID(c)
	if err != nil {
		return err
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		if err == repository.ErrUserNotFound {
			return apperr.NotFound("user not found")
		}
		return apperr.Database("load user failed", err)
	}
	return c.JSON(http.StatusOK, toUserResp(u))
}
