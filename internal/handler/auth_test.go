package handler

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/agroshop-api/internal/apperr"
	"github.com/iliyamo/agroshop-api/internal/config"
	"github.com/iliyamo/agroshop-api/internal/repository"
	"github.com/iliyamo/agroshop-api/internal/utils"
)

func testConfig() config.Config {
	return config.Config{
		Env:            "test",
		JWTSecret:      "handler-test-secret",
		AccessTTLMin:   15,
		RefreshTTLDays: 7,
		BcryptCost:     bcrypt.MinCost,
	}
}

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
		db.Close()
	})
	return db, mock
}

func newAuthHandler(db *sql.DB) *AuthHandler {
	return NewAuthHandler(testConfig(), repository.NewUserRepo(db), repository.NewTokenRepo(db))
}

func postJSON(t *testing.T, path, body string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestRegisterFirstUserBecomesAdmin(t *testing.T) {
	db, mock := newMockDB(t)
	h := newAuthHandler(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM users")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users (email, password_hash, full_name, role) VALUES (?,?,?,?)")).
		WithArgs("owner@agro.shop", sqlmock.AnyArg(), nil, "admin").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	c, rec := postJSON(t, "/api/auth/register", `{"email":"Owner@Agro.Shop","password":"s3cret1"}`)
	if err := h.Register(c); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("code = %d", rec.Code)
	}

	var got struct {
		ID    uint64 `json:"id"`
		Email string `json:"email"`
		Role  string `json:"role"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Role != "admin" {
		t.Fatalf("role = %q, want admin", got.Role)
	}
	if got.Email != "owner@agro.shop" {
		t.Fatalf("email = %q, want normalized", got.Email)
	}
}

func TestRegisterLaterUserIsRegular(t *testing.T) {
	db, mock := newMockDB(t)
	h := newAuthHandler(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM users")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
		WithArgs("clerk@agro.shop", sqlmock.AnyArg(), nil, "user").
		WillReturnResult(sqlmock.NewResult(4, 1))
	mock.ExpectCommit()

	c, rec := postJSON(t, "/api/auth/register", `{"email":"clerk@agro.shop","password":"s3cret1"}`)
	if err := h.Register(c); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("code = %d", rec.Code)
	}
}

func TestRegisterShortPassword(t *testing.T) {
	db, _ := newMockDB(t)
	h := newAuthHandler(db)

	c, _ := postJSON(t, "/api/auth/register", `{"email":"a@b.c","password":"123"}`)
	err := h.Register(c)
	ae, ok := err.(*apperr.Error)
	if !ok || ae.Kind != apperr.KindValidation {
		t.Fatalf("err = %v, want validation error", err)
	}
}

// Replaying an already-rotated refresh token must fail even when the replay
// races past the initial validation: the in-transaction revoke sees zero
// rows and the handler rejects without storing a new session.
func TestRefreshReplayRejected(t *testing.T) {
	db, mock := newMockDB(t)
	h := newAuthHandler(db)
	cfg := testConfig()

	jti := "11112222333344445555666677778888"
	pair, err := utils.NewTokenPair(cfg.JWTSecret, 42, "admin", jti, cfg.AccessTTLMin, cfg.RefreshTTLDays)
	if err != nil {
		t.Fatalf("NewTokenPair: %v", err)
	}

	now := time.Now().UTC()
	// Validation still sees the session as live...
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, user_id, jti, revoked, expires_at, created_at FROM refresh_tokens WHERE jti=? LIMIT 1")).
		WithArgs(jti).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "jti", "revoked", "expires_at", "created_at"}).
			AddRow(1, 42, jti, false, now.Add(24*time.Hour), now))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, email, password_hash, full_name, role, is_active, created_at, updated_at FROM users WHERE id=? LIMIT 1")).
		WithArgs(uint64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "password_hash", "full_name", "role", "is_active", "created_at", "updated_at"}).
			AddRow(42, "owner@agro.shop", "hash", nil, "admin", true, now, now))
	// ...but a concurrent rotation got to the row first.
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE refresh_tokens SET revoked=true WHERE jti=? AND revoked=false")).
		WithArgs(jti).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	c, _ := postJSON(t, "/api/auth/refresh", `{"refresh_token":"`+pair.Refresh.Token+`"}`)
	err = h.Refresh(c)
	ae, ok := err.(*apperr.Error)
	if !ok || ae.Kind != apperr.KindSessionExpired {
		t.Fatalf("err = %v, want session expired", err)
	}
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	db, _ := newMockDB(t)
	h := newAuthHandler(db)
	cfg := testConfig()

	pair, err := utils.NewTokenPair(cfg.JWTSecret, 42, "admin", "abc", cfg.AccessTTLMin, cfg.RefreshTTLDays)
	if err != nil {
		t.Fatalf("NewTokenPair: %v", err)
	}

	c, _ := postJSON(t, "/api/auth/refresh", `{"refresh_token":"`+pair.Access.Token+`"}`)
	gotErr := h.Refresh(c)
	ae, ok := gotErr.(*apperr.Error)
	if !ok || ae.Kind != apperr.KindInvalidToken {
		t.Fatalf("err = %v, want invalid token", gotErr)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	db, mock := newMockDB(t)
	h := newAuthHandler(db)

	hash, err := utils.HashPassword("right-pass", bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	now := time.Now().UTC()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, email, password_hash, full_name, role, is_active, created_at, updated_at FROM users WHERE email=? LIMIT 1")).
		WithArgs("owner@agro.shop").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "password_hash", "full_name", "role", "is_active", "created_at", "updated_at"}).
			AddRow(1, "owner@agro.shop", hash, nil, "admin", true, now, now))

	c, _ := postJSON(t, "/api/auth/login", `{"email":"owner@agro.shop","password":"wrong-pass"}`)
	gotErr := h.Login(c)
	ae, ok := gotErr.(*apperr.Error)
	if !ok || ae.Kind != apperr.KindInvalidCredentials {
		t.Fatalf("err = %v, want invalid credentials", gotErr)
	}
}

func TestLoginUnknownUserSameError(t *testing.T) {
	db, mock := newMockDB(t)
	h := newAuthHandler(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, email, password_hash, full_name, role, is_active, created_at, updated_at FROM users WHERE email=? LIMIT 1")).
		WithArgs("ghost@agro.shop").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "password_hash", "full_name", "role", "is_active", "created_at", "updated_at"}))

	c, _ := postJSON(t, "/api/auth/login", `{"email":"ghost@agro.shop","password":"whatever"}`)
	gotErr := h.Login(c)
	ae, ok := gotErr.(*apperr.Error)
	if !ok || ae.Kind != apperr.KindInvalidCredentials {
		t.Fatalf("err = %v, want invalid credentials", gotErr)
	}
	// Same client-visible message as the wrong-password case.
	if ae.Message != "incorrect email or password" {
		t.Fatalf("message = %q", ae.Message)
	}
}
