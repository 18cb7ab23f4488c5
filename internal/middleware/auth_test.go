package middleware

import (
	"database/sql"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/agroshop-api/internal/apperr"
	"github.com/iliyamo/agroshop-api/internal/repository"
	"github.com/iliyamo/agroshop-api/internal/utils"
)

const testSecret = "mw-test-secret"

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
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

// run sends a request through Authorize into a handler that records whether
// it was reached, and returns the middleware's error (nil on success).
func run(t *testing.T, db *sql.DB, token string) (bool, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	reached := false
	h := Authorize(testSecret, repository.NewTokenRepo(db), repository.NewUserRepo(db))(
		func(c echo.Context) error {
			reached = true
			return c.NoContent(http.StatusOK)
		})
	return reached, h(c)
}

func mintAccess(t *testing.T, userID uint64, role, jti string) string {
	t.Helper()
	pair, err := utils.NewTokenPair(testSecret, userID, role, jti, 15, 7)
	if err != nil {
		t.Fatalf("NewTokenPair: %v", err)
	}
	return pair.Access.Token
}

func expectSession(mock sqlmock.Sqlmock, jti string, revoked bool, exp time.Time) {
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, user_id, jti, revoked, expires_at, created_at FROM refresh_tokens WHERE jti=? LIMIT 1")).
		WithArgs(jti).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "jti", "revoked", "expires_at", "created_at"}).
			AddRow(1, 42, jti, revoked, exp, time.Now().UTC()))
}

func expectUser(mock sqlmock.Sqlmock, id uint64, role string, active bool) {
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, email, password_hash, full_name, role, is_active, created_at, updated_at FROM users WHERE id=? LIMIT 1")).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "password_hash", "full_name", "role", "is_active", "created_at", "updated_at"}).
			AddRow(id, "u@agro.shop", "hash", nil, role, active, time.Now().UTC(), time.Now().UTC()))
}

func TestAuthorizeHappyPath(t *testing.T) {
	db, mock := newMock(t)
	jti := "a1b2c3"
	expectSession(mock, jti, false, time.Now().UTC().Add(time.Hour))
	expectUser(mock, 42, "admin", true)

	reached, err := run(t, db, mintAccess(t, 42, "admin", jti))
	if err != nil {
		t.Fatalf("Authorize: %v", err)
	}
	if !reached {
		t.Fatal("handler not reached")
	}
}

func TestAuthorizeMissingToken(t *testing.T) {
	db, _ := newMock(t)
	reached, err := run(t, db, "")
	if reached {
		t.Fatal("handler reached without a token")
	}
	assertKind(t, err, apperr.KindInvalidToken)
}

func TestAuthorizeRejectsRefreshToken(t *testing.T) {
	db, _ := newMock(t)
	pair, err := utils.NewTokenPair(testSecret, 42, "admin", "a1b2c3", 15, 7)
	if err != nil {
		t.Fatalf("NewTokenPair: %v", err)
	}
	reached, gotErr := run(t, db, pair.Refresh.Token)
	if reached {
		t.Fatal("handler reached with a refresh token")
	}
	assertKind(t, gotErr, apperr.KindInvalidToken)
}

func TestAuthorizeRevokedSession(t *testing.T) {
	db, mock := newMock(t)
	jti := "a1b2c3"
	expectSession(mock, jti, true, time.Now().UTC().Add(time.Hour))

	reached, err := run(t, db, mintAccess(t, 42, "admin", jti))
	if reached {
		t.Fatal("handler reached with a revoked session")
	}
	assertKind(t, err, apperr.KindSessionExpired)
}

func TestAuthorizeBlockedUser(t *testing.T) {
	db, mock := newMock(t)
	jti := "a1b2c3"
	expectSession(mock, jti, false, time.Now().UTC().Add(time.Hour))
	expectUser(mock, 42, "user", false)

	reached, err := run(t, db, mintAccess(t, 42, "user", jti))
	if reached {
		t.Fatal("handler reached for a blocked user")
	}
	assertKind(t, err, apperr.KindBlocked)
}

func assertKind(t *testing.T, err error, want apperr.Kind) {
	t.Helper()
	ae, ok := err.(*apperr.Error)
	if !ok {
		t.Fatalf("err = %v (%T), want *apperr.Error", err, err)
	}
	if ae.Kind != want {
		t.Fatalf("kind = %q, want %q", ae.Kind, want)
	}
}

func TestRequireRole(t *testing.T) {
	e := echo.New()
	next := func(c echo.Context) error { return c.NoContent(http.StatusOK) }
	mw := RequireRole("admin")

	// Admin passes.
	req := httptest.NewRequest(http.MethodPost, "/api/products", nil)
	c := e.NewContext(req, httptest.NewRecorder())
	c.Set(CtxRole, "admin")
	if err := mw(next)(c); err != nil {
		t.Fatalf("admin rejected: %v", err)
	}

	// Plain user is forbidden.
	c = e.NewContext(req, httptest.NewRecorder())
	c.Set(CtxRole, "user")
	assertKind(t, mw(next)(c), apperr.KindForbidden)

	// No role in context at all.
	c = e.NewContext(req, httptest.NewRecorder())
	assertKind(t, mw(next)(c), apperr.KindForbidden)
}
