package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/agroshop-api/internal/model"
)

// TokenRepo persists refresh sessions, one row per issued refresh token
// keyed by the token's jti.  Rows are revoked, never deleted, so replaying
// a rotated-out token is always detectable.
type TokenRepo struct{ db *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{db: db} }

// DB exposes the underlying pool so handlers can run the rotation inside a
// single transaction.
func (r *TokenRepo) DB() *sql.DB { return r.db }

// Store inserts a refresh session row for a freshly issued token pair.
func (r *TokenRepo) Store(ctx context.Context, userID uint64, jti string, exp time.Time) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO refresh_tokens (user_id, jti, revoked, expires_at) VALUES (?,?,false,?)",
		userID, jti, exp)
	return err
}

// StoreTx is Store within the caller's transaction (used by rotation).
func (r *TokenRepo) StoreTx(ctx context.Context, tx *sql.Tx, userID uint64, jti string, exp time.Time) error {
	_, err := tx.ExecContext(ctx,
		"INSERT INTO refresh_tokens (user_id, jti, revoked, expires_at) VALUES (?,?,false,?)",
		userID, jti, exp)
	return err
}

// Get returns the session for a jti.  ErrSessionNotFound when no row exists.
func (r *TokenRepo) Get(ctx context.Context, jti string) (model.RefreshSession, error) {
	var s model.RefreshSession
	err := r.db.QueryRowContext(ctx,
		"SELECT id, user_id, jti, revoked, expires_at, created_at FROM refresh_tokens WHERE jti=? LIMIT 1",
		jti).Scan(&s.ID, &s.UserID, &s.JTI, &s.Revoked, &s.ExpiresAt, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.RefreshSession{}, ErrSessionNotFound
	}
	return s, err
}

// Validate looks up the session for a jti and checks it is live: present,
// not revoked and not past its stored expiry.  This is the authoritative
// server-side check behind both token refresh and request authorization.
func (r *TokenRepo) Validate(ctx context.Context, jti string) (model.RefreshSession, error) {
	s, err := r.Get(ctx, jti)
	if err != nil {
		return model.RefreshSession{}, err
	}
	if s.Revoked || time.Now().UTC().After(s.ExpiresAt) {
		return model.RefreshSession{}, ErrSessionExpired
	}
	return s, nil
}

// RevokeByJTI marks a session revoked.  Revoking an already revoked or
// unknown jti is not an error: logout is idempotent.
func (r *TokenRepo) RevokeByJTI(ctx context.Context, jti string) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked=true WHERE jti=? AND revoked=false", jti)
	return err
}

// RevokeByJTITx is RevokeByJTI within the caller's transaction.  It returns
// the number of rows revoked so rotation can detect a concurrent reuse of
// the same token (zero rows means someone else already rotated it).
func (r *TokenRepo) RevokeByJTITx(ctx context.Context, tx *sql.Tx, jti string) (int64, error) {
	res, err := tx.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked=true WHERE jti=? AND revoked=false", jti)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// RevokeAllForUserTx revokes every active session of a user inside the
// caller's transaction (used when an admin deletes the account).
func (r *TokenRepo) RevokeAllForUserTx(ctx context.Context, tx *sql.Tx, userID uint64) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked=true WHERE user_id=? AND revoked=false", userID)
	return err
}
