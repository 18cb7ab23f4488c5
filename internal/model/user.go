package model

import "time"

// Role values stored in users.role and carried in the JWT "role" claim.
const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// User represents an application user record as stored in the `users`
// table.  Each field corresponds to a column in the database.  Handlers
// define separate response types with JSON tags; this struct is used by
// the repository layer.
//
// Fields:
//
//	ID           – primary key identifier of the user.
//	Email        – unique, lowercased email address.
//	PasswordHash – bcrypt hashed password.
//	FullName     – optional display name (nullable column).
//	Role         – "admin" or "user".  The first registered user is admin.
//	IsActive     – whether the account may authenticate.
//	CreatedAt    – timestamp of creation.
//	UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64
	Email        string
	PasswordHash string
	FullName     *string
	Role         string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// RefreshSession models a row in the `refresh_tokens` table.  One row is
// written per issued refresh token, keyed by the token's jti claim.  Rows
// are never hard-deleted: rotation and logout set Revoked instead, so a
// replayed token can always be recognised.
//
// Fields:
//
//	ID        – primary key identifier.
//	UserID    – owner of the session.
//	JTI       – unique session identifier shared by the access/refresh pair.
//	Revoked   – true once the session was rotated out or logged out.
//	ExpiresAt – authoritative expiry, independent of the token's exp claim.
//	CreatedAt – timestamp of creation.
type RefreshSession struct {
	ID        uint64
	UserID    uint64
	JTI       string
	Revoked   bool
	ExpiresAt time.Time
	CreatedAt time.Time
}
