package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/agroshop-api/internal/model"
)

// UserRepo provides access to the `users` table.
type UserRepo struct{ db *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{db: db} }

// DB exposes the underlying pool so handlers can begin transactions that
// span users and refresh_tokens.
func (r *UserRepo) DB() *sql.DB { return r.db }

const userColumns = "id, email, password_hash, full_name, role, is_active, created_at, updated_at"

func scanUser(row *sql.Row) (model.User, error) {
	var (
		u        model.User
		fullName sql.NullString
	)
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &fullName, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if fullName.Valid {
		fn := fullName.String
		u.FullName = &fn
	}
	return u, err
}

// CountTx returns the number of user rows inside the given transaction.
// Registration uses it to decide whether the new user is the first (and
// therefore becomes admin).
func (r *UserRepo) CountTx(ctx context.Context, tx *sql.Tx) (int64, error) {
	var n int64
	err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&n)
	return n, err
}

// CreateTx inserts a user within the caller's transaction and returns the
// generated ID.  Duplicate emails map to ErrEmailExists.
func (r *UserRepo) CreateTx(ctx context.Context, tx *sql.Tx, email, passwordHash string, fullName *string, role string) (uint64, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	res, err := tx.ExecContext(ctx,
		"INSERT INTO users (email, password_hash, full_name, role) VALUES (?,?,?,?)",
		email, passwordHash, fullName, role)
	if err != nil {
		// MySQL duplicate key
		if strings.Contains(strings.ToLower(err.Error()), "1062") {
			return 0, ErrEmailExists
		}
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := scanUser(r.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email=? LIMIT 1", email))
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrUserNotFound
	}
	return u, err
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrUserNotFound
	}
	return u, err
}

// List returns all users ordered by id.
func (r *UserRepo) List(ctx context.Context) ([]model.User, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+userColumns+" FROM users ORDER BY id ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.User
	for rows.Next() {
		var (
			u        model.User
			fullName sql.NullString
		)
		if err := rows.Scan(&u.ID, &u.Email, &u.PasswordHash, &fullName, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, err
		}
		if fullName.Valid {
			fn := fullName.String
			u.FullName = &fn
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

// UpdateRole sets a user's role.  ErrUserNotFound when no row matched.
func (r *UserRepo) UpdateRole(ctx context.Context, id uint64, role string) error {
	res, err := r.db.ExecContext(ctx, "UPDATE users SET role=? WHERE id=?", role, id)
	if err != nil {
		return err
	}
	return mustMatch(res, ErrUserNotFound)
}

// UpdateActive toggles a user's active flag.  ErrUserNotFound when no row
// matched.
func (r *UserRepo) UpdateActive(ctx context.Context, id uint64, active bool) error {
	res, err := r.db.ExecContext(ctx, "UPDATE users SET is_active=? WHERE id=?", active, id)
	if err != nil {
		return err
	}
	return mustMatch(res, ErrUserNotFound)
}

// DeleteTx removes a user row within the caller's transaction.  The caller
// revokes the user's refresh sessions in the same transaction before
// committing.  ErrUserNotFound when no row matched.
func (r *UserRepo) DeleteTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	res, err := tx.ExecContext(ctx, "DELETE FROM users WHERE id=?", id)
	if err != nil {
		return err
	}
	return mustMatch(res, ErrUserNotFound)
}

// mustMatch converts a zero-rows-affected result into notFound.
func mustMatch(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return notFound
	}
	return nil
}
