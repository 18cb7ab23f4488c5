package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/agroshop-api/internal/model"
)

// DebtRepo provides CRUD operations for customer debts.  Payments decrement
// the outstanding amount directly (floored at zero); the overdue sweep is a
// single batch UPDATE so running it twice is a no-op.
type DebtRepo struct{ db *sql.DB }

func NewDebtRepo(db *sql.DB) *DebtRepo { return &DebtRepo{db: db} }

// DB exposes the underlying pool for handler-managed transactions.
func (r *DebtRepo) DB() *sql.DB { return r.db }

const debtColumns = "id, customer_name, customer_phone, amount, description, due_date, status, created_at, updated_at"

func scanDebt(scan func(dest ...any) error) (model.Debt, error) {
	var (
		d     model.Debt
		phone sql.NullString
		due   sql.NullTime
	)
	err := scan(&d.ID, &d.CustomerName, &phone, &d.Amount, &d.Description, &due, &d.Status, &d.CreatedAt, &d.UpdatedAt)
	if phone.Valid {
		v := phone.String
		d.CustomerPhone = &v
	}
	if due.Valid {
		t := due.Time
		d.DueDate = &t
	}
	return d, err
}

// DebtFilter narrows List results.  Zero values mean "no filter".
type DebtFilter struct {
	Status      string
	Name        string
	OverdueOnly bool
	Limit       int
	Offset      int
}

// List returns debts matching the filter, newest first.
func (r *DebtRepo) List(ctx context.Context, f DebtFilter) ([]model.Debt, error) {
	q := "SELECT " + debtColumns + " FROM debts"
	var (
		where []string
		args  []any
	)
	if f.OverdueOnly {
		f.Status = string(model.PaymentOverdue)
	}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, f.Status)
	}
	if f.Name != "" {
		where = append(where, "customer_name LIKE ?")
		args = append(args, "%"+f.Name+"%")
	}
	for i, w := range where {
		if i == 0 {
			q += " WHERE " + w
		} else {
			q += " AND " + w
		}
	}
	if f.Limit <= 0 {
		f.Limit = 100
	}
	q += " ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?"
	args = append(args, f.Limit, f.Offset)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Debt
	for rows.Next() {
		d, err := scanDebt(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// GetByID fetches one debt.  ErrDebtNotFound when absent.
func (r *DebtRepo) GetByID(ctx context.Context, id uint64) (model.Debt, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+debtColumns+" FROM debts WHERE id=? LIMIT 1", id)
	d, err := scanDebt(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Debt{}, ErrDebtNotFound
	}
	return d, err
}

// Create inserts a debt and populates its generated ID.
func (r *DebtRepo) Create(ctx context.Context, d *model.Debt) error {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO debts (customer_name, customer_phone, amount, description, due_date, status) VALUES (?,?,?,?,?,?)",
		d.CustomerName, d.CustomerPhone, d.Amount, d.Description, d.DueDate, d.Status)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	d.ID = uint64(id)
	return nil
}

// Update loads the debt, merges the patch field-by-field and writes the
// full column set back.
func (r *DebtRepo) Update(ctx context.Context, id uint64, patch model.DebtPatch) (model.Debt, error) {
	d, err := r.GetByID(ctx, id)
	if err != nil {
		return model.Debt{}, err
	}
	if patch.Empty() {
		return d, nil
	}
	patch.Merge(&d)
	_, err = r.db.ExecContext(ctx,
		"UPDATE debts SET customer_name=?, customer_phone=?, amount=?, description=?, due_date=?, status=? WHERE id=?",
		d.CustomerName, d.CustomerPhone, d.Amount, d.Description, d.DueDate, d.Status, id)
	if err != nil {
		return model.Debt{}, err
	}
	return d, nil
}

// Delete removes a debt.  ErrDebtNotFound when no row matched.
func (r *DebtRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM debts WHERE id=?", id)
	if err != nil {
		return err
	}
	return mustMatch(res, ErrDebtNotFound)
}

// ForUpdateTx reads the debt's amount and status under a row lock so a
// payment cannot race another payment on the same debt.
func (r *DebtRepo) ForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (amount float64, status model.PaymentStatus, err error) {
	err = tx.QueryRowContext(ctx,
		"SELECT amount, status FROM debts WHERE id=? FOR UPDATE", id).Scan(&amount, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, "", ErrDebtNotFound
	}
	return amount, status, err
}

// SetAmountTx writes the remaining amount and recomputed status.
func (r *DebtRepo) SetAmountTx(ctx context.Context, tx *sql.Tx, id uint64, amount float64, status model.PaymentStatus) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE debts SET amount=?, status=? WHERE id=?", amount, status, id)
	return err
}

// MarkOverdue transitions every pending/partial debt whose due date has
// passed into overdue with one batch UPDATE and returns how many rows
// changed.  The WHERE clause makes the sweep idempotent.
func (r *DebtRepo) MarkOverdue(ctx context.Context, asOf time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		"UPDATE debts SET status=? WHERE due_date < ? AND status IN (?,?)",
		model.PaymentOverdue, asOf, model.PaymentPending, model.PaymentPartial)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// DebtSummary aggregates the outstanding book by status bucket.
type DebtSummary struct {
	TotalDebt    float64 `json:"total_debt"`
	PaidDebt     float64 `json:"paid_debt"`
	PendingDebt  float64 `json:"pending_debt"`
	OverdueDebt  float64 `json:"overdue_debt"`
	TotalRecords int64   `json:"total_records"`
}

// Summary computes the status-bucket totals over all debts.
func (r *DebtRepo) Summary(ctx context.Context) (DebtSummary, error) {
	var s DebtSummary
	err := r.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(amount),0),
			COALESCE(SUM(CASE WHEN status='paid' THEN amount ELSE 0 END),0),
			COALESCE(SUM(CASE WHEN status IN ('pending','partial') THEN amount ELSE 0 END),0),
			COALESCE(SUM(CASE WHEN status='overdue' THEN amount ELSE 0 END),0),
			COUNT(*)
		FROM debts`).Scan(&s.TotalDebt, &s.PaidDebt, &s.PendingDebt, &s.OverdueDebt, &s.TotalRecords)
	return s, err
}
