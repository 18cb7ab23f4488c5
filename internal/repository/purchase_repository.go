package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/agroshop-api/internal/model"
)

// PurchaseRepo mirrors SaleRepo for incoming goods.  The SQL is symmetric;
// the stock direction (purchases add, sales subtract) lives in the handler.
type PurchaseRepo struct{ db *sql.DB }

func NewPurchaseRepo(db *sql.DB) *PurchaseRepo { return &PurchaseRepo{db: db} }

// DB exposes the underlying pool for handler-managed transactions.
func (r *PurchaseRepo) DB() *sql.DB { return r.db }

const purchaseColumns = "id, supplier_name, supplier_phone, supplier_address, total_amount, paid_amount, payment_status, notes, purchase_date, created_at, updated_at"

func scanPurchase(scan func(dest ...any) error) (model.Purchase, error) {
	var (
		p              model.Purchase
		phone, address sql.NullString
		notes          sql.NullString
	)
	err := scan(&p.ID, &p.SupplierName, &phone, &address, &p.TotalAmount, &p.PaidAmount,
		&p.PaymentStatus, &notes, &p.PurchaseDate, &p.CreatedAt, &p.UpdatedAt)
	if phone.Valid {
		v := phone.String
		p.SupplierPhone = &v
	}
	if address.Valid {
		v := address.String
		p.SupplierAddress = &v
	}
	if notes.Valid {
		v := notes.String
		p.Notes = &v
	}
	return p, err
}

// List returns purchases matching the filter, newest first, with items.
func (r *PurchaseRepo) List(ctx context.Context, f OrderFilter) ([]model.Purchase, error) {
	q := "SELECT " + purchaseColumns + " FROM purchases"
	var (
		where []string
		args  []any
	)
	if f.StartDate != nil {
		where = append(where, "purchase_date >= ?")
		args = append(args, *f.StartDate)
	}
	if f.EndDate != nil {
		where = append(where, "purchase_date <= ?")
		args = append(args, *f.EndDate)
	}
	if f.Status != "" {
		where = append(where, "payment_status = ?")
		args = append(args, f.Status)
	}
	if f.Name != "" {
		where = append(where, "supplier_name LIKE ?")
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
	q += " ORDER BY purchase_date DESC, id DESC LIMIT ? OFFSET ?"
	args = append(args, f.Limit, f.Offset)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Purchase
	for rows.Next() {
		p, err := scanPurchase(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.attachItems(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *PurchaseRepo) attachItems(ctx context.Context, purchases []model.Purchase) error {
	if len(purchases) == 0 {
		return nil
	}
	q := `SELECT pi.id, pi.purchase_id, pi.product_id, pi.quantity, pi.unit_price, pi.total_price, p.name, p.unit
	      FROM purchase_items pi JOIN products p ON p.id = pi.product_id
	      WHERE pi.purchase_id IN (`
	args := make([]any, 0, len(purchases))
	for i, p := range purchases {
		if i > 0 {
			q += ","
		}
		q += "?"
		args = append(args, p.ID)
	}
	q += ") ORDER BY pi.purchase_id, pi.id"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	byPurchase := make(map[uint64][]model.PurchaseItem, len(purchases))
	for rows.Next() {
		var it model.PurchaseItem
		if err := rows.Scan(&it.ID, &it.PurchaseID, &it.ProductID, &it.Quantity, &it.UnitPrice, &it.TotalPrice, &it.ProductName, &it.ProductUnit); err != nil {
			return err
		}
		byPurchase[it.PurchaseID] = append(byPurchase[it.PurchaseID], it)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	for i := range purchases {
		if items, ok := byPurchase[purchases[i].ID]; ok {
			purchases[i].Items = items
		} else {
			purchases[i].Items = []model.PurchaseItem{}
		}
	}
	return nil
}

// GetByID returns one purchase with its items.  ErrPurchaseNotFound when
// absent.
func (r *PurchaseRepo) GetByID(ctx context.Context, id uint64) (model.Purchase, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+purchaseColumns+" FROM purchases WHERE id=? LIMIT 1", id)
	p, err := scanPurchase(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Purchase{}, ErrPurchaseNotFound
	}
	if err != nil {
		return model.Purchase{}, err
	}
	batch := []model.Purchase{p}
	if err := r.attachItems(ctx, batch); err != nil {
		return model.Purchase{}, err
	}
	return batch[0], nil
}

// CreateTx inserts the purchase header within the caller's transaction and
// populates the generated ID.
func (r *PurchaseRepo) CreateTx(ctx context.Context, tx *sql.Tx, p *model.Purchase) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO purchases (supplier_name, supplier_phone, supplier_address, total_amount, paid_amount, payment_status, notes, purchase_date)
		 VALUES (?,?,?,?,?,?,?,?)`,
		p.SupplierName, p.SupplierPhone, p.SupplierAddress, p.TotalAmount, p.PaidAmount, p.PaymentStatus, p.Notes, p.PurchaseDate)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return nil
}

// InsertItemsTx bulk-inserts the purchase's line items in a single statement.
func (r *PurchaseRepo) InsertItemsTx(ctx context.Context, tx *sql.Tx, purchaseID uint64, items []model.LineItem) error {
	if len(items) == 0 {
		return nil
	}
	q := "INSERT INTO purchase_items (purchase_id, product_id, quantity, unit_price, total_price) VALUES "
	args := make([]any, 0, len(items)*5)
	for i, it := range items {
		if i > 0 {
			q += ","
		}
		q += "(?,?,?,?,?)"
		args = append(args, purchaseID, it.ProductID, it.Quantity, it.UnitPrice, it.TotalPrice)
	}
	_, err := tx.ExecContext(ctx, q, args...)
	return err
}

// ItemsTx reads the purchase's line items inside the caller's transaction.
func (r *PurchaseRepo) ItemsTx(ctx context.Context, tx *sql.Tx, purchaseID uint64) ([]model.PurchaseItem, error) {
	rows, err := tx.QueryContext(ctx,
		"SELECT id, purchase_id, product_id, quantity, unit_price, total_price FROM purchase_items WHERE purchase_id=? ORDER BY id",
		purchaseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.PurchaseItem
	for rows.Next() {
		var it model.PurchaseItem
		if err := rows.Scan(&it.ID, &it.PurchaseID, &it.ProductID, &it.Quantity, &it.UnitPrice, &it.TotalPrice); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// PaymentForUpdateTx reads the purchase's total and paid amount under a row
// lock.
func (r *PurchaseRepo) PaymentForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (total, paid float64, err error) {
	err = tx.QueryRowContext(ctx,
		"SELECT total_amount, paid_amount FROM purchases WHERE id=? FOR UPDATE", id).Scan(&total, &paid)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, 0, ErrPurchaseNotFound
	}
	return total, paid, err
}

// SetPaymentTx writes the recomputed paid amount and status.
func (r *PurchaseRepo) SetPaymentTx(ctx context.Context, tx *sql.Tx, id uint64, paid float64, status model.PaymentStatus) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE purchases SET paid_amount=?, payment_status=? WHERE id=?", paid, status, id)
	return err
}

// DeleteItemsTx removes all line items of a purchase.
func (r *PurchaseRepo) DeleteItemsTx(ctx context.Context, tx *sql.Tx, purchaseID uint64) error {
	_, err := tx.ExecContext(ctx, "DELETE FROM purchase_items WHERE purchase_id=?", purchaseID)
	return err
}

// DeleteHeaderTx removes the purchase row.  ErrPurchaseNotFound when no row
// matched.
func (r *PurchaseRepo) DeleteHeaderTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	res, err := tx.ExecContext(ctx, "DELETE FROM purchases WHERE id=?", id)
	if err != nil {
		return err
	}
	return mustMatch(res, ErrPurchaseNotFound)
}

// DailyStats aggregates all purchases whose purchase_date falls on the
// given day.
func (r *PurchaseRepo) DailyStats(ctx context.Context, day time.Time) (DailyOrderStats, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 1)

	rows, err := r.db.QueryContext(ctx,
		"SELECT total_amount, payment_status FROM purchases WHERE purchase_date >= ? AND purchase_date < ?",
		start, end)
	if err != nil {
		return DailyOrderStats{}, err
	}
	defer rows.Close()

	out := DailyOrderStats{Date: start.Format("2006-01-02")}
	for rows.Next() {
		var (
			amount float64
			status model.PaymentStatus
		)
		if err := rows.Scan(&amount, &status); err != nil {
			return DailyOrderStats{}, err
		}
		out.Total += amount
		out.Transactions++
		switch status {
		case model.PaymentPaid:
			out.Paid += amount
		case model.PaymentPending, model.PaymentPartial:
			out.Pending += amount
		}
	}
	return out, rows.Err()
}
