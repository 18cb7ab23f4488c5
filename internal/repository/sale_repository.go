package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/agroshop-api/internal/model"
)

// SaleRepo provides CRUD operations for sales and their line items.  A sale
// groups one or more items sold to a customer; creating or deleting a sale
// also adjusts product stock, which the handler coordinates inside one
// transaction using the ...Tx methods here and ProductRepo.AdjustStockTx.
type SaleRepo struct{ db *sql.DB }

func NewSaleRepo(db *sql.DB) *SaleRepo { return &SaleRepo{db: db} }

// DB exposes the underlying pool for handler-managed transactions.
func (r *SaleRepo) DB() *sql.DB { return r.db }

const saleColumns = "id, customer_name, customer_phone, customer_address, total_amount, paid_amount, payment_status, notes, sale_date, created_at, updated_at"

func scanSale(scan func(dest ...any) error) (model.Sale, error) {
	var (
		s              model.Sale
		phone, address sql.NullString
		notes          sql.NullString
	)
	err := scan(&s.ID, &s.CustomerName, &phone, &address, &s.TotalAmount, &s.PaidAmount,
		&s.PaymentStatus, &notes, &s.SaleDate, &s.CreatedAt, &s.UpdatedAt)
	if phone.Valid {
		v := phone.String
		s.CustomerPhone = &v
	}
	if address.Valid {
		v := address.String
		s.CustomerAddress = &v
	}
	if notes.Valid {
		v := notes.String
		s.Notes = &v
	}
	return s, err
}

// OrderFilter narrows sale/purchase listings.  Zero values mean "no filter".
type OrderFilter struct {
	StartDate *time.Time
	EndDate   *time.Time
	Status    string
	Name      string // counterparty name substring
	Limit     int
	Offset    int
}

// List returns sales matching the filter, newest first, with items attached.
func (r *SaleRepo) List(ctx context.Context, f OrderFilter) ([]model.Sale, error) {
	q := "SELECT " + saleColumns + " FROM sales"
	var (
		where []string
		args  []any
	)
	if f.StartDate != nil {
		where = append(where, "sale_date >= ?")
		args = append(args, *f.StartDate)
	}
	if f.EndDate != nil {
		where = append(where, "sale_date <= ?")
		args = append(args, *f.EndDate)
	}
	if f.Status != "" {
		where = append(where, "payment_status = ?")
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
	q += " ORDER BY sale_date DESC, id DESC LIMIT ? OFFSET ?"
	args = append(args, f.Limit, f.Offset)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Sale
	for rows.Next() {
		s, err := scanSale(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if err := r.attachItems(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

// attachItems loads the line items (joined with product name/unit) for a
// batch of sales in one query and groups them by sale id.
func (r *SaleRepo) attachItems(ctx context.Context, sales []model.Sale) error {
	if len(sales) == 0 {
		return nil
	}
	q := `SELECT si.id, si.sale_id, si.product_id, si.quantity, si.unit_price, si.total_price, p.name, p.unit
	      FROM sale_items si JOIN products p ON p.id = si.product_id
	      WHERE si.sale_id IN (`
	args := make([]any, 0, len(sales))
	for i, s := range sales {
		if i > 0 {
			q += ","
		}
		q += "?"
		args = append(args, s.ID)
	}
	q += ") ORDER BY si.sale_id, si.id"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return err
	}
	defer rows.Close()

	bySale := make(map[uint64][]model.SaleItem, len(sales))
	for rows.Next() {
		var it model.SaleItem
		if err := rows.Scan(&it.ID, &it.SaleID, &it.ProductID, &it.Quantity, &it.UnitPrice, &it.TotalPrice, &it.ProductName, &it.ProductUnit); err != nil {
			return err
		}
		bySale[it.SaleID] = append(bySale[it.SaleID], it)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	for i := range sales {
		if items, ok := bySale[sales[i].ID]; ok {
			sales[i].Items = items
		} else {
			sales[i].Items = []model.SaleItem{}
		}
	}
	return nil
}

// GetByID returns one sale with its items.  ErrSaleNotFound when absent.
func (r *SaleRepo) GetByID(ctx context.Context, id uint64) (model.Sale, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+saleColumns+" FROM sales WHERE id=? LIMIT 1", id)
	s, err := scanSale(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Sale{}, ErrSaleNotFound
	}
	if err != nil {
		return model.Sale{}, err
	}
	batch := []model.Sale{s}
	if err := r.attachItems(ctx, batch); err != nil {
		return model.Sale{}, err
	}
	return batch[0], nil
}

// CreateTx inserts the sale header within the caller's transaction and
// populates the generated ID.  PaidAmount starts at zero and the status at
// pending; TotalAmount must already be the sum of the items' total prices.
func (r *SaleRepo) CreateTx(ctx context.Context, tx *sql.Tx, s *model.Sale) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO sales (customer_name, customer_phone, customer_address, total_amount, paid_amount, payment_status, notes, sale_date)
		 VALUES (?,?,?,?,?,?,?,?)`,
		s.CustomerName, s.CustomerPhone, s.CustomerAddress, s.TotalAmount, s.PaidAmount, s.PaymentStatus, s.Notes, s.SaleDate)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	return nil
}

// InsertItemsTx bulk-inserts the sale's line items in a single statement.
func (r *SaleRepo) InsertItemsTx(ctx context.Context, tx *sql.Tx, saleID uint64, items []model.LineItem) error {
	if len(items) == 0 {
		return nil
	}
	q := "INSERT INTO sale_items (sale_id, product_id, quantity, unit_price, total_price) VALUES "
	args := make([]any, 0, len(items)*5)
	for i, it := range items {
		if i > 0 {
			q += ","
		}
		q += "(?,?,?,?,?)"
		args = append(args, saleID, it.ProductID, it.Quantity, it.UnitPrice, it.TotalPrice)
	}
	_, err := tx.ExecContext(ctx, q, args...)
	return err
}

// ItemsTx reads the sale's line items inside the caller's transaction so
// the delete path can reverse their stock effects before removing them.
func (r *SaleRepo) ItemsTx(ctx context.Context, tx *sql.Tx, saleID uint64) ([]model.SaleItem, error) {
	rows, err := tx.QueryContext(ctx,
		"SELECT id, sale_id, product_id, quantity, unit_price, total_price FROM sale_items WHERE sale_id=? ORDER BY id",
		saleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.SaleItem
	for rows.Next() {
		var it model.SaleItem
		if err := rows.Scan(&it.ID, &it.SaleID, &it.ProductID, &it.Quantity, &it.UnitPrice, &it.TotalPrice); err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

// PaymentForUpdateTx reads the sale's total and running paid amount under a
// row lock so concurrent payment updates serialize.
func (r *SaleRepo) PaymentForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (total, paid float64, err error) {
	err = tx.QueryRowContext(ctx,
		"SELECT total_amount, paid_amount FROM sales WHERE id=? FOR UPDATE", id).Scan(&total, &paid)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, 0, ErrSaleNotFound
	}
	return total, paid, err
}

// SetPaymentTx writes the recomputed paid amount and status.
func (r *SaleRepo) SetPaymentTx(ctx context.Context, tx *sql.Tx, id uint64, paid float64, status model.PaymentStatus) error {
	_, err := tx.ExecContext(ctx,
		"UPDATE sales SET paid_amount=?, payment_status=? WHERE id=?", paid, status, id)
	return err
}

// DeleteItemsTx removes all line items of a sale.
func (r *SaleRepo) DeleteItemsTx(ctx context.Context, tx *sql.Tx, saleID uint64) error {
	_, err := tx.ExecContext(ctx, "DELETE FROM sale_items WHERE sale_id=?", saleID)
	return err
}

// DeleteHeaderTx removes the sale row.  ErrSaleNotFound when no row matched.
func (r *SaleRepo) DeleteHeaderTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	res, err := tx.ExecContext(ctx, "DELETE FROM sales WHERE id=?", id)
	if err != nil {
		return err
	}
	return mustMatch(res, ErrSaleNotFound)
}

// DailyOrderStats aggregates one day of sales or purchases.
type DailyOrderStats struct {
	Date         string  `json:"date"`
	Total        float64 `json:"total"`
	Paid         float64 `json:"paid"`
	Pending      float64 `json:"pending"`
	Transactions int     `json:"total_transactions"`
}

// DailyStats aggregates all sales whose sale_date falls on the given day.
func (r *SaleRepo) DailyStats(ctx context.Context, day time.Time) (DailyOrderStats, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 1)

	rows, err := r.db.QueryContext(ctx,
		"SELECT total_amount, payment_status FROM sales WHERE sale_date >= ? AND sale_date < ?",
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
