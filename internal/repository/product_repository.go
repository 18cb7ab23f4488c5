package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/agroshop-api/internal/model"
)

// ProductRepo provides CRUD operations for products plus the stock
// adjustment used by the sale/purchase transactions.  Stock is only ever
// changed through atomic in-database arithmetic so concurrent orders on the
// same product cannot lose updates.
type ProductRepo struct{ db *sql.DB }

func NewProductRepo(db *sql.DB) *ProductRepo { return &ProductRepo{db: db} }

// DB exposes the underlying pool for handler-managed transactions.
func (r *ProductRepo) DB() *sql.DB { return r.db }

const productColumns = "id, name, type, brand, unit, price_per_unit, stock_quantity, minimum_stock, description, created_at, updated_at"

func scanProduct(scan func(dest ...any) error) (model.Product, error) {
	var (
		p    model.Product
		desc sql.NullString
	)
	err := scan(&p.ID, &p.Name, &p.Type, &p.Brand, &p.Unit, &p.PricePerUnit,
		&p.StockQuantity, &p.MinimumStock, &desc, &p.CreatedAt, &p.UpdatedAt)
	if desc.Valid {
		d := desc.String
		p.Description = &d
	}
	return p, err
}

// ProductFilter narrows List results.  Zero values mean "no filter".
type ProductFilter struct {
	Type   string
	Search string // matches name or brand
	Limit  int
	Offset int
}

// List returns products matching the filter, ordered by id.
func (r *ProductRepo) List(ctx context.Context, f ProductFilter) ([]model.Product, error) {
	q := "SELECT " + productColumns + " FROM products"
	var (
		where []string
		args  []any
	)
	if f.Type != "" {
		where = append(where, "type = ?")
		args = append(args, f.Type)
	}
	if f.Search != "" {
		where = append(where, "(name LIKE ? OR brand LIKE ?)")
		like := "%" + f.Search + "%"
		args = append(args, like, like)
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
	q += " ORDER BY id ASC LIMIT ? OFFSET ?"
	args = append(args, f.Limit, f.Offset)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Product
	for rows.Next() {
		p, err := scanProduct(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// GetByID fetches one product.  ErrProductNotFound when absent.
func (r *ProductRepo) GetByID(ctx context.Context, id uint64) (model.Product, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+productColumns+" FROM products WHERE id=? LIMIT 1", id)
	p, err := scanProduct(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Product{}, ErrProductNotFound
	}
	return p, err
}

// Create inserts a product and populates its generated ID.
func (r *ProductRepo) Create(ctx context.Context, p *model.Product) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO products (name, type, brand, unit, price_per_unit, stock_quantity, minimum_stock, description)
		 VALUES (?,?,?,?,?,?,?,?)`,
		p.Name, p.Type, p.Brand, p.Unit, p.PricePerUnit, p.StockQuantity, p.MinimumStock, p.Description)
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

// Update loads the product, merges the patch field-by-field and writes the
// full column set back.  The explicit merge replaces the original design's
// dynamically built column list.
func (r *ProductRepo) Update(ctx context.Context, id uint64, patch model.ProductPatch) (model.Product, error) {
	p, err := r.GetByID(ctx, id)
	if err != nil {
		return model.Product{}, err
	}
	if patch.Empty() {
		return p, nil
	}
	patch.Merge(&p)
	_, err = r.db.ExecContext(ctx,
		`UPDATE products SET name=?, type=?, brand=?, unit=?, price_per_unit=?, stock_quantity=?, minimum_stock=?, description=? WHERE id=?`,
		p.Name, p.Type, p.Brand, p.Unit, p.PricePerUnit, p.StockQuantity, p.MinimumStock, p.Description, id)
	if err != nil {
		return model.Product{}, err
	}
	return p, nil
}

// Delete removes a product.  ErrProductNotFound when no row matched.
func (r *ProductRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM products WHERE id=?", id)
	if err != nil {
		return err
	}
	return mustMatch(res, ErrProductNotFound)
}

// LowStock returns products whose stock fell below their minimum.
func (r *ProductRepo) LowStock(ctx context.Context) ([]model.Product, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+productColumns+" FROM products WHERE stock_quantity < minimum_stock ORDER BY id ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Product
	for rows.Next() {
		p, err := scanProduct(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// AdjustStockTx applies stock_quantity += delta clamped at zero, as a single
// atomic UPDATE inside the caller's transaction.  The database performs the
// arithmetic, so concurrent adjustments serialize on the row lock instead of
// racing through a read-modify-write.
func (r *ProductRepo) AdjustStockTx(ctx context.Context, tx *sql.Tx, productID uint64, delta float64) error {
	res, err := tx.ExecContext(ctx,
		"UPDATE products SET stock_quantity = GREATEST(0, stock_quantity + ?) WHERE id = ?",
		delta, productID)
	if err != nil {
		return err
	}
	return mustMatch(res, ErrProductNotFound)
}

// StockTx reads the current stock quantity inside the caller's transaction.
func (r *ProductRepo) StockTx(ctx context.Context, tx *sql.Tx, productID uint64) (float64, error) {
	var qty float64
	err := tx.QueryRowContext(ctx,
		"SELECT stock_quantity FROM products WHERE id=? LIMIT 1", productID).Scan(&qty)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrProductNotFound
	}
	return qty, err
}

// BelowMinimum returns the subset of the given products whose stock is at or
// below the minimum.  The sale handler uses it after commit to publish
// low-stock alerts.
func (r *ProductRepo) BelowMinimum(ctx context.Context, ids []uint64) ([]model.Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	q := "SELECT " + productColumns + " FROM products WHERE stock_quantity <= minimum_stock AND id IN ("
	args := make([]any, 0, len(ids))
	for i, id := range ids {
		if i > 0 {
			q += ","
		}
		q += "?"
		args = append(args, id)
	}
	q += ")"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Product
	for rows.Next() {
		p, err := scanProduct(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
