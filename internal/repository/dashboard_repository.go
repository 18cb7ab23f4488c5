package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/agroshop-api/internal/model"
)

// DashboardRepo runs the read-only aggregation queries behind the dashboard
// endpoints.  Nothing here mutates state.
type DashboardRepo struct{ db *sql.DB }

func NewDashboardRepo(db *sql.DB) *DashboardRepo { return &DashboardRepo{db: db} }

// RecentOrder is a sale or purchase header summarized for the dashboard.
type RecentOrder struct {
	ID            uint64              `json:"id"`
	Counterparty  string              `json:"counterparty"`
	TotalAmount   float64             `json:"total_amount"`
	PaidAmount    float64             `json:"paid_amount"`
	PaymentStatus model.PaymentStatus `json:"payment_status"`
	Date          time.Time           `json:"date"`
	ItemsCount    int64               `json:"items_count"`
}

// Stats is the aggregate payload of GET /api/dashboard/stats.
type Stats struct {
	TotalSales       float64       `json:"total_sales"`
	TotalPurchases   float64       `json:"total_purchases"`
	TotalDebts       float64       `json:"total_debts"`
	TotalProducts    int64         `json:"total_products"`
	LowStockProducts int64         `json:"low_stock_products"`
	RecentSales      []RecentOrder `json:"recent_sales"`
	RecentPurchases  []RecentOrder `json:"recent_purchases"`
	PendingDebts     []model.Debt  `json:"pending_debts"`
}

// Stats computes the headline totals plus the recent-activity lists.
func (r *DashboardRepo) Stats(ctx context.Context) (Stats, error) {
	var s Stats

	err := r.db.QueryRowContext(ctx,
		"SELECT COALESCE(SUM(total_amount),0) FROM sales WHERE payment_status='paid'").Scan(&s.TotalSales)
	if err != nil {
		return Stats{}, err
	}
	err = r.db.QueryRowContext(ctx,
		"SELECT COALESCE(SUM(total_amount),0) FROM purchases WHERE payment_status='paid'").Scan(&s.TotalPurchases)
	if err != nil {
		return Stats{}, err
	}
	err = r.db.QueryRowContext(ctx,
		"SELECT COALESCE(SUM(amount),0) FROM debts WHERE status IN ('pending','partial','overdue')").Scan(&s.TotalDebts)
	if err != nil {
		return Stats{}, err
	}
	err = r.db.QueryRowContext(ctx,
		"SELECT COUNT(*), COALESCE(SUM(CASE WHEN stock_quantity <= minimum_stock THEN 1 ELSE 0 END),0) FROM products").
		Scan(&s.TotalProducts, &s.LowStockProducts)
	if err != nil {
		return Stats{}, err
	}

	s.RecentSales, err = r.recentOrders(ctx,
		`SELECT s.id, s.customer_name, s.total_amount, s.paid_amount, s.payment_status, s.sale_date,
		        (SELECT COUNT(*) FROM sale_items si WHERE si.sale_id = s.id)
		 FROM sales s ORDER BY s.sale_date DESC, s.id DESC LIMIT 5`)
	if err != nil {
		return Stats{}, err
	}
	s.RecentPurchases, err = r.recentOrders(ctx,
		`SELECT p.id, p.supplier_name, p.total_amount, p.paid_amount, p.payment_status, p.purchase_date,
		        (SELECT COUNT(*) FROM purchase_items pi WHERE pi.purchase_id = p.id)
		 FROM purchases p ORDER BY p.purchase_date DESC, p.id DESC LIMIT 5`)
	if err != nil {
		return Stats{}, err
	}

	rows, err := r.db.QueryContext(ctx,
		"SELECT "+debtColumns+" FROM debts WHERE status IN ('pending','partial','overdue') ORDER BY created_at DESC LIMIT 10")
	if err != nil {
		return Stats{}, err
	}
	defer rows.Close()
	for rows.Next() {
		d, err := scanDebt(rows.Scan)
		if err != nil {
			return Stats{}, err
		}
		s.PendingDebts = append(s.PendingDebts, d)
	}
	return s, rows.Err()
}

func (r *DashboardRepo) recentOrders(ctx context.Context, q string) ([]RecentOrder, error) {
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RecentOrder
	for rows.Next() {
		var o RecentOrder
		if err := rows.Scan(&o.ID, &o.Counterparty, &o.TotalAmount, &o.PaidAmount, &o.PaymentStatus, &o.Date, &o.ItemsCount); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// TrendBucket is one day of the sales trend.
type TrendBucket struct {
	Total float64 `json:"total"`
	Paid  float64 `json:"paid"`
	Count int64   `json:"count"`
}

// SalesTrend buckets sales of the last N days by calendar date.
func (r *DashboardRepo) SalesTrend(ctx context.Context, days int) (map[string]TrendBucket, error) {
	end := time.Now().UTC()
	start := end.AddDate(0, 0, -days)

	rows, err := r.db.QueryContext(ctx,
		"SELECT DATE(sale_date), total_amount, payment_status FROM sales WHERE sale_date >= ? AND sale_date <= ? ORDER BY 1",
		start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]TrendBucket)
	for rows.Next() {
		var (
			day    time.Time
			amount float64
			status model.PaymentStatus
		)
		if err := rows.Scan(&day, &amount, &status); err != nil {
			return nil, err
		}
		key := day.Format("2006-01-02")
		b := out[key]
		b.Total += amount
		b.Count++
		if status == model.PaymentPaid {
			b.Paid += amount
		}
		out[key] = b
	}
	return out, rows.Err()
}

// TopProduct is one row of the best-sellers report.
type TopProduct struct {
	ProductID     uint64            `json:"product_id"`
	Name          string            `json:"name"`
	Type          model.ProductType `json:"type"`
	TotalQuantity float64           `json:"total_quantity"`
}

// TopProducts ranks products by total quantity sold.
func (r *DashboardRepo) TopProducts(ctx context.Context, limit int) ([]TopProduct, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT p.id, p.name, p.type, COALESCE(SUM(si.quantity),0) AS total_quantity
		FROM sale_items si
		JOIN products p ON p.id = si.product_id
		GROUP BY p.id, p.name, p.type
		ORDER BY total_quantity DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TopProduct
	for rows.Next() {
		var t TopProduct
		if err := rows.Scan(&t.ProductID, &t.Name, &t.Type, &t.TotalQuantity); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// MoneyBucket reports total/paid/pending amounts for one order kind.
type MoneyBucket struct {
	Total   float64 `json:"total"`
	Paid    float64 `json:"paid"`
	Pending float64 `json:"pending"`
}

// MonthlySummary is the payload of GET /api/dashboard/monthly-summary.
type MonthlySummary struct {
	Year      int         `json:"year"`
	Month     int         `json:"month"`
	Sales     MoneyBucket `json:"sales"`
	Purchases MoneyBucket `json:"purchases"`
	NewDebts  float64     `json:"new_debts"`
	Profit    float64     `json:"profit"`
}

// Monthly computes totals for one calendar month.  Profit is paid sales
// minus paid purchases.
func (r *DashboardRepo) Monthly(ctx context.Context, year, month int) (MonthlySummary, error) {
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)

	out := MonthlySummary{Year: year, Month: month}

	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(total_amount),0),
		       COALESCE(SUM(CASE WHEN payment_status='paid' THEN total_amount ELSE 0 END),0)
		FROM sales WHERE sale_date >= ? AND sale_date < ?`, start, end).
		Scan(&out.Sales.Total, &out.Sales.Paid)
	if err != nil {
		return MonthlySummary{}, err
	}
	out.Sales.Pending = out.Sales.Total - out.Sales.Paid

	err = r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(total_amount),0),
		       COALESCE(SUM(CASE WHEN payment_status='paid' THEN total_amount ELSE 0 END),0)
		FROM purchases WHERE purchase_date >= ? AND purchase_date < ?`, start, end).
		Scan(&out.Purchases.Total, &out.Purchases.Paid)
	if err != nil {
		return MonthlySummary{}, err
	}
	out.Purchases.Pending = out.Purchases.Total - out.Purchases.Paid

	err = r.db.QueryRowContext(ctx,
		"SELECT COALESCE(SUM(amount),0) FROM debts WHERE created_at >= ? AND created_at < ?", start, end).
		Scan(&out.NewDebts)
	if err != nil {
		return MonthlySummary{}, err
	}

	out.Profit = out.Sales.Paid - out.Purchases.Paid
	return out, nil
}
