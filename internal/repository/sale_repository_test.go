package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/iliyamo/agroshop-api/internal/model"
)

const adjustStockQ = "UPDATE products SET stock_quantity = GREATEST(0, stock_quantity + ?) WHERE id = ?"

// Creating a sale writes the header, bulk-inserts its items and subtracts
// stock for every line, all inside one transaction.
func TestCreateSaleTransaction(t *testing.T) {
	db, mock := newMock(t)
	sales := NewSaleRepo(db)
	products := NewProductRepo(db)
	ctx := context.Background()

	items := []model.LineItem{
		{ProductID: 3, Quantity: 2, UnitPrice: 10, TotalPrice: 20},
		{ProductID: 7, Quantity: 1, UnitPrice: 5, TotalPrice: 5},
	}
	s := model.Sale{
		CustomerName:  "Karim",
		TotalAmount:   25,
		PaidAmount:    25,
		PaymentStatus: model.PaymentPaid,
		SaleDate:      time.Now().UTC(),
	}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO sales")).
		WillReturnResult(sqlmock.NewResult(11, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO sale_items (sale_id, product_id, quantity, unit_price, total_price) VALUES (?,?,?,?,?),(?,?,?,?,?)")).
		WithArgs(uint64(11), uint64(3), 2.0, 10.0, 20.0, uint64(11), uint64(7), 1.0, 5.0, 5.0).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta(adjustStockQ)).
		WithArgs(-2.0, uint64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(adjustStockQ)).
		WithArgs(-1.0, uint64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if err := sales.CreateTx(ctx, tx, &s); err != nil {
		t.Fatalf("CreateTx: %v", err)
	}
	if s.ID != 11 {
		t.Fatalf("sale id = %d, want 11", s.ID)
	}
	if err := sales.InsertItemsTx(ctx, tx, s.ID, items); err != nil {
		t.Fatalf("InsertItemsTx: %v", err)
	}
	for _, it := range items {
		if err := products.AdjustStockTx(ctx, tx, it.ProductID, -it.Quantity); err != nil {
			t.Fatalf("AdjustStockTx(%d): %v", it.ProductID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
}

// Selling an unknown product fails the stock adjustment, which must roll the
// whole sale back.
func TestCreateSaleUnknownProductRollsBack(t *testing.T) {
	db, mock := newMock(t)
	sales := NewSaleRepo(db)
	products := NewProductRepo(db)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO sales")).
		WillReturnResult(sqlmock.NewResult(12, 1))
	mock.ExpectExec(regexp.QuoteMeta(adjustStockQ)).
		WithArgs(-4.0, uint64(999)).
		WillReturnResult(sqlmock.NewResult(0, 0)) // no such product
	mock.ExpectRollback()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	s := model.Sale{CustomerName: "Karim", TotalAmount: 40, SaleDate: time.Now().UTC()}
	if err := sales.CreateTx(ctx, tx, &s); err != nil {
		t.Fatalf("CreateTx: %v", err)
	}
	if err := products.AdjustStockTx(ctx, tx, 999, -4); err != ErrProductNotFound {
		t.Fatalf("err = %v, want ErrProductNotFound", err)
	}
	_ = tx.Rollback()
}

// Deleting a sale reads its items and returns each quantity to stock before
// removing the rows.
func TestDeleteSaleRestoresStock(t *testing.T) {
	db, mock := newMock(t)
	sales := NewSaleRepo(db)
	products := NewProductRepo(db)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, sale_id, product_id, quantity, unit_price, total_price FROM sale_items WHERE sale_id=? ORDER BY id")).
		WithArgs(uint64(11)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "sale_id", "product_id", "quantity", "unit_price", "total_price"}).
			AddRow(1, 11, 3, 2.0, 10.0, 20.0).
			AddRow(2, 11, 7, 1.0, 5.0, 5.0))
	mock.ExpectExec(regexp.QuoteMeta(adjustStockQ)).
		WithArgs(2.0, uint64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(adjustStockQ)).
		WithArgs(1.0, uint64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM sale_items WHERE sale_id=?")).
		WithArgs(uint64(11)).
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM sales WHERE id=?")).
		WithArgs(uint64(11)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	items, err := sales.ItemsTx(ctx, tx, 11)
	if err != nil {
		t.Fatalf("ItemsTx: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("items = %d, want 2", len(items))
	}
	for _, it := range items {
		if err := products.AdjustStockTx(ctx, tx, it.ProductID, it.Quantity); err != nil {
			t.Fatalf("AdjustStockTx: %v", err)
		}
	}
	if err := sales.DeleteItemsTx(ctx, tx, 11); err != nil {
		t.Fatalf("DeleteItemsTx: %v", err)
	}
	if err := sales.DeleteHeaderTx(ctx, tx, 11); err != nil {
		t.Fatalf("DeleteHeaderTx: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
}

func TestPaymentForUpdateNotFound(t *testing.T) {
	db, mock := newMock(t)
	sales := NewSaleRepo(db)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT total_amount, paid_amount FROM sales WHERE id=? FOR UPDATE")).
		WithArgs(uint64(404)).
		WillReturnRows(sqlmock.NewRows([]string{"total_amount", "paid_amount"}))
	mock.ExpectRollback()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if _, _, err := sales.PaymentForUpdateTx(ctx, tx, 404); err != ErrSaleNotFound {
		t.Fatalf("err = %v, want ErrSaleNotFound", err)
	}
	_ = tx.Rollback()
}

// The locked read plus ApplyPayment plus SetPaymentTx is the full payment
// path; this exercises the cap at the order total.
func TestRecordPaymentCapsAtTotal(t *testing.T) {
	db, mock := newMock(t)
	sales := NewSaleRepo(db)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT total_amount, paid_amount FROM sales WHERE id=? FOR UPDATE")).
		WithArgs(uint64(11)).
		WillReturnRows(sqlmock.NewRows([]string{"total_amount", "paid_amount"}).AddRow(100.0, 70.0))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE sales SET paid_amount=?, payment_status=? WHERE id=?")).
		WithArgs(100.0, model.PaymentPaid, uint64(11)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	total, paid, err := sales.PaymentForUpdateTx(ctx, tx, 11)
	if err != nil {
		t.Fatalf("PaymentForUpdateTx: %v", err)
	}
	newPaid, status := model.ApplyPayment(total, paid, 500)
	if err := sales.SetPaymentTx(ctx, tx, 11, newPaid, status); err != nil {
		t.Fatalf("SetPaymentTx: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
}
