package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/iliyamo/agroshop-api/internal/model"
)

func TestMarkOverdueIdempotent(t *testing.T) {
	db, mock := newMock(t)
	repo := NewDebtRepo(db)
	ctx := context.Background()
	asOf := time.Date(2026, 8, 26, 0, 0, 0, 0, time.UTC)

	q := regexp.QuoteMeta("UPDATE debts SET status=? WHERE due_date < ? AND status IN (?,?)")

	// First sweep flips three debts.
	mock.ExpectExec(q).
		WithArgs(model.PaymentOverdue, asOf, model.PaymentPending, model.PaymentPartial).
		WillReturnResult(sqlmock.NewResult(0, 3))
	// Second sweep finds nothing left to flip.
	mock.ExpectExec(q).
		WithArgs(model.PaymentOverdue, asOf, model.PaymentPending, model.PaymentPartial).
		WillReturnResult(sqlmock.NewResult(0, 0))

	n, err := repo.MarkOverdue(ctx, asOf)
	if err != nil {
		t.Fatalf("MarkOverdue: %v", err)
	}
	if n != 3 {
		t.Fatalf("updated = %d, want 3", n)
	}

	n, err = repo.MarkOverdue(ctx, asOf)
	if err != nil {
		t.Fatalf("MarkOverdue again: %v", err)
	}
	if n != 0 {
		t.Fatalf("updated = %d, want 0 on second sweep", n)
	}
}

// A debt payment runs under a row lock: read amount and status, apply the
// payment in memory, write the floored remainder back.
func TestDebtPaymentFloorsAtZero(t *testing.T) {
	db, mock := newMock(t)
	repo := NewDebtRepo(db)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT amount, status FROM debts WHERE id=? FOR UPDATE")).
		WithArgs(uint64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"amount", "status"}).AddRow(80.0, "partial"))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE debts SET amount=?, status=? WHERE id=?")).
		WithArgs(0.0, model.PaymentPaid, uint64(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	amount, status, err := repo.ForUpdateTx(ctx, tx, 5)
	if err != nil {
		t.Fatalf("ForUpdateTx: %v", err)
	}
	newAmount, newStatus := model.ApplyDebtPayment(amount, 200, status)
	if newAmount != 0 || newStatus != model.PaymentPaid {
		t.Fatalf("ApplyDebtPayment = %v, %q", newAmount, newStatus)
	}
	if err := repo.SetAmountTx(ctx, tx, 5, newAmount, newStatus); err != nil {
		t.Fatalf("SetAmountTx: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
}

func TestDebtForUpdateNotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewDebtRepo(db)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT amount, status FROM debts WHERE id=? FOR UPDATE")).
		WithArgs(uint64(404)).
		WillReturnRows(sqlmock.NewRows([]string{"amount", "status"}))
	mock.ExpectRollback()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if _, _, err := repo.ForUpdateTx(ctx, tx, 404); err != ErrDebtNotFound {
		t.Fatalf("err = %v, want ErrDebtNotFound", err)
	}
	_ = tx.Rollback()
}
