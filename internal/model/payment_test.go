package model

import "testing"

func TestApplyPayment(t *testing.T) {
	cases := []struct {
		name       string
		total      float64
		paid       float64
		increment  float64
		wantPaid   float64
		wantStatus PaymentStatus
	}{
		{"zero increment stays pending", 100, 0, 0, 0, PaymentPending},
		{"partial payment", 100, 0, 40, 40, PaymentPartial},
		{"accumulates to partial", 100, 40, 30, 70, PaymentPartial},
		{"exact settle", 100, 70, 30, 100, PaymentPaid},
		{"overpay caps at total", 100, 70, 500, 100, PaymentPaid},
		{"overpay from zero caps", 100, 0, 250, 100, PaymentPaid},
		{"negative increment never decreases", 100, 40, -10, 40, PaymentPartial},
		{"zero total is immediately paid", 0, 0, 0, 0, PaymentPaid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gotPaid, gotStatus := ApplyPayment(tc.total, tc.paid, tc.increment)
			if gotPaid != tc.wantPaid {
				t.Fatalf("paid = %v, want %v", gotPaid, tc.wantPaid)
			}
			if gotStatus != tc.wantStatus {
				t.Fatalf("status = %q, want %q", gotStatus, tc.wantStatus)
			}
		})
	}
}

func TestApplyPaymentMonotone(t *testing.T) {
	// However payments arrive, the running paid amount never decreases and
	// never exceeds the total.
	total := 250.0
	paid := 0.0
	for _, inc := range []float64{30, 0, -5, 100, 200, 17} {
		newPaid, _ := ApplyPayment(total, paid, inc)
		if newPaid < paid {
			t.Fatalf("paid decreased: %v -> %v (inc=%v)", paid, newPaid, inc)
		}
		if newPaid > total {
			t.Fatalf("paid %v exceeds total %v", newPaid, total)
		}
		paid = newPaid
	}
	if paid != total {
		t.Fatalf("paid = %v, want settled total %v", paid, total)
	}
}

func TestApplyDebtPayment(t *testing.T) {
	cases := []struct {
		name       string
		amount     float64
		payment    float64
		current    PaymentStatus
		wantAmount float64
		wantStatus PaymentStatus
	}{
		{"partial payment", 100, 40, PaymentPending, 60, PaymentPartial},
		{"exact payoff", 100, 100, PaymentPartial, 0, PaymentPaid},
		{"overpay floors at zero", 100, 500, PaymentPending, 0, PaymentPaid},
		{"overdue debt partially paid", 100, 30, PaymentOverdue, 70, PaymentPartial},
		{"overdue debt paid off", 100, 100, PaymentOverdue, 0, PaymentPaid},
		{"zero payment leaves status alone", 100, 0, PaymentOverdue, 100, PaymentOverdue},
		{"zero amount debt", 0, 10, PaymentPending, 0, PaymentPaid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			gotAmount, gotStatus := ApplyDebtPayment(tc.amount, tc.payment, tc.current)
			if gotAmount != tc.wantAmount {
				t.Fatalf("amount = %v, want %v", gotAmount, tc.wantAmount)
			}
			if gotStatus != tc.wantStatus {
				t.Fatalf("status = %q, want %q", gotStatus, tc.wantStatus)
			}
		})
	}
}

func TestValidPaymentStatus(t *testing.T) {
	for _, s := range []string{"paid", "pending", "partial", "overdue"} {
		if !ValidPaymentStatus(s) {
			t.Fatalf("expected %q to be valid", s)
		}
	}
	for _, s := range []string{"", "PAID", "done", "cancelled"} {
		if ValidPaymentStatus(s) {
			t.Fatalf("expected %q to be invalid", s)
		}
	}
}
