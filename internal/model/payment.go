package model

// PaymentStatus tracks how much of a sale, purchase or debt has been
// settled.  Statuses move forward only: pending → partial → paid, with
// overdue reached from pending/partial by the time-driven debt sweep.
type PaymentStatus string

const (
	PaymentPaid    PaymentStatus = "paid"
	PaymentPending PaymentStatus = "pending"
	PaymentPartial PaymentStatus = "partial"
	PaymentOverdue PaymentStatus = "overdue"
)

// ValidPaymentStatus reports whether s is one of the known enum values.
func ValidPaymentStatus(s string) bool {
	switch PaymentStatus(s) {
	case PaymentPaid, PaymentPending, PaymentPartial, PaymentOverdue:
		return true
	}
	return false
}

// ApplyPayment returns the new paid amount and status after adding increment
// to the running paid balance of an order with the given total.  The paid
// amount never decreases and is capped at the total.
func ApplyPayment(total, paid, increment float64) (float64, PaymentStatus) {
	newPaid := paid + increment
	if newPaid < paid {
		newPaid = paid
	}
	switch {
	case newPaid >= total:
		return total, PaymentPaid
	case newPaid > 0:
		return newPaid, PaymentPartial
	default:
		return newPaid, PaymentPending
	}
}

// ApplyDebtPayment returns the remaining debt amount and status after a
// payment.  Debts track the outstanding amount directly: it decreases to a
// floor of zero, and the status only changes when the amount moved.
func ApplyDebtPayment(amount float64, payment float64, current PaymentStatus) (float64, PaymentStatus) {
	remaining := amount - payment
	if remaining < 0 {
		remaining = 0
	}
	switch {
	case remaining == 0:
		return 0, PaymentPaid
	case remaining < amount:
		return remaining, PaymentPartial
	default:
		return remaining, current
	}
}
