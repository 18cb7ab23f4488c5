package model

import "time"

// Debt tracks money a customer owes the shop.  Unlike sales/purchases the
// outstanding Amount itself decreases as payments arrive (floored at zero);
// there is no separate paid_amount column.
type Debt struct {
	ID            uint64        `json:"id"`
	CustomerName  string        `json:"customer_name"`
	CustomerPhone *string       `json:"customer_phone"`
	Amount        float64       `json:"amount"`
	Description   string        `json:"description"`
	DueDate       *time.Time    `json:"due_date"`
	Status        PaymentStatus `json:"status"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// DebtPatch carries the optional fields of a debt update, merged
// field-by-field like ProductPatch.
type DebtPatch struct {
	CustomerName  *string    `json:"customer_name"`
	CustomerPhone *string    `json:"customer_phone"`
	Amount        *float64   `json:"amount"`
	Description   *string    `json:"description"`
	DueDate       *time.Time `json:"due_date"`
	Status        *string    `json:"status"`
}

// Empty reports whether the patch carries no changes.
func (p DebtPatch) Empty() bool {
	return p.CustomerName == nil && p.CustomerPhone == nil && p.Amount == nil &&
		p.Description == nil && p.DueDate == nil && p.Status == nil
}

// Merge applies the patch's non-nil fields onto dst.
func (p DebtPatch) Merge(dst *Debt) {
	if p.CustomerName != nil {
		dst.CustomerName = *p.CustomerName
	}
	if p.CustomerPhone != nil {
		dst.CustomerPhone = p.CustomerPhone
	}
	if p.Amount != nil {
		dst.Amount = *p.Amount
		if dst.Amount < 0 {
			dst.Amount = 0
		}
	}
	if p.Description != nil {
		dst.Description = *p.Description
	}
	if p.DueDate != nil {
		dst.DueDate = p.DueDate
	}
	if p.Status != nil {
		dst.Status = PaymentStatus(*p.Status)
	}
}
