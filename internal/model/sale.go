package model

import "time"

// Sale is an order header for goods leaving the shop.  TotalAmount is fixed
// at creation time as the sum of the line items' total prices; PaidAmount
// only ever grows via payment updates and is capped at TotalAmount.
type Sale struct {
	ID              uint64        `json:"id"`
	CustomerName    string        `json:"customer_name"`
	CustomerPhone   *string       `json:"customer_phone"`
	CustomerAddress *string       `json:"customer_address"`
	TotalAmount     float64       `json:"total_amount"`
	PaidAmount      float64       `json:"paid_amount"`
	PaymentStatus   PaymentStatus `json:"payment_status"`
	Notes           *string       `json:"notes"`
	SaleDate        time.Time     `json:"sale_date"`
	Items           []SaleItem    `json:"items"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// SaleItem is one line of a sale.  Items are exclusively owned by their
// header and are deleted with it.  ProductName and ProductUnit are joined
// in from the products table for display.
type SaleItem struct {
	ID          uint64  `json:"id"`
	SaleID      uint64  `json:"sale_id"`
	ProductID   uint64  `json:"product_id"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	TotalPrice  float64 `json:"total_price"`
	ProductName string  `json:"product_name,omitempty"`
	ProductUnit string  `json:"product_unit,omitempty"`
}
