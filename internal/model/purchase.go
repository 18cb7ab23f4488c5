package model

import "time"

// Purchase is the mirror image of Sale for goods entering the shop from a
// supplier.  The payment rules are identical; only the stock direction
// differs (purchases add stock, sales subtract it).
type Purchase struct {
	ID              uint64         `json:"id"`
	SupplierName    string         `json:"supplier_name"`
	SupplierPhone   *string        `json:"supplier_phone"`
	SupplierAddress *string        `json:"supplier_address"`
	TotalAmount     float64        `json:"total_amount"`
	PaidAmount      float64        `json:"paid_amount"`
	PaymentStatus   PaymentStatus  `json:"payment_status"`
	Notes           *string        `json:"notes"`
	PurchaseDate    time.Time      `json:"purchase_date"`
	Items           []PurchaseItem `json:"items"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// PurchaseItem is one line of a purchase.
type PurchaseItem struct {
	ID          uint64  `json:"id"`
	PurchaseID  uint64  `json:"purchase_id"`
	ProductID   uint64  `json:"product_id"`
	Quantity    float64 `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	TotalPrice  float64 `json:"total_price"`
	ProductName string  `json:"product_name,omitempty"`
	ProductUnit string  `json:"product_unit,omitempty"`
}

// LineItem is the common shape of an order line as submitted by clients.
// Both sale and purchase creation accept a list of these.
type LineItem struct {
	ProductID  uint64  `json:"product_id"`
	Quantity   float64 `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
	TotalPrice float64 `json:"total_price"`
}
