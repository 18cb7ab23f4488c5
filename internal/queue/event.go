// Package queue defines message payloads exchanged over the message broker.
package queue

// StockLowEvent is published when a sale drains a product to or below its
// minimum stock level. It carries enough information for downstream
// consumers to log or notify without querying the primary database.
type StockLowEvent struct {
	ProductID     uint64  `json:"product_id"`
	ProductName   string  `json:"product_name"`
	ProductType   string  `json:"product_type"`
	Unit          string  `json:"unit"`
	StockQuantity float64 `json:"stock_quantity"`
	MinimumStock  float64 `json:"minimum_stock"`
	SaleID        uint64  `json:"sale_id"`
	OccurredAt    string  `json:"occurred_at"`
}
