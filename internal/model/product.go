package model

import "time"

// ProductType enumerates the goods categories the shop trades in.
type ProductType string

const (
	ProductFertilizer ProductType = "fertilizer"
	ProductPesticide  ProductType = "pesticide"
	ProductSeed       ProductType = "seed"
)

// ValidProductType reports whether s is one of the known enum values.
func ValidProductType(s string) bool {
	switch ProductType(s) {
	case ProductFertilizer, ProductPesticide, ProductSeed:
		return true
	}
	return false
}

// Product mirrors the `products` table.  StockQuantity is never written
// directly by application code when orders move: sale/purchase create and
// delete adjust it through atomic in-database arithmetic, clamped at zero.
type Product struct {
	ID            uint64      `json:"id"`
	Name          string      `json:"name"`
	Type          ProductType `json:"type"`
	Brand         string      `json:"brand"`
	Unit          string      `json:"unit"` // kg, liter, packet, ...
	PricePerUnit  float64     `json:"price_per_unit"`
	StockQuantity float64     `json:"stock_quantity"`
	MinimumStock  float64     `json:"minimum_stock"`
	Description   *string     `json:"description"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// ProductPatch carries the optional fields of a product update.  Nil fields
// are left untouched; the repository merges the patch field-by-field rather
// than building SQL from dynamic column names.
type ProductPatch struct {
	Name          *string  `json:"name"`
	Type          *string  `json:"type"`
	Brand         *string  `json:"brand"`
	Unit          *string  `json:"unit"`
	PricePerUnit  *float64 `json:"price_per_unit"`
	StockQuantity *float64 `json:"stock_quantity"`
	MinimumStock  *float64 `json:"minimum_stock"`
	Description   *string  `json:"description"`
}

// Empty reports whether the patch carries no changes.
func (p ProductPatch) Empty() bool {
	return p.Name == nil && p.Type == nil && p.Brand == nil && p.Unit == nil &&
		p.PricePerUnit == nil && p.StockQuantity == nil && p.MinimumStock == nil &&
		p.Description == nil
}

// Merge applies the patch's non-nil fields onto dst.
func (p ProductPatch) Merge(dst *Product) {
	if p.Name != nil {
		dst.Name = *p.Name
	}
	if p.Type != nil {
		dst.Type = ProductType(*p.Type)
	}
	if p.Brand != nil {
		dst.Brand = *p.Brand
	}
	if p.Unit != nil {
		dst.Unit = *p.Unit
	}
	if p.PricePerUnit != nil {
		dst.PricePerUnit = *p.PricePerUnit
	}
	if p.StockQuantity != nil {
		dst.StockQuantity = *p.StockQuantity
		if dst.StockQuantity < 0 {
			dst.StockQuantity = 0
		}
	}
	if p.MinimumStock != nil {
		dst.MinimumStock = *p.MinimumStock
	}
	if p.Description != nil {
		dst.Description = p.Description
	}
}
