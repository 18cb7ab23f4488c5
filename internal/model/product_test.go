package model

import "testing"

func strp(s string) *string   { return &s }
func f64p(f float64) *float64 { return &f }

func TestProductPatchMerge(t *testing.T) {
	desc := "granular NPK blend"
	p := Product{
		Name:          "NPK 20-20-20",
		Type:          ProductFertilizer,
		Brand:         "GrowFast",
		Unit:          "kg",
		PricePerUnit:  12.5,
		StockQuantity: 40,
		MinimumStock:  10,
		Description:   &desc,
	}

	patch := ProductPatch{
		Name:         strp("NPK 20-20-20 Pro"),
		PricePerUnit: f64p(13.0),
	}
	patch.Merge(&p)

	if p.Name != "NPK 20-20-20 Pro" {
		t.Fatalf("name = %q", p.Name)
	}
	if p.PricePerUnit != 13.0 {
		t.Fatalf("price = %v", p.PricePerUnit)
	}
	// Untouched fields survive.
	if p.Brand != "GrowFast" || p.StockQuantity != 40 || p.Description == nil {
		t.Fatalf("unpatched fields changed: %+v", p)
	}
}

func TestProductPatchClampsNegativeStock(t *testing.T) {
	p := Product{StockQuantity: 5}
	patch := ProductPatch{StockQuantity: f64p(-3)}
	patch.Merge(&p)
	if p.StockQuantity != 0 {
		t.Fatalf("stock = %v, want 0", p.StockQuantity)
	}
}

func TestProductPatchEmpty(t *testing.T) {
	if !(ProductPatch{}).Empty() {
		t.Fatal("zero patch should be empty")
	}
	if (ProductPatch{Unit: strp("liter")}).Empty() {
		t.Fatal("patch with a field should not be empty")
	}
}

func TestValidProductType(t *testing.T) {
	for _, s := range []string{"fertilizer", "pesticide", "seed"} {
		if !ValidProductType(s) {
			t.Fatalf("expected %q to be valid", s)
		}
	}
	if ValidProductType("tool") {
		t.Fatal("expected 'tool' to be invalid")
	}
}
