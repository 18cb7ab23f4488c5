package handler

import (
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/agroshop-api/internal/apperr"
	"github.com/iliyamo/agroshop-api/internal/model"
)

func TestValidateLineItems(t *testing.T) {
	valid := []model.LineItem{
		{ProductID: 1, Quantity: 2, UnitPrice: 10, TotalPrice: 20},
		{ProductID: 2, Quantity: 0.5, UnitPrice: 8, TotalPrice: 4},
	}

	total, err := validateLineItems(valid)
	require.NoError(t, err)
	require.Equal(t, 24.0, total)
}

func TestValidateLineItemsRejections(t *testing.T) {
	cases := []struct {
		name  string
		items []model.LineItem
	}{
		{"empty", nil},
		{"missing product id", []model.LineItem{{Quantity: 1, UnitPrice: 5, TotalPrice: 5}}},
		{"zero quantity", []model.LineItem{{ProductID: 1, Quantity: 0, UnitPrice: 5, TotalPrice: 0}}},
		{"negative quantity", []model.LineItem{{ProductID: 1, Quantity: -2, UnitPrice: 5, TotalPrice: -10}}},
		{"negative price", []model.LineItem{{ProductID: 1, Quantity: 1, UnitPrice: -5, TotalPrice: -5}}},
		{"total does not match", []model.LineItem{{ProductID: 1, Quantity: 2, UnitPrice: 10, TotalPrice: 25}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := validateLineItems(tc.items)
			require.Error(t, err)
			var ae *apperr.Error
			require.ErrorAs(t, err, &ae)
			require.Equal(t, apperr.KindValidation, ae.Kind)
		})
	}
}

func TestValidateLineItemsToleratesRounding(t *testing.T) {
	// 3 × 0.1 = 0.30000000000000004 in float arithmetic; a client sending
	// 0.30 must not be rejected.
	items := []model.LineItem{{ProductID: 1, Quantity: 3, UnitPrice: 0.1, TotalPrice: 0.30}}
	_, err := validateLineItems(items)
	require.NoError(t, err)
}

// Negative limit/offset values would make MySQL reject the LIMIT clause, so
// they are clamped before reaching a query.
func TestQueryPageClampsNegatives(t *testing.T) {
	cases := []struct {
		name       string
		query      string
		wantLimit  int
		wantOffset int
	}{
		{"defaults", "", 100, 0},
		{"explicit", "limit=25&offset=50", 25, 50},
		{"negative offset", "offset=-1", 100, 0},
		{"negative limit", "limit=-5&offset=10", 100, 10},
		{"zero limit", "limit=0", 100, 0},
		{"garbage", "limit=abc&offset=xyz", 100, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/api/sales?"+tc.query, nil)
			c := echo.New().NewContext(req, httptest.NewRecorder())
			limit, offset := queryPage(c)
			require.Equal(t, tc.wantLimit, limit)
			require.Equal(t, tc.wantOffset, offset)
		})
	}
}

func TestValidateLineItemsReportsOffendingIndex(t *testing.T) {
	items := []model.LineItem{
		{ProductID: 1, Quantity: 2, UnitPrice: 10, TotalPrice: 20},
		{ProductID: 2, Quantity: 1, UnitPrice: 10, TotalPrice: 99},
	}
	_, err := validateLineItems(items)
	var ae *apperr.Error
	require.ErrorAs(t, err, &ae)
	require.Equal(t, 1, ae.Extra["index"])
}
