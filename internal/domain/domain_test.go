package domain

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSKU(t *testing.T) {
	tests := []struct {
		sku     string
		want    int64
		wantErr bool
	}{
		{sku: "PROD-001", want: 1},
		{sku: "PROD-42", want: 42},
		{sku: "PROD-1234", want: 1234},
		{sku: "PROD-", wantErr: true},
		{sku: "PROD-000", wantErr: true},
		{sku: "prod-001", wantErr: true},
		{sku: "PROD-01a", wantErr: true},
		{sku: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.sku, func(t *testing.T) {
			id, err := ParseSKU(tt.sku)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, id)
		})
	}
}

func TestFormatSKU(t *testing.T) {
	assert.Equal(t, "PROD-001", FormatSKU(1))
	assert.Equal(t, "PROD-1234", FormatSKU(1234))
}

func TestParseOrderRef(t *testing.T) {
	t.Run("prefixed id", func(t *testing.T) {
		ref, err := ParseOrderRef("order_17")
		require.NoError(t, err)
		assert.Equal(t, OrderRef{ID: 17}, ref)
	})

	t.Run("bare id", func(t *testing.T) {
		ref, err := ParseOrderRef("17")
		require.NoError(t, err)
		assert.Equal(t, OrderRef{ID: 17}, ref)
	})

	t.Run("order number", func(t *testing.T) {
		ref, err := ParseOrderRef("ORD-2026-004")
		require.NoError(t, err)
		assert.Equal(t, OrderRef{Number: "ORD-2026-004"}, ref)
		assert.Equal(t, "ORD-2026-004", ref.String())
	})

	for _, bad := range []string{"", "order_", "order_abc", "0", "ORD-26-1", "abc"} {
		t.Run("rejects "+bad, func(t *testing.T) {
			_, err := ParseOrderRef(bad)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestErrorMatchesByKind(t *testing.T) {
	err := fmt.Errorf("reserve: %w", NewError(KindOutOfStock, "PROD-001", "Insufficient stock for product: %s", "PROD-001"))

	assert.ErrorIs(t, err, ErrOutOfStock)
	assert.False(t, errors.Is(err, ErrProductNotFound))

	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, KindOutOfStock, kind)

	_, ok = KindOf(errors.New("boom"))
	assert.False(t, ok)
}

func TestDeliveryStatusDispatched(t *testing.T) {
	assert.False(t, DeliveryStatusProcessing.Dispatched())
	assert.True(t, DeliveryStatusShipped.Dispatched())
	assert.True(t, DeliveryStatusOutForDelivery.Dispatched())
	assert.True(t, DeliveryStatusDelivered.Dispatched())
}

func TestProductVariants(t *testing.T) {
	p := Product{Sizes: []string{"S", "M"}}

	assert.True(t, p.AllowsSize("M"))
	assert.True(t, p.AllowsSize(""))
	assert.False(t, p.AllowsSize("XL"))
	assert.True(t, p.AllowsColor("Red"), "empty color set is unconstrained")
}

func TestCouponWindow(t *testing.T) {
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	until := time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)
	c := Coupon{ValidFrom: from, ValidUntil: until}

	assert.True(t, c.InWindow(from))
	assert.True(t, c.InWindow(until))
	assert.False(t, c.InWindow(from.Add(-time.Second)))
	assert.False(t, c.InWindow(until.Add(time.Second)))

	maxUses := 1
	c.MaxUses = &maxUses
	c.UsedCount = 1
	assert.True(t, c.Exhausted())
}
