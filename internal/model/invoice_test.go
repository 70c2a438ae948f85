package model

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) *decimal.Decimal {
	v := decimal.RequireFromString(s)
	return &v
}

func TestConfirmedQuantity(t *testing.T) {
	t.Run("weight only", func(t *testing.T) {
		line := InvoiceLine{Weight: dec("120.5")}
		got, ok := line.ConfirmedQuantity()
		assert.True(t, ok)
		assert.True(t, got.Equal(decimal.RequireFromString("120.5")))
	})

	t.Run("count only", func(t *testing.T) {
		line := InvoiceLine{Count: dec("40")}
		got, ok := line.ConfirmedQuantity()
		assert.True(t, ok)
		assert.True(t, got.Equal(decimal.NewFromInt(40)))
	})

	t.Run("neither channel", func(t *testing.T) {
		line := InvoiceLine{}
		_, ok := line.ConfirmedQuantity()
		assert.False(t, ok)
	})

	t.Run("both channels", func(t *testing.T) {
		line := InvoiceLine{Weight: dec("120.5"), Count: dec("40")}
		_, ok := line.ConfirmedQuantity()
		assert.False(t, ok)
	})

	t.Run("zero value counts as absent", func(t *testing.T) {
		line := InvoiceLine{Weight: dec("0"), Count: dec("40")}
		got, ok := line.ConfirmedQuantity()
		assert.True(t, ok)
		assert.True(t, got.Equal(decimal.NewFromInt(40)))
	})
}

func TestPayableAmount(t *testing.T) {
	inv := &Invoice{TotalAmount: decimal.RequireFromString("1000")}
	assert.True(t, PayableAmount(inv).Equal(decimal.RequireFromString("1000")))

	inv.DebitNoteValue = dec("800")
	assert.True(t, PayableAmount(inv).Equal(decimal.RequireFromString("800")))
}

func TestInvoiceTotalQuantity(t *testing.T) {
	inv := &Invoice{Lines: []InvoiceLine{
		{BilledQty: dec("10")},
		{BilledQty: dec("20.5")},
		{}, // no quantity extracted
	}}
	assert.True(t, inv.TotalQuantity().Equal(decimal.RequireFromString("30.5")))
}
