package reconcile

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) *decimal.Decimal {
	v := decimal.RequireFromString(s)
	return &v
}

func TestMatches(t *testing.T) {
	t.Run("equal values match", func(t *testing.T) {
		assert.True(t, Matches(d("100"), d("100")))
	})

	t.Run("difference inside tolerance matches", func(t *testing.T) {
		assert.True(t, Matches(d("100.00"), d("100.01")))
		assert.True(t, Matches(d("100.01"), d("100.00")))
	})

	t.Run("difference beyond tolerance does not match", func(t *testing.T) {
		assert.False(t, Matches(d("100.00"), d("100.02")))
		assert.False(t, Matches(d("100"), d("99")))
	})

	t.Run("nil never matches", func(t *testing.T) {
		assert.False(t, Matches(nil, d("100")))
		assert.False(t, Matches(d("100"), nil))
		assert.False(t, Matches(nil, nil))
	})
}

func TestMatchesWithin(t *testing.T) {
	wide := decimal.NewFromInt(5)
	assert.True(t, MatchesWithin(d("100"), d("104"), wide))
	assert.False(t, MatchesWithin(d("100"), d("106"), wide))
}

func TestMissing(t *testing.T) {
	assert.True(t, Missing(nil, d("1")))
	assert.True(t, Missing(d("1"), nil))
	assert.True(t, Missing(nil, nil))
	assert.False(t, Missing(d("1"), d("2")))
}
