// Package reconcile holds the pure comparison logic used to reconcile an
// invoice against its purchase order, GRN aggregate, and physical
// measurement channels. No side effects, no persistence.
package reconcile

import "github.com/shopspring/decimal"

// Tolerance is the numeric tolerance applied to every quantity and rate
// comparison in the pipeline.
var Tolerance = decimal.NewFromFloat(0.01)

// Matches reports whether a and b are both present and equal within the
// default tolerance. A nil on either side is always a non-match; callers
// that need to distinguish "missing" from "different" use Missing first.
func Matches(a, b *decimal.Decimal) bool {
	return MatchesWithin(a, b, Tolerance)
}

// MatchesWithin is Matches with an explicit tolerance.
func MatchesWithin(a, b *decimal.Decimal, tolerance decimal.Decimal) bool {
	if a == nil || b == nil {
		return false
	}
	return a.Sub(*b).Abs().LessThanOrEqual(tolerance)
}

// Missing reports whether either side of a comparison is absent. Absence is
// a distinct condition and must never be silently treated as equality.
func Missing(a, b *decimal.Decimal) bool {
	return a == nil || b == nil
}
