package reconcile

import (
	"github.com/shopspring/decimal"

	"backend/internal/model"
)

// Line comparison outcomes. This three-way classification is exposed for
// operator review; it does not by itself block validation.
const (
	LineMatch    = "match"
	LineMismatch = "mismatch"
	LineMissing  = "missing"
)

// LineComparison pairs a PO line with the invoice line at the same index.
type LineComparison struct {
	Index       int              `json:"index"`
	Status      string           `json:"status"`
	POItem      string           `json:"po_item,omitempty"`
	InvoiceItem string           `json:"invoice_item,omitempty"`
	POQty       *decimal.Decimal `json:"po_qty,omitempty"`
	InvoiceQty  *decimal.Decimal `json:"invoice_qty,omitempty"`
	PORate      *decimal.Decimal `json:"po_rate,omitempty"`
	InvoiceRate *decimal.Decimal `json:"invoice_rate,omitempty"`
}

// CompareLines classifies each line index up to the longer of the two sides.
// A line is a match when quantity and rate agree within tolerance (a rate
// absent on both sides also counts as agreement), a mismatch when both sides
// are present but differ, and missing when one side has no line or no
// quantity at that index.
func CompareLines(poLines []model.POLine, invLines []model.InvoiceLine) []LineComparison {
	n := len(poLines)
	if len(invLines) > n {
		n = len(invLines)
	}

	result := make([]LineComparison, 0, n)
	for i := 0; i < n; i++ {
		cmp := LineComparison{Index: i}

		var poQty, poRate *decimal.Decimal
		if i < len(poLines) {
			q := poLines[i].Quantity
			poQty = &q
			if !poLines[i].UnitCost.IsZero() {
				r := poLines[i].UnitCost
				poRate = &r
			}
			cmp.POItem = poLines[i].Description
		}

		var invQty, invRate *decimal.Decimal
		if i < len(invLines) {
			invQty = invLines[i].BilledQty
			if invLines[i].Rate != nil && !invLines[i].Rate.IsZero() {
				invRate = invLines[i].Rate
			}
			cmp.InvoiceItem = invLines[i].ItemName
		}

		cmp.POQty = poQty
		cmp.InvoiceQty = invQty
		cmp.PORate = poRate
		cmp.InvoiceRate = invRate
		cmp.Status = classifyLine(poQty, invQty, poRate, invRate)
		result = append(result, cmp)
	}
	return result
}

func classifyLine(poQty, invQty, poRate, invRate *decimal.Decimal) string {
	if Missing(poQty, invQty) {
		return LineMissing
	}
	// Rate absent on exactly one side is a missing condition; absent on both
	// sides drops the rate from the comparison entirely.
	rateAgrees := true
	switch {
	case poRate == nil && invRate == nil:
	case poRate == nil || invRate == nil:
		return LineMissing
	default:
		rateAgrees = Matches(poRate, invRate)
	}

	if Matches(poQty, invQty) && rateAgrees {
		return LineMatch
	}
	return LineMismatch
}
