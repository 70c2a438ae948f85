package ocr

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleInvoiceJSON = `{
	"invoiceNumber": "INV-2024-0042",
	"invoiceDate": "12-Mar-2024",
	"poNumber": "PO-1001",
	"supplierName": "Sri Balaji Steels",
	"items": [
		{"itemName": "MS Rod 12mm", "quantity": "100", "unitPrice": "52.50", "amount": "5250.00",
		 "hsnSac": "7214", "taxableValue": "5250.00", "cgstPercent": "9", "cgstAmount": "472.50",
		 "sgstPercent": "9", "sgstAmount": "472.50"}
	],
	"subtotal": "5250.00",
	"taxAmount": "945.00",
	"totalAmount": "6195.00"
}`

func TestParseInvoiceJSON(t *testing.T) {
	t.Run("plain JSON object", func(t *testing.T) {
		inv, err := ParseInvoiceJSON(sampleInvoiceJSON)
		require.NoError(t, err)
		assert.Equal(t, "INV-2024-0042", inv.InvoiceNumber)
		assert.Equal(t, "12-Mar-2024", inv.InvoiceDate)
		assert.Equal(t, "PO-1001", inv.PONumber)
		assert.Equal(t, "Sri Balaji Steels", inv.SupplierName)
		require.Len(t, inv.Items, 1)
		assert.Equal(t, "MS Rod 12mm", inv.Items[0].ItemName)
		assert.Equal(t, "100", inv.Items[0].Quantity)
		assert.Equal(t, "6195.00", inv.TotalAmount)
	})

	t.Run("markdown fenced JSON", func(t *testing.T) {
		raw := "```json\n" + sampleInvoiceJSON + "\n```"
		inv, err := ParseInvoiceJSON(raw)
		require.NoError(t, err)
		assert.Equal(t, "INV-2024-0042", inv.InvoiceNumber)
	})

	t.Run("leading prose before the object", func(t *testing.T) {
		raw := "Here is the extracted invoice data:\n" + sampleInvoiceJSON
		inv, err := ParseInvoiceJSON(raw)
		require.NoError(t, err)
		assert.Equal(t, "PO-1001", inv.PONumber)
	})

	t.Run("no JSON object at all", func(t *testing.T) {
		_, err := ParseInvoiceJSON("the model refused to answer")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidPayload))
	})

	t.Run("malformed JSON", func(t *testing.T) {
		_, err := ParseInvoiceJSON(`{"invoiceNumber": }`)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidPayload))
	})
}

func TestExtractJSONObject(t *testing.T) {
	assert.Equal(t, `{"a":1}`, extractJSONObject("noise {\"a\":1} trailing"))
	assert.Equal(t, "", extractJSONObject("no braces here"))
	assert.Equal(t, "", extractJSONObject("}{"))
}
