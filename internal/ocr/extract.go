package ocr

import (
	"encoding/json"
	"strings"
)

// ExtractedInvoice mirrors the JSON schema the extraction service's model is
// prompted to emit. All values arrive as plain strings (no currency symbols,
// no thousands separators); dates are kept exactly as printed.
type ExtractedInvoice struct {
	InvoiceNumber string `json:"invoiceNumber"`
	InvoiceDate   string `json:"invoiceDate"`
	PONumber      string `json:"poNumber"`
	SupplierName  string `json:"supplierName"`
	BillTo        string `json:"billTo"`
	BillToAddress string `json:"billToAddress"`
	BillToGST     string `json:"billToGst"`

	Items []ExtractedItem `json:"items"`

	Subtotal           string `json:"subtotal"`
	CGST               string `json:"cgst"`
	SGST               string `json:"sgst"`
	RoundOff           string `json:"roundOff"`
	TaxAmount          string `json:"taxAmount"`
	TotalAmount        string `json:"totalAmount"`
	TotalAmountInWords string `json:"totalAmountInWords"`
}

// ExtractedItem is one row of the invoice item table.
type ExtractedItem struct {
	ItemName     string `json:"itemName"`
	Quantity     string `json:"quantity"`
	UnitPrice    string `json:"unitPrice"`
	Amount       string `json:"amount"`
	HSNSAC       string `json:"hsnSac"`
	TaxableValue string `json:"taxableValue"`
	CGSTPercent  string `json:"cgstPercent"`
	CGSTAmount   string `json:"cgstAmount"`
	SGSTPercent  string `json:"sgstPercent"`
	SGSTAmount   string `json:"sgstAmount"`
}

// ParseInvoiceJSON decodes the invoice_json field of an /ocr response. The
// model occasionally wraps its output in markdown fences or leading prose, so
// the parser cuts down to the outermost JSON object before decoding.
func ParseInvoiceJSON(raw string) (*ExtractedInvoice, error) {
	doc := extractJSONObject(raw)
	if doc == "" {
		return nil, wrap("ParseInvoiceJSON", ErrInvalidPayload, "no JSON object in response")
	}

	var inv ExtractedInvoice
	if err := json.Unmarshal([]byte(doc), &inv); err != nil {
		return nil, wrap("ParseInvoiceJSON", ErrInvalidPayload, err.Error())
	}
	return &inv, nil
}

// extractJSONObject returns the substring from the first '{' to the last '}'.
func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end <= start {
		return ""
	}
	return raw[start : end+1]
}
