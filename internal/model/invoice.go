package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Invoice is a captured supplier invoice moving through the validation and
// payment pipeline. Header and line fields are mutable until validation; after
// that only status-driven flows (re-validation, rejection, payment) touch it.
type Invoice struct {
	ID              uuid.UUID        `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	InvoiceNumber   string           `gorm:"type:varchar(50);not null;index" json:"invoice_number"`
	InvoiceDate     string           `gorm:"type:varchar(30)" json:"invoice_date"` // kept as extracted, not reformatted
	ScanningNumber  string           `gorm:"type:varchar(50);uniqueIndex;not null" json:"scanning_number"`
	SupplierName    string           `gorm:"type:varchar(255);index" json:"supplier_name"`
	PONumber        *string          `gorm:"column:po_number;type:varchar(50);index" json:"po_number"`
	TotalAmount     decimal.Decimal  `gorm:"type:decimal(18,4);not null" json:"total_amount"`
	TaxAmount       decimal.Decimal  `gorm:"type:decimal(18,4);default:0" json:"tax_amount"`
	Status          string           `gorm:"type:varchar(40);not null;default:'waiting_for_validation';index" json:"status"`
	PaymentDueDate  *time.Time       `json:"payment_due_date"`
	DebitNoteValue  *decimal.Decimal `gorm:"type:decimal(18,4)" json:"debit_note_value"` // overrides TotalAmount as payable when set
	DebitNoteURL    string           `gorm:"column:debit_note_url;type:text" json:"debit_note_url"`
	RejectionReason *string          `gorm:"type:text" json:"rejection_reason"`
	PDFURL          string           `gorm:"column:pdf_url;type:text" json:"pdf_url"`
	Version         int64            `gorm:"not null;default:0" json:"version"` // optimistic concurrency counter

	Lines []InvoiceLine `gorm:"foreignKey:InvoiceID;constraint:OnDelete:CASCADE" json:"lines"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// InvoiceLine is one extracted item row. Exactly one of Weight/Count carries
// the physically confirmed quantity; the extracted BilledQty must agree with
// it within tolerance before the line validates.
type InvoiceLine struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	InvoiceID uuid.UUID `gorm:"type:uuid;not null;index" json:"invoice_id"`
	SeqNo     int       `gorm:"not null" json:"seq_no"`
	ItemName  string    `gorm:"type:varchar(255)" json:"item_name"`
	HSNSAC    string    `gorm:"column:hsn_sac;type:varchar(20)" json:"hsn_sac"`

	BilledQty *decimal.Decimal `gorm:"type:decimal(18,4)" json:"billed_qty"`
	Weight    *decimal.Decimal `gorm:"type:decimal(18,4)" json:"weight"` // from scanned weight slip
	Count     *decimal.Decimal `gorm:"type:decimal(18,4)" json:"count"`  // manual count entry
	Rate      *decimal.Decimal `gorm:"type:decimal(18,4)" json:"rate"`

	LineTotal    decimal.Decimal `gorm:"type:decimal(18,4);default:0" json:"line_total"`
	TaxableValue decimal.Decimal `gorm:"type:decimal(18,4);default:0" json:"taxable_value"`
	CGSTRate     decimal.Decimal `gorm:"column:cgst_rate;type:decimal(10,4);default:0" json:"cgst_rate"`
	CGSTAmount   decimal.Decimal `gorm:"column:cgst_amount;type:decimal(18,4);default:0" json:"cgst_amount"`
	SGSTRate     decimal.Decimal `gorm:"column:sgst_rate;type:decimal(10,4);default:0" json:"sgst_rate"`
	SGSTAmount   decimal.Decimal `gorm:"column:sgst_amount;type:decimal(18,4);default:0" json:"sgst_amount"`
	TotalTax     decimal.Decimal `gorm:"type:decimal(18,4);default:0" json:"total_tax"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ConfirmedQuantity returns the quantity from the single physical measurement
// channel (weight slip or manual count). The second return is false when
// neither channel, or both, carry a non-zero value.
func (l *InvoiceLine) ConfirmedQuantity() (decimal.Decimal, bool) {
	hasWeight := l.Weight != nil && !l.Weight.IsZero()
	hasCount := l.Count != nil && !l.Count.IsZero()
	if hasWeight == hasCount {
		return decimal.Zero, false
	}
	if hasWeight {
		return *l.Weight, true
	}
	return *l.Count, true
}

// TotalQuantity sums the billed quantity across all invoice lines.
func (inv *Invoice) TotalQuantity() decimal.Decimal {
	total := decimal.Zero
	for _, line := range inv.Lines {
		if line.BilledQty != nil {
			total = total.Add(*line.BilledQty)
		}
	}
	return total
}

// PayableAmount is the single definition of the debit-note override rule:
// the human-entered debit note value wins over the extracted invoice total.
func PayableAmount(inv *Invoice) decimal.Decimal {
	if inv.DebitNoteValue != nil {
		return *inv.DebitNoteValue
	}
	return inv.TotalAmount
}
