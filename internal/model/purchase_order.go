package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// POStatus enum constants. Status is mutated only by the payment pipeline as
// invoices against the PO settle.
const (
	POStatusOpen               = "open"
	POStatusPartiallyFulfilled = "partially_fulfilled"
	POStatusFulfilled          = "fulfilled"
	POStatusCancelled          = "cancelled"
)

// PurchaseOrder is the buyer-side commitment an invoice is reconciled against.
type PurchaseOrder struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	PONumber   string     `gorm:"column:po_number;type:varchar(50);uniqueIndex;not null" json:"po_number"`
	PODate     *time.Time `gorm:"column:po_date" json:"po_date"`
	SupplierID *uuid.UUID `gorm:"type:uuid;index" json:"supplier_id"`
	Supplier   *Supplier  `gorm:"foreignKey:SupplierID" json:"supplier,omitempty"`
	Terms      string     `gorm:"type:text" json:"terms"`
	Status     string     `gorm:"type:varchar(30);not null;default:'open';index" json:"status"`

	Lines []POLine `gorm:"foreignKey:PurchaseOrderID;constraint:OnDelete:CASCADE" json:"lines"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// POLine is one ordered item row on a purchase order.
type POLine struct {
	ID              uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	PurchaseOrderID uuid.UUID       `gorm:"type:uuid;not null;index" json:"purchase_order_id"`
	SeqNo           int             `gorm:"not null" json:"seq_no"`
	ItemCode        string          `gorm:"type:varchar(100)" json:"item_code"`
	Description     string          `gorm:"type:text" json:"description"`
	Quantity        decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"quantity"`
	UnitCost        decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"unit_cost"`
	DiscountPct     decimal.Decimal `gorm:"column:discount_pct;type:decimal(10,4);default:0" json:"discount_pct"`
	ProcessCost     decimal.Decimal `gorm:"type:decimal(18,4);default:0" json:"process_cost"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// TotalQuantity sums the ordered quantity across all lines.
func (po *PurchaseOrder) TotalQuantity() decimal.Decimal {
	total := decimal.Zero
	for _, line := range po.Lines {
		total = total.Add(line.Quantity)
	}
	return total
}
