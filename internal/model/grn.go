package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// GRN records a physically received quantity against a PO/delivery challan.
// The reconciliation core only reads the per-PO aggregate of ReceivedQty.
type GRN struct {
	ID          uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	PONumber    string          `gorm:"column:po_number;type:varchar(50);not null;index" json:"po_number"`
	DCNumber    string          `gorm:"column:dc_number;type:varchar(50)" json:"dc_number"`
	ReceivedQty decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"received_qty"`
	UnitCost    decimal.Decimal `gorm:"type:decimal(18,4);default:0" json:"unit_cost"`
	ReceivedAt  *time.Time      `json:"received_at"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}
