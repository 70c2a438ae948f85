package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentApproval is the settlement record created when an invoice is sent
// for payment. PayableAmount and the banking snapshot are fixed at approval
// time and never re-derived from supplier or PO data afterwards.
type PaymentApproval struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	InvoiceID  uuid.UUID  `gorm:"type:uuid;uniqueIndex;not null" json:"invoice_id"`
	Invoice    *Invoice   `gorm:"foreignKey:InvoiceID" json:"invoice,omitempty"`
	ApprovedBy *uuid.UUID `gorm:"type:uuid" json:"approved_by"`
	Approver   *User      `gorm:"foreignKey:ApprovedBy" json:"approver,omitempty"`
	ApprovedAt *time.Time `json:"approved_at"`

	PayableAmount decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"payable_amount"`

	// Banking snapshot: supplier defaults or operator override at approval time
	AccountName   string `gorm:"type:varchar(255)" json:"account_name"`
	AccountNumber string `gorm:"type:varchar(50)" json:"account_number"`
	IFSC          string `gorm:"column:ifsc;type:varchar(20)" json:"ifsc"`
	BankName      string `gorm:"type:varchar(255)" json:"bank_name"`
	BranchName    string `gorm:"type:varchar(255)" json:"branch_name"`

	Status string `gorm:"type:varchar(30);not null;default:'approved';index" json:"status"`

	// Append-only; rows are never updated or deleted so the settlement
	// history stays auditable.
	Transactions []PaymentTransaction `gorm:"foreignKey:ApprovalID" json:"transactions"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PaymentTransaction is one recorded (partial) payment against an approval.
type PaymentTransaction struct {
	ID          uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ApprovalID  uuid.UUID       `gorm:"type:uuid;not null;index" json:"approval_id"`
	Amount      decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"amount"`
	PaidAt      time.Time       `gorm:"not null" json:"paid_at"`
	PaymentType string          `gorm:"type:varchar(30)" json:"payment_type"` // NEFT, RTGS, UPI, cheque...
	Reference   string          `gorm:"type:varchar(100)" json:"reference"`
	PaidBy      *uuid.UUID      `gorm:"type:uuid" json:"paid_by"`
	Payer       *User           `gorm:"foreignKey:PaidBy" json:"payer,omitempty"`
	Notes       string          `gorm:"type:text" json:"notes"`
	CreatedAt   time.Time       `json:"created_at"`
}

// PaidAmount sums all recorded transactions.
func (a *PaymentApproval) PaidAmount() decimal.Decimal {
	total := decimal.Zero
	for _, tx := range a.Transactions {
		total = total.Add(tx.Amount)
	}
	return total
}

// RemainingBalance is payable minus everything recorded so far.
func (a *PaymentApproval) RemainingBalance() decimal.Decimal {
	return a.PayableAmount.Sub(a.PaidAmount())
}
