package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Supplier holds the vendor master data the validation engine checks invoices
// against: GST/PAN registration, contact channels, and the default banking
// details snapshotted at payment approval.
type Supplier struct {
	ID      uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name    string    `gorm:"type:varchar(255);uniqueIndex;not null" json:"name"`
	GSTNo   string    `gorm:"column:gst_no;type:varchar(30)" json:"gst_no"`
	PANNo   string    `gorm:"column:pan_no;type:varchar(20)" json:"pan_no"`
	Address string    `gorm:"type:text" json:"address"`
	Email   string    `gorm:"type:varchar(255)" json:"email"`
	Mobile  string    `gorm:"type:varchar(20)" json:"mobile"`
	Phone   string    `gorm:"type:varchar(20)" json:"phone"`

	// Default banking details for payment approvals
	AccountName   string `gorm:"type:varchar(255)" json:"account_name"`
	AccountNumber string `gorm:"type:varchar(50)" json:"account_number"`
	IFSC          string `gorm:"column:ifsc;type:varchar(20)" json:"ifsc"`
	BankName      string `gorm:"type:varchar(255)" json:"bank_name"`
	BranchName    string `gorm:"type:varchar(255)" json:"branch_name"`

	IsActive  bool           `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// HasContact reports whether at least one contact channel is filled in.
func (s *Supplier) HasContact() bool {
	return s.Email != "" || s.Mobile != "" || s.Phone != ""
}
