package repository

import (
	"context"

	"backend/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type InvoiceListFilter struct {
	Status       string
	SupplierName string // partial match
	PONumber     string
	Page         int
	Limit        int
}

type InvoiceRepository interface {
	Create(ctx context.Context, invoice *model.Invoice) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Invoice, error)
	// FindByIDForUpdate locks the invoice row for the remainder of the
	// surrounding transaction so concurrent transitions serialize.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Invoice, error)
	FindByScanningNumber(ctx context.Context, scanningNumber string) (*model.Invoice, error)
	List(ctx context.Context, filter InvoiceListFilter) ([]model.Invoice, int64, error)
	Update(ctx context.Context, invoice *model.Invoice) error
	// UpdateStatusChecked transitions status only if the row still holds
	// fromStatus, bumping the version counter. Returns false when the
	// optimistic check failed (the record changed since it was read).
	UpdateStatusChecked(ctx context.Context, id uuid.UUID, fromStatus, toStatus string) (bool, error)
	ReplaceLines(ctx context.Context, invoiceID uuid.UUID, lines []model.InvoiceLine) error
	// SumSettledQtyForPO sums billed quantity over other invoices against the
	// same PO that already entered the payment pipeline. Used by the
	// cumulative under-delivery policy.
	SumSettledQtyForPO(ctx context.Context, poNumber string, excludeInvoiceID uuid.UUID) (decimal.Decimal, error)
}

type invoiceRepository struct {
	db *gorm.DB
}

func NewInvoiceRepository(db *gorm.DB) InvoiceRepository {
	return &invoiceRepository{db: db}
}

func (r *invoiceRepository) Create(ctx context.Context, invoice *model.Invoice) error {
	return GetDB(ctx, r.db).Create(invoice).Error
}

func (r *invoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Invoice, error) {
	var invoice model.Invoice
	if err := GetDB(ctx, r.db).Preload("Lines", func(db *gorm.DB) *gorm.DB {
		return db.Order("seq_no asc")
	}).First(&invoice, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *invoiceRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Invoice, error) {
	var invoice model.Invoice
	if err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&invoice, "id = ?", id).Error; err != nil {
		return nil, err
	}
	if err := GetDB(ctx, r.db).Where("invoice_id = ?", id).
		Order("seq_no asc").Find(&invoice.Lines).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *invoiceRepository) FindByScanningNumber(ctx context.Context, scanningNumber string) (*model.Invoice, error) {
	var invoice model.Invoice
	if err := GetDB(ctx, r.db).Preload("Lines").
		First(&invoice, "scanning_number = ?", scanningNumber).Error; err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (r *invoiceRepository) List(ctx context.Context, filter InvoiceListFilter) ([]model.Invoice, int64, error) {
	var invoices []model.Invoice
	var total int64

	query := GetDB(ctx, r.db).Model(&model.Invoice{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.SupplierName != "" {
		query = query.Where("supplier_name ILIKE ?", "%"+filter.SupplierName+"%")
	}
	if filter.PONumber != "" {
		query = query.Where("po_number = ?", filter.PONumber)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	if err := query.Preload("Lines").
		Order("created_at desc").Offset(offset).Limit(filter.Limit).Find(&invoices).Error; err != nil {
		return nil, 0, err
	}

	return invoices, total, nil
}

func (r *invoiceRepository) Update(ctx context.Context, invoice *model.Invoice) error {
	return GetDB(ctx, r.db).Save(invoice).Error
}

func (r *invoiceRepository) UpdateStatusChecked(ctx context.Context, id uuid.UUID, fromStatus, toStatus string) (bool, error) {
	result := GetDB(ctx, r.db).Model(&model.Invoice{}).
		Where("id = ? AND status = ?", id, fromStatus).
		Updates(map[string]interface{}{
			"status":  toStatus,
			"version": gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

func (r *invoiceRepository) ReplaceLines(ctx context.Context, invoiceID uuid.UUID, lines []model.InvoiceLine) error {
	db := GetDB(ctx, r.db)
	if err := db.Where("invoice_id = ?", invoiceID).Delete(&model.InvoiceLine{}).Error; err != nil {
		return err
	}
	for i := range lines {
		lines[i].InvoiceID = invoiceID
	}
	if len(lines) == 0 {
		return nil
	}
	return db.Create(&lines).Error
}

func (r *invoiceRepository) SumSettledQtyForPO(ctx context.Context, poNumber string, excludeInvoiceID uuid.UUID) (decimal.Decimal, error) {
	var sum decimal.NullDecimal
	err := GetDB(ctx, r.db).Model(&model.InvoiceLine{}).
		Select("SUM(invoice_lines.billed_qty)").
		Joins("JOIN invoices ON invoices.id = invoice_lines.invoice_id").
		Where("invoices.po_number = ? AND invoices.id <> ?", poNumber, excludeInvoiceID).
		Where("invoices.status IN ?", []string{
			model.StatusReadyForPayment,
			model.StatusPartiallyPaid,
			model.StatusPaid,
		}).
		Scan(&sum).Error
	if err != nil {
		return decimal.Zero, err
	}
	if !sum.Valid {
		return decimal.Zero, nil
	}
	return sum.Decimal, nil
}
