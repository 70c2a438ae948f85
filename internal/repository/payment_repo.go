package repository

import (
	"context"

	"backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PaymentRepository interface {
	CreateApproval(ctx context.Context, approval *model.PaymentApproval) error
	FindApprovalByID(ctx context.Context, id uuid.UUID) (*model.PaymentApproval, error)
	// FindApprovalByIDForUpdate locks the approval row so concurrent partial
	// payments against the same invoice serialize on the balance check.
	FindApprovalByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.PaymentApproval, error)
	FindApprovalByInvoiceID(ctx context.Context, invoiceID uuid.UUID) (*model.PaymentApproval, error)
	ListApprovals(ctx context.Context, status string, page, limit int) ([]model.PaymentApproval, int64, error)
	UpdateApproval(ctx context.Context, approval *model.PaymentApproval) error
	AppendTransaction(ctx context.Context, tx *model.PaymentTransaction) error
	ListTransactions(ctx context.Context, approvalID uuid.UUID) ([]model.PaymentTransaction, error)
}

type paymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) CreateApproval(ctx context.Context, approval *model.PaymentApproval) error {
	return GetDB(ctx, r.db).Create(approval).Error
}

func (r *paymentRepository) FindApprovalByID(ctx context.Context, id uuid.UUID) (*model.PaymentApproval, error) {
	var approval model.PaymentApproval
	if err := GetDB(ctx, r.db).Preload("Transactions", func(db *gorm.DB) *gorm.DB {
		return db.Order("paid_at asc, created_at asc")
	}).First(&approval, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &approval, nil
}

func (r *paymentRepository) FindApprovalByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.PaymentApproval, error) {
	var approval model.PaymentApproval
	if err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&approval, "id = ?", id).Error; err != nil {
		return nil, err
	}
	if err := GetDB(ctx, r.db).Where("approval_id = ?", id).
		Order("paid_at asc, created_at asc").Find(&approval.Transactions).Error; err != nil {
		return nil, err
	}
	return &approval, nil
}

func (r *paymentRepository) FindApprovalByInvoiceID(ctx context.Context, invoiceID uuid.UUID) (*model.PaymentApproval, error) {
	var approval model.PaymentApproval
	if err := GetDB(ctx, r.db).Preload("Transactions").
		First(&approval, "invoice_id = ?", invoiceID).Error; err != nil {
		return nil, err
	}
	return &approval, nil
}

func (r *paymentRepository) ListApprovals(ctx context.Context, status string, page, limit int) ([]model.PaymentApproval, int64, error) {
	var approvals []model.PaymentApproval
	var total int64

	query := GetDB(ctx, r.db).Model(&model.PaymentApproval{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := query.Preload("Transactions").Preload("Invoice").
		Order("created_at desc").Offset(offset).Limit(limit).Find(&approvals).Error; err != nil {
		return nil, 0, err
	}

	return approvals, total, nil
}

func (r *paymentRepository) UpdateApproval(ctx context.Context, approval *model.PaymentApproval) error {
	// Save would try to upsert the preloaded transaction rows; the ledger is
	// append-only, so only the approval columns are written.
	return GetDB(ctx, r.db).Model(&model.PaymentApproval{}).
		Where("id = ?", approval.ID).
		Updates(map[string]interface{}{
			"status":         approval.Status,
			"payable_amount": approval.PayableAmount,
			"account_name":   approval.AccountName,
			"account_number": approval.AccountNumber,
			"ifsc":           approval.IFSC,
			"bank_name":      approval.BankName,
			"branch_name":    approval.BranchName,
			"approved_by":    approval.ApprovedBy,
			"approved_at":    approval.ApprovedAt,
		}).Error
}

func (r *paymentRepository) AppendTransaction(ctx context.Context, tx *model.PaymentTransaction) error {
	return GetDB(ctx, r.db).Create(tx).Error
}

func (r *paymentRepository) ListTransactions(ctx context.Context, approvalID uuid.UUID) ([]model.PaymentTransaction, error) {
	var txs []model.PaymentTransaction
	if err := GetDB(ctx, r.db).Where("approval_id = ?", approvalID).
		Order("paid_at asc, created_at asc").Find(&txs).Error; err != nil {
		return nil, err
	}
	return txs, nil
}
