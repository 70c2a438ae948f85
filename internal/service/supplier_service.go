package service

import (
	"context"
	"encoding/json"
	"fmt"

	"backend/internal/model"
	"backend/internal/repository"

	"github.com/google/uuid"
)

// --- DTOs ---

type SupplierRequest struct {
	Name    string `json:"name" binding:"required"`
	GSTNo   string `json:"gst_no"`
	PANNo   string `json:"pan_no"`
	Address string `json:"address"`
	Email   string `json:"email"`
	Mobile  string `json:"mobile"`
	Phone   string `json:"phone"`

	AccountName   string `json:"account_name"`
	AccountNumber string `json:"account_number"`
	IFSC          string `json:"ifsc"`
	BankName      string `json:"bank_name"`
	BranchName    string `json:"branch_name"`
}

type SupplierFilter struct {
	Name  string
	Page  int
	Limit int
}

// --- Interface ---

type SupplierService interface {
	Create(ctx context.Context, req SupplierRequest, userID string) (*model.Supplier, error)
	GetByID(ctx context.Context, id string) (*model.Supplier, error)
	List(ctx context.Context, filter SupplierFilter) ([]model.Supplier, int64, error)
	Update(ctx context.Context, id string, req SupplierRequest, userID string) (*model.Supplier, error)
	Delete(ctx context.Context, id string) error
}

type supplierService struct {
	supplierRepo repository.SupplierRepository
	auditRepo    repository.AuditRepository
	txManager    repository.TransactionManager
}

func NewSupplierService(
	supplierRepo repository.SupplierRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
) SupplierService {
	return &supplierService{
		supplierRepo: supplierRepo,
		auditRepo:    auditRepo,
		txManager:    txManager,
	}
}

// --- Implementation ---

func (s *supplierService) Create(ctx context.Context, req SupplierRequest, userID string) (*model.Supplier, error) {
	supplier := &model.Supplier{IsActive: true}
	applySupplierRequest(supplier, req)

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.supplierRepo.Create(txCtx, supplier); createErr != nil {
			return fmt.Errorf("failed to create supplier: %w", createErr)
		}
		return s.audit(txCtx, userID, model.ActionCreateSupplier, supplier.ID.String(), supplier.Name, req)
	})
	if err != nil {
		return nil, err
	}
	return supplier, nil
}

func (s *supplierService) GetByID(ctx context.Context, id string) (*model.Supplier, error) {
	supplierID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid supplier id: %w", err)
	}
	supplier, err := s.supplierRepo.FindByID(ctx, supplierID)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return supplier, nil
}

func (s *supplierService) List(ctx context.Context, filter SupplierFilter) ([]model.Supplier, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	return s.supplierRepo.List(ctx, repository.SupplierListFilter{
		Name:  filter.Name,
		Page:  filter.Page,
		Limit: filter.Limit,
	})
}

func (s *supplierService) Update(ctx context.Context, id string, req SupplierRequest, userID string) (*model.Supplier, error) {
	supplierID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid supplier id: %w", err)
	}

	var supplier *model.Supplier
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		found, findErr := s.supplierRepo.FindByID(txCtx, supplierID)
		if findErr != nil {
			return mapNotFound(findErr)
		}
		applySupplierRequest(found, req)
		if updateErr := s.supplierRepo.Update(txCtx, found); updateErr != nil {
			return fmt.Errorf("failed to update supplier: %w", updateErr)
		}
		supplier = found
		return s.audit(txCtx, userID, model.ActionUpdateSupplier, found.ID.String(), found.Name, req)
	})
	if err != nil {
		return nil, err
	}
	return supplier, nil
}

func (s *supplierService) Delete(ctx context.Context, id string) error {
	supplierID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid supplier id: %w", err)
	}
	if _, err := s.supplierRepo.FindByID(ctx, supplierID); err != nil {
		return mapNotFound(err)
	}
	return s.supplierRepo.Delete(ctx, supplierID)
}

// --- Helpers ---

func applySupplierRequest(supplier *model.Supplier, req SupplierRequest) {
	supplier.Name = req.Name
	supplier.GSTNo = req.GSTNo
	supplier.PANNo = req.PANNo
	supplier.Address = req.Address
	supplier.Email = req.Email
	supplier.Mobile = req.Mobile
	supplier.Phone = req.Phone
	supplier.AccountName = req.AccountName
	supplier.AccountNumber = req.AccountNumber
	supplier.IFSC = req.IFSC
	supplier.BankName = req.BankName
	supplier.BranchName = req.BranchName
}

func (s *supplierService) audit(ctx context.Context, userID, action, entityID, entityName string, details interface{}) error {
	var actor *uuid.UUID
	if parsed, err := uuid.Parse(userID); err == nil {
		actor = &parsed
	}
	payload, _ := json.Marshal(details)
	return s.auditRepo.Create(ctx, &model.AuditLog{
		UserID:     actor,
		Action:     action,
		EntityID:   entityID,
		EntityName: entityName,
		Details:    string(payload),
	})
}
