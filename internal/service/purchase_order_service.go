package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"backend/internal/model"
	"backend/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// --- DTOs ---

type POLineRequest struct {
	ItemCode    string `json:"item_code"`
	Description string `json:"description"`
	Quantity    string `json:"quantity" binding:"required"`
	UnitCost    string `json:"unit_cost"`
	DiscountPct string `json:"discount_pct"`
	ProcessCost string `json:"process_cost"`
}

// ImportPORequest creates a PO with its lines in one shot, mirroring the shape
// of an ERP export row set.
type ImportPORequest struct {
	PONumber     string          `json:"po_number" binding:"required"`
	PODate       *string         `json:"po_date"` // RFC3339
	SupplierName string          `json:"supplier_name"`
	Terms        string          `json:"terms"`
	Lines        []POLineRequest `json:"lines" binding:"required"`
}

type POFilter struct {
	Status   string
	PONumber string
	Page     int
	Limit    int
}

// --- Interface ---

type PurchaseOrderService interface {
	// Import creates a PO with lines; the supplier is linked by name when it
	// exists in the master.
	Import(ctx context.Context, req ImportPORequest, userID string) (*model.PurchaseOrder, error)
	GetByID(ctx context.Context, id string) (*model.PurchaseOrder, error)
	GetByNumber(ctx context.Context, poNumber string) (*model.PurchaseOrder, error)
	List(ctx context.Context, filter POFilter) ([]model.PurchaseOrder, int64, error)
}

type purchaseOrderService struct {
	poRepo       repository.PurchaseOrderRepository
	supplierRepo repository.SupplierRepository
	auditRepo    repository.AuditRepository
	txManager    repository.TransactionManager
}

func NewPurchaseOrderService(
	poRepo repository.PurchaseOrderRepository,
	supplierRepo repository.SupplierRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
) PurchaseOrderService {
	return &purchaseOrderService{
		poRepo:       poRepo,
		supplierRepo: supplierRepo,
		auditRepo:    auditRepo,
		txManager:    txManager,
	}
}

// --- Implementation ---

func (s *purchaseOrderService) Import(ctx context.Context, req ImportPORequest, userID string) (*model.PurchaseOrder, error) {
	if len(req.Lines) == 0 {
		return nil, fmt.Errorf("purchase order must have at least one line")
	}

	po := &model.PurchaseOrder{
		PONumber: req.PONumber,
		Terms:    req.Terms,
		Status:   model.POStatusOpen,
	}
	if req.PODate != nil {
		parsed, err := time.Parse(time.RFC3339, *req.PODate)
		if err != nil {
			return nil, fmt.Errorf("invalid po date: %w", err)
		}
		po.PODate = &parsed
	}

	for i, lr := range req.Lines {
		qty := parseDecimal(lr.Quantity)
		if qty.IsZero() {
			return nil, fmt.Errorf("line %d: quantity is required", i+1)
		}
		po.Lines = append(po.Lines, model.POLine{
			SeqNo:       i + 1,
			ItemCode:    lr.ItemCode,
			Description: lr.Description,
			Quantity:    qty,
			UnitCost:    parseDecimal(lr.UnitCost),
			DiscountPct: parseDecimal(lr.DiscountPct),
			ProcessCost: parseDecimal(lr.ProcessCost),
		})
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if req.SupplierName != "" {
			supplier, supErr := s.supplierRepo.FindByName(txCtx, req.SupplierName)
			switch {
			case supErr == nil:
				po.SupplierID = &supplier.ID
			case errors.Is(supErr, gorm.ErrRecordNotFound):
				// imported anyway; validation flags the missing supplier later
			default:
				return fmt.Errorf("failed to resolve supplier: %w", supErr)
			}
		}
		if createErr := s.poRepo.Create(txCtx, po); createErr != nil {
			return fmt.Errorf("failed to create purchase order: %w", createErr)
		}
		return s.audit(txCtx, userID, model.ActionImportPO, po.ID.String(), po.PONumber, map[string]interface{}{
			"po_number": po.PONumber,
			"lines":     len(po.Lines),
		})
	})
	if err != nil {
		return nil, err
	}
	return s.poRepo.FindByID(ctx, po.ID)
}

func (s *purchaseOrderService) GetByID(ctx context.Context, id string) (*model.PurchaseOrder, error) {
	poID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid purchase order id: %w", err)
	}
	po, err := s.poRepo.FindByID(ctx, poID)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return po, nil
}

func (s *purchaseOrderService) GetByNumber(ctx context.Context, poNumber string) (*model.PurchaseOrder, error) {
	po, err := s.poRepo.FindByNumber(ctx, poNumber)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return po, nil
}

func (s *purchaseOrderService) List(ctx context.Context, filter POFilter) ([]model.PurchaseOrder, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	return s.poRepo.List(ctx, repository.POListFilter{
		Status:   filter.Status,
		PONumber: filter.PONumber,
		Page:     filter.Page,
		Limit:    filter.Limit,
	})
}

func (s *purchaseOrderService) audit(ctx context.Context, userID, action, entityID, entityName string, details map[string]interface{}) error {
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
