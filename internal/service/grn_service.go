package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"backend/internal/model"
	"backend/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// --- DTOs ---

type GRNRequest struct {
	PONumber    string  `json:"po_number" binding:"required"`
	DCNumber    string  `json:"dc_number"`
	ReceivedQty string  `json:"received_qty" binding:"required"`
	UnitCost    string  `json:"unit_cost"`
	ReceivedAt  *string `json:"received_at"` // RFC3339
}

// --- Interface ---

type GRNService interface {
	// Record stores a goods-receipt entry against a PO. The PO must exist;
	// receipts against unknown orders are rejected.
	Record(ctx context.Context, req GRNRequest, userID string) (*model.GRN, error)
	ListByPO(ctx context.Context, poNumber string) ([]model.GRN, error)
	// ReceivedQty is the per-PO aggregate the validation engine compares
	// invoiced quantity against.
	ReceivedQty(ctx context.Context, poNumber string) (decimal.Decimal, error)
}

type grnService struct {
	grnRepo   repository.GRNRepository
	poRepo    repository.PurchaseOrderRepository
	auditRepo repository.AuditRepository
	txManager repository.TransactionManager
}

func NewGRNService(
	grnRepo repository.GRNRepository,
	poRepo repository.PurchaseOrderRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
) GRNService {
	return &grnService{
		grnRepo:   grnRepo,
		poRepo:    poRepo,
		auditRepo: auditRepo,
		txManager: txManager,
	}
}

// --- Implementation ---

func (s *grnService) Record(ctx context.Context, req GRNRequest, userID string) (*model.GRN, error) {
	qty, err := decimal.NewFromString(req.ReceivedQty)
	if err != nil {
		return nil, fmt.Errorf("invalid received quantity: %w", err)
	}
	if !qty.IsPositive() {
		return nil, fmt.Errorf("received quantity must be positive")
	}

	grn := &model.GRN{
		PONumber:    req.PONumber,
		DCNumber:    req.DCNumber,
		ReceivedQty: qty,
		UnitCost:    parseDecimal(req.UnitCost),
	}
	if req.ReceivedAt != nil {
		parsed, parseErr := time.Parse(time.RFC3339, *req.ReceivedAt)
		if parseErr != nil {
			return nil, fmt.Errorf("invalid received date: %w", parseErr)
		}
		grn.ReceivedAt = &parsed
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if _, findErr := s.poRepo.FindByNumber(txCtx, req.PONumber); findErr != nil {
			return mapNotFound(findErr)
		}
		if createErr := s.grnRepo.Create(txCtx, grn); createErr != nil {
			return fmt.Errorf("failed to record GRN: %w", createErr)
		}

		var actor *uuid.UUID
		if parsed, parseErr := uuid.Parse(userID); parseErr == nil {
			actor = &parsed
		}
		payload, _ := json.Marshal(map[string]interface{}{
			"po_number":    req.PONumber,
			"dc_number":    req.DCNumber,
			"received_qty": qty.String(),
		})
		return s.auditRepo.Create(txCtx, &model.AuditLog{
			UserID:     actor,
			Action:     model.ActionRecordGRN,
			EntityID:   grn.ID.String(),
			EntityName: req.PONumber,
			Details:    string(payload),
		})
	})
	if err != nil {
		return nil, err
	}
	return grn, nil
}

func (s *grnService) ListByPO(ctx context.Context, poNumber string) ([]model.GRN, error) {
	return s.grnRepo.ListByPO(ctx, poNumber)
}

func (s *grnService) ReceivedQty(ctx context.Context, poNumber string) (decimal.Decimal, error) {
	return s.grnRepo.SumReceivedQty(ctx, poNumber)
}
