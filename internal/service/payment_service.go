package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"backend/internal/logger"
	"backend/internal/model"
	"backend/internal/reconcile"
	"backend/internal/repository"
	ws "backend/internal/websocket"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// --- DTOs ---

// BankingOverride lets the operator replace the supplier's default banking
// details at approval time. Empty fields fall back to the supplier master.
type BankingOverride struct {
	AccountName   string `json:"account_name"`
	AccountNumber string `json:"account_number"`
	IFSC          string `json:"ifsc"`
	BankName      string `json:"bank_name"`
	BranchName    string `json:"branch_name"`
}

type ApproveRequest struct {
	InvoiceID     string           `json:"invoice_id" binding:"required"`
	PayableAmount *string          `json:"payable_amount"` // optional override
	Banking       *BankingOverride `json:"banking"`
}

type BulkApproveRequest struct {
	InvoiceIDs []string `json:"invoice_ids" binding:"required"`
}

type BulkRejectRequest struct {
	InvoiceIDs []string `json:"invoice_ids" binding:"required"`
	Reason     string   `json:"reason"`
}

// BulkResult is the per-item outcome of a bulk operation. Items are processed
// independently: a failure never rolls back mutations already applied to
// other items in the batch.
type BulkResult struct {
	InvoiceID string `json:"invoice_id"`
	OK        bool   `json:"ok"`
	Error     string `json:"error,omitempty"`
}

type RecordPaymentRequest struct {
	Amount      string `json:"amount" binding:"required"`
	PaymentType string `json:"payment_type"`
	Reference   string `json:"reference"`
	Notes       string `json:"notes"`
}

// ApprovalResponse projects an approval with its derived balances.
type ApprovalResponse struct {
	ID               string                     `json:"id"`
	InvoiceID        string                     `json:"invoice_id"`
	Status           string                     `json:"status"`
	PayableAmount    string                     `json:"payable_amount"`
	PaidAmount       string                     `json:"paid_amount"`
	RemainingBalance string                     `json:"remaining_balance"`
	AccountName      string                     `json:"account_name"`
	AccountNumber    string                     `json:"account_number"`
	IFSC             string                     `json:"ifsc"`
	BankName         string                     `json:"bank_name"`
	BranchName       string                     `json:"branch_name"`
	ApprovedBy       *string                    `json:"approved_by"`
	ApprovedAt       *string                    `json:"approved_at"`
	Transactions     []model.PaymentTransaction `json:"transactions"`
}

// --- Interface ---

type PaymentService interface {
	// Approve snapshots the payable amount and banking details and moves the
	// invoice to ready_for_payment. Fails if the invoice is not approvable.
	Approve(ctx context.Context, req ApproveRequest, userID string) (*ApprovalResponse, error)
	// BulkApprove processes every invoice independently and reports a
	// per-item outcome; already-applied approvals are never rolled back.
	BulkApprove(ctx context.Context, req BulkApproveRequest, userID string) []BulkResult
	BulkReject(ctx context.Context, req BulkRejectRequest, userID string) []BulkResult
	// RecordPayment appends a transaction and recomputes the settlement
	// status in one atomic unit.
	RecordPayment(ctx context.Context, approvalID string, req RecordPaymentRequest, userID string) (*ApprovalResponse, error)
	GetApproval(ctx context.Context, approvalID string) (*ApprovalResponse, error)
	ListReady(ctx context.Context, page, limit int) ([]ApprovalResponse, int64, error)
	ListTransactions(ctx context.Context, approvalID string) ([]model.PaymentTransaction, error)
}

type paymentService struct {
	paymentRepo  repository.PaymentRepository
	invoiceRepo  repository.InvoiceRepository
	poRepo       repository.PurchaseOrderRepository
	supplierRepo repository.SupplierRepository
	auditRepo    repository.AuditRepository
	rejecter     InvoiceService
	txManager    repository.TransactionManager
	hub          *ws.Hub
	log          zerolog.Logger
}

func NewPaymentService(
	paymentRepo repository.PaymentRepository,
	invoiceRepo repository.InvoiceRepository,
	poRepo repository.PurchaseOrderRepository,
	supplierRepo repository.SupplierRepository,
	auditRepo repository.AuditRepository,
	rejecter InvoiceService,
	txManager repository.TransactionManager,
	hub *ws.Hub,
) PaymentService {
	return &paymentService{
		paymentRepo:  paymentRepo,
		invoiceRepo:  invoiceRepo,
		poRepo:       poRepo,
		supplierRepo: supplierRepo,
		auditRepo:    auditRepo,
		rejecter:     rejecter,
		txManager:    txManager,
		hub:          hub,
		log:          logger.WithComponent("payment-service"),
	}
}

// --- Implementation ---

func (s *paymentService) Approve(ctx context.Context, req ApproveRequest, userID string) (*ApprovalResponse, error) {
	invoiceID, err := uuid.Parse(req.InvoiceID)
	if err != nil {
		return nil, fmt.Errorf("invalid invoice id: %w", err)
	}

	var override *decimal.Decimal
	if req.PayableAmount != nil && *req.PayableAmount != "" {
		parsed, parseErr := decimal.NewFromString(*req.PayableAmount)
		if parseErr != nil {
			return nil, fmt.Errorf("invalid payable amount: %w", parseErr)
		}
		if !parsed.IsPositive() {
			return nil, fmt.Errorf("payable amount must be positive")
		}
		override = &parsed
	}

	var approver *uuid.UUID
	if parsed, parseErr := uuid.Parse(userID); parseErr == nil {
		approver = &parsed
	}

	var approvalID uuid.UUID
	var from string
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		invoice, findErr := s.invoiceRepo.FindByIDForUpdate(txCtx, invoiceID)
		if findErr != nil {
			return mapNotFound(findErr)
		}
		if !model.IsApprovable(invoice.Status) {
			return newTransitionError(invoice.Status, model.StatusReadyForPayment)
		}
		from = invoice.Status

		switch invoice.Status {
		case model.StatusDebitNoteApproval:
			// A debit-note invoice needs the human-entered amount and the
			// uploaded document before it can advance.
			if override == nil && invoice.DebitNoteValue == nil {
				return fmt.Errorf("debit note value required before approval")
			}
			if invoice.DebitNoteURL == "" {
				return fmt.Errorf("debit note document required before approval")
			}
		case model.StatusExceptionApproval:
			// Exception approval is confirmation only.
			if override != nil {
				return fmt.Errorf("payable amount cannot be adjusted on an exception invoice")
			}
		}

		payable := model.PayableAmount(invoice)
		if override != nil {
			payable = *override
		}

		approval := &model.PaymentApproval{
			InvoiceID:     invoiceID,
			ApprovedBy:    approver,
			PayableAmount: payable,
			Status:        model.PaymentStatusReadyForPayment,
		}
		now := time.Now()
		approval.ApprovedAt = &now

		// Banking snapshot: supplier defaults, operator override wins.
		supplier, supErr := s.supplierRepo.FindByName(txCtx, invoice.SupplierName)
		if supErr == nil {
			approval.AccountName = supplier.AccountName
			approval.AccountNumber = supplier.AccountNumber
			approval.IFSC = supplier.IFSC
			approval.BankName = supplier.BankName
			approval.BranchName = supplier.BranchName
		} else if !errors.Is(supErr, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: fetching supplier %q: %v", ErrLookupFailed, invoice.SupplierName, supErr)
		}
		if req.Banking != nil {
			applyBankingOverride(approval, *req.Banking)
		}

		existing, exErr := s.paymentRepo.FindApprovalByInvoiceID(txCtx, invoiceID)
		switch {
		case exErr == nil:
			// Re-approval after re-validation reuses the record.
			approval.ID = existing.ID
			if saveErr := s.paymentRepo.UpdateApproval(txCtx, approval); saveErr != nil {
				return fmt.Errorf("failed to update approval: %w", saveErr)
			}
		case errors.Is(exErr, gorm.ErrRecordNotFound):
			if createErr := s.paymentRepo.CreateApproval(txCtx, approval); createErr != nil {
				return fmt.Errorf("failed to create approval: %w", createErr)
			}
		default:
			return fmt.Errorf("failed to load approval: %w", exErr)
		}
		approvalID = approval.ID

		ok, updateErr := s.invoiceRepo.UpdateStatusChecked(txCtx, invoiceID, from, model.StatusReadyForPayment)
		if updateErr != nil {
			return fmt.Errorf("failed to update invoice status: %w", updateErr)
		}
		if !ok {
			return fmt.Errorf("%w: invoice %s", ErrConflict, invoiceID)
		}

		if poErr := s.advancePO(txCtx, invoice); poErr != nil {
			return poErr
		}

		return s.audit(txCtx, approver, model.ActionApprovePayment, invoiceID.String(), invoice.InvoiceNumber, map[string]interface{}{
			"payable_amount": payable.String(),
			"from":           from,
		})
	})
	if err != nil {
		return nil, err
	}

	s.broadcastStatus(invoiceID, from, model.StatusReadyForPayment)
	s.log.Info().
		Str("invoice_id", invoiceID.String()).
		Str("approval_id", approvalID.String()).
		Msg("invoice approved for payment")
	return s.GetApproval(ctx, approvalID.String())
}

// advancePO moves the PO along as invoices against it are approved:
// partially_fulfilled while approved quantity is short of the order,
// fulfilled once it covers it.
func (s *paymentService) advancePO(ctx context.Context, invoice *model.Invoice) error {
	if invoice.PONumber == nil || *invoice.PONumber == "" {
		return nil
	}
	po, err := s.poRepo.FindByNumber(ctx, *invoice.PONumber)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("%w: fetching purchase order %s: %v", ErrLookupFailed, *invoice.PONumber, err)
	}
	if po.Status == model.POStatusFulfilled || po.Status == model.POStatusCancelled {
		return nil
	}

	settled, err := s.invoiceRepo.SumSettledQtyForPO(ctx, po.PONumber, invoice.ID)
	if err != nil {
		return fmt.Errorf("%w: aggregating settled quantity: %v", ErrLookupFailed, err)
	}
	settled = settled.Add(invoice.TotalQuantity())

	status := model.POStatusPartiallyFulfilled
	if settled.Add(reconcile.Tolerance).GreaterThanOrEqual(po.TotalQuantity()) {
		status = model.POStatusFulfilled
	}
	if status == po.Status {
		return nil
	}
	return s.poRepo.UpdateStatus(ctx, po.ID, status)
}

func (s *paymentService) BulkApprove(ctx context.Context, req BulkApproveRequest, userID string) []BulkResult {
	results := make([]BulkResult, 0, len(req.InvoiceIDs))
	for _, id := range req.InvoiceIDs {
		_, err := s.Approve(ctx, ApproveRequest{InvoiceID: id}, userID)
		results = append(results, toBulkResult(id, err))
	}
	return results
}

func (s *paymentService) BulkReject(ctx context.Context, req BulkRejectRequest, userID string) []BulkResult {
	results := make([]BulkResult, 0, len(req.InvoiceIDs))
	for _, id := range req.InvoiceIDs {
		_, err := s.rejecter.Reject(ctx, id, userID, req.Reason)
		results = append(results, toBulkResult(id, err))
	}
	return results
}

func toBulkResult(id string, err error) BulkResult {
	if err != nil {
		return BulkResult{InvoiceID: id, OK: false, Error: err.Error()}
	}
	return BulkResult{InvoiceID: id, OK: true}
}

func (s *paymentService) RecordPayment(ctx context.Context, approvalID string, req RecordPaymentRequest, userID string) (*ApprovalResponse, error) {
	id, err := uuid.Parse(approvalID)
	if err != nil {
		return nil, fmt.Errorf("invalid approval id: %w", err)
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount: %w", err)
	}

	var payer *uuid.UUID
	if parsed, parseErr := uuid.Parse(userID); parseErr == nil {
		payer = &parsed
	}

	var invoiceID uuid.UUID
	var fromInvoiceStatus, toInvoiceStatus string
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		// Balance check, transaction append, and status recompute commit
		// together or not at all; the row lock serializes concurrent
		// partial payments against the same approval.
		approval, findErr := s.paymentRepo.FindApprovalByIDForUpdate(txCtx, id)
		if findErr != nil {
			return mapNotFound(findErr)
		}
		if approval.Status == model.PaymentStatusRejected {
			return newTransitionError(model.StatusRejected, model.StatusPartiallyPaid)
		}

		remaining := approval.RemainingBalance()
		if !amount.IsPositive() || amount.Sub(remaining).GreaterThan(reconcile.Tolerance) {
			return fmt.Errorf("%w: amount %s, remaining %s", ErrBalanceViolation, amount.String(), remaining.String())
		}

		tx := &model.PaymentTransaction{
			ApprovalID:  approval.ID,
			Amount:      amount,
			PaidAt:      time.Now(),
			PaymentType: req.PaymentType,
			Reference:   req.Reference,
			PaidBy:      payer,
			Notes:       req.Notes,
		}
		if appendErr := s.paymentRepo.AppendTransaction(txCtx, tx); appendErr != nil {
			return fmt.Errorf("failed to append transaction: %w", appendErr)
		}

		settled := remaining.Sub(amount).Abs().LessThanOrEqual(reconcile.Tolerance)
		approvalStatus := model.PaymentStatusPartiallyPaid
		toInvoiceStatus = model.StatusPartiallyPaid
		if settled {
			approvalStatus = model.PaymentStatusPaymentDone
			toInvoiceStatus = model.StatusPaid
		}

		approval.Status = approvalStatus
		if saveErr := s.paymentRepo.UpdateApproval(txCtx, approval); saveErr != nil {
			return fmt.Errorf("failed to update approval: %w", saveErr)
		}

		invoice, invErr := s.invoiceRepo.FindByIDForUpdate(txCtx, approval.InvoiceID)
		if invErr != nil {
			return mapNotFound(invErr)
		}
		invoiceID = invoice.ID
		fromInvoiceStatus = invoice.Status
		if !model.CanTransition(fromInvoiceStatus, toInvoiceStatus) {
			return newTransitionError(fromInvoiceStatus, toInvoiceStatus)
		}
		ok, updateErr := s.invoiceRepo.UpdateStatusChecked(txCtx, invoice.ID, fromInvoiceStatus, toInvoiceStatus)
		if updateErr != nil {
			return fmt.Errorf("failed to update invoice status: %w", updateErr)
		}
		if !ok {
			return fmt.Errorf("%w: invoice %s", ErrConflict, invoice.ID)
		}

		return s.audit(txCtx, payer, model.ActionRecordPayment, approval.ID.String(), invoice.InvoiceNumber, map[string]interface{}{
			"amount":    amount.String(),
			"remaining": remaining.Sub(amount).String(),
			"status":    approvalStatus,
		})
	})
	if err != nil {
		return nil, err
	}

	s.broadcastStatus(invoiceID, fromInvoiceStatus, toInvoiceStatus)
	s.log.Info().
		Str("approval_id", id.String()).
		Str("amount", amount.String()).
		Str("status", toInvoiceStatus).
		Msg("payment recorded")
	return s.GetApproval(ctx, approvalID)
}

func (s *paymentService) GetApproval(ctx context.Context, approvalID string) (*ApprovalResponse, error) {
	id, err := uuid.Parse(approvalID)
	if err != nil {
		return nil, fmt.Errorf("invalid approval id: %w", err)
	}
	approval, err := s.paymentRepo.FindApprovalByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err)
	}
	resp := toApprovalResponse(approval)
	return &resp, nil
}

func (s *paymentService) ListReady(ctx context.Context, page, limit int) ([]ApprovalResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	approvals, total, err := s.paymentRepo.ListApprovals(ctx, model.PaymentStatusReadyForPayment, page, limit)
	if err != nil {
		return nil, 0, err
	}
	result := make([]ApprovalResponse, 0, len(approvals))
	for i := range approvals {
		result = append(result, toApprovalResponse(&approvals[i]))
	}
	return result, total, nil
}

func (s *paymentService) ListTransactions(ctx context.Context, approvalID string) ([]model.PaymentTransaction, error) {
	id, err := uuid.Parse(approvalID)
	if err != nil {
		return nil, fmt.Errorf("invalid approval id: %w", err)
	}
	return s.paymentRepo.ListTransactions(ctx, id)
}

// --- Helpers ---

func applyBankingOverride(approval *model.PaymentApproval, override BankingOverride) {
	if override.AccountName != "" {
		approval.AccountName = override.AccountName
	}
	if override.AccountNumber != "" {
		approval.AccountNumber = override.AccountNumber
	}
	if override.IFSC != "" {
		approval.IFSC = override.IFSC
	}
	if override.BankName != "" {
		approval.BankName = override.BankName
	}
	if override.BranchName != "" {
		approval.BranchName = override.BranchName
	}
}

func toApprovalResponse(a *model.PaymentApproval) ApprovalResponse {
	resp := ApprovalResponse{
		ID:               a.ID.String(),
		InvoiceID:        a.InvoiceID.String(),
		Status:           a.Status,
		PayableAmount:    a.PayableAmount.StringFixed(2),
		PaidAmount:       a.PaidAmount().StringFixed(2),
		RemainingBalance: a.RemainingBalance().StringFixed(2),
		AccountName:      a.AccountName,
		AccountNumber:    a.AccountNumber,
		IFSC:             a.IFSC,
		BankName:         a.BankName,
		BranchName:       a.BranchName,
		Transactions:     a.Transactions,
	}
	if a.ApprovedBy != nil {
		v := a.ApprovedBy.String()
		resp.ApprovedBy = &v
	}
	if a.ApprovedAt != nil {
		v := a.ApprovedAt.Format(time.RFC3339)
		resp.ApprovedAt = &v
	}
	return resp
}

func (s *paymentService) audit(ctx context.Context, userID *uuid.UUID, action, entityID, entityName string, details map[string]interface{}) error {
	payload, _ := json.Marshal(details)
	return s.auditRepo.Create(ctx, &model.AuditLog{
		UserID:     userID,
		Action:     action,
		EntityID:   entityID,
		EntityName: entityName,
		Details:    string(payload),
	})
}

func (s *paymentService) broadcastStatus(invoiceID uuid.UUID, from, to string) {
	if s.hub == nil || from == "" {
		return
	}
	msg, _ := json.Marshal(map[string]string{
		"type":       "invoice_status",
		"invoice_id": invoiceID.String(),
		"from":       from,
		"to":         to,
	})
	s.hub.Broadcast <- msg
}
