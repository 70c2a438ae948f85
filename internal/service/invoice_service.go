package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"backend/internal/model"
	"backend/internal/ocr"
	"backend/internal/repository"
	ws "backend/internal/websocket"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"backend/internal/logger"
)

// --- DTOs ---

type InvoiceFilter struct {
	Status       string
	SupplierName string
	PONumber     string
	Page         int
	Limit        int
}

// UpdateInvoiceRequest edits header fields and replaces lines. Editing an
// already-validated invoice resets it to waiting_for_re_validation.
type UpdateInvoiceRequest struct {
	InvoiceNumber  *string              `json:"invoice_number"`
	InvoiceDate    *string              `json:"invoice_date"`
	SupplierName   *string              `json:"supplier_name"`
	PONumber       *string              `json:"po_number"`
	TotalAmount    *string              `json:"total_amount"`
	TaxAmount      *string              `json:"tax_amount"`
	PaymentDueDate *string              `json:"payment_due_date"` // RFC3339
	Lines          []InvoiceLineRequest `json:"lines"`
}

type InvoiceLineRequest struct {
	ItemName     string  `json:"item_name"`
	HSNSAC       string  `json:"hsn_sac"`
	BilledQty    *string `json:"billed_qty"`
	Weight       *string `json:"weight"`
	Count        *string `json:"count"`
	Rate         *string `json:"rate"`
	LineTotal    string  `json:"line_total"`
	TaxableValue string  `json:"taxable_value"`
	CGSTRate     string  `json:"cgst_rate"`
	CGSTAmount   string  `json:"cgst_amount"`
	SGSTRate     string  `json:"sgst_rate"`
	SGSTAmount   string  `json:"sgst_amount"`
	TotalTax     string  `json:"total_tax"`
}

type DebitNoteRequest struct {
	Value       string `json:"value" binding:"required"`
	DocumentURL string `json:"document_url" binding:"required"`
}

type RejectInvoiceRequest struct {
	// Reason may be empty but the field must be present; it is stored as an
	// empty string, never null.
	Reason string `json:"reason"`
}

// ValidateOutcome is returned by the validate action: the full verdict plus
// the status the state machine routed the invoice to.
type ValidateOutcome struct {
	Verdict Verdict `json:"verdict"`
	Status  string  `json:"status"`
}

// --- Interface ---

type InvoiceService interface {
	// Capture runs the extraction service on an uploaded PDF and persists
	// the invoice in waiting_for_validation.
	Capture(ctx context.Context, scanningNumber, pdfURL, filename string, pdf io.Reader) (*model.Invoice, error)
	// AttachWeight extracts a weight-slip PDF and writes the weight onto the
	// given line (1-based sequence number).
	AttachWeight(ctx context.Context, invoiceID string, lineSeq int, filename string, pdf io.Reader) (*model.Invoice, error)
	GetByID(ctx context.Context, id string) (*model.Invoice, error)
	List(ctx context.Context, filter InvoiceFilter) ([]model.Invoice, int64, error)
	Update(ctx context.Context, id string, req UpdateInvoiceRequest) (*model.Invoice, error)
	// Validate runs the validation engine and applies the state machine:
	// validated, debit_note_approval, or exception_approval. An invalid
	// verdict leaves the status untouched.
	Validate(ctx context.Context, id string) (*ValidateOutcome, error)
	// AttachDebitNote records the operator-entered payable amount and the
	// uploaded debit-note document on a debit_note_approval invoice.
	AttachDebitNote(ctx context.Context, id string, req DebitNoteRequest) (*model.Invoice, error)
	Reject(ctx context.Context, id string, userID string, reason string) (*model.Invoice, error)
}

type invoiceService struct {
	invoiceRepo repository.InvoiceRepository
	paymentRepo repository.PaymentRepository
	auditRepo   repository.AuditRepository
	validator   ValidationService
	extractor   *ocr.Client
	txManager   repository.TransactionManager
	hub         *ws.Hub
	log         zerolog.Logger
}

func NewInvoiceService(
	invoiceRepo repository.InvoiceRepository,
	paymentRepo repository.PaymentRepository,
	auditRepo repository.AuditRepository,
	validator ValidationService,
	extractor *ocr.Client,
	txManager repository.TransactionManager,
	hub *ws.Hub,
) InvoiceService {
	return &invoiceService{
		invoiceRepo: invoiceRepo,
		paymentRepo: paymentRepo,
		auditRepo:   auditRepo,
		validator:   validator,
		extractor:   extractor,
		txManager:   txManager,
		hub:         hub,
		log:         logger.WithComponent("invoice-service"),
	}
}

// --- Implementation ---

func (s *invoiceService) Capture(ctx context.Context, scanningNumber, pdfURL, filename string, pdf io.Reader) (*model.Invoice, error) {
	if scanningNumber == "" {
		return nil, fmt.Errorf("scanning number is required")
	}

	extracted, err := s.extractor.ExtractInvoice(ctx, filename, pdf)
	if err != nil {
		// Extraction failures stay in the OCR taxonomy (retryable,
		// service-unavailable), never folded into validation.
		return nil, err
	}

	invoice := &model.Invoice{
		InvoiceNumber:  extracted.InvoiceNumber,
		InvoiceDate:    extracted.InvoiceDate,
		ScanningNumber: scanningNumber,
		SupplierName:   extracted.SupplierName,
		TotalAmount:    parseDecimal(extracted.TotalAmount),
		TaxAmount:      parseDecimal(extracted.TaxAmount),
		Status:         model.StatusWaitingForValidation,
		PDFURL:         pdfURL,
	}
	if extracted.PONumber != "" {
		po := extracted.PONumber
		invoice.PONumber = &po
	}

	for i, item := range extracted.Items {
		line := model.InvoiceLine{
			SeqNo:        i + 1,
			ItemName:     item.ItemName,
			HSNSAC:       item.HSNSAC,
			BilledQty:    parseDecimalPtr(item.Quantity),
			Rate:         parseDecimalPtr(item.UnitPrice),
			LineTotal:    parseDecimal(item.Amount),
			TaxableValue: parseDecimal(item.TaxableValue),
			CGSTRate:     parseDecimal(item.CGSTPercent),
			CGSTAmount:   parseDecimal(item.CGSTAmount),
			SGSTRate:     parseDecimal(item.SGSTPercent),
			SGSTAmount:   parseDecimal(item.SGSTAmount),
		}
		line.TotalTax = line.CGSTAmount.Add(line.SGSTAmount)
		invoice.Lines = append(invoice.Lines, line)
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if createErr := s.invoiceRepo.Create(txCtx, invoice); createErr != nil {
			return fmt.Errorf("failed to create invoice: %w", createErr)
		}
		return s.audit(txCtx, nil, model.ActionUploadInvoice, invoice.ID.String(), invoice.InvoiceNumber, map[string]interface{}{
			"scanning_number": scanningNumber,
			"po_number":       extracted.PONumber,
			"lines":           len(invoice.Lines),
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("invoice_id", invoice.ID.String()).
		Str("scanning_number", scanningNumber).
		Msg("invoice captured")
	return s.invoiceRepo.FindByID(ctx, invoice.ID)
}

func (s *invoiceService) AttachWeight(ctx context.Context, invoiceID string, lineSeq int, filename string, pdf io.Reader) (*model.Invoice, error) {
	id, err := uuid.Parse(invoiceID)
	if err != nil {
		return nil, fmt.Errorf("invalid invoice id: %w", err)
	}

	weight, err := s.extractor.ExtractWeight(ctx, filename, pdf)
	if err != nil {
		return nil, err
	}
	if weight == nil {
		return nil, fmt.Errorf("%w: weight slip had no readable weight", ocr.ErrExtractionFailed)
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		invoice, findErr := s.invoiceRepo.FindByIDForUpdate(txCtx, id)
		if findErr != nil {
			return mapNotFound(findErr)
		}
		if invoice.Status != model.StatusWaitingForValidation && invoice.Status != model.StatusWaitingForRevalidation {
			return newTransitionError(invoice.Status, invoice.Status)
		}

		var line *model.InvoiceLine
		for i := range invoice.Lines {
			if invoice.Lines[i].SeqNo == lineSeq {
				line = &invoice.Lines[i]
				break
			}
		}
		if line == nil {
			return fmt.Errorf("%w: invoice line %d", ErrNotFound, lineSeq)
		}

		w := decimal.NewFromFloat(*weight)
		line.Weight = &w
		line.Count = nil // one measurement channel per line
		return s.invoiceRepo.ReplaceLines(txCtx, id, invoice.Lines)
	})
	if err != nil {
		return nil, err
	}
	return s.invoiceRepo.FindByID(ctx, id)
}

func (s *invoiceService) GetByID(ctx context.Context, id string) (*model.Invoice, error) {
	invoiceID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid invoice id: %w", err)
	}
	invoice, err := s.invoiceRepo.FindByID(ctx, invoiceID)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return invoice, nil
}

func (s *invoiceService) List(ctx context.Context, filter InvoiceFilter) ([]model.Invoice, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	return s.invoiceRepo.List(ctx, repository.InvoiceListFilter{
		Status:       filter.Status,
		SupplierName: filter.SupplierName,
		PONumber:     filter.PONumber,
		Page:         filter.Page,
		Limit:        filter.Limit,
	})
}

func (s *invoiceService) Update(ctx context.Context, id string, req UpdateInvoiceRequest) (*model.Invoice, error) {
	invoiceID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid invoice id: %w", err)
	}

	var resetFrom string
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		invoice, findErr := s.invoiceRepo.FindByIDForUpdate(txCtx, invoiceID)
		if findErr != nil {
			return mapNotFound(findErr)
		}

		editable := invoice.Status == model.StatusWaitingForValidation ||
			invoice.Status == model.StatusWaitingForRevalidation
		needsReset := model.CanTransition(invoice.Status, model.StatusWaitingForRevalidation)
		if !editable && !needsReset {
			return newTransitionError(invoice.Status, model.StatusWaitingForRevalidation)
		}

		applyHeaderEdits(invoice, req)

		if req.Lines != nil {
			lines := make([]model.InvoiceLine, 0, len(req.Lines))
			for i, lr := range req.Lines {
				lines = append(lines, model.InvoiceLine{
					SeqNo:        i + 1,
					ItemName:     lr.ItemName,
					HSNSAC:       lr.HSNSAC,
					BilledQty:    parseDecimalPtrOpt(lr.BilledQty),
					Weight:       parseDecimalPtrOpt(lr.Weight),
					Count:        parseDecimalPtrOpt(lr.Count),
					Rate:         parseDecimalPtrOpt(lr.Rate),
					LineTotal:    parseDecimal(lr.LineTotal),
					TaxableValue: parseDecimal(lr.TaxableValue),
					CGSTRate:     parseDecimal(lr.CGSTRate),
					CGSTAmount:   parseDecimal(lr.CGSTAmount),
					SGSTRate:     parseDecimal(lr.SGSTRate),
					SGSTAmount:   parseDecimal(lr.SGSTAmount),
					TotalTax:     parseDecimal(lr.TotalTax),
				})
			}
			if replaceErr := s.invoiceRepo.ReplaceLines(txCtx, invoiceID, lines); replaceErr != nil {
				return fmt.Errorf("failed to replace lines: %w", replaceErr)
			}
		}
		invoice.Lines = nil // header save below must not touch line rows

		if needsReset && !editable {
			resetFrom = invoice.Status
			invoice.Status = model.StatusWaitingForRevalidation
			invoice.Version++
		}

		if updateErr := s.invoiceRepo.Update(txCtx, invoice); updateErr != nil {
			return fmt.Errorf("failed to update invoice: %w", updateErr)
		}
		return s.audit(txCtx, nil, model.ActionUpdateInvoice, invoice.ID.String(), invoice.InvoiceNumber, map[string]interface{}{
			"reset_from": resetFrom,
		})
	})
	if err != nil {
		return nil, err
	}

	if resetFrom != "" {
		s.broadcastStatus(invoiceID, resetFrom, model.StatusWaitingForRevalidation)
	}
	return s.invoiceRepo.FindByID(ctx, invoiceID)
}

func (s *invoiceService) Validate(ctx context.Context, id string) (*ValidateOutcome, error) {
	invoiceID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid invoice id: %w", err)
	}

	var outcome *ValidateOutcome
	var from string
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		invoice, findErr := s.invoiceRepo.FindByIDForUpdate(txCtx, invoiceID)
		if findErr != nil {
			return mapNotFound(findErr)
		}
		if invoice.Status != model.StatusWaitingForValidation &&
			invoice.Status != model.StatusWaitingForRevalidation {
			return newTransitionError(invoice.Status, model.StatusValidated)
		}
		from = invoice.Status

		eval, evalErr := s.validator.Evaluate(txCtx, invoice)
		if evalErr != nil {
			return evalErr
		}

		target := routeVerdict(eval)
		outcome = &ValidateOutcome{Verdict: eval.Verdict, Status: invoice.Status}
		if target == "" {
			// Verdict failed, invoice stays put for correction.
			return s.audit(txCtx, nil, model.ActionValidateInvoice, invoice.ID.String(), invoice.InvoiceNumber, map[string]interface{}{
				"valid": false,
			})
		}

		ok, updateErr := s.invoiceRepo.UpdateStatusChecked(txCtx, invoiceID, from, target)
		if updateErr != nil {
			return fmt.Errorf("failed to update status: %w", updateErr)
		}
		if !ok {
			return fmt.Errorf("%w: invoice %s", ErrConflict, invoiceID)
		}
		outcome.Status = target
		return s.audit(txCtx, nil, model.ActionValidateInvoice, invoice.ID.String(), invoice.InvoiceNumber, map[string]interface{}{
			"valid":  eval.Verdict.Overall.Valid,
			"status": target,
		})
	})
	if err != nil {
		return nil, err
	}

	if outcome.Status != from {
		s.broadcastStatus(invoiceID, from, outcome.Status)
		s.log.Info().
			Str("invoice_id", invoiceID.String()).
			Str("from", from).
			Str("to", outcome.Status).
			Msg("invoice validated")
	}
	return outcome, nil
}

// routeVerdict applies the state-machine routing rules to an evaluation.
// Empty string means no transition (verdict failed).
func routeVerdict(eval *Evaluation) string {
	// An invoice against an already-fulfilled PO is an exception regardless
	// of line-level match quality.
	if eval.POFulfilled {
		return model.StatusExceptionApproval
	}
	if !eval.Verdict.Overall.Valid {
		return ""
	}
	if eval.UnderDelivery {
		return model.StatusDebitNoteApproval
	}
	return model.StatusValidated
}

func (s *invoiceService) AttachDebitNote(ctx context.Context, id string, req DebitNoteRequest) (*model.Invoice, error) {
	invoiceID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid invoice id: %w", err)
	}
	value, err := decimal.NewFromString(req.Value)
	if err != nil {
		return nil, fmt.Errorf("invalid debit note value: %w", err)
	}
	if !value.IsPositive() {
		return nil, fmt.Errorf("debit note value must be positive")
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		invoice, findErr := s.invoiceRepo.FindByIDForUpdate(txCtx, invoiceID)
		if findErr != nil {
			return mapNotFound(findErr)
		}
		if invoice.Status != model.StatusDebitNoteApproval {
			return newTransitionError(invoice.Status, model.StatusDebitNoteApproval)
		}
		invoice.DebitNoteValue = &value
		invoice.DebitNoteURL = req.DocumentURL
		invoice.Lines = nil
		if updateErr := s.invoiceRepo.Update(txCtx, invoice); updateErr != nil {
			return fmt.Errorf("failed to attach debit note: %w", updateErr)
		}
		return s.audit(txCtx, nil, model.ActionAttachDebitNote, invoice.ID.String(), invoice.InvoiceNumber, map[string]interface{}{
			"value": value.String(),
		})
	})
	if err != nil {
		return nil, err
	}
	return s.invoiceRepo.FindByID(ctx, invoiceID)
}

func (s *invoiceService) Reject(ctx context.Context, id string, userID string, reason string) (*model.Invoice, error) {
	invoiceID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid invoice id: %w", err)
	}

	var actor *uuid.UUID
	if parsed, parseErr := uuid.Parse(userID); parseErr == nil {
		actor = &parsed
	}

	var from string
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		invoice, findErr := s.invoiceRepo.FindByIDForUpdate(txCtx, invoiceID)
		if findErr != nil {
			return mapNotFound(findErr)
		}
		if !model.CanTransition(invoice.Status, model.StatusRejected) {
			return newTransitionError(invoice.Status, model.StatusRejected)
		}
		from = invoice.Status

		ok, updateErr := s.invoiceRepo.UpdateStatusChecked(txCtx, invoiceID, from, model.StatusRejected)
		if updateErr != nil {
			return fmt.Errorf("failed to reject invoice: %w", updateErr)
		}
		if !ok {
			return fmt.Errorf("%w: invoice %s", ErrConflict, invoiceID)
		}

		// Reason is stored even when empty; the column is a string, not null.
		invoice.RejectionReason = &reason
		invoice.Status = model.StatusRejected
		invoice.Version++
		invoice.Lines = nil
		if updateErr := s.invoiceRepo.Update(txCtx, invoice); updateErr != nil {
			return fmt.Errorf("failed to store rejection reason: %w", updateErr)
		}

		// The approval, if one exists, is rejected with the invoice so no
		// further payments can be recorded.
		approval, apprErr := s.paymentRepo.FindApprovalByInvoiceID(txCtx, invoiceID)
		if apprErr == nil {
			approval.Status = model.PaymentStatusRejected
			if saveErr := s.paymentRepo.UpdateApproval(txCtx, approval); saveErr != nil {
				return fmt.Errorf("failed to reject approval: %w", saveErr)
			}
		} else if !errors.Is(apprErr, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to load approval: %w", apprErr)
		}

		return s.audit(txCtx, actor, model.ActionRejectInvoice, invoice.ID.String(), invoice.InvoiceNumber, map[string]interface{}{
			"reason": reason,
			"from":   from,
		})
	})
	if err != nil {
		return nil, err
	}

	s.broadcastStatus(invoiceID, from, model.StatusRejected)
	return s.invoiceRepo.FindByID(ctx, invoiceID)
}

// --- Helpers ---

func applyHeaderEdits(invoice *model.Invoice, req UpdateInvoiceRequest) {
	if req.InvoiceNumber != nil {
		invoice.InvoiceNumber = *req.InvoiceNumber
	}
	if req.InvoiceDate != nil {
		invoice.InvoiceDate = *req.InvoiceDate
	}
	if req.SupplierName != nil {
		invoice.SupplierName = *req.SupplierName
	}
	if req.PONumber != nil {
		if *req.PONumber == "" {
			invoice.PONumber = nil
		} else {
			invoice.PONumber = req.PONumber
		}
	}
	if req.TotalAmount != nil {
		invoice.TotalAmount = parseDecimal(*req.TotalAmount)
	}
	if req.TaxAmount != nil {
		invoice.TaxAmount = parseDecimal(*req.TaxAmount)
	}
	if req.PaymentDueDate != nil {
		if due, err := time.Parse(time.RFC3339, *req.PaymentDueDate); err == nil {
			invoice.PaymentDueDate = &due
		}
	}
}

func (s *invoiceService) audit(ctx context.Context, userID *uuid.UUID, action, entityID, entityName string, details map[string]interface{}) error {
	payload, _ := json.Marshal(details)
	return s.auditRepo.Create(ctx, &model.AuditLog{
		UserID:     userID,
		Action:     action,
		EntityID:   entityID,
		EntityName: entityName,
		Details:    string(payload),
	})
}

func (s *invoiceService) broadcastStatus(invoiceID uuid.UUID, from, to string) {
	if s.hub == nil {
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

func mapNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return err
}

// parseDecimal tolerates the extraction service's empty strings, returning
// zero for anything unparseable.
func parseDecimal(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// parseDecimalPtr distinguishes "absent" from "zero": an empty or invalid
// string comes back nil so the matcher can report it as missing.
func parseDecimalPtr(s string) *decimal.Decimal {
	if s == "" {
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil
	}
	return &d
}

func parseDecimalPtrOpt(s *string) *decimal.Decimal {
	if s == nil {
		return nil
	}
	return parseDecimalPtr(*s)
}
