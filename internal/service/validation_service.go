package service

import (
	"context"
	"errors"
	"fmt"

	"backend/internal/model"
	"backend/internal/reconcile"
	"backend/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// UnderDeliveryScope controls whether the invoice-vs-GRN comparison looks at
// the current invoice in isolation or adds invoices already settled against
// the same PO. Policy knob, configured at wiring time.
const (
	UnderDeliveryScopeCurrent    = "current_invoice"
	UnderDeliveryScopeCumulative = "cumulative"
)

// SectionResult is one independently-scored section of the verdict.
type SectionResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// Verdict is the structured outcome of validating one invoice. Overall.Valid
// is the logical AND of the five sections. LineComparisons is informational
// for operator review and does not affect the pass/fail outcome.
type Verdict struct {
	POHeader SectionResult `json:"po_header"`
	POLines  SectionResult `json:"po_lines"`
	Invoice  SectionResult `json:"invoice"`
	Supplier SectionResult `json:"supplier"`
	Banking  SectionResult `json:"banking"`
	Overall  struct {
		Valid bool `json:"valid"`
	} `json:"overall"`
	LineComparisons []reconcile.LineComparison `json:"line_comparisons"`
}

// Evaluation bundles the verdict with the routing facts the state machine
// needs: the resolved PO, the GRN aggregate, and the under-delivery flag.
type Evaluation struct {
	Verdict       Verdict
	PO            *model.PurchaseOrder
	GRNQty        decimal.Decimal
	UnderDelivery bool
	POFulfilled   bool
}

type ValidationService interface {
	// Evaluate reconciles an invoice against its PO, GRN aggregate, and
	// supplier master data. Business-rule failures land in the verdict;
	// only operational failures (data store unreachable) return an error.
	Evaluate(ctx context.Context, invoice *model.Invoice) (*Evaluation, error)
}

type validationService struct {
	poRepo       repository.PurchaseOrderRepository
	grnRepo      repository.GRNRepository
	supplierRepo repository.SupplierRepository
	invoiceRepo  repository.InvoiceRepository
	scope        string
}

func NewValidationService(
	poRepo repository.PurchaseOrderRepository,
	grnRepo repository.GRNRepository,
	supplierRepo repository.SupplierRepository,
	invoiceRepo repository.InvoiceRepository,
	underDeliveryScope string,
) ValidationService {
	if underDeliveryScope == "" {
		underDeliveryScope = UnderDeliveryScopeCurrent
	}
	return &validationService{
		poRepo:       poRepo,
		grnRepo:      grnRepo,
		supplierRepo: supplierRepo,
		invoiceRepo:  invoiceRepo,
		scope:        underDeliveryScope,
	}
}

func (s *validationService) Evaluate(ctx context.Context, invoice *model.Invoice) (*Evaluation, error) {
	eval := &Evaluation{}

	// Resolve the PO by the currently-entered number, never a cached one.
	var po *model.PurchaseOrder
	if invoice.PONumber != nil && *invoice.PONumber != "" {
		found, err := s.poRepo.FindByNumber(ctx, *invoice.PONumber)
		switch {
		case err == nil:
			po = found
		case errors.Is(err, gorm.ErrRecordNotFound):
			// resolved below as a verdict failure, not an error
		default:
			return nil, fmt.Errorf("%w: fetching purchase order %s: %v", ErrLookupFailed, *invoice.PONumber, err)
		}
	}
	eval.PO = po

	eval.Verdict.POHeader = s.checkPOHeader(invoice, po)
	eval.Verdict.POLines = s.checkPOLines(po)
	eval.Verdict.Invoice = s.checkInvoice(invoice)

	supplierSection, bankingSection, err := s.checkSupplier(ctx, invoice.SupplierName)
	if err != nil {
		return nil, err
	}
	eval.Verdict.Supplier = supplierSection
	eval.Verdict.Banking = bankingSection

	eval.Verdict.Overall.Valid = eval.Verdict.POHeader.Valid &&
		eval.Verdict.POLines.Valid &&
		eval.Verdict.Invoice.Valid &&
		eval.Verdict.Supplier.Valid &&
		eval.Verdict.Banking.Valid

	if po != nil {
		eval.Verdict.LineComparisons = reconcile.CompareLines(po.Lines, invoice.Lines)
		eval.POFulfilled = po.Status == model.POStatusFulfilled

		grnQty, err := s.grnRepo.SumReceivedQty(ctx, po.PONumber)
		if err != nil {
			return nil, fmt.Errorf("%w: aggregating GRN quantity for %s: %v", ErrLookupFailed, po.PONumber, err)
		}
		eval.GRNQty = grnQty

		invoiceQty := invoice.TotalQuantity()
		if s.scope == UnderDeliveryScopeCumulative {
			settled, err := s.invoiceRepo.SumSettledQtyForPO(ctx, po.PONumber, invoice.ID)
			if err != nil {
				return nil, fmt.Errorf("%w: aggregating settled quantity for %s: %v", ErrLookupFailed, po.PONumber, err)
			}
			invoiceQty = invoiceQty.Add(settled)
		}
		// Billed more than physically received; the difference is recovered
		// through a debit note.
		eval.UnderDelivery = invoiceQty.Sub(grnQty).GreaterThan(reconcile.Tolerance)
	}

	return eval, nil
}

func (s *validationService) checkPOHeader(invoice *model.Invoice, po *model.PurchaseOrder) SectionResult {
	var errs []string
	if invoice.PONumber == nil || *invoice.PONumber == "" {
		errs = append(errs, "no PO number entered on the invoice")
	} else if po == nil {
		errs = append(errs, fmt.Sprintf("PO %s not found", *invoice.PONumber))
	} else {
		if po.PONumber == "" {
			errs = append(errs, "PO has no number")
		}
		if po.PODate == nil {
			errs = append(errs, "PO has no date")
		}
	}
	return SectionResult{Valid: len(errs) == 0, Errors: errs}
}

func (s *validationService) checkPOLines(po *model.PurchaseOrder) SectionResult {
	var errs []string
	if po == nil {
		errs = append(errs, "no PO resolved; lines cannot be checked")
		return SectionResult{Valid: false, Errors: errs}
	}
	for i, line := range po.Lines {
		if line.Description == "" && line.ItemCode == "" {
			errs = append(errs, fmt.Sprintf("PO line %d has no item description", i+1))
		}
		if line.Quantity.IsZero() {
			errs = append(errs, fmt.Sprintf("PO line %d has no quantity", i+1))
		}
	}
	return SectionResult{Valid: len(errs) == 0, Errors: errs}
}

func (s *validationService) checkInvoice(invoice *model.Invoice) SectionResult {
	var errs []string
	if invoice.InvoiceNumber == "" {
		errs = append(errs, "invoice number missing")
	}
	if invoice.InvoiceDate == "" {
		errs = append(errs, "invoice date missing")
	}
	if invoice.SupplierName == "" {
		errs = append(errs, "supplier name missing")
	}
	if invoice.TotalAmount.IsZero() {
		errs = append(errs, "total amount missing")
	}
	if len(invoice.Lines) == 0 {
		errs = append(errs, "invoice has no line items")
	}

	for i, line := range invoice.Lines {
		confirmed, ok := line.ConfirmedQuantity()
		if !ok {
			errs = append(errs, fmt.Sprintf(
				"line %d: quantity must be confirmed by exactly one channel (weight slip or manual count)", i+1))
			continue
		}
		if line.BilledQty == nil {
			errs = append(errs, fmt.Sprintf(
				"line %d: measured quantity %s present but no extracted quantity to compare", i+1, confirmed.String()))
			continue
		}
		if !reconcile.Matches(&confirmed, line.BilledQty) {
			errs = append(errs, fmt.Sprintf(
				"line %d: measured quantity %s does not match extracted quantity %s",
				i+1, confirmed.String(), line.BilledQty.String()))
		}
	}

	return SectionResult{Valid: len(errs) == 0, Errors: errs}
}

// checkSupplier scores supplier master-data completeness and the banking
// section from the supplier master (never from the invoice). A supplier that
// is simply absent fails both sections; only operational failures error out.
func (s *validationService) checkSupplier(ctx context.Context, name string) (SectionResult, SectionResult, error) {
	if name == "" {
		missing := SectionResult{Valid: false, Errors: []string{"no supplier name on the invoice"}}
		return missing, missing, nil
	}

	supplier, err := s.supplierRepo.FindByName(ctx, name)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		notFound := SectionResult{Valid: false, Errors: []string{fmt.Sprintf("supplier %q not found in master data", name)}}
		return notFound, notFound, nil
	}
	if err != nil {
		return SectionResult{}, SectionResult{}, fmt.Errorf("%w: fetching supplier %q: %v", ErrLookupFailed, name, err)
	}

	var supplierErrs []string
	if supplier.GSTNo == "" {
		supplierErrs = append(supplierErrs, "GST number missing")
	}
	if supplier.PANNo == "" {
		supplierErrs = append(supplierErrs, "PAN number missing")
	}
	if supplier.Address == "" {
		supplierErrs = append(supplierErrs, "address missing")
	}
	if !supplier.HasContact() {
		supplierErrs = append(supplierErrs, "no contact channel (email, mobile, or phone)")
	}

	var bankingErrs []string
	if supplier.AccountNumber == "" {
		bankingErrs = append(bankingErrs, "account number missing")
	}
	if supplier.IFSC == "" {
		bankingErrs = append(bankingErrs, "IFSC missing")
	}
	if supplier.BankName == "" {
		bankingErrs = append(bankingErrs, "bank name missing")
	}
	if supplier.BranchName == "" {
		bankingErrs = append(bankingErrs, "branch name missing")
	}

	return SectionResult{Valid: len(supplierErrs) == 0, Errors: supplierErrs},
		SectionResult{Valid: len(bankingErrs) == 0, Errors: bankingErrs},
		nil
}
