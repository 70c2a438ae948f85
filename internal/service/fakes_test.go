package service

import (
	"context"
	"strings"

	"backend/internal/model"
	"backend/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// In-memory repository fakes. They implement just enough of the repository
// contracts for the service tests; locking methods behave like plain reads
// since the fakes are only used single-threaded.

type fakeTxManager struct{}

func (fakeTxManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	return fn(ctx)
}

// --- suppliers ---

type fakeSupplierRepo struct {
	byName map[string]*model.Supplier
}

func newFakeSupplierRepo() *fakeSupplierRepo {
	return &fakeSupplierRepo{byName: make(map[string]*model.Supplier)}
}

func (f *fakeSupplierRepo) add(s *model.Supplier) {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	f.byName[s.Name] = s
}

func (f *fakeSupplierRepo) Create(_ context.Context, s *model.Supplier) error {
	f.add(s)
	return nil
}

func (f *fakeSupplierRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Supplier, error) {
	for _, s := range f.byName {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeSupplierRepo) FindByName(_ context.Context, name string) (*model.Supplier, error) {
	if s, ok := f.byName[name]; ok {
		return s, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeSupplierRepo) List(_ context.Context, filter repository.SupplierListFilter) ([]model.Supplier, int64, error) {
	var out []model.Supplier
	for _, s := range f.byName {
		if filter.Name == "" || strings.Contains(strings.ToLower(s.Name), strings.ToLower(filter.Name)) {
			out = append(out, *s)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeSupplierRepo) Update(_ context.Context, s *model.Supplier) error {
	f.byName[s.Name] = s
	return nil
}

func (f *fakeSupplierRepo) Delete(_ context.Context, id uuid.UUID) error {
	for name, s := range f.byName {
		if s.ID == id {
			delete(f.byName, name)
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

// --- purchase orders ---

type fakePORepo struct {
	byNumber map[string]*model.PurchaseOrder
}

func newFakePORepo() *fakePORepo {
	return &fakePORepo{byNumber: make(map[string]*model.PurchaseOrder)}
}

func (f *fakePORepo) add(po *model.PurchaseOrder) {
	if po.ID == uuid.Nil {
		po.ID = uuid.New()
	}
	if po.Status == "" {
		po.Status = model.POStatusOpen
	}
	f.byNumber[po.PONumber] = po
}

func (f *fakePORepo) Create(_ context.Context, po *model.PurchaseOrder) error {
	f.add(po)
	return nil
}

func (f *fakePORepo) FindByID(_ context.Context, id uuid.UUID) (*model.PurchaseOrder, error) {
	for _, po := range f.byNumber {
		if po.ID == id {
			return po, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakePORepo) FindByNumber(_ context.Context, poNumber string) (*model.PurchaseOrder, error) {
	if po, ok := f.byNumber[poNumber]; ok {
		return po, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakePORepo) List(_ context.Context, _ repository.POListFilter) ([]model.PurchaseOrder, int64, error) {
	var out []model.PurchaseOrder
	for _, po := range f.byNumber {
		out = append(out, *po)
	}
	return out, int64(len(out)), nil
}

func (f *fakePORepo) UpdateStatus(_ context.Context, id uuid.UUID, status string) error {
	for _, po := range f.byNumber {
		if po.ID == id {
			po.Status = status
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

// --- GRNs ---

type fakeGRNRepo struct {
	byPO map[string][]model.GRN
}

func newFakeGRNRepo() *fakeGRNRepo {
	return &fakeGRNRepo{byPO: make(map[string][]model.GRN)}
}

func (f *fakeGRNRepo) add(poNumber, qty string) {
	f.byPO[poNumber] = append(f.byPO[poNumber], model.GRN{
		ID:          uuid.New(),
		PONumber:    poNumber,
		ReceivedQty: decimal.RequireFromString(qty),
	})
}

func (f *fakeGRNRepo) Create(_ context.Context, grn *model.GRN) error {
	if grn.ID == uuid.Nil {
		grn.ID = uuid.New()
	}
	f.byPO[grn.PONumber] = append(f.byPO[grn.PONumber], *grn)
	return nil
}

func (f *fakeGRNRepo) ListByPO(_ context.Context, poNumber string) ([]model.GRN, error) {
	return f.byPO[poNumber], nil
}

func (f *fakeGRNRepo) SumReceivedQty(_ context.Context, poNumber string) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, grn := range f.byPO[poNumber] {
		total = total.Add(grn.ReceivedQty)
	}
	return total, nil
}

// --- invoices ---

type fakeInvoiceRepo struct {
	byID map[uuid.UUID]*model.Invoice
	// settledQty is returned by SumSettledQtyForPO keyed on PO number.
	settledQty map[string]decimal.Decimal
}

func newFakeInvoiceRepo() *fakeInvoiceRepo {
	return &fakeInvoiceRepo{
		byID:       make(map[uuid.UUID]*model.Invoice),
		settledQty: make(map[string]decimal.Decimal),
	}
}

func (f *fakeInvoiceRepo) add(inv *model.Invoice) *model.Invoice {
	if inv.ID == uuid.Nil {
		inv.ID = uuid.New()
	}
	if inv.Status == "" {
		inv.Status = model.StatusWaitingForValidation
	}
	f.byID[inv.ID] = inv
	return inv
}

func (f *fakeInvoiceRepo) Create(_ context.Context, inv *model.Invoice) error {
	f.add(inv)
	return nil
}

// FindByID returns a copy, like a real query materializing a fresh row.
// Services nil out Lines before header saves; handing out the stored pointer
// would wipe the stored lines.
func (f *fakeInvoiceRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Invoice, error) {
	if inv, ok := f.byID[id]; ok {
		cp := *inv
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeInvoiceRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Invoice, error) {
	return f.FindByID(ctx, id)
}

func (f *fakeInvoiceRepo) FindByScanningNumber(_ context.Context, scanningNumber string) (*model.Invoice, error) {
	for _, inv := range f.byID {
		if inv.ScanningNumber == scanningNumber {
			cp := *inv
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeInvoiceRepo) List(_ context.Context, filter repository.InvoiceListFilter) ([]model.Invoice, int64, error) {
	var out []model.Invoice
	for _, inv := range f.byID {
		if filter.Status != "" && inv.Status != filter.Status {
			continue
		}
		out = append(out, *inv)
	}
	return out, int64(len(out)), nil
}

func (f *fakeInvoiceRepo) Update(_ context.Context, inv *model.Invoice) error {
	existing, ok := f.byID[inv.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	lines := existing.Lines
	*existing = *inv
	if inv.Lines == nil {
		existing.Lines = lines
	}
	return nil
}

func (f *fakeInvoiceRepo) UpdateStatusChecked(_ context.Context, id uuid.UUID, fromStatus, toStatus string) (bool, error) {
	inv, ok := f.byID[id]
	if !ok || inv.Status != fromStatus {
		return false, nil
	}
	inv.Status = toStatus
	inv.Version++
	return true, nil
}

func (f *fakeInvoiceRepo) ReplaceLines(_ context.Context, invoiceID uuid.UUID, lines []model.InvoiceLine) error {
	inv, ok := f.byID[invoiceID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for i := range lines {
		lines[i].InvoiceID = invoiceID
	}
	inv.Lines = lines
	return nil
}

func (f *fakeInvoiceRepo) SumSettledQtyForPO(_ context.Context, poNumber string, _ uuid.UUID) (decimal.Decimal, error) {
	if qty, ok := f.settledQty[poNumber]; ok {
		return qty, nil
	}
	return decimal.Zero, nil
}

// --- payments ---

type fakePaymentRepo struct {
	byID map[uuid.UUID]*model.PaymentApproval
}

func newFakePaymentRepo() *fakePaymentRepo {
	return &fakePaymentRepo{byID: make(map[uuid.UUID]*model.PaymentApproval)}
}

func (f *fakePaymentRepo) CreateApproval(_ context.Context, approval *model.PaymentApproval) error {
	if approval.ID == uuid.Nil {
		approval.ID = uuid.New()
	}
	f.byID[approval.ID] = approval
	return nil
}

func (f *fakePaymentRepo) FindApprovalByID(_ context.Context, id uuid.UUID) (*model.PaymentApproval, error) {
	if a, ok := f.byID[id]; ok {
		return a, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakePaymentRepo) FindApprovalByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.PaymentApproval, error) {
	return f.FindApprovalByID(ctx, id)
}

func (f *fakePaymentRepo) FindApprovalByInvoiceID(_ context.Context, invoiceID uuid.UUID) (*model.PaymentApproval, error) {
	for _, a := range f.byID {
		if a.InvoiceID == invoiceID {
			return a, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakePaymentRepo) ListApprovals(_ context.Context, status string, _, _ int) ([]model.PaymentApproval, int64, error) {
	var out []model.PaymentApproval
	for _, a := range f.byID {
		if status == "" || a.Status == status {
			out = append(out, *a)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakePaymentRepo) UpdateApproval(_ context.Context, approval *model.PaymentApproval) error {
	existing, ok := f.byID[approval.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	// Ledger rows are never written through this path.
	txs := existing.Transactions
	*existing = *approval
	existing.Transactions = txs
	return nil
}

func (f *fakePaymentRepo) AppendTransaction(_ context.Context, tx *model.PaymentTransaction) error {
	approval, ok := f.byID[tx.ApprovalID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if tx.ID == uuid.Nil {
		tx.ID = uuid.New()
	}
	approval.Transactions = append(approval.Transactions, *tx)
	return nil
}

func (f *fakePaymentRepo) ListTransactions(_ context.Context, approvalID uuid.UUID) ([]model.PaymentTransaction, error) {
	approval, ok := f.byID[approvalID]
	if !ok {
		return nil, nil
	}
	return approval.Transactions, nil
}

// --- audit ---

type fakeAuditRepo struct {
	entries []model.AuditLog
}

func (f *fakeAuditRepo) Create(_ context.Context, entry *model.AuditLog) error {
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeAuditRepo) List(_ context.Context, action string, _, _ int) ([]model.AuditLog, int64, error) {
	var out []model.AuditLog
	for _, e := range f.entries {
		if action == "" || e.Action == action {
			out = append(out, e)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeAuditRepo) actions() []string {
	out := make([]string, 0, len(f.entries))
	for _, e := range f.entries {
		out = append(out, e.Action)
	}
	return out
}
