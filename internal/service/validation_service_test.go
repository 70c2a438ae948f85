package service

import (
	"context"
	"testing"
	"time"

	"backend/internal/model"
	"backend/internal/reconcile"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decp(s string) *decimal.Decimal {
	v := decimal.RequireFromString(s)
	return &v
}

func strp(s string) *string { return &s }

func completeSupplier(name string) *model.Supplier {
	return &model.Supplier{
		Name:          name,
		GSTNo:         "33AAACS1234F1Z5",
		PANNo:         "AAACS1234F",
		Address:       "12 Industrial Estate, Coimbatore",
		Email:         "accounts@example.com",
		AccountName:   name,
		AccountNumber: "0042004200420042",
		IFSC:          "SBIN0001234",
		BankName:      "State Bank",
		BranchName:    "Peelamedu",
	}
}

func standardPO(number string) *model.PurchaseOrder {
	date := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	return &model.PurchaseOrder{
		PONumber: number,
		PODate:   &date,
		Status:   model.POStatusOpen,
		Lines: []model.POLine{
			{SeqNo: 1, Description: "MS Rod 12mm", Quantity: decimal.RequireFromString("100"), UnitCost: decimal.RequireFromString("52.50")},
		},
	}
}

func matchingInvoice(poNumber string) *model.Invoice {
	return &model.Invoice{
		InvoiceNumber: "INV-0042",
		InvoiceDate:   "12-Mar-2024",
		SupplierName:  "Sri Balaji Steels",
		PONumber:      strp(poNumber),
		TotalAmount:   decimal.RequireFromString("6195.00"),
		Status:        model.StatusWaitingForValidation,
		Lines: []model.InvoiceLine{
			{SeqNo: 1, ItemName: "MS Rod 12mm", BilledQty: decp("100"), Weight: decp("100"), Rate: decp("52.50")},
		},
	}
}

type validationEnv struct {
	poRepo       *fakePORepo
	grnRepo      *fakeGRNRepo
	supplierRepo *fakeSupplierRepo
	invoiceRepo  *fakeInvoiceRepo
}

func newValidationEnv() *validationEnv {
	return &validationEnv{
		poRepo:       newFakePORepo(),
		grnRepo:      newFakeGRNRepo(),
		supplierRepo: newFakeSupplierRepo(),
		invoiceRepo:  newFakeInvoiceRepo(),
	}
}

func (e *validationEnv) service(scope string) ValidationService {
	return NewValidationService(e.poRepo, e.grnRepo, e.supplierRepo, e.invoiceRepo, scope)
}

func TestEvaluate(t *testing.T) {
	ctx := context.Background()

	t.Run("fully matching invoice validates", func(t *testing.T) {
		env := newValidationEnv()
		env.supplierRepo.add(completeSupplier("Sri Balaji Steels"))
		env.poRepo.add(standardPO("PO-1001"))
		env.grnRepo.add("PO-1001", "100")

		eval, err := env.service("").Evaluate(ctx, matchingInvoice("PO-1001"))
		require.NoError(t, err)

		assert.True(t, eval.Verdict.POHeader.Valid)
		assert.True(t, eval.Verdict.POLines.Valid)
		assert.True(t, eval.Verdict.Invoice.Valid)
		assert.True(t, eval.Verdict.Supplier.Valid)
		assert.True(t, eval.Verdict.Banking.Valid)
		assert.True(t, eval.Verdict.Overall.Valid)
		assert.False(t, eval.UnderDelivery)
		assert.False(t, eval.POFulfilled)
		require.Len(t, eval.Verdict.LineComparisons, 1)
		assert.Equal(t, reconcile.LineMatch, eval.Verdict.LineComparisons[0].Status)
	})

	t.Run("missing PO number fails header and lines", func(t *testing.T) {
		env := newValidationEnv()
		env.supplierRepo.add(completeSupplier("Sri Balaji Steels"))

		inv := matchingInvoice("PO-1001")
		inv.PONumber = nil

		eval, err := env.service("").Evaluate(ctx, inv)
		require.NoError(t, err)
		assert.False(t, eval.Verdict.POHeader.Valid)
		assert.False(t, eval.Verdict.POLines.Valid)
		assert.False(t, eval.Verdict.Overall.Valid)
	})

	t.Run("unknown PO is a verdict failure not an error", func(t *testing.T) {
		env := newValidationEnv()
		env.supplierRepo.add(completeSupplier("Sri Balaji Steels"))

		eval, err := env.service("").Evaluate(ctx, matchingInvoice("PO-9999"))
		require.NoError(t, err)
		assert.False(t, eval.Verdict.POHeader.Valid)
		assert.Contains(t, eval.Verdict.POHeader.Errors[0], "PO-9999")
	})

	t.Run("unknown supplier fails supplier and banking sections", func(t *testing.T) {
		env := newValidationEnv()
		env.poRepo.add(standardPO("PO-1001"))
		env.grnRepo.add("PO-1001", "100")

		eval, err := env.service("").Evaluate(ctx, matchingInvoice("PO-1001"))
		require.NoError(t, err)
		assert.False(t, eval.Verdict.Supplier.Valid)
		assert.False(t, eval.Verdict.Banking.Valid)
		assert.False(t, eval.Verdict.Overall.Valid)
	})

	t.Run("supplier with incomplete banking fails only banking", func(t *testing.T) {
		env := newValidationEnv()
		supplier := completeSupplier("Sri Balaji Steels")
		supplier.IFSC = ""
		env.supplierRepo.add(supplier)
		env.poRepo.add(standardPO("PO-1001"))
		env.grnRepo.add("PO-1001", "100")

		eval, err := env.service("").Evaluate(ctx, matchingInvoice("PO-1001"))
		require.NoError(t, err)
		assert.True(t, eval.Verdict.Supplier.Valid)
		assert.False(t, eval.Verdict.Banking.Valid)
	})

	t.Run("line with both measurement channels fails invoice section", func(t *testing.T) {
		env := newValidationEnv()
		env.supplierRepo.add(completeSupplier("Sri Balaji Steels"))
		env.poRepo.add(standardPO("PO-1001"))
		env.grnRepo.add("PO-1001", "100")

		inv := matchingInvoice("PO-1001")
		inv.Lines[0].Count = decp("100") // weight already set

		eval, err := env.service("").Evaluate(ctx, inv)
		require.NoError(t, err)
		assert.False(t, eval.Verdict.Invoice.Valid)
	})

	t.Run("measured quantity disagreeing with billed fails invoice section", func(t *testing.T) {
		env := newValidationEnv()
		env.supplierRepo.add(completeSupplier("Sri Balaji Steels"))
		env.poRepo.add(standardPO("PO-1001"))
		env.grnRepo.add("PO-1001", "100")

		inv := matchingInvoice("PO-1001")
		inv.Lines[0].Weight = decp("95")

		eval, err := env.service("").Evaluate(ctx, inv)
		require.NoError(t, err)
		assert.False(t, eval.Verdict.Invoice.Valid)
	})

	t.Run("GRN short of billed quantity flags under-delivery", func(t *testing.T) {
		env := newValidationEnv()
		env.supplierRepo.add(completeSupplier("Sri Balaji Steels"))
		env.poRepo.add(standardPO("PO-1001"))
		env.grnRepo.add("PO-1001", "80")

		eval, err := env.service("").Evaluate(ctx, matchingInvoice("PO-1001"))
		require.NoError(t, err)
		assert.True(t, eval.UnderDelivery)
	})

	t.Run("cumulative scope adds settled invoices to the comparison", func(t *testing.T) {
		env := newValidationEnv()
		env.supplierRepo.add(completeSupplier("Sri Balaji Steels"))
		env.poRepo.add(standardPO("PO-1001"))
		env.grnRepo.add("PO-1001", "100")
		env.invoiceRepo.settledQty["PO-1001"] = decimal.RequireFromString("50")

		inv := matchingInvoice("PO-1001")
		inv.ID = uuid.New()

		eval, err := env.service(UnderDeliveryScopeCumulative).Evaluate(ctx, inv)
		require.NoError(t, err)
		// 100 billed here + 50 settled elsewhere against 100 received
		assert.True(t, eval.UnderDelivery)
	})

	t.Run("fulfilled PO is flagged for exception routing", func(t *testing.T) {
		env := newValidationEnv()
		env.supplierRepo.add(completeSupplier("Sri Balaji Steels"))
		po := standardPO("PO-1001")
		po.Status = model.POStatusFulfilled
		env.poRepo.add(po)
		env.grnRepo.add("PO-1001", "100")

		eval, err := env.service("").Evaluate(ctx, matchingInvoice("PO-1001"))
		require.NoError(t, err)
		assert.True(t, eval.POFulfilled)
	})
}
