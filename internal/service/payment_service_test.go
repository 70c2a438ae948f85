package service

import (
	"context"
	"errors"
	"testing"

	"backend/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustUUID(t *testing.T, s string) uuid.UUID {
	t.Helper()
	id, err := uuid.Parse(s)
	require.NoError(t, err)
	return id
}

type paymentEnv struct {
	*invoiceEnv
	payments PaymentService
}

func newPaymentEnv() *paymentEnv {
	ienv := newInvoiceEnv("")
	payments := NewPaymentService(
		ienv.paymentRepo, ienv.invoiceRepo, ienv.poRepo, ienv.supplierRepo,
		ienv.auditRepo, ienv.service, fakeTxManager{}, nil,
	)
	return &paymentEnv{invoiceEnv: ienv, payments: payments}
}

func (e *paymentEnv) seedValidated(grnQty string) *model.Invoice {
	inv := e.seedMatchingWorld(grnQty)
	inv.Status = model.StatusValidated
	return inv
}

func TestApprove(t *testing.T) {
	ctx := context.Background()

	t.Run("validated invoice snapshots banking and payable", func(t *testing.T) {
		env := newPaymentEnv()
		inv := env.seedValidated("100")

		resp, err := env.payments.Approve(ctx, ApproveRequest{InvoiceID: inv.ID.String()}, "")
		require.NoError(t, err)

		assert.Equal(t, model.PaymentStatusReadyForPayment, resp.Status)
		assert.Equal(t, "6195.00", resp.PayableAmount)
		assert.Equal(t, "6195.00", resp.RemainingBalance)
		assert.Equal(t, "SBIN0001234", resp.IFSC)
		assert.Equal(t, "0042004200420042", resp.AccountNumber)
		assert.Equal(t, model.StatusReadyForPayment, inv.Status)

		po, _ := env.poRepo.FindByNumber(ctx, "PO-1001")
		assert.Equal(t, model.POStatusFulfilled, po.Status)
	})

	t.Run("short invoice leaves the PO partially fulfilled", func(t *testing.T) {
		env := newPaymentEnv()
		inv := env.seedValidated("100")
		inv.Lines[0].BilledQty = decp("40")

		_, err := env.payments.Approve(ctx, ApproveRequest{InvoiceID: inv.ID.String()}, "")
		require.NoError(t, err)

		po, _ := env.poRepo.FindByNumber(ctx, "PO-1001")
		assert.Equal(t, model.POStatusPartiallyFulfilled, po.Status)
	})

	t.Run("banking override replaces the supplier snapshot", func(t *testing.T) {
		env := newPaymentEnv()
		inv := env.seedValidated("100")

		resp, err := env.payments.Approve(ctx, ApproveRequest{
			InvoiceID: inv.ID.String(),
			Banking:   &BankingOverride{IFSC: "HDFC0004242", AccountNumber: "9999"},
		}, "")
		require.NoError(t, err)
		assert.Equal(t, "HDFC0004242", resp.IFSC)
		assert.Equal(t, "9999", resp.AccountNumber)
		// untouched fields keep the supplier defaults
		assert.Equal(t, "State Bank", resp.BankName)
	})

	t.Run("non-approvable status is rejected", func(t *testing.T) {
		env := newPaymentEnv()
		inv := env.seedMatchingWorld("100") // still waiting_for_validation

		_, err := env.payments.Approve(ctx, ApproveRequest{InvoiceID: inv.ID.String()}, "")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidTransition))
	})

	t.Run("debit note invoice needs value and document", func(t *testing.T) {
		env := newPaymentEnv()
		inv := env.seedMatchingWorld("80")
		inv.Status = model.StatusDebitNoteApproval

		_, err := env.payments.Approve(ctx, ApproveRequest{InvoiceID: inv.ID.String()}, "")
		require.Error(t, err)

		inv.DebitNoteValue = decp("4956.00")
		_, err = env.payments.Approve(ctx, ApproveRequest{InvoiceID: inv.ID.String()}, "")
		require.Error(t, err) // document still missing

		inv.DebitNoteURL = "/docs/dn-0042.pdf"
		resp, err := env.payments.Approve(ctx, ApproveRequest{InvoiceID: inv.ID.String()}, "")
		require.NoError(t, err)
		assert.Equal(t, "4956.00", resp.PayableAmount)
	})

	t.Run("exception invoice forbids payable override", func(t *testing.T) {
		env := newPaymentEnv()
		inv := env.seedMatchingWorld("100")
		inv.Status = model.StatusExceptionApproval

		_, err := env.payments.Approve(ctx, ApproveRequest{
			InvoiceID:     inv.ID.String(),
			PayableAmount: strp("5000"),
		}, "")
		require.Error(t, err)

		resp, err := env.payments.Approve(ctx, ApproveRequest{InvoiceID: inv.ID.String()}, "")
		require.NoError(t, err)
		assert.Equal(t, "6195.00", resp.PayableAmount)
	})

	t.Run("re-approval after re-validation reuses the approval row", func(t *testing.T) {
		env := newPaymentEnv()
		inv := env.seedValidated("100")

		first, err := env.payments.Approve(ctx, ApproveRequest{InvoiceID: inv.ID.String()}, "")
		require.NoError(t, err)

		inv.Status = model.StatusValidated // back through edit + re-validation
		second, err := env.payments.Approve(ctx, ApproveRequest{InvoiceID: inv.ID.String()}, "")
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)
	})
}

func TestRecordPayment(t *testing.T) {
	ctx := context.Background()

	approve := func(t *testing.T, env *paymentEnv, payable string) *ApprovalResponse {
		t.Helper()
		inv := env.seedValidated("100")
		resp, err := env.payments.Approve(ctx, ApproveRequest{
			InvoiceID:     inv.ID.String(),
			PayableAmount: strp(payable),
		}, "")
		require.NoError(t, err)
		return resp
	}

	t.Run("partial then settling payment", func(t *testing.T) {
		env := newPaymentEnv()
		approval := approve(t, env, "1000")

		resp, err := env.payments.RecordPayment(ctx, approval.ID, RecordPaymentRequest{
			Amount: "400", PaymentType: "NEFT", Reference: "UTR-001",
		}, "")
		require.NoError(t, err)
		assert.Equal(t, model.PaymentStatusPartiallyPaid, resp.Status)
		assert.Equal(t, "600.00", resp.RemainingBalance)

		inv, err := env.invoiceRepo.FindByID(ctx, mustUUID(t, approval.InvoiceID))
		require.NoError(t, err)
		assert.Equal(t, model.StatusPartiallyPaid, inv.Status)

		resp, err = env.payments.RecordPayment(ctx, approval.ID, RecordPaymentRequest{
			Amount: "600", PaymentType: "NEFT", Reference: "UTR-002",
		}, "")
		require.NoError(t, err)
		assert.Equal(t, model.PaymentStatusPaymentDone, resp.Status)
		assert.Equal(t, "0.00", resp.RemainingBalance)
		require.Len(t, resp.Transactions, 2)

		inv, err = env.invoiceRepo.FindByID(ctx, mustUUID(t, approval.InvoiceID))
		require.NoError(t, err)
		assert.Equal(t, model.StatusPaid, inv.Status)
	})

	t.Run("overpayment is a balance violation", func(t *testing.T) {
		env := newPaymentEnv()
		approval := approve(t, env, "1000")

		_, err := env.payments.RecordPayment(ctx, approval.ID, RecordPaymentRequest{Amount: "1000.02"}, "")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrBalanceViolation))
	})

	t.Run("payment after settlement is a balance violation", func(t *testing.T) {
		env := newPaymentEnv()
		approval := approve(t, env, "1000")

		_, err := env.payments.RecordPayment(ctx, approval.ID, RecordPaymentRequest{Amount: "1000"}, "")
		require.NoError(t, err)

		_, err = env.payments.RecordPayment(ctx, approval.ID, RecordPaymentRequest{Amount: "1"}, "")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrBalanceViolation))
	})

	t.Run("non-positive amount is a balance violation", func(t *testing.T) {
		env := newPaymentEnv()
		approval := approve(t, env, "1000")

		_, err := env.payments.RecordPayment(ctx, approval.ID, RecordPaymentRequest{Amount: "0"}, "")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrBalanceViolation))
	})

	t.Run("rejected approval takes no payments", func(t *testing.T) {
		env := newPaymentEnv()
		approval := approve(t, env, "1000")

		_, err := env.service.Reject(ctx, approval.InvoiceID, "", "vendor dispute")
		require.NoError(t, err)

		_, err = env.payments.RecordPayment(ctx, approval.ID, RecordPaymentRequest{Amount: "100"}, "")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidTransition))
	})
}

func TestBulkApprove(t *testing.T) {
	ctx := context.Background()

	t.Run("items are processed independently", func(t *testing.T) {
		env := newPaymentEnv()
		env.supplierRepo.add(completeSupplier("Sri Balaji Steels"))
		env.poRepo.add(standardPO("PO-1001"))
		env.grnRepo.add("PO-1001", "100")

		good1 := env.invoiceRepo.add(matchingInvoice("PO-1001"))
		good1.Status = model.StatusValidated
		bad := env.invoiceRepo.add(matchingInvoice("PO-1001")) // still waiting
		good2 := env.invoiceRepo.add(matchingInvoice("PO-1001"))
		good2.Status = model.StatusValidated

		results := env.payments.BulkApprove(ctx, BulkApproveRequest{
			InvoiceIDs: []string{good1.ID.String(), bad.ID.String(), good2.ID.String()},
		}, "")

		require.Len(t, results, 3)
		assert.True(t, results[0].OK)
		assert.False(t, results[1].OK)
		assert.NotEmpty(t, results[1].Error)
		assert.True(t, results[2].OK)

		assert.Equal(t, model.StatusReadyForPayment, good1.Status)
		assert.Equal(t, model.StatusWaitingForValidation, bad.Status)
		assert.Equal(t, model.StatusReadyForPayment, good2.Status)
	})

	t.Run("bulk reject reports per-item outcomes", func(t *testing.T) {
		env := newPaymentEnv()
		env.supplierRepo.add(completeSupplier("Sri Balaji Steels"))
		env.poRepo.add(standardPO("PO-1001"))

		inv := env.invoiceRepo.add(matchingInvoice("PO-1001"))
		inv.Status = model.StatusValidated
		paid := env.invoiceRepo.add(matchingInvoice("PO-1001"))
		paid.Status = model.StatusPaid

		results := env.payments.BulkReject(ctx, BulkRejectRequest{
			InvoiceIDs: []string{inv.ID.String(), paid.ID.String()},
			Reason:     "quarter-end cutoff",
		}, "")

		require.Len(t, results, 2)
		assert.True(t, results[0].OK)
		assert.False(t, results[1].OK)
		assert.Equal(t, model.StatusRejected, inv.Status)
		assert.Equal(t, model.StatusPaid, paid.Status)
	})
}
