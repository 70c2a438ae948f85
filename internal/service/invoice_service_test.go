package service

import (
	"context"
	"errors"
	"testing"

	"backend/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type invoiceEnv struct {
	*validationEnv
	paymentRepo *fakePaymentRepo
	auditRepo   *fakeAuditRepo
	service     InvoiceService
}

func newInvoiceEnv(scope string) *invoiceEnv {
	venv := newValidationEnv()
	paymentRepo := newFakePaymentRepo()
	auditRepo := &fakeAuditRepo{}
	validator := venv.service(scope)
	svc := NewInvoiceService(venv.invoiceRepo, paymentRepo, auditRepo, validator, nil, fakeTxManager{}, nil)
	return &invoiceEnv{
		validationEnv: venv,
		paymentRepo:   paymentRepo,
		auditRepo:     auditRepo,
		service:       svc,
	}
}

func (e *invoiceEnv) seedMatchingWorld(grnQty string) *model.Invoice {
	e.supplierRepo.add(completeSupplier("Sri Balaji Steels"))
	e.poRepo.add(standardPO("PO-1001"))
	e.grnRepo.add("PO-1001", grnQty)
	return e.invoiceRepo.add(matchingInvoice("PO-1001"))
}

func TestInvoiceValidate(t *testing.T) {
	ctx := context.Background()

	t.Run("matching invoice routes to validated", func(t *testing.T) {
		env := newInvoiceEnv("")
		inv := env.seedMatchingWorld("100")

		outcome, err := env.service.Validate(ctx, inv.ID.String())
		require.NoError(t, err)
		assert.True(t, outcome.Verdict.Overall.Valid)
		assert.Equal(t, model.StatusValidated, outcome.Status)
		assert.Equal(t, model.StatusValidated, inv.Status)
		assert.Contains(t, env.auditRepo.actions(), model.ActionValidateInvoice)
	})

	t.Run("under-delivery routes to debit note approval", func(t *testing.T) {
		env := newInvoiceEnv("")
		inv := env.seedMatchingWorld("80")

		outcome, err := env.service.Validate(ctx, inv.ID.String())
		require.NoError(t, err)
		assert.Equal(t, model.StatusDebitNoteApproval, outcome.Status)
	})

	t.Run("fulfilled PO routes to exception approval", func(t *testing.T) {
		env := newInvoiceEnv("")
		inv := env.seedMatchingWorld("100")
		po, _ := env.poRepo.FindByNumber(ctx, "PO-1001")
		po.Status = model.POStatusFulfilled

		outcome, err := env.service.Validate(ctx, inv.ID.String())
		require.NoError(t, err)
		assert.Equal(t, model.StatusExceptionApproval, outcome.Status)
	})

	t.Run("failed verdict leaves the invoice in place", func(t *testing.T) {
		env := newInvoiceEnv("")
		inv := env.seedMatchingWorld("100")
		inv.SupplierName = "Unknown Trader"

		outcome, err := env.service.Validate(ctx, inv.ID.String())
		require.NoError(t, err)
		assert.False(t, outcome.Verdict.Overall.Valid)
		assert.Equal(t, model.StatusWaitingForValidation, outcome.Status)
		assert.Equal(t, model.StatusWaitingForValidation, inv.Status)
	})

	t.Run("validate outside waiting states is rejected", func(t *testing.T) {
		env := newInvoiceEnv("")
		inv := env.seedMatchingWorld("100")
		inv.Status = model.StatusReadyForPayment

		_, err := env.service.Validate(ctx, inv.ID.String())
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidTransition))
	})

	t.Run("unknown invoice id is not found", func(t *testing.T) {
		env := newInvoiceEnv("")
		_, err := env.service.Validate(ctx, "7b7d81b4-3a1e-4f7b-9f6a-111111111111")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrNotFound))
	})
}

func TestInvoiceUpdate(t *testing.T) {
	ctx := context.Background()

	t.Run("editing a validated invoice resets it to re-validation", func(t *testing.T) {
		env := newInvoiceEnv("")
		inv := env.seedMatchingWorld("100")
		inv.Status = model.StatusValidated

		updated, err := env.service.Update(ctx, inv.ID.String(), UpdateInvoiceRequest{
			PONumber: strp("PO-2002"),
		})
		require.NoError(t, err)
		assert.Equal(t, model.StatusWaitingForRevalidation, updated.Status)
		require.NotNil(t, updated.PONumber)
		assert.Equal(t, "PO-2002", *updated.PONumber)
	})

	t.Run("editing while waiting keeps the status", func(t *testing.T) {
		env := newInvoiceEnv("")
		inv := env.seedMatchingWorld("100")

		updated, err := env.service.Update(ctx, inv.ID.String(), UpdateInvoiceRequest{
			InvoiceNumber: strp("INV-0099"),
		})
		require.NoError(t, err)
		assert.Equal(t, model.StatusWaitingForValidation, updated.Status)
		assert.Equal(t, "INV-0099", updated.InvoiceNumber)
	})

	t.Run("editing a paid invoice is rejected", func(t *testing.T) {
		env := newInvoiceEnv("")
		inv := env.seedMatchingWorld("100")
		inv.Status = model.StatusPaid

		_, err := env.service.Update(ctx, inv.ID.String(), UpdateInvoiceRequest{
			InvoiceNumber: strp("INV-0099"),
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidTransition))
	})

	t.Run("replacing lines renumbers them", func(t *testing.T) {
		env := newInvoiceEnv("")
		inv := env.seedMatchingWorld("100")

		updated, err := env.service.Update(ctx, inv.ID.String(), UpdateInvoiceRequest{
			Lines: []InvoiceLineRequest{
				{ItemName: "Angle 50x50", BilledQty: strp("40"), Count: strp("40"), Rate: strp("61")},
				{ItemName: "Flat 40x6", BilledQty: strp("25"), Count: strp("25"), Rate: strp("58")},
			},
		})
		require.NoError(t, err)
		require.Len(t, updated.Lines, 2)
		assert.Equal(t, 1, updated.Lines[0].SeqNo)
		assert.Equal(t, 2, updated.Lines[1].SeqNo)
		assert.Equal(t, "Angle 50x50", updated.Lines[0].ItemName)
	})
}

func TestAttachDebitNote(t *testing.T) {
	ctx := context.Background()

	t.Run("stores value and document on a debit note invoice", func(t *testing.T) {
		env := newInvoiceEnv("")
		inv := env.seedMatchingWorld("80")
		inv.Status = model.StatusDebitNoteApproval

		updated, err := env.service.AttachDebitNote(ctx, inv.ID.String(), DebitNoteRequest{
			Value:       "4956.00",
			DocumentURL: "/docs/debit-notes/dn-0042.pdf",
		})
		require.NoError(t, err)
		require.NotNil(t, updated.DebitNoteValue)
		assert.True(t, updated.DebitNoteValue.Equal(decimal.RequireFromString("4956.00")))
		assert.Equal(t, "/docs/debit-notes/dn-0042.pdf", updated.DebitNoteURL)
	})

	t.Run("rejected outside debit note approval", func(t *testing.T) {
		env := newInvoiceEnv("")
		inv := env.seedMatchingWorld("100")

		_, err := env.service.AttachDebitNote(ctx, inv.ID.String(), DebitNoteRequest{
			Value:       "100",
			DocumentURL: "/docs/dn.pdf",
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidTransition))
	})

	t.Run("non-positive value rejected", func(t *testing.T) {
		env := newInvoiceEnv("")
		inv := env.seedMatchingWorld("80")
		inv.Status = model.StatusDebitNoteApproval

		_, err := env.service.AttachDebitNote(ctx, inv.ID.String(), DebitNoteRequest{
			Value:       "0",
			DocumentURL: "/docs/dn.pdf",
		})
		require.Error(t, err)
	})
}

func TestInvoiceReject(t *testing.T) {
	ctx := context.Background()

	t.Run("empty reason is stored as empty string", func(t *testing.T) {
		env := newInvoiceEnv("")
		inv := env.seedMatchingWorld("100")
		inv.Status = model.StatusReadyForPayment

		rejected, err := env.service.Reject(ctx, inv.ID.String(), "", "")
		require.NoError(t, err)
		assert.Equal(t, model.StatusRejected, rejected.Status)
		require.NotNil(t, rejected.RejectionReason)
		assert.Equal(t, "", *rejected.RejectionReason)
	})

	t.Run("rejecting cascades to the payment approval", func(t *testing.T) {
		env := newInvoiceEnv("")
		inv := env.seedMatchingWorld("100")
		inv.Status = model.StatusReadyForPayment

		approval := &model.PaymentApproval{
			InvoiceID:     inv.ID,
			PayableAmount: decimal.RequireFromString("6195.00"),
			Status:        model.PaymentStatusReadyForPayment,
		}
		require.NoError(t, env.paymentRepo.CreateApproval(ctx, approval))

		_, err := env.service.Reject(ctx, inv.ID.String(), "", "duplicate billing")
		require.NoError(t, err)
		assert.Equal(t, model.PaymentStatusRejected, approval.Status)
	})

	t.Run("terminal states cannot be rejected", func(t *testing.T) {
		env := newInvoiceEnv("")
		inv := env.seedMatchingWorld("100")
		inv.Status = model.StatusPaid

		_, err := env.service.Reject(ctx, inv.ID.String(), "", "late")
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidTransition))
	})
}
