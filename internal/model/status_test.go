package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	allowed := []struct{ from, to string }{
		{StatusWaitingForValidation, StatusValidated},
		{StatusWaitingForValidation, StatusDebitNoteApproval},
		{StatusWaitingForValidation, StatusExceptionApproval},
		{StatusWaitingForValidation, StatusRejected},
		{StatusValidated, StatusReadyForPayment},
		{StatusValidated, StatusWaitingForRevalidation},
		{StatusDebitNoteApproval, StatusReadyForPayment},
		{StatusExceptionApproval, StatusWaitingForRevalidation},
		{StatusWaitingForRevalidation, StatusValidated},
		{StatusWaitingForRevalidation, StatusDebitNoteApproval},
		{StatusReadyForPayment, StatusPartiallyPaid},
		{StatusReadyForPayment, StatusPaid},
		{StatusReadyForPayment, StatusRejected},
		{StatusPartiallyPaid, StatusPartiallyPaid},
		{StatusPartiallyPaid, StatusPaid},
	}
	for _, tc := range allowed {
		assert.True(t, CanTransition(tc.from, tc.to), "%s -> %s should be allowed", tc.from, tc.to)
	}

	forbidden := []struct{ from, to string }{
		{StatusWaitingForValidation, StatusReadyForPayment},
		{StatusWaitingForValidation, StatusPaid},
		{StatusValidated, StatusPaid},
		{StatusReadyForPayment, StatusValidated},
		{StatusPartiallyPaid, StatusRejected},
		{StatusPaid, StatusRejected},
		{StatusPaid, StatusWaitingForValidation},
		{StatusRejected, StatusWaitingForValidation},
		{StatusRejected, StatusValidated},
		{"bogus", StatusValidated},
	}
	for _, tc := range forbidden {
		assert.False(t, CanTransition(tc.from, tc.to), "%s -> %s should be forbidden", tc.from, tc.to)
	}
}

func TestIsTerminal(t *testing.T) {
	assert.True(t, IsTerminal(StatusPaid))
	assert.True(t, IsTerminal(StatusRejected))
	assert.False(t, IsTerminal(StatusWaitingForValidation))
	assert.False(t, IsTerminal(StatusPartiallyPaid))
}

func TestIsApprovable(t *testing.T) {
	assert.True(t, IsApprovable(StatusValidated))
	assert.True(t, IsApprovable(StatusDebitNoteApproval))
	assert.True(t, IsApprovable(StatusExceptionApproval))
	assert.False(t, IsApprovable(StatusWaitingForValidation))
	assert.False(t, IsApprovable(StatusReadyForPayment))
	assert.False(t, IsApprovable(StatusRejected))
}

func TestIsInvoiceStatus(t *testing.T) {
	assert.True(t, IsInvoiceStatus(StatusWaitingForRevalidation))
	assert.False(t, IsInvoiceStatus("pending"))
}
