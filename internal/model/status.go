package model

// Invoice lifecycle status constants. Statuses are a closed set; every
// mutation goes through CanTransition rather than trusting caller strings.
const (
	StatusWaitingForValidation   = "waiting_for_validation"
	StatusValidated              = "validated"
	StatusDebitNoteApproval      = "debit_note_approval"
	StatusExceptionApproval      = "exception_approval"
	StatusWaitingForRevalidation = "waiting_for_re_validation"
	StatusReadyForPayment        = "ready_for_payment"
	StatusPartiallyPaid          = "partially_paid"
	StatusPaid                   = "paid"
	StatusRejected               = "rejected"
)

// PaymentApproval status constants.
const (
	PaymentStatusApproved        = "approved"
	PaymentStatusReadyForPayment = "ready_for_payment"
	PaymentStatusPartiallyPaid   = "partially_paid"
	PaymentStatusPaymentDone     = "payment_done"
	PaymentStatusRejected        = "rejected"
)

// invoiceTransitions is the full transition table for the invoice lifecycle.
// Terminal states (paid, rejected) have no outgoing edges.
var invoiceTransitions = map[string][]string{
	StatusWaitingForValidation: {
		StatusValidated,
		StatusDebitNoteApproval,
		StatusExceptionApproval,
		StatusRejected,
	},
	StatusValidated: {
		StatusReadyForPayment,
		StatusWaitingForRevalidation,
		StatusRejected,
	},
	StatusDebitNoteApproval: {
		StatusReadyForPayment,
		StatusWaitingForRevalidation,
		StatusRejected,
	},
	StatusExceptionApproval: {
		StatusReadyForPayment,
		StatusWaitingForRevalidation,
		StatusRejected,
	},
	StatusWaitingForRevalidation: {
		StatusValidated,
		StatusDebitNoteApproval,
		StatusExceptionApproval,
		StatusRejected,
	},
	StatusReadyForPayment: {
		StatusPartiallyPaid,
		StatusPaid,
		StatusRejected,
	},
	StatusPartiallyPaid: {
		StatusPartiallyPaid, // further partial payments
		StatusPaid,
	},
	StatusPaid:     {},
	StatusRejected: {},
}

// IsInvoiceStatus reports whether s is a member of the closed status set.
func IsInvoiceStatus(s string) bool {
	_, ok := invoiceTransitions[s]
	return ok
}

// CanTransition reports whether the invoice lifecycle permits moving from one
// status to another.
func CanTransition(from, to string) bool {
	for _, next := range invoiceTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsApprovable reports whether an invoice in this status may receive a
// payment approval.
func IsApprovable(status string) bool {
	switch status {
	case StatusValidated, StatusDebitNoteApproval, StatusExceptionApproval:
		return true
	}
	return false
}

// IsTerminal reports whether no further transitions leave this status.
func IsTerminal(status string) bool {
	return len(invoiceTransitions[status]) == 0
}
