package services

import (
	"errors"

	"invoicely/internal/validation"
)

// Sentinel errors classified by the handlers into status codes. Ownership
// failures map to ErrInvoiceNotFound on purpose: a caller must not be able
// to tell "someone else's invoice" from "no such invoice".
var (
	ErrInvoiceNotFound    = errors.New("invoice not found")
	ErrOnlyDraftEditable  = errors.New("only draft invoices can be edited")
	ErrOnlyPendingPayable = errors.New("only pending invoices can be marked as paid")
	ErrInvalidTransition  = errors.New("invalid status transition")
	ErrInvalidEntryStatus = errors.New("an invoice can only be created as draft or pending")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

// ValidationError carries the full ordered rule-failure list out of the
// service layer.
type ValidationError struct {
	Result validation.Result
}

func (e *ValidationError) Error() string {
	if len(e.Result.Errors) > 0 {
		return e.Result.Errors[0].Message
	}
	return "validation failed"
}
