package models

import (
	"time"

	"github.com/google/uuid"
)

// Invoice status values. Paid is terminal.
const (
	StatusDraft   = "draft"
	StatusPending = "pending"
	StatusPaid    = "paid"
)

// Address is embedded twice per invoice (sender and client). It has no
// identity of its own and is persisted as jsonb.
type Address struct {
	Street   string `json:"street"`
	City     string `json:"city"`
	PostCode string `json:"postCode"`
	Country  string `json:"country"`
}

type InvoiceItem struct {
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
	Total    float64 `json:"total"`
}

type Invoice struct {
	ID            uuid.UUID     `json:"id" db:"id"`
	InvoiceCode   string        `json:"invoiceId" db:"invoice_code"`
	UserID        uuid.UUID     `json:"userId" db:"user_id"`
	CreatedAt     time.Time     `json:"createdAt" db:"created_at"`
	PaymentDue    time.Time     `json:"paymentDue" db:"payment_due"`
	Description   string        `json:"description" db:"description"`
	PaymentTerms  int           `json:"paymentTerms" db:"payment_terms"`
	ClientName    string        `json:"clientName" db:"client_name"`
	ClientEmail   string        `json:"clientEmail" db:"client_email"`
	Status        string        `json:"status" db:"status"`
	SenderAddress Address       `json:"senderAddress" db:"sender_address"`
	ClientAddress Address       `json:"clientAddress" db:"client_address"`
	Items         []InvoiceItem `json:"items" db:"items"`
	Total         float64       `json:"total" db:"total"`
	UpdatedAt     time.Time     `json:"updatedAt" db:"updated_at"`
}

// CreateInvoiceInput is the POST /invoices payload. PaymentDue and item/
// invoice totals are never read from it; they are recomputed server-side.
type CreateInvoiceInput struct {
	Description   string        `json:"description"`
	PaymentTerms  int           `json:"paymentTerms"`
	ClientName    string        `json:"clientName"`
	ClientEmail   string        `json:"clientEmail"`
	Status        string        `json:"status"`
	SenderAddress Address       `json:"senderAddress"`
	ClientAddress Address       `json:"clientAddress"`
	Items         []InvoiceItem `json:"items"`
	CreatedAt     string        `json:"createdAt"`
}

// UpdateInvoiceInput is the PUT /invoices/:id payload. Nil fields keep the
// stored value; the merged result is re-validated as a whole.
type UpdateInvoiceInput struct {
	Description   *string       `json:"description"`
	PaymentTerms  *int          `json:"paymentTerms"`
	ClientName    *string       `json:"clientName"`
	ClientEmail   *string       `json:"clientEmail"`
	SenderAddress *Address      `json:"senderAddress"`
	ClientAddress *Address      `json:"clientAddress"`
	Items         []InvoiceItem `json:"items"`
}

// InvoiceSummary aggregates a user's invoices for the dashboard.
type InvoiceSummary struct {
	Draft       int     `json:"draft"`
	Pending     int     `json:"pending"`
	Paid        int     `json:"paid"`
	Total       int     `json:"total"`
	Outstanding float64 `json:"outstanding"`
}
