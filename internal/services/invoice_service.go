package services

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"invoicely/internal/billing"
	"invoicely/internal/caching"
	"invoicely/internal/models"
	"invoicely/internal/repositories"
	"invoicely/internal/validation"
)

// invoiceCacheTTL bounds staleness of the detail cache; every mutation
// also invalidates eagerly.
const invoiceCacheTTL = 10 * time.Minute

// codeRetries bounds the regenerate-on-collision loop for invoice codes.
const codeRetries = 3

// InvoiceService is the invoice lifecycle controller. Every operation takes
// the acting user's id explicitly; identity is never read from ambient
// state. Status rules: an invoice is created as draft or pending, fully
// editable only while draft, and pending -> paid is the only transition
// after leaving draft. Deletion is allowed in any state.
type InvoiceService interface {
	Create(ctx context.Context, userID uuid.UUID, input *models.CreateInvoiceInput) (*models.Invoice, error)
	GetByID(ctx context.Context, userID, invoiceID uuid.UUID) (*models.Invoice, error)
	List(ctx context.Context, userID uuid.UUID, status string) ([]*models.Invoice, error)
	Update(ctx context.Context, userID, invoiceID uuid.UUID, input *models.UpdateInvoiceInput) (*models.Invoice, error)
	UpdateStatus(ctx context.Context, userID, invoiceID uuid.UUID, status string) (*models.Invoice, error)
	Delete(ctx context.Context, userID, invoiceID uuid.UUID) error
}

type invoiceService struct {
	invoiceRepo repositories.InvoiceRepository
	cacheSvc    caching.CacheService
}

func NewInvoiceService(invoiceRepo repositories.InvoiceRepository, cacheSvc caching.CacheService) InvoiceService {
	return &invoiceService{
		invoiceRepo: invoiceRepo,
		cacheSvc:    cacheSvc,
	}
}

// allowedPredecessors maps a requested status to the states it may be
// reached from. Paid is terminal; no target lists it as a predecessor.
var allowedPredecessors = map[string][]string{
	models.StatusDraft:   {models.StatusDraft},
	models.StatusPending: {models.StatusDraft, models.StatusPending},
	models.StatusPaid:    {models.StatusPending},
}

func parseCreatedAt(raw string) (time.Time, error) {
	if raw == "" {
		return billing.Date(time.Now().UTC()), nil
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		return billing.Date(t), nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, err
	}
	return billing.Date(t), nil
}

// withComputedTotals returns a copy of items with each total recomputed
// from quantity and price. Client-supplied totals are never trusted.
func withComputedTotals(items []models.InvoiceItem) []models.InvoiceItem {
	computed := make([]models.InvoiceItem, len(items))
	for i, item := range items {
		item.Name = strings.TrimSpace(item.Name)
		item.Total = billing.ItemTotal(item.Quantity, item.Price)
		computed[i] = item
	}
	return computed
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505" &&
		(constraint == "" || pgErr.ConstraintName == constraint)
}

func (s *invoiceService) Create(ctx context.Context, userID uuid.UUID, input *models.CreateInvoiceInput) (*models.Invoice, error) {
	if result := validation.ValidateInvoiceInput(input); !result.IsValid {
		return nil, &ValidationError{Result: result}
	}

	status := input.Status
	if status == "" {
		status = models.StatusDraft
	}
	if status != models.StatusDraft && status != models.StatusPending {
		return nil, ErrInvalidEntryStatus
	}

	createdAt, err := parseCreatedAt(input.CreatedAt)
	if err != nil {
		return nil, &ValidationError{Result: validation.Result{
			Errors: []validation.FieldError{{Field: "createdAt", Message: "Created date must be a valid ISO date"}},
		}}
	}

	items := withComputedTotals(input.Items)

	invoice := &models.Invoice{
		ID:            uuid.New(),
		UserID:        userID,
		CreatedAt:     createdAt,
		PaymentDue:    billing.ComputeDueDate(createdAt, input.PaymentTerms),
		Description:   strings.TrimSpace(input.Description),
		PaymentTerms:  input.PaymentTerms,
		ClientName:    strings.TrimSpace(input.ClientName),
		ClientEmail:   validation.NormalizeEmail(input.ClientEmail),
		Status:        status,
		SenderAddress: input.SenderAddress,
		ClientAddress: input.ClientAddress,
		Items:         items,
		Total:         billing.InvoiceTotal(items),
		UpdatedAt:     time.Now(),
	}

	// The code is random with no global coordination; the unique index is
	// the arbiter and a collision just means drawing again.
	for attempt := 0; attempt < codeRetries; attempt++ {
		invoice.InvoiceCode = billing.GenerateInvoiceCode()
		err = s.invoiceRepo.Create(ctx, invoice)
		if err == nil {
			break
		}
		if !isUniqueViolation(err, "invoices_invoice_code_key") {
			return nil, err
		}
		log.Printf("invoice code collision on %s, retrying", invoice.InvoiceCode)
	}
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, userID, invoice.ID)
	return invoice, nil
}

func (s *invoiceService) GetByID(ctx context.Context, userID, invoiceID uuid.UUID) (*models.Invoice, error) {
	if cached, err := s.cacheSvc.GetInvoice(ctx, userID, invoiceID); err == nil && cached != nil {
		return cached, nil
	}

	invoice, err := s.invoiceRepo.GetByID(ctx, userID, invoiceID)
	if err != nil {
		return nil, err
	}
	if invoice == nil {
		return nil, ErrInvoiceNotFound
	}

	if err := s.cacheSvc.SetInvoice(ctx, invoice, invoiceCacheTTL); err != nil {
		log.Printf("failed to cache invoice %s: %v", invoiceID, err)
	}
	return invoice, nil
}

func (s *invoiceService) List(ctx context.Context, userID uuid.UUID, status string) ([]*models.Invoice, error) {
	if status == "all" {
		status = ""
	}
	return s.invoiceRepo.List(ctx, userID, status)
}

// Update replaces the editable fields of a draft invoice. Absent input
// fields keep their stored values; the merged invoice is validated as a
// whole and totals and the due date are recomputed before the conditional
// write.
func (s *invoiceService) Update(ctx context.Context, userID, invoiceID uuid.UUID, input *models.UpdateInvoiceInput) (*models.Invoice, error) {
	existing, err := s.invoiceRepo.GetByID(ctx, userID, invoiceID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, ErrInvoiceNotFound
	}
	if existing.Status != models.StatusDraft {
		return nil, ErrOnlyDraftEditable
	}

	merged := *existing
	if input.Description != nil {
		merged.Description = *input.Description
	}
	if input.PaymentTerms != nil {
		merged.PaymentTerms = *input.PaymentTerms
	}
	if input.ClientName != nil {
		merged.ClientName = *input.ClientName
	}
	if input.ClientEmail != nil {
		merged.ClientEmail = *input.ClientEmail
	}
	if input.SenderAddress != nil {
		merged.SenderAddress = *input.SenderAddress
	}
	if input.ClientAddress != nil {
		merged.ClientAddress = *input.ClientAddress
	}
	if input.Items != nil {
		merged.Items = input.Items
	}

	candidate := &models.CreateInvoiceInput{
		Description:   merged.Description,
		PaymentTerms:  merged.PaymentTerms,
		ClientName:    merged.ClientName,
		ClientEmail:   merged.ClientEmail,
		Status:        merged.Status,
		SenderAddress: merged.SenderAddress,
		ClientAddress: merged.ClientAddress,
		Items:         merged.Items,
	}
	if result := validation.ValidateInvoiceInput(candidate); !result.IsValid {
		return nil, &ValidationError{Result: result}
	}

	merged.Description = strings.TrimSpace(merged.Description)
	merged.ClientName = strings.TrimSpace(merged.ClientName)
	merged.ClientEmail = validation.NormalizeEmail(merged.ClientEmail)
	merged.Items = withComputedTotals(merged.Items)
	merged.Total = billing.InvoiceTotal(merged.Items)
	merged.PaymentDue = billing.ComputeDueDate(merged.CreatedAt, merged.PaymentTerms)

	updated, err := s.invoiceRepo.UpdateDraft(ctx, &merged)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		// Lost a race since the read above: the invoice left draft or was
		// deleted. Re-read once to report the right failure.
		current, err := s.invoiceRepo.GetByID(ctx, userID, invoiceID)
		if err != nil {
			return nil, err
		}
		if current == nil {
			return nil, ErrInvoiceNotFound
		}
		return nil, ErrOnlyDraftEditable
	}

	s.invalidate(ctx, userID, invoiceID)
	return updated, nil
}

// UpdateStatus applies a status-only transition as a single conditional
// update against the allowed predecessor states.
func (s *invoiceService) UpdateStatus(ctx context.Context, userID, invoiceID uuid.UUID, status string) (*models.Invoice, error) {
	allowedFrom, ok := allowedPredecessors[status]
	if !ok {
		return nil, ErrInvalidTransition
	}

	updated, err := s.invoiceRepo.UpdateStatus(ctx, userID, invoiceID, status, allowedFrom)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		current, err := s.invoiceRepo.GetByID(ctx, userID, invoiceID)
		if err != nil {
			return nil, err
		}
		if current == nil {
			return nil, ErrInvoiceNotFound
		}
		if status == models.StatusPaid {
			return nil, ErrOnlyPendingPayable
		}
		return nil, ErrInvalidTransition
	}

	s.invalidate(ctx, userID, invoiceID)
	return updated, nil
}

func (s *invoiceService) Delete(ctx context.Context, userID, invoiceID uuid.UUID) error {
	deleted, err := s.invoiceRepo.Delete(ctx, userID, invoiceID)
	if err != nil {
		return err
	}
	if !deleted {
		return ErrInvoiceNotFound
	}

	s.invalidate(ctx, userID, invoiceID)
	return nil
}

// invalidate drops the cached detail and summary after any mutation.
func (s *invoiceService) invalidate(ctx context.Context, userID, invoiceID uuid.UUID) {
	if err := s.cacheSvc.DeleteInvoice(ctx, userID, invoiceID); err != nil {
		log.Printf("failed to invalidate invoice cache for %s: %v", invoiceID, err)
	}
	if err := s.cacheSvc.DeleteSummary(ctx, userID); err != nil {
		log.Printf("failed to invalidate summary cache for %s: %v", userID, err)
	}
}
