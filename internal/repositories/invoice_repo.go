package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"invoicely/internal/models"
)

// InvoiceRepository persists invoices scoped by owning user. Every query
// carries user_id in its WHERE clause, so an invoice owned by someone else
// is indistinguishable from one that does not exist. The conditional
// mutations (UpdateDraft, UpdateStatus) fold the status precondition into
// the UPDATE itself rather than doing a separate read-then-write.
type InvoiceRepository interface {
	Create(ctx context.Context, invoice *models.Invoice) error
	GetByID(ctx context.Context, userID, id uuid.UUID) (*models.Invoice, error)
	List(ctx context.Context, userID uuid.UUID, status string) ([]*models.Invoice, error)
	UpdateDraft(ctx context.Context, invoice *models.Invoice) (*models.Invoice, error)
	UpdateStatus(ctx context.Context, userID, id uuid.UUID, status string, allowedFrom []string) (*models.Invoice, error)
	Delete(ctx context.Context, userID, id uuid.UUID) (bool, error)
	Summary(ctx context.Context, userID uuid.UUID) (*models.InvoiceSummary, error)
}

const invoiceColumns = "id, invoice_code, user_id, created_at, payment_due, description, payment_terms, client_name, client_email, status, sender_address, client_address, items, total, updated_at"

type invoiceRepo struct {
	db Database
}

func NewInvoiceRepo(db Database) InvoiceRepository {
	return &invoiceRepo{db: db}
}

func scanInvoice(row pgx.Row) (*models.Invoice, error) {
	invoice := &models.Invoice{}
	err := row.Scan(
		&invoice.ID, &invoice.InvoiceCode, &invoice.UserID,
		&invoice.CreatedAt, &invoice.PaymentDue,
		&invoice.Description, &invoice.PaymentTerms,
		&invoice.ClientName, &invoice.ClientEmail, &invoice.Status,
		&invoice.SenderAddress, &invoice.ClientAddress, &invoice.Items,
		&invoice.Total, &invoice.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return invoice, nil
}

func (r *invoiceRepo) Create(ctx context.Context, invoice *models.Invoice) error {
	query := `
		INSERT INTO invoices (id, invoice_code, user_id, created_at, payment_due, description, payment_terms, client_name, client_email, status, sender_address, client_address, items, total, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, NOW())
	`
	_, err := r.db.Exec(ctx, query,
		invoice.ID, invoice.InvoiceCode, invoice.UserID,
		invoice.CreatedAt, invoice.PaymentDue,
		invoice.Description, invoice.PaymentTerms,
		invoice.ClientName, invoice.ClientEmail, invoice.Status,
		invoice.SenderAddress, invoice.ClientAddress, invoice.Items,
		invoice.Total,
	)
	return err
}

func (r *invoiceRepo) GetByID(ctx context.Context, userID, id uuid.UUID) (*models.Invoice, error) {
	query := `
		SELECT ` + invoiceColumns + `
		FROM invoices
		WHERE user_id = $1 AND id = $2
	`
	invoice, err := scanInvoice(r.db.QueryRow(ctx, query, userID, id))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return invoice, nil
}

func (r *invoiceRepo) List(ctx context.Context, userID uuid.UUID, status string) ([]*models.Invoice, error) {
	query := `
		SELECT ` + invoiceColumns + `
		FROM invoices
		WHERE user_id = $1
		ORDER BY created_at DESC, updated_at DESC
	`
	args := []any{userID}
	if status != "" {
		query = `
		SELECT ` + invoiceColumns + `
		FROM invoices
		WHERE user_id = $1 AND status = $2
		ORDER BY created_at DESC, updated_at DESC
	`
		args = append(args, status)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	invoices := []*models.Invoice{}
	for rows.Next() {
		invoice, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, invoice)
	}
	return invoices, rows.Err()
}

// UpdateDraft replaces the editable fields of a draft invoice. The
// status = 'draft' guard makes the edit-only-while-draft rule atomic; a
// nil result means no draft invoice with that id belongs to the user.
func (r *invoiceRepo) UpdateDraft(ctx context.Context, invoice *models.Invoice) (*models.Invoice, error) {
	query := `
		UPDATE invoices
		SET description = $1, payment_terms = $2, client_name = $3, client_email = $4, status = $5, sender_address = $6, client_address = $7, items = $8, total = $9, payment_due = $10, updated_at = NOW()
		WHERE user_id = $11 AND id = $12 AND status = 'draft'
		RETURNING ` + invoiceColumns + `
	`
	updated, err := scanInvoice(r.db.QueryRow(ctx, query,
		invoice.Description, invoice.PaymentTerms,
		invoice.ClientName, invoice.ClientEmail, invoice.Status,
		invoice.SenderAddress, invoice.ClientAddress, invoice.Items,
		invoice.Total, invoice.PaymentDue,
		invoice.UserID, invoice.ID,
	))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// UpdateStatus sets the status only if the current status is one of
// allowedFrom, as a single conditional update. A nil result means the
// invoice is missing, not owned, or not in an allowed predecessor state.
func (r *invoiceRepo) UpdateStatus(ctx context.Context, userID, id uuid.UUID, status string, allowedFrom []string) (*models.Invoice, error) {
	query := `
		UPDATE invoices
		SET status = $1, updated_at = NOW()
		WHERE user_id = $2 AND id = $3 AND status = ANY($4)
		RETURNING ` + invoiceColumns + `
	`
	updated, err := scanInvoice(r.db.QueryRow(ctx, query, status, userID, id, allowedFrom))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *invoiceRepo) Delete(ctx context.Context, userID, id uuid.UUID) (bool, error) {
	query := `DELETE FROM invoices WHERE user_id = $1 AND id = $2`
	tag, err := r.db.Exec(ctx, query, userID, id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *invoiceRepo) Summary(ctx context.Context, userID uuid.UUID) (*models.InvoiceSummary, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE status = 'draft'),
			COUNT(*) FILTER (WHERE status = 'pending'),
			COUNT(*) FILTER (WHERE status = 'paid'),
			COUNT(*),
			COALESCE(SUM(total) FILTER (WHERE status = 'pending'), 0)
		FROM invoices
		WHERE user_id = $1
	`
	summary := &models.InvoiceSummary{}
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&summary.Draft, &summary.Pending, &summary.Paid, &summary.Total, &summary.Outstanding,
	)
	if err != nil {
		return nil, err
	}
	return summary, nil
}
