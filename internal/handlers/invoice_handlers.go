package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jung-kurt/gofpdf"
	"github.com/labstack/echo/v4"

	"invoicely/internal/analytics"
	"invoicely/internal/common"
	"invoicely/internal/models"
	"invoicely/internal/services"
)

const pdfBucket = "invoices"

// InvoiceHandlers handles the /invoices HTTP surface.
type InvoiceHandlers struct {
	invoiceService services.InvoiceService
	analyticsSvc   *analytics.AnalyticsService
	storageSvc     services.StorageService
}

func NewInvoiceHandlers(invoiceService services.InvoiceService, analyticsSvc *analytics.AnalyticsService, storageSvc services.StorageService) *InvoiceHandlers {
	return &InvoiceHandlers{
		invoiceService: invoiceService,
		analyticsSvc:   analyticsSvc,
		storageSvc:     storageSvc,
	}
}

// sendServiceError maps service-layer failures onto the envelope. Unknown
// errors become a generic 500; details stay in the logs.
func sendServiceError(c echo.Context, err error, operation string) error {
	var validationErr *services.ValidationError
	switch {
	case errors.As(err, &validationErr):
		return common.SendValidationErrors(c, validationErr.Result.Errors)
	case errors.Is(err, services.ErrInvoiceNotFound):
		return common.SendNotFoundError(c, "Invoice")
	case errors.Is(err, services.ErrOnlyDraftEditable),
		errors.Is(err, services.ErrOnlyPendingPayable),
		errors.Is(err, services.ErrInvalidTransition),
		errors.Is(err, services.ErrInvalidEntryStatus):
		return common.SendError(c, http.StatusBadRequest, err.Error())
	default:
		log.Printf("%s: %v", operation, err)
		return common.SendServerError(c, "Failed to "+operation)
	}
}

// CreateInvoice handles POST /invoices.
func (h *InvoiceHandlers) CreateInvoice(c echo.Context) error {
	ctx := c.Request().Context()

	userID, ok := common.GetUserIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	var input models.CreateInvoiceInput
	if err := c.Bind(&input); err != nil {
		return common.SendError(c, http.StatusBadRequest, "Invalid request format")
	}

	invoice, err := h.invoiceService.Create(ctx, userID, &input)
	if err != nil {
		return sendServiceError(c, err, "create invoice")
	}

	return common.SendMessage(c, http.StatusCreated, invoice, "Invoice created successfully")
}

// ListInvoices handles GET /invoices with an optional status filter.
func (h *InvoiceHandlers) ListInvoices(c echo.Context) error {
	ctx := c.Request().Context()

	userID, ok := common.GetUserIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	status := c.QueryParam("status")
	switch status {
	case "", "all", models.StatusDraft, models.StatusPending, models.StatusPaid:
	default:
		return common.SendError(c, http.StatusBadRequest, "Status must be draft, pending, or paid")
	}

	invoices, err := h.invoiceService.List(ctx, userID, status)
	if err != nil {
		return sendServiceError(c, err, "fetch invoices")
	}

	return common.SendData(c, http.StatusOK, invoices)
}

// GetInvoice handles GET /invoices/:id.
func (h *InvoiceHandlers) GetInvoice(c echo.Context) error {
	ctx := c.Request().Context()

	userID, ok := common.GetUserIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	invoiceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return common.SendNotFoundError(c, "Invoice")
	}

	invoice, err := h.invoiceService.GetByID(ctx, userID, invoiceID)
	if err != nil {
		return sendServiceError(c, err, "fetch invoice")
	}

	return common.SendData(c, http.StatusOK, invoice)
}

// UpdateInvoice handles PUT /invoices/:id (full edit, drafts only).
func (h *InvoiceHandlers) UpdateInvoice(c echo.Context) error {
	ctx := c.Request().Context()

	userID, ok := common.GetUserIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	invoiceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return common.SendNotFoundError(c, "Invoice")
	}

	var input models.UpdateInvoiceInput
	if err := c.Bind(&input); err != nil {
		return common.SendError(c, http.StatusBadRequest, "Invalid request format")
	}

	invoice, err := h.invoiceService.Update(ctx, userID, invoiceID, &input)
	if err != nil {
		return sendServiceError(c, err, "update invoice")
	}

	return common.SendMessage(c, http.StatusOK, invoice, "Invoice updated successfully")
}

// UpdateInvoiceStatus handles PATCH /invoices/:id with a {status} body.
func (h *InvoiceHandlers) UpdateInvoiceStatus(c echo.Context) error {
	ctx := c.Request().Context()

	userID, ok := common.GetUserIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	invoiceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return common.SendNotFoundError(c, "Invoice")
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := c.Bind(&req); err != nil {
		return common.SendError(c, http.StatusBadRequest, "Invalid request format")
	}

	invoice, err := h.invoiceService.UpdateStatus(ctx, userID, invoiceID, req.Status)
	if err != nil {
		return sendServiceError(c, err, "update invoice status")
	}

	return common.SendMessage(c, http.StatusOK, invoice, "Invoice status updated successfully")
}

// DeleteInvoice handles DELETE /invoices/:id.
func (h *InvoiceHandlers) DeleteInvoice(c echo.Context) error {
	ctx := c.Request().Context()

	userID, ok := common.GetUserIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	invoiceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return common.SendNotFoundError(c, "Invoice")
	}

	if err := h.invoiceService.Delete(ctx, userID, invoiceID); err != nil {
		return sendServiceError(c, err, "delete invoice")
	}

	return common.SendMessage(c, http.StatusOK, nil, "Invoice deleted successfully")
}

// GetSummary handles GET /invoices/summary.
func (h *InvoiceHandlers) GetSummary(c echo.Context) error {
	ctx := c.Request().Context()

	userID, ok := common.GetUserIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	summary, err := h.analyticsSvc.GetUserSummary(ctx, userID)
	if err != nil {
		return sendServiceError(c, err, "fetch invoice summary")
	}

	return common.SendData(c, http.StatusOK, summary)
}

// GenerateInvoicePDF handles POST /invoices/:id/pdf. The rendered document
// is uploaded to object storage and the caller receives a short-lived
// download URL.
func (h *InvoiceHandlers) GenerateInvoicePDF(c echo.Context) error {
	ctx := c.Request().Context()

	userID, ok := common.GetUserIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	invoiceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return common.SendNotFoundError(c, "Invoice")
	}

	invoice, err := h.invoiceService.GetByID(ctx, userID, invoiceID)
	if err != nil {
		return sendServiceError(c, err, "fetch invoice")
	}

	var buf bytes.Buffer
	if err := renderInvoicePDF(invoice, &buf); err != nil {
		log.Printf("pdf render failed for invoice %s: %v", invoiceID, err)
		return common.SendServerError(c, "Failed to generate invoice PDF")
	}

	if err := h.storageSvc.EnsureBucketExists(ctx, pdfBucket); err != nil {
		log.Printf("pdf bucket check failed: %v", err)
		return common.SendServerError(c, "Failed to generate invoice PDF")
	}

	objectName := fmt.Sprintf("%s/%s.pdf", userID, invoice.InvoiceCode)
	if err := h.storageSvc.UploadDocument(ctx, pdfBucket, objectName, &buf, int64(buf.Len()), "application/pdf"); err != nil {
		log.Printf("pdf upload failed for invoice %s: %v", invoiceID, err)
		return common.SendServerError(c, "Failed to generate invoice PDF")
	}

	url, err := h.storageSvc.GetPresignedURL(ctx, pdfBucket, objectName, 15*time.Minute)
	if err != nil {
		log.Printf("presign failed for invoice %s: %v", invoiceID, err)
		return common.SendServerError(c, "Failed to generate invoice PDF")
	}

	return common.SendMessage(c, http.StatusOK, map[string]string{"url": url}, "Invoice PDF generated successfully")
}

func renderInvoicePDF(invoice *models.Invoice, buf *bytes.Buffer) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 18)
	pdf.Cell(100, 10, invoice.InvoiceCode)
	pdf.Ln(8)
	pdf.SetFont("Arial", "", 11)
	pdf.Cell(100, 8, invoice.Description)
	pdf.Ln(12)

	pdf.Cell(50, 6, "Invoice date: "+invoice.CreatedAt.Format("02 Jan 2006"))
	pdf.Ln(6)
	pdf.Cell(50, 6, "Payment due: "+invoice.PaymentDue.Format("02 Jan 2006"))
	pdf.Ln(6)
	pdf.Cell(50, 6, "Status: "+invoice.Status)
	pdf.Ln(12)

	pdf.SetFont("Arial", "B", 11)
	pdf.Cell(95, 6, "Bill from")
	pdf.Cell(95, 6, "Bill to")
	pdf.Ln(6)
	pdf.SetFont("Arial", "", 10)
	sender := invoice.SenderAddress
	client := invoice.ClientAddress
	pdf.Cell(95, 5, sender.Street)
	pdf.Cell(95, 5, invoice.ClientName)
	pdf.Ln(5)
	pdf.Cell(95, 5, fmt.Sprintf("%s, %s", sender.City, sender.PostCode))
	pdf.Cell(95, 5, client.Street)
	pdf.Ln(5)
	pdf.Cell(95, 5, sender.Country)
	pdf.Cell(95, 5, fmt.Sprintf("%s, %s, %s", client.City, client.PostCode, client.Country))
	pdf.Ln(5)
	pdf.Cell(95, 5, "")
	pdf.Cell(95, 5, invoice.ClientEmail)
	pdf.Ln(12)

	pdf.SetFont("Arial", "B", 10)
	pdf.Cell(80, 7, "Item")
	pdf.Cell(25, 7, "Qty")
	pdf.Cell(40, 7, "Price")
	pdf.Cell(40, 7, "Total")
	pdf.Ln(7)
	pdf.SetFont("Arial", "", 10)
	for _, item := range invoice.Items {
		pdf.Cell(80, 6, item.Name)
		pdf.Cell(25, 6, fmt.Sprintf("%d", item.Quantity))
		pdf.Cell(40, 6, fmt.Sprintf("%.2f", item.Price))
		pdf.Cell(40, 6, fmt.Sprintf("%.2f", item.Total))
		pdf.Ln(6)
	}

	pdf.Ln(4)
	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(145, 8, "Amount due")
	pdf.Cell(40, 8, fmt.Sprintf("%.2f", invoice.Total))

	return pdf.Output(buf)
}
