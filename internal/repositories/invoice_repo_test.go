package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"invoicely/internal/models"
)

type InvoiceRepoTestSuite struct {
	suite.Suite
	mock      pgxmock.PgxPoolIface
	repo      InvoiceRepository
	userID    uuid.UUID
	otherUser uuid.UUID
	invoiceID uuid.UUID
	context   context.Context
}

func (suite *InvoiceRepoTestSuite) SetupTest() {
	mock, err := pgxmock.NewPool()
	assert.NoError(suite.T(), err)
	suite.mock = mock

	suite.repo = NewInvoiceRepo(mock)
	suite.userID = uuid.New()
	suite.otherUser = uuid.New()
	suite.invoiceID = uuid.New()
	suite.context = context.Background()
}

func (suite *InvoiceRepoTestSuite) TearDownTest() {
	assert.NoError(suite.T(), suite.mock.ExpectationsWereMet())
	suite.mock.Close()
}

func TestInvoiceRepoTestSuite(t *testing.T) {
	suite.Run(t, new(InvoiceRepoTestSuite))
}

func (suite *InvoiceRepoTestSuite) sampleInvoice() *models.Invoice {
	createdAt := time.Date(2021, 8, 18, 0, 0, 0, 0, time.UTC)
	return &models.Invoice{
		ID:           suite.invoiceID,
		InvoiceCode:  "INV-RT3080",
		UserID:       suite.userID,
		CreatedAt:    createdAt,
		PaymentDue:   createdAt.AddDate(0, 0, 7),
		Description:  "Re-branding",
		PaymentTerms: 7,
		ClientName:   "Jensen Huang",
		ClientEmail:  "jensenh@mail.com",
		Status:       models.StatusPending,
		SenderAddress: models.Address{
			Street: "19 Union Terrace", City: "London", PostCode: "E1 3EZ", Country: "United Kingdom",
		},
		ClientAddress: models.Address{
			Street: "106 Kendell Street", City: "Sharrington", PostCode: "NR24 5WQ", Country: "United Kingdom",
		},
		Items:     []models.InvoiceItem{{Name: "Brand Guidelines", Quantity: 1, Price: 1800.9, Total: 1800.9}},
		Total:     1800.9,
		UpdatedAt: createdAt,
	}
}

func invoiceRows(invoice *models.Invoice) *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "invoice_code", "user_id", "created_at", "payment_due",
		"description", "payment_terms", "client_name", "client_email", "status",
		"sender_address", "client_address", "items", "total", "updated_at",
	}).AddRow(
		invoice.ID, invoice.InvoiceCode, invoice.UserID,
		invoice.CreatedAt, invoice.PaymentDue,
		invoice.Description, invoice.PaymentTerms,
		invoice.ClientName, invoice.ClientEmail, invoice.Status,
		invoice.SenderAddress, invoice.ClientAddress, invoice.Items,
		invoice.Total, invoice.UpdatedAt,
	)
}

func (suite *InvoiceRepoTestSuite) TestCreate_Success() {
	invoice := suite.sampleInvoice()

	suite.mock.ExpectExec(`INSERT INTO invoices \(id, invoice_code, user_id, created_at, payment_due, description, payment_terms, client_name, client_email, status, sender_address, client_address, items, total, updated_at\)`).
		WithArgs(
			invoice.ID, invoice.InvoiceCode, invoice.UserID,
			invoice.CreatedAt, invoice.PaymentDue,
			invoice.Description, invoice.PaymentTerms,
			invoice.ClientName, invoice.ClientEmail, invoice.Status,
			invoice.SenderAddress, invoice.ClientAddress, invoice.Items,
			invoice.Total,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := suite.repo.Create(suite.context, invoice)
	assert.NoError(suite.T(), err)
}

func (suite *InvoiceRepoTestSuite) TestGetByID_Success() {
	invoice := suite.sampleInvoice()

	suite.mock.ExpectQuery(`SELECT .+ FROM invoices\s+WHERE user_id = \$1 AND id = \$2`).
		WithArgs(suite.userID, suite.invoiceID).
		WillReturnRows(invoiceRows(invoice))

	found, err := suite.repo.GetByID(suite.context, suite.userID, suite.invoiceID)
	assert.NoError(suite.T(), err)
	assert.NotNil(suite.T(), found)
	assert.Equal(suite.T(), invoice.InvoiceCode, found.InvoiceCode)
	assert.Equal(suite.T(), invoice.Items, found.Items)
}

func (suite *InvoiceRepoTestSuite) TestGetByID_OtherUsersInvoiceIsInvisible() {
	suite.mock.ExpectQuery(`SELECT .+ FROM invoices\s+WHERE user_id = \$1 AND id = \$2`).
		WithArgs(suite.otherUser, suite.invoiceID).
		WillReturnRows(pgxmock.NewRows([]string{"id"}))

	found, err := suite.repo.GetByID(suite.context, suite.otherUser, suite.invoiceID)
	assert.NoError(suite.T(), err)
	assert.Nil(suite.T(), found)
}

func (suite *InvoiceRepoTestSuite) TestList_NoFilter() {
	invoice := suite.sampleInvoice()

	suite.mock.ExpectQuery(`SELECT .+ FROM invoices\s+WHERE user_id = \$1\s+ORDER BY created_at DESC, updated_at DESC`).
		WithArgs(suite.userID).
		WillReturnRows(invoiceRows(invoice))

	invoices, err := suite.repo.List(suite.context, suite.userID, "")
	assert.NoError(suite.T(), err)
	assert.Len(suite.T(), invoices, 1)
}

func (suite *InvoiceRepoTestSuite) TestList_StatusFilter() {
	suite.mock.ExpectQuery(`SELECT .+ FROM invoices\s+WHERE user_id = \$1 AND status = \$2\s+ORDER BY created_at DESC, updated_at DESC`).
		WithArgs(suite.userID, models.StatusPaid).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "invoice_code", "user_id", "created_at", "payment_due",
			"description", "payment_terms", "client_name", "client_email", "status",
			"sender_address", "client_address", "items", "total", "updated_at",
		}))

	invoices, err := suite.repo.List(suite.context, suite.userID, models.StatusPaid)
	assert.NoError(suite.T(), err)
	assert.NotNil(suite.T(), invoices)
	assert.Empty(suite.T(), invoices)
}

func (suite *InvoiceRepoTestSuite) TestUpdateDraft_Success() {
	invoice := suite.sampleInvoice()
	invoice.Status = models.StatusDraft

	suite.mock.ExpectQuery(`UPDATE invoices\s+SET description = \$1, payment_terms = \$2, client_name = \$3, client_email = \$4, status = \$5, sender_address = \$6, client_address = \$7, items = \$8, total = \$9, payment_due = \$10, updated_at = NOW\(\)\s+WHERE user_id = \$11 AND id = \$12 AND status = 'draft'`).
		WithArgs(
			invoice.Description, invoice.PaymentTerms,
			invoice.ClientName, invoice.ClientEmail, invoice.Status,
			invoice.SenderAddress, invoice.ClientAddress, invoice.Items,
			invoice.Total, invoice.PaymentDue,
			invoice.UserID, invoice.ID,
		).
		WillReturnRows(invoiceRows(invoice))

	updated, err := suite.repo.UpdateDraft(suite.context, invoice)
	assert.NoError(suite.T(), err)
	assert.NotNil(suite.T(), updated)
	assert.Equal(suite.T(), models.StatusDraft, updated.Status)
}

func (suite *InvoiceRepoTestSuite) TestUpdateDraft_NonDraftUpdatesNothing() {
	invoice := suite.sampleInvoice()
	invoice.Status = models.StatusDraft

	suite.mock.ExpectQuery(`UPDATE invoices\s+SET .+ WHERE user_id = \$11 AND id = \$12 AND status = 'draft'`).
		WithArgs(
			invoice.Description, invoice.PaymentTerms,
			invoice.ClientName, invoice.ClientEmail, invoice.Status,
			invoice.SenderAddress, invoice.ClientAddress, invoice.Items,
			invoice.Total, invoice.PaymentDue,
			invoice.UserID, invoice.ID,
		).
		WillReturnRows(pgxmock.NewRows([]string{"id"}))

	updated, err := suite.repo.UpdateDraft(suite.context, invoice)
	assert.NoError(suite.T(), err)
	assert.Nil(suite.T(), updated)
}

func (suite *InvoiceRepoTestSuite) TestUpdateStatus_AllowedPredecessor() {
	invoice := suite.sampleInvoice()
	invoice.Status = models.StatusPaid

	suite.mock.ExpectQuery(`UPDATE invoices\s+SET status = \$1, updated_at = NOW\(\)\s+WHERE user_id = \$2 AND id = \$3 AND status = ANY\(\$4\)`).
		WithArgs(models.StatusPaid, suite.userID, suite.invoiceID, []string{models.StatusPending}).
		WillReturnRows(invoiceRows(invoice))

	updated, err := suite.repo.UpdateStatus(suite.context, suite.userID, suite.invoiceID, models.StatusPaid, []string{models.StatusPending})
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), models.StatusPaid, updated.Status)
}

func (suite *InvoiceRepoTestSuite) TestUpdateStatus_DisallowedPredecessorUpdatesNothing() {
	suite.mock.ExpectQuery(`UPDATE invoices\s+SET status = \$1, updated_at = NOW\(\)\s+WHERE user_id = \$2 AND id = \$3 AND status = ANY\(\$4\)`).
		WithArgs(models.StatusPaid, suite.userID, suite.invoiceID, []string{models.StatusPending}).
		WillReturnRows(pgxmock.NewRows([]string{"id"}))

	updated, err := suite.repo.UpdateStatus(suite.context, suite.userID, suite.invoiceID, models.StatusPaid, []string{models.StatusPending})
	assert.NoError(suite.T(), err)
	assert.Nil(suite.T(), updated)
}

func (suite *InvoiceRepoTestSuite) TestDelete_Success() {
	suite.mock.ExpectExec(`DELETE FROM invoices WHERE user_id = \$1 AND id = \$2`).
		WithArgs(suite.userID, suite.invoiceID).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	deleted, err := suite.repo.Delete(suite.context, suite.userID, suite.invoiceID)
	assert.NoError(suite.T(), err)
	assert.True(suite.T(), deleted)
}

func (suite *InvoiceRepoTestSuite) TestDelete_MissingRowReportsFalse() {
	suite.mock.ExpectExec(`DELETE FROM invoices WHERE user_id = \$1 AND id = \$2`).
		WithArgs(suite.userID, suite.invoiceID).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	deleted, err := suite.repo.Delete(suite.context, suite.userID, suite.invoiceID)
	assert.NoError(suite.T(), err)
	assert.False(suite.T(), deleted)
}

func (suite *InvoiceRepoTestSuite) TestSummary_CountsAndOutstanding() {
	suite.mock.ExpectQuery(`SELECT\s+COUNT\(\*\) FILTER \(WHERE status = 'draft'\),\s+COUNT\(\*\) FILTER \(WHERE status = 'pending'\),\s+COUNT\(\*\) FILTER \(WHERE status = 'paid'\),\s+COUNT\(\*\),\s+COALESCE\(SUM\(total\) FILTER \(WHERE status = 'pending'\), 0\)\s+FROM invoices\s+WHERE user_id = \$1`).
		WithArgs(suite.userID).
		WillReturnRows(pgxmock.NewRows([]string{"draft", "pending", "paid", "total", "outstanding"}).
			AddRow(2, 3, 5, 10, 1250.5))

	summary, err := suite.repo.Summary(suite.context, suite.userID)
	assert.NoError(suite.T(), err)
	assert.Equal(suite.T(), 2, summary.Draft)
	assert.Equal(suite.T(), 3, summary.Pending)
	assert.Equal(suite.T(), 5, summary.Paid)
	assert.Equal(suite.T(), 10, summary.Total)
	assert.Equal(suite.T(), 1250.5, summary.Outstanding)
}

func (suite *InvoiceRepoTestSuite) TestSummary_QueryError() {
	suite.mock.ExpectQuery(`SELECT\s+COUNT\(\*\) FILTER`).
		WithArgs(suite.userID).
		WillReturnError(errors.New("connection refused"))

	summary, err := suite.repo.Summary(suite.context, suite.userID)
	assert.Error(suite.T(), err)
	assert.Nil(suite.T(), summary)
}
