// Package billing holds the derived-field computations for invoices:
// invoice codes, payment due dates, and money totals. Totals go through
// shopspring/decimal so two-decimal rounding is exact at the .005 boundary
// (round half up), which float arithmetic cannot guarantee.
package billing

import (
	"math/rand/v2"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"invoicely/internal/models"
)

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateInvoiceCode returns "INV-" plus six characters drawn uniformly
// from [A-Z0-9]. Uniqueness is best-effort; the storage layer carries a
// unique index and callers retry on conflict.
func GenerateInvoiceCode() string {
	var b strings.Builder
	b.WriteString("INV-")
	for i := 0; i < 6; i++ {
		b.WriteByte(codeAlphabet[rand.IntN(len(codeAlphabet))])
	}
	return b.String()
}

// Date truncates a timestamp to its date in UTC. All invoice dates are
// date-only.
func Date(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ComputeDueDate adds termDays calendar days to createdAt. AddDate rolls
// month and year boundaries correctly, which a fixed 86400-second add
// would not.
func ComputeDueDate(createdAt time.Time, termDays int) time.Time {
	return Date(createdAt).AddDate(0, 0, termDays)
}

// ItemTotal is quantity * price rounded to two decimals.
func ItemTotal(quantity int, price float64) float64 {
	total := decimal.NewFromFloat(price).Mul(decimal.NewFromInt(int64(quantity)))
	return total.Round(2).InexactFloat64()
}

// InvoiceTotal sums item totals at two-decimal precision.
func InvoiceTotal(items []models.InvoiceItem) float64 {
	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(decimal.NewFromFloat(item.Total))
	}
	return sum.Round(2).InexactFloat64()
}
