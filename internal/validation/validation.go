package validation

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"invoicely/internal/models"
)

// FieldError is a single field-qualified validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Result collects every failed rule in evaluation order. Callers surface
// Errors[0].Message as the headline error, so the order is part of the
// contract.
type Result struct {
	IsValid bool
	Errors  []FieldError
}

func newResult(errs []FieldError) Result {
	return Result{IsValid: len(errs) == 0, Errors: errs}
}

var emailPattern = regexp.MustCompile(`^\w+([.-]?\w+)*@\w+([.-]?\w+)*(\.\w{2,3})+$`)

// IsValidEmail reports whether the address matches the accepted pattern.
func IsValidEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// NormalizeEmail lower-cases and trims an address for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateAddress(addr models.Address, prefix string) []FieldError {
	var errs []FieldError
	if strings.TrimSpace(addr.Street) == "" {
		errs = append(errs, FieldError{prefix + ".street", "Street address is required"})
	}
	if strings.TrimSpace(addr.City) == "" {
		errs = append(errs, FieldError{prefix + ".city", "City is required"})
	}
	if strings.TrimSpace(addr.PostCode) == "" {
		errs = append(errs, FieldError{prefix + ".postCode", "Post code is required"})
	}
	if strings.TrimSpace(addr.Country) == "" {
		errs = append(errs, FieldError{prefix + ".country", "Country is required"})
	}
	return errs
}

func validateInvoiceItem(item models.InvoiceItem, index int) []FieldError {
	var errs []FieldError
	prefix := fmt.Sprintf("items[%d]", index)

	if strings.TrimSpace(item.Name) == "" {
		errs = append(errs, FieldError{prefix + ".name", "Item name is required"})
	}
	if item.Quantity < 1 {
		errs = append(errs, FieldError{prefix + ".quantity", "Quantity must be at least 1"})
	}
	if item.Price < 0 {
		errs = append(errs, FieldError{prefix + ".price", "Price must be 0 or greater"})
	}
	return errs
}

// ValidateInvoiceInput checks a candidate invoice against every field rule
// and collects all failures. Rules run in a fixed order: description,
// clientName, clientEmail, paymentTerms, senderAddress, clientAddress, items.
func ValidateInvoiceInput(input *models.CreateInvoiceInput) Result {
	var errs []FieldError

	if strings.TrimSpace(input.Description) == "" {
		errs = append(errs, FieldError{"description", "Description is required"})
	} else if utf8.RuneCountInString(input.Description) > 500 {
		errs = append(errs, FieldError{"description", "Description cannot exceed 500 characters"})
	}

	if strings.TrimSpace(input.ClientName) == "" {
		errs = append(errs, FieldError{"clientName", "Client name is required"})
	}

	if strings.TrimSpace(input.ClientEmail) == "" {
		errs = append(errs, FieldError{"clientEmail", "Client email is required"})
	} else if !IsValidEmail(strings.TrimSpace(input.ClientEmail)) {
		errs = append(errs, FieldError{"clientEmail", "Please provide a valid email address"})
	}

	switch input.PaymentTerms {
	case 1, 7, 14, 30:
	default:
		errs = append(errs, FieldError{"paymentTerms", "Payment terms must be 1, 7, 14, or 30 days"})
	}

	errs = append(errs, validateAddress(input.SenderAddress, "senderAddress")...)
	errs = append(errs, validateAddress(input.ClientAddress, "clientAddress")...)

	if len(input.Items) == 0 {
		errs = append(errs, FieldError{"items", "At least one item is required"})
	} else {
		for i, item := range input.Items {
			errs = append(errs, validateInvoiceItem(item, i)...)
		}
	}

	return newResult(errs)
}

// ValidateRegistration checks a registration payload.
func ValidateRegistration(email, password, name string) Result {
	var errs []FieldError

	if strings.TrimSpace(email) == "" {
		errs = append(errs, FieldError{"email", "Email is required"})
	} else if !IsValidEmail(strings.TrimSpace(email)) {
		errs = append(errs, FieldError{"email", "Please provide a valid email address"})
	}

	if len(password) < 6 {
		errs = append(errs, FieldError{"password", "Password must be at least 6 characters long"})
	}

	if utf8.RuneCountInString(strings.TrimSpace(name)) < 2 {
		errs = append(errs, FieldError{"name", "Name must be at least 2 characters long"})
	} else if utf8.RuneCountInString(name) > 50 {
		errs = append(errs, FieldError{"name", "Name cannot exceed 50 characters"})
	}

	return newResult(errs)
}

// ValidateLogin checks only presence and email shape. Password length is
// deliberately not checked here so login never leaks the password policy.
func ValidateLogin(email, password string) Result {
	var errs []FieldError

	if strings.TrimSpace(email) == "" {
		errs = append(errs, FieldError{"email", "Email is required"})
	} else if !IsValidEmail(strings.TrimSpace(email)) {
		errs = append(errs, FieldError{"email", "Please provide a valid email address"})
	}

	if password == "" {
		errs = append(errs, FieldError{"password", "Password is required"})
	}

	return newResult(errs)
}
