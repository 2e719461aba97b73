package common

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"invoicely/internal/validation"
)

type contextKey string

// UserIDKey carries the authenticated user's id. Handlers read it and pass
// it explicitly into every service call; nothing below the handler layer
// touches the request context for identity.
const UserIDKey contextKey = "user_id"

// GetUserIDFromContext extracts the acting user's id from the request context.
func GetUserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	userID, ok := ctx.Value(UserIDKey).(uuid.UUID)
	return userID, ok
}

// Envelope is the uniform response wrapper for every endpoint.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// SendData sends a successful response carrying a payload.
func SendData(c echo.Context, status int, data any) error {
	return c.JSON(status, Envelope{Success: true, Data: data})
}

// SendMessage sends a successful response with a payload and human message.
func SendMessage(c echo.Context, status int, data any, message string) error {
	return c.JSON(status, Envelope{Success: true, Data: data, Message: message})
}

// SendError sends a failed response with the given status and error message.
func SendError(c echo.Context, status int, message string) error {
	return c.JSON(status, Envelope{Success: false, Error: message})
}

// SendValidationErrors sends a 400 whose headline error is the first failed
// rule and whose data carries the full field-qualified list.
func SendValidationErrors(c echo.Context, errs []validation.FieldError) error {
	headline := "Validation failed"
	if len(errs) > 0 {
		headline = errs[0].Message
	}
	return c.JSON(http.StatusBadRequest, Envelope{Success: false, Error: headline, Data: errs})
}

// SendUnauthorizedError sends the generic 401 response.
func SendUnauthorizedError(c echo.Context) error {
	return SendError(c, http.StatusUnauthorized, "Unauthorized")
}

// SendNotFoundError sends a 404 for a missing (or not owned) resource.
func SendNotFoundError(c echo.Context, resource string) error {
	return SendError(c, http.StatusNotFound, resource+" not found")
}

// SendServerError sends a 500 with a generic message. Details stay in the
// server logs only.
func SendServerError(c echo.Context, message string) error {
	return SendError(c, http.StatusInternalServerError, message)
}
