package middleware

import (
	"context"
	"net/http"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	"invoicely/internal/common"
)

// JWTConfig builds the echo-jwt configuration for the protected route
// group. On success the token subject is parsed into a uuid and stored in
// the request context; handlers pass it explicitly into the services.
func JWTConfig(jwtSecret string) echojwt.Config {
	return echojwt.Config{
		SigningKey: []byte(jwtSecret),
		SuccessHandler: func(c echo.Context) {
			token, ok := c.Get("user").(*jwt.Token)
			if !ok {
				return
			}
			sub, err := token.Claims.GetSubject()
			if err != nil {
				return
			}
			userID, err := uuid.Parse(sub)
			if err != nil {
				return
			}
			ctx := context.WithValue(c.Request().Context(), common.UserIDKey, userID)
			c.SetRequest(c.Request().WithContext(ctx))
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return common.SendError(c, http.StatusUnauthorized, "Unauthorized")
		},
	}
}
