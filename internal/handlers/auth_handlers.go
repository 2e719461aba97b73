package handlers

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"invoicely/internal/caching"
	"invoicely/internal/common"
	"invoicely/internal/models"
	"invoicely/internal/repositories"
	"invoicely/internal/services"
	"invoicely/internal/validation"
)

// Login attempts per email are counted in the cache; past the limit the
// caller gets the same generic rejection as bad credentials.
const (
	loginAttemptLimit  = 10
	loginAttemptWindow = 15 * time.Minute
)

// AuthHandlers handles registration, login and token refresh.
type AuthHandlers struct {
	userRepo    repositories.UserRepository
	authService services.AuthService
	cacheSvc    caching.CacheService
}

func NewAuthHandlers(userRepo repositories.UserRepository, authService services.AuthService, cacheSvc caching.CacheService) *AuthHandlers {
	return &AuthHandlers{
		userRepo:    userRepo,
		authService: authService,
		cacheSvc:    cacheSvc,
	}
}

// RegisterRequest is the POST /register payload.
type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// Register handles POST /register.
func (h *AuthHandlers) Register(c echo.Context) error {
	ctx := c.Request().Context()

	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return common.SendError(c, http.StatusBadRequest, "Invalid request format")
	}

	if result := validation.ValidateRegistration(req.Email, req.Password, req.Name); !result.IsValid {
		return common.SendValidationErrors(c, result.Errors)
	}

	email := validation.NormalizeEmail(req.Email)

	existing, err := h.userRepo.GetByEmail(ctx, email)
	if err != nil {
		log.Printf("register: email lookup failed: %v", err)
		return common.SendServerError(c, "An error occurred during registration")
	}
	if existing != nil {
		return common.SendError(c, http.StatusConflict, "User with this email already exists")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("register: password hashing failed: %v", err)
		return common.SendServerError(c, "An error occurred during registration")
	}

	user := &models.User{
		ID:           uuid.New(),
		Email:        email,
		Name:         strings.TrimSpace(req.Name),
		PasswordHash: string(hashed),
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}

	if err := h.userRepo.Create(ctx, user); err != nil {
		// The unique index is the arbiter for concurrent registrations.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return common.SendError(c, http.StatusConflict, "User with this email already exists")
		}
		log.Printf("register: failed to create user: %v", err)
		return common.SendServerError(c, "An error occurred during registration")
	}

	return common.SendMessage(c, http.StatusCreated, user, "Registration successful")
}

// LoginRequest is the POST /auth/login payload.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse bundles the token pair with the user profile.
type LoginResponse struct {
	models.TokenResponse
	User *models.User `json:"user"`
}

// Login handles POST /auth/login. Every rejection carries the same generic
// message so the response never reveals whether the account exists.
func (h *AuthHandlers) Login(c echo.Context) error {
	ctx := c.Request().Context()

	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return common.SendError(c, http.StatusBadRequest, "Invalid request format")
	}

	if result := validation.ValidateLogin(req.Email, req.Password); !result.IsValid {
		return common.SendValidationErrors(c, result.Errors)
	}

	email := validation.NormalizeEmail(req.Email)

	if limited, err := h.cacheSvc.IsRateLimited(ctx, "login:"+email, loginAttemptLimit, loginAttemptWindow); err == nil && limited {
		return common.SendError(c, http.StatusUnauthorized, "Invalid email or password")
	}

	user, err := h.userRepo.GetByEmail(ctx, email)
	if err != nil {
		log.Printf("login: email lookup failed: %v", err)
		return common.SendServerError(c, "An error occurred during login")
	}
	if user == nil {
		h.recordFailedAttempt(c, email)
		return common.SendError(c, http.StatusUnauthorized, "Invalid email or password")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		h.recordFailedAttempt(c, email)
		return common.SendError(c, http.StatusUnauthorized, "Invalid email or password")
	}

	tokens, err := h.authService.GenerateTokens(ctx, user.ID)
	if err != nil {
		log.Printf("login: token generation failed: %v", err)
		return common.SendServerError(c, "An error occurred during login")
	}

	return common.SendData(c, http.StatusOK, LoginResponse{TokenResponse: *tokens, User: user})
}

func (h *AuthHandlers) recordFailedAttempt(c echo.Context, email string) {
	if err := h.cacheSvc.IncrementRateLimit(c.Request().Context(), "login:"+email, loginAttemptWindow); err != nil {
		log.Printf("login: failed to record attempt: %v", err)
	}
}

// RefreshRequest is the POST /auth/refresh payload.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Refresh handles POST /auth/refresh.
func (h *AuthHandlers) Refresh(c echo.Context) error {
	ctx := c.Request().Context()

	var req RefreshRequest
	if err := c.Bind(&req); err != nil {
		return common.SendError(c, http.StatusBadRequest, "Invalid request format")
	}
	if req.RefreshToken == "" {
		return common.SendError(c, http.StatusBadRequest, "Refresh token is required")
	}

	tokens, err := h.authService.RefreshToken(ctx, req.RefreshToken)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			return common.SendError(c, http.StatusUnauthorized, "Invalid or expired refresh token")
		}
		log.Printf("refresh: %v", err)
		return common.SendServerError(c, "An error occurred during token refresh")
	}

	return common.SendData(c, http.StatusOK, tokens)
}

// Me handles GET /me.
func (h *AuthHandlers) Me(c echo.Context) error {
	ctx := c.Request().Context()

	userID, ok := common.GetUserIDFromContext(ctx)
	if !ok {
		return common.SendUnauthorizedError(c)
	}

	user, err := h.userRepo.GetByID(ctx, userID)
	if err != nil {
		log.Printf("me: user lookup failed: %v", err)
		return common.SendServerError(c, "Failed to fetch profile")
	}
	if user == nil {
		return common.SendNotFoundError(c, "User")
	}

	return common.SendData(c, http.StatusOK, user)
}
