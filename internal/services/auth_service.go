package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"invoicely/internal/caching"
	"invoicely/internal/models"
)

// AuthService issues and rotates tokens. Access tokens are HS256 JWTs;
// refresh tokens are opaque, stored hashed in the cache with their TTL.
type AuthService interface {
	GenerateTokens(ctx context.Context, userID uuid.UUID) (*models.TokenResponse, error)
	RefreshToken(ctx context.Context, refreshToken string) (*models.TokenResponse, error)
	RevokeToken(ctx context.Context, refreshToken string) error
}

type authService struct {
	cacheSvc   caching.CacheService
	jwtSecret  []byte
	tokenTTL   int // Access token TTL in seconds
	refreshTTL int // Refresh token TTL in seconds
}

func NewAuthService(cacheSvc caching.CacheService, jwtSecret string, tokenTTLSeconds, refreshTTLSeconds int) AuthService {
	return &authService{
		cacheSvc:   cacheSvc,
		jwtSecret:  []byte(jwtSecret),
		tokenTTL:   tokenTTLSeconds,
		refreshTTL: refreshTTLSeconds,
	}
}

func (s *authService) GenerateTokens(ctx context.Context, userID uuid.UUID) (*models.TokenResponse, error) {
	now := time.Now()

	claims := jwt.RegisteredClaims{
		Issuer:    "invoicely",
		Subject:   userID.String(),
		Audience:  jwt.ClaimStrings{"invoicely-api"},
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(s.tokenTTL) * time.Second)),
		IssuedAt:  jwt.NewNumericDate(now),
		ID:        uuid.NewString(),
	}

	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.jwtSecret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign JWT: %w", err)
	}

	refreshToken, err := generateSecureToken()
	if err != nil {
		return nil, err
	}
	refreshHash := hashToken(refreshToken)

	expiresAt := now.Unix() + int64(s.refreshTTL)
	value := fmt.Sprintf("%s:%d", userID, expiresAt)
	key := "refresh_token:" + refreshHash
	if err := s.cacheSvc.SetString(ctx, key, value, time.Duration(s.refreshTTL)*time.Second); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return &models.TokenResponse{
		AccessToken:  accessToken,
		TokenType:    "Bearer",
		ExpiresIn:    s.tokenTTL,
		RefreshToken: refreshToken,
	}, nil
}

// RefreshToken exchanges a valid refresh token for a new token pair and
// revokes the old one (single-use rotation).
func (s *authService) RefreshToken(ctx context.Context, refreshToken string) (*models.TokenResponse, error) {
	key := "refresh_token:" + hashToken(refreshToken)
	value, err := s.cacheSvc.GetString(ctx, key)
	if err != nil {
		return nil, err
	}
	if value == "" {
		return nil, ErrInvalidCredentials
	}

	parts := strings.SplitN(value, ":", 2)
	if len(parts) != 2 {
		return nil, ErrInvalidCredentials
	}
	userID, err := uuid.Parse(parts[0])
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	expiresAt, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || time.Now().Unix() >= expiresAt {
		return nil, ErrInvalidCredentials
	}

	if err := s.cacheSvc.Delete(ctx, key); err != nil {
		return nil, err
	}
	return s.GenerateTokens(ctx, userID)
}

func (s *authService) RevokeToken(ctx context.Context, refreshToken string) error {
	return s.cacheSvc.Delete(ctx, "refresh_token:"+hashToken(refreshToken))
}

func generateSecureToken() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

func hashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
