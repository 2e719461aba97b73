package caching

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"invoicely/internal/models"
)

// CacheService fronts Redis for invoice details, per-user dashboard
// summaries, refresh-token storage and login rate limiting. Cache misses
// are reported as (nil, nil); callers fall through to the database.
type CacheService interface {
	GetInvoice(ctx context.Context, userID, invoiceID uuid.UUID) (*models.Invoice, error)
	SetInvoice(ctx context.Context, invoice *models.Invoice, ttl time.Duration) error
	DeleteInvoice(ctx context.Context, userID, invoiceID uuid.UUID) error

	GetSummary(ctx context.Context, userID uuid.UUID) (*models.InvoiceSummary, error)
	SetSummary(ctx context.Context, userID uuid.UUID, summary *models.InvoiceSummary, ttl time.Duration) error
	DeleteSummary(ctx context.Context, userID uuid.UUID) error

	// Generic string operations for token management
	SetString(ctx context.Context, key, value string, ttl time.Duration) error
	GetString(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error

	IsRateLimited(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
	IncrementRateLimit(ctx context.Context, key string, window time.Duration) error

	Ping(ctx context.Context) error
}

type redisCacheService struct {
	client *redis.Client
}

// NewRedisCacheService connects to Redis. A failed ping is logged but not
// fatal; the service degrades to database-only reads.
func NewRedisCacheService(addr, password string, db int) CacheService {
	parsedAddr := addr
	if hostPort := strings.TrimPrefix(strings.TrimPrefix(addr, "redis://"), "rediss://"); hostPort != addr {
		parsedAddr = hostPort
	}

	client := redis.NewClient(&redis.Options{
		Addr:     parsedAddr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		log.Printf("WARN: Redis ping failed on initialization: %v (address: %s)", err, parsedAddr)
	}

	return &redisCacheService{client: client}
}

func invoiceKey(userID, invoiceID uuid.UUID) string {
	return fmt.Sprintf("invoice:%s:%s", userID, invoiceID)
}

func summaryKey(userID uuid.UUID) string {
	return fmt.Sprintf("invoice_summary:%s", userID)
}

func (s *redisCacheService) GetInvoice(ctx context.Context, userID, invoiceID uuid.UUID) (*models.Invoice, error) {
	data, err := s.client.Get(ctx, invoiceKey(userID, invoiceID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var invoice models.Invoice
	if err := json.Unmarshal(data, &invoice); err != nil {
		return nil, err
	}
	return &invoice, nil
}

func (s *redisCacheService) SetInvoice(ctx context.Context, invoice *models.Invoice, ttl time.Duration) error {
	data, err := json.Marshal(invoice)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, invoiceKey(invoice.UserID, invoice.ID), data, ttl).Err()
}

func (s *redisCacheService) DeleteInvoice(ctx context.Context, userID, invoiceID uuid.UUID) error {
	return s.client.Del(ctx, invoiceKey(userID, invoiceID)).Err()
}

func (s *redisCacheService) GetSummary(ctx context.Context, userID uuid.UUID) (*models.InvoiceSummary, error) {
	data, err := s.client.Get(ctx, summaryKey(userID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var summary models.InvoiceSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

func (s *redisCacheService) SetSummary(ctx context.Context, userID uuid.UUID, summary *models.InvoiceSummary, ttl time.Duration) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, summaryKey(userID), data, ttl).Err()
}

func (s *redisCacheService) DeleteSummary(ctx context.Context, userID uuid.UUID) error {
	return s.client.Del(ctx, summaryKey(userID)).Err()
}

func (s *redisCacheService) SetString(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

func (s *redisCacheService) GetString(ctx context.Context, key string) (string, error) {
	value, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", nil
	}
	return value, err
}

func (s *redisCacheService) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}

func (s *redisCacheService) IsRateLimited(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	count, err := s.client.Get(ctx, "rate:"+key).Int()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return count >= limit, nil
}

func (s *redisCacheService) IncrementRateLimit(ctx context.Context, key string, window time.Duration) error {
	pipe := s.client.TxPipeline()
	pipe.Incr(ctx, "rate:"+key)
	pipe.Expire(ctx, "rate:"+key, window)
	_, err := pipe.Exec(ctx)
	return err
}

func (s *redisCacheService) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
