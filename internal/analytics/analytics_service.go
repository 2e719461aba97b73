package analytics

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"invoicely/internal/caching"
	"invoicely/internal/models"
	"invoicely/internal/repositories"
)

const summaryCacheTTL = 15 * time.Minute

// AnalyticsService serves per-user invoice summaries (counts per status and
// outstanding pending total) from the cache, falling back to an aggregate
// query.
type AnalyticsService struct {
	invoiceRepo repositories.InvoiceRepository
	cacheSvc    caching.CacheService
}

func NewAnalyticsService(invoiceRepo repositories.InvoiceRepository, cacheSvc caching.CacheService) *AnalyticsService {
	return &AnalyticsService{
		invoiceRepo: invoiceRepo,
		cacheSvc:    cacheSvc,
	}
}

func (s *AnalyticsService) GetUserSummary(ctx context.Context, userID uuid.UUID) (*models.InvoiceSummary, error) {
	if cached, err := s.cacheSvc.GetSummary(ctx, userID); err == nil && cached != nil {
		return cached, nil
	}
	return s.RefreshUserSummary(ctx, userID)
}

// RefreshUserSummary recomputes the summary from storage and rewarms the
// cache.
func (s *AnalyticsService) RefreshUserSummary(ctx context.Context, userID uuid.UUID) (*models.InvoiceSummary, error) {
	summary, err := s.invoiceRepo.Summary(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.cacheSvc.SetSummary(ctx, userID, summary, summaryCacheTTL); err != nil {
		log.Printf("failed to cache summary for user %s: %v", userID, err)
	}
	return summary, nil
}
