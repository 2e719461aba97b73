package background

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"

	"invoicely/internal/analytics"
	"invoicely/internal/repositories"
)

// JobScheduler runs the periodic summary-cache refresh so dashboard reads
// stay warm between mutations.
type JobScheduler struct {
	scheduler    gocron.Scheduler
	analyticsSvc *analytics.AnalyticsService
	userRepo     repositories.UserRepository
}

func NewJobScheduler(analyticsSvc *analytics.AnalyticsService, userRepo repositories.UserRepository) (*JobScheduler, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	js := &JobScheduler{
		scheduler:    scheduler,
		analyticsSvc: analyticsSvc,
		userRepo:     userRepo,
	}

	_, err = scheduler.NewJob(
		gocron.DurationJob(15*time.Minute),
		gocron.NewTask(js.refreshSummaries, context.Background()),
		gocron.WithName("invoice-summary-refresh"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return nil, err
	}

	return js, nil
}

func (js *JobScheduler) Start() {
	log.Printf("Starting background job scheduler")
	js.scheduler.Start()
}

func (js *JobScheduler) Stop() error {
	log.Printf("Stopping background job scheduler")
	return js.scheduler.Shutdown()
}

func (js *JobScheduler) refreshSummaries(ctx context.Context) {
	userIDs, err := js.userRepo.ListIDs(ctx)
	if err != nil {
		log.Printf("summary refresh: failed to list users: %v", err)
		return
	}

	for _, userID := range userIDs {
		if _, err := js.analyticsSvc.RefreshUserSummary(ctx, userID); err != nil {
			log.Printf("summary refresh failed for user %s: %v", userID, err)
		}
	}
}
