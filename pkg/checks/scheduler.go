package checks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/openbms/tsdq/pkg/observability"
	r "github.com/openbms/tsdq/pkg/redis"
)

// Scheduler defines the public interface for the check scheduler
type Scheduler interface {
	// Start registers all checks and starts enqueuing runs on their cron
	// schedules
	Start(ctx context.Context) error

	// Stop gracefully shuts down the scheduler
	Stop() error
}

// scheduler enqueues check tasks on their cron schedules
type scheduler struct {
	log      logrus.FieldLogger
	checks   []Check
	redisOpt *redis.Options
	queue    string

	asynqScheduler *asynq.Scheduler
	wg             sync.WaitGroup
}

// NewScheduler creates a check scheduler. The queue is the already-prefixed
// asynq queue name the matching workers consume.
func NewScheduler(log logrus.FieldLogger, checks []Check, redisOpt *redis.Options, queue string) Scheduler {
	return &scheduler{
		log:      log.WithField("service", "scheduler"),
		checks:   checks,
		redisOpt: redisOpt,
		queue:    queue,
	}
}

// Start registers all checks and runs the scheduler loop in the background
func (s *scheduler) Start(_ context.Context) error {
	asynqScheduler := asynq.NewScheduler(r.NewAsynqRedisOptions(s.redisOpt), &asynq.SchedulerOpts{
		Location:        time.UTC,
		PostEnqueueFunc: s.recordEnqueue,
	})

	for i := range s.checks {
		check := &s.checks[i]

		task, err := NewTask(check)
		if err != nil {
			return fmt.Errorf("check %q: %w", check.Name, err)
		}

		entryID, err := asynqScheduler.Register(check.Schedule, task,
			asynq.Queue(s.queue),
			asynq.TaskID("check:"+check.Name),
			asynq.MaxRetry(2),
			asynq.Timeout(10*time.Minute),
		)
		if err != nil {
			return fmt.Errorf("failed to register check %q: %w", check.Name, err)
		}

		s.log.WithFields(logrus.Fields{
			"check":    check.Name,
			"schedule": check.Schedule,
			"entry_id": entryID,
		}).Info("Registered check schedule")
	}

	s.wg.Add(1)

	go func() {
		defer s.wg.Done()

		if runErr := asynqScheduler.Run(); runErr != nil {
			s.log.WithError(runErr).Error("Scheduler stopped with error")
		}
	}()

	s.asynqScheduler = asynqScheduler

	s.log.WithField("checks", len(s.checks)).Info("Scheduler started successfully")

	return nil
}

// recordEnqueue accounts for one scheduled enqueue attempt. The metric is
// labeled by check name, recovered from the task payload.
func (s *scheduler) recordEnqueue(info *asynq.TaskInfo, err error) {
	if err != nil {
		// A task ID conflict means the previous run is still queued
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			s.log.WithError(err).Debug("Check already queued, skipping")

			return
		}

		s.log.WithError(err).Error("Failed to enqueue check task")

		return
	}

	var payload TaskPayload
	if jsonErr := json.Unmarshal(info.Payload, &payload); jsonErr != nil {
		s.log.WithError(jsonErr).Warn("Failed to parse enqueued task payload")

		return
	}

	observability.RecordCheckEnqueued(payload.CheckName)
}

// Stop gracefully shuts down the scheduler
func (s *scheduler) Stop() error {
	if s.asynqScheduler != nil {
		s.asynqScheduler.Shutdown()
	}

	s.wg.Wait()

	s.log.Info("Scheduler stopped successfully")

	return nil
}

// Ensure scheduler implements the interface
var _ Scheduler = (*scheduler)(nil)
