package checks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/openbms/tsdq/pkg/cache"
	"github.com/openbms/tsdq/pkg/completeness"
	"github.com/openbms/tsdq/pkg/observability"
	r "github.com/openbms/tsdq/pkg/redis"
	"github.com/openbms/tsdq/pkg/store"
)

// Worker defines the public interface for the check worker
type Worker interface {
	// Start begins consuming check tasks from the queue
	Start(ctx context.Context) error

	// Stop gracefully shuts down the worker
	Stop() error
}

// worker executes queued check runs against the timeseries store
type worker struct {
	log         logrus.FieldLogger
	checks      map[string]*Check
	store       store.Store
	calc        *completeness.Calculator
	reports     *cache.Manager
	redisOpt    *redis.Options
	queue       string
	concurrency int

	server *asynq.Server
	wg     sync.WaitGroup
	now    func() time.Time
}

// NewWorker creates a check worker. The queue is the already-prefixed asynq
// queue name the scheduler enqueues onto.
func NewWorker(log logrus.FieldLogger, checks []Check, st store.Store, reports *cache.Manager, redisOpt *redis.Options, queue string, concurrency int) Worker {
	byName := make(map[string]*Check, len(checks))
	for i := range checks {
		byName[checks[i].Name] = &checks[i]
	}

	return &worker{
		log:         log.WithField("service", "worker"),
		checks:      byName,
		store:       st,
		calc:        completeness.NewCalculator(log, st),
		reports:     reports,
		redisOpt:    redisOpt,
		queue:       queue,
		concurrency: concurrency,
		now:         time.Now,
	}
}

// Start begins consuming check tasks from the queue
func (w *worker) Start(_ context.Context) error {
	srv := asynq.NewServer(r.NewAsynqRedisOptions(w.redisOpt), asynq.Config{
		Concurrency: w.concurrency,
		Queues:      map[string]int{w.queue: 10},
	})

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeCompletenessCheck, w.handleCheck)

	w.wg.Add(1)

	go func() {
		defer w.wg.Done()

		if runErr := srv.Run(mux); runErr != nil {
			w.log.WithError(runErr).Error("Worker server stopped with error")
		}
	}()

	w.server = srv

	w.log.WithFields(logrus.Fields{
		"checks":      len(w.checks),
		"queue":       w.queue,
		"concurrency": w.concurrency,
	}).Info("Worker started successfully")

	return nil
}

// Stop gracefully shuts down the worker
func (w *worker) Stop() error {
	if w.server != nil {
		w.server.Shutdown()
	}

	w.wg.Wait()

	w.log.Info("Worker stopped successfully")

	return nil
}

// handleCheck runs one queued check. Errors that cannot succeed on retry,
// such as an unknown check or a bad period, skip the retry loop.
func (w *worker) handleCheck(ctx context.Context, task *asynq.Task) error {
	var payload TaskPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to parse task payload: %v: %w", err, asynq.SkipRetry)
	}

	check, ok := w.checks[payload.CheckName]
	if !ok {
		return fmt.Errorf("%w: %s: %w", ErrUnknownCheck, payload.CheckName, asynq.SkipRetry)
	}

	runID := uuid.New().String()
	log := w.log.WithFields(logrus.Fields{
		"check":  check.Name,
		"run_id": runID,
	})

	started := w.now()

	observability.RecordCheckStart(check.Name)

	err := w.run(ctx, log, check, runID)

	status := "success"
	if err != nil {
		status = "failed"

		observability.RecordError("worker", "check_run")
	}

	observability.RecordCheckComplete(check.Name, status, w.now().Sub(started).Seconds())

	if err != nil {
		log.WithError(err).Error("Check run failed")

		return err
	}

	log.WithField("duration", w.now().Sub(started)).Info("Check run completed")

	return nil
}

func (w *worker) run(ctx context.Context, log logrus.FieldLogger, check *Check, runID string) error {
	end := w.now().UTC().Truncate(time.Second)
	start := end.Add(-check.Lookback)

	series, err := w.store.ResolveTimeseries(ctx, check.Timeseries)
	if err != nil {
		if errors.Is(err, store.ErrUnknownTimeseries) {
			return fmt.Errorf("failed to resolve timeseries: %v: %w", err, asynq.SkipRetry)
		}

		return fmt.Errorf("failed to resolve timeseries: %w", err)
	}

	multiplier, unit, err := completeness.ParsePeriod(check.Period)
	if err != nil {
		return fmt.Errorf("invalid period: %v: %w", err, asynq.SkipRetry)
	}

	report, err := w.calc.Compute(ctx, start, end, series, check.DataState, multiplier, unit, check.Timezone)
	if err != nil {
		return fmt.Errorf("failed to compute report: %w", err)
	}

	for id, sr := range report.Series {
		observability.RecordSeriesFigures(check.Name, id, sr.AvgRatio, sr.TotalCount)
	}

	rendered := report.ByID()
	if check.Key == KeyByName {
		rendered = report.ByName()
	}

	cached := &cache.CachedReport{
		CheckName:   check.Name,
		RunID:       runID,
		DataState:   check.DataState,
		Start:       start,
		End:         end,
		Report:      rendered,
		GeneratedAt: w.now().UTC(),
		TTL:         check.ResultTTL,
	}

	if err := w.reports.SetReport(ctx, cached); err != nil {
		return fmt.Errorf("failed to cache report: %w", err)
	}

	log.WithFields(logrus.Fields{
		"window_start": start,
		"window_end":   end,
		"timeseries":   len(series),
	}).Debug("Cached check report")

	return nil
}

// Ensure worker implements the interface
var _ Worker = (*worker)(nil)
