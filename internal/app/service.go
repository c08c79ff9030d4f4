// Package service wires the ingest pipeline, the weekly lifecycle, persistence and backfills
// behind the operations used by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	eventqueue "github.com/okian/salesbonus/internal/adapters/mq/queue"
	"github.com/okian/salesbonus/internal/adapters/mq/worker"
	"github.com/okian/salesbonus/internal/adapters/repository"
	"github.com/okian/salesbonus/internal/domain/aggregate"
	"github.com/okian/salesbonus/internal/domain/backfill"
	"github.com/okian/salesbonus/internal/domain/bonus"
	"github.com/okian/salesbonus/internal/domain/dedupe"
	"github.com/okian/salesbonus/internal/domain/ingest"
	"github.com/okian/salesbonus/internal/domain/model"
	"github.com/okian/salesbonus/internal/domain/types"
	"github.com/okian/salesbonus/internal/domain/week"
	"github.com/okian/salesbonus/pkg/logger"
	"github.com/okian/salesbonus/pkg/metrics"
)

const originLive = "live"

// Service implements the API dependencies for the sales bonus ledger.
type Service struct {
	mu sync.RWMutex

	// Core components
	agg       *aggregate.Aggregator
	processor *ingest.Processor
	queue     *eventqueue.InMemoryQueue
	worker    *worker.InMemoryWorker
	manager   *week.Manager
	trigger   *week.WeeklyTrigger
	scheduler *week.Scheduler
	runner    *backfill.Runner

	// Collaborators
	store   repository.Store
	history backfill.Source
	clock   week.Clock

	// Configuration
	channelID       string
	queueSize       int
	dedupe          bool
	dedupeSize      int
	weekday         time.Weekday
	hour            int
	minute          int
	loc             *time.Location
	pollInterval    time.Duration
	shutdownTimeout time.Duration

	rateMu sync.RWMutex
	rate   float64

	// Serializes snapshot saves so the last save always holds the newest state.
	persistMu   sync.Mutex
	lastSave    time.Time
	lastSaveErr error

	// Serializes close so two reports never see the same week.
	closeMu sync.Mutex

	// State
	started bool
	stopped bool
	runCtx  context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	// Logging
	logger logger.Logger
}

// New constructs a Service. Nothing runs until Start.
func New(opts ...Option) *Service {
	s := &Service{
		clock:           week.SystemClock{},
		rate:            20,
		queueSize:       10_000,
		weekday:         time.Sunday,
		hour:            23,
		minute:          59,
		loc:             time.UTC,
		pollInterval:    30 * time.Second,
		shutdownTimeout: 10 * time.Second,
	}

	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.agg = aggregate.New(s.clock.Now())

	procOpts := []ingest.Option{
		ingest.WithChannel(s.channelID),
		ingest.WithPersist(s.persist),
		ingest.WithLogger(s.logger.Named("ingest")),
	}
	if s.dedupe {
		procOpts = append(procOpts, ingest.WithDeduper(dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))))
	}
	s.processor = ingest.NewProcessor(s.agg, procOpts...)

	s.queue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
	s.worker = worker.NewInMemoryWorker(s.queue, s.processor,
		worker.WithName("inbound"),
		worker.WithLogger(s.logger),
	)

	s.manager = week.NewManager(s.agg,
		week.WithClock(s.clock),
		week.WithResetHook(s.afterReset),
	)
	s.trigger = week.NewWeeklyTrigger(s.weekday, s.hour, s.minute, s.loc, s.clock, func(ctx context.Context) {
		if _, err := s.closeWeek(ctx, week.TriggerScheduled); err != nil {
			s.logger.Error(ctx, "scheduled close failed", logger.Error(err))
		}
	})
	s.scheduler = week.NewScheduler(s.trigger, s.pollInterval, s.logger.Named("scheduler"))

	if s.history != nil {
		s.runner = backfill.NewRunner(s.history, s.processor, s.logger.Named("backfill"))
	}

	return s
}

// Start restores the last snapshot and starts the worker and the weekly scheduler.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.stopped {
		return ErrStopped
	}

	s.logger.Info(ctx, "starting sales bonus service...")
	s.restore(ctx)

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancel = cancel

	s.wg.Add(2)
	go func() {
		defer s.wg.Done()
		s.worker.Run(runCtx)
	}()
	go func() {
		defer s.wg.Done()
		s.scheduler.Run(runCtx)
	}()

	// Backfills outlive the request that started them.
	s.runCtx = runCtx

	s.started = true
	s.logger.Info(ctx, "sales bonus service started",
		logger.Int("queueSize", s.queueSize),
		logger.Bool("dedupe", s.dedupe),
		logger.Float64("bonusRate", s.BonusRate()),
		logger.Time("periodStart", s.agg.PeriodStart()),
		logger.Time("nextReset", s.trigger.NextFire(s.clock.Now())),
		logger.Bool("backfill", s.runner != nil),
	)

	return nil
}

// Stop drains the inbound queue, stops the scheduler and waits for a running backfill.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping sales bonus service...")

	_ = s.queue.Close()
	shutdownCtx, cancel := context.WithTimeout(ctx, s.shutdownTimeout)
	if err := s.worker.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn(ctx, "inbound queue not drained", logger.Error(err), logger.Int("dropped", s.queue.Len(ctx)))
	}
	cancel()

	s.cancel()
	if s.runner != nil {
		s.runner.Wait()
	}
	s.wg.Wait()

	s.started = false
	s.stopped = true
	s.logger.Info(ctx, "sales bonus service stopped")
}

func (s *Service) restore(ctx context.Context) {
	now := s.clock.Now()
	if s.store == nil {
		s.agg.Reset(now)
		s.logger.Warn(ctx, "no snapshot store configured, state is not persisted")
		return
	}

	state, err := s.store.Load(ctx)
	switch {
	case errors.Is(err, repository.ErrSnapshotNotFound):
		s.agg.Reset(now)
		s.logger.Info(ctx, "no snapshot found, starting a new period", logger.Time("periodStart", now))
	case err != nil:
		s.agg.Reset(now)
		s.logger.Error(ctx, "snapshot unreadable, starting empty", logger.Error(err))
	default:
		if state.PeriodStart.IsZero() {
			state.PeriodStart = now
		}
		s.agg.Restore(state)
		s.logger.Info(ctx, "snapshot restored",
			logger.Int("employees", len(state.Employees)),
			logger.Time("periodStart", state.PeriodStart))
	}
	metrics.UpdateEmployees(s.agg.Count())
}

// persist writes the current state through to the store. Failures are logged and counted only.
func (s *Service) persist(ctx context.Context) {
	if s.store == nil {
		return
	}

	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	start := time.Now()
	err := s.store.Save(context.WithoutCancel(ctx), s.agg.Snapshot())
	metrics.RecordSnapshotSave(float64(time.Since(start).Milliseconds()), err)

	s.lastSaveErr = err
	if err != nil {
		s.logger.Error(ctx, "snapshot save failed", logger.Error(err))
		return
	}
	s.lastSave = s.clock.Now()
}

func (s *Service) afterReset(ctx context.Context, periodStart time.Time, trigger string) {
	s.persist(ctx)
	s.processor.ResetDedupe(ctx)
	metrics.RecordWeekReset(trigger)
	metrics.UpdateEmployees(0)
	s.logger.Info(ctx, "period reset",
		logger.String("trigger", trigger),
		logger.Time("periodStart", periodStart))
}

// Ingest filters a live message and queues it. It returns false with a nil error when the
// message is dropped by the filter, and ErrQueueFull on backpressure.
func (s *Service) Ingest(ctx context.Context, msg model.Message) (bool, error) {
	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()
	if !started {
		return false, ErrNotStarted
	}

	if ok, reason := s.processor.Accept(msg); !ok {
		metrics.RecordMessageIgnored(reason)
		s.logger.Debug(ctx, "message dropped", logger.String("message_id", msg.ID), logger.String("reason", reason))
		return false, nil
	}

	metrics.RecordMessageReceived(originLive)
	if !s.queue.Enqueue(ctx, msg) {
		return false, ErrQueueFull
	}
	return true, nil
}

// Report computes the bonus report for the current period without changing it.
func (s *Service) Report(_ context.Context) (types.Report, error) {
	snap := s.agg.Snapshot()
	rate := s.BonusRate()
	lines, err := bonus.Calculate(snap, rate)
	if err != nil {
		return types.Report{}, fmt.Errorf("calculate bonus: %w", err)
	}
	return types.NewReport(lines, rate, snap.PeriodStart, s.clock.Now()), nil
}

// Close reports the current period and then starts a new one.
func (s *Service) Close(ctx context.Context) (types.Report, error) {
	return s.closeWeek(ctx, week.TriggerManual)
}

// A message applied between the report and the reset is reset without being reported.
func (s *Service) closeWeek(ctx context.Context, trigger string) (types.Report, error) {
	s.closeMu.Lock()
	defer s.closeMu.Unlock()

	report, err := s.Report(ctx)
	if err != nil {
		return types.Report{}, err
	}
	s.manager.Reset(ctx, trigger)
	s.logger.Info(ctx, "period closed",
		logger.String("trigger", trigger),
		logger.Int("employees", report.Totals.Employees),
		logger.Int64("totalSales", report.Totals.TotalSales),
		logger.Int64("totalBonus", report.Totals.TotalBonus))
	return report, nil
}

// SetBonusRate changes the rate used by later reports.
func (s *Service) SetBonusRate(ctx context.Context, rate float64) error {
	if err := bonus.ValidateRate(rate); err != nil {
		return err
	}
	s.rateMu.Lock()
	prev := s.rate
	s.rate = rate
	s.rateMu.Unlock()

	s.logger.Info(ctx, "bonus rate changed", logger.Float64("from", prev), logger.Float64("to", rate))
	return nil
}

// BonusRate returns the current bonus percentage.
func (s *Service) BonusRate() float64 {
	s.rateMu.RLock()
	defer s.rateMu.RUnlock()
	return s.rate
}

// StartBackfill launches a background backfill and returns its job id.
func (s *Service) StartBackfill(ctx context.Context, req backfill.Request) (string, error) {
	if s.runner == nil {
		return "", ErrHistoryUnavailable
	}
	s.mu.RLock()
	started, runCtx := s.started, s.runCtx
	s.mu.RUnlock()
	if !started {
		return "", ErrNotStarted
	}

	id, err := s.runner.Start(runCtx, req)
	if err != nil {
		return "", err
	}
	s.logger.Info(ctx, "backfill requested", logger.String("job_id", id), logger.String("mode", req.Mode()))
	return id, nil
}

// LastBackfill returns the most recent finished backfill.
func (s *Service) LastBackfill() (backfill.Result, bool) {
	if s.runner == nil {
		return backfill.Result{}, false
	}
	return s.runner.Last()
}

// Status summarizes the service for operators.
func (s *Service) Status(ctx context.Context) types.Status {
	snap := s.agg.Snapshot()
	lines, _ := bonus.Calculate(snap, s.BonusRate())
	totals := bonus.Totals(lines)

	st := types.Status{
		PeriodStart:   snap.PeriodStart,
		NextReset:     s.trigger.NextFire(s.clock.Now()),
		Timezone:      s.loc.String(),
		Employees:     totals.Employees,
		SaleCount:     totals.SaleCount,
		TotalSales:    totals.TotalSales,
		BonusRate:     s.BonusRate(),
		QueueLength:   s.queue.Len(ctx),
		QueueCapacity: s.queue.Capacity(),
		DedupeEnabled: s.dedupe,
		Backfill:      types.BackfillStatus{Available: s.runner != nil},
		Snapshot:      types.SnapshotStatus{Backend: backendName(s.store)},
	}

	if s.runner != nil {
		st.Backfill.Running = s.runner.Running()
		if res, ok := s.runner.Last(); ok {
			st.Backfill.Last = &types.BackfillResult{
				ID:         res.ID,
				Mode:       res.Mode,
				Fetched:    res.Fetched,
				Sales:      res.Sales,
				Names:      res.Names,
				Failed:     res.Failed,
				StartedAt:  res.StartedAt,
				FinishedAt: res.FinishedAt,
				Error:      res.Error(),
			}
		}
	}

	s.persistMu.Lock()
	if !s.lastSave.IsZero() {
		saved := s.lastSave
		st.Snapshot.LastSave = &saved
	}
	if s.lastSaveErr != nil {
		st.Snapshot.LastError = s.lastSaveErr.Error()
	}
	s.persistMu.Unlock()

	return st
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]any{
		"started":   s.started,
		"queueSize": s.queueSize,
		"dedupe":    s.dedupe,
		"bonusRate": s.BonusRate(),
	}

	if s.started {
		queueLen := s.queue.Len(ctx)
		employees := s.agg.Count()

		stats["queueLength"] = queueLen
		stats["employees"] = employees
		stats["periodStart"] = s.agg.PeriodStart()

		metrics.UpdateQueueSize(queueLen)
		metrics.UpdateEmployees(employees)
	}

	return stats
}

func backendName(store repository.Store) string {
	switch store.(type) {
	case nil:
		return "none"
	case *repository.FileStore:
		return "file"
	case *repository.RedisStore:
		return "redis"
	default:
		return fmt.Sprintf("%T", store)
	}
}
