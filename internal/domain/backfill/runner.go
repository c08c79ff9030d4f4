package backfill

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/okian/salesbonus/pkg/logger"
	"github.com/okian/salesbonus/pkg/metrics"
)

// Runner executes one backfill at a time in the background.
type Runner struct {
	src  Source
	proc Processor
	log  logger.Logger

	mu      sync.Mutex
	running string
	last    *Result
	wg      sync.WaitGroup
}

// NewRunner returns a Runner over src and proc.
func NewRunner(src Source, proc Processor, log logger.Logger) *Runner {
	if log == nil {
		log = logger.Nop()
	}
	return &Runner{src: src, proc: proc, log: log}
}

// Start validates req and launches it, returning the job id. The job is detached from the
// caller's request and runs to completion or until ctx is cancelled.
func (r *Runner) Start(ctx context.Context, req Request) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running != "" {
		return "", ErrBackfillRunning
	}
	id := uuid.NewString()
	r.running = id

	r.wg.Add(1)
	go r.run(ctx, id, req)
	return id, nil
}

func (r *Runner) run(ctx context.Context, id string, req Request) {
	defer r.wg.Done()

	r.log.Info(ctx, "backfill started", logger.String("job_id", id), logger.String("mode", req.Mode()))
	res := Run(ctx, r.src, r.proc, req)
	res.ID = id
	metrics.RecordBackfill(res.Fetched, res.Sales, res.Err)

	fields := []logger.Field{
		logger.String("job_id", id),
		logger.Int("fetched", res.Fetched),
		logger.Int("sales", res.Sales),
		logger.Int("failed", res.Failed),
		logger.Duration("took", res.FinishedAt.Sub(res.StartedAt)),
	}
	if res.Err != nil {
		r.log.Error(ctx, "backfill finished with errors", append(fields, logger.Error(res.Err))...)
	} else {
		r.log.Info(ctx, "backfill finished", fields...)
	}

	r.mu.Lock()
	r.running = ""
	r.last = &res
	r.mu.Unlock()
}

// Running returns the id of the job in progress, or "".
func (r *Runner) Running() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Last returns the most recent finished result.
func (r *Runner) Last() (Result, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.last == nil {
		return Result{}, false
	}
	return *r.last, true
}

// Wait blocks until the running job, if any, finishes.
func (r *Runner) Wait() {
	r.wg.Wait()
}
