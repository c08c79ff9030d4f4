// Package backfill replays a window of channel history through the ingest pipeline.
package backfill

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/okian/salesbonus/internal/domain/ingest"
	"github.com/okian/salesbonus/internal/domain/model"
	"github.com/okian/salesbonus/pkg/metrics"
)

// Bounds.
const (
	MinCount    = 1
	MaxCount    = 1000
	MaxPageSize = 100
)

// Source pages through history newest first. beforeID "" starts from the latest message and an
// empty page means there is nothing older.
type Source interface {
	History(ctx context.Context, beforeID string, pageSize int) ([]model.Message, error)
}

// Processor is the part of the ingest pipeline backfill drives.
type Processor interface {
	Process(ctx context.Context, msg model.Message) ingest.Outcome
}

// Request selects the window. Exactly one of Cutoff and Limit is set.
type Request struct {
	// Cutoff excludes messages created before it.
	Cutoff *time.Time
	// Limit caps the number of fetched messages.
	Limit int
}

// ByDate returns a cutoff request.
func ByDate(cutoff time.Time) Request { return Request{Cutoff: &cutoff} }

// ByCount returns a count request.
func ByCount(n int) Request { return Request{Limit: n} }

// Validate checks the request without clamping.
func (r Request) Validate() error {
	hasCutoff := r.Cutoff != nil && !r.Cutoff.IsZero()
	switch {
	case hasCutoff && r.Limit != 0:
		return ErrInvalidRequest
	case hasCutoff:
		return nil
	case r.Cutoff != nil:
		return fmt.Errorf("%w: zero cutoff", ErrInvalidRequest)
	case r.Limit == 0:
		return ErrInvalidRequest
	case r.Limit < MinCount || r.Limit > MaxCount:
		return fmt.Errorf("%w: got %d", ErrInvalidCount, r.Limit)
	}
	return nil
}

// Mode names the request kind for logs and metrics.
func (r Request) Mode() string {
	if r.Cutoff != nil {
		return "by-date"
	}
	return "by-count"
}

// Result summarizes a run. Sales never exceeds Fetched.
type Result struct {
	ID         string    `json:"id"`
	Mode       string    `json:"mode"`
	Fetched    int       `json:"fetched"`
	Sales      int       `json:"sales"`
	Names      int       `json:"names"`
	Failed     int       `json:"failed"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	Err        error     `json:"-"`
}

// Error returns the failure text, or "".
func (r Result) Error() string {
	if r.Err == nil {
		return ""
	}
	return r.Err.Error()
}

// Fetch collects the requested window newest first. On a source error the messages collected
// so far are returned along with the error. A page that brings no unseen message ends the
// fetch with ErrNoProgress.
func Fetch(ctx context.Context, src Source, req Request) ([]model.Message, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var (
		collected []model.Message
		before    string
		seen      = make(map[string]struct{})
	)
	for {
		if err := ctx.Err(); err != nil {
			return collected, err
		}

		size := MaxPageSize
		if req.Limit > 0 {
			size = min(size, req.Limit-len(collected))
		}

		page, err := src.History(ctx, before, size)
		if err != nil {
			return collected, fmt.Errorf("fetch history before %q: %w", before, err)
		}
		if len(page) == 0 {
			return collected, nil
		}

		fresh := 0
		for _, m := range page {
			if _, dup := seen[m.ID]; dup {
				continue
			}
			seen[m.ID] = struct{}{}
			fresh++
			if req.Cutoff != nil && m.CreatedAt.Before(*req.Cutoff) {
				return collected, nil
			}
			collected = append(collected, m)
			if req.Limit > 0 && len(collected) >= req.Limit {
				return collected, nil
			}
		}
		next := page[len(page)-1].ID
		if fresh == 0 || next == before {
			return collected, fmt.Errorf("%w: before %q", ErrNoProgress, before)
		}
		before = next
	}
}

// Run fetches the window, then processes it oldest first. A fetch error still processes what
// was collected; the error is reported in the result.
func Run(ctx context.Context, src Source, proc Processor, req Request) Result {
	res := Result{Mode: req.Mode(), StartedAt: time.Now()}

	msgs, err := Fetch(ctx, src, req)
	res.Err = err
	res.Fetched = len(msgs)

	slices.Reverse(msgs)
	for _, m := range msgs {
		outcome, ok := processOne(ctx, proc, m)
		switch {
		case !ok:
			res.Failed++
		case outcome == ingest.OutcomeSale:
			res.Sales++
		case outcome == ingest.OutcomeName:
			res.Names++
		}
	}
	res.FinishedAt = time.Now()
	return res
}

// processOne applies msg; a panic counts as a failure so the rest of the batch still runs.
func processOne(ctx context.Context, proc Processor, msg model.Message) (outcome ingest.Outcome, ok bool) { //nolint:gocritic // value semantics
	defer func() {
		if r := recover(); r != nil {
			metrics.RecordWorkerPanic()
			ok = false
		}
	}()
	return proc.Process(ctx, msg), true
}
