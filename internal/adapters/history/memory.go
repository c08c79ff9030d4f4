package history

import (
	"context"
	"sort"
	"sync"

	"github.com/okian/salesbonus/internal/domain/backfill"
	"github.com/okian/salesbonus/internal/domain/model"
)

// MemorySource serves a fixed history. It is used by tests and by local runs without a
// history endpoint.
type MemorySource struct {
	mu   sync.RWMutex
	msgs []model.Message // oldest first
}

// NewMemorySource returns a source over msgs, in any order.
func NewMemorySource(msgs ...model.Message) *MemorySource {
	s := &MemorySource{}
	s.Add(msgs...)
	return s
}

// Add appends messages and keeps the history ordered by creation time.
func (s *MemorySource) Add(msgs ...model.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, msgs...)
	sort.SliceStable(s.msgs, func(i, j int) bool {
		return s.msgs[i].CreatedAt.Before(s.msgs[j].CreatedAt)
	})
}

// History implements backfill.Source. An unknown beforeID yields an empty page.
func (s *MemorySource) History(_ context.Context, beforeID string, pageSize int) ([]model.Message, error) {
	if pageSize <= 0 || pageSize > backfill.MaxPageSize {
		pageSize = backfill.MaxPageSize
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	end := len(s.msgs)
	if beforeID != "" {
		end = -1
		for i, m := range s.msgs {
			if m.ID == beforeID {
				end = i
				break
			}
		}
		if end < 0 {
			return nil, nil
		}
	}

	page := make([]model.Message, 0, min(pageSize, end))
	for i := end - 1; i >= 0 && len(page) < pageSize; i-- {
		page = append(page, s.msgs[i])
	}
	return page, nil
}
