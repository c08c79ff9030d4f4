// Package aggregate owns the per-employee sales state for the current period.
package aggregate

import (
	"sync"
	"time"

	"github.com/okian/salesbonus/internal/domain/model"
)

// Aggregator is the single owner of model.State. Every read and write goes through its mutex,
// so readers never observe a half-applied update.
type Aggregator struct {
	mu    sync.RWMutex
	state model.State
}

// New returns an empty Aggregator whose period starts at periodStart.
func New(periodStart time.Time) *Aggregator {
	return &Aggregator{state: model.NewState(periodStart)}
}

// RecordSale appends a sale to identifier, creating the employee with its identifier as display
// name when unknown. Replaying the same sourceMessageID records a second sale.
func (a *Aggregator) RecordSale(identifier string, amount int64, occurredAt time.Time, sourceMessageID string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	rec := a.recordLocked(identifier)
	rec.SaleEvents = append(rec.SaleEvents, model.SaleEvent{
		Amount:          amount,
		OccurredAt:      occurredAt,
		SourceMessageID: sourceMessageID,
	})
}

// UpdateName sets the display name, last seen wins. Sale events are untouched.
func (a *Aggregator) UpdateName(identifier, name string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.recordLocked(identifier).DisplayName = name
}

func (a *Aggregator) recordLocked(identifier string) *model.EmployeeRecord {
	rec, ok := a.state.Employees[identifier]
	if !ok || rec == nil {
		rec = &model.EmployeeRecord{DisplayName: identifier, SaleEvents: []model.SaleEvent{}}
		a.state.Employees[identifier] = rec
	}
	return rec
}

// Snapshot returns a deep copy of the state. Callers may keep or modify it freely.
func (a *Aggregator) Snapshot() model.State {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state.Clone()
}

// Reset discards every employee and starts a new period at periodStart.
func (a *Aggregator) Reset(periodStart time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state = model.NewState(periodStart)
}

// Restore replaces the state with a loaded snapshot.
func (a *Aggregator) Restore(state model.State) {
	restored := state.Clone()

	a.mu.Lock()
	defer a.mu.Unlock()
	a.state = restored
}

// PeriodStart returns the start of the current period.
func (a *Aggregator) PeriodStart() time.Time {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state.PeriodStart
}

// Count returns the number of tracked employees.
func (a *Aggregator) Count() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.state.Employees)
}
