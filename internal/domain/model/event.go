// Package model contains domain models passed between layers.
package model

import (
	"sort"
	"time"
)

// Message is an inbound chat message as delivered by the message source or the history source.
type Message struct {
	ID          string    `json:"id"`
	ChannelID   string    `json:"channel_id"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"created_at"`
	AuthorIsBot bool      `json:"author_is_bot"`
}

// SaleEvent is one accepted sale. OccurredAt comes from the source message, not arrival time.
type SaleEvent struct {
	Amount          int64     `json:"amount"`
	OccurredAt      time.Time `json:"occurredAt"`
	SourceMessageID string    `json:"sourceMessageId"`
}

// EmployeeRecord holds an employee's display name and the sales accrued this period.
type EmployeeRecord struct {
	DisplayName string      `json:"displayName"`
	SaleEvents  []SaleEvent `json:"saleEvents"`
}

// TotalSales sums the amounts of every sale event.
func (r *EmployeeRecord) TotalSales() int64 {
	var total int64
	for _, e := range r.SaleEvents {
		total += e.Amount
	}
	return total
}

// State is the whole aggregate, and also the persisted snapshot document.
type State struct {
	Employees   map[string]*EmployeeRecord `json:"employees"`
	PeriodStart time.Time                  `json:"periodStart"`
}

// NewState returns an empty state whose period starts at periodStart.
func NewState(periodStart time.Time) State {
	return State{
		Employees:   make(map[string]*EmployeeRecord),
		PeriodStart: periodStart,
	}
}

// Clone returns a deep copy that shares no memory with s.
func (s State) Clone() State {
	out := NewState(s.PeriodStart)
	for id, rec := range s.Employees {
		if rec == nil {
			continue
		}
		events := make([]SaleEvent, len(rec.SaleEvents))
		copy(events, rec.SaleEvents)
		out.Employees[id] = &EmployeeRecord{DisplayName: rec.DisplayName, SaleEvents: events}
	}
	return out
}

// Identifiers returns employee identifiers in ascending order.
func (s State) Identifiers() []string {
	ids := make([]string, 0, len(s.Employees))
	for id := range s.Employees {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// BonusLine is a derived report row; it is never stored.
type BonusLine struct {
	Identifier  string `json:"identifier"`
	DisplayName string `json:"display_name"`
	SaleCount   int    `json:"sale_count"`
	TotalSales  int64  `json:"total_sales"`
	BonusAmount int64  `json:"bonus_amount"`
}
