// Package repository persists the aggregate snapshot.
package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/okian/salesbonus/internal/domain/model"
)

// Store loads and saves the whole state. There are no partial writes.
type Store interface {
	// Load returns the saved state. Returns ErrSnapshotNotFound when nothing was saved yet.
	Load(ctx context.Context) (model.State, error)
	// Save replaces the saved state.
	Save(ctx context.Context, state model.State) error
}

func encode(state model.State) ([]byte, error) {
	if state.Employees == nil {
		state.Employees = map[string]*model.EmployeeRecord{}
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}

func decode(data []byte) (model.State, error) {
	var st model.State
	if err := json.Unmarshal(data, &st); err != nil {
		return model.State{}, fmt.Errorf("%w: %w", ErrCorruptSnapshot, err)
	}
	if st.Employees == nil {
		st.Employees = map[string]*model.EmployeeRecord{}
	}
	for id, rec := range st.Employees {
		if rec == nil {
			delete(st.Employees, id)
		}
	}
	return st, nil
}
