// Package store provides RunStore implementations.
package store

import (
	"context"
	"sort"
	"sync"

	"github.com/warp/allocation-engine/alloc"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu      sync.RWMutex
	records map[alloc.RunID]alloc.RunRecord
	outputs map[alloc.RunID]*alloc.RunOutput
}

func NewMemory() *Memory {
	return &Memory{
		records: make(map[alloc.RunID]alloc.RunRecord),
		outputs: make(map[alloc.RunID]*alloc.RunOutput),
	}
}

// SaveRun stores a run once. Append-only.
func (m *Memory) SaveRun(_ context.Context, rec alloc.RunRecord, out *alloc.RunOutput) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.records[rec.ID]; exists {
		return alloc.ErrDuplicateRunID
	}

	// Copy the output so later caller mutations can't reach stored state.
	stored := &alloc.RunOutput{
		Results:   append([]alloc.AllocationResult(nil), out.Results...),
		Summaries: append([]alloc.PeriodSummary(nil), out.Summaries...),
		Tiers:     append([]alloc.TierAllocation(nil), out.Tiers...),
	}
	m.records[rec.ID] = rec
	m.outputs[rec.ID] = stored
	return nil
}

func (m *Memory) GetRun(_ context.Context, id alloc.RunID) (*alloc.RunRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.records[id]
	if !ok {
		return nil, alloc.ErrRunNotFound
	}
	return &rec, nil
}

func (m *Memory) ListRuns(_ context.Context) ([]alloc.RunRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	runs := make([]alloc.RunRecord, 0, len(m.records))
	for _, rec := range m.records {
		runs = append(runs, rec)
	}
	sort.Slice(runs, func(i, j int) bool {
		if !runs[i].CreatedAt.Equal(runs[j].CreatedAt) {
			return runs[i].CreatedAt.After(runs[j].CreatedAt)
		}
		return runs[i].ID > runs[j].ID
	})
	return runs, nil
}

func (m *Memory) Results(_ context.Context, id alloc.RunID, filter alloc.ResultFilter) ([]alloc.AllocationResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out, ok := m.outputs[id]
	if !ok {
		return nil, alloc.ErrRunNotFound
	}
	results := make([]alloc.AllocationResult, 0, len(out.Results))
	for _, r := range out.Results {
		if filter.Matches(r) {
			results = append(results, r)
		}
	}
	return results, nil
}

func (m *Memory) Summaries(_ context.Context, id alloc.RunID) ([]alloc.PeriodSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out, ok := m.outputs[id]
	if !ok {
		return nil, alloc.ErrRunNotFound
	}
	return append([]alloc.PeriodSummary(nil), out.Summaries...), nil
}

func (m *Memory) TierAllocations(_ context.Context, id alloc.RunID) ([]alloc.TierAllocation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out, ok := m.outputs[id]
	if !ok {
		return nil, alloc.ErrRunNotFound
	}
	return append([]alloc.TierAllocation(nil), out.Tiers...), nil
}
