package paper

import (
	"context"
	"sync"

	"sniperbot-go/internal/signal"
)

// Journal keeps accepted decisions in memory for the session summary.
type Journal struct {
	mu        sync.Mutex
	decisions []signal.Decision
}

// Stats summarizes the journal.
type Stats struct {
	Total       int
	ByAsset     map[string]int
	ByDirection map[signal.Direction]int
}

// NewJournal creates an empty journal optionally pre-sizing storage.
func NewJournal(capacity int) *Journal {
	if capacity < 0 {
		capacity = 0
	}
	return &Journal{decisions: make([]signal.Decision, 0, capacity)}
}

// Record appends a decision.
func (j *Journal) Record(d signal.Decision) {
	j.mu.Lock()
	j.decisions = append(j.decisions, d)
	j.mu.Unlock()
}

// Handle implements the decision sink contract.
func (j *Journal) Handle(_ context.Context, d signal.Decision) error {
	j.Record(d)
	return nil
}

// Snapshot returns a copy of the recorded decisions.
func (j *Journal) Snapshot() []signal.Decision {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]signal.Decision, len(j.decisions))
	copy(out, j.decisions)
	return out
}

// Stats counts decisions per asset and direction.
func (j *Journal) Stats() Stats {
	j.mu.Lock()
	defer j.mu.Unlock()
	st := Stats{
		Total:       len(j.decisions),
		ByAsset:     make(map[string]int),
		ByDirection: make(map[signal.Direction]int),
	}
	for _, d := range j.decisions {
		st.ByAsset[d.Asset]++
		st.ByDirection[d.Direction]++
	}
	return st
}
