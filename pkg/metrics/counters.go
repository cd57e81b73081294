// Package metrics tracks aggregate firewall statistics: counts by verdict
// and action, hallucination blocks, and the derived rates the /metrics
// endpoint reports.
package metrics

import (
	"fmt"
	"sync"
	"time"
)

// Counters is the persisted shape of the metrics state.
type Counters struct {
	TotalRequests        int            `json:"total_requests"`
	BlockedRequests      int            `json:"blocked_requests"`
	AllowedRequests      int            `json:"allowed_requests"`
	HallucinationBlocks  int            `json:"hallucination_blocks"`
	HumanReviews         int            `json:"human_reviews"`
	EvidenceRequired     int            `json:"evidence_required"`
	ByVerdict            map[string]int `json:"by_verdict"`
	ByAction             map[string]int `json:"by_action"`
	LastUpdated          *time.Time     `json:"last_updated"`
}

func emptyCounters() Counters {
	return Counters{
		ByVerdict: make(map[string]int),
		ByAction:  make(map[string]int),
	}
}

// State wraps Counters with a Store for durable persistence and a mutex for
// safe concurrent recording.
type State struct {
	mu       sync.Mutex
	counters Counters
	store    Store
}

// Store persists and reloads a Counters snapshot as a single document.
type Store interface {
	Load() (Counters, bool, error)
	Save(Counters) error
}

// NewState loads existing counters from store (if any) or starts empty.
func NewState(store Store) (*State, error) {
	s := &State{store: store, counters: emptyCounters()}
	if store != nil {
		loaded, ok, err := store.Load()
		if err != nil {
			return nil, fmt.Errorf("metrics: failed to load counters: %w", err)
		}
		if ok {
			if loaded.ByVerdict == nil {
				loaded.ByVerdict = make(map[string]int)
			}
			if loaded.ByAction == nil {
				loaded.ByAction = make(map[string]int)
			}
			s.counters = loaded
		}
	}
	return s, nil
}

// RecordRequest updates every counter affected by one adjudicated request
// and persists the new snapshot.
func (s *State) RecordRequest(verdict string, intendedAction string, isHallucination bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.counters.TotalRequests++
	s.counters.ByVerdict[verdict]++
	s.counters.ByAction[intendedAction]++

	switch verdict {
	case "BLOCK":
		s.counters.BlockedRequests++
		if isHallucination {
			s.counters.HallucinationBlocks++
		}
	case "ALLOW":
		s.counters.AllowedRequests++
	case "REQUIRE_HUMAN_REVIEW":
		s.counters.HumanReviews++
	case "REQUIRE_EVIDENCE":
		s.counters.EvidenceRequired++
	}

	now := time.Now().UTC()
	s.counters.LastUpdated = &now

	if s.store != nil {
		if err := s.store.Save(s.counters); err != nil {
			return fmt.Errorf("metrics: failed to persist counters: %w", err)
		}
	}
	return nil
}

// Snapshot is Counters plus the derived rates the /metrics endpoint reports.
type Snapshot struct {
	Counters
	BlockRate         float64 `json:"block_rate"`
	AllowRate         float64 `json:"allow_rate"`
	HallucinationRate float64 `json:"hallucination_rate"`
	HumanReviewRate   float64 `json:"human_review_rate"`
}

// GetMetrics returns the current counters augmented with derived rates.
func (s *State) GetMetrics() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{Counters: s.counters}
	if s.counters.TotalRequests == 0 {
		return snap
	}

	total := float64(s.counters.TotalRequests)
	snap.BlockRate = float64(s.counters.BlockedRequests) / total
	snap.AllowRate = float64(s.counters.AllowedRequests) / total
	snap.HallucinationRate = float64(s.counters.HallucinationBlocks) / total
	snap.HumanReviewRate = float64(s.counters.HumanReviews) / total
	return snap
}

// Reset clears all counters and persists the empty state.
func (s *State) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.counters = emptyCounters()
	if s.store != nil {
		if err := s.store.Save(s.counters); err != nil {
			return fmt.Errorf("metrics: failed to persist reset counters: %w", err)
		}
	}
	return nil
}
