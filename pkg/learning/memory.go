// Package learning tracks blocked decisions and human overrides so the
// firewall's thresholds can be adapted to observed false positive/negative
// rates over time.
package learning

import (
	"sync"
	"time"
)

// BlockedDecision is a truncated record of one BLOCK verdict, kept for
// later review.
type BlockedDecision struct {
	Timestamp      time.Time `json:"timestamp"`
	OutputPreview  string    `json:"output_preview"`
	Confidence     float64   `json:"confidence"`
	IntendedAction string    `json:"intended_action"`
	Verdict        string    `json:"verdict"`
	RiskScore      float64   `json:"risk_score"`
	FailedChecks   []string  `json:"failed_checks"`
	Explanation    string    `json:"explanation"`
}

// HumanOverride records a human reviewer overturning a firewall verdict.
type HumanOverride struct {
	Timestamp        time.Time `json:"timestamp"`
	OriginalVerdict  string    `json:"original_verdict"`
	OverrideVerdict  string    `json:"override_verdict"`
	Reason           string    `json:"reason"`
	OutputPreview    string    `json:"output_preview,omitempty"`
}

// Statistics summarizes false-positive/false-negative counts and rates.
type Statistics struct {
	TotalBlocks         int     `json:"total_blocks"`
	TotalOverrides      int     `json:"total_overrides"`
	TotalAllows         int     `json:"total_allows"`
	FalsePositiveCount  int     `json:"false_positive_count"`
	FalseNegativeCount  int     `json:"false_negative_count"`
	FalsePositiveRate   float64 `json:"false_positive_rate"`
	FalseNegativeRate   float64 `json:"false_negative_rate"`
	RecentBlocks        int     `json:"recent_blocks"`
	RecentOverrides     int     `json:"recent_overrides"`
}

// Memory is the persisted shape of the learning state.
type Memory struct {
	BlockedDecisions []BlockedDecision `json:"blocked_decisions"`
	HumanOverrides   []HumanOverride   `json:"human_overrides"`
	FalsePositives   []HumanOverride   `json:"false_positives"`
	FalseNegatives   []HumanOverride   `json:"false_negatives"`
	Stats            Statistics        `json:"statistics"`
}

func emptyMemory() Memory {
	return Memory{}
}

// Store persists and reloads a Memory snapshot as a single document.
type Store interface {
	Load() (Memory, bool, error)
	Save(Memory) error
}

// State wraps Memory with a Store and a mutex for safe concurrent updates.
type State struct {
	mu      sync.Mutex
	memory  Memory
	store   Store
	enabled bool
}

// NewState loads existing memory from store (if any) or starts empty.
// enabled mirrors config's LEARNING_ENABLED switch: when false, Record*
// calls are no-ops, matching the Python original's early return.
func NewState(store Store, enabled bool) (*State, error) {
	s := &State{store: store, memory: emptyMemory(), enabled: enabled}
	if store != nil {
		loaded, ok, err := store.Load()
		if err != nil {
			return nil, err
		}
		if ok {
			s.memory = loaded
		}
	}
	return s, nil
}

const previewLength = 200

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// RecordBlockedDecision appends a BlockedDecision and persists the update.
func (s *State) RecordBlockedDecision(output string, confidence float64, intendedAction, verdict string, riskScore float64, failedChecks []string, explanation string) error {
	if !s.enabled {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.memory.BlockedDecisions = append(s.memory.BlockedDecisions, BlockedDecision{
		Timestamp:      time.Now().UTC(),
		OutputPreview:  truncate(output, previewLength),
		Confidence:     confidence,
		IntendedAction: intendedAction,
		Verdict:        verdict,
		RiskScore:      riskScore,
		FailedChecks:   failedChecks,
		Explanation:    explanation,
	})
	s.memory.Stats.TotalBlocks++

	return s.persist()
}

// RecordHumanOverride appends an override and, when it flips a BLOCK to an
// ALLOW or an ALLOW to a BLOCK, files it as a false positive/negative.
func (s *State) RecordHumanOverride(originalVerdict, overrideVerdict, reason, outputPreview string) error {
	if !s.enabled {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	record := HumanOverride{
		Timestamp:       time.Now().UTC(),
		OriginalVerdict: originalVerdict,
		OverrideVerdict: overrideVerdict,
		Reason:          reason,
		OutputPreview:   truncate(outputPreview, previewLength),
	}

	s.memory.HumanOverrides = append(s.memory.HumanOverrides, record)
	s.memory.Stats.TotalOverrides++

	if originalVerdict == "BLOCK" && overrideVerdict == "ALLOW" {
		s.memory.FalsePositives = append(s.memory.FalsePositives, record)
		s.memory.Stats.FalsePositiveCount++
	} else if originalVerdict == "ALLOW" && overrideVerdict == "BLOCK" {
		s.memory.FalseNegatives = append(s.memory.FalseNegatives, record)
		s.memory.Stats.FalseNegativeCount++
	}

	return s.persist()
}

func (s *State) persist() error {
	if s.store == nil {
		return nil
	}
	return s.store.Save(s.memory)
}

// GetStatistics returns the current statistics with derived rates filled in.
func (s *State) GetStatistics() Statistics {
	s.mu.Lock()
	defer s.mu.Unlock()

	stats := s.memory.Stats

	if stats.TotalBlocks > 0 {
		stats.FalsePositiveRate = float64(stats.FalsePositiveCount) / float64(stats.TotalBlocks)
	}
	if stats.TotalAllows > 0 {
		stats.FalseNegativeRate = float64(stats.FalseNegativeCount) / float64(stats.TotalAllows)
	}

	stats.RecentBlocks = lastN(len(s.memory.BlockedDecisions), 10)
	stats.RecentOverrides = lastN(len(s.memory.HumanOverrides), 10)

	return stats
}

func lastN(total, n int) int {
	if total < n {
		return total
	}
	return n
}
