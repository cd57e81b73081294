// Package audit implements the append-only, tamper-evident decision log.
// Each entry is chained to its predecessor by SHA-256 hash over its RFC 8785
// canonical form, following the same hash-chain construction the rest of
// this codebase uses for artifact provenance.
package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/Mindburn-Labs/decision-firewall/pkg/canonicalize"
	"github.com/google/uuid"
)

// Clock abstracts wall-clock time so tests can supply a fixed sequence.
type Clock interface {
	Now() time.Time
}

type wallClock struct{}

func (wallClock) Now() time.Time { return time.Now() }

// Entry is one immutable audit record of a firewall decision.
type Entry struct {
	ID                  string                 `json:"id"`
	Timestamp            time.Time              `json:"timestamp"`
	OutputHash           string                 `json:"output_hash"`
	OutputLength         int                    `json:"output_length"`
	Confidence           float64                `json:"confidence"`
	IntendedAction       string                 `json:"intended_action"`
	Verdict              string                 `json:"verdict"`
	RiskScore            float64                `json:"risk_score"`
	FailedChecks         []string               `json:"failed_checks"`
	Explanation          string                 `json:"explanation"`
	ConfidenceAlignment  bool                   `json:"confidence_alignment"`
	SourcesCount         int                    `json:"sources_count"`
	Metadata             map[string]interface{} `json:"metadata,omitempty"`

	// PreviousHash links this entry to its predecessor.
	PreviousHash string `json:"previous_hash"`
	// Hash is the SHA-256 digest of this entry, including PreviousHash.
	Hash string `json:"hash"`
}

// DecisionRecord is the minimal shape an Append call needs; adapters map
// firewall.Request/firewall.Response onto it so this package stays free of
// an import-cycle dependency on pkg/firewall.
type DecisionRecord struct {
	Output              string
	Confidence          float64
	IntendedAction      string
	SourcesCount        int
	Verdict             string
	RiskScore           float64
	FailedChecks        []string
	Explanation         string
	ConfidenceAlignment bool
	Metadata            map[string]interface{}
}

// Log manages the in-memory hash-chained sequence of entries. A Store
// handles durable persistence of each entry as it is appended.
type Log struct {
	entries []Entry
	clock   Clock
	store   Store
}

// NewLog constructs a Log backed by store, optionally with a custom clock
// (used by tests). If store is nil, entries are kept in memory only.
func NewLog(store Store, clock ...Clock) *Log {
	var c Clock = wallClock{}
	if len(clock) > 0 && clock[0] != nil {
		c = clock[0]
	}
	return &Log{store: store, clock: c}
}

// Append records one decision, returning the written entry.
func (l *Log) Append(rec DecisionRecord) (*Entry, error) {
	prevHash := ""
	if len(l.entries) > 0 {
		prevHash = l.entries[len(l.entries)-1].Hash
	}

	outputHash := sha256.Sum256([]byte(rec.Output))

	entry := Entry{
		ID:                  fmt.Sprintf("evt_%s", uuid.NewString()),
		Timestamp:           l.clock.Now().UTC(),
		OutputHash:          hex.EncodeToString(outputHash[:]),
		OutputLength:        len(rec.Output),
		Confidence:          rec.Confidence,
		IntendedAction:      rec.IntendedAction,
		Verdict:             rec.Verdict,
		RiskScore:           rec.RiskScore,
		FailedChecks:        rec.FailedChecks,
		Explanation:         rec.Explanation,
		ConfidenceAlignment: rec.ConfidenceAlignment,
		SourcesCount:        rec.SourcesCount,
		Metadata:            rec.Metadata,
		PreviousHash:        prevHash,
	}

	hash, err := computeEntryHash(&entry)
	if err != nil {
		return nil, fmt.Errorf("audit: failed to hash entry: %w", err)
	}
	entry.Hash = hash

	l.entries = append(l.entries, entry)

	if l.store != nil {
		if err := l.store.Append(entry); err != nil {
			return &entry, fmt.Errorf("audit: failed to persist entry: %w", err)
		}
	}

	return &entry, nil
}

// VerifyChain checks that every entry's PreviousHash matches its
// predecessor's Hash and that every entry's content hash is unchanged.
func (l *Log) VerifyChain() (bool, error) {
	for i, entry := range l.entries {
		if i > 0 {
			if entry.PreviousHash != l.entries[i-1].Hash {
				return false, fmt.Errorf("chain broken at index %d: previous hash mismatch", i)
			}
		} else if entry.PreviousHash != "" {
			return false, fmt.Errorf("genesis entry has non-empty previous hash")
		}

		computed, err := computeEntryHash(&entry)
		if err != nil {
			return false, fmt.Errorf("failed to recompute hash at index %d: %w", i, err)
		}
		if computed != entry.Hash {
			return false, fmt.Errorf("integrity failure at index %d: computed %s, stored %s", i, computed, entry.Hash)
		}
	}
	return true, nil
}

// Entries returns a copy of the in-memory entry slice, most recent last.
func (l *Log) Entries() []Entry {
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

func computeEntryHash(e *Entry) (string, error) {
	data := map[string]interface{}{
		"id":                   e.ID,
		"timestamp":            e.Timestamp,
		"output_hash":          e.OutputHash,
		"output_length":        e.OutputLength,
		"confidence":           e.Confidence,
		"intended_action":      e.IntendedAction,
		"verdict":              e.Verdict,
		"risk_score":           e.RiskScore,
		"failed_checks":        e.FailedChecks,
		"explanation":          e.Explanation,
		"confidence_alignment": e.ConfidenceAlignment,
		"sources_count":        e.SourcesCount,
		"metadata":             e.Metadata,
		"previous_hash":        e.PreviousHash,
	}

	canonicalBytes, err := canonicalize.JCS(data)
	if err != nil {
		return "", err
	}

	hash := sha256.Sum256(canonicalBytes)
	return hex.EncodeToString(hash[:]), nil
}

// Stats summarizes a set of audit entries for the /audit/stats endpoint.
type Stats struct {
	TotalDecisions int            `json:"total_decisions"`
	ByVerdict      map[string]int `json:"by_verdict"`
	ByAction       map[string]int `json:"by_action"`
	AvgRiskScore   float64        `json:"avg_risk_score"`
	MinRiskScore   float64        `json:"min_risk_score"`
	MaxRiskScore   float64        `json:"max_risk_score"`
}

// ComputeStats aggregates entries into a Stats summary.
func ComputeStats(entries []Entry) Stats {
	if len(entries) == 0 {
		return Stats{ByVerdict: map[string]int{}, ByAction: map[string]int{}}
	}

	stats := Stats{
		ByVerdict: make(map[string]int),
		ByAction:  make(map[string]int),
		MinRiskScore: entries[0].RiskScore,
		MaxRiskScore: entries[0].RiskScore,
	}

	var sum float64
	for _, e := range entries {
		stats.TotalDecisions++
		stats.ByVerdict[e.Verdict]++
		stats.ByAction[e.IntendedAction]++
		sum += e.RiskScore
		if e.RiskScore < stats.MinRiskScore {
			stats.MinRiskScore = e.RiskScore
		}
		if e.RiskScore > stats.MaxRiskScore {
			stats.MaxRiskScore = e.RiskScore
		}
	}
	stats.AvgRiskScore = sum / float64(stats.TotalDecisions)

	return stats
}
