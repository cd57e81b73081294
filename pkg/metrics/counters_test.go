package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestState_RecordRequest_UpdatesCounters(t *testing.T) {
	s, err := NewState(nil)
	require.NoError(t, err)

	require.NoError(t, s.RecordRequest("ALLOW", "answer", false))
	require.NoError(t, s.RecordRequest("BLOCK", "trade", true))
	require.NoError(t, s.RecordRequest("REQUIRE_HUMAN_REVIEW", "trade", false))
	require.NoError(t, s.RecordRequest("REQUIRE_EVIDENCE", "answer", false))

	snap := s.GetMetrics()
	assert.Equal(t, 4, snap.TotalRequests)
	assert.Equal(t, 1, snap.AllowedRequests)
	assert.Equal(t, 1, snap.BlockedRequests)
	assert.Equal(t, 1, snap.HallucinationBlocks)
	assert.Equal(t, 1, snap.HumanReviews)
	assert.Equal(t, 1, snap.EvidenceRequired)
	assert.Equal(t, 2, snap.ByAction["trade"])
	assert.NotNil(t, snap.LastUpdated)
}

func TestState_GetMetrics_RatesDerivedFromTotals(t *testing.T) {
	s, err := NewState(nil)
	require.NoError(t, err)

	require.NoError(t, s.RecordRequest("ALLOW", "answer", false))
	require.NoError(t, s.RecordRequest("BLOCK", "answer", false))

	snap := s.GetMetrics()
	assert.InDelta(t, 0.5, snap.BlockRate, 1e-9)
	assert.InDelta(t, 0.5, snap.AllowRate, 1e-9)
}

func TestState_GetMetrics_ZeroTotalRequestsNoDivideByZero(t *testing.T) {
	s, err := NewState(nil)
	require.NoError(t, err)

	snap := s.GetMetrics()
	assert.Equal(t, 0, snap.TotalRequests)
	assert.Equal(t, 0.0, snap.BlockRate)
}

func TestState_Reset_ClearsCounters(t *testing.T) {
	s, err := NewState(nil)
	require.NoError(t, err)
	require.NoError(t, s.RecordRequest("ALLOW", "answer", false))

	require.NoError(t, s.Reset())

	snap := s.GetMetrics()
	assert.Equal(t, 0, snap.TotalRequests)
}

type fakeStore struct {
	saved Counters
	ok    bool
}

func (f *fakeStore) Load() (Counters, bool, error) { return f.saved, f.ok, nil }
func (f *fakeStore) Save(c Counters) error          { f.saved = c; f.ok = true; return nil }

func TestState_PersistsThroughStore(t *testing.T) {
	store := &fakeStore{}
	s, err := NewState(store)
	require.NoError(t, err)

	require.NoError(t, s.RecordRequest("ALLOW", "answer", false))
	assert.Equal(t, 1, store.saved.TotalRequests)

	reloaded, err := NewState(store)
	require.NoError(t, err)
	assert.Equal(t, 1, reloaded.GetMetrics().TotalRequests)
}
