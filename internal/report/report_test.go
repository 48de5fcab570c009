package report

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/imamik/solk8s/internal/orchestration"
	"github.com/imamik/solk8s/internal/verify"
)

func convergedStatus() *orchestration.ClusterStatus {
	return &orchestration.ClusterStatus{
		Outcome:        orchestration.OutcomeConverged,
		NodeCount:      2,
		ValidatorCount: 2,
		Ready:          []string{"bootstrap-validator", "validator-0"},
	}
}

func TestNew(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClockAt(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	r := New("solana", clock)

	_, err := uuid.Parse(r.RunID)
	require.NoError(t, err)
	assert.Equal(t, "solana", r.Namespace)
	assert.Equal(t, clock.Now(), r.StartedAt)
	assert.Zero(t, r.Duration())

	clock.Advance(90 * time.Second)
	r.Finish(convergedStatus(), nil)
	assert.Equal(t, 90*time.Second, r.Duration())
	assert.Empty(t, r.Error)

	assert.NotEqual(t, r.RunID, New("solana", clock).RunID)
}

func TestSetVerification(t *testing.T) {
	t.Parallel()

	r := New("solana", nil)

	r.SetVerification(nil, nil)
	assert.True(t, r.Verification.Skipped)

	res := &verify.Result{ExpectedNodes: 2, ObservedNodes: 1}
	r.SetVerification(res, &verify.VerificationError{Expected: 2, Observed: 1})
	assert.False(t, r.Verification.Passed)
	assert.Contains(t, r.Verification.Error, "expected 2 gossip peers, observed 1")
	assert.Same(t, res, r.Verification.Result)

	r.SetVerification(&verify.Result{ExpectedNodes: 2, ObservedNodes: 2}, nil)
	assert.True(t, r.Verification.Passed)
}

func TestSuccess(t *testing.T) {
	t.Parallel()

	partial := &orchestration.ClusterStatus{Outcome: orchestration.OutcomePartiallyConverged}

	tests := []struct {
		name   string
		status *orchestration.ClusterStatus
		err    error
		verify func(r *Report)
		want   bool
	}{
		{name: "converged, not verified", status: convergedStatus(), want: true},
		{name: "converged, skipped", status: convergedStatus(), verify: func(r *Report) { r.SetVerification(nil, nil) }, want: true},
		{name: "converged, verified", status: convergedStatus(), verify: func(r *Report) { r.SetVerification(&verify.Result{}, nil) }, want: true},
		{name: "converged, verification failed", status: convergedStatus(), verify: func(r *Report) { r.SetVerification(nil, errors.New("mismatch")) }},
		{name: "partial", status: partial},
		{name: "no status", status: nil},
		{name: "run error", status: convergedStatus(), err: errors.New("interrupted")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := New("solana", nil)
			if tt.verify != nil {
				tt.verify(r)
			}
			r.Finish(tt.status, tt.err)
			assert.Equal(t, tt.want, r.Success())
		})
	}
}

func TestFileSink(t *testing.T) {
	t.Parallel()

	r := New("solana", nil)
	r.SetGenesis("abc123", "GenesisHash111", 4711)
	r.Finish(convergedStatus(), nil)

	path := filepath.Join(t.TempDir(), "reports", "run.json")
	require.NoError(t, FileSink{Path: path}.Write(context.Background(), r))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, r.RunID, decoded["runId"])
	assert.Equal(t, "GenesisHash111", decoded["genesisHash"])
	assert.Equal(t, float64(4711), decoded["shredVersion"])
	status := decoded["status"].(map[string]any)
	assert.Equal(t, "Converged", status["outcome"])
	assert.NotContains(t, decoded, "clock")
}

type recordingSink struct {
	err    error
	writes int
}

func (s *recordingSink) Write(context.Context, *Report) error {
	s.writes++
	return s.err
}

func TestMultiSink(t *testing.T) {
	t.Parallel()

	first := &recordingSink{err: errors.New("disk full")}
	second := &recordingSink{}
	third := &recordingSink{err: errors.New("access denied")}

	err := MultiSink{first, second, third}.Write(context.Background(), New("solana", nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Contains(t, err.Error(), "access denied")
	assert.Equal(t, 1, second.writes, "a failing sink does not stop the others")

	assert.NoError(t, MultiSink{second}.Write(context.Background(), New("solana", nil)))
}
