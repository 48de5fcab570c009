package report

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/imamik/solk8s/internal/orchestration"
	"github.com/imamik/solk8s/internal/verify"
)

// Verification is the verifier outcome of a run.
type Verification struct {
	Skipped bool           `json:"skipped,omitempty"`
	Passed  bool           `json:"passed"`
	Error   string         `json:"error,omitempty"`
	Result  *verify.Result `json:"result,omitempty"`
}

// Report describes one deployment run.
type Report struct {
	RunID        string                       `json:"runId"`
	Namespace    string                       `json:"namespace"`
	ArtifactID   string                       `json:"artifactId,omitempty"`
	GenesisHash  string                       `json:"genesisHash,omitempty"`
	ShredVersion uint16                       `json:"shredVersion,omitempty"`
	StartedAt    time.Time                    `json:"startedAt"`
	FinishedAt   time.Time                    `json:"finishedAt"`
	Status       *orchestration.ClusterStatus `json:"status,omitempty"`
	Verification *Verification                `json:"verification,omitempty"`
	Error        string                       `json:"error,omitempty"`

	clock clockwork.Clock
}

// New starts a report for a run in namespace.
func New(namespace string, clock clockwork.Clock) *Report {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Report{
		RunID:     uuid.NewString(),
		Namespace: namespace,
		StartedAt: clock.Now().UTC(),
		clock:     clock,
	}
}

// SetGenesis records the shared genesis of the run.
func (r *Report) SetGenesis(artifactID, hash string, shredVersion uint16) {
	r.ArtifactID = artifactID
	r.GenesisHash = hash
	r.ShredVersion = shredVersion
}

// SetVerification records the verifier outcome. A nil result with a nil
// error marks verification as skipped.
func (r *Report) SetVerification(res *verify.Result, err error) {
	v := &Verification{Result: res}
	switch {
	case res == nil && err == nil:
		v.Skipped = true
	case err != nil:
		v.Error = err.Error()
	default:
		v.Passed = true
	}
	r.Verification = v
}

// Finish records the terminal status and the run error, if any.
func (r *Report) Finish(status *orchestration.ClusterStatus, err error) {
	r.Status = status
	if err != nil {
		r.Error = err.Error()
	}
	r.FinishedAt = r.clock.Now().UTC()
}

// Duration is the wall time of the run.
func (r *Report) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Success reports whether the cluster converged and verification did not
// fail.
func (r *Report) Success() bool {
	if r.Status == nil || !r.Status.Converged() || r.Error != "" {
		return false
	}
	return r.Verification == nil || r.Verification.Skipped || r.Verification.Passed
}

// JSON returns the indented JSON encoding of the report.
func (r *Report) JSON() ([]byte, error) {
	return json.MarshalIndent(r, "", "  ")
}
