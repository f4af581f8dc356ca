package harness

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/bodhisearch/llamacheck/cmd/utils"
)

// RunReport is the record of one compatibility run: what hardware was
// probed, which variant was selected, and how each check fared.
type RunReport struct {
	ID         string        `json:"id"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Release    string        `json:"release,omitempty"`
	Variant    string        `json:"variant,omitempty"`
	Binary     string        `json:"binary,omitempty"`
	Model      string        `json:"model,omitempty"`
	Features   []string      `json:"features"`
	System     *SystemInfo   `json:"system,omitempty"`
	Checks     []CheckResult `json:"checks"`
	Outcome    string        `json:"outcome"`
	Failure    string        `json:"failure,omitempty"`
}

// Run outcomes.
const (
	OutcomePass          = "pass"
	OutcomeFail          = "fail"
	OutcomeCPUIncompat   = "cpu-incompatible"
	OutcomeStartupFailed = "startup-failed"
)

// NewRunReport starts a report for a run beginning now.
func NewRunReport() *RunReport {
	return &RunReport{
		ID:        uuid.NewString(),
		StartedAt: time.Now().UTC(),
	}
}

// Finish stamps the end time and derives the outcome from the check results
// unless a failure was already recorded.
func (r *RunReport) Finish() {
	r.FinishedAt = time.Now().UTC()
	if r.Outcome != "" {
		return
	}
	r.Outcome = OutcomePass
	for _, c := range r.Checks {
		if !c.Passed {
			r.Outcome = OutcomeFail
			return
		}
	}
}

// Fail records a failed run with one of the Outcome constants.
func (r *RunReport) Fail(outcome, detail string) {
	r.Outcome = outcome
	r.Failure = detail
}

// TotalDuration is the wall-clock time of the run.
func (r *RunReport) TotalDuration() time.Duration {
	if r.FinishedAt.IsZero() {
		return time.Since(r.StartedAt)
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Save writes the report as JSON into the reports cache directory and
// returns the file path.
func (r *RunReport) Save() (string, error) {
	dir, err := utils.GetReportsDir()
	if err != nil {
		return "", err
	}
	if err := utils.EnsureDir(dir); err != nil {
		return "", err
	}
	path := filepath.Join(dir, fmt.Sprintf("run-%s-%s.json", r.StartedAt.Format("20060102-150405"), r.ID[:8]))
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode report: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to save report: %w", err)
	}
	return path, nil
}
