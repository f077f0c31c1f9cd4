// Package report records what one pipeline run did: ordered steps, errors
// tagged with their source stage, and produced artifacts.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Step is one completed pipeline stage.
type Step struct {
	Name string         `json:"name"`
	Meta map[string]any `json:"meta,omitempty"`
	At   time.Time      `json:"ts"`
}

// RunError is a failure recorded against a stage. The run may continue
// past non-fatal stages.
type RunError struct {
	Where   string `json:"where"`
	Message string `json:"err"`
}

// Artifact is an output file produced by the run.
type Artifact struct {
	Path string `json:"path"`
	Kind string `json:"kind"`
}

// RunReport is an append-only record owned by the orchestrator.
type RunReport struct {
	RunID     string     `json:"run_id"`
	StartedAt time.Time  `json:"started_at"`
	Steps     []Step     `json:"steps"`
	Errors    []RunError `json:"errors"`
	Artifacts []Artifact `json:"artifacts"`
}

// New creates an empty report with a fresh run ID.
func New() *RunReport {
	return &RunReport{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
	}
}

// AddStep records a completed stage.
func (r *RunReport) AddStep(name string, meta map[string]any) {
	r.Steps = append(r.Steps, Step{Name: name, Meta: meta, At: time.Now().UTC()})
}

// AddError records a failure against a stage.
func (r *RunReport) AddError(where string, err error) {
	r.Errors = append(r.Errors, RunError{Where: where, Message: err.Error()})
}

// AddArtifact records an output file.
func (r *RunReport) AddArtifact(path, kind string) {
	r.Artifacts = append(r.Artifacts, Artifact{Path: path, Kind: kind})
}

// HasErrors reports whether any stage recorded a failure.
func (r *RunReport) HasErrors() bool { return len(r.Errors) > 0 }

// ToJSON writes the report as an indented JSON document.
func (r *RunReport) ToJSON(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal run report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write run report: %w", err)
	}
	return nil
}

// SummaryText renders a human-readable run summary.
func (r *RunReport) SummaryText() string {
	var b strings.Builder
	b.WriteString("=== cropcube Run Summary ===\n")
	fmt.Fprintf(&b, "Run: %s\n", r.RunID)
	fmt.Fprintf(&b, "Steps: %d | Artifacts: %d | Errors: %d\n", len(r.Steps), len(r.Artifacts), len(r.Errors))
	for _, s := range r.Steps {
		fmt.Fprintf(&b, "  * %s - %s\n", s.At.Format(time.RFC3339), s.Name)
	}
	if len(r.Artifacts) > 0 {
		b.WriteString("Artifacts:\n")
		for _, a := range r.Artifacts {
			fmt.Fprintf(&b, "  - [%s] %s\n", a.Kind, a.Path)
		}
	}
	if len(r.Errors) > 0 {
		b.WriteString("Errors:\n")
		for _, e := range r.Errors {
			fmt.Fprintf(&b, "  - %s: %s\n", e.Where, e.Message)
		}
	}
	return b.String()
}
