package sweep

import (
	"fmt"
	"time"
)

// Kind selects what a sweep extracts.
type Kind string

const (
	// KindAPI indexes API symbols, their cross-plugin references and
	// plugin records.
	KindAPI Kind = "api"
	// KindContracts indexes references to lifecycle contracts only.
	KindContracts Kind = "contracts"
	// KindCode indexes whole-file metrics.
	KindCode Kind = "code"
)

// ParseKind validates a sweep kind name.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case KindAPI, KindContracts, KindCode:
		return k, nil
	}
	return "", fmt.Errorf("unknown sweep kind %q (want api, contracts or code)", s)
}

// Status is the outcome of one snapshot.
type Status string

const (
	StatusSuccess Status = "success"
	// StatusPartial means some entry files, plugins or symbols were
	// skipped but everything else was indexed.
	StatusPartial Status = "partial"
	StatusFailure Status = "failure"
)

// SnapshotResult records what one checkout point produced.
type SnapshotResult struct {
	Point      string    `json:"point"`
	CommitHash string    `json:"commitHash,omitempty"`
	CommitDate time.Time `json:"commitDate,omitempty"`
	Status     Status    `json:"status"`
	Error      string    `json:"error,omitempty"`
	ErrorCode  string    `json:"errorCode,omitempty"`
	Backend    string    `json:"backend,omitempty"`
	Plugins    int       `json:"plugins"`
	Symbols    int       `json:"symbols"`
	References int       `json:"references"`
	Files      int       `json:"files,omitempty"`
	Documents  int       `json:"documents"`
	Skipped    []string  `json:"skipped,omitempty"`
	DurationMs int64     `json:"durationMs"`

	err error
}

// Err returns the error that failed the snapshot.
func (r SnapshotResult) Err() error {
	return r.err
}

// SweepReport summarizes a sweep.
type SweepReport struct {
	ID         string           `json:"id"`
	Kind       Kind             `json:"kind"`
	Repo       string           `json:"repo"`
	StartedAt  time.Time        `json:"startedAt"`
	FinishedAt time.Time        `json:"finishedAt"`
	Results    []SnapshotResult `json:"results"`
}

// Count returns the number of snapshots with the given status.
func (r *SweepReport) Count(s Status) int {
	n := 0
	for _, res := range r.Results {
		if res.Status == s {
			n++
		}
	}
	return n
}

// References returns the total number of facts across snapshots.
func (r *SweepReport) References() int {
	n := 0
	for _, res := range r.Results {
		n += res.References
	}
	return n
}
