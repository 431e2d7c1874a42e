// Package runinfo is the per-run aggregate (spec.md §4.7): which dataset
// and phase were verified, with what parameters, when, and with which
// per-descriptor status and anomalies. A RunInformation is built once by
// the scheduler and exposed to drivers as an immutable snapshot so no
// caller ever observes a torn read mid-update.
package runinfo

import (
	"sync"
	"time"

	"github.com/vocdoni/evote-verifier/anomaly"
	"github.com/vocdoni/evote-verifier/catalog"
	"github.com/vocdoni/evote-verifier/types"
)

// Parameters is the run's configuration, carried into the snapshot for
// audit purposes (what concurrency bound and exclusion set produced this
// result).
type Parameters struct {
	MaxConcurrency int
	Excluded       []string
}

// RunInformation is the mutable aggregate the scheduler writes into while
// a run is in flight. Use Snapshot to obtain a consistent, immutable copy.
type RunInformation struct {
	mu sync.RWMutex

	Root       string
	Phase      types.Phase
	Parameters Parameters
	StartedAt  time.Time
	EndedAt    *time.Time

	statuses  map[string]catalog.Status
	anomalies *anomaly.Set
}

// New starts a RunInformation for root/phase/params, timestamped now.
func New(root string, phase types.Phase, params Parameters, now time.Time) *RunInformation {
	return &RunInformation{
		Root:       root,
		Phase:      phase,
		Parameters: params,
		StartedAt:  now,
		statuses:   make(map[string]catalog.Status),
		anomalies:  &anomaly.Set{},
	}
}

// SetStatus records the terminal (or Running) status of one descriptor.
func (r *RunInformation) SetStatus(id string, status catalog.Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses[id] = status
}

// AppendAnomaly records a produced anomaly against the run.
func (r *RunInformation) AppendAnomaly(a anomaly.Anomaly) {
	r.anomalies.Append(a)
}

// Finish marks the run complete at the given timestamp.
func (r *RunInformation) Finish(now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.EndedAt = &now
}

// Snapshot is an immutable, point-in-time copy of a RunInformation: safe
// to read from multiple goroutines with no further synchronization, and
// to persist (runinfo/store serializes exactly this type).
type Snapshot struct {
	Root       string
	Phase      types.Phase
	Parameters Parameters
	StartedAt  time.Time
	EndedAt    *time.Time
	Statuses   map[string]catalog.Status
	Anomalies  []anomaly.Anomaly
}

// Snapshot returns a deep copy of the current state (§4.7: callers see
// either the pre- or post-update state, never a tear).
func (r *RunInformation) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	statuses := make(map[string]catalog.Status, len(r.statuses))
	for k, v := range r.statuses {
		statuses[k] = v
	}

	var endedAt *time.Time
	if r.EndedAt != nil {
		t := *r.EndedAt
		endedAt = &t
	}

	return Snapshot{
		Root:       r.Root,
		Phase:      r.Phase,
		Parameters: r.Parameters,
		StartedAt:  r.StartedAt,
		EndedAt:    endedAt,
		Statuses:   statuses,
		Anomalies:  r.anomalies.Items(),
	}
}

// OverallStatus reduces every descriptor's status to one of Success,
// FinishedWithFailures, or FinishedWithErrors (spec.md §7): errors take
// priority over failures, which take priority over a clean success.
func (s Snapshot) OverallStatus() catalog.Status {
	hasError, hasFailure := false, false
	for _, a := range s.Anomalies {
		switch a.Kind {
		case anomaly.Error:
			hasError = true
		case anomaly.Failure:
			hasFailure = true
		}
	}
	switch {
	case hasError:
		return catalog.StatusFinishedWithErrors
	case hasFailure:
		return catalog.StatusFinishedWithFailures
	default:
		return catalog.StatusSuccess
	}
}
