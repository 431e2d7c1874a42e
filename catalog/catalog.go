// Package catalog is the static registry of verifications: for every id
// known to the engine it records its human name, phase, category,
// declared dependencies and an executable body. There is no interface
// hierarchy here — a Descriptor is a tagged record and Body is a plain
// function value (a dispatch table, not virtual dispatch).
package catalog

import (
	"context"
	"fmt"
	"sort"

	"github.com/vocdoni/evote-verifier/anomaly"
	"github.com/vocdoni/evote-verifier/dataset"
	"github.com/vocdoni/evote-verifier/trust"
	"github.com/vocdoni/evote-verifier/types"
)

// Category is the recurring verification shape a descriptor belongs to.
type Category string

const (
	Authentication Category = "Authentication"
	Consistency    Category = "Consistency"
	Integrity      Category = "Integrity"
	Evidence       Category = "Evidence"
	Completeness   Category = "Completeness"
)

// Status is a descriptor's lifecycle state. NotImplemented and the three
// terminal run outcomes are assigned only by the scheduler (or, for
// NotImplemented, once at registration).
type Status string

const (
	StatusNotImplemented       Status = "Not Implemented"
	StatusReady                Status = "Ready"
	StatusRunning              Status = "Running"
	StatusSuccess              Status = "Success"
	StatusFinishedWithFailures Status = "FinishedWithFailures"
	StatusFinishedWithErrors   Status = "FinishedWithErrors"
)

// Verifier is the executable body of a descriptor. It receives a
// verification-scoped context and produces anomalies into it; it never
// returns a verdict directly.
type Verifier func(ctx VerificationContext) error

// VerificationContext is the contract every Verifier body runs against
// (spec.md §4.4). It is declared here, rather than in the verification
// package, so that registering a verification does not require importing
// the package that implements VerificationContext — avoiding a cycle
// between catalog and verification.
type VerificationContext interface {
	// Dataset gives read-only access to the dataset view (C1).
	Dataset() *dataset.Dataset
	// Trust gives access to the signature/trust boundary (C9).
	Trust() trust.Verifier
	// AppendFailure records a Failure-kind anomaly at loc.
	AppendFailure(loc anomaly.Location, format string, args ...any)
	// AppendError records an Error-kind anomaly at loc wrapping cause.
	AppendError(loc anomaly.Location, cause error)
	// ParallelFor splits [0, n) into chunks of at most chunkSize and runs
	// body over each chunk concurrently, respecting the engine's
	// concurrency budget and cooperative cancellation via ctx.
	ParallelFor(ctx context.Context, n, chunkSize int, body func(lo, hi int))
	// Location builds a Location rooted at this verification's id and
	// phase, so bodies never have to thread those two fields by hand.
	Location() anomaly.Location
	// Context returns the run's cancellation context, so a body's own
	// ParallelFor calls observe the same cooperative-cancellation signal
	// the scheduler checks at wave boundaries (spec.md §5).
	Context() context.Context
}

// Descriptor is one catalog entry.
type Descriptor struct {
	ID           string
	Name         string
	Phase        types.Phase
	Category     Category
	Dependencies []string
	Body         Verifier
	Status       Status
}

var registry = map[string]*Descriptor{}

// Register adds d to the catalog. It is called from package init() in the
// verification/setup and verification/tally packages; calling it after
// catalog initialization (outside of an init()) is a programming error.
func Register(d Descriptor) {
	if d.Status == "" {
		d.Status = StatusReady
	}
	cp := d
	registry[d.ID] = &cp
}

// MustValidate checks the registry for dependencies on unknown ids and for
// dependency cycles (duplicate ids cannot occur, map keys are unique by
// construction), panicking on either: per spec.md §7, catalog construction
// errors are the only hard-fail path and they must surface at engine
// startup, not mid-run.
func MustValidate() {
	if err := validate(); err != nil {
		panic(err)
	}
}

func validate() error {
	for id, d := range registry {
		for _, dep := range d.Dependencies {
			if _, ok := registry[dep]; !ok {
				return fmt.Errorf("catalog: verification %s declares unknown dependency %s", id, dep)
			}
		}
	}
	if _, err := TopologicalOrder(allIDs()); err != nil {
		return fmt.Errorf("catalog: %w", err)
	}
	return nil
}

func allIDs() []string {
	ids := make([]string, 0, len(registry))
	for id := range registry {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Get returns the descriptor for id, or nil if unknown.
func Get(id string) (*Descriptor, bool) {
	d, ok := registry[id]
	return d, ok
}

// ByPhase returns every descriptor registered for phase, sorted by id for
// deterministic listing (spec.md §6 listVerifications).
func ByPhase(phase types.Phase) []Descriptor {
	var out []Descriptor
	for _, d := range registry {
		if d.Phase == phase {
			out = append(out, *d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// TopologicalOrder computes a dependency-respecting order over ids using
// Kahn's algorithm, restricted to the given id set (dependencies outside
// the set are ignored by the caller's responsibility — the scheduler
// handles "missing dependency" itself). It returns an error if a cycle is
// detected among ids.
func TopologicalOrder(ids []string) ([]string, error) {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}

	indegree := make(map[string]int, len(ids))
	dependents := make(map[string][]string, len(ids))
	for _, id := range ids {
		indegree[id] = 0
	}
	for _, id := range ids {
		d, ok := registry[id]
		if !ok {
			continue
		}
		for _, dep := range d.Dependencies {
			if !set[dep] {
				continue
			}
			indegree[id]++
			dependents[dep] = append(dependents[dep], id)
		}
	}

	var queue []string
	for _, id := range ids {
		if indegree[id] == 0 {
			queue = append(queue, id)
		}
	}
	sort.Strings(queue)

	var order []string
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		order = append(order, next)

		var freed []string
		for _, dependent := range dependents[next] {
			indegree[dependent]--
			if indegree[dependent] == 0 {
				freed = append(freed, dependent)
			}
		}
		sort.Strings(freed)
		queue = append(queue, freed...)
	}

	if len(order) != len(ids) {
		return nil, fmt.Errorf("dependency cycle detected among verifications")
	}
	return order, nil
}
