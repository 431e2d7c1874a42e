// Package scheduler drives one verification run end to end (spec.md §4.5):
// resolve the selected ids for a phase, order them by declared dependency,
// group them into waves so independent verifications run concurrently, and
// dispatch each wave bounded by a fixed concurrency budget, same idiom as
// the teacher module's service/artifacts.go use of errgroup.WithContext.
package scheduler

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/vocdoni/evote-verifier/anomaly"
	"github.com/vocdoni/evote-verifier/catalog"
	"github.com/vocdoni/evote-verifier/dataset"
	"github.com/vocdoni/evote-verifier/report"
	"github.com/vocdoni/evote-verifier/runinfo"
	"github.com/vocdoni/evote-verifier/trust"
	"github.com/vocdoni/evote-verifier/types"
	"github.com/vocdoni/evote-verifier/verification"
)

// nowFunc is the clock a run's recorded timestamps are taken from; tests
// can replace it to make them deterministic. It defaults to the real wall
// clock.
var nowFunc = realNow

// Run executes every selected verification for phase against ds, in
// dependency order, bounded by params.MaxConcurrency, and returns the
// completed run's aggregate. sink may be nil, in which case no progress is
// reported as the run executes (only the returned RunInformation records
// it).
func Run(ctx context.Context, ds *dataset.Dataset, tr trust.Verifier, phase types.Phase, params runinfo.Parameters, sink report.Sink) (*runinfo.RunInformation, error) {
	if sink == nil {
		sink = report.NewMultiSink()
	}

	info := runinfo.New(ds.Root(), phase, params, nowFunc())
	defer info.Finish(nowFunc())

	excluded := make(map[string]bool, len(params.Excluded))
	for _, id := range params.Excluded {
		excluded[id] = true
	}

	selected := selectIDs(phase, excluded)
	waves, err := waveOrder(selected)
	if err != nil {
		return info, fmt.Errorf("scheduler: %w", err)
	}

	anomalies := &anomaly.Set{}
	completedOK := make(map[string]bool, len(selected))
	done, total := 0, len(selected)

	for _, wave := range waves {
		if err := ctx.Err(); err != nil {
			for _, id := range wave {
				recordSkip(info, sink, anomalies, phase, id, "run cancelled before this verification started")
			}
			done += len(wave)
			sink.OnProgress(done, total)
			continue
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(maxConcurrency(params.MaxConcurrency))

		waveStart := make(map[string]int, len(wave))
		for _, id := range wave {
			id := id
			d, _ := catalog.Get(id)

			if missing := missingDependency(d, completedOK, excluded); missing != "" {
				recordSkip(info, sink, anomalies, phase, id, fmt.Sprintf("missing dependency %s", missing))
				continue
			}

			waveStart[id] = anomalies.Len()
			g.Go(func() error {
				runOne(gctx, ds, tr, phase, *d, params.MaxConcurrency, info, sink, anomalies)
				return nil
			})
		}
		_ = g.Wait()

		for _, id := range wave {
			if _, ran := waveStart[id]; !ran {
				continue
			}
			if !anomaliesReferenceError(anomalies, phase, id) {
				completedOK[id] = true
			}
		}
		done += len(wave)
		sink.OnProgress(done, total)
	}

	for _, a := range anomalies.Items() {
		info.AppendAnomaly(a)
	}
	return info, nil
}

// runOne executes one descriptor's body inside a panic-recovering wrapper
// (spec.md §5/§7: a verification that panics becomes an Error anomaly, it
// never takes the whole run down) and reports the resulting status.
func runOne(ctx context.Context, ds *dataset.Dataset, tr trust.Verifier, phase types.Phase, d catalog.Descriptor, maxWorkers int, info *runinfo.RunInformation, sink report.Sink, anomalies *anomaly.Set) {
	info.SetStatus(d.ID, catalog.StatusRunning)
	sink.OnStatusChange(d.ID, catalog.StatusRunning)

	func() {
		defer func() {
			if r := recover(); r != nil {
				anomalies.Append(anomaly.NewError(anomaly.Location{Phase: string(phase), VerificationID: d.ID},
					fmt.Errorf("verification panicked: %v", r)))
			}
		}()

		vc := verification.New(ctx, ds, tr, string(phase), d.ID, maxWorkers, anomalies)
		if err := d.Body(vc); err != nil {
			anomalies.Append(anomaly.NewError(anomaly.Location{Phase: string(phase), VerificationID: d.ID}, err))
		}
	}()

	// Filter by id rather than taking a positional slice of the shared set:
	// concurrent peers in the same wave append into anomalies too (every
	// verification.Ctx shares it), so a positional window can include a
	// peer's anomalies. Each descriptor id runs exactly once per Run call,
	// so its own anomalies are exactly those whose Location names it.
	own := ownAnomalies(anomalies, phase, d.ID)
	for _, a := range own {
		sink.OnAnomaly(a)
	}

	status := catalog.StatusSuccess
	for _, a := range own {
		switch a.Kind {
		case anomaly.Error:
			status = catalog.StatusFinishedWithErrors
		case anomaly.Failure:
			if status != catalog.StatusFinishedWithErrors {
				status = catalog.StatusFinishedWithFailures
			}
		}
	}
	info.SetStatus(d.ID, status)
	sink.OnStatusChange(d.ID, status)
}

// ownAnomalies returns the anomalies in anomalies located at phase/id, in
// append order.
func ownAnomalies(anomalies *anomaly.Set, phase types.Phase, id string) []anomaly.Anomaly {
	var own []anomaly.Anomaly
	for _, a := range anomalies.Items() {
		if a.Location.Phase == string(phase) && a.Location.VerificationID == id {
			own = append(own, a)
		}
	}
	return own
}

func recordSkip(info *runinfo.RunInformation, sink report.Sink, anomalies *anomaly.Set, phase types.Phase, id, reason string) {
	a := anomaly.NewError(anomaly.Location{Phase: string(phase), VerificationID: id}, fmt.Errorf("%s", reason))
	anomalies.Append(a)
	sink.OnAnomaly(a)
	info.SetStatus(id, catalog.StatusFinishedWithErrors)
	sink.OnStatusChange(id, catalog.StatusFinishedWithErrors)
}

func anomaliesReferenceError(anomalies *anomaly.Set, phase types.Phase, id string) bool {
	for _, a := range anomalies.Items() {
		if a.Location.Phase == string(phase) && a.Location.VerificationID == id && a.Kind == anomaly.Error {
			return true
		}
	}
	return false
}

// missingDependency returns the id of the first declared dependency that is
// either excluded from this run or not yet successfully completed, or ""
// if every dependency is satisfied.
func missingDependency(d *catalog.Descriptor, completedOK map[string]bool, excluded map[string]bool) string {
	if d == nil {
		return "unknown"
	}
	for _, dep := range d.Dependencies {
		if excluded[dep] {
			return dep
		}
		if !completedOK[dep] {
			return dep
		}
	}
	return ""
}

// selectIDs returns every id registered for phase, excluding
// StatusNotImplemented descriptors and anything in excluded (spec.md §4.5
// step 1).
func selectIDs(phase types.Phase, excluded map[string]bool) []string {
	var ids []string
	for _, d := range catalog.ByPhase(phase) {
		if d.Status == catalog.StatusNotImplemented {
			continue
		}
		if excluded[d.ID] {
			continue
		}
		ids = append(ids, d.ID)
	}
	return ids
}

// waveOrder groups ids into waves: wave 0 holds every id with no
// (in-selection) dependency, wave 1 holds every id whose dependencies are
// all in wave 0, and so on. Every id within a wave can run concurrently.
// It reuses catalog.TopologicalOrder's cycle detection by computing a flat
// order first and erroring out identically on a cycle.
func waveOrder(ids []string) ([][]string, error) {
	if _, err := catalog.TopologicalOrder(ids); err != nil {
		return nil, err
	}

	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}

	depth := make(map[string]int, len(ids))
	var resolve func(id string) int
	resolve = func(id string) int {
		if d, ok := depth[id]; ok {
			return d
		}
		descriptor, ok := catalog.Get(id)
		if !ok {
			depth[id] = 0
			return 0
		}
		max := -1
		for _, dep := range descriptor.Dependencies {
			if !set[dep] {
				continue
			}
			if dd := resolve(dep); dd > max {
				max = dd
			}
		}
		depth[id] = max + 1
		return depth[id]
	}

	maxDepth := 0
	for _, id := range ids {
		if d := resolve(id); d > maxDepth {
			maxDepth = d
		}
	}

	waves := make([][]string, maxDepth+1)
	for _, id := range ids {
		d := depth[id]
		waves[d] = append(waves[d], id)
	}
	return waves, nil
}

func maxConcurrency(n int) int {
	if n < 1 {
		return 1
	}
	return n
}
