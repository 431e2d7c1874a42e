package runinfo

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vocdoni/evote-verifier/anomaly"
	"github.com/vocdoni/evote-verifier/catalog"
	"github.com/vocdoni/evote-verifier/types"
)

func TestSnapshotIsIndependentCopy(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	info := New("/data/run1", types.PhaseSetup, Parameters{MaxConcurrency: 2}, now)

	info.SetStatus("01.01", catalog.StatusRunning)
	snap1 := info.Snapshot()

	info.SetStatus("01.01", catalog.StatusSuccess)
	require.Equal(t, catalog.StatusRunning, snap1.Statuses["01.01"], "earlier snapshot must not observe later mutation")

	snap2 := info.Snapshot()
	require.Equal(t, catalog.StatusSuccess, snap2.Statuses["01.01"])
}

func TestOverallStatusPriority(t *testing.T) {
	now := time.Now()
	loc := anomaly.Location{Phase: "Setup", VerificationID: "x"}

	success := Snapshot{}
	require.Equal(t, catalog.StatusSuccess, success.OverallStatus())

	failureOnly := Snapshot{Anomalies: []anomaly.Anomaly{anomaly.NewFailure(loc, "bad")}}
	require.Equal(t, catalog.StatusFinishedWithFailures, failureOnly.OverallStatus())

	withError := Snapshot{Anomalies: []anomaly.Anomaly{
		anomaly.NewFailure(loc, "bad"),
		anomaly.NewError(loc, nil),
	}}
	require.Equal(t, catalog.StatusFinishedWithErrors, withError.OverallStatus())
	_ = now
}

func TestFinishSetsEndedAt(t *testing.T) {
	start := time.Now()
	info := New("/data/run1", types.PhaseTally, Parameters{}, start)
	require.Nil(t, info.Snapshot().EndedAt)

	end := start.Add(time.Second)
	info.Finish(end)

	snap := info.Snapshot()
	require.NotNil(t, snap.EndedAt)
	require.True(t, snap.EndedAt.Equal(end))
}
