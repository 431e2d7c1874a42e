package report

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/vocdoni/evote-verifier/anomaly"
	"github.com/vocdoni/evote-verifier/catalog"
)

type recordingSink struct {
	anomalies []anomaly.Anomaly
	statuses  []catalog.Status
	progress  [][2]int
}

func (r *recordingSink) OnAnomaly(a anomaly.Anomaly)            { r.anomalies = append(r.anomalies, a) }
func (r *recordingSink) OnStatusChange(_ string, s catalog.Status) { r.statuses = append(r.statuses, s) }
func (r *recordingSink) OnProgress(done, total int)             { r.progress = append(r.progress, [2]int{done, total}) }

func TestMultiSinkFansOutToEveryMember(t *testing.T) {
	a := &recordingSink{}
	b := &recordingSink{}
	m := NewMultiSink(a, b)

	loc := anomaly.Location{Phase: "Setup", VerificationID: "01.01"}
	m.OnAnomaly(anomaly.NewFailure(loc, "bad"))
	m.OnStatusChange("01.01", catalog.StatusSuccess)
	m.OnProgress(1, 2)

	for _, s := range []*recordingSink{a, b} {
		require.Len(t, s.anomalies, 1)
		require.Equal(t, []catalog.Status{catalog.StatusSuccess}, s.statuses)
		require.Equal(t, [][2]int{{1, 2}}, s.progress)
	}
}

func TestMultiSinkWithNoMembersDoesNothing(t *testing.T) {
	m := NewMultiSink()
	require.NotPanics(t, func() {
		m.OnAnomaly(anomaly.NewFailure(anomaly.Location{}, "x"))
		m.OnStatusChange("id", catalog.StatusSuccess)
		m.OnProgress(0, 0)
	})
}

func TestConsoleSinkDoesNotPanic(t *testing.T) {
	s := NewConsoleSink()
	loc := anomaly.Location{Phase: "Tally", VerificationID: "06.01"}
	require.NotPanics(t, func() {
		s.OnAnomaly(anomaly.NewFailure(loc, "bad"))
		s.OnAnomaly(anomaly.NewError(loc, nil))
		s.OnStatusChange("06.01", catalog.StatusRunning)
		s.OnProgress(3, 10)
	})
}
