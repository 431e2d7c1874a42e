// Package report defines the Sink interface findings and status
// transitions are pushed through (spec.md §4.8), plus two concrete sinks:
// a zerolog-backed console sink and a fan-out multi-sink. Report sinks
// only consume structured findings; formatting and persistence policy are
// explicitly out of scope for the engine itself (spec.md §1).
package report

import (
	"github.com/vocdoni/evote-verifier/anomaly"
	"github.com/vocdoni/evote-verifier/catalog"
	"github.com/vocdoni/evote-verifier/log"
)

// Sink receives progress pushed by the scheduler as a run executes.
type Sink interface {
	OnAnomaly(a anomaly.Anomaly)
	OnStatusChange(id string, status catalog.Status)
	OnProgress(done, total int)
}

// ConsoleSink logs every event through the package-level zerolog logger,
// one line per event: Error anomalies at error level, Failure anomalies at
// warn level, status changes and progress at info level.
type ConsoleSink struct {
	logger log.Logger
}

// NewConsoleSink returns a ConsoleSink.
func NewConsoleSink() *ConsoleSink {
	return &ConsoleSink{logger: log.New("report")}
}

// OnAnomaly implements Sink.
func (s *ConsoleSink) OnAnomaly(a anomaly.Anomaly) {
	if a.Kind == anomaly.Error {
		s.logger.Errorw(a.Message, "location", a.Location.String())
		return
	}
	s.logger.Warnw(a.Message, "location", a.Location.String())
}

// OnStatusChange implements Sink.
func (s *ConsoleSink) OnStatusChange(id string, status catalog.Status) {
	s.logger.Infow("verification status changed", "id", id, "status", string(status))
}

// OnProgress implements Sink.
func (s *ConsoleSink) OnProgress(done, total int) {
	s.logger.Infow("progress", "done", done, "total", total)
}

// MultiSink fans out every event to every member sink, in order, so a
// driver can attach several external sinks to one run ("one or more
// external sinks", spec.md §4.8).
type MultiSink struct {
	Sinks []Sink
}

// NewMultiSink returns a MultiSink fanning out to sinks.
func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// OnAnomaly implements Sink.
func (m *MultiSink) OnAnomaly(a anomaly.Anomaly) {
	for _, s := range m.Sinks {
		s.OnAnomaly(a)
	}
}

// OnStatusChange implements Sink.
func (m *MultiSink) OnStatusChange(id string, status catalog.Status) {
	for _, s := range m.Sinks {
		s.OnStatusChange(id, status)
	}
}

// OnProgress implements Sink.
func (m *MultiSink) OnProgress(done, total int) {
	for _, s := range m.Sinks {
		s.OnProgress(done, total)
	}
}

var (
	_ Sink = (*ConsoleSink)(nil)
	_ Sink = (*MultiSink)(nil)
)
