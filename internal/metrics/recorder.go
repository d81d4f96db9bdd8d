// Package metrics records render and preview activity. Components hold a
// Recorder and default to NoopRecorder, so no nil checks are needed.
package metrics

import "time"

// ResultLabel enumerates render outcomes for counters.
type ResultLabel string

const (
	ResultSuccess ResultLabel = "success"
	ResultFailed  ResultLabel = "failed"
)

// Recorder receives render and preview metrics.
type Recorder interface {
	ObserveRender(format string, d time.Duration, bytes int64, tokens int)
	IncRenderResult(format string, result ResultLabel)
	IncReload()
	SetClients(n int)
}

// NoopRecorder is a Recorder that does nothing.
type NoopRecorder struct{}

func (NoopRecorder) ObserveRender(string, time.Duration, int64, int) {}
func (NoopRecorder) IncRenderResult(string, ResultLabel)             {}
func (NoopRecorder) IncReload()                                      {}
func (NoopRecorder) SetClients(int)                                  {}

// Result maps an error to its ResultLabel.
func Result(err error) ResultLabel {
	if err != nil {
		return ResultFailed
	}
	return ResultSuccess
}
