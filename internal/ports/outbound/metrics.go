package outbound

import "time"

// MetricsRecorder receives workflow measurements
type MetricsRecorder interface {
	RecordGeneration(state string, attempts int, duration time.Duration)
	RecordEditorOperation(operation, result string)
	RecordSubmission(result string)
}

// NopMetrics discards all measurements
type NopMetrics struct{}

func (NopMetrics) RecordGeneration(string, int, time.Duration) {}
func (NopMetrics) RecordEditorOperation(string, string)       {}
func (NopMetrics) RecordSubmission(string)                     {}
