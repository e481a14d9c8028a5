package metrics

import "time"

// NoopRecorder is a no-op implementation of Recorder for use in tests.
type NoopRecorder struct{}

func (n *NoopRecorder) RecordGitHubCall(_ string, _ error, _ time.Duration) {}

func (n *NoopRecorder) RecordCatalogRefresh(_ error, _ time.Duration, _ int) {}

func (n *NoopRecorder) RecordStar(_ bool) {}
