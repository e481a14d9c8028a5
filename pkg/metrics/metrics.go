// Package metrics provides Prometheus metrics for the star manager.
package metrics

import "time"

// Recorder defines the interface for recording star manager metrics.
type Recorder interface {
	// RecordGitHubCall records a single GitHub API attempt.
	RecordGitHubCall(operation string, err error, duration time.Duration)

	// RecordCatalogRefresh records a plugin index rebuild and the resulting catalog size.
	RecordCatalogRefresh(err error, duration time.Duration, entries int)

	// RecordStar records the outcome of a star operation.
	RecordStar(success bool)
}
