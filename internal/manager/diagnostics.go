package manager

import (
	"context"
	"strings"
	"time"

	"github.com/shannai37/github-star-plugin/internal/config"
	"github.com/shannai37/github-star-plugin/pkg/endpoint"
)

// NetworkReport is the result of a connectivity test.
type NetworkReport struct {
	Endpoints []endpoint.Health
	// Best is the preferred endpoint, empty when none is reachable.
	Best string
}

// Reachable returns the number of reachable endpoints.
func (r *NetworkReport) Reachable() int {
	n := 0

	for _, h := range r.Endpoints {
		if h.Reachable {
			n++
		}
	}

	return n
}

// TestNetwork probes every API endpoint and reorders them by latency.
func (m *Manager) TestNetwork(ctx context.Context, userID string) (*NetworkReport, error) {
	if err := m.authorize(userID); err != nil {
		return nil, err
	}

	health := m.selector.Probe(ctx)
	report := &NetworkReport{Endpoints: health}

	best := m.selector.Select()
	for _, h := range health {
		if h.URL == best && h.Reachable {
			report.Best = best
		}
	}

	m.logger.Info("network test finished", "reachable", report.Reachable(), "endpoints", len(health), "best", report.Best)

	return report, nil
}

// ProbeEndpoints re-measures the API endpoints so that an endpoint demoted
// after a failed request is preferred again once it answers. Without mirrors
// there is nothing to reorder and no request is made.
func (m *Manager) ProbeEndpoints(ctx context.Context) []endpoint.Health {
	if !m.selector.FallbackEnabled() || len(m.selector.Health()) < 2 {
		return nil
	}

	before := m.selector.Select()
	health := m.selector.Probe(ctx)

	if after := m.selector.Select(); after != before {
		m.logger.Info("preferred api endpoint changed", "from", before, "to", after)
	}

	return health
}

// DebugInfo is a snapshot of the manager state for troubleshooting.
type DebugInfo struct {
	UserID           string
	Permitted        bool
	AllowedUsers     string
	Initialized      bool
	CatalogEntries   int
	CatalogAge       time.Duration
	CatalogStale     bool
	LastRefreshError string
	Endpoints        []endpoint.Health
	Config           config.Config
}

// Debug returns the redacted configuration and cache state.
func (m *Manager) Debug(userID string) (*DebugInfo, error) {
	if err := m.authorize(userID); err != nil {
		return nil, err
	}

	info := &DebugInfo{
		UserID:         userID,
		Permitted:      true,
		AllowedUsers:   m.cfg.AllowedUsers.Describe(),
		Initialized:    m.Initialized(),
		CatalogEntries: m.cache.Len(),
		CatalogAge:     m.cache.Age(),
		CatalogStale:   m.cache.IsStale(),
		Endpoints:      m.selector.Health(),
		Config:         m.cfg.Redacted(),
	}

	if err := m.cache.LastError(); err != nil {
		info.LastRefreshError = err.Error()
	}

	return info, nil
}

func equalRepo(a, b string) bool {
	return a != "" && strings.EqualFold(a, b)
}
