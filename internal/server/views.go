package server

import (
	"github.com/shannai37/github-star-plugin/internal/manager"
	"github.com/shannai37/github-star-plugin/pkg/batch"
	"github.com/shannai37/github-star-plugin/pkg/catalog"
	"github.com/shannai37/github-star-plugin/pkg/endpoint"
	"github.com/shannai37/github-star-plugin/pkg/reconcile"
	"github.com/shannai37/github-star-plugin/pkg/search"
)

type pluginView struct {
	ID          int      `json:"id,omitempty"`
	Name        string   `json:"name"`
	ShortName   string   `json:"short_name"`
	Repo        string   `json:"repo"`
	Author      string   `json:"author"`
	Description string   `json:"description,omitempty"`
	Stars       int      `json:"stars"`
	Version     string   `json:"version,omitempty"`
	RepoURL     string   `json:"repo_url,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

type searchPageView struct {
	Query      string       `json:"query"`
	Page       int          `json:"page"`
	TotalPages int          `json:"total_pages"`
	Total      int          `json:"total"`
	Results    []pluginView `json:"results"`
}

type starOutcomeView struct {
	Plugin         pluginView `json:"plugin"`
	AlreadyStarred bool       `json:"already_starred"`
	Stars          int        `json:"stars"`
	CheckError     string     `json:"check_error,omitempty"`
}

type starEvent struct {
	User string `json:"user"`
	starOutcomeView
}

type installedView struct {
	ID        int    `json:"id,omitempty"`
	Name      string `json:"name"`
	Version   string `json:"version,omitempty"`
	Kind      string `json:"kind"`
	Repo      string `json:"repo,omitempty"`
	Status    string `json:"status,omitempty"`
	Outdated  bool   `json:"outdated,omitempty"`
	Latest    string `json:"latest,omitempty"`
	Stars     int    `json:"stars,omitempty"`
	Strategy  string `json:"strategy,omitempty"`
	CheckFail string `json:"check_error,omitempty"`
}

type installedPageView struct {
	Page       int               `json:"page"`
	TotalPages int               `json:"total_pages"`
	Summary    reconcile.Summary `json:"summary"`
	Results    []installedView   `json:"results"`
}

type failureView struct {
	Name  string `json:"name"`
	Repo  string `json:"repo"`
	Error string `json:"error"`
}

type batchView struct {
	Succeeded      []string      `json:"succeeded"`
	AlreadyStarred []string      `json:"already_starred"`
	CheckFailed    []string      `json:"check_failed"`
	Failed         []failureView `json:"failed"`
}

type batchEvent struct {
	User string `json:"user"`
	batchView
}

type endpointView struct {
	URL       string `json:"url"`
	Reachable bool   `json:"reachable"`
	LatencyMS int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

type networkView struct {
	Best      string         `json:"best"`
	Reachable int            `json:"reachable"`
	Endpoints []endpointView `json:"endpoints"`
}

type refreshView struct {
	Plugins int    `json:"plugins"`
	Stale   bool   `json:"stale,omitempty"`
	Error   string `json:"error,omitempty"`
}

type debugView struct {
	UserID           string         `json:"user_id"`
	AllowedUsers     string         `json:"allowed_users"`
	Initialized      bool           `json:"initialized"`
	CatalogEntries   int            `json:"catalog_entries"`
	CatalogAgeSec    float64        `json:"catalog_age_seconds"`
	CatalogStale     bool           `json:"catalog_stale"`
	LastRefreshError string         `json:"last_refresh_error,omitempty"`
	Token            string         `json:"github_token"`
	Username         string         `json:"github_username,omitempty"`
	Endpoints        []endpointView `json:"endpoints"`
	IndexURLs        []string       `json:"index_urls"`
}

func toPlugin(id int, e *catalog.Entry) pluginView {
	return pluginView{
		ID:          id,
		Name:        e.Name,
		ShortName:   e.ShortName,
		Repo:        e.FullName,
		Author:      e.Author,
		Description: e.Description,
		Stars:       e.Stars,
		Version:     e.Version,
		RepoURL:     e.RepoURL,
		Tags:        e.Tags,
	}
}

func toSearchPage(p *search.Page) searchPageView {
	out := searchPageView{
		Query:      p.Query,
		Page:       p.Page,
		TotalPages: p.TotalPages,
		Total:      p.Total,
		Results:    make([]pluginView, 0, len(p.Results)),
	}

	for i := range p.Results {
		out.Results = append(out.Results, toPlugin(p.Results[i].DisplayID, &p.Results[i].Entry))
	}

	return out
}

func toStarOutcome(o *manager.StarOutcome) starOutcomeView {
	out := starOutcomeView{
		Plugin:         toPlugin(0, &o.Entry),
		AlreadyStarred: o.AlreadyStarred,
		Stars:          o.Stars,
	}

	if o.CheckErr != nil {
		out.CheckError = o.CheckErr.Error()
	}

	return out
}

func toInstalledPage(p *manager.InstalledPage) installedPageView {
	out := installedPageView{
		Page:       p.Page,
		TotalPages: p.TotalPages,
		Summary:    p.Summary,
		Results:    make([]installedView, 0, len(p.Results)),
	}

	for i := range p.Results {
		res := &p.Results[i]
		v := installedView{
			Name:     res.DisplayName(),
			Version:  res.Installed.Version,
			Kind:     res.Kind.String(),
			Repo:     res.Repo,
			Outdated: res.Outdated,
			Strategy: res.Strategy,
		}

		if _, ok := res.ListingEntry(); ok {
			v.ID = p.FirstID + i
		}

		if res.Entry != nil {
			v.Latest = res.Entry.Version
			v.Stars = res.Entry.Stars
		}

		if res.GitHubBacked() {
			v.Status = res.Status.String()
		}

		if res.Err != nil {
			v.CheckFail = res.Err.Error()
		}

		out.Results = append(out.Results, v)
	}

	return out
}

func toBatchReport(r *batch.Report) batchView {
	out := batchView{
		Succeeded:      nonNil(r.Succeeded),
		AlreadyStarred: nonNil(r.AlreadyStarred),
		CheckFailed:    nonNil(r.CheckFailed),
		Failed:         make([]failureView, 0, len(r.Failed)),
	}

	for _, f := range r.Failed {
		out.Failed = append(out.Failed, failureView{Name: f.Name, Repo: f.Repo, Error: f.Err.Error()})
	}

	return out
}

func toNetworkReport(r *manager.NetworkReport) networkView {
	return networkView{
		Best:      r.Best,
		Reachable: r.Reachable(),
		Endpoints: toEndpoints(r.Endpoints),
	}
}

func toDebugView(info *manager.DebugInfo) debugView {
	return debugView{
		UserID:           info.UserID,
		AllowedUsers:     info.AllowedUsers,
		Initialized:      info.Initialized,
		CatalogEntries:   info.CatalogEntries,
		CatalogAgeSec:    info.CatalogAge.Seconds(),
		CatalogStale:     info.CatalogStale,
		LastRefreshError: info.LastRefreshError,
		Token:            info.Config.GitHubToken,
		Username:         info.Config.GitHubUsername,
		Endpoints:        toEndpoints(info.Endpoints),
		IndexURLs:        info.Config.IndexURLs,
	}
}

func toEndpoints(health []endpoint.Health) []endpointView {
	out := make([]endpointView, 0, len(health))

	for _, h := range health {
		v := endpointView{URL: h.URL, Reachable: h.Reachable, LatencyMS: h.Latency.Milliseconds()}
		if h.Err != nil {
			v.Error = h.Err.Error()
		}

		out = append(out, v)
	}

	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}

	return s
}
