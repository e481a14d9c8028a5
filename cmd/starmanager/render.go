package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/shannai37/github-star-plugin/internal/manager"
	"github.com/shannai37/github-star-plugin/pkg/batch"
	"github.com/shannai37/github-star-plugin/pkg/github"
	"github.com/shannai37/github-star-plugin/pkg/reconcile"
	"github.com/shannai37/github-star-plugin/pkg/search"
)

const descriptionWidth = 48

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)

	style := table.StyleLight
	style.Options.DrawBorder = false
	style.Format.Footer = text.FormatDefault
	t.SetStyle(style)

	return t
}

func renderSearch(w io.Writer, p *search.Page) {
	if p.Total == 0 {
		if p.Query == "" {
			_, _ = fmt.Fprintln(w, "The plugin catalog is empty.")
		} else {
			_, _ = fmt.Fprintf(w, "No plugins match %q.\n", p.Query)
		}

		return
	}

	t := newTable(w)
	t.AppendHeader(table.Row{"ID", "Name", "Author", "Stars", "Description"})

	for i := range p.Results {
		r := &p.Results[i]
		t.AppendRow(table.Row{r.DisplayID, r.Entry.ShortName, r.Entry.Author, r.Entry.Stars, r.Entry.Description})
	}

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 4, Align: text.AlignRight},
		{Number: 5, WidthMax: descriptionWidth},
	})
	t.AppendFooter(table.Row{"", "", "", "", fmt.Sprintf("page %d/%d, %d plugins", p.Page, p.TotalPages, p.Total)})
	t.Render()
}

func renderStar(w io.Writer, o *manager.StarOutcome) {
	repo := o.Entry.FullName

	switch {
	case o.AlreadyStarred:
		_, _ = fmt.Fprintf(w, "%s is already starred (%d stars).\n", repo, o.Stars)
	default:
		_, _ = fmt.Fprintf(w, "Starred %s, it now has %d stars.\n", repo, o.Stars)
	}

	if o.CheckErr != nil {
		_, _ = fmt.Fprintf(w, "note: star status could not be checked first: %v\n", o.CheckErr)
	}
}

func renderInstalled(w io.Writer, p *manager.InstalledPage) {
	if p.Summary.Total == 0 {
		_, _ = fmt.Fprintln(w, "No plugins are installed.")

		return
	}

	t := newTable(w)
	t.AppendHeader(table.Row{"ID", "Plugin", "Version", "Repository", "Status", "Note"})

	for i := range p.Results {
		res := &p.Results[i]

		id := ""
		if _, ok := res.ListingEntry(); ok {
			id = strconv.Itoa(p.FirstID + i)
		}

		t.AppendRow(table.Row{id, res.DisplayName(), res.Installed.Version, res.Repo, statusLabel(res), noteLabel(res)})
	}

	s := p.Summary
	t.AppendFooter(table.Row{"", fmt.Sprintf("page %d/%d", p.Page, p.TotalPages), "", "",
		fmt.Sprintf("%d starred", s.Starred),
		fmt.Sprintf("%d matched, %d github only, %d local", s.Matched, s.UnmatchedGitHub, s.LocalOnly)})
	t.Render()
}

func statusLabel(res *reconcile.MatchResult) string {
	if !res.GitHubBacked() {
		return "-"
	}

	switch res.Status {
	case github.StatusStarred:
		return "starred"
	case github.StatusNotStarred:
		return "not starred"
	default:
		return "unknown"
	}
}

func noteLabel(res *reconcile.MatchResult) string {
	var notes []string

	if res.Kind == reconcile.KindLocalOnly {
		notes = append(notes, "not on GitHub")
	}

	if res.Outdated && res.Entry != nil {
		notes = append(notes, "update available: "+res.Entry.Version)
	}

	if res.Err != nil {
		notes = append(notes, res.Err.Error())
	}

	return strings.Join(notes, "; ")
}

func renderReport(w io.Writer, r *batch.Report) {
	succeeded, failed, skipped, checkFailed := r.Counts()

	t := newTable(w)
	t.AppendHeader(table.Row{"Result", "Count", "Plugins"})
	t.AppendRow(table.Row{"starred", succeeded, strings.Join(r.Succeeded, ", ")})
	t.AppendRow(table.Row{"already starred", skipped, strings.Join(r.AlreadyStarred, ", ")})
	t.AppendRow(table.Row{"check failed", checkFailed, strings.Join(r.CheckFailed, ", ")})
	t.AppendRow(table.Row{"failed", failed, strings.Join(r.FailedNames(), ", ")})
	t.SetColumnConfigs([]table.ColumnConfig{{Number: 3, WidthMax: descriptionWidth}})
	t.Render()

	for _, f := range r.Failed {
		_, _ = fmt.Fprintf(w, "%s (%s): %v\n", f.Name, f.Repo, f.Err)
	}
}

func renderUser(w io.Writer, u *github.User) {
	t := newTable(w)
	t.AppendRows([]table.Row{
		{"Login", u.Login},
		{"Name", u.Name},
		{"Public repos", u.PublicRepos},
		{"Followers", u.Followers},
		{"Following", u.Following},
		{"Profile", u.HTMLURL},
	})
	t.Render()
}

func renderNetwork(w io.Writer, r *manager.NetworkReport) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Endpoint", "Reachable", "Latency", "Error"})

	for _, h := range r.Endpoints {
		errText := ""
		if h.Err != nil {
			errText = h.Err.Error()
		}

		t.AppendRow(table.Row{h.URL, h.Reachable, h.Latency.Round(time.Millisecond).String(), errText})
	}

	t.Render()

	if r.Best == "" {
		_, _ = fmt.Fprintln(w, "No GitHub API endpoint is reachable.")

		return
	}

	_, _ = fmt.Fprintf(w, "Using %s (%d of %d reachable).\n", r.Best, r.Reachable(), len(r.Endpoints))
}

func renderUpdate(w io.Writer, n int) {
	_, _ = fmt.Fprintf(w, "Plugin catalog rebuilt: %d plugins.\n", n)
}

func renderDebug(w io.Writer, info *manager.DebugInfo) {
	cfg := info.Config

	t := newTable(w)
	t.AppendRows([]table.Row{
		{"User", info.UserID},
		{"Allowed users", info.AllowedUsers},
		{"Initialized", info.Initialized},
		{"GitHub token", cfg.GitHubToken},
		{"GitHub username", cfg.GitHubUsername},
		{"Request timeout", cfg.API.Timeout().String()},
		{"Max retries", cfg.API.MaxRetries},
		{"Fallback", cfg.API.EnableFallback},
		{"API endpoints", strings.Join(cfg.APIEndpoints, "\n")},
		{"Index URLs", strings.Join(cfg.IndexURLs, "\n")},
		{"Installed file", cfg.InstalledFile},
		{"Catalog entries", info.CatalogEntries},
		{"Catalog age", info.CatalogAge.Round(time.Second).String()},
		{"Catalog stale", info.CatalogStale},
		{"Last refresh error", info.LastRefreshError},
	})
	t.Render()
}
