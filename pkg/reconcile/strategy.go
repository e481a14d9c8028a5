package reconcile

import (
	"strings"

	"github.com/shannai37/github-star-plugin/pkg/catalog"
	"github.com/shannai37/github-star-plugin/pkg/github"
)

// Strategy finds the catalog entry for an installed plugin.
type Strategy func(p InstalledPlugin, entries []catalog.Entry) (*catalog.Entry, bool)

// NamedStrategy is a Strategy with the name reported in MatchResult.Strategy.
type NamedStrategy struct {
	Name  string
	Match Strategy
}

// DefaultStrategies are applied in order; the first hit wins.
var DefaultStrategies = []NamedStrategy{
	{Name: "repo_url", Match: ByRepoURL},
	{Name: "name", Match: ByName},
	{Name: "author_name", Match: ByAuthorAndName},
}

// ByRepoURL matches on the repository URL. GitHub URLs are compared by
// owner/repo so scheme, .git suffix and trailing paths do not matter.
func ByRepoURL(p InstalledPlugin, entries []catalog.Entry) (*catalog.Entry, bool) {
	if strings.TrimSpace(p.RepoURL) == "" {
		return nil, false
	}

	full := strings.ToLower(github.FullNameFromURL(p.RepoURL))
	url := normalizeURL(p.RepoURL)

	for i := range entries {
		e := &entries[i]

		if full != "" && strings.ToLower(e.FullName) == full {
			return e, true
		}

		if e.RepoURL != "" && normalizeURL(e.RepoURL) == url {
			return e, true
		}
	}

	return nil, false
}

// ByName matches the normalized plugin name against the entry name, short
// name or repository name.
func ByName(p InstalledPlugin, entries []catalog.Entry) (*catalog.Entry, bool) {
	name := normalizeName(p.Name)
	if name == "" {
		return nil, false
	}

	for i := range entries {
		e := &entries[i]

		if normalizeName(e.Name) == name || normalizeName(e.ShortName) == name || normalizeName(repoPart(e.FullName)) == name {
			return e, true
		}
	}

	return nil, false
}

// ByAuthorAndName requires one of the installed plugin's author tokens to
// equal the entry author or owner and the names to contain one another.
func ByAuthorAndName(p InstalledPlugin, entries []catalog.Entry) (*catalog.Entry, bool) {
	authors := authorTokens(p.Author)
	name := normalizeName(p.Name)

	if len(authors) == 0 || name == "" {
		return nil, false
	}

	for i := range entries {
		e := &entries[i]

		if !authorMatches(authors, e) {
			continue
		}

		other := normalizeName(e.Name)
		if other != "" && (strings.Contains(other, name) || strings.Contains(name, other)) {
			return e, true
		}
	}

	return nil, false
}

func authorMatches(tokens []string, e *catalog.Entry) bool {
	owner := strings.ToLower(ownerPart(e.FullName))
	entryAuthors := authorTokens(e.Author)

	for _, t := range tokens {
		if t == owner {
			return true
		}

		for _, a := range entryAuthors {
			if t == a {
				return true
			}
		}
	}

	return false
}

// authorTokens splits an author field such as "alice & bob, carol".
func authorTokens(author string) []string {
	fields := strings.FieldsFunc(strings.ToLower(author), func(r rune) bool {
		return r == ',' || r == '&' || r == '/' || r == ';' || r == ' ' || r == '、' || r == '，'
	})

	tokens := fields[:0]
	for _, f := range fields {
		if f != "" && f != "unknown" && f != "and" {
			tokens = append(tokens, f)
		}
	}

	return tokens
}

func normalizeName(name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	n = strings.NewReplacer("-", "_", " ", "_").Replace(n)

	for _, prefix := range catalog.NamePrefixes {
		if strings.HasPrefix(n, prefix) && len(n) > len(prefix) {
			return n[len(prefix):]
		}
	}

	return n
}

func normalizeURL(url string) string {
	u := strings.ToLower(strings.TrimSpace(url))
	u = strings.TrimSuffix(u, "/")
	u = strings.TrimSuffix(u, ".git")
	u = strings.TrimPrefix(u, "https://")
	u = strings.TrimPrefix(u, "http://")

	return strings.TrimPrefix(u, "www.")
}

func ownerPart(fullName string) string {
	owner, _, _ := strings.Cut(fullName, "/")

	return owner
}

func repoPart(fullName string) string {
	_, repo, _ := strings.Cut(fullName, "/")

	return repo
}
