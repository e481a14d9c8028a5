package github

import (
	"regexp"
	"strings"

	"github.com/cockroachdb/errors"
)

var (
	repoURLPattern  = regexp.MustCompile(`(?i)github\.com[/:]([^/\s]+)/([^/\s#?]+)`)
	fullNamePattern = regexp.MustCompile(`^([A-Za-z0-9][A-Za-z0-9-]*)/([A-Za-z0-9._-]+)$`)
)

// ParseRepoURL extracts owner and repository name from a GitHub URL
// (https, ssh, with or without .git or trailing path) or a bare "owner/repo".
func ParseRepoURL(raw string) (owner, repo string, ok bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", "", false
	}

	if m := repoURLPattern.FindStringSubmatch(raw); m != nil {
		owner, repo = m[1], strings.TrimSuffix(m[2], ".git")
	} else if m := fullNamePattern.FindStringSubmatch(raw); m != nil {
		owner, repo = m[1], strings.TrimSuffix(m[2], ".git")
	} else {
		return "", "", false
	}

	if owner == "" || repo == "" {
		return "", "", false
	}

	return owner, repo, true
}

// FullNameFromURL returns "owner/repo" for a GitHub URL, or "" when it cannot be parsed.
func FullNameFromURL(raw string) string {
	owner, repo, ok := ParseRepoURL(raw)
	if !ok {
		return ""
	}

	return owner + "/" + repo
}

func splitFullName(fullName string) (string, error) {
	owner, repo, ok := ParseRepoURL(fullName)
	if !ok {
		return "", errors.Mark(errors.Newf("invalid repository name %q", fullName), ErrNotFound)
	}

	return owner + "/" + repo, nil
}
