// Package catalog builds and caches the in-memory catalog of known plugins
// from the community plugin index.
package catalog

import (
	"strings"
	"time"
	"unicode/utf8"
)

// maxShortNameLen is the rune limit of a derived short name.
const maxShortNameLen = 15

// NamePrefixes are the conventional plugin name prefixes, longest first.
// ShortName strips the first one that matches.
var NamePrefixes = []string{"astrbot_plugin_", "astrbot_", "plugin_"}

// Entry describes one plugin from the index. Entries are shared between
// readers of a Snapshot and must not be modified.
type Entry struct {
	// FullName is the GitHub "owner/repo" backing the plugin, empty if the repo URL is not on GitHub.
	FullName string
	// Name is the plugin name as published in the index.
	Name string
	// ShortName is a derived abbreviation of Name.
	ShortName string
	// Author is the plugin author, "Unknown" when the index omits it.
	Author string
	// Description is the free-form plugin description.
	Description string
	// Stars is the stargazer count known when the catalog was built.
	Stars int
	// UpdatedAt is the last update time reported by the index, zero if absent.
	UpdatedAt time.Time
	// RepoURL is the source repository URL.
	RepoURL string
	// Version is the latest published version, empty if absent.
	Version string
	// Tags are the index tags or topics.
	Tags []string
}

// Snapshot is one generation of the catalog.
type Snapshot struct {
	Entries []Entry
	BuiltAt time.Time
}

// Len returns the number of entries.
func (s Snapshot) Len() int {
	return len(s.Entries)
}

// RepoEntry describes a GitHub repository that is not in the index, so that
// it can be listed and starred like a catalog plugin.
func RepoEntry(fullName string) Entry {
	owner, repo, _ := strings.Cut(fullName, "/")

	return Entry{
		FullName:  fullName,
		Name:      repo,
		ShortName: ShortName(repo),
		Author:    owner,
		RepoURL:   "https://github.com/" + fullName,
	}
}

// ShortName derives the short name of a plugin: a common prefix is removed
// and the result is truncated to 15 runes.
func ShortName(name string) string {
	short := name
	lower := strings.ToLower(name)

	for _, prefix := range NamePrefixes {
		if strings.HasPrefix(lower, prefix) && len(name) > len(prefix) {
			short = name[len(prefix):]

			break
		}
	}

	if utf8.RuneCountInString(short) > maxShortNameLen {
		short = string([]rune(short)[:maxShortNameLen])
	}

	return short
}
