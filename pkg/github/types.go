package github

import "time"

// User is the subset of the authenticated user's profile the manager displays.
type User struct {
	Login       string `json:"login"`
	Name        string `json:"name"`
	PublicRepos int    `json:"public_repos"`
	Followers   int    `json:"followers"`
	Following   int    `json:"following"`
	HTMLURL     string `json:"html_url"`
}

// Repository is the subset of repository metadata the manager uses.
type Repository struct {
	FullName        string    `json:"full_name"`
	Description     string    `json:"description"`
	HTMLURL         string    `json:"html_url"`
	StargazersCount int       `json:"stargazers_count"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// apiError is the error body GitHub returns.
type apiError struct {
	Message string `json:"message"`
}

// StarStatus is the outcome of a star check.
// Unknown is distinct from NotStarred so callers never show a failed check as "not starred".
type StarStatus int

const (
	// StatusUnknown means the check failed.
	StatusUnknown StarStatus = iota
	// StatusStarred means the authenticated user has starred the repository.
	StatusStarred
	// StatusNotStarred means the repository exists and is not starred.
	StatusNotStarred
)

func (s StarStatus) String() string {
	switch s {
	case StatusStarred:
		return "starred"
	case StatusNotStarred:
		return "not-starred"
	default:
		return "unknown"
	}
}
