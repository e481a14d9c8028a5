/*
Copyright 2026.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package config loads the star manager configuration from a YAML file,
// environment variables and command line flags, in increasing precedence.
package config

import (
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"github.com/shannai37/github-star-plugin/pkg/catalog"
	"github.com/shannai37/github-star-plugin/pkg/github"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "STARMANAGER_"

// Defaults.
const (
	DefaultRequestTimeout  = 20
	DefaultMaxRetries      = 3
	DefaultCacheTTL        = time.Hour
	DefaultStarDelay       = 500 * time.Millisecond
	DefaultRefreshSchedule = "@every 1h"
	DefaultProbeSchedule   = "@every 5m"
	DefaultListenAddr      = ":8080"
	DefaultSelfRepo        = "shannai37/github-star-plugin"
	DefaultAPIEndpoint     = "https://api.github.com"
)

// ErrInvalid marks configuration validation failures.
var ErrInvalid = errors.New("invalid configuration")

// APISettings controls GitHub API calls.
type APISettings struct {
	// RequestTimeout is the per-request timeout in seconds.
	RequestTimeout int `yaml:"request_timeout" json:"request_timeout"`
	// MaxRetries is the number of retries after a transient failure.
	MaxRetries int `yaml:"max_retries" json:"max_retries"`
	// EnableFallback allows rotating to mirror endpoints.
	EnableFallback bool `yaml:"enable_fallback" json:"enable_fallback"`
}

// Timeout returns RequestTimeout as a duration.
func (a APISettings) Timeout() time.Duration {
	return time.Duration(a.RequestTimeout) * time.Second
}

// Config is the full configuration.
type Config struct {
	GitHubToken    string       `yaml:"github_token" json:"github_token"`
	GitHubUsername string       `yaml:"github_username" json:"github_username"`
	AllowedUsers   AllowedUsers `yaml:"allowed_users" json:"allowed_users"`
	API            APISettings  `yaml:"api_settings" json:"api_settings"`

	// APIEndpoints are GitHub API base URLs; the first is primary.
	APIEndpoints []string `yaml:"api_endpoints" json:"api_endpoints"`
	// IndexURLs are the plugin index locations in preference order.
	IndexURLs []string `yaml:"index_urls" json:"index_urls"`
	// CacheTTL is how long the catalog stays fresh.
	CacheTTL time.Duration `yaml:"cache_ttl" json:"cache_ttl"`
	// StarDelay is the pause between calls of a batch star.
	StarDelay time.Duration `yaml:"star_delay" json:"star_delay"`
	// InstalledFile is the host platform's installed plugin list.
	InstalledFile string `yaml:"installed_file" json:"installed_file"`
	// SelfRepo is starred along with every batch. Empty disables it.
	SelfRepo string `yaml:"self_repo" json:"self_repo"`
	// RefreshSchedule is the cron spec of the catalog refresh in serve mode.
	RefreshSchedule string `yaml:"refresh_schedule" json:"refresh_schedule"`
	// ProbeSchedule is the cron spec of the endpoint re-probe in serve mode.
	ProbeSchedule string `yaml:"probe_schedule" json:"probe_schedule"`
	// ListenAddr is the serve mode HTTP address.
	ListenAddr string `yaml:"listen_addr" json:"listen_addr"`
}

// Default returns the configuration used for unset keys.
func Default() *Config {
	return &Config{
		API: APISettings{
			RequestTimeout: DefaultRequestTimeout,
			MaxRetries:     DefaultMaxRetries,
			EnableFallback: true,
		},
		APIEndpoints:    []string{DefaultAPIEndpoint},
		IndexURLs:       append([]string(nil), catalog.DefaultIndexURLs...),
		CacheTTL:        DefaultCacheTTL,
		StarDelay:       DefaultStarDelay,
		SelfRepo:        DefaultSelfRepo,
		RefreshSchedule: DefaultRefreshSchedule,
		ProbeSchedule:   DefaultProbeSchedule,
		ListenAddr:      DefaultListenAddr,
	}
}

// Load reads path (optional) over the defaults and applies environment
// overrides looked up with getenv. A nil getenv uses os.Getenv.
func Load(path string, getenv func(string) string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read config file %s", path)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrapf(err, "failed to parse config file %s", path)
		}
	}

	if getenv == nil {
		getenv = os.Getenv
	}

	if err := cfg.applyEnv(getenv); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	env := func(key string) (string, bool) {
		v := strings.TrimSpace(getenv(EnvPrefix + key))

		return v, v != ""
	}

	if v, ok := env("GITHUB_TOKEN"); ok {
		c.GitHubToken = v
	} else if c.GitHubToken == "" {
		c.GitHubToken = strings.TrimSpace(getenv("GITHUB_TOKEN"))
	}

	if v, ok := env("GITHUB_USERNAME"); ok {
		c.GitHubUsername = v
	}

	if v, ok := env("ALLOWED_USERS"); ok {
		users, err := ParseAllowedUsers(v)
		if err != nil {
			return errors.Wrapf(err, "invalid %sALLOWED_USERS", EnvPrefix)
		}

		c.AllowedUsers = users
	}

	if v, ok := env("REQUEST_TIMEOUT"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrapf(err, "invalid %sREQUEST_TIMEOUT", EnvPrefix)
		}

		c.API.RequestTimeout = n
	}

	if v, ok := env("MAX_RETRIES"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrapf(err, "invalid %sMAX_RETRIES", EnvPrefix)
		}

		c.API.MaxRetries = n
	}

	if v, ok := env("ENABLE_FALLBACK"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return errors.Wrapf(err, "invalid %sENABLE_FALLBACK", EnvPrefix)
		}

		c.API.EnableFallback = b
	}

	if v, ok := env("INSTALLED_FILE"); ok {
		c.InstalledFile = v
	}

	if v, ok := env("LISTEN_ADDR"); ok {
		c.ListenAddr = v
	}

	return nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.GitHubToken) == "" {
		problems = append(problems, "github_token is required")
	}

	if c.API.RequestTimeout <= 0 {
		problems = append(problems, "api_settings.request_timeout must be positive")
	}

	if c.API.MaxRetries < 0 {
		problems = append(problems, "api_settings.max_retries must not be negative")
	}

	if c.CacheTTL <= 0 {
		problems = append(problems, "cache_ttl must be positive")
	}

	if c.StarDelay < 0 {
		problems = append(problems, "star_delay must not be negative")
	}

	for _, raw := range c.APIEndpoints {
		if !isHTTPURL(raw) {
			problems = append(problems, "api_endpoints entry "+strconv.Quote(raw)+" is not an http(s) URL")
		}
	}

	for _, raw := range c.IndexURLs {
		if !isHTTPURL(raw) {
			problems = append(problems, "index_urls entry "+strconv.Quote(raw)+" is not an http(s) URL")
		}
	}

	if c.SelfRepo != "" {
		if _, _, ok := github.ParseRepoURL(c.SelfRepo); !ok {
			problems = append(problems, "self_repo "+strconv.Quote(c.SelfRepo)+" is not a GitHub repository")
		}
	}

	if len(problems) > 0 {
		return errors.Mark(errors.Newf("%s", strings.Join(problems, "; ")), ErrInvalid)
	}

	return nil
}

// Redacted returns a copy safe to display, with the token masked.
func (c *Config) Redacted() Config {
	out := *c
	out.GitHubToken = MaskToken(c.GitHubToken)
	out.AllowedUsers = append(AllowedUsers(nil), c.AllowedUsers...)

	return out
}

// MaskToken keeps the last four characters of a token.
func MaskToken(token string) string {
	switch {
	case token == "":
		return ""
	case len(token) <= 8:
		return "****"
	default:
		return "****" + token[len(token)-4:]
	}
}

func isHTTPURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}

	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
