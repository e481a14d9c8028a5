package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func envMap(m map[string]string) func(string) string {
	return func(key string) string { return m[key] }
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("", envMap(nil))
	require.NoError(t, err)

	assert.Equal(t, DefaultRequestTimeout, cfg.API.RequestTimeout)
	assert.Equal(t, 20*time.Second, cfg.API.Timeout())
	assert.Equal(t, DefaultMaxRetries, cfg.API.MaxRetries)
	assert.True(t, cfg.API.EnableFallback)
	assert.Equal(t, time.Hour, cfg.CacheTTL)
	assert.Equal(t, 500*time.Millisecond, cfg.StarDelay)
	assert.Equal(t, []string{DefaultAPIEndpoint}, cfg.APIEndpoints)
	assert.Len(t, cfg.IndexURLs, 2)
	assert.Empty(t, cfg.AllowedUsers)
}

func TestLoad_File(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
github_token: ghp_file_token_1234
github_username: octocat
allowed_users: ["123", "456"]
api_settings:
  request_timeout: 5
  enable_fallback: false
cache_ttl: 30m
star_delay: 1s
installed_file: /var/lib/bot/plugins.yaml
`)

	cfg, err := Load(path, envMap(nil))
	require.NoError(t, err)

	assert.Equal(t, "ghp_file_token_1234", cfg.GitHubToken)
	assert.Equal(t, "octocat", cfg.GitHubUsername)
	assert.Equal(t, AllowedUsers{"123", "456"}, cfg.AllowedUsers)
	assert.Equal(t, 5, cfg.API.RequestTimeout)
	assert.Equal(t, DefaultMaxRetries, cfg.API.MaxRetries, "unset keys keep defaults")
	assert.False(t, cfg.API.EnableFallback)
	assert.Equal(t, 30*time.Minute, cfg.CacheTTL)
	assert.Equal(t, time.Second, cfg.StarDelay)
	assert.Equal(t, "/var/lib/bot/plugins.yaml", cfg.InstalledFile)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, "github_token: from_file\n")

	cfg, err := Load(path, envMap(map[string]string{
		"STARMANAGER_GITHUB_TOKEN":    "from_env",
		"STARMANAGER_ALLOWED_USERS":   "1, 2 ,3",
		"STARMANAGER_MAX_RETRIES":     "0",
		"STARMANAGER_ENABLE_FALLBACK": "false",
		"STARMANAGER_REQUEST_TIMEOUT": "7",
	}))
	require.NoError(t, err)

	assert.Equal(t, "from_env", cfg.GitHubToken)
	assert.Equal(t, AllowedUsers{"1", "2", "3"}, cfg.AllowedUsers)
	assert.Zero(t, cfg.API.MaxRetries)
	assert.False(t, cfg.API.EnableFallback)
	assert.Equal(t, 7, cfg.API.RequestTimeout)
}

func TestLoad_GenericTokenEnv(t *testing.T) {
	t.Parallel()

	cfg, err := Load("", envMap(map[string]string{"GITHUB_TOKEN": "generic"}))
	require.NoError(t, err)
	assert.Equal(t, "generic", cfg.GitHubToken)

	path := writeConfig(t, "github_token: from_file\n")
	cfg, err = Load(path, envMap(map[string]string{"GITHUB_TOKEN": "generic"}))
	require.NoError(t, err)
	assert.Equal(t, "from_file", cfg.GitHubToken, "config file wins over GITHUB_TOKEN")
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), envMap(nil))
	require.Error(t, err)

	_, err = Load(writeConfig(t, "api_settings: [oops"), envMap(nil))
	require.Error(t, err)

	_, err = Load("", envMap(map[string]string{"STARMANAGER_MAX_RETRIES": "many"}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "MAX_RETRIES")
}

func TestAllowedUsers_Formats(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		yaml string
		want AllowedUsers
	}{
		{name: "yaml list with numbers", yaml: "allowed_users:\n  - 123\n  - \"456\"\n", want: AllowedUsers{"123", "456"}},
		{name: "json string", yaml: `allowed_users: '["123", 456]'`, want: AllowedUsers{"123", "456"}},
		{name: "comma separated", yaml: `allowed_users: "123, 456,,789"`, want: AllowedUsers{"123", "456", "789"}},
		{name: "empty string", yaml: `allowed_users: ""`, want: nil},
		{name: "null", yaml: `allowed_users: ~`, want: nil},
		{name: "single id", yaml: `allowed_users: 42`, want: AllowedUsers{"42"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var cfg Config
			require.NoError(t, yaml.Unmarshal([]byte(tt.yaml), &cfg))
			assert.Equal(t, tt.want, cfg.AllowedUsers)
		})
	}
}

func TestAllowedUsers_Invalid(t *testing.T) {
	t.Parallel()

	var cfg Config

	err := yaml.Unmarshal([]byte("allowed_users:\n  a: b\n"), &cfg)
	require.Error(t, err)

	_, err = ParseAllowedUsers(`["123"`)
	require.Error(t, err)

	_, err = ParseAllowedUsers(`[{"id": 1}]`)
	require.Error(t, err)
}

func TestAllowedUsers_Permits(t *testing.T) {
	t.Parallel()

	assert.True(t, AllowedUsers(nil).Permits("anyone"))
	assert.Equal(t, "unrestricted", AllowedUsers(nil).Describe())

	users := AllowedUsers{"123", "456"}
	assert.True(t, users.Permits("123"))
	assert.True(t, users.Permits(" 456 "))
	assert.False(t, users.Permits("789"))
	assert.Equal(t, "123, 456", users.Describe())
}

func TestValidate(t *testing.T) {
	t.Parallel()

	valid := func() *Config {
		cfg := Default()
		cfg.GitHubToken = "ghp_token"

		return cfg
	}

	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{name: "missing token", mutate: func(c *Config) { c.GitHubToken = " " }, want: "github_token"},
		{name: "zero timeout", mutate: func(c *Config) { c.API.RequestTimeout = 0 }, want: "request_timeout"},
		{name: "negative retries", mutate: func(c *Config) { c.API.MaxRetries = -1 }, want: "max_retries"},
		{name: "zero ttl", mutate: func(c *Config) { c.CacheTTL = 0 }, want: "cache_ttl"},
		{name: "negative delay", mutate: func(c *Config) { c.StarDelay = -time.Second }, want: "star_delay"},
		{name: "bad endpoint", mutate: func(c *Config) { c.APIEndpoints = []string{"ftp://x"} }, want: "api_endpoints"},
		{name: "bad index", mutate: func(c *Config) { c.IndexURLs = []string{"plugins.json"} }, want: "index_urls"},
		{name: "bad self repo", mutate: func(c *Config) { c.SelfRepo = "not a repo" }, want: "self_repo"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := valid()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalid))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestRedacted(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.GitHubToken = "ghp_abcdefghijklmnop"
	cfg.AllowedUsers = AllowedUsers{"1"}

	red := cfg.Redacted()
	assert.Equal(t, "****mnop", red.GitHubToken)
	assert.Equal(t, "ghp_abcdefghijklmnop", cfg.GitHubToken, "original is untouched")

	red.AllowedUsers[0] = "changed"
	assert.Equal(t, "1", cfg.AllowedUsers[0])

	assert.Equal(t, "****", MaskToken("short"))
	assert.Empty(t, MaskToken(""))
}

func TestFlags_Apply(t *testing.T) {
	t.Parallel()

	var f Flags

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	f.AddFlags(fs)
	require.NoError(t, fs.Parse([]string{"--token", "flag_token", "--no-fallback", "--max-retries", "1"}))

	cfg := Default()
	cfg.API.RequestTimeout = 9
	f.Apply(fs, cfg)

	assert.Equal(t, "flag_token", cfg.GitHubToken)
	assert.False(t, cfg.API.EnableFallback)
	assert.Equal(t, 1, cfg.API.MaxRetries)
	assert.Equal(t, 9, cfg.API.RequestTimeout, "unset flags do not override")
}
