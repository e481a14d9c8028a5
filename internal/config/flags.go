package config

import (
	"github.com/spf13/pflag"
)

// Flags are command line overrides for a subset of the configuration.
type Flags struct {
	Token         string
	Timeout       int
	MaxRetries    int
	NoFallback    bool
	InstalledFile string
	ListenAddr    string
}

// AddFlags registers the override flags on fs.
func (f *Flags) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&f.Token, "token", "", "GitHub personal access token (overrides github_token)")
	fs.IntVar(&f.Timeout, "timeout", DefaultRequestTimeout, "Per-request timeout in seconds")
	fs.IntVar(&f.MaxRetries, "max-retries", DefaultMaxRetries, "Retries after a transient GitHub failure")
	fs.BoolVar(&f.NoFallback, "no-fallback", false, "Use only the primary GitHub API endpoint")
	fs.StringVar(&f.InstalledFile, "installed-file", "", "YAML or JSON file listing installed plugins")
	fs.StringVar(&f.ListenAddr, "listen", DefaultListenAddr, "Serve mode listen address")
}

// Apply copies the flags the user set explicitly onto cfg.
func (f *Flags) Apply(fs *pflag.FlagSet, cfg *Config) {
	if fs.Changed("token") {
		cfg.GitHubToken = f.Token
	}

	if fs.Changed("timeout") {
		cfg.API.RequestTimeout = f.Timeout
	}

	if fs.Changed("max-retries") {
		cfg.API.MaxRetries = f.MaxRetries
	}

	if fs.Changed("no-fallback") {
		cfg.API.EnableFallback = !f.NoFallback
	}

	if fs.Changed("installed-file") {
		cfg.InstalledFile = f.InstalledFile
	}

	if fs.Changed("listen") {
		cfg.ListenAddr = f.ListenAddr
	}
}
