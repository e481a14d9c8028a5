package reconcile

import (
	"context"
	"os"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"
)

// InstalledSource enumerates the host platform's installed plugins.
type InstalledSource interface {
	Installed(ctx context.Context) ([]InstalledPlugin, error)
}

// FileSource reads the installed plugin list from a YAML or JSON file the
// host platform keeps up to date. The file is read on every call.
type FileSource struct {
	Path string
}

// installedFile accepts both a bare list and a {"plugins": [...]} document.
type installedFile struct {
	Plugins []InstalledPlugin `yaml:"plugins"`
}

// Installed reads and parses the file.
func (s *FileSource) Installed(_ context.Context) ([]InstalledPlugin, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read installed plugins from %s", s.Path)
	}

	plugins, err := ParseInstalled(data)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s", s.Path)
	}

	return plugins, nil
}

// ParseInstalled parses an installed plugin document. Entries without a name
// or repository are dropped.
func ParseInstalled(data []byte) ([]InstalledPlugin, error) {
	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, errors.Wrap(err, "invalid installed plugin document")
	}

	if len(node.Content) == 0 {
		return nil, nil
	}

	var plugins []InstalledPlugin

	switch root := node.Content[0]; root.Kind {
	case yaml.SequenceNode:
		if err := root.Decode(&plugins); err != nil {
			return nil, errors.Wrap(err, "invalid installed plugin list")
		}
	case yaml.MappingNode:
		var f installedFile
		if err := root.Decode(&f); err != nil {
			return nil, errors.Wrap(err, "invalid installed plugin document")
		}

		plugins = f.Plugins
	default:
		return nil, errors.New("installed plugin document must be a list or contain a plugins list")
	}

	kept := plugins[:0]
	for _, p := range plugins {
		if p.Name != "" || p.RepoURL != "" {
			kept = append(kept, p)
		}
	}

	return kept, nil
}

// StaticSource returns a fixed plugin list.
type StaticSource []InstalledPlugin

// Installed returns a copy of the list.
func (s StaticSource) Installed(_ context.Context) ([]InstalledPlugin, error) {
	return append([]InstalledPlugin(nil), s...), nil
}
