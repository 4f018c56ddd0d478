package plugin

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/mod/semver"
)

// ManifestFile is the file name of a plugin manifest.
const ManifestFile = "pact-plugin.json"

// ExecutableTypeExec is the only executable type that can be launched.
const ExecutableTypeExec = "exec"

// Manifest describes an installed plugin.
type Manifest struct {
	ManifestVersion        int               `json:"manifestVersion"`
	PluginInterfaceVersion int               `json:"pluginInterfaceVersion"`
	Name                   string            `json:"name"`
	Version                string            `json:"version"`
	ExecutableType         string            `json:"executableType"`
	EntryPoint             string            `json:"entryPoint"`
	EntryPoints            map[string]string `json:"entryPoints,omitempty"`
	Args                   []string          `json:"args,omitempty"`

	// Dir is the directory the manifest was loaded from.
	Dir string `json:"-"`
}

// LoadManifest reads a manifest file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read plugin manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("invalid plugin manifest %s: %w", path, err)
	}
	if m.Name == "" || m.Version == "" {
		return nil, fmt.Errorf("invalid plugin manifest %s: name and version are required", path)
	}
	m.Dir = filepath.Dir(path)
	return &m, nil
}

// Executable returns the absolute path of the entry point for the current
// operating system.
func (m *Manifest) Executable() string {
	entry := m.EntryPoint
	if e, ok := m.EntryPoints[runtime.GOOS]; ok && e != "" {
		entry = e
	}
	if filepath.IsAbs(entry) {
		return entry
	}
	return filepath.Join(m.Dir, entry)
}

// ID returns "name/version".
func (m *Manifest) ID() string {
	return m.Name + "/" + m.Version
}

// DiscoverManifests loads every manifest below dir. Manifests that cannot be
// read are returned as errors alongside the valid ones.
func DiscoverManifests(dir string) ([]*Manifest, []error) {
	matches, err := doublestar.Glob(os.DirFS(dir), "**/"+ManifestFile, doublestar.WithFilesOnly())
	if err != nil {
		return nil, []error{fmt.Errorf("failed to search %s for plugins: %w", dir, err)}
	}
	sort.Strings(matches)

	var (
		manifests []*Manifest
		errs      []error
	)
	for _, match := range matches {
		m, err := LoadManifest(filepath.Join(dir, filepath.FromSlash(match)))
		if err != nil {
			errs = append(errs, err)
			continue
		}
		manifests = append(manifests, m)
	}
	return manifests, errs
}

// FindManifest returns the manifest for name. An empty version selects the
// newest version by semantic version ordering.
func FindManifest(manifests []*Manifest, name, version string) (*Manifest, bool) {
	var best *Manifest
	for _, m := range manifests {
		if m.Name != name {
			continue
		}
		if version != "" {
			if m.Version == version {
				return m, true
			}
			continue
		}
		if best == nil || compareVersions(m.Version, best.Version) > 0 {
			best = m
		}
	}
	return best, best != nil
}

// compareVersions orders plugin versions. Invalid versions sort before
// valid ones.
func compareVersions(a, b string) int {
	return semver.Compare("v"+a, "v"+b)
}
