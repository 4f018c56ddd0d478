package plugin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/getmockd/contracts/pkg/contract"
	"github.com/getmockd/contracts/pkg/logging"
	"github.com/getmockd/contracts/pkg/matching"
)

// DefaultTimeout bounds each call to a plugin.
const DefaultTimeout = 10 * time.Second

// DirEnv overrides the default plugin directory.
const DirEnv = "PACT_PLUGIN_DIR"

// DefaultDir returns $PACT_PLUGIN_DIR or ~/.pact/plugins.
func DefaultDir() string {
	if dir := os.Getenv(DirEnv); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".pact", "plugins")
	}
	return filepath.Join(home, ".pact", "plugins")
}

// Manager loads plugins and keeps them running until Shutdown.
type Manager struct {
	dir            string
	timeout        time.Duration
	logger         *slog.Logger
	launcher       Launcher
	implementation string
	version        string

	mu      sync.Mutex
	plugins map[string]*Plugin
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithDir sets the directory searched for manifests.
func WithDir(dir string) ManagerOption {
	return func(m *Manager) {
		if dir != "" {
			m.dir = dir
		}
	}
}

// WithTimeout sets the per-call timeout.
func WithTimeout(d time.Duration) ManagerOption {
	return func(m *Manager) {
		if d > 0 {
			m.timeout = d
		}
	}
}

// WithLogger sets the manager logger.
func WithLogger(logger *slog.Logger) ManagerOption {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logging.Component(logger, "plugin")
		}
	}
}

// WithLauncher replaces the process launcher, mainly for tests.
func WithLauncher(l Launcher) ManagerOption {
	return func(m *Manager) { m.launcher = l }
}

// WithImplementation sets the name and version sent in InitPlugin.
func WithImplementation(name, version string) ManagerOption {
	return func(m *Manager) {
		m.implementation = name
		m.version = version
	}
}

// NewManager returns a manager with no plugins loaded.
func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{
		dir:            DefaultDir(),
		timeout:        DefaultTimeout,
		logger:         logging.Nop(),
		implementation: "contracts",
		version:        "0.1.0",
		plugins:        map[string]*Plugin{},
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.launcher == nil {
		m.launcher = &ProcessLauncher{StartTimeout: m.timeout, Logger: m.logger}
	}
	return m
}

// Plugin is a running plugin and the catalogue it advertised.
type Plugin struct {
	Manifest  *Manifest
	Catalogue []CatalogueEntry
	client    Client
}

// Load starts the plugin name, or returns it when it is already running.
// An empty version selects the newest installed version. A plugin that is
// not installed yields a *NotFoundError.
func (m *Manager) Load(ctx context.Context, name, version string) (*Plugin, error) {
	m.mu.Lock()
	if p, ok := m.plugins[name]; ok && (version == "" || p.Manifest.Version == version) {
		m.mu.Unlock()
		return p, nil
	}
	m.mu.Unlock()

	manifests, errs := DiscoverManifests(m.dir)
	for _, err := range errs {
		m.logger.Warn("skipping plugin manifest", "error", err)
	}
	manifest, ok := FindManifest(manifests, name, version)
	if !ok {
		nf := &NotFoundError{Name: name, Version: version, Dir: m.dir}
		for _, mf := range manifests {
			nf.Available = append(nf.Available, mf.ID())
		}
		return nil, nf
	}

	client, err := m.launcher.Launch(ctx, manifest)
	if err != nil {
		return nil, err
	}

	initCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	resp, err := client.InitPlugin(initCtx, InitPluginRequest{Implementation: m.implementation, Version: m.version})
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to initialise plugin %s: %w", manifest.ID(), err)
	}
	p := &Plugin{Manifest: manifest, Catalogue: resp.Catalogue, client: client}

	m.mu.Lock()
	if existing, ok := m.plugins[name]; ok && existing.Manifest.Version == manifest.Version {
		m.mu.Unlock()
		_ = client.Close()
		return existing, nil
	}
	old := m.plugins[name]
	m.plugins[name] = p
	m.mu.Unlock()

	if old != nil {
		_ = old.client.Close()
	}
	m.logger.Info("plugin loaded", "plugin", manifest.ID(), "entries", len(resp.Catalogue))
	return p, nil
}

// Plugins returns the loaded plugins ordered by name.
func (m *Manager) Plugins() []*Plugin {
	m.mu.Lock()
	out := make([]*Plugin, 0, len(m.plugins))
	for _, p := range m.plugins {
		out = append(out, p)
	}
	m.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Manifest.Name < out[j].Manifest.Name })
	return out
}

// RegisterContentMatchers adds a matcher for every content type advertised
// by the loaded plugins. Built-in registrations win over plugin ones.
func (m *Manager) RegisterContentMatchers(builder *matching.RegistryBuilder) error {
	for _, p := range m.Plugins() {
		for _, entry := range p.Catalogue {
			if entry.Type != EntryTypeContentMatcher {
				continue
			}
			cm := &ContentMatcher{plugin: p.Manifest.ID(), key: entry.Key, client: p.client, timeout: m.timeout}
			for _, ct := range entry.ContentTypes() {
				err := builder.Register(ct, cm)
				switch {
				case errors.Is(err, matching.ErrMatcherExists):
					m.logger.Warn("content type already handled", "plugin", p.Manifest.ID(), "contentType", ct, "error", err)
				case err != nil:
					return fmt.Errorf("plugin %s: %w", p.Manifest.ID(), err)
				default:
					m.logger.Debug("registered plugin content matcher", "plugin", p.Manifest.ID(), "contentType", ct)
				}
			}
		}
	}
	return nil
}

// Shutdown stops every loaded plugin.
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	plugins := m.plugins
	m.plugins = map[string]*Plugin{}
	m.mu.Unlock()

	var errs []error
	for name, p := range plugins {
		if err := p.client.Close(); err != nil {
			errs = append(errs, fmt.Errorf("plugin %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// ContentMatcher delegates body comparison to a plugin.
type ContentMatcher struct {
	plugin  string
	key     string
	client  Client
	timeout time.Duration
}

// Name returns "plugin:<name>/<version>/<key>".
func (c *ContentMatcher) Name() string {
	return "plugin:" + c.plugin + "/" + c.key
}

// MatchBody sends both bodies and the body rules to the plugin.
func (c *ContentMatcher) MatchBody(ctx context.Context, expected, actual contract.Body, mc *matching.Context) ([]matching.Mismatch, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	req := CompareContentsRequest{Expected: expected, Actual: actual}
	if mc != nil {
		req.Rules = mc.Category()
		req.AllowUnexpectedKeys = mc.AllowsUnexpectedKeys()
	}
	resp, err := c.client.CompareContents(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp.Error != "" {
		return nil, &ProtocolError{Plugin: c.plugin, Method: MethodCompareContents, Message: resp.Error}
	}
	return resp.Mismatches(), nil
}
