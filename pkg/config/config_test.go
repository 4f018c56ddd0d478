package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, DefaultPluginTimeout, cfg.PluginTimeout())
	assert.Equal(t, "true", cfg.Verifier.GenerateDiff)
	assert.Equal(t, SourceDefault, cfg.Sources["logging.level"])
	assert.NotNil(t, cfg.Logger())
}

func TestLoadFromFile(t *testing.T) {
	tests := []struct {
		name     string
		file     string
		content  string
		wantDir  string
		wantDiff string
		timeout  time.Duration
	}{
		{
			name: "yaml",
			file: "config.yaml",
			content: `
logging:
  level: debug
plugins:
  dir: /opt/plugins
  timeout: 2s
verifier:
  generateDiff: 1MB
`,
			wantDir:  "/opt/plugins",
			wantDiff: "1MB",
			timeout:  2 * time.Second,
		},
		{
			name:     "json",
			file:     "config.json",
			content:  `{"plugins": {"dir": "plugins"}, "verifier": {"generateDiff": "false"}}`,
			wantDir:  "plugins",
			wantDiff: "false",
			timeout:  DefaultPluginTimeout,
		},
		{
			name:     "partial keeps defaults",
			file:     "config.yml",
			content:  "logging:\n  format: json\n",
			wantDiff: "true",
			timeout:  DefaultPluginTimeout,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadFromFile(writeFile(t, tt.file, tt.content))
			require.NoError(t, err)
			assert.Equal(t, tt.wantDir, cfg.Plugins.Dir)
			assert.Equal(t, tt.wantDiff, cfg.Verifier.GenerateDiff)
			assert.Equal(t, tt.timeout, cfg.PluginTimeout())
		})
	}
}

func TestLoadFromFile_Errors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		want    string
	}{
		{name: "bad yaml", file: "c.yaml", content: "logging: [", want: "c.yaml"},
		{name: "bad json", file: "c.json", content: "{\n  \"logging\": ,\n}", want: "line 2"},
		{name: "bad level", file: "c.yaml", content: "logging:\n  level: loud\n", want: "logging.level"},
		{name: "bad timeout", file: "c.yaml", content: "plugins:\n  timeout: soon\n", want: "plugins.timeout"},
		{name: "bad diff", file: "c.yaml", content: "verifier:\n  generateDiff: maybe\n", want: "verifier.generateDiff"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromFile(writeFile(t, tt.file, tt.content))
			var cfgErr *Error
			require.ErrorAs(t, err, &cfgErr)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	_, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvPluginDir, "/env/plugins")
	t.Setenv(EnvGenerateDiff, "false")
	t.Setenv(EnvPluginTimeout, "")

	cfg := Default()
	cfg.ApplyEnv()

	assert.Equal(t, "/env/plugins", cfg.Plugins.Dir)
	assert.Equal(t, "false", cfg.Verifier.GenerateDiff)
	assert.Equal(t, SourceEnv, cfg.Sources["plugins.dir"])
	assert.Equal(t, SourceDefault, cfg.Sources["plugins.timeout"])
}

func TestResolver(t *testing.T) {
	cfg := Default()
	cfg.Verifier.GenerateDiff = "512KB"

	r := NewResolver(cfg)
	assert.Equal(t, "512KB", r.ResolveValue(GenerateDiffKey, "NOT_SET"))
	assert.Equal(t, "fallback", r.ResolveValue("pact.unknown", "fallback"))

	r.Set(GenerateDiffKey, "false")
	assert.Equal(t, "false", r.ResolveValue(GenerateDiffKey, "NOT_SET"))

	t.Setenv("PACT_VERIFIER_GENERATEDIFF", "true")
	assert.Equal(t, "true", NewResolver(cfg).ResolveValue(GenerateDiffKey, "NOT_SET"))
}

func TestResolver_Unset(t *testing.T) {
	cfg := Default()
	cfg.Verifier.GenerateDiff = ""
	assert.Equal(t, "NOT_SET", NewResolver(cfg).ResolveValue(GenerateDiffKey, "NOT_SET"))
}

func TestMapResolver(t *testing.T) {
	m := MapResolver{"a": "1"}
	assert.Equal(t, "1", m.ResolveValue("a", "x"))
	assert.Equal(t, "x", m.ResolveValue("b", "x"))
}
