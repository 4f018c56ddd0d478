package plugin

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeManifest(t *testing.T, dir, name, version string) string {
	t.Helper()
	pluginDir := filepath.Join(dir, name+"-"+version)
	require.NoError(t, os.MkdirAll(pluginDir, 0o755))
	data, err := json.Marshal(Manifest{
		ManifestVersion:        1,
		PluginInterfaceVersion: 1,
		Name:                   name,
		Version:                version,
		ExecutableType:         ExecutableTypeExec,
		EntryPoint:             "bin/" + name,
	})
	require.NoError(t, err)
	path := filepath.Join(pluginDir, ManifestFile)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestDiscoverManifests(t *testing.T) {
	dir := t.TempDir()
	writeManifest(t, dir, "protobuf", "1.9.0")
	writeManifest(t, dir, "protobuf", "1.10.0")
	writeManifest(t, dir, "csv", "0.1.0")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "broken"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken", ManifestFile), []byte(`{"name":`), 0o600))

	manifests, errs := DiscoverManifests(dir)
	assert.Len(t, manifests, 3)
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "broken")

	m, ok := FindManifest(manifests, "protobuf", "")
	require.True(t, ok)
	assert.Equal(t, "1.10.0", m.Version)

	m, ok = FindManifest(manifests, "protobuf", "1.9.0")
	require.True(t, ok)
	assert.Equal(t, "protobuf/1.9.0", m.ID())

	_, ok = FindManifest(manifests, "protobuf", "2.0.0")
	assert.False(t, ok)
	_, ok = FindManifest(manifests, "avro", "")
	assert.False(t, ok)
}

func TestDiscoverManifests_MissingDir(t *testing.T) {
	manifests, _ := DiscoverManifests(filepath.Join(t.TempDir(), "nope"))
	assert.Empty(t, manifests)
}

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	path := writeManifest(t, dir, "csv", "0.1.0")

	m, err := LoadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Dir(path), m.Dir)
	assert.Equal(t, filepath.Join(filepath.Dir(path), "bin", "csv"), m.Executable())

	m.EntryPoints = map[string]string{runtime.GOOS: "bin/csv-native"}
	assert.Equal(t, filepath.Join(filepath.Dir(path), "bin", "csv-native"), m.Executable())

	invalid := filepath.Join(dir, "invalid.json")
	require.NoError(t, os.WriteFile(invalid, []byte(`{"name":"x"}`), 0o600))
	_, err = LoadManifest(invalid)
	assert.ErrorContains(t, err, "name and version are required")
}

func TestReadStartup(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		port    int
		key     string
		wantErr string
	}{
		{name: "valid", input: `{"port": 50051, "serverKey": "abc"}` + "\nlog line\n", port: 50051, key: "abc"},
		{name: "no newline", input: `{"port": 1234}`, port: 1234},
		{name: "not json", input: "starting...\n", wantErr: "invalid start-up line"},
		{name: "bad port", input: `{"port": 0}` + "\n", wantErr: "invalid port"},
		{name: "empty", input: "", wantErr: "no start-up line"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := readStartup(context.Background(), bufio.NewReader(strings.NewReader(tt.input)))
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.port, info.Port)
			assert.Equal(t, tt.key, info.ServerKey)
		})
	}
}

func TestReadStartup_Timeout(t *testing.T) {
	r, w := io.Pipe()
	t.Cleanup(func() { _ = w.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := readStartup(ctx, bufio.NewReader(r))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestProcessLauncher_MissingExecutable(t *testing.T) {
	dir := t.TempDir()
	m, err := LoadManifest(writeManifest(t, dir, "ghost", "1.0.0"))
	require.NoError(t, err)

	_, err = (&ProcessLauncher{StartTimeout: time.Second}).Launch(context.Background(), m)
	assert.ErrorIs(t, err, ErrPluginUnavailable)

	m.ExecutableType = "jar"
	_, err = (&ProcessLauncher{}).Launch(context.Background(), m)
	assert.ErrorIs(t, err, ErrPluginUnavailable)
}
