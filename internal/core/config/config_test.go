package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSettings(t *testing.T, dir, content string) string {
	t.Helper()
	p := filepath.Join(dir, SettingsFileName)
	require.NoError(t, os.WriteFile(p, []byte(content), 0644))
	return p
}

func TestLoad_Valid(t *testing.T) {
	tempDir := t.TempDir()
	writeSettings(t, tempDir, `
template = "github:owner/starter@v2"
timeout = "2m30s"
progress = false
temp_prefix = "scaffold"
`)

	s, err := Load(tempDir)
	require.NoError(t, err)
	assert.Equal(t, "github:owner/starter@v2", s.Template)
	assert.Equal(t, 150*time.Second, s.Timeout)
	assert.False(t, s.Progress)
	assert.Equal(t, "scaffold", s.TempPrefix)
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	tempDir := t.TempDir()
	writeSettings(t, tempDir, `timeout = "10s"`)

	s, err := Load(tempDir)
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, s.Timeout)
	assert.Equal(t, Default().Template, s.Template)
	assert.True(t, s.Progress)
	assert.Equal(t, "blumen", s.TempPrefix)
}

func TestLoad_NotFoundReturnsDefaults(t *testing.T) {
	s, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, Default(), s)
}

func TestLoadFile_NotFound(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "custom.toml"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist), "Error should be a 'file not found' type error")
}

func TestLoad_InvalidFormat(t *testing.T) {
	tempDir := t.TempDir()
	writeSettings(t, tempDir, `template = "unterminated`)

	_, err := Load(tempDir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to decode settings")
}

func TestLoad_UnknownKey(t *testing.T) {
	tempDir := t.TempDir()
	writeSettings(t, tempDir, `templat = "typo"`)

	_, err := Load(tempDir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown keys")
	assert.Contains(t, err.Error(), "templat")
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := map[string]string{
		"negative timeout": `timeout = "-1s"`,
		"empty prefix":     `temp_prefix = ""`,
		"prefix with path": `temp_prefix = "../x"`,
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			tempDir := t.TempDir()
			writeSettings(t, tempDir, content)
			_, err := Load(tempDir)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid")
		})
	}
}
