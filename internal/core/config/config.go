package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/leopaglia/blumen-installer/internal/core/downloader"
	"github.com/leopaglia/blumen-installer/internal/core/source"
)

// SettingsFileName is the settings file looked up in the working directory.
const SettingsFileName = "blumen.toml"

// Settings is the content of blumen.toml. Every key is optional.
type Settings struct {
	Template   string        `toml:"template"`
	Timeout    time.Duration `toml:"timeout"` // 0 keeps the HTTP client's default
	Progress   bool          `toml:"progress"`
	TempPrefix string        `toml:"temp_prefix"`
}

// Default returns the settings used when no file is present.
func Default() *Settings {
	return &Settings{
		Template:   source.DefaultTemplate,
		Progress:   true,
		TempPrefix: downloader.DefaultPrefix,
	}
}

// Load reads blumen.toml from dirPath. A missing file yields the defaults.
func Load(dirPath string) (*Settings, error) {
	s, err := LoadFile(filepath.Join(dirPath, SettingsFileName))
	if errors.Is(err, os.ErrNotExist) {
		return Default(), nil
	}
	return s, err
}

// LoadFile reads the settings file at path on top of the defaults.
// Unknown keys are rejected.
func LoadFile(path string) (*Settings, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}

	s := Default()
	md, err := toml.DecodeFile(path, s)
	if err != nil {
		return nil, fmt.Errorf("failed to decode settings %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		return nil, fmt.Errorf("unknown keys in settings %s: %s", path, strings.Join(keys, ", "))
	}
	if s.Timeout < 0 {
		return nil, fmt.Errorf("invalid timeout in settings %s: %s must not be negative", path, s.Timeout)
	}
	if s.TempPrefix == "" || strings.ContainsAny(s.TempPrefix, `/\`) {
		return nil, fmt.Errorf("invalid temp_prefix in settings %s: %q", path, s.TempPrefix)
	}
	return s, nil
}
