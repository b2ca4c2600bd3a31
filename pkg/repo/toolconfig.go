package repo

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// ToolConfig holds tool-level settings, read from TOML. The user file at
// $XDG_CONFIG_HOME/blobby/config.toml applies everywhere; a .blobby.toml at
// the repository root overrides it field by field.
type ToolConfig struct {
	// MaxDeltaDepth bounds delta chain resolution.
	MaxDeltaDepth int `toml:"max_delta_depth"`
	// CacheSize is the number of decoded objects kept in memory.
	CacheSize int `toml:"cache_size"`
	// VerifyIntegrity recomputes hashes and checksums on every read.
	VerifyIntegrity bool `toml:"verify_integrity"`
}

// DefaultToolConfig returns the settings used when no config file exists.
func DefaultToolConfig() ToolConfig {
	return ToolConfig{
		MaxDeltaDepth: 50,
		CacheSize:     512,
	}
}

// LoadToolConfig reads the user config followed by the repository-local
// override. rootDir may be empty (bare repository), which skips the local
// file. Missing files are not errors.
func LoadToolConfig(rootDir string) (ToolConfig, error) {
	cfg := DefaultToolConfig()

	if userPath := userConfigPath(); userPath != "" {
		if err := mergeToolConfig(&cfg, userPath); err != nil {
			return cfg, err
		}
	}
	if rootDir != "" {
		if err := mergeToolConfig(&cfg, filepath.Join(rootDir, ".blobby.toml")); err != nil {
			return cfg, err
		}
	}

	if cfg.MaxDeltaDepth <= 0 {
		return cfg, fmt.Errorf("tool config: max_delta_depth must be positive, got %d", cfg.MaxDeltaDepth)
	}
	if cfg.CacheSize <= 0 {
		return cfg, fmt.Errorf("tool config: cache_size must be positive, got %d", cfg.CacheSize)
	}
	return cfg, nil
}

func userConfigPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "blobby", "config.toml")
}

// mergeToolConfig overlays the file at path onto cfg. Only keys present in
// the file are touched.
func mergeToolConfig(cfg *ToolConfig, path string) error {
	meta, err := toml.DecodeFile(path, cfg)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("tool config %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return fmt.Errorf("tool config %s: unknown key %q", path, undecoded[0].String())
	}
	return nil
}
