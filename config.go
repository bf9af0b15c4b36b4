package ferry

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

const (
	configDir           = ".ferry"
	configFileName      = "settings.toml"
	localConfigFileName = "settings.local.toml"
)

// Config holds ferry settings loaded from .ferry/settings.toml,
// optionally overridden by .ferry/settings.local.toml.
type Config struct {
	// Destination is the default sync destination, "[host:]path".
	Destination string `toml:"destination"`

	// KeepRef leaves the synthetic commit on the remote's current ref
	// instead of restoring the original ref after checkout.
	KeepRef *bool `toml:"keep_ref"`

	// Files restricts syncs to paths matching these patterns by default.
	Files []string `toml:"files"`

	// ExtraScript fragments are appended to the remote apply script
	// after the synchronization steps.
	ExtraScript []string `toml:"extra_script"`
}

// ShouldKeepRef returns the keep_ref setting, defaulting to false.
func (c *Config) ShouldKeepRef() bool {
	return c.KeepRef != nil && *c.KeepRef
}

// ConfigResult holds the loaded config and any warnings produced while loading.
type ConfigResult struct {
	Config   *Config
	Warnings []string
}

// LoadConfig loads configuration from dir. Missing config files are not an
// error; an empty Config is returned. Values in settings.local.toml override
// values in settings.toml field by field (zero values do not override).
func LoadConfig(dir string) (*ConfigResult, error) {
	result := &ConfigResult{Config: &Config{}}

	projCfg, warns, err := loadConfigFile(filepath.Join(dir, configDir, configFileName))
	if err != nil {
		return nil, err
	}
	result.Warnings = append(result.Warnings, warns...)
	if projCfg != nil {
		result.Config = projCfg
	}

	localCfg, warns, err := loadConfigFile(filepath.Join(dir, configDir, localConfigFileName))
	if err != nil {
		return nil, err
	}
	result.Warnings = append(result.Warnings, warns...)
	if localCfg != nil {
		mergeConfig(result.Config, localCfg)
	}

	return result, nil
}

// mergeConfig overlays non-zero fields of local onto base.
func mergeConfig(base, local *Config) {
	if local.Destination != "" {
		base.Destination = local.Destination
	}
	if local.KeepRef != nil {
		base.KeepRef = local.KeepRef
	}
	if len(local.Files) > 0 {
		base.Files = local.Files
	}
	if len(local.ExtraScript) > 0 {
		base.ExtraScript = append(base.ExtraScript, local.ExtraScript...)
	}
}

func loadConfigFile(path string) (*Config, []string, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, nil, nil
	}

	var config Config
	meta, err := toml.DecodeFile(path, &config)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	var warnings []string
	for _, key := range meta.Undecoded() {
		warnings = append(warnings, fmt.Sprintf("unknown key %q in %s", key.String(), filepath.Base(path)))
	}

	return &config, warnings, nil
}

// ConfigPath returns the path of the project settings file under dir.
func ConfigPath(dir string) string {
	return filepath.Join(dir, configDir, configFileName)
}

// configRelPath is the settings file path relative to the project root,
// used in user-facing messages.
func configRelPath() string {
	return strings.Join([]string{configDir, configFileName}, string(filepath.Separator))
}
