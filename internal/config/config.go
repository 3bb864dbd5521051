// Package config loads the catalog configuration file.
//
// Values come from, in increasing precedence: built-in defaults, a YAML file
// named catalog.yaml found on the search path (or given explicitly), and
// CATALOG_* environment variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/roach88/catalog/internal/model"
	"github.com/roach88/catalog/internal/store"
)

// Config is the on-disk configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database" mapstructure:"database"`
	Logging  LoggingConfig  `yaml:"logging" mapstructure:"logging"`
	Settings SettingsConfig `yaml:"settings" mapstructure:"settings"`
}

// DatabaseConfig locates and tunes the SQLite store.
type DatabaseConfig struct {
	Path          string `yaml:"path" mapstructure:"path"`
	BusyTimeoutMS int    `yaml:"busy_timeout_ms" mapstructure:"busy_timeout_ms"`
}

// LoggingConfig controls console log output.
type LoggingConfig struct {
	Level string `yaml:"level" mapstructure:"level"` // debug, info, warn, error
}

// SettingsConfig overrides the hard-coded setting defaults. Keys are
// setting names such as "Model Name"; matching ignores case.
type SettingsConfig struct {
	Defaults map[string]any `yaml:"defaults" mapstructure:"defaults"`
}

const (
	configName = "catalog"
	configType = "yaml"
	envPrefix  = "CATALOG"
)

// DefaultDatabasePath is used when no path is configured.
const DefaultDatabasePath = "catalog.db"

// Default returns the configuration used when no file is found.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:          DefaultDatabasePath,
			BusyTimeoutMS: store.DefaultBusyTimeoutMS,
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// SearchPaths returns the directories searched for catalog.yaml, in order.
func SearchPaths() []string {
	paths := []string{"."}
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, "catalog"))
	}
	return paths
}

// Load reads configuration. An explicit file must exist; otherwise the
// search paths are tried and a missing file yields the defaults.
func Load(file string) (*Config, error) {
	v := viper.New()
	v.SetConfigType(configType)
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName(configName)
		for _, p := range SearchPaths() {
			v.AddConfigPath(p)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("database.path", d.Database.Path)
	v.SetDefault("database.busy_timeout_ms", d.Database.BusyTimeoutMS)
	v.SetDefault("logging.level", d.Logging.Level)
}

// Validate checks field ranges, setting names and duration values.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Database.Path == "" {
		errs = append(errs, errors.New("database.path is required"))
	}
	if cfg.Database.BusyTimeoutMS < 0 {
		errs = append(errs, fmt.Errorf("database.busy_timeout_ms must not be negative, got %d", cfg.Database.BusyTimeoutMS))
	}
	switch strings.ToLower(cfg.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Errorf("logging.level %q is not one of debug, info, warn, error", cfg.Logging.Level))
	}
	if _, err := cfg.SettingDefaults(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// SlogLevel returns the configured console level. Invalid levels were
// rejected by Validate and fall back to info.
func (c *Config) SlogLevel() slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.Logging.Level)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// SettingDefaults converts the configured overrides into setting values.
func (c *Config) SettingDefaults() (map[model.SettingID]model.SettingValue, error) {
	out := make(map[model.SettingID]model.SettingValue, len(c.Settings.Defaults))
	var errs []error
	for name, raw := range c.Settings.Defaults {
		// viper lowercases map keys.
		id, ok := model.LookupSettingID(name)
		if !ok {
			errs = append(errs, fmt.Errorf("settings.defaults: unknown setting %q", name))
			continue
		}
		v, err := settingValue(raw)
		if err != nil {
			errs = append(errs, fmt.Errorf("settings.defaults[%s]: %w", id, err))
			continue
		}
		if id == model.SettingLogRetentionDuration {
			s, _ := v.AsString()
			if !model.Duration(s).Valid() {
				errs = append(errs, fmt.Errorf("settings.defaults[%s]: unknown duration %q", id, s))
				continue
			}
		}
		out[id] = v
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return out, nil
}

func settingValue(raw any) (model.SettingValue, error) {
	switch x := raw.(type) {
	case bool:
		return model.Bool(x), nil
	case string:
		return model.String(x), nil
	case int:
		return model.Number(float64(x)), nil
	case int64:
		return model.Number(float64(x)), nil
	case float64:
		return model.Number(x), nil
	default:
		return model.SettingValue{}, fmt.Errorf("unsupported value type %T", raw)
	}
}

// Write encodes cfg as YAML to path.
func Write(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
