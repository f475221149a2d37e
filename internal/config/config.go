package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	API       APIConfig       `mapstructure:"api"`
	Viewer    ViewerConfig    `mapstructure:"viewer"`
	Export    ExportConfig    `mapstructure:"export"`
	Presets   PresetsConfig   `mapstructure:"presets"`
	Log       LogConfig       `mapstructure:"log"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	Defaults  DefaultsConfig  `mapstructure:"defaults"`
}

// APIConfig points at the generation service.
type APIConfig struct {
	BaseURL  string        `mapstructure:"base_url"`
	Timeout  time.Duration `mapstructure:"timeout"`
	TokenEnv string        `mapstructure:"token_env"`
	Token    string        `mapstructure:"token"`
}

// ViewerConfig selects the 3D engine. Engine is "terminal" or "web".
type ViewerConfig struct {
	Engine     string `mapstructure:"engine"`
	LibraryURL string `mapstructure:"library_url"`
	CacheDir   string `mapstructure:"cache_dir"`
	WebAddr    string `mapstructure:"web_addr"`
}

type ExportConfig struct {
	Dir string `mapstructure:"dir"`
}

type PresetsConfig struct {
	Path string `mapstructure:"path"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// TelemetryConfig enables span export to a file when TraceFile is set.
type TelemetryConfig struct {
	TraceFile string `mapstructure:"trace_file"`
}

// DefaultsConfig seeds the generation form.
type DefaultsConfig struct {
	SpaceGroup  int     `mapstructure:"spacegroup"`
	NumAtoms    int     `mapstructure:"num_atoms"`
	Temperature float64 `mapstructure:"temperature"`
}

const (
	EngineTerminal = "terminal"
	EngineWeb      = "web"
)

// Load reads configuration from file and env. Env var overrides use prefix CRYSTALGEN_.
func Load() (Config, error) {
	v := viper.New()
	home := os.Getenv("HOME")

	// default values
	v.SetDefault("api.base_url", "http://localhost:5000/api")
	v.SetDefault("api.timeout", "60s")
	v.SetDefault("api.token_env", "CRYSTALGEN_API_TOKEN")
	v.SetDefault("api.token", "")
	v.SetDefault("viewer.engine", EngineTerminal)
	v.SetDefault("viewer.library_url", "https://3Dmol.csb.pitt.edu/build/3Dmol-min.js")
	v.SetDefault("viewer.cache_dir", filepath.Join(home, ".cache", "crystalgen"))
	v.SetDefault("viewer.web_addr", "127.0.0.1:7430")
	v.SetDefault("export.dir", ".")
	v.SetDefault("presets.path", filepath.Join(home, ".config", "crystalgen", "presets.toml"))
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", filepath.Join(home, ".local", "state", "crystalgen", "crystalgen.log"))
	v.SetDefault("telemetry.trace_file", "")
	v.SetDefault("defaults.spacegroup", 225)
	v.SetDefault("defaults.num_atoms", 8)
	v.SetDefault("defaults.temperature", 1.0)

	v.SetConfigType("toml")

	cfgPath := os.Getenv("CRYSTALGEN_CONFIG")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(home, ".config", "crystalgen"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("CRYSTALGEN")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// a missing file is fine; a broken one is not
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func (c *Config) validate() error {
	c.Viewer.Engine = strings.ToLower(strings.TrimSpace(c.Viewer.Engine))
	switch c.Viewer.Engine {
	case EngineTerminal, EngineWeb:
	default:
		return fmt.Errorf("viewer.engine must be %q or %q, got %q", EngineTerminal, EngineWeb, c.Viewer.Engine)
	}
	if strings.TrimSpace(c.API.BaseURL) == "" {
		return fmt.Errorf("api.base_url is required")
	}
	if c.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be positive")
	}
	return nil
}

// Save writes the provided config to disk, creating the config directory if needed.
// The token is never written; use the secrets store or the env var.
func Save(cfg Config) error {
	path := os.Getenv("CRYSTALGEN_CONFIG")
	if path == "" {
		path = filepath.Join(os.Getenv("HOME"), ".config", "crystalgen", "config.toml")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.Set("api.base_url", cfg.API.BaseURL)
	v.Set("api.timeout", cfg.API.Timeout.String())
	v.Set("api.token_env", cfg.API.TokenEnv)
	v.Set("viewer.engine", cfg.Viewer.Engine)
	v.Set("viewer.library_url", cfg.Viewer.LibraryURL)
	v.Set("viewer.cache_dir", cfg.Viewer.CacheDir)
	v.Set("viewer.web_addr", cfg.Viewer.WebAddr)
	v.Set("export.dir", cfg.Export.Dir)
	v.Set("presets.path", cfg.Presets.Path)
	v.Set("log.level", cfg.Log.Level)
	v.Set("log.file", cfg.Log.File)
	v.Set("telemetry.trace_file", cfg.Telemetry.TraceFile)
	v.Set("defaults.spacegroup", cfg.Defaults.SpaceGroup)
	v.Set("defaults.num_atoms", cfg.Defaults.NumAtoms)
	v.Set("defaults.temperature", cfg.Defaults.Temperature)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
