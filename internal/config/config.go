package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/iancoleman/strcase"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Key case styles applied to field names when producing JSON keys
const (
	KeyCaseNone       = "none"
	KeyCaseSnake      = "snake"
	KeyCaseCamel      = "camel"
	KeyCaseLowerCamel = "lower_camel"
	KeyCaseKebab      = "kebab"
)

// Config represents the complete configuration for jsonbuilder
type Config struct {
	Naming   NamingConfig   `yaml:"naming" toml:"naming"`
	Finalize FinalizeConfig `yaml:"finalize" toml:"finalize"`
	Server   ServerConfig   `yaml:"server" toml:"server"`
	Display  DisplayConfig  `yaml:"display" toml:"display"`
	Dev      DevConfig      `yaml:"dev" toml:"dev"`
}

// NamingConfig controls how field names become JSON keys
type NamingConfig struct {
	KeyCase       string            `yaml:"key_case" toml:"key_case"`
	FieldMappings map[string]string `yaml:"field_mappings" toml:"field_mappings"`
}

// FinalizeConfig controls the finalize action. A MaxErrorsShown of 0 lists
// every problem.
type FinalizeConfig struct {
	MaxErrorsShown int `yaml:"max_errors_shown" toml:"max_errors_shown"`
}

// ServerConfig controls the HTTP editing server
type ServerConfig struct {
	Addr        string `yaml:"addr" toml:"addr"`
	IdleTimeout string `yaml:"idle_timeout" toml:"idle_timeout"`
	MaxAge      string `yaml:"max_age" toml:"max_age"`
}

// DisplayConfig controls terminal output
type DisplayConfig struct {
	Color bool `yaml:"color" toml:"color"`
}

// DevConfig contains development/debug options. Verbose makes the server log
// every request.
type DevConfig struct {
	Debug   bool `yaml:"debug" toml:"debug"`
	Verbose bool `yaml:"verbose" toml:"verbose"`
}

// NewConfig creates a new Config with default values
func NewConfig() *Config {
	return &Config{
		Naming: NamingConfig{
			KeyCase:       KeyCaseNone,
			FieldMappings: make(map[string]string),
		},
		Finalize: FinalizeConfig{
			MaxErrorsShown: 3,
		},
		Server: ServerConfig{
			Addr:        "127.0.0.1:8080",
			IdleTimeout: "30m",
			MaxAge:      "24h",
		},
		Display: DisplayConfig{
			Color: true,
		},
		Dev: DevConfig{
			Debug:   false,
			Verbose: false,
		},
	}
}

// LoadConfig loads configuration from a YAML or TOML file, chosen by extension
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Start with defaults
	cfg := NewConfig()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file: %w", err)
	}

	return cfg, nil
}

// FindConfigFile searches for a config file in current directory and parents
func FindConfigFile() string {
	configNames := []string{".jsonbuilder.yml", ".jsonbuilder.yaml", ".jsonbuilder.toml", "jsonbuilder.yml", "jsonbuilder.yaml", "jsonbuilder.toml"}

	currentDir, err := os.Getwd()
	if err != nil {
		return ""
	}

	// Search up the directory tree
	for {
		for _, name := range configNames {
			configPath := filepath.Join(currentDir, name)
			if _, err := os.Stat(configPath); err == nil {
				return configPath
			}
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			break
		}
		currentDir = parentDir
	}

	return ""
}

// Validate checks option values that cannot be expressed by the file format
func (c *Config) Validate() error {
	switch c.Naming.KeyCase {
	case "", KeyCaseNone, KeyCaseSnake, KeyCaseCamel, KeyCaseLowerCamel, KeyCaseKebab:
	default:
		return fmt.Errorf("unknown key_case '%s'", c.Naming.KeyCase)
	}
	if c.Finalize.MaxErrorsShown < 0 {
		return fmt.Errorf("max_errors_shown must not be negative, got %d", c.Finalize.MaxErrorsShown)
	}
	if _, err := c.IdleTimeout(); err != nil {
		return err
	}
	if _, err := c.MaxAge(); err != nil {
		return err
	}
	return nil
}

// GetKeyName returns the JSON key for a field name, applying naming rules
func (c *Config) GetKeyName(name string) string {
	// Check custom mappings first
	if mapped, exists := c.Naming.FieldMappings[name]; exists {
		return mapped
	}

	switch c.Naming.KeyCase {
	case KeyCaseSnake:
		return strcase.ToSnake(name)
	case KeyCaseCamel:
		return strcase.ToCamel(name)
	case KeyCaseLowerCamel:
		return strcase.ToLowerCamel(name)
	case KeyCaseKebab:
		return strcase.ToKebab(name)
	}

	return name
}

// RewritesKeys reports whether GetKeyName can change a name
func (c *Config) RewritesKeys() bool {
	return len(c.Naming.FieldMappings) > 0 || (c.Naming.KeyCase != "" && c.Naming.KeyCase != KeyCaseNone)
}

// IdleTimeout returns how long an idle editing session is kept
func (c *Config) IdleTimeout() (time.Duration, error) {
	d, err := time.ParseDuration(c.Server.IdleTimeout)
	if err != nil {
		return 0, fmt.Errorf("invalid idle_timeout '%s': %w", c.Server.IdleTimeout, err)
	}
	return d, nil
}

// MaxAge returns how long an editing session is kept at most
func (c *Config) MaxAge() (time.Duration, error) {
	d, err := time.ParseDuration(c.Server.MaxAge)
	if err != nil {
		return 0, fmt.Errorf("invalid max_age '%s': %w", c.Server.MaxAge, err)
	}
	return d, nil
}

// LoadConfigWithCLI loads config with CLI argument precedence.
// Empty CLI values leave the file (or default) value in place.
func LoadConfigWithCLI(configPath, cliAddr string, cliDebug, cliNoColor bool) (*Config, error) {
	cfg := NewConfig()

	if configPath != "" {
		fileConfig, err := LoadConfig(configPath)
		if err != nil {
			return nil, err
		}
		cfg = fileConfig
	}

	if cliAddr != "" {
		cfg.Server.Addr = cliAddr
	}
	if cliDebug {
		cfg.Dev.Debug = true
	}
	if cliNoColor {
		cfg.Display.Color = false
	}

	return cfg, nil
}
