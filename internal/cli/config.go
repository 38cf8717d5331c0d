package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds serve settings resolvable from (lowest to highest
// precedence) defaults, a YAML config file, environment variables, and
// command line flags.
type Config struct {
	// Source is the CSV path or URL.
	Source string `yaml:"source"`

	// Table overrides the table name derived from the source.
	Table string `yaml:"table,omitempty"`

	// Addr is the listen address.
	Addr string `yaml:"addr"`
}

// DefaultAddr is the listen address used when nothing overrides it.
const DefaultAddr = "127.0.0.1:8000"

// Environment variable overrides read after the config file.
const (
	envSource = "CSVAPI_SOURCE"
	envTable  = "CSVAPI_TABLE"
	envAddr   = "CSVAPI_ADDR"
)

// LoadConfig resolves the serve configuration. A .env file in the working
// directory is loaded first when present (missing is fine); then the YAML
// config file if path is non-empty; then environment variables. Flags are
// applied by the caller on top.
func LoadConfig(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{Addr: DefaultAddr}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
		if cfg.Addr == "" {
			cfg.Addr = DefaultAddr
		}
	}

	if v := os.Getenv(envSource); v != "" {
		cfg.Source = v
	}
	if v := os.Getenv(envTable); v != "" {
		cfg.Table = v
	}
	if v := os.Getenv(envAddr); v != "" {
		cfg.Addr = v
	}

	return cfg, nil
}
