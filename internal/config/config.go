package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for the menupipe pipeline.
type Config struct {
	Storage   Storage   `yaml:"storage"`
	Provider  Provider  `yaml:"provider"`
	Index     Index     `yaml:"index"`
	Embedding Embedding `yaml:"embedding"`
	Pipeline  Pipeline  `yaml:"pipeline"`
	Logging   Logging   `yaml:"logging"`
	Metrics   Metrics   `yaml:"metrics"`
}

// Storage holds paths for canonical document persistence.
type Storage struct {
	DataDir      string `yaml:"data_dir"`
	ManifestPath string `yaml:"manifest_path"`
}

// Provider holds the menu provider API endpoint and the product space of
// locations and meal types fetched each cycle.
type Provider struct {
	BaseURL         string   `yaml:"base_url"`
	Locations       []string `yaml:"locations"`
	Meals           []string `yaml:"meals"`
	TimeoutSeconds  int      `yaml:"timeout_seconds"`
	MaxWorkers      int      `yaml:"max_workers"`
	RateLimitPerMin int      `yaml:"rate_limit_per_min"`
	RetryAttempts   int      `yaml:"retry_attempts"`
}

// Index holds connection parameters for the index store.
type Index struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	APIKey     string `yaml:"api_key"`
	UseTLS     bool   `yaml:"use_tls"`
	Collection string `yaml:"collection"`
	BatchSize  int    `yaml:"batch_size"`
}

// Embedding holds the embedding service endpoint used when loading
// documents. The model is configuration, not pipeline logic.
type Embedding struct {
	BaseURL        string `yaml:"base_url"`
	APIKey         string `yaml:"api_key"`
	Model          string `yaml:"model"`
	Dimensions     int    `yaml:"dimensions"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	MaxConcurrent  int    `yaml:"max_concurrent"`
}

// Pipeline holds run-wide settings.
type Pipeline struct {
	Timezone string `yaml:"timezone"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Metrics configures the optional Pushgateway metrics push at the end of a
// run.
type Metrics struct {
	Enabled bool   `yaml:"enabled"`
	Gateway string `yaml:"gateway"`
	Job     string `yaml:"job"`
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads the YAML configuration file at the given path, parses it into a
// Config struct, applies environment variable overrides, and validates the
// result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// defaultConfig returns a Config with working defaults for everything that
// has a sensible one. Provider endpoint and product space have no defaults
// and must come from the file or environment.
func defaultConfig() *Config {
	return &Config{
		Storage: Storage{
			DataDir: "data",
		},
		Provider: Provider{
			TimeoutSeconds:  15,
			MaxWorkers:      5,
			RateLimitPerMin: 120,
			RetryAttempts:   3,
		},
		Index: Index{
			Host:       "localhost",
			Port:       6334,
			Collection: "menus",
			BatchSize:  64,
		},
		Embedding: Embedding{
			Model:          "text-embedding-3-small",
			Dimensions:     1536,
			TimeoutSeconds: 60,
			MaxConcurrent:  4,
		},
		Pipeline: Pipeline{
			Timezone: "America/Chicago",
		},
		Logging: Logging{
			Level:  "info",
			Format: "json",
		},
		Metrics: Metrics{
			Job: "menupipe",
		},
	}
}

// validate rejects configurations the pipeline cannot run with. These are
// the unrecoverable configuration errors of the orchestrator's failure
// taxonomy.
func (c *Config) validate() error {
	if c.Provider.BaseURL == "" {
		return fmt.Errorf("config: provider.base_url is required")
	}
	if len(c.Provider.Locations) == 0 {
		return fmt.Errorf("config: provider.locations is required")
	}
	if len(c.Provider.Meals) == 0 {
		return fmt.Errorf("config: provider.meals is required")
	}
	if c.Storage.DataDir == "" {
		return fmt.Errorf("config: storage.data_dir is required")
	}
	return nil
}

// ManifestDBPath returns the configured manifest path, defaulting to
// manifest.db inside the data directory.
func (c *Config) ManifestDBPath() string {
	if c.Storage.ManifestPath != "" {
		return c.Storage.ManifestPath
	}
	return c.Storage.DataDir + string(os.PathSeparator) + "manifest.db"
}

// applyEnvOverrides checks well-known environment variables and overrides
// the corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("MANIFEST_PATH"); v != "" {
		cfg.Storage.ManifestPath = v
	}

	if v := os.Getenv("PROVIDER_BASE_URL"); v != "" {
		cfg.Provider.BaseURL = v
	}
	if v := os.Getenv("PROVIDER_LOCATIONS"); v != "" {
		cfg.Provider.Locations = splitList(v)
	}
	if v := os.Getenv("PROVIDER_MEALS"); v != "" {
		cfg.Provider.Meals = splitList(v)
	}

	if v := os.Getenv("QDRANT_HOST"); v != "" {
		cfg.Index.Host = v
	}
	if v := os.Getenv("QDRANT_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Index.Port = port
		}
	}
	if v := os.Getenv("QDRANT_API_KEY"); v != "" {
		cfg.Index.APIKey = v
		cfg.Index.UseTLS = true
	}
	if v := os.Getenv("QDRANT_COLLECTION"); v != "" {
		cfg.Index.Collection = v
	}

	if v := os.Getenv("EMBEDDING_BASE_URL"); v != "" {
		cfg.Embedding.BaseURL = v
	}
	if v := os.Getenv("EMBEDDING_API_KEY"); v != "" {
		cfg.Embedding.APIKey = v
	}
	if v := os.Getenv("EMBEDDING_MODEL"); v != "" {
		cfg.Embedding.Model = v
	}

	if v := os.Getenv("LOCAL_TZ"); v != "" {
		cfg.Pipeline.Timezone = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("PUSHGATEWAY_URL"); v != "" {
		cfg.Metrics.Gateway = v
		cfg.Metrics.Enabled = true
	}
}

// splitList parses a comma-separated environment value into a clean slice.
func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
