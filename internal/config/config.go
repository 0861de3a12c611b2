// Package config provides configuration management for engram.
// It loads settings from environment variables with the ENGRAM_ prefix
// and provides sensible defaults for all configuration options.
//
// Three layers combine, lowest to highest precedence: built-in defaults,
// an optional engram.yaml bootstrap file (§11 — data directory, backend
// selection, embedder provider), and ENGRAM_* environment variables.
//
// A handful of values are additionally persisted to the settings table in
// the Record Store's own database and take precedence over both the yaml
// file and the environment once a database exists (§10): the data
// directory, embedder provider/model, decay half-life override, and the
// default search limit. LoadConfigFromDB reads these from the database
// first and falls back to the env/yaml value. SaveConfig writes them back.
package config

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration settings for the engram application.
type Config struct {
	Storage StorageConfig
	LLM     LLMConfig
	Tuning  TuningConfig
}

// StorageConfig selects and configures the Record Store backend (§6).
type StorageConfig struct {
	Engine      string // sqlite, postgres (default: sqlite)
	DataPath    string // data directory for the sqlite backend (default: ./data)
	PostgresDSN string // connection string for the postgres backend
}

// LLMConfig configures the optional LLM-backed embedding provider (§4.3,
// §4.5.4). A nil/empty Provider — or a provider that doesn't support
// embeddings — degrades to the deterministic local embedder, per the
// "must work with no LLM configured at all" requirement. The embedding
// model itself is TuningConfig.EmbedderModel, since it is commonly
// swapped independently of these connection settings.
type LLMConfig struct {
	Provider string // ollama, openai (default: ollama)
	APIKey   string // for cloud providers
	BaseURL  string // custom base URL (Ollama/custom endpoints)

	// RequestsPerSecond throttles outbound calls to the configured provider
	// (§10/§11). Zero means use internal/llm's own default rather than
	// disabling throttling outright.
	RequestsPerSecond float64

	// Burst is the token-bucket burst size paired with RequestsPerSecond.
	// Zero means use internal/llm's own default.
	Burst int
}

// TuningConfig carries the handful of values §10 calls out as needing to
// survive without a redeploy: they can come from the yaml bootstrap file
// or an env var, and once a database is open, from the settings table
// (which wins over both).
type TuningConfig struct {
	// DataDir is the on-disk root for sqlite files and the knowledge graph
	// snapshot (§6 Persistent layout). Distinct from StorageConfig.DataPath
	// so the settings-table override can move data without an env restart.
	DataDir string

	// EmbedderProvider/EmbedderModel select the embedding model independently
	// of LLMConfig's connection settings, since the embedding model is the
	// one tunable users swap most often.
	EmbedderProvider string
	EmbedderModel    string

	// DecayHalfLifeDays overrides the recall scoring formula's freshness
	// half-life (§4.5.2); see internal/engine.Config.DecayHalfLifeDays.
	DecayHalfLifeDays float64

	// DefaultSearchLimit is the recall/context result count used when a
	// caller does not specify one (§4.5.1).
	DefaultSearchLimit int
}

// bootstrapFile is the optional engram.yaml shape (§11). Only the fields
// the bootstrap file is documented to carry are present here; everything
// else is env-var only.
type bootstrapFile struct {
	DataDir          string `yaml:"data_dir"`
	Backend          string `yaml:"backend"`
	EmbedderProvider string `yaml:"embedder_provider"`
}

// LoadConfig loads configuration from the optional engram.yaml bootstrap
// file and ENGRAM_*-prefixed environment variables, env vars taking
// precedence. User-facing tunables (TuningConfig) are loaded from
// yaml/env only; use LoadConfigFromDB to also read persisted overrides
// from the database.
func LoadConfig() (*Config, error) {
	cfg := buildBaseConfig(loadBootstrapFile(bootstrapFilePath()))
	return cfg, nil
}

// bootstrapFilePath returns the engram.yaml path to consult: the
// ENGRAM_CONFIG_FILE env var if set, otherwise ./engram.yaml.
func bootstrapFilePath() string {
	if path := os.Getenv("ENGRAM_CONFIG_FILE"); path != "" {
		return path
	}
	return "engram.yaml"
}

// loadBootstrapFile reads and parses path, returning a zero-value
// bootstrapFile (meaning "nothing to layer in") if the file is absent or
// fails to parse. A malformed bootstrap file is not fatal: the yaml layer
// is a first-run convenience, not a required input.
func loadBootstrapFile(path string) bootstrapFile {
	data, err := os.ReadFile(path)
	if err != nil {
		return bootstrapFile{}
	}
	var b bootstrapFile
	if err := yaml.Unmarshal(data, &b); err != nil {
		return bootstrapFile{}
	}
	return b
}

// LoadConfigFromDB loads configuration from yaml/env and then overrides
// the tunable settings with whatever is stored in the settings table.
// Falls back to the yaml/env value for any tunable with no DB entry.
//
// Returns an error if db is nil.
func LoadConfigFromDB(db *sql.DB) (*Config, error) {
	if db == nil {
		return nil, errors.New("config: database connection is required")
	}

	cfg := buildBaseConfig(loadBootstrapFile(bootstrapFilePath()))

	if v, err := getSetting(db, "data_dir"); err == nil && v != "" {
		cfg.Tuning.DataDir = v
	} else if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("config: failed to load data_dir from database: %w", err)
	}
	if v, err := getSetting(db, "embedder_provider"); err == nil && v != "" {
		cfg.Tuning.EmbedderProvider = v
	} else if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("config: failed to load embedder_provider from database: %w", err)
	}
	if v, err := getSetting(db, "embedder_model"); err == nil && v != "" {
		cfg.Tuning.EmbedderModel = v
	} else if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("config: failed to load embedder_model from database: %w", err)
	}
	if v, err := getSetting(db, "decay_half_life_days"); err == nil && v != "" {
		if f, parseErr := strconv.ParseFloat(v, 64); parseErr == nil {
			cfg.Tuning.DecayHalfLifeDays = f
		}
	} else if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("config: failed to load decay_half_life_days from database: %w", err)
	}
	if v, err := getSetting(db, "default_search_limit"); err == nil && v != "" {
		if i, parseErr := strconv.Atoi(v); parseErr == nil {
			cfg.Tuning.DefaultSearchLimit = i
		}
	} else if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("config: failed to load default_search_limit from database: %w", err)
	}

	return cfg, nil
}

// SaveConfig persists the tunable settings to the settings table in the
// database, using upsert semantics so they survive restarts without a
// redeploy (§10).
//
// Returns an error if db is nil.
func (c *Config) SaveConfig(db *sql.DB) error {
	if db == nil {
		return errors.New("config: database connection is required")
	}

	settings := map[string]string{
		"data_dir":             c.Tuning.DataDir,
		"embedder_provider":    c.Tuning.EmbedderProvider,
		"embedder_model":       c.Tuning.EmbedderModel,
		"decay_half_life_days": strconv.FormatFloat(c.Tuning.DecayHalfLifeDays, 'f', -1, 64),
		"default_search_limit": strconv.Itoa(c.Tuning.DefaultSearchLimit),
	}
	for key, value := range settings {
		if err := setSetting(db, key, value); err != nil {
			return fmt.Errorf("config: failed to save %s: %w", key, err)
		}
	}
	return nil
}

// getSetting retrieves a single setting value by key from the settings table.
// Returns an empty string and sql.ErrNoRows if the key does not exist.
func getSetting(db *sql.DB, key string) (string, error) {
	var value string
	err := db.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if err != nil {
		return "", err
	}
	return value, nil
}

// setSetting writes a key-value pair to the settings table using upsert semantics.
func setSetting(db *sql.DB, key, value string) error {
	_, err := db.Exec(`
		INSERT INTO settings (key, value)
		VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = CURRENT_TIMESTAMP
	`, key, value)
	return err
}

// buildBaseConfig constructs a Config from built-in defaults, layering the
// parsed bootstrap file (if any) under the ENGRAM_* environment variables.
func buildBaseConfig(boot bootstrapFile) *Config {
	dataDir := "./data"
	if boot.DataDir != "" {
		dataDir = boot.DataDir
	}
	storageEngine := "sqlite"
	if boot.Backend != "" {
		storageEngine = boot.Backend
	}
	embedderProvider := "ollama"
	if boot.EmbedderProvider != "" {
		embedderProvider = boot.EmbedderProvider
	}

	return &Config{
		Storage: StorageConfig{
			Engine:      getEnv("ENGRAM_STORAGE_ENGINE", storageEngine),
			DataPath:    getEnv("ENGRAM_DATA_PATH", dataDir),
			PostgresDSN: getEnv("ENGRAM_POSTGRES_DSN", ""),
		},
		LLM: LLMConfig{
			Provider:          getEnv("ENGRAM_LLM_PROVIDER", "ollama"),
			APIKey:            getEnv("ENGRAM_LLM_API_KEY", ""),
			BaseURL:           getEnv("ENGRAM_LLM_BASE_URL", "http://localhost:11434"),
			RequestsPerSecond: getEnvFloat("ENGRAM_LLM_REQUESTS_PER_SECOND", 2),
			Burst:             getEnvInt("ENGRAM_LLM_BURST", 4),
		},
		Tuning: TuningConfig{
			DataDir:            getEnv("ENGRAM_DATA_PATH", dataDir),
			EmbedderProvider:   getEnv("ENGRAM_EMBEDDER_PROVIDER", embedderProvider),
			EmbedderModel:      getEnv("ENGRAM_EMBEDDER_MODEL", "nomic-embed-text"),
			DecayHalfLifeDays:  getEnvFloat("ENGRAM_DECAY_HALF_LIFE_DAYS", 30),
			DefaultSearchLimit: getEnvInt("ENGRAM_DEFAULT_SEARCH_LIMIT", 10),
		},
	}
}

// getEnv retrieves a string environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns a default value.
// If the environment variable exists but cannot be parsed as an integer,
// it returns the default value.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvFloat retrieves a float environment variable or returns a default value.
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
