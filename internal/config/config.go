package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for the maru forecaster.
type Config struct {
	Storage  Storage  `yaml:"storage"`
	Server   Server   `yaml:"server"`
	Logging  Logging  `yaml:"logging"`
	Training Training `yaml:"training"`
	Features Features `yaml:"features"`
	Ingest   Ingest   `yaml:"ingest"`
}

// Storage holds paths for data persistence.
type Storage struct {
	DataDir    string `yaml:"data_dir"`
	SQLitePath string `yaml:"sqlite_path"`
}

// Server holds network listener configuration.
type Server struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Training holds the Q-learning hyperparameters.
type Training struct {
	Episodes     int     `yaml:"episodes"`
	Alpha        float64 `yaml:"alpha"`
	Gamma        float64 `yaml:"gamma"`
	EpsilonStart float64 `yaml:"epsilon_start"`
	EpsilonEnd   float64 `yaml:"epsilon_end"`
	EpsilonDecay float64 `yaml:"epsilon_decay"`
	Seed         int64   `yaml:"seed"`
	Horizon      int     `yaml:"horizon"`
}

// Features holds the panel derivation parameters.
type Features struct {
	DirectionThreshold float64 `yaml:"direction_threshold"`
	RateCutLow         float64 `yaml:"rate_cut_low"`
	RateCutHigh        float64 `yaml:"rate_cut_high"`
}

// Ingest holds the CSV source paths for the ingest job.
type Ingest struct {
	TransactionsCSV string `yaml:"transactions_csv"`
	BaseRateCSV     string `yaml:"base_rate_csv"`
	PopulationCSV   string `yaml:"population_csv"`
}

// Default returns a configuration with working defaults for every field, so
// a missing config file still yields a runnable setup.
func Default() *Config {
	return &Config{
		Storage: Storage{
			DataDir:    "data",
			SQLitePath: "data/maru.db",
		},
		Server: Server{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Logging: Logging{
			Level:  "info",
			Format: "json",
		},
		Training: Training{
			Episodes:     300,
			Alpha:        0.1,
			Gamma:        0.9,
			EpsilonStart: 1.0,
			EpsilonEnd:   0.05,
			EpsilonDecay: 0.98,
			Horizon:      12,
		},
		Features: Features{
			DirectionThreshold: 0.01,
			RateCutLow:         3.0,
			RateCutHigh:        3.5,
		},
	}
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads the YAML configuration file at the given path, parses it over
// the defaults, and then applies environment variable overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("MARU_DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("MARU_SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}

	if v := os.Getenv("MARU_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("MARU_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = p
		}
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	if v := os.Getenv("MARU_EPISODES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Training.Episodes = n
		}
	}
	if v := os.Getenv("MARU_SEED"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Training.Seed = n
		}
	}
}
