package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Default config file path.
const DefaultConfigPath = "~/.config/puzzler/config.yaml"

// Config holds all puzzler configuration.
type Config struct {
	Corpus    CorpusConfig    `yaml:"corpus"`
	Search    SearchConfig    `yaml:"search"`
	Solver    SolverConfig    `yaml:"solver"`
	Storage   StorageConfig   `yaml:"storage"`
	Retention RetentionConfig `yaml:"retention"`
	Engine    EngineConfig    `yaml:"engine"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

type CorpusConfig struct {
	Path      string `yaml:"path"`
	URL       string `yaml:"url"`
	BatchSize int    `yaml:"batch_size"`
}

type SearchConfig struct {
	Limit         int    `yaml:"limit"`
	MinRating     int    `yaml:"min_rating"`
	MaxRating     int    `yaml:"max_rating"`
	MinPopularity int    `yaml:"min_popularity"`
	ThemeMatch    string `yaml:"theme_match"`
	Random        bool   `yaml:"random"`
}

type SolverConfig struct {
	AcceptAlternateMates bool `yaml:"accept_alternate_mates"`
	RecordAttempts       bool `yaml:"record_attempts"`
}

type StorageConfig struct {
	Path              string `yaml:"path"`
	SQLiteFile        string `yaml:"sqlite_file"`
	SQLiteJournalMode string `yaml:"sqlite_journal_mode"`
}

// RetentionConfig controls how long unfavorited rows are kept before
// prune removes them.
type RetentionConfig struct {
	UnfavoritedDays int `yaml:"unfavorited_days"`
}

type EngineConfig struct {
	Path    string `yaml:"path"`
	Depth   int    `yaml:"depth"`
	HashMB  int    `yaml:"hash_mb"`
	Threads int    `yaml:"threads"`
	Lines   int    `yaml:"lines"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig names where scan counters are written after search and
// solve. An empty Textfile disables the export.
type MetricsConfig struct {
	Textfile string `yaml:"textfile"`
}

// MetricsPath returns the expanded metrics textfile path, or "" when the
// export is disabled.
func (c *Config) MetricsPath() (string, error) {
	if c.Metrics.Textfile == "" {
		return "", nil
	}
	return ExpandPath(c.Metrics.Textfile)
}

// Load reads a YAML config file at path and merges it with defaults.
// Returns an error if the file cannot be read, contains invalid YAML,
// or names a value puzzler does not understand.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values that cannot be acted on. A min_rating above
// max_rating is allowed; such a search simply matches nothing.
func (c *Config) Validate() error {
	switch c.Search.ThemeMatch {
	case "any", "all":
	default:
		return fmt.Errorf("search.theme_match: unknown mode %q", c.Search.ThemeMatch)
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unknown format %q", c.Logging.Format)
	}
	if c.Corpus.BatchSize < 0 {
		return fmt.Errorf("corpus.batch_size: must not be negative, got %d", c.Corpus.BatchSize)
	}
	if c.Search.Limit < 0 {
		return fmt.Errorf("search.limit: must not be negative, got %d", c.Search.Limit)
	}
	return nil
}

// DBPath returns the expanded path of the SQLite database.
func (c *Config) DBPath() (string, error) {
	dir, err := ExpandPath(c.Storage.Path)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, c.Storage.SQLiteFile), nil
}

// CorpusPath returns the expanded path of the puzzle corpus.
func (c *Config) CorpusPath() (string, error) {
	return ExpandPath(c.Corpus.Path)
}

// ExpandPath replaces a leading ~ with the user's home directory.
func ExpandPath(path string) (string, error) {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolving home directory: %w", err)
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}

// LoadOrCreate loads the config from the default path. If the file does
// not exist, it creates the directory structure and writes defaults.
func LoadOrCreate() (*Config, error) {
	path, err := ExpandPath(DefaultConfigPath)
	if err != nil {
		return nil, err
	}
	return LoadOrCreateAt(path)
}

// LoadOrCreateAt loads the config from the given path. If the file does
// not exist, it creates the directory structure and writes defaults.
func LoadOrCreateAt(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := DefaultConfig()

		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating config directory: %w", err)
		}

		data, err := yaml.Marshal(cfg)
		if err != nil {
			return nil, fmt.Errorf("marshaling default config: %w", err)
		}

		if err := os.WriteFile(path, data, 0644); err != nil {
			return nil, fmt.Errorf("writing default config: %w", err)
		}

		return cfg, nil
	}

	return Load(path)
}
