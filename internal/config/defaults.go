package config

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() *Config {
	return &Config{
		Corpus: CorpusConfig{
			Path:      "~/.config/puzzler/lichess_db_puzzle.csv",
			URL:       "https://database.lichess.org/lichess_db_puzzle.csv.zst",
			BatchSize: 1024,
		},
		Search: SearchConfig{
			Limit:         200000,
			MinRating:     1250,
			MaxRating:     1750,
			MinPopularity: 0,
			ThemeMatch:    "any",
			Random:        true,
		},
		Solver: SolverConfig{
			AcceptAlternateMates: false,
			RecordAttempts:       true,
		},
		Storage: StorageConfig{
			Path:              "~/.config/puzzler",
			SQLiteFile:        "puzzler.db",
			SQLiteJournalMode: "wal",
		},
		Retention: RetentionConfig{
			UnfavoritedDays: 30,
		},
		Engine: EngineConfig{
			Path:    "/usr/games/stockfish",
			Depth:   40,
			HashMB:  256,
			Threads: 1,
			Lines:   1,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Metrics: MetricsConfig{
			Textfile: "",
		},
	}
}
