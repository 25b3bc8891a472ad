package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Addr        string `env:"TABLECLOTH_ADDR" envDefault:":8080"`
	AssetDir    string `env:"TABLECLOTH_ASSET_DIR" envDefault:"assets/tablecloth"`
	TeamsFile   string `env:"TABLECLOTH_TEAMS_FILE" envDefault:"team-information.json"`
	FallbackDir string `env:"TABLECLOTH_FALLBACK_DIR" envDefault:"."`
	JPEGQuality int    `env:"TABLECLOTH_JPEG_QUALITY" envDefault:"95"`
	LoadWorkers int    `env:"TABLECLOTH_LOAD_WORKERS" envDefault:"4"`
	LogLevel    string `env:"TABLECLOTH_LOG_LEVEL" envDefault:"info"`
	Development bool   `env:"TABLECLOTH_DEV" envDefault:"false"`
}

// Load reads the given dotenv files, skipping any that do not exist, then
// parses the environment. Variables already set win over dotenv values.
func Load(files ...string) (Config, error) {
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		return fmt.Errorf("TABLECLOTH_JPEG_QUALITY must be in 1..100, got %d", c.JPEGQuality)
	}
	if c.LoadWorkers < 1 {
		return fmt.Errorf("TABLECLOTH_LOAD_WORKERS must be positive, got %d", c.LoadWorkers)
	}
	if c.AssetDir == "" {
		return errors.New("TABLECLOTH_ASSET_DIR is required")
	}
	return nil
}
