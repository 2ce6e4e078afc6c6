// Package config loads tool configuration from the environment, optional
// .env files, and an optional TOML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"

	"github.com/grn-bogo/ziasync/internal/zia"
)

// Config holds every knob of a run. Environment variables provide the base
// values; a TOML file given via --config overrides them.
type Config struct {
	// BaseURL is the admin API base, including the version prefix.
	BaseURL string `env:"ZIA_BASE_URL" envDefault:"https://admin.zscalerthree.net/api/v1" toml:"base_url"`

	Username string `env:"ZIA_USERNAME" toml:"username"`
	Password string `env:"ZIA_PASSWORD" toml:"password"`
	APIKey   string `env:"ZIA_API_KEY"  toml:"api_key"`

	PageSize      int `env:"ZIA_PAGE_SIZE"       envDefault:"400" toml:"page_size"`
	PagesPerGroup int `env:"ZIA_PAGES_PER_GROUP" envDefault:"5"   toml:"pages_per_group"`

	DeleteChunkSize int           `env:"ZIA_DELETE_CHUNK_SIZE" envDefault:"400" toml:"delete_chunk_size"`
	DeleteCooldown  time.Duration `env:"ZIA_DELETE_COOLDOWN"   envDefault:"1s"  toml:"delete_cooldown"`

	// RateCalls per RateWindow is the per-operation call budget. Each
	// logical operation gets its own independent bucket with this budget.
	RateCalls  int           `env:"ZIA_RATE_CALLS"  envDefault:"1"  toml:"rate_calls"`
	RateWindow time.Duration `env:"ZIA_RATE_WINDOW" envDefault:"1s" toml:"rate_window"`

	HTTPTimeout time.Duration `env:"ZIA_HTTP_TIMEOUT" envDefault:"30s" toml:"http_timeout"`

	// DumpDir is where endpoint dump files are written.
	DumpDir string `env:"ZIA_DUMP_DIR" envDefault:"." toml:"dump_dir"`
}

// Load builds the configuration: .env layering first, then environment
// variables, then the TOML file when one is given. .env.local overrides
// .env; real environment variables override both.
func Load(tomlPath string) (*Config, error) {
	if _, err := LoadEnvFiles([]string{".env.local", ".env"}); err != nil {
		return nil, fmt.Errorf("load .env files: %w", err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	if tomlPath != "" {
		data, err := os.ReadFile(tomlPath)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", tomlPath, err)
		}
	}

	return cfg, nil
}

// LoadEnvFiles loads the env files that exist, in order. Earlier files win:
// godotenv never overrides a variable that is already set. Returns how many
// were loaded.
func LoadEnvFiles(files []string) (int, error) {
	existing := make([]string, 0, len(files))
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return 0, nil
	}
	return len(existing), godotenv.Load(existing...)
}

// Validate checks that the credentials needed for sign-in are present.
// Password is exempt; the CLI prompts for it when missing.
func (c *Config) Validate() error {
	if c.Username == "" {
		return errors.New("config: username is required (ZIA_USERNAME)")
	}
	if c.APIKey == "" {
		return errors.New("config: api key is required (ZIA_API_KEY)")
	}
	if len(c.APIKey) < zia.MinAPIKeyLen {
		return zia.ErrAPIKeyTooShort
	}
	return nil
}

// Budgets expands the configured call budget into one budget per operation.
func (c *Config) Budgets() map[zia.Op]zia.Budget {
	b := zia.Budget{Calls: c.RateCalls, Window: c.RateWindow}
	return map[zia.Op]zia.Budget{
		zia.OpListDepartments: b,
		zia.OpListGroups:      b,
		zia.OpListUsers:       b,
		zia.OpUpdateUser:      b,
		zia.OpBulkDelete:      b,
		zia.OpGetEndpoint:     b,
	}
}
