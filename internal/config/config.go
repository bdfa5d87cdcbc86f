// Package config resolves runtime settings from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/mail"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/chdqbank/qbank/internal/practice"
)

// Config holds the settings shared by every command.
type Config struct {
	// DBPath is the SQLite file. Empty means store.DefaultDBPath.
	DBPath string

	// PageSize is the number of questions fetched per page. Default: 10.
	PageSize int

	// UserEmail signs the learner in at startup when set.
	UserEmail string

	// HydratePages bulk-loads responses for each fetched page.
	HydratePages bool

	// ShuffleSeed makes page shuffles reproducible. 0 shuffles randomly.
	ShuffleSeed uint64
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{PageSize: practice.PageSize}
}

// LoadDotEnv loads variables from the given files (".env" when none) into
// the process environment. Missing files are ignored and variables already
// set win.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}

// ConfigFromEnv builds a Config from environment variables, falling back
// to defaults for unset values.
func ConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()

	cfg.DBPath = os.Getenv("QBANK_DB")
	cfg.UserEmail = os.Getenv("QBANK_USER")

	if v := os.Getenv("QBANK_PAGE_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return cfg, fmt.Errorf("QBANK_PAGE_SIZE=%q: %w", v, err)
		}
		cfg.PageSize = n
	}
	if v := os.Getenv("QBANK_HYDRATE_PAGES"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return cfg, fmt.Errorf("QBANK_HYDRATE_PAGES=%q: %w", v, err)
		}
		cfg.HydratePages = b
	}
	if v := os.Getenv("QBANK_SHUFFLE_SEED"); v != "" {
		seed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return cfg, fmt.Errorf("QBANK_SHUFFLE_SEED=%q: %w", v, err)
		}
		cfg.ShuffleSeed = seed
	}
	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	if c.PageSize <= 0 {
		return fmt.Errorf("page size must be positive, got %d", c.PageSize)
	}
	if c.UserEmail != "" {
		if _, err := mail.ParseAddress(c.UserEmail); err != nil {
			return fmt.Errorf("invalid user email %q: %w", c.UserEmail, err)
		}
	}
	return nil
}

// Engine returns the practice engine configuration.
func (c Config) Engine() practice.Config {
	cfg := practice.DefaultConfig()
	cfg.PageSize = c.PageSize
	cfg.HydratePages = c.HydratePages
	return cfg
}

// Rand returns the shuffle source: seeded when ShuffleSeed is set, nil
// (uniformly random) otherwise.
func (c Config) Rand() func() float64 {
	if c.ShuffleSeed == 0 {
		return nil
	}
	return practice.SeededRand(c.ShuffleSeed)
}
