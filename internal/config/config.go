package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Pipeline policies.
const (
	PolicyMergeAll     = "merge_all"
	PolicyFirstSuccess = "first_success"
)

// Provider names accepted in subtitles.providers.
const (
	ProviderOpenSubtitlesOrg = "opensubtitles_org"
	ProviderSubdl            = "subdl"
	ProviderSinhala          = "sinhala"
)

type Config struct {
	App struct {
		Port      int    `yaml:"port"`
		Debug     bool   `yaml:"debug"`
		LogDir    string `yaml:"log_dir"`
		LogFormat string `yaml:"log_format"` // 'console' or 'json'
	} `yaml:"app"`

	Metadata struct {
		TMDB struct {
			APIKey  string        `yaml:"api_key"`
			BaseURL string        `yaml:"base_url"`
			Timeout time.Duration `yaml:"timeout"`
		} `yaml:"tmdb"`
		Language string `yaml:"language"`
	} `yaml:"metadata"`

	Subtitles struct {
		// Tried in this order; the order is the ranking tie-break for duplicates.
		Providers      []string      `yaml:"providers"`
		Policy         string        `yaml:"policy"`
		Concurrent     bool          `yaml:"concurrent"`
		AdapterTimeout time.Duration `yaml:"adapter_timeout"`
		DefaultLimit   int           `yaml:"default_limit"`
		MaxLimit       int           `yaml:"max_limit"`
		SyntheticCount int           `yaml:"synthetic_count"`

		OpenSubtitlesOrg struct {
			BaseURL   string `yaml:"base_url"`
			Extractor string `yaml:"extractor"` // 'selector' or 'pattern'
		} `yaml:"opensubtitles_org"`

		Subdl struct {
			APIKey          string `yaml:"api_key"`
			BaseURL         string `yaml:"base_url"`
			DownloadBaseURL string `yaml:"download_base_url"`
		} `yaml:"subdl"`

		Sinhala struct {
			Teams []string `yaml:"teams"`
		} `yaml:"sinhala"`
	} `yaml:"subtitles"`

	Fetcher struct {
		Timeout   time.Duration `yaml:"timeout"`
		MaxBytes  int64         `yaml:"max_bytes"`
		UserAgent string        `yaml:"user_agent"`
	} `yaml:"fetcher"`

	Scheduler struct {
		ProbeInterval string `yaml:"probe_interval"` // cron '@every' duration, or 'off'
	} `yaml:"scheduler"`
}

// Load reads the YAML file at path (if it exists) over the defaults, then applies
// .env and environment overrides. The result is validated and must not be mutated.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	setDefaults(cfg)

	if _, err := os.Stat(path); err == nil {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	loadFromEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the configuration used when no file or environment is present.
func Default() *Config {
	cfg := &Config{}
	setDefaults(cfg)
	return cfg
}

func setDefaults(cfg *Config) {
	cfg.App.Port = 8787
	cfg.App.Debug = false
	cfg.App.LogFormat = "console"

	cfg.Metadata.TMDB.BaseURL = "https://api.themoviedb.org/3"
	cfg.Metadata.TMDB.Timeout = 8 * time.Second
	cfg.Metadata.Language = "en-US"

	cfg.Subtitles.Providers = []string{ProviderOpenSubtitlesOrg, ProviderSubdl, ProviderSinhala}
	cfg.Subtitles.Policy = PolicyMergeAll
	cfg.Subtitles.Concurrent = true
	cfg.Subtitles.AdapterTimeout = 8 * time.Second
	cfg.Subtitles.DefaultLimit = 20
	cfg.Subtitles.MaxLimit = 25
	cfg.Subtitles.SyntheticCount = 5
	cfg.Subtitles.OpenSubtitlesOrg.BaseURL = "https://www.opensubtitles.org"
	cfg.Subtitles.OpenSubtitlesOrg.Extractor = "selector"
	cfg.Subtitles.Subdl.BaseURL = "https://api.subdl.com/api/v1"
	cfg.Subtitles.Subdl.DownloadBaseURL = "https://dl.subdl.com"
	cfg.Subtitles.Sinhala.Teams = []string{"Baiscope", "Cineru", "SubLK"}

	cfg.Fetcher.Timeout = 10 * time.Second
	cfg.Fetcher.MaxBytes = 5 << 20
	cfg.Fetcher.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36"

	cfg.Scheduler.ProbeInterval = "30m"
}

func loadFromEnv(cfg *Config) {
	if v := os.Getenv("SUBGATE_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.App.Port = port
		}
	}
	if v := os.Getenv("SUBGATE_DEBUG"); v != "" {
		cfg.App.Debug = v == "1" || strings.EqualFold(v, "true")
	}
	if v := os.Getenv("SUBGATE_LOG_DIR"); v != "" {
		cfg.App.LogDir = v
	}
	if v := os.Getenv("SUBGATE_POLICY"); v != "" {
		cfg.Subtitles.Policy = v
	}
	if v := os.Getenv("TMDB_API_KEY"); v != "" {
		cfg.Metadata.TMDB.APIKey = v
	}
	if v := os.Getenv("SUBDL_API_KEY"); v != "" {
		cfg.Subtitles.Subdl.APIKey = v
	}
}

// Validate reports the first configuration value that would make the gateway misbehave.
func (c *Config) Validate() error {
	if c.App.Port <= 0 || c.App.Port > 65535 {
		return fmt.Errorf("app.port out of range: %d", c.App.Port)
	}
	switch c.Subtitles.Policy {
	case PolicyMergeAll, PolicyFirstSuccess:
	default:
		return fmt.Errorf("unsupported subtitles.policy %q (want %s or %s)", c.Subtitles.Policy, PolicyMergeAll, PolicyFirstSuccess)
	}
	if len(c.Subtitles.Providers) == 0 {
		return errors.New("subtitles.providers must list at least one provider")
	}
	seen := make(map[string]bool, len(c.Subtitles.Providers))
	for _, p := range c.Subtitles.Providers {
		switch p {
		case ProviderOpenSubtitlesOrg, ProviderSubdl, ProviderSinhala:
		default:
			return fmt.Errorf("unsupported subtitle provider %q", p)
		}
		if seen[p] {
			return fmt.Errorf("subtitle provider %q listed twice", p)
		}
		seen[p] = true
	}
	if c.Subtitles.DefaultLimit <= 0 || c.Subtitles.MaxLimit <= 0 {
		return errors.New("subtitles.default_limit and subtitles.max_limit must be positive")
	}
	if c.Subtitles.DefaultLimit > c.Subtitles.MaxLimit {
		return fmt.Errorf("subtitles.default_limit (%d) exceeds subtitles.max_limit (%d)", c.Subtitles.DefaultLimit, c.Subtitles.MaxLimit)
	}
	if c.Subtitles.SyntheticCount <= 0 {
		return errors.New("subtitles.synthetic_count must be positive")
	}
	if c.Subtitles.AdapterTimeout <= 0 || c.Fetcher.Timeout <= 0 || c.Metadata.TMDB.Timeout <= 0 {
		return errors.New("timeouts must be positive")
	}
	switch c.Subtitles.OpenSubtitlesOrg.Extractor {
	case "selector", "pattern":
	default:
		return fmt.Errorf("unsupported opensubtitles_org.extractor %q", c.Subtitles.OpenSubtitlesOrg.Extractor)
	}
	if c.Fetcher.MaxBytes <= 0 {
		return errors.New("fetcher.max_bytes must be positive")
	}
	return nil
}

// ProbeEnabled reports whether the upstream health probe should be scheduled.
func (c *Config) ProbeEnabled() bool {
	v := strings.TrimSpace(c.Scheduler.ProbeInterval)
	return v != "" && v != "off"
}
