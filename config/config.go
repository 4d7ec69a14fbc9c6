// Package config holds the settings for a novelpipe run. Values come from
// command-line flags, NOVELPIPE_* environment variables and an optional
// config file, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/gaurav-prasanna/novelpipe/core/cache"
	"github.com/gaurav-prasanna/novelpipe/core/extract"
	"github.com/gaurav-prasanna/novelpipe/core/render"
	"github.com/gaurav-prasanna/novelpipe/crawl"
)

// EnvPrefix is the prefix of environment variables read by Load.
const EnvPrefix = "NOVELPIPE"

// Config is the full set of run settings. Keys match the CLI flag names.
type Config struct {
	URL            string        `mapstructure:"url"`
	CacheDir       string        `mapstructure:"cache-dir"`
	CacheNaming    string        `mapstructure:"cache-naming"`
	Language       string        `mapstructure:"lang"`
	Strategy       string        `mapstructure:"strategy"`
	Container      string        `mapstructure:"container"`
	ContainerXPath string        `mapstructure:"container-xpath"`
	Format         string        `mapstructure:"format"`
	Output         string        `mapstructure:"output"`
	Concurrency    int           `mapstructure:"concurrency"`
	Retries        int           `mapstructure:"retries"`
	Timeout        time.Duration `mapstructure:"timeout"`
	SkipFailed     bool          `mapstructure:"skip-failed"`
	LegacyJoin     bool          `mapstructure:"legacy-join"`
	PDFFont        string        `mapstructure:"pdf-font"`
	Progress       bool          `mapstructure:"progress"`
	LogLevel       string        `mapstructure:"log-level"`
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		CacheDir:    "./cache",
		CacheNaming: string(cache.NamingSanitize),
		Language:    "zh",
		Strategy:    "digits",
		Container:   extract.DefaultContainer,
		Format:      render.FormatEPUB,
		Concurrency: 1,
		Retries:     2,
		Timeout:     30 * time.Second,
		LogLevel:    "info",
	}
}

// SetDefaults registers Default() with v so every key is known to viper,
// including for environment lookup.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("url", d.URL)
	v.SetDefault("cache-dir", d.CacheDir)
	v.SetDefault("cache-naming", d.CacheNaming)
	v.SetDefault("lang", d.Language)
	v.SetDefault("strategy", d.Strategy)
	v.SetDefault("container", d.Container)
	v.SetDefault("container-xpath", d.ContainerXPath)
	v.SetDefault("format", d.Format)
	v.SetDefault("output", d.Output)
	v.SetDefault("concurrency", d.Concurrency)
	v.SetDefault("retries", d.Retries)
	v.SetDefault("timeout", d.Timeout)
	v.SetDefault("skip-failed", d.SkipFailed)
	v.SetDefault("legacy-join", d.LegacyJoin)
	v.SetDefault("pdf-font", d.PDFFont)
	v.SetDefault("progress", d.Progress)
	v.SetDefault("log-level", d.LogLevel)
}

// Load resolves the configuration from v. If file is set it must exist;
// otherwise a novelpipe.{yaml,json,toml} in the working directory is used
// when present. The result is validated.
func Load(v *viper.Viper, file string) (Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.SetConfigName("novelpipe")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if strings.TrimSpace(c.URL) == "" {
		return errors.New("no table-of-contents URL given")
	}
	if c.CacheDir == "" {
		return errors.New("cache-dir must not be empty")
	}
	switch cache.Naming(c.CacheNaming) {
	case cache.NamingSanitize, cache.NamingHash:
	default:
		return fmt.Errorf("unknown cache naming %q (want sanitize or hash)", c.CacheNaming)
	}
	if !slices.Contains(render.Formats, c.Format) {
		return fmt.Errorf("unknown format %q (want one of %s)", c.Format, strings.Join(render.Formats, ", "))
	}
	if _, err := crawl.ParseStrategy(c.Strategy); err != nil {
		return err
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency)
	}
	if c.Retries < 0 {
		return fmt.Errorf("retries must not be negative, got %d", c.Retries)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level parses LogLevel.
func (c Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid log level %q: %w", c.LogLevel, err)
	}
	return l, nil
}
