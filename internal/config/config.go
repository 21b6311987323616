// Package config loads odataq settings from an optional YAML file and
// ODATAQ_-prefixed environment variables, with command-line flags layered
// on top by the CLI.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"regexp"
	"strings"

	"github.com/spf13/viper"

	"github.com/roach88/odataq/internal/paging"
	"github.com/roach88/odataq/internal/querysql"
)

// EnvPrefix prefixes every environment variable, e.g. ODATAQ_PAGE_SIZE or
// ODATAQ_LOG_LEVEL.
const EnvPrefix = "ODATAQ"

// Config holds the resolved settings.
type Config struct {
	PageSize  int    `mapstructure:"page_size"`
	TokenMode string `mapstructure:"token_mode"`
	Dialect   string `mapstructure:"dialect"`
	Alias     string `mapstructure:"alias"`
	Database  string `mapstructure:"database"`
	Log       Log    `mapstructure:"log"`
}

// Log configures the CLI logger.
type Log struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

var aliasPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SetDefaults registers every key with its default value. Keys must be
// known to viper for environment variables to reach Unmarshal.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("page_size", 0)
	v.SetDefault("token_mode", paging.TokenFirstExcluded.String())
	v.SetDefault("dialect", querysql.SQLite.Name)
	v.SetDefault("alias", querysql.DefaultAlias)
	v.SetDefault("database", "")
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.format", "text")
}

// Load reads the configuration. An empty path looks for odataq.yaml in the
// working directory and ignores its absence; an explicit path must exist.
func Load(path string) (*Config, error) {
	return LoadWith(viper.New(), path)
}

// LoadWith is Load on a caller-supplied viper instance, so flags bound with
// v.BindPFlag take precedence over file and environment values.
func LoadWith(v *viper.Viper, path string) (*Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("odataq")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks every value and returns all problems joined.
func (c *Config) Validate() error {
	var errs []error
	if c.PageSize < 0 {
		errs = append(errs, fmt.Errorf("page_size must be >= 0, got %d", c.PageSize))
	}
	if _, err := paging.ParseTokenMode(c.TokenMode); err != nil {
		errs = append(errs, fmt.Errorf("token_mode: %w", err))
	}
	if _, err := querysql.DialectByName(c.Dialect); err != nil {
		errs = append(errs, fmt.Errorf("dialect: %w", err))
	}
	if c.Alias != "" && !aliasPattern.MatchString(c.Alias) {
		errs = append(errs, fmt.Errorf("alias %q is not an identifier", c.Alias))
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		errs = append(errs, err)
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be text or json, got %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

// Mode returns the parsed token mode. Call after Validate.
func (c *Config) Mode() paging.TokenMode {
	m, _ := paging.ParseTokenMode(c.TokenMode)
	return m
}

// SQLDialect returns the configured dialect. Call after Validate.
func (c *Config) SQLDialect() *querysql.Dialect {
	d, err := querysql.DialectByName(c.Dialect)
	if err != nil {
		return querysql.SQLite
	}
	return d
}

// NewLogger builds a logger writing to w in the configured format and level.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	level, err := parseLevel(c.Log.Level)
	if err != nil {
		level = slog.LevelWarn
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.Log.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}
