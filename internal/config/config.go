// Package config loads the chored configuration from a YAML file and
// CHORECAL_* environment variables.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"

	"github.com/cyp0633/chorecal/recurrence"
)

// Storage drivers
const (
	DriverMemory   = "memory"
	DriverFile     = "file"
	DriverPostgres = "postgres"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Auth       AuthConfig       `yaml:"auth"`
	Storage    StorageConfig    `yaml:"storage"`
	Recurrence RecurrenceConfig `yaml:"recurrence"`
	Log        LogConfig        `yaml:"log"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// AuthConfig configures the shared-secret header. An empty secret disables
// authentication.
type AuthConfig struct {
	Header string `yaml:"header"`
	Secret string `yaml:"secret"`
}

type StorageConfig struct {
	Driver   string         `yaml:"driver"`
	Path     string         `yaml:"path"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// PostgresConfig holds the PostgreSQL connection parameters. DSN, when set,
// takes precedence over the individual fields.
type PostgresConfig struct {
	DSN      string `yaml:"dsn"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

type RecurrenceConfig struct {
	Timezone           string      `yaml:"timezone"`
	Holidays           []string    `yaml:"holidays"`
	SkipLimit          int         `yaml:"skip_limit"`
	HolidayYearsBefore int         `yaml:"holiday_years_before"`
	HolidayYearsAfter  int         `yaml:"holiday_years_after"`
	MaxOccurrences     int         `yaml:"max_occurrences"`
	Cache              CacheConfig `yaml:"cache"`
}

type CacheConfig struct {
	Enabled    bool          `yaml:"enabled"`
	TTL        time.Duration `yaml:"ttl"`
	MaxEntries int           `yaml:"max_entries"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	days := recurrence.FranceHolidays().Days()
	holidays := make([]string, len(days))
	for i, md := range days {
		holidays[i] = md.String()
	}

	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Auth: AuthConfig{
			Header: "X-Auth-Token",
		},
		Storage: StorageConfig{
			Driver: DriverFile,
			Path:   "data/tasks.json",
			Postgres: PostgresConfig{
				Host:    "localhost",
				Port:    5432,
				User:    "postgres",
				DBName:  "chorecal",
				SSLMode: "disable",
			},
		},
		Recurrence: RecurrenceConfig{
			Timezone:           "UTC",
			Holidays:           holidays,
			SkipLimit:          recurrence.DefaultSkipLimit,
			HolidayYearsBefore: 1,
			HolidayYearsAfter:  2,
			MaxOccurrences:     1000,
			Cache: CacheConfig{
				Enabled:    true,
				TTL:        recurrence.DefaultCacheConfig.TTL,
				MaxEntries: recurrence.DefaultCacheConfig.MaxEntries,
			},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the YAML file at path over the defaults, then applies the
// environment. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, zerr.With(zerr.Wrap(err, "failed to read config file"), "path", path)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, zerr.With(zerr.Wrap(err, "failed to parse config file"), "path", path)
		}
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case DriverMemory, DriverPostgres:
	case DriverFile:
		if c.Storage.Path == "" {
			return zerr.New("storage.path is required for the file driver")
		}
	default:
		return zerr.With(zerr.New("unknown storage driver"), "driver", c.Storage.Driver)
	}

	if _, err := c.Recurrence.Location(); err != nil {
		return err
	}
	if _, err := recurrence.ParseHolidayCalendar(c.Recurrence.Holidays); err != nil {
		return zerr.Wrap(err, "invalid recurrence.holidays")
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return zerr.With(zerr.New("unknown log format"), "format", c.Log.Format)
	}
	return nil
}

// ConnString formats the PostgreSQL connection string.
func (c *PostgresConfig) ConnString() string {
	if c.DSN != "" {
		return c.DSN
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// Location loads the configured time zone.
func (c *RecurrenceConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "invalid recurrence.timezone"), "timezone", c.Timezone)
	}
	return loc, nil
}

// EngineConfig converts the section into a recurrence engine configuration.
// Known French holidays keep their names.
func (c *RecurrenceConfig) EngineConfig() (recurrence.EngineConfig, error) {
	loc, err := c.Location()
	if err != nil {
		return recurrence.EngineConfig{}, err
	}

	names := recurrence.FranceHolidays()
	holidays := make([]recurrence.Holiday, 0, len(c.Holidays))
	for _, key := range c.Holidays {
		md, err := recurrence.ParseMonthDay(key)
		if err != nil {
			return recurrence.EngineConfig{}, zerr.Wrap(err, "invalid recurrence.holidays")
		}
		name, _ := names.Name(md)
		holidays = append(holidays, recurrence.Holiday{Day: md, Name: name})
	}

	cfg := recurrence.DefaultEngineConfig()
	cfg.Location = loc
	cfg.Holidays = recurrence.NewHolidayCalendar(holidays...)
	cfg.SkipLimit = c.SkipLimit
	cfg.HolidayYearsBefore = c.HolidayYearsBefore
	cfg.HolidayYearsAfter = c.HolidayYearsAfter
	cfg.MaxOccurrences = c.MaxOccurrences
	cfg.CacheEnabled = c.Cache.Enabled
	cfg.CacheConfig.TTL = c.Cache.TTL
	cfg.CacheConfig.MaxEntries = c.Cache.MaxEntries
	return cfg, nil
}

// SlogLevel parses the configured log level.
func (c *LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		return 0, zerr.With(zerr.Wrap(err, "invalid log level"), "level", c.Level)
	}
	return level, nil
}

// NewLogger builds the process logger writing to w.
func (c *LogConfig) NewLogger(w io.Writer) (*slog.Logger, error) {
	level, err := c.SlogLevel()
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}
