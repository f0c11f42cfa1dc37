package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"go.trai.ch/zerr"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "CHORECAL_"

// ApplyEnv overrides c with the CHORECAL_* variables that are set.
func (c *Config) ApplyEnv() error {
	c.Server.Addr = getEnv("SERVER_ADDR", c.Server.Addr)
	c.Auth.Header = getEnv("AUTH_HEADER", c.Auth.Header)
	c.Auth.Secret = getEnv("AUTH_SECRET", c.Auth.Secret)

	c.Storage.Driver = getEnv("STORAGE_DRIVER", c.Storage.Driver)
	c.Storage.Path = getEnv("STORAGE_PATH", c.Storage.Path)
	pg := &c.Storage.Postgres
	pg.DSN = getEnv("DB_DSN", pg.DSN)
	pg.Host = getEnv("DB_HOST", pg.Host)
	pg.User = getEnv("DB_USER", pg.User)
	pg.Password = getEnv("DB_PASSWORD", pg.Password)
	pg.DBName = getEnv("DB_NAME", pg.DBName)
	pg.SSLMode = getEnv("DB_SSLMODE", pg.SSLMode)

	rc := &c.Recurrence
	rc.Timezone = getEnv("TIMEZONE", rc.Timezone)
	if v := getEnv("HOLIDAYS", ""); v != "" {
		rc.Holidays = splitList(v)
	}

	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	c.Log.Format = getEnv("LOG_FORMAT", c.Log.Format)

	ints := []struct {
		key string
		dst *int
	}{
		{"DB_PORT", &pg.Port},
		{"SKIP_LIMIT", &rc.SkipLimit},
		{"HOLIDAY_YEARS_BEFORE", &rc.HolidayYearsBefore},
		{"HOLIDAY_YEARS_AFTER", &rc.HolidayYearsAfter},
		{"MAX_OCCURRENCES", &rc.MaxOccurrences},
		{"CACHE_MAX_ENTRIES", &rc.Cache.MaxEntries},
	}
	for _, v := range ints {
		if err := getEnvInt(v.key, v.dst); err != nil {
			return err
		}
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"SERVER_READ_TIMEOUT", &c.Server.ReadTimeout},
		{"SERVER_WRITE_TIMEOUT", &c.Server.WriteTimeout},
		{"SERVER_SHUTDOWN_TIMEOUT", &c.Server.ShutdownTimeout},
		{"CACHE_TTL", &rc.Cache.TTL},
	}
	for _, v := range durations {
		if err := getEnvDuration(v.key, v.dst); err != nil {
			return err
		}
	}

	if v := getEnv("CACHE_ENABLED", ""); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return invalidEnv("CACHE_ENABLED", err)
		}
		rc.Cache.Enabled = enabled
	}
	return nil
}

// getEnv returns the prefixed variable, or defaultValue when it is unset.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(EnvPrefix + key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, dst *int) error {
	v := getEnv(key, "")
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return invalidEnv(key, err)
	}
	*dst = n
	return nil
}

func getEnvDuration(key string, dst *time.Duration) error {
	v := getEnv(key, "")
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return invalidEnv(key, err)
	}
	*dst = d
	return nil
}

func invalidEnv(key string, err error) error {
	return zerr.With(zerr.Wrap(err, "invalid environment variable"), "key", EnvPrefix+key)
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
