package recurrence

import (
	"time"
)

// EngineConfig holds configuration options for the recurrence engine
type EngineConfig struct {
	// Location in which calendar dates are evaluated. Nil means UTC.
	Location *time.Location
	// Holidays is the fixed-date holiday table.
	Holidays HolidayCalendar

	// SkipLimit caps how many consecutive excluded days are skipped.
	SkipLimit int
	// Holiday years added as rule exceptions around the search point.
	HolidayYearsBefore int
	HolidayYearsAfter  int

	// Projection
	MaxOccurrences int // Maximum occurrences returned by one projection
	CacheEnabled   bool
	CacheConfig    CacheConfig
}

// DefaultEngineConfig provides sensible defaults for production use
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		Location:           time.UTC,
		Holidays:           FranceHolidays(),
		SkipLimit:          DefaultSkipLimit,
		HolidayYearsBefore: 1,
		HolidayYearsAfter:  2,
		MaxOccurrences:     1000,
		CacheEnabled:       true,
		CacheConfig:        DefaultCacheConfig,
	}
}

func (c EngineConfig) withDefaults() EngineConfig {
	if c.Location == nil {
		c.Location = time.UTC
	}
	if c.SkipLimit <= 0 {
		c.SkipLimit = DefaultSkipLimit
	}
	if c.HolidayYearsBefore < 0 {
		c.HolidayYearsBefore = 0
	}
	if c.HolidayYearsAfter < 0 {
		c.HolidayYearsAfter = 0
	}
	if c.MaxOccurrences <= 0 {
		c.MaxOccurrences = 1000
	}
	return c
}
