package recurrence

import (
	"encoding/json"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRuleSpec(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		wantZero  bool
		wantError bool
	}{
		{name: "empty", text: "", wantZero: true},
		{name: "blank", text: "   ", wantZero: true},
		{name: "weekly by day", text: "FREQ=WEEKLY;BYDAY=MO,WE"},
		{name: "prefixed", text: "RRULE:FREQ=DAILY;INTERVAL=2"},
		{name: "yearly", text: "FREQ=YEARLY;BYMONTH=3;BYMONTHDAY=1"},
		{name: "with until", text: "FREQ=DAILY;UNTIL=20240101T000000Z"},
		{name: "unknown frequency", text: "FREQ=SOMETIMES", wantError: true},
		{name: "hourly", text: "FREQ=HOURLY", wantError: true},
		{name: "daily by hour", text: "FREQ=DAILY;BYHOUR=8,20", wantError: true},
		{name: "weekly by minute", text: "FREQ=WEEKLY;BYDAY=MO;BYMINUTE=0,30", wantError: true},
		{name: "daily by second", text: "FREQ=DAILY;BYSECOND=0", wantError: true},
		{name: "negative interval", text: "FREQ=DAILY;INTERVAL=-2", wantError: true},
		{name: "no key value pairs", text: "every monday", wantError: true},
		{name: "multi-line", text: "DTSTART:20240101T000000Z\nRRULE:FREQ=DAILY", wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			spec := ParseRuleSpec(tt.text)
			assert.Equal(t, tt.wantZero, spec.IsZero())
			if tt.wantError {
				assert.ErrorIs(t, spec.Err(), ErrMalformedRule)
				assert.False(t, spec.IsZero(), "a malformed rule is still a rule")
			} else {
				assert.NoError(t, spec.Err())
			}
		})
	}
}

func TestRule_Validate(t *testing.T) {
	end := Date{2025, time.June, 30}

	tests := []struct {
		name    string
		rule    Rule
		wantErr bool
	}{
		{"daily", Rule{Frequency: FrequencyDaily, Interval: 1}, false},
		{"weekly with days", Rule{Frequency: FrequencyWeekly, Interval: 2, DaysOfWeek: []int{0, 6}}, false},
		{"monthly with end", Rule{Frequency: FrequencyMonthly, Interval: 1, EndDate: &end}, false},
		{"custom is not a rule frequency", Rule{Frequency: FrequencyCustom, Interval: 1}, true},
		{"zero interval", Rule{Frequency: FrequencyDaily}, true},
		{"empty days", Rule{Frequency: FrequencyWeekly, Interval: 1, DaysOfWeek: []int{}}, true},
		{"day out of range", Rule{Frequency: FrequencyWeekly, Interval: 1, DaysOfWeek: []int{7}}, true},
		{"days on a daily rule", Rule{Frequency: FrequencyDaily, Interval: 1, DaysOfWeek: []int{1}}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.rule.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrMalformedRule)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRule_String(t *testing.T) {
	end := Date{2024, time.January, 1}
	r := Rule{Frequency: FrequencyWeekly, Interval: 2, DaysOfWeek: []int{1, 3}, EndDate: &end}
	assert.Equal(t, "FREQ=WEEKLY;INTERVAL=2;BYDAY=MO,WE;UNTIL=20240101T235959Z", r.String())

	assert.Equal(t, "FREQ=DAILY", Rule{Frequency: FrequencyDaily, Interval: 1}.String())

	// the text form parses back into an equivalent rule
	spec := ParseRuleSpec(r.String())
	require.NoError(t, spec.Err())
}

func TestRule_Format(t *testing.T) {
	paris, err := time.LoadLocation("Europe/Paris")
	require.NoError(t, err)

	end := Date{2024, time.January, 1}
	r := Rule{Frequency: FrequencyDaily, Interval: 1, EndDate: &end}
	assert.Equal(t, "FREQ=DAILY;UNTIL=20240101T225959Z", r.Format(paris))
	assert.Equal(t, r.String(), r.Format(nil))

	// the rendered UNTIL is the instant the structured rule stops at
	spec := ParseRuleSpec(r.Format(paris))
	require.NoError(t, spec.Err())
	parsed, err := spec.options(paris)
	require.NoError(t, err)
	assert.True(t, r.option(paris).Until.Equal(parsed.Until))

	// invalid rules still render
	bad := RuleSpecFromRule(Rule{Frequency: FrequencyWeekly, Interval: 0, DaysOfWeek: []int{1}})
	assert.ErrorIs(t, bad.Err(), ErrMalformedRule)
	assert.Equal(t, "FREQ=WEEKLY;BYDAY=MO", bad.Raw())
}

func TestRuleSpec_JSON(t *testing.T) {
	t.Run("string form", func(t *testing.T) {
		var spec RuleSpec
		require.NoError(t, json.Unmarshal([]byte(`"FREQ=WEEKLY;BYDAY=MO"`), &spec))
		assert.NoError(t, spec.Err())
		assert.Equal(t, "FREQ=WEEKLY;BYDAY=MO", spec.Raw())
		_, structured := spec.Structured()
		assert.False(t, structured)

		out, err := json.Marshal(spec)
		require.NoError(t, err)
		assert.JSONEq(t, `"FREQ=WEEKLY;BYDAY=MO"`, string(out))
	})

	t.Run("object form", func(t *testing.T) {
		var spec RuleSpec
		in := `{"frequency":"Weekly","interval":1,"daysOfWeek":[1],"endDate":"2025-01-31"}`
		require.NoError(t, json.Unmarshal([]byte(in), &spec))
		require.NoError(t, spec.Err())

		r, structured := spec.Structured()
		require.True(t, structured)
		assert.Equal(t, FrequencyWeekly, r.Frequency)
		assert.Equal(t, []int{1}, r.DaysOfWeek)
		assert.Equal(t, Date{2025, time.January, 31}, *r.EndDate)
		assert.Equal(t, "FREQ=WEEKLY;BYDAY=MO;UNTIL=20250131T235959Z", spec.Raw())

		out, err := json.Marshal(spec)
		require.NoError(t, err)
		assert.JSONEq(t, `{"frequency":"weekly","interval":1,"daysOfWeek":[1],"endDate":"2025-01-31"}`, string(out))
	})

	t.Run("invalid object is kept with its error", func(t *testing.T) {
		var spec RuleSpec
		require.NoError(t, json.Unmarshal([]byte(`{"frequency":"weekly","interval":0}`), &spec))
		assert.ErrorIs(t, spec.Err(), ErrMalformedRule)
		assert.False(t, spec.IsZero())
	})

	t.Run("wrong JSON type fails", func(t *testing.T) {
		var spec RuleSpec
		assert.Error(t, json.Unmarshal([]byte(`42`), &spec))
	})
}
