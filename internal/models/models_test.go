package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRule() Rule {
	return Rule{
		ID:     "r1",
		UserID: "u1",
		HomeID: "h1",
		Name:   "heater guard",
		Conditions: []Condition{
			{Type: ConditionPowerThreshold, DeviceID: "d1", Operator: ">", Threshold: 2000},
			{Type: ConditionDayOfWeek, Days: json.RawMessage(`["monday"]`)},
		},
		Actions: []Action{
			{Type: ActionSetDevice, DeviceID: "d1", On: false},
			{Type: ActionAlert, Severity: SeverityWarning, Message: "heater cut off"},
		},
	}
}

func TestRuleValidateAccepts(t *testing.T) {
	assert.NoError(t, validRule().Validate())
}

func TestRuleValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Rule)
	}{
		{"empty name", func(r *Rule) { r.Name = "" }},
		{"no conditions", func(r *Rule) { r.Conditions = nil }},
		{"no actions", func(r *Rule) { r.Actions = nil }},
		{"unknown condition type", func(r *Rule) { r.Conditions[0].Type = "lunar_phase" }},
		{"bad operator", func(r *Rule) { r.Conditions[0].Operator = "~=" }},
		{"threshold without device", func(r *Rule) { r.Conditions[0].DeviceID = "" }},
		{"unknown weekday", func(r *Rule) { r.Conditions[1].Days = json.RawMessage(`["someday"]`) }},
		{"empty day set", func(r *Rule) { r.Conditions[1].Days = json.RawMessage(`[]`) }},
		{"unknown action type", func(r *Rule) { r.Actions[0].Type = "teleport" }},
		{"alert without message", func(r *Rule) { r.Actions[1].Message = "" }},
		{"alert bad severity", func(r *Rule) { r.Actions[1].Severity = "fatal" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := validRule()
			tt.mutate(&r)
			assert.Error(t, r.Validate())
		})
	}
}

func TestConditionValidateTimeOfDay(t *testing.T) {
	good := Condition{Type: ConditionTimeOfDay, Mode: TimeModeRange,
		Start: json.RawMessage(`"08:00"`), End: json.RawMessage(`"17:30"`)}
	assert.NoError(t, good.Validate())

	exact := Condition{Type: ConditionTimeOfDay, Mode: TimeModeExact,
		Start: json.RawMessage(`"06:15"`)}
	assert.NoError(t, exact.Validate(), "exact mode needs no end")

	bad := good
	bad.Mode = "sometimes"
	assert.Error(t, bad.Validate())

	bad = good
	bad.End = json.RawMessage(`"25:00"`)
	assert.Error(t, bad.Validate())
}

func TestMinuteOfDay(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{`"00:00"`, 0},
		{`"08:30"`, 510},
		{`"23:59"`, 1439},
		{`18`, 1080},
		{`18.5`, 1110},
		{`0`, 0},
	}
	for _, tt := range tests {
		got, err := MinuteOfDay(json.RawMessage(tt.raw))
		require.NoError(t, err, tt.raw)
		assert.Equal(t, tt.want, got, tt.raw)
	}

	for _, raw := range []string{`"24:00"`, `"8"`, `"nope"`, `-1`, `24`, `true`, ``} {
		_, err := MinuteOfDay(json.RawMessage(raw))
		assert.Error(t, err, raw)
	}
}

func TestWeekdays(t *testing.T) {
	days, err := Weekdays(json.RawMessage(`["Monday", "wednesday", 0]`))
	require.NoError(t, err)
	assert.True(t, days[time.Monday])
	assert.True(t, days[time.Wednesday])
	assert.True(t, days[time.Sunday])
	assert.False(t, days[time.Friday])

	_, err = Weekdays(json.RawMessage(`[7]`))
	assert.Error(t, err)
	_, err = Weekdays(json.RawMessage(`"monday"`))
	assert.Error(t, err, "days must be a list")
}

func TestCompare(t *testing.T) {
	assert.True(t, Compare(10, ">", 5))
	assert.False(t, Compare(5, ">", 5))
	assert.True(t, Compare(5, ">=", 5))
	assert.True(t, Compare(4, "<", 5))
	assert.True(t, Compare(5, "<=", 5))
	assert.True(t, Compare(5, "==", 5))
	assert.True(t, Compare(4, "!=", 5))
	assert.False(t, Compare(4, "???", 5))
}
