package engine

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"powermesh/internal/models"
)

const testHome = "home-1"

type fakeRules struct {
	rules []models.Rule
	err   error
}

func (f *fakeRules) EnabledRules(ctx context.Context, homeID string) ([]models.Rule, error) {
	return f.rules, f.err
}

type fakeTelemetry struct {
	power       map[string]*models.PowerReading
	energy      map[string]*models.EnergyReading
	powerErr    map[string]error
	powerLooked map[string]int
}

func newFakeTelemetry() *fakeTelemetry {
	return &fakeTelemetry{
		power:       make(map[string]*models.PowerReading),
		energy:      make(map[string]*models.EnergyReading),
		powerErr:    make(map[string]error),
		powerLooked: make(map[string]int),
	}
}

func (f *fakeTelemetry) LatestPower(ctx context.Context, homeID, deviceID string) (*models.PowerReading, error) {
	f.powerLooked[deviceID]++
	if err := f.powerErr[deviceID]; err != nil {
		return nil, err
	}
	return f.power[deviceID], nil
}

func (f *fakeTelemetry) LatestEnergy(ctx context.Context, homeID, deviceID string) (*models.EnergyReading, error) {
	return f.energy[deviceID], nil
}

type fakeAlerts struct {
	inserted []models.Alert
	err      error
}

func (f *fakeAlerts) InsertAlert(ctx context.Context, a models.Alert) error {
	if f.err != nil {
		return f.err
	}
	f.inserted = append(f.inserted, a)
	return nil
}

type command struct {
	deviceID string
	on       bool
}

type fakePublisher struct {
	commands []command
	err      error
}

func (f *fakePublisher) SetDevice(deviceID string, on bool) error {
	if f.err != nil {
		return f.err
	}
	f.commands = append(f.commands, command{deviceID: deviceID, on: on})
	return nil
}

type fakeNotifier struct {
	notified []models.Alert
}

func (f *fakeNotifier) NotifyAlert(a models.Alert) error {
	f.notified = append(f.notified, a)
	return nil
}

type harness struct {
	engine    *Engine
	rules     *fakeRules
	telemetry *fakeTelemetry
	alerts    *fakeAlerts
	publisher *fakePublisher
	notifier  *fakeNotifier
}

func newHarness(t *testing.T, rules ...models.Rule) *harness {
	t.Helper()
	h := &harness{
		rules:     &fakeRules{rules: rules},
		telemetry: newFakeTelemetry(),
		alerts:    &fakeAlerts{},
		publisher: &fakePublisher{},
		notifier:  &fakeNotifier{},
	}
	h.engine = NewEngine(h.rules, h.telemetry, h.alerts, h.publisher, h.notifier,
		testHome, time.Second, zap.NewNop())
	return h
}

func (h *harness) setClock(t time.Time) {
	h.engine.now = func() time.Time { return t }
}

func (h *harness) setWatts(deviceID string, watts float64) {
	h.telemetry.power[deviceID] = &models.PowerReading{
		DeviceID: deviceID, HomeID: testHome, Watts: watts,
	}
}

func powerRule(id string, cond ...models.Condition) models.Rule {
	return models.Rule{
		ID:         id,
		UserID:     "u1",
		HomeID:     testHome,
		Name:       id,
		Enabled:    true,
		Conditions: cond,
		Actions:    []models.Action{{Type: models.ActionSetDevice, DeviceID: "d1", On: false}},
	}
}

func TestDisabledRuleNeverEvaluated(t *testing.T) {
	rule := powerRule("r1", models.Condition{
		Type: models.ConditionPowerThreshold, DeviceID: "d1", Operator: ">", Threshold: 10,
	})
	rule.Enabled = false

	h := newHarness(t, rule)
	h.setWatts("d1", 100)
	h.engine.Tick(context.Background())

	assert.Zero(t, h.telemetry.powerLooked["d1"])
	assert.Empty(t, h.publisher.commands)
}

func TestInstantPowerThresholdEndToEnd(t *testing.T) {
	h := newHarness(t, powerRule("r1", models.Condition{
		Type: models.ConditionPowerThreshold, DeviceID: "d1", Operator: ">", Threshold: 1000,
	}))
	h.setWatts("d1", 1200)
	h.engine.Tick(context.Background())

	require.Len(t, h.publisher.commands, 1)
	assert.Equal(t, command{deviceID: "d1", on: false}, h.publisher.commands[0])
}

func TestPowerThresholdNoReadingIsFalse(t *testing.T) {
	h := newHarness(t, powerRule("r1", models.Condition{
		Type: models.ConditionPowerThreshold, DeviceID: "d1", Operator: ">", Threshold: 10,
	}))
	h.engine.Tick(context.Background())

	assert.Empty(t, h.publisher.commands)
}

func TestDurationMustHoldContiguously(t *testing.T) {
	h := newHarness(t, powerRule("r1", models.Condition{
		Type: models.ConditionPowerThreshold, DeviceID: "d1",
		Operator: ">", Threshold: 1000, DurationMinutes: 5,
	}))
	base := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

	// Above threshold for four minutes: no fire yet.
	h.setWatts("d1", 1500)
	for minute := 0; minute <= 4; minute++ {
		h.setClock(base.Add(time.Duration(minute) * time.Minute))
		h.engine.Tick(context.Background())
	}
	assert.Empty(t, h.publisher.commands)

	// One dip below threshold clears the elapsed window entirely.
	h.setWatts("d1", 900)
	h.setClock(base.Add(4*time.Minute + 30*time.Second))
	h.engine.Tick(context.Background())
	assert.Empty(t, h.publisher.commands)

	// Back above: the window restarts, so minute 9 is still too early.
	h.setWatts("d1", 1500)
	for minute := 5; minute <= 9; minute++ {
		h.setClock(base.Add(time.Duration(minute) * time.Minute))
		h.engine.Tick(context.Background())
	}
	assert.Empty(t, h.publisher.commands)

	// Five contiguous minutes from the restart.
	h.setClock(base.Add(10 * time.Minute))
	h.engine.Tick(context.Background())
	assert.Len(t, h.publisher.commands, 1)
}

func TestDurationFiresExactlyOnce(t *testing.T) {
	h := newHarness(t, powerRule("r1", models.Condition{
		Type: models.ConditionPowerThreshold, DeviceID: "d1",
		Operator: ">", Threshold: 1000, DurationMinutes: 5,
	}))
	base := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

	h.setWatts("d1", 1500)
	for minute := 0; minute <= 8; minute++ {
		h.setClock(base.Add(time.Duration(minute) * time.Minute))
		h.engine.Tick(context.Background())
	}

	assert.Len(t, h.publisher.commands, 1)
}

func TestTimeOfDayExactFiresOncePerDay(t *testing.T) {
	rule := powerRule("r1", models.Condition{
		Type: models.ConditionTimeOfDay, Mode: models.TimeModeExact,
		Start: json.RawMessage(`"18:00"`),
	})
	h := newHarness(t, rule)

	day1 := time.Date(2026, 3, 2, 18, 0, 5, 0, time.UTC)

	// Two ticks landing in the same target minute fire at most once.
	h.setClock(day1)
	h.engine.Tick(context.Background())
	h.setClock(day1.Add(30 * time.Second))
	h.engine.Tick(context.Background())
	assert.Len(t, h.publisher.commands, 1)

	// The next calendar day re-arms it.
	h.setClock(day1.AddDate(0, 0, 1))
	h.engine.Tick(context.Background())
	assert.Len(t, h.publisher.commands, 2)
}

func TestTimeOfDayExactOutsideMinute(t *testing.T) {
	h := newHarness(t, powerRule("r1", models.Condition{
		Type: models.ConditionTimeOfDay, Mode: models.TimeModeExact,
		Start: json.RawMessage(`"18:00"`),
	}))
	h.setClock(time.Date(2026, 3, 2, 18, 1, 0, 0, time.UTC))
	h.engine.Tick(context.Background())

	assert.Empty(t, h.publisher.commands)
}

func TestTimeOfDayRange(t *testing.T) {
	tests := []struct {
		name  string
		start string
		end   string
		now   time.Time
		want  bool
	}{
		{"inside", `"08:00"`, `"17:00"`, time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC), true},
		{"start is inclusive", `"08:00"`, `"17:00"`, time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC), true},
		{"end is exclusive", `"08:00"`, `"17:00"`, time.Date(2026, 3, 2, 17, 0, 0, 0, time.UTC), false},
		{"wraps past midnight, late side", `"23:00"`, `"01:00"`, time.Date(2026, 3, 2, 23, 30, 0, 0, time.UTC), true},
		{"wraps past midnight, early side", `"23:00"`, `"01:00"`, time.Date(2026, 3, 2, 0, 30, 0, 0, time.UTC), true},
		{"wraps past midnight, outside", `"23:00"`, `"01:00"`, time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC), false},
		{"numeric hours", `8`, `17`, time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, powerRule("r1", models.Condition{
				Type: models.ConditionTimeOfDay, Mode: models.TimeModeRange,
				Start: json.RawMessage(tt.start), End: json.RawMessage(tt.end),
			}))
			h.setClock(tt.now)
			h.engine.Tick(context.Background())

			if tt.want {
				assert.Len(t, h.publisher.commands, 1)
			} else {
				assert.Empty(t, h.publisher.commands)
			}
		})
	}
}

func TestDayOfWeek(t *testing.T) {
	monday := time.Date(2026, 3, 2, 4, 0, 0, 0, time.UTC)
	require.Equal(t, time.Monday, monday.Weekday())

	tests := []struct {
		name string
		days string
		now  time.Time
		want bool
	}{
		{"monday matches", `["monday","wednesday"]`, monday, true},
		{"wednesday matches", `["monday","wednesday"]`, monday.AddDate(0, 0, 2), true},
		{"tuesday does not", `["monday","wednesday"]`, monday.AddDate(0, 0, 1), false},
		{"independent of time of day", `["monday","wednesday"]`, monday.Add(20 * time.Hour), true},
		{"numeric indices, sunday is zero", `[0,1]`, monday, true},
		{"numeric indices miss", `[0]`, monday, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, powerRule("r1", models.Condition{
				Type: models.ConditionDayOfWeek, Days: json.RawMessage(tt.days),
			}))
			h.setClock(tt.now)
			h.engine.Tick(context.Background())

			if tt.want {
				assert.Len(t, h.publisher.commands, 1)
			} else {
				assert.Empty(t, h.publisher.commands)
			}
		})
	}
}

func TestConditionsShortCircuit(t *testing.T) {
	h := newHarness(t, powerRule("r1",
		models.Condition{Type: models.ConditionPowerThreshold, DeviceID: "d1", Operator: ">", Threshold: 1000},
		models.Condition{Type: models.ConditionPowerThreshold, DeviceID: "d2", Operator: ">", Threshold: 0},
	))
	h.setWatts("d1", 500)
	h.setWatts("d2", 100)
	h.engine.Tick(context.Background())

	assert.Equal(t, 1, h.telemetry.powerLooked["d1"])
	assert.Zero(t, h.telemetry.powerLooked["d2"], "second condition must not be evaluated")
	assert.Empty(t, h.publisher.commands)
}

func TestDeviceState(t *testing.T) {
	tests := []struct {
		name  string
		watts *float64
		state string
		want  bool
	}{
		{"drawing power is on", f64(60), models.DeviceStateOn, true},
		{"below on floor is off", f64(3), models.DeviceStateOn, false},
		{"below on floor matches off", f64(3), models.DeviceStateOff, true},
		{"no reading is off", nil, models.DeviceStateOff, true},
		{"no reading is not on", nil, models.DeviceStateOn, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, powerRule("r1", models.Condition{
				Type: models.ConditionDeviceState, DeviceID: "d1", State: tt.state,
			}))
			if tt.watts != nil {
				h.setWatts("d1", *tt.watts)
			}
			h.engine.Tick(context.Background())

			if tt.want {
				assert.Len(t, h.publisher.commands, 1)
			} else {
				assert.Empty(t, h.publisher.commands)
			}
		})
	}
}

func f64(v float64) *float64 { return &v }

func TestEnergyThreshold(t *testing.T) {
	h := newHarness(t, powerRule("r1", models.Condition{
		Type: models.ConditionEnergyThreshold, DeviceID: "d1", Operator: ">=", Threshold: 5000,
	}))
	h.telemetry.energy["d1"] = &models.EnergyReading{DeviceID: "d1", HomeID: testHome, WhTotal: 5000}
	h.engine.Tick(context.Background())

	assert.Len(t, h.publisher.commands, 1)
}

func TestUnknownConditionIsFalse(t *testing.T) {
	h := newHarness(t, powerRule("r1", models.Condition{Type: "lunar_phase"}))
	h.engine.Tick(context.Background())

	assert.Empty(t, h.publisher.commands)
}

func TestUnknownActionDoesNotBlockOthers(t *testing.T) {
	rule := powerRule("r1", models.Condition{
		Type: models.ConditionPowerThreshold, DeviceID: "d1", Operator: ">", Threshold: 10,
	})
	rule.Actions = []models.Action{
		{Type: "teleport", DeviceID: "d1"},
		{Type: models.ActionSetDevice, DeviceID: "d1", On: true},
		{Type: models.ActionAlert, Severity: models.SeverityWarning, Message: "high draw"},
	}

	h := newHarness(t, rule)
	h.setWatts("d1", 100)
	h.engine.Tick(context.Background())

	require.Len(t, h.publisher.commands, 1)
	assert.True(t, h.publisher.commands[0].on)
	require.Len(t, h.alerts.inserted, 1)
}

func TestActionFailureDoesNotBlockLaterActions(t *testing.T) {
	rule := powerRule("r1", models.Condition{
		Type: models.ConditionPowerThreshold, DeviceID: "d1", Operator: ">", Threshold: 10,
	})
	rule.Actions = []models.Action{
		{Type: models.ActionSetDevice, DeviceID: "d1", On: false},
		{Type: models.ActionAlert, Severity: models.SeverityInfo, Message: "after failure"},
	}

	h := newHarness(t, rule)
	h.publisher.err = errors.New("broker gone")
	h.setWatts("d1", 100)
	h.engine.Tick(context.Background())

	require.Len(t, h.alerts.inserted, 1)
	assert.Equal(t, "after failure", h.alerts.inserted[0].Message)
}

func TestAlertActionShape(t *testing.T) {
	rule := powerRule("r1", models.Condition{
		Type: models.ConditionPowerThreshold, DeviceID: "d1", Operator: ">", Threshold: 10,
	})
	rule.Actions = []models.Action{
		{Type: models.ActionAlert, Severity: models.SeverityDanger, Message: "overload"},
	}

	h := newHarness(t, rule)
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	h.setClock(now)
	h.setWatts("d1", 100)
	h.engine.Tick(context.Background())

	require.Len(t, h.alerts.inserted, 1)
	a := h.alerts.inserted[0]
	assert.NotEmpty(t, a.ID)
	assert.Equal(t, models.AlertSourceRule, a.Type)
	assert.Equal(t, models.SeverityDanger, a.Severity)
	assert.Equal(t, now.UnixMilli(), a.Timestamp)
	assert.False(t, a.Acknowledged)

	// Danger alerts are handed to the notifier after the insert settles.
	require.Len(t, h.notifier.notified, 1)
	assert.Equal(t, a.ID, h.notifier.notified[0].ID)
}

func TestNonDangerAlertSkipsNotifier(t *testing.T) {
	rule := powerRule("r1", models.Condition{
		Type: models.ConditionPowerThreshold, DeviceID: "d1", Operator: ">", Threshold: 10,
	})
	rule.Actions = []models.Action{
		{Type: models.ActionAlert, Severity: models.SeverityInfo, Message: "fyi"},
	}

	h := newHarness(t, rule)
	h.setWatts("d1", 100)
	h.engine.Tick(context.Background())

	require.Len(t, h.alerts.inserted, 1)
	assert.Empty(t, h.notifier.notified)
}

func TestRuleFetchErrorAbortsTick(t *testing.T) {
	h := newHarness(t, powerRule("r1", models.Condition{
		Type: models.ConditionPowerThreshold, DeviceID: "d1", Operator: ">", Threshold: 10,
	}))
	h.rules.err = errors.New("db down")
	h.setWatts("d1", 100)
	h.engine.Tick(context.Background())

	assert.Zero(t, h.telemetry.powerLooked["d1"])
	assert.Empty(t, h.publisher.commands)
}

func TestRuleFailureIsolatedFromOtherRules(t *testing.T) {
	broken := powerRule("r1", models.Condition{
		Type: models.ConditionPowerThreshold, DeviceID: "dead", Operator: ">", Threshold: 10,
	})
	healthy := powerRule("r2", models.Condition{
		Type: models.ConditionPowerThreshold, DeviceID: "d1", Operator: ">", Threshold: 10,
	})

	h := newHarness(t, broken, healthy)
	h.telemetry.powerErr["dead"] = errors.New("storage error")
	h.setWatts("d1", 100)
	h.engine.Tick(context.Background())

	require.Len(t, h.publisher.commands, 1)
}

func TestStorageErrorClearsNothingForOtherKeys(t *testing.T) {
	h := newHarness(t, powerRule("r1", models.Condition{
		Type: models.ConditionPowerThreshold, DeviceID: "d1",
		Operator: ">", Threshold: 10, DurationMinutes: 1,
	}))
	base := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)

	h.setWatts("d1", 100)
	h.setClock(base)
	h.engine.Tick(context.Background())
	require.Contains(t, h.engine.durationSince, durationKey{ruleID: "r1", deviceID: "d1"})

	// A transient storage error reads as "not fired this tick" but the
	// window survives under its key.
	h.telemetry.powerErr["d1"] = errors.New("storage blip")
	h.setClock(base.Add(30 * time.Second))
	h.engine.Tick(context.Background())
	assert.Contains(t, h.engine.durationSince, durationKey{ruleID: "r1", deviceID: "d1"})

	delete(h.telemetry.powerErr, "d1")
	h.setClock(base.Add(time.Minute))
	h.engine.Tick(context.Background())
	assert.Len(t, h.publisher.commands, 1)
}
