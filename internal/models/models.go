package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// Condition types. The set is closed; unknown types are rejected by
// Rule.Validate at the API boundary and evaluate false in the engine.
const (
	ConditionPowerThreshold  = "power_threshold"
	ConditionTimeOfDay       = "time_of_day"
	ConditionDeviceState     = "device_state"
	ConditionEnergyThreshold = "energy_threshold"
	ConditionDayOfWeek       = "day_of_week"
)

// Action types.
const (
	ActionSetDevice = "set_device"
	ActionAlert     = "alert"
	ActionScene     = "scene"
)

// Alert severities.
const (
	SeverityInfo    = "info"
	SeverityWarning = "warning"
	SeverityDanger  = "danger"
)

// Alert sources, stored in Alert.Type.
const (
	AlertSourceMQTT = "mqtt"
	AlertSourceRule = "rule"
)

// Time-of-day condition modes.
const (
	TimeModeRange = "range"
	TimeModeExact = "exact"
)

// Device states for device_state conditions.
const (
	DeviceStateOn  = "on"
	DeviceStateOff = "off"
)

// PowerReading is one power sample for a device. Append-only.
type PowerReading struct {
	DeviceID  string   `json:"device_id"`
	HomeID    string   `json:"home_id"`
	Timestamp int64    `json:"ts"` // ms epoch
	Watts     float64  `json:"watts"`
	Voltage   *float64 `json:"voltage,omitempty"`
	Current   *float64 `json:"current,omitempty"`
}

// EnergyReading is one cumulative energy sample for a device. The counter is
// monotonically non-decreasing per device within a day. Append-only.
type EnergyReading struct {
	DeviceID  string  `json:"device_id"`
	HomeID    string  `json:"home_id"`
	Timestamp int64   `json:"ts"` // ms epoch
	WhTotal   float64 `json:"wh_total"`
}

// Alert is a persisted alert, created by ingestion (transport alert events)
// or by rule actions. Mutated only by acknowledgment.
type Alert struct {
	ID           string  `json:"id"`
	HomeID       string  `json:"home_id"`
	DeviceID     *string `json:"device_id,omitempty"`
	Timestamp    int64   `json:"ts"` // ms epoch
	Severity     string  `json:"severity"`
	Message      string  `json:"message"`
	Type         string  `json:"type"`
	Acknowledged bool    `json:"acknowledged"`
}

// DailyStat is one aggregated day of telemetry for a device, produced by the
// nightly rollup from energy and power readings.
type DailyStat struct {
	HomeID     string  `json:"home_id"`
	DeviceID   string  `json:"device_id"`
	Day        string  `json:"day"` // YYYY-MM-DD
	WhConsumed float64 `json:"wh_consumed"`
	PeakWatts  float64 `json:"peak_watts"`
}

// Condition is one entry in a rule's condition list. Fields are populated
// per Type; unused fields stay at their zero value.
type Condition struct {
	Type            string          `json:"type"`
	DeviceID        string          `json:"device_id,omitempty"`
	Operator        string          `json:"operator,omitempty"` // > < >= <= == !=
	Threshold       float64         `json:"threshold,omitempty"`
	DurationMinutes float64         `json:"duration_minutes,omitempty"`
	Start           json.RawMessage `json:"start,omitempty"` // "HH:MM" or numeric hour
	End             json.RawMessage `json:"end,omitempty"`
	Mode            string          `json:"mode,omitempty"`
	State           string          `json:"state,omitempty"`
	Days            json.RawMessage `json:"days,omitempty"` // weekday names or indices, Sunday=0
}

// Action is one entry in a rule's action list.
type Action struct {
	Type      string `json:"type"`
	DeviceID  string `json:"device_id,omitempty"`
	On        bool   `json:"on,omitempty"`
	Severity  string `json:"severity,omitempty"`
	Message   string `json:"message,omitempty"`
	SceneName string `json:"scene_name,omitempty"`
}

// Rule is an automation rule owned by a user and scoped to a home. Actions
// execute only when all conditions hold (AND, short-circuit).
type Rule struct {
	ID         string      `json:"id"`
	UserID     string      `json:"user_id"`
	HomeID     string      `json:"home_id"`
	Name       string      `json:"name"`
	Enabled    bool        `json:"enabled"`
	Conditions []Condition `json:"conditions"`
	Actions    []Action    `json:"actions"`
	CreatedAt  time.Time   `json:"created_at"`
}

func validOperator(op string) bool {
	switch op {
	case ">", "<", ">=", "<=", "==", "!=":
		return true
	}
	return false
}

func validSeverity(s string) bool {
	switch s {
	case SeverityInfo, SeverityWarning, SeverityDanger:
		return true
	}
	return false
}

// Validate checks a condition's shape. Called at the rule CRUD boundary so
// malformed conditions never reach the evaluation loop.
func (c Condition) Validate() error {
	switch c.Type {
	case ConditionPowerThreshold, ConditionEnergyThreshold:
		if c.DeviceID == "" {
			return fmt.Errorf("%s condition: empty device_id", c.Type)
		}
		if !validOperator(c.Operator) {
			return fmt.Errorf("%s condition: invalid operator %q", c.Type, c.Operator)
		}
	case ConditionTimeOfDay:
		if c.Mode != TimeModeRange && c.Mode != TimeModeExact {
			return fmt.Errorf("time_of_day condition: invalid mode %q", c.Mode)
		}
		if _, err := MinuteOfDay(c.Start); err != nil {
			return fmt.Errorf("time_of_day condition: bad start: %w", err)
		}
		if c.Mode == TimeModeRange {
			if _, err := MinuteOfDay(c.End); err != nil {
				return fmt.Errorf("time_of_day condition: bad end: %w", err)
			}
		}
	case ConditionDeviceState:
		if c.DeviceID == "" {
			return fmt.Errorf("device_state condition: empty device_id")
		}
		if c.State != DeviceStateOn && c.State != DeviceStateOff {
			return fmt.Errorf("device_state condition: invalid state %q", c.State)
		}
	case ConditionDayOfWeek:
		days, err := Weekdays(c.Days)
		if err != nil {
			return fmt.Errorf("day_of_week condition: %w", err)
		}
		if len(days) == 0 {
			return fmt.Errorf("day_of_week condition: empty days")
		}
	default:
		return fmt.Errorf("unknown condition type %q", c.Type)
	}
	return nil
}

// Validate checks an action's shape.
func (a Action) Validate() error {
	switch a.Type {
	case ActionSetDevice:
		if a.DeviceID == "" {
			return fmt.Errorf("set_device action: empty device_id")
		}
	case ActionAlert:
		if !validSeverity(a.Severity) {
			return fmt.Errorf("alert action: invalid severity %q", a.Severity)
		}
		if a.Message == "" {
			return fmt.Errorf("alert action: empty message")
		}
	case ActionScene:
		if a.SceneName == "" {
			return fmt.Errorf("scene action: empty scene_name")
		}
	default:
		return fmt.Errorf("unknown action type %q", a.Type)
	}
	return nil
}

// Validate checks rule invariants before persisting.
func (r Rule) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("rule: empty name")
	}
	if len(r.Conditions) == 0 {
		return fmt.Errorf("rule: no conditions")
	}
	if len(r.Actions) == 0 {
		return fmt.Errorf("rule: no actions")
	}
	for i, c := range r.Conditions {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("condition %d: %w", i, err)
		}
	}
	for i, a := range r.Actions {
		if err := a.Validate(); err != nil {
			return fmt.Errorf("action %d: %w", i, err)
		}
	}
	return nil
}
