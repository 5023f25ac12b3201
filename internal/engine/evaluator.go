package engine

import (
	"context"
	"time"

	"go.uber.org/zap"

	"powermesh/internal/models"
)

// onFloorWatts is the draw above which a device counts as on.
const onFloorWatts = 5.0

func (e *Engine) evalCondition(ctx context.Context, ruleID string, cond models.Condition) (bool, error) {
	switch cond.Type {
	case models.ConditionPowerThreshold:
		return e.evalPowerThreshold(ctx, ruleID, cond)
	case models.ConditionTimeOfDay:
		return e.evalTimeOfDay(ruleID, cond)
	case models.ConditionDeviceState:
		return e.evalDeviceState(ctx, cond)
	case models.ConditionEnergyThreshold:
		return e.evalEnergyThreshold(ctx, cond)
	case models.ConditionDayOfWeek:
		return e.evalDayOfWeek(cond)
	}
	// Unknown kinds are rejected at the CRUD boundary; anything that slips
	// through evaluates false without failing the rule's tick.
	e.logger.Warn("unknown condition type",
		zap.String("rule_id", ruleID), zap.String("type", cond.Type))
	return false, nil
}

// evalPowerThreshold compares the latest power sample against the threshold.
// With a positive duration the comparison must hold contiguously: the since
// timestamp is set on the first true tick, cleared the instant the comparison
// reads false, and the condition turns true once the window has elapsed. On
// firing the window re-arms.
func (e *Engine) evalPowerThreshold(ctx context.Context, ruleID string, cond models.Condition) (bool, error) {
	key := durationKey{ruleID: ruleID, deviceID: cond.DeviceID}

	latest, err := e.telemetry.LatestPower(ctx, e.homeID, cond.DeviceID)
	if err != nil {
		return false, err
	}
	if latest == nil {
		delete(e.durationSince, key)
		return false, nil
	}

	holds := models.Compare(latest.Watts, cond.Operator, cond.Threshold)
	if cond.DurationMinutes <= 0 {
		return holds, nil
	}

	if !holds {
		delete(e.durationSince, key)
		return false, nil
	}

	since, running := e.durationSince[key]
	if !running {
		since = e.now()
		e.durationSince[key] = since
	}
	if e.now().Sub(since) < time.Duration(cond.DurationMinutes*float64(time.Minute)) {
		return false, nil
	}
	delete(e.durationSince, key)
	return true, nil
}

// evalTimeOfDay handles both modes. Range membership is [start, end) on
// minutes-of-day, wrapping past midnight when end < start. Exact mode is true
// only in the target minute and at most once per calendar day.
func (e *Engine) evalTimeOfDay(ruleID string, cond models.Condition) (bool, error) {
	start, err := models.MinuteOfDay(cond.Start)
	if err != nil {
		return false, err
	}

	now := e.now()
	minuteOfDay := now.Hour()*60 + now.Minute()

	if cond.Mode == models.TimeModeExact {
		if minuteOfDay != start {
			return false, nil
		}
		key := exactKey{ruleID: ruleID, hour: start / 60, minute: start % 60}
		today := now.Format("2006-01-02")
		if e.exactFired[key] == today {
			return false, nil
		}
		e.exactFired[key] = today
		return true, nil
	}

	end, err := models.MinuteOfDay(cond.End)
	if err != nil {
		return false, err
	}
	if end < start {
		return minuteOfDay >= start || minuteOfDay < end, nil
	}
	return minuteOfDay >= start && minuteOfDay < end, nil
}

// evalDeviceState reports a device on when its latest draw exceeds the on
// floor; a device with no readings counts as off.
func (e *Engine) evalDeviceState(ctx context.Context, cond models.Condition) (bool, error) {
	latest, err := e.telemetry.LatestPower(ctx, e.homeID, cond.DeviceID)
	if err != nil {
		return false, err
	}
	on := latest != nil && latest.Watts > onFloorWatts
	if cond.State == models.DeviceStateOn {
		return on, nil
	}
	return !on, nil
}

func (e *Engine) evalEnergyThreshold(ctx context.Context, cond models.Condition) (bool, error) {
	latest, err := e.telemetry.LatestEnergy(ctx, e.homeID, cond.DeviceID)
	if err != nil {
		return false, err
	}
	if latest == nil {
		return false, nil
	}
	return models.Compare(latest.WhTotal, cond.Operator, cond.Threshold), nil
}

func (e *Engine) evalDayOfWeek(cond models.Condition) (bool, error) {
	days, err := models.Weekdays(cond.Days)
	if err != nil {
		return false, err
	}
	return days[e.now().Weekday()], nil
}
