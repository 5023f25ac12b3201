package engine

import (
	"context"
	"time"

	"go.uber.org/zap"

	"powermesh/internal/models"
)

// DefaultInterval is the tick period when none is configured.
const DefaultInterval = 30 * time.Second

// RuleSource fetches the rules the engine evaluates each tick.
type RuleSource interface {
	EnabledRules(ctx context.Context, homeID string) ([]models.Rule, error)
}

// TelemetrySource serves latest-reading lookups for condition checks.
type TelemetrySource interface {
	LatestPower(ctx context.Context, homeID, deviceID string) (*models.PowerReading, error)
	LatestEnergy(ctx context.Context, homeID, deviceID string) (*models.EnergyReading, error)
}

// AlertSink persists rule-generated alerts.
type AlertSink interface {
	InsertAlert(ctx context.Context, a models.Alert) error
}

// CommandPublisher dispatches set_device actions onto the transport.
type CommandPublisher interface {
	SetDevice(deviceID string, on bool) error
}

// Notifier receives rule-generated danger alerts for out-of-band delivery.
// Optional; delivery failures never block the rule.
type Notifier interface {
	NotifyAlert(a models.Alert) error
}

type durationKey struct {
	ruleID   string
	deviceID string
}

type exactKey struct {
	ruleID string
	hour   int
	minute int
}

// Engine polls the rule store on a fixed interval and evaluates each enabled
// rule against the latest telemetry. One instance per process, constructed
// explicitly and stopped via Stop.
type Engine struct {
	rules     RuleSource
	telemetry TelemetrySource
	alerts    AlertSink
	commands  CommandPublisher
	notifier  Notifier
	homeID    string
	interval  time.Duration
	logger    *zap.Logger

	// Timer state is in-memory only and owned exclusively by the tick
	// goroutine; a restart clears all in-flight duration counters and
	// daily dedupe marks. durationSince tracks the first tick a windowed
	// power comparison became true; exactFired records the last calendar
	// date an exact time_of_day condition fired.
	durationSince map[durationKey]time.Time
	exactFired    map[exactKey]string

	now    func() time.Time
	cancel context.CancelFunc
	done   chan struct{}
}

// NewEngine creates an evaluation engine. interval <= 0 falls back to
// DefaultInterval. notifier may be nil.
func NewEngine(rules RuleSource, telemetry TelemetrySource, alerts AlertSink, commands CommandPublisher, notifier Notifier, homeID string, interval time.Duration, logger *zap.Logger) *Engine {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Engine{
		rules:         rules,
		telemetry:     telemetry,
		alerts:        alerts,
		commands:      commands,
		notifier:      notifier,
		homeID:        homeID,
		interval:      interval,
		logger:        logger,
		durationSince: make(map[durationKey]time.Time),
		exactFired:    make(map[exactKey]string),
		now:           time.Now,
	}
}

// Start launches the tick loop.
func (e *Engine) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.done = make(chan struct{})
	go e.run(ctx)
	e.logger.Info("engine started", zap.Duration("interval", e.interval))
}

// Stop stops the tick loop and waits for any in-progress tick to finish.
// In-flight action dispatches are not awaited.
func (e *Engine) Stop() {
	if e.cancel == nil {
		return
	}
	e.cancel()
	<-e.done
	e.logger.Info("engine stopped")
}

func (e *Engine) run(ctx context.Context) {
	defer close(e.done)
	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Tick runs on this goroutine, so a slow tick delays the
			// next one instead of overlapping it; the timer maps see
			// strictly sequential access.
			e.Tick(ctx)
		}
	}
}

// Tick runs one evaluation pass: fetch enabled rules, evaluate each in
// isolation, dispatch actions for the rules whose conditions all hold.
// A rule-fetch error aborts the pass; the next tick retries.
func (e *Engine) Tick(ctx context.Context) {
	rules, err := e.rules.EnabledRules(ctx, e.homeID)
	if err != nil {
		e.logger.Error("rule fetch failed, aborting tick", zap.Error(err))
		return
	}

	for _, rule := range rules {
		// The store already filters on enabled; the guard holds the
		// invariant even against a misbehaving source.
		if !rule.Enabled {
			continue
		}
		e.evaluateRule(ctx, rule)
	}
}

// evaluateRule checks one rule's conditions left-to-right with AND
// short-circuit and executes its actions when all hold. Any failure is
// contained to this rule.
func (e *Engine) evaluateRule(ctx context.Context, rule models.Rule) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("rule evaluation panicked",
				zap.String("rule_id", rule.ID), zap.Any("panic", r))
		}
	}()

	for _, cond := range rule.Conditions {
		ok, err := e.evalCondition(ctx, rule.ID, cond)
		if err != nil {
			// Per-rule storage errors read as "not fired this tick".
			e.logger.Warn("condition check failed",
				zap.String("rule_id", rule.ID), zap.String("type", cond.Type), zap.Error(err))
			return
		}
		if !ok {
			return
		}
	}

	e.logger.Info("rule fired", zap.String("rule_id", rule.ID), zap.String("name", rule.Name))
	e.executeActions(ctx, rule)
}
