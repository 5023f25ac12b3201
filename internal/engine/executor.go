package engine

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"powermesh/internal/models"
)

// executeActions runs a fired rule's actions in order. One action's failure
// is logged and the remaining actions still attempt to run.
func (e *Engine) executeActions(ctx context.Context, rule models.Rule) {
	for i, action := range rule.Actions {
		if err := e.executeAction(ctx, rule, action); err != nil {
			e.logger.Warn("action failed",
				zap.String("rule_id", rule.ID), zap.Int("index", i),
				zap.String("type", action.Type), zap.Error(err))
		}
	}
}

func (e *Engine) executeAction(ctx context.Context, rule models.Rule, action models.Action) error {
	switch action.Type {
	case models.ActionSetDevice:
		return e.commands.SetDevice(action.DeviceID, action.On)

	case models.ActionAlert:
		alert := models.Alert{
			ID:        uuid.NewString(),
			HomeID:    rule.HomeID,
			Timestamp: e.now().UnixMilli(),
			Severity:  action.Severity,
			Message:   action.Message,
			Type:      models.AlertSourceRule,
		}
		if err := e.alerts.InsertAlert(ctx, alert); err != nil {
			return err
		}
		if e.notifier != nil && alert.Severity == models.SeverityDanger {
			if err := e.notifier.NotifyAlert(alert); err != nil {
				e.logger.Warn("alert notification enqueue failed",
					zap.String("alert_id", alert.ID), zap.Error(err))
			}
		}
		return nil

	case models.ActionScene:
		// Scenes are a stub: logged, no device effect.
		e.logger.Info("scene action",
			zap.String("rule_id", rule.ID), zap.String("scene", action.SceneName))
		return nil
	}

	e.logger.Warn("skipping unknown action type",
		zap.String("rule_id", rule.ID), zap.String("type", action.Type))
	return nil
}
