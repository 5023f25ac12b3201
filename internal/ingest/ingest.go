package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"powermesh/internal/models"
)

// Store receives decoded telemetry. Writes are fire-and-forget: a failure is
// logged and the sample dropped, never retried or buffered.
type Store interface {
	InsertPowerReading(ctx context.Context, r models.PowerReading) error
	InsertEnergyReading(ctx context.Context, r models.EnergyReading) error
	InsertAlert(ctx context.Context, a models.Alert) error
}

// LatestCache keeps the freshest sample per device for the engine's read
// path. Optional; cache failures never block ingestion.
type LatestCache interface {
	SetPower(ctx context.Context, r models.PowerReading) error
	SetEnergy(ctx context.Context, r models.EnergyReading) error
}

// Ingestor bridges pub/sub telemetry into durable storage. It has no rule
// awareness; the engine picks up new samples on its own tick.
type Ingestor struct {
	client mqtt.Client
	store  Store
	cache  LatestCache
	homeID string
	logger *zap.Logger

	now func() time.Time
}

// NewIngestor creates a telemetry ingestor for one home.
func NewIngestor(client mqtt.Client, store Store, cache LatestCache, homeID string, logger *zap.Logger) *Ingestor {
	return &Ingestor{
		client: client,
		store:  store,
		cache:  cache,
		homeID: homeID,
		logger: logger,
		now:    time.Now,
	}
}

// Start subscribes to the home's telemetry topics.
func (i *Ingestor) Start() error {
	subscriptions := map[string]mqtt.MessageHandler{
		fmt.Sprintf("home/%s/sensor/+/power", i.homeID):  i.onPower,
		fmt.Sprintf("home/%s/sensor/+/energy", i.homeID): i.onEnergy,
		fmt.Sprintf("home/%s/event/alert", i.homeID):     i.onAlert,
	}
	for topic, handler := range subscriptions {
		i.logger.Info("subscribing", zap.String("topic", topic))
		if token := i.client.Subscribe(topic, 1, handler); token.Wait() && token.Error() != nil {
			return fmt.Errorf("subscribe %s: %w", topic, token.Error())
		}
	}
	return nil
}

// Stop unsubscribes from the home's telemetry topics.
func (i *Ingestor) Stop() {
	i.client.Unsubscribe(
		fmt.Sprintf("home/%s/sensor/+/power", i.homeID),
		fmt.Sprintf("home/%s/sensor/+/energy", i.homeID),
		fmt.Sprintf("home/%s/event/alert", i.homeID),
	)
}

// deviceIDFromTopic extracts the wildcard segment of a sensor topic,
// home/{home}/sensor/{device}/power.
func deviceIDFromTopic(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) < 4 {
		return ""
	}
	return parts[3]
}

type powerPayload struct {
	TS      *int64   `json:"ts"`
	Watts   *float64 `json:"watts"`
	Voltage *float64 `json:"voltage"`
	Current *float64 `json:"current"`
}

type energyPayload struct {
	TS      *int64   `json:"ts"`
	WhTotal *float64 `json:"wh_total"`
}

type alertPayload struct {
	TS       *int64  `json:"ts"`
	DeviceID *string `json:"device_id"`
	Severity string  `json:"severity"`
	Message  string  `json:"message"`
}

func (i *Ingestor) onPower(_ mqtt.Client, msg mqtt.Message) {
	deviceID := deviceIDFromTopic(msg.Topic())
	if deviceID == "" {
		i.logger.Warn("power message on unparsable topic", zap.String("topic", msg.Topic()))
		return
	}

	var payload powerPayload
	if err := json.Unmarshal(msg.Payload(), &payload); err != nil {
		i.logger.Warn("dropping malformed power payload",
			zap.String("device_id", deviceID), zap.Error(err))
		return
	}

	reading := models.PowerReading{
		DeviceID:  deviceID,
		HomeID:    i.homeID,
		Timestamp: i.now().UnixMilli(),
		Voltage:   payload.Voltage,
		Current:   payload.Current,
	}
	if payload.TS != nil {
		reading.Timestamp = *payload.TS
	}
	if payload.Watts != nil {
		reading.Watts = *payload.Watts
	}

	ctx := context.Background()
	if err := i.store.InsertPowerReading(ctx, reading); err != nil {
		// Telemetry is lossy by design; drop and move on.
		i.logger.Warn("dropping power reading, store write failed",
			zap.String("device_id", deviceID), zap.Error(err))
		return
	}
	if i.cache != nil {
		if err := i.cache.SetPower(ctx, reading); err != nil {
			i.logger.Warn("latest power cache write failed",
				zap.String("device_id", deviceID), zap.Error(err))
		}
	}
}

func (i *Ingestor) onEnergy(_ mqtt.Client, msg mqtt.Message) {
	deviceID := deviceIDFromTopic(msg.Topic())
	if deviceID == "" {
		i.logger.Warn("energy message on unparsable topic", zap.String("topic", msg.Topic()))
		return
	}

	var payload energyPayload
	if err := json.Unmarshal(msg.Payload(), &payload); err != nil {
		i.logger.Warn("dropping malformed energy payload",
			zap.String("device_id", deviceID), zap.Error(err))
		return
	}

	reading := models.EnergyReading{
		DeviceID:  deviceID,
		HomeID:    i.homeID,
		Timestamp: i.now().UnixMilli(),
	}
	if payload.TS != nil {
		reading.Timestamp = *payload.TS
	}
	if payload.WhTotal != nil {
		reading.WhTotal = *payload.WhTotal
	}

	ctx := context.Background()
	if err := i.store.InsertEnergyReading(ctx, reading); err != nil {
		i.logger.Warn("dropping energy reading, store write failed",
			zap.String("device_id", deviceID), zap.Error(err))
		return
	}
	if i.cache != nil {
		if err := i.cache.SetEnergy(ctx, reading); err != nil {
			i.logger.Warn("latest energy cache write failed",
				zap.String("device_id", deviceID), zap.Error(err))
		}
	}
}

func (i *Ingestor) onAlert(_ mqtt.Client, msg mqtt.Message) {
	var payload alertPayload
	if err := json.Unmarshal(msg.Payload(), &payload); err != nil {
		i.logger.Warn("dropping malformed alert payload", zap.Error(err))
		return
	}

	severity := payload.Severity
	switch severity {
	case models.SeverityInfo, models.SeverityWarning, models.SeverityDanger:
	default:
		severity = models.SeverityInfo
	}

	alert := models.Alert{
		ID:        uuid.NewString(),
		HomeID:    i.homeID,
		DeviceID:  payload.DeviceID,
		Timestamp: i.now().UnixMilli(),
		Severity:  severity,
		Message:   payload.Message,
		Type:      models.AlertSourceMQTT,
	}
	if payload.TS != nil {
		alert.Timestamp = *payload.TS
	}

	if err := i.store.InsertAlert(context.Background(), alert); err != nil {
		i.logger.Warn("dropping transport alert, store write failed", zap.Error(err))
	}
}
