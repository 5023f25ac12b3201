package dispatch

import (
	"encoding/json"
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// Dispatcher publishes actuator commands onto the transport. Delivery is
// at-most-once: the publish is not awaited and never retried.
type Dispatcher struct {
	client mqtt.Client
	homeID string
	logger *zap.Logger
}

// NewDispatcher creates a command dispatcher for one home.
func NewDispatcher(client mqtt.Client, homeID string, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{client: client, homeID: homeID, logger: logger}
}

// CommandTopic returns the command topic for a device.
func (d *Dispatcher) CommandTopic(deviceID string) string {
	return fmt.Sprintf("home/%s/cmd/%s/set", d.homeID, deviceID)
}

// SetDevice publishes {"on": on} to the device's command topic.
func (d *Dispatcher) SetDevice(deviceID string, on bool) error {
	payload, err := json.Marshal(map[string]bool{"on": on})
	if err != nil {
		return err
	}
	topic := d.CommandTopic(deviceID)
	d.logger.Info("publishing device command",
		zap.String("topic", topic), zap.Bool("on", on))
	d.client.Publish(topic, 1, false, payload)
	return nil
}
