package dispatch

import (
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type publishedMessage struct {
	topic   string
	qos     byte
	payload []byte
}

type fakeToken struct{}

func (fakeToken) Wait() bool                     { return true }
func (fakeToken) WaitTimeout(time.Duration) bool { return true }
func (fakeToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}
func (fakeToken) Error() error { return nil }

type fakeClient struct {
	mqtt.Client
	published []publishedMessage
}

func (f *fakeClient) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	f.published = append(f.published, publishedMessage{
		topic: topic, qos: qos, payload: payload.([]byte),
	})
	return fakeToken{}
}

func TestSetDevicePublishesCommand(t *testing.T) {
	client := &fakeClient{}
	d := NewDispatcher(client, "home-1", zap.NewNop())

	require.NoError(t, d.SetDevice("plug-1", false))

	require.Len(t, client.published, 1)
	msg := client.published[0]
	assert.Equal(t, "home/home-1/cmd/plug-1/set", msg.topic)
	assert.JSONEq(t, `{"on": false}`, string(msg.payload))
}

func TestCommandTopic(t *testing.T) {
	d := NewDispatcher(nil, "h9", zap.NewNop())
	assert.Equal(t, "home/h9/cmd/lamp/set", d.CommandTopic("lamp"))
}
