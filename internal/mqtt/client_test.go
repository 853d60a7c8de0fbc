package mqtt

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bramsnet/meteorscan/internal/conf"
)

func TestCandidateTopic(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "meteorscan/BEHUMA/1/candidate", CandidateTopic("BEHUMA", 1))
}

func TestNewClientWiresSettings(t *testing.T) {
	t.Parallel()
	settings := &conf.Settings{}
	settings.Main.Name = "test-node"
	settings.MQTT.Broker = "tcp://localhost:1883"
	settings.MQTT.Username = "alice"
	settings.MQTT.Password = "secret"

	c := NewClient(settings).(*client)
	assert.Equal(t, "tcp://localhost:1883", c.config.Broker)
	assert.Equal(t, "meteorscan-test-node", c.config.ClientID)
	assert.Equal(t, "alice", c.config.Username)
	assert.False(t, c.IsConnected())
}

func TestConnectRejectsUnresolvableBroker(t *testing.T) {
	t.Parallel()
	c := &client{
		config:        Config{Broker: "tcp://this-host-does-not-resolve.invalid:1883"},
		reconnectStop: make(chan struct{}),
	}

	err := c.Connect(context.Background())
	require.Error(t, err)
}

func TestConnectRateLimitsRepeatedAttempts(t *testing.T) {
	t.Parallel()
	c := &client{
		config:          Config{Broker: "tcp://this-host-does-not-resolve.invalid:1883"},
		reconnectStop:   make(chan struct{}),
		lastConnAttempt: time.Now(),
	}

	err := c.Connect(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too recent")
}

func TestPublishRequiresConnection(t *testing.T) {
	t.Parallel()
	c := &client{reconnectStop: make(chan struct{})}
	err := c.Publish(context.Background(), "meteorscan/BEHUMA/1/candidate", "{}")
	require.Error(t, err)
}

func TestDisconnectWithoutConnectDoesNotPanic(t *testing.T) {
	t.Parallel()
	c := &client{reconnectStop: make(chan struct{})}
	assert.NotPanics(t, func() { c.Disconnect() })
}
