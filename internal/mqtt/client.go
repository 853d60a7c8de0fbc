// Package mqtt publishes meteor candidate detections to an MQTT broker
// (spec.md §4.12, the pipeline's candidate-publish sink). Grounded on the
// teacher's mqtt client: lazy broker-hostname resolution before connect,
// auto-reconnect with exponential backoff, and a small Client interface so
// the pipeline orchestrator never touches the paho client directly.
package mqtt

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/bramsnet/meteorscan/internal/conf"
	"github.com/bramsnet/meteorscan/internal/logging"
)

// Client is the MQTT contract the pipeline orchestrator depends on.
type Client interface {
	Connect(ctx context.Context) error
	Publish(ctx context.Context, topic string, payload string) error
	IsConnected() bool
	Disconnect()
}

// Config holds the connection parameters for a Client.
type Config struct {
	Broker   string
	ClientID string
	Username string
	Password string
}

// client implements Client using eclipse/paho.mqtt.golang.
type client struct {
	config          Config
	internalClient  mqtt.Client
	lastConnAttempt time.Time
	mu              sync.Mutex
	reconnectTimer  *time.Timer
	reconnectStop   chan struct{}
}

// NewClient builds an MQTT client from the repository's notify configuration.
func NewClient(settings *conf.Settings) Client {
	return &client{
		config: Config{
			Broker:   settings.MQTT.Broker,
			ClientID: "meteorscan-" + settings.Main.Name,
			Username: settings.MQTT.Username,
			Password: settings.MQTT.Password,
		},
		reconnectStop: make(chan struct{}),
	}
}

// CandidateTopic builds the publish topic for a meteor candidate detected
// by a given station/antenna pair, per spec.md §4.12's topic convention.
func CandidateTopic(station string, antenna int) string {
	return fmt.Sprintf("meteorscan/%s/%d/candidate", station, antenna)
}

// Connect resolves the broker's hostname and establishes a session.
func (c *client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if time.Since(c.lastConnAttempt) < 1*time.Minute {
		return fmt.Errorf("connection attempt too recent")
	}
	c.lastConnAttempt = time.Now()

	if err := c.resolveBrokerHostname(); err != nil {
		return fmt.Errorf("failed to resolve broker hostname: %w", err)
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(c.config.Broker)
	opts.SetClientID(c.config.ClientID)
	opts.SetUsername(c.config.Username)
	opts.SetPassword(c.config.Password)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetOnConnectHandler(c.onConnect)
	opts.SetConnectionLostHandler(c.onConnectionLost)
	opts.SetConnectRetry(true)

	c.internalClient = mqtt.NewClient(opts)

	token := c.internalClient.Connect()
	if !token.WaitTimeout(30 * time.Second) {
		return fmt.Errorf("connection timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("connection error: %w", err)
	}

	return nil
}

func (c *client) resolveBrokerHostname() error {
	u, err := url.Parse(c.config.Broker)
	if err != nil {
		return fmt.Errorf("invalid broker URL: %w", err)
	}

	host := u.Hostname()
	if _, err := net.LookupHost(host); err != nil {
		return fmt.Errorf("failed to resolve hostname %s: %w", host, err)
	}

	return nil
}

// Publish sends payload (a JSON-encoded meteor candidate) to topic.
func (c *client) Publish(ctx context.Context, topic string, payload string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.IsConnected() {
		return fmt.Errorf("not connected to MQTT broker")
	}

	token := c.internalClient.Publish(topic, 0, true, payload)
	if !token.WaitTimeout(10 * time.Second) {
		return fmt.Errorf("publish timeout")
	}
	return token.Error()
}

// IsConnected reports whether the underlying paho client holds a session.
func (c *client) IsConnected() bool {
	return c.internalClient != nil && c.internalClient.IsConnected()
}

// Disconnect tears down the session and stops any pending reconnect.
func (c *client) Disconnect() {
	if c.internalClient != nil && c.internalClient.IsConnected() {
		c.internalClient.Disconnect(250)
	}
	if c.reconnectTimer != nil {
		c.reconnectTimer.Stop()
	}
	close(c.reconnectStop)
}

func (c *client) onConnect(mqtt.Client) {
	logging.Info("connected to MQTT broker", "broker", c.config.Broker, "client_id", c.config.ClientID)
}

func (c *client) onConnectionLost(_ mqtt.Client, err error) {
	logging.Warn("MQTT connection lost", "broker", c.config.Broker, "error", err)
	c.startReconnectTimer()
}

func (c *client) startReconnectTimer() {
	c.reconnectTimer = time.AfterFunc(time.Minute, func() {
		select {
		case <-c.reconnectStop:
			return
		default:
			c.reconnectWithBackoff()
		}
	})
}

func (c *client) reconnectWithBackoff() {
	backoff := time.Second
	maxBackoff := 5 * time.Minute

	for {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := c.Connect(ctx)
		cancel()

		if err == nil {
			logging.Info("reconnected to MQTT broker", "broker", c.config.Broker)
			c.startReconnectTimer()
			return
		}

		logging.Warn("failed to reconnect to MQTT broker", "broker", c.config.Broker, "error", err, "retry_in", backoff)

		select {
		case <-time.After(backoff):
			backoff *= 2
			if backoff > maxBackoff {
				backoff = maxBackoff
			}
		case <-c.reconnectStop:
			return
		}
	}
}
