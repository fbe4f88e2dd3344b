package notify

import (
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
)

// MQTT publishes to an MQTT broker through Paho.
type MQTT struct {
	client paho.Client
	broker string
	mu     sync.Mutex
}

// NewMQTT creates a client for broker but does not connect.
func NewMQTT(broker, clientID string) *MQTT {
	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second).
		SetKeepAlive(30 * time.Second)

	return &MQTT{
		client: paho.NewClient(opts),
		broker: broker,
	}
}

// Broker returns the broker URL.
func (c *MQTT) Broker() string { return c.broker }

// Connect attempts to connect to the broker without blocking indefinitely.
func (c *MQTT) Connect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	token := c.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return &TimeoutError{Op: "connect", Target: c.broker}
	}
	return token.Error()
}

// Publish sends payload to topic with QoS 1.
func (c *MQTT) Publish(topic string, payload []byte) error {
	token := c.client.Publish(topic, 1, false, payload)
	if !token.WaitTimeout(publishTimeout) {
		return &TimeoutError{Op: "publish", Target: topic}
	}
	return token.Error()
}

// IsConnected returns true if the client is connected.
func (c *MQTT) IsConnected() bool {
	return c.client.IsConnected()
}

// Close cleanly disconnects from the broker.
func (c *MQTT) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.client.Disconnect(1000)
}

// TimeoutError indicates a broker operation timed out.
type TimeoutError struct {
	Op     string
	Target string
}

func (e *TimeoutError) Error() string {
	return "mqtt " + e.Op + " timeout: " + e.Target
}
