package mqtt

import (
	"context"
	"fmt"
	"sync"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/nerrad567/theatre-core/internal/infrastructure/config"
)

// Logger receives session events and handler failures. *logging.Logger
// and *slog.Logger both satisfy it.
type Logger interface {
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// MessageHandler processes one inbound message. topic is the concrete topic
// the message arrived on, never the wildcard filter. A returned error is
// logged; it does not affect acknowledgement.
type MessageHandler func(topic string, payload []byte) error

type subscription struct {
	qos     byte
	handler MessageHandler
}

// Client is the controller's session on the device bus.
//
// Subscriptions are remembered and replayed whenever paho reconnects,
// because the session is clean and the broker forgets them. Every
// (re)connect also republishes the retained online status.
//
// All methods are safe for concurrent use.
type Client struct {
	paho     pahomqtt.Client
	clientID string
	topics   Topics

	mu           sync.Mutex
	subs         map[string]subscription
	log          Logger
	onConnect    func()
	onDisconnect func(error)
}

// Connect opens a session with the broker described by cfg and waits up to
// the connect timeout for it to come up.
//
// Returns:
//   - *Client: connected client, already announced online
//   - error: wraps ErrConnectionFailed when the broker cannot be reached
func Connect(cfg config.MQTTConfig) (*Client, error) {
	c := newClient(cfg)

	opts := sessionOptions(cfg, c.topics).
		SetOnConnectHandler(func(pahomqtt.Client) { c.sessionUp() }).
		SetConnectionLostHandler(func(_ pahomqtt.Client, err error) { c.sessionDown(err) })
	c.paho = pahomqtt.NewClient(opts)

	token := c.paho.Connect()
	if !token.WaitTimeout(connectTimeout) {
		// Stop the retry loop paho started in the background.
		c.paho.Disconnect(0)
		return nil, fmt.Errorf("%w: no answer from %s:%d within %s",
			ErrConnectionFailed, cfg.Broker.Host, cfg.Broker.Port, connectTimeout)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}
	return c, nil
}

func newClient(cfg config.MQTTConfig) *Client {
	return &Client{
		clientID: cfg.Broker.ClientID,
		topics:   NewTopics(cfg.TopicPrefix),
		subs:     make(map[string]subscription),
		log:      noopLogger{},
	}
}

// sessionUp runs on paho's callback goroutine after every successful
// connect, including the first.
func (c *Client) sessionUp() {
	c.mu.Lock()
	subs := make(map[string]subscription, len(c.subs))
	for topic, s := range c.subs {
		subs[topic] = s
	}
	log, hook := c.log, c.onConnect
	c.mu.Unlock()

	for topic, s := range subs {
		token := c.paho.Subscribe(topic, s.qos, c.deliver(s.handler))
		if err := await(token, ErrSubscribeFailed); err != nil {
			log.Error("restoring MQTT subscription failed", "topic", topic, "error", err)
		}
	}
	if len(subs) > 0 {
		log.Info("MQTT subscriptions restored", "count", len(subs))
	}

	status := statusPayload(StatusOnline, c.clientID, "")
	if err := await(c.paho.Publish(c.topics.SystemStatus(), statusQoS, true, status), ErrPublishFailed); err != nil {
		log.Warn("announcing online status failed", "error", err)
	}

	if hook != nil {
		hook()
	}
}

func (c *Client) sessionDown(err error) {
	c.mu.Lock()
	log, hook := c.log, c.onDisconnect
	c.mu.Unlock()

	log.Warn("MQTT connection lost", "error", err)
	if hook != nil {
		hook(err)
	}
}

// Close announces a clean offline status and ends the session. Calling
// Close on a client that is already down is a no-op.
func (c *Client) Close() error {
	if !c.IsConnected() {
		return nil
	}
	status := statusPayload(StatusOffline, c.clientID, ReasonShutdown)
	err := await(c.paho.Publish(c.topics.SystemStatus(), statusQoS, true, status), ErrPublishFailed)
	c.paho.Disconnect(quiesceMillis)
	if err != nil {
		return fmt.Errorf("announcing offline status: %w", err)
	}
	return nil
}

// HealthCheck reports ErrNotConnected while the session is down, for
// example during a reconnect.
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	return nil
}

// IsConnected reports whether the session is currently open.
func (c *Client) IsConnected() bool {
	return c.paho != nil && c.paho.IsConnectionOpen()
}

// Topics returns the topic builder for the configured prefix.
func (c *Client) Topics() Topics {
	return c.topics
}

// SetOnConnect registers fn to run after every reconnect.
func (c *Client) SetOnConnect(fn func()) {
	c.mu.Lock()
	c.onConnect = fn
	c.mu.Unlock()
}

// SetOnDisconnect registers fn to run when the session drops unexpectedly.
func (c *Client) SetOnDisconnect(fn func(err error)) {
	c.mu.Lock()
	c.onDisconnect = fn
	c.mu.Unlock()
}

// SetLogger replaces the logger. A nil logger silences the client.
func (c *Client) SetLogger(log Logger) {
	if log == nil {
		log = noopLogger{}
	}
	c.mu.Lock()
	c.log = log
	c.mu.Unlock()
}

func (c *Client) logger() Logger {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.log
}
