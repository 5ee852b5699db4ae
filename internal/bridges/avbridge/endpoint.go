package avbridge

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"

	"github.com/nerrad567/theatre-core/internal/device"
	"github.com/nerrad567/theatre-core/internal/infrastructure/mqtt"
)

const (
	defaultRequestTimeout = 5 * time.Second
	defaultMaxFailures    = 5
	defaultOpenTimeout    = 30 * time.Second
	commandSource         = "controller"
)

// ErrNoDeviceID is returned when a client is created without a device ID.
var ErrNoDeviceID = errors.New("avbridge: device id required")

// Bus is the MQTT surface the clients need. *mqtt.Client implements it.
type Bus interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
	Topics() mqtt.Topics
}

// Logger is the logging interface used by the device clients.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Options configure a device client.
type Options struct {
	Bus      Bus
	DeviceID string

	// QoS for commands and requests. Defaults to 1.
	QoS byte

	// RequestTimeout bounds a request/response exchange. Defaults to 5s.
	RequestTimeout time.Duration

	// MaxFailures consecutive failures open the breaker. Defaults to 5.
	MaxFailures uint32

	// OpenTimeout is how long the breaker stays open. Defaults to 30s.
	OpenTimeout time.Duration

	// OnBreakerChange is called on every breaker state transition. Optional.
	OnBreakerChange func(deviceID string, from, to gobreaker.State)

	Logger Logger
}

// endpoint is the MQTT plumbing shared by every device client: state
// subscription, command publishing and request/response correlation.
type endpoint struct {
	device.Listeners

	source  any
	bus     Bus
	id      string
	qos     byte
	topics  mqtt.Topics
	timeout time.Duration
	breaker *gobreaker.CircuitBreaker[struct{}]
	logger  Logger

	mu      sync.Mutex
	pending map[string]chan ResponseMessage
	open    bool
	closed  chan struct{}
	once    sync.Once
}

func newEndpoint(opts Options) (*endpoint, error) {
	if opts.DeviceID == "" {
		return nil, ErrNoDeviceID
	}
	if opts.Bus == nil {
		return nil, fmt.Errorf("avbridge %s: bus required", opts.DeviceID)
	}
	if opts.QoS == 0 {
		opts.QoS = 1
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = defaultRequestTimeout
	}
	if opts.MaxFailures == 0 {
		opts.MaxFailures = defaultMaxFailures
	}
	if opts.OpenTimeout <= 0 {
		opts.OpenTimeout = defaultOpenTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = noopLogger{}
	}

	e := &endpoint{
		bus:     opts.Bus,
		id:      opts.DeviceID,
		qos:     opts.QoS,
		topics:  opts.Bus.Topics(),
		timeout: opts.RequestTimeout,
		logger:  logger,
		pending: make(map[string]chan ResponseMessage),
		closed:  make(chan struct{}),
	}

	maxFailures := opts.MaxFailures
	onChange := opts.OnBreakerChange
	e.breaker = gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        opts.DeviceID,
		MaxRequests: 1,
		Timeout:     opts.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		// A device that answers "no" is reachable; only transport
		// failures and silence count against it.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, device.ErrRejected)
		},
		// The caller gave up; that says nothing about the device.
		IsExcluded: func(err error) bool {
			return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("device breaker state changed", "device", name, "from", from.String(), "to", to.String())
			if onChange != nil {
				onChange(name, from, to)
			}
		},
	})

	return e, nil
}

// start subscribes to the device's state and response topics. source is
// the client reported as the origin of its events.
func (e *endpoint) start(source any) error {
	e.source = source

	states := e.topics.DeviceStates(e.id)
	if err := e.bus.Subscribe(states, e.qos, e.handleState); err != nil {
		return fmt.Errorf("subscribing to %s: %w", states, err)
	}
	responses := e.topics.DeviceResponses(e.id)
	if err := e.bus.Subscribe(responses, e.qos, e.handleResponse); err != nil {
		_ = e.bus.Unsubscribe(states)
		return fmt.Errorf("subscribing to %s: %w", responses, err)
	}

	e.mu.Lock()
	e.open = true
	e.mu.Unlock()
	return nil
}

// close unsubscribes and fails outstanding requests. It is idempotent.
func (e *endpoint) close() error {
	var err error
	e.once.Do(func() {
		close(e.closed)

		e.mu.Lock()
		wasOpen := e.open
		e.open = false
		e.mu.Unlock()

		if wasOpen {
			err = errors.Join(
				e.bus.Unsubscribe(e.topics.DeviceStates(e.id)),
				e.bus.Unsubscribe(e.topics.DeviceResponses(e.id)),
			)
		}
	})
	return err
}

func (e *endpoint) handleState(topic string, payload []byte) error {
	_, kind, ok := e.topics.ParseState(topic)
	if !ok {
		return fmt.Errorf("unexpected state topic %s", topic)
	}

	var msg StateMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("decoding %s state: %w", kind, err)
	}

	ev, err := decodeEvent(kind, msg.State)
	if err != nil {
		return fmt.Errorf("decoding %s state: %w", kind, err)
	}
	e.Emit(e.source, ev)
	return nil
}

func decodeEvent(kind string, state json.RawMessage) (device.Event, error) {
	switch kind {
	case StateDisplayMode:
		var mode device.DisplayMode
		if err := json.Unmarshal(state, &mode); err != nil {
			return nil, err
		}
		return device.DisplayModeChanged{Mode: mode}, nil
	case StateAudioDecoder:
		var ev device.AudioDecoderChanged
		if err := json.Unmarshal(state, &ev); err != nil {
			return nil, err
		}
		return ev, nil
	case StateHighlightedSelection:
		var ev device.HighlightedSelectionChanged
		if err := json.Unmarshal(state, &ev); err != nil {
			return nil, err
		}
		return ev, nil
	default:
		return device.UnrecognizedEvent{Kind: kind, Payload: append([]byte(nil), state...)}, nil
	}
}

func (e *endpoint) handleResponse(topic string, payload []byte) error {
	_, requestID, ok := e.topics.ParseResponse(topic)
	if !ok {
		return fmt.Errorf("unexpected response topic %s", topic)
	}

	var resp ResponseMessage
	if err := json.Unmarshal(payload, &resp); err != nil {
		return fmt.Errorf("decoding response %s: %w", requestID, err)
	}
	if resp.RequestID == "" {
		resp.RequestID = requestID
	}

	e.mu.Lock()
	ch, found := e.pending[resp.RequestID]
	delete(e.pending, resp.RequestID)
	e.mu.Unlock()

	if !found {
		e.logger.Debug("response for unknown request", "device", e.id, "request_id", resp.RequestID)
		return nil
	}
	ch <- resp
	return nil
}

// command publishes a fire-and-forget command through the breaker.
func (e *endpoint) command(ctx context.Context, name string, params map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := CommandMessage{
		ID:         uuid.NewString(),
		Timestamp:  time.Now().UTC(),
		DeviceID:   e.id,
		Command:    name,
		Parameters: params,
		Source:     commandSource,
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encoding %s command: %w", name, err)
	}

	_, err = e.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, e.publish(e.topics.Command(e.id), payload)
	})
	if err != nil {
		return e.wrapErr(name, err)
	}
	e.logger.Debug("device command sent", "device", e.id, "command", name, "command_id", msg.ID)
	return nil
}

// request publishes a request and waits for its response. A successful
// response's data is decoded into out when out is not nil.
func (e *endpoint) request(ctx context.Context, action string, params map[string]any, out any) error {
	var resp ResponseMessage
	_, err := e.breaker.Execute(func() (struct{}, error) {
		var err error
		resp, err = e.exchange(ctx, action, params)
		return struct{}{}, err
	})
	if err != nil {
		return e.wrapErr(action, err)
	}
	if out != nil && len(resp.Data) > 0 {
		if err := json.Unmarshal(resp.Data, out); err != nil {
			return fmt.Errorf("%s %s: decoding response: %w", e.id, action, err)
		}
	}
	return nil
}

func (e *endpoint) exchange(ctx context.Context, action string, params map[string]any) (ResponseMessage, error) {
	msg := RequestMessage{
		RequestID:  uuid.NewString(),
		Timestamp:  time.Now().UTC(),
		DeviceID:   e.id,
		Action:     action,
		Parameters: params,
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return ResponseMessage{}, fmt.Errorf("encoding request: %w", err)
	}

	ch := make(chan ResponseMessage, 1)
	e.mu.Lock()
	if !e.open {
		e.mu.Unlock()
		return ResponseMessage{}, device.ErrNotConnected
	}
	e.pending[msg.RequestID] = ch
	e.mu.Unlock()
	defer func() {
		e.mu.Lock()
		delete(e.pending, msg.RequestID)
		e.mu.Unlock()
	}()

	if err := e.publish(e.topics.Request(e.id, msg.RequestID), payload); err != nil {
		return ResponseMessage{}, err
	}

	timer := time.NewTimer(e.timeout)
	defer timer.Stop()

	select {
	case resp := <-ch:
		if !resp.Success {
			return resp, rejection(resp.Error)
		}
		return resp, nil
	case <-timer.C:
		return ResponseMessage{}, fmt.Errorf("%w after %s", device.ErrTimeout, e.timeout)
	case <-ctx.Done():
		return ResponseMessage{}, ctx.Err()
	case <-e.closed:
		return ResponseMessage{}, device.ErrNotConnected
	}
}

func (e *endpoint) publish(topic string, payload []byte) error {
	if err := e.bus.Publish(topic, payload, e.qos, false); err != nil {
		if errors.Is(err, mqtt.ErrNotConnected) {
			return fmt.Errorf("%w: %w", device.ErrNotConnected, err)
		}
		return err
	}
	return nil
}

func rejection(re *ResponseError) error {
	if re == nil {
		return device.ErrRejected
	}
	return fmt.Errorf("%w: %s: %s", device.ErrRejected, re.Code, re.Message)
}

func (e *endpoint) wrapErr(op string, err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("%s %s: %w: %w", e.id, op, device.ErrUnavailable, err)
	}
	return fmt.Errorf("%s %s: %w", e.id, op, err)
}

// BreakerState reports the device's circuit breaker state.
func (e *endpoint) BreakerState() gobreaker.State {
	return e.breaker.State()
}

// DeviceID returns the bridge device identifier.
func (e *endpoint) DeviceID() string {
	return e.id
}
