package mqtt

import (
	"fmt"
	"sort"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"
)

// maxPayload bounds outbound messages. Device commands and state are small
// JSON documents; anything near this size is a bug.
const maxPayload = 256 * 1024

// Publish sends payload to topic and waits for the broker to accept it
// (for QoS 1 and 2) or for paho to write it (QoS 0).
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	if err := checkTopic(topic, qos); err != nil {
		return err
	}
	if len(payload) > maxPayload {
		return fmt.Errorf("%w: %d bytes on %s", ErrPayloadTooLarge, len(payload), topic)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	if err := await(c.paho.Publish(topic, qos, retained, payload), ErrPublishFailed); err != nil {
		return fmt.Errorf("%s: %w", topic, err)
	}
	return nil
}

// Subscribe registers handler for messages matching topic, which may hold
// + and # wildcards. Subscribing again to the same filter replaces the
// handler. The subscription survives reconnects.
func (c *Client) Subscribe(topic string, qos byte, handler MessageHandler) error {
	if err := checkTopic(topic, qos); err != nil {
		return err
	}
	if handler == nil {
		return fmt.Errorf("%w: nil handler for %s", ErrSubscribeFailed, topic)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}
	if err := await(c.paho.Subscribe(topic, qos, c.deliver(handler)), ErrSubscribeFailed); err != nil {
		return fmt.Errorf("%s: %w", topic, err)
	}

	c.mu.Lock()
	c.subs[topic] = subscription{qos: qos, handler: handler}
	c.mu.Unlock()
	return nil
}

// Unsubscribe drops the filter. The subscription is forgotten even when
// the broker cannot be told, so it is not replayed on the next reconnect.
func (c *Client) Unsubscribe(topic string) error {
	if topic == "" {
		return ErrInvalidTopic
	}

	c.mu.Lock()
	delete(c.subs, topic)
	c.mu.Unlock()

	if !c.IsConnected() {
		return ErrNotConnected
	}
	if err := await(c.paho.Unsubscribe(topic), ErrUnsubscribeFailed); err != nil {
		return fmt.Errorf("%s: %w", topic, err)
	}
	return nil
}

// Subscriptions lists the remembered topic filters in sorted order.
func (c *Client) Subscriptions() []string {
	c.mu.Lock()
	out := make([]string, 0, len(c.subs))
	for topic := range c.subs {
		out = append(out, topic)
	}
	c.mu.Unlock()
	sort.Strings(out)
	return out
}

// deliver adapts handler to paho. A panicking handler is logged and must
// not take down paho's router goroutine.
func (c *Client) deliver(handler MessageHandler) pahomqtt.MessageHandler {
	return func(_ pahomqtt.Client, msg pahomqtt.Message) {
		c.dispatch(handler, msg.Topic(), msg.Payload())
	}
}

func (c *Client) dispatch(handler MessageHandler, topic string, payload []byte) {
	defer func() {
		if r := recover(); r != nil {
			c.logger().Error("MQTT handler panicked", "topic", topic, "panic", r)
		}
	}()
	if err := handler(topic, payload); err != nil {
		c.logger().Warn("MQTT handler failed", "topic", topic, "error", err)
	}
}

func checkTopic(topic string, qos byte) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > 2 {
		return fmt.Errorf("%w: got %d", ErrInvalidQoS, qos)
	}
	return nil
}

// await waits for token within operationTimeout and wraps any failure in
// sentinel.
func await(token pahomqtt.Token, sentinel error) error {
	if !token.WaitTimeout(operationTimeout) {
		return fmt.Errorf("%w: timed out after %s", sentinel, operationTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", sentinel, err)
	}
	return nil
}
