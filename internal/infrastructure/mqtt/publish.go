package mqtt

import (
	"fmt"
)

// Maximum payload size for MQTT messages (1MB).
// This prevents resource exhaustion and aligns with typical broker limits.
const maxPayloadSize = 1 << 20 // 1MB

// Publish sends a message to the specified MQTT topic and waits for
// acknowledgment.
//
// Parameters:
//   - topic: The topic to publish to
//   - payload: The message payload (max 1MB)
//   - qos: Quality of Service level (0, 1, or 2)
//   - retained: Whether the broker should retain the message for new subscribers
//
// QoS Levels:
//   - 0: At most once (fire and forget)
//   - 1: At least once (guaranteed delivery, may duplicate)
//   - 2: Exactly once (guaranteed, no duplicates, higher overhead)
//
// Returns:
//   - error: nil on success, or wrapped error describing the failure
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	// Validate inputs
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: payload size %d exceeds maximum %d bytes", ErrPublishFailed, len(payload), maxPayloadSize)
	}

	// Check connection state
	if !c.IsConnected() {
		return ErrNotConnected
	}

	// Publish with timeout
	token := c.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrPublishFailed, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}

	return nil
}

// PublishCommand sends a device command without waiting for broker
// acknowledgment (fire-and-forget, at-least-once via the configured QoS).
//
// The caller is never blocked on broker round-trips: if the broker is
// currently unreachable, the command is placed on the bounded offline queue
// and replayed on reconnect, evicting the oldest queued command when the
// queue is full. Commands are published non-retained.
//
// Parameters:
//   - topic: The command topic to publish to
//   - payload: The encoded command payload
//
// Returns:
//   - error: nil unless the topic is empty or the payload oversized;
//     connectivity problems are absorbed by the queue
func (c *Client) PublishCommand(topic string, payload []byte) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: payload size %d exceeds maximum %d bytes", ErrPublishFailed, len(payload), maxPayloadSize)
	}

	qos := byte(c.cfg.QoS)

	if !c.IsConnected() {
		c.enqueueCommand(topic, payload, qos)
		return nil
	}

	token := c.client.Publish(topic, qos, false, payload)

	// Observe the outcome without blocking the caller. A failure after
	// handoff means the connection dropped mid-flight; queue for replay.
	go func() {
		token.Wait()
		if err := token.Error(); err != nil {
			c.enqueueCommand(topic, payload, qos)
			if logger := c.getLogger(); logger != nil {
				logger.Warn("command publish failed, queued for replay",
					"topic", topic,
					"error", err,
				)
			}
		}
	}()

	return nil
}

// enqueueCommand buffers a command for replay on reconnect.
func (c *Client) enqueueCommand(topic string, payload []byte, qos byte) {
	evicted := c.pending.push(queuedCommand{
		topic:   topic,
		payload: payload,
		qos:     qos,
	})
	if evicted {
		if logger := c.getLogger(); logger != nil {
			logger.Warn("command queue full, dropped oldest command",
				"capacity", c.pending.capacity,
			)
		}
	}
}

// PublishRetained publishes a retained message with the configured default QoS.
//
// Use for state updates where new subscribers should receive the current state.
func (c *Client) PublishRetained(topic string, payload []byte) error {
	return c.Publish(topic, payload, byte(c.cfg.QoS), true)
}
