// Package mqtt provides the broker bridge for the virtual devices service.
//
// This package manages:
//   - Connection to the MQTT broker with auto-reconnect
//   - State-topic subscriptions, restored after every reconnect
//   - Fire-and-forget command publishing with a bounded offline queue
//   - Last Will and Testament (LWT) for offline detection
//   - Connection health monitoring
//
// # Architecture
//
// Virtual devices have no local hardware; every property they expose is
// backed by a remote endpoint reachable only through the broker. The bridge
// therefore treats connectivity loss as a normal operating mode, not an
// error: reconnection retries forever with capped exponential backoff, and
// commands issued during an outage are queued (bounded, oldest evicted
// first) and replayed once the broker returns.
//
//	Sync engine ↔ mqtt.Client ↔ Broker ↔ Physical/remote devices
//
// # Delivery semantics
//
//   - Subscriptions use the configured QoS; handlers run on paho goroutines
//     and must hand off quickly (the engine enqueues into its apply loop).
//   - PublishCommand is at-least-once and never blocks the caller on broker
//     round-trips. A command accepted while disconnected is not an error.
//   - The offline queue trades completeness for bounded memory: under a
//     prolonged outage only the newest CommandQueueSize commands survive.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe("home/relay1/state", 1,
//	    func(topic string, payload []byte) error {
//	        engine.EnqueueTelemetry(topic, payload)
//	        return nil
//	    })
//
//	client.PublishCommand("home/relay1/set", []byte("ON"))
package mqtt
