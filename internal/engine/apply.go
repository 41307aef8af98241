package engine

import (
	"fmt"
	"time"

	"github.com/nerrad567/virtual-devices-core/internal/device"
	"github.com/nerrad567/virtual-devices-core/internal/fleet"
	"github.com/nerrad567/virtual-devices-core/internal/registry"
)

// loop is the apply goroutine: the only code that mutates the fleet
// document after Start.
func (e *Engine) loop() {
	defer e.wg.Done()

	for {
		select {
		case ev := <-e.events:
			e.apply(ev)
		case <-e.done:
			return
		}
	}
}

// apply dispatches one event by origin.
func (e *Engine) apply(ev event) {
	switch ev.origin {
	case originTelemetry:
		e.applyTelemetry(ev)
	case originGUI:
		ev.reply <- e.applyGUIWrite(ev)
	case originMetadata:
		ev.reply <- e.applyMetadataEdit(ev)
	case originReload:
		ev.reply <- e.applyReload(ev.doc)
	}
}

// applyTelemetry handles an inbound state-topic message.
//
// The message fans out to every binding routed to the topic. A payload
// that fails to decode is dropped with a warning; the binding keeps its
// prior value. An applied change updates the host bus, the cached value,
// and the sinks. It NEVER publishes a command: telemetry is the one
// direction that must not reflect back to the broker.
func (e *Engine) applyTelemetry(ev event) {
	// Stale-generation messages reference bindings from before a reload
	// tore their topic down. Drop them.
	gen, ok := e.topicGen[ev.topic]
	if !ok || gen != ev.generation {
		e.log.Debug("stale telemetry dropped", "topic", ev.topic)
		return
	}

	changed := false
	for _, ref := range e.routes[ev.topic] {
		dev := e.doc.Device(ref.instance)
		if dev == nil {
			continue
		}
		b := dev.Binding(ref.key)
		if b == nil {
			continue
		}

		v, err := device.Decode(b.Payload, ev.payload)
		if err != nil {
			e.log.Warn("telemetry payload rejected",
				"topic", ev.topic,
				"instance", ref.instance,
				"property", ref.key,
				"error", err,
			)
			continue
		}

		if b.LastValue != nil && *b.LastValue == v {
			continue
		}

		e.setValue(dev, b, v, OriginTelemetry)
		e.applyDerived(dev, ref.key, OriginTelemetry)
		changed = true
	}

	if changed {
		e.store.Save(e.doc)
	}
}

// applyGUIWrite handles a property write from the host bus.
//
// Exactly one command is published per accepted write, and the cached
// value is updated optimistically so the GUI reflects the intended state
// immediately. A later telemetry echo converges the value through the
// normal telemetry path; if no echo ever arrives the optimistic value
// stands.
func (e *Engine) applyGUIWrite(ev event) error {
	dev := e.doc.Device(ev.instance)
	if dev == nil {
		return fmt.Errorf("%w: %d", ErrUnknownDevice, ev.instance)
	}
	b := dev.Binding(ev.key)
	if b == nil {
		return fmt.Errorf("%w: %d/%s", ErrUnknownProperty, ev.instance, ev.key)
	}

	spec, ok := e.specs[ev.instance][ev.key]
	if !ok {
		return fmt.Errorf("%w: %d/%s", ErrUnknownProperty, ev.instance, ev.key)
	}
	if err := spec.ValidateWrite(ev.value); err != nil {
		return err
	}
	if b.CommandTopic == "" {
		return fmt.Errorf("%w: %d/%s", device.ErrNotWritable, ev.instance, ev.key)
	}

	payload, err := device.Encode(b.Payload, ev.value)
	if err != nil {
		return err
	}

	if err := e.bridge.PublishCommand(b.CommandTopic, []byte(payload)); err != nil {
		// Malformed command, not connectivity: the bridge absorbs outages
		// into its offline queue.
		return err
	}

	e.setValue(dev, b, ev.value, OriginGUI)
	e.applyDerived(dev, ev.key, OriginGUI)
	e.store.Save(e.doc)

	return nil
}

// applyMetadataEdit handles a rename or group move. Writes through to the
// document and the host bus; never touches MQTT.
func (e *Engine) applyMetadataEdit(ev event) error {
	dev := e.doc.Device(ev.instance)
	if dev == nil {
		return fmt.Errorf("%w: %d", ErrUnknownDevice, ev.instance)
	}

	switch ev.field {
	case registry.FieldName:
		dev.Name = ev.text
	case registry.FieldGroup:
		dev.Group = ev.text
	default:
		return fmt.Errorf("%w: %s", registry.ErrUnknownField, ev.field)
	}

	e.bus.SetMetadata(ev.instance, ev.field, ev.text)
	e.store.Save(e.doc)

	e.log.Debug("metadata updated",
		"instance", ev.instance,
		"field", ev.field,
		"value", ev.text,
	)
	return nil
}

// setValue records an applied change on the binding, the host bus, and the
// optional sinks.
func (e *Engine) setValue(dev *fleet.DeviceConfig, b *fleet.PropertyBinding, v float64, orig string) {
	val := v
	b.LastValue = &val
	b.LastUpdated = time.Now().UTC()

	e.bus.SetProperty(dev.Instance, b.Key, v)

	if e.history != nil {
		if err := e.history.Record(dev.Instance, b.Key, v, orig); err != nil {
			e.log.Warn("history record failed",
				"instance", dev.Instance,
				"property", b.Key,
				"error", err,
			)
		}
	}
	if e.sink != nil {
		e.sink.WritePropertyValue(dev.Instance, b.Key, orig, v)
	}
}

// applyDerived recomputes tank-sensor derived properties after a change to
// one of their inputs. raw_value feeds level through the calibration;
// level feeds remaining through the capacity. Derived properties only
// update when the operator configured a binding for them.
func (e *Engine) applyDerived(dev *fleet.DeviceConfig, key string, orig string) {
	if dev.Type != fleet.TypeTankSensor {
		return
	}

	if key == "raw_value" {
		raw := dev.Binding("raw_value")
		lb := dev.Binding("level")
		if raw == nil || raw.LastValue == nil || lb == nil {
			return
		}
		level, ok := device.TankLevelFromRaw(dev.Calibration, *raw.LastValue)
		if !ok {
			return
		}
		if lb.LastValue == nil || *lb.LastValue != level {
			e.setValue(dev, lb, level, orig)
			key = "level"
		} else {
			return
		}
	}

	if key == "level" {
		lb := dev.Binding("level")
		rb := dev.Binding("remaining")
		if lb == nil || lb.LastValue == nil || rb == nil || dev.Capacity <= 0 {
			return
		}
		remaining := device.TankRemaining(dev.Capacity, *lb.LastValue)
		if rb.LastValue == nil || *rb.LastValue != remaining {
			e.setValue(dev, rb, remaining, orig)
		}
	}
}
