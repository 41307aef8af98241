package engine

import "github.com/nerrad567/virtual-devices-core/internal/fleet"

// origin tags a state-change event with where it came from. Direction is
// decided by this tag, never by comparing values.
type origin int

const (
	originTelemetry origin = iota
	originGUI
	originMetadata
	originReload
)

// Origin labels recorded in history and telemetry sinks.
const (
	OriginTelemetry = "telemetry"
	OriginGUI       = "gui"
)

// event is one unit of work for the apply goroutine.
type event struct {
	origin origin

	// Telemetry fields.
	generation uint64
	topic      string
	payload    []byte

	// GUI write fields.
	instance int
	key      string
	value    float64

	// Metadata fields.
	field string
	text  string

	// Reload field.
	doc *fleet.Document

	// reply carries the outcome back to the caller for synchronous
	// operations. Nil for telemetry.
	reply chan error
}

// submit queues an event and waits for the apply goroutine's verdict.
func (e *Engine) submit(ev event) error {
	ev.reply = make(chan error, 1)

	select {
	case e.events <- ev:
	case <-e.done:
		return ErrClosed
	}

	select {
	case err := <-ev.reply:
		return err
	case <-e.done:
		return ErrClosed
	}
}

// WriteProperty applies a GUI-originated property write. Wired as the
// registry's write handler.
//
// The value is validated against the property spec, encoded, and published
// to the command topic exactly once. The cached value and the host bus are
// updated optimistically; reconciliation with the device happens when (and
// if) it echoes its new state on the state topic. There is no rollback on
// a missing echo.
//
// Returns:
//   - error: ErrUnknownDevice, ErrUnknownProperty, a device validation
//     error, or ErrClosed
func (e *Engine) WriteProperty(instance int, key string, value float64) error {
	return e.submit(event{
		origin:   originGUI,
		instance: instance,
		key:      key,
		value:    value,
	})
}

// EditMetadata applies a GUI-originated rename or group move. Wired as the
// registry's metadata handler. No MQTT interaction.
//
// Returns:
//   - error: ErrUnknownDevice, ErrUnknownField, or ErrClosed
func (e *Engine) EditMetadata(instance int, field, value string) error {
	return e.submit(event{
		origin:   originMetadata,
		instance: instance,
		field:    field,
		text:     value,
	})
}

// Reload replaces the fleet with a new document, diffing against the
// current set: removed devices are torn down, added ones instantiated,
// unchanged ones left alone. A document that fails validation is rejected
// and the previous fleet stays live.
//
// Returns:
//   - error: fleet.ErrInvalidDocument if the document is rejected, or
//     ErrClosed
func (e *Engine) Reload(doc *fleet.Document) error {
	if doc == nil {
		return fleet.ErrInvalidDocument
	}
	return e.submit(event{
		origin: originReload,
		doc:    doc,
	})
}
