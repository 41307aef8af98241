package engine

import (
	"fmt"
	"sync"

	"github.com/nerrad567/virtual-devices-core/internal/device"
	"github.com/nerrad567/virtual-devices-core/internal/fleet"
	"github.com/nerrad567/virtual-devices-core/internal/infrastructure/mqtt"
)

// eventBuffer sizes the apply queue. Inbound telemetry is buffered here so
// a slow moment in the apply loop never stalls broker delivery.
const eventBuffer = 256

// Bridge is the MQTT surface the engine needs. Satisfied by *mqtt.Client.
type Bridge interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
	PublishCommand(topic string, payload []byte) error
}

// Bus is the host-bus surface the engine needs. Satisfied by
// *registry.Registry.
type Bus interface {
	Publish(cfg *fleet.DeviceConfig, specs []device.Spec)
	Remove(instance int)
	SetProperty(instance int, key string, value float64)
	SetMetadata(instance int, field, value string)
}

// Persister receives fleet snapshots for debounced persistence. Satisfied
// by *fleet.Store.
type Persister interface {
	Save(doc *fleet.Document)
}

// HistoryRecorder receives applied property changes for the optional
// history store.
type HistoryRecorder interface {
	Record(instance int, property string, value float64, origin string) error
}

// TelemetrySink receives applied property changes for the optional
// time-series export.
type TelemetrySink interface {
	WritePropertyValue(instance int, property string, origin string, value float64)
}

// Logger is the minimal logging interface the engine needs.
// Satisfied by logging.Logger; defaults to a no-op.
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

// bindingRef points at one property binding by instance id and key.
// The routing table fans a state-topic message out to every ref bound to
// that topic, which is how two devices legally share a topic.
type bindingRef struct {
	instance int
	key      string
}

// Engine is the synchronization core: the single authority reconciling
// telemetry, GUI writes, and the persisted fleet document.
//
// Every state transition funnels through one apply goroutine, so the
// echo-prevention and last-write-wins rules always evaluate against a
// consistent snapshot. The direction of a change is decided entirely by
// the origin of its event, never by value comparison: telemetry flows to
// the GUI and the document but never back out as a command; GUI writes
// flow to the command topic and are applied optimistically.
type Engine struct {
	bridge Bridge
	bus    Bus
	store  Persister
	log    Logger
	qos    byte

	history HistoryRecorder
	sink    TelemetrySink

	events chan event
	done   chan struct{}
	wg     sync.WaitGroup

	startOnce sync.Once
	closeOnce sync.Once

	// Owned exclusively by the apply goroutine (and by Start before the
	// goroutine exists). Never touched from I/O callbacks.
	doc        *fleet.Document
	routes     map[string][]bindingRef
	specs      map[int]map[string]device.Spec
	generation uint64
	topicGen   map[string]uint64
}

// New creates an engine wired to its collaborators.
//
// Parameters:
//   - bridge: MQTT bridge for subscriptions and command publishes
//   - bus: Host-bus registry the GUI sees
//   - store: Debounced fleet persister
//   - qos: QoS level for state-topic subscriptions
func New(bridge Bridge, bus Bus, store Persister, qos byte) *Engine {
	return &Engine{
		bridge:   bridge,
		bus:      bus,
		store:    store,
		log:      noopLogger{},
		qos:      qos,
		events:   make(chan event, eventBuffer),
		done:     make(chan struct{}),
		routes:   make(map[string][]bindingRef),
		specs:    make(map[int]map[string]device.Spec),
		topicGen: make(map[string]uint64),
	}
}

// SetLogger sets the logger used by the engine.
func (e *Engine) SetLogger(log Logger) {
	if log != nil {
		e.log = log
	}
}

// SetHistory wires the optional history recorder. Must be called before
// Start.
func (e *Engine) SetHistory(h HistoryRecorder) {
	e.history = h
}

// SetTelemetrySink wires the optional time-series exporter. Must be
// called before Start.
func (e *Engine) SetTelemetrySink(s TelemetrySink) {
	e.sink = s
}

// Start loads the initial fleet and begins processing events.
//
// The document must already be validated (fleet.Parse does this). Start
// publishes every device on the host bus, subscribes each unique state
// topic, and launches the apply goroutine. Missing serials are generated
// and the amended document scheduled for persistence.
//
// Parameters:
//   - doc: The validated fleet document
//
// Returns:
//   - error: If doc is nil or Start was already called
func (e *Engine) Start(doc *fleet.Document) error {
	if doc == nil {
		return fmt.Errorf("%w: nil document", fleet.ErrInvalidDocument)
	}

	started := false
	e.startOnce.Do(func() {
		started = true

		dirty := doc.EnsureSerials()
		e.doc = doc
		e.installFleet()

		if dirty {
			e.store.Save(e.doc)
		}

		e.wg.Add(1)
		go e.loop()
	})

	if !started {
		return ErrAlreadyStarted
	}

	e.log.Info("sync engine started", "devices", len(doc.Devices))
	return nil
}

// Close stops the apply goroutine. Pending queued events are discarded;
// the store owns flushing unsaved state on shutdown.
func (e *Engine) Close() error {
	e.closeOnce.Do(func() {
		close(e.done)
		e.wg.Wait()
	})
	return nil
}

// installFleet derives specs, publishes devices, and subscribes topics for
// the current document. Runs on the apply goroutine (or in Start before it
// exists).
func (e *Engine) installFleet() {
	e.specs = make(map[int]map[string]device.Spec, len(e.doc.Devices))
	for i := range e.doc.Devices {
		dev := &e.doc.Devices[i]
		specs := device.Specs(dev)

		byKey := make(map[string]device.Spec, len(specs))
		for _, s := range specs {
			byKey[s.Key] = s
		}
		e.specs[dev.Instance] = byKey

		e.bus.Publish(dev, specs)
	}

	e.rebuildRoutes()
}

// rebuildRoutes recomputes the topic routing table from the current
// document, subscribing topics that became bound and unsubscribing topics
// no binding references anymore.
func (e *Engine) rebuildRoutes() {
	desired := make(map[string][]bindingRef)
	for i := range e.doc.Devices {
		dev := &e.doc.Devices[i]
		for j := range dev.Bindings {
			b := &dev.Bindings[j]
			desired[b.StateTopic] = append(desired[b.StateTopic], bindingRef{
				instance: dev.Instance,
				key:      b.Key,
			})
		}
	}

	// Drop topics that lost their last binding. In-flight messages for
	// them are discarded by the generation check.
	for topic := range e.routes {
		if _, ok := desired[topic]; !ok {
			delete(e.topicGen, topic)
			if err := e.bridge.Unsubscribe(topic); err != nil {
				e.log.Warn("unsubscribe failed", "topic", topic, "error", err)
			}
		}
	}

	// Subscribe topics that are newly bound. Kept topics retain their
	// existing subscription and generation stamp.
	for topic := range desired {
		if _, ok := e.routes[topic]; !ok {
			e.subscribeTopic(topic)
		}
	}

	e.routes = desired
}

// subscribeTopic subscribes one state topic, stamping its handler with the
// current generation. Failures are logged, not fatal: the broker may be
// down, and the tracked subscription is restored on reconnect.
func (e *Engine) subscribeTopic(topic string) {
	gen := e.generation
	e.topicGen[topic] = gen

	handler := func(t string, payload []byte) error {
		// Paho may reuse the payload buffer after the handler returns.
		buf := make([]byte, len(payload))
		copy(buf, payload)

		select {
		case e.events <- event{
			origin:     originTelemetry,
			generation: gen,
			topic:      t,
			payload:    buf,
		}:
		case <-e.done:
		}
		return nil
	}

	if err := e.bridge.Subscribe(topic, e.qos, handler); err != nil {
		e.log.Warn("subscribe failed, telemetry unavailable until reconnect",
			"topic", topic,
			"error", err,
		)
	}
}
