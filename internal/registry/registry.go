package registry

import (
	"fmt"
	"sort"
	"sync"

	"github.com/nerrad567/virtual-devices-core/internal/device"
	"github.com/nerrad567/virtual-devices-core/internal/fleet"
)

// Metadata field names the host bus may write.
const (
	FieldName  = "name"
	FieldGroup = "group"
)

// Logger is the minimal logging interface the registry needs.
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

// WriteFunc handles a host-bus property write. Wired to the sync engine.
type WriteFunc func(instance int, key string, value float64) error

// MetadataFunc handles a host-bus metadata edit (name or group).
type MetadataFunc func(instance int, field, value string) error

// handle is one device as published on the host bus.
type handle struct {
	instance int
	devType  fleet.DeviceType
	name     string
	group    string
	serial   string

	specs  map[string]device.Spec
	values map[string]float64
}

// shapeEqual reports whether the handle exposes exactly the given
// property-key set.
func (h *handle) shapeEqual(specs []device.Spec) bool {
	if len(h.specs) != len(specs) {
		return false
	}
	for _, s := range specs {
		if _, ok := h.specs[s.Key]; !ok {
			return false
		}
	}
	return true
}

// Registry adapts the device fleet onto the host device bus.
//
// The engine publishes one handle per configured device; the GUI reads
// property values and metadata through the handle and issues writes, which
// the registry forwards to the engine's apply path. The registry itself is
// device-type-agnostic: it works off device.Spec and never interprets
// values.
//
// Thread Safety:
//   - All methods are safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	devices map[int]*handle
	writeFn WriteFunc
	metaFn  MetadataFunc
	log     Logger
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		devices: make(map[int]*handle),
		log:     noopLogger{},
	}
}

// SetLogger sets the logger used by the registry.
func (r *Registry) SetLogger(log Logger) {
	if log != nil {
		r.log = log
	}
}

// SetWriteFunc wires property writes from the host bus to the engine.
func (r *Registry) SetWriteFunc(fn WriteFunc) {
	r.mu.Lock()
	r.writeFn = fn
	r.mu.Unlock()
}

// SetMetadataFunc wires metadata edits from the host bus to the engine.
func (r *Registry) SetMetadataFunc(fn MetadataFunc) {
	r.mu.Lock()
	r.metaFn = fn
	r.mu.Unlock()
}

// Publish makes a device visible on the host bus.
//
// Publish is idempotent with respect to instance id: re-publishing an
// existing device with an unchanged property-key set updates metadata in
// place and keeps current values, so the GUI never sees the device
// flicker. A changed shape replaces the handle and resets values to the
// bindings' last-known ones.
//
// Parameters:
//   - cfg: The device's fleet configuration
//   - specs: Property specs from device.Specs(cfg)
func (r *Registry) Publish(cfg *fleet.DeviceConfig, specs []device.Spec) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.devices[cfg.Instance]; ok && existing.shapeEqual(specs) {
		existing.name = cfg.Name
		existing.group = cfg.Group
		existing.serial = cfg.Serial
		existing.devType = cfg.Type
		r.log.Debug("device updated in place", "instance", cfg.Instance, "name", cfg.Name)
		return
	}

	h := &handle{
		instance: cfg.Instance,
		devType:  cfg.Type,
		name:     cfg.Name,
		group:    cfg.Group,
		serial:   cfg.Serial,
		specs:    make(map[string]device.Spec, len(specs)),
		values:   make(map[string]float64, len(specs)),
	}
	for _, s := range specs {
		h.specs[s.Key] = s
	}
	for i := range cfg.Bindings {
		b := &cfg.Bindings[i]
		if b.LastValue != nil {
			h.values[b.Key] = *b.LastValue
		}
	}

	r.devices[cfg.Instance] = h
	r.log.Info("device published",
		"instance", cfg.Instance,
		"type", cfg.Type,
		"name", cfg.Name,
		"properties", len(specs),
	)
}

// Remove takes a device off the host bus. Removing an unknown instance is
// a no-op.
func (r *Registry) Remove(instance int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.devices[instance]; !ok {
		return
	}
	delete(r.devices, instance)
	r.log.Info("device removed", "instance", instance)
}

// SetProperty updates a property value as seen by the GUI. Called by the
// engine after it applies a change; never triggers the write path.
func (r *Registry) SetProperty(instance int, key string, value float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.devices[instance]
	if !ok {
		return
	}
	if _, ok := h.specs[key]; !ok {
		return
	}
	h.values[key] = value
}

// SetMetadata updates a device's name or group as seen by the GUI.
func (r *Registry) SetMetadata(instance int, field, value string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	h, ok := r.devices[instance]
	if !ok {
		return
	}
	switch field {
	case FieldName:
		h.name = value
	case FieldGroup:
		h.group = value
	}
}

// Read returns a property value for the host side.
//
// Returns:
//   - float64: Current value (booleans as 0/1)
//   - error: ErrUnknownDevice, ErrUnknownProperty, or ErrNoValue
func (r *Registry) Read(instance int, key string) (float64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.devices[instance]
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrUnknownDevice, instance)
	}
	if _, ok := h.specs[key]; !ok {
		return 0, fmt.Errorf("%w: %d/%s", ErrUnknownProperty, instance, key)
	}
	v, ok := h.values[key]
	if !ok {
		return 0, fmt.Errorf("%w: %d/%s", ErrNoValue, instance, key)
	}
	return v, nil
}

// Metadata returns a device's name, group, and serial.
//
// Returns:
//   - error: ErrUnknownDevice if the instance is not published
func (r *Registry) Metadata(instance int) (name, group, serial string, err error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.devices[instance]
	if !ok {
		return "", "", "", fmt.Errorf("%w: %d", ErrUnknownDevice, instance)
	}
	return h.name, h.group, h.serial, nil
}

// Write is the host-bus entry point for a GUI property write. It checks
// the target exists and is writable, then forwards to the engine.
//
// Returns:
//   - error: ErrUnknownDevice, ErrUnknownProperty, device.ErrNotWritable,
//     ErrNoWriter, or whatever the engine returns
func (r *Registry) Write(instance int, key string, value float64) error {
	r.mu.RLock()
	h, ok := r.devices[instance]
	var spec device.Spec
	specOK := false
	if ok {
		spec, specOK = h.specs[key]
	}
	fn := r.writeFn
	r.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownDevice, instance)
	}
	if !specOK {
		return fmt.Errorf("%w: %d/%s", ErrUnknownProperty, instance, key)
	}
	if !spec.Writable {
		return fmt.Errorf("%w: %d/%s", device.ErrNotWritable, instance, key)
	}
	if fn == nil {
		return ErrNoWriter
	}

	return fn(instance, key, value)
}

// WriteMetadata is the host-bus entry point for a GUI rename or group
// move. Only the name and group fields accept writes.
//
// Returns:
//   - error: ErrUnknownDevice, ErrUnknownField, ErrNoWriter, or whatever
//     the engine returns
func (r *Registry) WriteMetadata(instance int, field, value string) error {
	r.mu.RLock()
	_, ok := r.devices[instance]
	fn := r.metaFn
	r.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownDevice, instance)
	}
	if field != FieldName && field != FieldGroup {
		return fmt.Errorf("%w: %s", ErrUnknownField, field)
	}
	if fn == nil {
		return ErrNoWriter
	}

	return fn(instance, field, value)
}

// Instances returns the published instance ids in ascending order.
func (r *Registry) Instances() []int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]int, 0, len(r.devices))
	for id := range r.devices {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// Count returns the number of published devices.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.devices)
}
