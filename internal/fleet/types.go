package fleet

import "time"

// DeviceType identifies the variant of a virtual device.
type DeviceType string

// Supported device types.
const (
	TypeRelayModule  DeviceType = "relay-module"
	TypeTempSensor   DeviceType = "temp-sensor"
	TypeTankSensor   DeviceType = "tank-sensor"
	TypeBattery      DeviceType = "battery"
	TypeDigitalInput DeviceType = "digital-input"
)

// Valid reports whether t is a known device type.
func (t DeviceType) Valid() bool {
	switch t {
	case TypeRelayModule, TypeTempSensor, TypeTankSensor, TypeBattery, TypeDigitalInput:
		return true
	}
	return false
}

// Document is the persisted fleet definition: the complete set of configured
// virtual devices plus their last-known property values.
//
// The document is stored as hand-editable YAML. It is always written as a
// complete snapshot; a device entry is never persisted with partial bindings.
type Document struct {
	Devices []DeviceConfig `yaml:"devices"`
}

// DeviceConfig describes one configured virtual device.
type DeviceConfig struct {
	// Instance is the stable numeric id of the device. Assigned once by the
	// configuration tool and never reused for a different device.
	Instance int `yaml:"instance"`

	// Type selects the device variant.
	Type DeviceType `yaml:"type"`

	// Name is the user-editable display name shown in the GUI.
	Name string `yaml:"name"`

	// Group is the GUI pane the device appears in. Freely editable.
	Group string `yaml:"group,omitempty"`

	// Serial is a generated 16-digit identifier. Assigned on first load when
	// missing, then stable.
	Serial string `yaml:"serial,omitempty"`

	// TemperatureType labels a temp-sensor (room, fridge, freezer...).
	// Ignored for other types.
	TemperatureType string `yaml:"temperature_type,omitempty"`

	// Capacity is the tank volume in cubic metres for tank-sensors.
	// Ignored for other types.
	Capacity float64 `yaml:"capacity,omitempty"`

	// Calibration maps raw tank readings to a fill level. Optional.
	Calibration *TankCalibration `yaml:"calibration,omitempty"`

	// Bindings is the ordered list of property bindings for this device.
	Bindings []PropertyBinding `yaml:"bindings"`
}

// TankCalibration maps raw sensor readings onto a 0..100 fill level.
type TankCalibration struct {
	RawEmpty float64 `yaml:"raw_empty"`
	RawFull  float64 `yaml:"raw_full"`
}

// PropertyBinding maps one device property onto its MQTT topics and payload
// encoding, and carries the last value seen for that property.
type PropertyBinding struct {
	// Key is the property name, unique within the device (e.g. "switch_1",
	// "temperature", "soc").
	Key string `yaml:"key"`

	// StateTopic is the MQTT topic the device reports its state on.
	// Unique within one device; two different devices may share a topic.
	StateTopic string `yaml:"state_topic"`

	// CommandTopic is the MQTT topic commands are published to. Only set for
	// GUI-writable properties.
	CommandTopic string `yaml:"command_topic,omitempty"`

	// Payload defines how wire payloads translate to values and back.
	Payload PayloadMapping `yaml:"payload"`

	// LastValue is the last-known value of the property. Booleans are
	// stored as 0/1. Nil when no value has been seen yet.
	LastValue *float64 `yaml:"last_value,omitempty"`

	// LastUpdated is when LastValue was last set.
	LastUpdated time.Time `yaml:"last_updated,omitempty"`
}

// PayloadMapping is the wire translation for one binding.
//
// A mapping is boolean when on/off state strings are set, numeric otherwise.
// Numeric decode applies value*scale+offset; encode inverts it.
type PayloadMapping struct {
	OnState    string `yaml:"on_state,omitempty"`
	OffState   string `yaml:"off_state,omitempty"`
	OnCommand  string `yaml:"on_command,omitempty"`
	OffCommand string `yaml:"off_command,omitempty"`

	// Scale and Offset apply to numeric payloads. Scale defaults to 1.
	Scale  float64 `yaml:"scale,omitempty"`
	Offset float64 `yaml:"offset,omitempty"`

	// Invert flips boolean values after decode (open contact reads as
	// closed and vice versa). Used by digital inputs.
	Invert bool `yaml:"invert,omitempty"`
}

// IsBoolean reports whether the mapping translates boolean payloads.
func (m PayloadMapping) IsBoolean() bool {
	return m.OnState != "" || m.OffState != ""
}

// Clone returns a deep copy of the document. The store snapshots documents
// before handing them to the flusher so in-memory mutation never races a
// disk write.
func (d *Document) Clone() *Document {
	if d == nil {
		return nil
	}
	out := &Document{Devices: make([]DeviceConfig, len(d.Devices))}
	for i, dev := range d.Devices {
		out.Devices[i] = dev.Clone()
	}
	return out
}

// Clone returns a deep copy of the device config.
func (c DeviceConfig) Clone() DeviceConfig {
	out := c
	if c.Calibration != nil {
		cal := *c.Calibration
		out.Calibration = &cal
	}
	out.Bindings = make([]PropertyBinding, len(c.Bindings))
	for i, b := range c.Bindings {
		out.Bindings[i] = b
		if b.LastValue != nil {
			v := *b.LastValue
			out.Bindings[i].LastValue = &v
		}
	}
	return out
}

// Device returns the config for the given instance id, or nil.
func (d *Document) Device(instance int) *DeviceConfig {
	for i := range d.Devices {
		if d.Devices[i].Instance == instance {
			return &d.Devices[i]
		}
	}
	return nil
}

// Binding returns the binding with the given key on the device, or nil.
func (c *DeviceConfig) Binding(key string) *PropertyBinding {
	for i := range c.Bindings {
		if c.Bindings[i].Key == key {
			return &c.Bindings[i]
		}
	}
	return nil
}
