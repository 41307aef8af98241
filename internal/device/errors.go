package device

import "errors"

// Sentinel errors for payload translation and write validation.
var (
	// ErrDecode indicates an MQTT payload could not be translated to a
	// property value. The update is dropped; the device keeps its prior
	// value.
	ErrDecode = errors.New("device: payload decode failed")

	// ErrEncode indicates a value could not be translated to a command
	// payload.
	ErrEncode = errors.New("device: payload encode failed")

	// ErrNotWritable indicates a write to a telemetry-only property.
	ErrNotWritable = errors.New("device: property not writable")

	// ErrOutOfRange indicates a written value outside the property's
	// valid range.
	ErrOutOfRange = errors.New("device: value out of range")
)
