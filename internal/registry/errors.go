package registry

import "errors"

// Sentinel errors for host-bus operations.
var (
	// ErrUnknownDevice indicates the instance id is not published.
	ErrUnknownDevice = errors.New("registry: unknown device")

	// ErrUnknownProperty indicates the device has no such property.
	ErrUnknownProperty = errors.New("registry: unknown property")

	// ErrUnknownField indicates a metadata write to a field other than
	// name or group.
	ErrUnknownField = errors.New("registry: unknown metadata field")

	// ErrNoValue indicates the property has no value yet.
	ErrNoValue = errors.New("registry: no value")

	// ErrNoWriter indicates no write handler has been wired.
	ErrNoWriter = errors.New("registry: no write handler")
)
