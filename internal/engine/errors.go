package engine

import "errors"

// Sentinel errors for engine operations.
var (
	// ErrUnknownDevice indicates the instance id is not in the fleet.
	ErrUnknownDevice = errors.New("engine: unknown device")

	// ErrUnknownProperty indicates the device has no binding for the key.
	ErrUnknownProperty = errors.New("engine: unknown property")

	// ErrAlreadyStarted indicates Start was called twice.
	ErrAlreadyStarted = errors.New("engine: already started")

	// ErrClosed indicates an operation on a closed engine.
	ErrClosed = errors.New("engine: closed")
)
