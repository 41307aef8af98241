// Package engine implements the virtual device synchronization core.
//
// Device state arrives from three independent sources: MQTT telemetry on
// state topics, GUI writes and edits from the host bus, and the persisted
// fleet document at startup and reload. The engine serializes all of them
// through one apply goroutine so every rule evaluates against a consistent
// in-memory snapshot.
//
// # Echo prevention
//
// Every event carries an origin tag, and the tag alone decides direction:
//
//   - telemetry flows to the host bus and the document, never back out as
//     a command
//   - GUI writes flow to the command topic and are applied optimistically,
//     converging later through the device's own telemetry echo
//
// Values are never compared to infer direction. Two conflicting updates
// arriving from both directions are both applied in arrival order and the
// last one wins.
//
// # Routing
//
// State topics route through a table built at load and reload. One MQTT
// subscription exists per unique topic regardless of how many bindings
// share it; messages fan out to every bound property. Reload advances a
// generation counter, and telemetry stamped with a stale generation is
// dropped, so a torn-down device never resurfaces through an in-flight
// callback.
//
// # Persistence
//
// The engine hands document snapshots to a Persister after every applied
// change; debouncing and atomic writes are the store's concern. Disk
// failure never stalls the apply loop.
package engine
