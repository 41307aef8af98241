// Package device defines the virtual device variants and the payload codec.
//
// A variant (relay-module, temp-sensor, tank-sensor, battery,
// digital-input) is not a type hierarchy: the property set comes from the
// fleet document's bindings, and Specs tags each property with its value
// kind, writability, and range. Relay switches are the only GUI-writable
// properties; everything else is telemetry-only.
//
// Values are float64 everywhere, with booleans as 0/1, so the sync engine
// runs one pipeline for every variant.
//
// Decode and Encode are pure functions over a binding's payload mapping:
// configured on/off strings for boolean properties, decimal text with
// linear scale/offset for numeric ones. An unrecognized payload returns
// ErrDecode and the caller drops the update.
package device
