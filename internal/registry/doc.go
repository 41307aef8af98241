// Package registry adapts the virtual device fleet onto the host device
// bus.
//
// Each configured device gets one handle carrying its metadata (name,
// group, serial) and property values; the GUI discovers devices through
// these handles. Writes flow the other way: the registry validates that
// the target exists and is GUI-writable, then forwards the write to the
// sync engine, which owns all state transitions.
//
// Publish is idempotent by instance id. Re-publishing a device whose
// property-key set is unchanged updates it in place, so a reload that
// only renames devices never makes them disappear and reappear in the
// GUI.
package registry
