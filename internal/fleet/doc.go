// Package fleet owns the persisted device fleet definition.
//
// The fleet document is a hand-editable YAML file listing every configured
// virtual device: its stable instance id, type, display name, group, serial,
// and one property binding per controllable or observable property. Each
// binding carries the MQTT state/command topics, the payload mapping, and
// the last-known value.
//
// # Validation
//
// Parse rejects a malformed document wholesale: missing required fields,
// duplicate instance ids, an unknown device type, or two bindings of the
// same device sharing a state topic all fail the load. Two DIFFERENT
// devices sharing a state topic is legal; the sync engine fans such
// messages out to every bound property.
//
// # Persistence
//
// Store serializes all disk access. Saves are debounced: rapid successive
// edits within the configured window collapse into one write. Every write
// is write-then-rename, so the live file always holds a complete,
// self-consistent snapshot. A failed write keeps the in-memory document
// authoritative, surfaces a warning, and is retried on the next cycle.
//
// # Usage
//
//	store := fleet.NewStore(cfg.Fleet.Path, cfg.DebounceWindow())
//	defer store.Close()
//
//	doc, err := store.Load()
//	if err != nil {
//	    return err
//	}
//	if doc.EnsureSerials() {
//	    store.Save(doc)
//	}
package fleet
