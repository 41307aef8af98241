package engine

import (
	"github.com/nerrad567/virtual-devices-core/internal/fleet"
)

// applyReload swaps in a new fleet document.
//
// The diff is keyed on instance id: devices present only in the old set
// are unpublished, devices present only in the new set are published, and
// devices in both are re-published through the registry's idempotent path
// so an unchanged shape causes no host-bus churn. The generation counter
// advances so telemetry still in flight for torn-down topics is dropped.
func (e *Engine) applyReload(doc *fleet.Document) error {
	// Revalidate: Reload accepts documents from outside the load path, and
	// a rejected document must leave the previous fleet untouched.
	if err := doc.Validate(); err != nil {
		e.log.Error("reload rejected, keeping previous fleet", "error", err)
		return err
	}

	// Carry over runtime state first so EnsureSerials only generates for
	// genuinely new devices.
	e.carryOver(doc)
	doc.EnsureSerials()

	// Tear down removed devices.
	removed := 0
	for i := range e.doc.Devices {
		old := &e.doc.Devices[i]
		if doc.Device(old.Instance) == nil {
			e.bus.Remove(old.Instance)
			delete(e.specs, old.Instance)
			removed++
		}
	}

	e.generation++
	e.doc = doc
	e.installFleet()
	e.store.Save(e.doc)

	e.log.Info("fleet reloaded",
		"devices", len(doc.Devices),
		"removed", removed,
		"generation", e.generation,
	)
	return nil
}

// carryOver copies runtime state from the live fleet into the incoming
// document where the document does not carry it itself: last-known values
// for bindings the edit left untouched, and serials for devices the
// configuration tool re-wrote without one.
//
// A binding only inherits a value when its key AND state topic match the
// old binding; a retargeted binding starts fresh.
func (e *Engine) carryOver(doc *fleet.Document) {
	for i := range doc.Devices {
		next := &doc.Devices[i]
		prev := e.doc.Device(next.Instance)
		if prev == nil {
			continue
		}

		if next.Serial == "" {
			next.Serial = prev.Serial
		}

		for j := range next.Bindings {
			nb := &next.Bindings[j]
			if nb.LastValue != nil {
				continue
			}
			pb := prev.Binding(nb.Key)
			if pb == nil || pb.LastValue == nil || pb.StateTopic != nb.StateTopic {
				continue
			}
			v := *pb.LastValue
			nb.LastValue = &v
			nb.LastUpdated = pb.LastUpdated
		}
	}
}
