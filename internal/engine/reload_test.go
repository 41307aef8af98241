package engine

import (
	"errors"
	"testing"

	"github.com/nerrad567/virtual-devices-core/internal/fleet"
	"github.com/nerrad567/virtual-devices-core/internal/registry"
)

func twoDeviceDocument() *fleet.Document {
	doc := relayDocument()
	doc.Devices = append(doc.Devices, fleet.DeviceConfig{
		Instance: 2,
		Type:     fleet.TypeBattery,
		Name:     "House Battery",
		Bindings: []fleet.PropertyBinding{
			{Key: "soc", StateTopic: "battery/soc", Payload: fleet.PayloadMapping{Scale: 1}},
		},
	})
	return doc
}

func TestReloadMetadataOnlyKeepsDevices(t *testing.T) {
	eng, bridge, bus, _ := newTestEngine(t, twoDeviceDocument())

	bridge.mu.Lock()
	subsBefore := len(bridge.subscribed)
	bridge.mu.Unlock()

	renamed := twoDeviceDocument()
	renamed.Devices[0].Name = "Pond Pump"
	renamed.Devices[1].Group = "Cellar"

	if err := eng.Reload(renamed); err != nil {
		t.Fatalf("Reload: %v", err)
	}

	// No device torn down or recreated.
	bus.mu.Lock()
	removed := len(bus.removed)
	bus.mu.Unlock()
	if removed != 0 {
		t.Errorf("%d devices removed on metadata-only reload, want 0", removed)
	}

	// No subscription churn: topics unchanged, so no new subscribes and
	// no unsubscribes.
	bridge.mu.Lock()
	subsAfter := len(bridge.subscribed)
	unsubs := len(bridge.unsubscribed)
	bridge.mu.Unlock()
	if subsAfter != subsBefore {
		t.Errorf("subscribe calls %d -> %d on metadata-only reload", subsBefore, subsAfter)
	}
	if unsubs != 0 {
		t.Errorf("%d unsubscribes on metadata-only reload, want 0", unsubs)
	}

	if eng.doc.Device(1).Name != "Pond Pump" {
		t.Error("rename not applied")
	}

	// Telemetry on a kept topic still flows after the reload.
	bridge.inject(t, "battery/soc", "87.5")
	barrier(t, eng, 2)
	if v, _ := bus.prop(2, "soc"); v != 87.5 {
		t.Errorf("soc after reload = %v, want 87.5", v)
	}
}

func TestReloadRemovesDevice(t *testing.T) {
	eng, bridge, bus, _ := newTestEngine(t, twoDeviceDocument())

	// Keep the handler from before the reload: it simulates a message
	// already in flight when the device is torn down.
	stale := bridge.handlerFor("battery/soc")
	if stale == nil {
		t.Fatal("no handler for battery/soc")
	}

	only := relayDocument()
	if err := eng.Reload(only); err != nil {
		t.Fatalf("Reload: %v", err)
	}

	bus.mu.Lock()
	removed := append([]int(nil), bus.removed...)
	bus.mu.Unlock()
	if len(removed) != 1 || removed[0] != 2 {
		t.Errorf("removed = %v, want [2]", removed)
	}

	bridge.mu.Lock()
	unsubs := append([]string(nil), bridge.unsubscribed...)
	bridge.mu.Unlock()
	if len(unsubs) != 1 || unsubs[0] != "battery/soc" {
		t.Errorf("unsubscribed = %v, want [battery/soc]", unsubs)
	}

	// The in-flight callback carries a stale generation and must be
	// dropped, not applied to a resurrected device.
	if err := stale("battery/soc", []byte("50")); err != nil {
		t.Fatalf("stale handler: %v", err)
	}
	barrier(t, eng, 1)
	if _, ok := bus.prop(2, "soc"); ok {
		t.Error("stale telemetry applied after device removal")
	}
}

func TestReloadAddsDevice(t *testing.T) {
	eng, bridge, bus, _ := newTestEngine(t, relayDocument())

	if err := eng.Reload(twoDeviceDocument()); err != nil {
		t.Fatalf("Reload: %v", err)
	}

	bus.mu.Lock()
	published := bus.published[2]
	bus.mu.Unlock()
	if published == 0 {
		t.Error("added device not published")
	}

	bridge.inject(t, "battery/soc", "42")
	barrier(t, eng, 2)
	if v, _ := bus.prop(2, "soc"); v != 42 {
		t.Errorf("soc = %v, want 42", v)
	}
}

func TestReloadRejectsInvalidDocumentKeepsPrevious(t *testing.T) {
	eng, bridge, bus, _ := newTestEngine(t, relayDocument())

	bad := relayDocument()
	bad.Devices[0].Instance = 0

	if err := eng.Reload(bad); !errors.Is(err, fleet.ErrInvalidDocument) {
		t.Fatalf("Reload error = %v, want ErrInvalidDocument", err)
	}

	// Previous fleet stays live and functional.
	if eng.doc.Device(1) == nil {
		t.Fatal("previous fleet discarded after rejected reload")
	}
	bridge.inject(t, "home/relay1/state", "ON")
	barrier(t, eng, 1)
	if v, _ := bus.prop(1, "switch_1"); v != 1 {
		t.Errorf("telemetry after rejected reload = %v, want 1", v)
	}
}

func TestReloadCarriesOverValuesAndSerials(t *testing.T) {
	eng, bridge, _, _ := newTestEngine(t, relayDocument())

	serial := eng.doc.Device(1).Serial
	if serial == "" {
		t.Fatal("Start did not assign a serial")
	}

	bridge.inject(t, "home/relay1/state", "ON")
	barrier(t, eng, 1)

	// The external tool rewrote the document without runtime state.
	fresh := relayDocument()
	if err := eng.Reload(fresh); err != nil {
		t.Fatalf("Reload: %v", err)
	}

	dev := eng.doc.Device(1)
	if dev.Serial != serial {
		t.Errorf("serial changed across reload: %q -> %q", serial, dev.Serial)
	}
	b := dev.Binding("switch_1")
	if b.LastValue == nil || *b.LastValue != 1 {
		t.Errorf("last value lost across reload: %v", b.LastValue)
	}
}

func TestReloadRetargetedBindingStartsFresh(t *testing.T) {
	eng, bridge, _, _ := newTestEngine(t, relayDocument())

	bridge.inject(t, "home/relay1/state", "ON")
	barrier(t, eng, 1)

	moved := relayDocument()
	moved.Devices[0].Bindings[0].StateTopic = "home/relay1/status"

	if err := eng.Reload(moved); err != nil {
		t.Fatalf("Reload: %v", err)
	}

	if b := eng.doc.Device(1).Binding("switch_1"); b.LastValue != nil {
		t.Errorf("retargeted binding inherited value %v", *b.LastValue)
	}
}

func TestWriteAfterClose(t *testing.T) {
	eng, _, _, _ := newTestEngine(t, relayDocument())

	if err := eng.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := eng.WriteProperty(1, "switch_1", 1); !errors.Is(err, ErrClosed) {
		t.Errorf("write after close error = %v, want ErrClosed", err)
	}
	if err := eng.EditMetadata(1, registry.FieldName, "x"); !errors.Is(err, ErrClosed) {
		t.Errorf("metadata after close error = %v, want ErrClosed", err)
	}
}

func TestStartTwice(t *testing.T) {
	eng, _, _, _ := newTestEngine(t, relayDocument())

	if err := eng.Start(relayDocument()); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("second Start error = %v, want ErrAlreadyStarted", err)
	}
}
