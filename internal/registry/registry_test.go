package registry

import (
	"errors"
	"testing"

	"github.com/nerrad567/virtual-devices-core/internal/device"
	"github.com/nerrad567/virtual-devices-core/internal/fleet"
)

func relayConfig() *fleet.DeviceConfig {
	return &fleet.DeviceConfig{
		Instance: 1,
		Type:     fleet.TypeRelayModule,
		Name:     "Pump",
		Group:    "Garden",
		Serial:   "0000000000000001",
		Bindings: []fleet.PropertyBinding{
			{
				Key:          "switch_1",
				StateTopic:   "home/relay1/state",
				CommandTopic: "home/relay1/set",
				Payload: fleet.PayloadMapping{
					OnState: "ON", OffState: "OFF",
					OnCommand: "ON", OffCommand: "OFF",
				},
			},
		},
	}
}

func publish(r *Registry, cfg *fleet.DeviceConfig) {
	r.Publish(cfg, device.Specs(cfg))
}

func TestPublishAndRead(t *testing.T) {
	r := New()
	cfg := relayConfig()
	v := 1.0
	cfg.Bindings[0].LastValue = &v

	publish(r, cfg)

	if r.Count() != 1 {
		t.Fatalf("Count = %d, want 1", r.Count())
	}

	got, err := r.Read(1, "switch_1")
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got != 1 {
		t.Errorf("Read = %v, want 1", got)
	}

	name, group, serial, err := r.Metadata(1)
	if err != nil {
		t.Fatalf("Metadata: %v", err)
	}
	if name != "Pump" || group != "Garden" || serial != "0000000000000001" {
		t.Errorf("Metadata = %q/%q/%q", name, group, serial)
	}
}

func TestReadErrors(t *testing.T) {
	r := New()
	publish(r, relayConfig())

	if _, err := r.Read(99, "switch_1"); !errors.Is(err, ErrUnknownDevice) {
		t.Errorf("unknown device error = %v", err)
	}
	if _, err := r.Read(1, "nope"); !errors.Is(err, ErrUnknownProperty) {
		t.Errorf("unknown property error = %v", err)
	}
	if _, err := r.Read(1, "switch_1"); !errors.Is(err, ErrNoValue) {
		t.Errorf("no value error = %v", err)
	}
}

func TestRepublishSameShapeKeepsValues(t *testing.T) {
	r := New()
	cfg := relayConfig()
	publish(r, cfg)
	r.SetProperty(1, "switch_1", 1)

	// Rename and re-publish: same shape, so the value must survive and
	// the metadata must update in place.
	renamed := relayConfig()
	renamed.Name = "Pond Pump"
	publish(r, renamed)

	got, err := r.Read(1, "switch_1")
	if err != nil {
		t.Fatalf("Read after republish: %v", err)
	}
	if got != 1 {
		t.Errorf("value lost on same-shape republish: %v", got)
	}

	name, _, _, _ := r.Metadata(1) //nolint:dogsled // Only name matters here
	if name != "Pond Pump" {
		t.Errorf("name = %q, want Pond Pump", name)
	}
}

func TestRepublishChangedShapeReplaces(t *testing.T) {
	r := New()
	publish(r, relayConfig())
	r.SetProperty(1, "switch_1", 1)

	wider := relayConfig()
	wider.Bindings = append(wider.Bindings, fleet.PropertyBinding{
		Key:          "switch_2",
		StateTopic:   "home/relay2/state",
		CommandTopic: "home/relay2/set",
		Payload: fleet.PayloadMapping{
			OnState: "ON", OffState: "OFF",
			OnCommand: "ON", OffCommand: "OFF",
		},
	})
	publish(r, wider)

	if _, err := r.Read(1, "switch_2"); !errors.Is(err, ErrNoValue) {
		t.Errorf("new property after reshape: %v", err)
	}
	// Old runtime value does not survive a reshape; the handle was
	// rebuilt from the bindings' last-known values.
	if _, err := r.Read(1, "switch_1"); !errors.Is(err, ErrNoValue) {
		t.Errorf("reshaped handle kept stale value: %v", err)
	}
}

func TestWriteForwardsToEngine(t *testing.T) {
	r := New()
	publish(r, relayConfig())

	var gotInstance int
	var gotKey string
	var gotValue float64
	r.SetWriteFunc(func(instance int, key string, value float64) error {
		gotInstance, gotKey, gotValue = instance, key, value
		return nil
	})

	if err := r.Write(1, "switch_1", 1); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if gotInstance != 1 || gotKey != "switch_1" || gotValue != 1 {
		t.Errorf("forwarded %d/%s=%v", gotInstance, gotKey, gotValue)
	}
}

func TestWriteRejections(t *testing.T) {
	r := New()

	sensor := &fleet.DeviceConfig{
		Instance: 2,
		Type:     fleet.TypeTempSensor,
		Name:     "Fridge",
		Bindings: []fleet.PropertyBinding{
			{Key: "temperature", StateTopic: "fridge/temp", Payload: fleet.PayloadMapping{Scale: 1}},
		},
	}
	publish(r, sensor)
	publish(r, relayConfig())

	forwarded := false
	r.SetWriteFunc(func(int, string, float64) error {
		forwarded = true
		return nil
	})

	if err := r.Write(99, "x", 1); !errors.Is(err, ErrUnknownDevice) {
		t.Errorf("unknown device error = %v", err)
	}
	if err := r.Write(1, "nope", 1); !errors.Is(err, ErrUnknownProperty) {
		t.Errorf("unknown property error = %v", err)
	}
	if err := r.Write(2, "temperature", 5); !errors.Is(err, device.ErrNotWritable) {
		t.Errorf("telemetry-only write error = %v", err)
	}
	if forwarded {
		t.Error("rejected writes must not reach the engine")
	}
}

func TestWriteWithoutHandler(t *testing.T) {
	r := New()
	publish(r, relayConfig())

	if err := r.Write(1, "switch_1", 1); !errors.Is(err, ErrNoWriter) {
		t.Errorf("error = %v, want ErrNoWriter", err)
	}
}

func TestWriteMetadata(t *testing.T) {
	r := New()
	publish(r, relayConfig())

	var gotField, gotValue string
	r.SetMetadataFunc(func(instance int, field, value string) error {
		gotField, gotValue = field, value
		return nil
	})

	if err := r.WriteMetadata(1, FieldName, "Renamed"); err != nil {
		t.Fatalf("WriteMetadata: %v", err)
	}
	if gotField != FieldName || gotValue != "Renamed" {
		t.Errorf("forwarded %s=%q", gotField, gotValue)
	}

	if err := r.WriteMetadata(1, "serial", "123"); !errors.Is(err, ErrUnknownField) {
		t.Errorf("serial write error = %v, want ErrUnknownField", err)
	}
	if err := r.WriteMetadata(99, FieldName, "x"); !errors.Is(err, ErrUnknownDevice) {
		t.Errorf("unknown device error = %v", err)
	}
}

func TestRemove(t *testing.T) {
	r := New()
	publish(r, relayConfig())

	r.Remove(1)
	if r.Count() != 0 {
		t.Errorf("Count after Remove = %d, want 0", r.Count())
	}
	r.Remove(1) // idempotent

	if _, err := r.Read(1, "switch_1"); !errors.Is(err, ErrUnknownDevice) {
		t.Errorf("Read after Remove error = %v", err)
	}
}

func TestInstances(t *testing.T) {
	r := New()
	for _, id := range []int{5, 1, 3} {
		cfg := relayConfig()
		cfg.Instance = id
		publish(r, cfg)
	}

	got := r.Instances()
	want := []int{1, 3, 5}
	if len(got) != len(want) {
		t.Fatalf("Instances = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Instances = %v, want %v", got, want)
		}
	}
}
