package device

import (
	"fmt"

	"github.com/nerrad567/virtual-devices-core/internal/fleet"
)

// Kind is the value type of a property.
type Kind int

// Property value kinds. Boolean properties are represented as 0/1
// throughout so one numeric pipeline covers every variant.
const (
	KindBool Kind = iota
	KindNumeric
)

// Percentage bounds shared by battery soc and tank level.
const (
	percentMin = 0
	percentMax = 100
)

// Spec describes one property of a device variant: its value kind, whether
// the GUI may write it, and an optional valid range.
type Spec struct {
	Key      string
	Kind     Kind
	Writable bool

	// Min/Max bound the value when HasRange is set.
	Min      float64
	Max      float64
	HasRange bool
}

// Specs derives the property specs for a configured device from its type
// and bindings.
//
// The property set is defined entirely by configuration: a relay module
// with three bindings exposes three switches, a battery exposes whichever
// of its telemetry channels the operator bound.
func Specs(cfg *fleet.DeviceConfig) []Spec {
	specs := make([]Spec, 0, len(cfg.Bindings))
	for i := range cfg.Bindings {
		specs = append(specs, specFor(cfg.Type, &cfg.Bindings[i]))
	}
	return specs
}

// specFor returns the spec for one binding.
//
// Relay switches are the only GUI-writable properties; every sensor
// reading is telemetry-only regardless of what the binding configures.
func specFor(t fleet.DeviceType, b *fleet.PropertyBinding) Spec {
	s := Spec{Key: b.Key, Kind: KindNumeric}

	switch t {
	case fleet.TypeRelayModule:
		s.Kind = KindBool
		s.Writable = b.CommandTopic != ""

	case fleet.TypeDigitalInput:
		// Pulse counters stay numeric; the contact itself is boolean.
		if b.Payload.IsBoolean() {
			s.Kind = KindBool
		}

	case fleet.TypeTankSensor:
		if b.Key == "level" {
			s.Min, s.Max, s.HasRange = percentMin, percentMax, true
		}

	case fleet.TypeBattery:
		if b.Key == "soc" {
			s.Min, s.Max, s.HasRange = percentMin, percentMax, true
		}

	case fleet.TypeTempSensor:
		// Plain numeric telemetry, no bounds.
	}

	return s
}

// ValidateWrite checks a GUI-originated value against the property spec.
//
// Returns:
//   - error: ErrNotWritable, or ErrOutOfRange (wrapped with detail), or nil
func (s Spec) ValidateWrite(value float64) error {
	if !s.Writable {
		return fmt.Errorf("%w: %s", ErrNotWritable, s.Key)
	}
	if s.Kind == KindBool && value != 0 && value != 1 {
		return fmt.Errorf("%w: %s wants 0 or 1, got %g", ErrOutOfRange, s.Key, value)
	}
	if s.HasRange && (value < s.Min || value > s.Max) {
		return fmt.Errorf("%w: %s wants %g..%g, got %g", ErrOutOfRange, s.Key, s.Min, s.Max, value)
	}
	return nil
}
