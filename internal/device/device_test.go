package device

import (
	"errors"
	"testing"

	"github.com/nerrad567/virtual-devices-core/internal/fleet"
)

func TestSpecsRelayModule(t *testing.T) {
	cfg := &fleet.DeviceConfig{
		Instance: 1,
		Type:     fleet.TypeRelayModule,
		Bindings: []fleet.PropertyBinding{
			{Key: "switch_1", StateTopic: "a/1/state", CommandTopic: "a/1/set"},
			{Key: "switch_2", StateTopic: "a/2/state", CommandTopic: "a/2/set"},
			{Key: "switch_3", StateTopic: "a/3/state"}, // read-only contact
		},
	}

	specs := Specs(cfg)
	if len(specs) != 3 {
		t.Fatalf("Specs returned %d specs, want 3", len(specs))
	}

	for i, s := range specs {
		if s.Kind != KindBool {
			t.Errorf("spec %d kind = %v, want KindBool", i, s.Kind)
		}
	}
	if !specs[0].Writable || !specs[1].Writable {
		t.Error("switches with command topics must be writable")
	}
	if specs[2].Writable {
		t.Error("switch without command topic must not be writable")
	}
}

func TestSpecsSensorsTelemetryOnly(t *testing.T) {
	tests := []struct {
		name string
		cfg  fleet.DeviceConfig
	}{
		{
			"temp sensor",
			fleet.DeviceConfig{
				Type: fleet.TypeTempSensor,
				Bindings: []fleet.PropertyBinding{
					{Key: "temperature", StateTopic: "t/temp", CommandTopic: "t/set"},
					{Key: "humidity", StateTopic: "t/hum"},
				},
			},
		},
		{
			"battery",
			fleet.DeviceConfig{
				Type: fleet.TypeBattery,
				Bindings: []fleet.PropertyBinding{
					{Key: "soc", StateTopic: "b/soc"},
					{Key: "voltage", StateTopic: "b/v"},
					{Key: "current", StateTopic: "b/i"},
				},
			},
		},
		{
			"tank sensor",
			fleet.DeviceConfig{
				Type: fleet.TypeTankSensor,
				Bindings: []fleet.PropertyBinding{
					{Key: "level", StateTopic: "tank/level"},
				},
			},
		},
		{
			"digital input",
			fleet.DeviceConfig{
				Type: fleet.TypeDigitalInput,
				Bindings: []fleet.PropertyBinding{
					{Key: "input", StateTopic: "d/in", Payload: fleet.PayloadMapping{OnState: "1", OffState: "0"}},
					{Key: "count", StateTopic: "d/count"},
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, s := range Specs(&tt.cfg) {
				if s.Writable {
					// Sensor readings are never GUI-writable, even when a
					// command topic is configured by mistake.
					t.Errorf("property %s is writable, sensors must be telemetry-only", s.Key)
				}
			}
		})
	}
}

func TestSpecsRanges(t *testing.T) {
	battery := &fleet.DeviceConfig{
		Type: fleet.TypeBattery,
		Bindings: []fleet.PropertyBinding{
			{Key: "soc", StateTopic: "b/soc"},
			{Key: "voltage", StateTopic: "b/v"},
		},
	}
	specs := Specs(battery)

	if !specs[0].HasRange || specs[0].Min != 0 || specs[0].Max != 100 {
		t.Errorf("soc range = %+v, want 0..100", specs[0])
	}
	if specs[1].HasRange {
		t.Error("voltage must be unbounded")
	}

	tank := &fleet.DeviceConfig{
		Type: fleet.TypeTankSensor,
		Bindings: []fleet.PropertyBinding{
			{Key: "level", StateTopic: "tank/level"},
			{Key: "raw_value", StateTopic: "tank/raw"},
		},
	}
	specs = Specs(tank)
	if !specs[0].HasRange || specs[0].Max != 100 {
		t.Errorf("level range = %+v, want 0..100", specs[0])
	}
	if specs[1].HasRange {
		t.Error("raw_value must be unbounded")
	}
}

func TestSpecsDigitalInputKinds(t *testing.T) {
	cfg := &fleet.DeviceConfig{
		Type: fleet.TypeDigitalInput,
		Bindings: []fleet.PropertyBinding{
			{Key: "input", StateTopic: "d/in", Payload: fleet.PayloadMapping{OnState: "1", OffState: "0"}},
			{Key: "count", StateTopic: "d/count", Payload: fleet.PayloadMapping{Scale: 1}},
		},
	}

	specs := Specs(cfg)
	if specs[0].Kind != KindBool {
		t.Errorf("input kind = %v, want KindBool", specs[0].Kind)
	}
	if specs[1].Kind != KindNumeric {
		t.Errorf("count kind = %v, want KindNumeric", specs[1].Kind)
	}
}

func TestValidateWrite(t *testing.T) {
	tests := []struct {
		name    string
		spec    Spec
		value   float64
		wantErr error
	}{
		{"writable bool on", Spec{Key: "s", Kind: KindBool, Writable: true}, 1, nil},
		{"writable bool off", Spec{Key: "s", Kind: KindBool, Writable: true}, 0, nil},
		{"bool fraction rejected", Spec{Key: "s", Kind: KindBool, Writable: true}, 0.5, ErrOutOfRange},
		{"not writable", Spec{Key: "soc", Kind: KindNumeric}, 50, ErrNotWritable},
		{
			"in range",
			Spec{Key: "n", Kind: KindNumeric, Writable: true, Min: 0, Max: 100, HasRange: true},
			100, nil,
		},
		{
			"above range",
			Spec{Key: "n", Kind: KindNumeric, Writable: true, Min: 0, Max: 100, HasRange: true},
			100.1, ErrOutOfRange,
		},
		{
			"below range",
			Spec{Key: "n", Kind: KindNumeric, Writable: true, Min: 0, Max: 100, HasRange: true},
			-1, ErrOutOfRange,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.spec.ValidateWrite(tt.value)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("ValidateWrite(%v) unexpected error: %v", tt.value, err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateWrite(%v) error = %v, want %v", tt.value, err, tt.wantErr)
			}
		})
	}
}

func TestTankLevelFromRaw(t *testing.T) {
	cal := &fleet.TankCalibration{RawEmpty: 200, RawFull: 1200}

	tests := []struct {
		name   string
		raw    float64
		want   float64
		wantOK bool
	}{
		{"empty", 200, 0, true},
		{"full", 1200, 100, true},
		{"half", 700, 50, true},
		{"below empty clamps", 100, 0, true},
		{"above full clamps", 1500, 100, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := TankLevelFromRaw(cal, tt.raw)
			if ok != tt.wantOK {
				t.Fatalf("TankLevelFromRaw(%v) ok = %v, want %v", tt.raw, ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("TankLevelFromRaw(%v) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}

	if _, ok := TankLevelFromRaw(nil, 700); ok {
		t.Error("nil calibration must report not ok")
	}
	if _, ok := TankLevelFromRaw(&fleet.TankCalibration{RawEmpty: 5, RawFull: 5}, 5); ok {
		t.Error("degenerate calibration must report not ok")
	}
}

func TestTankRemaining(t *testing.T) {
	if got := TankRemaining(0.2, 50); got != 0.1 {
		t.Errorf("TankRemaining(0.2, 50) = %v, want 0.1", got)
	}
	if got := TankRemaining(1.0, 0); got != 0 {
		t.Errorf("TankRemaining(1.0, 0) = %v, want 0", got)
	}
}
