package device

import "github.com/nerrad567/virtual-devices-core/internal/fleet"

// TankLevelFromRaw converts a raw tank sensor reading to a 0..100 fill
// level using the device's calibration, clamped to the valid range.
//
// Returns:
//   - float64: Fill level percentage
//   - bool: false when no usable calibration is configured
func TankLevelFromRaw(cal *fleet.TankCalibration, raw float64) (float64, bool) {
	if cal == nil || cal.RawFull == cal.RawEmpty {
		return 0, false
	}

	level := (raw - cal.RawEmpty) / (cal.RawFull - cal.RawEmpty) * percentMax
	if level < percentMin {
		level = percentMin
	}
	if level > percentMax {
		level = percentMax
	}
	return level, true
}

// TankRemaining returns the remaining volume for a tank at the given fill
// level. Capacity and the result share the same unit (cubic metres in the
// fleet document).
func TankRemaining(capacity, level float64) float64 {
	return capacity * level / percentMax
}
