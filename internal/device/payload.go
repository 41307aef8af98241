package device

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/nerrad567/virtual-devices-core/internal/fleet"
)

// Decode translates a wire payload into a property value.
//
// Boolean mappings match the payload case-insensitively against the
// configured on/off state strings, then apply the invert option. Numeric
// mappings parse decimal text and apply value*scale+offset.
//
// Parameters:
//   - m: The binding's payload mapping
//   - raw: Payload bytes as received from the broker
//
// Returns:
//   - float64: Decoded value (booleans as 0/1)
//   - error: ErrDecode (wrapped) when the payload is unrecognized
func Decode(m fleet.PayloadMapping, raw []byte) (float64, error) {
	text := strings.TrimSpace(string(raw))

	if m.IsBoolean() {
		var on bool
		switch {
		case strings.EqualFold(text, m.OnState):
			on = true
		case strings.EqualFold(text, m.OffState):
			on = false
		default:
			return 0, fmt.Errorf("%w: %q not in {%q, %q}", ErrDecode, text, m.OnState, m.OffState)
		}
		if m.Invert {
			on = !on
		}
		if on {
			return 1, nil
		}
		return 0, nil
	}

	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not numeric", ErrDecode, text)
	}
	return v*m.Scale + m.Offset, nil
}

// Encode translates a property value into a command payload.
//
// Boolean mappings emit the configured on/off command strings. Numeric
// mappings invert the decode transform, (value-offset)/scale, and format
// as decimal text.
//
// Parameters:
//   - m: The binding's payload mapping
//   - value: The value to send (booleans as 0/1)
//
// Returns:
//   - string: Wire payload
//   - error: If a boolean mapping lacks command strings
func Encode(m fleet.PayloadMapping, value float64) (string, error) {
	if m.IsBoolean() {
		on := value != 0
		if m.Invert {
			on = !on
		}
		if on {
			if m.OnCommand == "" {
				return "", fmt.Errorf("%w: no on_command configured", ErrEncode)
			}
			return m.OnCommand, nil
		}
		if m.OffCommand == "" {
			return "", fmt.Errorf("%w: no off_command configured", ErrEncode)
		}
		return m.OffCommand, nil
	}

	if m.Scale == 0 {
		return "", fmt.Errorf("%w: zero scale", ErrEncode)
	}
	return strconv.FormatFloat((value-m.Offset)/m.Scale, 'f', -1, 64), nil
}
