package fleet

import (
	"encoding/binary"
	"fmt"

	"github.com/google/uuid"
)

// serialModulus bounds serials to 16 decimal digits.
const serialModulus = 10_000_000_000_000_000

// GenerateSerial returns a random 16-digit serial number.
//
// Serials only need to be unique-enough for a single installation's GUI;
// deriving them from a v4 UUID gives 53+ bits of randomness, far more than
// the handful of devices a fleet holds.
func GenerateSerial() string {
	u := uuid.New()
	n := binary.BigEndian.Uint64(u[:8]) % serialModulus
	return fmt.Sprintf("%016d", n)
}
