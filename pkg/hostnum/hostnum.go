// Package hostnum converts host numeric values into the plain uint32 keys
// and indices the lookup engine works with.
//
// The policy is modular truncation: floats are truncated toward zero, NaN
// and infinities become 0, and every value is reduced modulo 2^32. The same
// policy must be applied by whatever builds a table, since it decides which
// bucket a key hashes to.
package hostnum

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/exp/constraints"
)

// Number is any built-in integer or floating-point type.
type Number interface {
	constraints.Integer | constraints.Float
}

const twoTo32 = 1 << 32

// ToUint32 converts v with modular truncation.
func ToUint32[T Number](v T) uint32 {
	half := 0.5
	if T(half) != 0 {
		return FloatToUint32(float64(v))
	}
	return uint32(v)
}

// FloatToUint32 truncates f toward zero and wraps it into [0, 2^32).
func FloatToUint32(f float64) uint32 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	m := math.Mod(math.Trunc(f), twoTo32)
	if m < 0 {
		m += twoTo32
	}
	return uint32(m)
}

// ParseUint32 parses a decimal, hex (0x), octal (0o) or binary (0b) integer
// literal, or a decimal floating-point literal, and converts it with
// ToUint32. Integers outside the 64-bit range are read as float64 first,
// as a host number would be, so "1e400" becomes +Inf and then 0. Only
// syntax errors are rejected.
func ParseUint32(s string) (uint32, error) {
	s = strings.TrimSpace(s)
	if i, err := strconv.ParseInt(s, 0, 64); err == nil {
		return ToUint32(i), nil
	}
	if u, err := strconv.ParseUint(s, 0, 64); err == nil {
		return ToUint32(u), nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0, fmt.Errorf("invalid number %q", s)
	}
	return FloatToUint32(f), nil
}
