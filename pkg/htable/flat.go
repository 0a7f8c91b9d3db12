package htable

import (
	"fmt"

	"github.com/ssargent/shredder/pkg/rawmem"
)

// ReadElement returns the uint32 at element index of buf. The index is not
// checked against len(buf); an index past the end reads whatever memory
// follows buf.
func ReadElement(buf []byte, index uint32) uint32 {
	return rawmem.LoadUint32(buf, uintptr(index)*4)
}

// ReadElementChecked is ReadElement with a bounds check.
func ReadElementChecked(buf []byte, index uint32) (uint32, error) {
	if uint64(index)*4+4 > uint64(len(buf)) {
		return 0, fmt.Errorf("%w: element %d of a %d byte buffer", rawmem.ErrOutOfBounds, index, len(buf))
	}
	return ReadElement(buf, index), nil
}

// ElementCount returns how many whole uint32 elements fit in buf.
func ElementCount(buf []byte) int {
	return len(buf) / 4
}
