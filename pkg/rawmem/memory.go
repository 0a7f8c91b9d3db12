// Package rawmem is the only place shredder touches memory through
// addresses instead of Go values.
//
// Table memory is reached through the Memory interface. Arena resolves
// addresses against a byte slice and checks every access; Native treats
// addresses as real process pointers and checks nothing. Code outside this
// package never imports unsafe.
package rawmem

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrOutOfBounds is returned when an address does not resolve inside an
// Arena.
var ErrOutOfBounds = errors.New("rawmem: address out of bounds")

// Memory resolves table addresses. All multi-byte values are little-endian.
type Memory interface {
	Uint32(addr uint64) (uint32, error)
	Uint64(addr uint64) (uint64, error)
	// Slice returns n bytes starting at addr without copying.
	Slice(addr uint64, n uint32) ([]byte, error)
}

// Arena is a byte slice whose first byte lives at address Base.
type Arena struct {
	buf  []byte
	base uint64
}

// NewArena wraps buf so that buf[0] has address base.
func NewArena(buf []byte, base uint64) *Arena {
	return &Arena{buf: buf, base: base}
}

// Base returns the address of the first byte.
func (a *Arena) Base() uint64 {
	return a.base
}

// Len returns the arena size in bytes.
func (a *Arena) Len() int {
	return len(a.buf)
}

// Bytes returns the backing slice.
func (a *Arena) Bytes() []byte {
	return a.buf
}

func (a *Arena) offset(addr, n uint64) (uint64, error) {
	size := uint64(len(a.buf))
	if addr < a.base || addr-a.base > size || n > size-(addr-a.base) {
		return 0, fmt.Errorf("%w: [%#x, %#x) not in arena [%#x, %#x)",
			ErrOutOfBounds, addr, addr+n, a.base, a.base+size)
	}
	return addr - a.base, nil
}

// Uint32 reads the 4 bytes at addr.
func (a *Arena) Uint32(addr uint64) (uint32, error) {
	off, err := a.offset(addr, 4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(a.buf[off:]), nil
}

// Uint64 reads the 8 bytes at addr.
func (a *Arena) Uint64(addr uint64) (uint64, error) {
	off, err := a.offset(addr, 8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(a.buf[off:]), nil
}

// Slice returns a capacity-capped view so appends by the caller reallocate
// instead of overwriting neighbouring table memory.
func (a *Arena) Slice(addr uint64, n uint32) ([]byte, error) {
	if n == 0 {
		return []byte{}, nil
	}
	off, err := a.offset(addr, uint64(n))
	if err != nil {
		return nil, err
	}
	end := off + uint64(n)
	return a.buf[off:end:end], nil
}
