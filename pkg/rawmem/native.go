package rawmem

import (
	"encoding/binary"
	"unsafe"
)

// Native resolves addresses as absolute process pointers. Nothing is
// checked: a bad address faults or returns garbage. Only use it over memory
// the Go garbage collector does not manage, such as a Mapping.
type Native struct{}

func at(addr uint64, n int) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(uintptr(addr))), n)
}

// Uint32 reads the 4 bytes at addr.
func (Native) Uint32(addr uint64) (uint32, error) {
	return binary.LittleEndian.Uint32(at(addr, 4)), nil
}

// Uint64 reads the 8 bytes at addr.
func (Native) Uint64(addr uint64) (uint64, error) {
	return binary.LittleEndian.Uint64(at(addr, 8)), nil
}

// Slice aliases n bytes at addr.
func (Native) Slice(addr uint64, n uint32) ([]byte, error) {
	if n == 0 {
		return []byte{}, nil
	}
	return at(addr, int(n)), nil
}

// LoadUint32 reads the little-endian uint32 at byte offset off of buf
// without a bounds check. Reading past the end of buf is undefined.
func LoadUint32(buf []byte, off uintptr) uint32 {
	p := unsafe.Add(unsafe.Pointer(unsafe.SliceData(buf)), off)
	return binary.LittleEndian.Uint32(unsafe.Slice((*byte)(p), 4))
}

// AddressOf returns the process address of buf[0], or 0 for an empty slice.
func AddressOf(buf []byte) uint64 {
	if len(buf) == 0 {
		return 0
	}
	return uint64(uintptr(unsafe.Pointer(unsafe.SliceData(buf))))
}
