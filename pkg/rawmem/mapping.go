package rawmem

import "errors"

// Mapping is an anonymous, read-write memory mapping outside the Go heap.
// Its address never changes and the garbage collector never scans it, so it
// can hold raw pointers to itself.
type Mapping struct {
	Data []byte
}

// Base returns the process address of the first mapped byte.
func (m *Mapping) Base() uint64 {
	return AddressOf(m.Data)
}

// Close unmaps the memory. Any slice previously obtained from it becomes
// invalid.
func (m *Mapping) Close() error {
	if m == nil || m.Data == nil {
		return nil
	}
	err := unmap(m.Data)
	m.Data = nil
	return err
}

// Map allocates size bytes of zeroed anonymous memory.
func Map(size int) (*Mapping, error) {
	if size <= 0 {
		return nil, errors.New("rawmem: mapping size must be positive")
	}
	data, err := mapAnon(size)
	if err != nil {
		return nil, err
	}
	return &Mapping{Data: data}, nil
}
