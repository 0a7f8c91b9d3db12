package htable

// BufferView is a caller-owned output slot that LookupInto points at a
// payload. It is not safe for concurrent use: the data and length change
// together only from the point of view of the goroutine calling LookupInto.
type BufferView struct {
	data []byte
}

// NewBufferView returns a view initially aliasing buf.
func NewBufferView(buf []byte) *BufferView {
	return &BufferView{data: buf}
}

// Bytes returns the aliased memory.
func (v *BufferView) Bytes() []byte {
	return v.data
}

// Len returns the aliased length in bytes.
func (v *BufferView) Len() int {
	return len(v.data)
}

// Element reads the aliased memory as a uint32 array.
func (v *BufferView) Element(i uint32) (uint32, error) {
	return ReadElementChecked(v.data, i)
}

func (v *BufferView) set(data []byte) {
	v.data = data
}
