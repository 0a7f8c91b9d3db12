package layout

import (
	"encoding/binary"
	"fmt"
)

const (
	// BucketCount is the fixed number of bucket slots in every table.
	BucketCount = 1_000_000
	// BucketSize is the width of one bucket slot in bytes.
	BucketSize = 8
	// BucketArraySize is the byte size of the whole bucket array.
	BucketArraySize = BucketCount * BucketSize

	// EmptySentinel marks an empty bucket or the end of a chain.
	EmptySentinel uint64 = 0
)

// Entry field offsets and the packed entry size.
const (
	KeyOffset    = 0
	NextOffset   = 4
	DataOffset   = 12
	LengthOffset = 20
	EntrySize    = 24
)

// Entry is one node of a bucket's collision chain.
type Entry struct {
	Key    uint32 // Logical key
	Next   uint64 // Address of the next entry, or EmptySentinel
	Data   uint64 // Address of the payload blob
	Length uint32 // Payload length in bytes
}

// EntryCodec handles serialization and deserialization of chain entries
type EntryCodec struct{}

// NewEntryCodec creates a new entry codec instance
func NewEntryCodec() *EntryCodec {
	return &EntryCodec{}
}

// Encode serializes an entry into its packed 24-byte form
// Format: [Key(4)][Next(8)][Data(8)][Length(4)]
func (c *EntryCodec) Encode(e Entry) []byte {
	buf := make([]byte, EntrySize)
	PutEntry(buf, e)
	return buf
}

// Decode deserializes a packed entry
func (c *EntryCodec) Decode(data []byte) (*Entry, error) {
	if len(data) < EntrySize {
		return nil, fmt.Errorf("data too short for entry: %d < %d", len(data), EntrySize)
	}

	return &Entry{
		Key:    binary.LittleEndian.Uint32(data[KeyOffset:]),
		Next:   binary.LittleEndian.Uint64(data[NextOffset:]),
		Data:   binary.LittleEndian.Uint64(data[DataOffset:]),
		Length: binary.LittleEndian.Uint32(data[LengthOffset:]),
	}, nil
}

// PutEntry writes e into buf[:EntrySize]. It panics if buf is too short.
func PutEntry(buf []byte, e Entry) {
	_ = buf[EntrySize-1]
	binary.LittleEndian.PutUint32(buf[KeyOffset:], e.Key)
	binary.LittleEndian.PutUint64(buf[NextOffset:], e.Next)
	binary.LittleEndian.PutUint64(buf[DataOffset:], e.Data)
	binary.LittleEndian.PutUint32(buf[LengthOffset:], e.Length)
}

// PutNext rewrites only the next pointer of the entry stored at buf.
func PutNext(buf []byte, next uint64) {
	binary.LittleEndian.PutUint64(buf[NextOffset:], next)
}

// BucketAddress returns the address of the slot for bucket, given the
// address of bucket 0.
func BucketAddress(base uint64, bucket uint32) uint64 {
	return base + uint64(bucket)*BucketSize
}
