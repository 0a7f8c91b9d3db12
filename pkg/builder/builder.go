// Package builder produces tables in the layout the lookup engine reads.
//
// Pairs are collected with Put and laid out in one pass: the bucket array
// first, then the packed entries, then the payloads. Chains keep insertion
// order, so the first pair put for a bucket becomes the chain head.
package builder

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/ssargent/shredder/pkg/layout"
	"github.com/ssargent/shredder/pkg/rawmem"
)

// Builder errors
var (
	ErrDuplicateKey   = errors.New("builder: duplicate key")
	ErrValueTooLarge  = errors.New("builder: value too large")
	ErrTableFull      = errors.New("builder: too many entries")
	ErrBufferTooSmall = errors.New("builder: buffer too small")
)

// Pair is one key and its payload.
type Pair struct {
	Key   uint32
	Value []byte
}

// Stats describes a laid out table
type Stats struct {
	Entries         int
	OccupiedBuckets int
	LongestChain    int
	PayloadBytes    uint64
	Size            int
}

// Option configures a Builder
type Option func(*Builder)

// AllowDuplicates lets Put accept a key twice. Only the first copy is
// reachable through lookups; this exists to build fixtures for that case.
func AllowDuplicates() Option {
	return func(b *Builder) {
		b.allowDuplicates = true
	}
}

// WithLogger sets the builder's logger
func WithLogger(logger *zap.Logger) Option {
	return func(b *Builder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// Builder accumulates pairs for a table
type Builder struct {
	pairs           []Pair
	keys            map[uint32]struct{}
	payloadBytes    uint64
	allowDuplicates bool
	logger          *zap.Logger
}

// New creates an empty builder
func New(opts ...Option) *Builder {
	b := &Builder{
		keys:   make(map[uint32]struct{}),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Put queues a pair. The value is referenced, not copied, until the table
// is laid out.
func (b *Builder) Put(key uint32, value []byte) error {
	if uint64(len(value)) > math.MaxUint32 {
		return fmt.Errorf("%w: %d bytes for key %d", ErrValueTooLarge, len(value), key)
	}
	if uint64(len(b.pairs)) == math.MaxUint32 {
		return ErrTableFull
	}
	if _, exists := b.keys[key]; exists && !b.allowDuplicates {
		return fmt.Errorf("%w: %d", ErrDuplicateKey, key)
	}

	b.keys[key] = struct{}{}
	b.pairs = append(b.pairs, Pair{Key: key, Value: value})
	b.payloadBytes += uint64(len(value))
	return nil
}

// PutAll queues every pair, stopping at the first error
func (b *Builder) PutAll(pairs []Pair) error {
	for _, p := range pairs {
		if err := b.Put(p.Key, p.Value); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of queued pairs
func (b *Builder) Len() int {
	return len(b.pairs)
}

// Size returns the number of bytes WriteTo needs
func (b *Builder) Size() int {
	return layout.HeaderSize + layout.BucketArraySize + len(b.pairs)*layout.EntrySize + int(b.payloadBytes)
}

// WriteTo lays the table out in buf, assuming buf[0] has address base. The
// bucket array starts at base+layout.HeaderSize; the header bytes are left
// zeroed for the caller.
func (b *Builder) WriteTo(buf []byte, base uint64) (Stats, error) {
	size := b.Size()
	if len(buf) < size {
		return Stats{}, fmt.Errorf("%w: have %d bytes, need %d", ErrBufferTooSmall, len(buf), size)
	}
	clear(buf[:size])

	entryOff := layout.HeaderSize + layout.BucketArraySize
	payloadOff := entryOff + len(b.pairs)*layout.EntrySize

	tails := make(map[uint32]int)
	chains := make(map[uint32]int)
	stats := Stats{Entries: len(b.pairs), PayloadBytes: b.payloadBytes, Size: size}

	for _, p := range b.pairs {
		bucket := layout.BucketIndex(p.Key)

		copy(buf[payloadOff:], p.Value)
		layout.PutEntry(buf[entryOff:], layout.Entry{
			Key:    p.Key,
			Next:   layout.EmptySentinel,
			Data:   base + uint64(payloadOff),
			Length: uint32(len(p.Value)),
		})

		addr := base + uint64(entryOff)
		if tail, ok := tails[bucket]; ok {
			layout.PutNext(buf[tail:], addr)
		} else {
			slot := layout.BucketAddress(layout.HeaderSize, bucket)
			binary.LittleEndian.PutUint64(buf[slot:], addr)
		}
		tails[bucket] = entryOff

		chains[bucket]++
		if chains[bucket] > stats.LongestChain {
			stats.LongestChain = chains[bucket]
		}

		entryOff += layout.EntrySize
		payloadOff += len(p.Value)
	}
	stats.OccupiedBuckets = len(chains)

	b.logger.Debug("table laid out",
		zap.Int("entries", stats.Entries),
		zap.Int("occupied_buckets", stats.OccupiedBuckets),
		zap.Int("longest_chain", stats.LongestChain),
		zap.Int("size", size),
		zap.Uint64("base", base))

	return stats, nil
}

// BuildImage lays the table out as a self-contained image whose addresses
// are offsets from the image start, with the header filled in.
func (b *Builder) BuildImage() ([]byte, *layout.Header, Stats, error) {
	image := make([]byte, b.Size())
	stats, err := b.WriteTo(image, 0)
	if err != nil {
		return nil, nil, stats, err
	}

	header := layout.NewHeader(uint32(len(b.pairs)), uint64(len(image)))
	header.Checksum = layout.Checksum(image[layout.HeaderSize:])
	layout.PutHeader(image, header)

	return image, &header, stats, nil
}

// NativeTable is a table laid out in an anonymous mapping with absolute
// process addresses, readable through rawmem.Native.
type NativeTable struct {
	mapping *rawmem.Mapping
	Stats   Stats
}

// BuildNative lays the table out in freshly mapped memory.
func (b *Builder) BuildNative() (*NativeTable, error) {
	m, err := rawmem.Map(b.Size())
	if err != nil {
		return nil, fmt.Errorf("failed to map table memory: %w", err)
	}

	stats, err := b.WriteTo(m.Data, m.Base())
	if err != nil {
		m.Close()
		return nil, err
	}
	return &NativeTable{mapping: m, Stats: stats}, nil
}

// Buckets returns the absolute address of bucket 0.
func (n *NativeTable) Buckets() uint64 {
	return n.mapping.Base() + layout.HeaderSize
}

// Bytes exposes the mapped memory.
func (n *NativeTable) Bytes() []byte {
	return n.mapping.Data
}

// Close unmaps the table. Payload slices obtained from it become invalid.
func (n *NativeTable) Close() error {
	return n.mapping.Close()
}
