package htable

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ssargent/shredder/pkg/layout"
	"github.com/ssargent/shredder/pkg/rawmem"
)

// Lookup errors
var (
	ErrNotFound     = errors.New("htable: key not found")
	ErrChainTooLong = errors.New("htable: chain exceeds maximum length")
)

// DefaultMaxChainLength bounds a single chain walk. A well-built table never
// comes close; hitting it means the chain is cyclic or corrupted.
const DefaultMaxChainLength = 1 << 20

// Option configures a Table
type Option func(*Table)

// WithMaxChainLength sets the chain walk cutoff. Zero disables it, which
// makes a cyclic chain loop forever.
func WithMaxChainLength(n int) Option {
	return func(t *Table) {
		t.maxChain = n
	}
}

// WithLogger sets the logger used to report malformed chains.
func WithLogger(logger *zap.Logger) Option {
	return func(t *Table) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// Table is a read-only view over a bucket array and its chains.
type Table struct {
	mem      rawmem.Memory
	buckets  uint64
	maxChain int
	logger   *zap.Logger
}

// New returns a table whose bucket 0 lives at address buckets in mem.
func New(mem rawmem.Memory, buckets uint64, opts ...Option) *Table {
	t := &Table{
		mem:      mem,
		buckets:  buckets,
		maxChain: DefaultMaxChainLength,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Result is the outcome of a lookup. When Found is false the key is absent
// and Data is nil.
type Result struct {
	Data   []byte // Payload, aliasing table memory
	Found  bool
	Bucket uint32 // Bucket the key hashed to
	Probes int    // Entries examined, including the match
	Entry  uint64 // Address of the matching entry
}

// Lookup finds the first entry for key in its bucket's chain.
func (t *Table) Lookup(key uint32) (Result, error) {
	res := Result{Bucket: layout.BucketIndex(key)}

	p, err := t.mem.Uint64(layout.BucketAddress(t.buckets, res.Bucket))
	if err != nil {
		return res, fmt.Errorf("read bucket %d: %w", res.Bucket, err)
	}

	for p != layout.EmptySentinel {
		if t.maxChain > 0 && res.Probes >= t.maxChain {
			t.logger.Warn("chain walk cut off",
				zap.Uint32("key", key),
				zap.Uint32("bucket", res.Bucket),
				zap.Int("limit", t.maxChain))
			return res, fmt.Errorf("%w: bucket %d after %d entries", ErrChainTooLong, res.Bucket, res.Probes)
		}
		res.Probes++

		k, err := t.mem.Uint32(p + layout.KeyOffset)
		if err != nil {
			return res, fmt.Errorf("read entry %#x: %w", p, err)
		}
		if k == key {
			return t.resolve(res, p)
		}

		next, err := t.mem.Uint64(p + layout.NextOffset)
		if err != nil {
			return res, fmt.Errorf("read entry %#x: %w", p, err)
		}
		p = next
	}

	return res, nil
}

func (t *Table) resolve(res Result, entry uint64) (Result, error) {
	data, err := t.mem.Uint64(entry + layout.DataOffset)
	if err != nil {
		return res, fmt.Errorf("read entry %#x: %w", entry, err)
	}
	length, err := t.mem.Uint32(entry + layout.LengthOffset)
	if err != nil {
		return res, fmt.Errorf("read entry %#x: %w", entry, err)
	}
	payload, err := t.mem.Slice(data, length)
	if err != nil {
		return res, fmt.Errorf("payload of entry %#x: %w", entry, err)
	}

	res.Data = payload
	res.Found = true
	res.Entry = entry
	return res, nil
}

// Get returns the payload for key, or ErrNotFound.
func (t *Table) Get(key uint32) ([]byte, error) {
	res, err := t.Lookup(key)
	if err != nil {
		return nil, err
	}
	if !res.Found {
		return nil, ErrNotFound
	}
	return res.Data, nil
}

// LookupInto points view at the payload for key and returns its length.
// On any error, including ErrNotFound, view is left as it was.
func (t *Table) LookupInto(key uint32, view *BufferView) (uint32, error) {
	data, err := t.Get(key)
	if err != nil {
		return 0, err
	}
	view.set(data)
	return uint32(len(data)), nil
}
