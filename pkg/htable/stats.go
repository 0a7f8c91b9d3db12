package htable

import (
	"fmt"

	"github.com/RoaringBitmap/roaring/v2"

	"github.com/ssargent/shredder/pkg/layout"
)

// Stats summarises a table's shape.
type Stats struct {
	Buckets         int             `json:"buckets"`
	OccupiedBuckets uint64          `json:"occupied_buckets"`
	Entries         uint64          `json:"entries"`
	PayloadBytes    uint64          `json:"payload_bytes"`
	LongestChain    int             `json:"longest_chain"`
	ChainLengths    map[int]uint64  `json:"chain_lengths"` // chain length -> bucket count
	Occupancy       *roaring.Bitmap `json:"-"`
}

// LoadFactor returns entries per bucket.
func (s *Stats) LoadFactor() float64 {
	return float64(s.Entries) / float64(s.Buckets)
}

// WalkFunc is called for every entry in bucket order, head to tail.
type WalkFunc func(bucket uint32, addr uint64, e layout.Entry) error

// Walk visits every entry of every chain. It stops at the first error fn
// returns, and applies the same chain length cutoff as Lookup.
func (t *Table) Walk(fn WalkFunc) error {
	for bucket := uint32(0); bucket < layout.BucketCount; bucket++ {
		p, err := t.mem.Uint64(layout.BucketAddress(t.buckets, bucket))
		if err != nil {
			return fmt.Errorf("read bucket %d: %w", bucket, err)
		}

		for n := 0; p != layout.EmptySentinel; n++ {
			if t.maxChain > 0 && n >= t.maxChain {
				return fmt.Errorf("%w: bucket %d", ErrChainTooLong, bucket)
			}
			e, err := t.entry(p)
			if err != nil {
				return err
			}
			if err := fn(bucket, p, e); err != nil {
				return err
			}
			p = e.Next
		}
	}
	return nil
}

func (t *Table) entry(addr uint64) (layout.Entry, error) {
	var e layout.Entry
	var err error

	if e.Key, err = t.mem.Uint32(addr + layout.KeyOffset); err != nil {
		return e, fmt.Errorf("read entry %#x: %w", addr, err)
	}
	if e.Next, err = t.mem.Uint64(addr + layout.NextOffset); err != nil {
		return e, fmt.Errorf("read entry %#x: %w", addr, err)
	}
	if e.Data, err = t.mem.Uint64(addr + layout.DataOffset); err != nil {
		return e, fmt.Errorf("read entry %#x: %w", addr, err)
	}
	if e.Length, err = t.mem.Uint32(addr + layout.LengthOffset); err != nil {
		return e, fmt.Errorf("read entry %#x: %w", addr, err)
	}
	return e, nil
}

// Stats walks the whole table.
func (t *Table) Stats() (*Stats, error) {
	s := &Stats{
		Buckets:      layout.BucketCount,
		ChainLengths: make(map[int]uint64),
		Occupancy:    roaring.New(),
	}

	chain := 0
	last := uint32(0)
	flush := func() {
		if chain == 0 {
			return
		}
		s.ChainLengths[chain]++
		if chain > s.LongestChain {
			s.LongestChain = chain
		}
	}

	err := t.Walk(func(bucket uint32, _ uint64, e layout.Entry) error {
		if bucket != last || chain == 0 {
			flush()
			chain = 0
			last = bucket
		}
		chain++
		s.Occupancy.Add(bucket)
		s.Entries++
		s.PayloadBytes += uint64(e.Length)
		return nil
	})
	if err != nil {
		return nil, err
	}
	flush()

	s.OccupiedBuckets = s.Occupancy.GetCardinality()
	return s, nil
}
