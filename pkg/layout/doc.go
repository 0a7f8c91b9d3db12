// Package layout defines the binary layout shared by the shredder lookup
// engine and every tool that produces tables for it.
//
// A table is a flat region of 1,000,000 bucket slots. Each slot is an
// 8-byte little-endian address: zero marks an empty bucket, anything else
// points at the head entry of a singly-linked collision chain.
//
// # Entry Format
//
// Entries are packed 24-byte records with no padding:
//
//	[Key(4)][Next(8)][Data(8)][Length(4)]
//
// Fields:
//   - Key: 32-bit unsigned key (little-endian)
//   - Next: address of the next entry in the same bucket, or 0
//   - Data: address of the payload blob (never copied by the engine)
//   - Length: payload length in bytes
//
// # Bucket Selection
//
// The bucket for a key is Hash(key, HashSeed) % BucketCount. Hash is a
// 32-bit integer mixer whose result is masked to 30 bits. Producers and the
// engine must agree on the function, the seed and the modulus; HashVersion
// names the combination and is recorded in every persisted image header so
// a mismatch is caught at load time instead of surfacing as silent misses.
//
// # Image Format
//
// Persisted tables start with a 64-byte Header followed by the bucket array,
// the entries and the payloads. Addresses inside an image are byte offsets
// from the start of the image, so the empty sentinel (0) always lands inside
// the header and can never alias a real entry.
//
// # Usage
//
//	codec := layout.NewEntryCodec()
//	buf := codec.Encode(layout.Entry{Key: 42, Data: 4096, Length: 2})
//	entry, err := codec.Decode(buf)
//	if err != nil {
//	    return err
//	}
//	bucket := layout.BucketIndex(entry.Key)
//
// # Thread Safety
//
// Everything in this package is stateless and safe for concurrent use.
package layout
