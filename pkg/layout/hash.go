package layout

// HashVersion identifies the (Hash, HashSeed, BucketCount) combination.
// Bump it whenever any of the three changes; images built under another
// version are refused at load time.
const HashVersion uint16 = 1

// HashSeed is the seed every table is built and queried with.
const HashSeed uint32 = 0

const hashMask = 0x3fffffff

// Hash mixes a 32-bit key with seed. The result fits in 30 bits, so the
// bucket modulus never sees a negative value on hosts that treat it as a
// signed int32.
func Hash(key, seed uint32) uint32 {
	h := key ^ seed
	h = ^h + (h << 15)
	h ^= h >> 12
	h += h << 2
	h ^= h >> 4
	h *= 2057
	h ^= h >> 16
	return h & hashMask
}

// BucketIndex returns the bucket a key lives in.
func BucketIndex(key uint32) uint32 {
	return Hash(key, HashSeed) % BucketCount
}
