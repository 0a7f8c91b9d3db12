// Package htable implements read-only lookups over prebuilt, chained hash
// tables that live in raw memory.
//
// A Table is a view over 1,000,000 bucket slots (see package layout). A
// lookup hashes the key to a bucket, walks that bucket's chain head to tail
// and returns the payload of the first entry whose key matches. Payloads are
// returned as sub-slices of table memory: nothing is copied, and the slice
// is only valid for as long as the memory behind the table is.
//
// Tables never mutate the memory they read and hold no locks. Any number of
// goroutines may look up concurrently as long as nobody writes to the
// underlying memory at the same time.
//
// ReadElement is the companion flat reader: an unchecked uint32 array read
// over a raw buffer.
package htable
