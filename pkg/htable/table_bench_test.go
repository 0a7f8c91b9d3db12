package htable_test

import (
	"testing"

	"github.com/ssargent/shredder/pkg/builder"
	"github.com/ssargent/shredder/pkg/htable"
)

func benchmarkPairs(n int) []builder.Pair {
	pairs := make([]builder.Pair, n)
	for i := range pairs {
		pairs[i] = builder.Pair{Key: uint32(i) * 2654435761, Value: []byte("payload")}
	}
	return pairs
}

func BenchmarkTable_Lookup_Hit(b *testing.B) {
	pairs := benchmarkPairs(100_000)
	table, _ := buildTable(b, pairs)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := table.Lookup(pairs[i%len(pairs)].Key); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkTable_Lookup_Miss(b *testing.B) {
	table, _ := buildTable(b, benchmarkPairs(100_000))

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := table.Lookup(uint32(i)*2654435761 + 1); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkReadElement(b *testing.B) {
	buf := make([]byte, 4096)
	var acc uint32

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		acc ^= htable.ReadElement(buf, uint32(i&1023))
	}
	_ = acc
}
