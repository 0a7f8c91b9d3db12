package htable_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ssargent/shredder/pkg/builder"
	"github.com/ssargent/shredder/pkg/htable"
	"github.com/ssargent/shredder/pkg/layout"
	"github.com/ssargent/shredder/pkg/rawmem"
)

// collidesWith42 shares a bucket with key 42.
const collidesWith42 = 1586999

// buildTable lays pairs out as an arena image and returns a table over it.
func buildTable(t testing.TB, pairs []builder.Pair, opts ...builder.Option) (*htable.Table, []byte) {
	t.Helper()

	b := builder.New(opts...)
	require.NoError(t, b.PutAll(pairs))
	image, _, _, err := b.BuildImage()
	require.NoError(t, err)

	return htable.New(rawmem.NewArena(image, 0), layout.HeaderSize), image
}

// scenarioPairs is a bucket chaining 42 -> "AB" then a colliding key -> "XYZ".
func scenarioPairs() []builder.Pair {
	return []builder.Pair{
		{Key: 42, Value: []byte("AB")},
		{Key: collidesWith42, Value: []byte("XYZ")},
	}
}
