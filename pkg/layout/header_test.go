package layout

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestImage(t *testing.T) ([]byte, Header) {
	t.Helper()

	image := make([]byte, HeaderSize+BucketArraySize+EntrySize)
	for i := HeaderSize + BucketArraySize; i < len(image); i++ {
		image[i] = byte(i)
	}
	h := NewHeader(1, uint64(len(image)))
	h.Checksum = Checksum(image[HeaderSize:])
	PutHeader(image, h)
	return image, h
}

func TestHeader_RoundTrip(t *testing.T) {
	image, h := newTestImage(t)

	decoded, err := DecodeHeader(image)
	require.NoError(t, err)
	assert.Equal(t, h, *decoded)
	assert.False(t, decoded.Compressed())
	require.NoError(t, decoded.Validate())
	require.NoError(t, decoded.Verify(image))
}

func TestHeader_Compressed(t *testing.T) {
	h := NewHeader(0, HeaderSize+BucketArraySize)
	h.Flags |= FlagZstd
	assert.True(t, h.Compressed())
	require.NoError(t, h.Validate())

	h.Flags = FlagLZ4
	assert.True(t, h.Compressed())
	require.NoError(t, h.Validate())

	assert.False(t, NewHeader(0, HeaderSize+BucketArraySize).Compressed())
}

func TestDecodeHeader_Errors(t *testing.T) {
	t.Run("truncated", func(t *testing.T) {
		_, err := DecodeHeader(make([]byte, HeaderSize-1))
		assert.ErrorIs(t, err, ErrTruncated)
	})

	t.Run("bad magic", func(t *testing.T) {
		image, _ := newTestImage(t)
		image[0] = 'X'
		_, err := DecodeHeader(image)
		assert.ErrorIs(t, err, ErrBadMagic)
	})
}

func TestHeader_Validate(t *testing.T) {
	testCases := []struct {
		name   string
		mutate func(h *Header)
		err    error
	}{
		{"unknown version", func(h *Header) { h.Version = 99 }, ErrUnsupportedVersion},
		{"conflicting codecs", func(h *Header) { h.Flags = FlagZstd | FlagLZ4 }, ErrBadFlags},
		{"unknown flag", func(h *Header) { h.Flags = 1 << 7 }, ErrBadFlags},
		{"hash version", func(h *Header) { h.HashVersion = HashVersion + 1 }, ErrHashVersion},
		{"bucket count", func(h *Header) { h.BucketCount = 1 << 20 }, ErrHashVersion},
		{"bucket offset inside header", func(h *Header) { h.BucketOffset = 8 }, ErrTruncated},
		{"image too small", func(h *Header) { h.ImageSize = BucketArraySize }, ErrTruncated},
		{"image too large", func(h *Header) { h.ImageSize = 1 << 62 }, ErrImageTooLarge},
		{"bucket offset past image", func(h *Header) { h.BucketOffset = 1<<64 - 8 }, ErrTruncated},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			h := NewHeader(0, HeaderSize+BucketArraySize)
			tc.mutate(&h)
			assert.ErrorIs(t, h.Validate(), tc.err)
		})
	}
}

func TestHeader_Verify(t *testing.T) {
	t.Run("corrupted body", func(t *testing.T) {
		image, h := newTestImage(t)
		image[len(image)-1] ^= 0xff
		assert.ErrorIs(t, h.Verify(image), ErrChecksum)
	})

	t.Run("size mismatch", func(t *testing.T) {
		image, h := newTestImage(t)
		assert.ErrorIs(t, h.Verify(image[:len(image)-1]), ErrTruncated)
	})
}
