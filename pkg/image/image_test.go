package image

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/shredder/pkg/builder"
	"github.com/ssargent/shredder/pkg/htable"
	"github.com/ssargent/shredder/pkg/layout"
)

func buildImage(t *testing.T) []byte {
	t.Helper()

	b := builder.New()
	require.NoError(t, b.Put(42, []byte("AB")))
	require.NoError(t, b.Put(1586999, []byte("XYZ")))
	require.NoError(t, b.Put(7, []byte("seven")))

	img, _, _, err := b.BuildImage()
	require.NoError(t, err)
	return img
}

func TestWriteOpen_RoundTrip(t *testing.T) {
	testCases := []struct {
		name        string
		compression Compression
		mode        LoadMode
		wantMapped  bool
	}{
		{"read", CompressionNone, ModeRead, false},
		{"mmap", CompressionNone, ModeMmap, true},
		{"zstd read", CompressionZstd, ModeRead, false},
		{"zstd ignores mmap", CompressionZstd, ModeMmap, false},
		{"lz4 read", CompressionLZ4, ModeRead, false},
		{"lz4 ignores mmap", CompressionLZ4, ModeMmap, false},
	}

	img := buildImage(t)

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "tables", "test.img")
			require.NoError(t, Write(path, img, WriteOptions{Compression: tc.compression}))

			info, err := os.Stat(path)
			require.NoError(t, err)
			assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
			if tc.compression != CompressionNone {
				assert.Less(t, info.Size(), int64(len(img)))
			} else {
				assert.Equal(t, int64(len(img)), info.Size())
			}

			loaded, err := Open(path, OpenOptions{Mode: tc.mode, VerifyChecksum: true})
			require.NoError(t, err)
			defer loaded.Close()

			assert.Equal(t, path, loaded.Path())
			assert.Equal(t, len(img), loaded.Size())
			assert.Equal(t, uint32(3), loaded.Header().EntryCount)
			assert.Equal(t, tc.compression, loaded.Compression())
			assert.Equal(t, tc.compression != CompressionNone, loaded.Header().Compressed())
			if tc.wantMapped {
				assert.True(t, loaded.Mapped())
			} else {
				assert.False(t, loaded.Mapped())
			}

			data, err := loaded.Table().Get(42)
			require.NoError(t, err)
			assert.Equal(t, "AB", string(data))

			data, err = loaded.Table().Get(1586999)
			require.NoError(t, err)
			assert.Equal(t, "XYZ", string(data))

			_, err = loaded.Table().Get(99)
			assert.ErrorIs(t, err, htable.ErrNotFound)
		})
	}
}

func TestWrite_UnknownCompression(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snappy.img")

	err := Write(path, buildImage(t), WriteOptions{Compression: "snappy"})
	assert.ErrorIs(t, err, ErrUnknownCompression)
}

func TestWrite_LeavesImageUntouched(t *testing.T) {
	img := buildImage(t)
	before := append([]byte(nil), img[:layout.HeaderSize]...)

	path := filepath.Join(t.TempDir(), "lz4.img")
	require.NoError(t, Write(path, img, WriteOptions{Compression: CompressionLZ4}))
	assert.Equal(t, before, img[:layout.HeaderSize])

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	h, err := layout.DecodeHeader(data)
	require.NoError(t, err)
	assert.Equal(t, layout.FlagLZ4, h.Flags)
}

func TestWrite_InvalidImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.img")

	err := Write(path, []byte("not an image"), WriteOptions{})
	assert.ErrorIs(t, err, layout.ErrTruncated)

	img := buildImage(t)
	err = Write(path, img[:len(img)-1], WriteOptions{})
	assert.ErrorIs(t, err, layout.ErrTruncated)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestOpen_Errors(t *testing.T) {
	dir := t.TempDir()
	img := buildImage(t)

	t.Run("missing file", func(t *testing.T) {
		_, err := Open(filepath.Join(dir, "missing.img"), OpenOptions{})
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("short file", func(t *testing.T) {
		path := filepath.Join(dir, "short.img")
		require.NoError(t, os.WriteFile(path, img[:10], 0600))
		_, err := Open(path, OpenOptions{})
		assert.ErrorIs(t, err, layout.ErrTruncated)
	})

	t.Run("bad magic", func(t *testing.T) {
		bad := append([]byte(nil), img...)
		bad[0] = 'X'
		path := filepath.Join(dir, "magic.img")
		require.NoError(t, os.WriteFile(path, bad, 0600))
		_, err := Open(path, OpenOptions{})
		assert.ErrorIs(t, err, layout.ErrBadMagic)
	})

	t.Run("hash version mismatch", func(t *testing.T) {
		bad := append([]byte(nil), img...)
		h, err := layout.DecodeHeader(bad)
		require.NoError(t, err)
		h.HashVersion++
		layout.PutHeader(bad, *h)
		path := filepath.Join(dir, "hash.img")
		require.NoError(t, os.WriteFile(path, bad, 0600))
		_, err = Open(path, OpenOptions{})
		assert.ErrorIs(t, err, layout.ErrHashVersion)
	})

	t.Run("truncated body", func(t *testing.T) {
		for _, mode := range []LoadMode{ModeRead, ModeMmap} {
			path := filepath.Join(dir, "body-"+string(mode)+".img")
			require.NoError(t, os.WriteFile(path, img[:len(img)-3], 0600))
			_, err := Open(path, OpenOptions{Mode: mode})
			assert.ErrorIs(t, err, layout.ErrTruncated, string(mode))
		}
	})

	t.Run("truncated compressed body", func(t *testing.T) {
		for _, c := range []Compression{CompressionZstd, CompressionLZ4} {
			full := filepath.Join(dir, "full-"+string(c)+".img")
			require.NoError(t, Write(full, img, WriteOptions{Compression: c}))
			data, err := os.ReadFile(full)
			require.NoError(t, err)

			path := filepath.Join(dir, "cut-"+string(c)+".img")
			require.NoError(t, os.WriteFile(path, data[:len(data)-8], 0600))
			_, err = Open(path, OpenOptions{Mode: ModeRead})
			assert.Error(t, err, string(c))
		}
	})

	t.Run("oversized header", func(t *testing.T) {
		testCases := []struct {
			name string
			size uint64
			err  error
		}{
			{"beyond limit", 1 << 62, layout.ErrImageTooLarge},
			{"larger than file", 1 << 39, layout.ErrTruncated},
		}

		for _, tc := range testCases {
			hdr := make([]byte, layout.HeaderSize)
			layout.PutHeader(hdr, layout.NewHeader(0, tc.size))
			path := filepath.Join(dir, "huge.img")
			require.NoError(t, os.WriteFile(path, hdr, 0600))

			for _, mode := range []LoadMode{ModeRead, ModeMmap} {
				_, err := Open(path, OpenOptions{Mode: mode})
				assert.ErrorIs(t, err, tc.err, tc.name+"/"+string(mode))
			}
		}
	})

	t.Run("compressed body shorter than header says", func(t *testing.T) {
		for _, c := range []Compression{CompressionZstd, CompressionLZ4} {
			path := filepath.Join(dir, "inflated-"+string(c)+".img")
			require.NoError(t, Write(path, img, WriteOptions{Compression: c}))
			data, err := os.ReadFile(path)
			require.NoError(t, err)

			h, err := layout.DecodeHeader(data)
			require.NoError(t, err)
			h.ImageSize = 1 << 39
			layout.PutHeader(data, *h)
			require.NoError(t, os.WriteFile(path, data, 0600))

			_, err = Open(path, OpenOptions{Mode: ModeRead})
			assert.ErrorIs(t, err, layout.ErrTruncated, string(c))
		}
	})

	t.Run("compressed body longer than header says", func(t *testing.T) {
		for _, c := range []Compression{CompressionZstd, CompressionLZ4} {
			path := filepath.Join(dir, "shrunk-"+string(c)+".img")
			require.NoError(t, Write(path, img, WriteOptions{Compression: c}))
			data, err := os.ReadFile(path)
			require.NoError(t, err)

			h, err := layout.DecodeHeader(data)
			require.NoError(t, err)
			h.ImageSize = uint64(len(img)) - 16
			layout.PutHeader(data, *h)
			require.NoError(t, os.WriteFile(path, data, 0600))

			_, err = Open(path, OpenOptions{Mode: ModeRead})
			assert.ErrorIs(t, err, layout.ErrTruncated, string(c))
		}
	})

	t.Run("corrupted payload", func(t *testing.T) {
		bad := append([]byte(nil), img...)
		bad[len(bad)-1] ^= 0xff
		path := filepath.Join(dir, "corrupt.img")
		require.NoError(t, os.WriteFile(path, bad, 0600))

		_, err := Open(path, OpenOptions{VerifyChecksum: true})
		assert.ErrorIs(t, err, layout.ErrChecksum)

		loaded, err := Open(path, OpenOptions{})
		require.NoError(t, err, "checksum is only checked on request")
		loaded.Close()
	})
}

func TestImage_Close(t *testing.T) {
	path := filepath.Join(t.TempDir(), "close.img")
	require.NoError(t, Write(path, buildImage(t), WriteOptions{}))

	loaded, err := Open(path, OpenOptions{Mode: ModeMmap})
	require.NoError(t, err)

	require.NoError(t, loaded.Close())
	assert.Equal(t, 0, loaded.Size())
	assert.NoError(t, loaded.Close())

	var nilImage *Image
	assert.NoError(t, nilImage.Close())
}
