package cmd

import (
	"encoding/binary"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/shredder/pkg/htable"
	"github.com/ssargent/shredder/pkg/layout"
	"github.com/ssargent/shredder/pkg/rawmem"
)

func TestBuildCommand(t *testing.T) {
	env := newTestEnv(t)

	t.Run("plain", func(t *testing.T) {
		pairs := env.writeFile(t, "pairs.jsonl", []byte(testPairs))
		out := filepath.Join(env.dir, "plain.img")

		stdout, err := env.run(t, "build", pairs, out)
		require.NoError(t, err)
		assert.Contains(t, stdout, "entries:          3")
		assert.Contains(t, stdout, "longest chain:    2")

		info, err := os.Stat(out)
		require.NoError(t, err)
		assert.Greater(t, info.Size(), int64(layout.BucketArraySize))
	})

	for _, codec := range []string{"zstd", "lz4"} {
		t.Run(codec, func(t *testing.T) {
			out := env.buildUsers(t, "--compression", codec)

			info, err := os.Stat(out)
			require.NoError(t, err)
			assert.Less(t, info.Size(), int64(layout.BucketArraySize))

			stdout, err := env.run(t, "get", out, "1586999")
			require.NoError(t, err)
			assert.Equal(t, "XYZ", stdout)

			stdout, err = env.run(t, "inspect", out)
			require.NoError(t, err)
			assert.Contains(t, stdout, "Compression:      "+codec)
		})
	}

	t.Run("unknown codec", func(t *testing.T) {
		pairs := env.writeFile(t, "pairs.jsonl", []byte(testPairs))
		_, err := env.run(t, "build", "--compression", "snappy", pairs, filepath.Join(env.dir, "x.img"))
		assert.Error(t, err)
	})

	t.Run("duplicate keys", func(t *testing.T) {
		pairs := env.writeFile(t, "dups.jsonl", []byte("{\"key\": 1, \"value\": \"a\"}\n{\"key\": 1, \"value\": \"b\"}\n"))
		out := filepath.Join(env.dir, "dups.img")

		_, err := env.run(t, "build", pairs, out)
		assert.Error(t, err)

		_, err = env.run(t, "build", "--allow-duplicates", pairs, out)
		require.NoError(t, err)

		stdout, err := env.run(t, "get", out, "1")
		require.NoError(t, err)
		assert.Equal(t, "a", stdout)
	})

	t.Run("missing input", func(t *testing.T) {
		_, err := env.run(t, "build", filepath.Join(env.dir, "nope.jsonl"), filepath.Join(env.dir, "x.img"))
		assert.Error(t, err)
	})
}

func TestGetCommand(t *testing.T) {
	env := newTestEnv(t)
	img := env.buildUsers(t)

	tests := []struct {
		name     string
		args     []string
		expected string
		wantErr  error
	}{
		{"chain head", []string{img, "42"}, "AB", nil},
		{"second in chain", []string{img, "1586999"}, "XYZ", nil},
		{"base64 payload", []string{img, "7"}, "seven", nil},
		{"fractional key", []string{img, "42.5"}, "AB", nil},
		{"hex output", []string{"--hex", img, "42"}, "4142\n", nil},
		{"missing key", []string{img, "43"}, "", htable.ErrNotFound},
		{"wrapped key", []string{img, "-1"}, "", htable.ErrNotFound},
		{"wrapped key with flags", []string{"--hex", img, "-4294967254"}, "4142\n", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdout, err := env.run(t, append([]string{"get"}, tt.args...)...)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, stdout)
		})
	}

	t.Run("verbose", func(t *testing.T) {
		stdout, err := env.run(t, "get", "-v", img, "1586999")
		require.NoError(t, err)
		assert.Contains(t, stdout, "bucket=629684 probes=2 found=true length=3")
	})

	t.Run("invalid key", func(t *testing.T) {
		_, err := env.run(t, "get", img, "abc")
		assert.Error(t, err)
	})

	t.Run("not an image", func(t *testing.T) {
		bogus := env.writeFile(t, "bogus.img", make([]byte, layout.HeaderSize))
		_, err := env.run(t, "get", bogus, "42")
		assert.ErrorIs(t, err, layout.ErrBadMagic)
	})
}

func TestFieldCommand(t *testing.T) {
	env := newTestEnv(t)

	data := make([]byte, 12)
	binary.LittleEndian.PutUint32(data[0:], 1)
	binary.LittleEndian.PutUint32(data[4:], 0xffffffff)
	binary.LittleEndian.PutUint32(data[8:], 0x01020304)
	path := env.writeFile(t, "fields.bin", data)

	tests := []struct {
		index    string
		expected string
	}{
		{"0", "1\n"},
		{"1", "4294967295\n"},
		{"2", "16909060\n"},
		{"2.9", "16909060\n"},
	}
	for _, tt := range tests {
		t.Run(tt.index, func(t *testing.T) {
			stdout, err := env.run(t, "field", path, tt.index)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, stdout)
		})
	}

	t.Run("out of bounds", func(t *testing.T) {
		_, err := env.run(t, "field", path, "3")
		assert.ErrorIs(t, err, rawmem.ErrOutOfBounds)
	})

	t.Run("negative index wraps", func(t *testing.T) {
		_, err := env.run(t, "field", path, "-1")
		assert.ErrorIs(t, err, rawmem.ErrOutOfBounds)
	})
}

func TestInspectCommand(t *testing.T) {
	env := newTestEnv(t)
	img := env.buildUsers(t)

	t.Run("text", func(t *testing.T) {
		stdout, err := env.run(t, "inspect", img)
		require.NoError(t, err)
		assert.Contains(t, stdout, "Entries:          3")
		assert.Contains(t, stdout, "Occupied buckets: 2 of 1000000")
		assert.Contains(t, stdout, "Longest chain:    2")
		assert.Contains(t, stdout, "chains of 1: 1")
		assert.Contains(t, stdout, "chains of 2: 1")
	})

	t.Run("json", func(t *testing.T) {
		stdout, err := env.run(t, "inspect", "--json", img)
		require.NoError(t, err)

		var report struct {
			Header struct {
				EntryCount  uint32
				HashVersion uint16
			} `json:"header"`
			Stats struct {
				Entries      uint64 `json:"entries"`
				PayloadBytes uint64 `json:"payload_bytes"`
			} `json:"stats"`
		}
		require.NoError(t, json.Unmarshal([]byte(stdout), &report))
		assert.Equal(t, uint32(3), report.Header.EntryCount)
		assert.Equal(t, layout.HashVersion, report.Header.HashVersion)
		assert.Equal(t, uint64(3), report.Stats.Entries)
		assert.Equal(t, uint64(10), report.Stats.PayloadBytes)
	})
}
