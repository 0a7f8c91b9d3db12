package layout

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

const (
	// HeaderSize is the size of the image header in bytes.
	HeaderSize = 64
	// FormatVersion is the image format written by this package.
	FormatVersion uint16 = 1

	// FlagZstd marks an image whose body (everything after the header) is
	// zstd-compressed on disk.
	FlagZstd uint32 = 1 << 0
	// FlagLZ4 marks an image whose body is an LZ4 frame on disk.
	FlagLZ4 uint32 = 1 << 1

	compressionFlags = FlagZstd | FlagLZ4

	// MaxImageSize is the largest uncompressed image Open will load.
	MaxImageSize uint64 = 1 << 40
)

// Magic opens every image file.
var Magic = [8]byte{'S', 'H', 'R', 'D', 'T', 'B', 'L', 0}

// Image header errors
var (
	ErrBadMagic           = errors.New("layout: bad image magic")
	ErrUnsupportedVersion = errors.New("layout: unsupported image format version")
	ErrHashVersion        = errors.New("layout: image built with a different hash policy")
	ErrChecksum           = errors.New("layout: image checksum mismatch")
	ErrTruncated          = errors.New("layout: image truncated")
	ErrBadFlags           = errors.New("layout: unknown or conflicting image flags")
	ErrImageTooLarge      = errors.New("layout: image size exceeds limit")
)

// Header describes a persisted table image.
//
// Format: [Magic(8)][Version(2)][HashVersion(2)][Flags(4)][BucketCount(4)]
// [EntryCount(4)][BucketOffset(8)][ImageSize(8)][Checksum(8)][Reserved(16)]
type Header struct {
	Version      uint16
	HashVersion  uint16
	Flags        uint32
	BucketCount  uint32
	EntryCount   uint32
	BucketOffset uint64 // Address of bucket 0 relative to the image start
	ImageSize    uint64 // Uncompressed size including the header
	Checksum     uint64 // xxhash64 of the uncompressed body
}

// NewHeader returns a header for an uncompressed image of size bytes
// holding entries entries, with the checksum left at zero.
func NewHeader(entries uint32, size uint64) Header {
	return Header{
		Version:      FormatVersion,
		HashVersion:  HashVersion,
		BucketCount:  BucketCount,
		EntryCount:   entries,
		BucketOffset: HeaderSize,
		ImageSize:    size,
	}
}

// Compressed reports whether the on-disk body is compressed.
func (h Header) Compressed() bool {
	return h.Flags&compressionFlags != 0
}

// PutHeader writes h into buf[:HeaderSize].
func PutHeader(buf []byte, h Header) {
	_ = buf[HeaderSize-1]
	copy(buf[0:8], Magic[:])
	binary.LittleEndian.PutUint16(buf[8:], h.Version)
	binary.LittleEndian.PutUint16(buf[10:], h.HashVersion)
	binary.LittleEndian.PutUint32(buf[12:], h.Flags)
	binary.LittleEndian.PutUint32(buf[16:], h.BucketCount)
	binary.LittleEndian.PutUint32(buf[20:], h.EntryCount)
	binary.LittleEndian.PutUint64(buf[24:], h.BucketOffset)
	binary.LittleEndian.PutUint64(buf[32:], h.ImageSize)
	binary.LittleEndian.PutUint64(buf[40:], h.Checksum)
	clear(buf[48:HeaderSize])
}

// DecodeHeader parses the header at the start of data.
func DecodeHeader(data []byte) (*Header, error) {
	if len(data) < HeaderSize {
		return nil, fmt.Errorf("%w: %d bytes, need %d for header", ErrTruncated, len(data), HeaderSize)
	}
	if [8]byte(data[0:8]) != Magic {
		return nil, ErrBadMagic
	}

	return &Header{
		Version:      binary.LittleEndian.Uint16(data[8:]),
		HashVersion:  binary.LittleEndian.Uint16(data[10:]),
		Flags:        binary.LittleEndian.Uint32(data[12:]),
		BucketCount:  binary.LittleEndian.Uint32(data[16:]),
		EntryCount:   binary.LittleEndian.Uint32(data[20:]),
		BucketOffset: binary.LittleEndian.Uint64(data[24:]),
		ImageSize:    binary.LittleEndian.Uint64(data[32:]),
		Checksum:     binary.LittleEndian.Uint64(data[40:]),
	}, nil
}

// Validate checks that the header describes a table this build can query.
func (h *Header) Validate() error {
	if h.Version != FormatVersion {
		return fmt.Errorf("%w: %d", ErrUnsupportedVersion, h.Version)
	}
	if h.Flags&^compressionFlags != 0 || h.Flags&compressionFlags == compressionFlags {
		return fmt.Errorf("%w: %#x", ErrBadFlags, h.Flags)
	}
	if h.HashVersion != HashVersion || h.BucketCount != BucketCount {
		return fmt.Errorf("%w: hash version %d with %d buckets, want %d with %d",
			ErrHashVersion, h.HashVersion, h.BucketCount, HashVersion, BucketCount)
	}
	if h.ImageSize > MaxImageSize {
		return fmt.Errorf("%w: %d bytes, limit is %d", ErrImageTooLarge, h.ImageSize, MaxImageSize)
	}
	if h.BucketOffset < HeaderSize || h.BucketOffset > h.ImageSize || h.BucketOffset+BucketArraySize > h.ImageSize {
		return fmt.Errorf("%w: bucket array [%d, %d) outside image of %d bytes",
			ErrTruncated, h.BucketOffset, h.BucketOffset+BucketArraySize, h.ImageSize)
	}
	return nil
}

// Verify checks that image is exactly the uncompressed image h describes.
func (h *Header) Verify(image []byte) error {
	if uint64(len(image)) != h.ImageSize {
		return fmt.Errorf("%w: %d bytes, header says %d", ErrTruncated, len(image), h.ImageSize)
	}
	if sum := Checksum(image[HeaderSize:]); sum != h.Checksum {
		return fmt.Errorf("%w: %016x != %016x", ErrChecksum, sum, h.Checksum)
	}
	return nil
}

// Checksum hashes an image body.
func Checksum(body []byte) uint64 {
	return xxhash.Sum64(body)
}
