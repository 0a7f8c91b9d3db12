// Package image persists tables as files and loads them back for lookups.
//
// An image is the table exactly as the engine reads it: a layout.Header,
// the bucket array, the entries and the payloads, with every address being
// an offset from the start of the file. Uncompressed images can be memory
// mapped and queried in place; zstd and LZ4 images are inflated into memory.
package image

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
	"go.uber.org/zap"

	"github.com/ssargent/shredder/pkg/htable"
	"github.com/ssargent/shredder/pkg/layout"
	"github.com/ssargent/shredder/pkg/rawmem"
)

// LoadMode selects how Open brings an image into memory
type LoadMode string

const (
	// ModeMmap maps uncompressed images read-only.
	ModeMmap LoadMode = "mmap"
	// ModeRead reads the whole image into the Go heap.
	ModeRead LoadMode = "read"
)

// Compression names the codec applied to everything after the header
type Compression string

const (
	CompressionNone Compression = "none"
	CompressionZstd Compression = "zstd"
	CompressionLZ4  Compression = "lz4"
)

// ErrUnknownCompression is returned for a codec name Write does not know.
var ErrUnknownCompression = errors.New("image: unknown compression")

func (c Compression) flag() (uint32, error) {
	switch c {
	case "", CompressionNone:
		return 0, nil
	case CompressionZstd:
		return layout.FlagZstd, nil
	case CompressionLZ4:
		return layout.FlagLZ4, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownCompression, string(c))
}

// CompressionOf returns the codec recorded in h
func CompressionOf(h layout.Header) Compression {
	switch {
	case h.Flags&layout.FlagZstd != 0:
		return CompressionZstd
	case h.Flags&layout.FlagLZ4 != 0:
		return CompressionLZ4
	}
	return CompressionNone
}

// WriteOptions controls how an image is written
type WriteOptions struct {
	Compression Compression
}

// OpenOptions controls how an image is loaded
type OpenOptions struct {
	Mode           LoadMode
	VerifyChecksum bool
	// MaxChainLength is passed to the table; 0 means the default and a
	// negative value disables the cutoff.
	MaxChainLength int
	Logger         *zap.Logger
}

// Image is a loaded table image
type Image struct {
	path   string
	header layout.Header
	data   []byte
	mapped bool
	table  *htable.Table
}

// Write stores img at path. The header inside img must be valid; the
// compression flags are set here.
func Write(path string, img []byte, opts WriteOptions) error {
	flag, err := opts.Compression.flag()
	if err != nil {
		return err
	}

	header, err := layout.DecodeHeader(img)
	if err != nil {
		return err
	}
	if err := header.Validate(); err != nil {
		return err
	}
	if uint64(len(img)) != header.ImageSize {
		return fmt.Errorf("%w: image is %d bytes, header says %d", layout.ErrTruncated, len(img), header.ImageSize)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("failed to create image directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".shredder-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	header.Flags = header.Flags&^(layout.FlagZstd|layout.FlagLZ4) | flag
	if err := writeBody(tmp, img, *header); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync image: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close image: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0600); err != nil {
		return fmt.Errorf("failed to set image permissions: %w", err)
	}

	return os.Rename(tmp.Name(), path)
}

func writeBody(w io.Writer, img []byte, header layout.Header) error {
	hdr := make([]byte, layout.HeaderSize)
	layout.PutHeader(hdr, header)
	if _, err := w.Write(hdr); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	var enc io.WriteCloser
	switch CompressionOf(header) {
	case CompressionZstd:
		zw, err := zstd.NewWriter(w)
		if err != nil {
			return fmt.Errorf("failed to create compressor: %w", err)
		}
		enc = zw
	case CompressionLZ4:
		enc = lz4.NewWriter(w)
	default:
		if _, err := w.Write(img[layout.HeaderSize:]); err != nil {
			return fmt.Errorf("failed to write image: %w", err)
		}
		return nil
	}

	if _, err := enc.Write(img[layout.HeaderSize:]); err != nil {
		enc.Close()
		return fmt.Errorf("failed to compress image: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to compress image: %w", err)
	}
	return nil
}

// Open loads the image at path.
func Open(path string, opts OpenOptions) (*Image, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	hdr := make([]byte, layout.HeaderSize)
	if _, err := io.ReadFull(file, hdr); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("%s: %w", path, layout.ErrTruncated)
		}
		return nil, err
	}
	header, err := layout.DecodeHeader(hdr)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := header.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	stat, err := file.Stat()
	if err != nil {
		return nil, err
	}
	if !header.Compressed() && uint64(stat.Size()) != header.ImageSize {
		return nil, fmt.Errorf("%s: %w: file is %d bytes, header says %d",
			path, layout.ErrTruncated, stat.Size(), header.ImageSize)
	}

	img := &Image{path: path, header: *header}

	switch {
	case header.Flags&layout.FlagZstd != 0:
		img.data, err = inflateZstd(file, hdr, header.ImageSize)
	case header.Flags&layout.FlagLZ4 != 0:
		img.data, err = inflateLZ4(file, hdr, header.ImageSize)
	case opts.Mode == ModeMmap:
		img.data, err = mapFile(file, header.ImageSize)
		img.mapped = err == nil
	default:
		img.data, err = readAll(file, hdr, header.ImageSize)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	if uint64(len(img.data)) != header.ImageSize {
		img.Close()
		return nil, fmt.Errorf("%s: %w: %d bytes, header says %d", path, layout.ErrTruncated, len(img.data), header.ImageSize)
	}
	if opts.VerifyChecksum {
		if err := header.Verify(img.data); err != nil {
			img.Close()
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}

	maxChain := opts.MaxChainLength
	switch {
	case maxChain == 0:
		maxChain = htable.DefaultMaxChainLength
	case maxChain < 0:
		maxChain = 0
	}
	img.table = htable.New(rawmem.NewArena(img.data, 0), header.BucketOffset,
		htable.WithMaxChainLength(maxChain),
		htable.WithLogger(logger.With(zap.String("image", path))))

	logger.Debug("image loaded",
		zap.String("path", path),
		zap.Uint32("entries", header.EntryCount),
		zap.Uint64("size", header.ImageSize),
		zap.String("compression", string(CompressionOf(*header))),
		zap.Bool("mapped", img.mapped))

	return img, nil
}

func readAll(r io.Reader, hdr []byte, size uint64) ([]byte, error) {
	data := make([]byte, size)
	copy(data, hdr)
	n, err := io.ReadFull(r, data[layout.HeaderSize:])
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	return data[:layout.HeaderSize+n], nil
}

func inflateZstd(r io.Reader, hdr []byte, size uint64) ([]byte, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create decompressor: %w", err)
	}
	defer dec.Close()
	return inflate(dec, hdr, size)
}

func inflateLZ4(r io.Reader, hdr []byte, size uint64) ([]byte, error) {
	return inflate(lz4.NewReader(r), hdr, size)
}

// inflate grows the buffer with the decoded body rather than trusting the
// header size, and stops one byte past it so Open can report the mismatch.
func inflate(dec io.Reader, hdr []byte, size uint64) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(dec, int64(size-layout.HeaderSize)+1))
	if err != nil {
		return nil, fmt.Errorf("failed to decompress image: %w", err)
	}

	data := make([]byte, 0, layout.HeaderSize+len(body))
	data = append(data, hdr...)
	return append(data, body...), nil
}

// Table returns the lookup table over the image. Payload slices it returns
// are only valid until Close.
func (i *Image) Table() *htable.Table {
	return i.table
}

// Header returns the image header
func (i *Image) Header() layout.Header {
	return i.header
}

// Path returns the file the image was loaded from
func (i *Image) Path() string {
	return i.path
}

// Size returns the in-memory size of the image
func (i *Image) Size() int {
	return len(i.data)
}

// Compression returns the codec the image was stored with
func (i *Image) Compression() Compression {
	return CompressionOf(i.header)
}

// Mapped reports whether the image is memory mapped
func (i *Image) Mapped() bool {
	return i.mapped
}

// Close releases the image memory.
func (i *Image) Close() error {
	if i == nil || i.data == nil {
		return nil
	}
	var err error
	if i.mapped {
		err = unmapFile(i.data)
	}
	i.data = nil
	i.mapped = false
	return err
}
