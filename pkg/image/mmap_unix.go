//go:build unix

package image

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"github.com/ssargent/shredder/pkg/layout"
)

func mapFile(f *os.File, size uint64) ([]byte, error) {
	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if uint64(stat.Size()) < size {
		return nil, fmt.Errorf("%w: file is %d bytes, header says %d", layout.ErrTruncated, stat.Size(), size)
	}
	return unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ, unix.MAP_SHARED)
}

func unmapFile(data []byte) error {
	return unix.Munmap(data)
}
