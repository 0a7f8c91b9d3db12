//go:build !unix

package image

import (
	"io"
	"os"
)

func mapFile(f *os.File, size uint64) ([]byte, error) {
	data := make([]byte, size)
	if _, err := f.ReadAt(data, 0); err != nil && err != io.EOF {
		return nil, err
	}
	return data, nil
}

func unmapFile(data []byte) error {
	return nil
}
