//go:build !unix

package rawmem

import "errors"

var errNoMapping = errors.New("rawmem: anonymous mappings are not supported on this platform")

func mapAnon(size int) ([]byte, error) {
	return nil, errNoMapping
}

func unmap(data []byte) error {
	return errNoMapping
}
