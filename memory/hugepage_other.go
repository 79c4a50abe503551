//go:build !linux

package memory

import "errors"

var errHugePagesUnsupported = errors.New("memory: huge pages unsupported on this platform")

func allocHugePages(size uint64) ([]byte, error) {
	return nil, errHugePagesUnsupported
}

func freeHugePages(buf []byte) {}

func detectHugePages() bool { return false }
