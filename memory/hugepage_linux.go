//go:build linux

package memory

import (
	"sync"

	"golang.org/x/sys/unix"
)

// allocHugePages maps an anonymous huge-page-backed region. The kernel
// rejects the mapping when no huge pages are reserved, so callers fall
// back to standard allocation on error.
func allocHugePages(size uint64) ([]byte, error) {
	return unix.Mmap(-1, 0, int(size),
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_PRIVATE|unix.MAP_ANONYMOUS|unix.MAP_HUGETLB)
}

// freeHugePages unmaps a region obtained from allocHugePages.
func freeHugePages(buf []byte) {
	_ = unix.Munmap(buf)
}

var (
	hugeProbeOnce sync.Once
	hugeProbeOK   bool
)

// detectHugePages probes huge-page support by mapping and immediately
// releasing one 2 MiB region. The result is cached for the process.
func detectHugePages() bool {
	hugeProbeOnce.Do(func() {
		buf, err := allocHugePages(hugePageSize)
		if err == nil {
			hugeProbeOK = true
			_ = unix.Munmap(buf)
		}
	})
	return hugeProbeOK
}
