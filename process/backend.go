package process

import (
	"fmt"
	"math"

	"regiondump/process/memory_map"
)

// Handle is an open reference to a target process. It must be closed exactly
// once; every caller that opens one releases it with defer.
type Handle interface {
	// PID returns the process the handle refers to
	PID() ProcessID

	// Close releases the OS resources behind the handle
	Close() error
}

// Backend is the per-platform implementation of process memory access.
// Exactly one backend is compiled in for each supported OS, see
// process_platform.New.
type Backend interface {
	// Name identifies the backend, e.g. "linux"
	Name() string

	// Open acquires the rights needed to enumerate and read the memory of pid.
	// It fails with ErrNoSuchProcess or ErrPermissionDenied.
	Open(pid ProcessID) (Handle, error)

	// ListRegions walks the address space from 0 upwards and returns the
	// readable regions in ascending order. If the walk stops early the regions
	// found so far are returned together with an ErrEnumerationFailed error.
	ListRegions(h Handle) ([]memory_map.MemoryRegion, error)

	// ReadRegion copies the bytes of region out of the process with a single
	// native read. A short read is not an error, the returned data is just
	// shorter than region.Size. ReadRegion never closes h.
	ReadRegion(h Handle, region memory_map.MemoryRegion) (RegionContent, error)

	// SharedReads reports whether one handle may serve concurrent ReadRegion
	// calls from several goroutines.
	SharedReads() bool
}

// ListRegions opens its own handle on pid, lists the readable regions and
// releases the handle again. Each call walks the address space from the start.
func ListRegions(b Backend, pid ProcessID) (regions []memory_map.MemoryRegion, err error) {
	h, err := b.Open(pid)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := h.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing process %d: %w", pid, cerr)
		}
	}()

	return b.ListRegions(h)
}

// CheckRegion validates a descriptor before it is handed to a native read
func CheckRegion(region memory_map.MemoryRegion) error {
	if !region.Valid() {
		return fmt.Errorf("%w: invalid region %s", ErrReadFailed, region)
	}
	if region.Size > math.MaxInt {
		return fmt.Errorf("%w: region %s too large for a single read", ErrReadFailed, region)
	}
	return nil
}
