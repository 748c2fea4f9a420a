// Package process defines the platform-neutral contract for inspecting the
// memory of another process: opening it, listing its readable regions and
// copying their contents.
package process

import (
	"errors"
	"fmt"

	"regiondump/process/memory_map"
)

var (
	// ErrNoSuchProcess is returned by Open when the pid does not name a live process.
	ErrNoSuchProcess = errors.New("no such process")

	// ErrPermissionDenied is returned by Open when the OS refuses memory access to the process.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrEnumerationFailed is returned when the region walk stops before the end of the
	// address space. The regions collected up to that point are returned with it.
	ErrEnumerationFailed = errors.New("region enumeration failed")

	// ErrReadFailed is returned when one region could not be copied out of the process.
	ErrReadFailed = errors.New("region read failed")

	// ErrUnsupportedPlatform is returned when no backend exists for the running OS.
	ErrUnsupportedPlatform = errors.New("unsupported platform")
)

// RegionError records a failure tied to a single region.
type RegionError struct {
	Region memory_map.MemoryRegion
	Err    error
}

func (e *RegionError) Error() string {
	return fmt.Sprintf("region 0x%x (%d bytes): %v", e.Region.Address, e.Region.Size, e.Err)
}

func (e *RegionError) Unwrap() error {
	return e.Err
}

// ErrProcessNotOpen is returned when a handle is used after Close, or is
// passed to a backend that did not create it.
var ErrProcessNotOpen = errors.New("process not open")
