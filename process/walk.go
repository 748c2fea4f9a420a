package process

import (
	"fmt"

	"regiondump/process/memory_map"
)

// RegionQuery returns the first region that starts at or after addr. ok is
// false once there are no more regions; any other failure is reported
// through err.
type RegionQuery func(addr uint64) (region memory_map.MemoryRegion, ok bool, err error)

// WalkRegions drives query from address 0 upwards, advancing to the end of
// each region, and keeps the readable ones. The walk stops with
// ErrEnumerationFailed, keeping what it collected, when the query fails or
// reports a region that is empty, wraps around or lies behind the cursor.
func WalkRegions(query RegionQuery) ([]memory_map.MemoryRegion, error) {
	var (
		regions []memory_map.MemoryRegion
		cursor  uint64
	)

	for {
		region, ok, err := query(cursor)
		if err != nil {
			return regions, fmt.Errorf("%w at 0x%x: %w", ErrEnumerationFailed, cursor, err)
		}
		if !ok {
			return regions, nil
		}

		if !region.Valid() {
			return regions, fmt.Errorf("%w at 0x%x: invalid region %s", ErrEnumerationFailed, cursor, region)
		}
		if region.Address < cursor {
			return regions, fmt.Errorf("%w at 0x%x: region %s lies behind the cursor", ErrEnumerationFailed, cursor, region)
		}

		if region.IsReadable() {
			regions = append(regions, region)
		}

		cursor = region.End()
	}
}

// SnapshotQuery turns a sorted region list, such as a parsed maps file, into
// a RegionQuery. tailErr is reported once the list is exhausted, so a
// snapshot that was cut short by a parse error surfaces as a failed walk.
func SnapshotQuery(snapshot []memory_map.MemoryRegion, tailErr error) RegionQuery {
	i := 0
	return func(addr uint64) (memory_map.MemoryRegion, bool, error) {
		for i < len(snapshot) && snapshot[i].End() <= addr {
			i++
		}
		if i < len(snapshot) {
			return snapshot[i], true, nil
		}
		if tailErr != nil {
			return memory_map.MemoryRegion{}, false, tailErr
		}
		return memory_map.MemoryRegion{}, false, nil
	}
}
