package process

import (
	"fmt"

	"regiondump/process/memory_map"
)

// ProcessMemoryAddress represents a memory address within a process
type ProcessMemoryAddress uint64

func (pma ProcessMemoryAddress) String() string {
	return fmt.Sprintf("0x%x", uint64(pma))
}

// RegionContent holds the bytes copied out of one region. Data may be
// shorter than the region when the OS reported a short read.
type RegionContent struct {
	Address ProcessMemoryAddress
	Data    []byte
}

// Short reports whether fewer bytes than the region size were read
func (c RegionContent) Short(region memory_map.MemoryRegion) bool {
	return uint64(len(c.Data)) < region.Size
}
