package process_blob

import (
	"fmt"

	"regiondump/process"
	"regiondump/process/memory_map"
)

// ProcessBlob is the stored content of one region
type ProcessBlob struct {
	region memory_map.MemoryRegion
	data   []byte
}

func NewProcessBlob(region memory_map.MemoryRegion, data []byte) *ProcessBlob {
	return &ProcessBlob{
		region: region,
		data:   data,
	}
}

func (p *ProcessBlob) Region() memory_map.MemoryRegion {
	return p.region
}

func (p *ProcessBlob) Data() []byte {
	return p.data
}

// ReadMemory returns size bytes at addr. The range must lie inside the bytes
// that were captured, which may be fewer than the region size after a short
// read.
func (p *ProcessBlob) ReadMemory(addr process.ProcessMemoryAddress, size uint64) ([]byte, error) {
	base := process.ProcessMemoryAddress(p.region.Address)
	if addr < base {
		return nil, fmt.Errorf("address %s below region %s", addr, base)
	}

	offset := uint64(addr - base)
	if offset > uint64(len(p.data)) || size > uint64(len(p.data))-offset {
		return nil, fmt.Errorf("read of %d bytes at %s exceeds the %d captured bytes of region %s", size, addr, len(p.data), base)
	}

	result := make([]byte, size)
	copy(result, p.data[offset:offset+size])
	return result, nil
}

// Remaining returns how many captured bytes follow addr, 0 when addr is not
// inside them.
func (p *ProcessBlob) Remaining(addr process.ProcessMemoryAddress) uint64 {
	base := process.ProcessMemoryAddress(p.region.Address)
	if addr < base || uint64(addr-base) >= uint64(len(p.data)) {
		return 0
	}
	return uint64(len(p.data)) - uint64(addr-base)
}
