// Package process_blob loads a dump file back into memory and serves it
// through the same backend interface as a live process.
package process_blob

import (
	"errors"
	"fmt"
	"sort"

	"regiondump/format"
	"regiondump/persist"
	"regiondump/process"
	"regiondump/process/memory_map"
)

// ProcessDump is a loaded dump. It implements process.Backend for the pid
// recorded in the dump.
type ProcessDump struct {
	PID         process.ProcessID
	ProcessName string
	Platform    string

	enumErr string
	regions []memory_map.MemoryRegion
	blobs   map[uint64]*ProcessBlob
	failed  map[uint64]string
}

var _ process.Backend = (*ProcessDump)(nil)

// Load reads a dump file. The format comes from the file name, .json when it
// cannot be told, and zstd compression is detected from the content.
func Load(path string) (*ProcessDump, error) {
	codec, err := format.ForPath(path)
	if errors.Is(err, format.ErrUnsupportedFormat) {
		codec, err = format.Lookup(format.DefaultFormat)
	}
	if err != nil {
		return nil, err
	}

	r, err := persist.Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	doc, err := codec.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", path, err)
	}

	return FromDocument(doc)
}

// FromDocument builds a dump from a decoded document
func FromDocument(doc *format.Document) (*ProcessDump, error) {
	p := &ProcessDump{
		PID:         process.ProcessID(doc.PID),
		ProcessName: doc.Name,
		Platform:    doc.Platform,
		enumErr:     doc.EnumerationError,
		blobs:       make(map[uint64]*ProcessBlob),
		failed:      make(map[uint64]string),
	}

	for i, rec := range doc.Regions {
		region, err := rec.Region()
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}

		if rec.Unreadable() {
			p.failed[region.Address] = rec.Error
		} else {
			data, err := rec.Bytes()
			if err != nil {
				return nil, fmt.Errorf("record %d: %w", i, err)
			}
			p.blobs[region.Address] = NewProcessBlob(region, data)
		}
		p.regions = append(p.regions, region)
	}

	sort.Slice(p.regions, func(i, j int) bool {
		return p.regions[i].Address < p.regions[j].Address
	})
	for i := 1; i < len(p.regions); i++ {
		if p.regions[i].Address < p.regions[i-1].End() {
			return nil, fmt.Errorf("regions %s and %s overlap", p.regions[i-1], p.regions[i])
		}
	}

	return p, nil
}

// Regions returns every region in the dump, readable or not
func (p *ProcessDump) Regions() []memory_map.MemoryRegion {
	result := make([]memory_map.MemoryRegion, len(p.regions))
	copy(result, p.regions)
	return result
}

// Blob returns the stored content of the region at addr
func (p *ProcessDump) Blob(addr uint64) (*ProcessBlob, bool) {
	b, ok := p.blobs[addr]
	return b, ok
}

// ReadError returns the recorded read failure of the region at addr
func (p *ProcessDump) ReadError(addr uint64) (string, bool) {
	msg, ok := p.failed[addr]
	return msg, ok
}

// EnumerationError is the recorded listing failure, "" if the walk completed
func (p *ProcessDump) EnumerationError() string {
	return p.enumErr
}

// Captured returns how many stored bytes can be read starting at addr
func (p *ProcessDump) Captured(addr process.ProcessMemoryAddress) uint64 {
	region, ok := memory_map.Find(uint64(addr), p.regions)
	if !ok {
		return 0
	}
	blob, ok := p.blobs[region.Address]
	if !ok {
		return 0
	}
	return blob.Remaining(addr)
}

// ReadMemory reads an arbitrary range inside one stored region
func (p *ProcessDump) ReadMemory(addr process.ProcessMemoryAddress, size uint64) ([]byte, error) {
	region, ok := memory_map.Find(uint64(addr), p.regions)
	if !ok {
		return nil, fmt.Errorf("address %s is not in any region of the dump", addr)
	}

	blob, ok := p.blobs[region.Address]
	if !ok {
		return nil, fmt.Errorf("%w: region %s: %s", process.ErrReadFailed, process.ProcessMemoryAddress(region.Address), p.failed[region.Address])
	}

	return blob.ReadMemory(addr, size)
}
