package process_blob

import (
	"fmt"
	"sync"

	"regiondump/process"
	"regiondump/process/memory_map"
)

type snapshotHandle struct {
	pid process.ProcessID

	mu     sync.Mutex
	closed bool
}

func (h *snapshotHandle) PID() process.ProcessID {
	return h.pid
}

func (h *snapshotHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return process.ErrProcessNotOpen
	}
	h.closed = true
	return nil
}

func (p *ProcessDump) Name() string {
	return "snapshot"
}

func (p *ProcessDump) SharedReads() bool {
	return true
}

// Open succeeds only for the pid the dump was taken from
func (p *ProcessDump) Open(pid process.ProcessID) (process.Handle, error) {
	if pid != p.PID {
		return nil, fmt.Errorf("%w: dump holds process %d, not %d", process.ErrNoSuchProcess, p.PID, pid)
	}
	return &snapshotHandle{pid: pid}, nil
}

func (p *ProcessDump) check(h process.Handle) error {
	sh, ok := h.(*snapshotHandle)
	if !ok || sh.pid != p.PID {
		return process.ErrProcessNotOpen
	}

	sh.mu.Lock()
	defer sh.mu.Unlock()
	if sh.closed {
		return process.ErrProcessNotOpen
	}
	return nil
}

// ListRegions replays the recorded listing, including a recorded early stop
func (p *ProcessDump) ListRegions(h process.Handle) ([]memory_map.MemoryRegion, error) {
	if err := p.check(h); err != nil {
		return nil, err
	}

	regions := p.Regions()
	if p.enumErr != "" {
		return regions, fmt.Errorf("%w: recorded: %s", process.ErrEnumerationFailed, p.enumErr)
	}
	return regions, nil
}

// ReadRegion returns the stored bytes of a region, or the recorded failure
func (p *ProcessDump) ReadRegion(h process.Handle, region memory_map.MemoryRegion) (process.RegionContent, error) {
	if err := p.check(h); err != nil {
		return process.RegionContent{}, err
	}
	if err := process.CheckRegion(region); err != nil {
		return process.RegionContent{}, err
	}

	blob, ok := p.blobs[region.Address]
	if !ok {
		if msg, failed := p.failed[region.Address]; failed {
			return process.RegionContent{}, fmt.Errorf("%w: recorded: %s", process.ErrReadFailed, msg)
		}
		return process.RegionContent{}, fmt.Errorf("%w: no region at %s in the dump", process.ErrReadFailed, process.ProcessMemoryAddress(region.Address))
	}

	data := blob.Data()
	if uint64(len(data)) > region.Size {
		data = data[:region.Size]
	}
	if len(data) == 0 {
		return process.RegionContent{}, fmt.Errorf("%w: region %s has no stored bytes", process.ErrReadFailed, process.ProcessMemoryAddress(region.Address))
	}

	return process.RegionContent{
		Address: process.ProcessMemoryAddress(region.Address),
		Data:    data,
	}, nil
}
