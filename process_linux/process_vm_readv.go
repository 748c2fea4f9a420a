//go:build linux

package process_linux

import (
	"fmt"

	"regiondump/process"
	"regiondump/process/memory_map"

	"golang.org/x/sys/unix"
)

// processVMReadv copies len(buf) bytes at remoteAddr of pid into buf with a
// single process_vm_readv call and returns how many bytes the kernel copied.
// The kernel stops at the first unreadable page, so n may be short.
func processVMReadv(pid process.ProcessID, buf []byte, remoteAddr uint64) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}

	localIov := []unix.Iovec{{Base: &buf[0]}}
	localIov[0].SetLen(len(buf))

	remoteIov := []unix.RemoteIovec{{
		Base: uintptr(remoteAddr),
		Len:  len(buf),
	}}

	n, err := unix.ProcessVMReadv(int(pid), localIov, remoteIov, 0)
	if err != nil {
		return 0, fmt.Errorf("process_vm_readv: %w", err)
	}

	return n, nil
}

// ReadRegion copies one region out of the process
func (b *LinuxProcess) ReadRegion(h process.Handle, region memory_map.MemoryRegion) (process.RegionContent, error) {
	lh, err := b.handle(h)
	if err != nil {
		return process.RegionContent{}, err
	}
	if err := process.CheckRegion(region); err != nil {
		return process.RegionContent{}, err
	}

	buf := make([]byte, region.Size)
	n, err := processVMReadv(lh.pid, buf, region.Address)
	if err != nil {
		return process.RegionContent{}, fmt.Errorf("%w: 0x%x: %v", process.ErrReadFailed, region.Address, err)
	}
	if n == 0 {
		return process.RegionContent{}, fmt.Errorf("%w: 0x%x: no bytes read", process.ErrReadFailed, region.Address)
	}

	// The bytes may belong to whatever took over the pid.
	if !lh.alive() {
		return process.RegionContent{}, fmt.Errorf("%w: process %d exited", process.ErrReadFailed, lh.pid)
	}

	if n < len(buf) {
		lh.log.Debugln("Short read at", fmt.Sprintf("0x%x", region.Address), n, "of", len(buf), "bytes")
	}

	return process.RegionContent{
		Address: process.ProcessMemoryAddress(region.Address),
		Data:    buf[:n],
	}, nil
}
