//go:build windows

package process_windows

import (
	"errors"
	"fmt"
	"sync"
	"unsafe"

	"regiondump/process"
	"regiondump/process/memory_map"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
	"golang.org/x/sys/windows"
)

const stillActive = 259

// WindowsProcess implements process.Backend with OpenProcess,
// VirtualQueryEx and ReadProcessMemory.
type WindowsProcess struct {
	log *logger.Logger
}

var _ process.Backend = (*WindowsProcess)(nil)

// New creates the Windows backend
func New() *WindowsProcess {
	return &WindowsProcess{
		log: logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, "process-windows")),
	}
}

func (b *WindowsProcess) Name() string {
	return "windows"
}

// SharedReads is true: ReadProcessMemory may be called on one process
// handle from several threads.
func (b *WindowsProcess) SharedReads() bool {
	return true
}

type windowsHandle struct {
	pid    process.ProcessID
	handle windows.Handle
	log    *logger.Logger

	mu     sync.Mutex
	closed bool
}

func (h *windowsHandle) PID() process.ProcessID {
	return h.pid
}

// Close releases the kernel handle. Skipping it leaks the handle for the
// lifetime of this process.
func (h *windowsHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return process.ErrProcessNotOpen
	}
	h.closed = true

	if err := windows.CloseHandle(h.handle); err != nil {
		return fmt.Errorf("CloseHandle failed: %w", err)
	}

	h.log.Debugln("Process closed")
	return nil
}

// Open requests PROCESS_QUERY_INFORMATION for VirtualQueryEx and
// PROCESS_VM_READ for ReadProcessMemory. Both are granted together or not at all.
func (b *WindowsProcess) Open(pid process.ProcessID) (process.Handle, error) {
	if !pid.Valid() {
		return nil, fmt.Errorf("%w: invalid pid %d", process.ErrNoSuchProcess, pid)
	}

	access := uint32(windows.PROCESS_VM_READ | windows.PROCESS_QUERY_INFORMATION)
	handle, err := windows.OpenProcess(access, false, uint32(pid))
	if err != nil {
		return nil, openError(pid, err)
	}

	// A process that has exited keeps its object alive while handles exist.
	var code uint32
	if err := windows.GetExitCodeProcess(handle, &code); err == nil && code != stillActive {
		windows.CloseHandle(handle)
		return nil, fmt.Errorf("%w: process %d exited with code %d", process.ErrNoSuchProcess, pid, code)
	}

	h := &windowsHandle{
		pid:    pid,
		handle: handle,
		log:    logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, fmt.Sprintf("process-%d", pid))),
	}
	h.log.Debugln("Process opened")

	return h, nil
}

func openError(pid process.ProcessID, err error) error {
	switch {
	case errors.Is(err, windows.ERROR_INVALID_PARAMETER):
		return fmt.Errorf("%w: OpenProcess(%d): %v", process.ErrNoSuchProcess, pid, err)
	default:
		return fmt.Errorf("%w: OpenProcess(%d): %v", process.ErrPermissionDenied, pid, err)
	}
}

func (b *WindowsProcess) handle(h process.Handle) (*windowsHandle, error) {
	wh, ok := h.(*windowsHandle)
	if !ok {
		return nil, process.ErrProcessNotOpen
	}

	wh.mu.Lock()
	closed := wh.closed
	wh.mu.Unlock()

	if closed {
		return nil, process.ErrProcessNotOpen
	}
	return wh, nil
}

// ListRegions walks the address space with VirtualQueryEx. The call fails
// with ERROR_INVALID_PARAMETER once the cursor is past the highest
// user-mode address, which ends the walk.
func (b *WindowsProcess) ListRegions(h process.Handle) ([]memory_map.MemoryRegion, error) {
	wh, err := b.handle(h)
	if err != nil {
		return nil, err
	}

	query := func(addr uint64) (memory_map.MemoryRegion, bool, error) {
		var mbi windows.MemoryBasicInformation
		err := windows.VirtualQueryEx(wh.handle, uintptr(addr), &mbi, unsafe.Sizeof(mbi))
		if errors.Is(err, windows.ERROR_INVALID_PARAMETER) {
			return memory_map.MemoryRegion{}, false, nil
		}
		if err != nil {
			return memory_map.MemoryRegion{}, false, fmt.Errorf("VirtualQueryEx: %w", err)
		}

		return memory_map.MemoryRegion{
			Address:    uint64(mbi.BaseAddress),
			Size:       uint64(mbi.RegionSize),
			Protection: decodeProtection(mbi.State, mbi.Protect, mbi.Type),
		}, true, nil
	}

	regions, err := process.WalkRegions(query)
	if err != nil {
		wh.log.Warn("Region walk stopped early after ", len(regions), " regions: ", err)
	}
	wh.log.Debugln("Listed", len(regions), "readable regions")

	return regions, err
}

// ReadRegion copies one region with ReadProcessMemory. ERROR_PARTIAL_COPY
// with a non-zero byte count is a short read, not a failure.
func (b *WindowsProcess) ReadRegion(h process.Handle, region memory_map.MemoryRegion) (process.RegionContent, error) {
	wh, err := b.handle(h)
	if err != nil {
		return process.RegionContent{}, err
	}
	if err := process.CheckRegion(region); err != nil {
		return process.RegionContent{}, err
	}

	buf := make([]byte, region.Size)
	var n uintptr
	err = windows.ReadProcessMemory(wh.handle, uintptr(region.Address), &buf[0], uintptr(len(buf)), &n)
	if err != nil && !(errors.Is(err, windows.ERROR_PARTIAL_COPY) && n > 0) {
		return process.RegionContent{}, fmt.Errorf("%w: ReadProcessMemory 0x%x: %v", process.ErrReadFailed, region.Address, err)
	}
	if n == 0 {
		return process.RegionContent{}, fmt.Errorf("%w: ReadProcessMemory 0x%x: no bytes read", process.ErrReadFailed, region.Address)
	}

	if int(n) < len(buf) {
		wh.log.Debugln("Short read at", fmt.Sprintf("0x%x", region.Address), n, "of", len(buf), "bytes")
	}

	return process.RegionContent{
		Address: process.ProcessMemoryAddress(region.Address),
		Data:    buf[:n],
	}, nil
}
