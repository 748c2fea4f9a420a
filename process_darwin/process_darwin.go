//go:build darwin && cgo

package process_darwin

/*
#include <mach/mach.h>
#include <mach/mach_error.h>
#include <mach/mach_traps.h>
#include <mach/mach_vm.h>

static kern_return_t open_task(int pid, task_t *task) {
	return task_for_pid(mach_task_self(), pid, task);
}

static kern_return_t close_task(task_t task) {
	return mach_port_deallocate(mach_task_self(), task);
}

static kern_return_t region_at(task_t task, mach_vm_address_t *addr, mach_vm_size_t *size,
		natural_t *depth, vm_region_submap_info_data_64_t *info) {
	mach_msg_type_number_t count = VM_REGION_SUBMAP_INFO_COUNT_64;
	return mach_vm_region_recurse(task, addr, size, depth, (vm_region_recurse_info_t)info, &count);
}

static kern_return_t read_at(task_t task, mach_vm_address_t addr, mach_vm_size_t size,
		void *buf, mach_vm_size_t *outsize) {
	return mach_vm_read_overwrite(task, addr, size, (mach_vm_address_t)buf, outsize);
}
*/
import "C"

import (
	"errors"
	"fmt"
	"sync"
	"unsafe"

	"regiondump/process"
	"regiondump/process/memory_map"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
	"golang.org/x/sys/unix"
)

// maxSubmapDepth bounds the descent into nested submaps for one query
const maxSubmapDepth = 64

type kernError C.kern_return_t

func (e kernError) Error() string {
	return fmt.Sprintf("%s (kern_return %d)", C.GoString(C.mach_error_string(C.mach_error_t(e))), int(e))
}

// DarwinProcess implements process.Backend over Mach task ports
type DarwinProcess struct {
	log *logger.Logger
}

var _ process.Backend = (*DarwinProcess)(nil)

// New creates the macOS backend
func New() *DarwinProcess {
	return &DarwinProcess{
		log: logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, "process-darwin")),
	}
}

func (b *DarwinProcess) Name() string {
	return "darwin"
}

// SharedReads is true: mach_vm_read_overwrite on one task port is safe from
// several threads.
func (b *DarwinProcess) SharedReads() bool {
	return true
}

type darwinHandle struct {
	pid  process.ProcessID
	task C.task_t
	log  *logger.Logger

	mu     sync.Mutex
	closed bool
	depth  C.natural_t
}

func (h *darwinHandle) PID() process.ProcessID {
	return h.pid
}

// Close drops the send right task_for_pid gave us
func (h *darwinHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return process.ErrProcessNotOpen
	}
	h.closed = true

	if kr := C.close_task(h.task); kr != C.KERN_SUCCESS {
		return fmt.Errorf("mach_port_deallocate: %w", kernError(kr))
	}

	h.log.Debugln("Process closed")
	return nil
}

// Open checks the process exists and then asks for its task port, which
// needs the debugger entitlement or root.
func (b *DarwinProcess) Open(pid process.ProcessID) (process.Handle, error) {
	if !pid.Valid() {
		return nil, fmt.Errorf("%w: invalid pid %d", process.ErrNoSuchProcess, pid)
	}

	if err := unix.Kill(int(pid), 0); errors.Is(err, unix.ESRCH) {
		return nil, fmt.Errorf("%w: kill(%d, 0): %v", process.ErrNoSuchProcess, pid, err)
	}

	var task C.task_t
	if kr := C.open_task(C.int(pid), &task); kr != C.KERN_SUCCESS {
		// task_for_pid reports KERN_FAILURE for both a vanished process and a
		// refused one, so look again.
		if err := unix.Kill(int(pid), 0); errors.Is(err, unix.ESRCH) {
			return nil, fmt.Errorf("%w: task_for_pid(%d): %v", process.ErrNoSuchProcess, pid, kernError(kr))
		}
		return nil, fmt.Errorf("%w: task_for_pid(%d): %v", process.ErrPermissionDenied, pid, kernError(kr))
	}

	h := &darwinHandle{
		pid:  pid,
		task: task,
		log:  logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, fmt.Sprintf("process-%d", pid))),
	}
	h.log.Debugln("Process opened")

	return h, nil
}

func (b *DarwinProcess) handle(h process.Handle) (*darwinHandle, error) {
	dh, ok := h.(*darwinHandle)
	if !ok {
		return nil, process.ErrProcessNotOpen
	}

	dh.mu.Lock()
	closed := dh.closed
	dh.mu.Unlock()

	if closed {
		return nil, process.ErrProcessNotOpen
	}
	return dh, nil
}

// ListRegions walks the task with mach_vm_region_recurse, descending into
// submaps (the shared cache lives in one) so the leaf regions are reported.
func (b *DarwinProcess) ListRegions(h process.Handle) ([]memory_map.MemoryRegion, error) {
	dh, err := b.handle(h)
	if err != nil {
		return nil, err
	}

	dh.mu.Lock()
	defer dh.mu.Unlock()
	dh.depth = 0

	query := func(addr uint64) (memory_map.MemoryRegion, bool, error) {
		for i := 0; i < maxSubmapDepth; i++ {
			var (
				address = C.mach_vm_address_t(addr)
				size    C.mach_vm_size_t
				info    C.vm_region_submap_info_data_64_t
			)

			kr := C.region_at(dh.task, &address, &size, &dh.depth, &info)
			if kr == C.KERN_INVALID_ADDRESS {
				return memory_map.MemoryRegion{}, false, nil
			}
			if kr != C.KERN_SUCCESS {
				return memory_map.MemoryRegion{}, false, fmt.Errorf("mach_vm_region_recurse: %w", kernError(kr))
			}

			if info.is_submap != 0 {
				dh.depth++
				continue
			}

			return memory_map.MemoryRegion{
				Address:    uint64(address),
				Size:       uint64(size),
				Protection: decodeProtection(int32(info.protection), uint8(info.share_mode)),
			}, true, nil
		}
		return memory_map.MemoryRegion{}, false, fmt.Errorf("submaps nested deeper than %d at 0x%x", maxSubmapDepth, addr)
	}

	regions, err := process.WalkRegions(query)
	if err != nil {
		dh.log.Warn("Region walk stopped early after ", len(regions), " regions: ", err)
	}
	dh.log.Debugln("Listed", len(regions), "readable regions")

	return regions, err
}

// ReadRegion copies one region with mach_vm_read_overwrite
func (b *DarwinProcess) ReadRegion(h process.Handle, region memory_map.MemoryRegion) (process.RegionContent, error) {
	dh, err := b.handle(h)
	if err != nil {
		return process.RegionContent{}, err
	}
	if err := process.CheckRegion(region); err != nil {
		return process.RegionContent{}, err
	}

	buf := make([]byte, region.Size)
	var n C.mach_vm_size_t
	kr := C.read_at(dh.task, C.mach_vm_address_t(region.Address), C.mach_vm_size_t(len(buf)), unsafe.Pointer(&buf[0]), &n)
	if kr != C.KERN_SUCCESS {
		return process.RegionContent{}, fmt.Errorf("%w: mach_vm_read_overwrite 0x%x: %v", process.ErrReadFailed, region.Address, kernError(kr))
	}
	if n == 0 {
		return process.RegionContent{}, fmt.Errorf("%w: mach_vm_read_overwrite 0x%x: no bytes read", process.ErrReadFailed, region.Address)
	}

	return process.RegionContent{
		Address: process.ProcessMemoryAddress(region.Address),
		Data:    buf[:n],
	}, nil
}
