//go:build linux

package process_linux

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"

	"regiondump/process"
	"regiondump/process/memory_map"

	"github.com/Moonlight-Companies/gologger/coloransi"
	"github.com/Moonlight-Companies/gologger/logger"
	"golang.org/x/sys/unix"
)

// LinuxProcess implements process.Backend on top of pidfd_open,
// /proc/[pid]/maps and process_vm_readv.
type LinuxProcess struct {
	log *logger.Logger
}

var _ process.Backend = (*LinuxProcess)(nil)

// New creates the Linux backend
func New() *LinuxProcess {
	return &LinuxProcess{
		log: logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, "process-linux")),
	}
}

func (b *LinuxProcess) Name() string {
	return "linux"
}

// SharedReads is true: process_vm_readv addresses the target by pid and
// keeps no per-handle state.
func (b *LinuxProcess) SharedReads() bool {
	return true
}

// linuxHandle is an open process. pidfd pins the process identity so a
// recycled pid is detected; it is -1 on kernels without pidfd_open.
type linuxHandle struct {
	pid   process.ProcessID
	pidfd int
	log   *logger.Logger

	mu     sync.Mutex
	closed bool
}

func (h *linuxHandle) PID() process.ProcessID {
	return h.pid
}

func (h *linuxHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return process.ErrProcessNotOpen
	}
	h.closed = true

	if h.pidfd >= 0 {
		if err := unix.Close(h.pidfd); err != nil {
			return fmt.Errorf("close pidfd: %w", err)
		}
	}

	h.log.Debugln("Process closed")
	return nil
}

// alive reports whether the process behind the handle still exists. Without
// a pidfd there is nothing to check against and the answer is always true.
func (h *linuxHandle) alive() bool {
	if h.pidfd < 0 {
		return true
	}
	return signalReachesProcess(unix.PidfdSendSignal(h.pidfd, 0, nil, 0))
}

// signalReachesProcess interprets the result of a signal 0 probe. EPERM means
// the process exists but we may not signal it, which says nothing about
// ptrace read access; only ESRCH means it is gone.
func signalReachesProcess(err error) bool {
	return err == nil || errors.Is(err, unix.EPERM)
}

// Open takes two references on pid: a pidfd for the process itself and an
// access check on /proc/[pid]/maps, which the kernel guards with the same
// ptrace read-mode check as process_vm_readv.
func (b *LinuxProcess) Open(pid process.ProcessID) (process.Handle, error) {
	if !pid.Valid() {
		return nil, fmt.Errorf("%w: invalid pid %d", process.ErrNoSuchProcess, pid)
	}

	pidfd, err := unix.PidfdOpen(int(pid), 0)
	if errors.Is(err, unix.ENOSYS) {
		pidfd = -1
		err = unix.Kill(int(pid), 0)
		if errors.Is(err, unix.EPERM) {
			// The process exists; signalling rights are not what we need.
			err = nil
		}
	}
	if err != nil {
		return nil, openError(pid, "pidfd_open", err)
	}

	maps, err := os.Open(fmt.Sprintf("/proc/%d/maps", pid))
	if err != nil {
		if pidfd >= 0 {
			unix.Close(pidfd)
		}
		return nil, openError(pid, "open maps", err)
	}
	maps.Close()

	h := &linuxHandle{
		pid:   pid,
		pidfd: pidfd,
		log:   logger.NewLogger(coloransi.Color(coloransi.ColorPurple, coloransi.ColorOrange, fmt.Sprintf("process-%d", pid))),
	}
	h.log.Debugln("Process opened, pidfd", pidfd)

	return h, nil
}

func openError(pid process.ProcessID, op string, err error) error {
	switch {
	case errors.Is(err, unix.ESRCH), errors.Is(err, unix.EINVAL), errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %s(%d): %v", process.ErrNoSuchProcess, op, pid, err)
	default:
		return fmt.Errorf("%w: %s(%d): %v", process.ErrPermissionDenied, op, pid, err)
	}
}

func (b *LinuxProcess) handle(h process.Handle) (*linuxHandle, error) {
	lh, ok := h.(*linuxHandle)
	if !ok {
		return nil, process.ErrProcessNotOpen
	}

	lh.mu.Lock()
	closed := lh.closed
	lh.mu.Unlock()

	if closed {
		return nil, process.ErrProcessNotOpen
	}
	return lh, nil
}

// ListRegions reads a snapshot of /proc/[pid]/maps and walks it. The pidfd
// is checked afterwards so a map read from a recycled pid is never returned.
func (b *LinuxProcess) ListRegions(h process.Handle) ([]memory_map.MemoryRegion, error) {
	lh, err := b.handle(h)
	if err != nil {
		return nil, err
	}

	snapshot, parseErr := memory_map.ReadMemoryMap(int(lh.pid))
	if parseErr != nil && len(snapshot) == 0 {
		return nil, fmt.Errorf("%w: %v", process.ErrEnumerationFailed, parseErr)
	}

	if !lh.alive() {
		return nil, fmt.Errorf("%w: process %d exited", process.ErrEnumerationFailed, lh.pid)
	}

	regions, err := process.WalkRegions(process.SnapshotQuery(snapshot, parseErr))
	if err != nil {
		lh.log.Warn("Region walk stopped early after ", len(regions), " regions: ", err)
	}
	lh.log.Debugln("Listed", len(regions), "readable regions out of", len(snapshot))

	return regions, err
}
