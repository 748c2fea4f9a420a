package dump

import (
	"fmt"
	"sort"

	"regiondump/process"

	gops "github.com/shirou/gopsutil/v4/process"
)

// Describe returns the executable name of pid, or "" when it cannot be
// determined.
func Describe(pid process.ProcessID) string {
	p, err := gops.NewProcess(int32(pid))
	if err != nil {
		return ""
	}
	name, err := p.Name()
	if err != nil {
		return ""
	}
	return name
}

// FindByName returns the pid of the single process called name
func FindByName(name string) (process.ProcessID, error) {
	procs, err := gops.Processes()
	if err != nil {
		return 0, fmt.Errorf("listing processes: %w", err)
	}

	var pids []int
	for _, p := range procs {
		if n, err := p.Name(); err == nil && n == name {
			pids = append(pids, int(p.Pid))
		}
	}

	switch len(pids) {
	case 0:
		return 0, fmt.Errorf("%w: no process named %q", process.ErrNoSuchProcess, name)
	case 1:
		return process.ProcessID(pids[0]), nil
	default:
		sort.Ints(pids)
		return 0, fmt.Errorf("%d processes named %q: %v", len(pids), name, pids)
	}
}
