package process

import "strconv"

// ProcessID represents a unique identifier for a process
type ProcessID int

func (pid ProcessID) Valid() bool {
	return pid > 0
}

func (pid ProcessID) String() string {
	return strconv.Itoa(int(pid))
}
