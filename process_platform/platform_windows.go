//go:build windows

package process_platform

import (
	"regiondump/process"
	"regiondump/process_windows"
)

func newBackend() process.Backend {
	return process_windows.New()
}
