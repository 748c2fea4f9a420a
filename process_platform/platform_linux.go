//go:build linux

package process_platform

import (
	"regiondump/process"
	"regiondump/process_linux"
)

func newBackend() process.Backend {
	return process_linux.New()
}
