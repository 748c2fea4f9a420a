//go:build darwin && cgo

package process_platform

import (
	"regiondump/process"
	"regiondump/process_darwin"
)

func newBackend() process.Backend {
	return process_darwin.New()
}
