//go:build !linux && !windows && !(darwin && cgo)

package process_platform

import "regiondump/process"

// The darwin backend talks to Mach through cgo; a CGO_ENABLED=0 darwin
// build ends up here too.
func newBackend() process.Backend {
	return nil
}
