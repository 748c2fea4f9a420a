// Package process_platform picks the process.Backend compiled in for the
// running OS. The choice is made by build tags; there is no runtime switch on
// GOOS anywhere else.
package process_platform

import (
	"fmt"
	"runtime"

	"regiondump/process"
)

// New returns the native backend, or process.ErrUnsupportedPlatform when this
// binary was built for an OS without one.
func New() (process.Backend, error) {
	b := newBackend()
	if b == nil {
		return nil, fmt.Errorf("%w: %s/%s", process.ErrUnsupportedPlatform, runtime.GOOS, runtime.GOARCH)
	}
	return b, nil
}
