//go:build unix && !linux

package telemetry

import (
	"fmt"
	"runtime"

	"golang.org/x/sys/unix"
)

// residentBytes falls back to ru_maxrss, the peak resident set. Darwin reports
// it in bytes, the BSDs in kilobytes.
func residentBytes() (uint64, error) {
	var ru unix.Rusage
	if err := unix.Getrusage(unix.RUSAGE_SELF, &ru); err != nil {
		return 0, fmt.Errorf("getrusage: %w", err)
	}
	if ru.Maxrss < 0 {
		return 0, nil
	}
	if runtime.GOOS == "darwin" || runtime.GOOS == "ios" {
		return uint64(ru.Maxrss), nil
	}
	return uint64(ru.Maxrss) * 1024, nil
}
