//go:build !unix

package telemetry

import "time"

func cpuTimes() (user, system time.Duration, err error) {
	return 0, 0, errUnsupported
}

func residentBytes() (uint64, error) {
	return 0, errUnsupported
}
