// Package telemetry measures one recognizer call and derives throughput and
// resource statistics from it.
package telemetry

import (
	"errors"
	"runtime"
	"time"
)

var errUnsupported = errors.New("resource counters not supported on this platform")

// Sample is a snapshot of process resource counters.
type Sample struct {
	CPUUser   time.Duration
	CPUSystem time.Duration
	// RSS is resident memory in bytes.
	RSS uint64
	// GoHeap is bytes of allocated Go heap objects.
	GoHeap uint64
}

// Sampler reads resource counters. On error the returned sample still holds
// whatever could be read; unreadable fields are 0.
type Sampler interface {
	Sample() (Sample, error)
}

// ProcessSampler samples the current process.
type ProcessSampler struct{}

func (ProcessSampler) Sample() (Sample, error) {
	var s Sample
	user, system, cpuErr := cpuTimes()
	if cpuErr == nil {
		s.CPUUser, s.CPUSystem = user, system
	}
	rss, rssErr := residentBytes()
	if rssErr == nil {
		s.RSS = rss
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	s.GoHeap = m.HeapAlloc

	return s, errors.Join(cpuErr, rssErr)
}
