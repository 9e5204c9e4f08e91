package sysmon

import (
	"fmt"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
)

// Sampler provides the host metrics the optimizer loop consumes.
// Implementations must be safe for use from a single goroutine; the
// optimizer loop is the only caller.
type Sampler interface {
	// CPUPercent returns system-wide CPU utilization, 0-100
	CPUPercent() (float64, error)
	// MemoryPercent returns system memory utilization, 0-100
	MemoryPercent() (float64, error)
	// CoreCount returns the logical or physical core count
	CoreCount(logical bool) (int, error)
}

// System samples the host via gopsutil
type System struct{}

// NewSystem creates a host sampler
func NewSystem() *System {
	return &System{}
}

// CPUPercent returns utilization since the previous call.
// The first call after construction reports zero.
func (s *System) CPUPercent() (float64, error) {
	percents, err := cpu.Percent(0, false)
	if err != nil {
		return 0, fmt.Errorf("sample cpu: %w", err)
	}
	if len(percents) == 0 {
		return 0, fmt.Errorf("sample cpu: no data")
	}
	return percents[0], nil
}

// MemoryPercent returns system memory utilization
func (s *System) MemoryPercent() (float64, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return 0, fmt.Errorf("sample memory: %w", err)
	}
	return vm.UsedPercent, nil
}

// CoreCount returns the host core count
func (s *System) CoreCount(logical bool) (int, error) {
	n, err := cpu.Counts(logical)
	if err != nil {
		return 0, fmt.Errorf("count cores: %w", err)
	}
	if n < 1 {
		n = 1
	}
	return n, nil
}

// Static returns fixed readings. Used by tests and by deployments that
// pin the pipeline to a known resource budget.
type Static struct {
	CPU      float64
	Memory   float64
	Physical int
	Logical  int
}

func (s *Static) CPUPercent() (float64, error)    { return s.CPU, nil }
func (s *Static) MemoryPercent() (float64, error) { return s.Memory, nil }

func (s *Static) CoreCount(logical bool) (int, error) {
	if logical {
		return s.Logical, nil
	}
	return s.Physical, nil
}
