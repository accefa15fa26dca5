package engine

import "fmt"

// Limits are the per-workspace resource constraints enforced both by the
// workspace service (so a bad request never reaches the daemon) and here
// (so a caller that skips validation cannot get a container with
// unbounded resources).
type Limits struct {
	CPUQuota    float64
	MemoryBytes int64
}

// cpuPeriodMicros is the fixed CFS period the daemon applies CPUQuota
// against. A quota of 1.0 CPU at this period is a NanoCPUs value of 1e9.
const cpuPeriodMicros = 100000

// Validate enforces the bounds from spec §3: 0 < cpu <= 8,
// 128 MiB <= memory <= 8 GiB. min/max come from configuration so the
// operator can tighten or loosen the memory band without a code change;
// the CPU ceiling of 8 is fixed by the spec.
func (l Limits) Validate(minMemory, maxMemory int64) error {
	if l.CPUQuota <= 0 || l.CPUQuota > 8 {
		return fmt.Errorf("%w: cpu quota must be in (0, 8], got %v", ErrInvalidLimits, l.CPUQuota)
	}
	if l.MemoryBytes < minMemory || l.MemoryBytes > maxMemory {
		return fmt.Errorf("%w: memory bytes must be in [%d, %d], got %d", ErrInvalidLimits, minMemory, maxMemory, l.MemoryBytes)
	}
	return nil
}

// nanoCPUs converts the quota into the docker API's NanoCPUs field
// (billionths of a CPU), the unit container.Resources expects.
func (l Limits) nanoCPUs() int64 {
	return int64(l.CPUQuota * 1e9)
}
