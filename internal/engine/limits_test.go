package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLimitsValidate(t *testing.T) {
	const minMem = 128 << 20
	const maxMem = 8 << 30

	tests := []struct {
		name    string
		limits  Limits
		wantErr bool
	}{
		{"within bounds", Limits{CPUQuota: 1, MemoryBytes: 512 << 20}, false},
		{"cpu zero", Limits{CPUQuota: 0, MemoryBytes: 512 << 20}, true},
		{"cpu above ceiling", Limits{CPUQuota: 8.01, MemoryBytes: 512 << 20}, true},
		{"cpu at ceiling", Limits{CPUQuota: 8, MemoryBytes: 512 << 20}, false},
		{"memory below floor", Limits{CPUQuota: 1, MemoryBytes: minMem - 1}, true},
		{"memory above ceiling", Limits{CPUQuota: 1, MemoryBytes: maxMem + 1}, true},
		{"memory at floor", Limits{CPUQuota: 1, MemoryBytes: minMem}, false},
		{"memory at ceiling", Limits{CPUQuota: 1, MemoryBytes: maxMem}, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.limits.Validate(minMem, maxMem)
			if tc.wantErr {
				assert.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidLimits))
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestLimitsNanoCPUs(t *testing.T) {
	assert.Equal(t, int64(1_000_000_000), Limits{CPUQuota: 1}.nanoCPUs())
	assert.Equal(t, int64(500_000_000), Limits{CPUQuota: 0.5}.nanoCPUs())
}
