package storage

import (
	"context"
	"fmt"

	"github.com/jpnorenam/legacy-patcher/pkg/types"
)

type mockCache struct {
	lastApplied string
	machineInfo *types.HardwareSnapshot
}

// NewMockCache serves machine instead of probing, for tests and offline runs.
func NewMockCache(machine *types.HardwareSnapshot) Cache {
	return &mockCache{machineInfo: machine}
}

func (c *mockCache) SetLastApplied(fingerprint string) error {
	c.lastApplied = fingerprint
	return nil
}

func (c *mockCache) GetLastApplied() (string, error) {
	return c.lastApplied, nil
}

func (c *mockCache) GetMachineInfo(context.Context) (*types.HardwareSnapshot, error) {
	if c.machineInfo == nil {
		return nil, fmt.Errorf("no machine info available")
	}
	return c.machineInfo, nil
}
