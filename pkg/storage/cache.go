package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/canonical/go-snapctl/env"

	"github.com/jpnorenam/legacy-patcher/pkg/constants"
	"github.com/jpnorenam/legacy-patcher/pkg/hardware_info"
	"github.com/jpnorenam/legacy-patcher/pkg/types"
)

type Cache interface {
	// GetMachineInfo returns the probed snapshot, probing on a cache miss.
	GetMachineInfo(ctx context.Context) (*types.HardwareSnapshot, error)
	// SetLastApplied records the fingerprint of the last plan applied to the system volume.
	SetLastApplied(fingerprint string) error
	GetLastApplied() (string, error)
}

type cache struct {
	storage             storage
	machineInfoTempFile string
}

// NewCache keeps small values in s and the probed snapshot in a temporary
// file, which is dropped on reboot.
func NewCache(s storage) Cache {
	revision := env.SnapRevision()
	if revision == "" {
		revision = constants.PatcherVersion
	}
	return &cache{
		storage:             s,
		machineInfoTempFile: filepath.Join(os.TempDir(), "legacy-patcher-machine-"+revision+".json"),
	}
}

// NewDefaultCache uses the same backend NewConfig would.
func NewDefaultCache(path string) Cache {
	if env.Snap() != "" {
		return NewCache(NewSnapctlStorage())
	}
	return NewCache(NewFileStorage(path))
}

const (
	cacheKeyPrefix = "cache."
	lastAppliedKey = cacheKeyPrefix + "last-applied"
)

func (c *cache) SetLastApplied(fingerprint string) error {
	if fingerprint == "" {
		return fmt.Errorf("fingerprint cannot be empty")
	}

	return c.storage.Set(lastAppliedKey, fingerprint)
}

// GetLastApplied returns the fingerprint of the last applied plan, or an empty string if none was applied
func (c *cache) GetLastApplied() (string, error) {
	data, err := c.storage.Get(lastAppliedKey)
	if err != nil {
		if errors.Is(err, ErrorNotFound) { // cache miss, nothing applied yet
			return "", nil
		}
		return "", err
	}

	value, _ := data[lastAppliedKey].(string)
	return value, nil
}

func (c *cache) setMachineInfo(machine types.HardwareSnapshot) error {

	b, err := json.Marshal(machine)
	if err != nil {
		return fmt.Errorf("error marshalling machine info to json: %v", err)
	}

	err = os.WriteFile(c.machineInfoTempFile, b, 0644)
	if err != nil {
		return fmt.Errorf("error writing machine info to temp file: %v", err)
	}

	return nil
}

func (c *cache) GetMachineInfo(ctx context.Context) (*types.HardwareSnapshot, error) {

	b, err := os.ReadFile(c.machineInfoTempFile)
	if err != nil {
		if os.IsNotExist(err) { // cache miss
			return c.loadMachineInfo(ctx)
		}

		return nil, fmt.Errorf("error reading machine info from temp file: %v", err)
	}

	var machine types.HardwareSnapshot
	err = json.Unmarshal(b, &machine)
	if err != nil {
		return nil, err
	}

	return &machine, nil
}

func (c *cache) loadMachineInfo(ctx context.Context) (*types.HardwareSnapshot, error) {
	machine, err := hardware_info.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("error getting machine info: %v", err)
	}

	err = c.setMachineInfo(*machine)
	if err != nil {
		return nil, fmt.Errorf("error caching machine info: %v", err)
	}

	return machine, nil
}
