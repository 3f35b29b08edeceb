package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jpnorenam/legacy-patcher/pkg/types"
)

func TestLastApplied(t *testing.T) {
	c := NewCache(NewFileStorage(filepath.Join(t.TempDir(), "config.yaml")))

	got, err := c.GetLastApplied()
	if err != nil {
		t.Fatal(err)
	}
	if got != "" {
		t.Errorf("got %q before any apply", got)
	}

	if err := c.SetLastApplied("9f2c41d0aa13e5b7"); err != nil {
		t.Fatal(err)
	}
	got, err = c.GetLastApplied()
	if err != nil {
		t.Fatal(err)
	}
	if got != "9f2c41d0aa13e5b7" {
		t.Errorf("got %q", got)
	}

	if err := c.SetLastApplied(""); err == nil {
		t.Error("empty fingerprint accepted")
	}
}

func TestCachedMachineInfo(t *testing.T) {
	c := &cache{
		storage:             NewFileStorage(filepath.Join(t.TempDir(), "config.yaml")),
		machineInfoTempFile: filepath.Join(t.TempDir(), "machine.json"),
	}
	machine := types.HardwareSnapshot{
		RealModel: "iMac9,1",
		Gpus:      []types.GpuDevice{{VendorId: types.VendorNvidia, DeviceId: 0x0861, ClassCode: 0x030000}},
	}
	if err := c.setMachineInfo(machine); err != nil {
		t.Fatal(err)
	}

	got, err := c.GetMachineInfo(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got.RealModel != "iMac9,1" || len(got.Gpus) != 1 || got.Gpus[0].DeviceId != 0x0861 {
		t.Errorf("got %+v", got)
	}
}

func TestMockCache(t *testing.T) {
	if _, err := NewMockCache(nil).GetMachineInfo(context.Background()); err == nil {
		t.Error("expected an error without a machine")
	}
	c := NewMockCache(&types.HardwareSnapshot{RealModel: "MacBookPro9,1"})
	got, err := c.GetMachineInfo(context.Background())
	if err != nil || got.RealModel != "MacBookPro9,1" {
		t.Errorf("got %v, %v", got, err)
	}
}
