package types

import (
	"testing"

	"github.com/go-test/deep"
)

func twoGpuSnapshot() HardwareSnapshot {
	igpu, dgpu := 0, 1
	return HardwareSnapshot{
		RealModel: "MacBookPro9,1",
		Gpus: []GpuDevice{
			{VendorId: VendorIntel, DeviceId: 0x0166, ClassCode: 0x030000, Architecture: GpuIvyBridge},
			{VendorId: VendorNvidia, DeviceId: 0x0fd5, ClassCode: 0x030000, Architecture: GpuKepler},
		},
		Igpu: &igpu,
		Dgpu: &dgpu,
		Cpu:  CpuInfo{Name: "Intel(R) Core(TM) i7-3615QM", Flags: []string{"SSE4.2", "AVX1.0", "RDRAND"}},
	}
}

func TestSnapshotValidate(t *testing.T) {
	s := twoGpuSnapshot()
	if err := s.Validate(); err != nil {
		t.Fatalf("expected valid snapshot, got %v", err)
	}

	out := 2
	s.Dgpu = &out
	if err := s.Validate(); err == nil {
		t.Fatal("dgpu outside of gpus should fail")
	}

	headless := HardwareSnapshot{RealModel: "Xserve3,1"}
	if err := headless.Validate(); err != nil {
		t.Fatalf("snapshot without gpus should be valid: %v", err)
	}
	if headless.IntegratedGpu() != nil || headless.DiscreteGpu() != nil {
		t.Fatal("headless snapshot should not report gpus")
	}

	if err := (HardwareSnapshot{}).Validate(); err == nil {
		t.Fatal("missing model should fail")
	}
}

func TestSnapshotRoles(t *testing.T) {
	s := twoGpuSnapshot()
	if s.IntegratedGpu().Architecture != GpuIvyBridge {
		t.Errorf("unexpected igpu: %+v", s.IntegratedGpu())
	}
	if s.DiscreteGpu().Architecture != GpuKepler {
		t.Errorf("unexpected dgpu: %+v", s.DiscreteGpu())
	}
	if !s.HasGpuArchitecture(GpuTesla, GpuKepler) {
		t.Error("expected Kepler to be found")
	}
	if s.HasGpuArchitecture(GpuTesla) {
		t.Error("unexpected Tesla")
	}
	if !s.Cpu.HasFlag("RDRAND") || s.Cpu.HasFlag("AVX2.0") {
		t.Error("unexpected cpu flags")
	}
}

func TestSnapshotClone(t *testing.T) {
	s := twoGpuSnapshot()
	c := s.Clone()
	if diff := deep.Equal(s, c); diff != nil {
		t.Fatal(diff)
	}

	c.Gpus[0].Architecture = GpuUnknown
	*c.Igpu = 1
	c.Cpu.Flags[0] = "changed"
	if s.Gpus[0].Architecture != GpuIvyBridge || *s.Igpu != 0 || s.Cpu.Flags[0] != "SSE4.2" {
		t.Fatal("clone shares memory with the original")
	}
}

func TestModelFamily(t *testing.T) {
	tests := map[string]string{
		"MacBookPro9,1": "MacBookPro",
		"iMac9,1":       "iMac",
		"Xserve3,1":     "Xserve",
		"Custom":        "Custom",
	}
	for model, family := range tests {
		t.Run(model, func(t *testing.T) {
			if got := ModelFamily(model); got != family {
				t.Errorf("expected %s, got %s", family, got)
			}
		})
	}

	if (ModelCapabilityRecord{Model: "MacBookAir6,1"}).Chassis() != ChassisLaptop {
		t.Error("MacBookAir should be a laptop")
	}
	if (ModelCapabilityRecord{Model: "Macmini6,2"}).Chassis() != ChassisDesktop {
		t.Error("Macmini should be a desktop")
	}
}
