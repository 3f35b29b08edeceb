package classifier

import (
	"testing"

	"github.com/go-test/deep"
	"github.com/jpnorenam/legacy-patcher/pkg/catalog"
	"github.com/jpnorenam/legacy-patcher/pkg/types"
)

func newClassifier(t *testing.T) *Classifier {
	t.Helper()
	c, err := catalog.Default()
	if err != nil {
		t.Fatalf("loading catalog: %v", err)
	}
	return New(c)
}

func TestClassifyGpu(t *testing.T) {
	cl := newClassifier(t)

	tests := []struct {
		name   string
		vendor types.HexInt
		device types.HexInt
		want   types.GpuArchitecture
	}{
		{"kepler gk107", types.VendorNvidia, 0x0FC0, types.GpuKepler},
		{"kepler gk104", types.VendorNvidia, 0x1180, types.GpuKepler},
		{"tesla 9400m", types.VendorNvidia, 0x0861, types.GpuTesla},
		{"terascale 2", types.VendorAMD, 0x6741, types.GpuTeraScale2},
		{"polaris", types.VendorAMD, 0x67DF, types.GpuPolaris},
		{"hd 4000", types.VendorIntel, 0x0166, types.GpuIvyBridge},
		{"hd 5000", types.VendorIntel, 0x0A26, types.GpuHaswell},
		{"unknown nvidia device", types.VendorNvidia, 0xFFFF, types.GpuUnknown},
		{"vendor without buckets", types.VendorBroadcom, 0x0FC0, types.GpuUnknown},
		{"zero ids", 0, 0, types.GpuUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cl.ClassifyGpu(tt.vendor, tt.device); got != tt.want {
				t.Fatalf("ClassifyGpu(%s, %s) = %q, want %q", tt.vendor, tt.device, got, tt.want)
			}
		})
	}
}

// Every listed id classifies into its own bucket.
func TestClassifyGpuRoundTrip(t *testing.T) {
	c, err := catalog.Default()
	if err != nil {
		t.Fatalf("loading catalog: %v", err)
	}
	cl := New(c)

	for _, vendor := range c.Pci.Gpu {
		for _, bucket := range vendor.Architectures {
			for _, id := range bucket.DeviceIds {
				if got := cl.ClassifyGpu(vendor.VendorId, id); got != bucket.Name {
					t.Errorf("%s:%s classified as %q, want %q", vendor.VendorId, id, got, bucket.Name)
				}
			}
		}
	}
}

func TestClassifyWireless(t *testing.T) {
	cl := newClassifier(t)

	tests := []struct {
		name   string
		vendor types.HexInt
		device types.HexInt
		want   types.WirelessChipset
	}{
		{"bcm94360", types.VendorBroadcom, 0x43BA, types.WirelessBrcmNIC},
		{"bcm4360", types.VendorBroadcom, 0x4331, types.WirelessBrcm4360},
		{"bcm4331", types.VendorBroadcom, 0x432B, types.WirelessBrcm4331},
		{"bcm43224", types.VendorBroadcom, 0x4328, types.WirelessBrcm43224},
		{"atheros", types.VendorAtheros, 0x0030, types.WirelessAtheros40},
		{"unknown broadcom", types.VendorBroadcom, 0x0001, types.WirelessUnknown},
		{"intel wireless", types.VendorIntel, 0x2723, types.WirelessUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cl.ClassifyWireless(tt.vendor, tt.device); got != tt.want {
				t.Fatalf("ClassifyWireless(%s, %s) = %q, want %q", tt.vendor, tt.device, got, tt.want)
			}
		})
	}
}

func TestClassifyEthernet(t *testing.T) {
	cl := newClassifier(t)

	tests := []struct {
		vendor types.HexInt
		device types.HexInt
		want   types.EthernetChipset
	}{
		{types.VendorBroadcom, 0x16B4, types.EthernetBCM5701},
		{types.VendorIntel, 0x1533, types.EthernetIntelI210},
		{types.VendorIntel, 0x10F6, types.EthernetIntel82574L},
		{types.VendorMarvell, 0x4364, types.EthernetUnknown},
		{types.VendorSysKonnect, 0x4365, types.EthernetMarvell},
		{types.VendorNvidia, 0x0AB0, types.EthernetNForce},
		{types.VendorAtheros, 0x0030, types.EthernetUnknown},
	}
	for _, tt := range tests {
		if got := cl.ClassifyEthernet(tt.vendor, tt.device); got != tt.want {
			t.Errorf("ClassifyEthernet(%s, %s) = %q, want %q", tt.vendor, tt.device, got, tt.want)
		}
	}
}

func TestIsDisplayController(t *testing.T) {
	tests := []struct {
		class types.HexInt
		want  bool
	}{
		{0x0300, true},
		{0x030000, true},
		{0x0302, true},
		{0x0001, true},
		{0x0280, false},
		{0x028000, false},
		{0x0403, false},
	}
	for _, tt := range tests {
		if got := IsDisplayController(tt.class); got != tt.want {
			t.Errorf("IsDisplayController(%s) = %v, want %v", tt.class, got, tt.want)
		}
	}
	if !IsWirelessController(0x028000) || IsWirelessController(0x020000) {
		t.Fatalf("wireless class check failed")
	}
	if !IsNetworkController(0x020000) {
		t.Fatalf("0x020000 should be a network controller")
	}
}

func TestEnrich(t *testing.T) {
	cl := newClassifier(t)

	snapshot := types.HardwareSnapshot{
		RealModel: "MacBookPro9,1",
		Gpus: []types.GpuDevice{
			{VendorId: types.VendorNvidia, DeviceId: 0x0FD5, ClassCode: 0x030000, PciPath: "PciRoot(0x0)/Pci(0x1,0x0)/Pci(0x0,0x0)"},
			{VendorId: types.VendorIntel, DeviceId: 0x0166, ClassCode: 0x030000, PciPath: "PciRoot(0x0)/Pci(0x2,0x0)"},
		},
		Wireless: &types.WirelessDevice{VendorId: types.VendorBroadcom, DeviceId: 0x4331},
		Ethernet: []types.EthernetDevice{{VendorId: types.VendorBroadcom, DeviceId: 0x16B4}},
	}

	got := cl.Enrich(snapshot)

	igpu, dgpu := 1, 0
	want := snapshot.Clone()
	want.Gpus[0].Architecture = types.GpuKepler
	want.Gpus[1].Architecture = types.GpuIvyBridge
	want.Wireless.ChipsetFamily = types.WirelessBrcm4360
	want.Ethernet[0].Chipset = types.EthernetBCM5701
	want.Igpu = &igpu
	want.Dgpu = &dgpu

	if diff := deep.Equal(got, want); diff != nil {
		t.Fatalf("unexpected enriched snapshot: %v", diff)
	}
	if snapshot.Gpus[0].Architecture != "" || snapshot.Wireless.ChipsetFamily != "" {
		t.Fatalf("input snapshot was modified")
	}
}

func TestEnrichKeepsProbedRoles(t *testing.T) {
	cl := newClassifier(t)

	igpu := 1
	snapshot := types.HardwareSnapshot{
		RealModel: "iMac9,1",
		Gpus: []types.GpuDevice{
			{VendorId: types.VendorAMD, DeviceId: 0x9488},
			{VendorId: types.VendorNvidia, DeviceId: 0x0861},
		},
		Igpu: &igpu,
	}

	got := cl.Enrich(snapshot)
	if got.Igpu == nil || *got.Igpu != 1 {
		t.Fatalf("probed igpu role was not kept: %v", got.Igpu)
	}
	if got.Dgpu != nil {
		t.Fatalf("dgpu should stay unset, got %d", *got.Dgpu)
	}
	if got.IntegratedGpu().Architecture != types.GpuTesla {
		t.Fatalf("igpu architecture = %q", got.IntegratedGpu().Architecture)
	}
}

func TestAssignRolesByRegistryName(t *testing.T) {
	gpus := []types.GpuDevice{
		{VendorId: types.VendorNvidia, RegistryName: "IGPU"},
		{VendorId: types.VendorAMD, RegistryName: "GFX0"},
	}
	igpu, dgpu := assignRoles(gpus)
	if igpu == nil || *igpu != 0 || dgpu == nil || *dgpu != 1 {
		t.Fatalf("unexpected roles igpu=%v dgpu=%v", igpu, dgpu)
	}

	igpu, dgpu = assignRoles([]types.GpuDevice{{VendorId: types.VendorIntel}})
	if igpu == nil || dgpu != nil {
		t.Fatalf("intel gpu without path should be integrated")
	}
}
