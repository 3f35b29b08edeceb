package classifier

import (
	"strings"

	"github.com/jpnorenam/legacy-patcher/pkg/catalog"
	"github.com/jpnorenam/legacy-patcher/pkg/types"
)

// Classifier maps PCI vendor/device pairs to hardware families. It holds no
// mutable state after New and its methods are safe for concurrent use.
type Classifier struct {
	gpu      map[types.HexInt][]gpuBucket
	wireless map[types.HexInt][]wirelessBucket
	ethernet map[types.HexInt][]ethernetBucket
}

type gpuBucket struct {
	arch types.GpuArchitecture
	ids  map[types.HexInt]bool
}

type wirelessBucket struct {
	chipset types.WirelessChipset
	ids     map[types.HexInt]bool
}

type ethernetBucket struct {
	chipset types.EthernetChipset
	ids     map[types.HexInt]bool
}

func New(c *catalog.Catalog) *Classifier {
	cl := &Classifier{
		gpu:      map[types.HexInt][]gpuBucket{},
		wireless: map[types.HexInt][]wirelessBucket{},
		ethernet: map[types.HexInt][]ethernetBucket{},
	}
	for _, vendor := range c.Pci.Gpu {
		for _, bucket := range vendor.Architectures {
			cl.gpu[vendor.VendorId] = append(cl.gpu[vendor.VendorId], gpuBucket{bucket.Name, idSet(bucket.DeviceIds)})
		}
	}
	for _, vendor := range c.Pci.Wireless {
		for _, bucket := range vendor.Chipsets {
			cl.wireless[vendor.VendorId] = append(cl.wireless[vendor.VendorId], wirelessBucket{bucket.Name, idSet(bucket.DeviceIds)})
		}
	}
	for _, bucket := range c.Pci.Ethernet {
		cl.ethernet[bucket.VendorId] = append(cl.ethernet[bucket.VendorId], ethernetBucket{bucket.Chipset, idSet(bucket.DeviceIds)})
	}
	return cl
}

func idSet(ids []types.HexInt) map[types.HexInt]bool {
	set := make(map[types.HexInt]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

// ClassifyGpu returns the first architecture bucket of the vendor holding
// the device id, or GpuUnknown.
func (c *Classifier) ClassifyGpu(vendorId, deviceId types.HexInt) types.GpuArchitecture {
	buckets, ok := c.gpu[vendorId]
	if !ok {
		return types.GpuUnknown
	}
	for _, bucket := range buckets {
		if bucket.ids[deviceId] {
			return bucket.arch
		}
	}
	return types.GpuUnknown
}

func (c *Classifier) ClassifyWireless(vendorId, deviceId types.HexInt) types.WirelessChipset {
	buckets, ok := c.wireless[vendorId]
	if !ok {
		return types.WirelessUnknown
	}
	for _, bucket := range buckets {
		if bucket.ids[deviceId] {
			return bucket.chipset
		}
	}
	return types.WirelessUnknown
}

// ClassifyEthernet returns the driver family for a wired controller. Every
// Nvidia network function is an nForce MCP controller.
func (c *Classifier) ClassifyEthernet(vendorId, deviceId types.HexInt) types.EthernetChipset {
	if vendorId == types.VendorNvidia {
		return types.EthernetNForce
	}
	buckets, ok := c.ethernet[vendorId]
	if !ok {
		return types.EthernetUnknown
	}
	for _, bucket := range buckets {
		if bucket.ids[deviceId] {
			return bucket.chipset
		}
	}
	return types.EthernetUnknown
}

// Class codes may be given as 16-bit class/subclass or 24-bit with the
// programming interface.
func baseClass(classCode types.HexInt) types.HexInt {
	if classCode > 0xFFFF {
		classCode >>= 8
	}
	return classCode
}

// IsDisplayController reports whether the class code is a legacy VGA device
// (00 01) or a display controller (03 xx).
func IsDisplayController(classCode types.HexInt) bool {
	class := baseClass(classCode)
	return class == 0x0001 || class&0xFF00 == 0x0300
}

// IsNetworkController reports whether the class code is a network controller (02 xx).
func IsNetworkController(classCode types.HexInt) bool {
	return baseClass(classCode)&0xFF00 == 0x0200
}

// IsWirelessController reports whether the class code is an 802.11 network
// controller (02 80, "other network" on Apple hardware).
func IsWirelessController(classCode types.HexInt) bool {
	return baseClass(classCode) == 0x0280
}

// Enrich returns a copy of snapshot with every device tagged and the GPU
// roles assigned when the probe did not set them.
func (c *Classifier) Enrich(snapshot types.HardwareSnapshot) types.HardwareSnapshot {
	s := snapshot.Clone()

	for i := range s.Gpus {
		s.Gpus[i].Architecture = c.ClassifyGpu(s.Gpus[i].VendorId, s.Gpus[i].DeviceId)
	}
	if s.Wireless != nil {
		s.Wireless.ChipsetFamily = c.ClassifyWireless(s.Wireless.VendorId, s.Wireless.DeviceId)
	}
	for i := range s.Ethernet {
		s.Ethernet[i].Chipset = c.ClassifyEthernet(s.Ethernet[i].VendorId, s.Ethernet[i].DeviceId)
	}

	if s.Igpu == nil && s.Dgpu == nil {
		s.Igpu, s.Dgpu = assignRoles(s.Gpus)
	}
	return s
}

func assignRoles(gpus []types.GpuDevice) (igpu, dgpu *int) {
	for i := range gpus {
		index := i
		if isIntegrated(gpus[i]) {
			if igpu == nil {
				igpu = &index
			}
		} else if dgpu == nil {
			dgpu = &index
		}
	}
	return igpu, dgpu
}

// The registry name decides when present. Otherwise a device directly on
// the root complex is integrated, and without a path only Intel is.
func isIntegrated(gpu types.GpuDevice) bool {
	switch strings.ToUpper(gpu.RegistryName) {
	case "IGPU":
		return true
	case "GFX0", "GFX1", "DISPLAY":
		return false
	}
	if gpu.PciPath != "" {
		return strings.Count(gpu.PciPath, "Pci(") == 1
	}
	return gpu.VendorId == types.VendorIntel
}
