package catalog

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/jpnorenam/legacy-patcher/pkg/types"
)

type GpuVendor struct {
	VendorId      types.HexInt `yaml:"vendor-id" json:"vendor-id"`
	Architectures []GpuBucket  `yaml:"architectures" json:"architectures"`
}

type GpuBucket struct {
	Name      types.GpuArchitecture `yaml:"name" json:"name"`
	DeviceIds []types.HexInt        `yaml:"device-ids" json:"device-ids"`
}

type WirelessVendor struct {
	VendorId types.HexInt     `yaml:"vendor-id" json:"vendor-id"`
	Chipsets []WirelessBucket `yaml:"chipsets" json:"chipsets"`
}

type WirelessBucket struct {
	Name      types.WirelessChipset `yaml:"name" json:"name"`
	DeviceIds []types.HexInt        `yaml:"device-ids" json:"device-ids"`
}

type EthernetBucket struct {
	VendorId  types.HexInt          `yaml:"vendor-id" json:"vendor-id"`
	Chipset   types.EthernetChipset `yaml:"chipset" json:"chipset"`
	DeviceIds []types.HexInt        `yaml:"device-ids" json:"device-ids"`
}

type PciIds struct {
	Gpu      []GpuVendor      `yaml:"gpu"`
	Wireless []WirelessVendor `yaml:"wireless"`
	Ethernet []EthernetBucket `yaml:"ethernet"`
}

// PathTable resolves a firmware device path for a model. Model entries win;
// otherwise the first chassis entry matching the model's chassis and bus.
type PathTable struct {
	Models  map[string]string `yaml:"models,omitempty" json:"models,omitempty"`
	Chassis []ChassisPath     `yaml:"chassis,omitempty" json:"chassis,omitempty"`
}

type ChassisPath struct {
	Chassis types.Chassis `yaml:"chassis" json:"chassis"`
	// Empty matches any bus
	Bus  string `yaml:"bus,omitempty" json:"bus,omitempty"`
	Path string `yaml:"path" json:"path"`
	// Generic laptop guess, never applied to desktops
	Fallback bool `yaml:"fallback,omitempty" json:"fallback,omitempty"`
}

// Device path tables
const (
	PathWireless    = "wireless"
	PathGfx0        = "gfx0"
	PathIgpu        = "igpu"
	PathHdef        = "hdef"
	PathThunderbolt = "thunderbolt"
)

type DonorRule struct {
	Chassis        types.Chassis `yaml:"chassis" json:"chassis"`
	Family         string        `yaml:"family" json:"family"`
	MinScreen      *int          `yaml:"min-screen,omitempty" json:"min-screen,omitempty"`
	MaxScreen      *int          `yaml:"max-screen,omitempty" json:"max-screen,omitempty"`
	MaxOS          *int          `yaml:"max-os,omitempty" json:"max-os,omitempty"`
	SwitchableGpus *bool         `yaml:"switchable-gpus,omitempty" json:"switchable-gpus,omitempty"`
	Donor          string        `yaml:"donor" json:"donor"`
}

type PatchSets struct {
	Shared   []PatchSet `yaml:"shared"`
	Hardware []PatchSet `yaml:"hardware"`
}

// PatchSet is a group of system volume changes. Hardware sets carry
// triggers and native-until; shared sets carry an os range and are only
// reached through a hardware set's include list.
type PatchSet struct {
	Name        string `yaml:"name" json:"name"`
	OSMin       *int   `yaml:"os-min,omitempty" json:"os-min,omitempty"`
	OSMax       *int   `yaml:"os-max,omitempty" json:"os-max,omitempty"`
	NativeUntil *int   `yaml:"native-until,omitempty" json:"native-until,omitempty"`

	GpuArchitectures []types.GpuArchitecture `yaml:"gpu-architectures,omitempty" json:"gpu-architectures,omitempty"`
	WirelessChipsets []types.WirelessChipset `yaml:"wireless-chipsets,omitempty" json:"wireless-chipsets,omitempty"`
	ModelSets        []string                `yaml:"model-sets,omitempty" json:"model-sets,omitempty"`

	Include []string       `yaml:"include,omitempty" json:"include,omitempty"`
	Install []InstallGroup `yaml:"install,omitempty" json:"install,omitempty"`
	Remove  []RemoveGroup  `yaml:"remove,omitempty" json:"remove,omitempty"`
}

type InstallGroup struct {
	Policy      types.MergePolicy `yaml:"policy" json:"policy"`
	Destination string            `yaml:"destination" json:"destination"`
	OSMin       *int              `yaml:"os-min,omitempty" json:"os-min,omitempty"`
	OSMax       *int              `yaml:"os-max,omitempty" json:"os-max,omitempty"`
	// File name to source version
	Files map[string]string `yaml:"files" json:"files"`
}

type RemoveGroup struct {
	Destination string   `yaml:"destination" json:"destination"`
	Files       []string `yaml:"files" json:"files"`
}

// InRange reports whether kernel falls inside [min, max]; unset bounds are open.
func InRange(kernel int, min, max *int) bool {
	if min != nil && kernel < *min {
		return false
	}
	if max != nil && kernel > *max {
		return false
	}
	return true
}

// SourceVersion expands "{os}" in a source version to the kernel major.
func SourceVersion(version string, kernel int) string {
	return strings.ReplaceAll(version, "{os}", strconv.Itoa(kernel))
}

type WirelessStrategy string

const (
	WirelessNative       WirelessStrategy = "native"
	WirelessFakeId       WirelessStrategy = "fake-id"
	WirelessLegacyDriver WirelessStrategy = "legacy-driver"
)

type WirelessPolicy struct {
	Strategy    WirelessStrategy `yaml:"strategy" json:"strategy"`
	NativeUntil *int             `yaml:"native-until,omitempty" json:"native-until,omitempty"`
	Kexts       []string         `yaml:"kexts,omitempty" json:"kexts,omitempty"`
	Properties  []Property       `yaml:"properties,omitempty" json:"properties,omitempty"`
}

// Property is a typed device property value as written in the catalog.
type Property struct {
	Key   string `yaml:"key" json:"key"`
	Type  string `yaml:"type" json:"type"` // data, string or number
	Value string `yaml:"value" json:"value"`
}

func (p Property) Decode() (any, error) {
	switch p.Type {
	case "data":
		b, err := hex.DecodeString(p.Value)
		if err != nil {
			return nil, fmt.Errorf("property %s: %v", p.Key, err)
		}
		return types.HexBytes(b), nil
	case "string":
		return p.Value, nil
	case "number":
		n, err := strconv.Atoi(p.Value)
		if err != nil {
			return nil, fmt.Errorf("property %s: %v", p.Key, err)
		}
		return n, nil
	}
	return nil, fmt.Errorf("property %s: unknown type %q", p.Key, p.Type)
}
