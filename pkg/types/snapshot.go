package types

import (
	"fmt"

	"github.com/jpnorenam/legacy-patcher/pkg/constants"
)

// HardwareSnapshot describes a probed machine. It is built once per run and
// treated as immutable afterwards; use Clone to derive a modified copy.
type HardwareSnapshot struct {
	RealModel       string `json:"real-model" yaml:"real-model"`
	RealBoardId     string `json:"real-board-id,omitempty" yaml:"real-board-id,omitempty"`
	ReportedModel   string `json:"reported-model,omitempty" yaml:"reported-model,omitempty"`
	ReportedBoardId string `json:"reported-board-id,omitempty" yaml:"reported-board-id,omitempty"`

	Gpus []GpuDevice `json:"gpus,omitempty" yaml:"gpus,omitempty"`
	// Indexes into Gpus
	Igpu *int `json:"igpu,omitempty" yaml:"igpu,omitempty"`
	Dgpu *int `json:"dgpu,omitempty" yaml:"dgpu,omitempty"`

	Wireless  *WirelessDevice           `json:"wireless,omitempty" yaml:"wireless,omitempty"`
	Ethernet  []EthernetDevice          `json:"ethernet,omitempty" yaml:"ethernet,omitempty"`
	Cpu       CpuInfo                   `json:"cpu" yaml:"cpu"`
	Bluetooth *constants.BluetoothModel `json:"bluetooth,omitempty" yaml:"bluetooth,omitempty"`
	HostOS    *HostOS                   `json:"host-os,omitempty" yaml:"host-os,omitempty"`
}

type GpuDevice struct {
	VendorId     HexInt          `json:"vendor-id" yaml:"vendor-id"`
	DeviceId     HexInt          `json:"device-id" yaml:"device-id"`
	ClassCode    HexInt          `json:"class-code" yaml:"class-code"`
	PciPath      string          `json:"pci-path,omitempty" yaml:"pci-path,omitempty"`
	RegistryName string          `json:"registry-name,omitempty" yaml:"registry-name,omitempty"`
	Architecture GpuArchitecture `json:"architecture,omitempty" yaml:"architecture,omitempty"`
}

type WirelessDevice struct {
	VendorId      HexInt          `json:"vendor-id" yaml:"vendor-id"`
	DeviceId      HexInt          `json:"device-id" yaml:"device-id"`
	PciPath       string          `json:"pci-path,omitempty" yaml:"pci-path,omitempty"`
	ChipsetFamily WirelessChipset `json:"chipset-family,omitempty" yaml:"chipset-family,omitempty"`
	CountryCode   string          `json:"country-code,omitempty" yaml:"country-code,omitempty"`
}

type EthernetDevice struct {
	VendorId HexInt          `json:"vendor-id" yaml:"vendor-id"`
	DeviceId HexInt          `json:"device-id" yaml:"device-id"`
	PciPath  string          `json:"pci-path,omitempty" yaml:"pci-path,omitempty"`
	Chipset  EthernetChipset `json:"chipset,omitempty" yaml:"chipset,omitempty"`
}

type CpuInfo struct {
	Name  string   `json:"name,omitempty" yaml:"name,omitempty"`
	Flags []string `json:"flags,omitempty" yaml:"flags,omitempty"`
}

func (c CpuInfo) HasFlag(flag string) bool {
	for _, f := range c.Flags {
		if f == flag {
			return true
		}
	}
	return false
}

// HostOS is the running kernel, e.g. 21.6.0 for macOS 12.5.
type HostOS struct {
	Major int    `json:"major" yaml:"major"`
	Minor int    `json:"minor" yaml:"minor"`
	Build string `json:"build,omitempty" yaml:"build,omitempty"`
}

func (s HardwareSnapshot) Validate() error {
	if s.RealModel == "" {
		return fmt.Errorf("required field is not set: real-model")
	}
	if s.Igpu != nil && (*s.Igpu < 0 || *s.Igpu >= len(s.Gpus)) {
		return fmt.Errorf("igpu index %d out of range, %d gpus present", *s.Igpu, len(s.Gpus))
	}
	if s.Dgpu != nil && (*s.Dgpu < 0 || *s.Dgpu >= len(s.Gpus)) {
		return fmt.Errorf("dgpu index %d out of range, %d gpus present", *s.Dgpu, len(s.Gpus))
	}
	return nil
}

func (s HardwareSnapshot) IntegratedGpu() *GpuDevice {
	if s.Igpu == nil || *s.Igpu < 0 || *s.Igpu >= len(s.Gpus) {
		return nil
	}
	gpu := s.Gpus[*s.Igpu]
	return &gpu
}

func (s HardwareSnapshot) DiscreteGpu() *GpuDevice {
	if s.Dgpu == nil || *s.Dgpu < 0 || *s.Dgpu >= len(s.Gpus) {
		return nil
	}
	gpu := s.Gpus[*s.Dgpu]
	return &gpu
}

// HasGpuArchitecture reports whether any GPU is tagged with one of archs.
func (s HardwareSnapshot) HasGpuArchitecture(archs ...GpuArchitecture) bool {
	for _, gpu := range s.Gpus {
		for _, arch := range archs {
			if gpu.Architecture == arch {
				return true
			}
		}
	}
	return false
}

// Clone returns a deep copy.
func (s HardwareSnapshot) Clone() HardwareSnapshot {
	c := s
	if s.Gpus != nil {
		c.Gpus = append([]GpuDevice(nil), s.Gpus...)
	}
	if s.Igpu != nil {
		i := *s.Igpu
		c.Igpu = &i
	}
	if s.Dgpu != nil {
		d := *s.Dgpu
		c.Dgpu = &d
	}
	if s.Wireless != nil {
		w := *s.Wireless
		c.Wireless = &w
	}
	if s.Ethernet != nil {
		c.Ethernet = append([]EthernetDevice(nil), s.Ethernet...)
	}
	if s.Cpu.Flags != nil {
		c.Cpu.Flags = append([]string(nil), s.Cpu.Flags...)
	}
	if s.Bluetooth != nil {
		b := *s.Bluetooth
		c.Bluetooth = &b
	}
	if s.HostOS != nil {
		h := *s.HostOS
		c.HostOS = &h
	}
	return c
}
