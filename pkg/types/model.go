package types

import (
	"strings"

	"github.com/jpnorenam/legacy-patcher/pkg/constants"
)

type Chassis string

const (
	ChassisLaptop  Chassis = "laptop"
	ChassisDesktop Chassis = "desktop"
)

// ModelCapabilityRecord is the static description of one model identifier.
type ModelCapabilityRecord struct {
	Model string `json:"model" yaml:"-"`

	BoardId          string                   `json:"board-id" yaml:"board-id"`
	FirmwareFeatures *HexInt                  `json:"firmware-features,omitempty" yaml:"firmware-features,omitempty"`
	SecureBootModel  string                   `json:"secure-boot-model,omitempty" yaml:"secure-boot-model,omitempty"`
	CpuGeneration    constants.CpuGeneration  `json:"cpu-generation" yaml:"cpu-generation"`
	MaxOSSupported   int                      `json:"max-os-supported" yaml:"max-os-supported"`
	WirelessModel    WirelessChipset          `json:"wireless-model,omitempty" yaml:"wireless-model,omitempty"`
	BluetoothModel   constants.BluetoothModel `json:"bluetooth-model" yaml:"bluetooth-model"`

	// Chassis hints
	ScreenSize      *int   `json:"screen-size,omitempty" yaml:"screen-size,omitempty"`
	SwitchableGpus  bool   `json:"switchable-gpus,omitempty" yaml:"switchable-gpus,omitempty"`
	UgaGraphics     bool   `json:"uga-graphics,omitempty" yaml:"uga-graphics,omitempty"`
	NforceChipset   bool   `json:"nforce-chipset,omitempty" yaml:"nforce-chipset,omitempty"`
	FiveKDisplay    bool   `json:"5k-display,omitempty" yaml:"5k-display,omitempty"`
	EthernetChipset string `json:"ethernet-chipset,omitempty" yaml:"ethernet-chipset,omitempty"`
}

// Family is the model identifier without its version suffix, e.g. "MacBookPro"
// for "MacBookPro9,1".
func (r ModelCapabilityRecord) Family() string {
	return ModelFamily(r.Model)
}

func (r ModelCapabilityRecord) Chassis() Chassis {
	if strings.HasPrefix(r.Model, "MacBook") {
		return ChassisLaptop
	}
	return ChassisDesktop
}

// Unbounded reports whether the newest OS release still supports the model.
func (r ModelCapabilityRecord) Unbounded() bool {
	return r.MaxOSSupported >= constants.MaxOS
}

// Bus is the chipset family used to key device path tables.
func (r ModelCapabilityRecord) Bus() string {
	if r.NforceChipset {
		return "nforce"
	}
	return "intel"
}

func ModelFamily(model string) string {
	i := strings.IndexFunc(model, func(r rune) bool { return r >= '0' && r <= '9' })
	if i < 0 {
		return model
	}
	return model[:i]
}
