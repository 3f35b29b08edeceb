package types

import (
	"fmt"
	"strings"
)

// SerialStrategy selects how much of the machine identity is replaced.
// It implements pflag.Value.
type SerialStrategy string

const (
	SerialNone     SerialStrategy = "none"
	SerialMinimal  SerialStrategy = "minimal"
	SerialModerate SerialStrategy = "moderate"
	SerialAdvanced SerialStrategy = "advanced"
)

var SerialStrategies = []SerialStrategy{SerialNone, SerialMinimal, SerialModerate, SerialAdvanced}

func ParseSerialStrategy(s string) (SerialStrategy, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, strategy := range SerialStrategies {
		if string(strategy) == s {
			return strategy, nil
		}
	}
	return "", fmt.Errorf("unknown serial strategy %q, expected one of %v", s, SerialStrategies)
}

func (s SerialStrategy) String() string {
	return string(s)
}

func (s *SerialStrategy) Set(value string) error {
	strategy, err := ParseSerialStrategy(value)
	if err != nil {
		return err
	}
	*s = strategy
	return nil
}

func (s *SerialStrategy) Type() string {
	return "strategy"
}

// UserConfig carries the operator's choices into resolution.
type UserConfig struct {
	TargetModel    string         `json:"target-model,omitempty" yaml:"target-model,omitempty"`
	TargetOS       int            `json:"target-os" yaml:"target-os"`
	SerialStrategy SerialStrategy `json:"serial-strategy" yaml:"serial-strategy"`

	// Debug
	VerboseBoot   bool `json:"verbose-boot" yaml:"verbose-boot"`
	KextDebug     bool `json:"kext-debug" yaml:"kext-debug"`
	OpenCoreDebug bool `json:"opencore-debug" yaml:"opencore-debug"`

	// Boot picker
	ShowPicker bool `json:"show-picker" yaml:"show-picker"`
	Timeout    int  `json:"timeout" yaml:"timeout"`
	Vault      bool `json:"vault" yaml:"vault"`

	// Security
	SipDisabled     bool `json:"sip-disabled" yaml:"sip-disabled"`
	SecureBootModel bool `json:"secure-boot-model" yaml:"secure-boot-model"`
	RootPatch       bool `json:"root-patch" yaml:"root-patch"`

	// Hardware
	DrmPrioritize           bool `json:"drm-prioritize" yaml:"drm-prioritize"`
	DisableFirmwareThrottle bool `json:"disable-firmware-throttle" yaml:"disable-firmware-throttle"`
	NvmeBoot                bool `json:"nvme-boot" yaml:"nvme-boot"`
	XhciBoot                bool `json:"xhci-boot" yaml:"xhci-boot"`
	FirewireBoot            bool `json:"firewire-boot" yaml:"firewire-boot"`
	DisableThunderbolt      bool `json:"disable-thunderbolt" yaml:"disable-thunderbolt"`
	WakeOnWlan              bool `json:"wake-on-wlan" yaml:"wake-on-wlan"`
	DisableMediaAnalysis    bool `json:"disable-media-analysis" yaml:"disable-media-analysis"`
}

func DefaultUserConfig() UserConfig {
	return UserConfig{
		SerialStrategy: SerialMinimal,
		ShowPicker:     true,
		Timeout:        5,
		SipDisabled:    true,
		RootPatch:      true,
	}
}
