package types

import (
	"strings"

	"github.com/mitchellh/hashstructure/v2"
)

// PatchPlan is the ordered list of actions resolved for one build. It is
// created fresh by each resolution and not modified afterwards.
type PatchPlan struct {
	TargetModel  string        `json:"target-model" yaml:"target-model"`
	SpoofedModel string        `json:"spoofed-model" yaml:"spoofed-model"`
	TargetOS     int           `json:"target-os" yaml:"target-os"`
	Spoof        SpoofDecision `json:"spoof" yaml:"spoof"`

	FirmwareActions []PatchAction `json:"firmware-actions" yaml:"firmware-actions"`
	VolumeActions   []PatchAction `json:"volume-actions" yaml:"volume-actions"`

	RequiresCacheRebuild bool       `json:"requires-cache-rebuild" yaml:"requires-cache-rebuild"`
	CacheScope           CacheScope `json:"cache-scope,omitempty" yaml:"cache-scope,omitempty"`
}

// BootArgs returns the boot argument tokens in the order they were appended.
func (p PatchPlan) BootArgs() []string {
	var args []string
	seen := map[string]bool{}
	for _, a := range p.FirmwareActions {
		if a.AppendBootArgument == nil || seen[a.AppendBootArgument.Token] {
			continue
		}
		seen[a.AppendBootArgument.Token] = true
		args = append(args, a.AppendBootArgument.Token)
	}
	return args
}

func (p PatchPlan) BootArgString() string {
	return strings.Join(p.BootArgs(), " ")
}

// EnabledKexts returns the enabled bundles in the order they were enabled.
func (p PatchPlan) EnabledKexts() []string {
	var kexts []string
	seen := map[string]bool{}
	for _, a := range p.FirmwareActions {
		if a.EnableKext == nil || seen[a.EnableKext.BundleId] {
			continue
		}
		seen[a.EnableKext.BundleId] = true
		kexts = append(kexts, a.EnableKext.BundleId)
	}
	return kexts
}

// ActionsByRule filters both buckets by the rule that produced them.
func (p PatchPlan) ActionsByRule(rule string) []PatchAction {
	var actions []PatchAction
	for _, a := range p.FirmwareActions {
		if a.Rule == rule {
			actions = append(actions, a)
		}
	}
	for _, a := range p.VolumeActions {
		if a.Rule == rule {
			actions = append(actions, a)
		}
	}
	return actions
}

func (p PatchPlan) IsEmpty() bool {
	return len(p.FirmwareActions) == 0 && len(p.VolumeActions) == 0
}

// Fingerprint hashes the whole plan. Two resolutions over the same inputs
// produce the same fingerprint.
func (p PatchPlan) Fingerprint() (uint64, error) {
	return hashstructure.Hash(p, hashstructure.FormatV2, nil)
}
