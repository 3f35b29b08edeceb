package catalog

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jpnorenam/legacy-patcher/pkg/types"
)

// Validate checks cross references between the catalog files.
func (c *Catalog) Validate() error {
	checks := []func() error{
		c.validateModels,
		c.validateSets,
		c.validatePciIds,
		c.validatePaths,
		c.validateDonors,
		c.validatePatchSets,
		c.validateWirelessPolicies,
	}
	for _, check := range checks {
		if err := check(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidCatalog, err)
		}
	}
	return nil
}

func (c *Catalog) validateModels() error {
	if len(c.Models) == 0 {
		return fmt.Errorf("no models")
	}
	for _, name := range c.ModelNames() {
		record := c.Models[name]
		if record.BoardId == "" {
			return fmt.Errorf("%s: required field is not set: board-id", name)
		}
		if record.MaxOSSupported == 0 {
			return fmt.Errorf("%s: required field is not set: max-os-supported", name)
		}
		if record.ScreenSize != nil && record.Chassis() != types.ChassisLaptop {
			return fmt.Errorf("%s: screen-size is only valid for laptops", name)
		}
	}
	return nil
}

func (c *Catalog) validateSets() error {
	for _, set := range sortedKeys(c.Sets) {
		for _, model := range c.Sets[set] {
			if _, ok := c.Models[model]; !ok {
				return fmt.Errorf("set %s: unknown model %s", set, model)
			}
		}
	}
	return nil
}

// Device ids may repeat inside one bucket but a device id must not belong
// to two buckets of the same vendor.
func (c *Catalog) validatePciIds() error {
	for _, vendor := range c.Pci.Gpu {
		owner := map[types.HexInt]types.GpuArchitecture{}
		for _, bucket := range vendor.Architectures {
			if bucket.Name == "" || bucket.Name == types.GpuUnknown {
				return fmt.Errorf("gpu vendor %s: bucket without a name", vendor.VendorId)
			}
			for _, id := range bucket.DeviceIds {
				if prev, ok := owner[id]; ok && prev != bucket.Name {
					return fmt.Errorf("gpu %s:%s is in both %s and %s", vendor.VendorId, id, prev, bucket.Name)
				}
				owner[id] = bucket.Name
			}
		}
	}
	for _, vendor := range c.Pci.Wireless {
		owner := map[types.HexInt]types.WirelessChipset{}
		for _, bucket := range vendor.Chipsets {
			if bucket.Name == "" || bucket.Name == types.WirelessUnknown {
				return fmt.Errorf("wireless vendor %s: bucket without a name", vendor.VendorId)
			}
			for _, id := range bucket.DeviceIds {
				if prev, ok := owner[id]; ok && prev != bucket.Name {
					return fmt.Errorf("wireless %s:%s is in both %s and %s", vendor.VendorId, id, prev, bucket.Name)
				}
				owner[id] = bucket.Name
			}
		}
	}
	owner := map[[2]types.HexInt]types.EthernetChipset{}
	for _, bucket := range c.Pci.Ethernet {
		for _, id := range bucket.DeviceIds {
			key := [2]types.HexInt{bucket.VendorId, id}
			if prev, ok := owner[key]; ok && prev != bucket.Chipset {
				return fmt.Errorf("ethernet %s:%s is in both %s and %s", bucket.VendorId, id, prev, bucket.Chipset)
			}
			owner[key] = bucket.Chipset
		}
	}
	return nil
}

func (c *Catalog) validatePaths() error {
	for _, table := range []string{PathWireless, PathGfx0, PathIgpu, PathHdef} {
		if _, ok := c.Paths[table]; !ok {
			return fmt.Errorf("missing device path table %s", table)
		}
	}
	for _, table := range sortedKeys(c.Paths) {
		t := c.Paths[table]
		for _, model := range sortedKeys(t.Models) {
			if _, ok := c.Models[model]; !ok {
				return fmt.Errorf("device path %s: unknown model %s", table, model)
			}
		}
		for _, entry := range t.Chassis {
			if entry.Chassis != types.ChassisLaptop && entry.Chassis != types.ChassisDesktop {
				return fmt.Errorf("device path %s: unknown chassis %q", table, entry.Chassis)
			}
			if entry.Fallback && entry.Chassis == types.ChassisDesktop {
				return fmt.Errorf("device path %s: fallback entries are not allowed for desktops", table)
			}
			if !strings.HasPrefix(entry.Path, "PciRoot(") {
				return fmt.Errorf("device path %s: malformed path %q", table, entry.Path)
			}
		}
	}
	return nil
}

func (c *Catalog) validateDonors() error {
	if len(c.Donors) == 0 {
		return fmt.Errorf("no donor rules")
	}
	for i, rule := range c.Donors {
		if rule.Family == "" {
			return fmt.Errorf("donor rule %d: required field is not set: family", i)
		}
		if _, ok := c.Models[rule.Donor]; !ok {
			return fmt.Errorf("donor rule %d: unknown donor model %q", i, rule.Donor)
		}
		if (rule.MinScreen != nil || rule.MaxScreen != nil) && rule.Chassis != types.ChassisLaptop {
			return fmt.Errorf("donor rule %d: screen constraints are only valid for laptops", i)
		}
	}
	return nil
}

func (c *Catalog) validatePatchSets() error {
	known := map[types.GpuArchitecture]bool{}
	for _, vendor := range c.Pci.Gpu {
		for _, bucket := range vendor.Architectures {
			known[bucket.Name] = true
		}
	}
	knownWireless := map[types.WirelessChipset]bool{}
	for _, vendor := range c.Pci.Wireless {
		for _, bucket := range vendor.Chipsets {
			knownWireless[bucket.Name] = true
		}
	}

	names := map[string]bool{}
	for _, set := range append(append([]PatchSet(nil), c.PatchSets.Shared...), c.PatchSets.Hardware...) {
		if set.Name == "" {
			return fmt.Errorf("patch set without a name")
		}
		if names[set.Name] {
			return fmt.Errorf("duplicate patch set %q", set.Name)
		}
		names[set.Name] = true

		for _, group := range set.Install {
			if !group.Policy.Valid() {
				return fmt.Errorf("patch set %s: unknown policy %q", set.Name, group.Policy)
			}
			if !strings.HasPrefix(group.Destination, "/") {
				return fmt.Errorf("patch set %s: destination must be absolute: %s", set.Name, group.Destination)
			}
			if len(group.Files) == 0 {
				return fmt.Errorf("patch set %s: install group for %s has no files", set.Name, group.Destination)
			}
		}
		for _, group := range set.Remove {
			if !strings.HasPrefix(group.Destination, "/") {
				return fmt.Errorf("patch set %s: destination must be absolute: %s", set.Name, group.Destination)
			}
		}
	}

	for _, set := range c.PatchSets.Shared {
		if set.NativeUntil != nil || len(set.GpuArchitectures) > 0 || len(set.WirelessChipsets) > 0 || len(set.ModelSets) > 0 {
			return fmt.Errorf("shared patch set %s cannot have triggers", set.Name)
		}
	}
	for _, set := range c.PatchSets.Hardware {
		if set.NativeUntil == nil {
			return fmt.Errorf("patch set %s: required field is not set: native-until", set.Name)
		}
		if len(set.GpuArchitectures)+len(set.WirelessChipsets)+len(set.ModelSets) == 0 {
			return fmt.Errorf("patch set %s has no triggers", set.Name)
		}
		for _, arch := range set.GpuArchitectures {
			if !known[arch] {
				return fmt.Errorf("patch set %s: unknown gpu architecture %s", set.Name, arch)
			}
		}
		for _, chipset := range set.WirelessChipsets {
			if !knownWireless[chipset] {
				return fmt.Errorf("patch set %s: unknown wireless chipset %s", set.Name, chipset)
			}
		}
		for _, modelSet := range set.ModelSets {
			if _, ok := c.Sets[modelSet]; !ok {
				return fmt.Errorf("patch set %s: unknown model set %s", set.Name, modelSet)
			}
		}
		for _, include := range set.Include {
			if _, ok := c.SharedPatchSet(include); !ok {
				return fmt.Errorf("patch set %s: unknown shared set %s", set.Name, include)
			}
		}
	}
	return nil
}

func (c *Catalog) validateWirelessPolicies() error {
	for _, vendor := range c.Pci.Wireless {
		for _, bucket := range vendor.Chipsets {
			if _, ok := c.WirelessPolicies[bucket.Name]; !ok {
				return fmt.Errorf("wireless chipset %s has no policy", bucket.Name)
			}
		}
	}
	for _, chipset := range sortedKeys(c.WirelessPolicies) {
		policy := c.WirelessPolicies[chipset]
		switch policy.Strategy {
		case WirelessNative:
		case WirelessFakeId, WirelessLegacyDriver:
			if len(policy.Kexts) == 0 {
				return fmt.Errorf("wireless policy %s: %s needs kexts", chipset, policy.Strategy)
			}
		default:
			return fmt.Errorf("wireless policy %s: unknown strategy %q", chipset, policy.Strategy)
		}
		for _, kext := range policy.Kexts {
			if _, ok := c.KextVersion(kext); !ok {
				return fmt.Errorf("wireless policy %s: unknown kext %s", chipset, kext)
			}
		}
		for _, property := range policy.Properties {
			if _, err := property.Decode(); err != nil {
				return fmt.Errorf("wireless policy %s: %v", chipset, err)
			}
		}
	}
	return nil
}

func sortedKeys[K ~string, V any](m map[K]V) []K {
	keys := make([]K, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

func topBundle(bundle string) string {
	return strings.SplitN(bundle, "/", 2)[0]
}
