package patchset

import (
	"github.com/jpnorenam/legacy-patcher/pkg/catalog"
	"github.com/jpnorenam/legacy-patcher/pkg/constants"
	"github.com/jpnorenam/legacy-patcher/pkg/types"
)

// Context is the evaluation input shared by every rule of one resolution.
type Context struct {
	Snapshot types.HardwareSnapshot
	Record   types.ModelCapabilityRecord
	Config   types.UserConfig
	Spoof    types.SpoofDecision
	TargetOS int
	// Live is set when Snapshot was probed on the machine being built for.
	Live bool

	catalog *catalog.Catalog
}

func (c *Context) Model() string {
	return c.Record.Model
}

func (c *Context) Family() string {
	return c.Record.Family()
}

func (c *Context) Cpu() constants.CpuGeneration {
	return c.Record.CpuGeneration
}

func (c *Context) IsLaptop() bool {
	return c.Record.Chassis() == types.ChassisLaptop
}

func (c *Context) InSet(set string) bool {
	return c.catalog.InSet(set, c.Model())
}

func (c *Context) ModelIn(models ...string) bool {
	for _, m := range models {
		if m == c.Model() {
			return true
		}
	}
	return false
}

// Spoofing reports whether SMBIOS data is being rewritten at all.
func (c *Context) Spoofing() bool {
	return c.Config.SerialStrategy != types.SerialNone
}

// NoRdrand is only known from a live probe.
func (c *Context) NoRdrand() bool {
	return c.Live && len(c.Snapshot.Cpu.Flags) > 0 && !c.Snapshot.Cpu.HasFlag("RDRAND")
}

// Wireless returns the wireless chipset of the target, probed when live and
// from the model record otherwise.
func (c *Context) Wireless() types.WirelessChipset {
	if c.Live && c.Snapshot.Wireless != nil {
		return c.Snapshot.Wireless.ChipsetFamily
	}
	if c.Live {
		return types.WirelessUnknown
	}
	if c.Record.WirelessModel == "" {
		return types.WirelessUnknown
	}
	return c.Record.WirelessModel
}

func (c *Context) Bluetooth() constants.BluetoothModel {
	if c.Live && c.Snapshot.Bluetooth != nil {
		return *c.Snapshot.Bluetooth
	}
	return c.Record.BluetoothModel
}

// DevicePath resolves a catalog device path for the target model.
func (c *Context) DevicePath(table string) (string, error) {
	return c.catalog.DevicePath(table, c.Record)
}
