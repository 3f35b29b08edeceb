package patchset

import (
	"github.com/pkg/errors"

	"github.com/jpnorenam/legacy-patcher/pkg/capability"
	"github.com/jpnorenam/legacy-patcher/pkg/catalog"
	"github.com/jpnorenam/legacy-patcher/pkg/constants"
	"github.com/jpnorenam/legacy-patcher/pkg/types"
)

const (
	agdpmodVit9696 = "vit9696"
	agdpmodPikera  = "pikera"
)

func ethernetActions(ctx *Context, b *builder) error {
	if ctx.Live {
		for _, dev := range ctx.Snapshot.Ethernet {
			ethernetForChipset(ctx, b, dev.Chipset)
		}
		return nil
	}

	// Offline builds go by the chipset the model shipped with
	switch ctx.Record.EthernetChipset {
	case "Broadcom":
		ethernetForChipset(ctx, b, types.EthernetBCM5701)
	case "Nvidia":
		ethernetForChipset(ctx, b, types.EthernetNForce)
	case "Marvell":
		ethernetForChipset(ctx, b, types.EthernetMarvell)
	case "Intel 80003ES2LAN":
		ethernetForChipset(ctx, b, types.EthernetIntel8254X)
	case "Intel 82574L":
		ethernetForChipset(ctx, b, types.EthernetIntel82574L)
	}
	return nil
}

func ethernetForChipset(ctx *Context, b *builder, chipset types.EthernetChipset) {
	switch chipset {
	case types.EthernetBCM5701:
		if ctx.Cpu() < constants.IvyBridge {
			b.enableKext("CatalinaBCM5701Ethernet.kext")
		}
	case types.EthernetIntelI210:
		if ctx.Cpu() < constants.IvyBridge {
			b.enableKext("CatalinaIntelI210Ethernet.kext")
		}
	case types.EthernetIntel8254X:
		b.enableKext("AppleIntel8254XEthernet.kext")
	case types.EthernetIntel82574L:
		b.enableKext("Intel82574L.kext")
	case types.EthernetNForce:
		b.enableKext("nForceEthernet.kext")
	case types.EthernetMarvell:
		b.enableKext("MarvelYukonEthernet.kext")
	}
}

func hasWirelessPolicy(ctx *Context) bool {
	_, ok := ctx.catalog.WirelessPolicies[ctx.Wireless()]
	return ok
}

// nativeWireless reports whether the target OS drives the chipset without help.
func nativeWireless(policy catalog.WirelessPolicy, targetOS int) bool {
	if policy.Strategy == catalog.WirelessNative {
		return true
	}
	return policy.NativeUntil != nil && targetOS <= *policy.NativeUntil
}

func wirelessActions(ctx *Context, b *builder) error {
	chipset := ctx.Wireless()
	policy := ctx.catalog.WirelessPolicies[chipset]

	var device *types.WirelessDevice
	if ctx.Live {
		device = ctx.Snapshot.Wireless
	}

	switch {
	case nativeWireless(policy, ctx.TargetOS):
		if chipset == types.WirelessBrcmNIC && device != nil && device.CountryCode != "" {
			b.enableKext("AirportBrcmFixup.kext")
			if device.PciPath != "" {
				b.property(device.PciPath, "brcmfx-country", device.CountryCode)
			} else {
				b.bootArg("brcmfx-country=" + device.CountryCode)
			}
		}

	case policy.Strategy == catalog.WirelessFakeId:
		b.enableKext(policy.Kexts...)
		arpt, err := wirelessPath(ctx, device)
		if err != nil {
			return err
		}
		if err := setPolicyProperties(b, arpt, policy.Properties); err != nil {
			return err
		}
		if device != nil && device.CountryCode != "" {
			b.property(arpt, "brcmfx-country", device.CountryCode)
		}

	case policy.Strategy == catalog.WirelessLegacyDriver:
		b.enableKext(policy.Kexts...)
		if len(policy.Properties) > 0 {
			arpt, err := wirelessPath(ctx, device)
			if err != nil {
				return err
			}
			if err := setPolicyProperties(b, arpt, policy.Properties); err != nil {
				return err
			}
		}
	}

	if ctx.Config.WakeOnWlan && b.kextEnabled("AirportBrcmFixup.kext") {
		b.bootArg("-brcmfxwowl")
	}
	return nil
}

// wirelessPath prefers the probed ARPT path. The catalog table never hands a
// desktop the generic laptop path; a desktop without an entry is an error.
func wirelessPath(ctx *Context, device *types.WirelessDevice) (string, error) {
	if device != nil && device.PciPath != "" {
		return device.PciPath, nil
	}
	path, err := ctx.DevicePath(catalog.PathWireless)
	if errors.Is(err, catalog.ErrNoDevicePath) {
		return "", errors.Wrapf(capability.ErrUnsupportedChassisConfiguration, "%s: %v", ctx.Model(), err)
	}
	return path, err
}

func setPolicyProperties(b *builder, devicePath string, props []catalog.Property) error {
	for _, p := range props {
		v, err := p.Decode()
		if err != nil {
			return err
		}
		b.property(devicePath, p.Key, v)
	}
	return nil
}

func amdDrmProperties() map[string]any {
	return map[string]any{
		"shikigva":            128,
		"unfairgva":           1,
		"rebuild-device-tree": 1,
		"agdpmod":             agdpmodPikera,
		"enable-gva-support":  1,
	}
}

func disabledIgpuProperties() map[string]any {
	return map[string]any{
		"name":       mustHexBytes("23646973706C6179"),
		"IOName":     "#display",
		"class-code": mustHexBytes("FFFFFFFF"),
	}
}

func graphicsActions(ctx *Context, b *builder) error {
	if ctx.Spoofing() {
		b.enableKext("WhateverGreen.kext")
	}

	if ctx.InSet(catalog.SetMacPro) {
		macProGraphics(ctx, b)
	}

	if ctx.Record.UgaGraphics {
		b.value("UEFI.Output.GopPassThrough", "Apple")
	}

	if ctx.Live {
		webDriverGraphics(ctx, b)
	}

	if ctx.Live && ctx.InSet(catalog.SetLegacyGpu) {
		if dgpu := ctx.Snapshot.DiscreteGpu(); dgpu != nil {
			return mxmGraphics(ctx, b, dgpu)
		}
	}
	return nil
}

func macProGraphics(ctx *Context, b *builder) {
	if !ctx.Live {
		b.bootArg("shikigva=128", "unfairgva=1", "-wegtree")
		b.enableKext("WhateverGreen.kext")
		return
	}
	for _, gpu := range ctx.Snapshot.Gpus {
		switch gpu.VendorId {
		case types.VendorAMD:
			if gpu.PciPath != "" {
				b.properties(gpu.PciPath, amdDrmProperties())
			} else {
				b.bootArg("shikigva=128", "unfairgva=1", "agdpmod=pikera", "radgva=1", "-wegtree")
			}
		case types.VendorNvidia:
			if gpu.PciPath != "" {
				b.properties(gpu.PciPath, map[string]any{
					"rebuild-device-tree": 1,
					"agdpmod":             agdpmodVit9696,
				})
			} else {
				b.bootArg("-wegtree", "agdpmod=vit9696")
			}
			b.value("UEFI.Quirks.ForgeUefiSupport", true)
			b.value("UEFI.Quirks.ReloadOptionRoms", true)
		}
	}
	b.enableKext("WhateverGreen.kext")
}

// webDriverGraphics prepares Nvidia cards that only run on the web driver.
func webDriverGraphics(ctx *Context, b *builder) {
	for _, gpu := range ctx.Snapshot.Gpus {
		switch gpu.Architecture {
		case types.GpuFermi, types.GpuMaxwell, types.GpuPascal:
		default:
			continue
		}
		if gpu.PciPath != "" {
			b.properties(gpu.PciPath, map[string]any{"disable-metal": 1, "force-compat": 1})
		} else {
			b.bootArg("ngfxgl=1", "ngfxcompat=1")
		}
		b.enableKext("WhateverGreen.kext")
		b.nvram(constants.AppleBootGuid, "nvda_drv", mustHexBytes("31"))
	}
}

// mxmGraphics handles upgraded MXM cards in iMacs.
func mxmGraphics(ctx *Context, b *builder, dgpu *types.GpuDevice) error {
	switch {
	case dgpu.Architecture.IsAMDMetal():
		gfx0, err := ctx.gfx0Path()
		if err != nil {
			return err
		}
		b.enableKext("WhateverGreen.kext")
		props := amdDrmProperties()
		if dgpu.Architecture == types.GpuLegacyGCN7000 {
			// Power gating hangs these cards
			props["CAIL,CAIL_DisableDrmdmaPowerGating"] = 1
			props["CAIL,CAIL_DisableGfxCGPowerGating"] = 1
			props["CAIL,CAIL_DisableUVDPowerGating"] = 1
			props["CAIL,CAIL_DisableVCEPowerGating"] = 1
		}
		b.properties(gfx0, props)
		if ctx.ModelIn("iMac12,1", "iMac12,2") {
			b.properties(igpuDisablePath, disabledIgpuProperties())
		} else if ctx.ModelIn("iMac10,1") {
			b.enableKext("AAAMouSSE.kext")
		}

	case dgpu.Architecture == types.GpuKepler:
		gfx0, err := ctx.gfx0Path()
		if err != nil {
			return err
		}
		b.enableKext("WhateverGreen.kext")
		backlight := map[string]any{
			"applbkl":              mustHexBytes("01000000"),
			"@0,backlight-control": mustHexBytes("01000000"),
			"@0,built-in":          mustHexBytes("01000000"),
			"shikigva":             256,
			"agdpmod":              agdpmodVit9696,
		}
		switch {
		case ctx.ModelIn("iMac10,1", "iMac11,1", "iMac11,2", "iMac11,3"):
			b.properties(gfx0, backlight)
		case ctx.ModelIn("iMac12,1", "iMac12,2"):
			b.properties(gfx0, backlight)
			b.properties(igpuDisablePath, disabledIgpuProperties())
		}
		b.enableKext("BacklightInjector.kext")
		b.value("UEFI.Quirks.ForgeUefiSupport", true)
		b.value("UEFI.Quirks.ReloadOptionRoms", true)
	}
	return nil
}

// Sandy Bridge iGPU on iMac12,x, hidden when an upgraded card drives the panel
const igpuDisablePath = "PciRoot(0x0)/Pci(0x2,0x0)"

func (c *Context) gfx0Path() (string, error) {
	if c.Live {
		if dgpu := c.Snapshot.DiscreteGpu(); dgpu != nil && dgpu.PciPath != "" {
			return dgpu.PciPath, nil
		}
	}
	return c.DevicePath(catalog.PathGfx0)
}

func (c *Context) igpuPath() (string, error) {
	if c.Live {
		if igpu := c.Snapshot.IntegratedGpu(); igpu != nil && igpu.PciPath != "" {
			return igpu.PciPath, nil
		}
	}
	return c.DevicePath(catalog.PathIgpu)
}

// discreteNvidia reports whether the discrete GPU is Nvidia. Without a probe
// the hybrid model set is trusted.
func (c *Context) discreteNvidia() bool {
	if !c.Live {
		return true
	}
	dgpu := c.Snapshot.DiscreteGpu()
	return dgpu != nil && dgpu.VendorId == types.VendorNvidia
}

func dualGpuActions(ctx *Context, b *builder) error {
	if ctx.ModelIn("MacBookPro9,1") {
		b.enableKext("AMC-Override.kext")
		b.property("PciRoot(0x0)/Pci(0x1,0x0)/Pci(0x0,0x0)", "agdpmod", agdpmodVit9696)
	}
	if !ctx.InSet(catalog.SetNoAGPMSupport) {
		b.enableKext("AGPM-Override.kext")
	}
	if ctx.InSet(catalog.SetAGDPSupport) {
		b.enableKext("AGDP-Override.kext")
	}

	if ctx.InSet(catalog.SetDualGpuPatch) {
		gfx0, err := ctx.gfx0Path()
		if err != nil {
			return err
		}
		b.property(gfx0, "agdpmod", agdpmodVit9696)

		// Appended after the power policy so that it wins at apply time
		if ctx.InSet(catalog.SetIntelNvidiaDRM) && ctx.Config.DrmPrioritize && ctx.discreteNvidia() {
			igpu, err := ctx.igpuPath()
			if err != nil {
				return err
			}
			b.properties(gfx0, map[string]any{"agdpmod": agdpmodVit9696, "shikigva": 256})
			b.properties(igpu, disabledIgpuProperties())
		}
	}

	if ctx.ModelIn("iMac14,1") {
		igpu, err := ctx.igpuPath()
		if err != nil {
			return err
		}
		b.property(igpu, "agdpmod", agdpmodVit9696)
	}
	return nil
}

func audioActions(ctx *Context, b *builder) error {
	if ctx.InSet(catalog.SetLegacyAudio) || ctx.InSet(catalog.SetMacPro) {
		b.enableKext("AppleALC.kext")
	}

	switch {
	case ctx.Record.MaxOSSupported <= constants.HighSierra:
		// iMac7,1 and iMac8,1 need an AppleHDA downgrade instead
		if ctx.Family() == "Xserve" || ctx.ModelIn("MacPro4,1", "iMac7,1", "iMac8,1") {
			return nil
		}
		hdef, err := ctx.DevicePath(catalog.PathHdef)
		if err != nil {
			return err
		}
		props := map[string]any{
			"apple-layout-id":     90,
			"use-apple-layout-id": 1,
		}
		if ctx.ModelIn("MacPro3,1") {
			// Layout 90 is taken by the stock MacPro3,1 codec
			props["alc-layout-id"] = 13
		} else {
			props["use-layout-id"] = 1
		}
		b.properties(hdef, props)
		b.enableKext("AppleALC.kext")

	case (ctx.Family() == "MacPro" && !ctx.ModelIn("MacPro6,1")) || ctx.Family() == "Xserve":
		// Audio over non-standard GPUs
		b.enableKext("AppleALC.kext")
	}
	return nil
}

func bluetoothActions(ctx *Context, b *builder) error {
	bt := ctx.Bluetooth()
	if bt == constants.BluetoothNonApplicable {
		return nil
	}
	if bt <= constants.BRCM20702v1 {
		b.enableKext("BlueToolFixup.kext")
	}
	if bt <= constants.BRCM2070 {
		b.bootArg("-btlfxallowanyaddr")
		b.enableKext("Bluetooth-Spoof.kext")
	}
	return nil
}
