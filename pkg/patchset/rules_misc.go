package patchset

import (
	"strings"

	"github.com/jpnorenam/legacy-patcher/pkg/catalog"
	"github.com/jpnorenam/legacy-patcher/pkg/constants"
	"github.com/jpnorenam/legacy-patcher/pkg/types"
)

func miscActions(ctx *Context, b *builder) error {
	restrictEvents(ctx, b)
	cpuFriend(ctx, b)
	firewireBoot(ctx, b)
	topCase(ctx, b)
	thunderbolt(ctx, b)
	webcam(ctx, b)
	t1Chip(ctx, b)
	usbMaps(ctx, b)
	debugFlags(ctx, b)
	bootPicker(ctx, b)
	return nil
}

// restrictEvents configures RestrictEvents, or disables the EFI check agent
// when there is nothing for it to block or patch.
func restrictEvents(ctx *Context, b *builder) {
	var block, patch []string
	if ctx.ModelIn("MacBookPro6,1", "MacBookPro6,2", "MacBookPro9,1", "MacBookPro10,1") {
		block = append(block, "gmux")
	}
	if ctx.InSet(catalog.SetMacPro) {
		block = append(block, "pcie")
	}
	if ctx.Config.DisableMediaAnalysis {
		block = append(block, "media")
	}

	if !ctx.Spoofing() || !ctx.Config.SecureBootModel {
		patch = append(patch, "sbvmm")
	}
	if ctx.Cpu() == constants.IvyBridge {
		patch = append(patch, "f16c")
	}

	if len(block) == 0 && len(patch) == 0 {
		b.enableKext("EFICheckDisabler.kext")
		return
	}
	if len(patch) == 0 {
		patch = []string{"none"}
	}
	b.enableKext("RestrictEvents.kext")
	if len(block) > 0 {
		b.patcherNvram("revblock", strings.Join(block, ","))
	}
	b.patcherNvram("revpatch", strings.Join(patch, ","))
}

func cpuFriend(ctx *Context, b *builder) {
	if ctx.Spoofing() && !ctx.ModelIn("iMac7,1", "Xserve2,1") {
		b.enableKext("CPUFriend.kext", "CPUFriendDataProvider.kext")
	}
}

func firewireBoot(ctx *Context, b *builder) {
	if !ctx.Config.FirewireBoot {
		return
	}
	b.enableKext(
		"IOFireWireFamily.kext",
		"IOFireWireSBP2.kext",
		"IOFireWireSerialBusProtocolTransport.kext",
		"IOFireWireFamily.kext/Contents/PlugIns/AppleFWOHCI.kext",
	)
}

func topCase(ctx *Context, b *builder) {
	if !ctx.IsLaptop() || ctx.Cpu() >= constants.Skylake {
		return
	}
	if ctx.ModelIn("MacBookPro11,4", "MacBookPro11,5", "MacBookPro12,1", "MacBook8,1") {
		return
	}
	b.enableKext(
		"AppleUSBTopCase.kext",
		"AppleUSBTopCase.kext/Contents/PlugIns/AppleUSBTCButtons.kext",
		"AppleUSBTopCase.kext/Contents/PlugIns/AppleUSBTCKeyboard.kext",
		"AppleUSBTopCase.kext/Contents/PlugIns/AppleUSBTCKeyEventDriver.kext",
		"AppleUSBMultitouch.kext",
	)
	if ctx.ModelIn("MacBook5,2") {
		// Trackpad predates the multitouch driver
		b.enableKext("AppleUSBTrackpad.kext", "LegacyKeyboardInjector.kext")
	}
}

func thunderbolt(ctx *Context, b *builder) {
	if !ctx.Config.DisableThunderbolt {
		return
	}
	path, err := ctx.DevicePath(catalog.PathThunderbolt)
	if err != nil {
		return
	}
	b.property(path, "class-code", mustHexBytes("FFFFFFFF"))
	b.property(path, "device-id", mustHexBytes("FFFF0000"))
}

func webcam(ctx *Context, b *builder) {
	if ctx.IsLaptop() && ctx.Cpu() >= constants.Haswell && ctx.Cpu() <= constants.KabyLake {
		b.enableKext("AppleCameraInterface.kext")
	}
}

func t1Chip(ctx *Context, b *builder) {
	if !ctx.ModelIn("MacBookPro13,2", "MacBookPro13,3", "MacBookPro14,2", "MacBookPro14,3") {
		return
	}
	b.entry(types.SectionKernelBlock, "com.apple.driver.AppleSSE", "com.apple.driver.AppleKeyStore")
	b.enableKext("corecrypto_T1.kext", "AppleSSE.kext", "AppleKeyStore.kext")
}

func usbMaps(ctx *Context, b *builder) {
	strategy := ctx.Config.SerialStrategy
	spoofsModel := strategy == types.SerialModerate || strategy == types.SerialAdvanced
	if (ctx.InSet(catalog.SetMissingUSBMap) || spoofsModel) && !ctx.ModelIn("Xserve2,1") {
		b.enableKext("USB-Map.kext")
	}

	if ctx.Cpu() <= constants.Penryn || ctx.ModelIn("MacPro4,1", "MacPro5,1", "Xserve3,1") {
		b.enableKext(
			"USB1.1-Injector.kext",
			"USB1.1-Injector.kext/Contents/PlugIns/AppleUSBOHCI.kext",
			"USB1.1-Injector.kext/Contents/PlugIns/AppleUSBOHCIPCI.kext",
			"USB1.1-Injector.kext/Contents/PlugIns/AppleUSBUHCI.kext",
			"USB1.1-Injector.kext/Contents/PlugIns/AppleUSBUHCIPCI.kext",
		)
	}
}

func debugFlags(ctx *Context, b *builder) {
	if ctx.Config.VerboseBoot {
		b.bootArg("-v")
	}
	if ctx.Config.KextDebug {
		b.bootArg("-liludbgall", "liludump=90")
		b.enableKext("DebugEnhancer.kext")
	}
	if ctx.Config.OpenCoreDebug {
		b.value("Misc.Debug.Target", 0x43)
		b.value("Misc.Debug.DisplayLevel", 0x80000042)
	}
}

func bootPicker(ctx *Context, b *builder) {
	if !ctx.Config.ShowPicker {
		b.value("Misc.Boot.ShowPicker", false)
	}
	if ctx.Config.Timeout != 5 {
		b.value("Misc.Boot.Timeout", ctx.Config.Timeout)
	}
	if ctx.Config.Vault {
		b.value("Misc.Security.Vault", "Secure")
	}
}
