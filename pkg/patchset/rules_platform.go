package patchset

import (
	"encoding/binary"
	"encoding/hex"

	"github.com/pkg/errors"

	"github.com/jpnorenam/legacy-patcher/pkg/capability"
	"github.com/jpnorenam/legacy-patcher/pkg/constants"
	"github.com/jpnorenam/legacy-patcher/pkg/types"
)

func liluActions(ctx *Context, b *builder) error {
	b.enableKext("Lilu.kext")
	b.value("Kernel.Quirks.DisableLinkeditJettison", true)
	b.patcherNvram("OCLP-Version", constants.PatcherVersion)
	b.patcherNvram("OCLP-Model", ctx.Model())
	return nil
}

func cpuActions(ctx *Context, b *builder) error {
	cpu := ctx.Cpu()
	if cpu <= constants.Penryn {
		// SSE4.1 emulation and the HID family patch for pre-Nehalem parts
		b.enableKext("AAAMouSSE.kext", "telemetrap.kext")
		b.entry(types.SectionKernelPatch, "com.apple.iokit.IOHIDFamily")
	}
	if cpu <= constants.IvyBridge {
		b.enableKext("CryptexFixup.kext")
	}
	if ctx.NoRdrand() || cpu <= constants.SandyBridge {
		b.entry(types.SectionKernelPatch,
			"SurPlus v1 - PART 1 of 2 - Patch read_erandom (inlined in _early_random)",
			"SurPlus v1 - PART 2 of 2 - Patch register_and_init_prng",
		)
	}
	if cpu < constants.SandyBridge {
		// No AVX
		b.enableKext("NoAVXFSCompressionTypeZlib.kext", "NoAVXFSCompressionTypeZlib-AVXpel.kext")
	}
	return nil
}

func powerManagementActions(ctx *Context, b *builder) error {
	cpu := ctx.Cpu()
	if cpu <= constants.IvyBridge {
		b.enableKext("AppleIntelCPUPowerManagement.kext", "AppleIntelCPUPowerManagementClient.kext")
	}
	if cpu <= constants.SandyBridge || ctx.Config.DisableFirmwareThrottle {
		b.enableKext("ASPP-Override.kext")
	}
	if ctx.Config.DisableFirmwareThrottle && cpu >= constants.Nehalem {
		b.enableKext("SimpleMSR.kext")
	}
	return nil
}

func acpiActions(ctx *Context, b *builder) error {
	cpu := ctx.Cpu()
	if cpu == constants.Nehalem && ctx.Family() != "MacPro" && ctx.Family() != "Xserve" {
		b.entry(types.SectionACPI, "SSDT-CPBG.aml")
	}
	if cpu >= constants.SandyBridge && cpu <= constants.IvyBridge && !ctx.ModelIn("MacPro6,1") {
		b.entry(types.SectionACPI, "SSDT-PCI.aml")
		b.entry(types.SectionACPIPatch, "BUF0 to BUF1")
	}
	return nil
}

func firmwareDriverActions(ctx *Context, b *builder) error {
	cpu := ctx.Cpu()
	if cpu < constants.SandyBridge {
		b.entry(types.SectionUEFIDrivers, "ExFatDxeLegacy.efi")
	}
	if ctx.Config.NvmeBoot {
		b.entry(types.SectionUEFIDrivers, "NvmExpressDxe.efi")
	}
	if ctx.Config.XhciBoot {
		b.entry(types.SectionUEFIDrivers, "XhciDxe.efi", "UsbBusDxe.efi")
	}
	if ctx.ModelIn("MacPro3,1") {
		b.entry(types.SectionUEFIDrivers, "FixPCIeLinkRate.efi")
	}
	if cpu <= constants.IvyBridge && !ctx.ModelIn("MacPro6,1") {
		b.entry(types.SectionUEFIDrivers, "OpenLegacyBoot.efi")
	}
	b.entry(types.SectionUEFIDrivers, "OpenCanopy.efi", "OpenRuntime.efi", "OpenLinuxBoot.efi", "ResetNvramEntry.efi")
	return nil
}

// Spoofing to one of these models lets AppleMCEReporter attach and panic
var mceAffectedModels = []string{"MacPro6,1", "MacPro7,1", "iMacPro1,1"}

func firmwareCompatActions(ctx *Context, b *builder) error {
	if ctx.Record.FiveKDisplay {
		// Keep the panel in dual stream mode
		b.value("Misc.Boot.LauncherPath", "\\boot.efi")
	}
	if ctx.ModelIn("MacPro6,1", "MacBookPro4,1") || (ctx.Cpu() < constants.SandyBridge && !ctx.IsLaptop()) {
		b.entry(types.SectionKernelPatch, "CaseySJ - Fix PCI bus enumeration (Ventura)", "Fix PCI bus enumeration (Sonoma)")
	}
	if ctx.IsLaptop() && (ctx.Cpu() == constants.Haswell || ctx.Cpu() == constants.Broadwell) {
		b.value("UEFI.Quirks.EnableVmx", true)
	}
	if ctx.Spoofing() && !ctx.ModelIn(mceAffectedModels...) && contains(mceAffectedModels, ctx.Spoof.SpoofedModel) {
		b.enableKext("AppleMCEReporterDisabler.kext")
	}
	return nil
}

func smbiosActions(ctx *Context, b *builder) error {
	strategy := ctx.Config.SerialStrategy
	if strategy == types.SerialNone {
		b.entry(types.SectionBooterPatch, "Skip Board ID check")
		return nil
	}
	b.entry(types.SectionKernelPatch, "com.apple.driver.AppleSMC")
	b.enableKext("SMC-Spoof.kext")

	switch strategy {
	case types.SerialMinimal:
		features := firmwareFeatureBytes(capability.FirmwareFeatures(ctx.Record))
		b.value("PlatformInfo.PlatformNVRAM.FirmwareFeatures", features)
		b.value("PlatformInfo.PlatformNVRAM.FirmwareFeaturesMask", features)
		b.value("PlatformInfo.SMBIOS.FirmwareFeatures", features)
		b.value("PlatformInfo.SMBIOS.FirmwareFeaturesMask", features)
		b.value("PlatformInfo.PlatformNVRAM.BID", ctx.Spoof.SpoofedBoardId)
		b.value("PlatformInfo.SMBIOS.BoardProduct", ctx.Spoof.SpoofedBoardId)
		b.value("PlatformInfo.SMBIOS.SystemProductName", ctx.Model())
		b.value("PlatformInfo.SMBIOS.BIOSVersion", "9999.999.999.999.999")
		b.nvram(constants.AppleBootGuid, "run-efi-updater", "No")
		b.value("PlatformInfo.UpdateNVRAM", true)
		b.value("PlatformInfo.UpdateSMBIOS", true)
		b.value("PlatformInfo.UpdateDataHub", true)

	case types.SerialModerate, types.SerialAdvanced:
		// Controller names the donor expects
		b.entry(types.SectionACPIPatch, "XHC1 to SHC1", "EHC1 to EH01", "EHC2 to EH02")
		b.nvram(constants.AppleBootGuid, "run-efi-updater", "No")
		b.value("PlatformInfo.Automatic", true)
		b.value("PlatformInfo.UpdateDataHub", true)
		b.value("PlatformInfo.UpdateNVRAM", true)
		b.value("PlatformInfo.UpdateSMBIOS", true)
		b.value("UEFI.ProtocolOverrides.DataHub", true)
		b.value("PlatformInfo.Generic.SystemProductName", ctx.Spoof.SpoofedModel)

		if strategy == types.SerialAdvanced {
			serial := ctx.Spoof.Serial
			if serial == nil {
				return errors.New("advanced strategy resolved without a serial")
			}
			rom, err := hex.DecodeString(serial.ROM)
			if err != nil {
				return err
			}
			b.value("PlatformInfo.Generic.SystemSerialNumber", serial.SerialNumber)
			b.value("PlatformInfo.Generic.MLB", serial.MLB)
			b.value("PlatformInfo.Generic.ROM", types.HexBytes(rom))
			b.value("PlatformInfo.Generic.SystemUUID", serial.SystemUUID)
			b.patcherNvram("OCLP-Spoofed-SN", serial.SerialNumber)
			b.patcherNvram("OCLP-Spoofed-MLB", serial.MLB)
		}
	}
	return nil
}

func securityActions(ctx *Context, b *builder) error {
	if ctx.Config.SipDisabled {
		b.nvram(constants.AppleBootGuid, constants.CsrConfigKey, mustHexBytes("03080000"))
	}
	if ctx.Config.SecureBootModel {
		b.value("Misc.Security.SecureBootModel", "Default")
	} else {
		b.value("Misc.Security.SecureBootModel", "Disabled")
	}
	return nil
}

// firmwareFeatureBytes encodes the mask the way the firmware stores it:
// eight bytes, little endian.
func firmwareFeatureBytes(mask types.HexInt) types.HexBytes {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, uint64(mask))
	return buf
}

func contains(values []string, v string) bool {
	for _, value := range values {
		if value == v {
			return true
		}
	}
	return false
}

func mustHexBytes(s string) types.HexBytes {
	b, err := hex.DecodeString(s)
	if err != nil {
		panic(err)
	}
	return b
}
