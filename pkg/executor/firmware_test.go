package executor

import (
	"bytes"

	"github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/jpnorenam/legacy-patcher/pkg/constants"
	"github.com/jpnorenam/legacy-patcher/pkg/types"
)

const gfx0 = "PciRoot(0x0)/Pci(0x1,0x0)/Pci(0x0,0x0)"

func valueAt(doc *FirmwareDocument, keyPath string) any {
	v, ok := doc.Value(keyPath)
	Expect(ok).To(BeTrue(), "missing %s", keyPath)
	return v
}

var _ = ginkgo.Describe("FirmwareDocument", func() {
	var doc *FirmwareDocument

	ginkgo.BeforeEach(func() {
		doc = NewFirmwareDocument()
	})

	ginkgo.It("keeps the last write to a device property", func() {
		Expect(doc.Apply([]types.PatchAction{
			types.NewSetDeviceProperty("gpu", gfx0, "agdpmod", "pikera"),
			types.NewSetDeviceProperty("drm", gfx0, "agdpmod", "vit9696"),
			types.NewSetDeviceProperty("drm", gfx0, "shikigva", 256),
		})).To(Succeed())

		props := valueAt(doc, "DeviceProperties.Add."+gfx0)
		Expect(props).To(HaveKeyWithValue("agdpmod", "vit9696"))
		Expect(props).To(HaveKeyWithValue("shikigva", 256))
	})

	ginkgo.It("appends boot arguments once and schedules the NVRAM delete", func() {
		Expect(doc.Apply([]types.PatchAction{
			types.NewAppendBootArgument("misc", "-v"),
			types.NewAppendBootArgument("cpu", "-nehalem_error_disable"),
			types.NewAppendBootArgument("misc", "-v"),
		})).To(Succeed())

		Expect(doc.BootArgs()).To(Equal("-v -nehalem_error_disable"))
		deletes := valueAt(doc, "NVRAM.Delete."+constants.AppleBootGuid)
		Expect(deletes).To(Equal([]any{constants.BootArgsKey}))
	})

	ginkgo.It("enables kexts already listed and adds the others", func() {
		Expect(doc.Set("Kernel.Add", []any{
			map[string]any{"BundlePath": "Lilu.kext", "Enabled": false},
		})).To(Succeed())
		Expect(doc.Apply([]types.PatchAction{
			types.NewEnableKext("base", "Lilu.kext", "1.6.7"),
			types.NewEnableKext("gpu", "WhateverGreen.kext", "1.6.6"),
		})).To(Succeed())

		kexts := valueAt(doc, "Kernel.Add")
		Expect(kexts).To(HaveLen(2))
		list := kexts.([]any)
		Expect(list[0]).To(HaveKeyWithValue("Enabled", true))
		Expect(list[1]).To(HaveKeyWithValue("ExecutablePath", "Contents/MacOS/WhateverGreen"))
	})

	ginkgo.It("matches kernel patches by identifier or comment", func() {
		Expect(doc.Set(types.SectionKernelPatch, []any{
			map[string]any{"Identifier": "com.apple.driver.AppleSMC", "Comment": "SMC patch", "Enabled": false},
			map[string]any{"Identifier": "kernel", "Comment": "CaseySJ - Fix PCI bus enumeration (Ventura)", "Enabled": false},
		})).To(Succeed())
		Expect(doc.Apply([]types.PatchAction{
			types.NewEnableConfigEntry("smc", types.SectionKernelPatch, "com.apple.driver.AppleSMC"),
			types.NewEnableConfigEntry("pci", types.SectionKernelPatch, "CaseySJ - Fix PCI bus enumeration (Ventura)"),
		})).To(Succeed())

		patches := valueAt(doc, types.SectionKernelPatch)
		for _, p := range patches.([]any) {
			Expect(p).To(HaveKeyWithValue("Enabled", true))
		}
	})

	ginkgo.It("rejects unknown sections and volume actions", func() {
		Expect(doc.Apply([]types.PatchAction{
			types.NewEnableConfigEntry("x", "Misc.Tools", "Shell.efi"),
		})).NotTo(Succeed())
		Expect(doc.Apply([]types.PatchAction{
			types.NewRemoveFile("x", "/System/Library/Extensions/Foo.kext"),
		})).NotTo(Succeed())
	})

	ginkgo.It("round trips through the plist encoding", func() {
		Expect(doc.Apply([]types.PatchAction{
			types.NewSetConfigValue("smbios", "PlatformInfo.Generic.SystemProductName", "iMac11,3"),
			types.NewSetConfigValue("smbios", "PlatformInfo.Generic.ROM", types.HexBytes{0x00, 0x16, 0xCB, 0x44, 0x55, 0x66}),
			types.NewSetConfigValue("smbios", "PlatformInfo.Automatic", true),
			types.NewAppendBootArgument("misc", "-v"),
		})).To(Succeed())

		var buf bytes.Buffer
		Expect(doc.Encode(&buf)).To(Succeed())
		Expect(buf.String()).To(ContainSubstring("<key>SystemProductName</key>"))

		decoded, err := ReadFirmwareDocument(bytes.NewReader(buf.Bytes()))
		Expect(err).NotTo(HaveOccurred())
		Expect(valueAt(decoded, "PlatformInfo.Generic.SystemProductName")).To(Equal("iMac11,3"))
		Expect(valueAt(decoded, "PlatformInfo.Generic.ROM")).To(Equal([]byte{0x00, 0x16, 0xCB, 0x44, 0x55, 0x66}))
		Expect(valueAt(decoded, "PlatformInfo.Automatic")).To(BeTrue())
		Expect(decoded.BootArgs()).To(Equal("-v"))
	})
})
