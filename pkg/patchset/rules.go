package patchset

// Rules returns the rule table in evaluation order. Order matters: a later
// rule may set a property that an earlier rule already set at the same
// device path, and the later value wins when the plan is applied.
func Rules() []Rule {
	return []Rule{
		{Name: "lilu", AppliesIf: always, Actions: liluActions},
		{Name: "cpu", AppliesIf: always, Actions: cpuActions},
		{Name: "power-management", AppliesIf: always, Actions: powerManagementActions},
		{Name: "acpi", AppliesIf: always, Actions: acpiActions},
		{Name: "firmware-drivers", AppliesIf: always, Actions: firmwareDriverActions},
		{Name: "firmware-compat", AppliesIf: always, Actions: firmwareCompatActions},
		{Name: "ethernet", AppliesIf: always, Actions: ethernetActions},
		{Name: "wireless", AppliesIf: hasWirelessPolicy, Actions: wirelessActions},
		{Name: "graphics", AppliesIf: always, Actions: graphicsActions},
		{Name: "dual-gpu", AppliesIf: (*Context).Spoofing, Actions: dualGpuActions},
		{Name: "audio", AppliesIf: always, Actions: audioActions},
		{Name: "bluetooth", AppliesIf: always, Actions: bluetoothActions},
		{Name: "smbios", AppliesIf: always, Actions: smbiosActions},
		{Name: "security", AppliesIf: always, Actions: securityActions},
		{Name: "misc", AppliesIf: always, Actions: miscActions},
		{Name: "root-volume", AppliesIf: rootPatchEnabled, Actions: rootVolumeActions},
	}
}

func always(*Context) bool {
	return true
}
