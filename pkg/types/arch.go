package types

// PCI vendor IDs
const (
	VendorNvidia     HexInt = 0x10de
	VendorAMD        HexInt = 0x1002
	VendorIntel      HexInt = 0x8086
	VendorBroadcom   HexInt = 0x14e4
	VendorAtheros    HexInt = 0x168c
	VendorAquantia   HexInt = 0x1d6a
	VendorMarvell    HexInt = 0x11ab
	VendorSysKonnect HexInt = 0x1148
)

// GpuArchitecture names a GPU silicon family. Values match the bucket names in the PCI ID catalog.
type GpuArchitecture string

const (
	GpuUnknown GpuArchitecture = "Unknown"

	// Nvidia
	GpuCurie   GpuArchitecture = "Curie"
	GpuTesla   GpuArchitecture = "Tesla"
	GpuFermi   GpuArchitecture = "Fermi"
	GpuKepler  GpuArchitecture = "Kepler"
	GpuMaxwell GpuArchitecture = "Maxwell"
	GpuPascal  GpuArchitecture = "Pascal"

	// AMD
	GpuR500          GpuArchitecture = "R500"
	GpuLegacyGCN7000 GpuArchitecture = "LegacyGCN7000"
	GpuLegacyGCN8000 GpuArchitecture = "LegacyGCN8000"
	GpuLegacyGCN9000 GpuArchitecture = "LegacyGCN9000"
	GpuTeraScale1    GpuArchitecture = "TeraScale1"
	GpuTeraScale2    GpuArchitecture = "TeraScale2"
	GpuPolaris       GpuArchitecture = "Polaris"
	GpuPolarisSpoof  GpuArchitecture = "PolarisSpoof"
	GpuVega          GpuArchitecture = "Vega"
	GpuNavi          GpuArchitecture = "Navi"

	// Intel
	GpuGMA950      GpuArchitecture = "GMA950"
	GpuGMAX3100    GpuArchitecture = "GMAX3100"
	GpuIronLake    GpuArchitecture = "IronLake"
	GpuSandyBridge GpuArchitecture = "SandyBridge"
	GpuIvyBridge   GpuArchitecture = "IvyBridge"
	GpuHaswell     GpuArchitecture = "Haswell"
	GpuBroadwell   GpuArchitecture = "Broadwell"
	GpuSkylake     GpuArchitecture = "Skylake"
	GpuKabyLake    GpuArchitecture = "KabyLake"
	GpuCoffeeLake  GpuArchitecture = "CoffeeLake"
	GpuCometLake   GpuArchitecture = "CometLake"
	GpuIceLake     GpuArchitecture = "IceLake"
)

// IsAMDMetal reports whether the architecture is an AMD GCN or newer part.
func (a GpuArchitecture) IsAMDMetal() bool {
	switch a {
	case GpuLegacyGCN7000, GpuLegacyGCN8000, GpuLegacyGCN9000,
		GpuPolaris, GpuPolarisSpoof, GpuVega, GpuNavi:
		return true
	}
	return false
}

// WirelessChipset names a wireless chipset family.
type WirelessChipset string

const (
	WirelessUnknown                 WirelessChipset = "Unknown"
	WirelessBCMWLANBusInterfacePCIe WirelessChipset = "AppleBCMWLANBusInterfacePCIe"
	WirelessBrcmNIC                 WirelessChipset = "AirportBrcmNIC"
	WirelessBrcmNICThirdParty       WirelessChipset = "AirPortBrcmNICThirdParty"
	WirelessBrcm4360                WirelessChipset = "AirPortBrcm4360"
	WirelessBrcm4331                WirelessChipset = "AirPortBrcm4331"
	WirelessBrcm43224               WirelessChipset = "AirPortBrcm43224"
	WirelessAtheros40               WirelessChipset = "AirPortAtheros40"
)

// EthernetChipset names the Apple driver family for a wired controller.
type EthernetChipset string

const (
	EthernetUnknown     EthernetChipset = "Unknown"
	EthernetIntel8254X  EthernetChipset = "AppleIntel8254XEthernet"
	EthernetIntelI210   EthernetChipset = "AppleIntelI210Ethernet"
	EthernetIntel82574L EthernetChipset = "Intel82574L"
	EthernetBCM5701     EthernetChipset = "AppleBCM5701Ethernet"
	EthernetAquantia    EthernetChipset = "AppleEthernetAquantiaAqtion"
	EthernetMarvell     EthernetChipset = "MarvelYukonEthernet"
	EthernetNForce      EthernetChipset = "nForceEthernet"
)
