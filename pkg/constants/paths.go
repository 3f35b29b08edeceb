package constants

const (
	// NVRAM namespaces
	AppleBootGuid  = "7C436110-AB2A-4BBB-A880-FE41995C9F82"
	PatcherGuid    = "4D1FDA02-38C7-4A6A-9CC6-4BCCA8B30102"
	BootArgsKey    = "boot-args"
	CsrConfigKey   = "csr-active-config"
	PatcherVersion = "0.6.0"

	// Root volume patching
	UpdateMountPoint = "/System/Volumes/Update/mnt1"
	LockFilePath     = "/var/run/legacy-patcher.lock"
	PayloadsDir      = "/Library/Application Support/Legacy Patcher/Payloads"

	SystemExtensionsDir  = "/System/Library/Extensions"
	LibraryExtensionsDir = "/Library/Extensions"
)
