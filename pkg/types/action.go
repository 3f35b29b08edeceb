package types

import (
	"fmt"
	"path"
	"strings"

	"github.com/jpnorenam/legacy-patcher/pkg/constants"
)

type ActionKind string

const (
	ActionEnableKext          ActionKind = "enable-kext"
	ActionSetDeviceProperty   ActionKind = "set-device-property"
	ActionAppendBootArgument  ActionKind = "append-boot-argument"
	ActionSetNvramVariable    ActionKind = "set-nvram-variable"
	ActionEnableConfigEntry   ActionKind = "enable-config-entry"
	ActionSetConfigValue      ActionKind = "set-config-value"
	ActionInstallFile         ActionKind = "install-file"
	ActionRemoveFile          ActionKind = "remove-file"
	ActionRequireCacheRebuild ActionKind = "require-cache-rebuild"
)

type Placement string

const (
	PlacementFirmware Placement = "firmware"
	PlacementVolume   Placement = "volume"
)

type MergePolicy string

const (
	MergeOverwrite    MergePolicy = "overwrite"
	MergeUnion        MergePolicy = "merge"
	MergeOnDataVolume MergePolicy = "merge-data"
)

func (m MergePolicy) Valid() bool {
	switch m {
	case MergeOverwrite, MergeUnion, MergeOnDataVolume:
		return true
	}
	return false
}

type CacheScope string

const (
	CacheScopeNone CacheScope = ""
	// Boot and system kernel collections
	CacheScopeFull CacheScope = "full"
	// Auxiliary kernel collection only
	CacheScopeAux CacheScope = "aux"
)

// Wider returns the scope that covers both s and other.
func (s CacheScope) Wider(other CacheScope) CacheScope {
	if s == CacheScopeFull || other == CacheScopeFull {
		return CacheScopeFull
	}
	if s == CacheScopeAux || other == CacheScopeAux {
		return CacheScopeAux
	}
	return CacheScopeNone
}

// Config document sections toggled by EnableConfigEntry
const (
	SectionACPI        = "ACPI.Add"
	SectionACPIPatch   = "ACPI.Patch"
	SectionBooterPatch = "Booter.Patch"
	SectionKernelPatch = "Kernel.Patch"
	SectionKernelBlock = "Kernel.Block"
	SectionUEFIDrivers = "UEFI.Drivers"
)

// PatchAction is a tagged union: Kind selects which of the variant fields is set.
type PatchAction struct {
	Kind ActionKind `json:"kind" yaml:"kind"`
	Rule string     `json:"rule" yaml:"rule"`

	EnableKext          *EnableKext          `json:"enable-kext,omitempty" yaml:"enable-kext,omitempty"`
	SetDeviceProperty   *SetDeviceProperty   `json:"set-device-property,omitempty" yaml:"set-device-property,omitempty"`
	AppendBootArgument  *AppendBootArgument  `json:"append-boot-argument,omitempty" yaml:"append-boot-argument,omitempty"`
	SetNvramVariable    *SetNvramVariable    `json:"set-nvram-variable,omitempty" yaml:"set-nvram-variable,omitempty"`
	EnableConfigEntry   *EnableConfigEntry   `json:"enable-config-entry,omitempty" yaml:"enable-config-entry,omitempty"`
	SetConfigValue      *SetConfigValue      `json:"set-config-value,omitempty" yaml:"set-config-value,omitempty"`
	InstallFile         *InstallFile         `json:"install-file,omitempty" yaml:"install-file,omitempty"`
	RemoveFile          *RemoveFile          `json:"remove-file,omitempty" yaml:"remove-file,omitempty"`
	RequireCacheRebuild *RequireCacheRebuild `json:"require-cache-rebuild,omitempty" yaml:"require-cache-rebuild,omitempty"`
}

type EnableKext struct {
	// Bundle path relative to the kext directory, plugins included
	// (e.g. "IO80211ElCap.kext/Contents/PlugIns/AirPortBrcm4331.kext").
	BundleId  string `json:"bundle-id" yaml:"bundle-id"`
	Version   string `json:"version,omitempty" yaml:"version,omitempty"`
	SourceRef string `json:"source-ref,omitempty" yaml:"source-ref,omitempty"`
}

type SetDeviceProperty struct {
	DevicePath string `json:"device-path" yaml:"device-path"`
	Key        string `json:"key" yaml:"key"`
	// string, HexBytes, int or bool
	Value any `json:"value" yaml:"value"`
}

type AppendBootArgument struct {
	Token string `json:"token" yaml:"token"`
}

type SetNvramVariable struct {
	Guid  string `json:"guid" yaml:"guid"`
	Key   string `json:"key" yaml:"key"`
	Value any    `json:"value" yaml:"value"`
}

type EnableConfigEntry struct {
	Section string `json:"section" yaml:"section"`
	Name    string `json:"name" yaml:"name"`
}

type SetConfigValue struct {
	// Dot separated key path, e.g. "Kernel.Quirks.DisableLinkeditJettison"
	KeyPath string `json:"key-path" yaml:"key-path"`
	Value   any    `json:"value" yaml:"value"`
}

type InstallFile struct {
	Source      string      `json:"source" yaml:"source"`
	Destination string      `json:"destination" yaml:"destination"`
	MergePolicy MergePolicy `json:"merge-policy" yaml:"merge-policy"`
}

type RemoveFile struct {
	Path string `json:"path" yaml:"path"`
}

type RequireCacheRebuild struct {
	Scope CacheScope `json:"scope" yaml:"scope"`
}

func NewEnableKext(rule, bundleId, version string) PatchAction {
	return PatchAction{Kind: ActionEnableKext, Rule: rule, EnableKext: &EnableKext{
		BundleId:  bundleId,
		Version:   version,
		SourceRef: kextSourceRef(bundleId, version),
	}}
}

func kextSourceRef(bundleId, version string) string {
	top := strings.SplitN(bundleId, "/", 2)[0]
	if version == "" {
		return path.Join("kexts", top)
	}
	return path.Join("kexts", strings.TrimSuffix(top, ".kext")+"-v"+version+".zip")
}

func NewSetDeviceProperty(rule, devicePath, key string, value any) PatchAction {
	return PatchAction{Kind: ActionSetDeviceProperty, Rule: rule, SetDeviceProperty: &SetDeviceProperty{
		DevicePath: devicePath,
		Key:        key,
		Value:      value,
	}}
}

func NewAppendBootArgument(rule, token string) PatchAction {
	return PatchAction{Kind: ActionAppendBootArgument, Rule: rule, AppendBootArgument: &AppendBootArgument{Token: token}}
}

func NewSetNvramVariable(rule, guid, key string, value any) PatchAction {
	return PatchAction{Kind: ActionSetNvramVariable, Rule: rule, SetNvramVariable: &SetNvramVariable{
		Guid:  guid,
		Key:   key,
		Value: value,
	}}
}

func NewEnableConfigEntry(rule, section, name string) PatchAction {
	return PatchAction{Kind: ActionEnableConfigEntry, Rule: rule, EnableConfigEntry: &EnableConfigEntry{
		Section: section,
		Name:    name,
	}}
}

func NewSetConfigValue(rule, keyPath string, value any) PatchAction {
	return PatchAction{Kind: ActionSetConfigValue, Rule: rule, SetConfigValue: &SetConfigValue{
		KeyPath: keyPath,
		Value:   value,
	}}
}

func NewInstallFile(rule, source, destination string, policy MergePolicy) PatchAction {
	return PatchAction{Kind: ActionInstallFile, Rule: rule, InstallFile: &InstallFile{
		Source:      source,
		Destination: destination,
		MergePolicy: policy,
	}}
}

func NewRemoveFile(rule, path string) PatchAction {
	return PatchAction{Kind: ActionRemoveFile, Rule: rule, RemoveFile: &RemoveFile{Path: path}}
}

func NewRequireCacheRebuild(rule string, scope CacheScope) PatchAction {
	return PatchAction{Kind: ActionRequireCacheRebuild, Rule: rule, RequireCacheRebuild: &RequireCacheRebuild{Scope: scope}}
}

func (a PatchAction) Placement() Placement {
	switch a.Kind {
	case ActionInstallFile, ActionRemoveFile, ActionRequireCacheRebuild:
		return PlacementVolume
	}
	return PlacementFirmware
}

// Target is the path, key or token the action operates on.
func (a PatchAction) Target() string {
	switch {
	case a.EnableKext != nil:
		return a.EnableKext.BundleId
	case a.SetDeviceProperty != nil:
		return a.SetDeviceProperty.DevicePath + ":" + a.SetDeviceProperty.Key
	case a.AppendBootArgument != nil:
		return a.AppendBootArgument.Token
	case a.SetNvramVariable != nil:
		return a.SetNvramVariable.Guid + ":" + a.SetNvramVariable.Key
	case a.EnableConfigEntry != nil:
		return a.EnableConfigEntry.Section + ":" + a.EnableConfigEntry.Name
	case a.SetConfigValue != nil:
		return a.SetConfigValue.KeyPath
	case a.InstallFile != nil:
		return a.InstallFile.Destination
	case a.RemoveFile != nil:
		return a.RemoveFile.Path
	case a.RequireCacheRebuild != nil:
		return string(a.RequireCacheRebuild.Scope)
	}
	return ""
}

// CacheScope is the kernel cache rebuild the action makes necessary.
func (a PatchAction) CacheScope() CacheScope {
	var target string
	switch {
	case a.RequireCacheRebuild != nil:
		return a.RequireCacheRebuild.Scope
	case a.InstallFile != nil:
		target = a.InstallFile.Destination
	case a.RemoveFile != nil:
		target = a.RemoveFile.Path
	default:
		return CacheScopeNone
	}
	return CacheScopeForPath(target)
}

// IsDriverInstall reports whether the action writes into a kernel extension directory.
func (a PatchAction) IsDriverInstall() bool {
	return a.InstallFile != nil && CacheScopeForPath(a.InstallFile.Destination) != CacheScopeNone
}

func CacheScopeForPath(p string) CacheScope {
	p = path.Clean(p)
	if p == constants.SystemExtensionsDir || strings.HasPrefix(p, constants.SystemExtensionsDir+"/") {
		return CacheScopeFull
	}
	if p == constants.LibraryExtensionsDir || strings.HasPrefix(p, constants.LibraryExtensionsDir+"/") {
		return CacheScopeAux
	}
	return CacheScopeNone
}

func (a PatchAction) String() string {
	switch {
	case a.SetDeviceProperty != nil:
		return fmt.Sprintf("%s %s %s=%v", a.Kind, a.SetDeviceProperty.DevicePath, a.SetDeviceProperty.Key, a.SetDeviceProperty.Value)
	case a.SetConfigValue != nil:
		return fmt.Sprintf("%s %s=%v", a.Kind, a.SetConfigValue.KeyPath, a.SetConfigValue.Value)
	case a.SetNvramVariable != nil:
		return fmt.Sprintf("%s %s:%s=%v", a.Kind, a.SetNvramVariable.Guid, a.SetNvramVariable.Key, a.SetNvramVariable.Value)
	case a.InstallFile != nil:
		return fmt.Sprintf("%s %s -> %s (%s)", a.Kind, a.InstallFile.Source, a.InstallFile.Destination, a.InstallFile.MergePolicy)
	}
	return fmt.Sprintf("%s %s", a.Kind, a.Target())
}
