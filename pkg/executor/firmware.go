package executor

import (
	"io"
	"path"
	"strings"

	"github.com/google/shlex"
	"github.com/pkg/errors"
	"howett.net/plist"

	"github.com/jpnorenam/legacy-patcher/pkg/constants"
	"github.com/jpnorenam/legacy-patcher/pkg/types"
)

// FirmwareDocument is the boot loader configuration the firmware actions of
// a plan are applied to. Actions are applied in plan order, so a later write
// to the same key replaces an earlier one. The document is serialized once.
type FirmwareDocument struct {
	root map[string]any
}

// Fields identifying an entry of each array section
var entryKeys = map[string][]string{
	types.SectionACPI:        {"Path"},
	types.SectionACPIPatch:   {"Comment"},
	types.SectionBooterPatch: {"Comment"},
	types.SectionKernelPatch: {"Comment", "Identifier"},
	types.SectionKernelBlock: {"Identifier", "Comment"},
	types.SectionUEFIDrivers: {"Path"},
}

func NewFirmwareDocument() *FirmwareDocument {
	return &FirmwareDocument{root: map[string]any{
		"ACPI":             map[string]any{"Add": []any{}, "Patch": []any{}},
		"Booter":           map[string]any{"Patch": []any{}},
		"DeviceProperties": map[string]any{"Add": map[string]any{}},
		"Kernel": map[string]any{
			"Add":    []any{},
			"Block":  []any{},
			"Patch":  []any{},
			"Quirks": map[string]any{},
		},
		"Misc": map[string]any{
			"Boot":     map[string]any{},
			"Debug":    map[string]any{},
			"Security": map[string]any{},
		},
		"NVRAM": map[string]any{"Add": map[string]any{}, "Delete": map[string]any{}},
		"PlatformInfo": map[string]any{
			"Generic":       map[string]any{},
			"PlatformNVRAM": map[string]any{},
			"SMBIOS":        map[string]any{},
		},
		"UEFI": map[string]any{"Drivers": []any{}, "ProtocolOverrides": map[string]any{}},
	}}
}

// ReadFirmwareDocument decodes an existing configuration, e.g. a template
// that already lists every kext and patch disabled.
func ReadFirmwareDocument(r io.ReadSeeker) (*FirmwareDocument, error) {
	var root map[string]any
	if err := plist.NewDecoder(r).Decode(&root); err != nil {
		return nil, errors.Wrap(err, "decoding firmware document")
	}
	return &FirmwareDocument{root: root}, nil
}

func (d *FirmwareDocument) Encode(w io.Writer) error {
	enc := plist.NewEncoderForFormat(w, plist.XMLFormat)
	enc.Indent("\t")
	return enc.Encode(d.root)
}

// Apply applies firmware actions in order. Volume actions are rejected.
func (d *FirmwareDocument) Apply(actions []types.PatchAction) error {
	for i, a := range actions {
		if err := d.apply(a); err != nil {
			return errors.Wrapf(err, "action %d (%s %s)", i, a.Kind, a.Target())
		}
	}
	return nil
}

func (d *FirmwareDocument) apply(a types.PatchAction) error {
	switch {
	case a.EnableKext != nil:
		return d.enableKext(a.EnableKext.BundleId)
	case a.SetDeviceProperty != nil:
		p := a.SetDeviceProperty
		props, err := d.dict("DeviceProperties.Add." + p.DevicePath)
		if err != nil {
			return err
		}
		props[p.Key] = plistValue(p.Value)
	case a.AppendBootArgument != nil:
		return d.appendBootArg(a.AppendBootArgument.Token)
	case a.SetNvramVariable != nil:
		return d.setNvram(a.SetNvramVariable.Guid, a.SetNvramVariable.Key, a.SetNvramVariable.Value)
	case a.EnableConfigEntry != nil:
		return d.enableEntry(a.EnableConfigEntry.Section, a.EnableConfigEntry.Name)
	case a.SetConfigValue != nil:
		return d.Set(a.SetConfigValue.KeyPath, a.SetConfigValue.Value)
	default:
		return errors.Errorf("%s is not a firmware action", a.Kind)
	}
	return nil
}

// Value returns the value at a dot separated key path.
func (d *FirmwareDocument) Value(keyPath string) (any, bool) {
	var cur any = d.root
	for _, part := range splitKeyPath(keyPath) {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = m[part]; !ok {
			return nil, false
		}
	}
	return cur, true
}

// Set writes value at a dot separated key path, creating dictionaries on the way.
func (d *FirmwareDocument) Set(keyPath string, value any) error {
	parts := splitKeyPath(keyPath)
	if len(parts) == 0 {
		return errors.New("empty key path")
	}
	parent, err := d.dict(strings.Join(parts[:len(parts)-1], "."))
	if err != nil {
		return err
	}
	parent[parts[len(parts)-1]] = plistValue(value)
	return nil
}

// BootArgs returns the boot-args NVRAM value.
func (d *FirmwareDocument) BootArgs() string {
	v, _ := d.nvramValue(constants.AppleBootGuid, constants.BootArgsKey).(string)
	return v
}

// Device paths contain no dots, but NVRAM GUID sections are addressed
// through helpers anyway so that only the first levels are split.
func splitKeyPath(keyPath string) []string {
	if keyPath == "" {
		return nil
	}
	if rest, ok := strings.CutPrefix(keyPath, "DeviceProperties.Add."); ok {
		return []string{"DeviceProperties", "Add", rest}
	}
	return strings.Split(keyPath, ".")
}

func (d *FirmwareDocument) dict(keyPath string) (map[string]any, error) {
	cur := d.root
	for _, part := range splitKeyPath(keyPath) {
		next, ok := cur[part]
		if !ok {
			m := map[string]any{}
			cur[part] = m
			cur = m
			continue
		}
		m, ok := next.(map[string]any)
		if !ok {
			return nil, errors.Errorf("%s: %s is not a dictionary", keyPath, part)
		}
		cur = m
	}
	return cur, nil
}

func (d *FirmwareDocument) array(keyPath string) ([]any, error) {
	v, ok := d.Value(keyPath)
	if !ok {
		return nil, nil
	}
	arr, ok := v.([]any)
	if !ok {
		return nil, errors.Errorf("%s is not an array", keyPath)
	}
	return arr, nil
}

func (d *FirmwareDocument) enableKext(bundle string) error {
	kexts, err := d.array("Kernel.Add")
	if err != nil {
		return err
	}
	for _, k := range kexts {
		if entry, ok := k.(map[string]any); ok && entry["BundlePath"] == bundle {
			entry["Enabled"] = true
			return nil
		}
	}
	name := strings.TrimSuffix(path.Base(bundle), ".kext")
	kexts = append(kexts, map[string]any{
		"Arch":           "x86_64",
		"BundlePath":     bundle,
		"Comment":        "",
		"Enabled":        true,
		"ExecutablePath": "Contents/MacOS/" + name,
		"MaxKernel":      "",
		"MinKernel":      "",
		"PlistPath":      "Contents/Info.plist",
	})
	return d.Set("Kernel.Add", kexts)
}

// enableEntry enables every entry of section whose identifying field equals
// name, adding one when none exists.
func (d *FirmwareDocument) enableEntry(section, name string) error {
	keys, ok := entryKeys[section]
	if !ok {
		return errors.Errorf("unknown config section %s", section)
	}
	entries, err := d.array(section)
	if err != nil {
		return err
	}

	found := false
	for _, e := range entries {
		entry, ok := e.(map[string]any)
		if !ok {
			continue
		}
		for _, key := range keys {
			if entry[key] == name {
				entry["Enabled"] = true
				found = true
				break
			}
		}
	}
	if found {
		return nil
	}
	entries = append(entries, map[string]any{keys[0]: name, "Enabled": true})
	return d.Set(section, entries)
}

func (d *FirmwareDocument) appendBootArg(token string) error {
	current := d.BootArgs()
	args, err := shlex.Split(current)
	if err != nil {
		return errors.Wrapf(err, "parsing boot-args %q", current)
	}
	for _, arg := range args {
		if arg == token {
			return nil
		}
	}
	return d.setNvram(constants.AppleBootGuid, constants.BootArgsKey, strings.Join(append(args, token), " "))
}

func (d *FirmwareDocument) nvramValue(guid, key string) any {
	v, _ := d.Value("NVRAM.Add." + guid + "." + key)
	return v
}

// setNvram writes an NVRAM variable and lists it for deletion so that the
// value stored on the machine is replaced at boot.
func (d *FirmwareDocument) setNvram(guid, key string, value any) error {
	vars, err := d.dict("NVRAM.Add." + guid)
	if err != nil {
		return err
	}
	vars[key] = plistValue(value)

	deletes, err := d.dict("NVRAM.Delete")
	if err != nil {
		return err
	}
	listed, _ := deletes[guid].([]any)
	for _, k := range listed {
		if k == key {
			return nil
		}
	}
	deletes[guid] = append(listed, key)
	return nil
}

// plistValue converts action values to types the encoder writes natively.
// HexBytes would otherwise be written as a string.
func plistValue(v any) any {
	switch v := v.(type) {
	case types.HexBytes:
		return []byte(v)
	case types.HexInt:
		return uint64(v)
	}
	return v
}
