package pci

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"

	"howett.net/plist"

	"github.com/jpnorenam/legacy-patcher/pkg/types"
)

// Entry is one node of an IOService plane dump, as printed by `ioreg -a -l`.
type Entry struct {
	Name       string
	Class      string
	Location   string
	Properties map[string]any
	Children   []*Entry
}

// Keys ioreg adds to every archived entry
const (
	keyName     = "IORegistryEntryName"
	keyClass    = "IOObjectClass"
	keyLocation = "IORegistryEntryLocation"
	keyChildren = "IORegistryEntryChildren"
)

// ParseIoreg decodes `ioreg -a` output. A dump of several trees, as printed
// with -r, is returned under an unnamed root.
func ParseIoreg(data []byte) (*Entry, error) {
	var raw any
	if err := plist.NewDecoder(bytes.NewReader(data)).Decode(&raw); err != nil {
		return nil, fmt.Errorf("error decoding ioreg output: %v", err)
	}
	switch v := raw.(type) {
	case map[string]any:
		return newEntry(v), nil
	case []any:
		root := &Entry{Properties: map[string]any{}}
		for _, child := range v {
			if m, ok := child.(map[string]any); ok {
				root.Children = append(root.Children, newEntry(m))
			}
		}
		return root, nil
	}
	return nil, fmt.Errorf("unexpected ioreg output of type %T", raw)
}

func newEntry(m map[string]any) *Entry {
	e := &Entry{Properties: map[string]any{}}
	for key, value := range m {
		switch key {
		case keyName:
			e.Name, _ = value.(string)
		case keyClass:
			e.Class, _ = value.(string)
		case keyLocation:
			e.Location, _ = value.(string)
		case keyChildren:
			children, _ := value.([]any)
			for _, child := range children {
				if cm, ok := child.(map[string]any); ok {
					e.Children = append(e.Children, newEntry(cm))
				}
			}
		default:
			e.Properties[key] = value
		}
	}
	return e
}

// Walk calls fn for every entry below and including e, parents first. The
// ancestors slice ends with e's parent and must not be retained.
func (e *Entry) Walk(fn func(e *Entry, ancestors []*Entry)) {
	e.walk(nil, fn)
}

func (e *Entry) walk(ancestors []*Entry, fn func(*Entry, []*Entry)) {
	fn(e, ancestors)
	ancestors = append(ancestors, e)
	for _, child := range e.Children {
		child.walk(ancestors, fn)
	}
}

// Find returns the first entry of the given class, searching depth first.
func (e *Entry) Find(class string) *Entry {
	var found *Entry
	e.Walk(func(entry *Entry, _ []*Entry) {
		if found == nil && entry.Class == class {
			found = entry
		}
	})
	return found
}

// FindProperty returns the first value of key on e or one of its descendants.
func (e *Entry) FindProperty(key string) (any, bool) {
	if v, ok := e.Properties[key]; ok {
		return v, true
	}
	for _, child := range e.Children {
		if v, ok := child.FindProperty(key); ok {
			return v, true
		}
	}
	return nil, false
}

// String returns a string property, decoding NUL terminated data the way
// the registry stores model and board-id.
func (e *Entry) String(key string) string {
	return PropertyString(e.Properties[key])
}

func PropertyString(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case []byte:
		return string(bytes.TrimRight(v, "\x00"))
	}
	return ""
}

// PropertyInt reads little endian data, integers and numeric strings
// ("0x" prefixed strings are hex).
func PropertyInt(v any) (uint64, bool) {
	switch v := v.(type) {
	case []byte:
		var buf [8]byte
		copy(buf[:], v)
		return binary.LittleEndian.Uint64(buf[:]), len(v) > 0
	case uint64:
		return v, true
	case int64:
		return uint64(v), true
	case string:
		n, err := strconv.ParseUint(v, 0, 64)
		return n, err == nil
	}
	return 0, false
}

// Device is a PCI function found in the registry.
type Device struct {
	VendorId  types.HexInt
	DeviceId  types.HexInt
	ClassCode types.HexInt
	// Ids from the IOName match string. Device property injection changes
	// vendor-id and device-id but not these.
	NativeVendorId types.HexInt
	NativeDeviceId types.HexInt

	Name string
	// Firmware device path, empty when the device is not below a PCI root
	Path string

	Entry *Entry
}

func isPciDevice(e *Entry) bool {
	return e.Class == "IOPCIDevice"
}

func isPciBridge(e *Entry) bool {
	return e.Class == "IOPCIBridge" || e.Class == "AppleACPIPCI" || strings.HasSuffix(e.Class, "PCI2PCIBridge")
}

func isAcpiDevice(e *Entry) bool {
	return e.Class == "IOACPIPlatformDevice"
}

// Devices lists every PCI function below root in registry order.
func Devices(root *Entry) []Device {
	var devices []Device
	root.Walk(func(e *Entry, ancestors []*Entry) {
		if !isPciDevice(e) {
			return
		}
		if _, ok := e.Properties["class-code"]; !ok {
			return
		}
		devices = append(devices, newDevice(e, ancestors))
	})
	return devices
}

func newDevice(e *Entry, ancestors []*Entry) Device {
	vendor, _ := PropertyInt(e.Properties["vendor-id"])
	device, _ := PropertyInt(e.Properties["device-id"])
	// class-code is three bytes of a four byte little endian value
	class, _ := PropertyInt(e.Properties["class-code"])

	d := Device{
		VendorId:       types.HexInt(vendor & 0xFFFF),
		DeviceId:       types.HexInt(device & 0xFFFF),
		ClassCode:      types.HexInt(class & 0xFFFFFF),
		NativeVendorId: types.HexInt(vendor & 0xFFFF),
		NativeDeviceId: types.HexInt(device & 0xFFFF),
		Name:           e.Name,
		Path:           devicePath(e, ancestors),
		Entry:          e,
	}

	// IOName is "pci14e4,43a0" unless a compatible name was injected
	ioName := PropertyString(e.Properties["IOName"])
	if ids, ok := strings.CutPrefix(ioName, "pci"); ok {
		if v, dev, ok := strings.Cut(ids, ","); ok {
			vi, err1 := strconv.ParseUint(v, 16, 16)
			di, err2 := strconv.ParseUint(dev, 16, 16)
			if err1 == nil && err2 == nil {
				d.NativeVendorId, d.NativeDeviceId = types.HexInt(vi), types.HexInt(di)
			}
		}
	}
	return d
}

// devicePath builds the firmware path of e by walking up through PCI
// devices and bridges to the ACPI root bridge. Anything else on the way, or
// a virtual device without a numeric location, yields no path.
func devicePath(e *Entry, ancestors []*Entry) string {
	var parts []string
	chain := append(append([]*Entry(nil), ancestors...), e)
	for i := len(chain) - 1; i >= 0; i-- {
		entry := chain[i]
		switch {
		case isPciDevice(entry):
			part, err := pciNode(entry.Location)
			if err != nil {
				return ""
			}
			parts = append(parts, part)
		case isAcpiDevice(entry):
			uid, _ := PropertyInt(entry.Properties["_UID"])
			parts = append(parts, fmt.Sprintf("PciRoot(0x%X)", uid))
			for l, r := 0, len(parts)-1; l < r; l, r = l+1, r-1 {
				parts[l], parts[r] = parts[r], parts[l]
			}
			return strings.Join(parts, "/")
		case isPciBridge(entry):
		default:
			return ""
		}
	}
	return ""
}

// pciNode converts a registry location ("1C,3" or "2") to Pci(dev,fn).
func pciNode(location string) (string, error) {
	dev, fn, _ := strings.Cut(location, ",")
	if fn == "" {
		fn = "0"
	}
	d, err := strconv.ParseUint(dev, 16, 8)
	if err != nil {
		return "", err
	}
	f, err := strconv.ParseUint(fn, 16, 8)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Pci(0x%X,0x%X)", d, f), nil
}

// UsbProductNames lists the product names of every USB device below root.
func UsbProductNames(root *Entry) []string {
	var names []string
	root.Walk(func(e *Entry, _ []*Entry) {
		if name := e.String("USB Product Name"); name != "" {
			names = append(names, name)
		}
	})
	return names
}
