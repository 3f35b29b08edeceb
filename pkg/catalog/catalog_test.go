package catalog

import (
	"errors"
	"io/fs"
	"testing"
	"testing/fstest"

	"github.com/jpnorenam/legacy-patcher/pkg/types"
)

func defaultCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := Default()
	if err != nil {
		t.Fatalf("expected no error loading embedded catalog, got %v", err)
	}
	return c
}

// embeddedWith returns the embedded data files with name replaced by data.
func embeddedWith(t *testing.T, name, data string) fstest.MapFS {
	t.Helper()
	files := fstest.MapFS{}
	sub, err := fs.Sub(embedded, "data")
	if err != nil {
		t.Fatal(err)
	}
	entries, err := fs.ReadDir(sub, ".")
	if err != nil {
		t.Fatal(err)
	}
	for _, entry := range entries {
		content, err := fs.ReadFile(sub, entry.Name())
		if err != nil {
			t.Fatal(err)
		}
		files[entry.Name()] = &fstest.MapFile{Data: content}
	}
	files[name] = &fstest.MapFile{Data: []byte(data)}
	return files
}

func TestLoadDefault(t *testing.T) {
	c := defaultCatalog(t)

	record, ok := c.Model("MacBookPro9,1")
	if !ok {
		t.Fatal("MacBookPro9,1 not found")
	}
	if record.Model != "MacBookPro9,1" {
		t.Errorf("model name not set on record: %q", record.Model)
	}
	if record.BoardId != "Mac-4B7AC7E43945597E" {
		t.Errorf("unexpected board id %s", record.BoardId)
	}
	if record.FirmwareFeatures == nil || *record.FirmwareFeatures != 0xC00DE137 {
		t.Errorf("unexpected firmware features %v", record.FirmwareFeatures)
	}
	if !record.SwitchableGpus || record.ScreenSize == nil || *record.ScreenSize != 15 {
		t.Errorf("unexpected chassis hints %+v", record)
	}
	if record.WirelessModel != types.WirelessBrcm4360 {
		t.Errorf("unexpected wireless model %s", record.WirelessModel)
	}

	if _, ok := c.Model("NonExistentModel9,9"); ok {
		t.Fatal("unexpected record for unknown model")
	}
}

func TestSets(t *testing.T) {
	c := defaultCatalog(t)

	tests := []struct {
		set      string
		model    string
		expected bool
	}{
		{SetMustSpoof, "MacBookAir6,1", true},
		{SetMustSpoof, "MacBookPro16,1", false},
		{SetLegacyGpu, "iMac9,1", true},
		{SetAGDPSupport, "MacBookPro9,1", true},
		{SetNoAGPMSupport, "MacBookPro9,1", false},
		{"no-such-set", "iMac9,1", false},
	}
	for _, test := range tests {
		t.Run(test.set+"/"+test.model, func(t *testing.T) {
			if got := c.InSet(test.set, test.model); got != test.expected {
				t.Errorf("expected %v, got %v", test.expected, got)
			}
		})
	}
}

func TestFindModelByBoardID(t *testing.T) {
	c := defaultCatalog(t)

	model, ok := c.FindModelByBoardID("Mac-4B7AC7E43945597E")
	if !ok || model != "MacBookPro9,1" {
		t.Fatalf("expected MacBookPro9,1, got %q", model)
	}
	if _, ok := c.FindModelByBoardID("Mac-00000000"); ok {
		t.Fatal("unexpected match for unknown board id")
	}
}

func TestDevicePath(t *testing.T) {
	c := defaultCatalog(t)

	tests := []struct {
		model    string
		table    string
		expected string
	}{
		// Model override
		{"iMac13,1", PathWireless, "PciRoot(0x0)/Pci(0x1C,0x3)/Pci(0x0,0x0)"},
		{"MacPro5,1", PathWireless, "PciRoot(0x0)/Pci(0x1C,0x5)/Pci(0x0,0x0)"},
		// Chassis and bus
		{"MacBook5,1", PathWireless, "PciRoot(0x0)/Pci(0x15,0x0)/Pci(0x0,0x0)"},
		// Laptop fallback
		{"MacBookPro9,1", PathWireless, "PciRoot(0x0)/Pci(0x1C,0x1)/Pci(0x0,0x0)"},
		{"iMac10,1", PathGfx0, "PciRoot(0x0)/Pci(0xc,0x0)/Pci(0x0,0x0)"},
		{"MacBookPro9,1", PathGfx0, "PciRoot(0x0)/Pci(0x1,0x0)/Pci(0x0,0x0)"},
		{"iMac9,1", PathHdef, "PciRoot(0x0)/Pci(0x8,0x0)"},
		{"iMac7,1", PathHdef, "PciRoot(0x0)/Pci(0x1b,0x0)"},
	}
	for _, test := range tests {
		t.Run(test.table+"/"+test.model, func(t *testing.T) {
			record, ok := c.Model(test.model)
			if !ok {
				t.Fatalf("unknown model %s", test.model)
			}
			path, err := c.DevicePath(test.table, record)
			if err != nil {
				t.Fatal(err)
			}
			if path != test.expected {
				t.Errorf("expected %s, got %s", test.expected, path)
			}
		})
	}
}

func TestDevicePathNoDesktopFallback(t *testing.T) {
	c := defaultCatalog(t)

	// An Intel desktop without a model entry must not get the laptop path
	record, _ := c.Model("iMac14,2")
	_, err := c.DevicePath(PathWireless, record)
	if !errors.Is(err, ErrNoDevicePath) {
		t.Fatalf("expected ErrNoDevicePath, got %v", err)
	}

	_, err = c.DevicePath("no-such-table", record)
	if !errors.Is(err, ErrNoDevicePath) {
		t.Fatalf("expected ErrNoDevicePath, got %v", err)
	}
}

func TestKextVersion(t *testing.T) {
	c := defaultCatalog(t)

	version, ok := c.KextVersion("IO80211ElCap.kext/Contents/PlugIns/AirPortBrcm4331.kext")
	if !ok || version != "2.0.1" {
		t.Fatalf("expected plugin to resolve to IO80211ElCap 2.0.1, got %q", version)
	}
	if _, ok := c.KextVersion("Unknown.kext"); ok {
		t.Fatal("unexpected version for unknown kext")
	}
}

func TestInvalidCatalogs(t *testing.T) {
	tests := []struct {
		name string
		file string
		data string
	}{
		{"empty", DonorsFilename, ""},
		{"unknown field", DonorsFilename, "donors:\n  - chassis: laptop\n    family: MacBook\n    donor: \"MacBook10,1\"\n    colour: red\n"},
		{"unknown donor", DonorsFilename, "donors:\n  - chassis: laptop\n    family: MacBook\n    donor: \"MacBook99,1\"\n"},
		{"unknown set member", ModelSetsFilename, "sets:\n  supported-smbios:\n    - \"Dortania1,1\"\n"},
		{"desktop fallback", DevicePathsFilename, `
wireless:
  chassis:
    - chassis: desktop
      path: "PciRoot(0x0)/Pci(0x1C,0x1)/Pci(0x0,0x0)"
      fallback: true
gfx0: {}
igpu: {}
hdef: {}
`},
		{"overlapping buckets", PciIdsFilename, `
gpu:
  - vendor-id: 0x10DE
    architectures:
      - name: Tesla
        device-ids: [0x0861]
      - name: Kepler
        device-ids: [0x0861]
wireless: []
ethernet: []
`},
		{"unknown policy", RootPatchSetsFilename, `
hardware:
  - name: Broken
    native-until: 17
    gpu-architectures: [Tesla]
    install:
      - policy: copy
        destination: /System/Library/Extensions
        files:
          GeForceTesla.kext: "10.13.6"
`},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			_, err := Load(embeddedWith(t, test.file, test.data))
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, ErrInvalidCatalog) {
				t.Fatalf("expected ErrInvalidCatalog, got %v", err)
			}
			t.Log(err)
		})
	}
}

func TestPropertyDecode(t *testing.T) {
	v, err := Property{Key: "device-id", Type: "data", Value: "BA430000"}.Decode()
	if err != nil {
		t.Fatal(err)
	}
	if b, ok := v.(types.HexBytes); !ok || b.String() != "BA430000" {
		t.Fatalf("unexpected value %v", v)
	}
	if _, err := (Property{Key: "x", Type: "float", Value: "1"}).Decode(); err == nil {
		t.Fatal("unknown type should fail")
	}
}

func TestSourceVersion(t *testing.T) {
	if got := SourceVersion("10.14.4-{os}", 22); got != "10.14.4-22" {
		t.Fatalf("unexpected version %s", got)
	}
	min, max := 18, 21
	if !InRange(21, &min, &max) || InRange(22, &min, &max) || !InRange(5, nil, nil) {
		t.Fatal("unexpected range result")
	}
}
