package catalog

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"

	"github.com/jpnorenam/legacy-patcher/pkg/types"
	"gopkg.in/yaml.v3"
)

//go:embed data/*.yaml
var embedded embed.FS

const (
	ModelsFilename           = "models.yaml"
	ModelSetsFilename        = "model_sets.yaml"
	PciIdsFilename           = "pci_ids.yaml"
	DevicePathsFilename      = "device_paths.yaml"
	DonorsFilename           = "donors.yaml"
	RootPatchSetsFilename    = "root_patch_sets.yaml"
	WirelessPoliciesFilename = "wireless_policies.yaml"
	KextsFilename            = "kexts.yaml"
)

// Model sets referenced by the resolvers
const (
	SetMustSpoof        = "supported-smbios"
	SetLegacyAudio      = "legacy-audio"
	SetModernGpu        = "modern-gpu"
	SetLegacyGpu        = "legacy-gpu"
	SetLegacyBrightness = "legacy-brightness"
	SetDualGpuPatch     = "dual-gpu-patch"
	SetIntelNvidiaDRM   = "intel-nvidia-drm"
	SetMacPro           = "mac-pro"
	SetNoAGPMSupport    = "no-agpm-support"
	SetAGDPSupport      = "agdp-support"
	SetMissingUSBMap    = "missing-usb-map"
)

var ErrInvalidCatalog = errors.New("invalid catalog")

// Catalog is the read-only hardware reference data. Values are never
// modified after Load returns, so a Catalog can be shared between
// goroutines.
type Catalog struct {
	Models           map[string]types.ModelCapabilityRecord
	Sets             map[string][]string
	Pci              PciIds
	Paths            map[string]PathTable
	Donors           []DonorRule
	PatchSets        PatchSets
	WirelessPolicies map[types.WirelessChipset]WirelessPolicy
	Kexts            map[string]string

	setIndex   map[string]map[string]bool
	boardIndex map[string]string
}

// Default loads the catalog compiled into the binary.
func Default() (*Catalog, error) {
	sub, err := fs.Sub(embedded, "data")
	if err != nil {
		return nil, err
	}
	return Load(sub)
}

// LoadDir loads a catalog from a directory holding the same file names as
// the embedded data.
func LoadDir(dir string) (*Catalog, error) {
	return Load(os.DirFS(dir))
}

func Load(fsys fs.FS) (*Catalog, error) {
	var models struct {
		Models map[string]types.ModelCapabilityRecord `yaml:"models"`
	}
	var sets struct {
		Sets map[string][]string `yaml:"sets"`
	}
	var donors struct {
		Donors []DonorRule `yaml:"donors"`
	}
	var policies struct {
		Wireless map[types.WirelessChipset]WirelessPolicy `yaml:"wireless"`
	}
	var kexts struct {
		Kexts map[string]string `yaml:"kexts"`
	}

	c := &Catalog{}
	files := []struct {
		name string
		out  any
	}{
		{ModelsFilename, &models},
		{ModelSetsFilename, &sets},
		{PciIdsFilename, &c.Pci},
		{DevicePathsFilename, &c.Paths},
		{DonorsFilename, &donors},
		{RootPatchSetsFilename, &c.PatchSets},
		{WirelessPoliciesFilename, &policies},
		{KextsFilename, &kexts},
	}
	for _, f := range files {
		if err := decodeFile(fsys, f.name, f.out); err != nil {
			return nil, err
		}
	}

	c.Models = make(map[string]types.ModelCapabilityRecord, len(models.Models))
	for name, record := range models.Models {
		record.Model = name
		c.Models[name] = record
	}
	c.Sets = sets.Sets
	c.Donors = donors.Donors
	c.WirelessPolicies = policies.Wireless
	c.Kexts = kexts.Kexts
	c.index()

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func decodeFile(fsys fs.FS, name string, out any) error {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return fmt.Errorf("%s: %s", name, err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("%w: %s: empty yaml data", ErrInvalidCatalog, name)
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	// Error if there are unknown fields in the yaml
	decoder.KnownFields(true)
	if err := decoder.Decode(out); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidCatalog, name, err)
	}
	return nil
}

func (c *Catalog) index() {
	c.setIndex = make(map[string]map[string]bool, len(c.Sets))
	for name, members := range c.Sets {
		index := make(map[string]bool, len(members))
		for _, m := range members {
			index[m] = true
		}
		c.setIndex[name] = index
	}

	c.boardIndex = make(map[string]string, len(c.Models))
	for _, name := range c.ModelNames() {
		boardId := c.Models[name].BoardId
		if boardId == "" {
			continue
		}
		// First model in sorted order owns a shared board id
		if _, ok := c.boardIndex[boardId]; !ok {
			c.boardIndex[boardId] = name
		}
	}
}

// ModelNames returns every model identifier, sorted.
func (c *Catalog) ModelNames() []string {
	names := make([]string, 0, len(c.Models))
	for name := range c.Models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (c *Catalog) Model(name string) (types.ModelCapabilityRecord, bool) {
	record, ok := c.Models[name]
	return record, ok
}

func (c *Catalog) InSet(set, model string) bool {
	return c.setIndex[set][model]
}

// FindModelByBoardID maps a firmware board id back to its model identifier.
func (c *Catalog) FindModelByBoardID(boardId string) (string, bool) {
	model, ok := c.boardIndex[boardId]
	return model, ok
}

// KextVersion returns the payload version of the top level bundle of a
// bundle path.
func (c *Catalog) KextVersion(bundle string) (string, bool) {
	version, ok := c.Kexts[topBundle(bundle)]
	return version, ok
}

var ErrNoDevicePath = errors.New("no device path")

// DevicePath resolves a path from the named table for record.
func (c *Catalog) DevicePath(table string, record types.ModelCapabilityRecord) (string, error) {
	t, ok := c.Paths[table]
	if !ok {
		return "", fmt.Errorf("%w: unknown table %q", ErrNoDevicePath, table)
	}
	if path, ok := t.Models[record.Model]; ok {
		return path, nil
	}

	chassis := record.Chassis()
	for _, entry := range t.Chassis {
		if entry.Chassis != chassis {
			continue
		}
		if entry.Bus != "" && entry.Bus != record.Bus() {
			continue
		}
		if entry.Fallback && chassis == types.ChassisDesktop {
			continue
		}
		return entry.Path, nil
	}
	return "", fmt.Errorf("%w: %s for %s (%s, %s bus)", ErrNoDevicePath, table, record.Model, chassis, record.Bus())
}

func (c *Catalog) SharedPatchSet(name string) (PatchSet, bool) {
	for _, set := range c.PatchSets.Shared {
		if set.Name == name {
			return set, true
		}
	}
	return PatchSet{}, false
}
