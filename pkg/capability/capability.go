package capability

import (
	"github.com/pkg/errors"

	"github.com/jpnorenam/legacy-patcher/pkg/catalog"
	"github.com/jpnorenam/legacy-patcher/pkg/types"
)

var (
	ErrModelNotFound                   = errors.New("model not found")
	ErrUnsupportedChassisConfiguration = errors.New("unsupported chassis configuration")
)

// Firmware feature bits that newer OS installers check before booting.
const (
	FirmwareFeatureSupportsCsmLegacyMode   = 1 << 19
	FirmwareFeatureSupportsApfs            = 1 << 20
	FirmwareFeatureSupportsLargeBaseSystem = 1 << 35
)

type Resolver struct {
	catalog *catalog.Catalog
}

func NewResolver(c *catalog.Catalog) *Resolver {
	return &Resolver{catalog: c}
}

// Resolve returns the capability record of model. Unknown identifiers fail
// with ErrModelNotFound.
func (r *Resolver) Resolve(model string) (types.ModelCapabilityRecord, error) {
	record, ok := r.catalog.Model(model)
	if !ok {
		return types.ModelCapabilityRecord{}, errors.Wrapf(ErrModelNotFound, "%q", model)
	}
	return record, nil
}

// ResolveBoardId finds the model owning a board id. It is used for machines
// that report a known board id under a custom model string.
func (r *Resolver) ResolveBoardId(boardId string) (types.ModelCapabilityRecord, error) {
	model, ok := r.catalog.FindModelByBoardID(boardId)
	if !ok {
		return types.ModelCapabilityRecord{}, errors.Wrapf(ErrModelNotFound, "board id %q", boardId)
	}
	return r.Resolve(model)
}

// ResolveFallbackSpoofTarget walks the donor table in order and returns the
// first donor whose constraints all hold for the model's chassis attributes.
func (r *Resolver) ResolveFallbackSpoofTarget(model string) (string, error) {
	record, err := r.Resolve(model)
	if err != nil {
		return "", err
	}
	return r.Donor(record)
}

func (r *Resolver) Donor(record types.ModelCapabilityRecord) (string, error) {
	chassis := record.Chassis()
	if chassis == types.ChassisLaptop && record.ScreenSize == nil {
		return "", errors.Wrapf(ErrUnsupportedChassisConfiguration, "%s: laptop without screen size", record.Model)
	}

	for _, rule := range r.catalog.Donors {
		if matchDonor(rule, chassis, record) {
			return rule.Donor, nil
		}
	}
	return "", errors.Wrapf(ErrUnsupportedChassisConfiguration, "%s: no donor for %s %s", record.Model, chassis, record.Family())
}

func matchDonor(rule catalog.DonorRule, chassis types.Chassis, record types.ModelCapabilityRecord) bool {
	if rule.Chassis != chassis {
		return false
	}
	if rule.Family != "" && rule.Family != record.Family() {
		return false
	}
	if rule.MinScreen != nil || rule.MaxScreen != nil {
		if record.ScreenSize == nil {
			return false
		}
		if rule.MinScreen != nil && *record.ScreenSize < *rule.MinScreen {
			return false
		}
		if rule.MaxScreen != nil && *record.ScreenSize > *rule.MaxScreen {
			return false
		}
	}
	if rule.MaxOS != nil && record.MaxOSSupported > *rule.MaxOS {
		return false
	}
	if rule.SwitchableGpus != nil && *rule.SwitchableGpus != record.SwitchableGpus {
		return false
	}
	return true
}

// FirmwareFeatures returns the record's firmware feature mask with the
// installer bits set.
func FirmwareFeatures(record types.ModelCapabilityRecord) types.HexInt {
	var mask types.HexInt
	if record.FirmwareFeatures != nil {
		mask = *record.FirmwareFeatures
	}
	return mask | FirmwareFeatureSupportsCsmLegacyMode | FirmwareFeatureSupportsApfs | FirmwareFeatureSupportsLargeBaseSystem
}
