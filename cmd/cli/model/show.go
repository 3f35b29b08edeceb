package model

import (
	"errors"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/jpnorenam/legacy-patcher/cmd/cli/common"
	"github.com/jpnorenam/legacy-patcher/pkg/capability"
	"github.com/jpnorenam/legacy-patcher/pkg/catalog"
	"github.com/jpnorenam/legacy-patcher/pkg/constants"
	"github.com/jpnorenam/legacy-patcher/pkg/types"
)

type showCommand struct {
	*common.Context

	// flags
	format string
}

// ModelInfo is a catalog record with the decisions derived from it.
type ModelInfo struct {
	Name                        string `json:"-" yaml:"model"`
	types.ModelCapabilityRecord `yaml:",inline"`

	MaxOS             string       `json:"max-os" yaml:"max-os"`
	MustSpoof         bool         `json:"must-spoof" yaml:"must-spoof"`
	SpoofTarget       string       `json:"spoof-target,omitempty" yaml:"spoof-target,omitempty"`
	InstallerFeatures types.HexInt `json:"installer-firmware-features" yaml:"installer-firmware-features"`
	Sets              []string     `json:"sets,omitempty" yaml:"sets,omitempty"`
}

func ShowCommand(ctx *common.Context) *cobra.Command {
	var cmd showCommand
	cmd.Context = ctx

	cobraCmd := &cobra.Command{
		Use:               "show-model [<model>]",
		Short:             "Print information about a model",
		Long:              "Print the catalog record of this machine, or the specified model",
		GroupID:           groupID,
		Args:              cobra.MaximumNArgs(1),
		ValidArgsFunction: completeModels(ctx),
		RunE:              cmd.run,
	}

	// flags
	cobraCmd.Flags().StringVar(&cmd.format, "format", "yaml", "output format")

	return cobraCmd
}

func (cmd *showCommand) run(cobraCmd *cobra.Command, args []string) error {
	var name string
	if len(args) == 1 {
		name = args[0]
	} else {
		name = hostModel(cobraCmd.Context(), cmd.Context)
		if name == "" {
			return fmt.Errorf("could not determine the model of this machine, specify one")
		}
	}

	info, err := cmd.modelInfo(name)
	if err != nil {
		return err
	}
	return common.PrintFormatted(info, cmd.format)
}

func (cmd *showCommand) modelInfo(name string) (*ModelInfo, error) {
	resolver := capability.NewResolver(cmd.Catalog)
	record, err := resolver.Resolve(name)
	if errors.Is(err, capability.ErrModelNotFound) {
		return nil, fmt.Errorf("model %q does not exist", name)
	} else if err != nil {
		return nil, err
	}

	info := &ModelInfo{
		Name:                  name,
		ModelCapabilityRecord: record,
		MaxOS:                 constants.OSName(record.MaxOSSupported),
		MustSpoof:             cmd.Catalog.InSet(catalog.SetMustSpoof, name),
		InstallerFeatures:     capability.FirmwareFeatures(record),
	}
	if info.MustSpoof {
		// Some chassis have no donor; the record is still worth printing
		if donor, err := resolver.Donor(record); err == nil {
			info.SpoofTarget = donor
		}
	}
	for _, set := range sortedSetNames(cmd.Catalog) {
		if cmd.Catalog.InSet(set, name) {
			info.Sets = append(info.Sets, set)
		}
	}
	return info, nil
}

func sortedSetNames(c *catalog.Catalog) []string {
	names := make([]string, 0, len(c.Sets))
	for name := range c.Sets {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
