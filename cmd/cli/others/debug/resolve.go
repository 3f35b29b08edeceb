package debug

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jpnorenam/legacy-patcher/cmd/cli/common"
	"github.com/jpnorenam/legacy-patcher/pkg/catalog"
	"github.com/jpnorenam/legacy-patcher/pkg/constants"
	"github.com/jpnorenam/legacy-patcher/pkg/patchset"
	"github.com/jpnorenam/legacy-patcher/pkg/storage"
	"github.com/jpnorenam/legacy-patcher/pkg/types"
)

type resolveCommand struct {
	*common.Context

	// flags
	format     string
	catalogDir string
	serial     types.SerialStrategy
	targetOS   string
}

type RuleResult struct {
	Name    string `json:"name" yaml:"name"`
	Applied bool   `json:"applied" yaml:"applied"`
	Actions int    `json:"actions" yaml:"actions"`
}

type Resolution struct {
	Rules []RuleResult     `json:"rules" yaml:"rules"`
	Plan  *types.PatchPlan `json:"plan" yaml:"plan"`
}

func ResolveCommand(ctx *common.Context) *cobra.Command {
	var cmd resolveCommand
	cmd.Context = ctx

	cobraCmd := &cobra.Command{
		Use:               "resolve",
		Short:             "Test which patches will be chosen",
		Long:              "Test which patches will be chosen, given a hardware snapshot piped in via stdin, e.g. the output of show-machine",
		Args:              cobra.NoArgs,
		ValidArgsFunction: cobra.NoFileCompletions,
		RunE:              cmd.run,
	}

	// flags
	cobraCmd.Flags().StringVar(&cmd.format, "format", "yaml", "resolution results format")
	cobraCmd.Flags().StringVar(&cmd.catalogDir, "catalog", "", "catalog directory, instead of the built-in catalog")
	cobraCmd.Flags().Var(&cmd.serial, "serial", "serial strategy: none, minimal, moderate or advanced")
	cobraCmd.Flags().StringVar(&cmd.targetOS, "target-os", "", "target macOS release, by name or kernel major")

	return cobraCmd
}

func (cmd *resolveCommand) run(_ *cobra.Command, _ []string) error {
	// Read yaml piped in from show-machine
	var snapshot types.HardwareSnapshot

	err := yaml.NewDecoder(os.Stdin).Decode(&snapshot)
	if err != nil {
		return fmt.Errorf("error decoding hardware snapshot: %s", err)
	}

	resolution, err := cmd.resolve(snapshot)
	if err != nil {
		return err
	}

	// Print summary on STDERR
	for _, rule := range resolution.Rules {
		if !rule.Applied {
			fmt.Fprintf(os.Stderr, "⚪ %s - not applicable\n", rule.Name)
		} else {
			fmt.Fprintf(os.Stderr, "✅ %s - %d actions\n", rule.Name, rule.Actions)
		}
	}

	greenBold := color.New(color.FgGreen, color.Bold).SprintFunc()
	fmt.Fprintf(os.Stderr, greenBold("Resolved %d actions for %s on %s\n\n"),
		len(resolution.Plan.FirmwareActions)+len(resolution.Plan.VolumeActions),
		resolution.Plan.TargetModel, constants.OSName(resolution.Plan.TargetOS))

	return common.PrintFormatted(resolution, cmd.format)
}

func (cmd *resolveCommand) resolve(snapshot types.HardwareSnapshot) (*Resolution, error) {
	c := cmd.Catalog
	if cmd.catalogDir != "" {
		var err error
		c, err = catalog.LoadDir(cmd.catalogDir)
		if err != nil {
			return nil, fmt.Errorf("error loading catalog: %s", err)
		}
	}

	userConfig, err := storage.LoadUserConfig(cmd.Config)
	if err != nil {
		return nil, err
	}
	// The snapshot names the machine to resolve for
	userConfig.TargetModel = ""
	if cmd.serial != "" {
		userConfig.SerialStrategy = cmd.serial
	}
	if cmd.targetOS != "" {
		userConfig.TargetOS, err = constants.ParseOS(cmd.targetOS)
		if err != nil {
			return nil, err
		}
	}

	plan, err := patchset.NewResolver(c).Resolve(snapshot, userConfig)
	if err != nil {
		return nil, fmt.Errorf("error resolving patches: %s", err)
	}

	resolution := &Resolution{Plan: plan}
	for _, rule := range patchset.Rules() {
		n := len(plan.ActionsByRule(rule.Name))
		resolution.Rules = append(resolution.Rules, RuleResult{
			Name:    rule.Name,
			Applied: n > 0,
			Actions: n,
		})
	}
	return resolution, nil
}
