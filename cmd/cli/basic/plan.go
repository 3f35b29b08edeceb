package basic

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jpnorenam/legacy-patcher/cmd/cli/common"
	"github.com/jpnorenam/legacy-patcher/pkg/types"
	"github.com/jpnorenam/legacy-patcher/pkg/utils"
)

type planCommand struct {
	*common.Context

	// flags
	format  string
	resolve resolveFlags
}

// PlanOutput is what the plan command prints.
type PlanOutput struct {
	Fingerprint string           `json:"fingerprint" yaml:"fingerprint"`
	Plan        *types.PatchPlan `json:"plan" yaml:"plan"`
}

func PlanCommand(ctx *common.Context) *cobra.Command {
	var cmd planCommand
	cmd.Context = ctx

	cobraCmd := &cobra.Command{
		Use:               "plan",
		Short:             "Print the patches this machine needs",
		Long:              "Resolve the boot loader configuration and system volume patches for this machine, or the model given with --model, and print them without applying anything.\n\nGPU patch sets need the probed hardware and are omitted when --model plans for another machine.",
		GroupID:           groupID,
		Args:              cobra.NoArgs,
		ValidArgsFunction: cobra.NoFileCompletions,
		RunE:              cmd.run,
	}

	// flags
	cobraCmd.Flags().StringVar(&cmd.format, "format", "yaml", "output format")
	cmd.resolve.register(cobraCmd.Flags())

	return cobraCmd
}

func (cmd *planCommand) run(cobraCmd *cobra.Command, _ []string) error {
	plan, _, err := resolvePlan(cobraCmd.Context(), cmd.Context, cmd.resolve)
	if err != nil {
		return err
	}

	hash, err := fingerprint(plan)
	if err != nil {
		return err
	}

	if utils.IsTerminalOutput() {
		printSummary(plan)
		fmt.Fprintln(os.Stderr)
	}

	return common.PrintFormatted(PlanOutput{Fingerprint: hash, Plan: plan}, cmd.format)
}
