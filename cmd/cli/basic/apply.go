package basic

import (
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jpnorenam/legacy-patcher/cmd/cli/common"
	"github.com/jpnorenam/legacy-patcher/pkg/executor"
	"github.com/jpnorenam/legacy-patcher/pkg/types"
	"github.com/jpnorenam/legacy-patcher/pkg/utils"
)

type applyCommand struct {
	*common.Context

	// flags
	yes   bool
	force bool
}

func ApplyCommand(ctx *common.Context) *cobra.Command {
	var cmd applyCommand
	cmd.Context = ctx

	cobraCmd := &cobra.Command{
		Use:   "apply",
		Short: "Patch the system volume",
		Long: "Resolve the system volume patches for this machine and apply them to the running\n" +
			"system: mount the volume, install and remove files, rebuild the kernel cache\n" +
			"and bless a new boot snapshot",
		GroupID:           groupID,
		Args:              cobra.NoArgs,
		ValidArgsFunction: cobra.NoFileCompletions,
		RunE:              cmd.run,
	}

	// flags
	cobraCmd.Flags().BoolVarP(&cmd.yes, "yes", "y", false, "do not ask for confirmation")
	cobraCmd.Flags().BoolVar(&cmd.force, "force", false, "apply even if the same patches were applied before")

	return cobraCmd
}

func (cmd *applyCommand) run(cobraCmd *cobra.Command, _ []string) error {
	if !utils.IsRootUser() {
		return common.ErrPermissionDenied
	}

	ctx := cobraCmd.Context()
	plan, machine, err := resolvePlan(ctx, cmd.Context, resolveFlags{live: true})
	if err != nil {
		return err
	}
	if machine.HostOS == nil {
		return fmt.Errorf("could not determine the running macOS release")
	}

	if len(plan.VolumeActions) == 0 {
		fmt.Println("No system volume patches needed.")
		return nil
	}

	hash, err := fingerprint(plan)
	if err != nil {
		return err
	}
	lastApplied, err := cmd.Cache.GetLastApplied()
	if err != nil {
		logrus.Warnf("Could not read the last applied patches: %v", err)
	}
	if lastApplied == hash && !cmd.force {
		fmt.Println("These patches are already applied. Use --force to apply them again.")
		return nil
	}

	printSummary(plan)
	if !cmd.yes {
		if !utils.IsTerminalOutput() {
			return fmt.Errorf("refusing to patch the system volume without a terminal, use --yes")
		}
		confirmed, err := common.ConfirmationPrompt(
			fmt.Sprintf("Apply %d patches to the system volume?", len(plan.VolumeActions)),
			"The kernel cache is rebuilt and a new boot snapshot is created.",
		)
		if err != nil {
			return fmt.Errorf("error reading confirmation: %v", err)
		}
		if !confirmed {
			fmt.Println("Cancelled.")
			return nil
		}
	}

	hostOS := machine.HostOS.Major
	patcher := executor.New(
		executor.NewRootVolume(hostOS),
		executor.NewKernelCache(hostOS),
		executor.NewBlessSnapshot(hostOS),
	)

	stopProgress := common.StartProgressSpinner("Patching system volume")
	report, err := patcher.Apply(ctx, plan)
	stopProgress()

	if report != nil {
		printReport(report)
	}
	if err != nil {
		var partial *executor.PartialFailureError
		if errors.As(err, &partial) {
			for _, failure := range partial.Failures {
				fmt.Fprintf(os.Stderr, "❌ %s\n", failure.Error())
			}
		}
		return fmt.Errorf("error patching the system volume: %v\n\n%s", err, common.SuggestLogFile())
	}

	if err := cmd.Cache.SetLastApplied(hash); err != nil {
		logrus.Warnf("Could not record the applied patches: %v", err)
	}

	greenBold := color.New(color.FgGreen, color.Bold).SprintFunc()
	fmt.Println(greenBold("System volume patched."))
	fmt.Println(common.SuggestReboot())
	return nil
}

func printReport(report *executor.Report) {
	fmt.Fprintf(os.Stderr, "Applied %d actions", report.Applied)
	if len(report.Failures) > 0 {
		fmt.Fprintf(os.Stderr, ", %d failed", len(report.Failures))
	}
	fmt.Fprintln(os.Stderr)

	switch {
	case report.RebuildSkipped:
		fmt.Fprintln(os.Stderr, color.YellowString("Kernel cache rebuild skipped, a driver failed to install."))
	case report.Rebuilt:
		fmt.Fprintf(os.Stderr, "Kernel cache rebuilt (%s)\n", report.RebuildScope)
	case report.RebuildScope != types.CacheScopeNone:
		fmt.Fprintln(os.Stderr, color.RedString("Kernel cache rebuild failed."))
	}
	if report.Snapshotted {
		fmt.Fprintln(os.Stderr, "Boot snapshot created")
	}
}
