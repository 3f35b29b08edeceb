package basic

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/jpnorenam/legacy-patcher/cmd/cli/common"
	"github.com/jpnorenam/legacy-patcher/pkg/executor"
)

type buildConfigCommand struct {
	*common.Context

	// flags
	output   string
	template string
	resolve  resolveFlags
}

func BuildConfigCommand(ctx *common.Context) *cobra.Command {
	var cmd buildConfigCommand
	cmd.Context = ctx

	cobraCmd := &cobra.Command{
		Use:   "build-config",
		Short: "Write the boot loader configuration",
		Long: "Resolve the patches for this machine, or the model given with --model, and write the\n" +
			"firmware part of the plan as a boot loader configuration document",
		GroupID:           groupID,
		Args:              cobra.NoArgs,
		ValidArgsFunction: cobra.NoFileCompletions,
		RunE:              cmd.run,
	}

	// flags
	cobraCmd.Flags().StringVarP(&cmd.output, "output", "o", "config.plist", `output file, or "-" for stdout`)
	cobraCmd.Flags().StringVar(&cmd.template, "template", "", "existing configuration to apply the plan to")
	cmd.resolve.register(cobraCmd.Flags())

	return cobraCmd
}

func (cmd *buildConfigCommand) run(cobraCmd *cobra.Command, _ []string) error {
	plan, _, err := resolvePlan(cobraCmd.Context(), cmd.Context, cmd.resolve)
	if err != nil {
		return err
	}

	doc, err := cmd.loadDocument()
	if err != nil {
		return err
	}
	if err := doc.Apply(plan.FirmwareActions); err != nil {
		return fmt.Errorf("error building configuration: %v", err)
	}

	if cmd.output == "-" {
		return doc.Encode(os.Stdout)
	}
	if err := writeDocument(doc, cmd.output); err != nil {
		return err
	}

	printSummary(plan)
	green := color.New(color.FgGreen, color.Bold).SprintFunc()
	fmt.Fprintf(os.Stderr, "\n%s\n", green(fmt.Sprintf("Wrote %d firmware actions to %s", len(plan.FirmwareActions), cmd.output)))
	if len(plan.VolumeActions) > 0 {
		fmt.Fprintf(os.Stderr, "%d system volume patches remain. Run \"sudo %s apply\" once booted into %s.\n",
			len(plan.VolumeActions), common.CommandName(), plan.TargetModel)
	}
	return nil
}

func (cmd *buildConfigCommand) loadDocument() (*executor.FirmwareDocument, error) {
	if cmd.template == "" {
		return executor.NewFirmwareDocument(), nil
	}
	f, err := os.Open(cmd.template)
	if err != nil {
		return nil, fmt.Errorf("error opening template: %v", err)
	}
	defer f.Close()

	doc, err := executor.ReadFirmwareDocument(f)
	if err != nil {
		return nil, fmt.Errorf("error reading template %s: %v", cmd.template, err)
	}
	return doc, nil
}

// writeDocument replaces path only once the whole document is encoded.
func writeDocument(doc *executor.FirmwareDocument, path string) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".config-*.plist")
	if err != nil {
		return fmt.Errorf("error creating output file: %v", err)
	}
	defer os.Remove(tmp.Name())

	if err := doc.Encode(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("error encoding configuration: %v", err)
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
