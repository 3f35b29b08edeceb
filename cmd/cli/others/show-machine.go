package others

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jpnorenam/legacy-patcher/cmd/cli/common"
	"github.com/jpnorenam/legacy-patcher/pkg/classifier"
	"github.com/jpnorenam/legacy-patcher/pkg/hardware_info"
	"github.com/jpnorenam/legacy-patcher/pkg/types"
)

type showMachineCommand struct {
	*common.Context

	// flags
	format  string
	refresh bool
}

func ShowMachineCommand(ctx *common.Context) *cobra.Command {
	var cmd showMachineCommand
	cmd.Context = ctx

	cobraCmd := &cobra.Command{
		Use:               "show-machine",
		Short:             "Print information about the host machine",
		Long:              "Print information about the host machine, including its real model, graphics, networking and Bluetooth hardware",
		Args:              cobra.NoArgs,
		ValidArgsFunction: cobra.NoFileCompletions,
		RunE:              cmd.run,
	}

	// flags
	cobraCmd.Flags().StringVar(&cmd.format, "format", "yaml", "output format")
	cobraCmd.Flags().BoolVar(&cmd.refresh, "refresh", false, "probe again instead of using the cached result")

	return cobraCmd
}

func (cmd *showMachineCommand) run(cobraCmd *cobra.Command, _ []string) error {
	stopProgress := common.StartProgressSpinner("Probing hardware")
	var machine *types.HardwareSnapshot
	var err error
	if cmd.refresh {
		machine, err = hardware_info.Get(cobraCmd.Context())
	} else {
		machine, err = cmd.Cache.GetMachineInfo(cobraCmd.Context())
	}
	stopProgress()
	if err != nil {
		return fmt.Errorf("failed to get machine info: %s", err)
	}

	enriched := classifier.New(cmd.Catalog).Enrich(*machine)
	return common.PrintFormatted(enriched, cmd.format)
}
