package model

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jpnorenam/legacy-patcher/cmd/cli/common"
)

const groupID = "model"

func Group(title string) *cobra.Group {
	return &cobra.Group{
		ID:    groupID,
		Title: title,
	}
}

// hostModel returns the real model of this machine, or "" when it cannot be
// probed, e.g. when not running on a Mac.
func hostModel(ctx context.Context, cliCtx *common.Context) string {
	machine, err := cliCtx.Cache.GetMachineInfo(ctx)
	if err != nil {
		logrus.Debugf("Could not probe this machine: %v", err)
		return ""
	}
	return machine.RealModel
}

func completeModels(cliCtx *common.Context) cobra.CompletionFunc {
	return func(_ *cobra.Command, args []string, toComplete string) ([]cobra.Completion, cobra.ShellCompDirective) {
		if len(args) > 0 {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		var models []cobra.Completion
		for _, name := range cliCtx.Catalog.ModelNames() {
			if strings.HasPrefix(name, toComplete) {
				models = append(models, name)
			}
		}
		return models, cobra.ShellCompDirectiveNoFileComp
	}
}
