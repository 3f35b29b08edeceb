package debug

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jpnorenam/legacy-patcher/cmd/cli/common"
	"github.com/jpnorenam/legacy-patcher/pkg/storage"
)

// SeedConfigCommand writes the package defaults. The snap install hook runs it.
func SeedConfigCommand(ctx *common.Context) *cobra.Command {
	return &cobra.Command{
		Use:               "seed-config",
		Short:             "Write the default package configurations",
		Args:              cobra.NoArgs,
		ValidArgsFunction: cobra.NoFileCompletions,
		RunE: func(_ *cobra.Command, _ []string) error {
			if err := storage.SeedPackageConfig(ctx.Config); err != nil {
				return fmt.Errorf("error writing package configurations: %v", err)
			}
			return nil
		},
	}
}
