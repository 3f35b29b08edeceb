package debug

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jpnorenam/legacy-patcher/cmd/cli/common"
	"github.com/jpnorenam/legacy-patcher/pkg/catalog"
)

type validateCommand struct {
	*common.Context
}

func ValidateCommand(ctx *common.Context) *cobra.Command {
	var cmd validateCommand
	cmd.Context = ctx

	cobraCmd := &cobra.Command{
		Use:               "validate-catalog [<dir>...]",
		Short:             "Validate hardware catalog directories",
		Long:              "Validate catalog directories holding the same files as the built-in catalog. Without arguments the built-in catalog is validated.",
		Args:              cobra.ArbitraryArgs,
		ValidArgsFunction: cobra.FixedCompletions(nil, cobra.ShellCompDirectiveFilterDirs),
		RunE:              cmd.run,
	}

	return cobraCmd
}

func (cmd *validateCommand) run(_ *cobra.Command, args []string) error {
	if len(args) == 0 {
		// The built-in catalog was validated when it was loaded
		if err := cmd.Catalog.Validate(); err != nil {
			fmt.Printf("❌ built-in: %s\n", err)
			return fmt.Errorf("the built-in catalog is not valid")
		}
		fmt.Printf("✅ built-in: %d models\n", len(cmd.Catalog.Models))
		return nil
	}

	allCatalogsValid := true
	for _, dir := range args {
		c, err := catalog.LoadDir(dir)
		if err != nil {
			allCatalogsValid = false
			fmt.Printf("❌ %s: %s\n", dir, err)
		} else {
			fmt.Printf("✅ %s: %d models\n", dir, len(c.Models))
		}
	}

	if !allCatalogsValid {
		return fmt.Errorf("not all catalogs are valid")
	}
	return nil
}
