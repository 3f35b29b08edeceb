package config

import (
	"fmt"
	"strings"

	"github.com/canonical/go-snapctl/env"
	"github.com/spf13/cobra"

	"github.com/jpnorenam/legacy-patcher/cmd/cli/common"
	"github.com/jpnorenam/legacy-patcher/pkg/storage"
	"github.com/jpnorenam/legacy-patcher/pkg/utils"
)

type setCommand struct {
	*common.Context

	// flags
	packageConfig bool
	reset         bool
}

func SetCommand(ctx *common.Context) *cobra.Command {
	var cmd setCommand
	cmd.Context = ctx

	cobraCmd := &cobra.Command{
		Use:               "set <key=value>",
		Short:             "Set configurations",
		Long:              "Set a configuration, or restore its default with --reset <key>",
		GroupID:           groupID,
		Args:              cobra.ExactArgs(1),
		ValidArgsFunction: completeKeys("="),
		RunE:              cmd.run,
	}

	// flags
	cobraCmd.Flags().BoolVar(&cmd.reset, "reset", false, "remove the value set for a key")
	cobraCmd.Flags().BoolVar(&cmd.packageConfig, "package", false, "set package configurations")
	err := cobraCmd.Flags().MarkHidden("package")
	if err != nil {
		panic(err)
	}

	return cobraCmd
}

func (cmd *setCommand) run(_ *cobra.Command, args []string) error {
	// snap configuration can only be changed by root
	if env.Snap() != "" && !utils.IsRootUser() {
		return common.ErrPermissionDenied
	}
	if cmd.reset {
		return cmd.unsetValue(args[0])
	}
	return cmd.setValue(args[0])
}

func (cmd *setCommand) setValue(keyValue string) error {
	if keyValue[0] == '=' {
		return fmt.Errorf("key must not start with an equal sign")
	}

	// The value itself can contain an equal sign, so we split only on the first occurrence
	parts := strings.SplitN(keyValue, "=", 2)
	if len(parts) != 2 {
		return fmt.Errorf("expected key=value, got %q", keyValue)
	}
	key, value := parts[0], parts[1]

	var err error
	if cmd.packageConfig {
		err = cmd.Config.Set(key, value, storage.PackageConfig)
	} else {
		err = cmd.Config.Set(key, value, storage.UserConfig)
	}
	if err != nil {
		return fmt.Errorf("error setting value %q for %q: %v", value, key, err)
	}

	return nil
}

func (cmd *setCommand) unsetValue(key string) error {
	confType := storage.UserConfig
	if cmd.packageConfig {
		confType = storage.PackageConfig
	}
	if err := cmd.Config.Unset(key, confType); err != nil {
		return fmt.Errorf("error resetting %q: %v", key, err)
	}
	return nil
}
