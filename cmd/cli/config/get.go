package config

import (
	"fmt"
	"maps"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jpnorenam/legacy-patcher/cmd/cli/common"
	"github.com/jpnorenam/legacy-patcher/pkg/storage"
)

type getCommand struct {
	*common.Context
}

func GetCommand(ctx *common.Context) *cobra.Command {
	var cmd getCommand
	cmd.Context = ctx

	cobraCmd := &cobra.Command{
		Use:               "get [<key>]",
		Short:             "Print configurations",
		Long:              "Print one configuration, a group of configurations such as \"debug\", or all of them",
		GroupID:           groupID,
		Args:              cobra.MaximumNArgs(1),
		ValidArgsFunction: completeKeys(""),
		RunE:              cmd.run,
	}

	return cobraCmd
}

func (cmd *getCommand) run(_ *cobra.Command, args []string) error {
	if len(args) == 0 {
		return cmd.getValues()
	} else {
		return cmd.getValue(args[0])
	}
}

func (cmd *getCommand) getValue(key string) error {
	value, err := cmd.Config.Get(key)
	if err != nil {
		return fmt.Errorf("error getting value of %q: %v", key, err)
	}
	value = withDefaults(value, func(k string) bool {
		return k == key || strings.HasPrefix(k, key+".")
	})

	if len(value) == 0 {
		return fmt.Errorf("no value set for key %q", key)
	}

	if v, found := value[key]; found && len(value) == 1 {
		fmt.Println(v)
	} else {
		// print as yaml
		yamlOutput, err := yaml.Marshal(value)
		if err != nil {
			return fmt.Errorf("error serializing value: %v", err)
		}
		fmt.Printf("%s", yamlOutput) // the yaml output ends with a newline
	}

	return nil
}

func (cmd *getCommand) getValues() error {
	values, err := cmd.Config.GetAll()
	if err != nil {
		return fmt.Errorf("error getting values: %v", err)
	}
	values = withDefaults(values, func(string) bool { return true })

	// print config value
	yamlOutput, err := yaml.Marshal(values)
	if err != nil {
		return fmt.Errorf("error serializing values: %v", err)
	}
	fmt.Printf("%s", yamlOutput) // the yaml output ends with a newline

	return nil
}

// withDefaults fills in built-in values for the matching keys no layer sets.
func withDefaults(values map[string]any, match func(key string) bool) map[string]any {
	merged := make(map[string]any)
	for k, v := range storage.DefaultValues() {
		if match(k) {
			merged[k] = v
		}
	}
	maps.Copy(merged, values)
	return merged
}
