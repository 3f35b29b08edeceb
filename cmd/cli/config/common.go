package config

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/jpnorenam/legacy-patcher/pkg/storage"
)

const groupID = "config"

func Group(title string) *cobra.Group {
	return &cobra.Group{
		ID:    groupID,
		Title: title,
	}
}

// completeKeys suggests the settable keys and their groups.
func completeKeys(suffix string) cobra.CompletionFunc {
	return func(_ *cobra.Command, args []string, toComplete string) ([]cobra.Completion, cobra.ShellCompDirective) {
		if len(args) > 0 {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		var completions []cobra.Completion
		for _, key := range storage.Keys() {
			if strings.HasPrefix(key, toComplete) {
				completions = append(completions, key+suffix)
			}
		}
		return completions, cobra.ShellCompDirectiveNoFileComp | cobra.ShellCompDirectiveNoSpace
	}
}
